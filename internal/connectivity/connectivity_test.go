package connectivity

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/brocaar/lorawan/band"

	"github.com/hiveeyes/lorawan-device-client/internal/join"
	"github.com/hiveeyes/lorawan-device-client/internal/status"
	"github.com/hiveeyes/lorawan-device-client/internal/test"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

type ConnectivityTestSuite struct {
	suite.Suite

	creds join.Credentials
}

func (ts *ConnectivityTestSuite) SetupSuite() {
	assert := require.New(ts.T())

	var err error
	ts.creds, err = join.DecodeCredentials("70b3d57ed0000000", "01020304050607080910111213141516", "")
	assert.NoError(err)
}

func (ts *ConnectivityTestSuite) config(r *test.Radio, e *test.EmitterRecorder) Config {
	return Config{
		Radio:       r,
		Emitter:     e,
		Credentials: ts.creds,
		Region:      band.EU868,

		DataRate:     5,
		JoinAttempts: 3,
		PollInterval: time.Millisecond,
		PollTimeout:  time.Millisecond,
	}
}

func (ts *ConnectivityTestSuite) TestStartJoinBudgetExhausted() {
	assert := require.New(ts.T())

	r := test.Radio{}
	e := test.EmitterRecorder{}

	m := NewManager(ts.config(&r, &e))
	err := m.Start()

	assert.Equal(ErrJoinFailed, errors.Cause(err))
	assert.Equal(StateJoinFailed, m.State())
	assert.Equal(3, e.Count(status.EventJoinAttempt))
	assert.Equal(0, r.OpenSocketCalls)
}

func (ts *ConnectivityTestSuite) TestStartReachesReady() {
	assert := require.New(ts.T())

	// joined status appears on the second polling iteration
	r := test.Radio{JoinedAfter: 2}
	e := test.EmitterRecorder{}
	conf := ts.config(&r, &e)
	conf.JoinAttempts = 5

	m := NewManager(conf)
	assert.NoError(m.Start())

	assert.Equal(StateReady, m.State())
	assert.Equal(1, r.OpenSocketCalls)
	assert.Equal(1, e.Count(status.EventJoined))
	assert.Equal(1, e.Count(status.EventSocketOpened))
}

func (ts *ConnectivityTestSuite) TestStartSocketFailed() {
	assert := require.New(ts.T())

	r := test.Radio{JoinedAfter: 1, SocketError: errors.New("no channel")}
	m := NewManager(ts.config(&r, &test.EmitterRecorder{}))

	err := m.Start()
	assert.Equal(ErrSocketFailed, errors.Cause(err))
	assert.Equal(StateSocketFailed, m.State())
}

func (ts *ConnectivityTestSuite) TestStartUnknownRegionFailsFast() {
	assert := require.New(ts.T())

	r := test.Radio{JoinedAfter: 1}
	conf := ts.config(&r, &test.EmitterRecorder{})
	conf.Region = band.Name("XX000")

	m := NewManager(conf)
	assert.Error(m.Start())
	assert.Equal(StateJoinFailed, m.State())
	assert.Len(r.JoinCalls, 0)
}

func (ts *ConnectivityTestSuite) TestSendReceiveBeforeReady() {
	assert := require.New(ts.T())

	r := test.Radio{}
	m := NewManager(ts.config(&r, &test.EmitterRecorder{}))

	_, err := m.Send([]byte{0x01})
	assert.Equal(ErrNotReady, errors.Cause(err))

	_, _, err = m.Receive(256)
	assert.Equal(ErrNotReady, errors.Cause(err))

	// no radio calls were made
	assert.Len(r.JoinCalls, 0)
	assert.Equal(0, r.OpenSocketCalls)
	assert.Nil(r.Socket)
}

func (ts *ConnectivityTestSuite) TestSendReceiveAfterJoinFailure() {
	assert := require.New(ts.T())

	r := test.Radio{}
	m := NewManager(ts.config(&r, &test.EmitterRecorder{}))
	assert.Error(m.Start())

	_, err := m.Send([]byte{0x01})
	assert.Equal(ErrNotReady, errors.Cause(err))
}

func (ts *ConnectivityTestSuite) TestStartIsNotReentrant() {
	assert := require.New(ts.T())

	r := test.Radio{JoinedAfter: 1}
	m := NewManager(ts.config(&r, &test.EmitterRecorder{}))

	assert.NoError(m.Start())
	err := m.Start()
	assert.Equal(ErrNotReady, errors.Cause(err))
	assert.Equal(StateReady, m.State())
}

func (ts *ConnectivityTestSuite) TestRoundTrip() {
	assert := require.New(ts.T())

	r := test.Radio{JoinedAfter: 1, Socket: &test.Socket{Echo: true, EchoPort: 1}}
	e := test.EmitterRecorder{}

	m := NewManager(ts.config(&r, &e))
	assert.NoError(m.Start())

	payload := []byte("telemetry")
	n, err := m.Send(payload)
	assert.NoError(err)
	assert.Equal(len(payload), n)

	b, port, err := m.Receive(256)
	assert.NoError(err)
	assert.Equal(payload, b)
	assert.Equal(uint8(1), port)

	// happy-path event order
	assert.Equal([]status.Event{
		status.EventJoinAttempt,
		status.EventJoined,
		status.EventSocketOpened,
		status.EventSend,
		status.EventReceive,
	}, e.Events)
}

func (ts *ConnectivityTestSuite) TestDefaultJoinAttempts() {
	assert := require.New(ts.T())

	conf := ts.config(&test.Radio{}, &test.EmitterRecorder{})
	conf.JoinAttempts = 0

	m := NewManager(conf)
	assert.Equal(DefaultJoinAttempts, m.conf.JoinAttempts)
}

func (ts *ConnectivityTestSuite) TestStateString() {
	assert := require.New(ts.T())

	tests := map[State]string{
		StateNotStarted:   "not_started",
		StateJoining:      "joining",
		StateJoined:       "joined",
		StateJoinFailed:   "join_failed",
		StateSocketFailed: "socket_failed",
		StateReady:        "ready",
	}

	for state, expected := range tests {
		assert.Equal(expected, state.String())
	}
}

func TestConnectivity(t *testing.T) {
	suite.Run(t, new(ConnectivityTestSuite))
}
