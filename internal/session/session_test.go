package session

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/hiveeyes/lorawan-device-client/internal/status"
	"github.com/hiveeyes/lorawan-device-client/internal/test"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

type SessionTestSuite struct {
	suite.Suite
}

func (ts *SessionTestSuite) TestOpenConfiguresSocket() {
	assert := require.New(ts.T())

	r := test.Radio{JoinedAfter: 1}
	e := test.EmitterRecorder{}

	s, err := Open(&r, 5, 0, &e)
	assert.NoError(err)
	assert.NotNil(s)

	assert.Equal(1, r.OpenSocketCalls)
	assert.Equal(5, r.Socket.DataRate)
	assert.True(r.Socket.BlockingSet)
	assert.False(r.Socket.Blocking)
	assert.Equal(1, e.Count(status.EventSocketOpened))
}

func (ts *SessionTestSuite) TestOpenWithoutRadio() {
	assert := require.New(ts.T())

	s, err := Open(nil, 5, 0, nil)
	assert.Nil(s)
	assert.Equal(ErrSocketUnavailable, errors.Cause(err))
}

func (ts *SessionTestSuite) TestOpenSocketUnavailable() {
	assert := require.New(ts.T())

	r := test.Radio{SocketError: errors.New("not joined")}
	s, err := Open(&r, 5, 0, nil)
	assert.Nil(s)
	assert.Equal(ErrSocketUnavailable, errors.Cause(err))
}

func (ts *SessionTestSuite) TestSendEmptyPayload() {
	assert := require.New(ts.T())

	r := test.Radio{}
	s, err := Open(&r, 5, 0, nil)
	assert.NoError(err)

	n, err := s.Send([]byte{})
	assert.NoError(err)
	assert.Equal(0, n)
}

func (ts *SessionTestSuite) TestSendPartialAccept() {
	assert := require.New(ts.T())

	r := test.Radio{Socket: &test.Socket{AcceptMax: 4}}
	s, err := Open(&r, 5, 0, nil)
	assert.NoError(err)

	n, err := s.Send([]byte("12345678"))
	assert.NoError(err)
	assert.Equal(4, n)
}

func (ts *SessionTestSuite) TestSendRadioFault() {
	assert := require.New(ts.T())

	fault := errors.New("radio fault")
	r := test.Radio{Socket: &test.Socket{SendError: fault}}
	s, err := Open(&r, 5, 0, nil)
	assert.NoError(err)

	_, err = s.Send([]byte{0x01})
	assert.Equal(fault, errors.Cause(err))
}

func (ts *SessionTestSuite) TestReceiveNoDataPending() {
	assert := require.New(ts.T())

	r := test.Radio{}
	e := test.EmitterRecorder{}
	s, err := Open(&r, 5, 0, &e)
	assert.NoError(err)

	b, port, err := s.Receive(256)
	assert.NoError(err)
	assert.Len(b, 0)
	assert.Equal(uint8(0), port)
	assert.Equal(0, e.Count(status.EventReceive))
}

func (ts *SessionTestSuite) TestEchoRoundTrip() {
	assert := require.New(ts.T())

	r := test.Radio{Socket: &test.Socket{Echo: true, EchoPort: 2}}
	e := test.EmitterRecorder{}
	s, err := Open(&r, 5, 0, &e)
	assert.NoError(err)

	payload := []byte{0x01, 0x02, 0x03}
	n, err := s.Send(payload)
	assert.NoError(err)
	assert.Equal(3, n)

	b, port, err := s.Receive(256)
	assert.NoError(err)
	assert.Equal(payload, b)
	assert.Equal(uint8(2), port)

	assert.Equal(1, e.Count(status.EventSend))
	assert.Equal(1, e.Count(status.EventReceive))
}

func (ts *SessionTestSuite) TestReceiveTruncatesToMax() {
	assert := require.New(ts.T())

	r := test.Radio{Socket: &test.Socket{
		RxQueue: []test.RxFrame{{Data: []byte("123456"), Port: 1}},
	}}
	s, err := Open(&r, 5, 0, nil)
	assert.NoError(err)

	b, _, err := s.Receive(4)
	assert.NoError(err)
	assert.Equal([]byte("1234"), b)
}

func (ts *SessionTestSuite) TestSignalDelayIsFixed() {
	assert := require.New(ts.T())

	const delay = 20 * time.Millisecond

	r := test.Radio{}
	s, err := Open(&r, 5, delay, nil)
	assert.NoError(err)

	// The delay applies to a large payload the same way as to an
	// empty one.
	for _, payload := range [][]byte{{}, make([]byte, 200)} {
		start := time.Now()
		_, err := s.Send(payload)
		assert.NoError(err)
		assert.GreaterOrEqual(int64(time.Since(start)), int64(delay))
	}
}

func TestSession(t *testing.T) {
	suite.Run(t, new(SessionTestSuite))
}
