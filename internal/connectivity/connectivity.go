// Package connectivity composes the join coordinator and the session
// socket into the single lifecycle the rest of the firmware depends
// on.
package connectivity

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/brocaar/lorawan/band"

	"github.com/hiveeyes/lorawan-device-client/internal/join"
	"github.com/hiveeyes/lorawan-device-client/internal/radio"
	"github.com/hiveeyes/lorawan-device-client/internal/session"
	"github.com/hiveeyes/lorawan-device-client/internal/status"
)

// DefaultJoinAttempts bounds the join wait when no budget is
// configured.
const DefaultJoinAttempts = 42

// Errors returned by the manager.
var (
	ErrJoinFailed   = errors.New("join attempt budget exhausted")
	ErrSocketFailed = errors.New("socket creation failed")
	ErrNotReady     = errors.New("connectivity not ready")
)

// State is the connectivity lifecycle state. Transitions only move
// forward; there is no re-entry to StateNotStarted within a process
// instance.
type State int

// Lifecycle states. StateJoinFailed and StateSocketFailed are
// terminal; the supported recovery is a device restart.
const (
	StateNotStarted State = iota
	StateJoining
	StateJoined
	StateJoinFailed
	StateSocketFailed
	StateReady
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateJoining:
		return "joining"
	case StateJoined:
		return "joined"
	case StateJoinFailed:
		return "join_failed"
	case StateSocketFailed:
		return "socket_failed"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Config holds the manager configuration. Radio and Credentials are
// required; zero durations disable the corresponding sleeps.
type Config struct {
	Radio       radio.Radio
	Emitter     status.Emitter
	Credentials join.Credentials
	Region      band.Name

	DataRate     int
	JoinAttempts int
	PollInterval time.Duration
	PollTimeout  time.Duration
	SettleDelay  time.Duration
	SignalDelay  time.Duration
}

// Manager owns the connectivity lifecycle. It is not safe for
// concurrent use; the connectivity lifecycle runs on a single logical
// thread of control.
type Manager struct {
	conf  Config
	coord *join.Coordinator
	sess  *session.Session
	state State

	// bootID correlates all log entries of one process instance.
	bootID uuid.UUID
}

// NewManager creates a Manager in StateNotStarted.
func NewManager(conf Config) *Manager {
	if conf.Emitter == nil {
		conf.Emitter = status.Nop{}
	}
	if conf.JoinAttempts <= 0 {
		conf.JoinAttempts = DefaultJoinAttempts
	}

	bootID, err := uuid.NewV4()
	if err != nil {
		log.WithError(err).Warning("connectivity: new boot id error")
	}

	return &Manager{
		conf:   conf,
		coord:  join.NewCoordinator(conf.Radio, conf.Emitter, conf.PollInterval, conf.PollTimeout),
		state:  StateNotStarted,
		bootID: bootID,
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	return m.state
}

// Start performs the OTAA join, waits for the join accept under the
// attempt budget and, only when joined, opens the session socket. It
// never retries internally: a terminal ErrJoinFailed or
// ErrSocketFailed outcome is reported to the caller, and the only
// supported recovery is a full device restart.
func (m *Manager) Start() error {
	if m.state != StateNotStarted {
		return errors.Wrapf(ErrNotReady, "start in state %s", m.state)
	}

	ctx := log.WithFields(log.Fields{
		"boot_id": m.bootID,
		"region":  m.conf.Region,
	})
	ctx.Info("connectivity: starting")

	m.state = StateJoining
	if err := m.coord.Begin(m.conf.Credentials, m.conf.Region); err != nil {
		m.state = StateJoinFailed
		return errors.Wrap(err, "begin join error")
	}

	joined, err := m.coord.WaitForJoin(m.conf.JoinAttempts)
	if err != nil {
		m.state = StateJoinFailed
		return errors.Wrap(err, "wait for join error")
	}
	if !joined {
		m.state = StateJoinFailed
		return errors.Wrapf(ErrJoinFailed, "no join accept after %d attempts", m.conf.JoinAttempts)
	}
	m.state = StateJoined

	// Give the radio stack time to settle between the join accept and
	// the socket creation.
	if m.conf.SettleDelay > 0 {
		time.Sleep(m.conf.SettleDelay)
	}

	sess, err := session.Open(m.conf.Radio, m.conf.DataRate, m.conf.SignalDelay, m.conf.Emitter)
	if err != nil {
		m.state = StateSocketFailed
		return errors.Wrapf(ErrSocketFailed, "open session error: %s", err)
	}

	m.sess = sess
	m.state = StateReady
	ctx.Info("connectivity: ready")

	return nil
}

// Send delegates to the session socket. It fails with ErrNotReady
// before StateReady. A radio fault after StateReady surfaces as a
// socket error; no automatic reconnection is attempted.
func (m *Manager) Send(payload []byte) (int, error) {
	if m.state != StateReady {
		return 0, errors.Wrapf(ErrNotReady, "send in state %s", m.state)
	}

	return m.sess.Send(payload)
}

// Receive delegates to the session socket. It fails with ErrNotReady
// before StateReady.
func (m *Manager) Receive(max int) ([]byte, uint8, error) {
	if m.state != StateReady {
		return nil, 0, errors.Wrapf(ErrNotReady, "receive in state %s", m.state)
	}

	return m.sess.Receive(max)
}
