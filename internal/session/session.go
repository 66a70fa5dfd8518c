// Package session owns the application-data socket that exists after
// a successful join.
package session

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/hiveeyes/lorawan-device-client/internal/radio"
	"github.com/hiveeyes/lorawan-device-client/internal/status"
)

// ErrSocketUnavailable is returned when the radio can not allocate the
// application-data channel.
var ErrSocketUnavailable = errors.New("socket unavailable")

// Session is the post-join communication channel. Send and Receive are
// non-blocking; each transfer is followed by a fixed signaling delay
// reserved for indicator side effects.
type Session struct {
	sock        radio.Socket
	emitter     status.Emitter
	signalDelay time.Duration
}

// Open allocates the raw socket, applies the configured datarate once
// and switches the channel to non-blocking mode. Calling it before the
// join completed is a precondition violation which the radio must
// reject; it is never retried here.
func Open(r radio.Radio, dataRate int, signalDelay time.Duration, e status.Emitter) (*Session, error) {
	if r == nil {
		return nil, errors.Wrap(ErrSocketUnavailable, "no radio")
	}
	if e == nil {
		e = status.Nop{}
	}

	sock, err := r.OpenSocket()
	if err != nil {
		return nil, errors.Wrapf(ErrSocketUnavailable, "open socket error: %s", err)
	}

	if err := sock.SetDataRate(dataRate); err != nil {
		sock.Close()
		return nil, errors.Wrap(err, "set datarate error")
	}

	if err := sock.SetBlocking(false); err != nil {
		sock.Close()
		return nil, errors.Wrap(err, "set non-blocking error")
	}

	e.Emit(status.EventSocketOpened)
	log.WithField("data_rate", dataRate).Info("session: socket created")

	return &Session{
		sock:        sock,
		emitter:     e,
		signalDelay: signalDelay,
	}, nil
}

// Send transmits payload and returns the number of bytes the radio
// accepted. A short or zero count is a valid non-blocking outcome, not
// an error; only a radio-layer fault returns an error.
func (s *Session) Send(payload []byte) (int, error) {
	n, err := s.sock.Send(payload)
	if err != nil {
		return 0, errors.Wrap(err, "send error")
	}

	s.emitter.Emit(status.EventSend)
	s.settle()

	return n, nil
}

// Receive reads up to max bytes of downlink data and the FPort it
// arrived on. An empty payload means no data is pending and is not an
// error.
func (s *Session) Receive(max int) ([]byte, uint8, error) {
	b, port, err := s.sock.RecvFrom(max)
	if err != nil {
		return nil, 0, errors.Wrap(err, "receive error")
	}

	if len(b) != 0 {
		log.WithFields(log.Fields{
			"bytes": len(b),
			"port":  port,
		}).Info("session: downlink received")
		s.emitter.Emit(status.EventReceive)
	}

	s.settle()

	return b, port, nil
}

// Close closes the underlying socket.
func (s *Session) Close() error {
	return s.sock.Close()
}

// settle is the fixed indicator delay after a transfer. It must not
// depend on payload size or retry count.
func (s *Session) settle() {
	if s.signalDelay > 0 {
		time.Sleep(s.signalDelay)
	}
}
