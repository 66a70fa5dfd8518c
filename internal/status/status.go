// Package status defines the status-signaling boundary. Connectivity
// state changes are emitted as events so an indicator driver (e.g. an
// RGB LED) can visualize them without the protocol code knowing about
// indicator hardware or timing.
package status

import (
	log "github.com/sirupsen/logrus"
)

// Event identifies a connectivity state change worth signaling.
type Event int

// Events emitted by the connectivity core.
const (
	EventJoinAttempt Event = iota
	EventJoined
	EventJoinFailed
	EventSocketOpened
	EventSend
	EventReceive
)

// String implements fmt.Stringer.
func (e Event) String() string {
	switch e {
	case EventJoinAttempt:
		return "join_attempt"
	case EventJoined:
		return "joined"
	case EventJoinFailed:
		return "join_failed"
	case EventSocketOpened:
		return "socket_opened"
	case EventSend:
		return "send"
	case EventReceive:
		return "receive"
	default:
		return "unknown"
	}
}

// Emitter consumes status events. Emit is fire-and-forget: it must not
// block the caller and must not surface errors into protocol paths.
// Implementations that can fail must log and continue.
type Emitter interface {
	Emit(e Event)
}

// Nop discards all events.
type Nop struct{}

// Emit implements Emitter.
func (Nop) Emit(Event) {}

// Logger logs each event. It stands in for an indicator driver on
// builds without one.
type Logger struct{}

// Emit implements Emitter.
func (Logger) Emit(e Event) {
	log.WithField("event", e).Debug("status: event emitted")
}
