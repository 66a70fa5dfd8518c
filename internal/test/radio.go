// Package test provides shared test stubs for the connectivity
// packages.
package test

import (
	"time"

	"github.com/hiveeyes/lorawan-device-client/internal/radio"
	"github.com/hiveeyes/lorawan-device-client/internal/status"
)

// JoinCall records one call to Radio.Join.
type JoinCall struct {
	Mode    radio.JoinMode
	Auth    radio.AuthTuple
	Timeout time.Duration
}

// Radio is a scriptable radio capability stub.
type Radio struct {
	// JoinError is returned by Join when set.
	JoinError error

	// JoinedAfter makes HasJoined return true from the n-th call on.
	// Zero means the radio never joins.
	JoinedAfter int

	// SocketError is returned by OpenSocket when set.
	SocketError error

	// Socket is handed out by OpenSocket. A default one is created
	// when nil.
	Socket *Socket

	JoinCalls       []JoinCall
	HasJoinedCalls  int
	OpenSocketCalls int
}

// Join implements radio.Radio.
func (r *Radio) Join(mode radio.JoinMode, auth radio.AuthTuple, timeout time.Duration) error {
	r.JoinCalls = append(r.JoinCalls, JoinCall{Mode: mode, Auth: auth, Timeout: timeout})
	return r.JoinError
}

// HasJoined implements radio.Radio.
func (r *Radio) HasJoined() bool {
	r.HasJoinedCalls++
	return r.JoinedAfter > 0 && r.HasJoinedCalls >= r.JoinedAfter
}

// OpenSocket implements radio.Radio.
func (r *Radio) OpenSocket() (radio.Socket, error) {
	r.OpenSocketCalls++
	if r.SocketError != nil {
		return nil, r.SocketError
	}
	if r.Socket == nil {
		r.Socket = &Socket{}
	}
	return r.Socket, nil
}

// RxFrame is one queued downlink frame.
type RxFrame struct {
	Data []byte
	Port uint8
}

// Socket is a scriptable socket stub.
type Socket struct {
	// Echo queues every sent payload as a downlink frame on port
	// EchoPort.
	Echo     bool
	EchoPort uint8

	// AcceptMax bounds the bytes accepted per Send. Zero accepts
	// everything.
	AcceptMax int

	SendError error
	RecvError error

	DataRate    int
	Blocking    bool
	BlockingSet bool
	Closed      bool

	Sent    [][]byte
	RxQueue []RxFrame
}

// SetDataRate implements radio.Socket.
func (s *Socket) SetDataRate(dr int) error {
	s.DataRate = dr
	return nil
}

// SetBlocking implements radio.Socket.
func (s *Socket) SetBlocking(blocking bool) error {
	s.Blocking = blocking
	s.BlockingSet = true
	return nil
}

// Send implements radio.Socket.
func (s *Socket) Send(p []byte) (int, error) {
	if s.SendError != nil {
		return 0, s.SendError
	}

	n := len(p)
	if s.AcceptMax > 0 && n > s.AcceptMax {
		n = s.AcceptMax
	}

	accepted := append([]byte{}, p[:n]...)
	s.Sent = append(s.Sent, accepted)

	if s.Echo && n > 0 {
		s.RxQueue = append(s.RxQueue, RxFrame{Data: accepted, Port: s.EchoPort})
	}

	return n, nil
}

// RecvFrom implements radio.Socket.
func (s *Socket) RecvFrom(max int) ([]byte, uint8, error) {
	if s.RecvError != nil {
		return nil, 0, s.RecvError
	}

	if len(s.RxQueue) == 0 {
		return []byte{}, 0, nil
	}

	frame := s.RxQueue[0]
	s.RxQueue = s.RxQueue[1:]

	if len(frame.Data) > max {
		frame.Data = frame.Data[:max]
	}

	return frame.Data, frame.Port, nil
}

// Close implements radio.Socket.
func (s *Socket) Close() error {
	s.Closed = true
	return nil
}

// EmitterRecorder records emitted status events in order.
type EmitterRecorder struct {
	Events []status.Event
}

// Emit implements status.Emitter.
func (e *EmitterRecorder) Emit(ev status.Event) {
	e.Events = append(e.Events, ev)
}

// Count returns the number of recorded events of the given kind.
func (e *EmitterRecorder) Count(ev status.Event) int {
	var n int
	for _, got := range e.Events {
		if got == ev {
			n++
		}
	}
	return n
}
