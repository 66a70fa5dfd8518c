// Package radio defines the capability boundary to the LoRaWAN radio
// stack. The connectivity core never talks to hardware directly and
// never looks the radio up through package state; a Radio is always
// injected at construction time.
package radio

import (
	"time"

	"github.com/brocaar/lorawan"
)

// JoinMode selects the activation procedure.
type JoinMode int

// JoinModeOTAA is over-the-air activation. ABP is not supported by
// this client.
const JoinModeOTAA JoinMode = iota

// AuthTuple carries the OTAA join identifiers. A nil DevEUI selects
// the two-identifier join variant (JoinEUI + AppKey); a non-nil DevEUI
// selects the three-identifier variant.
type AuthTuple struct {
	DevEUI  *lorawan.EUI64
	JoinEUI lorawan.EUI64
	AppKey  lorawan.AES128Key
}

// Radio exposes the join and socket operations of the underlying radio
// stack.
type Radio interface {
	// Join issues a join request. A zero timeout leaves the timeout to
	// the radio stack.
	Join(mode JoinMode, auth AuthTuple, timeout time.Duration) error

	// HasJoined reports whether the network has accepted the join
	// request.
	HasJoined() bool

	// OpenSocket allocates the raw application-data socket. It must be
	// rejected by implementations when the join has not completed.
	OpenSocket() (Socket, error)
}

// Socket is a raw LoRa application-data channel.
type Socket interface {
	// SetDataRate applies the uplink datarate. It is called once,
	// directly after socket creation.
	SetDataRate(dr int) error

	// SetBlocking switches the socket between blocking and non-blocking
	// mode.
	SetBlocking(blocking bool) error

	// Send queues p for uplink and returns the number of bytes the
	// radio accepted. On a non-blocking socket a short count, including
	// zero, is a valid outcome and not an error.
	Send(p []byte) (int, error)

	// RecvFrom reads up to max bytes of pending downlink data and the
	// FPort it arrived on. On a non-blocking socket an empty payload
	// means no data is pending.
	RecvFrom(max int) ([]byte, uint8, error)

	Close() error
}
