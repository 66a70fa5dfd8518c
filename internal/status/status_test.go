package status

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEventString(t *testing.T) {
	assert := require.New(t)

	tests := map[Event]string{
		EventJoinAttempt:  "join_attempt",
		EventJoined:       "joined",
		EventJoinFailed:   "join_failed",
		EventSocketOpened: "socket_opened",
		EventSend:         "send",
		EventReceive:      "receive",
		Event(99):         "unknown",
	}

	for event, expected := range tests {
		assert.Equal(expected, event.String())
	}
}

func TestNopEmitter(t *testing.T) {
	// must accept any event without side effects
	var e Emitter = Nop{}
	e.Emit(EventJoined)
	e.Emit(Event(99))
}
