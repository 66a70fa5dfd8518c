package mqtt

import (
	"encoding/json"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

func TestRenderTopics(t *testing.T) {
	assert := require.New(t)

	c := Config{
		JoinTopicTemplate:     "device/{{ .DevEUI }}/event/join",
		AcceptTopicTemplate:   "device/{{ .DevEUI }}/command/accept",
		UplinkTopicTemplate:   "device/{{ .DevEUI }}/event/up",
		DownlinkTopicTemplate: "device/{{ .DevEUI }}/command/down",
		DeviceID:              "aa11000000000000",
	}

	topics, err := renderTopics(c)
	assert.NoError(err)
	assert.Equal("device/aa11000000000000/event/join", topics.join)
	assert.Equal("device/aa11000000000000/command/accept", topics.accept)
	assert.Equal("device/aa11000000000000/event/up", topics.uplink)
	assert.Equal("device/aa11000000000000/command/down", topics.downlink)
}

func TestRenderTopicsInvalidTemplate(t *testing.T) {
	assert := require.New(t)

	c := Config{
		JoinTopicTemplate: "device/{{ .DevEUI /event/join",
	}

	_, err := renderTopics(c)
	assert.Error(err)
}

func TestJoinFrameOmitsDevEUIAndKey(t *testing.T) {
	assert := require.New(t)

	b, err := json.Marshal(joinFrame{JoinEUI: "70b3d57ed0000000"})
	assert.NoError(err)

	// the two-identifier variant publishes no devEUI, and the AppKey
	// never leaves the device
	assert.JSONEq(`{"joinEUI": "70b3d57ed0000000"}`, string(b))
}
