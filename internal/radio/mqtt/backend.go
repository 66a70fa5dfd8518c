// Package mqtt implements a virtual radio backend on top of an MQTT
// broker. It emulates the radio capability so the connectivity stack
// can run on a bench or in integration setups without LoRa hardware
// attached: join requests and uplinks are published as JSON frames,
// join accepts and downlinks arrive on subscriptions.
package mqtt

import (
	"bytes"
	"encoding/json"
	"sync"
	"text/template"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/hiveeyes/lorawan-device-client/internal/radio"
)

// downlinkBufferSize bounds the number of buffered downlink frames;
// further frames are dropped.
const downlinkBufferSize = 8

// Config holds the MQTT radio backend configuration.
type Config struct {
	Server               string
	Username             string
	Password             string
	QOS                  uint8
	CleanSession         bool
	ClientID             string
	MaxReconnectInterval time.Duration

	JoinTopicTemplate     string
	AcceptTopicTemplate   string
	UplinkTopicTemplate   string
	DownlinkTopicTemplate string

	// DeviceID renders into the topic templates as {{ .DevEUI }}.
	DeviceID string
}

type topics struct {
	join     string
	accept   string
	uplink   string
	downlink string
}

// renderTopics renders the configured topic templates for the given
// device.
func renderTopics(c Config) (topics, error) {
	var t topics
	data := struct{ DevEUI string }{c.DeviceID}

	items := []struct {
		name string
		tmpl string
		out  *string
	}{
		{"join", c.JoinTopicTemplate, &t.join},
		{"accept", c.AcceptTopicTemplate, &t.accept},
		{"uplink", c.UplinkTopicTemplate, &t.uplink},
		{"downlink", c.DownlinkTopicTemplate, &t.downlink},
	}

	for _, item := range items {
		tmpl, err := template.New(item.name).Parse(item.tmpl)
		if err != nil {
			return topics{}, errors.Wrapf(err, "radio/mqtt: parse %s topic template error", item.name)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return topics{}, errors.Wrapf(err, "radio/mqtt: execute %s topic template error", item.name)
		}
		*item.out = buf.String()
	}

	return t, nil
}

// joinFrame announces a join request on the join topic. The AppKey is
// never published.
type joinFrame struct {
	JoinEUI string `json:"joinEUI"`
	DevEUI  string `json:"devEUI,omitempty"`
}

// dataFrame carries application payload bytes in either direction.
// The payload marshals to base64.
type dataFrame struct {
	FPort uint8  `json:"fPort"`
	Data  []byte `json:"data"`
}

// Backend implements radio.Radio over a MQTT connection.
type Backend struct {
	sync.RWMutex

	conn     paho.Client
	config   Config
	topics   topics
	joined   bool
	sockOpen bool
	downChan chan dataFrame
}

// NewBackend creates a new Backend and connects to the broker. Like
// the radio hardware it stands in for, it keeps retrying the initial
// connect until it succeeds.
func NewBackend(c Config) (*Backend, error) {
	t, err := renderTopics(c)
	if err != nil {
		return nil, err
	}

	if c.ClientID == "" {
		id, err := uuid.NewV4()
		if err != nil {
			return nil, errors.Wrap(err, "radio/mqtt: new client id error")
		}
		c.ClientID = "lorawan-device-" + id.String()
	}

	b := Backend{
		config:   c,
		topics:   t,
		downChan: make(chan dataFrame, downlinkBufferSize),
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(c.Server)
	opts.SetUsername(c.Username)
	opts.SetPassword(c.Password)
	opts.SetCleanSession(c.CleanSession)
	opts.SetClientID(c.ClientID)
	opts.SetMaxReconnectInterval(c.MaxReconnectInterval)
	opts.SetOnConnectHandler(b.onConnected)
	opts.SetConnectionLostHandler(b.onConnectionLost)

	log.WithField("server", c.Server).Info("radio/mqtt: connecting to mqtt broker")
	b.conn = paho.NewClient(opts)
	for {
		if token := b.conn.Connect(); token.Wait() && token.Error() != nil {
			log.Errorf("radio/mqtt: connecting to mqtt broker failed, will retry in 2s: %s", token.Error())
			time.Sleep(2 * time.Second)
		} else {
			break
		}
	}

	return &b, nil
}

// Close terminates the broker connection.
func (b *Backend) Close() error {
	b.conn.Disconnect(250)
	return nil
}

// Join implements radio.Radio.
func (b *Backend) Join(mode radio.JoinMode, auth radio.AuthTuple, timeout time.Duration) error {
	if mode != radio.JoinModeOTAA {
		return errors.Errorf("radio/mqtt: unsupported join mode: %d", mode)
	}

	frame := joinFrame{
		JoinEUI: auth.JoinEUI.String(),
	}
	if auth.DevEUI != nil {
		frame.DevEUI = auth.DevEUI.String()
	}

	payload, err := json.Marshal(frame)
	if err != nil {
		return errors.Wrap(err, "radio/mqtt: marshal join frame error")
	}

	log.WithFields(log.Fields{
		"topic":   b.topics.join,
		"qos":     b.config.QOS,
		"dev_eui": frame.DevEUI,
	}).Info("radio/mqtt: publishing join request")

	token := b.conn.Publish(b.topics.join, b.config.QOS, false, payload)
	if timeout > 0 {
		if !token.WaitTimeout(timeout) {
			return errors.New("radio/mqtt: join publish timeout")
		}
	} else {
		token.Wait()
	}

	return errors.Wrap(token.Error(), "radio/mqtt: join publish error")
}

// HasJoined implements radio.Radio. It reports true once a join accept
// was seen on the accept topic.
func (b *Backend) HasJoined() bool {
	b.RLock()
	defer b.RUnlock()
	return b.joined
}

// OpenSocket implements radio.Radio. Only a single socket exists per
// backend.
func (b *Backend) OpenSocket() (radio.Socket, error) {
	b.Lock()
	defer b.Unlock()

	if !b.joined {
		return nil, errors.New("radio/mqtt: join not completed")
	}
	if b.sockOpen {
		return nil, errors.New("radio/mqtt: socket already open")
	}

	b.sockOpen = true
	return &socket{backend: b, blocking: true}, nil
}

func (b *Backend) onConnected(c paho.Client) {
	log.Info("radio/mqtt: connected to mqtt broker")

	for _, topic := range []string{b.topics.accept, b.topics.downlink} {
		log.WithFields(log.Fields{
			"topic": topic,
			"qos":   b.config.QOS,
		}).Info("radio/mqtt: subscribing to topic")
		if token := c.Subscribe(topic, b.config.QOS, b.handleMessage); token.Wait() && token.Error() != nil {
			log.WithField("topic", topic).Errorf("radio/mqtt: subscribe error: %s", token.Error())
		}
	}
}

func (b *Backend) onConnectionLost(c paho.Client, err error) {
	log.Errorf("radio/mqtt: mqtt connection error: %s", err)
}

func (b *Backend) handleMessage(c paho.Client, msg paho.Message) {
	switch msg.Topic() {
	case b.topics.accept:
		b.handleJoinAccept(msg)
	case b.topics.downlink:
		b.handleDownlink(msg)
	default:
		log.WithField("topic", msg.Topic()).Warning("radio/mqtt: message on unexpected topic")
	}
}

func (b *Backend) handleJoinAccept(msg paho.Message) {
	b.Lock()
	defer b.Unlock()

	if !b.joined {
		log.WithField("topic", msg.Topic()).Info("radio/mqtt: join accept received")
	}
	b.joined = true
}

func (b *Backend) handleDownlink(msg paho.Message) {
	var frame dataFrame
	if err := json.Unmarshal(msg.Payload(), &frame); err != nil {
		log.WithField("data_base64", msg.Payload()).Errorf("radio/mqtt: unmarshal downlink frame error: %s", err)
		return
	}

	select {
	case b.downChan <- frame:
	default:
		log.Warning("radio/mqtt: downlink buffer full, frame dropped")
	}
}

// socket implements radio.Socket on top of the backend connection.
type socket struct {
	backend  *Backend
	dataRate int
	blocking bool
}

// SetDataRate implements radio.Socket. The virtual radio records the
// datarate for the uplink frames but does not enforce payload size
// limits.
func (s *socket) SetDataRate(dr int) error {
	s.dataRate = dr
	return nil
}

// SetBlocking implements radio.Socket.
func (s *socket) SetBlocking(blocking bool) error {
	s.blocking = blocking
	return nil
}

// Send implements radio.Socket.
func (s *socket) Send(p []byte) (int, error) {
	frame := dataFrame{FPort: 1, Data: p}
	payload, err := json.Marshal(frame)
	if err != nil {
		return 0, errors.Wrap(err, "radio/mqtt: marshal uplink frame error")
	}

	token := s.backend.conn.Publish(s.backend.topics.uplink, s.backend.config.QOS, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return 0, errors.Wrap(err, "radio/mqtt: uplink publish error")
	}

	return len(p), nil
}

// RecvFrom implements radio.Socket. Bytes beyond max are discarded, as
// on a datagram socket.
func (s *socket) RecvFrom(max int) ([]byte, uint8, error) {
	var frame dataFrame

	if s.blocking {
		frame = <-s.backend.downChan
	} else {
		select {
		case frame = <-s.backend.downChan:
		default:
			return []byte{}, 0, nil
		}
	}

	if len(frame.Data) > max {
		frame.Data = frame.Data[:max]
	}

	return frame.Data, frame.FPort, nil
}

// Close implements radio.Socket.
func (s *socket) Close() error {
	s.backend.Lock()
	defer s.backend.Unlock()
	s.backend.sockOpen = false
	return nil
}
