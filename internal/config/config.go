package config

import (
	"time"

	"github.com/brocaar/lorawan/band"
)

// Version defines the lorawan-device-client version.
var Version string

// Config defines the configuration structure.
type Config struct {
	General struct {
		LogLevel    int  `mapstructure:"log_level"`
		LogToSyslog bool `mapstructure:"log_to_syslog"`
	} `mapstructure:"general"`

	Device struct {
		// Region selects the regulatory frequency plan. Fixed for the
		// lifetime of the process.
		Region band.Name `mapstructure:"region"`

		// OTAA identifiers, hex encoded. DeviceEUI is optional; when
		// empty the two-identifier join variant is used.
		ApplicationEUI string `mapstructure:"application_eui"`
		ApplicationKey string `mapstructure:"application_key"`
		DeviceEUI      string `mapstructure:"device_eui"`

		// DataRate is applied once at socket creation.
		DataRate int `mapstructure:"data_rate"`

		// JoinAttempts bounds the outer wait-for-join loop.
		JoinAttempts int `mapstructure:"join_attempts"`

		// PollInterval spaces the join-status queries within one
		// attempt, PollTimeout bounds each attempt. The worst-case join
		// wait is JoinAttempts * (PollTimeout + PollInterval).
		PollInterval time.Duration `mapstructure:"poll_interval"`
		PollTimeout  time.Duration `mapstructure:"poll_timeout"`

		// SettleDelay is slept between join completion and socket
		// creation to let the radio stack settle.
		SettleDelay time.Duration `mapstructure:"settle_delay"`

		// SignalDelay is the fixed indicator delay after each send and
		// receive.
		SignalDelay time.Duration `mapstructure:"signal_delay"`

		UplinkInterval time.Duration `mapstructure:"uplink_interval"`
		ReceiveMax     int           `mapstructure:"receive_max"`
	} `mapstructure:"device"`

	Radio struct {
		// Backend selects the radio capability implementation.
		Backend string `mapstructure:"backend"`

		MQTT struct {
			Server               string        `mapstructure:"server"`
			Username             string        `mapstructure:"username"`
			Password             string        `mapstructure:"password"`
			QOS                  uint8         `mapstructure:"qos"`
			CleanSession         bool          `mapstructure:"clean_session"`
			ClientID             string        `mapstructure:"client_id"`
			MaxReconnectInterval time.Duration `mapstructure:"max_reconnect_interval"`

			JoinTopicTemplate     string `mapstructure:"join_topic_template"`
			AcceptTopicTemplate   string `mapstructure:"accept_topic_template"`
			UplinkTopicTemplate   string `mapstructure:"uplink_topic_template"`
			DownlinkTopicTemplate string `mapstructure:"downlink_topic_template"`
		} `mapstructure:"mqtt"`
	} `mapstructure:"radio"`
}

// C holds the global configuration.
var C Config
