package cmd

import (
	"os"
	"text/template"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hiveeyes/lorawan-device-client/internal/config"
)

const configTemplate = `[general]
# Log level
#
# debug=5, info=4, warning=3, error=2, fatal=1, panic=0
log_level={{ .General.LogLevel }}

# Log to syslog.
#
# When set to true, log messages are being written to syslog.
log_to_syslog={{ .General.LogToSyslog }}


# Device settings.
[device]
# Regulatory region / frequency plan (e.g. EU868, US915).
#
# This value is fixed for the lifetime of the process.
region="{{ .Device.Region }}"

# OTAA application EUI (JoinEUI), hex encoded (8 bytes).
application_eui="{{ .Device.ApplicationEUI }}"

# OTAA application key, hex encoded (16 bytes).
application_key="{{ .Device.ApplicationKey }}"

# OTAA device EUI, hex encoded (8 bytes).
#
# Optional. When left empty, the join request uses the two-identifier
# variant (application EUI + application key); when set, the
# three-identifier variant.
device_eui="{{ .Device.DeviceEUI }}"

# Uplink datarate.
#
# Applied once at socket creation and immutable afterwards.
data_rate={{ .Device.DataRate }}

# Join attempt budget.
#
# Bounds the outer wait-for-join loop. When the budget is exhausted
# without a join accept, the start sequence fails and the device is
# expected to restart.
join_attempts={{ .Device.JoinAttempts }}

# Join poll interval and per-attempt timeout.
#
# Within one attempt the join status is queried every poll_interval;
# each attempt is bounded by poll_timeout. The worst-case join wait is
# join_attempts * (poll_timeout + poll_interval).
poll_interval="{{ .Device.PollInterval }}"
poll_timeout="{{ .Device.PollTimeout }}"

# Settle delay between the join accept and the socket creation.
settle_delay="{{ .Device.SettleDelay }}"

# Fixed status-indicator delay after each send and receive.
signal_delay="{{ .Device.SignalDelay }}"

# Uplink interval of the telemetry loop.
uplink_interval="{{ .Device.UplinkInterval }}"

# Maximum downlink bytes read per receive.
receive_max={{ .Device.ReceiveMax }}


# Radio capability settings.
[radio]
# Backend type.
#
# Set to "mqtt" for the virtual radio backend, which emulates the radio
# stack over a MQTT broker for bench and integration runs without LoRa
# hardware attached.
backend="{{ .Radio.Backend }}"

  # MQTT virtual radio backend.
  [radio.mqtt]
  server="{{ .Radio.MQTT.Server }}"
  username="{{ .Radio.MQTT.Username }}"
  password="{{ .Radio.MQTT.Password }}"
  qos={{ .Radio.MQTT.QOS }}
  clean_session={{ .Radio.MQTT.CleanSession }}

  # Client ID. A random one is generated when left empty.
  client_id="{{ .Radio.MQTT.ClientID }}"

  max_reconnect_interval="{{ .Radio.MQTT.MaxReconnectInterval }}"

  # Topic templates. {{ "{{ .DevEUI }}" }} renders to the device EUI,
  # falling back to the application EUI when no device EUI is set.
  join_topic_template="{{ .Radio.MQTT.JoinTopicTemplate }}"
  accept_topic_template="{{ .Radio.MQTT.AcceptTopicTemplate }}"
  uplink_topic_template="{{ .Radio.MQTT.UplinkTopicTemplate }}"
  downlink_topic_template="{{ .Radio.MQTT.DownlinkTopicTemplate }}"
`

var configCmd = &cobra.Command{
	Use:   "configfile",
	Short: "Print the lorawan-device-client configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		t := template.Must(template.New("config").Parse(configTemplate))
		err := t.Execute(os.Stdout, &config.C)
		if err != nil {
			return errors.Wrap(err, "execute config template error")
		}
		return nil
	},
}
