package cmd

import (
	"bytes"
	"io/ioutil"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hiveeyes/lorawan-device-client/internal/config"
)

var (
	cfgFile string
	version string
)

var rootCmd = &cobra.Command{
	Use:   "lorawan-device-client",
	Short: "LoRaWAN device connectivity client",
	Long: `lorawan-device-client manages the OTAA session of a battery-powered
telemetry device: it joins the network under a bounded attempt budget and
exchanges application payloads over a single non-blocking socket.`,
	RunE: run,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to configuration file (optional)")
	rootCmd.PersistentFlags().Int("log-level", 4, "debug=5, info=4, error=2, fatal=1, panic=0")

	viper.BindPFlag("general.log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	// default values
	viper.SetDefault("device.region", "EU868")
	viper.SetDefault("device.data_rate", 5)
	viper.SetDefault("device.join_attempts", 42)
	viper.SetDefault("device.poll_interval", 2500*time.Millisecond)
	viper.SetDefault("device.poll_timeout", 10*time.Second)
	viper.SetDefault("device.settle_delay", 2500*time.Millisecond)
	viper.SetDefault("device.signal_delay", 100*time.Millisecond)
	viper.SetDefault("device.uplink_interval", time.Minute)
	viper.SetDefault("device.receive_max", 256)

	viper.SetDefault("radio.backend", "mqtt")
	viper.SetDefault("radio.mqtt.server", "tcp://localhost:1883")
	viper.SetDefault("radio.mqtt.clean_session", true)
	viper.SetDefault("radio.mqtt.max_reconnect_interval", time.Minute)
	viper.SetDefault("radio.mqtt.join_topic_template", "device/{{ .DevEUI }}/event/join")
	viper.SetDefault("radio.mqtt.accept_topic_template", "device/{{ .DevEUI }}/command/accept")
	viper.SetDefault("radio.mqtt.uplink_topic_template", "device/{{ .DevEUI }}/event/up")
	viper.SetDefault("radio.mqtt.downlink_topic_template", "device/{{ .DevEUI }}/command/down")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

// Execute executes the root command.
func Execute(v string) {
	version = v

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func initConfig() {
	config.Version = version

	if cfgFile != "" {
		b, err := ioutil.ReadFile(cfgFile)
		if err != nil {
			log.WithError(err).WithField("config", cfgFile).Fatal("error loading config file")
		}
		viper.SetConfigType("toml")
		if err := viper.ReadConfig(bytes.NewBuffer(b)); err != nil {
			log.WithError(err).WithField("config", cfgFile).Fatal("error loading config file")
		}
	} else {
		viper.SetConfigName("lorawan-device-client")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/lorawan-device-client")
		viper.AddConfigPath("/etc/lorawan-device-client")
		if err := viper.ReadInConfig(); err != nil {
			switch err.(type) {
			case viper.ConfigFileNotFoundError:
				log.Warning("No configuration file found, using defaults.")
			default:
				log.WithError(err).Fatal("read configuration file error")
			}
		}
	}

	viperBindEnvs(config.C)

	viperHooks := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)

	if err := viper.Unmarshal(&config.C, viper.DecodeHook(viperHooks)); err != nil {
		log.WithError(err).Fatal("unmarshal config error")
	}
}

func viperBindEnvs(iface interface{}, parts ...string) {
	ifv := reflect.ValueOf(iface)
	ift := reflect.TypeOf(iface)
	for i := 0; i < ift.NumField(); i++ {
		v := ifv.Field(i)
		t := ift.Field(i)
		tv, ok := t.Tag.Lookup("mapstructure")
		if !ok {
			tv = strings.ToLower(t.Name)
		}
		if tv == "-" {
			continue
		}

		switch v.Kind() {
		case reflect.Struct:
			viperBindEnvs(v.Interface(), append(parts, tv)...)
		default:
			// Bash doesn't allow env variable names with a dot so
			// bind the double underscore version.
			keyDot := strings.Join(append(parts, tv), ".")
			keyUnderscore := strings.Join(append(parts, tv), "__")
			viper.BindEnv(keyDot, strings.ToUpper(keyUnderscore))
		}
	}
}
