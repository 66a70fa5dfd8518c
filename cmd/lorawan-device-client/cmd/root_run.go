package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hiveeyes/lorawan-device-client/internal/config"
	"github.com/hiveeyes/lorawan-device-client/internal/connectivity"
	"github.com/hiveeyes/lorawan-device-client/internal/join"
	"github.com/hiveeyes/lorawan-device-client/internal/radio"
	"github.com/hiveeyes/lorawan-device-client/internal/radio/mqtt"
	"github.com/hiveeyes/lorawan-device-client/internal/status"
)

var (
	radioBackend radio.Radio
	manager      *connectivity.Manager
)

func run(cmd *cobra.Command, args []string) error {
	tasks := []func() error{
		setLogLevel,
		setSyslog,
		printStartMessage,
		setupRadioBackend,
		setupConnectivity,
	}

	for _, t := range tasks {
		if err := t(); err != nil {
			log.Fatal(err)
		}
	}

	// A failed join or socket creation is terminal for this process
	// instance; the supported recovery is a device restart, never an
	// in-process retry around the start sequence.
	if err := manager.Start(); err != nil {
		log.WithError(err).WithField("state", manager.State()).Fatal("connectivity start failed")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(config.C.Device.UplinkInterval)
	defer ticker.Stop()

	for {
		select {
		case s := <-sigChan:
			log.WithField("signal", s).Info("signal received, stopping lorawan-device-client")
			return nil
		case <-ticker.C:
			uplink()
		}
	}
}

// uplink sends one telemetry payload and drains any pending downlink.
// The payload bytes are opaque to the connectivity core; the producing
// sensor collaborator is external and stubbed with a heartbeat here.
func uplink() {
	n, err := manager.Send([]byte("\x01"))
	if err != nil {
		log.WithError(err).Error("uplink send error")
		return
	}
	log.WithField("bytes", n).Debug("uplink sent")

	b, port, err := manager.Receive(config.C.Device.ReceiveMax)
	if err != nil {
		log.WithError(err).Error("downlink receive error")
		return
	}
	if len(b) != 0 {
		log.WithFields(log.Fields{
			"bytes": len(b),
			"port":  port,
		}).Info("downlink received")
	}
}

func setLogLevel() error {
	log.SetLevel(log.Level(uint8(config.C.General.LogLevel)))
	return nil
}

func printStartMessage() error {
	log.WithFields(log.Fields{
		"version": version,
		"region":  config.C.Device.Region,
	}).Info("starting lorawan-device-client")
	return nil
}

func setupRadioBackend() error {
	deviceID := config.C.Device.DeviceEUI
	if deviceID == "" {
		deviceID = config.C.Device.ApplicationEUI
	}

	switch config.C.Radio.Backend {
	case "mqtt":
		b, err := mqtt.NewBackend(mqtt.Config{
			Server:               config.C.Radio.MQTT.Server,
			Username:             config.C.Radio.MQTT.Username,
			Password:             config.C.Radio.MQTT.Password,
			QOS:                  config.C.Radio.MQTT.QOS,
			CleanSession:         config.C.Radio.MQTT.CleanSession,
			ClientID:             config.C.Radio.MQTT.ClientID,
			MaxReconnectInterval: config.C.Radio.MQTT.MaxReconnectInterval,

			JoinTopicTemplate:     config.C.Radio.MQTT.JoinTopicTemplate,
			AcceptTopicTemplate:   config.C.Radio.MQTT.AcceptTopicTemplate,
			UplinkTopicTemplate:   config.C.Radio.MQTT.UplinkTopicTemplate,
			DownlinkTopicTemplate: config.C.Radio.MQTT.DownlinkTopicTemplate,

			DeviceID: deviceID,
		})
		if err != nil {
			return errors.Wrap(err, "setup mqtt radio backend error")
		}
		radioBackend = b
	default:
		return errors.Errorf("unknown radio backend type: %s", config.C.Radio.Backend)
	}

	return nil
}

func setupConnectivity() error {
	creds, err := join.DecodeCredentials(
		config.C.Device.ApplicationEUI,
		config.C.Device.ApplicationKey,
		config.C.Device.DeviceEUI,
	)
	if err != nil {
		return errors.Wrap(err, "decode credentials error")
	}

	manager = connectivity.NewManager(connectivity.Config{
		Radio:       radioBackend,
		Emitter:     status.Logger{},
		Credentials: creds,
		Region:      config.C.Device.Region,

		DataRate:     config.C.Device.DataRate,
		JoinAttempts: config.C.Device.JoinAttempts,
		PollInterval: config.C.Device.PollInterval,
		PollTimeout:  config.C.Device.PollTimeout,
		SettleDelay:  config.C.Device.SettleDelay,
		SignalDelay:  config.C.Device.SignalDelay,
	})

	return nil
}
