// Package join implements the OTAA join coordinator: it issues the
// join request and waits for the network to accept it, bounded by an
// attempt budget.
package join

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/brocaar/lorawan"
	"github.com/brocaar/lorawan/band"

	"github.com/hiveeyes/lorawan-device-client/internal/radio"
	"github.com/hiveeyes/lorawan-device-client/internal/status"
)

// Errors returned by the join coordinator.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRadioUnavailable   = errors.New("radio unavailable")
)

// Credentials holds the decoded OTAA identifiers. A nil DevEUI selects
// the two-identifier join variant.
type Credentials struct {
	JoinEUI lorawan.EUI64
	AppKey  lorawan.AES128Key
	DevEUI  *lorawan.EUI64
}

// DecodeCredentials decodes the hex-encoded configuration values into
// fixed-length identifiers. devEUI may be empty. Malformed or
// wrong-length input fails with ErrInvalidCredentials before anything
// is handed to the radio.
func DecodeCredentials(joinEUI, appKey, devEUI string) (Credentials, error) {
	var c Credentials

	if err := c.JoinEUI.UnmarshalText([]byte(joinEUI)); err != nil {
		return Credentials{}, errors.Wrap(ErrInvalidCredentials, "decode application_eui error")
	}

	if err := c.AppKey.UnmarshalText([]byte(appKey)); err != nil {
		return Credentials{}, errors.Wrap(ErrInvalidCredentials, "decode application_key error")
	}

	if devEUI != "" {
		var eui lorawan.EUI64
		if err := eui.UnmarshalText([]byte(devEUI)); err != nil {
			return Credentials{}, errors.Wrap(ErrInvalidCredentials, "decode device_eui error")
		}
		c.DevEUI = &eui
	}

	return c, nil
}

// Coordinator drives the OTAA handshake against an injected radio.
type Coordinator struct {
	radio        radio.Radio
	emitter      status.Emitter
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// NewCoordinator creates a Coordinator. pollInterval spaces the
// join-status queries, pollTimeout bounds each outer attempt of
// WaitForJoin.
func NewCoordinator(r radio.Radio, e status.Emitter, pollInterval, pollTimeout time.Duration) *Coordinator {
	if e == nil {
		e = status.Nop{}
	}

	return &Coordinator{
		radio:        r,
		emitter:      e,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
	}
}

// Begin validates the region and issues the join request. The auth
// tuple variant follows from the presence of a DevEUI in the
// credentials.
func (c *Coordinator) Begin(creds Credentials, region band.Name) error {
	if _, err := band.GetConfig(region, false, lorawan.DwellTimeNoLimit); err != nil {
		return errors.Wrap(err, "get band config error")
	}

	auth := radio.AuthTuple{
		DevEUI:  creds.DevEUI,
		JoinEUI: creds.JoinEUI,
		AppKey:  creds.AppKey,
	}

	if err := c.radio.Join(radio.JoinModeOTAA, auth, 0); err != nil {
		return errors.Wrapf(ErrRadioUnavailable, "join request error: %s", err)
	}

	log.WithFields(log.Fields{
		"region":      region,
		"join_eui":    creds.JoinEUI,
		"dev_eui_set": creds.DevEUI != nil,
	}).Info("join: join request issued")

	return nil
}

// WaitForJoin polls the radio join status for at most attempts outer
// iterations and returns true as soon as a joined status is observed.
// Each iteration is bounded by the poll timeout, so the total wait
// never exceeds attempts * (poll timeout + poll interval). Exhausting
// the budget returns false, never an error; escalation is the
// caller's decision.
func (c *Coordinator) WaitForJoin(attempts int) (bool, error) {
	for i := 0; i < attempts; i++ {
		c.emitter.Emit(status.EventJoinAttempt)

		deadline := time.Now().Add(c.pollTimeout)
		for {
			if c.radio.HasJoined() {
				c.emitter.Emit(status.EventJoined)
				log.WithField("attempt", i+1).Info("join: network joined")
				return true, nil
			}

			if !time.Now().Before(deadline) {
				break
			}

			log.WithFields(log.Fields{
				"attempt":      i + 1,
				"max_attempts": attempts,
			}).Info("join: not joined yet")
			time.Sleep(c.pollInterval)
		}
	}

	c.emitter.Emit(status.EventJoinFailed)
	log.WithField("max_attempts", attempts).Error("join: no join accept within attempt budget")

	return false, nil
}
