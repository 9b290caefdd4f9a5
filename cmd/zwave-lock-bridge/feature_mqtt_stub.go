//go:build no_mqtt

package main

import (
	"log/slog"

	"zwave-lock-bridge/internal/driver"
)

type mqttStopper struct{}

func (m *mqttStopper) Stop() {}

func initMQTT(_ *driver.Driver, _ *Config, _ *slog.Logger) *mqttStopper {
	return &mqttStopper{}
}
