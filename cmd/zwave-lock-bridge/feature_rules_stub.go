//go:build no_rules

package main

import (
	"log/slog"

	"zwave-lock-bridge/internal/driver"
)

type rulesStopper struct{}

func (r *rulesStopper) Stop() {}

func initRules(_ *driver.Driver, _ *Config, _ *slog.Logger) *rulesStopper {
	return &rulesStopper{}
}
