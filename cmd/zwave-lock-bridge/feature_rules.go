//go:build !no_rules

package main

import (
	"log/slog"

	"zwave-lock-bridge/internal/driver"
	"zwave-lock-bridge/internal/rules"
)

type rulesStopper struct {
	engine *rules.Engine
}

func (r *rulesStopper) Stop() {
	if r.engine != nil {
		r.engine.Stop()
	}
}

func initRules(drv *driver.Driver, cfg *Config, logger *slog.Logger) *rulesStopper {
	engine := rules.NewEngine(drv, cfg.ScriptsDir, logger)
	if err := engine.Start(); err != nil {
		logger.Error("rules engine", "err", err)
		return &rulesStopper{}
	}
	return &rulesStopper{engine: engine}
}
