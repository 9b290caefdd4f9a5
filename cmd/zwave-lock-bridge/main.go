package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"zwave-lock-bridge/internal/driver"
	"zwave-lock-bridge/internal/lock"
	"zwave-lock-bridge/internal/store"
	"zwave-lock-bridge/internal/transport"
	"zwave-lock-bridge/internal/web"
	"zwave-lock-bridge/internal/zwave"
	"zwave-lock-bridge/internal/zwave/classes"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

type Config struct {
	Serial struct {
		Port string `yaml:"port"`
		Baud int    `yaml:"baud"`
	} `yaml:"serial"`
	Device struct {
		NodeID      uint8            `yaml:"node_id"`
		Name        string           `yaml:"name"`
		Fingerprint lock.Fingerprint `yaml:"fingerprint"`
	} `yaml:"device"`
	// Settings are the lock preferences pushed to the device on startup.
	Settings lock.DeviceConfiguration `yaml:"settings"`
	Web      struct {
		Listen         string   `yaml:"listen"`
		APIKey         string   `yaml:"api_key"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"web"`
	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`
	MQTT struct {
		Enabled     bool   `yaml:"enabled"`
		Broker      string `yaml:"broker"`
		Username    string `yaml:"username"`
		Password    string `yaml:"password"`
		TopicPrefix string `yaml:"topic_prefix"`
	} `yaml:"mqtt"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	FingerprintsDir string `yaml:"fingerprints_dir"`
	ScriptsDir      string `yaml:"scripts_dir"`
}

func (c *Config) validate() error {
	if c.Serial.Port == "" {
		return fmt.Errorf("serial.port is required")
	}
	if c.Device.NodeID == 0 {
		return fmt.Errorf("device.node_id is required")
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	return nil
}

func main() {
	// Temporary logger for config loading errors.
	bootLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfgPath := "config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		bootLogger.Error("load config", "err", err)
		os.Exit(1)
	}

	if err := cfg.validate(); err != nil {
		bootLogger.Error("invalid config", "err", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("zwave-lock-bridge starting", "version", version)

	registry := zwave.NewRegistry(logger)
	registerCommandClasses(registry)

	variants, err := driver.LoadFingerprintDir(cfg.FingerprintsDir, logger)
	if err != nil {
		logger.Error("load fingerprint database", "err", err)
		os.Exit(1)
	}
	logger.Info("command classes initialized", "classes", len(registry.All()), "fingerprints", variants.Len())

	db, err := store.NewBoltStore(cfg.Store.Path)
	if err != nil {
		logger.Error("open store", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	tr, err := transport.NewSerialTransport(cfg.Serial.Port, cfg.Serial.Baud, cfg.Device.NodeID, logger)
	if err != nil {
		logger.Error("open serial transport", "err", err)
		os.Exit(1)
	}
	defer tr.Close()

	bus := driver.NewBus(logger)
	drv := driver.New(tr, db, variants, bus, driver.Config{
		NodeID:      cfg.Device.NodeID,
		Fingerprint: cfg.Device.Fingerprint,
	}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := drv.Start(ctx); err != nil {
		logger.Error("start driver", "err", err)
		cancel()
		tr.Close()
		os.Exit(1)
	}
	if err := drv.Configure(ctx, cfg.Settings); err != nil {
		// Skipped parameters are not fatal; the rest of the settings were
		// already written.
		logger.Warn("apply settings", "err", err)
	}
	cancel()

	// Rules engine (no-op when built with the no_rules tag).
	rulesStop := initRules(drv, cfg, logger)

	var webOpts []web.ServerOption
	if cfg.Web.APIKey != "" {
		webOpts = append(webOpts, web.WithAPIKey(cfg.Web.APIKey))
	}
	if len(cfg.Web.AllowedOrigins) > 0 {
		webOpts = append(webOpts, web.WithAllowedOrigins(cfg.Web.AllowedOrigins))
	}
	webOpts = append(webOpts, web.WithVersion(version))

	webServer := web.NewServer(drv, registry, logger, webOpts...)

	httpServer := &http.Server{
		Addr:         cfg.Web.Listen,
		Handler:      webServer,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("web server starting", "addr", cfg.Web.Listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", "err", err)
		}
	}()

	// MQTT bridge (no-op when built with the no_mqtt tag).
	mqttStop := initMQTT(drv, cfg, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	signal.Stop(sigCh)
	logger.Info("shutting down", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	rulesStop.Stop()
	mqttStop.Stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", "err", err)
	}
	webServer.Stop()

	logger.Info("goodbye")
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Serial.Baud == 0 {
		cfg.Serial.Baud = 115200
	}
	if cfg.Device.Name == "" {
		cfg.Device.Name = "lock"
	}
	if cfg.Web.Listen == "" {
		cfg.Web.Listen = "127.0.0.1:8080"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "zwave-lock-bridge.db"
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "zwave"
	}
	if cfg.FingerprintsDir == "" {
		cfg.FingerprintsDir = "fingerprints"
	}
	if cfg.ScriptsDir == "" {
		cfg.ScriptsDir = "scripts"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	return &cfg, nil
}

func newLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func registerCommandClasses(r *zwave.Registry) {
	r.Register(classes.DoorLock)      // 0x62
	r.Register(classes.UserCode)      // 0x63
	r.Register(classes.Configuration) // 0x70
	r.Register(classes.Notification)  // 0x71
	r.Register(classes.Battery)       // 0x80
}
