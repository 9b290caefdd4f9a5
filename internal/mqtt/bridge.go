//go:build !no_mqtt

package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"zwave-lock-bridge/internal/driver"
	"zwave-lock-bridge/internal/lock"
)

// Config holds MQTT bridge configuration.
type Config struct {
	Broker      string
	Username    string
	Password    string
	TopicPrefix string
	DeviceName  string // topic segment and HA display name, defaults to "lock"
}

// Bridge connects the lock driver to MQTT with HA autodiscovery. State is
// published retained on <prefix>/<name>; commands arrive on
// <prefix>/<name>/set.
type Bridge struct {
	client pahomqtt.Client
	drv    *driver.Driver
	prefix string
	name   string
	logger *slog.Logger
	unsub  func()

	mu    sync.Mutex
	state map[string]any
}

// NewBridge creates and connects an MQTT bridge.
func NewBridge(drv *driver.Driver, cfg Config, logger *slog.Logger) (*Bridge, error) {
	name := cfg.DeviceName
	if name == "" {
		name = "lock"
	}
	b := &Bridge{
		drv:    drv,
		prefix: cfg.TopicPrefix,
		name:   topicSegment(name),
		logger: logger.With("component", "mqtt"),
		state:  make(map[string]any),
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID("zwave-lock-bridge").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(cfg.TopicPrefix+"/bridge/state", "offline", 1, true).
		SetOnConnectHandler(func(_ pahomqtt.Client) { b.onConnect() }).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			b.logger.Warn("MQTT connection lost", "err", err)
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := pahomqtt.NewClient(opts)
	// Assigned before Connect: paho fires the connect handler on its own
	// goroutine, possibly before Connect returns, and onConnect publishes
	// through b.client.
	b.client = client

	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return b, nil
}

// onConnect runs on every connect and reconnect: announce availability,
// advertise the HA entities, subscribe for commands, and restore the
// retained state topic. On reconnect the last published document is
// replayed as-is rather than recomputed.
func (b *Bridge) onConnect() {
	b.logger.Info("MQTT connected")
	b.publishBridgeState("online")
	b.publishDiscovery()
	b.subscribeCommands()
	if data, ok := b.cachedStatePayload(); ok {
		b.publish(b.stateTopic(), data, true)
		return
	}
	b.publishState()
}

// Start subscribes to driver events and begins MQTT publishing.
func (b *Bridge) Start() {
	b.unsub = b.drv.Bus().OnAll(b.handleEvent)
	b.logger.Info("MQTT bridge started", "prefix", b.prefix, "name", b.name)
}

// Stop publishes offline state, unsubscribes, and disconnects.
func (b *Bridge) Stop() {
	if b.unsub != nil {
		b.unsub()
	}
	b.publishBridgeState("offline")
	b.client.Disconnect(1000)
	b.logger.Info("MQTT bridge stopped")
}

func (b *Bridge) handleEvent(event driver.Event) {
	switch event.Type {
	case driver.EventCapability:
		b.publishState()
	case driver.EventDriverState:
		switch event.Data {
		case "ready":
			b.publishState()
		case "removed":
			b.handleRemoved()
		}
	}
}

func (b *Bridge) publishState() {
	payload := buildStatePayload(b.drv.Status())

	b.mu.Lock()
	b.state = payload
	data := mustJSON(payload)
	b.mu.Unlock()

	b.publish(b.stateTopic(), data, true)
}

func (b *Bridge) handleRemoved() {
	for _, msg := range buildRemoveDiscovery(b.prefix, b.name) {
		b.publish(msg.Topic, msg.Payload, true)
	}
	// Clear the retained state topic as well.
	b.publish(b.stateTopic(), nil, true)

	b.mu.Lock()
	b.state = make(map[string]any)
	b.mu.Unlock()
}

// cachedStatePayload returns the last published state document, if any.
func (b *Bridge) cachedStatePayload() ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.state) == 0 {
		return nil, false
	}
	return mustJSON(b.state), true
}

func (b *Bridge) publishBridgeState(state string) {
	b.publish(b.prefix+"/bridge/state", []byte(state), true)
}

func (b *Bridge) publishDiscovery() {
	status := b.drv.Status()
	for _, msg := range buildDiscovery(b.prefix, b.name, status) {
		b.publish(msg.Topic, msg.Payload, true)
	}
	b.logger.Info("published HA discovery", "name", b.name)
}

func (b *Bridge) subscribeCommands() {
	topic := b.stateTopic() + "/set"
	b.client.Subscribe(topic, 1, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		b.handleCommand(msg.Payload())
	})
}

// handleCommand executes one /set payload. PINs inside code commands are
// never logged.
func (b *Bridge) handleCommand(payload []byte) {
	cmd, err := parseCommand(payload)
	if err != nil {
		b.logger.Warn("invalid command payload", "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch {
	case cmd.State != "":
		var err error
		switch cmd.State {
		case "LOCK":
			err = b.drv.Lock(ctx)
		case "UNLOCK":
			err = b.drv.Unlock(ctx)
		}
		if err != nil {
			b.logger.Warn("state command failed", "state", cmd.State, "err", err)
		}
	case cmd.Refresh:
		if err := b.drv.Refresh(ctx); err != nil {
			b.logger.Warn("refresh command failed", "err", err)
		}
	case cmd.Code != nil:
		if err := b.drv.SetCode(ctx, cmd.Code.Slot, cmd.Code.PIN); err != nil {
			b.logger.Warn("code set command failed", "slot", cmd.Code.Slot, "err", err)
		}
	case cmd.ClearSlot != 0:
		if err := b.drv.ClearCode(ctx, cmd.ClearSlot); err != nil {
			b.logger.Warn("code clear command failed", "slot", cmd.ClearSlot, "err", err)
		}
	}
}

func (b *Bridge) publish(topic string, payload []byte, retained bool) {
	token := b.client.Publish(topic, 1, retained, payload)
	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			b.logger.Warn("MQTT publish timeout", "topic", topic)
		} else if err := token.Error(); err != nil {
			b.logger.Warn("MQTT publish error", "topic", topic, "err", err)
		}
	}()
}

func (b *Bridge) stateTopic() string {
	return b.prefix + "/" + b.name
}

// codeCommand sets one slot. The PIN stays inside this struct and is
// forwarded to the driver only.
type codeCommand struct {
	Slot uint8  `json:"slot"`
	PIN  string `json:"pin"`
}

// command is a parsed /set payload. Exactly one field is expected per
// message; State wins when several are present.
type command struct {
	State     string       `json:"state,omitempty"`
	Refresh   bool         `json:"refresh,omitempty"`
	Code      *codeCommand `json:"code,omitempty"`
	ClearSlot uint8        `json:"clear_slot,omitempty"`
}

func parseCommand(payload []byte) (command, error) {
	// Bare LOCK/UNLOCK strings are what HA's lock entity sends by default.
	trimmed := strings.TrimSpace(string(payload))
	switch strings.ToUpper(trimmed) {
	case "LOCK":
		return command{State: "LOCK"}, nil
	case "UNLOCK":
		return command{State: "UNLOCK"}, nil
	}

	var cmd command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return command{}, fmt.Errorf("parse command: %w", err)
	}
	cmd.State = strings.ToUpper(cmd.State)
	if cmd.State != "" && cmd.State != "LOCK" && cmd.State != "UNLOCK" {
		return command{}, fmt.Errorf("unknown state command %q", cmd.State)
	}
	return cmd, nil
}

// buildStatePayload flattens a driver status into the retained state
// document. Slot PINs never appear here; only presence flags do.
func buildStatePayload(status driver.Status) map[string]any {
	lastSeen := time.Now().UTC()
	if status.LastSeen != nil {
		lastSeen = *status.LastSeen
	}
	payload := map[string]any{
		"state":       haLockState(status.LockState),
		"lock_state":  string(status.LockState),
		"battery_low": status.BatteryLow,
		"last_seen":   lastSeen.Format(time.RFC3339),
	}
	if status.Battery >= 0 {
		payload["battery"] = status.Battery
	}
	if status.PanelLockout != nil {
		payload["panel_lockout"] = *status.PanelLockout
	}
	if len(status.Slots) > 0 {
		slots := make(map[string]bool, len(status.Slots))
		for _, s := range status.Slots {
			slots[fmt.Sprintf("%d", s.SlotID)] = s.Present
		}
		payload["slots"] = slots
	}
	return payload
}

// haLockState maps internal states to HA lock entity states.
func haLockState(s lock.State) string {
	switch s {
	case lock.StateLocked:
		return "LOCKED"
	case lock.StateUnlocked:
		return "UNLOCKED"
	case lock.StateJammed:
		return "JAMMED"
	default:
		return "UNKNOWN"
	}
}

// topicSegment sanitizes a name into a safe MQTT topic segment.
func topicSegment(name string) string {
	name = strings.ToLower(name)
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, name)
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
