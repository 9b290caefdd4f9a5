// Package driver owns the lifecycle of the single paired lock: it feeds
// inbound reports through the protocol core, turns capability intents into
// outbound frames, and publishes capability events on the bus.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"zwave-lock-bridge/internal/lock"
	"zwave-lock-bridge/internal/store"
	"zwave-lock-bridge/internal/transport"
	"zwave-lock-bridge/internal/zwave"
)

// Config identifies the paired lock.
type Config struct {
	NodeID      uint8
	Fingerprint lock.Fingerprint
}

// Status is the driver's current view of the device, served by the web API.
type Status struct {
	NodeID       uint8               `json:"node_id"`
	Variant      string              `json:"variant"`
	Model        string              `json:"model,omitempty"`
	LockState    lock.State          `json:"lock_state"`
	Battery      int                 `json:"battery"` // -1 before first report
	BatteryLow   bool                `json:"battery_low"`
	PanelLockout *bool               `json:"panel_lockout,omitempty"`
	Slots        []lock.UserCodeSlot `json:"slots"`
	LastSeen     *time.Time          `json:"last_seen,omitempty"`
}

// Driver glues transport, protocol core, store and bus together for one
// device.
type Driver struct {
	tr     transport.Transport
	st     store.Store
	bus    *Bus
	logger *slog.Logger

	dec *lock.Decoder
	cls *lock.Classifier
	rec *lock.Reconciler

	cfg     Config
	variant lock.FirmwareVariant
	model   string

	verbose atomic.Bool

	// lastSeen is the unix time of the last decoded report, restored from
	// the persisted snapshot on startup. Zero means never heard from.
	lastSeen atomic.Int64
}

// New wires a driver. The reconciler starts in the Unknown state; Start
// issues the first query pair.
func New(tr transport.Transport, st store.Store, variants *VariantDB, bus *Bus, cfg Config, logger *slog.Logger) *Driver {
	logger = logger.With("component", "driver")
	variant, model := variants.Lookup(cfg.Fingerprint)

	d := &Driver{
		tr:      tr,
		st:      st,
		bus:     bus,
		logger:  logger,
		dec:     lock.NewDecoder(logger),
		cls:     lock.NewClassifier(logger),
		cfg:     cfg,
		variant: variant,
		model:   model,
	}
	d.rec = lock.NewReconciler(variant, d.emitCapability, logger)
	tr.OnReport(d.handleReport)

	logger.Info("driver created", "node", cfg.NodeID, "variant", variant.Name,
		"slots", variant.MaxSlots, "model", model)
	return d
}

// Start announces the driver and issues the initial battery and lock-state
// queries. The constructor-driven query pair is what moves the device out
// of Unknown; no report is required to trigger it.
func (d *Driver) Start(ctx context.Context) error {
	d.bus.Emit(Event{Type: EventDriverState, Data: "starting"})

	// A prior run's snapshot never seeds the live view, which always begins
	// at Unknown until the device answers, but it does restore last_seen
	// continuity across restarts.
	if snap, err := d.st.GetSnapshot(d.cfg.NodeID); err == nil {
		d.lastSeen.Store(snap.UpdatedAt.Unix())
		d.logger.Info("snapshot restored", "lock_state", snap.LockState,
			"battery", snap.Battery, "updated_at", snap.UpdatedAt)
	} else if !errors.Is(err, store.ErrNotFound) {
		d.logger.Error("load snapshot", "err", err)
	}

	if err := d.tr.SendFrame(ctx, lock.BatteryQuery()); err != nil {
		return fmt.Errorf("initial battery query: %w", err)
	}
	if err := d.tr.SendFrame(ctx, lock.LockStateQuery()); err != nil {
		return fmt.Errorf("initial lock state query: %w", err)
	}

	d.persist()
	d.bus.Emit(Event{Type: EventDriverState, Data: "ready"})
	d.logger.Info("driver started", "node", d.cfg.NodeID)
	return nil
}

// Lock requests the locked state.
func (d *Driver) Lock(ctx context.Context) error {
	return d.sendOperation(ctx, lock.StateLocked)
}

// Unlock requests the unlocked state.
func (d *Driver) Unlock(ctx context.Context) error {
	return d.sendOperation(ctx, lock.StateUnlocked)
}

func (d *Driver) sendOperation(ctx context.Context, target lock.State) error {
	f, err := lock.LockSet(target)
	if err != nil {
		return err
	}
	if err := d.tr.SendFrame(ctx, f); err != nil {
		return fmt.Errorf("send %s: %w", target, err)
	}
	d.logger.Info("operation sent", "target", target)
	return nil
}

// Refresh re-queries battery and lock state.
func (d *Driver) Refresh(ctx context.Context) error {
	if err := d.tr.SendFrame(ctx, lock.BatteryQuery()); err != nil {
		return fmt.Errorf("battery query: %w", err)
	}
	if err := d.tr.SendFrame(ctx, lock.LockStateQuery()); err != nil {
		return fmt.Errorf("lock state query: %w", err)
	}
	return nil
}

// Configure translates preferences into configuration writes and sends
// them in order. Out-of-range preferences skip their parameter only; the
// remaining frames are still applied. A transport failure aborts the rest
// of the sequence and is surfaced unchanged.
func (d *Driver) Configure(ctx context.Context, cfg lock.DeviceConfiguration) error {
	d.verbose.Store(cfg.StatusReportEnabled)

	frames, skipped := lock.TranslateConfig(cfg, d.variant, d.logger)
	for _, f := range frames {
		if err := d.tr.SendFrame(ctx, f); err != nil {
			return fmt.Errorf("send config frame %s: %w", f, err)
		}
	}

	d.bus.Emit(Event{Type: EventConfigApplied, Data: map[string]any{
		"applied": len(frames),
		"skipped": len(skipped),
	}})
	d.logger.Info("configuration applied", "frames", len(frames), "skipped", len(skipped))

	return errors.Join(skipped...)
}

// SetCode writes a PIN into a slot and queries it back so the report can
// reconcile the table. The PIN itself is never logged.
func (d *Driver) SetCode(ctx context.Context, slot uint8, code string) error {
	if slot < 1 || slot > d.variant.MaxSlots {
		return fmt.Errorf("slot %d of %d: %w", slot, d.variant.MaxSlots, lock.ErrBadSlot)
	}
	f, err := lock.CodeSet(slot, code)
	if err != nil {
		return err
	}
	if err := d.tr.SendFrame(ctx, f); err != nil {
		return fmt.Errorf("send code set: %w", err)
	}
	d.logger.Info("code set sent", "slot", slot)
	return d.tr.SendFrame(ctx, lock.CodeQuery(slot))
}

// ClearCode erases one slot.
func (d *Driver) ClearCode(ctx context.Context, slot uint8) error {
	if slot < 1 || slot > d.variant.MaxSlots {
		return fmt.Errorf("slot %d of %d: %w", slot, d.variant.MaxSlots, lock.ErrBadSlot)
	}
	if err := d.tr.SendFrame(ctx, lock.CodeClear(slot)); err != nil {
		return fmt.Errorf("send code clear: %w", err)
	}
	d.logger.Info("code clear sent", "slot", slot)
	return d.tr.SendFrame(ctx, lock.CodeQuery(slot))
}

// RequestCodes queries every slot the firmware has.
func (d *Driver) RequestCodes(ctx context.Context) error {
	for slot := uint8(1); slot <= d.variant.MaxSlots; slot++ {
		if err := d.tr.SendFrame(ctx, lock.CodeQuery(slot)); err != nil {
			return fmt.Errorf("query slot %d: %w", slot, err)
		}
	}
	return nil
}

// Remove is the teardown lifecycle call: the local view resets to Unknown,
// the code table is cleared, and the persisted snapshot is dropped.
func (d *Driver) Remove() {
	d.rec.Reset()
	d.lastSeen.Store(0)
	if err := d.st.DeleteSnapshot(d.cfg.NodeID); err != nil {
		d.logger.Error("delete snapshot", "err", err)
	}
	d.bus.Emit(Event{Type: EventDriverState, Data: "removed"})
	d.logger.Info("device removed", "node", d.cfg.NodeID)
}

// Status returns the current view for the API.
func (d *Driver) Status() Status {
	battery, low, ok := d.rec.Battery()
	if !ok {
		battery = -1
	}
	s := Status{
		NodeID:     d.cfg.NodeID,
		Variant:    d.variant.Name,
		Model:      d.model,
		LockState:  d.rec.State(),
		Battery:    battery,
		BatteryLow: low,
		Slots:      d.rec.Slots(),
	}
	if on, known := d.rec.PanelLockout(); known {
		s.PanelLockout = &on
	}
	if ts := d.lastSeen.Load(); ts != 0 {
		seen := time.Unix(ts, 0).UTC()
		s.LastSeen = &seen
	}
	return s
}

// Bus returns the driver's event bus.
func (d *Driver) Bus() *Bus {
	return d.bus
}

// MaxSlots returns the slot count of the resolved firmware variant.
func (d *Driver) MaxSlots() uint8 {
	return d.variant.MaxSlots
}

func (d *Driver) handleReport(rep zwave.Report) {
	ev, err := d.dec.Decode(rep)
	if err != nil {
		if errors.Is(err, lock.ErrUnhandled) {
			d.logger.Debug("report dropped", "report", rep.String())
		} else {
			d.logger.Warn("malformed report", "report", rep.String(), "err", err)
		}
		return
	}
	d.touch()

	switch e := ev.(type) {
	case lock.StateChanged:
		d.rec.ApplyState(e.State, nil)
	case lock.BatteryChanged:
		d.rec.ApplyBattery(e.Level, e.Low)
	case lock.CodeReported:
		d.rec.ApplyCode(e.Slot, e.Present)
	case lock.Notification:
		d.rec.ApplyClassification(d.cls.Classify(e))
	}
}

// emitCapability is the reconciler's emitter: log, persist, publish.
func (d *Driver) emitCapability(e lock.CapabilityEvent) {
	if d.verbose.Load() {
		d.logger.Info("capability event", "capability", e.Capability,
			"attribute", e.Attribute, "value", e.Value)
	} else {
		d.logger.Debug("capability event", "capability", e.Capability,
			"attribute", e.Attribute, "value", e.Value)
	}
	d.persist()
	d.bus.Emit(Event{Type: EventCapability, Data: e})
}

// touch records device liveness on every decoded report. Duplicate reports
// pass through the equality gate without a persist, so the snapshot's
// UpdatedAt is bumped here to keep last_seen honest.
func (d *Driver) touch() {
	now := time.Now().UTC()
	d.lastSeen.Store(now.Unix())
	err := d.st.UpdateSnapshot(d.cfg.NodeID, func(snap *store.Snapshot) error {
		snap.UpdatedAt = now
		return nil
	})
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		d.logger.Error("touch snapshot", "err", err)
	}
}

func (d *Driver) persist() {
	battery, low, ok := d.rec.Battery()
	if !ok {
		battery = -1
	}
	snap := &store.Snapshot{
		NodeID:         d.cfg.NodeID,
		ManufacturerID: d.cfg.Fingerprint.ManufacturerID,
		ProductType:    d.cfg.Fingerprint.ProductType,
		ProductID:      d.cfg.Fingerprint.ProductID,
		Variant:        d.variant.Name,
		LockState:      string(d.rec.State()),
		Battery:        battery,
		BatteryLow:     low,
		UpdatedAt:      time.Now().UTC(),
	}
	if on, known := d.rec.PanelLockout(); known {
		snap.PanelLockout = &on
	}
	for _, s := range d.rec.Slots() {
		snap.Slots = append(snap.Slots, store.SlotRecord{SlotID: s.SlotID, Present: s.Present})
	}
	if err := d.st.SaveSnapshot(snap); err != nil {
		d.logger.Error("save snapshot", "err", err)
	}
}
