package lock

import (
	"log/slog"
	"sort"
	"sync"
)

// Emitter receives externally visible capability events. The reconciler
// calls it outside its own lock, in the order the changes were applied.
type Emitter func(CapabilityEvent)

// Reconciler owns the device's last-known lock state, battery level, and
// user-code table. Every decoded event funnels through one of the Apply
// methods; a capability event is emitted only on an actual change, so
// repeated identical reports are externally invisible.
//
// The transport may deliver reports from any callback goroutine, so the
// reconciler guards its state with a mutex.
type Reconciler struct {
	mu      sync.Mutex
	emit    Emitter
	logger  *slog.Logger
	variant FirmwareVariant

	state           State
	battery         int // -1 before the first battery report
	batteryLow      bool
	panelLockout    bool
	panelLockoutSet bool
	slots           map[uint8]bool
}

// NewReconciler creates a reconciler in the initial Unknown state. The
// caller (driver) is responsible for issuing the initial battery and
// lock-state queries.
func NewReconciler(variant FirmwareVariant, emit Emitter, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		emit:    emit,
		logger:  logger,
		variant: variant,
		state:   StateUnknown,
		battery: -1,
		slots:   make(map[uint8]bool),
	}
}

// ApplyState applies a canonical lock-state transition. Both notification
// classifications and direct operation reports write through here, so the
// result is the same regardless of origin.
//
// Unknown targets are dropped: Unknown is reserved for the time before the
// first successful query and after removal, never a live transition. A
// jammed state stays latched until an explicit locked/unlocked transition;
// nothing else clears it.
func (r *Reconciler) ApplyState(s State, meta map[string]any) {
	if s == StateUnknown {
		r.logger.Debug("ignoring unknown state transition")
		return
	}

	r.mu.Lock()
	if s == r.state {
		r.mu.Unlock()
		return
	}
	r.state = s
	r.mu.Unlock()

	r.emit(CapabilityEvent{Capability: "lock", Attribute: "lock", Value: string(s), Metadata: meta})
}

// ApplyBattery applies a battery report, emitting only on change.
func (r *Reconciler) ApplyBattery(level uint8, low bool) {
	r.mu.Lock()
	if int(level) == r.battery && low == r.batteryLow {
		r.mu.Unlock()
		return
	}
	r.battery = int(level)
	r.batteryLow = low
	r.mu.Unlock()

	var meta map[string]any
	if low {
		meta = map[string]any{"low": true}
	}
	r.emit(CapabilityEvent{Capability: "battery", Attribute: "battery", Value: int(level), Metadata: meta})
}

// ApplyCode applies a user-code slot report, emitting only on change. Slots
// beyond the firmware's range are dropped.
func (r *Reconciler) ApplyCode(slot uint8, present bool) {
	if slot < 1 || slot > r.variant.MaxSlots {
		r.logger.Debug("code report for out-of-range slot", "slot", slot)
		return
	}

	r.mu.Lock()
	if r.slots[slot] == present {
		r.mu.Unlock()
		return
	}
	r.slots[slot] = present
	r.mu.Unlock()

	r.emit(CapabilityEvent{
		Capability: "lockCodes",
		Attribute:  "code",
		Value:      map[string]any{"codeId": int(slot), "exists": present},
	})
}

// ApplyClassification routes a classifier outcome: transitions go through
// ApplyState, side signals through applySignal, Unclassified is dropped.
func (r *Reconciler) ApplyClassification(c Classification) {
	switch c.Kind {
	case Transition:
		meta := map[string]any{"method": c.Source}
		if c.HasSlot {
			meta["codeId"] = int(c.Slot)
		}
		r.ApplyState(c.State, meta)
	case Signal:
		r.applySignal(c)
	}
}

func (r *Reconciler) applySignal(c Classification) {
	switch c.SideSignal {
	case SignalPanelLockoutOn, SignalPanelLockoutOff:
		on := c.SideSignal == SignalPanelLockoutOn
		r.mu.Lock()
		if r.panelLockoutSet && r.panelLockout == on {
			r.mu.Unlock()
			return
		}
		r.panelLockout = on
		r.panelLockoutSet = true
		r.mu.Unlock()
		value := "off"
		if on {
			value = "on"
		}
		r.emit(CapabilityEvent{Capability: "lock", Attribute: "panelLockout", Value: value})

	case SignalCodeAdded:
		if c.HasSlot {
			r.ApplyCode(c.Slot, true)
		}
	case SignalCodeDeleted:
		if c.HasSlot {
			r.ApplyCode(c.Slot, false)
		}
	case SignalAllCodesDeleted:
		r.mu.Lock()
		var cleared []uint8
		for slot, present := range r.slots {
			if present {
				r.slots[slot] = false
				cleared = append(cleared, slot)
			}
		}
		r.mu.Unlock()
		sort.Slice(cleared, func(i, j int) bool { return cleared[i] < cleared[j] })
		for _, slot := range cleared {
			r.emit(CapabilityEvent{
				Capability: "lockCodes",
				Attribute:  "code",
				Value:      map[string]any{"codeId": int(slot), "exists": false},
			})
		}
	}
}

// Reset is the teardown transition on device removal: state back to Unknown,
// code table and jam latch cleared. It emits nothing; the platform
// initiated the removal and needs no event for it.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = StateUnknown
	r.battery = -1
	r.batteryLow = false
	r.panelLockoutSet = false
	r.slots = make(map[uint8]bool)
}

// State returns the current canonical lock state.
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Battery returns the last battery level, its low flag, and whether a
// battery report has been seen at all.
func (r *Reconciler) Battery() (level int, low bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.battery < 0 {
		return 0, false, false
	}
	return r.battery, r.batteryLow, true
}

// PanelLockout returns the panel lockout state and whether it is known.
func (r *Reconciler) PanelLockout() (on bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.panelLockout, r.panelLockoutSet
}

// Slots returns the known code slots ordered by slot ID.
func (r *Reconciler) Slots() []UserCodeSlot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]UserCodeSlot, 0, len(r.slots))
	for id, present := range r.slots {
		out = append(out, UserCodeSlot{SlotID: id, Present: present})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotID < out[j].SlotID })
	return out
}

// Variant returns the firmware variant the reconciler was built for.
func (r *Reconciler) Variant() FirmwareVariant {
	return r.variant
}
