package lock

import (
	"testing"

	"zwave-lock-bridge/internal/zwave"
)

func newTestReconciler(t *testing.T) (*Reconciler, *[]CapabilityEvent) {
	t.Helper()
	var events []CapabilityEvent
	r := NewReconciler(VariantA, func(e CapabilityEvent) {
		events = append(events, e)
	}, testLogger())
	return r, &events
}

func TestReconcilerInitialState(t *testing.T) {
	r, events := newTestReconciler(t)
	if r.State() != StateUnknown {
		t.Errorf("initial state = %q, want unknown", r.State())
	}
	if _, _, ok := r.Battery(); ok {
		t.Error("battery should be unknown before first report")
	}
	if len(*events) != 0 {
		t.Errorf("constructor emitted %d events, want 0", len(*events))
	}
}

func TestReconcilerIdempotentEmission(t *testing.T) {
	r, events := newTestReconciler(t)

	r.ApplyState(StateLocked, nil)
	r.ApplyState(StateLocked, nil)

	if len(*events) != 1 {
		t.Fatalf("emitted %d events, want exactly 1", len(*events))
	}
	e := (*events)[0]
	if e.Capability != "lock" || e.Value != "locked" {
		t.Errorf("event = %+v, want lock/locked", e)
	}
}

func TestReconcilerTransitionEmits(t *testing.T) {
	r, events := newTestReconciler(t)

	r.ApplyState(StateLocked, nil)
	r.ApplyState(StateUnlocked, nil)
	r.ApplyState(StateLocked, nil)

	if len(*events) != 3 {
		t.Fatalf("emitted %d events, want 3", len(*events))
	}
}

func TestReconcilerIgnoresUnknownTransition(t *testing.T) {
	r, events := newTestReconciler(t)

	r.ApplyState(StateLocked, nil)
	r.ApplyState(StateUnknown, nil)

	if r.State() != StateLocked {
		t.Errorf("state = %q, want locked", r.State())
	}
	if len(*events) != 1 {
		t.Errorf("emitted %d events, want 1", len(*events))
	}
}

func TestReconcilerJamLatch(t *testing.T) {
	r, _ := newTestReconciler(t)

	r.ApplyState(StateLocked, nil)
	r.ApplyState(StateJammed, nil)

	// Battery and code reports must not clear a jam.
	r.ApplyBattery(50, false)
	r.ApplyCode(1, true)
	if r.State() != StateJammed {
		t.Fatalf("state = %q after battery/code events, want jammed", r.State())
	}

	// Only an explicit locked/unlocked transition clears it.
	r.ApplyState(StateUnlocked, nil)
	if r.State() != StateUnlocked {
		t.Errorf("state = %q, want unlocked", r.State())
	}
}

func TestReconcilerBatteryEqualityGate(t *testing.T) {
	r, events := newTestReconciler(t)

	r.ApplyBattery(80, false)
	r.ApplyBattery(80, false)
	r.ApplyBattery(79, false)
	r.ApplyBattery(1, true) // low flag change also counts

	var battery []CapabilityEvent
	for _, e := range *events {
		if e.Capability == "battery" {
			battery = append(battery, e)
		}
	}
	if len(battery) != 3 {
		t.Fatalf("emitted %d battery events, want 3", len(battery))
	}
	if battery[2].Metadata["low"] != true {
		t.Errorf("low battery event metadata = %v, want low=true", battery[2].Metadata)
	}
}

func TestReconcilerCodeTable(t *testing.T) {
	r, events := newTestReconciler(t)

	r.ApplyCode(1, true)
	r.ApplyCode(1, true) // duplicate, no emission
	r.ApplyCode(2, true)
	r.ApplyCode(1, false)

	if len(*events) != 3 {
		t.Fatalf("emitted %d events, want 3", len(*events))
	}

	slots := r.Slots()
	if len(slots) != 2 {
		t.Fatalf("got %d slots, want 2", len(slots))
	}
	if slots[0].SlotID != 1 || slots[0].Present {
		t.Errorf("slot 1 = %+v, want present=false", slots[0])
	}
	if slots[1].SlotID != 2 || !slots[1].Present {
		t.Errorf("slot 2 = %+v, want present=true", slots[1])
	}
}

func TestReconcilerRejectsOutOfRangeSlot(t *testing.T) {
	r, events := newTestReconciler(t) // variant A: 15 slots

	r.ApplyCode(0, true)
	r.ApplyCode(16, true)

	if len(*events) != 0 {
		t.Errorf("emitted %d events for out-of-range slots, want 0", len(*events))
	}
}

func TestReconcilerClassificationRouting(t *testing.T) {
	r, events := newTestReconciler(t)
	c := NewClassifier(testLogger())

	r.ApplyClassification(c.Classify(Notification{
		Type:  zwave.NotificationTypeAccessControl,
		Event: zwave.EventKeypadUnlock,
		Param: []byte{3},
	}))

	if r.State() != StateUnlocked {
		t.Fatalf("state = %q, want unlocked", r.State())
	}
	e := (*events)[0]
	if e.Metadata["method"] != "keypad" || e.Metadata["codeId"] != 3 {
		t.Errorf("metadata = %v, want method=keypad codeId=3", e.Metadata)
	}

	// Unclassified: no state change, no emission.
	before := len(*events)
	r.ApplyClassification(c.Classify(Notification{
		Type:  zwave.NotificationTypeAccessControl,
		Event: 0x99,
	}))
	if r.State() != StateUnlocked || len(*events) != before {
		t.Error("unclassified notification must not change state or emit")
	}
}

func TestReconcilerPanelLockoutSignal(t *testing.T) {
	r, events := newTestReconciler(t)

	r.ApplyClassification(Classification{Kind: Signal, SideSignal: SignalPanelLockoutOn})
	r.ApplyClassification(Classification{Kind: Signal, SideSignal: SignalPanelLockoutOn})
	r.ApplyClassification(Classification{Kind: Signal, SideSignal: SignalPanelLockoutOff})

	if len(*events) != 2 {
		t.Fatalf("emitted %d events, want 2", len(*events))
	}
	if on, ok := r.PanelLockout(); !ok || on {
		t.Errorf("panel lockout = (%v, %v), want (false, true)", on, ok)
	}
}

func TestReconcilerAllCodesDeleted(t *testing.T) {
	r, events := newTestReconciler(t)

	r.ApplyCode(1, true)
	r.ApplyCode(3, true)
	*events = nil

	r.ApplyClassification(Classification{Kind: Signal, SideSignal: SignalAllCodesDeleted})

	if len(*events) != 2 {
		t.Fatalf("emitted %d events, want 2", len(*events))
	}
	for _, slot := range r.Slots() {
		if slot.Present {
			t.Errorf("slot %d still present after all-codes-deleted", slot.SlotID)
		}
	}
}

func TestReconcilerReset(t *testing.T) {
	r, events := newTestReconciler(t)

	r.ApplyState(StateJammed, nil)
	r.ApplyBattery(42, false)
	r.ApplyCode(2, true)
	*events = nil

	r.Reset()

	if r.State() != StateUnknown {
		t.Errorf("state after reset = %q, want unknown", r.State())
	}
	if _, _, ok := r.Battery(); ok {
		t.Error("battery should be unknown after reset")
	}
	if len(r.Slots()) != 0 {
		t.Error("slots should be cleared after reset")
	}
	if len(*events) != 0 {
		t.Errorf("reset emitted %d events, want 0", len(*events))
	}

	// The jam latch is gone: a fresh locked report emits again.
	r.ApplyState(StateLocked, nil)
	if len(*events) != 1 || r.State() != StateLocked {
		t.Error("fresh transition after reset should emit")
	}
}
