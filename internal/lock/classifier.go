package lock

import (
	"fmt"
	"log/slog"

	"zwave-lock-bridge/internal/zwave"
)

// SideSignal is a non-transition outcome of classification: something
// happened on the device that the platform should hear about but that does
// not move the lock state machine.
type SideSignal string

const (
	SignalPanelLockoutOn  SideSignal = "panelLockoutOn"
	SignalPanelLockoutOff SideSignal = "panelLockoutOff"
	SignalAllCodesDeleted SideSignal = "allCodesDeleted"
	SignalCodeDeleted     SideSignal = "codeDeleted"
	SignalCodeAdded       SideSignal = "codeAdded"
)

// ClassificationKind tags the outcome of Classify.
type ClassificationKind int

const (
	Unclassified ClassificationKind = iota
	Transition
	Signal
)

// Classification is the outcome of classifying one notification. For
// Transition outcomes State is set; for Signal outcomes SideSignal is set.
// Source names how the transition happened ("manual", "keypad", ...) and
// Slot carries the code slot for keypad and code-management events when the
// device reported one.
type Classification struct {
	Kind       ClassificationKind
	State      State
	SideSignal SideSignal
	Source     string
	Slot       uint8
	HasSlot    bool
}

// transitionEvents collapses the access-control event code space onto the
// canonical states. The protocol distinguishes how a transition happened;
// the capability model only cares that it happened, so five "locked by X"
// codes map to one state (same for unlocked), and both jam codes map to
// jammed.
var transitionEvents = map[uint8]struct {
	state  State
	source string
}{
	zwave.EventManualLock:       {StateLocked, "manual"},
	zwave.EventAutoLock:         {StateLocked, "auto"},
	zwave.EventKeypadLock:       {StateLocked, "keypad"},
	zwave.EventCommandLock:      {StateLocked, "command"},
	zwave.EventRFLock:           {StateLocked, "rf"},
	zwave.EventManualUnlock:     {StateUnlocked, "manual"},
	zwave.EventAutoUnlock:       {StateUnlocked, "auto"},
	zwave.EventKeypadUnlock:     {StateUnlocked, "keypad"},
	zwave.EventCommandUnlock:    {StateUnlocked, "command"},
	zwave.EventRFUnlock:         {StateUnlocked, "rf"},
	zwave.EventJammed:           {StateJammed, "jam"},
	zwave.EventJammedDuringLock: {StateJammed, "jam"},
}

// signalEvents maps the non-transition access-control codes.
var signalEvents = map[uint8]SideSignal{
	zwave.EventPanelLockoutOn:  SignalPanelLockoutOn,
	zwave.EventPanelLockoutOff: SignalPanelLockoutOff,
	zwave.EventAllCodesDeleted: SignalAllCodesDeleted,
	zwave.EventCodeDeleted:     SignalCodeDeleted,
	zwave.EventCodeAdded:       SignalCodeAdded,
}

// slotBearingEvents lists event codes whose first parameter byte is a code
// slot ID.
var slotBearingEvents = map[uint8]bool{
	zwave.EventKeypadLock:   true,
	zwave.EventKeypadUnlock: true,
	zwave.EventCodeDeleted:  true,
	zwave.EventCodeAdded:    true,
}

// Classifier maps access-control notifications to canonical outcomes.
type Classifier struct {
	logger *slog.Logger
}

// NewClassifier creates a classifier.
func NewClassifier(logger *slog.Logger) *Classifier {
	return &Classifier{logger: logger}
}

// Classify resolves a notification. Only access-control notifications are
// interpreted; everything else, and every unmodeled access-control code,
// comes back Unclassified. Unclassified is not an error: firmware updates
// add codes and the pipeline must survive them.
func (c *Classifier) Classify(n Notification) Classification {
	if n.Type != zwave.NotificationTypeAccessControl {
		c.logger.Debug("notification type not interpreted",
			"type", fmt.Sprintf("0x%02X", n.Type), "event", fmt.Sprintf("0x%02X", n.Event))
		return Classification{Kind: Unclassified}
	}

	var out Classification
	if t, ok := transitionEvents[n.Event]; ok {
		out = Classification{Kind: Transition, State: t.state, Source: t.source}
	} else if s, ok := signalEvents[n.Event]; ok {
		out = Classification{Kind: Signal, SideSignal: s}
	} else {
		c.logger.Debug("unclassified access control event",
			"event", fmt.Sprintf("0x%02X", n.Event))
		return Classification{Kind: Unclassified}
	}

	if slotBearingEvents[n.Event] && len(n.Param) > 0 {
		out.Slot = n.Param[0]
		out.HasSlot = true
	}
	return out
}
