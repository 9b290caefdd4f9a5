// Package lock implements the protocol core for a single Z-Wave door lock:
// frame construction from typed intents, report decoding, access-control
// notification classification, and reconciliation of the canonical lock
// state. All operations are short, synchronous computations; I/O belongs to
// the transport and platform collaborators.
package lock

// State is the canonical lock state exposed to the platform. The wire
// protocol distinguishes many more conditions; they all reduce to these four.
type State string

const (
	StateLocked   State = "locked"
	StateUnlocked State = "unlocked"
	StateJammed   State = "jammed"
	StateUnknown  State = "unknown"
)

// Valid reports whether s is one of the four canonical states.
func (s State) Valid() bool {
	switch s {
	case StateLocked, StateUnlocked, StateJammed, StateUnknown:
		return true
	}
	return false
}

// UserCodeSlot is one device-managed PIN storage location. Code is opaque to
// the bridge: it is written to the device and never persisted, logged, or
// echoed anywhere else.
type UserCodeSlot struct {
	SlotID  uint8  `json:"slot_id"`
	Code    string `json:"-"`
	Present bool   `json:"present"`
}

// DeviceConfiguration carries the user preferences applied on every
// configure lifecycle call. It is rebuilt from the platform each time, never
// cached by the core.
type DeviceConfiguration struct {
	AutoRelockEnabled       bool   `json:"auto_relock_enabled" yaml:"auto_relock_enabled"`
	AutoRelockSeconds       uint   `json:"auto_relock_seconds" yaml:"auto_relock_seconds"`
	AudibleAlarmEnabled     bool   `json:"audible_alarm_enabled" yaml:"audible_alarm_enabled"`
	StatusReportEnabled     bool   `json:"status_report_enabled" yaml:"status_report_enabled"`
	LockVolume              uint8  `json:"lock_volume" yaml:"lock_volume"`
	BeeperVolume            uint8  `json:"beeper_volume" yaml:"beeper_volume"`
	WrongCodeLimit          uint8  `json:"wrong_code_limit" yaml:"wrong_code_limit"`
	WrongCodeDisableMinutes uint   `json:"wrong_code_disable_minutes" yaml:"wrong_code_disable_minutes"`
	PanelLockout            bool   `json:"panel_lockout" yaml:"panel_lockout"`
}

// Fingerprint identifies a lock model on the mesh.
type Fingerprint struct {
	ManufacturerID uint16 `json:"manufacturer_id" yaml:"manufacturer_id"`
	ProductType    uint16 `json:"product_type" yaml:"product_type"`
	ProductID      uint16 `json:"product_id" yaml:"product_id"`
}

// FirmwareVariant captures the per-firmware differences this bridge has to
// care about: the code slot count and the auto-relock configuration
// parameter shape.
type FirmwareVariant struct {
	Name        string `json:"name"`
	MaxSlots    uint8  `json:"max_slots"`
	RelockParam uint8  `json:"relock_param"`
	RelockSize  uint8  `json:"relock_size"`
}

// The two firmware variants observed in the field. Variant A is the older
// 15-slot firmware with a one-byte relock parameter; variant B is the
// 20-slot firmware that moved auto-relock to a four-byte parameter.
var (
	VariantA = FirmwareVariant{Name: "A", MaxSlots: 15, RelockParam: 3, RelockSize: 1}
	VariantB = FirmwareVariant{Name: "B", MaxSlots: 20, RelockParam: 111, RelockSize: 4}
)

// CapabilityEvent is the externally visible event emitted toward the
// platform collaborator.
type CapabilityEvent struct {
	Capability string         `json:"capability"` // "lock" | "battery" | "lockCodes"
	Attribute  string         `json:"attribute"`
	Value      any            `json:"value"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Event is a decoded domain event produced by the Decoder. The concrete
// types below form a closed set; anything else on the wire is a decode
// error.
type Event interface {
	isEvent()
}

// StateChanged is decoded from a door-lock operation report.
type StateChanged struct {
	State State
	// RawMode is the wire byte, preserved for logging when it maps to
	// StateUnknown.
	RawMode uint8
}

// BatteryChanged is decoded from a battery report.
type BatteryChanged struct {
	Level uint8 // 0..100
	Low   bool  // set when the device reported the low-battery sentinel
}

// CodeReported is decoded from a user code report.
type CodeReported struct {
	Slot    uint8
	Present bool
}

// Notification is a raw access-control (or other) notification, forwarded
// verbatim to the Classifier and discarded after classification.
type Notification struct {
	Type  uint8
	Event uint8
	Param []byte
}

func (StateChanged) isEvent()   {}
func (BatteryChanged) isEvent() {}
func (CodeReported) isEvent()   {}
func (Notification) isEvent()   {}
