package store

import "time"

// SlotRecord is the persisted view of one code slot: presence only, the PIN
// itself is never stored.
type SlotRecord struct {
	SlotID  uint8 `json:"slot_id"`
	Present bool  `json:"present"`
}

// Snapshot is the persisted last-known view of the paired lock.
type Snapshot struct {
	NodeID         uint8        `json:"node_id"`
	ManufacturerID uint16       `json:"manufacturer_id"`
	ProductType    uint16       `json:"product_type"`
	ProductID      uint16       `json:"product_id"`
	Variant        string       `json:"variant,omitempty"`
	LockState      string       `json:"lock_state"`
	Battery        int          `json:"battery"` // -1 when never reported
	BatteryLow     bool         `json:"battery_low,omitempty"`
	PanelLockout   *bool        `json:"panel_lockout,omitempty"`
	Slots          []SlotRecord `json:"slots,omitempty"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
