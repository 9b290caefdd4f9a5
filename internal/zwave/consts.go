package zwave

// Command classes spoken by the supported lock family.
const (
	ClassDoorLock      uint16 = 0x62
	ClassUserCode      uint16 = 0x63
	ClassConfiguration uint16 = 0x70
	ClassNotification  uint16 = 0x71
	ClassBattery       uint16 = 0x80
)

// Door Lock command class (0x62) commands.
const (
	DoorLockOperationSet    uint8 = 0x01
	DoorLockOperationGet    uint8 = 0x02
	DoorLockOperationReport uint8 = 0x03
)

// User Code command class (0x63) commands.
const (
	UserCodeSet    uint8 = 0x01
	UserCodeGet    uint8 = 0x02
	UserCodeReport uint8 = 0x03
)

// Configuration command class (0x70) commands.
const (
	ConfigurationSet    uint8 = 0x04
	ConfigurationGet    uint8 = 0x05
	ConfigurationReport uint8 = 0x06
)

// Notification command class (0x71) commands.
const (
	NotificationReport uint8 = 0x05
)

// Battery command class (0x80) commands.
const (
	BatteryGet    uint8 = 0x02
	BatteryReport uint8 = 0x03
)

// Door lock operation bytes for DoorLockOperationSet.
const (
	OperationLock   uint8 = 0x01
	OperationUnlock uint8 = 0x02
)

// Door lock mode bytes carried in DoorLockOperationReport.
const (
	LockModeUnsecured uint8 = 0x00
	LockModeSecured   uint8 = 0xFF
)

// User code status bytes in UserCodeSet/UserCodeReport.
const (
	UserIDStatusAvailable uint8 = 0x00
	UserIDStatusOccupied  uint8 = 0x01
)

// BatteryLowSentinel is reported instead of a percentage when the device
// considers its battery critically low.
const BatteryLowSentinel uint8 = 0xFF

// Notification types. Only access control is interpreted by this bridge.
const (
	NotificationTypeAccessControl uint8 = 0x06
)

// Access control event codes. The 0x8x values are firmware extension codes
// observed on this lock family, not part of the base notification set.
const (
	EventManualLock       uint8 = 0x01
	EventManualUnlock     uint8 = 0x02
	EventRFLock           uint8 = 0x03
	EventRFUnlock         uint8 = 0x04
	EventKeypadLock       uint8 = 0x05
	EventKeypadUnlock     uint8 = 0x06
	EventJammedDuringLock uint8 = 0x08
	EventAutoLock         uint8 = 0x09
	EventAutoUnlock       uint8 = 0x0A
	EventJammed           uint8 = 0x0B
	EventAllCodesDeleted  uint8 = 0x0C
	EventCodeDeleted      uint8 = 0x0D
	EventCodeAdded        uint8 = 0x0E
	EventCommandLock      uint8 = 0x18
	EventCommandUnlock    uint8 = 0x19
	EventPanelLockoutOn   uint8 = 0x81
	EventPanelLockoutOff  uint8 = 0x82
)
