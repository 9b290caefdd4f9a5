package lock

import (
	"fmt"

	"zwave-lock-bridge/internal/zwave"
)

// Frame builders. These are pure: they construct correctly parameterized
// frames and never touch the transport.

// BatteryQuery builds a battery percentage query.
func BatteryQuery() zwave.Frame {
	return zwave.Frame{CommandClass: zwave.ClassBattery, CommandID: zwave.BatteryGet}
}

// LockStateQuery builds a door-lock operation state query.
func LockStateQuery() zwave.Frame {
	return zwave.Frame{CommandClass: zwave.ClassDoorLock, CommandID: zwave.DoorLockOperationGet}
}

// LockSet builds a lock or unlock operation. Any target other than
// StateLocked or StateUnlocked is a caller error.
func LockSet(target State) (zwave.Frame, error) {
	var op uint8
	switch target {
	case StateLocked:
		op = zwave.OperationLock
	case StateUnlocked:
		op = zwave.OperationUnlock
	default:
		return zwave.Frame{}, fmt.Errorf("lock set %q: %w", target, ErrBadTarget)
	}
	return zwave.Frame{
		CommandClass: zwave.ClassDoorLock,
		CommandID:    zwave.DoorLockOperationSet,
		Payload:      []byte{op},
	}, nil
}

// ConfigParam builds a generic configuration-set frame. size must be 1, 2 or
// 4 and value must fit in size bytes (signed range), otherwise the call
// fails with ErrOutOfRange.
func ConfigParam(param uint8, size uint8, value int) (zwave.Frame, error) {
	var lo, hi int
	switch size {
	case 1:
		lo, hi = -0x80, 0xFF
	case 2:
		lo, hi = -0x8000, 0xFFFF
	case 4:
		lo, hi = -0x80000000, 0x7FFFFFFF
	default:
		return zwave.Frame{}, fmt.Errorf("config param %d size %d: %w", param, size, ErrOutOfRange)
	}
	if value < lo || value > hi {
		return zwave.Frame{}, &ParamError{Param: param, Value: value}
	}

	payload := make([]byte, 2+size)
	payload[0] = param
	payload[1] = size
	v := uint32(int32(value))
	for i := uint8(0); i < size; i++ {
		payload[2+i] = byte(v >> (8 * (size - 1 - i)))
	}
	return zwave.Frame{
		CommandClass: zwave.ClassConfiguration,
		CommandID:    zwave.ConfigurationSet,
		Payload:      payload,
	}, nil
}

// CodeQuery builds a user code query for one slot.
func CodeQuery(slot uint8) zwave.Frame {
	return zwave.Frame{
		CommandClass: zwave.ClassUserCode,
		CommandID:    zwave.UserCodeGet,
		Payload:      []byte{slot},
	}
}

// CodeSet builds a user code write. The code must be 4-6 ASCII digits.
func CodeSet(slot uint8, code string) (zwave.Frame, error) {
	if !validCode(code) {
		return zwave.Frame{}, fmt.Errorf("slot %d: %w", slot, ErrBadCode)
	}
	payload := make([]byte, 0, 2+len(code))
	payload = append(payload, slot, zwave.UserIDStatusOccupied)
	payload = append(payload, code...)
	return zwave.Frame{
		CommandClass: zwave.ClassUserCode,
		CommandID:    zwave.UserCodeSet,
		Payload:      payload,
	}, nil
}

// CodeClear builds a user code erase for one slot.
func CodeClear(slot uint8) zwave.Frame {
	return zwave.Frame{
		CommandClass: zwave.ClassUserCode,
		CommandID:    zwave.UserCodeSet,
		Payload:      []byte{slot, zwave.UserIDStatusAvailable},
	}
}

func validCode(code string) bool {
	if len(code) < 4 || len(code) > 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
