package lock

import (
	"fmt"
	"log/slog"

	"zwave-lock-bridge/internal/zwave"
)

// Decoder turns raw inbound reports into typed domain events. Decoding is a
// pure function of the report; it never mutates state.
type Decoder struct {
	logger *slog.Logger
}

// NewDecoder creates a decoder.
func NewDecoder(logger *slog.Logger) *Decoder {
	return &Decoder{logger: logger}
}

type dispatchKey struct {
	class uint16
	cmd   uint8
}

// reportDecoders is the closed dispatch table keyed by (class, command).
// Anything not in this table decodes to a DecodeError, which callers drop.
var reportDecoders = map[dispatchKey]func(*Decoder, []byte) (Event, error){
	{zwave.ClassDoorLock, zwave.DoorLockOperationReport}: (*Decoder).decodeOperation,
	{zwave.ClassBattery, zwave.BatteryReport}:            (*Decoder).decodeBattery,
	{zwave.ClassUserCode, zwave.UserCodeReport}:          (*Decoder).decodeUserCode,
	{zwave.ClassNotification, zwave.NotificationReport}:  (*Decoder).decodeNotification,
}

// Decode dispatches a report to its decoder. Unknown (class, command) pairs
// return a *DecodeError wrapping ErrUnhandled; the caller discards them.
func (d *Decoder) Decode(rep zwave.Report) (Event, error) {
	fn, ok := reportDecoders[dispatchKey{rep.CommandClass, rep.CommandID}]
	if !ok {
		d.logger.Debug("unhandled report", "report", rep.String())
		return nil, &DecodeError{CommandClass: rep.CommandClass, CommandID: rep.CommandID}
	}
	return fn(d, rep.Args)
}

func (d *Decoder) decodeOperation(args []byte) (Event, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("operation report: empty payload")
	}
	mode := args[0]
	st := StateUnknown
	switch mode {
	case zwave.LockModeSecured:
		st = StateLocked
	case zwave.LockModeUnsecured:
		st = StateUnlocked
	default:
		// Unknown mode bytes are never fatal: firmware variants report
		// transitional modes this bridge does not model.
		d.logger.Debug("unknown lock mode byte", "mode", fmt.Sprintf("0x%02X", mode))
	}
	return StateChanged{State: st, RawMode: mode}, nil
}

func (d *Decoder) decodeBattery(args []byte) (Event, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("battery report: empty payload")
	}
	level := args[0]
	if level == zwave.BatteryLowSentinel {
		// The sentinel means "critically low", not zero.
		return BatteryChanged{Level: 1, Low: true}, nil
	}
	if level > 100 {
		level = 100
	}
	return BatteryChanged{Level: level}, nil
}

func (d *Decoder) decodeUserCode(args []byte) (Event, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("user code report: payload too short")
	}
	// args: slot, status, code bytes. Presence follows the code bytes, not
	// the status byte: some firmware reports occupied status with an empty
	// code after a factory reset.
	return CodeReported{Slot: args[0], Present: len(args) > 2}, nil
}

func (d *Decoder) decodeNotification(args []byte) (Event, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("notification report: payload too short")
	}
	n := Notification{Type: args[0], Event: args[1]}
	if len(args) > 2 {
		n.Param = append([]byte(nil), args[2:]...)
	}
	return n, nil
}
