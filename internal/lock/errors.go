package lock

import (
	"errors"
	"fmt"
)

// ErrUnhandled marks an inbound (class, command) pair this core does not
// decode. Callers drop these; unknown protocol data is never fatal.
var ErrUnhandled = errors.New("unhandled command")

// ErrOutOfRange marks an outbound value that does not fit the protocol
// field it is destined for. Unlike inbound errors this one is a caller bug
// and is rejected synchronously.
var ErrOutOfRange = errors.New("value out of range")

// ErrBadTarget marks a lock-set intent with a target other than
// locked/unlocked.
var ErrBadTarget = errors.New("invalid target state")

// ErrBadCode marks a user code that is not 4-6 digits.
var ErrBadCode = errors.New("user code must be 4-6 digits")

// ErrBadSlot marks a slot ID outside the firmware's slot range.
var ErrBadSlot = errors.New("slot id out of range")

// DecodeError wraps ErrUnhandled with the offending (class, command) pair.
type DecodeError struct {
	CommandClass uint16
	CommandID    uint8
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode 0x%02X/0x%02X: %v", e.CommandClass, e.CommandID, ErrUnhandled)
}

func (e *DecodeError) Unwrap() error { return ErrUnhandled }

// ParamError wraps ErrOutOfRange with the configuration parameter that was
// skipped during translation.
type ParamError struct {
	Param uint8
	Value int
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("config param %d value %d: %v", e.Param, e.Value, ErrOutOfRange)
}

func (e *ParamError) Unwrap() error { return ErrOutOfRange }
