package zwave

import "fmt"

// Frame is an outbound frame descriptor handed to the transport. The
// transport owns serialization onto the wire; the rest of the bridge only
// deals in (class, command, payload) triples.
type Frame struct {
	CommandClass uint16
	CommandID    uint8
	Payload      []byte
}

// Report is an inbound raw report tuple delivered by the transport.
type Report struct {
	CommandClass uint16
	CommandID    uint8
	Args         []byte
}

// String renders the frame for logging: class/command names when known,
// hex otherwise.
func (f Frame) String() string {
	return fmt.Sprintf("0x%02X/0x%02X len=%d", f.CommandClass, f.CommandID, len(f.Payload))
}

// String renders the report for logging.
func (r Report) String() string {
	return fmt.Sprintf("0x%02X/0x%02X len=%d", r.CommandClass, r.CommandID, len(r.Args))
}
