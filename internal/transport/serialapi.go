package transport

import (
	"fmt"

	"zwave-lock-bridge/internal/zwave"
)

// Z-Wave serial API framing: SOF, length, type, function ID, data, checksum.
// Single-byte control frames (ACK/NAK/CAN) flow between data frames.
const (
	sofByte byte = 0x01
	ackByte byte = 0x06
	nakByte byte = 0x15
	canByte byte = 0x18
)

const (
	frameTypeRequest  byte = 0x00
	frameTypeResponse byte = 0x01
)

// Serial API function IDs used by this bridge.
const (
	funcApplicationCommand byte = 0x04
	funcSendData           byte = 0x13
)

// txOptions: ACK + auto-route + explore, the standard reliable-delivery set.
const txOptions byte = 0x25

// dataFrame is one decoded serial API data frame.
type dataFrame struct {
	Type   byte
	FuncID byte
	Data   []byte
}

// tokenKind tags what the parser extracted from the byte stream.
type tokenKind int

const (
	tokenAck tokenKind = iota
	tokenNak
	tokenCan
	tokenFrame
	tokenBadFrame // checksum mismatch; receiver should NAK
)

type token struct {
	Kind  tokenKind
	Frame dataFrame
}

// checksum folds length..data with an 0xFF seed, per the serial API.
func checksum(data []byte) byte {
	c := byte(0xFF)
	for _, b := range data {
		c ^= b
	}
	return c
}

// encodeDataFrame wraps a function call into a full serial API frame.
func encodeDataFrame(frameType, funcID byte, data []byte) []byte {
	length := byte(len(data) + 3) // type + funcID + checksum
	out := make([]byte, 0, len(data)+5)
	out = append(out, sofByte, length, frameType, funcID)
	out = append(out, data...)
	out = append(out, checksum(out[1:]))
	return out
}

// parser reassembles data frames from an arbitrary chunked byte stream.
type parser struct {
	buf []byte
}

// Feed appends a chunk and extracts every complete token. Partial frames
// stay buffered for the next chunk; garbage before an SOF is skipped.
func (p *parser) Feed(chunk []byte) []token {
	p.buf = append(p.buf, chunk...)
	var tokens []token

	for len(p.buf) > 0 {
		switch p.buf[0] {
		case ackByte:
			tokens = append(tokens, token{Kind: tokenAck})
			p.buf = p.buf[1:]
			continue
		case nakByte:
			tokens = append(tokens, token{Kind: tokenNak})
			p.buf = p.buf[1:]
			continue
		case canByte:
			tokens = append(tokens, token{Kind: tokenCan})
			p.buf = p.buf[1:]
			continue
		case sofByte:
		default:
			// Desync: drop until something recognizable.
			p.buf = p.buf[1:]
			continue
		}

		if len(p.buf) < 2 {
			return tokens // need the length byte
		}
		length := int(p.buf[1])
		if length < 3 {
			// Impossible length; resync past the SOF.
			p.buf = p.buf[1:]
			continue
		}
		total := length + 2 // SOF + length byte + length payload
		if len(p.buf) < total {
			return tokens // incomplete frame
		}

		raw := p.buf[:total]
		p.buf = p.buf[total:]

		if checksum(raw[1:total-1]) != raw[total-1] {
			tokens = append(tokens, token{Kind: tokenBadFrame})
			continue
		}

		frame := dataFrame{Type: raw[2], FuncID: raw[3]}
		if total > 5 {
			frame.Data = append([]byte(nil), raw[4:total-1]...)
		}
		tokens = append(tokens, token{Kind: tokenFrame, Frame: frame})
	}
	return tokens
}

// encodeSendData builds the funcSendData payload for one application frame.
// Extended (two-byte) command classes are written high byte first.
func encodeSendData(nodeID uint8, f zwave.Frame, callbackID byte) []byte {
	var cmd []byte
	if f.CommandClass > 0xFF {
		cmd = append(cmd, byte(f.CommandClass>>8), byte(f.CommandClass))
	} else {
		cmd = append(cmd, byte(f.CommandClass))
	}
	cmd = append(cmd, f.CommandID)
	cmd = append(cmd, f.Payload...)

	out := make([]byte, 0, len(cmd)+4)
	out = append(out, nodeID, byte(len(cmd)))
	out = append(out, cmd...)
	out = append(out, txOptions, callbackID)
	return out
}

// decodeApplicationCommand parses a funcApplicationCommand frame into a
// report: rxStatus, source node, command length, then the command bytes.
func decodeApplicationCommand(data []byte) (srcNode uint8, rep zwave.Report, err error) {
	if len(data) < 5 {
		return 0, rep, fmt.Errorf("application command too short: %d bytes", len(data))
	}
	srcNode = data[1]
	cmdLen := int(data[2])
	cmd := data[3:]
	if cmdLen > len(cmd) {
		return 0, rep, fmt.Errorf("application command length %d exceeds %d available", cmdLen, len(cmd))
	}
	cmd = cmd[:cmdLen]
	if len(cmd) < 2 {
		return 0, rep, fmt.Errorf("application command missing class/command bytes")
	}

	class := uint16(cmd[0])
	idx := 1
	if cmd[0] >= 0xF1 && len(cmd) >= 3 {
		// Extended command class marker.
		class = uint16(cmd[0])<<8 | uint16(cmd[1])
		idx = 2
	}
	rep = zwave.Report{CommandClass: class, CommandID: cmd[idx]}
	if len(cmd) > idx+1 {
		rep.Args = append([]byte(nil), cmd[idx+1:]...)
	}
	return srcNode, rep, nil
}
