package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.bug.st/serial"

	"zwave-lock-bridge/internal/zwave"
)

const (
	ackTimeout  = 1600 * time.Millisecond
	sendRetries = 3
)

// SerialTransport talks to a Z-Wave controller over a serial port using the
// serial API framing. It keeps one read loop goroutine for the lifetime of
// the port.
type SerialTransport struct {
	port   serial.Port
	nodeID uint8
	logger *slog.Logger

	handlerMu sync.RWMutex
	handler   func(zwave.Report)

	writeMu sync.Mutex
	ackCh   chan tokenKind

	callbackID byte

	closeOnce sync.Once
	closed    chan struct{}
}

// NewSerialTransport opens the port and starts the read loop. nodeID is the
// paired lock's node on the mesh; reports from other nodes are dropped.
func NewSerialTransport(portName string, baud int, nodeID uint8, logger *slog.Logger) (*SerialTransport, error) {
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}

	t := &SerialTransport{
		port:   port,
		nodeID: nodeID,
		logger: logger.With("component", "transport"),
		ackCh:  make(chan tokenKind, 4),
		closed: make(chan struct{}),
	}
	go t.readLoop()
	t.logger.Info("serial transport opened", "port", portName, "baud", baud, "node", nodeID)
	return t, nil
}

// OnReport registers the inbound report handler.
func (t *SerialTransport) OnReport(handler func(zwave.Report)) {
	t.handlerMu.Lock()
	t.handler = handler
	t.handlerMu.Unlock()
}

// SendFrame transmits one frame and waits for the controller's ACK,
// retrying on NAK, CAN or timeout. The per-frame retry budget lives here;
// the core never retries.
func (t *SerialTransport) SendFrame(ctx context.Context, f zwave.Frame) error {
	select {
	case <-t.closed:
		return ErrClosed
	default:
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.callbackID++
	if t.callbackID == 0 {
		t.callbackID = 1
	}
	raw := encodeDataFrame(frameTypeRequest, funcSendData, encodeSendData(t.nodeID, f, t.callbackID))

	var lastErr error
	for attempt := 0; attempt < sendRetries; attempt++ {
		// Drain stale acks from a previous exchange.
		for {
			select {
			case <-t.ackCh:
				continue
			default:
			}
			break
		}

		if _, err := t.port.Write(raw); err != nil {
			return fmt.Errorf("write frame %s: %w", f, err)
		}

		timer := time.NewTimer(ackTimeout)
		select {
		case k := <-t.ackCh:
			timer.Stop()
			switch k {
			case tokenAck:
				t.logger.Debug("frame sent", "frame", f.String(), "attempt", attempt+1)
				return nil
			case tokenCan:
				lastErr = fmt.Errorf("controller cancelled frame")
			default:
				lastErr = fmt.Errorf("controller rejected frame")
			}
		case <-timer.C:
			lastErr = ErrNoAck
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-t.closed:
			timer.Stop()
			return ErrClosed
		}
	}
	return fmt.Errorf("send %s after %d attempts: %w", f, sendRetries, lastErr)
}

// Close stops the read loop and closes the port.
func (t *SerialTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.closed)
		err = t.port.Close()
		t.logger.Info("serial transport closed")
	})
	return err
}

func (t *SerialTransport) readLoop() {
	var p parser
	buf := make([]byte, 256)

	for {
		n, err := t.port.Read(buf)
		if err != nil {
			select {
			case <-t.closed:
				return
			default:
			}
			t.logger.Error("serial read", "err", err)
			return
		}
		if n == 0 {
			continue
		}

		for _, tok := range p.Feed(buf[:n]) {
			switch tok.Kind {
			case tokenAck, tokenNak, tokenCan:
				select {
				case t.ackCh <- tok.Kind:
				default:
				}
			case tokenBadFrame:
				t.logger.Warn("frame with bad checksum")
				t.write([]byte{nakByte})
			case tokenFrame:
				t.write([]byte{ackByte})
				t.handleFrame(tok.Frame)
			}
		}
	}
}

func (t *SerialTransport) handleFrame(f dataFrame) {
	if f.Type != frameTypeRequest {
		return
	}
	switch f.FuncID {
	case funcApplicationCommand:
		src, rep, err := decodeApplicationCommand(f.Data)
		if err != nil {
			t.logger.Warn("malformed application command", "err", err)
			return
		}
		if src != t.nodeID {
			t.logger.Debug("report from foreign node dropped", "node", src)
			return
		}
		t.handlerMu.RLock()
		h := t.handler
		t.handlerMu.RUnlock()
		if h != nil {
			h(rep)
		}
	case funcSendData:
		// Transmit callback; delivery status is best-effort at this layer.
		t.logger.Debug("send data callback", "data", f.Data)
	default:
		t.logger.Debug("unhandled serial function", "func", fmt.Sprintf("0x%02X", f.FuncID))
	}
}

func (t *SerialTransport) write(b []byte) {
	if _, err := t.port.Write(b); err != nil {
		t.logger.Error("serial write", "err", err)
	}
}
