//go:build !no_rules

package rules

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"zwave-lock-bridge/internal/driver"
	"zwave-lock-bridge/internal/store"
	"zwave-lock-bridge/internal/zwave"
)

type stubTransport struct {
	mu      sync.Mutex
	sent    []zwave.Frame
	handler func(zwave.Report)
}

func (s *stubTransport) SendFrame(_ context.Context, f zwave.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, f)
	return nil
}

func (s *stubTransport) OnReport(h func(zwave.Report)) { s.handler = h }
func (s *stubTransport) Close() error                  { return nil }

func (s *stubTransport) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type stubStore struct {
	mu    sync.Mutex
	snaps map[uint8]*store.Snapshot
}

func newStubStore() *stubStore {
	return &stubStore{snaps: make(map[uint8]*store.Snapshot)}
}

func (s *stubStore) SaveSnapshot(snap *store.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *snap
	s.snaps[snap.NodeID] = &cp
	return nil
}

func (s *stubStore) GetSnapshot(nodeID uint8) (*store.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snaps[nodeID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *snap
	return &cp, nil
}

func (s *stubStore) DeleteSnapshot(nodeID uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, nodeID)
	return nil
}

func (s *stubStore) UpdateSnapshot(nodeID uint8, fn func(*store.Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snaps[nodeID]
	if !ok {
		return store.ErrNotFound
	}
	return fn(snap)
}

func (s *stubStore) Close() error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeScript(t *testing.T, dir, name, code string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(code), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestEngine(t *testing.T, dir string) (*Engine, *stubTransport) {
	t.Helper()
	logger := testLogger()
	tr := &stubTransport{}
	bus := driver.NewBus(logger)
	drv := driver.New(tr, newStubStore(), driver.NewVariantDB(), bus, driver.Config{NodeID: 5}, logger)

	e := NewEngine(drv, dir, logger)
	t.Cleanup(e.Stop)
	return e, tr
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestEngineLoadsScripts(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "relock.lua", `bridge.on("capability", {}, function(event) end)`)
	writeScript(t, dir, "notes.txt", `not a script`)

	e, _ := newTestEngine(t, dir)
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}

	running := e.Running()
	if len(running) != 1 || running[0] != "relock" {
		t.Errorf("running = %v, want [relock]", running)
	}
}

func TestEngineMissingDir(t *testing.T) {
	e, _ := newTestEngine(t, filepath.Join(t.TempDir(), "nope"))
	if err := e.Start(); err != nil {
		t.Fatalf("missing dir should not fail start: %v", err)
	}
	if len(e.Running()) != 0 {
		t.Errorf("running = %v, want none", e.Running())
	}
}

func TestEngineBadScriptSkipped(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "good.lua", `bridge.log("loaded")`)
	writeScript(t, dir, "bad.lua", `this is not lua ((`)

	e, _ := newTestEngine(t, dir)
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	running := e.Running()
	if len(running) != 1 || running[0] != "good" {
		t.Errorf("running = %v, want [good]", running)
	}
}

func TestHandlerReactsToUnlock(t *testing.T) {
	dir := t.TempDir()
	// Relock whenever the lock reports unlocked.
	writeScript(t, dir, "relock.lua", `
bridge.on("capability", {capability = "lock"}, function(event)
  if event.value == "unlocked" then
    bridge.lock()
  end
end)
`)

	e, tr := newTestEngine(t, dir)
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}

	tr.handler(zwave.Report{
		CommandClass: zwave.ClassDoorLock,
		CommandID:    zwave.DoorLockOperationReport,
		Args:         []byte{zwave.LockModeUnsecured},
	})

	waitFor(t, func() bool { return tr.sentCount() == 1 }, "script did not send lock frame")

	tr.mu.Lock()
	frame := tr.sent[0]
	tr.mu.Unlock()
	if frame.CommandClass != zwave.ClassDoorLock || frame.Payload[0] != zwave.OperationLock {
		t.Errorf("frame = %v, want door lock operation set", frame)
	}
}

func TestHandlerFilterMismatch(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "battery_watch.lua", `
bridge.on("capability", {capability = "battery"}, function(event)
  bridge.refresh()
end)
`)

	e, tr := newTestEngine(t, dir)
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}

	// A lock event must not trigger the battery handler.
	tr.handler(zwave.Report{
		CommandClass: zwave.ClassDoorLock,
		CommandID:    zwave.DoorLockOperationReport,
		Args:         []byte{zwave.LockModeSecured},
	})

	time.Sleep(50 * time.Millisecond)
	if tr.sentCount() != 0 {
		t.Errorf("sent %d frames, want 0", tr.sentCount())
	}
}

func TestBridgeStateAndBattery(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "probe.lua", `
bridge.on("driver_state", {}, function(event)
  if event.state == "ready" and bridge.state() == "locked" and bridge.battery() == 80 then
    bridge.refresh()
  end
end)
`)

	e, tr := newTestEngine(t, dir)
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}

	tr.handler(zwave.Report{
		CommandClass: zwave.ClassDoorLock,
		CommandID:    zwave.DoorLockOperationReport,
		Args:         []byte{zwave.LockModeSecured},
	})
	tr.handler(zwave.Report{
		CommandClass: zwave.ClassBattery,
		CommandID:    zwave.BatteryReport,
		Args:         []byte{80},
	})

	e.drv.Bus().Emit(driver.Event{Type: driver.EventDriverState, Data: "ready"})

	// Refresh sends a battery query and a lock state query.
	waitFor(t, func() bool { return tr.sentCount() == 2 }, "probe script did not run")
}

func TestAfterSchedulesCallback(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "timer.lua", `
bridge.on("driver_state", {}, function(event)
  bridge.after(0.05, function()
    bridge.lock()
  end)
end)
`)

	e, tr := newTestEngine(t, dir)
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}

	e.drv.Bus().Emit(driver.Event{Type: driver.EventDriverState, Data: "starting"})

	waitFor(t, func() bool { return tr.sentCount() == 1 }, "timer callback did not fire")
}

func TestSandboxBlocksOS(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "escape.lua", `os.execute("true")`)

	e, _ := newTestEngine(t, dir)
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	if len(e.Running()) != 0 {
		t.Errorf("sandboxed script should fail to load, running = %v", e.Running())
	}
}
