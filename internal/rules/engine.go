//go:build !no_rules

// Package rules runs user Lua scripts against the driver event stream. A
// script registers handlers with bridge.on and reacts to lock, battery,
// and code events; it can issue lock commands back through the bridge
// module.
package rules

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"zwave-lock-bridge/internal/driver"
	"zwave-lock-bridge/internal/lock"
)

// luaEventHandler is a registered Lua callback for a specific event pattern.
type luaEventHandler struct {
	eventType  string
	capability string // filter: only capability events with this capability (empty = any)
	attribute  string // filter: only capability events with this attribute (empty = any)
	fn         *lua.LFunction
}

// scriptVM is a running Lua VM for a single script.
type scriptVM struct {
	state    *lua.LState
	commands chan func(*lua.LState) // serializes Lua access
	handlers []luaEventHandler
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex // protects handlers
}

// Engine manages Lua VMs and dispatches bus events to scripts.
type Engine struct {
	drv    *driver.Driver
	dir    string
	logger *slog.Logger

	mu    sync.Mutex
	vms   map[string]*scriptVM // script name -> running VM
	unsub func()
}

// NewEngine creates a rules engine rooted at a scripts directory.
func NewEngine(drv *driver.Driver, dir string, logger *slog.Logger) *Engine {
	return &Engine{
		drv:    drv,
		dir:    dir,
		logger: logger.With("component", "rules"),
		vms:    make(map[string]*scriptVM),
	}
}

// Start loads all *.lua scripts from the directory and subscribes to the
// driver bus. A missing directory is not an error; the engine just idles.
func (e *Engine) Start() error {
	e.unsub = e.drv.Bus().OnAll(e.dispatchEvent)

	entries, err := os.ReadDir(e.dir)
	if err != nil {
		if os.IsNotExist(err) {
			e.logger.Info("no rules directory, engine idle", "dir", e.dir)
			return nil
		}
		return fmt.Errorf("read rules dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".lua") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".lua")
		if err := e.startScript(name, filepath.Join(e.dir, entry.Name())); err != nil {
			e.logger.Error("start script", "name", name, "err", err)
		}
	}

	e.logger.Info("rules engine started", "scripts", len(e.vms))
	return nil
}

// Stop cancels all VMs and unsubscribes from the bus.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for name, vm := range e.vms {
		vm.cancel()
		delete(e.vms, name)
	}

	if e.unsub != nil {
		e.unsub()
	}

	e.logger.Info("rules engine stopped")
}

// Running returns the names of loaded scripts.
func (e *Engine) Running() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, 0, len(e.vms))
	for name := range e.vms {
		names = append(names, name)
	}
	return names
}

func (e *Engine) startScript(name, path string) error {
	code, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	L := lua.NewState(lua.Options{SkipOpenLibs: false})
	sandbox(L)

	vm := &scriptVM{
		state:    L,
		commands: make(chan func(*lua.LState), 64),
		ctx:      ctx,
		cancel:   cancel,
	}

	registerBridgeModule(L, vm, e)

	// Execute the script top level to register handlers.
	if err := L.DoString(string(code)); err != nil {
		cancel()
		L.Close()
		return fmt.Errorf("execute script %s: %w", name, err)
	}

	e.mu.Lock()
	e.vms[name] = vm
	e.mu.Unlock()

	// Command loop goroutine, exits when the context is cancelled.
	go func() {
		defer L.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case fn := <-vm.commands:
				fn(L)
			}
		}
	}()

	e.logger.Info("script started", "name", name)
	return nil
}

// sandbox removes libraries that would let scripts reach outside the VM.
func sandbox(L *lua.LState) {
	L.SetGlobal("os", lua.LNil)
	L.SetGlobal("io", lua.LNil)
	L.SetGlobal("loadfile", lua.LNil)
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("require", lua.LNil)
	L.SetGlobal("load", lua.LNil)
	L.SetGlobal("debug", lua.LNil)
	L.SetGlobal("package", lua.LNil)
}

// dispatchEvent routes a bus event to all matching Lua handlers.
func (e *Engine) dispatchEvent(event driver.Event) {
	e.mu.Lock()
	vmsCopy := make(map[string]*scriptVM, len(e.vms))
	for k, v := range e.vms {
		vmsCopy[k] = v
	}
	e.mu.Unlock()

	for _, vm := range vmsCopy {
		vm.mu.Lock()
		handlers := make([]luaEventHandler, len(vm.handlers))
		copy(handlers, vm.handlers)
		vm.mu.Unlock()

		for _, h := range handlers {
			if !matchesHandler(h, event) {
				continue
			}

			fn := h.fn
			select {
			case <-vm.ctx.Done():
			case vm.commands <- func(L *lua.LState) {
				e.callHandler(L, fn, event)
			}:
			default:
				e.logger.Warn("script command channel full, dropping event")
			}
		}
	}
}

func matchesHandler(h luaEventHandler, event driver.Event) bool {
	if h.eventType != event.Type {
		return false
	}
	if h.capability == "" && h.attribute == "" {
		return true
	}

	ce, ok := event.Data.(lock.CapabilityEvent)
	if !ok {
		return false
	}
	if h.capability != "" && ce.Capability != h.capability {
		return false
	}
	if h.attribute != "" && ce.Attribute != h.attribute {
		return false
	}
	return true
}

func (e *Engine) callHandler(L *lua.LState, fn *lua.LFunction, event driver.Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("lua handler panic", "err", r)
		}
	}()

	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, eventToLua(L, event)); err != nil {
		e.logger.Error("lua handler error", "err", err)
	}
}

// eventToLua builds the event table handed to handlers.
func eventToLua(L *lua.LState, event driver.Event) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("type", lua.LString(event.Type))

	switch data := event.Data.(type) {
	case lock.CapabilityEvent:
		t.RawSetString("capability", lua.LString(data.Capability))
		t.RawSetString("attribute", lua.LString(data.Attribute))
		t.RawSetString("value", goToLua(L, data.Value))
		if len(data.Metadata) > 0 {
			meta := L.NewTable()
			for k, v := range data.Metadata {
				meta.RawSetString(k, goToLua(L, v))
			}
			t.RawSetString("metadata", meta)
		}
	case string:
		t.RawSetString("state", lua.LString(data))
	case map[string]any:
		for k, v := range data {
			t.RawSetString(k, goToLua(L, v))
		}
	}
	return t
}

// goToLua converts a Go value to a Lua value.
func goToLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case uint8:
		return lua.LNumber(val)
	case uint16:
		return lua.LNumber(val)
	case uint32:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case int8:
		return lua.LNumber(val)
	case int16:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case map[string]any:
		t := L.NewTable()
		for k, vv := range val {
			t.RawSetString(k, goToLua(L, vv))
		}
		return t
	case []any:
		t := L.NewTable()
		for i, vv := range val {
			t.RawSetInt(i+1, goToLua(L, vv))
		}
		return t
	default:
		return lua.LString(fmt.Sprintf("%v", val))
	}
}
