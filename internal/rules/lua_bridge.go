//go:build !no_rules

package rules

import (
	"context"
	"time"

	lua "github.com/yuin/gopher-lua"
)

const maxHandlersPerScript = 100

// registerBridgeModule registers the `bridge` global table in a Lua state.
func registerBridgeModule(L *lua.LState, vm *scriptVM, e *Engine) {
	mod := L.NewTable()

	mod.RawSetString("on", L.NewFunction(func(L *lua.LState) int {
		return bridgeOn(L, vm)
	}))

	mod.RawSetString("lock", L.NewFunction(func(L *lua.LState) int {
		return bridgeCommand(L, e, "lock")
	}))

	mod.RawSetString("unlock", L.NewFunction(func(L *lua.LState) int {
		return bridgeCommand(L, e, "unlock")
	}))

	mod.RawSetString("refresh", L.NewFunction(func(L *lua.LState) int {
		return bridgeCommand(L, e, "refresh")
	}))

	mod.RawSetString("state", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(e.drv.Status().LockState))
		return 1
	}))

	mod.RawSetString("battery", L.NewFunction(func(L *lua.LState) int {
		status := e.drv.Status()
		if status.Battery < 0 {
			L.Push(lua.LNil)
		} else {
			L.Push(lua.LNumber(status.Battery))
		}
		return 1
	}))

	mod.RawSetString("after", L.NewFunction(func(L *lua.LState) int {
		return bridgeAfter(L, vm, e)
	}))

	mod.RawSetString("log", L.NewFunction(func(L *lua.LState) int {
		msg := L.CheckString(1)
		e.logger.Info("script log", "msg", msg)
		return 0
	}))

	L.SetGlobal("bridge", mod)
}

// bridge.on(type, filter, callback). The filter table may carry
// "capability" and "attribute" keys; pass {} to match every event of the
// type.
func bridgeOn(L *lua.LState, vm *scriptVM) int {
	eventType := L.CheckString(1)
	filterTable := L.CheckTable(2)
	fn := L.CheckFunction(3)

	h := luaEventHandler{
		eventType: eventType,
		fn:        fn,
	}

	if v := filterTable.RawGetString("capability"); v != lua.LNil {
		h.capability = v.String()
	}
	if v := filterTable.RawGetString("attribute"); v != lua.LNil {
		h.attribute = v.String()
	}

	vm.mu.Lock()
	if len(vm.handlers) >= maxHandlersPerScript {
		vm.mu.Unlock()
		L.RaiseError("too many handlers (max %d)", maxHandlersPerScript)
		return 0
	}
	vm.handlers = append(vm.handlers, h)
	vm.mu.Unlock()

	return 0
}

// bridge.lock() / bridge.unlock() / bridge.refresh()
func bridgeCommand(L *lua.LState, e *Engine, cmd string) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	switch cmd {
	case "lock":
		err = e.drv.Lock(ctx)
	case "unlock":
		err = e.drv.Unlock(ctx)
	case "refresh":
		err = e.drv.Refresh(ctx)
	}
	if err != nil {
		e.logger.Error("script command failed", "cmd", cmd, "err", err)
	}
	return 0
}

// bridge.after(seconds, callback) schedules a callback on the script's VM.
func bridgeAfter(L *lua.LState, vm *scriptVM, e *Engine) int {
	seconds := L.CheckNumber(1)
	fn := L.CheckFunction(2)

	delay := time.Duration(float64(seconds) * float64(time.Second))
	if delay < 0 {
		L.RaiseError("negative delay")
		return 0
	}

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-vm.ctx.Done():
			return
		case <-timer.C:
		}

		select {
		case <-vm.ctx.Done():
		case vm.commands <- func(L *lua.LState) {
			if err := L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}); err != nil {
				e.logger.Error("deferred callback error", "err", err)
			}
		}:
		default:
			e.logger.Warn("script command channel full, dropping timer callback")
		}
	}()

	return 0
}
