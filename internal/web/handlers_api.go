package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"zwave-lock-bridge/internal/lock"
)

func (s *Server) handleAPIState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.drv.Status())
}

func (s *Server) handleAPILock(w http.ResponseWriter, r *http.Request) {
	if err := s.drv.Lock(r.Context()); err != nil {
		s.logger.Error("lock command", "err", err)
		s.writeJSON(w, http.StatusBadGateway, map[string]string{"error": "send failed"})
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "ok"})
}

func (s *Server) handleAPIUnlock(w http.ResponseWriter, r *http.Request) {
	if err := s.drv.Unlock(r.Context()); err != nil {
		s.logger.Error("unlock command", "err", err)
		s.writeJSON(w, http.StatusBadGateway, map[string]string{"error": "send failed"})
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "ok"})
}

func (s *Server) handleAPIRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.drv.Refresh(r.Context()); err != nil {
		s.logger.Error("refresh", "err", err)
		s.writeJSON(w, http.StatusBadGateway, map[string]string{"error": "send failed"})
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "ok"})
}

func (s *Server) handleAPIConfig(w http.ResponseWriter, r *http.Request) {
	var cfg lock.DeviceConfiguration
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := s.drv.Configure(r.Context(), cfg); err != nil {
		var pe *lock.ParamError
		if errors.As(err, &pe) {
			// Partial application: out-of-range parameters were skipped,
			// everything else was written.
			s.writeJSON(w, http.StatusOK, map[string]string{"status": "partial", "detail": err.Error()})
			return
		}
		s.logger.Error("apply config", "err", err)
		s.writeJSON(w, http.StatusBadGateway, map[string]string{"error": "send failed"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// codeView is a slot presence row. PINs are write-only and never appear in
// responses.
type codeView struct {
	Slot    uint8 `json:"slot"`
	Present bool  `json:"present"`
}

func (s *Server) handleAPIListCodes(w http.ResponseWriter, r *http.Request) {
	slots := s.drv.Status().Slots
	views := make([]codeView, 0, len(slots))
	for _, slot := range slots {
		views = append(views, codeView{Slot: slot.SlotID, Present: slot.Present})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"max_slots": s.drv.MaxSlots(),
		"slots":     views,
	})
}

func (s *Server) handleAPIRefreshCodes(w http.ResponseWriter, r *http.Request) {
	if err := s.drv.RequestCodes(r.Context()); err != nil {
		s.logger.Error("refresh codes", "err", err)
		s.writeJSON(w, http.StatusBadGateway, map[string]string{"error": "send failed"})
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "ok"})
}

type setCodeRequest struct {
	PIN string `json:"pin"`
}

func (s *Server) handleAPISetCode(w http.ResponseWriter, r *http.Request) {
	slot, ok := s.slotParam(w, r)
	if !ok {
		return
	}

	var req setCodeRequest
	r.Body = http.MaxBytesReader(w, r.Body, 4096)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := s.drv.SetCode(r.Context(), slot, req.PIN); err != nil {
		switch {
		case errors.Is(err, lock.ErrBadSlot), errors.Is(err, lock.ErrBadCode):
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			// The error never contains the PIN, only the slot.
			s.logger.Error("set code", "slot", slot, "err", err)
			s.writeJSON(w, http.StatusBadGateway, map[string]string{"error": "send failed"})
		}
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "ok"})
}

func (s *Server) handleAPIClearCode(w http.ResponseWriter, r *http.Request) {
	slot, ok := s.slotParam(w, r)
	if !ok {
		return
	}
	if err := s.drv.ClearCode(r.Context(), slot); err != nil {
		if errors.Is(err, lock.ErrBadSlot) {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		s.logger.Error("clear code", "slot", slot, "err", err)
		s.writeJSON(w, http.StatusBadGateway, map[string]string{"error": "send failed"})
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "ok"})
}

func (s *Server) handleAPIRemoveDevice(w http.ResponseWriter, r *http.Request) {
	s.drv.Remove()
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAPIListClasses(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.registry.All())
}

func (s *Server) handleAPIGetClass(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(strings.TrimPrefix(r.PathValue("id"), "0x"), 16, 16)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid class id"})
		return
	}
	c := s.registry.Get(uint16(id))
	if c == nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "class not found"})
		return
	}
	s.writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleAPIVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

func (s *Server) slotParam(w http.ResponseWriter, r *http.Request) (uint8, bool) {
	n, err := strconv.ParseUint(r.PathValue("slot"), 10, 8)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid slot"})
		return 0, false
	}
	return uint8(n), true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("write json response", "err", err)
	}
}
