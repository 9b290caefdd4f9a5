package zwave

import (
	"fmt"
	"log/slog"
	"sync"
)

// Registry holds the known command class definitions.
type Registry struct {
	mu      sync.RWMutex
	classes map[uint16]*ClassDef
	logger  *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		classes: make(map[uint16]*ClassDef),
		logger:  logger,
	}
}

// Register adds a class definition, replacing any previous definition with
// the same ID.
func (r *Registry) Register(c ClassDef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *c.DeepCopy()
	r.classes[c.ID] = &clone
	r.logger.Debug("command class registered", "id", fmt.Sprintf("0x%02X", c.ID), "name", c.Name)
}

// Get returns a class definition by ID, or nil if not found.
// The returned value is a deep copy; callers may modify it safely.
func (r *Registry) Get(id uint16) *ClassDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := r.classes[id]
	if c == nil {
		return nil
	}
	return c.DeepCopy()
}

// All returns all registered class definitions.
func (r *Registry) All() []ClassDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]ClassDef, 0, len(r.classes))
	for _, c := range r.classes {
		result = append(result, *c.DeepCopy())
	}
	return result
}

// CommandName returns a human-readable "Class.Command" label for a
// (class, command) pair, falling back to hex for unknown IDs.
func (r *Registry) CommandName(class uint16, cmd uint8) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := r.classes[class]
	if c == nil {
		return fmt.Sprintf("0x%02X.0x%02X", class, cmd)
	}
	if cd := c.FindCommand(cmd); cd != nil {
		return c.Name + "." + cd.Name
	}
	return fmt.Sprintf("%s.0x%02X", c.Name, cmd)
}
