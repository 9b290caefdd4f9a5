package zwave

// CommandDef names a single command within a command class.
type CommandDef struct {
	ID   uint8  `json:"id"`
	Name string `json:"name"`
}

// ClassDef defines a command class with its named commands. Definitions are
// descriptive only: the decoder dispatches on raw IDs, the registry exists
// for logging and the status API.
type ClassDef struct {
	ID       uint16       `json:"id"`
	Name     string       `json:"name"`
	Commands []CommandDef `json:"commands,omitempty"`
}

// FindCommand looks up a command by ID.
func (c *ClassDef) FindCommand(id uint8) *CommandDef {
	for i := range c.Commands {
		if c.Commands[i].ID == id {
			return &c.Commands[i]
		}
	}
	return nil
}

// DeepCopy returns a deep copy of the class definition.
func (c *ClassDef) DeepCopy() *ClassDef {
	cp := *c
	if c.Commands != nil {
		cp.Commands = make([]CommandDef, len(c.Commands))
		copy(cp.Commands, c.Commands)
	}
	return &cp
}
