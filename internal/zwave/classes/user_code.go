package classes

import "zwave-lock-bridge/internal/zwave"

var UserCode = zwave.ClassDef{
	ID:   zwave.ClassUserCode,
	Name: "User Code",
	Commands: []zwave.CommandDef{
		{ID: zwave.UserCodeSet, Name: "Set"},
		{ID: zwave.UserCodeGet, Name: "Get"},
		{ID: zwave.UserCodeReport, Name: "Report"},
	},
}
