package classes

import "zwave-lock-bridge/internal/zwave"

var Configuration = zwave.ClassDef{
	ID:   zwave.ClassConfiguration,
	Name: "Configuration",
	Commands: []zwave.CommandDef{
		{ID: zwave.ConfigurationSet, Name: "Set"},
		{ID: zwave.ConfigurationGet, Name: "Get"},
		{ID: zwave.ConfigurationReport, Name: "Report"},
	},
}
