package classes

import "zwave-lock-bridge/internal/zwave"

var Battery = zwave.ClassDef{
	ID:   zwave.ClassBattery,
	Name: "Battery",
	Commands: []zwave.CommandDef{
		{ID: zwave.BatteryGet, Name: "Get"},
		{ID: zwave.BatteryReport, Name: "Report"},
	},
}
