package classes

import "zwave-lock-bridge/internal/zwave"

var Notification = zwave.ClassDef{
	ID:   zwave.ClassNotification,
	Name: "Notification",
	Commands: []zwave.CommandDef{
		{ID: zwave.NotificationReport, Name: "Report"},
	},
}
