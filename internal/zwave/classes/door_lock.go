package classes

import "zwave-lock-bridge/internal/zwave"

var DoorLock = zwave.ClassDef{
	ID:   zwave.ClassDoorLock,
	Name: "Door Lock",
	Commands: []zwave.CommandDef{
		{ID: zwave.DoorLockOperationSet, Name: "OperationSet"},
		{ID: zwave.DoorLockOperationGet, Name: "OperationGet"},
		{ID: zwave.DoorLockOperationReport, Name: "OperationReport"},
	},
}
