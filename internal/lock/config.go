package lock

import (
	"log/slog"

	"zwave-lock-bridge/internal/zwave"
)

// Configuration parameter numbers for the supported lock family. These must
// match the firmware exactly; the auto-relock parameter differs per variant
// and lives in FirmwareVariant instead.
const (
	ParamAudibleAlarm    uint8 = 5
	ParamLockVolume      uint8 = 6
	ParamBeeperVolume    uint8 = 7
	ParamWrongCodeLimit  uint8 = 8
	ParamWrongCodeMins   uint8 = 9
	ParamPanelLockout    uint8 = 10
)

const (
	paramOn  = 255
	paramOff = 0

	maxVolume         = 10
	maxWrongCodeLimit = 10
)

// TranslateConfig maps user preferences to an ordered sequence of
// configuration-set frames.
//
// The audible-alarm frame always comes first; the device acknowledges
// parameters in that order and reordering has been observed to drop the
// relock write. Auto-relock is only written when enabled; when disabled the
// device's prior setting is left unchanged, a documented limitation. The
// remaining parameters follow the same asymmetry: a zero volume or limit
// means "leave the device setting alone", not "set to zero".
//
// A preference outside its protocol range skips that parameter only; the
// rest of the sequence is still produced. The skips come back as
// *ParamError values.
//
// StatusReportEnabled maps to no frame at all; it only toggles driver-side
// event logging verbosity.
func TranslateConfig(cfg DeviceConfiguration, variant FirmwareVariant, logger *slog.Logger) ([]zwave.Frame, []error) {
	var frames []zwave.Frame
	var errs []error

	add := func(param, size uint8, value int) {
		f, err := ConfigParam(param, size, value)
		if err != nil {
			logger.Warn("config parameter skipped", "param", param, "value", value, "err", err)
			errs = append(errs, err)
			return
		}
		frames = append(frames, f)
	}

	alarm := paramOff
	if cfg.AudibleAlarmEnabled {
		alarm = paramOn
	}
	add(ParamAudibleAlarm, 1, alarm)

	if cfg.AutoRelockEnabled {
		add(variant.RelockParam, variant.RelockSize, int(cfg.AutoRelockSeconds))
	}

	if cfg.LockVolume > 0 {
		if cfg.LockVolume > maxVolume {
			errs = append(errs, &ParamError{Param: ParamLockVolume, Value: int(cfg.LockVolume)})
		} else {
			add(ParamLockVolume, 1, int(cfg.LockVolume))
		}
	}
	if cfg.BeeperVolume > 0 {
		if cfg.BeeperVolume > maxVolume {
			errs = append(errs, &ParamError{Param: ParamBeeperVolume, Value: int(cfg.BeeperVolume)})
		} else {
			add(ParamBeeperVolume, 1, int(cfg.BeeperVolume))
		}
	}
	if cfg.WrongCodeLimit > 0 {
		if cfg.WrongCodeLimit > maxWrongCodeLimit {
			errs = append(errs, &ParamError{Param: ParamWrongCodeLimit, Value: int(cfg.WrongCodeLimit)})
		} else {
			add(ParamWrongCodeLimit, 1, int(cfg.WrongCodeLimit))
			if cfg.WrongCodeDisableMinutes > 0 {
				add(ParamWrongCodeMins, 1, int(cfg.WrongCodeDisableMinutes))
			}
		}
	}
	if cfg.PanelLockout {
		add(ParamPanelLockout, 1, paramOn)
	}

	return frames, errs
}
