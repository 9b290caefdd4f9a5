package lock

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"zwave-lock-bridge/internal/zwave"
)

// The canonical determinism case: audible alarm off + auto-relock 45s must
// produce exactly two frames, audible alarm first.
func TestTranslateConfigDeterminism(t *testing.T) {
	cfg := DeviceConfiguration{
		AutoRelockEnabled:   true,
		AutoRelockSeconds:   45,
		AudibleAlarmEnabled: false,
	}

	for _, variant := range []FirmwareVariant{VariantA, VariantB} {
		t.Run("variant "+variant.Name, func(t *testing.T) {
			frames, errs := TranslateConfig(cfg, variant, testLogger())
			if len(errs) != 0 {
				t.Fatalf("errs = %v, want none", errs)
			}
			if len(frames) != 2 {
				t.Fatalf("got %d frames, want exactly 2", len(frames))
			}

			wantAlarm := []byte{ParamAudibleAlarm, 1, 0}
			if diff := cmp.Diff(wantAlarm, frames[0].Payload); diff != "" {
				t.Errorf("audible alarm frame mismatch (-want +got):\n%s", diff)
			}

			relock := frames[1].Payload
			if relock[0] != variant.RelockParam || relock[1] != variant.RelockSize {
				t.Errorf("relock frame header = %v, want param %d size %d",
					relock[:2], variant.RelockParam, variant.RelockSize)
			}
			if relock[len(relock)-1] != 45 {
				t.Errorf("relock seconds byte = %d, want 45", relock[len(relock)-1])
			}
		})
	}
}

func TestTranslateConfigRelockOnlyWhenEnabled(t *testing.T) {
	frames, errs := TranslateConfig(DeviceConfiguration{
		AutoRelockEnabled:   false,
		AutoRelockSeconds:   45,
		AudibleAlarmEnabled: true,
	}, VariantA, testLogger())
	if len(errs) != 0 {
		t.Fatalf("errs = %v, want none", errs)
	}
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1 (audible alarm only)", len(frames))
	}
	want := []byte{ParamAudibleAlarm, 1, 255}
	if diff := cmp.Diff(want, frames[0].Payload); diff != "" {
		t.Errorf("frame mismatch (-want +got):\n%s", diff)
	}
}

func TestTranslateConfigFullSet(t *testing.T) {
	cfg := DeviceConfiguration{
		AutoRelockEnabled:       true,
		AutoRelockSeconds:       30,
		AudibleAlarmEnabled:     true,
		LockVolume:              7,
		BeeperVolume:            4,
		WrongCodeLimit:          5,
		WrongCodeDisableMinutes: 2,
		PanelLockout:            true,
	}
	frames, errs := TranslateConfig(cfg, VariantA, testLogger())
	if len(errs) != 0 {
		t.Fatalf("errs = %v, want none", errs)
	}

	wantParams := []uint8{
		ParamAudibleAlarm,
		VariantA.RelockParam,
		ParamLockVolume,
		ParamBeeperVolume,
		ParamWrongCodeLimit,
		ParamWrongCodeMins,
		ParamPanelLockout,
	}
	if len(frames) != len(wantParams) {
		t.Fatalf("got %d frames, want %d", len(frames), len(wantParams))
	}
	for i, f := range frames {
		if f.CommandClass != zwave.ClassConfiguration || f.CommandID != zwave.ConfigurationSet {
			t.Errorf("frame %d is %v, want configuration set", i, f)
		}
		if f.Payload[0] != wantParams[i] {
			t.Errorf("frame %d param = %d, want %d", i, f.Payload[0], wantParams[i])
		}
	}
}

// An out-of-range preference skips that parameter only; the rest of the
// sequence still applies.
func TestTranslateConfigOutOfRangeSkipsParam(t *testing.T) {
	cfg := DeviceConfiguration{
		AudibleAlarmEnabled: true,
		LockVolume:          99, // above protocol max
		BeeperVolume:        3,
	}
	frames, errs := TranslateConfig(cfg, VariantA, testLogger())

	if len(errs) != 1 {
		t.Fatalf("errs = %v, want exactly 1", errs)
	}
	if !errors.Is(errs[0], ErrOutOfRange) {
		t.Fatalf("err = %v, want ErrOutOfRange", errs[0])
	}
	var pe *ParamError
	if !errors.As(errs[0], &pe) || pe.Param != ParamLockVolume {
		t.Errorf("err = %v, want ParamError for lock volume", errs[0])
	}

	wantParams := []uint8{ParamAudibleAlarm, ParamBeeperVolume}
	if len(frames) != len(wantParams) {
		t.Fatalf("got %d frames, want %d", len(frames), len(wantParams))
	}
	for i, f := range frames {
		if f.Payload[0] != wantParams[i] {
			t.Errorf("frame %d param = %d, want %d", i, f.Payload[0], wantParams[i])
		}
	}
}

func TestTranslateConfigZeroMeansLeaveUnchanged(t *testing.T) {
	frames, errs := TranslateConfig(DeviceConfiguration{}, VariantA, testLogger())
	if len(errs) != 0 {
		t.Fatalf("errs = %v, want none", errs)
	}
	// Only the audible alarm (explicit on/off) is written for a zero config.
	if len(frames) != 1 || frames[0].Payload[0] != ParamAudibleAlarm {
		t.Fatalf("frames = %v, want audible alarm only", frames)
	}
}
