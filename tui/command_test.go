package tui

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hubertat/multiio/board"
)

func TestParse(t *testing.T) {
	tests := []struct {
		line string
		want Action
	}{
		{"", Action{}},
		{"relay 1 on", Action{Kind: ActRelay, Channel: 1, On: true}},
		{"RELAY 2 Off", Action{Kind: ActRelay, Channel: 2}},
		{"led 6 1", Action{Kind: ActLed, Channel: 6, On: true}},
		{"uout 1 2.5", Action{Kind: ActUOut, Channel: 1, Value: 2.5}},
		{"iout 2 12", Action{Kind: ActIOut, Channel: 2, Value: 12}},
		{"wdt reload", Action{Kind: ActWdtReload}},
		{"wdt clear", Action{Kind: ActWdtClear}},
		{"wdt period 120", Action{Kind: ActWdtPeriod, Seconds: 120}},
		{"wdt init 300", Action{Kind: ActWdtInitPeriod, Seconds: 300}},
		{"wdt off 10", Action{Kind: ActWdtOffPeriod, Seconds: 10}},
		{"rtc 2024-05-01 12:00:00", Action{Kind: ActRtc, Time: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}},
		{"rtc now", Action{Kind: ActRtcNow}},
		{"edge 1 rising", Action{Kind: ActEdge, Channel: 1, Edge: board.EdgeRising}},
		{"edge 4 3", Action{Kind: ActEdge, Channel: 4, Edge: board.EdgeBoth}},
		{"count reset 2", Action{Kind: ActCountReset, Channel: 2}},
		{"enc 1 on", Action{Kind: ActEncoder, Channel: 1, On: true}},
		{"enc reset 2", Action{Kind: ActEncoderReset, Channel: 2}},
		{"servo 2 -45.5", Action{Kind: ActServo, Channel: 2, Value: -45.5}},
		{"motor 30", Action{Kind: ActMotor, Value: 30}},
		{"cal uin 1 0.5", Action{Kind: ActCalibrate, Target: board.CalUIn, Channel: 1, Value: 0.5}},
		{"cal rtd 2 reset", Action{Kind: ActCalibrationReset, Target: board.CalRtd, Channel: 2}},
		{"gain rtd 1 1.01 -0.2", Action{Kind: ActGainOffset, Analog: board.RtdTemp, Channel: 1, Gain: 1.01, Offset: -0.2}},
		{"connect 3 2", Action{Kind: ActConnect, Stack: 3, Bus: 2}},
		{"load My_Cal.json", Action{Kind: ActLoad, Path: "My_Cal.json"}},
		{"save", Action{Kind: ActSave}},
		{"save out.json", Action{Kind: ActSave, Path: "out.json"}},
		{"quit", Action{Kind: ActQuit}},
	}

	for _, test := range tests {
		t.Run(test.line, func(t *testing.T) {
			got, err := Parse(test.line)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	lines := []string{
		"jump 1",
		"relay",
		"relay 1",
		"relay one on",
		"relay 1 maybe",
		"uout 1 lots",
		"wdt",
		"wdt nap",
		"wdt period",
		"rtc tomorrow",
		"rtc 2024-13-01 12:00:00",
		"edge 1 sideways",
		"count 2",
		"enc 1 perhaps",
		"motor",
		"cal volts 1 2",
		"cal uin 1",
		"gain uout 1 1 0",
		"connect 1",
		"load",
		"save a b",
	}

	for _, line := range lines {
		t.Run(line, func(t *testing.T) {
			got, err := Parse(line)
			if !errors.Is(err, ErrSyntax) {
				t.Errorf("expected syntax error, got %v", err)
			}
			if diff := cmp.Diff(Action{}, got); diff != "" {
				t.Errorf("expected empty action (-want +got):\n%s", diff)
			}
		})
	}
}
