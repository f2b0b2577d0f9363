package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hubertat/multiio/board"
	"github.com/hubertat/multiio/panel"
)

var ErrSyntax = errors.New("invalid command")

type ActionKind int

const (
	ActNone ActionKind = iota
	ActRelay
	ActLed
	ActUOut
	ActIOut
	ActWdtReload
	ActWdtClear
	ActWdtPeriod
	ActWdtInitPeriod
	ActWdtOffPeriod
	ActRtc
	ActRtcNow
	ActEdge
	ActCountReset
	ActEncoder
	ActEncoderReset
	ActServo
	ActMotor
	ActCalibrate
	ActCalibrationReset
	ActGainOffset
	ActConnect
	ActLoad
	ActSave
	ActQuit
)

// Action is one parsed command line. Only the fields used by Kind are set.
type Action struct {
	Kind    ActionKind
	Channel int
	On      bool
	Value   float64
	Seconds int
	Time    time.Time
	Edge    board.Edge
	Target  board.CalTarget
	Analog  board.AnalogKind
	Gain    float64
	Offset  float64
	Stack   int
	Bus     int
	Path    string
}

// CommandHelp lists the command line forms shown under the input.
var CommandHelp = []string{
	"relay <ch> on|off",
	"led <ch> on|off",
	"uout <ch> <V>",
	"iout <ch> <mA>",
	"wdt reload|clear",
	"wdt period|init|off <s>",
	"rtc <yyyy-mm-dd> <hh:mm:ss> | rtc now",
	"edge <ch> none|rising|falling|both",
	"count reset <ch>",
	"enc <ch> on|off | enc reset <ch>",
	"servo <ch> <%>",
	"motor <%>",
	"cal uin|iin|uout|iout|rtd <ch> <value>|reset",
	"gain uin|iin|rtd <ch> <gain> <offset>",
	"connect <stack> <bus>",
	"load <file>",
	"save [file]",
	"quit",
}

var calTargets = map[string]board.CalTarget{
	"uin":  board.CalUIn,
	"iin":  board.CalIIn,
	"uout": board.CalUOut,
	"iout": board.CalIOut,
	"rtd":  board.CalRtd,
}

var analogKinds = map[string]board.AnalogKind{
	"uin": board.VoltageIn,
	"iin": board.CurrentIn,
	"rtd": board.RtdTemp,
}

type parser struct {
	fields []string
	err    error
}

func (p *parser) fail(format string, v ...interface{}) {
	if p.err == nil {
		p.err = errors.Wrapf(ErrSyntax, format, v...)
	}
}

func (p *parser) arity(n ...int) bool {
	for _, want := range n {
		if len(p.fields)-1 == want {
			return true
		}
	}
	p.fail("%s takes %v arguments", p.fields[0], n)
	return false
}

func (p *parser) intArg(i int, what string) int {
	if p.err != nil {
		return 0
	}
	v, err := strconv.Atoi(p.fields[i])
	if err != nil {
		p.fail("%s %q is not a number", what, p.fields[i])
	}
	return v
}

func (p *parser) floatArg(i int, what string) float64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(p.fields[i], 64)
	if err != nil {
		p.fail("%s %q is not a number", what, p.fields[i])
	}
	return v
}

func (p *parser) stateArg(i int) bool {
	if p.err != nil {
		return false
	}
	switch p.fields[i] {
	case "on", "1", "true":
		return true
	case "off", "0", "false":
		return false
	}
	p.fail("state %q, use on/off", p.fields[i])
	return false
}

// Parse reads one command line. Words are case insensitive, file paths keep
// their case.
func Parse(line string) (Action, error) {
	raw := strings.Fields(line)
	if len(raw) == 0 {
		return Action{}, nil
	}
	fields := make([]string, len(raw))
	for i, f := range raw {
		fields[i] = strings.ToLower(f)
	}
	p := &parser{fields: fields}

	var a Action
	switch fields[0] {
	case "relay", "led":
		if p.arity(2) {
			a.Kind = ActRelay
			if fields[0] == "led" {
				a.Kind = ActLed
			}
			a.Channel = p.intArg(1, "channel")
			a.On = p.stateArg(2)
		}

	case "uout", "iout":
		if p.arity(2) {
			a.Kind = ActUOut
			if fields[0] == "iout" {
				a.Kind = ActIOut
			}
			a.Channel = p.intArg(1, "channel")
			a.Value = p.floatArg(2, "value")
		}

	case "wdt":
		a = parseWdt(p)

	case "rtc":
		if len(fields) == 2 && fields[1] == "now" {
			a.Kind = ActRtcNow
		} else if p.arity(2) {
			t, err := time.ParseInLocation("2006-01-02 15:04:05", raw[1]+" "+raw[2], time.UTC)
			if err != nil {
				p.fail("time %q %q, use yyyy-mm-dd hh:mm:ss", raw[1], raw[2])
			}
			a.Kind = ActRtc
			a.Time = t
		}

	case "edge":
		if p.arity(2) {
			a.Kind = ActEdge
			a.Channel = p.intArg(1, "channel")
			edge, err := board.ParseEdge(fields[2])
			if err != nil {
				p.fail("edge %q", fields[2])
			}
			a.Edge = edge
		}

	case "count":
		if p.arity(2) && fields[1] == "reset" {
			a.Kind = ActCountReset
			a.Channel = p.intArg(2, "channel")
		} else {
			p.fail("use count reset <ch>")
		}

	case "enc":
		if p.arity(2) {
			if fields[1] == "reset" {
				a.Kind = ActEncoderReset
				a.Channel = p.intArg(2, "channel")
			} else {
				a.Kind = ActEncoder
				a.Channel = p.intArg(1, "channel")
				a.On = p.stateArg(2)
			}
		}

	case "servo":
		if p.arity(2) {
			a.Kind = ActServo
			a.Channel = p.intArg(1, "channel")
			a.Value = p.floatArg(2, "position")
		}

	case "motor":
		if p.arity(1) {
			a.Kind = ActMotor
			a.Value = p.floatArg(1, "speed")
		}

	case "cal":
		if p.arity(3) {
			target, ok := calTargets[fields[1]]
			if !ok {
				p.fail("calibration target %q", fields[1])
			}
			a.Target = target
			a.Channel = p.intArg(2, "channel")
			if fields[3] == "reset" {
				a.Kind = ActCalibrationReset
			} else {
				a.Kind = ActCalibrate
				a.Value = p.floatArg(3, "value")
			}
		}

	case "gain":
		if p.arity(4) {
			kind, ok := analogKinds[fields[1]]
			if !ok {
				p.fail("gain target %q", fields[1])
			}
			a.Kind = ActGainOffset
			a.Analog = kind
			a.Channel = p.intArg(2, "channel")
			a.Gain = p.floatArg(3, "gain")
			a.Offset = p.floatArg(4, "offset")
		}

	case "connect":
		if p.arity(2) {
			a.Kind = ActConnect
			a.Stack = p.intArg(1, "stack")
			a.Bus = p.intArg(2, "bus")
		}

	case "load":
		if p.arity(1) {
			a.Kind = ActLoad
			a.Path = raw[1]
		}

	case "save":
		if p.arity(0, 1) {
			a.Kind = ActSave
			if len(raw) == 2 {
				a.Path = raw[1]
			}
		}

	case "quit", "exit", "q":
		a.Kind = ActQuit

	default:
		p.fail("unknown command %q", raw[0])
	}

	if p.err != nil {
		return Action{}, p.err
	}
	return a, nil
}

func parseWdt(p *parser) Action {
	fields := p.fields
	if len(fields) < 2 {
		p.fail("use wdt reload|clear|period|init|off")
		return Action{}
	}

	var a Action
	switch fields[1] {
	case "reload":
		if p.arity(1) {
			a.Kind = ActWdtReload
		}
	case "clear":
		if p.arity(1) {
			a.Kind = ActWdtClear
		}
	case "period", "init", "off":
		if p.arity(2) {
			a.Kind = map[string]ActionKind{
				"period": ActWdtPeriod,
				"init":   ActWdtInitPeriod,
				"off":    ActWdtOffPeriod,
			}[fields[1]]
			a.Seconds = p.intArg(2, "seconds")
		}
	default:
		p.fail("unknown watchdog command %q", fields[1])
	}
	return a
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// Apply runs the action on the panel and returns the status line text.
func (a Action) Apply(p *panel.Panel) (string, error) {
	switch a.Kind {
	case ActNone, ActQuit:
		return "", nil
	case ActRelay:
		return fmt.Sprintf("relay %d %s", a.Channel, onOff(a.On)), p.SetRelay(a.Channel, a.On)
	case ActLed:
		return fmt.Sprintf("led %d %s", a.Channel, onOff(a.On)), p.SetLed(a.Channel, a.On)
	case ActUOut:
		return fmt.Sprintf("0-10V output %d set to %.3f V", a.Channel, a.Value), p.SetUOut(a.Channel, a.Value)
	case ActIOut:
		return fmt.Sprintf("4-20mA output %d set to %.3f mA", a.Channel, a.Value), p.SetIOut(a.Channel, a.Value)
	case ActWdtReload:
		return "watchdog reloaded", p.ReloadWdt()
	case ActWdtClear:
		return "watchdog reset count cleared", p.ClearWdtResetCount()
	case ActWdtPeriod:
		return fmt.Sprintf("watchdog period set to %d s", a.Seconds), p.SetWdtPeriod(a.Seconds)
	case ActWdtInitPeriod:
		return fmt.Sprintf("watchdog init period set to %d s", a.Seconds), p.SetWdtInitPeriod(a.Seconds)
	case ActWdtOffPeriod:
		return fmt.Sprintf("watchdog off period set to %d s", a.Seconds), p.SetWdtOffPeriod(a.Seconds)
	case ActRtc, ActRtcNow:
		t := a.Time
		if a.Kind == ActRtcNow {
			t = time.Now().UTC()
		}
		return "rtc set to " + t.Format("2006-01-02 15:04:05"), p.SetRtc(t)
	case ActEdge:
		return fmt.Sprintf("opto %d counting %s edges", a.Channel, a.Edge), p.SetOptoEdge(a.Channel, a.Edge)
	case ActCountReset:
		return fmt.Sprintf("opto %d counter reset", a.Channel), p.ResetOptoCount(a.Channel)
	case ActEncoder:
		return fmt.Sprintf("encoder %d %s", a.Channel, onOff(a.On)), p.SetOptoEncoder(a.Channel, a.On)
	case ActEncoderReset:
		return fmt.Sprintf("encoder %d counter reset", a.Channel), p.ResetOptoEncoderCount(a.Channel)
	case ActServo:
		return fmt.Sprintf("servo %d at %.1f%%", a.Channel, a.Value), p.SetServo(a.Channel, a.Value)
	case ActMotor:
		return fmt.Sprintf("motor at %.1f%%", a.Value), p.SetMotor(a.Value)
	case ActCalibrate:
		return fmt.Sprintf("%s %d calibration point %g sent", a.Target, a.Channel, a.Value), p.Calibrate(a.Target, a.Channel, a.Value)
	case ActCalibrationReset:
		return fmt.Sprintf("%s %d calibration reset", a.Target, a.Channel), p.ResetCalibration(a.Target, a.Channel)
	case ActGainOffset:
		return fmt.Sprintf("%s %d gain %g offset %g", a.Analog, a.Channel, a.Gain, a.Offset),
			p.SetGainOffset(a.Analog, a.Channel, a.Gain, a.Offset)
	case ActConnect:
		return fmt.Sprintf("connected to stack %d on bus %d", a.Stack, a.Bus), p.Connect(a.Stack, a.Bus)
	case ActLoad:
		return "calibration loaded from " + a.Path, p.LoadCalibration(a.Path)
	case ActSave:
		path, err := p.SaveCalibration(a.Path)
		return "calibration saved to " + path, err
	}
	return "", errors.Errorf("unknown action %d", a.Kind)
}
