package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hubertat/multiio/board"
)

// Commands is the option table in help order.
var Commands = []Command{
	{
		Name:    "board",
		Help:    "Display the board status and firmware version number",
		Usage:   []string{"<stack> board"},
		Example: "0 board  Display vcc, temperature, firmware version",
		Args:    []int{0},
		Run: func(card *board.Card, args []string, out io.Writer) error {
			info, err := card.BoardInfo()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, info)
			return nil
		},
	},
	{
		Name:    "calstat",
		Help:    "Display current calibration status of device",
		Usage:   []string{"<stack> calstat"},
		Example: "0 calstat",
		Args:    []int{0},
		Run: func(card *board.Card, args []string, out io.Writer) error {
			status, err := card.CalibStatus()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, status)
			return nil
		},
	},
	{
		Name:    "uinrd",
		Help:    "Read 0-10V input voltage value(V)",
		Usage:   []string{"<stack> uinrd <channel>"},
		Example: "0 uinrd 2  Read voltage on 0-10V input channel #2 on board #0",
		Args:    []int{1},
		Run:     readChannelFloat((*board.Card).UIn, "%0.3f"),
	},
	calibrateCommand("uincal", board.CalUIn,
		"Calibrate 0-10V input channel, the calibration must be done in 2 points at min 5V apart",
		"<value(V)>", "0 uincal 1 0.5  Calibrate the 0-10V input channel #1 on board #0 at 0.5V"),
	{
		Name:    "iinrd",
		Help:    "Read 4-20mA input amperage value(mA)",
		Usage:   []string{"<stack> iinrd <channel>"},
		Example: "0 iinrd 2  Read amperage on 4-20mA input channel #2 on board #0",
		Args:    []int{1},
		Run:     readChannelFloat((*board.Card).IIn, "%0.3f"),
	},
	calibrateCommand("iincal", board.CalIIn,
		"Calibrate 4-20mA input channel, the calibration must be done in 2 points at min 10mA apart",
		"<value(mA)>", "0 iincal 1 5  Calibrate the 4-20mA input channel #1 on board #0 at 5mA"),
	{
		Name:    "uoutrd",
		Help:    "Read 0-10V output voltage value(V)",
		Usage:   []string{"<stack> uoutrd <channel>"},
		Example: "0 uoutrd 2  Read voltage on 0-10V output channel #2 on board #0",
		Args:    []int{1},
		Run:     readChannelFloat((*board.Card).UOut, "%0.3f"),
	},
	{
		Name:    "uoutwr",
		Help:    "Write 0-10V output voltage value(V)",
		Usage:   []string{"<stack> uoutwr <channel> <value(V)>"},
		Example: "0 uoutwr 2 2.5  Write 2.5V to 0-10V output channel #2 on board #0",
		Args:    []int{2},
		Run:     writeChannelFloat((*board.Card).SetUOut, "voltage"),
	},
	calibrateCommand("uoutcal", board.CalUOut,
		"Calibrate 0-10V output channel, the calibration must be done in 2 points at min 5V apart",
		"<value(V)>", "0 uoutcal 1 0.5  Calibrate the 0-10V output channel #1 on board #0 at 0.5V"),
	{
		Name:    "ioutrd",
		Help:    "Read 4-20mA output amperage value(mA)",
		Usage:   []string{"<stack> ioutrd <channel>"},
		Example: "0 ioutrd 2  Read amperage on 4-20mA output channel #2 on board #0",
		Args:    []int{1},
		Run:     readChannelFloat((*board.Card).IOut, "%0.3f"),
	},
	{
		Name:    "ioutwr",
		Help:    "Write 4-20mA output amperage value(mA)",
		Usage:   []string{"<stack> ioutwr <channel> <value(mA)>"},
		Example: "0 ioutwr 2 10.5  Write 10.5mA to 4-20mA output channel #2 on board #0",
		Args:    []int{2},
		Run:     writeChannelFloat((*board.Card).SetIOut, "current"),
	},
	calibrateCommand("ioutcal", board.CalIOut,
		"Calibrate 4-20mA output channel, the calibration must be done in 2 points at min 10mA apart",
		"<value(mA)>", "0 ioutcal 1 5  Calibrate the 4-20mA output channel #1 on board #0 at 5mA"),
	{
		Name:    "rtdrd",
		Help:    "Display rtd temperature(C)",
		Usage:   []string{"<stack> rtdrd <channel>"},
		Example: "0 rtdrd 1  Display rtd temperature on channel #1 on board #0",
		Args:    []int{1},
		Run:     readChannelFloat((*board.Card).RtdTemp, "%0.3f"),
	},
	{
		Name:    "rtdresrd",
		Help:    "Display rtd resistance(ohm)",
		Usage:   []string{"<stack> rtdresrd <channel>"},
		Example: "0 rtdresrd 1  Display rtd resistance on channel #1 on board #0",
		Args:    []int{1},
		Run:     readChannelFloat((*board.Card).RtdRes, "%0.3f"),
	},
	calibrateCommand("rtdcal", board.CalRtd,
		"Calibrate resistance measurement, the calibration must be done in 2 points",
		"<value(ohm)>", "0 rtdcal 1 100.34  Send one point of calibration at 100.34 ohm for channel #1"),
	{
		Name:    "rtcrd",
		Help:    "Get the internal RTC date and time(mm/dd/yy hh:mm:ss)",
		Usage:   []string{"<stack> rtcrd"},
		Example: "0 rtcrd  Get the internal RTC time and date on board #0",
		Args:    []int{0},
		Run: func(card *board.Card, args []string, out io.Writer) error {
			t, err := card.Rtc()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%02d/%02d/%02d %02d:%02d:%02d\n",
				int(t.Month()), t.Day(), t.Year()%100, t.Hour(), t.Minute(), t.Second())
			return nil
		},
	},
	{
		Name:    "rtcwr",
		Help:    "Set the internal RTC date and time(mm/dd/yy hh:mm:ss)",
		Usage:   []string{"<stack> rtcwr <mm> <dd> <yy> <hh> <mm> <ss>"},
		Example: "0 rtcwr 9 15 20 21 43 15  Set the internal RTC on board #0 at Sept/15/2020 21:43:15",
		Args:    []int{6},
		Run:     rtcWrite,
	},
	{
		Name:    "wdtr",
		Help:    "Reload the watchdog timer and enable the watchdog if is disabled",
		Usage:   []string{"<stack> wdtr"},
		Example: "0 wdtr  Reload the watchdog timer on board #0",
		Args:    []int{0},
		Run: func(card *board.Card, args []string, out io.Writer) error {
			return card.WdtReload()
		},
	},
	readIntCommand("wdtprd", "Get the watchdog timer period in seconds, reload command must be issued in this interval",
		(*board.Card).WdtPeriod),
	writeIntCommand("wdtpwr", "Set the watchdog period in seconds, reload command must be issued in this interval",
		"<period>", "0 wdtpwr 10  Set the watchdog timer period on board #0 at 10 seconds",
		(*board.Card).SetWdtPeriod),
	readIntCommand("wdtiprd", "Get the watchdog timer initial period in seconds, used after power up",
		(*board.Card).WdtInitPeriod),
	writeIntCommand("wdtipwr", "Set the watchdog timer initial period in seconds, used after power up",
		"<period>", "0 wdtipwr 300  Set the watchdog timer initial period on board #0 at 300 seconds",
		(*board.Card).SetWdtInitPeriod),
	readIntCommand("wdtoprd", "Get the watchdog off period in seconds, the time the power stays off on reset",
		(*board.Card).WdtOffPeriod),
	writeIntCommand("wdtopwr", "Set the watchdog off period in seconds, the time the power stays off on reset",
		"<period>", "0 wdtopwr 10  Set the watchdog off period on board #0 at 10 seconds",
		(*board.Card).SetWdtOffPeriod),
	readIntCommand("wdtrcrd", "Get the watchdog reset count", (*board.Card).WdtResetCount),
	{
		Name:    "wdtrcclr",
		Help:    "Clear the watchdog reset count",
		Usage:   []string{"<stack> wdtrcclr"},
		Example: "0 wdtrcclr  Clear the watchdog reset count on board #0",
		Args:    []int{0},
		Run: func(card *board.Card, args []string, out io.Writer) error {
			return card.WdtClearResetCount()
		},
	},
	{
		Name:    "optrd",
		Help:    "Read optocoupled inputs status",
		Usage:   []string{"<stack> optrd <channel>", "<stack> optrd"},
		Example: "0 optrd 2  Read status of optocoupled input ch #2 on board #0",
		Args:    []int{0, 1},
		Run: func(card *board.Card, args []string, out io.Writer) error {
			if len(args) == 0 {
				mask, err := card.Optos()
				if err != nil {
					return err
				}
				fmt.Fprintln(out, mask)
				return nil
			}
			ch, err := parseInt(args[0], "channel")
			if err != nil {
				return err
			}
			on, err := card.Opto(ch)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, boolInt(on))
			return nil
		},
	},
	{
		Name:    "optedgerd",
		Help:    "Read optocoupled counting edges 0 - none; 1 - rising; 2 - falling; 3 - both",
		Usage:   []string{"<stack> optedgerd <channel>"},
		Example: "0 optedgerd 2  Read counting edges of optocoupled channel #2 on board #0",
		Args:    []int{1},
		Run: func(card *board.Card, args []string, out io.Writer) error {
			ch, err := parseInt(args[0], "channel")
			if err != nil {
				return err
			}
			edge, err := card.OptoEdge(ch)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, int(edge))
			return nil
		},
	},
	{
		Name:    "optedgewr",
		Help:    "Set optocoupled channel counting edges 0 - count disable; 1 - rising; 2 - falling; 3 - both",
		Usage:   []string{"<stack> optedgewr <channel> <edges>"},
		Example: "0 optedgewr 2 1  Set optocoupled channel #2 on board #0 to count rising edges",
		Args:    []int{2},
		Run: func(card *board.Card, args []string, out io.Writer) error {
			ch, err := parseInt(args[0], "channel")
			if err != nil {
				return err
			}
			edge, err := board.ParseEdge(args[1])
			if err != nil {
				return err
			}
			return card.SetOptoEdge(ch, edge)
		},
	},
	{
		Name:    "optcntrd",
		Help:    "Read optocoupled inputs edges count for one pin",
		Usage:   []string{"<stack> optcntrd <channel>"},
		Example: "0 optcntrd 2  Read counter of opto input #2 on board #0",
		Args:    []int{1},
		Run: func(card *board.Card, args []string, out io.Writer) error {
			ch, err := parseInt(args[0], "channel")
			if err != nil {
				return err
			}
			count, err := card.OptoCount(ch)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, count)
			return nil
		},
	},
	channelActionCommand("optcntrst", "Reset optocoupled inputs edges count for one pin",
		"0 optcntrst 2  Reset counter of opto input #2 on board #0", (*board.Card).ResetOptoCount),
	{
		Name:    "optencrd",
		Help:    "Read optocoupled quadrature encoder state 0 - disabled 1 - enabled",
		Usage:   []string{"<stack> optencrd <channel>"},
		Example: "0 optencrd 2  Read state of optocoupled encoder channel #2 on board #0",
		Args:    []int{1},
		Run: func(card *board.Card, args []string, out io.Writer) error {
			ch, err := parseInt(args[0], "channel")
			if err != nil {
				return err
			}
			on, err := card.OptoEncoder(ch)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, boolInt(on))
			return nil
		},
	},
	{
		Name:    "optencwr",
		Help:    "Enable / Disable optocoupled quadrature encoder, encoder 1 on opto ch1 and 2, encoder 2 on ch3 and 4",
		Usage:   []string{"<stack> optencwr <channel> <0/1>"},
		Example: "0 optencwr 2 1  Enable encoder on opto channel 3/4 on board #0",
		Args:    []int{2},
		Run: func(card *board.Card, args []string, out io.Writer) error {
			ch, err := parseInt(args[0], "channel")
			if err != nil {
				return err
			}
			on, err := parseState(args[1])
			if err != nil {
				return err
			}
			return card.SetOptoEncoder(ch, on)
		},
	},
	{
		Name:    "optcntencrd",
		Help:    "Read optocoupled encoder count for one channel",
		Usage:   []string{"<stack> optcntencrd <channel>"},
		Example: "0 optcntencrd 2  Read counter of opto encoder #2 on board #0",
		Args:    []int{1},
		Run: func(card *board.Card, args []string, out io.Writer) error {
			ch, err := parseInt(args[0], "channel")
			if err != nil {
				return err
			}
			count, err := card.OptoEncoderCount(ch)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, count)
			return nil
		},
	},
	channelActionCommand("optcntencrst", "Reset optocoupled encoder count",
		"0 optcntencrst 2  Reset counter of encoder #2 on board #0", (*board.Card).ResetOptoEncoderCount),
	{
		Name:    "servord",
		Help:    "Display the servo position value in %",
		Usage:   []string{"<stack> servord <channel>"},
		Example: "0 servord 1  Display the servo 1 position on board #0",
		Args:    []int{1},
		Run:     readChannelFloat((*board.Card).Servo, "%.1f"),
	},
	{
		Name:    "servowr",
		Help:    "Set the servo position (-100..100) for standard (-140..140) for extended range servos",
		Usage:   []string{"<stack> servowr <channel> <value(%)>"},
		Example: "0 servowr 1 25.2  Set the servo 1 position to 25.2% on board #0",
		Args:    []int{2},
		Run:     writeChannelFloat((*board.Card).SetServo, "position"),
	},
	{
		Name:    "motrd",
		Help:    "Display motor PWM fill factor value in %",
		Usage:   []string{"<stack> motrd"},
		Example: "0 motrd  Display motor PWM on board #0",
		Args:    []int{0},
		Run: func(card *board.Card, args []string, out io.Writer) error {
			v, err := card.Motor()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%.1f\n", v)
			return nil
		},
	},
	{
		Name:    "motwr",
		Help:    "Set the motor PWM fill factor (-100..100)",
		Usage:   []string{"<stack> motwr <value(%)>"},
		Example: "0 motwr 25.2  Set motor PWM to 25.2% on board #0",
		Args:    []int{1},
		Run: func(card *board.Card, args []string, out io.Writer) error {
			v, err := parseFloat(args[0], "value")
			if err != nil {
				return err
			}
			return card.SetMotor(v)
		},
	},
	bitsReadCommand("relrd", "Read relay state", board.RelayChannels,
		(*board.Card).Relays),
	bitsWriteCommand("relwr", "Set relay state", board.RelayChannels,
		(*board.Card).SetRelay, (*board.Card).SetRelays),
	bitsReadCommand("ledrd", "Display the state of general purpose LEDS on the card", board.LedChannels,
		(*board.Card).Leds),
	bitsWriteCommand("ledwr", "Set the state of general purpose LEDS on the card", board.LedChannels,
		(*board.Card).SetLed, (*board.Card).SetLeds),
	{
		Name:    "brd",
		Help:    "Read the button current state, 1 = pushed, 0 = released",
		Usage:   []string{"<stack> brd"},
		Example: "0 brd",
		Args:    []int{0},
		Run: func(card *board.Card, args []string, out io.Writer) error {
			on, err := card.Button()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, boolInt(on))
			return nil
		},
	},
	{
		Name:    "blrd",
		Help:    "Read the button latch, return 1 if the button has been pushed since last read",
		Usage:   []string{"<stack> blrd"},
		Example: "0 blrd",
		Args:    []int{0},
		Run: func(card *board.Card, args []string, out io.Writer) error {
			on, err := card.ButtonLatch()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, boolInt(on))
			return nil
		},
	},
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func readChannelFloat(read func(*board.Card, int) (float64, error), format string) runFunc {
	return func(card *board.Card, args []string, out io.Writer) error {
		ch, err := parseInt(args[0], "channel")
		if err != nil {
			return err
		}
		v, err := read(card, ch)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, format+"\n", v)
		return nil
	}
}

func writeChannelFloat(write func(*board.Card, int, float64) error, what string) runFunc {
	return func(card *board.Card, args []string, out io.Writer) error {
		ch, err := parseInt(args[0], "channel")
		if err != nil {
			return err
		}
		v, err := parseFloat(args[1], what)
		if err != nil {
			return err
		}
		return write(card, ch, v)
	}
}

func calibrateCommand(name string, target board.CalTarget, help, value, example string) Command {
	return Command{
		Name: name,
		Help: help,
		Usage: []string{
			"<stack> " + name + " <channel> " + value,
			"<stack> " + name + " <channel> reset",
		},
		Example: example,
		Args:    []int{2},
		Run: func(card *board.Card, args []string, out io.Writer) error {
			ch, err := parseInt(args[0], "channel")
			if err != nil {
				return err
			}
			if strings.EqualFold(args[1], "reset") {
				return card.ResetCalibration(target, ch)
			}
			v, err := parseFloat(args[1], "calibration value")
			if err != nil {
				return err
			}
			return card.Calibrate(target, ch, v)
		},
	}
}

func readIntCommand(name, help string, read func(*board.Card) (int, error)) Command {
	return Command{
		Name:    name,
		Help:    help,
		Usage:   []string{"<stack> " + name},
		Example: "0 " + name,
		Args:    []int{0},
		Run: func(card *board.Card, args []string, out io.Writer) error {
			v, err := read(card)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, v)
			return nil
		},
	}
}

func writeIntCommand(name, help, value, example string, write func(*board.Card, int) error) Command {
	return Command{
		Name:    name,
		Help:    help,
		Usage:   []string{"<stack> " + name + " " + value},
		Example: example,
		Args:    []int{1},
		Run: func(card *board.Card, args []string, out io.Writer) error {
			v, err := parseInt(args[0], "value")
			if err != nil {
				return err
			}
			return write(card, v)
		},
	}
}

func channelActionCommand(name, help, example string, action func(*board.Card, int) error) Command {
	return Command{
		Name:    name,
		Help:    help,
		Usage:   []string{"<stack> " + name + " <channel>"},
		Example: example,
		Args:    []int{1},
		Run: func(card *board.Card, args []string, out io.Writer) error {
			ch, err := parseInt(args[0], "channel")
			if err != nil {
				return err
			}
			return action(card, ch)
		},
	}
}

func bitsReadCommand(name, help string, channels int, read func(*board.Card) (int, error)) Command {
	return Command{
		Name: name,
		Help: help,
		Usage: []string{
			fmt.Sprintf("<stack> %s <channel[1..%d]>", name, channels),
			"<stack> " + name,
		},
		Example: fmt.Sprintf("0 %s 2  Get the state of #2 on board #0", name),
		Args:    []int{0, 1},
		Run: func(card *board.Card, args []string, out io.Writer) error {
			ch := 0
			if len(args) == 1 {
				var err error
				if ch, err = parseInt(args[0], "channel"); err != nil {
					return err
				}
				if ch < 1 || ch > channels {
					return errors.Wrapf(board.ErrChannel, "%s channel %d not in [1..%d]", name, ch, channels)
				}
			}
			mask, err := read(card)
			if err != nil {
				return err
			}
			if ch > 0 {
				fmt.Fprintln(out, (mask>>(ch-1))&1)
				return nil
			}
			var sb strings.Builder
			for i := 0; i < channels; i++ {
				fmt.Fprintf(&sb, "%d ", (mask>>i)&1)
			}
			fmt.Fprintln(out, sb.String())
			return nil
		},
	}
}

func bitsWriteCommand(name, help string, channels int, set func(*board.Card, int, bool) error, setAll func(*board.Card, int) error) Command {
	return Command{
		Name: name,
		Help: help,
		Usage: []string{
			fmt.Sprintf("<stack> %s <channel[1..%d]> <state(0/1)>", name, channels),
			fmt.Sprintf("<stack> %s <mask[0..%d]>", name, 1<<channels-1),
		},
		Example: fmt.Sprintf("0 %s 2 1  Turn ON #2 on board #0", name),
		Args:    []int{1, 2},
		Run: func(card *board.Card, args []string, out io.Writer) error {
			if len(args) == 1 {
				mask, err := parseInt(args[0], "mask")
				if err != nil {
					return err
				}
				return setAll(card, mask)
			}
			ch, err := parseInt(args[0], "channel")
			if err != nil {
				return err
			}
			on, err := parseState(args[1])
			if err != nil {
				return err
			}
			return set(card, ch, on)
		},
	}
}

func rtcWrite(card *board.Card, args []string, out io.Writer) error {
	fields := []struct {
		name   string
		lo, hi int
	}{
		{"month", 1, 12},
		{"date", 1, 31},
		{"year", 0, 99},
		{"hour", 0, 23},
		{"minute", 0, 59},
		{"second", 0, 59},
	}

	values := make([]int, len(fields))
	for i, f := range fields {
		v, err := parseInt(args[i], f.name)
		if err != nil {
			return err
		}
		if v < f.lo || v > f.hi {
			return errors.Wrapf(errArgValue, "invalid %s %d [%d..%d]", f.name, v, f.lo, f.hi)
		}
		values[i] = v
	}

	t := time.Date(2000+values[2], time.Month(values[0]), values[1], values[3], values[4], values[5], 0, time.UTC)
	if t.Day() != values[1] {
		return errors.Wrapf(errArgValue, "invalid date %d/%d", values[0], values[1])
	}
	if err := card.SetRtc(t); err != nil {
		return err
	}
	fmt.Fprintln(out, "done")
	return nil
}
