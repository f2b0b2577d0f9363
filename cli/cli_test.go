package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/hubertat/multiio/board"
)

func assertStrings(t testing.TB, got, want string) {
	t.Helper()

	if got != want {
		t.Errorf("got %q want %q", got, want)
	}
}

func assertCode(t testing.TB, got, want int) {
	t.Helper()

	if got != want {
		t.Errorf("exit code: got %d want %d", got, want)
	}
}

type harness struct {
	emu      *board.Emulator
	out, err bytes.Buffer
}

func newHarness() *harness {
	return &harness{emu: board.NewEmulator(0, 2)}
}

func (h *harness) run(args ...string) int {
	h.out.Reset()
	h.err.Reset()
	return Main(args, Env{
		Out: &h.out,
		Err: &h.err,
		Open: func(stack int) (*board.Card, error) {
			return board.Open(h.emu, stack)
		},
	})
}

func TestHelpAndVersion(t *testing.T) {
	h := newHarness()

	assertCode(t, h.run(), ExitArgCount)
	if !strings.HasPrefix(h.out.String(), "Command option required!\nUsage: multiio [options] [...]\n") {
		t.Errorf("unexpected output:\n%s", h.out.String())
	}

	assertCode(t, h.run("-v"), ExitOK)
	assertStrings(t, h.out.String(), "multiio v1.0.0\n")

	assertCode(t, h.run("-h"), ExitOK)
	for _, c := range Commands {
		if !strings.Contains(h.out.String(), "  "+c.Name) {
			t.Errorf("general help is missing %s", c.Name)
		}
	}
	if !strings.HasSuffix(h.out.String(), "Use \"multiio -h <option>\" for more details\n") {
		t.Errorf("unexpected help tail:\n%s", h.out.String())
	}

	assertCode(t, h.run("-h", "RELWR"), ExitOK)
	if !strings.Contains(h.out.String(), "Usage 1:         multiio <stack> relwr <channel[1..2]> <state(0/1)>") {
		t.Errorf("unexpected details:\n%s", h.out.String())
	}

	assertCode(t, h.run("-h", "nope"), ExitError)
}

func TestCommandTable(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range Commands {
		if seen[c.Name] {
			t.Errorf("duplicate command %s", c.Name)
		}
		seen[c.Name] = true
		if c.Run == nil || len(c.Args) == 0 || len(c.Usage) == 0 {
			t.Errorf("incomplete command %s", c.Name)
		}
	}
}

func TestDispatchErrors(t *testing.T) {
	h := newHarness()

	assertCode(t, h.run("0"), ExitError)
	if !strings.HasPrefix(h.out.String(), "Invalid command option!\n") {
		t.Errorf("unexpected output:\n%s", h.out.String())
	}

	assertCode(t, h.run("0", "bogus"), ExitError)

	assertCode(t, h.run("0", "uinrd"), ExitArgCount)
	assertStrings(t, h.out.String(), "Invalid parameters number!\n  Usage:           multiio <stack> uinrd <channel>\n")

	assertCode(t, h.run("8", "board"), ExitArgRange)
	assertCode(t, h.run("x", "board"), ExitArgRange)

	// no card answers on stack 1
	assertCode(t, h.run("1", "board"), ExitError)
	if h.err.Len() == 0 {
		t.Error("expected an error message")
	}
}

func TestBoardAndCalibration(t *testing.T) {
	h := newHarness()

	assertCode(t, h.run("0", "board"), ExitOK)
	assertStrings(t, h.out.String(), "Firmware version 1.2, CPU temperature 36 C, Power source 3.30 V\n")

	assertCode(t, h.run("0", "calstat"), ExitOK)
	assertStrings(t, h.out.String(), "Calibration done\n")

	assertCode(t, h.run("0", "uincal", "1", "0.5"), ExitOK)
	assertCode(t, h.run("0", "rtdcal", "2", "reset"), ExitOK)
	assertCode(t, h.run("0", "iincal", "3", "5"), ExitArgRange)
	assertCode(t, h.run("0", "ioutcal", "1", "abc"), ExitArgRange)
}

func TestAnalogCommands(t *testing.T) {
	h := newHarness()
	h.emu.PokeInt16(0, board.RegUIn+2, 4321)
	h.emu.PokeFloat32(0, board.RegRtdVal, 21.5)

	assertCode(t, h.run("0", "uinrd", "2"), ExitOK)
	assertStrings(t, h.out.String(), "4.321\n")

	assertCode(t, h.run("0", "uoutwr", "1", "2.5"), ExitOK)
	assertCode(t, h.run("0", "uoutrd", "1"), ExitOK)
	assertStrings(t, h.out.String(), "2.500\n")

	assertCode(t, h.run("0", "uoutwr", "1", "12"), ExitArgRange)
	assertCode(t, h.run("0", "ioutrd", "3"), ExitArgRange)

	assertCode(t, h.run("0", "rtdrd", "1"), ExitOK)
	assertStrings(t, h.out.String(), "21.500\n")
}

func TestRelayAndLedCommands(t *testing.T) {
	h := newHarness()

	assertCode(t, h.run("2", "relwr", "2", "1"), ExitOK)
	assertCode(t, h.run("2", "relrd"), ExitOK)
	assertStrings(t, h.out.String(), "0 1 \n")
	assertCode(t, h.run("2", "relrd", "2"), ExitOK)
	assertStrings(t, h.out.String(), "1\n")

	assertCode(t, h.run("2", "relwr", "3"), ExitOK)
	assertCode(t, h.run("2", "relrd"), ExitOK)
	assertStrings(t, h.out.String(), "1 1 \n")

	assertCode(t, h.run("2", "relwr", "4"), ExitArgRange)
	assertCode(t, h.run("2", "relwr", "1", "maybe"), ExitArgRange)
	assertCode(t, h.run("2", "relrd", "3"), ExitArgRange)

	assertCode(t, h.run("0", "ledwr", "6", "on"), ExitOK)
	assertCode(t, h.run("0", "ledrd"), ExitOK)
	assertStrings(t, h.out.String(), "0 0 0 0 0 1 \n")

	// stack 0 is untouched by stack 2 writes
	assertCode(t, h.run("0", "relrd"), ExitOK)
	assertStrings(t, h.out.String(), "0 0 \n")
}

func TestRtcCommands(t *testing.T) {
	h := newHarness()
	h.emu.SetRtc(0, time.Date(2023, time.March, 4, 5, 6, 7, 0, time.UTC))

	assertCode(t, h.run("0", "rtcrd"), ExitOK)
	assertStrings(t, h.out.String(), "03/04/23 05:06:07\n")

	assertCode(t, h.run("0", "rtcwr", "9", "15", "20", "21", "43", "15"), ExitOK)
	assertStrings(t, h.out.String(), "done\n")
	assertCode(t, h.run("0", "rtcrd"), ExitOK)
	assertStrings(t, h.out.String(), "09/15/20 21:43:15\n")

	assertCode(t, h.run("0", "rtcwr", "13", "1", "20", "0", "0", "0"), ExitArgRange)
	assertCode(t, h.run("0", "rtcwr", "2", "30", "20", "0", "0", "0"), ExitArgRange)
	assertCode(t, h.run("0", "rtcwr", "1", "1", "20"), ExitArgCount)
}

func TestWatchdogCommands(t *testing.T) {
	h := newHarness()

	assertCode(t, h.run("0", "wdtr"), ExitOK)
	if h.emu.Reloads() != 1 {
		t.Errorf("got %d reloads want 1", h.emu.Reloads())
	}

	assertCode(t, h.run("0", "wdtprd"), ExitOK)
	assertStrings(t, h.out.String(), "120\n")
	assertCode(t, h.run("0", "wdtpwr", "300"), ExitOK)
	assertCode(t, h.run("0", "wdtprd"), ExitOK)
	assertStrings(t, h.out.String(), "300\n")
	assertCode(t, h.run("0", "wdtpwr", "1"), ExitArgRange)

	assertCode(t, h.run("0", "wdtiprd"), ExitOK)
	assertStrings(t, h.out.String(), "270\n")
	assertCode(t, h.run("0", "wdtopwr", "100000"), ExitOK)
	assertCode(t, h.run("0", "wdtoprd"), ExitOK)
	assertStrings(t, h.out.String(), "100000\n")

	h.emu.Poke(0, board.RegWdtResetCount, 3, 0)
	assertCode(t, h.run("0", "wdtrcrd"), ExitOK)
	assertStrings(t, h.out.String(), "3\n")
	assertCode(t, h.run("0", "wdtrcclr"), ExitOK)
	assertCode(t, h.run("0", "wdtrcrd"), ExitOK)
	assertStrings(t, h.out.String(), "0\n")
}

func TestOptoCommands(t *testing.T) {
	h := newHarness()

	assertCode(t, h.run("0", "optedgewr", "2", "1"), ExitOK)
	assertCode(t, h.run("0", "optedgerd", "2"), ExitOK)
	assertStrings(t, h.out.String(), "1\n")
	assertCode(t, h.run("0", "optedgewr", "2", "7"), ExitArgRange)

	h.emu.SetOpto(0, 2, true)
	h.emu.SetOpto(0, 2, false)
	h.emu.SetOpto(0, 2, true)

	assertCode(t, h.run("0", "optrd"), ExitOK)
	assertStrings(t, h.out.String(), "2\n")
	assertCode(t, h.run("0", "optrd", "2"), ExitOK)
	assertStrings(t, h.out.String(), "1\n")

	assertCode(t, h.run("0", "optcntrd", "2"), ExitOK)
	assertStrings(t, h.out.String(), "2\n")
	assertCode(t, h.run("0", "optcntrst", "2"), ExitOK)
	assertCode(t, h.run("0", "optcntrd", "2"), ExitOK)
	assertStrings(t, h.out.String(), "0\n")

	assertCode(t, h.run("0", "optencwr", "1", "1"), ExitOK)
	assertCode(t, h.run("0", "optencrd", "1"), ExitOK)
	assertStrings(t, h.out.String(), "1\n")

	h.emu.PokeUint32(0, board.RegOptoEncCount, 0xfffffffb)
	assertCode(t, h.run("0", "optcntencrd", "1"), ExitOK)
	assertStrings(t, h.out.String(), "-5\n")
	assertCode(t, h.run("0", "optcntencrst", "1"), ExitOK)
	assertCode(t, h.run("0", "optcntencrd", "1"), ExitOK)
	assertStrings(t, h.out.String(), "0\n")
}

func TestServoMotorButtonCommands(t *testing.T) {
	h := newHarness()

	assertCode(t, h.run("0", "servowr", "1", "25.2"), ExitOK)
	assertCode(t, h.run("0", "servord", "1"), ExitOK)
	assertStrings(t, h.out.String(), "25.2\n")
	assertCode(t, h.run("0", "servowr", "1", "150"), ExitArgRange)

	assertCode(t, h.run("0", "motwr", "-40"), ExitOK)
	assertCode(t, h.run("0", "motrd"), ExitOK)
	assertStrings(t, h.out.String(), "-40.0\n")

	h.emu.Press(0, true)
	h.emu.Press(0, false)
	assertCode(t, h.run("0", "brd"), ExitOK)
	assertStrings(t, h.out.String(), "0\n")
	assertCode(t, h.run("0", "blrd"), ExitOK)
	assertStrings(t, h.out.String(), "1\n")
	assertCode(t, h.run("0", "blrd"), ExitOK)
	assertStrings(t, h.out.String(), "0\n")
}
