package board

import (
	"math"
	"testing"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

func assertNoError(t testing.TB, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func assertErrorIs(t testing.TB, err, target error) {
	t.Helper()

	if !errors.Is(err, target) {
		t.Errorf("got error %v want %v", err, target)
	}
}

func assertBools(t testing.TB, got, want bool) {
	t.Helper()

	if got != want {
		t.Errorf("got %v want %v", got, want)
	}
}

func assertInts(t testing.TB, got, want int) {
	t.Helper()

	if got != want {
		t.Errorf("got %d want %d", got, want)
	}
}

func assertFloats(t testing.TB, got, want float64) {
	t.Helper()

	if math.Abs(got-want) > 1e-6 {
		t.Errorf("got %v want %v", got, want)
	}
}

func assertBytes(t testing.TB, got, want []byte) {
	t.Helper()

	if len(got) != len(want) {
		t.Errorf("got % x want % x", got, want)
		return
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("got % x want % x", got, want)
			return
		}
	}
}

func openEmulated(t testing.TB, stack int) (*Card, *Emulator) {
	t.Helper()

	emu := NewEmulator(stack)
	card, err := Open(emu, stack)
	assertNoError(t, err)
	return card, emu
}

func TestOpen(t *testing.T) {
	t.Run("stack out of range", func(t *testing.T) {
		_, err := Open(NewEmulator(0), 8)
		assertErrorIs(t, err, ErrStack)

		_, err = Open(NewEmulator(0), -1)
		assertErrorIs(t, err, ErrStack)
	})

	t.Run("card missing", func(t *testing.T) {
		_, err := Open(NewEmulator(0), 3)
		if err == nil {
			t.Error("expected error for missing card")
		}
	})

	t.Run("address follows stack", func(t *testing.T) {
		card, _ := openEmulated(t, 5)
		if card.String() != "multiio:5@0x0b" {
			t.Errorf("got %s", card.String())
		}
		assertInts(t, card.Stack(), 5)
	})
}

func TestPresenceCheckFrames(t *testing.T) {
	pb := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x06, W: []byte{RegRevisionMajor}, R: []byte{1}},
			{Addr: 0x06, W: []byte{RegRelaySet, 2}},
			{Addr: 0x06, W: []byte{RegUOut, 0xc4, 0x09}},
			{Addr: 0x06, W: []byte{RegCalibValue, 0x00, 0x00, 0x00, 0x3f, 3, 0xaa}},
			{Addr: 0x06, W: []byte{RegRtcSetYear, 24, 9, 15, 21, 43, 15, 0xaa}},
		},
		DontPanic: true,
	}

	card, err := Open(pb, 0)
	assertNoError(t, err)
	assertNoError(t, card.SetRelay(2, true))
	assertNoError(t, card.SetUOut(1, 2.5))
	assertNoError(t, card.Calibrate(CalUIn, 1, 0.5))
	assertNoError(t, card.SetRtc(time.Date(2024, 9, 15, 21, 43, 15, 0, time.UTC)))

	if err := pb.Close(); err != nil {
		t.Error(err)
	}
}

func TestVersionAndDiagnostics(t *testing.T) {
	card, _ := openEmulated(t, 0)

	version, err := card.Version()
	assertNoError(t, err)
	if version != "1.2" {
		t.Errorf("got version %s", version)
	}

	hw, err := card.HardwareRevision()
	assertNoError(t, err)
	if hw != "1.0" {
		t.Errorf("got hardware %s", hw)
	}

	info, err := card.BoardInfo()
	assertNoError(t, err)
	want := "Firmware version 1.2, CPU temperature 36 C, Power source 3.30 V"
	if info != want {
		t.Errorf("got %q want %q", info, want)
	}
}

func TestRelaysAndLeds(t *testing.T) {
	card, emu := openEmulated(t, 1)

	assertNoError(t, card.SetRelay(2, true))
	mask, err := card.Relays()
	assertNoError(t, err)
	assertInts(t, mask, 2)

	on, err := card.Relay(2)
	assertNoError(t, err)
	assertBools(t, on, true)

	assertNoError(t, card.SetRelay(2, false))
	on, _ = card.Relay(2)
	assertBools(t, on, false)

	assertErrorIs(t, card.SetRelay(3, true), ErrChannel)
	assertErrorIs(t, card.SetRelays(4), ErrRange)

	assertNoError(t, card.SetLeds(63))
	assertBytes(t, emu.Peek(1, RegLeds, 1), []byte{63})
	assertErrorIs(t, card.SetLeds(64), ErrRange)

	assertNoError(t, card.SetLed(6, false))
	mask, _ = card.Leds()
	assertInts(t, mask, 31)

	_, err = card.Led(0)
	assertErrorIs(t, err, ErrChannel)
}

func TestAnalog(t *testing.T) {
	card, emu := openEmulated(t, 0)

	emu.PokeInt16(0, RegUIn+2, 4321)
	v, err := card.UIn(2)
	assertNoError(t, err)
	assertFloats(t, v, 4.321)

	emu.PokeInt16(0, RegIIn, 12500)
	v, err = card.IIn(1)
	assertNoError(t, err)
	assertFloats(t, v, 12.5)

	assertNoError(t, card.SetUOut(2, 2.5))
	assertBytes(t, emu.Peek(0, RegUOut+2, 2), []byte{0xc4, 0x09})
	v, _ = card.UOut(2)
	assertFloats(t, v, 2.5)

	assertNoError(t, card.SetIOut(1, 12))
	v, _ = card.IOut(1)
	assertFloats(t, v, 12)

	assertErrorIs(t, card.SetUOut(1, 10.5), ErrRange)
	assertErrorIs(t, card.SetIOut(1, 3.9), ErrRange)
	assertErrorIs(t, card.SetIOut(1, math.NaN()), ErrRange)
	_, err = card.UIn(3)
	assertErrorIs(t, err, ErrChannel)
}

func TestGainOffset(t *testing.T) {
	card, emu := openEmulated(t, 0)

	emu.PokeInt16(0, RegUIn, 5000)
	emu.PokeFloat32(0, RegRtdVal+4, 20)

	assertNoError(t, card.SetGainOffset(VoltageIn, 1, 2, 0.5))
	v, err := card.UIn(1)
	assertNoError(t, err)
	assertFloats(t, v, 10.5)

	assertNoError(t, card.SetGainOffset(RtdTemp, 2, 1, -1.5))
	v, err = card.RtdTemp(2)
	assertNoError(t, err)
	assertFloats(t, v, 18.5)

	gain, offset, err := card.GainOffset(RtdTemp, 2)
	assertNoError(t, err)
	assertFloats(t, gain, 1)
	assertFloats(t, offset, -1.5)

	assertErrorIs(t, card.SetGainOffset(CurrentIn, 3, 1, 0), ErrChannel)
	assertErrorIs(t, card.SetGainOffset(RtdTemp, 1, math.Inf(1), 0), ErrRange)
	assertErrorIs(t, card.SetGainOffset(VoltageIn, 2, 1, math.Inf(-1)), ErrRange)
	assertErrorIs(t, card.SetGainOffset(VoltageIn, 2, math.NaN(), 0), ErrRange)
	if err := card.SetGainOffset(AnalogKind(9), 1, 1, 0); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestRtd(t *testing.T) {
	card, emu := openEmulated(t, 0)

	emu.PokeFloat32(0, RegRtdRes, 107.79)
	v, err := card.RtdRes(1)
	assertNoError(t, err)
	assertFloats(t, v, float64(float32(107.79)))

	_, err = card.RtdTemp(3)
	assertErrorIs(t, err, ErrChannel)
}

func TestCalibration(t *testing.T) {
	card, emu := openEmulated(t, 0)

	emu.Poke(0, RegCalibStatus, uint8(CalibInProgress))
	status, err := card.CalibStatus()
	assertNoError(t, err)
	if status != CalibInProgress {
		t.Errorf("got %v", status)
	}

	assertNoError(t, card.Calibrate(CalRtd, 2, 100.34))
	assertBytes(t, emu.Peek(0, RegCalibChannel, 1), []byte{calibRtdCh1 + 1})
	status, _ = card.CalibStatus()
	if status != CalibDone {
		t.Errorf("got %v", status)
	}

	emu.Poke(0, RegCalibStatus, uint8(CalibInProgress))
	assertNoError(t, card.ResetCalibration(CalIOut, 2))
	// the firmware consumes the key
	assertBytes(t, emu.Peek(0, RegCalibChannel, 2), []byte{calibIOutCh1 + 1, 0})
	status, _ = card.CalibStatus()
	if status != CalibDone {
		t.Errorf("got %v after reset", status)
	}

	assertErrorIs(t, card.Calibrate(CalUOut, 3, 1), ErrChannel)

	if CalibError.String() != "Calibration error" {
		t.Errorf("got %s", CalibError)
	}
}

func TestWatchdog(t *testing.T) {
	card, emu := openEmulated(t, 0)

	assertNoError(t, card.WdtReload())
	assertInts(t, emu.Reloads(), 1)

	assertNoError(t, card.SetWdtPeriod(300))
	period, err := card.WdtPeriod()
	assertNoError(t, err)
	assertInts(t, period, 300)

	assertNoError(t, card.SetWdtInitPeriod(600))
	period, _ = card.WdtInitPeriod()
	assertInts(t, period, 600)

	assertNoError(t, card.SetWdtOffPeriod(100000))
	period, _ = card.WdtOffPeriod()
	assertInts(t, period, 100000)

	assertErrorIs(t, card.SetWdtPeriod(9), ErrRange)
	assertErrorIs(t, card.SetWdtInitPeriod(65001), ErrRange)
	assertErrorIs(t, card.SetWdtOffPeriod(1), ErrRange)

	emu.Poke(0, RegWdtResetCount, 7, 0)
	count, err := card.WdtResetCount()
	assertNoError(t, err)
	assertInts(t, count, 7)

	assertNoError(t, card.WdtClearResetCount())
	count, _ = card.WdtResetCount()
	assertInts(t, count, 0)
}

func TestRtc(t *testing.T) {
	card, _ := openEmulated(t, 0)

	want := time.Date(2031, 12, 24, 18, 30, 5, 0, time.UTC)
	assertNoError(t, card.SetRtc(want))

	got, err := card.Rtc()
	assertNoError(t, err)
	if !got.Equal(want) {
		t.Errorf("got %v want %v", got, want)
	}

	assertErrorIs(t, card.SetRtc(time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)), ErrRange)
	assertErrorIs(t, card.SetRtc(time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)), ErrRange)
}

func TestServoMotorButton(t *testing.T) {
	card, emu := openEmulated(t, 0)

	assertNoError(t, card.SetServo(2, -25.26))
	v, err := card.Servo(2)
	assertNoError(t, err)
	assertFloats(t, v, -25.3)

	assertNoError(t, card.SetMotor(100))
	v, _ = card.Motor()
	assertFloats(t, v, 100)

	assertErrorIs(t, card.SetServo(1, 140.1), ErrRange)
	assertErrorIs(t, card.SetMotor(-101), ErrRange)
	assertErrorIs(t, card.SetServo(3, 0), ErrChannel)

	emu.Press(0, true)
	pressed, err := card.Button()
	assertNoError(t, err)
	assertBools(t, pressed, true)

	latched, err := card.ButtonLatch()
	assertNoError(t, err)
	assertBools(t, latched, true)

	latched, _ = card.ButtonLatch()
	assertBools(t, latched, false)

	pressed, _ = card.Button()
	assertBools(t, pressed, true)
}

func TestUnplugged(t *testing.T) {
	card, emu := openEmulated(t, 2)
	emu.Unplug(2)

	if _, err := card.Relays(); err == nil {
		t.Error("expected error from unplugged card")
	}

	emu.Plug(2)
	_, err := card.Relays()
	assertNoError(t, err)
}
