package panel

import (
	"fmt"
	"time"

	"github.com/hubertat/multiio/board"
)

// ErrorText is shown in place of a value whose section failed to read.
const ErrorText = "Error"

// Snapshot is the result of one poll. Each section carries its own error,
// a failed section leaves its values zero except relays and LEDs which read -1.
type Snapshot struct {
	Connected bool
	Stack     int
	Bus       int
	Taken     time.Time

	Version     VersionInfo
	Relays      Bits
	Leds        Bits
	AnalogIn    Analog
	AnalogOut   Analog
	Rtd         Rtd
	Watchdog    Watchdog
	Rtc         Rtc
	Opto        Opto
	Counters    Counters
	Encoders    Encoders
	ServoMotor  ServoMotor
	Button      Button
	Calibration Calibration
}

type VersionInfo struct {
	Firmware string
	Hardware string
	Err      error
}

// Bits holds 1 or 0 per channel, -1 when the read failed.
type Bits struct {
	State []int
	Err   error
}

func (b Bits) On(ch int) bool {
	return ch >= 1 && ch <= len(b.State) && b.State[ch-1] == 1
}

// Analog holds volts for the 0-10V channels and milliamps for the 4-20mA ones.
type Analog struct {
	Voltage []float64
	Current []float64
	Err     error
}

type Rtd struct {
	Temperature []float64
	Resistance  []float64
	Err         error
}

type Watchdog struct {
	Period     int
	InitPeriod int
	OffPeriod  int
	ResetCount int
	Err        error
}

type Rtc struct {
	Time time.Time
	Err  error
}

type Opto struct {
	State []bool
	Err   error
}

type Counters struct {
	Count []uint32
	Edge  []board.Edge
	Err   error
}

type Encoders struct {
	Enabled []bool
	Count   []int32
	Err     error
}

type ServoMotor struct {
	Servo []float64
	Motor float64
	Err   error
}

type Button struct {
	Pressed bool
	Latched bool
	Err     error
}

type Calibration struct {
	Status board.CalibStatus
	Err    error
}

// Label follows the board tool: any non zero status counts as calibrated.
func (c Calibration) Label() string {
	if c.Err != nil {
		return ErrorText
	}
	if c.Status != board.CalibInProgress {
		return "Calibrated"
	}
	return "Not Calibrated"
}

// Text formats v unless err is set.
func Text(err error, format string, v ...interface{}) string {
	if err != nil {
		return ErrorText
	}
	return fmt.Sprintf(format, v...)
}

func failedBits(channels int, err error) Bits {
	b := Bits{State: make([]int, channels), Err: err}
	for i := range b.State {
		b.State[i] = -1
	}
	return b
}

func disconnected(stack, bus int) Snapshot {
	err := ErrNotConnected
	return Snapshot{
		Stack:       stack,
		Bus:         bus,
		Taken:       time.Now(),
		Version:     VersionInfo{Err: err},
		Relays:      failedBits(board.RelayChannels, err),
		Leds:        failedBits(board.LedChannels, err),
		AnalogIn:    Analog{Err: err},
		AnalogOut:   Analog{Err: err},
		Rtd:         Rtd{Err: err},
		Watchdog:    Watchdog{Err: err},
		Rtc:         Rtc{Err: err},
		Opto:        Opto{Err: err},
		Counters:    Counters{Err: err},
		Encoders:    Encoders{Err: err},
		ServoMotor:  ServoMotor{Err: err},
		Button:      Button{Err: err},
		Calibration: Calibration{Err: err},
	}
}
