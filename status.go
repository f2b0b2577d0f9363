package multiio

import (
	"time"

	"github.com/pkg/errors"

	"github.com/hubertat/multiio/board"
	"github.com/hubertat/multiio/drivers"
	"github.com/hubertat/multiio/panel"
)

// sharedCard lets the panel poll the card owned by the io driver. The driver
// stays the only reader of the button latch and keeps the card open.
type sharedCard struct {
	*board.Card
	driver *drivers.MultiIO
}

func (sc sharedCard) Close() error {
	return nil
}

func (sc sharedCard) ButtonLatch() (bool, error) {
	return sc.driver.TakeLatch(), nil
}

func sharedCardOpener(driver *drivers.MultiIO) panel.Opener {
	return func(stack, bus int) (panel.Device, error) {
		card := driver.Card()
		if card == nil {
			return nil, errors.New("card driver not set up")
		}
		if card.Stack() != stack {
			return nil, errors.Wrapf(board.ErrStack, "card driver runs stack %d, not %d", card.Stack(), stack)
		}
		return sharedCard{Card: card, driver: driver}, nil
	}
}

// Status is the JSON status of the card, published on MQTT and served over HTTP.
type Status struct {
	Name      string
	Stack     int
	Bus       int
	Connected bool
	Taken     time.Time

	Firmware    string
	Hardware    string
	Calibration string

	Relays  []int
	Leds    []int
	Optos   []bool
	Counts  []uint32
	Encoder []int32

	VoltageIn  []float64
	CurrentIn  []float64
	VoltageOut []float64
	CurrentOut []float64
	Rtd        []float64

	Servo []float64
	Motor float64

	WdtResetCount int
	Clock         time.Time

	Errors map[string]string `json:",omitempty"`
}

func newStatus(name string, s panel.Snapshot) Status {
	st := Status{
		Name:      name,
		Stack:     s.Stack,
		Bus:       s.Bus,
		Connected: s.Connected,
		Taken:     s.Taken,

		Firmware:    s.Version.Firmware,
		Hardware:    s.Version.Hardware,
		Calibration: s.Calibration.Label(),

		Relays:  s.Relays.State,
		Leds:    s.Leds.State,
		Optos:   s.Opto.State,
		Counts:  s.Counters.Count,
		Encoder: s.Encoders.Count,

		VoltageIn:  s.AnalogIn.Voltage,
		CurrentIn:  s.AnalogIn.Current,
		VoltageOut: s.AnalogOut.Voltage,
		CurrentOut: s.AnalogOut.Current,
		Rtd:        s.Rtd.Temperature,

		Servo: s.ServoMotor.Servo,
		Motor: s.ServoMotor.Motor,

		WdtResetCount: s.Watchdog.ResetCount,
		Clock:         s.Rtc.Time,
	}

	if !s.Connected {
		st.Errors = map[string]string{"card": panel.ErrNotConnected.Error()}
		return st
	}
	for section, err := range s.Errors() {
		if st.Errors == nil {
			st.Errors = make(map[string]string)
		}
		st.Errors[section] = err.Error()
	}
	return st
}

// Status polls the card, it reports not connected when no card driver is configured.
func (mio *MultiIO) Status() Status {
	if mio.panel == nil {
		return newStatus(mio.Name, panel.Snapshot{})
	}
	return newStatus(mio.Name, mio.panel.Poll())
}
