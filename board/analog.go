package board

import (
	"math"

	"github.com/pkg/errors"
)

// AnalogKind selects an input class that carries a software gain/offset correction.
type AnalogKind int

const (
	VoltageIn AnalogKind = iota
	CurrentIn
	RtdTemp
)

func (k AnalogKind) String() string {
	switch k {
	case VoltageIn:
		return "u_in"
	case CurrentIn:
		return "i_in"
	case RtdTemp:
		return "rtd"
	}
	return "unknown"
}

const (
	UOutMin = 0.0
	UOutMax = 10.0
	IOutMin = 4.0
	IOutMax = 20.0
)

type analogChannel struct {
	name     string
	reg      uint8
	channels int
	scale    float64
}

var (
	uIn  = analogChannel{"u_in", RegUIn, UInChannels, voltToMillivolt}
	iIn  = analogChannel{"i_in", RegIIn, IInChannels, milliampToMicroamp}
	uOut = analogChannel{"u_out", RegUOut, UOutChannels, voltToMillivolt}
	iOut = analogChannel{"i_out", RegIOut, IOutChannels, milliampToMicroamp}
)

func (c *Card) readAnalog(a analogChannel, ch int) (float64, error) {
	if err := checkChannel(ch, a.channels, a.name); err != nil {
		return 0, err
	}
	raw, err := c.readInt16(a.reg + uint8(analogValueSize*(ch-1)))
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read %s channel %d", a.name, ch)
	}
	return float64(raw) / a.scale, nil
}

func (c *Card) writeAnalog(a analogChannel, ch int, value float64) error {
	if err := checkChannel(ch, a.channels, a.name); err != nil {
		return err
	}
	raw := int16(math.Ceil(value * a.scale))
	if err := c.writeInt16(a.reg+uint8(analogValueSize*(ch-1)), raw); err != nil {
		return errors.Wrapf(err, "failed to write %s channel %d", a.name, ch)
	}
	return nil
}

func (c *Card) corrected(kind AnalogKind, ch int, raw float64) float64 {
	corr := c.correction[kind][ch-1]
	return raw*corr.gain + corr.offset
}

// UIn returns the 0-10V input in volts with the gain/offset correction applied.
func (c *Card) UIn(ch int) (float64, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	v, err := c.readAnalog(uIn, ch)
	if err != nil {
		return 0, err
	}
	return c.corrected(VoltageIn, ch, v), nil
}

// IIn returns the 4-20mA input in milliamps with the gain/offset correction applied.
func (c *Card) IIn(ch int) (float64, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	v, err := c.readAnalog(iIn, ch)
	if err != nil {
		return 0, err
	}
	return c.corrected(CurrentIn, ch, v), nil
}

func (c *Card) UOut(ch int) (float64, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.readAnalog(uOut, ch)
}

func (c *Card) SetUOut(ch int, volts float64) error {
	if err := checkRange(volts, UOutMin, UOutMax, "voltage"); err != nil {
		return err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	return c.writeAnalog(uOut, ch, volts)
}

func (c *Card) IOut(ch int) (float64, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.readAnalog(iOut, ch)
}

func (c *Card) SetIOut(ch int, milliamps float64) error {
	if err := checkRange(milliamps, IOutMin, IOutMax, "current"); err != nil {
		return err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	return c.writeAnalog(iOut, ch, milliamps)
}

// RtdTemp returns the RTD temperature in Celsius with the gain/offset correction applied.
func (c *Card) RtdTemp(ch int) (float64, error) {
	if err := checkChannel(ch, RtdChannels, "rtd"); err != nil {
		return 0, err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	v, err := c.readFloat32(RegRtdVal + uint8(rtdDataSize*(ch-1)))
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read rtd temperature %d", ch)
	}
	return c.corrected(RtdTemp, ch, float64(v)), nil
}

// RtdRes returns the RTD resistance in ohms.
func (c *Card) RtdRes(ch int) (float64, error) {
	if err := checkChannel(ch, RtdChannels, "rtd"); err != nil {
		return 0, err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	v, err := c.readFloat32(RegRtdRes + uint8(rtdDataSize*(ch-1)))
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read rtd resistance %d", ch)
	}
	return float64(v), nil
}

// SetGainOffset sets the correction applied as raw*gain + offset on later reads.
func (c *Card) SetGainOffset(kind AnalogKind, ch int, gain, offset float64) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	corr, ok := c.correction[kind]
	if !ok {
		return errors.Errorf("no gain/offset correction for %s", kind)
	}
	if err := checkChannel(ch, len(corr), kind.String()); err != nil {
		return err
	}
	if !isFinite(gain) || !isFinite(offset) {
		return errors.Wrapf(ErrRange, "gain %v offset %v", gain, offset)
	}

	corr[ch-1] = gainOffset{gain: gain, offset: offset}
	return nil
}

func (c *Card) GainOffset(kind AnalogKind, ch int) (gain, offset float64, err error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	corr, ok := c.correction[kind]
	if !ok {
		return 0, 0, errors.Errorf("no gain/offset correction for %s", kind)
	}
	if err = checkChannel(ch, len(corr), kind.String()); err != nil {
		return
	}
	return corr[ch-1].gain, corr[ch-1].offset, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
