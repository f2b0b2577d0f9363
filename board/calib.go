package board

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// CalTarget is a hardware calibrated channel class. The firmware computes the
// calibration from two points written one at a time.
type CalTarget int

const (
	CalRtd CalTarget = iota
	CalUIn
	CalIIn
	CalUOut
	CalIOut
)

var calTargets = map[CalTarget]struct {
	name     string
	first    uint8
	channels int
}{
	CalRtd:  {"rtd", calibRtdCh1, RtdChannels},
	CalUIn:  {"u_in", calibUInCh1, UInChannels},
	CalIIn:  {"i_in", calibIInCh1, IInChannels},
	CalUOut: {"u_out", calibUOutCh1, UOutChannels},
	CalIOut: {"i_out", calibIOutCh1, IOutChannels},
}

func (t CalTarget) String() string {
	if target, ok := calTargets[t]; ok {
		return target.name
	}
	return "unknown"
}

func (t CalTarget) channel(ch int) (uint8, error) {
	target, ok := calTargets[t]
	if !ok {
		return 0, errors.Errorf("unknown calibration target %d", t)
	}
	if err := checkChannel(ch, target.channels, target.name); err != nil {
		return 0, err
	}
	return target.first + uint8(ch-1), nil
}

type CalibStatus uint8

const (
	CalibInProgress CalibStatus = 0
	CalibDone       CalibStatus = 1
	CalibError      CalibStatus = 2
)

func (s CalibStatus) String() string {
	switch s {
	case CalibInProgress:
		return "Calibration in progress"
	case CalibDone:
		return "Calibration done"
	case CalibError:
		return "Calibration error"
	}
	return "Unknown calibration status"
}

// Calibrate sends one calibration point: the value (V, mA or ohm) currently
// present on the channel.
func (c *Card) Calibrate(target CalTarget, ch int, value float64) error {
	calCh, err := target.channel(ch)
	if err != nil {
		return err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	buf := make([]byte, 6)
	binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(value)))
	buf[4] = calCh
	buf[5] = calibrationKey
	if err := c.write(RegCalibValue, buf...); err != nil {
		return errors.Wrapf(err, "failed to write %s calibration point", target)
	}
	return nil
}

// ResetCalibration restores the factory calibration of a channel.
func (c *Card) ResetCalibration(target CalTarget, ch int) error {
	calCh, err := target.channel(ch)
	if err != nil {
		return err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if err := c.write(RegCalibChannel, calCh, resetCalibrationKey); err != nil {
		return errors.Wrapf(err, "failed to reset %s calibration", target)
	}
	return nil
}

func (c *Card) CalibStatus() (CalibStatus, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	status, err := c.readByte(RegCalibStatus)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read calibration status")
	}
	return CalibStatus(status), nil
}
