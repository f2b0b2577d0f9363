package board

import (
	"math"

	"github.com/pkg/errors"
)

const (
	ServoMax = 140.0
	MotorMax = 100.0
)

func (c *Card) readPercent(reg uint8, what string) (float64, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	raw, err := c.readInt16(reg)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read %s", what)
	}
	return float64(raw) / servoScale, nil
}

func (c *Card) writePercent(reg uint8, value, limit float64, what string) error {
	if err := checkRange(value, -limit, limit, what); err != nil {
		return err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if err := c.writeInt16(reg, int16(math.Round(value*servoScale))); err != nil {
		return errors.Wrapf(err, "failed to write %s", what)
	}
	return nil
}

// Servo returns the servo position in percent.
func (c *Card) Servo(ch int) (float64, error) {
	if err := checkChannel(ch, ServoChannels, "servo"); err != nil {
		return 0, err
	}
	return c.readPercent(RegServo+uint8(servoValueSize*(ch-1)), "servo position")
}

// SetServo moves a servo, -100..100 percent for standard and up to ±140 for extended range servos.
func (c *Card) SetServo(ch int, percent float64) error {
	if err := checkChannel(ch, ServoChannels, "servo"); err != nil {
		return err
	}
	return c.writePercent(RegServo+uint8(servoValueSize*(ch-1)), percent, ServoMax, "servo position")
}

// Motor returns the motor PWM fill factor in percent, negative for reverse.
func (c *Card) Motor() (float64, error) {
	return c.readPercent(RegMotor, "motor speed")
}

func (c *Card) SetMotor(percent float64) error {
	return c.writePercent(RegMotor, percent, MotorMax, "motor speed")
}

const (
	buttonState = 1 << 0
	buttonLatch = 1 << 1
)

func (c *Card) Button() (bool, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	v, err := c.readByte(RegButton)
	if err != nil {
		return false, errors.Wrap(err, "failed to read button")
	}
	return v&buttonState != 0, nil
}

// ButtonLatch reports whether the button was pressed since the last call and clears the latch.
func (c *Card) ButtonLatch() (bool, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	v, err := c.readByte(RegButton)
	if err != nil {
		return false, errors.Wrap(err, "failed to read button latch")
	}
	if v&buttonLatch == 0 {
		return false, nil
	}
	if err := c.write(RegButton, 0); err != nil {
		return true, errors.Wrap(err, "failed to reset button latch")
	}
	return true, nil
}
