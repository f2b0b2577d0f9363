package board

import "github.com/pkg/errors"

// Watchdog periods in seconds.
const (
	WdtPeriodMin     = 10
	WdtPeriodMax     = 65000
	WdtInitPeriodMin = 10
	WdtInitPeriodMax = 65000
	WdtOffPeriodMin  = 2
	WdtOffPeriodMax  = 4147200
)

// WdtReload resets the watchdog countdown.
func (c *Card) WdtReload() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if err := c.write(RegWdtReset, wdtResetSignature); err != nil {
		return errors.Wrap(err, "failed to reload watchdog")
	}
	return nil
}

func (c *Card) readWdtWord(reg uint8, what string) (int, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	v, err := c.readUint16(reg)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read watchdog %s", what)
	}
	return int(v), nil
}

func (c *Card) writeWdtWord(reg uint8, v, lo, hi int, what string) error {
	if v < lo || v > hi {
		return errors.Wrapf(ErrRange, "watchdog %s %d not in [%d..%d]", what, v, lo, hi)
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if err := c.bus.WriteWordData(c.addr, reg, uint16(v)); err != nil {
		return errors.Wrapf(err, "failed to write watchdog %s", what)
	}
	return nil
}

// WdtPeriod returns the seconds without reload after which the watchdog cuts the power.
func (c *Card) WdtPeriod() (int, error) {
	return c.readWdtWord(RegWdtIntervalGet, "period")
}

func (c *Card) SetWdtPeriod(seconds int) error {
	return c.writeWdtWord(RegWdtIntervalSet, seconds, WdtPeriodMin, WdtPeriodMax, "period")
}

// WdtInitPeriod returns the period used after power up, before the first reload.
func (c *Card) WdtInitPeriod() (int, error) {
	return c.readWdtWord(RegWdtInitIntervalGet, "init period")
}

func (c *Card) SetWdtInitPeriod(seconds int) error {
	return c.writeWdtWord(RegWdtInitIntervalSet, seconds, WdtInitPeriodMin, WdtInitPeriodMax, "init period")
}

// WdtOffPeriod returns how long the power stays off after a watchdog expiry.
func (c *Card) WdtOffPeriod() (int, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	v, err := c.readUint32(RegWdtOffIntervalGet)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read watchdog off period")
	}
	return int(v), nil
}

func (c *Card) SetWdtOffPeriod(seconds int) error {
	if seconds < WdtOffPeriodMin || seconds > WdtOffPeriodMax {
		return errors.Wrapf(ErrRange, "watchdog off period %d not in [%d..%d]", seconds, WdtOffPeriodMin, WdtOffPeriodMax)
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if err := c.writeUint32(RegWdtOffIntervalSet, uint32(seconds)); err != nil {
		return errors.Wrap(err, "failed to write watchdog off period")
	}
	return nil
}

func (c *Card) WdtResetCount() (int, error) {
	return c.readWdtWord(RegWdtResetCount, "reset count")
}

func (c *Card) WdtClearResetCount() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if err := c.write(RegWdtClearResetCount, wdtClearCountSignature); err != nil {
		return errors.Wrap(err, "failed to clear watchdog reset count")
	}
	return nil
}
