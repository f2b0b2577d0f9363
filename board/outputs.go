package board

import "github.com/pkg/errors"

type bitOutputs struct {
	name     string
	channels int
	regMask  uint8
	regSet   uint8
	regClr   uint8
}

var (
	relayOutputs = bitOutputs{"relay", RelayChannels, RegRelays, RegRelaySet, RegRelayClr}
	ledOutputs   = bitOutputs{"led", LedChannels, RegLeds, RegLedSet, RegLedClr}
)

func (c *Card) outputMask(o bitOutputs) (int, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	mask, err := c.readByte(o.regMask)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read %s states", o.name)
	}
	return int(mask), nil
}

func (c *Card) outputState(o bitOutputs, ch int) (bool, error) {
	if err := checkChannel(ch, o.channels, o.name); err != nil {
		return false, err
	}
	mask, err := c.outputMask(o)
	if err != nil {
		return false, err
	}
	return mask&(1<<(ch-1)) != 0, nil
}

func (c *Card) setOutput(o bitOutputs, ch int, on bool) error {
	if err := checkChannel(ch, o.channels, o.name); err != nil {
		return err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	reg := o.regClr
	if on {
		reg = o.regSet
	}
	if err := c.write(reg, uint8(ch)); err != nil {
		return errors.Wrapf(err, "failed to set %s %d", o.name, ch)
	}
	return nil
}

func (c *Card) setOutputMask(o bitOutputs, mask int) error {
	if mask < 0 || mask > (1<<o.channels)-1 {
		return errors.Wrapf(ErrRange, "%s mask %d not in [0..%d]", o.name, mask, (1<<o.channels)-1)
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if err := c.write(o.regMask, uint8(mask)); err != nil {
		return errors.Wrapf(err, "failed to write %s mask", o.name)
	}
	return nil
}

func (c *Card) Relay(ch int) (bool, error) {
	return c.outputState(relayOutputs, ch)
}

func (c *Card) Relays() (int, error) {
	return c.outputMask(relayOutputs)
}

func (c *Card) SetRelay(ch int, on bool) error {
	return c.setOutput(relayOutputs, ch, on)
}

func (c *Card) SetRelays(mask int) error {
	return c.setOutputMask(relayOutputs, mask)
}

func (c *Card) Led(ch int) (bool, error) {
	return c.outputState(ledOutputs, ch)
}

func (c *Card) Leds() (int, error) {
	return c.outputMask(ledOutputs)
}

func (c *Card) SetLed(ch int, on bool) error {
	return c.setOutput(ledOutputs, ch, on)
}

func (c *Card) SetLeds(mask int) error {
	return c.setOutputMask(ledOutputs, mask)
}
