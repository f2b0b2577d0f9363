package board

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Edge selects which transitions of an opto input increment its counter.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

func (e Edge) String() string {
	switch e {
	case EdgeNone:
		return "none"
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	case EdgeBoth:
		return "both"
	}
	return "edge(" + strconv.Itoa(int(e)) + ")"
}

// ParseEdge accepts none, rising/up, falling/down, both or the numeric 0..3.
func ParseEdge(s string) (Edge, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return EdgeNone, nil
	case "rising", "up":
		return EdgeRising, nil
	case "falling", "down":
		return EdgeFalling, nil
	case "both":
		return EdgeBoth, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > int(EdgeBoth) {
		return EdgeNone, errors.Wrapf(ErrRange, "invalid edge counting type %q [0..3]", s)
	}
	return Edge(n), nil
}

func (c *Card) Optos() (int, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	v, err := c.readByte(RegOpto)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read opto inputs")
	}
	return int(v), nil
}

func (c *Card) Opto(ch int) (bool, error) {
	if err := checkChannel(ch, OptoChannels, "opto"); err != nil {
		return false, err
	}
	mask, err := c.Optos()
	if err != nil {
		return false, err
	}
	return mask&(1<<(ch-1)) != 0, nil
}

func (c *Card) OptoEdge(ch int) (Edge, error) {
	if err := checkChannel(ch, OptoChannels, "opto"); err != nil {
		return EdgeNone, err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	buf, err := c.read(RegOptoRising, 2)
	if err != nil {
		return EdgeNone, errors.Wrapf(err, "failed to read opto %d edges", ch)
	}
	mask := uint8(1 << (ch - 1))
	edge := EdgeNone
	if buf[0]&mask != 0 {
		edge |= EdgeRising
	}
	if buf[1]&mask != 0 {
		edge |= EdgeFalling
	}
	return edge, nil
}

func (c *Card) SetOptoEdge(ch int, edge Edge) error {
	if err := checkChannel(ch, OptoChannels, "opto"); err != nil {
		return err
	}
	if edge > EdgeBoth {
		return errors.Wrapf(ErrRange, "edge %d", edge)
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	buf, err := c.read(RegOptoRising, 2)
	if err != nil {
		return errors.Wrapf(err, "failed to read opto %d edges", ch)
	}
	mask := uint8(1 << (ch - 1))
	rising, falling := buf[0]&^mask, buf[1]&^mask
	if edge&EdgeRising != 0 {
		rising |= mask
	}
	if edge&EdgeFalling != 0 {
		falling |= mask
	}
	if err := c.write(RegOptoRising, rising, falling); err != nil {
		return errors.Wrapf(err, "failed to write opto %d edges", ch)
	}
	return nil
}

// OptoCount returns the number of counted edges on an opto input.
func (c *Card) OptoCount(ch int) (uint32, error) {
	if err := checkChannel(ch, OptoChannels, "opto"); err != nil {
		return 0, err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	v, err := c.readUint32(RegOptoEdgeCount + uint8(counterSize*(ch-1)))
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read opto %d counter", ch)
	}
	return v, nil
}

func (c *Card) ResetOptoCount(ch int) error {
	if err := checkChannel(ch, OptoChannels, "opto"); err != nil {
		return err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if err := c.write(RegOptoCntReset, uint8(ch)); err != nil {
		return errors.Wrapf(err, "failed to reset opto %d counter", ch)
	}
	return nil
}

// OptoEncoder reports whether the quadrature encoder on an opto input pair is enabled.
func (c *Card) OptoEncoder(ch int) (bool, error) {
	if err := checkChannel(ch, EncoderChannels, "encoder"); err != nil {
		return false, err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	v, err := c.readByte(RegOptoEncEnable)
	if err != nil {
		return false, errors.Wrapf(err, "failed to read encoder %d state", ch)
	}
	return v&(1<<(ch-1)) != 0, nil
}

func (c *Card) SetOptoEncoder(ch int, enabled bool) error {
	if err := checkChannel(ch, EncoderChannels, "encoder"); err != nil {
		return err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	v, err := c.readByte(RegOptoEncEnable)
	if err != nil {
		return errors.Wrapf(err, "failed to read encoder %d state", ch)
	}
	mask := uint8(1 << (ch - 1))
	if enabled {
		v |= mask
	} else {
		v &^= mask
	}
	if err := c.write(RegOptoEncEnable, v); err != nil {
		return errors.Wrapf(err, "failed to write encoder %d state", ch)
	}
	return nil
}

func (c *Card) OptoEncoderCount(ch int) (int32, error) {
	if err := checkChannel(ch, EncoderChannels, "encoder"); err != nil {
		return 0, err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	v, err := c.readUint32(RegOptoEncCount + uint8(counterSize*(ch-1)))
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read encoder %d counter", ch)
	}
	return int32(v), nil
}

func (c *Card) ResetOptoEncoderCount(ch int) error {
	if err := checkChannel(ch, EncoderChannels, "encoder"); err != nil {
		return err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if err := c.write(RegOptoEncCntReset, uint8(ch)); err != nil {
		return errors.Wrapf(err, "failed to reset encoder %d counter", ch)
	}
	return nil
}
