package board

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"

	"github.com/hubertat/multiio/i2cbus"
)

var (
	ErrStack   = errors.New("stack level out of range [0..7]")
	ErrChannel = errors.New("channel number out of range")
	ErrRange   = errors.New("value out of range")
)

// Card is a single MultiIO board on an I2C bus, addressed by its stack level.
// All methods are safe for concurrent use and take 1 based channel numbers.
type Card struct {
	stack   int
	addr    uint16
	bus     *i2cbus.Bus
	ownsBus bool

	correction map[AnalogKind][]gainOffset

	lock sync.Mutex
}

type gainOffset struct {
	gain   float64
	offset float64
}

// Open attaches to the card at the given stack level on an already opened bus
// and checks that it answers.
func Open(bus i2c.Bus, stack int) (*Card, error) {
	return open(i2cbus.New(bus), stack, false)
}

// OpenBus opens the named host bus ("1" for /dev/i2c-1) and attaches to the card.
// The bus is closed together with the card.
func OpenBus(busName string, stack int) (*Card, error) {
	if err := checkStack(stack); err != nil {
		return nil, err
	}
	bus, err := i2cbus.Open(busName)
	if err != nil {
		return nil, err
	}
	card, err := open(bus, stack, true)
	if err != nil {
		bus.Close()
		return nil, err
	}
	return card, nil
}

func open(bus *i2cbus.Bus, stack int, ownsBus bool) (*Card, error) {
	if err := checkStack(stack); err != nil {
		return nil, err
	}

	c := &Card{
		stack:   stack,
		addr:    BaseAddress + uint16(stack),
		bus:     bus,
		ownsBus: ownsBus,
		correction: map[AnalogKind][]gainOffset{
			VoltageIn: defaultCorrection(UInChannels),
			CurrentIn: defaultCorrection(IInChannels),
			RtdTemp:   defaultCorrection(RtdChannels),
		},
	}

	if _, err := c.read(RegRevisionMajor, 1); err != nil {
		return nil, errors.Wrapf(err, "multiio card not detected on stack %d", stack)
	}

	return c, nil
}

func checkStack(stack int) error {
	if stack < 0 || stack > MaxStack {
		return errors.Wrapf(ErrStack, "stack %d", stack)
	}
	return nil
}

func defaultCorrection(channels int) []gainOffset {
	c := make([]gainOffset, channels)
	for i := range c {
		c[i].gain = 1
	}
	return c
}

func (c *Card) Close() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.ownsBus {
		return c.bus.Close()
	}
	return nil
}

func (c *Card) Stack() int {
	return c.stack
}

func (c *Card) String() string {
	return fmt.Sprintf("multiio:%d@0x%02x", c.stack, c.addr)
}

func (c *Card) read(reg uint8, n int) ([]byte, error) {
	return c.bus.ReadBlock(c.addr, reg, n)
}

func (c *Card) write(reg uint8, data ...byte) error {
	return c.bus.WriteBlock(c.addr, reg, data)
}

func (c *Card) readByte(reg uint8) (uint8, error) {
	buf, err := c.read(reg, 1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (c *Card) readUint16(reg uint8) (uint16, error) {
	return c.bus.ReadWordData(c.addr, reg)
}

func (c *Card) readInt16(reg uint8) (int16, error) {
	v, err := c.bus.ReadWordData(c.addr, reg)
	return int16(v), err
}

func (c *Card) writeInt16(reg uint8, v int16) error {
	return c.bus.WriteWordData(c.addr, reg, uint16(v))
}

func (c *Card) readUint32(reg uint8) (uint32, error) {
	buf, err := c.read(reg, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

func (c *Card) writeUint32(reg uint8, v uint32) error {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	return c.write(reg, buf...)
}

func (c *Card) readFloat32(reg uint8) (float32, error) {
	return c.bus.ReadFloat32(c.addr, reg)
}

func checkChannel(ch, count int, what string) error {
	if ch < 1 || ch > count {
		return errors.Wrapf(ErrChannel, "%s channel %d not in [1..%d]", what, ch, count)
	}
	return nil
}

func checkRange(v, lo, hi float64, what string) error {
	if math.IsNaN(v) || v < lo || v > hi {
		return errors.Wrapf(ErrRange, "%s %v not in [%v..%v]", what, v, lo, hi)
	}
	return nil
}

// Version returns the firmware version as "major.minor".
func (c *Card) Version() (string, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	buf, err := c.read(RegRevisionMajor, 2)
	if err != nil {
		return "", errors.Wrap(err, "failed to read firmware version")
	}
	return fmt.Sprintf("%d.%d", buf[0], buf[1]), nil
}

// HardwareRevision returns the board revision as "major.minor".
func (c *Card) HardwareRevision() (string, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	buf, err := c.read(RegRevisionHwMajor, 2)
	if err != nil {
		return "", errors.Wrap(err, "failed to read hardware revision")
	}
	return fmt.Sprintf("%d.%d", buf[0], buf[1]), nil
}

type Diagnostics struct {
	CpuTemperature int
	PowerSource    float64
}

func (c *Card) Diagnostics() (Diagnostics, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	buf, err := c.read(RegDiagTemperature, 3)
	if err != nil {
		return Diagnostics{}, errors.Wrap(err, "failed to read board diagnostics")
	}
	mv := int16(binary.LittleEndian.Uint16(buf[1:]))
	return Diagnostics{
		CpuTemperature: int(buf[0]),
		PowerSource:    float64(mv) / voltToMillivolt,
	}, nil
}

// BoardInfo formats firmware version and diagnostics the way the board tool prints them.
func (c *Card) BoardInfo() (string, error) {
	diag, err := c.Diagnostics()
	if err != nil {
		return "", err
	}

	c.lock.Lock()
	buf, err := c.read(RegRevisionMajor, 2)
	c.lock.Unlock()
	if err != nil {
		return "", errors.Wrap(err, "failed to read board info")
	}

	return fmt.Sprintf("Firmware version %d.%d, CPU temperature %d C, Power source %0.2f V",
		buf[0], buf[1], diag.CpuTemperature, diag.PowerSource), nil
}
