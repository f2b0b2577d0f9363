package i2cbus

import (
	"context"
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

const (
	ScanFirstAddress = 0x01
	ScanLastAddress  = 0x7e
	MaxBlockSize     = 32
)

// Bus provides smbus style register access on top of a periph i2c bus.
type Bus struct {
	bus    i2c.Bus
	closer io.Closer
}

func New(bus i2c.Bus) *Bus {
	return &Bus{bus: bus}
}

// Open initialises the host drivers and opens the bus by name or number ("1" for /dev/i2c-1).
func Open(name string) (*Bus, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to init periph host")
	}

	bc, err := i2creg.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open i2c bus %s", name)
	}

	return &Bus{bus: bc, closer: bc}, nil
}

func (b *Bus) String() string {
	return b.bus.String()
}

func (b *Bus) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

func (b *Bus) ReadBlock(addr uint16, reg uint8, n int) ([]byte, error) {
	if n < 1 || n > MaxBlockSize {
		return nil, errors.Errorf("block length %d out of range [1..%d]", n, MaxBlockSize)
	}
	buf := make([]byte, n)
	if err := b.bus.Tx(addr, []byte{reg}, buf); err != nil {
		return nil, errors.Wrapf(err, "read %d bytes at 0x%02x:%d", n, addr, reg)
	}
	return buf, nil
}

func (b *Bus) WriteBlock(addr uint16, reg uint8, data []byte) error {
	if len(data) > MaxBlockSize {
		return errors.Errorf("block length %d out of range [1..%d]", len(data), MaxBlockSize)
	}
	w := append([]byte{reg}, data...)
	if err := b.bus.Tx(addr, w, nil); err != nil {
		return errors.Wrapf(err, "write %d bytes at 0x%02x:%d", len(data), addr, reg)
	}
	return nil
}

func (b *Bus) ReadWordData(addr uint16, reg uint8) (uint16, error) {
	buf, err := b.ReadBlock(addr, reg, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf), nil
}

func (b *Bus) ReadFloat32(addr uint16, reg uint8) (float32, error) {
	buf, err := b.ReadBlock(addr, reg, 4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(buf)), nil
}

func (b *Bus) ReadInt32(addr uint16, reg uint8) (int32, error) {
	buf, err := b.ReadBlock(addr, reg, 4)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(buf)), nil
}

func (b *Bus) WriteByteData(addr uint16, reg uint8, value uint8) error {
	return b.WriteBlock(addr, reg, []byte{value})
}

func (b *Bus) WriteWordData(addr uint16, reg uint8, value uint16) error {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, value)
	return b.WriteBlock(addr, reg, buf)
}

// Scan probes every 7 bit address by reading one byte from register 0.
// Addresses that do not answer are skipped.
func (b *Bus) Scan(ctx context.Context) ([]uint16, error) {
	found := []uint16{}
	buf := make([]byte, 1)
	for addr := uint16(ScanFirstAddress); addr <= ScanLastAddress; addr++ {
		if err := ctx.Err(); err != nil {
			return found, err
		}
		if err := b.bus.Tx(addr, []byte{0}, buf); err == nil {
			found = append(found, addr)
		}
	}
	return found, nil
}
