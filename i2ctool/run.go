package i2ctool

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Transport is the register access used by the tool, implemented by *i2cbus.Bus.
type Transport interface {
	ReadBlock(addr uint16, reg uint8, n int) ([]byte, error)
	ReadWordData(addr uint16, reg uint8) (uint16, error)
	ReadFloat32(addr uint16, reg uint8) (float32, error)
	ReadInt32(addr uint16, reg uint8) (int32, error)
	WriteByteData(addr uint16, reg uint8, value uint8) error
	WriteWordData(addr uint16, reg uint8, value uint16) error
	Scan(ctx context.Context) ([]uint16, error)
}

var usageLines = []string{
	"Read buffer => \tpython i2c.py -rb <hwAdd> <memAdd> <bytesCount>",
	"Read word => \tpython i2c.py -rw <hwAdd> <memAdd> <len>",
	"Read float => \tpython i2c.py -rf <hwAdd> <memAdd> <len>",
	"Read int32 => \tpython i2c.py -ri <hwAdd> <memAdd> <len>",
	"Write byte => \tpython i2c.py -wb <hwAdd> <memAdd> <byteVal>",
	"Write word => \tpython i2c.py -ww <hwAdd> <memAdd> <woedVal>",
	"Scan bus => \tpython i2c.py -s",
}

func PrintUsage(w io.Writer) {
	fmt.Fprintln(w, "Invalid options! \n\rUsage:")
	for _, line := range usageLines {
		fmt.Fprintln(w, line)
	}
}

// Run executes cmd on bus and prints the result to w. OpUsage prints the
// usage and succeeds.
func Run(ctx context.Context, cmd Command, bus Transport, w io.Writer) error {
	switch cmd.Op {
	case OpUsage:
		PrintUsage(w)
		return nil

	case OpScan:
		found, err := bus.Scan(ctx)
		for _, addr := range found {
			fmt.Fprintln(w, addr)
		}
		return err

	case OpReadBlock:
		buf, err := bus.ReadBlock(cmd.HwAddr, cmd.MemAddr, cmd.Value)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, FormatList(buf))
		return nil

	case OpReadWord:
		return readEach(cmd, 2, func(reg uint8) (string, error) {
			v, err := bus.ReadWordData(cmd.HwAddr, reg)
			return strconv.Itoa(int(v)), err
		}, w)

	case OpReadFloat:
		return readEach(cmd, 4, func(reg uint8) (string, error) {
			v, err := bus.ReadFloat32(cmd.HwAddr, reg)
			return FormatFloat(float64(v)), err
		}, w)

	case OpReadInt:
		return readEach(cmd, 4, func(reg uint8) (string, error) {
			v, err := bus.ReadInt32(cmd.HwAddr, reg)
			return strconv.Itoa(int(v)), err
		}, w)

	case OpWriteWord:
		return bus.WriteWordData(cmd.HwAddr, cmd.MemAddr, uint16(cmd.Value))

	case OpWriteByte:
		return bus.WriteByteData(cmd.HwAddr, cmd.MemAddr, uint8(cmd.Value))
	}

	return errors.Errorf("unknown operation %v", cmd.Op)
}

func readEach(cmd Command, stride int, read func(reg uint8) (string, error), w io.Writer) error {
	for i := 0; i < cmd.Value; i++ {
		reg := int(cmd.MemAddr) + stride*i
		if reg > maxMemAddr {
			return errors.Errorf("register %d out of range", reg)
		}
		line, err := read(uint8(reg))
		if err != nil {
			return err
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

// FormatList prints bytes as a bracketed comma separated list: [1, 2, 3].
func FormatList(buf []byte) string {
	items := make([]string, len(buf))
	for i, b := range buf {
		items[i] = strconv.Itoa(int(b))
	}
	return "[" + strings.Join(items, ", ") + "]"
}

// FormatFloat prints the shortest representation that reads back to v,
// keeping a ".0" on integral values and switching to an exponent below 1e-4
// and from 1e16 on.
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	abs := math.Abs(v)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
