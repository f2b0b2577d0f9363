package i2ctool

import (
	"strconv"
	"strings"
)

type Op int

const (
	OpUsage Op = iota
	OpReadBlock
	OpReadWord
	OpReadFloat
	OpReadInt
	OpWriteWord
	OpWriteByte
	OpScan
)

var opFlags = map[string]Op{
	"-rb": OpReadBlock,
	"-rw": OpReadWord,
	"-rf": OpReadFloat,
	"-ri": OpReadInt,
	"-ww": OpWriteWord,
	"-wb": OpWriteByte,
}

func (o Op) String() string {
	switch o {
	case OpScan:
		return "-s"
	case OpUsage:
		return "usage"
	}
	for flag, op := range opFlags {
		if op == o {
			return flag
		}
	}
	return "op(" + strconv.Itoa(int(o)) + ")"
}

const (
	maxHwAddr  = 0x7f
	maxMemAddr = 0xff
)

// Command is one parsed invocation. Value is the byte count for -rb, the
// element count for -rw, -rf and -ri and the value written by -ww and -wb.
type Command struct {
	Op      Op
	HwAddr  uint16
	MemAddr uint8
	Value   int
}

// valueRange is the accepted [lo..hi] of the last argument per operation.
var valueRange = map[Op][2]int{
	OpReadBlock: {1, 32},
	OpReadWord:  {0, 128},
	OpReadFloat: {0, 64},
	OpReadInt:   {0, 64},
	OpWriteWord: {0, 0xffff},
	OpWriteByte: {0, 0xff},
}

// Parse selects exactly one operation from the arguments following the
// program name. Anything it does not understand selects OpUsage.
func Parse(args []string) Command {
	usage := Command{Op: OpUsage}

	switch len(args) {
	case 1:
		if args[0] == "-s" {
			return Command{Op: OpScan}
		}
		return usage
	case 4:
	default:
		return usage
	}

	op, ok := opFlags[args[0]]
	if !ok {
		return usage
	}
	hw, ok := parseInt(args[1], 0, maxHwAddr)
	if !ok {
		return usage
	}
	mem, ok := parseInt(args[2], 0, maxMemAddr)
	if !ok {
		return usage
	}
	bounds := valueRange[op]
	value, ok := parseInt(args[3], bounds[0], bounds[1])
	if !ok {
		return usage
	}

	return Command{Op: op, HwAddr: uint16(hw), MemAddr: uint8(mem), Value: value}
}

// parseInt reads a decimal or 0x prefixed hexadecimal number within [lo..hi].
func parseInt(s string, lo, hi int) (int, bool) {
	base := 10
	digits := strings.TrimSpace(s)
	if strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
		base = 16
		digits = digits[2:]
	}
	v, err := strconv.ParseInt(digits, base, 32)
	if err != nil || v < int64(lo) || v > int64(hi) {
		return 0, false
	}
	return int(v), true
}
