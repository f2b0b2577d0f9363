package i2ctool

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/i2c/i2ctest"

	"github.com/hubertat/multiio/board"
	"github.com/hubertat/multiio/i2cbus"
)

func assertStrings(t testing.TB, got, want string) {
	t.Helper()

	if got != want {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Command
	}{
		{"read block", []string{"-rb", "6", "0", "4"}, Command{OpReadBlock, 6, 0, 4}},
		{"read word hex", []string{"-rw", "0x06", "0x08", "2"}, Command{OpReadWord, 6, 8, 2}},
		{"read float", []string{"-rf", "6", "30", "2"}, Command{OpReadFloat, 6, 30, 2}},
		{"read int", []string{"-ri", "6", "54", "4"}, Command{OpReadInt, 6, 54, 4}},
		{"write word", []string{"-ww", "6", "16", "65535"}, Command{OpWriteWord, 6, 16, 65535}},
		{"write byte", []string{"-wb", "6", "0", "3"}, Command{OpWriteByte, 6, 0, 3}},
		{"leading zero is decimal", []string{"-wb", "010", "0", "3"}, Command{OpWriteByte, 10, 0, 3}},
		{"scan", []string{"-s"}, Command{Op: OpScan}},

		{"no args", nil, Command{}},
		{"scan with args", []string{"-s", "1"}, Command{}},
		{"unknown flag", []string{"-rx", "6", "0", "1"}, Command{}},
		{"too few", []string{"-rb", "6", "0"}, Command{}},
		{"too many", []string{"-rb", "6", "0", "1", "2"}, Command{}},
		{"not a number", []string{"-rb", "six", "0", "1"}, Command{}},
		{"hw address too big", []string{"-rb", "0x80", "0", "1"}, Command{}},
		{"negative register", []string{"-rb", "6", "-1", "1"}, Command{}},
		{"block too long", []string{"-rb", "6", "0", "33"}, Command{}},
		{"empty block", []string{"-rb", "6", "0", "0"}, Command{}},
		{"byte too big", []string{"-wb", "6", "0", "256"}, Command{}},
		{"word too big", []string{"-ww", "6", "0", "65536"}, Command{}},
		{"negative word", []string{"-ww", "6", "0", "-1"}, Command{}},
		{"too many words", []string{"-rw", "6", "0", "129"}, Command{}},
		{"too many floats", []string{"-rf", "6", "0", "65"}, Command{}},
		{"flag in wrong place", []string{"6", "-rb", "0", "1"}, Command{}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := Parse(test.args)
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.0"},
		{1, "1.0"},
		{-2.5, "-2.5"},
		{float64(float32(0.1)), "0.10000000149011612"},
		{0.0001, "0.0001"},
		{0.00001, "1e-05"},
		{123456789, "123456789.0"},
		{1e16, "1e+16"},
	}

	for _, test := range tests {
		t.Run(test.want, func(t *testing.T) {
			assertStrings(t, FormatFloat(test.in), test.want)
		})
	}
}

func TestFormatList(t *testing.T) {
	assertStrings(t, FormatList([]byte{1, 2, 255}), "[1, 2, 255]")
	assertStrings(t, FormatList([]byte{7}), "[7]")
}

func TestRunReads(t *testing.T) {
	pb := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 6, W: []byte{0}, R: []byte{1, 2, 3}},
			{Addr: 6, W: []byte{8}, R: []byte{0x10, 0x27}},
			{Addr: 6, W: []byte{10}, R: []byte{0xff, 0xff}},
			{Addr: 6, W: []byte{30}, R: []byte{0x00, 0x00, 0xac, 0x41}},
			{Addr: 6, W: []byte{54}, R: []byte{0xfe, 0xff, 0xff, 0xff}},
		},
		DontPanic: true,
	}
	bus := i2cbus.New(pb)
	ctx := context.Background()

	var out bytes.Buffer
	for _, args := range [][]string{
		{"-rb", "6", "0", "3"},
		{"-rw", "6", "8", "2"},
		{"-rf", "6", "30", "1"},
		{"-ri", "6", "54", "1"},
	} {
		if err := Run(ctx, Parse(args), bus, &out); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
	}

	want := "[1, 2, 3]\n10000\n65535\n21.5\n-2\n"
	assertStrings(t, out.String(), want)

	if err := pb.Close(); err != nil {
		t.Error(err)
	}
}

func TestRunWrites(t *testing.T) {
	pb := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 6, W: []byte{16, 0xc4, 0x09}},
			{Addr: 6, W: []byte{3, 2}},
		},
		DontPanic: true,
	}
	bus := i2cbus.New(pb)

	var out bytes.Buffer
	if err := Run(context.Background(), Parse([]string{"-ww", "6", "16", "2500"}), bus, &out); err != nil {
		t.Fatal(err)
	}
	if err := Run(context.Background(), Parse([]string{"-wb", "6", "3", "2"}), bus, &out); err != nil {
		t.Fatal(err)
	}
	assertStrings(t, out.String(), "")

	if err := pb.Close(); err != nil {
		t.Error(err)
	}
}

func TestRunScanAndUsage(t *testing.T) {
	bus := i2cbus.New(board.NewEmulator(0, 3))

	var out bytes.Buffer
	if err := Run(context.Background(), Parse([]string{"-s"}), bus, &out); err != nil {
		t.Fatal(err)
	}
	assertStrings(t, out.String(), "6\n9\n")

	out.Reset()
	if err := Run(context.Background(), Parse([]string{"-x"}), bus, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "Invalid options! \n\rUsage:\nRead buffer => \tpython i2c.py -rb") {
		t.Errorf("unexpected usage text:\n%s", out.String())
	}
	if strings.Count(out.String(), "\n") != 9 {
		t.Errorf("expected 9 lines, got:\n%s", out.String())
	}
}

func TestRunErrors(t *testing.T) {
	bus := i2cbus.New(board.NewEmulator(0))

	var out bytes.Buffer
	if err := Run(context.Background(), Parse([]string{"-rb", "0x20", "0", "1"}), bus, &out); err == nil {
		t.Error("expected error reading from an empty address")
	}
	if err := Run(context.Background(), Parse([]string{"-rw", "6", "250", "8"}), bus, &out); err == nil {
		t.Error("expected error reading past the last register")
	}
}
