package i2cbus

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

func playback(ops ...i2ctest.IO) *i2ctest.Playback {
	return &i2ctest.Playback{Ops: ops, DontPanic: true}
}

func assertNoError(t testing.TB, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func assertAllConsumed(t testing.TB, pb *i2ctest.Playback) {
	t.Helper()

	if err := pb.Close(); err != nil {
		t.Errorf("playback not fully consumed: %v", err)
	}
}

func TestReadBlock(t *testing.T) {
	pb := playback(i2ctest.IO{Addr: 0x06, W: []byte{3}, R: []byte{1, 2, 3}})
	bus := New(pb)

	got, err := bus.ReadBlock(0x06, 3, 3)
	assertNoError(t, err)
	if diff := cmp.Diff([]byte{1, 2, 3}, got); diff != "" {
		t.Errorf("ReadBlock mismatch (-want +got):\n%s", diff)
	}
	assertAllConsumed(t, pb)

	t.Run("length out of range", func(t *testing.T) {
		_, err := bus.ReadBlock(0x06, 0, 33)
		if err == nil {
			t.Error("expected error for 33 byte block")
		}
		_, err = bus.ReadBlock(0x06, 0, 0)
		if err == nil {
			t.Error("expected error for empty block")
		}
	})
}

func TestReadTypedValues(t *testing.T) {
	pb := playback(
		i2ctest.IO{Addr: 0x07, W: []byte{16}, R: []byte{0xc4, 0x09}},
		i2ctest.IO{Addr: 0x07, W: []byte{30}, R: []byte{0x00, 0x00, 0xc0, 0x3f}},
		i2ctest.IO{Addr: 0x07, W: []byte{70}, R: []byte{0xfe, 0xff, 0xff, 0xff}},
	)
	bus := New(pb)

	word, err := bus.ReadWordData(0x07, 16)
	assertNoError(t, err)
	if word != 2500 {
		t.Errorf("got word %d want 2500", word)
	}

	f, err := bus.ReadFloat32(0x07, 30)
	assertNoError(t, err)
	if f != 1.5 {
		t.Errorf("got float %v want 1.5", f)
	}

	i, err := bus.ReadInt32(0x07, 70)
	assertNoError(t, err)
	if i != -2 {
		t.Errorf("got int %d want -2", i)
	}

	assertAllConsumed(t, pb)
}

func TestWrites(t *testing.T) {
	pb := playback(
		i2ctest.IO{Addr: 0x06, W: []byte{99, 0x2c, 0x01}},
		i2ctest.IO{Addr: 0x06, W: []byte{98, 0xca}},
	)
	bus := New(pb)

	assertNoError(t, bus.WriteWordData(0x06, 99, 300))
	assertNoError(t, bus.WriteByteData(0x06, 98, 0xca))
	assertAllConsumed(t, pb)
}

func TestScan(t *testing.T) {
	pb := playback(
		i2ctest.IO{Addr: 0x06, W: []byte{0}, R: []byte{1}},
		i2ctest.IO{Addr: 0x27, W: []byte{0}, R: []byte{0}},
	)
	bus := New(pb)

	got, err := bus.Scan(context.Background())
	assertNoError(t, err)
	if diff := cmp.Diff([]uint16{0x06, 0x27}, got); diff != "" {
		t.Errorf("Scan mismatch (-want +got):\n%s", diff)
	}

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := New(playback()).Scan(ctx)
		if err == nil {
			t.Error("expected context error")
		}
	})
}
