package drivers

import (
	"testing"

	"github.com/hubertat/multiio/board"
)

type fakeSensor struct {
	id    string
	value float64
}

func (fs *fakeSensor) GetValue() (float64, error) {
	return fs.value, nil
}

func (fs *fakeSensor) SetValue(v float64) error {
	fs.value = v
	return nil
}

func (fs *fakeSensor) GetTags() map[string]string {
	return nil
}

func (fs *fakeSensor) GetId() string {
	return fs.id
}

func TestRtdSetup(t *testing.T) {
	rtd := &Rtd{}
	if err := rtd.Setup(nil); err == nil {
		t.Error("expected error without a card")
	}

	emu := board.NewEmulator(0)
	card, _ := board.Open(emu, 0)
	rtd.UseCard(card)

	for _, id := range []string{"0", "3", "first"} {
		if err := rtd.Setup([]TemperatureSensor{&fakeSensor{id: id}}); err == nil {
			t.Errorf("expected error for sensor id %s", id)
		}
	}

	if err := rtd.Setup([]TemperatureSensor{&fakeSensor{id: "1"}, &fakeSensor{id: "2"}}); err != nil {
		t.Fatal(err)
	}
	assertBools(t, rtd.IsReady(), true)
}

func TestRtdSync(t *testing.T) {
	emu := board.NewEmulator(0)
	card, _ := board.Open(emu, 0)
	emu.PokeFloat32(0, board.RegRtdVal, 21.5)
	emu.PokeFloat32(0, board.RegRtdVal+4, -3.25)

	first, second := &fakeSensor{id: "1"}, &fakeSensor{id: "2"}
	rtd := &Rtd{}
	rtd.UseCard(card)
	rtd.Setup([]TemperatureSensor{first, second})

	if err := rtd.Sync(); err != nil {
		t.Fatal(err)
	}
	if first.value != 21.5 || second.value != -3.25 {
		t.Errorf("got %v, %v want 21.5, -3.25", first.value, second.value)
	}

	t.Run("bounds", func(t *testing.T) {
		rtd.CheckBounds = true
		rtd.BoundMinimum = 0
		rtd.BoundMaximum = 100
		if err := rtd.Sync(); err == nil {
			t.Error("expected out of bounds error")
		}
		rtd.CheckBounds = false
	})

	t.Run("find", func(t *testing.T) {
		found, err := rtd.FindTemperatureSensor(" 2")
		if err != nil {
			t.Fatal(err)
		}
		if found != second {
			t.Error("found wrong sensor")
		}
		if _, err := rtd.FindTemperatureSensor("5"); err == nil {
			t.Error("expected not found error")
		}
	})

	t.Run("unplugged", func(t *testing.T) {
		emu.Unplug(0)
		if err := rtd.Sync(); err == nil {
			t.Error("expected read error")
		}
	})
}
