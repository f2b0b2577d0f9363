package calibration

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"

	"github.com/hubertat/multiio/board"
)

type recordingSetter struct {
	calls []string
	fail  bool
}

func (r *recordingSetter) SetGainOffset(kind board.AnalogKind, ch int, gain, offset float64) error {
	if r.fail {
		return errors.New("bus error")
	}
	r.calls = append(r.calls, fmt.Sprintf("%s:%d", kind, ch))
	return nil
}

func assertNoError(t testing.TB, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDefaults(t *testing.T) {
	got := Defaults()
	want := Settings{
		AnalogIn: []GainOffset{{1, 0}, {1, 0}, {1, 0}, {1, 0}},
		Rtd:      []GainOffset{{1, 0}, {1, 0}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTrip(t *testing.T) {
	settings := Defaults()
	assertNoError(t, settings.Set(board.VoltageIn, 2, 1.0125, -0.003))
	assertNoError(t, settings.Set(board.CurrentIn, 1, 0.998, 0.021))
	assertNoError(t, settings.Set(board.RtdTemp, 2, 1.5e-7, 273.15))

	var buf bytes.Buffer
	assertNoError(t, settings.Save(&buf))

	if !strings.Contains(buf.String(), "\n    \"analog_in\": [") {
		t.Errorf("expected 4 space indentation, got:\n%s", buf.String())
	}

	loaded, err := Load(&buf)
	assertNoError(t, err)
	if diff := cmp.Diff(settings, loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveFileLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName(3, 1))
	if filepath.Base(path) != "cal_multiio_3_1.json" {
		t.Errorf("got file name %s", filepath.Base(path))
	}

	settings := Defaults()
	assertNoError(t, settings.Set(board.RtdTemp, 1, 1.01, -0.2))
	assertNoError(t, settings.SaveFile(path))

	loaded, err := LoadFile(path)
	assertNoError(t, err)
	if diff := cmp.Diff(settings, loaded); diff != "" {
		t.Errorf("file round trip mismatch (-want +got):\n%s", diff)
	}

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got %v want not exist", err)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing rtd", `{"analog_in": [{}, {}, {}, {}]}`},
		{"missing analog_in", `{"rtd": [{}, {}]}`},
		{"not json", `calibration`},
		{"not a list", `{"analog_in": 1, "rtd": [{}, {}]}`},
		{"short list", `{"analog_in": [{}, {}, {}], "rtd": [{}, {}]}`},
		{"null list", `{"analog_in": null, "rtd": [{}, {}]}`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			current := Defaults()
			before := current.Clone()

			loaded, err := Load(strings.NewReader(test.doc))
			if !errors.Is(err, ErrInvalidFormat) {
				t.Fatalf("got %v want %v", err, ErrInvalidFormat)
			}
			if diff := cmp.Diff(Settings{}, loaded); diff != "" {
				t.Errorf("expected zero settings on failure:\n%s", diff)
			}
			if diff := cmp.Diff(before, current); diff != "" {
				t.Errorf("current settings changed:\n%s", diff)
			}
		})
	}
}

func TestLoadDefaultsMissingFields(t *testing.T) {
	doc := `{
		"analog_in": [{"gain": 2}, {"offset": 0.5}, {}, {"gain": 0.5, "offset": -1}],
		"rtd": [{}, {"gain": 1.1}],
		"comment": "bench 2"
	}`

	got, err := Load(strings.NewReader(doc))
	assertNoError(t, err)

	want := Settings{
		AnalogIn: []GainOffset{{2, 0}, {1, 0.5}, {1, 0}, {0.5, -1}},
		Rtd:      []GainOffset{{1, 0}, {1.1, 0}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSetGet(t *testing.T) {
	settings := Defaults()

	assertNoError(t, settings.Set(board.CurrentIn, 2, 3, 4))
	if settings.AnalogIn[3] != (GainOffset{3, 4}) {
		t.Errorf("got %v", settings.AnalogIn)
	}

	got, err := settings.Get(board.CurrentIn, 2)
	assertNoError(t, err)
	if got != (GainOffset{3, 4}) {
		t.Errorf("got %v", got)
	}

	if err := settings.Set(board.VoltageIn, 3, 1, 0); !errors.Is(err, board.ErrChannel) {
		t.Errorf("got %v want %v", err, board.ErrChannel)
	}
	if _, err := settings.Get(board.RtdTemp, 0); !errors.Is(err, board.ErrChannel) {
		t.Errorf("got %v want %v", err, board.ErrChannel)
	}

	t.Run("not finite", func(t *testing.T) {
		before := settings.Clone()
		for _, v := range []float64{math.Inf(1), math.Inf(-1), math.NaN()} {
			if err := settings.Set(board.RtdTemp, 1, v, 0); !errors.Is(err, board.ErrRange) {
				t.Errorf("gain %v: got %v want %v", v, err, board.ErrRange)
			}
			if err := settings.Set(board.VoltageIn, 1, 1, v); !errors.Is(err, board.ErrRange) {
				t.Errorf("offset %v: got %v want %v", v, err, board.ErrRange)
			}
		}
		if diff := cmp.Diff(before, settings); diff != "" {
			t.Errorf("settings changed (-want +got):\n%s", diff)
		}

		var buf bytes.Buffer
		assertNoError(t, settings.Save(&buf))
	})
}

func TestApply(t *testing.T) {
	settings := Defaults()
	dev := &recordingSetter{}

	assertNoError(t, settings.Apply(dev))
	want := []string{"u_in:1", "u_in:2", "i_in:1", "i_in:2", "rtd:1", "rtd:2"}
	if diff := cmp.Diff(want, dev.calls); diff != "" {
		t.Errorf("apply order mismatch (-want +got):\n%s", diff)
	}

	if err := settings.Apply(&recordingSetter{fail: true}); err == nil {
		t.Error("expected error from failing device")
	}
}

func TestApplyOnCard(t *testing.T) {
	emu := board.NewEmulator(0)
	card, err := board.Open(emu, 0)
	assertNoError(t, err)

	settings := Defaults()
	assertNoError(t, settings.Set(board.VoltageIn, 1, 2, 1))
	assertNoError(t, settings.Apply(card))

	emu.PokeInt16(0, board.RegUIn, 1500)
	v, err := card.UIn(1)
	assertNoError(t, err)
	if v != 4 {
		t.Errorf("got %v want 4", v)
	}
}
