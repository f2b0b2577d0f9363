package calibration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"

	"github.com/hubertat/multiio/board"
)

const (
	AnalogInChannels = board.UInChannels + board.IInChannels
	RtdChannels      = board.RtdChannels

	defaultGain   = 1.0
	defaultOffset = 0.0
)

var ErrInvalidFormat = errors.New("invalid calibration settings file format")

type GainOffset struct {
	Gain   float64 `json:"gain"`
	Offset float64 `json:"offset"`
}

// Settings is the software correction of the analog and RTD inputs.
// AnalogIn holds the 0-10V inputs first, then the 4-20mA inputs.
type Settings struct {
	AnalogIn []GainOffset `json:"analog_in"`
	Rtd      []GainOffset `json:"rtd"`
}

// GainOffsetSetter is implemented by board.Card.
type GainOffsetSetter interface {
	SetGainOffset(kind board.AnalogKind, ch int, gain, offset float64) error
}

func Defaults() Settings {
	return Settings{
		AnalogIn: defaultList(AnalogInChannels),
		Rtd:      defaultList(RtdChannels),
	}
}

func defaultList(n int) []GainOffset {
	list := make([]GainOffset, n)
	for i := range list {
		list[i] = GainOffset{Gain: defaultGain, Offset: defaultOffset}
	}
	return list
}

// DefaultFileName returns the file name proposed for a card on the given stack and bus.
func DefaultFileName(stack, bus int) string {
	return fmt.Sprintf("cal_multiio_%d_%d.json", stack, bus)
}

type storedGainOffset struct {
	Gain   *float64 `json:"gain"`
	Offset *float64 `json:"offset"`
}

// Load reads a settings document. Both lists must be present with one record
// per channel, a record missing gain or offset gets the default value.
func Load(r io.Reader) (Settings, error) {
	var doc map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Settings{}, errors.Wrap(ErrInvalidFormat, err.Error())
	}

	analogIn, err := loadList(doc, "analog_in", AnalogInChannels)
	if err != nil {
		return Settings{}, err
	}
	rtd, err := loadList(doc, "rtd", RtdChannels)
	if err != nil {
		return Settings{}, err
	}

	return Settings{AnalogIn: analogIn, Rtd: rtd}, nil
}

func loadList(doc map[string]json.RawMessage, key string, channels int) ([]GainOffset, error) {
	raw, ok := doc[key]
	if !ok {
		return nil, errors.Wrapf(ErrInvalidFormat, "missing %s", key)
	}

	var stored []storedGainOffset
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, errors.Wrapf(ErrInvalidFormat, "%s: %v", key, err)
	}
	if len(stored) != channels {
		return nil, errors.Wrapf(ErrInvalidFormat, "%s has %d records, want %d", key, len(stored), channels)
	}

	list := defaultList(channels)
	for i, s := range stored {
		if s.Gain != nil {
			list[i].Gain = *s.Gain
		}
		if s.Offset != nil {
			list[i].Offset = *s.Offset
		}
	}
	return list, nil
}

func LoadFile(path string) (Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return Settings{}, errors.Wrap(err, "failed to open calibration file")
	}
	defer f.Close()

	settings, err := Load(f)
	if err != nil {
		return Settings{}, errors.Wrapf(err, "failed to load %s", path)
	}
	return settings, nil
}

func (s Settings) Save(w io.Writer) error {
	out, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return errors.Wrap(err, "failed to encode calibration settings")
	}
	_, err = w.Write(append(out, '\n'))
	return err
}

func (s Settings) SaveFile(path string) error {
	var buf bytes.Buffer
	if err := s.Save(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

func (s Settings) index(kind board.AnalogKind, ch int) ([]GainOffset, int, error) {
	var (
		list  []GainOffset
		first int
		count int
	)
	switch kind {
	case board.VoltageIn:
		list, first, count = s.AnalogIn, 0, board.UInChannels
	case board.CurrentIn:
		list, first, count = s.AnalogIn, board.UInChannels, board.IInChannels
	case board.RtdTemp:
		list, first, count = s.Rtd, 0, board.RtdChannels
	default:
		return nil, 0, errors.Errorf("no calibration for %s", kind)
	}
	if ch < 1 || ch > count {
		return nil, 0, errors.Wrapf(board.ErrChannel, "%s channel %d not in [1..%d]", kind, ch, count)
	}
	idx := first + ch - 1
	if idx >= len(list) {
		return nil, 0, errors.Errorf("%s settings hold %d records", kind, len(list))
	}
	return list, idx, nil
}

func (s Settings) Get(kind board.AnalogKind, ch int) (GainOffset, error) {
	list, idx, err := s.index(kind, ch)
	if err != nil {
		return GainOffset{}, err
	}
	return list[idx], nil
}

func (s *Settings) Set(kind board.AnalogKind, ch int, gain, offset float64) error {
	if !isFinite(gain) || !isFinite(offset) {
		return errors.Wrapf(board.ErrRange, "gain %v offset %v", gain, offset)
	}
	list, idx, err := s.index(kind, ch)
	if err != nil {
		return err
	}
	list[idx] = GainOffset{Gain: gain, Offset: offset}
	return nil
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	return Settings{
		AnalogIn: append([]GainOffset(nil), s.AnalogIn...),
		Rtd:      append([]GainOffset(nil), s.Rtd...),
	}
}

// Apply pushes every channel correction to the device.
func (s Settings) Apply(dev GainOffsetSetter) error {
	for _, kind := range []board.AnalogKind{board.VoltageIn, board.CurrentIn, board.RtdTemp} {
		count := board.RtdChannels
		switch kind {
		case board.VoltageIn:
			count = board.UInChannels
		case board.CurrentIn:
			count = board.IInChannels
		}
		for ch := 1; ch <= count; ch++ {
			g, err := s.Get(kind, ch)
			if err != nil {
				return err
			}
			if err := dev.SetGainOffset(kind, ch, g.Gain, g.Offset); err != nil {
				return errors.Wrapf(err, "failed to apply %s channel %d calibration", kind, ch)
			}
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
