package board

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/physic"
)

// Emulator is an in-memory i2c.Bus holding the register file of one or more
// cards and reproducing the firmware side effects of register writes.
type Emulator struct {
	cards   map[uint16]*emulatedCard
	reloads int

	lock sync.Mutex
}

type emulatedCard struct {
	regs      [RegisterFileSize]byte
	unplugged bool
}

// NewEmulator creates cards on the given stack levels with sane power-up values.
func NewEmulator(stacks ...int) *Emulator {
	e := &Emulator{cards: make(map[uint16]*emulatedCard)}
	for _, stack := range stacks {
		card := &emulatedCard{}
		card.regs[RegRevisionHwMajor] = 1
		card.regs[RegRevisionHwMinor] = 0
		card.regs[RegRevisionMajor] = 1
		card.regs[RegRevisionMinor] = 2
		card.regs[RegDiagTemperature] = 36
		binary.LittleEndian.PutUint16(card.regs[RegDiag3v3:], 3300)
		card.regs[RegCalibStatus] = uint8(CalibDone)
		copy(card.regs[RegRtcYear:], []byte{24, 1, 1, 0, 0, 0})
		binary.LittleEndian.PutUint16(card.regs[RegWdtIntervalGet:], 120)
		binary.LittleEndian.PutUint16(card.regs[RegWdtInitIntervalGet:], 270)
		binary.LittleEndian.PutUint32(card.regs[RegWdtOffIntervalGet:], 10)
		e.cards[BaseAddress+uint16(stack)] = card
	}
	return e
}

func (e *Emulator) String() string {
	return "multiio-emulator"
}

func (e *Emulator) SetSpeed(f physic.Frequency) error {
	return nil
}

func (e *Emulator) Close() error {
	return nil
}

func (e *Emulator) Tx(addr uint16, w, r []byte) error {
	e.lock.Lock()
	defer e.lock.Unlock()

	card, ok := e.cards[addr]
	if !ok || card.unplugged {
		return errors.Errorf("no device answering at 0x%02x", addr)
	}
	if len(w) == 0 {
		return errors.New("missing register address")
	}
	reg := int(w[0])
	data := w[1:]
	if reg+len(data) > RegisterFileSize || reg+len(r) > RegisterFileSize {
		return errors.Errorf("access past register file end at %d", reg)
	}

	if len(data) > 0 {
		prev := card.regs
		copy(card.regs[reg:], data)
		e.applyWrite(card, &prev, uint8(reg), data)
	}
	copy(r, card.regs[reg:])
	return nil
}

func (e *Emulator) applyWrite(card *emulatedCard, prev *[RegisterFileSize]byte, reg uint8, data []byte) {
	regs := &card.regs
	switch reg {
	case RegRelaySet:
		setBit(&regs[RegRelays], data[0], true)
	case RegRelayClr:
		setBit(&regs[RegRelays], data[0], false)
	case RegLedSet:
		setBit(&regs[RegLeds], data[0], true)
	case RegLedClr:
		setBit(&regs[RegLeds], data[0], false)
	case RegOptoCntReset:
		if data[0] >= 1 && int(data[0]) <= OptoChannels {
			off := RegOptoEdgeCount + counterSize*(data[0]-1)
			binary.LittleEndian.PutUint32(regs[off:], 0)
		}
	case RegOptoEncCntReset:
		if data[0] >= 1 && int(data[0]) <= EncoderChannels {
			off := RegOptoEncCount + counterSize*(data[0]-1)
			binary.LittleEndian.PutUint32(regs[off:], 0)
		}
	case RegCalibValue:
		if len(data) >= 6 && data[5] == calibrationKey {
			regs[RegCalibStatus] = uint8(CalibDone)
		} else {
			regs[RegCalibStatus] = uint8(CalibError)
		}
		regs[RegCalibKey] = 0
	case RegCalibChannel:
		if len(data) >= 2 && data[1] == resetCalibrationKey {
			regs[RegCalibStatus] = uint8(CalibDone)
		}
		regs[RegCalibKey] = 0
	case RegRtcSetYear:
		if len(data) >= 7 && data[6] == calibrationKey {
			copy(regs[RegRtcYear:RegRtcYear+6], data[:6])
		}
		regs[RegRtcCmd] = 0
	case RegWdtReset:
		if data[0] == wdtResetSignature {
			e.reloads++
		}
	case RegWdtIntervalSet:
		copy(regs[RegWdtIntervalGet:RegWdtIntervalGet+2], data)
	case RegWdtInitIntervalSet:
		copy(regs[RegWdtInitIntervalGet:RegWdtInitIntervalGet+2], data)
	case RegWdtOffIntervalSet:
		copy(regs[RegWdtOffIntervalGet:RegWdtOffIntervalGet+4], data)
	case RegWdtClearResetCount:
		if data[0] == wdtClearCountSignature {
			regs[RegWdtResetCount] = 0
			regs[RegWdtResetCount+1] = 0
		}
	case RegButton:
		// only the latch can be cleared from the host
		regs[RegButton] = prev[RegButton]&buttonState | data[0]&buttonLatch
	}
}

func setBit(b *byte, ch uint8, on bool) {
	if ch < 1 || ch > 8 {
		return
	}
	if on {
		*b |= 1 << (ch - 1)
	} else {
		*b &^= 1 << (ch - 1)
	}
}

func (e *Emulator) card(stack int) *emulatedCard {
	card, ok := e.cards[BaseAddress+uint16(stack)]
	if !ok {
		panic(fmt.Sprintf("emulator: no card on stack %d", stack))
	}
	return card
}

// Poke writes raw register bytes without firmware side effects.
func (e *Emulator) Poke(stack int, reg uint8, data ...byte) {
	e.lock.Lock()
	defer e.lock.Unlock()

	copy(e.card(stack).regs[reg:], data)
}

// Peek returns a copy of n raw register bytes.
func (e *Emulator) Peek(stack int, reg uint8, n int) []byte {
	e.lock.Lock()
	defer e.lock.Unlock()

	out := make([]byte, n)
	copy(out, e.card(stack).regs[reg:])
	return out
}

func (e *Emulator) PokeInt16(stack int, reg uint8, v int16) {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, uint16(v))
	e.Poke(stack, reg, buf...)
}

func (e *Emulator) PokeUint32(stack int, reg uint8, v uint32) {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	e.Poke(stack, reg, buf...)
}

func (e *Emulator) PokeFloat32(stack int, reg uint8, v float32) {
	e.PokeUint32(stack, reg, math.Float32bits(v))
}

// Unplug makes the card stop answering, Plug brings it back.
func (e *Emulator) Unplug(stack int) {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.card(stack).unplugged = true
}

func (e *Emulator) Plug(stack int) {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.card(stack).unplugged = false
}

// Reloads returns the number of watchdog reloads seen on all cards.
func (e *Emulator) Reloads() int {
	e.lock.Lock()
	defer e.lock.Unlock()

	return e.reloads
}

// SetOpto drives an opto input and updates the edge counters the way the
// firmware does for the configured counting edges.
func (e *Emulator) SetOpto(stack int, ch int, on bool) {
	e.lock.Lock()
	defer e.lock.Unlock()

	if ch < 1 || ch > OptoChannels {
		return
	}
	regs := &e.card(stack).regs
	mask := uint8(1 << (ch - 1))
	was := regs[RegOpto]&mask != 0
	if was == on {
		return
	}
	setBit(&regs[RegOpto], uint8(ch), on)

	count := (on && regs[RegOptoRising]&mask != 0) || (!on && regs[RegOptoFalling]&mask != 0)
	if count {
		off := RegOptoEdgeCount + counterSize*uint8(ch-1)
		v := binary.LittleEndian.Uint32(regs[off:])
		binary.LittleEndian.PutUint32(regs[off:], v+1)
	}
}

// Press simulates a button press: the state bit follows the button and the latch is set.
func (e *Emulator) Press(stack int, pressed bool) {
	e.lock.Lock()
	defer e.lock.Unlock()

	regs := &e.card(stack).regs
	if pressed {
		regs[RegButton] |= buttonState | buttonLatch
	} else {
		regs[RegButton] &^= buttonState
	}
}

// SetRtc sets the emulated clock registers directly.
func (e *Emulator) SetRtc(stack int, t time.Time) {
	e.Poke(stack, RegRtcYear, uint8(t.Year()-rtcEpochYear), uint8(t.Month()), uint8(t.Day()),
		uint8(t.Hour()), uint8(t.Minute()), uint8(t.Second()))
}
