package panel

import (
	"context"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/hubertat/multiio/board"
	"github.com/hubertat/multiio/calibration"
)

const DefaultInterval = 100 * time.Millisecond

var (
	ErrNotConnected = errors.New("multiio card not connected")
	ErrBus          = errors.New("i2c bus must be 1 or 2")
)

// Device is the card surface the panel drives, implemented by *board.Card.
type Device interface {
	Close() error
	Version() (string, error)
	HardwareRevision() (string, error)

	Relays() (int, error)
	SetRelay(ch int, on bool) error
	Leds() (int, error)
	SetLed(ch int, on bool) error

	UIn(ch int) (float64, error)
	IIn(ch int) (float64, error)
	UOut(ch int) (float64, error)
	SetUOut(ch int, volts float64) error
	IOut(ch int) (float64, error)
	SetIOut(ch int, milliamps float64) error
	RtdTemp(ch int) (float64, error)
	RtdRes(ch int) (float64, error)

	WdtReload() error
	WdtPeriod() (int, error)
	SetWdtPeriod(seconds int) error
	WdtInitPeriod() (int, error)
	SetWdtInitPeriod(seconds int) error
	WdtOffPeriod() (int, error)
	SetWdtOffPeriod(seconds int) error
	WdtResetCount() (int, error)
	WdtClearResetCount() error

	Rtc() (time.Time, error)
	SetRtc(t time.Time) error

	Optos() (int, error)
	OptoEdge(ch int) (board.Edge, error)
	SetOptoEdge(ch int, edge board.Edge) error
	OptoCount(ch int) (uint32, error)
	ResetOptoCount(ch int) error
	OptoEncoder(ch int) (bool, error)
	SetOptoEncoder(ch int, enabled bool) error
	OptoEncoderCount(ch int) (int32, error)
	ResetOptoEncoderCount(ch int) error

	Servo(ch int) (float64, error)
	SetServo(ch int, percent float64) error
	Motor() (float64, error)
	SetMotor(percent float64) error

	Button() (bool, error)
	ButtonLatch() (bool, error)

	CalibStatus() (board.CalibStatus, error)
	Calibrate(target board.CalTarget, ch int, value float64) error
	ResetCalibration(target board.CalTarget, ch int) error
	SetGainOffset(kind board.AnalogKind, ch int, gain, offset float64) error
}

// Opener attaches to the card on a stack level and bus number.
type Opener func(stack, bus int) (Device, error)

// CardOpener opens a real card on /dev/i2c-<bus>.
func CardOpener(stack, bus int) (Device, error) {
	return board.OpenBus(strconv.Itoa(bus), stack)
}

// EmulatorOpener serves every bus from the same emulator.
func EmulatorOpener(emu *board.Emulator) Opener {
	return func(stack, bus int) (Device, error) {
		return board.Open(emu, stack)
	}
}

// Panel keeps the connected card and its software calibration. User actions
// return errors, polling never does.
type Panel struct {
	open     Opener
	dev      Device
	stack    int
	bus      int
	settings calibration.Settings
	logger   *log.Logger

	lock sync.Mutex
}

func New(open Opener) *Panel {
	return &Panel{
		open:     open,
		bus:      1,
		settings: calibration.Defaults(),
		logger: log.NewWithOptions(os.Stderr, log.Options{
			Prefix: "Panel: ",
			Level:  log.GetLevel(),
		}),
	}
}

// SetLogger replaces the default stderr logger.
func (p *Panel) SetLogger(logger *log.Logger) {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.logger = logger
}

// Connect drops the current card and attaches to a new one. The current
// calibration settings are applied to the new card.
func (p *Panel) Connect(stack, bus int) error {
	if stack < 0 || stack > board.MaxStack {
		return errors.Wrapf(board.ErrStack, "stack %d", stack)
	}
	if bus != 1 && bus != 2 {
		return errors.Wrapf(ErrBus, "bus %d", bus)
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	if p.dev != nil {
		if err := p.dev.Close(); err != nil {
			p.logger.Warn("failed to close previous card", "err", err)
		}
		p.dev = nil
	}

	dev, err := p.open(stack, bus)
	if err != nil {
		return errors.Wrap(err, "multiio card not detected or error initializing")
	}
	p.dev = dev
	p.stack = stack
	p.bus = bus
	p.logger.Info("connected to multiio card", "stack", stack, "bus", bus)

	if err := p.settings.Apply(dev); err != nil {
		return errors.Wrap(err, "failed to apply calibration settings")
	}
	return nil
}

func (p *Panel) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.dev == nil {
		return nil
	}
	err := p.dev.Close()
	p.dev = nil
	return err
}

func (p *Panel) Connected() bool {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.dev != nil
}

// Target returns the stack and bus of the last connection attempt that succeeded.
func (p *Panel) Target() (stack, bus int) {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.stack, p.bus
}

func (p *Panel) do(action func(dev Device) error) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.dev == nil {
		return ErrNotConnected
	}
	return action(p.dev)
}

// Poll reads every section in a fixed order. Section failures are kept in
// the snapshot and logged at debug level.
func (p *Panel) Poll() Snapshot {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.dev == nil {
		return disconnected(p.stack, p.bus)
	}

	dev := p.dev
	s := Snapshot{
		Connected: true,
		Stack:     p.stack,
		Bus:       p.bus,
		Taken:     time.Now(),
	}

	s.Version = pollVersion(dev)
	s.Relays = pollBits(dev.Relays, board.RelayChannels)
	s.Leds = pollBits(dev.Leds, board.LedChannels)
	s.AnalogIn = pollAnalog(dev.UIn, dev.IIn)
	s.AnalogOut = pollAnalog(dev.UOut, dev.IOut)
	s.Rtd = pollRtd(dev)
	s.Watchdog = pollWatchdog(dev)
	s.Rtc.Time, s.Rtc.Err = dev.Rtc()
	s.Opto = pollOpto(dev)
	s.Counters = pollCounters(dev)
	s.Encoders = pollEncoders(dev)
	s.ServoMotor = pollServoMotor(dev)
	s.Button = pollButton(dev)
	s.Calibration.Status, s.Calibration.Err = dev.CalibStatus()

	for name, err := range s.Errors() {
		p.logger.Debug("poll section failed", "section", name, "err", err)
	}
	return s
}

// Errors returns the failed sections by name.
func (s Snapshot) Errors() map[string]error {
	all := map[string]error{
		"version":     s.Version.Err,
		"relays":      s.Relays.Err,
		"leds":        s.Leds.Err,
		"analog in":   s.AnalogIn.Err,
		"analog out":  s.AnalogOut.Err,
		"rtd":         s.Rtd.Err,
		"watchdog":    s.Watchdog.Err,
		"rtc":         s.Rtc.Err,
		"opto":        s.Opto.Err,
		"counters":    s.Counters.Err,
		"encoders":    s.Encoders.Err,
		"servo motor": s.ServoMotor.Err,
		"button":      s.Button.Err,
		"calibration": s.Calibration.Err,
	}
	for name, err := range all {
		if err == nil {
			delete(all, name)
		}
	}
	return all
}

func pollVersion(dev Device) (v VersionInfo) {
	if v.Firmware, v.Err = dev.Version(); v.Err != nil {
		return VersionInfo{Err: v.Err}
	}
	if v.Hardware, v.Err = dev.HardwareRevision(); v.Err != nil {
		return VersionInfo{Err: v.Err}
	}
	return
}

func pollBits(read func() (int, error), channels int) Bits {
	mask, err := read()
	if err != nil {
		return failedBits(channels, err)
	}
	b := Bits{State: make([]int, channels)}
	for i := range b.State {
		b.State[i] = (mask >> i) & 1
	}
	return b
}

func pollAnalog(voltage, current func(int) (float64, error)) Analog {
	a := Analog{
		Voltage: make([]float64, board.UInChannels),
		Current: make([]float64, board.IInChannels),
	}
	for i := range a.Voltage {
		v, err := voltage(i + 1)
		if err != nil {
			return Analog{Err: err}
		}
		a.Voltage[i] = v
	}
	for i := range a.Current {
		v, err := current(i + 1)
		if err != nil {
			return Analog{Err: err}
		}
		a.Current[i] = v
	}
	return a
}

func pollRtd(dev Device) Rtd {
	r := Rtd{
		Temperature: make([]float64, board.RtdChannels),
		Resistance:  make([]float64, board.RtdChannels),
	}
	for i := 0; i < board.RtdChannels; i++ {
		var err error
		if r.Temperature[i], err = dev.RtdTemp(i + 1); err != nil {
			return Rtd{Err: err}
		}
		if r.Resistance[i], err = dev.RtdRes(i + 1); err != nil {
			return Rtd{Err: err}
		}
	}
	return r
}

func pollWatchdog(dev Device) (w Watchdog) {
	var err error
	if w.Period, err = dev.WdtPeriod(); err != nil {
		return Watchdog{Err: err}
	}
	if w.InitPeriod, err = dev.WdtInitPeriod(); err != nil {
		return Watchdog{Err: err}
	}
	if w.OffPeriod, err = dev.WdtOffPeriod(); err != nil {
		return Watchdog{Err: err}
	}
	if w.ResetCount, err = dev.WdtResetCount(); err != nil {
		return Watchdog{Err: err}
	}
	return
}

func pollOpto(dev Device) Opto {
	mask, err := dev.Optos()
	if err != nil {
		return Opto{Err: err}
	}
	o := Opto{State: make([]bool, board.OptoChannels)}
	for i := range o.State {
		o.State[i] = mask&(1<<i) != 0
	}
	return o
}

func pollCounters(dev Device) Counters {
	c := Counters{
		Count: make([]uint32, board.OptoChannels),
		Edge:  make([]board.Edge, board.OptoChannels),
	}
	for i := 0; i < board.OptoChannels; i++ {
		var err error
		if c.Count[i], err = dev.OptoCount(i + 1); err != nil {
			return Counters{Err: err}
		}
		if c.Edge[i], err = dev.OptoEdge(i + 1); err != nil {
			return Counters{Err: err}
		}
	}
	return c
}

func pollEncoders(dev Device) Encoders {
	e := Encoders{
		Enabled: make([]bool, board.EncoderChannels),
		Count:   make([]int32, board.EncoderChannels),
	}
	for i := 0; i < board.EncoderChannels; i++ {
		var err error
		if e.Count[i], err = dev.OptoEncoderCount(i + 1); err != nil {
			return Encoders{Err: err}
		}
		if e.Enabled[i], err = dev.OptoEncoder(i + 1); err != nil {
			return Encoders{Err: err}
		}
	}
	return e
}

func pollServoMotor(dev Device) ServoMotor {
	sm := ServoMotor{Servo: make([]float64, board.ServoChannels)}
	for i := range sm.Servo {
		var err error
		if sm.Servo[i], err = dev.Servo(i + 1); err != nil {
			return ServoMotor{Err: err}
		}
	}
	var err error
	if sm.Motor, err = dev.Motor(); err != nil {
		return ServoMotor{Err: err}
	}
	return sm
}

func pollButton(dev Device) (b Button) {
	var err error
	if b.Pressed, err = dev.Button(); err != nil {
		return Button{Err: err}
	}
	if b.Latched, err = dev.ButtonLatch(); err != nil {
		return Button{Err: err}
	}
	return
}

// Run polls on every tick until ctx is done and hands each snapshot to fn.
func (p *Panel) Run(ctx context.Context, interval time.Duration, fn func(Snapshot)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(p.Poll())
		}
	}
}
