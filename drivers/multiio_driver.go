package drivers

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/eclipse/paho.golang/paho"
	"github.com/pkg/errors"

	"github.com/hubertat/multiio/board"
	"github.com/hubertat/multiio/mqtt"
)

const multiioDriverName = "multiio"
const defaultLatchInterval = 100 * time.Millisecond

// Pin numbering of the card: relays and opto inputs keep their channel
// numbers, the button is pin 10 and LEDs start at pin 11.
const (
	ButtonPin   uint16 = 10
	LedPinFirst uint16 = 11
)

// MultiIO exposes one MultiIO card as digital inputs (opto inputs, button)
// and outputs (relays, LEDs) plus the motor output.
type MultiIO struct {
	Stack         int
	Bus           int
	Mock          bool
	LatchInterval string
	MqttTopic     string

	card      *board.Card
	inputs    []*MultiioInput
	outputs   []*MultiioOutput
	isReady   bool
	publisher mqtt.Publisher
	logger    *log.Logger

	latched   bool
	listeners []EventListener
	done      chan struct{}
	watchers  sync.WaitGroup
	lock      sync.Mutex
}

type MultiioInput struct {
	pin    uint16
	driver *MultiIO
}

type MultiioOutput struct {
	pin    uint16
	driver *MultiIO
}

type MultiioMotor struct {
	card *board.Card
}

func ledChannel(pin uint16) int {
	return int(pin-LedPinFirst) + 1
}

func isRelayPin(pin uint16) bool {
	return pin >= 1 && int(pin) <= board.RelayChannels
}

func isLedPin(pin uint16) bool {
	return pin >= LedPinFirst && int(pin-LedPinFirst) < board.LedChannels
}

func isOptoPin(pin uint16) bool {
	return pin >= 1 && int(pin) <= board.OptoChannels
}

func (min *MultiioInput) GetState() (bool, error) {
	if min.pin == ButtonPin {
		return min.driver.card.Button()
	}
	return min.driver.card.Opto(int(min.pin))
}

// SubscribeToPushEvent is supported by the button only, events come from its latch.
func (min *MultiioInput) SubscribeToPushEvent(listener EventListener) error {
	if min.pin != ButtonPin {
		return errors.Errorf("push events not supported on opto input %d", min.pin)
	}

	min.driver.lock.Lock()
	defer min.driver.lock.Unlock()

	min.driver.listeners = append(min.driver.listeners, listener)
	return nil
}

func (mout *MultiioOutput) GetState() (bool, error) {
	if isLedPin(mout.pin) {
		return mout.driver.card.Led(ledChannel(mout.pin))
	}
	return mout.driver.card.Relay(int(mout.pin))
}

func (mout *MultiioOutput) Set(state bool) error {
	if isLedPin(mout.pin) {
		return mout.driver.card.SetLed(ledChannel(mout.pin), state)
	}
	return mout.driver.card.SetRelay(int(mout.pin), state)
}

func (mm *MultiioMotor) GetSpeed() (float64, error) {
	return mm.card.Motor()
}

func (mm *MultiioMotor) SetSpeed(percent float64) error {
	return mm.card.SetMotor(percent)
}

// Attach makes the driver use an already opened card instead of opening one in Setup.
func (mi *MultiIO) Attach(card *board.Card) {
	mi.card = card
}

// Card returns the card opened in Setup.
func (mi *MultiIO) Card() *board.Card {
	return mi.card
}

func (mi *MultiIO) String() string {
	return multiioDriverName
}

func (mi *MultiIO) IsReady() bool {
	mi.lock.Lock()
	defer mi.lock.Unlock()

	return mi.isReady
}

func (mi *MultiIO) topic() string {
	if len(mi.MqttTopic) > 0 {
		return mi.MqttTopic
	}
	return fmt.Sprintf("multiio/%d", mi.Stack)
}

func (mi *MultiIO) open() error {
	if mi.card != nil {
		return nil
	}

	var err error
	if mi.Mock {
		emu := board.NewEmulator(mi.Stack)
		emu.SetRtc(mi.Stack, time.Now().UTC())
		mi.card, err = board.Open(emu, mi.Stack)
	} else {
		mi.card, err = board.OpenBus(strconv.Itoa(mi.BusNo()), mi.Stack)
	}
	return err
}

// BusNo returns the configured i2c bus number, bus 1 when not set.
func (mi *MultiIO) BusNo() int {
	if mi.Bus == 0 {
		return 1
	}
	return mi.Bus
}

func (mi *MultiIO) Setup(ctx context.Context, inputs []uint16, outputs []uint16) error {
	if mi.logger == nil {
		mi.logger = log.NewWithOptions(os.Stderr, log.Options{
			Prefix: "MultiIO: ",
			Level:  log.GetLevel(),
		})
	}

	if err := mi.open(); err != nil {
		return errors.Wrapf(err, "failed to Setup multiio driver for pins: %v, %v", inputs, outputs)
	}

	for _, inPin := range inputs {
		if !isOptoPin(inPin) && inPin != ButtonPin {
			return errors.Errorf("input pin %d out of range (opto 1..%d, button %d)", inPin, board.OptoChannels, ButtonPin)
		}
		mi.inputs = append(mi.inputs, &MultiioInput{pin: inPin, driver: mi})
	}

	for _, outPin := range outputs {
		if !isRelayPin(outPin) && !isLedPin(outPin) {
			return errors.Errorf("output pin %d out of range (relays 1..%d, leds %d..%d)",
				outPin, board.RelayChannels, LedPinFirst, LedPinFirst+board.LedChannels-1)
		}
		mi.outputs = append(mi.outputs, &MultiioOutput{pin: outPin, driver: mi})
	}

	interval := defaultLatchInterval
	if len(mi.LatchInterval) > 0 {
		var err error
		interval, err = time.ParseDuration(mi.LatchInterval)
		if err != nil {
			return errors.Wrap(err, "failed to parse LatchInterval")
		}
	}
	done := make(chan struct{})
	mi.lock.Lock()
	mi.done = done
	mi.isReady = true
	mi.lock.Unlock()

	mi.watchers.Add(1)
	go mi.watchButton(ctx, interval, done)

	mi.logger.Info("card ready", "card", mi.card)
	return nil
}

func (mi *MultiIO) watchButton(ctx context.Context, interval time.Duration, done <-chan struct{}) {
	defer mi.watchers.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := mi.CheckButton(); err != nil {
				mi.logger.Debug("failed to check button latch", "err", err)
			}
		}
	}
}

// CheckButton reads the button latch and fires a single press to the
// subscribed listeners when it was set.
func (mi *MultiIO) CheckButton() error {
	pushed, err := mi.card.ButtonLatch()
	if err != nil || !pushed {
		return err
	}

	mi.lock.Lock()
	mi.latched = true
	listeners := append([]EventListener{}, mi.listeners...)
	publisher := mi.publisher
	mi.lock.Unlock()

	for _, listener := range listeners {
		listener.FireEvent(PushEventSinglePress)
	}
	if publisher != nil {
		if err := publisher.Publish(mi.topic()+"/event/button", []byte(PushEventSinglePress.String())); err != nil {
			mi.logger.Warn("failed to publish button event", "err", err)
		}
	}
	return nil
}

// TakeLatch reports whether the button was pushed since the previous call.
func (mi *MultiIO) TakeLatch() bool {
	mi.lock.Lock()
	defer mi.lock.Unlock()

	latched := mi.latched
	mi.latched = false
	return latched
}

// Close stops the button watcher and waits for it before the card is closed.
func (mi *MultiIO) Close() error {
	mi.lock.Lock()
	mi.isReady = false
	done := mi.done
	mi.done = nil
	mi.lock.Unlock()

	if done != nil {
		close(done)
	}
	mi.watchers.Wait()

	if mi.card == nil {
		return nil
	}
	for _, output := range mi.outputs {
		output.Set(false)
	}
	err := mi.card.Close()
	mi.card = nil
	return err
}

func (mi *MultiIO) GetInput(id uint16) (DigitalInput, error) {
	for _, in := range mi.inputs {
		if in.pin == id {
			return in, nil
		}
	}
	return nil, errors.Errorf("MultiIO Input (id: %d) not found", id)
}

func (mi *MultiIO) GetOutput(id uint16) (DigitalOutput, error) {
	for _, out := range mi.outputs {
		if out.pin == id {
			return out, nil
		}
	}
	return nil, errors.Errorf("MultiIO Output (id: %d) not found", id)
}

func (mi *MultiIO) GetMotor() (MotorOutput, error) {
	if mi.card == nil {
		return nil, errors.New("MultiIO driver not set up")
	}
	return &MultiioMotor{card: mi.card}, nil
}

func (mi *MultiIO) GetAllIo() (inputs []uint16, outputs []uint16) {
	for _, input := range mi.inputs {
		inputs = append(inputs, input.pin)
	}
	for _, output := range mi.outputs {
		outputs = append(outputs, output.pin)
	}
	return
}

func (mi *MultiIO) SetMqtt(publisher mqtt.Publisher) []mqtt.MqttHandler {
	mi.lock.Lock()
	mi.publisher = publisher
	mi.lock.Unlock()

	return []mqtt.MqttHandler{&multiioSetHandler{driver: mi}}
}

// multiioSetHandler switches outputs on <topic>/set/relay/<n> and
// <topic>/set/led/<n>, answering on the matching state topic.
type multiioSetHandler struct {
	driver *MultiIO
}

func (h *multiioSetHandler) MqttSubscribeTopic() string {
	return h.driver.topic() + "/set/#"
}

func parseMqttState(payload []byte) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(string(payload))) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	}
	return false, errors.Errorf("invalid state payload %q", payload)
}

func (h *multiioSetHandler) MqttHandle(pub *paho.Publish) {
	mi := h.driver
	if err := h.handle(pub); err != nil {
		mi.logger.Warn("mqtt set failed", "topic", pub.Topic, "err", err)
	}
}

func (h *multiioSetHandler) handle(pub *paho.Publish) error {
	mi := h.driver
	rest := strings.TrimPrefix(pub.Topic, mi.topic()+"/set/")
	parts := strings.Split(rest, "/")
	if rest == pub.Topic || len(parts) != 2 {
		return errors.Errorf("unknown topic %s", pub.Topic)
	}

	ch, err := strconv.Atoi(parts[1])
	if err != nil {
		return errors.Wrapf(err, "invalid channel in %s", pub.Topic)
	}
	state, err := parseMqttState(pub.Payload)
	if err != nil {
		return err
	}

	var pin uint16
	switch parts[0] {
	case "relay":
		pin = uint16(ch)
	case "led":
		pin = LedPinFirst + uint16(ch) - 1
	default:
		return errors.Errorf("unknown output kind %s", parts[0])
	}

	out, err := mi.GetOutput(pin)
	if err != nil {
		return err
	}
	if err := out.Set(state); err != nil {
		return err
	}

	mi.lock.Lock()
	publisher := mi.publisher
	mi.lock.Unlock()
	if publisher == nil {
		return nil
	}
	payload := "off"
	if state {
		payload = "on"
	}
	return publisher.Publish(fmt.Sprintf("%s/state/%s/%d", mi.topic(), parts[0], ch), []byte(payload))
}
