package drivers

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/hubertat/multiio/board"
)

type SensorDriver interface {
	Setup([]TemperatureSensor) error
	Close() error
	IsReady() bool
	Name() string
	Sync() error
	FindTemperatureSensor(string) (TemperatureSensor, error)
}

type TemperatureSensor interface {
	GetValue() (float64, error)
	SetValue(float64) error
	GetTags() map[string]string
	GetId() string
}

// RtdReader is the part of the card the RTD driver reads from.
type RtdReader interface {
	RtdTemp(ch int) (float64, error)
}

const rtdSensorDriverName string = "rtd"

// Rtd reads temperature sensors from the card RTD channels, the sensor Id is the channel number.
type Rtd struct {
	CheckBounds  bool
	BoundMinimum float64
	BoundMaximum float64

	card    RtdReader
	sensors []TemperatureSensor
	ready   bool
}

// UseCard sets the card the sensors are read from, it must be called before Setup.
func (rtd *Rtd) UseCard(card RtdReader) {
	rtd.card = card
}

func rtdChannel(id string) (int, error) {
	ch, err := strconv.Atoi(strings.TrimSpace(id))
	if err != nil {
		return 0, errors.Wrapf(err, "rtd sensor id %s is not a channel number", id)
	}
	if ch < 1 || ch > board.RtdChannels {
		return 0, errors.Errorf("rtd channel %d out of range 1..%d", ch, board.RtdChannels)
	}
	return ch, nil
}

func (rtd *Rtd) Setup(tempSensors []TemperatureSensor) error {
	if rtd.card == nil {
		return errors.New("failed to init rtd sensor driver: no card")
	}

	for _, s := range tempSensors {
		if _, err := rtdChannel(s.GetId()); err != nil {
			return errors.Wrap(err, "failed to init rtd sensor driver")
		}
	}
	rtd.sensors = tempSensors

	rtd.ready = true
	return nil
}

func (rtd *Rtd) Close() error {
	rtd.ready = false
	return nil
}

func (rtd *Rtd) IsReady() bool {
	return rtd.ready
}

func (rtd *Rtd) Name() string {
	return rtdSensorDriverName
}

func (rtd *Rtd) Sync() error {
	for _, sensor := range rtd.sensors {
		ch, _ := rtdChannel(sensor.GetId())
		celsius, err := rtd.card.RtdTemp(ch)
		if err != nil {
			return errors.Wrapf(err, "failed reading rtd sensor %s", sensor.GetId())
		}
		if rtd.CheckBounds && (celsius < rtd.BoundMinimum || celsius > rtd.BoundMaximum) {
			return errors.Errorf("rtd sensor out of bound check enabled and failed, value: %.2f °C for sensor %s", celsius, sensor.GetId())
		}
		sensor.SetValue(celsius)
	}

	return nil
}

func (rtd *Rtd) FindTemperatureSensor(id string) (TemperatureSensor, error) {
	for _, s := range rtd.sensors {
		if strings.EqualFold(strings.TrimSpace(id), strings.TrimSpace(s.GetId())) {
			return s, nil
		}
	}
	return nil, errors.Errorf("sensor %s was not found in driver %s", id, rtd.Name())
}
