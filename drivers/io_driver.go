package drivers

import (
	"context"

	"github.com/hubertat/multiio/mqtt"
)

type IoDriver interface {
	Setup(ctx context.Context, inputs []uint16, outputs []uint16) error
	SetMqtt(publisher mqtt.Publisher) []mqtt.MqttHandler
	Close() error
	String() string
	IsReady() bool
	GetInput(pin uint16) (DigitalInput, error)
	GetOutput(pin uint16) (DigitalOutput, error)
	GetAllIo() (inputs []uint16, outputs []uint16)
}

// MotorDriver is implemented by drivers with a speed controlled output.
type MotorDriver interface {
	GetMotor() (MotorOutput, error)
}

func MapAllIoDrivers() map[string]IoDriver {
	drivers := []IoDriver{
		&MultiIO{},
		&MockIoDriver{},
	}

	mapped := make(map[string]IoDriver)
	for _, driver := range drivers {
		mapped[driver.String()] = driver
	}
	return mapped
}

type DigitalInput interface {
	GetState() (bool, error)
	SubscribeToPushEvent(EventListener) error
}

type DigitalOutput interface {
	GetState() (bool, error)
	Set(bool) error
}

// MotorOutput drives a motor in percent of full speed, negative for reverse.
type MotorOutput interface {
	GetSpeed() (float64, error)
	SetSpeed(percent float64) error
}

type PushEvent int

const (
	PushEventSinglePress PushEvent = 0
	PushEventDoublePress PushEvent = 1
	PushEventLongPress   PushEvent = 2
)

func (pe PushEvent) String() string {
	switch pe {
	case PushEventSinglePress:
		return "single"
	case PushEventDoublePress:
		return "double"
	case PushEventLongPress:
		return "long"
	}
	return "unknown"
}

type EventListener interface {
	FireEvent(PushEvent)
}
