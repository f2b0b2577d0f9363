package drivers

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/hubertat/multiio/mqtt"
)

const mockDriverName = "mock_driver"

type MockOutput struct {
	state            bool
	pin              uint16
	writeTo          io.Writer
	writeStateChange bool
}

func (mo *MockOutput) GetState() (bool, error) {
	return mo.state, nil
}

func (mo *MockOutput) Set(state bool) error {
	if mo.writeStateChange && state != mo.state {
		fmt.Fprintf(mo.writeTo, "[pin %d] state changed to %v\n", mo.pin, state)
	}
	mo.state = state
	return nil
}

type MockInput struct {
	State bool
	pin   uint16

	listeners []EventListener
}

func (mi *MockInput) GetState() (bool, error) {
	return mi.State, nil
}

func (mi *MockInput) SubscribeToPushEvent(listener EventListener) error {
	mi.listeners = append(mi.listeners, listener)
	return nil
}

// MockMotor keeps the last speed set.
type MockMotor struct {
	lock  sync.Mutex
	speed float64
}

func (mm *MockMotor) GetSpeed() (float64, error) {
	mm.lock.Lock()
	defer mm.lock.Unlock()

	return mm.speed, nil
}

func (mm *MockMotor) SetSpeed(percent float64) error {
	if percent < -100 || percent > 100 {
		return errors.Errorf("motor speed %.1f out of range", percent)
	}

	mm.lock.Lock()
	defer mm.lock.Unlock()

	mm.speed = percent
	return nil
}

type MockIoDriver struct {
	inputs  []*MockInput
	outputs []*MockOutput
	motor   MockMotor
	ready   bool
}

func (md *MockIoDriver) Setup(ctx context.Context, inputs []uint16, outputs []uint16) error {
	for _, inPin := range inputs {
		md.inputs = append(md.inputs, &MockInput{pin: inPin})
	}
	for _, outPin := range outputs {
		md.outputs = append(md.outputs, &MockOutput{pin: outPin})
	}
	md.ready = true
	return nil
}

func (md *MockIoDriver) SetMqtt(publisher mqtt.Publisher) []mqtt.MqttHandler {
	return nil
}

func (md *MockIoDriver) Close() error {
	md.ready = false
	return nil
}

func (md *MockIoDriver) String() string {
	return mockDriverName
}

func (md *MockIoDriver) IsReady() bool {
	return md.ready
}

func (md *MockIoDriver) GetInput(pin uint16) (DigitalInput, error) {
	for _, input := range md.inputs {
		if pin == input.pin {
			return input, nil
		}
	}
	return nil, fmt.Errorf("mock input %d not found", pin)
}

func (md *MockIoDriver) GetOutput(pin uint16) (DigitalOutput, error) {
	for _, output := range md.outputs {
		if pin == output.pin {
			return output, nil
		}
	}
	return nil, fmt.Errorf("mock output %d not found", pin)
}

func (md *MockIoDriver) GetMotor() (MotorOutput, error) {
	return &md.motor, nil
}

func (md *MockIoDriver) GetAllIo() (inputs []uint16, outputs []uint16) {
	for _, input := range md.inputs {
		inputs = append(inputs, input.pin)
	}
	for _, output := range md.outputs {
		outputs = append(outputs, output.pin)
	}
	return
}

// Push fires event to every listener subscribed on input pin.
func (md *MockIoDriver) Push(pin uint16, event PushEvent) error {
	for _, input := range md.inputs {
		if input.pin == pin {
			for _, listener := range input.listeners {
				listener.FireEvent(event)
			}
			return nil
		}
	}
	return fmt.Errorf("mock input %d not found", pin)
}

func (md *MockIoDriver) MonitorStateChanges(writer io.Writer) {
	for _, out := range md.outputs {
		out.writeTo = writer
		out.writeStateChange = true
	}
}
