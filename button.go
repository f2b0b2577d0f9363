package multiio

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/service"
	"github.com/pkg/errors"

	"github.com/hubertat/multiio/drivers"
)

// Button is a push input, the card button or an opto input of the mock driver.
// A single press toggles the controlled devices and every press is sent to
// HomeKit as a programmable switch event.
type Button struct {
	Name       string
	DriverName string
	InPin      uint16

	DisableHomekit bool

	toggleThis []ClickableDevice
	input      drivers.DigitalInput

	hk *accessory.A
	ss *service.StatelessProgrammableSwitch
}

type ClickableDevice interface {
	Toggle()
}

func (bu *Button) GetDriverName() string {
	return bu.DriverName
}

func (bu *Button) GetUniqueId() uint64 {
	hash := fnv.New64()
	hash.Write([]byte("Button_" + bu.Name))
	return hash.Sum64()
}

func (bu *Button) Init(driver drivers.IoDriver) error {
	if !strings.EqualFold(driver.String(), bu.DriverName) {
		return errors.Errorf("button %s Init failed, mismatched or incorrect driver", bu.Name)
	}

	if !driver.IsReady() {
		return errors.Errorf("button %s Init failed, driver not ready", bu.Name)
	}

	var err error
	bu.input, err = driver.GetInput(bu.InPin)
	if err != nil {
		return errors.Wrap(err, "Init failed on getting input")
	}

	err = bu.input.SubscribeToPushEvent(bu)
	if err != nil {
		return errors.Wrap(err, "Failed to subscribe to push event")
	}

	if !bu.DisableHomekit {
		bu.hk = accessory.New(accessory.Info{
			Name:         bu.Name,
			SerialNumber: fmt.Sprintf("button:%s:%02d", bu.DriverName, bu.InPin),
		}, accessory.TypeProgrammableSwitch)

		bu.ss = service.NewStatelessProgrammableSwitch()
		bu.hk.AddS(bu.ss.S)
	}

	return nil
}

func (bu *Button) Sync() error {
	return nil
}

func (bu *Button) GetHk() *accessory.A {
	return bu.hk
}

func (bu *Button) GetValue() bool {
	state, _ := bu.input.GetState()
	return state
}

func (bu *Button) FireEvent(event drivers.PushEvent) {
	if event == drivers.PushEventSinglePress {
		for _, device := range bu.toggleThis {
			device.Toggle()
		}
	}

	if bu.ss != nil {
		bu.ss.ProgrammableSwitchEvent.SetValue(int(event))
	}
}
