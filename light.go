package multiio

import (
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/brutella/hap/accessory"
	"github.com/pkg/errors"

	"github.com/hubertat/multiio/drivers"
)

// Light is an output, usually one of the card LEDs, shown as a HomeKit lightbulb.
type Light struct {
	Name           string
	State          bool
	DriverName     string
	OutPin         uint16
	Invert         bool
	DisableHomekit bool

	ControlBy []ControllingDevice

	output drivers.DigitalOutput
	hk     *accessory.Lightbulb
	lock   sync.Mutex
}

func (li *Light) GetDriverName() string {
	return li.DriverName
}

func (li *Light) GetUniqueId() uint64 {
	hash := fnv.New64()
	hash.Write([]byte("Light_" + li.Name))
	return hash.Sum64()
}

func (li *Light) Init(driver drivers.IoDriver) error {
	if !strings.EqualFold(driver.String(), li.DriverName) {
		return errors.Errorf("light %s Init failed, mismatched or incorrect driver", li.Name)
	}

	if !driver.IsReady() {
		return errors.Errorf("light %s Init failed, driver not ready", li.Name)
	}

	var err error
	li.output, err = driver.GetOutput(li.OutPin)
	if err != nil {
		return errors.Wrap(err, "Init failed")
	}

	if li.DisableHomekit {
		return nil
	}
	info := accessory.Info{
		Name:         li.Name,
		SerialNumber: fmt.Sprintf("light:%s:%02d", li.DriverName, li.OutPin),
	}
	li.hk = accessory.NewLightbulb(info)
	li.hk.Lightbulb.On.OnValueRemoteUpdate(li.SetValue)

	return nil
}

func (li *Light) Sync() error {
	li.lock.Lock()
	defer li.lock.Unlock()

	state, err := li.output.GetState()
	if err != nil {
		return errors.Wrapf(err, "light %s Sync failed", li.Name)
	}
	if li.Invert {
		state = !state
	}

	if state != li.State && li.hk != nil {
		li.hk.Lightbulb.On.SetValue(state)
	}
	li.State = state

	return nil
}

func (li *Light) GetControllers() []ControllingDevice {
	return li.ControlBy
}

func (li *Light) GetHk() *accessory.A {
	if li.hk == nil {
		return nil
	}
	return li.hk.A
}

func (li *Light) SetValue(state bool) {
	li.lock.Lock()
	defer li.lock.Unlock()

	out := state
	if li.Invert {
		out = !out
	}
	if err := li.output.Set(out); err != nil {
		return
	}
	li.State = state
}

func (li *Light) Toggle() {
	li.lock.Lock()
	state := !li.State
	li.lock.Unlock()

	li.SetValue(state)
	if li.hk != nil {
		li.hk.Lightbulb.On.SetValue(state)
	}
}
