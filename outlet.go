package multiio

import (
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/pkg/errors"

	"github.com/hubertat/multiio/drivers"
)

// Outlet is a relay of the card shown as a HomeKit outlet.
type Outlet struct {
	Name           string
	State          bool
	DriverName     string
	OutPin         uint16
	DisableHomekit bool
	IsFaulty       bool

	ControlBy []ControllingDevice

	output drivers.DigitalOutput

	hk    *accessory.Outlet
	fault *characteristic.StatusFault

	lock sync.Mutex
}

func (ou *Outlet) GetDriverName() string {
	return ou.DriverName
}

func (ou *Outlet) GetUniqueId() uint64 {
	hash := fnv.New64()
	hash.Write([]byte("Outlet_" + ou.Name))
	return hash.Sum64()
}

func (ou *Outlet) Init(driver drivers.IoDriver) error {
	if !strings.EqualFold(driver.String(), ou.DriverName) {
		return errors.Errorf("outlet %s Init failed, mismatched or incorrect driver", ou.Name)
	}

	if !driver.IsReady() {
		return errors.Errorf("outlet %s Init failed, driver not ready", ou.Name)
	}

	var err error
	ou.output, err = driver.GetOutput(ou.OutPin)
	if err != nil {
		return errors.Wrap(err, "Init failed")
	}

	if ou.DisableHomekit {
		return nil
	}
	info := accessory.Info{
		Name:         ou.Name,
		SerialNumber: fmt.Sprintf("outlet:%s:%02d", ou.DriverName, ou.OutPin),
	}
	ou.hk = accessory.NewOutlet(info)

	ou.fault = characteristic.NewStatusFault()
	ou.fault.SetValue(characteristic.StatusFaultNoFault)
	ou.hk.Outlet.AddC(ou.fault.C)

	ou.hk.Outlet.On.OnValueRemoteUpdate(ou.SetValue)
	return nil
}

// Sync reads the relay back, it may have been switched over MQTT or HTTP.
func (ou *Outlet) Sync() error {
	ou.lock.Lock()
	defer ou.lock.Unlock()

	state, err := ou.output.GetState()
	ou.IsFaulty = err != nil
	if ou.hk != nil {
		if ou.IsFaulty {
			ou.fault.SetValue(characteristic.StatusFaultGeneralFault)
		} else {
			ou.fault.SetValue(characteristic.StatusFaultNoFault)
		}
	}
	if err != nil {
		return errors.Wrapf(err, "outlet %s Sync failed", ou.Name)
	}

	if state != ou.State && ou.hk != nil {
		ou.hk.Outlet.On.SetValue(state)
	}
	ou.State = state

	return nil
}

func (ou *Outlet) GetControllers() []ControllingDevice {
	return ou.ControlBy
}

func (ou *Outlet) GetHk() *accessory.A {
	if ou.hk == nil {
		return nil
	}
	return ou.hk.A
}

func (ou *Outlet) SetValue(state bool) {
	ou.lock.Lock()
	defer ou.lock.Unlock()

	if err := ou.output.Set(state); err != nil {
		ou.IsFaulty = true
		return
	}
	ou.State = state
}

func (ou *Outlet) Toggle() {
	ou.lock.Lock()
	state := !ou.State
	ou.lock.Unlock()

	ou.SetValue(state)
	if ou.hk != nil {
		ou.hk.Outlet.On.SetValue(state)
	}
}
