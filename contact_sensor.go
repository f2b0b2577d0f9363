package multiio

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/service"
	"github.com/pkg/errors"

	"github.com/hubertat/multiio/drivers"
)

// ContactSensor is an opto input shown as a HomeKit contact sensor,
// an energized input means contact detected unless Invert is set.
type ContactSensor struct {
	Name       string
	State      bool
	DriverName string
	InPin      uint16
	Invert     bool

	DisableHomeKit bool

	input       drivers.DigitalInput
	hkAccessory *accessory.A
	hkService   *service.ContactSensor
	hkFault     *characteristic.StatusFault
}

func (cs *ContactSensor) GetDriverName() string {
	return cs.DriverName
}

func (cs *ContactSensor) GetUniqueId() uint64 {
	hash := fnv.New64()
	hash.Write([]byte("ContactSensor_" + cs.Name))
	return hash.Sum64()
}

func (cs *ContactSensor) Init(driver drivers.IoDriver) error {
	if !strings.EqualFold(driver.String(), cs.DriverName) {
		return errors.Errorf("contact sensor %s Init failed, mismatched or incorrect driver", cs.Name)
	}

	if !driver.IsReady() {
		return errors.Errorf("contact sensor %s Init failed, driver not ready", cs.Name)
	}

	var err error
	cs.input, err = driver.GetInput(cs.InPin)
	if err != nil {
		return errors.Wrap(err, "Init failed on getting input")
	}

	if cs.DisableHomeKit {
		return nil
	}

	info := accessory.Info{
		Name:         cs.Name,
		SerialNumber: fmt.Sprintf("contact_sensor:%s:%02d", cs.DriverName, cs.InPin),
	}

	cs.hkAccessory = accessory.New(info, accessory.TypeSensor)
	cs.hkService = service.NewContactSensor()
	cs.hkFault = characteristic.NewStatusFault()
	cs.hkService.AddC(cs.hkFault.C)
	cs.hkAccessory.AddS(cs.hkService.S)

	return cs.Sync()
}

func (cs *ContactSensor) contactState() int {
	if cs.State != cs.Invert {
		return characteristic.ContactSensorStateContactDetected
	}
	return characteristic.ContactSensorStateContactNotDetected
}

func (cs *ContactSensor) Sync() error {
	state, err := cs.input.GetState()
	if cs.hkService != nil {
		if err != nil {
			cs.hkFault.SetValue(characteristic.StatusFaultGeneralFault)
		} else {
			cs.hkFault.SetValue(characteristic.StatusFaultNoFault)
		}
	}
	if err != nil {
		return errors.Wrapf(err, "contact sensor %s Sync failed", cs.Name)
	}

	cs.State = state
	if cs.hkService != nil {
		cs.hkService.ContactSensorState.SetValue(cs.contactState())
	}

	return nil
}

func (cs *ContactSensor) GetHk() *accessory.A {
	return cs.hkAccessory
}

// IsContact reports the contact as HomeKit sees it.
func (cs *ContactSensor) IsContact() bool {
	return cs.contactState() == characteristic.ContactSensorStateContactDetected
}
