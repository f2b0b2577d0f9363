package multiio

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/pkg/errors"

	"github.com/hubertat/multiio/drivers"
)

const oldDataDuration = 10 * time.Minute

// TemperatureSensor takes its value from a sensor driver, the rtd driver
// reads card channel Id.
type TemperatureSensor struct {
	Id             string
	Name           string
	DriverName     string
	Tags           map[string]string
	DisableHomekit bool

	value         float64
	lastSync      time.Time
	hkA           *accessory.Thermometer
	hkStatusFault *characteristic.StatusFault
	lock          sync.Mutex
}

func (ts *TemperatureSensor) GetDriverName() string {
	return ts.DriverName
}

func (ts *TemperatureSensor) GetId() string {
	return ts.Id
}

func (ts *TemperatureSensor) GetTags() map[string]string {
	return ts.Tags
}

func (ts *TemperatureSensor) GetUniqueId() uint64 {
	hash := fnv.New64()
	hash.Write([]byte("TemperatureSensor_" + ts.DriverName + ts.Id))
	return hash.Sum64()
}

func (ts *TemperatureSensor) Init(driver drivers.SensorDriver) error {
	if driver.Name() != ts.DriverName {
		return errors.Errorf("sensor %s Init failed, mismatched driver %s", ts.Id, driver.Name())
	}
	if ts.DisableHomekit {
		return nil
	}

	info := accessory.Info{
		Name:         ts.Name,
		SerialNumber: fmt.Sprintf("temp_sensor:%s:%s", ts.DriverName, ts.Id),
	}
	ts.hkA = accessory.NewTemperatureSensor(info)
	ts.hkStatusFault = characteristic.NewStatusFault()
	ts.hkStatusFault.SetValue(characteristic.StatusFaultGeneralFault)
	ts.hkA.TempSensor.AddC(ts.hkStatusFault.C)

	return nil
}

// Sync pushes the last value to HomeKit, a missing or stale value is reported as a fault.
func (ts *TemperatureSensor) Sync() error {
	val, err := ts.GetValue()
	if ts.hkA == nil {
		return err
	}

	if err == nil {
		ts.hkStatusFault.SetValue(characteristic.StatusFaultNoFault)
		ts.hkA.TempSensor.CurrentTemperature.SetValue(val)
		return nil
	}

	ts.hkStatusFault.SetValue(characteristic.StatusFaultGeneralFault)
	return errors.Wrapf(err, "failed to sync %s temperature sensor %s", ts.Name, ts.Id)
}

func (ts *TemperatureSensor) GetHk() *accessory.A {
	if ts.hkA == nil {
		return nil
	}
	return ts.hkA.A
}

func (ts *TemperatureSensor) GetValue() (value float64, err error) {
	ts.lock.Lock()
	defer ts.lock.Unlock()

	if ts.lastSync.IsZero() {
		err = errors.Errorf("cannot get sensor %s value, never synced", ts.Id)
		return
	}

	if time.Since(ts.lastSync) > oldDataDuration {
		err = errors.Errorf("cannot get value of sensor %s, data is too old (%v old)", ts.Id, time.Since(ts.lastSync))
		return
	}

	value = ts.value
	return
}

func (ts *TemperatureSensor) SetValue(val float64) error {
	ts.lock.Lock()
	defer ts.lock.Unlock()

	ts.value = val
	ts.lastSync = time.Now()
	return nil
}
