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

const thermostatMinimumTemperature = float64(0)
const thermostatMaximumTemperature = float64(50)
const thermostatTemperatureStep = float64(0.5)
const defaultThermostatThreshold = float64(0.4)

// Thermostat switches the heat (and cool) outputs, usually relays, from a
// temperature sensor, usually an RTD channel. TargetState follows HomeKit:
// 0 off, 1 heat, 2 cool, 3 auto.
type Thermostat struct {
	Name               string
	CurrentTemperature float64
	TargetTemperature  float64
	TargetState        int

	DriverName   string
	HeatPin      uint16
	CoolPin      uint16
	SensorDriver string
	SensorId     string

	MinimumTemperature float64
	MaximumTemperature float64
	StepTemperature    float64
	HeatingThreshold   float64
	CoolingThreshold   float64
	CoolingEnabled     bool
	DisableHomekit     bool

	heatOut           drivers.DigitalOutput
	coolOut           drivers.DigitalOutput
	hk                *accessory.Thermostat
	lock              sync.Mutex
	temperatureSensor drivers.TemperatureSensor
}

func (th *Thermostat) GetDriverName() string {
	return th.DriverName
}

func (th *Thermostat) GetUniqueId() uint64 {
	hash := fnv.New64()
	hash.Write([]byte("Thermostat_" + th.Name))
	return hash.Sum64()
}

func (th *Thermostat) Init(driver drivers.IoDriver) error {
	if !strings.EqualFold(driver.String(), th.DriverName) {
		return fmt.Errorf("Init failed, mismatched or incorrect driver")
	}

	if !driver.IsReady() {
		return fmt.Errorf("Init failed, driver not ready")
	}

	if th.MaximumTemperature == 0 {
		th.MaximumTemperature = thermostatMaximumTemperature
	}
	if th.StepTemperature == 0 {
		th.StepTemperature = thermostatTemperatureStep
	}
	if th.HeatingThreshold == 0 {
		th.HeatingThreshold = defaultThermostatThreshold
	}
	if th.CoolingThreshold == 0 {
		th.CoolingThreshold = defaultThermostatThreshold
	}
	th.TargetState = th.validState(th.TargetState)

	var err error
	th.heatOut, err = driver.GetOutput(th.HeatPin)
	if err != nil {
		return errors.Wrap(err, "Thermostat Init failed")
	}

	if th.CoolingEnabled {
		th.coolOut, err = driver.GetOutput(th.CoolPin)
		if err != nil {
			return errors.Wrap(err, "Thermostat Init failed on coolpin")
		}
	}

	if th.DisableHomekit {
		return nil
	}

	info := accessory.Info{
		Name:         th.Name,
		SerialNumber: fmt.Sprintf("thermostat:%s:%02d", th.DriverName, th.HeatPin),
	}
	th.hk = accessory.NewThermostat(info)

	target := th.hk.Thermostat.TargetTemperature
	target.SetMinValue(th.MinimumTemperature)
	target.SetMaxValue(th.MaximumTemperature)
	target.SetStepValue(th.StepTemperature)

	th.hk.Thermostat.TargetHeatingCoolingState.OnValueRemoteUpdate(th.updateTargetState)
	th.hk.Thermostat.TargetTemperature.OnValueRemoteUpdate(th.updateTargetTemperature)

	return nil
}

func (th *Thermostat) GetHk() *accessory.A {
	if th.hk == nil {
		return nil
	}
	return th.hk.A
}

func (th *Thermostat) checkHeatingCondition() bool {
	heatState, _ := th.heatOut.GetState()
	var threshold float64
	if heatState {
		threshold = th.HeatingThreshold
	} else {
		threshold = -th.HeatingThreshold
	}
	return th.CurrentTemperature < (th.TargetTemperature + threshold)
}

func (th *Thermostat) checkCoolingCondition() bool {
	coolState, _ := th.coolOut.GetState()
	var threshold float64
	if coolState {
		threshold = -th.CoolingThreshold
	} else {
		threshold = th.CoolingThreshold
	}

	return th.CurrentTemperature > (th.TargetTemperature + threshold)
}

// Sync reads the sensor and switches the outputs. Without a valid reading
// both outputs are switched off.
func (th *Thermostat) Sync() error {
	th.lock.Lock()
	defer th.lock.Unlock()

	if th.temperatureSensor == nil {
		return errors.Errorf("missing temperature sensor for thermostat %s", th.Name)
	}

	current, err := th.temperatureSensor.GetValue()
	if err != nil {
		th.allOff()
		th.syncHkValues()
		return errors.Wrapf(err, "thermostat %s", th.Name)
	}
	th.CurrentTemperature = current

	th.calculateOutputs()
	th.syncHkValues()

	return nil
}

func (th *Thermostat) allOff() {
	th.heatOut.Set(false)
	if th.CoolingEnabled {
		th.coolOut.Set(false)
	}
}

func (th *Thermostat) calculateOutputs() {
	switch th.TargetState {
	default:
		th.allOff()
	case 1:
		if th.CoolingEnabled {
			th.coolOut.Set(false)
		}
		th.heatOut.Set(th.checkHeatingCondition())
	case 2:
		th.heatOut.Set(false)
		th.coolOut.Set(th.checkCoolingCondition())
	case 3:
		if th.checkHeatingCondition() {
			th.heatOut.Set(true)
			th.coolOut.Set(false)
		} else if th.checkCoolingCondition() {
			th.heatOut.Set(false)
			th.coolOut.Set(true)
		} else {
			th.allOff()
		}
	}
}

func (th *Thermostat) getCurrentHeatingCoolingState() (currentHeatingCoolingState int) {
	heatingOn, _ := th.heatOut.GetState()
	if heatingOn {
		currentHeatingCoolingState = 1
	}
	if th.CoolingEnabled {
		coolingOn, _ := th.coolOut.GetState()
		if coolingOn {
			currentHeatingCoolingState = 2
		}
	}
	return
}

func (th *Thermostat) syncHkValues() {
	if th.hk == nil {
		return
	}
	th.hk.Thermostat.CurrentTemperature.SetValue(th.CurrentTemperature)
	th.hk.Thermostat.TargetTemperature.SetValue(th.TargetTemperature)
	th.hk.Thermostat.CurrentHeatingCoolingState.SetValue(th.getCurrentHeatingCoolingState())
	th.hk.Thermostat.TargetHeatingCoolingState.SetValue(th.TargetState)
}

// validState maps a requested target state to one the outputs can serve.
func (th *Thermostat) validState(state int) int {
	switch state {
	case 1:
		return 1
	case 2:
		if th.CoolingEnabled {
			return 2
		}
	case 3:
		if th.CoolingEnabled {
			return 3
		}
		return 1
	}
	return 0
}

func (th *Thermostat) updateTargetState(state int) {
	th.lock.Lock()
	th.TargetState = th.validState(state)
	th.lock.Unlock()

	th.Sync()
}

func (th *Thermostat) updateTargetTemperature(target float64) {
	th.lock.Lock()
	defer th.lock.Unlock()

	th.TargetTemperature = target
}
