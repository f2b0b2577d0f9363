// Package multiio runs a MultiIO card as a home automation controller:
// relays, LEDs, opto inputs, the button, RTD sensors and the motor are
// configured from JSON and exposed over HomeKit, MQTT, HTTP and InfluxDB.
package multiio

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/brutella/hap/accessory"
	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/hubertat/multiio/drivers"
	"github.com/hubertat/multiio/mqtt"
	"github.com/hubertat/multiio/panel"
)

type MultiIO struct {
	Name string

	Outlets            []*Outlet
	Lights             []*Light
	Buttons            []*Button
	ContactSensors     []*ContactSensor
	Shutters           []*Shutter
	TemperatureSensors []*TemperatureSensor
	Thermostats        []*Thermostat

	HkPin       string
	HkDirectory string
	HkAddress   string
	HkDebug     bool

	MqttBroker string

	HttpAddr  string
	HttpToken string

	Influx *InfluxExport

	CalibrationFile string

	Card       *drivers.MultiIO
	FakeDriver *drivers.MockIoDriver
	Rtd        *drivers.Rtd

	ioDrivers     map[string]drivers.IoDriver
	sensorDrivers map[string]drivers.SensorDriver
	panel         *panel.Panel
	mqttClient    *mqtt.MqttClient
	influx        *influxWriter
	logger        *log.Logger
}

type IO interface {
	Init(driver drivers.IoDriver) error
	GetDriverName() string
	Sync() error
}

type HkThing interface {
	GetHk() *accessory.A
	GetUniqueId() uint64
}

type ControllingDevice struct {
	Pin        uint16
	DriverName string
}

type Controllable interface {
	GetControllers() []ControllingDevice
	GetDriverName() string
	SetValue(value bool)
	Toggle()
}

func (mio *MultiIO) getLogger() *log.Logger {
	if mio.logger == nil {
		mio.logger = log.NewWithOptions(os.Stderr, log.Options{
			Prefix: "MultiIO: ",
			Level:  log.GetLevel(),
		})
	}
	return mio.logger
}

func appendPin(pins []uint16, pin uint16) []uint16 {
	for _, p := range pins {
		if p == pin {
			return pins
		}
	}
	return append(pins, pin)
}

func (mio *MultiIO) getInPins(driverName string) (pins []uint16) {
	for _, io := range mio.Buttons {
		if strings.EqualFold(io.DriverName, driverName) {
			pins = appendPin(pins, io.InPin)
		}
	}
	for _, io := range mio.ContactSensors {
		if strings.EqualFold(io.DriverName, driverName) {
			pins = appendPin(pins, io.InPin)
		}
	}

	return
}

func (mio *MultiIO) getOutPins(driverName string) (pins []uint16) {
	for _, io := range mio.Lights {
		if strings.EqualFold(io.DriverName, driverName) {
			pins = appendPin(pins, io.OutPin)
		}
	}
	for _, io := range mio.Outlets {
		if strings.EqualFold(io.DriverName, driverName) {
			pins = appendPin(pins, io.OutPin)
		}
	}
	for _, th := range mio.Thermostats {
		if strings.EqualFold(th.DriverName, driverName) {
			pins = appendPin(pins, th.HeatPin)
			if th.CoolingEnabled {
				pins = appendPin(pins, th.CoolPin)
			}
		}
	}

	return
}

func (mio *MultiIO) getIos() []IO {
	ios := []IO{}
	for _, li := range mio.Lights {
		ios = append(ios, li)
	}
	for _, ou := range mio.Outlets {
		ios = append(ios, ou)
	}
	for _, but := range mio.Buttons {
		ios = append(ios, but)
	}
	for _, cs := range mio.ContactSensors {
		ios = append(ios, cs)
	}
	for _, shu := range mio.Shutters {
		ios = append(ios, shu)
	}
	for _, th := range mio.Thermostats {
		ios = append(ios, th)
	}

	return ios
}

func (mio *MultiIO) getHkThings() (things []HkThing) {
	for _, th := range mio.Lights {
		things = append(things, th)
	}
	for _, th := range mio.Outlets {
		things = append(things, th)
	}
	for _, th := range mio.Buttons {
		things = append(things, th)
	}
	for _, th := range mio.ContactSensors {
		things = append(things, th)
	}
	for _, th := range mio.Shutters {
		things = append(things, th)
	}
	for _, th := range mio.TemperatureSensors {
		things = append(things, th)
	}
	for _, th := range mio.Thermostats {
		things = append(things, th)
	}

	return
}

// InitDrivers sets up the configured io and sensor drivers. The card driver
// also backs the status panel, with the calibration file applied.
func (mio *MultiIO) InitDrivers(ctx context.Context) error {
	mio.ioDrivers = make(map[string]drivers.IoDriver)
	mio.sensorDrivers = make(map[string]drivers.SensorDriver)

	if mio.Card != nil {
		if len(mio.Card.MqttTopic) == 0 {
			mio.Card.MqttTopic = mio.mqttName()
		}
		mio.ioDrivers[mio.Card.String()] = mio.Card
	}

	if mio.FakeDriver != nil {
		mio.ioDrivers[mio.FakeDriver.String()] = mio.FakeDriver
	}

	for _, driver := range mio.ioDrivers {
		err := driver.Setup(ctx, mio.getInPins(driver.String()), mio.getOutPins(driver.String()))
		if err != nil {
			return errors.Wrapf(err, "failed to setup %s driver", driver)
		}
	}

	for _, io := range mio.getIos() {
		_, driverFound := mio.ioDrivers[io.GetDriverName()]
		if !driverFound {
			return errors.Errorf("driver %s not set up", io.GetDriverName())
		}
	}

	if mio.Rtd != nil {
		if mio.Card == nil {
			return errors.New("rtd sensor driver requires the Card driver")
		}
		mio.Rtd.UseCard(mio.Card.Card())
		mio.sensorDrivers[mio.Rtd.Name()] = mio.Rtd
	}

	if mio.Card != nil {
		if err := mio.initPanel(); err != nil {
			return errors.Wrap(err, "failed to init status panel")
		}
	}

	return nil
}

func (mio *MultiIO) initPanel() error {
	mio.panel = panel.New(sharedCardOpener(mio.Card))
	mio.panel.SetLogger(mio.getLogger().WithPrefix("Panel: "))

	if err := mio.panel.Connect(mio.Card.Stack, mio.Card.BusNo()); err != nil {
		return err
	}
	if len(mio.CalibrationFile) > 0 {
		if err := mio.panel.LoadCalibration(mio.CalibrationFile); err != nil {
			return errors.Wrapf(err, "failed to load calibration %s", mio.CalibrationFile)
		}
	}
	return nil
}

func (mio *MultiIO) InitIos() error {
	for _, io := range mio.getIos() {
		err := io.Init(mio.ioDrivers[io.GetDriverName()])
		if err != nil {
			return errors.Wrapf(err, "failed to init io")
		}
	}

	return nil
}

func (mio *MultiIO) InitSensors() error {
	for _, ts := range mio.TemperatureSensors {
		driver, found := mio.sensorDrivers[ts.DriverName]
		if !found {
			return errors.Errorf("sensor driver %s not set up", ts.DriverName)
		}
		if err := ts.Init(driver); err != nil {
			return errors.Wrapf(err, "failed to init temperature sensor %s", ts.Name)
		}
	}

	for name, driver := range mio.sensorDrivers {
		sensors := []drivers.TemperatureSensor{}
		for _, ts := range mio.TemperatureSensors {
			if strings.EqualFold(ts.DriverName, name) {
				sensors = append(sensors, ts)
			}
		}
		if err := driver.Setup(sensors); err != nil {
			return errors.Wrapf(err, "failed to setup %s sensor driver", name)
		}
	}

	return nil
}

func (mio *MultiIO) findButton(pinNo uint16, driverName string) *Button {
	for _, but := range mio.Buttons {
		if but.InPin == pinNo && strings.EqualFold(but.DriverName, driverName) {
			return but
		}
	}

	return nil
}

func (mio *MultiIO) MatchControllers() error {
	controllables := []Controllable{}

	for _, li := range mio.Lights {
		controllables = append(controllables, li)
	}

	for _, ou := range mio.Outlets {
		controllables = append(controllables, ou)
	}

	for _, controllable := range controllables {
		for _, controller := range controllable.GetControllers() {
			driverName := controllable.GetDriverName()
			if len(controller.DriverName) > 0 {
				driverName = controller.DriverName
			}
			_, driverReady := mio.ioDrivers[driverName]
			if !driverReady {
				return errors.Errorf("matching controlled failed, driver (%s) not present or not ready", driverName)
			}

			but := mio.findButton(controller.Pin, driverName)
			if but == nil {
				return errors.Errorf("matching controlled failed, no button found with pin = %d and driver %s", controller.Pin, driverName)
			}

			but.toggleThis = append(but.toggleThis, controllable)
		}
	}

	return nil
}

func (mio *MultiIO) MatchSensors() error {
	for _, th := range mio.Thermostats {
		driver, found := mio.sensorDrivers[th.SensorDriver]
		if !found {
			return errors.Errorf("thermostat %s: sensor driver %s not set up", th.Name, th.SensorDriver)
		}
		sensor, err := driver.FindTemperatureSensor(th.SensorId)
		if err != nil {
			return errors.Wrapf(err, "thermostat %s", th.Name)
		}
		th.temperatureSensor = sensor
	}

	return nil
}

func (mio *MultiIO) GetHkAccessories(firmwareVersion string) (acc []*accessory.A) {
	acc = []*accessory.A{}

	for _, th := range mio.getHkThings() {
		accessory := th.GetHk()
		if accessory != nil {
			if accessory.Info != nil && accessory.Info.FirmwareRevision != nil {
				accessory.Info.FirmwareRevision.SetValue(firmwareVersion)
			}
			accessory.Id = th.GetUniqueId()
			acc = append(acc, accessory)
		}
	}

	return
}

// SyncIos syncs every io and returns the errors joined in one.
func (mio *MultiIO) SyncIos() (err error) {
	for _, io := range mio.getIos() {
		if syncErr := io.Sync(); syncErr != nil {
			err = wrapErr(err, syncErr)
		}
	}

	return
}

// SyncSensors reads the sensor drivers and pushes the values to the sensors.
func (mio *MultiIO) SyncSensors() (err error) {
	for name, driver := range mio.sensorDrivers {
		if syncErr := driver.Sync(); syncErr != nil {
			err = wrapErr(err, errors.Wrapf(syncErr, "sensor driver %s", name))
		}
	}
	for _, ts := range mio.TemperatureSensors {
		if syncErr := ts.Sync(); syncErr != nil {
			err = wrapErr(err, syncErr)
		}
	}

	return
}

func wrapErr(err, next error) error {
	if err == nil {
		return next
	}
	return errors.Wrap(err, next.Error())
}

// StartTicker syncs the ios every ioInterval and the sensors, MQTT status
// and InfluxDB export every sensorsInterval, until ctx is done.
func (mio *MultiIO) StartTicker(ctx context.Context, ioInterval, sensorsInterval time.Duration) {
	ioTicker := time.NewTicker(ioInterval)
	defer ioTicker.Stop()
	sensorsTicker := time.NewTicker(sensorsInterval)
	defer sensorsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ioTicker.C:
			if err := mio.SyncIos(); err != nil {
				mio.getLogger().Warn("Received error(s) from syncing io", "err", err)
			}
		case <-sensorsTicker.C:
			if err := mio.SyncSensors(); err != nil {
				mio.getLogger().Warn("Received error(s) from syncing sensors", "err", err)
			}
			mio.report(ctx)
		}
	}
}

func (mio *MultiIO) report(ctx context.Context) {
	if mio.panel == nil {
		return
	}
	status := mio.Status()

	if mio.mqttClient != nil {
		if err := mio.publishStatus(status); err != nil {
			mio.getLogger().Warn("failed to publish status", "err", err)
		}
	}
	if mio.influx != nil {
		if err := mio.influx.write(ctx, status); err != nil {
			mio.getLogger().Warn("failed to write status to influx", "err", err)
		}
	}
}

func (mio *MultiIO) Close() (err error) {
	if mio.mqttClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if closeErr := mio.mqttClient.Disconnect(ctx); closeErr != nil {
			err = wrapErr(err, closeErr)
		}
	}
	if mio.influx != nil {
		mio.influx.close()
	}
	if mio.panel != nil {
		mio.panel.Close()
	}

	for _, driver := range mio.sensorDrivers {
		if closeErr := driver.Close(); closeErr != nil {
			err = wrapErr(err, closeErr)
		}
	}
	for _, driver := range mio.ioDrivers {
		if closeErr := driver.Close(); closeErr != nil {
			err = wrapErr(err, closeErr)
		}
	}

	return
}

func (mio *MultiIO) PrintIoStatus(writer io.Writer) {
	fmt.Fprintln(writer)
	fmt.Fprintln(writer, "=== active io drivers ===")
	for driverName, driver := range mio.ioDrivers {
		fmt.Fprintln(writer, "________")
		fmt.Fprintf(writer, "| driver: %s\n", driverName)
		inputs, outputs := driver.GetAllIo()
		fmt.Fprintf(writer, "| in pins: ")
		for _, inpin := range inputs {
			fmt.Fprintf(writer, "%d, ", inpin)
		}
		fmt.Fprintf(writer, "\n| out pins: ")
		for _, outpin := range outputs {
			fmt.Fprintf(writer, "%d, ", outpin)
		}
		fmt.Fprintln(writer)
		fmt.Fprintln(writer, "--------")
	}
	for name := range mio.sensorDrivers {
		fmt.Fprintf(writer, "| sensor driver: %s\n", name)
	}
	fmt.Fprintln(writer, "-----------------------------")
	fmt.Fprintln(writer)
}
