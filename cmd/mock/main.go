package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/hubertat/multiio"
	"github.com/hubertat/multiio/drivers"
)

var (
	Version string
	Build   string
)

func main() {
	var err error

	log.Println("multiio started")
	log.Println("mock instance for testing purposes, runs on an emulated card")

	syncDuration := 250 * time.Millisecond
	log.Println("syncDuration is ", syncDuration)
	sensorsSyncDuration := 10 * time.Second
	log.Println("sensorSyncDuration is ", sensorsSyncDuration)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	mio := &multiio.MultiIO{Name: "multiio-mock"}

	mio.HkPin = "88008800"
	mio.HttpAddr = "127.0.0.1:8088"

	mio.Card = &drivers.MultiIO{Mock: true}
	mio.Rtd = &drivers.Rtd{}
	mio.Outlets = append(mio.Outlets, &multiio.Outlet{Name: "card relay", DriverName: "multiio", OutPin: 1,
		ControlBy: []multiio.ControllingDevice{{Pin: drivers.ButtonPin}}})
	mio.Lights = append(mio.Lights, &multiio.Light{Name: "card led", DriverName: "multiio", OutPin: drivers.LedPinFirst})
	mio.Buttons = append(mio.Buttons, &multiio.Button{Name: "card button", DriverName: "multiio", InPin: drivers.ButtonPin})
	mio.ContactSensors = append(mio.ContactSensors, &multiio.ContactSensor{Name: "card opto", DriverName: "multiio", InPin: 1})
	mio.TemperatureSensors = append(mio.TemperatureSensors, &multiio.TemperatureSensor{Name: "card rtd", DriverName: "rtd", Id: "1"})
	mio.Shutters = append(mio.Shutters, &multiio.Shutter{Name: "card motor", DriverName: "multiio"})

	mio.FakeDriver = &drivers.MockIoDriver{}
	mio.Lights = append(mio.Lights, &multiio.Light{Name: "fake light", DriverName: "mock_driver", OutPin: 1})
	mio.Thermostats = append(mio.Thermostats, &multiio.Thermostat{Name: "fake thermostat", DriverName: "mock_driver",
		HeatPin: 2, SensorDriver: "rtd", SensorId: "1", TargetTemperature: 21})

	log.Println("will init multiio drivers...")
	err = mio.InitDrivers(ctx)
	defer mio.Close()
	if err != nil {
		panic(err)
	}
	log.Println("will init multiio IOs...")
	err = mio.InitIos()
	if err != nil {
		panic(err)
	}
	log.Println("will init multiio sensors...")
	err = mio.InitSensors()
	if err != nil {
		panic(err)
	}

	log.Printf("drivers OK!\nwill try to MatchControllers:\n")
	err = mio.MatchControllers()
	if err != nil {
		log.Printf("Matching Controllers returned error: %v\n we will proceed...", err)
	} else {
		log.Println("MatchControllers OK!")
	}

	log.Println("trying to match thermostats:")
	err = mio.MatchSensors()
	if err != nil {
		log.Println(err)
	} else {
		log.Printf("\tOK\n")
	}

	mio.FakeDriver.MonitorStateChanges(os.Stdout)

	mio.PrintIoStatus(os.Stdout)

	go func() {
		if err := mio.StartHttp(ctx); err != nil {
			log.Printf("http api stopped: %v\n", err)
		}
	}()

	log.Println("starting mock with HomeKit service")

	go mio.StartTicker(ctx, syncDuration, sensorsSyncDuration)

	mio.HkDirectory = "./mock_homekit"
	err = mio.StartHomeKit(ctx, "mock: "+Version)
	if err != nil && ctx.Err() == nil {
		log.Fatal(err)
	}
}
