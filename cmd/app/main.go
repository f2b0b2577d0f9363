package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hubertat/servicemaker"

	"github.com/hubertat/multiio"
)

const defaultSyncInterval = "330ms"
const defaultSensorsSyncInterval = "10s"

var (
	Version string
	Build   string

	config              = flag.String("config", "config.json", "path of the configuration file")
	flagInstall         = flag.Bool("install", false, "Install service in os")
	syncInterval        = flag.String("sync", defaultSyncInterval, "sync interval (time.Duration)")
	sensorsSyncInterval = flag.String("sensors-sync", defaultSensorsSyncInterval, "sensors sync interval (time.Duration)")

	mioService = servicemaker.ServiceMaker{
		User:               "multiio",
		UserGroups:         []string{"i2c"},
		ServicePath:        "/etc/systemd/system/multiio.service",
		ServiceDescription: "MultiIO service: HomeKit, MQTT and HTTP controller for the MultiIO card. github.com/hubertat/multiio",
		ExecDir:            "/srv/multiio",
		ExecName:           "multiio-app",
	}
)

func main() {
	log.Printf("multiio %s started\n", Version)
	flag.Parse()

	if *flagInstall {
		err := mioService.InstallService()
		if err != nil {
			panic(err)
		} else {
			log.Println("service installed!")
			return
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	syncDuration, err := time.ParseDuration(*syncInterval)
	if err != nil {
		panic(err)
	}
	sensorsSyncDuration, err := time.ParseDuration(*sensorsSyncInterval)
	if err != nil {
		panic(err)
	}

	mio := &multiio.MultiIO{}
	configFile, err := os.Open(*config)
	if err == nil {
		cBuff, err := io.ReadAll(configFile)
		configFile.Close()
		if err != nil {
			log.Fatalf("failed reading config file: %v\n", err)
		}

		err = json.Unmarshal(cBuff, mio)
		if err != nil {
			log.Fatalf("failed unmarshalling json config: %v", err)
		}
	} else {
		log.Fatalf("can't find/open config file (%s), will terminate. Reason: \n%v\n", *config, err)
	}

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

	mio.PrintIoStatus(os.Stdout)

	if len(mio.MqttBroker) > 0 {
		err = mio.InitMqtt(ctx)
		if err != nil {
			log.Printf("mqtt disabled: %v\n", err)
		} else {
			log.Println("mqtt connected")
		}
	}

	if mio.Influx != nil {
		err = mio.StartInflux(ctx)
		if err != nil {
			log.Printf("influx export disabled: %v\n", err)
		}
	}

	if len(mio.HttpAddr) > 0 {
		log.Printf("Starting http api on %s\n", mio.HttpAddr)
		go func() {
			if err := mio.StartHttp(ctx); err != nil {
				log.Printf("http api stopped: %v\n", err)
			}
		}()
	}

	if len(mio.HkPin) == 8 {
		log.Println("Starting with HomeKit server")

		go mio.StartTicker(ctx, syncDuration, sensorsSyncDuration)
		err = mio.StartHomeKit(ctx, Version)
		if err != nil && ctx.Err() == nil {
			log.Printf("HomeKit server failed: %v\n", err)
		}
	} else {
		log.Println("HomeKit not configured, disabled")
		mio.StartTicker(ctx, syncDuration, sensorsSyncDuration)
	}

	log.Println("multiio stopped")
}
