// Command i2c reads and writes raw MultiIO registers on I2C bus 1.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/hubertat/multiio/i2cbus"
	"github.com/hubertat/multiio/i2ctool"
)

const busName = "1"

func main() {
	log.SetFlags(0)

	cmd := i2ctool.Parse(os.Args[1:])
	if cmd.Op == i2ctool.OpUsage {
		i2ctool.PrintUsage(os.Stdout)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	bus, err := i2cbus.Open(busName)
	if err != nil {
		log.Fatal(err)
	}
	defer bus.Close()

	if err := i2ctool.Run(ctx, cmd, bus, os.Stdout); err != nil {
		bus.Close()
		log.Fatal(err)
	}
}
