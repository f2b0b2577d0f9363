// Command multiio is the command line tool for the MultiIO card:
//
//	multiio <stack> <command> [args]
//	multiio -h [command]
package main

import (
	"os"

	"github.com/hubertat/multiio/board"
	"github.com/hubertat/multiio/cli"
)

func main() {
	bus := os.Getenv("MULTIIO_I2C_BUS")
	if bus == "" {
		bus = "1"
	}

	os.Exit(cli.Main(os.Args[1:], cli.Env{
		Out: os.Stdout,
		Err: os.Stderr,
		Open: func(stack int) (*board.Card, error) {
			return board.OpenBus(bus, stack)
		},
	}))
}
