// Command panel is the live terminal panel of a MultiIO card.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/hubertat/multiio/board"
	"github.com/hubertat/multiio/panel"
	"github.com/hubertat/multiio/tui"
)

var (
	stack       = flag.Int("stack", 0, "card stack level [0..7]")
	bus         = flag.Int("bus", 1, "i2c bus number [1..2]")
	interval    = flag.Duration("interval", panel.DefaultInterval, "poll interval")
	calibration = flag.String("calibration", "", "calibration settings file applied on connect")
	mock        = flag.Bool("mock", false, "run against an emulated card")
	logFile     = flag.String("log", "", "write debug log to this file")
)

func main() {
	flag.Parse()
	os.Exit(run())
}

// run keeps the deferred closes ahead of os.Exit.
func run() int {

	opener := panel.CardOpener
	if *mock {
		emu := board.NewEmulator(*stack)
		emu.SetRtc(*stack, time.Now().UTC())
		opener = panel.EmulatorOpener(emu)
	}

	p := panel.New(opener)
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		defer f.Close()
		p.SetLogger(log.NewWithOptions(f, log.Options{
			Prefix:          "Panel: ",
			Level:           log.DebugLevel,
			ReportTimestamp: true,
		}))
	} else {
		// stderr output would tear the alt screen
		p.SetLogger(log.NewWithOptions(os.Stderr, log.Options{Level: log.FatalLevel}))
	}
	defer p.Close()

	status := ""
	if err := p.Connect(*stack, *bus); err != nil {
		status = err.Error()
	}
	if *calibration != "" {
		if err := p.LoadCalibration(*calibration); err != nil {
			status = err.Error()
		}
	}

	m := tui.New(p, *interval)
	if status != "" {
		m = m.WithError(status)
	}
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		fmt.Println("error:", err)
		return 1
	}
	return 0
}
