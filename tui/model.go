// Package tui is the terminal front end of the panel: a tab per board
// section refreshed on every poll and a command line for user actions.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"github.com/hubertat/multiio/board"
	"github.com/hubertat/multiio/panel"
)

type tab int

const (
	tabVersion tab = iota
	tabRelays
	tabLeds
	tabAnalog
	tabRtd
	tabWatchdog
	tabRtc
	tabOpto
	tabServo
	tabButton
	tabCount
)

var tabNames = [tabCount]string{"Version", "Relays", "LEDs", "Analog", "RTD", "Watchdog", "RTC", "Opto", "Servo/Motor", "Button"}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	okStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	tabStyle       = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("8"))
	activeTabStyle = lipgloss.NewStyle().Padding(0, 1).Bold(true).Underline(true).Foreground(lipgloss.Color("10"))
)

type snapshotMsg struct{ snap panel.Snapshot }
type resultMsg struct {
	text string
	err  error
}

type Model struct {
	panel    *panel.Panel
	interval time.Duration

	snap     panel.Snapshot
	polled   bool
	tab      tab
	input    textinput.Model
	status   string
	lastErr  error
	quitting bool
}

// New returns the model for p. The first poll runs immediately, then every interval.
func New(p *panel.Panel, interval time.Duration) Model {
	if interval <= 0 {
		interval = panel.DefaultInterval
	}

	in := textinput.New()
	in.Placeholder = "relay 1 on"
	in.Prompt = "> "
	in.CharLimit = 256
	in.Width = 60
	in.Focus()

	return Model{
		panel:    p,
		interval: interval,
		input:    in,
	}
}

// WithError starts the model with msg on the status line, e.g. a failed
// connection at startup.
func (m Model) WithError(msg string) Model {
	m.lastErr = errors.New(msg)
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.pollCmd())
}

func (m Model) pollCmd() tea.Cmd {
	p := m.panel
	return func() tea.Msg {
		return snapshotMsg{snap: p.Poll()}
	}
}

func (m Model) nextPoll() tea.Cmd {
	p := m.panel
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return snapshotMsg{snap: p.Poll()}
	})
}

func (m Model) runCmd(a Action) tea.Cmd {
	p := m.panel
	return func() tea.Msg {
		text, err := a.Apply(p)
		return resultMsg{text: text, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "tab":
			m.tab = (m.tab + 1) % tabCount
			return m, nil
		case "shift+tab":
			m.tab = (m.tab + tabCount - 1) % tabCount
			return m, nil
		case "enter":
			line := m.input.Value()
			m.input.Reset()
			a, err := Parse(line)
			if err != nil {
				m.lastErr = err
				m.status = ""
				return m, nil
			}
			switch a.Kind {
			case ActNone:
				return m, nil
			case ActQuit:
				m.quitting = true
				return m, tea.Quit
			}
			return m, m.runCmd(a)
		}

	case snapshotMsg:
		m.snap = msg.snap
		m.polled = true
		return m, m.nextPoll()

	case resultMsg:
		if msg.err != nil {
			m.lastErr = msg.err
			m.status = ""
		} else {
			m.lastErr = nil
			m.status = msg.text
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("MultiIO panel") + "  " + m.header() + "\n")
	b.WriteString(helpStyle.Render("Tab/Shift+Tab switch section, Enter runs a command, Esc quits.") + "\n\n")
	b.WriteString(m.tabs() + "\n\n")

	if m.polled {
		b.WriteString(m.section())
	} else {
		b.WriteString("Reading...\n")
	}
	b.WriteString("\n")

	if m.status != "" {
		b.WriteString(okStyle.Render(m.status) + "\n")
	}
	if m.lastErr != nil {
		b.WriteString(errStyle.Render("Error: "+m.lastErr.Error()) + "\n")
	}
	b.WriteString(m.input.View() + "\n")
	b.WriteString(helpStyle.Render(strings.Join(CommandHelp, "  ·  ")) + "\n")
	return b.String()
}

func (m Model) header() string {
	s := m.snap
	if !s.Connected {
		return errStyle.Render(fmt.Sprintf("not connected (stack %d, bus %d)", s.Stack, s.Bus))
	}
	label := s.Calibration.Label()
	style := okStyle
	if label != "Calibrated" {
		style = errStyle
	}
	return fmt.Sprintf("stack %d, bus %d  ", s.Stack, s.Bus) + style.Render(label)
}

func (m Model) tabs() string {
	rendered := make([]string, tabCount)
	for i, name := range tabNames {
		if tab(i) == m.tab {
			rendered[i] = activeTabStyle.Render(name)
		} else {
			rendered[i] = tabStyle.Render(name)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func onOffText(state int) string {
	switch state {
	case 1:
		return okStyle.Render("ON")
	case 0:
		return "OFF"
	}
	return errStyle.Render(panel.ErrorText)
}

func floatText(err error, values []float64, i int, format string) string {
	if err != nil || i >= len(values) {
		return panel.ErrorText
	}
	return fmt.Sprintf(format, values[i])
}

func (m Model) section() string {
	s := m.snap
	var b strings.Builder

	switch m.tab {
	case tabVersion:
		fmt.Fprintf(&b, "Firmware version: %s\n", panel.Text(s.Version.Err, "%s", s.Version.Firmware))
		fmt.Fprintf(&b, "Hardware revision: %s\n", panel.Text(s.Version.Err, "%s", s.Version.Hardware))
		fmt.Fprintf(&b, "Calibration: %s\n", s.Calibration.Label())

	case tabRelays:
		for i, state := range s.Relays.State {
			fmt.Fprintf(&b, "Relay %d: %s\n", i+1, onOffText(state))
		}

	case tabLeds:
		for i, state := range s.Leds.State {
			fmt.Fprintf(&b, "LED %d: %s\n", i+1, onOffText(state))
		}

	case tabAnalog:
		for ch := 0; ch < board.UInChannels; ch++ {
			fmt.Fprintf(&b, "0-10V in %d: %s V\n", ch+1, floatText(s.AnalogIn.Err, s.AnalogIn.Voltage, ch, "%.3f"))
		}
		for ch := 0; ch < board.IInChannels; ch++ {
			fmt.Fprintf(&b, "4-20mA in %d: %s mA\n", ch+1, floatText(s.AnalogIn.Err, s.AnalogIn.Current, ch, "%.3f"))
		}
		for ch := 0; ch < board.UOutChannels; ch++ {
			fmt.Fprintf(&b, "0-10V out %d: %s V\n", ch+1, floatText(s.AnalogOut.Err, s.AnalogOut.Voltage, ch, "%.3f"))
		}
		for ch := 0; ch < board.IOutChannels; ch++ {
			fmt.Fprintf(&b, "4-20mA out %d: %s mA\n", ch+1, floatText(s.AnalogOut.Err, s.AnalogOut.Current, ch, "%.3f"))
		}

	case tabRtd:
		for ch := 0; ch < board.RtdChannels; ch++ {
			fmt.Fprintf(&b, "RTD %d: %s °C  %s ohm\n", ch+1,
				floatText(s.Rtd.Err, s.Rtd.Temperature, ch, "%.2f"),
				floatText(s.Rtd.Err, s.Rtd.Resistance, ch, "%.2f"))
		}

	case tabWatchdog:
		w := s.Watchdog
		fmt.Fprintf(&b, "Period: %s\n", panel.Text(w.Err, "%d s", w.Period))
		fmt.Fprintf(&b, "Init period: %s\n", panel.Text(w.Err, "%d s", w.InitPeriod))
		fmt.Fprintf(&b, "Off period: %s\n", panel.Text(w.Err, "%d s", w.OffPeriod))
		fmt.Fprintf(&b, "Reset count: %s\n", panel.Text(w.Err, "%d", w.ResetCount))

	case tabRtc:
		fmt.Fprintf(&b, "Board clock: %s\n", panel.Text(s.Rtc.Err, "%s", s.Rtc.Time.Format("2006-01-02 15:04:05")))

	case tabOpto:
		for ch := 0; ch < board.OptoChannels; ch++ {
			state := panel.ErrorText
			if s.Opto.Err == nil && ch < len(s.Opto.State) {
				state = "OFF"
				if s.Opto.State[ch] {
					state = "ON"
				}
			}
			count, edge := panel.ErrorText, panel.ErrorText
			if s.Counters.Err == nil && ch < len(s.Counters.Count) && ch < len(s.Counters.Edge) {
				count = fmt.Sprint(s.Counters.Count[ch])
				edge = s.Counters.Edge[ch].String()
			}
			fmt.Fprintf(&b, "Opto %d: %s  count %s  edges %s\n", ch+1, state, count, edge)
		}
		for ch := 0; ch < board.EncoderChannels; ch++ {
			enabled, count := panel.ErrorText, panel.ErrorText
			if s.Encoders.Err == nil && ch < len(s.Encoders.Enabled) && ch < len(s.Encoders.Count) {
				enabled = "disabled"
				if s.Encoders.Enabled[ch] {
					enabled = "enabled"
				}
				count = fmt.Sprint(s.Encoders.Count[ch])
			}
			fmt.Fprintf(&b, "Encoder %d: %s  count %s\n", ch+1, enabled, count)
		}

	case tabServo:
		for ch := 0; ch < board.ServoChannels; ch++ {
			fmt.Fprintf(&b, "Servo %d: %s %%\n", ch+1, floatText(s.ServoMotor.Err, s.ServoMotor.Servo, ch, "%.1f"))
		}
		fmt.Fprintf(&b, "Motor: %s %%\n", panel.Text(s.ServoMotor.Err, "%.1f", s.ServoMotor.Motor))

	case tabButton:
		pressed, latched := panel.ErrorText, panel.ErrorText
		if s.Button.Err == nil {
			pressed = fmt.Sprint(s.Button.Pressed)
			latched = fmt.Sprint(s.Button.Latched)
		}
		fmt.Fprintf(&b, "Pressed: %s\n", pressed)
		fmt.Fprintf(&b, "Pushed since last poll: %s\n", latched)
	}

	return b.String()
}
