package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/bestway-spa/internal/coordinator"
	"github.com/muurk/bestway-spa/internal/spa"
	"github.com/muurk/bestway-spa/internal/spaclient"
)

// commandTimeout bounds one command issued from the dashboard
const commandTimeout = 30 * time.Second

// Controller is the subset of *coordinator.Coordinator the dashboard drives
type Controller interface {
	Current() coordinator.Update
	Refresh(ctx context.Context) error
	SetHeating(ctx context.Context, on bool) error
	SetTargetTemperature(ctx context.Context, celsius int) error
	SetSwitch(ctx context.Context, name string, on bool) error
	Subscribe() (<-chan coordinator.Update, func())
}

// Message types for async operations
type (
	stateMsg       coordinator.Update
	updatesDoneMsg struct{}
	commandDoneMsg struct {
		label string
		err   error
	}
)

// watchKeyMap defines key bindings for the dashboard
type watchKeyMap struct {
	Refresh  key.Binding
	Heater   key.Binding
	TempUp   key.Binding
	TempDown key.Binding
	Power    key.Binding
	Filter   key.Binding
	Bubbles  key.Binding
	Help     key.Binding
	Quit     key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k watchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Heater, k.TempUp, k.TempDown, k.Refresh, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k watchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Heater, k.TempUp, k.TempDown},
		{k.Power, k.Filter, k.Bubbles},
		{k.Refresh, k.Help, k.Quit},
	}
}

func newWatchKeyMap() watchKeyMap {
	return watchKeyMap{
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Heater: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "heater"),
		),
		TempUp: key.NewBinding(
			key.WithKeys("+", "=", "up"),
			key.WithHelp("+", "warmer"),
		),
		TempDown: key.NewBinding(
			key.WithKeys("-", "down"),
			key.WithHelp("-", "cooler"),
		),
		Power: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "power"),
		),
		Filter: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "filter"),
		),
		Bubbles: key.NewBinding(
			key.WithKeys("b", "w"),
			key.WithHelp("b", "bubbles"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more keys"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// WatchModel is a live dashboard for one spa
type WatchModel struct {
	Title string

	ctrl    Controller
	updates <-chan coordinator.Update
	cancel  func()

	state   coordinator.Update
	busy    string // label of the command in flight
	message string // outcome of the last command
	failed  bool

	width   int
	spinner spinner.Model
	help    help.Model
	keys    watchKeyMap
}

// NewWatchModel creates a dashboard subscribed to ctrl. Call Close when the
// program exits.
func NewWatchModel(title string, ctrl Controller) *WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = HeatingStyle

	updates, cancel := ctrl.Subscribe()

	return &WatchModel{
		Title:   title,
		ctrl:    ctrl,
		updates: updates,
		cancel:  cancel,
		state:   ctrl.Current(),
		width:   GetTerminalWidth(),
		spinner: s,
		help:    help.New(),
		keys:    newWatchKeyMap(),
	}
}

// Close ends the subscription
func (m *WatchModel) Close() {
	m.cancel()
}

// Init implements tea.Model
func (m *WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForUpdate(m.updates))
}

func waitForUpdate(updates <-chan coordinator.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-updates
		if !ok {
			return updatesDoneMsg{}
		}
		return stateMsg(u)
	}
}

// Update implements tea.Model
func (m *WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = clampWidth(msg.Width, nil)
		m.help.Width = m.width
		return m, nil

	case stateMsg:
		m.state = coordinator.Update(msg)
		return m, waitForUpdate(m.updates)

	case updatesDoneMsg:
		return m, tea.Quit

	case commandDoneMsg:
		m.busy = ""
		m.failed = msg.err != nil
		if msg.err != nil {
			m.message = fmt.Sprintf("%s failed: %s", msg.label, spaclient.ShortMessage(msg.err))
		} else {
			m.message = msg.label + " ✓"
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *WatchModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	// One command at a time
	if m.busy != "" {
		return m, nil
	}

	st := m.state.Status
	switch {
	case key.Matches(msg, m.keys.Refresh):
		return m.run("Refresh", func(ctx context.Context) error { return m.ctrl.Refresh(ctx) })

	case key.Matches(msg, m.keys.Heater):
		on := !st.HeaterEnabled
		return m.run("Heater "+OnOff(on), func(ctx context.Context) error { return m.ctrl.SetHeating(ctx, on) })

	case key.Matches(msg, m.keys.TempUp), key.Matches(msg, m.keys.TempDown):
		if st.TargetTemperature == nil {
			m.message, m.failed = "Target temperature unknown; refresh first", true
			return m, nil
		}
		target := *st.TargetTemperature + 1
		if key.Matches(msg, m.keys.TempDown) {
			target = *st.TargetTemperature - 1
		}
		if err := spa.ValidateTemperature(target); err != nil {
			m.message, m.failed = err.Error(), true
			return m, nil
		}
		return m.run(fmt.Sprintf("Target %d°C", target), func(ctx context.Context) error {
			return m.ctrl.SetTargetTemperature(ctx, target)
		})

	case key.Matches(msg, m.keys.Power):
		return m.toggle("power", st.Power)
	case key.Matches(msg, m.keys.Filter):
		return m.toggle("filter", st.Filter)
	case key.Matches(msg, m.keys.Bubbles):
		return m.toggle("wave", st.Wave)
	}

	return m, nil
}

func (m *WatchModel) toggle(name string, current bool) (tea.Model, tea.Cmd) {
	on := !current
	label := fmt.Sprintf("%s %s", strings.ToUpper(name[:1])+name[1:], OnOff(on))
	return m.run(label, func(ctx context.Context) error { return m.ctrl.SetSwitch(ctx, name, on) })
}

// run marks the model busy and executes fn off the UI goroutine
func (m *WatchModel) run(label string, fn func(ctx context.Context) error) (tea.Model, tea.Cmd) {
	m.busy = label
	m.message = ""
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return commandDoneMsg{label: label, err: fn(ctx)}
	}
}

// View implements tea.Model
func (m *WatchModel) View() string {
	card := &StatusCard{
		Title:     m.Title,
		Status:    m.state.Status,
		Available: m.state.Available || m.state.At.IsZero(),
		Error:     m.state.Error,
		Width:     m.width,
	}
	if m.state.Available {
		card.LastUpdate = m.state.At
	}

	var b strings.Builder
	b.WriteString(card.Render())
	b.WriteString("\n")

	switch {
	case m.busy != "":
		b.WriteString(m.spinner.View() + " " + m.busy + "...")
	case m.message != "" && m.failed:
		b.WriteString(ErrorMessageStyle.Render(m.message))
	case m.message != "":
		b.WriteString(OnStyle.Render(m.message))
	case m.state.At.IsZero():
		b.WriteString(m.spinner.View() + " Waiting for first update...")
	}
	b.WriteString("\n\n")
	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))
	b.WriteString("\n")

	return b.String()
}

// RunWatch runs the dashboard until the user quits
func RunWatch(title string, ctrl Controller) error {
	model := NewWatchModel(title, ctrl)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
