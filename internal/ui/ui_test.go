package ui

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/bestway-spa/internal/coordinator"
	"github.com/muurk/bestway-spa/internal/spa"
	"github.com/muurk/bestway-spa/internal/spaclient"
)

func intPtr(v int) *int { return &v }

func testStatus() spa.Status {
	return spa.Status{
		WaterTemperature:  intPtr(31),
		TargetTemperature: intPtr(38),
		Heater:            spa.HeaterHeating,
		HeaterEnabled:     true,
		Power:             true,
		Filter:            true,
	}
}

func TestRenderCompact(t *testing.T) {
	got := RenderCompact(testStatus())
	assert.Equal(t, "water 31°C | target 38°C | heater heating | power on | filter on | bubbles off", got)

	st := spa.Status{ErrorCode: intPtr(3)}
	assert.Equal(t, "water -- | target -- | heater off | power off | filter off | bubbles off | error E03", RenderCompact(st))
}

func TestStatusCard_Render(t *testing.T) {
	now := time.Date(2026, 1, 2, 12, 0, 30, 0, time.Local)
	card := &StatusCard{
		Title:      "Garden Spa",
		Status:     testStatus(),
		Available:  true,
		LastUpdate: now.Add(-30 * time.Second),
		Width:      60,
		now:        func() time.Time { return now },
	}

	out := card.Render()
	assert.Contains(t, out, "GARDEN SPA")
	assert.Contains(t, out, "31°C")
	assert.Contains(t, out, "38°C")
	assert.Contains(t, out, "heating")
	assert.Contains(t, out, "12:00:00 (30s ago)")
	assert.NotContains(t, out, "unavailable")
}

func TestStatusCard_Unavailable(t *testing.T) {
	card := &StatusCard{
		Title:     "Spa",
		Status:    spa.Status{ErrorCode: intPtr(12)},
		Available: false,
		Error:     "Spa cloud error (HTTP 502)",
		Width:     MaxContentWidth,
	}

	out := card.Render()
	assert.Contains(t, out, "E12")
	assert.Contains(t, out, "Spa cloud error (HTTP 502); showing last known state")
	assert.Contains(t, out, "--")
}

func TestRenderHeater(t *testing.T) {
	assert.Contains(t, RenderHeater(spa.HeaterOff), "off")
	assert.Contains(t, RenderHeater(spa.HeaterHeating), "heating")
	assert.Contains(t, RenderHeater(spa.HeaterIdle), "idle")
}

func TestResult_Render(t *testing.T) {
	ok := NewSuccessResult("Heater on", Detail{"Heater", "heating"}, Detail{"Target", "38°C"}).SetWidth(60).Render()
	assert.Contains(t, ok, "Heater on")
	assert.Less(t, strings.Index(ok, "Heater:"), strings.Index(ok, "Target:"), "details keep their order")

	fail := NewFailureResult("Set temperature", "Authentication failed - check credentials", "Check appid").SetWidth(60).Render()
	assert.Contains(t, fail, "FAILED")
	assert.Contains(t, fail, "Error: Authentication failed - check credentials")
	assert.Contains(t, fail, "Check appid")
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	p.PrintSuccess("Done", Detail{"Key", "Value"})
	p.PrintStatus(NewStatusCard("Spa", testStatus()))

	out := buf.String()
	assert.Contains(t, out, "Done")
	assert.Contains(t, out, "Value")
	assert.Contains(t, out, "SPA")
}

func TestPrompter(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompterFrom(strings.NewReader("  typed \n\nhunter2\n\n"), &out)

	v, err := p.Line("App ID", "old")
	require.NoError(t, err)
	assert.Equal(t, "typed", v)

	v, err = p.Line("Device ID", "kept")
	require.NoError(t, err)
	assert.Equal(t, "kept", v)

	v, err = p.Secret("App secret", "")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", v)

	v, err = p.Secret("App secret", "previous")
	require.NoError(t, err)
	assert.Equal(t, "previous", v)

	assert.Contains(t, out.String(), "App ID [old]: ")
	assert.Contains(t, out.String(), "App secret [keep current]: ")
	assert.NotContains(t, out.String(), "previous")

	_, err = p.Line("Extra", "")
	assert.Error(t, err, "EOF without input is an error")
}

// fakeController records dashboard commands
type fakeController struct {
	mu      sync.Mutex
	state   coordinator.Update
	updates chan coordinator.Update
	calls   []string
	err     error
}

func newFakeController() *fakeController {
	return &fakeController{
		state: coordinator.Update{
			Status:    testStatus(),
			Available: true,
			At:        time.Now(),
		},
		updates: make(chan coordinator.Update, 4),
	}
}

func (f *fakeController) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeController) Current() coordinator.Update { return f.state }
func (f *fakeController) Refresh(ctx context.Context) error {
	return f.record("refresh")
}
func (f *fakeController) SetHeating(ctx context.Context, on bool) error {
	return f.record("heating=" + OnOff(on))
}
func (f *fakeController) SetTargetTemperature(ctx context.Context, c int) error {
	return f.record("target=" + string(rune('0'+c/10)) + string(rune('0'+c%10)))
}
func (f *fakeController) SetSwitch(ctx context.Context, name string, on bool) error {
	return f.record(name + "=" + OnOff(on))
}
func (f *fakeController) Subscribe() (<-chan coordinator.Update, func()) {
	return f.updates, func() {}
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends a key and runs the resulting command, feeding its message back
func press(t *testing.T, m *WatchModel, msg tea.KeyMsg) {
	t.Helper()
	_, cmd := m.Update(msg)
	if cmd == nil {
		return
	}
	done := cmd()
	m.Update(done)
}

func TestWatchModel_Commands(t *testing.T) {
	ctrl := newFakeController()
	m := NewWatchModel("Spa", ctrl)

	press(t, m, runeKey("h"))
	press(t, m, runeKey("+"))
	press(t, m, runeKey("-"))
	press(t, m, runeKey("p"))
	press(t, m, runeKey("f"))
	press(t, m, runeKey("b"))
	press(t, m, runeKey("r"))

	assert.Equal(t, []string{
		"heating=off",
		"target=39",
		"target=37",
		"power=off",
		"filter=off",
		"wave=on",
		"refresh",
	}, ctrl.calls)
	assert.Contains(t, m.View(), "Refresh ✓")
}

func TestWatchModel_BusyIgnoresKeys(t *testing.T) {
	ctrl := newFakeController()
	m := NewWatchModel("Spa", ctrl)

	_, cmd := m.Update(runeKey("h"))
	require.NotNil(t, cmd)
	assert.Contains(t, m.View(), "Heater off...")

	_, second := m.Update(runeKey("p"))
	assert.Nil(t, second, "no second command while one is in flight")

	m.Update(cmd())
	assert.Equal(t, []string{"heating=off"}, ctrl.calls)
}

func TestWatchModel_CommandFailure(t *testing.T) {
	ctrl := newFakeController()
	ctrl.err = spaclient.NewAuthError("set_state", "rejected")
	m := NewWatchModel("Spa", ctrl)

	press(t, m, runeKey("f"))
	assert.Contains(t, m.View(), "Filter off failed: Authentication failed - check credentials")
}

func TestWatchModel_TemperatureLimits(t *testing.T) {
	ctrl := newFakeController()
	ctrl.state.Status.TargetTemperature = intPtr(spa.MaxTemp)
	m := NewWatchModel("Spa", ctrl)

	_, cmd := m.Update(runeKey("+"))
	assert.Nil(t, cmd)
	assert.Empty(t, ctrl.calls)
	assert.Contains(t, m.View(), "out of range")

	ctrl.state.Status.TargetTemperature = nil
	m = NewWatchModel("Spa", ctrl)
	_, cmd = m.Update(runeKey("-"))
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "refresh first")
}

func TestWatchModel_StateUpdates(t *testing.T) {
	ctrl := newFakeController()
	m := NewWatchModel("Spa", ctrl)

	next := ctrl.state
	next.Status.WaterTemperature = intPtr(35)
	ctrl.updates <- next

	msg := waitForUpdate(ctrl.updates)()
	_, cmd := m.Update(msg)
	assert.NotNil(t, cmd, "model keeps listening for updates")
	assert.Contains(t, m.View(), "35°C")

	close(ctrl.updates)
	_, cmd = m.Update(waitForUpdate(ctrl.updates)())
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestWatchModel_Quit(t *testing.T) {
	m := NewWatchModel("Spa", newFakeController())

	_, cmd := m.Update(runeKey("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestWatchModel_Unavailable(t *testing.T) {
	ctrl := newFakeController()
	ctrl.state.Available = false
	ctrl.state.Error = "Spa cloud error (HTTP 502)"
	m := NewWatchModel("Spa", ctrl)
	m.Update(tea.WindowSizeMsg{Width: 200, Height: 40})

	assert.Contains(t, m.View(), "Spa cloud error (HTTP 502); showing last known state")
	assert.NotContains(t, m.View(), "Updated")
}
