package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/bestway-spa/internal/spa"
)

// StatusCard renders the state of one spa
type StatusCard struct {
	Title      string
	Status     spa.Status
	Available  bool
	LastUpdate time.Time
	Error      string
	Width      int

	// now is used for the "ago" text; time.Now when nil
	now func() time.Time
}

// NewStatusCard creates a card sized to the terminal
func NewStatusCard(title string, st spa.Status) *StatusCard {
	return &StatusCard{
		Title:     title,
		Status:    st,
		Available: true,
		Width:     GetTerminalWidth(),
	}
}

// Render returns the styled card as a string
func (c *StatusCard) Render() string {
	width := c.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	st := c.Status
	var lines []string

	lines = append(lines, TitleStyle.Render(strings.ToUpper(c.Title)))
	lines = append(lines, RenderDivider(width-6))

	lines = append(lines, row("Water", BigValueStyle.Render(FormatTemp(st.WaterTemperature))))
	lines = append(lines, row("Target", ValueStyle.Render(FormatTemp(st.TargetTemperature))))
	lines = append(lines, row("Heater", RenderHeater(st.Heater)))
	lines = append(lines, row("Power", RenderSwitch(st.Power)))
	lines = append(lines, row("Filter", RenderSwitch(st.Filter)))
	lines = append(lines, row("Bubbles", RenderSwitch(st.Wave)))

	if st.HasError() {
		lines = append(lines, row("Spa error", ErrorMessageStyle.Render(fmt.Sprintf("E%02d", *st.ErrorCode))))
	}

	if !c.LastUpdate.IsZero() {
		lines = append(lines, row("Updated", SubtitleStyle.Render(c.formatUpdated())))
	}

	if !c.Available {
		lines = append(lines, "")
		msg := "Spa cloud unavailable; showing last known state"
		if c.Error != "" {
			msg = c.Error + "; showing last known state"
		}
		lines = append(lines, WarningStyle.Render("⚠ "+msg))
	}

	border := PrimaryColor
	if !c.Available || st.HasError() {
		border = WarningColor
	}
	return BoxStyle(width, border).Render(strings.Join(lines, "\n"))
}

// String implements fmt.Stringer
func (c *StatusCard) String() string {
	return c.Render()
}

func (c *StatusCard) formatUpdated() string {
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	ago := now().Sub(c.LastUpdate).Round(time.Second)
	if ago < 0 {
		ago = 0
	}
	return fmt.Sprintf("%s (%s ago)", c.LastUpdate.Local().Format("15:04:05"), ago)
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, LabelStyle.Render(label), value)
}

// FormatTemp formats an optional temperature in °C
func FormatTemp(t *int) string {
	if t == nil {
		return "--"
	}
	return fmt.Sprintf("%d°C", *t)
}

// OnOff returns "on" or "off"
func OnOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// RenderSwitch renders a styled on/off marker
func RenderSwitch(on bool) string {
	if on {
		return OnStyle.Render(OnMarker + " on")
	}
	return OffStyle.Render(OffMarker + " off")
}

// RenderHeater renders the heater mode with its color
func RenderHeater(mode spa.HeaterMode) string {
	switch mode {
	case spa.HeaterHeating:
		return HeatingStyle.Render(OnMarker + " heating")
	case spa.HeaterIdle:
		return IdleStyle.Render(OnMarker + " idle (at temperature)")
	default:
		return OffStyle.Render(OffMarker + " off")
	}
}

// RenderCompact renders the status on a single unstyled line
func RenderCompact(st spa.Status) string {
	parts := []string{
		fmt.Sprintf("water %s", FormatTemp(st.WaterTemperature)),
		fmt.Sprintf("target %s", FormatTemp(st.TargetTemperature)),
		fmt.Sprintf("heater %s", st.Heater),
		fmt.Sprintf("power %s", OnOff(st.Power)),
		fmt.Sprintf("filter %s", OnOff(st.Filter)),
		fmt.Sprintf("bubbles %s", OnOff(st.Wave)),
	}
	if st.HasError() {
		parts = append(parts, fmt.Sprintf("error E%02d", *st.ErrorCode))
	}
	return strings.Join(parts, " | ")
}
