package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ResultType indicates success or failure
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
)

// Detail is one key/value line in a result box. Details keep their order.
type Detail struct {
	Key   string
	Value string
}

// Result represents a result box
type Result struct {
	Type            ResultType // Success or failure
	Title           string     // e.g., "Heater on"
	Details         []Detail   // Key-value details to display
	Error           string     // Short error message (for failure results)
	Troubleshooting string     // Hint shown under the error
	Width           int        // Terminal width
}

// NewSuccessResult creates a success result box
func NewSuccessResult(title string, details ...Detail) *Result {
	return &Result{
		Type:    ResultSuccess,
		Title:   title,
		Details: details,
		Width:   GetTerminalWidth(),
	}
}

// NewFailureResult creates a failure result box
func NewFailureResult(title, message, troubleshooting string) *Result {
	return &Result{
		Type:            ResultFailure,
		Title:           title,
		Error:           message,
		Troubleshooting: troubleshooting,
		Width:           GetTerminalWidth(),
	}
}

// SetWidth sets the terminal width for responsive rendering
func (r *Result) SetWidth(width int) *Result {
	r.Width = width
	return r
}

// AddDetail appends a detail key-value pair
func (r *Result) AddDetail(key, value string) *Result {
	r.Details = append(r.Details, Detail{Key: key, Value: value})
	return r
}

// Render returns the styled result box as a string
func (r *Result) Render() string {
	width := r.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	var lines []string
	border := SuccessColor

	if r.Type == ResultFailure {
		border = ErrorColor
		lines = append(lines, ErrorTitleStyle.Render(fmt.Sprintf("%s  FAILED  ─  %s", FailureMarker, r.Title)))
		if r.Error != "" {
			lines = append(lines, "", ErrorMessageStyle.Render("Error: "+r.Error))
		}
		if r.Troubleshooting != "" {
			hint := TroubleshootingStyle.Width(width - 6).Render(r.Troubleshooting)
			lines = append(lines, "", hint)
		}
	} else {
		lines = append(lines, SuccessTitleStyle.Render(fmt.Sprintf("%s  %s", SuccessMarker, r.Title)))
		if len(r.Details) > 0 {
			lines = append(lines, "")
		}
	}

	for _, d := range r.Details {
		lines = append(lines, row(d.Key+":", ValueStyle.Render(d.Value)))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Width(width-2).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}

// String implements fmt.Stringer
func (r *Result) String() string {
	return r.Render()
}

// Printer provides methods for printing UI components to a writer.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// Width returns the current terminal width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details ...Detail) {
	p.Println(NewSuccessResult(title, details...).SetWidth(p.width).Render())
}

// PrintError prints an error result box with a troubleshooting hint
func (p *Printer) PrintError(title, message, troubleshooting string) {
	p.Println(NewFailureResult(title, message, troubleshooting).SetWidth(p.width).Render())
}

// PrintStatus prints a status card
func (p *Printer) PrintStatus(card *StatusCard) {
	card.Width = p.width
	p.Println(card.Render())
}
