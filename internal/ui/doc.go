// Package ui provides terminal UI components for the bestway-cfg CLI.
//
// Components are rendered with Lipgloss and follow a "print and exit"
// pattern, except for the watch dashboard which is a Bubble Tea program:
//
//   - StatusCard: boxed view of water/target temperature, heater and pumps
//   - RenderCompact: single-line status for scripts and narrow terminals
//   - Result: success/failure boxes with a troubleshooting hint
//   - Prompter: line and hidden-secret prompts for `init`
//   - WatchModel: live dashboard that follows coordinator updates and sends
//     commands from key presses
//
// # Logging Integration
//
// This package expects logging to be controlled via the BESTWAY_LOG_LEVEL
// environment variable. When unset or empty, zap logging is silent, allowing
// the curated UI output to be displayed cleanly.
package ui
