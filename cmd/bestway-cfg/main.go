// Bestway-cfg is a command line client for Bestway Wi-Fi spas.
//
// It stores the cloud credentials issued to the vendor app, shows the spa
// state, and sends heater, temperature and pump commands through the
// Bestway smart hub API. The watch command opens a live dashboard.
//
// Usage:
//
//	bestway-cfg [command] [flags]
//
// Running without arguments shows the spa status.
// See 'bestway-cfg --help' for available commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muurk/bestway-spa/internal/logging"
	"github.com/muurk/bestway-spa/internal/urls"
	"github.com/muurk/bestway-spa/internal/version"
)

// Global flags
var (
	configPath string
	logLevel   string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bestway-cfg",
	Short: "Bestway Spa Command Line Client",
	Long: `A command line client for Bestway Wi-Fi spas (Lay-Z-Spa and similar).

Talks to the Bestway smart hub cloud with the credentials of a paired vendor
app. Run 'bestway-cfg init' once to store them.

Getting started: ` + urls.GettingStarted + `

If no command is specified, the current spa status is shown.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: runStatus,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/bestway-spa/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when empty")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("bestway-cfg %s\n", version.Full())
	},
}
