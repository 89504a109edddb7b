// Bestway-bridge exposes a Bestway spa to local automation over HTTP.
//
// It polls the Bestway cloud on a fixed interval and serves the latest
// state and a command endpoint on the local network, with a websocket
// stream for push updates. The bridge can advertise itself via mDNS so
// clients find it without configuration.
//
// Usage:
//
//	bestway-bridge serve [flags]
//
// See 'bestway-bridge serve --help' for available options.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/bestway-spa/internal/bridge"
	"github.com/muurk/bestway-spa/internal/config"
	"github.com/muurk/bestway-spa/internal/logging"
	"github.com/muurk/bestway-spa/internal/urls"
	"github.com/muurk/bestway-spa/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bestway-bridge",
	Short: "Bestway Spa Local Bridge",
	Long: `A local HTTP and websocket bridge for one Bestway Wi-Fi spa.

The bridge owns the cloud session: it polls the spa, keeps the last known
state when the cloud is unreachable, and forwards commands from local
clients.

Endpoints:
  GET  /api/state     current state
  POST /api/command   {"key": "...", "value": N}
  POST /api/refresh   poll the cloud now
  GET  /healthz       liveness and availability
  GET  /ws            websocket state stream and commands

API reference: ` + urls.BridgeAPI + `

Note: for one-off commands and setup, use the separate 'bestway-cfg' utility.`,
	Version:      version.Version,
	SilenceUsage: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Serve command and flags
var (
	configPath string
	host       string
	port       int
	logLevel   string
	advertise  bool
	name       string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bridge",
	Long: `Start polling the spa and serving the local API.

Settings come from the config file written by 'bestway-cfg init'; the flags
below override the bridge section of that file. Credentials can also be
supplied through BESTWAY_* environment variables or a .env file.`,
	Example: `  # Serve with settings from the default config file
  bestway-bridge serve

  # Custom port with debug logging
  bestway-bridge serve --port 9000 --log-level debug

  # Advertise via mDNS under a custom name
  bestway-bridge serve --advertise --name "Garden Spa"

  # Credentials from the environment only
  BESTWAY_APPID=... BESTWAY_APPSECRET=... bestway-bridge serve --config /etc/bestway-spa/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/bestway-spa/config.yaml)")
	serveCmd.Flags().StringVar(&host, "host", config.DefaultBridgeHost, "Listen address (empty = all interfaces)")
	serveCmd.Flags().IntVar(&port, "port", config.DefaultBridgePort, "Listen port")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	serveCmd.Flags().BoolVar(&advertise, "advertise", false, "Advertise the bridge via mDNS")
	serveCmd.Flags().StringVar(&name, "name", config.DefaultBridgeName, "mDNS instance name")
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}
	defer logging.Sync()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Flags given explicitly win over the config file
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Bridge.Host = host
	}
	if flags.Changed("port") {
		cfg.Bridge.Port = port
	}
	if flags.Changed("advertise") {
		cfg.Bridge.Advertise = advertise
	}
	if flags.Changed("name") {
		cfg.Bridge.Name = name
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.Info("Loaded configuration",
		zap.String("device_id", cfg.Credentials.DeviceID),
		zap.String("base_url", cfg.API.BaseURL),
		zap.Duration("poll_interval", cfg.Poll.Interval.Std()),
	)

	coord := cfg.NewCoordinator()
	defer coord.Close()

	srv := bridge.New(&bridge.Config{
		Host:      cfg.Bridge.Host,
		Port:      cfg.Bridge.Port,
		Advertise: cfg.Bridge.Advertise,
		Name:      cfg.Bridge.Name,
		DeviceID:  cfg.Credentials.DeviceID,
	}, coord)

	return srv.Start(cmd.Context())
}

// Version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("bestway-bridge %s\n", version.Full())
	},
}
