package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/bestway-spa/internal/bridge"
	"github.com/muurk/bestway-spa/internal/config"
	"github.com/muurk/bestway-spa/internal/coordinator"
	"github.com/muurk/bestway-spa/internal/discovery"
	"github.com/muurk/bestway-spa/internal/logging"
	"github.com/muurk/bestway-spa/internal/spa"
	"github.com/muurk/bestway-spa/internal/spaclient"
	"github.com/muurk/bestway-spa/internal/ui"
	"github.com/muurk/bestway-spa/internal/urls"
)

// Command flags
var (
	outputFormat string
	scanTimeout  int
	revealToken  bool
	verifyInit   bool
)

func init() {
	rootCmd.Flags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, compact, json)")
	statusCmd.Flags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, compact, json)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(heatCmd)
	rootCmd.AddCommand(tempCmd)
	for _, name := range spa.SwitchNames() {
		rootCmd.AddCommand(newSwitchCmd(name))
	}
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(discoverCmd)
}

// reportedError has already been printed as a result box
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// report prints err with its troubleshooting hint and marks it as shown
func report(title string, err error) error {
	ui.NewPrinter(os.Stderr).PrintError(title, spaclient.ShortMessage(err), spaclient.TroubleshootingHint(err))
	return &reportedError{err: err}
}

// loadConfig loads and validates the config named by --config
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w (run 'bestway-cfg init' to configure)", err)
	}
	return cfg, nil
}

// withCoordinator runs fn against a coordinator built from the config and
// closes it afterwards
func withCoordinator(ctx context.Context, fn func(ctx context.Context, cfg *config.Config, coord *coordinator.Coordinator) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	coord := cfg.NewCoordinator()
	defer coord.Close()

	return fn(ctx, cfg, coord)
}

// parseOnOff accepts on/off and the usual boolean spellings
func parseOnOff(arg string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "on", "true", "1", "yes":
		return true, nil
	case "off", "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", arg)
}

// initCmd stores credentials in the config file
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Store Bestway cloud credentials",
	Long: `Prompt for the credentials issued to the Bestway app and save them.

The values (appid, appsecret, device_id, product_id, registration_id,
visitor_id, client_id) are captured from a paired vendor app. Existing
values are offered as defaults; the app secret is read without echo and
is never displayed.

The config file is written with user-only permissions.

Credential guide: ` + urls.Credentials,
	Example: `  # Interactive setup
  bestway-cfg init

  # Write a TOML config instead of YAML
  bestway-cfg init --config ~/.config/bestway-spa/config.toml

  # Save without contacting the cloud
  bestway-cfg init --verify=false`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&verifyInit, "verify", true, "Request a token to check the credentials after saving")
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	p := ui.NewPrompter()
	creds := &cfg.Credentials

	fields := []struct {
		label  string
		target *string
		secret bool
	}{
		{"App ID (appid)", &creds.AppID, false},
		{"App secret (appsecret)", &creds.AppSecret, true},
		{"Device ID", &creds.DeviceID, false},
		{"Product ID", &creds.ProductID, false},
		{"Registration ID", &creds.RegistrationID, false},
		{"Visitor ID", &creds.VisitorID, false},
		{"Client ID", &creds.ClientID, false},
		{"API base URL", &cfg.API.BaseURL, false},
	}

	for _, f := range fields {
		var value string
		if f.secret {
			value, err = p.Secret(f.label, *f.target)
		} else {
			value, err = p.Line(f.label, *f.target)
		}
		if err != nil {
			return err
		}
		*f.target = value
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := cfg.Save(configPath); err != nil {
		return err
	}

	path := configPath
	if path == "" {
		path, _ = config.GetConfigPath()
	}

	details := []ui.Detail{
		{Key: "Config", Value: path},
		{Key: "Device", Value: creds.DeviceID},
		{Key: "Endpoint", Value: cfg.API.BaseURL},
	}

	if verifyInit {
		client := cfg.NewClient()
		defer client.Close()

		if _, err := client.AcquireToken(cmd.Context()); err != nil {
			return report("Credentials saved but not accepted", err)
		}
		details = append(details, ui.Detail{Key: "Credentials", Value: "accepted"})
	}

	ui.NewPrinter(os.Stdout).PrintSuccess("Configuration saved", details...)
	return nil
}

// statusCmd shows the current spa state
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show spa status",
	Long: `Fetch the spa state from the cloud and display it.

Shows water and target temperature, heater mode, pump switches and any
error code reported by the spa.`,
	Example: `  # Detailed status card
  bestway-cfg status

  # Single line for scripts
  bestway-cfg status --format compact

  # JSON, including the raw property snapshot
  bestway-cfg status --format json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withCoordinator(cmd.Context(), func(ctx context.Context, cfg *config.Config, coord *coordinator.Coordinator) error {
		if err := coord.Refresh(ctx); err != nil {
			return report("Spa status", err)
		}
		return printState(cfg.Bridge.Name, coord.Current())
	})
}

func printState(title string, u coordinator.Update) error {
	switch outputFormat {
	case "compact":
		fmt.Println(ui.RenderCompact(u.Status))
	case "json":
		data, err := json.MarshalIndent(bridge.NewStateResponse(u), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(data))
	case "detailed", "":
		card := ui.NewStatusCard(title, u.Status)
		card.Available = u.Available
		card.LastUpdate = u.At
		card.Error = u.Error
		ui.NewPrinter(os.Stdout).PrintStatus(card)
	default:
		return fmt.Errorf("unknown format %q (want detailed, compact or json)", outputFormat)
	}
	return nil
}

// setCmd sends a raw property value
var setCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a spa property to an integer value",
	Long: `Send a raw command for one property.

The cloud only acknowledges receipt; the spa applies the change a few
seconds later. Known keys include heater_state, temperature_setting,
power_state, filter_state and wave_state.`,
	Example: `  # Set target temperature to 38°C
  bestway-cfg set temperature_setting 38

  # Turn the filter pump on
  bestway-cfg set filter_state 1`,
	Args: cobra.ExactArgs(2),
	RunE: runSet,
}

func runSet(cmd *cobra.Command, args []string) error {
	key := strings.TrimSpace(args[0])
	value, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("value must be an integer, got %q", args[1])
	}

	return withCoordinator(cmd.Context(), func(ctx context.Context, cfg *config.Config, coord *coordinator.Coordinator) error {
		if err := coord.SendCommand(ctx, key, value); err != nil {
			return report("Set "+key, err)
		}
		ui.NewPrinter(os.Stdout).PrintSuccess("Command sent",
			ui.Detail{Key: "Key", Value: key},
			ui.Detail{Key: "Value", Value: strconv.Itoa(value)},
		)
		return nil
	})
}

// heatCmd switches the heater
var heatCmd = &cobra.Command{
	Use:       "heat on|off",
	Short:     "Turn the heater on or off",
	Example:   `  bestway-cfg heat on`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := parseOnOff(args[0])
		if err != nil {
			return err
		}
		return withCoordinator(cmd.Context(), func(ctx context.Context, cfg *config.Config, coord *coordinator.Coordinator) error {
			if err := coord.SetHeating(ctx, on); err != nil {
				return report("Heater "+ui.OnOff(on), err)
			}
			ui.NewPrinter(os.Stdout).PrintSuccess("Heater "+ui.OnOff(on),
				ui.Detail{Key: "Heater", Value: coord.Status().Heater.String()},
			)
			return nil
		})
	},
}

// tempCmd sets the target temperature
var tempCmd = &cobra.Command{
	Use:   "temp <celsius>",
	Short: "Set the target water temperature",
	Long: fmt.Sprintf(`Set the target water temperature in °C (%d-%d).

Turning the heater on is a separate command.`, spa.MinTemp, spa.MaxTemp),
	Example: `  bestway-cfg temp 38`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		celsius, err := strconv.Atoi(strings.TrimSuffix(args[0], "C"))
		if err != nil {
			return fmt.Errorf("temperature must be a whole number of degrees, got %q", args[0])
		}
		if err := spa.ValidateTemperature(celsius); err != nil {
			return err
		}
		return withCoordinator(cmd.Context(), func(ctx context.Context, cfg *config.Config, coord *coordinator.Coordinator) error {
			if err := coord.SetTargetTemperature(ctx, celsius); err != nil {
				return report("Set temperature", err)
			}
			ui.NewPrinter(os.Stdout).PrintSuccess("Target temperature set",
				ui.Detail{Key: "Target", Value: ui.FormatTemp(&celsius)},
			)
			return nil
		})
	},
}

// newSwitchCmd builds the on/off command for a pump or power switch
func newSwitchCmd(name string) *cobra.Command {
	title := strings.ToUpper(name[:1]) + name[1:]
	short := fmt.Sprintf("Turn the %s on or off", name)
	if name == "wave" {
		short = "Turn the bubbles (wave) on or off"
	}

	return &cobra.Command{
		Use:       name + " on|off",
		Short:     short,
		Example:   fmt.Sprintf("  bestway-cfg %s off", name),
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			on, err := parseOnOff(args[0])
			if err != nil {
				return err
			}
			return withCoordinator(cmd.Context(), func(ctx context.Context, cfg *config.Config, coord *coordinator.Coordinator) error {
				label := title + " " + ui.OnOff(on)
				if err := coord.SetSwitch(ctx, name, on); err != nil {
					return report(label, err)
				}
				ui.NewPrinter(os.Stdout).PrintSuccess(label)
				return nil
			})
		},
	}
}

// watchCmd opens the live dashboard
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live dashboard with keyboard control",
	Long: `Open a dashboard that polls the spa and updates in place.

Keys: h heater, +/- target temperature, p power, f filter, b bubbles,
r refresh, ? help, q quit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !ui.IsTerminal() {
			return fmt.Errorf("watch needs an interactive terminal; use 'status' instead")
		}
		return withCoordinator(cmd.Context(), func(ctx context.Context, cfg *config.Config, coord *coordinator.Coordinator) error {
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			go func() {
				_ = coord.Run(ctx)
			}()

			return ui.RunWatch(cfg.Bridge.Name, coord)
		})
	},
}

// tokenCmd mints a token to check the credentials
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Request an API token and show its expiry",
	Long: `Request a token from the visitor endpoint using the stored credentials.

Useful for checking credentials. The token is redacted unless --reveal is
given.`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().BoolVar(&revealToken, "reveal", false, "Print the full token")
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client := cfg.NewClient()
	defer client.Close()

	token, err := client.AcquireToken(cmd.Context())
	if err != nil {
		return report("Token request", err)
	}

	shown := logging.Redact(token)
	if revealToken {
		shown = token
	}

	details := []ui.Detail{
		{Key: "Token", Value: shown},
		{Key: "Endpoint", Value: client.BaseURL},
	}
	if expiry, ok := client.TokenExpiry(); ok {
		details = append(details, ui.Detail{Key: "Expires", Value: expiry.Local().Format(time.RFC1123)})
	}

	ui.NewPrinter(os.Stdout).PrintSuccess("Token acquired", details...)
	return nil
}

// discoverCmd finds running bridges
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find bestway-bridge instances on the local network",
	Long: `Browse mDNS for bridges advertising ` + discovery.ServiceType + `.

Lists each bridge with its address and the spa it serves.`,
	Example: `  # Scan for 5 seconds (default)
  bestway-cfg discover

  # Longer scan for slow networks
  bestway-cfg discover --timeout 15`,
	Args: cobra.NoArgs,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().IntVar(&scanTimeout, "timeout", int(discovery.DefaultScanTimeout/time.Second), "Scan timeout in seconds")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	fmt.Printf("Scanning for bridges (timeout: %ds)...\n\n", scanTimeout)

	scanner := discovery.NewScanner()
	scanner.Timeout = time.Duration(scanTimeout) * time.Second

	bridges, err := scanner.Scan(cmd.Context())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(bridges) == 0 {
		fmt.Println("No bridges found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Ensure bestway-bridge is running with bridge.advertise enabled")
		fmt.Println("  - Check that this machine is on the same network segment")
		fmt.Println("  - Try increasing --timeout for slower networks")
		return nil
	}

	fmt.Printf("Found %d bridge(s):\n\n", len(bridges))

	for i, b := range bridges {
		fmt.Printf("%d. %s\n", i+1, b.Instance)
		fmt.Printf("   Spa:     %s\n", b.DeviceID)
		fmt.Printf("   URL:     %s\n", b.BaseURL())
		if b.Version != "" {
			fmt.Printf("   Version: %s\n", b.Version)
		}
		fmt.Println()
	}

	return nil
}
