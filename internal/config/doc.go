// Package config provides configuration management for the Bestway spa tools.
//
// The configuration file holds the cloud credentials, API settings, polling
// timings and bridge settings. It is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/bestway-spa/config.yaml or $HOME/.config/bestway-spa/config.yaml
//   - macOS: $HOME/.config/bestway-spa/config.yaml
//   - Windows: %LOCALAPPDATA%\bestway-spa\config.yaml
//
// A path ending in .toml is read and written as TOML instead of YAML.
//
// # Environment
//
// After the file is read, an optional .env file in the working directory is
// loaded and the BESTWAY_* variables override the matching credentials, so
// the secret can be kept out of the config file entirely.
//
// # Usage Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
//	coord := cfg.NewCoordinator()
//	defer coord.Close()
//
// # Security
//
// The file contains the app secret. Save writes it atomically with 0600
// permissions inside a 0700 directory.
package config
