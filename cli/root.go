// Package cli provides the loupe command-line interface for inspecting the
// asynchronous batches of a Loupe search server.
//
// Configuration precedence (highest to lowest):
//  1. Command-line flags
//  2. Environment variables (LOUPE_ prefix)
//  3. Configuration file (loupe.yaml)
//  4. Default values
package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/loupesearch/loupe-go/client"
	"github.com/loupesearch/loupe-go/common"
	"github.com/loupesearch/loupe-go/config"
)

// cfgFile holds the path to the configuration file specified via the
// --config flag; empty means the standard search locations apply.
var cfgFile string

// RootCmd is the entry point of the loupe CLI.
var RootCmd = &cobra.Command{
	Use:   "loupe",
	Short: "inspect the asynchronous batches of a Loupe search server",
	Long: `loupe talks to the read-only batches reporting API of a Loupe
search server. It lists batches with filters and pagination, and fetches
single batches by uid.

Connection settings can be provided via command-line flags, environment
variables (LOUPE_ prefix) or a loupe.yaml configuration file.`,
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./loupe.yaml)")
	RootCmd.PersistentFlags().String("host", "", "Loupe server base URL")
	RootCmd.PersistentFlags().String("api-key", "", "API key sent as a bearer token")
	RootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	_ = viper.BindPFlag("client.base_url", RootCmd.PersistentFlags().Lookup("host"))
	_ = viper.BindPFlag("client.api_key", RootCmd.PersistentFlags().Lookup("api-key"))
	_ = viper.BindPFlag("logging.level", RootCmd.PersistentFlags().Lookup("log-level"))
}

// loadConfig resolves the effective configuration: file and environment via
// the config loader, then flag overrides from the bound viper keys.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}

	// Flags bound above override everything when set
	if host := viper.GetString("client.base_url"); host != "" {
		cfg.Client.BaseURL = host
	}
	if key := viper.GetString("client.api_key"); key != "" {
		cfg.Client.APIKey = key
	}
	if level := viper.GetString("logging.level"); level != "" {
		cfg.Logging.Level = level
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Apply the effective logging settings before any request is issued, so
	// levels and formats from the file or environment take effect too.
	common.SetLogLevel(cfg.Logging.Level)
	common.SetLogFormat(cfg.Logging.Format)

	return cfg, nil
}

// newClient builds the API client from the effective configuration.
func newClient() (*client.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	return client.New(client.Config{
		BaseURL:       cfg.Client.BaseURL,
		APIKey:        cfg.Client.APIKey,
		Timeout:       cfg.Client.Timeout,
		RetryCount:    cfg.Client.RetryCount,
		RetryInterval: cfg.Client.RetryInterval,
		RateLimit:     cfg.Client.RateLimit,
		Logger:        common.Logger,
	})
}
