package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yairfalse/cirrus/internal/config"
	"github.com/yairfalse/cirrus/internal/invoker"
	"github.com/yairfalse/cirrus/internal/plugin"
	"github.com/yairfalse/cirrus/internal/provider/aws"
	"github.com/yairfalse/cirrus/pkg/cloud"
)

var (
	version = "0.1.0"

	configPath   string
	region       string
	providerName string
	outputFormat string
	debug        bool

	// cfg is loaded before any subcommand runs.
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "cirrus",
		Short: "Query compute and network resources of a cloud account",
		Long: `Cirrus - compute and network queries for a cloud account

Cirrus reads virtual machines, elastic IP addresses and auto scaling
groups through the provider's query API and prints them in a neutral
model. The watch command polls resource statuses and exports them as
Prometheus metrics.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: prepare,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	plugin.Register(aws.Name, aws.Open)

	rootCmd.SetVersionTemplate(`Cirrus {{.Version}}
`)
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Path to a TOML config file")
	flags.StringVar(&region, "region", "", "Cloud region (overrides aws.region and AWS_REGION)")
	flags.StringVar(&providerName, "provider", aws.Name, "Cloud provider")
	flags.StringVarP(&outputFormat, "output", "o", "table", "Output format: table, json, yaml")
	flags.BoolVar(&debug, "debug", false, "Enable debug logging")
}

func prepare(_ *cobra.Command, _ []string) error {
	loaded, err := loadConfig()
	if err != nil {
		return err
	}
	if err := setupLogging(loaded.Log.Level); err != nil {
		return fmt.Errorf("set log level: %w", err)
	}
	cfg = loaded
	return nil
}

// loadConfig reads the config file, if any, and applies flag overrides.
func loadConfig() (*config.Config, error) {
	loaded := config.Default()
	if configPath != "" {
		var err error
		if loaded, err = config.Load(configPath); err != nil {
			return nil, err
		}
	}

	switch {
	case region != "":
		loaded.AWS.Region = region
	case loaded.AWS.Region == "":
		loaded.AWS.Region = os.Getenv("AWS_REGION")
	}
	if debug {
		loaded.Log.Level = "debug"
	}

	if err := loaded.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return loaded, nil
}

// openProvider opens the selected provider. rec may be nil.
func openProvider(ctx context.Context, rec invoker.Recorder) (cloud.Provider, error) {
	return plugin.Open(ctx, providerName, cfg, rec)
}
