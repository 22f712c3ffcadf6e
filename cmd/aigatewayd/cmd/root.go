// Package cmd provides the CLI commands for aigatewayd.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "aigatewayd",
	Short: "aigatewayd - reverse-proxy gateway for third-party AI provider APIs",
	Long: `aigatewayd fronts one or more third-party AI provider APIs behind a
single listener: route resolution, inbound token validation, rate limiting,
two-stage concurrency admission, header rewriting, and response streaming
(including Server-Sent Events) all happen before a request reaches its
upstream.

Quick start:
  1. Create a config file: aigatewayd.yaml
  2. Run: aigatewayd start

Configuration:
  Config is loaded from the YAML file named by --config (default:
  ./aigatewayd.yaml). Ingress tokens and injected header values support
  "${ENV_NAME}" substitution.

Commands:
  start      Start the gateway
  hash-token Generate an Argon2id hash for an ingress token
  version    Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "aigatewayd.yaml", "path to config file")
}
