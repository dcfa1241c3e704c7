// position_resolver discovers registry items on EVM networks and reports an
// owner's positions across them.
//
// Usage:
//
//	position_resolver resolve --owner=<address> --network=<id> [--block=<n>] [--json]
//	position_resolver networks
//	position_resolver serve
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "config/config.yml"

var rootFlags struct {
	configPath string
}

var rootCmd = &cobra.Command{
	Use:   "position_resolver",
	Short: "Resolve on-chain registry positions for an owner",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.configPath, "config", getEnv("CONFIG_PATH", defaultConfigPath), "path to the YAML config file")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(networksCmd)
	rootCmd.AddCommand(serveCmd)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
