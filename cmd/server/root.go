package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tyrowin/gocollab/internal/server"
)

var version = "dev"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gocollab",
	Short: "Real-time chat and shared document server",
	Long: `gocollab relays chat messages and synchronizes a shared document
between WebSocket clients, persisting both to the configured store.

Configuration is read from the environment and an optional .env file.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().String("data-dir", "", "directory for the file and badger stores (overrides DATA_DIR)")
	rootCmd.PersistentFlags().String("storage", "", "storage driver: file, badger or redis (overrides STORAGE_DRIVER)")
}

// loadConfig reads the environment and applies any persistent flag
// overrides set on cmd.
func loadConfig(cmd *cobra.Command) (server.Config, error) {
	cfg, err := server.NewConfigFromEnv()
	if err != nil {
		return server.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		cfg.Storage.DataDir, _ = flags.GetString("data-dir")
	}
	if flags.Changed("storage") {
		cfg.Storage.Driver, _ = flags.GetString("storage")
	}
	if flags.Lookup("port") != nil && flags.Changed("port") {
		cfg.Port, _ = flags.GetString("port")
	}
	return cfg.Sanitize(), nil
}
