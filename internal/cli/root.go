package cli

import (
	"os"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "config/config.yaml"

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var (
		port       string
		configPath string
	)

	cmd := &cobra.Command{
		Use:          "op-quiz",
		Short:        "Sequenced profile quiz engine served over WebSocket",
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&configPath, "config", envOr("CONFIG_PATH", defaultConfigPath), "path to YAML config")
	flags.StringVar(&port, "port", os.Getenv("PORT"), "port to listen on (overrides server.port)")

	cmd.AddCommand(
		NewStartCmd(&configPath, &port),
		NewMigrateCmd(&configPath),
		NewSeedCmd(&configPath),
		NewValidateCmd(&configPath),
	)
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
