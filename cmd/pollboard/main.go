// Command pollboard runs the poll board HTTP API and its maintenance tasks.
//
//	pollboard serve                  run the server (retention sweeper in background)
//	pollboard sweep                  delete expired polls once, for cron
//	pollboard hash-password [pass]   print a bcrypt hash for metrics.password_hash
//	pollboard version
//
// Configuration comes from --config (or CONFIG_PATH, or ./config.yaml) and
// the environment. A .env file in the working directory is loaded first.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sakif/pollboard/internal/app"
	"github.com/sakif/pollboard/internal/config"
)

const programName = "pollboard"

var globalFlags = struct {
	debug      bool
	configFile string
}{}

// loadConfig reads configuration and builds the process logger. --debug
// overrides the configured level.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(globalFlags.configFile)
	if err != nil {
		return nil, nil, err
	}
	if globalFlags.debug {
		cfg.Log.Level = "debug"
	}
	logger := app.NewLogger(cfg.Log)
	logger.Debug("configuration loaded", slog.String("driver", cfg.Database.Driver))
	return cfg, logger, nil
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), programName, app.BuildVersion())
		},
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Community poll board API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().
		BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")
	rootCmd.PersistentFlags().
		StringVar(&globalFlags.configFile, "config", "", "path to config file")

	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(sweepCommand())
	rootCmd.AddCommand(hashPasswordCommand())
	rootCmd.AddCommand(versionCommand())
	return rootCmd
}

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", programName, err)
		os.Exit(1)
	}
}
