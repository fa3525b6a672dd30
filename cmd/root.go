// Package cmd wires the CLI commands together.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dalanapp/dalan-go/cmd/detect"
	"github.com/dalanapp/dalan-go/cmd/serve"
	"github.com/dalanapp/dalan-go/internal/conf"
	"github.com/dalanapp/dalan-go/internal/logging"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dalan",
		Short: "Road damage detection backend",
	}

	setupFlags(rootCmd, settings)

	rootCmd.AddCommand(
		serve.Command(settings),
		detect.Command(settings),
	)

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if settings.Debug {
			logging.SetLevel(slog.LevelDebug)
		}
	}

	return rootCmd
}

// setupFlags binds the persistent flags shared by all subcommands to viper.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", settings.Debug, "Enable debug output")
	cmd.PersistentFlags().StringVar(&settings.Detector.ModelPath, "model", settings.Detector.ModelPath, "Path to the detection model weights")

	_ = viper.BindPFlag("debug", cmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("detector.modelpath", cmd.PersistentFlags().Lookup("model"))
}
