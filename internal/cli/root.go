// Package cli implements the ignite command-line interface: a demo
// harness for exercising a Coordinator over YAML-declared signals.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	jsonOut bool
)

var rootCmd = &cobra.Command{
	Use:   "ignite",
	Short: "Run and inspect ignition startup-readiness coordinators",
	Long: `ignite drives an ignition Coordinator over a directory of YAML
signal definitions and reports on the resulting run.

Quick start:
  ignite run signals/            Execute signals and print a summary
  ignite record signals/ -o run.json   Save a Recording artifact
  ignite timeline run.json       View a Recording as a text Gantt chart
  ignite serve signals/           Run and stream lifecycle events over a websocket`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .ignition/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output as JSON")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newRecordCmd())
	rootCmd.AddCommand(newTimelineCmd())
	rootCmd.AddCommand(newServeCmd())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".ignition")
		viper.AddConfigPath("$HOME/.ignition")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("IGNITION")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
