// Package cmd implements the CLI commands for citypulse.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "citypulse",
	Short: "Personalized city notification engine",
	Long: "citypulse evaluates live city open data (weather, air quality, bike share,\n" +
		"congestion, cultural events, emergency alerts) against per-user trigger rules\n" +
		"and dispatches notifications over the configured delivery channels.",
}

func init() {
	cobra.OnInitialize(initEnv)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	cobra.CheckErr(viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")))

	rootCmd.AddCommand(versionCommand())
}

// initEnv lets CITYPULSE_CONFIG override the --config flag.
func initEnv() {
	viper.SetEnvPrefix("CITYPULSE")
	viper.AutomaticEnv()

	if v := viper.GetString("config"); v != "" {
		cfgFile = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
