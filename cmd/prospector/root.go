package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "prospector",
	Short: "Procurement discovery pipeline",
	Long:  "Prospector turns a short procurement request into a structured vendor, partner, and pricing report by running a multi-stage LLM and web-search pipeline.",
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	viper.SetEnvPrefix("PROSPECTOR")
	viper.AutomaticEnv()
}
