package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/grm/nightwatch/internal/config"
)

// cfg holds the loaded configuration, populated in PersistentPreRunE.
var cfg config.Config

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "nightwatch",
	Short: "Analyze and monitor Ekos/KStars imaging session logs",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		cfg = c
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to the config file (default: $NIGHTWATCH_CONFIG)")
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
