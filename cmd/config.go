package cmd

import (
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration utilities",
	Long:  `Inspect and generate the themesync.toml configuration.`,
}

func init() {
	rootCmd.AddCommand(configCmd)
}
