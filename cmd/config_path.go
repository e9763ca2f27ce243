package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samhoang/themesync/internal/config"
)

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print configuration and data locations",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configPathCmd)
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	paths, err := config.ResolvePaths()
	if err != nil {
		return err
	}

	exists := "missing"
	if paths.ConfigExists() {
		exists = "present"
	}
	fmt.Printf("config:   %s (%s)\n", paths.ConfigFile(), exists)
	fmt.Printf("env:      %s\n", paths.EnvFile())
	fmt.Printf("data:     %s\n", paths.DataDir)
	fmt.Printf("database: %s\n", paths.DefaultDatabase())
	return nil
}
