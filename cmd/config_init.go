package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samhoang/themesync/internal/config"
)

var configInitForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate default themesync.toml configuration",
	Long: `Generate a default themesync.toml configuration file.

The config file controls:
  - where the theme database lives
  - the upload backend (local directory or S3 bucket)
  - git and archive importer timeouts
  - logging and check concurrency

Example themesync.toml:

  [database]
  path = "~/.local/share/themesync/themesync.db"

  [uploads]
  backend = "s3"
  bucket = "theme-assets"
  region = "us-east-1"

  [git]
  clone_timeout = "2m"

  [log]
  level = "debug"
  format = "json"

Environment variables (THEMESYNC_*) and a .env file next to the config
override the file.`,
	RunE: runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	paths, err := config.ResolvePaths()
	if err != nil {
		return err
	}

	if paths.ConfigExists() && !configInitForce {
		fmt.Printf("Config already exists: %s\n", paths.ConfigFile())
		fmt.Println("Edit it directly or use --force to regenerate.")
		return nil
	}

	cfg := config.Default(paths)
	if err := cfg.Save(paths); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("Created: %s\n", paths.ConfigFile())
	return nil
}
