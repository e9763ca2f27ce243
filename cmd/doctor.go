package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samhoang/themesync/internal/config"
	"github.com/samhoang/themesync/internal/remote"
	"github.com/samhoang/themesync/internal/store"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose common issues",
	Long: `Check the themesync setup for common issues.

Checks:
- Does themesync.toml parse and validate?
- Does the database open and migrate?
- Is the upload backend reachable?
- Did any theme fail its last sync?`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	paths, err := config.ResolvePaths()
	if err != nil {
		return err
	}

	fmt.Println("=== themesync doctor ===")
	fmt.Println()

	issues := 0

	fmt.Print("Checking configuration... ")
	cfg, err := config.Load(paths)
	if err != nil {
		fmt.Println("FAIL")
		fmt.Printf("  → %v\n", err)
		return nil
	}
	if paths.ConfigExists() {
		fmt.Printf("OK → %s\n", paths.ConfigFile())
	} else {
		fmt.Println("OK (defaults)")
		fmt.Println("  → Run 'themesync config init' to write a config file")
	}

	fmt.Print("Checking database... ")
	db, err := store.New(cfg.Database.Path)
	if err != nil {
		fmt.Println("FAIL")
		fmt.Printf("  → %v\n", err)
		return nil
	}
	defer db.Close()
	fmt.Printf("OK → %s\n", cfg.Database.Path)

	fmt.Print("Checking upload backend... ")
	if _, err := newUploader(ctx, cfg.Uploads); err != nil {
		fmt.Println("FAIL")
		fmt.Printf("  → %v\n", err)
		issues++
	} else {
		fmt.Printf("OK → %s\n", cfg.Uploads.Backend)
	}

	fmt.Print("Checking remote themes... ")
	themes, err := remote.NewSQLStore(db).ListRemoteThemes(ctx)
	if err != nil {
		fmt.Println("FAIL")
		fmt.Printf("  → %v\n", err)
		issues++
	} else {
		var failed []string
		for _, rt := range themes {
			if rt.Source.Failed() {
				failed = append(failed, fmt.Sprintf("%d %s: %s", rt.Theme.ID, rt.Theme.Name, rt.Source.LastErrorText))
			}
		}
		if len(failed) > 0 {
			fmt.Printf("WARN (%d failed)\n", len(failed))
			for _, f := range failed[:min(5, len(failed))] {
				fmt.Printf("  → %s\n", f)
			}
			if len(failed) > 5 {
				fmt.Printf("  → ... and %d more\n", len(failed)-5)
			}
			fmt.Println("  → Run 'themesync theme check <id>' to retry")
			issues += len(failed)
		} else {
			fmt.Printf("OK (%d themes)\n", len(themes))
		}
	}

	fmt.Println()
	if issues == 0 {
		fmt.Println("All checks passed!")
	} else {
		fmt.Printf("Found %d issue(s)\n", issues)
	}

	return nil
}
