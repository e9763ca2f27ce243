package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samhoang/themesync/internal/picker"
	"github.com/samhoang/themesync/internal/remote"
	"github.com/samhoang/themesync/internal/source"
	"github.com/samhoang/themesync/internal/theme"
)

var (
	updateSkipVersion bool
	updateArchive     string
)

var themeUpdateCmd = &cobra.Command{
	Use:   "update [id]",
	Short: "Apply the remote content to a theme",
	Long: `Re-fetch a theme's package and reconcile its fields, uploads and color
schemes with the stored theme.

Git-backed themes are fetched from their remote. Any theme can be updated from
an archive with --archive. Without an id an interactive picker is shown.

Examples:
  themesync theme update 3
  themesync theme update 7 --archive ./graceful-1.3.zip
  themesync theme update`,
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completeThemeIDs,
	RunE:              runThemeUpdate,
}

func init() {
	themeCmd.AddCommand(themeUpdateCmd)
	themeUpdateCmd.Flags().BoolVar(&updateSkipVersion, "skip-version", false, "apply content without advancing the recorded version")
	themeUpdateCmd.Flags().StringVar(&updateArchive, "archive", "", "apply this archive instead of fetching the remote")
}

func runThemeUpdate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var idArg string
	if len(args) > 0 {
		idArg = args[0]
	} else {
		themes, err := a.svc.ListRemoteThemes(ctx)
		if err != nil {
			return err
		}
		idArg, err = picker.RunSingle("Select a theme to update", picker.ThemeItems(themes, updateArchive == ""))
		if err != nil {
			return err
		}
		if idArg == "" {
			return nil
		}
	}
	id, err := parseThemeID(idArg)
	if err != nil {
		return err
	}

	opts := remote.UpdateOptions{SkipVersionUpdate: updateSkipVersion}
	if updateArchive != "" {
		imp := source.NewArchiveImporter(updateArchive, a.cfg.SourceOptions())
		defer imp.Cleanup()
		if err := imp.Import(ctx); err != nil {
			return err
		}
		opts.Importer = imp
	}

	before, err := a.db.Queries.GetRemoteSource(ctx, id)
	if err != nil {
		return err
	}

	fmt.Printf("Updating theme %d...\n", id)
	src, err := a.svc.UpdateFromRemote(ctx, id, opts)
	if err != nil {
		return err
	}

	// staging failures are recorded on the source instead of returned
	after, err := a.db.Queries.GetRemoteSource(ctx, id)
	if err != nil {
		return err
	}
	if after.LastErrorText != "" {
		return fmt.Errorf("update failed: %s", after.LastErrorText)
	}

	if src.LocalVersion != before.LocalVersion {
		fmt.Printf("Updated %s -> %s\n", theme.ShortVersion(before.LocalVersion), theme.ShortVersion(src.LocalVersion))
	} else {
		fmt.Printf("Applied %s\n", theme.ShortVersion(src.LocalVersion))
	}
	return nil
}
