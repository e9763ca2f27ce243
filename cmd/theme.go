package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/samhoang/themesync/internal/config"
	"github.com/samhoang/themesync/internal/remote"
	"github.com/samhoang/themesync/internal/store"
)

var themeCmd = &cobra.Command{
	Use:   "theme",
	Short: "Import and sync remote themes",
	Long:  `Import themes from git repositories or archives and keep them in sync.`,
}

func init() {
	rootCmd.AddCommand(themeCmd)
}

func parseThemeID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid theme id %q", arg)
	}
	return id, nil
}

// parseThemeIDs parses every argument, dropping repeats so a theme is
// only handled once.
func parseThemeIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	seen := make(map[int64]bool, len(args))
	for _, arg := range args {
		id, err := parseThemeID(arg)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// completeThemeIDs returns a completion function that lists theme ids with
// their names as descriptions
func completeThemeIDs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	paths, err := config.ResolvePaths()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	cfg, err := config.Load(paths)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer db.Close()

	themes, err := remote.NewSQLStore(db).ListRemoteThemes(cmd.Context())
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	var ids []string
	for _, rt := range themes {
		ids = append(ids, fmt.Sprintf("%d\t%s", rt.Theme.ID, rt.Theme.Name))
	}

	return ids, cobra.ShellCompDirectiveNoFileComp
}
