package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/samhoang/themesync/internal/picker"
	"github.com/samhoang/themesync/internal/theme"
)

var themeListJSON bool

var themeListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls", "l"},
	Short:   "List imported themes",
	Long:    `List every imported theme with its source and sync status.`,
	RunE:    runThemeList,
}

func init() {
	themeListCmd.Flags().BoolVarP(&themeListJSON, "json", "j", false, "Output as JSON")
	themeCmd.AddCommand(themeListCmd)
}

func runThemeList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	themes, err := a.svc.ListRemoteThemes(ctx)
	if err != nil {
		return fmt.Errorf("failed to list themes: %w", err)
	}

	if themeListJSON {
		if themes == nil {
			themes = []theme.RemoteTheme{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(themes)
	}

	if len(themes) == 0 {
		fmt.Println("No themes imported")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tNAME\tTYPE\tVERSION\tSOURCE\tSTATUS\n")
	for _, rt := range themes {
		kind := "theme"
		if rt.Theme.Component {
			kind = "component"
		}

		src := rt.Source.URL
		if src == "" {
			src = "(archive)"
		} else if rt.Source.Branch != "" {
			src += "#" + rt.Source.Branch
		}
		if len(src) > 50 {
			src = src[:47] + "..."
		}

		status := string(picker.StatusOf(rt.Source))
		if rt.Source.CommitsBehind > 0 {
			status = fmt.Sprintf("%s (%d)", status, rt.Source.CommitsBehind)
		}

		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			rt.Theme.ID, rt.Theme.Name, kind, theme.ShortVersion(rt.Source.LocalVersion), src, status)
	}

	w.Flush()
	return nil
}
