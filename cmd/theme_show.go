package cmd

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/samhoang/themesync/internal/theme"
)

var themeShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show theme details",
	Long: `Show a theme's remote source, metadata, fields and color schemes.

Examples:
  themesync theme show 3`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeThemeIDs,
	RunE:              runThemeShow,
}

func init() {
	themeCmd.AddCommand(themeShowCmd)
}

func runThemeShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := parseThemeID(args[0])
	if err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	q := a.db.Queries
	th, err := q.GetTheme(ctx, id)
	if err != nil {
		return err
	}
	src, err := q.GetRemoteSource(ctx, id)
	if err != nil {
		return err
	}
	fields, err := q.ListFields(ctx, id)
	if err != nil {
		return err
	}
	schemes, err := q.ListColorSchemes(ctx, id)
	if err != nil {
		return err
	}

	fmt.Printf("%s (id %d)\n", th.Name, th.ID)
	if th.Component {
		fmt.Println("  type:      component")
	} else {
		fmt.Println("  type:      theme")
	}
	if th.UserID != "" {
		fmt.Printf("  owner:     %s\n", th.UserID)
	}
	if src.IsGit() {
		fmt.Printf("  remote:    %s\n", src.URL)
		if src.Branch != "" {
			fmt.Printf("  branch:    %s\n", src.Branch)
		}
		if src.PrivateKey != "" {
			fmt.Println("  auth:      ssh key")
		}
	} else {
		fmt.Println("  remote:    none (imported from archive)")
	}
	fmt.Printf("  version:   %s\n", src.LocalVersion)
	if src.RemoteVersion != "" && src.RemoteVersion != src.LocalVersion {
		fmt.Printf("  remote at: %s (%d commits behind)\n", src.RemoteVersion, src.CommitsBehind)
	}
	if !src.RemoteUpdatedAt.IsZero() {
		fmt.Printf("  synced:    %s\n", src.RemoteUpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	if src.Failed() {
		fmt.Printf("  error:     %s\n", src.LastErrorText)
	}

	printMetadata(src.Metadata)

	fmt.Printf("\nFields (%d)\n", len(fields))
	if len(fields) > 0 {
		sort.Slice(fields, func(i, j int) bool {
			if fields[i].Target != fields[j].Target {
				return fields[i].Target < fields[j].Target
			}
			return fields[i].Name < fields[j].Name
		})
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, f := range fields {
			size := fmt.Sprintf("%d bytes", len(f.Value))
			if f.UploadID != "" {
				size = "upload " + f.UploadID
			}
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", f.Target, f.Name, f.Kind, size)
		}
		w.Flush()
	}

	if len(schemes) > 0 {
		fmt.Printf("\nColor schemes (%d)\n", len(schemes))
		for _, s := range schemes {
			marker := " "
			if th.ColorSchemeID != nil && *th.ColorSchemeID == s.ID {
				marker = "*"
			}
			fmt.Printf("  %s %s (%d colors)\n", marker, s.Name, len(s.Colors))
		}
	}
	return nil
}

func printMetadata(m theme.Metadata) {
	rows := [][2]string{
		{"theme version", m.ThemeVersion},
		{"authors", m.Authors},
		{"about", m.AboutURL},
		{"license", m.LicenseURL},
		{"min version", m.MinimumVersion},
		{"max version", m.MaximumVersion},
	}
	printed := false
	for _, r := range rows {
		if r[1] == "" {
			continue
		}
		if !printed {
			fmt.Println("\nMetadata")
			printed = true
		}
		fmt.Printf("  %-14s %s\n", r[0]+":", r[1])
	}
}
