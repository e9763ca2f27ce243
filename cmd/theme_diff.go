package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	diffAdd  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	diffDel  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	diffHunk = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	diffFile = lipgloss.NewStyle().Bold(true)
)

var themeDiffCmd = &cobra.Command{
	Use:   "diff <id>",
	Short: "Show local edits to a theme",
	Long: `Show how the stored theme differs from the version it was imported at.

The remote is fetched and the stored field values are written over the imported
commit; the result is printed as a unified diff.

Examples:
  themesync theme diff 3`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeThemeIDs,
	RunE:              runThemeDiff,
}

func init() {
	themeCmd.AddCommand(themeDiffCmd)
}

func runThemeDiff(cmd *cobra.Command, args []string) error {
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

	res, err := a.svc.DiffLocalChanges(ctx, id)
	if err != nil {
		return err
	}
	if res.Error != "" {
		return fmt.Errorf("diff failed: %s", res.Error)
	}
	if res.Diff == "" {
		fmt.Println("No local changes")
		return nil
	}

	for _, line := range strings.Split(strings.TrimSuffix(res.Diff, "\n"), "\n") {
		fmt.Println(colorizeDiffLine(line))
	}
	return nil
}

func colorizeDiffLine(line string) string {
	switch {
	case strings.HasPrefix(line, "diff "), strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		return diffFile.Render(line)
	case strings.HasPrefix(line, "@@"):
		return diffHunk.Render(line)
	case strings.HasPrefix(line, "+"):
		return diffAdd.Render(line)
	case strings.HasPrefix(line, "-"):
		return diffDel.Render(line)
	}
	return line
}
