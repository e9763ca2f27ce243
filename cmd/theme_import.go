package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/samhoang/themesync/internal/remote"
	"github.com/samhoang/themesync/internal/source"
	"github.com/samhoang/themesync/internal/theme"
)

var (
	importBranch  string
	importKeyFile string
	importUser    string
)

var themeImportCmd = &cobra.Command{
	Use:   "import <url-or-archive>",
	Short: "Import a theme",
	Long: `Import a theme from a git repository or a .zip/.tar.gz archive.

Git locations may be full URLs, scp-style ssh addresses, or shorthand for
GitHub, GitLab and Bitbucket. Archives may be local files or http(s) URLs.

Examples:
  themesync theme import https://github.com/acme/graceful.git
  themesync theme import github.com/acme/graceful --branch main
  themesync theme import git@github.com:acme/private.git --key-file ~/.ssh/theme_deploy
  themesync theme import ./graceful.zip`,
	Args: cobra.ExactArgs(1),
	RunE: runThemeImport,
}

func init() {
	themeCmd.AddCommand(themeImportCmd)
	themeImportCmd.Flags().StringVarP(&importBranch, "branch", "b", "", "branch to track (default: remote HEAD)")
	themeImportCmd.Flags().StringVar(&importKeyFile, "key-file", "", "private key for ssh remotes")
	themeImportCmd.Flags().StringVar(&importUser, "user", "", "owner recorded on the theme and its uploads")
}

func runThemeImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	req := remote.ImportRequest{
		Branch: importBranch,
		UserID: importUser,
	}
	if source.IsArchive(args[0]) {
		if importBranch != "" || importKeyFile != "" {
			return fmt.Errorf("--branch and --key-file only apply to git remotes")
		}
		req.ArchivePath = args[0]
	} else {
		req.URL = args[0]
	}
	if importKeyFile != "" {
		key, err := os.ReadFile(importKeyFile)
		if err != nil {
			return fmt.Errorf("read key file: %w", err)
		}
		req.PrivateKey = string(key)
	}

	fmt.Printf("Importing %s...\n", args[0])
	res, err := a.svc.Import(ctx, req)
	if err != nil {
		return err
	}

	kind := "theme"
	if res.Theme.Component {
		kind = "component"
	}
	fmt.Printf("Imported %s %q (id %d) at %s\n", kind, res.Theme.Name, res.Theme.ID, theme.ShortVersion(res.Source.LocalVersion))
	fmt.Printf("  fields: %d created\n", res.Fields.Created)
	if !res.Theme.Component {
		fmt.Printf("  color schemes: %d created\n", res.Colors.Created)
	}
	return nil
}
