package cmd

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/samhoang/themesync/internal/picker"
	"github.com/samhoang/themesync/internal/theme"
)

var checkAll bool

var themeCheckCmd = &cobra.Command{
	Use:   "check [id...]",
	Short: "Check themes for remote updates",
	Long: `Fetch the remote of git-backed themes and record how many commits each
one is behind. Nothing is applied; use 'theme update' for that.

Without ids or --all an interactive picker is shown.

Examples:
  themesync theme check 3
  themesync theme check --all`,
	ValidArgsFunction: completeThemeIDs,
	RunE:              runThemeCheck,
}

func init() {
	themeCmd.AddCommand(themeCheckCmd)
	themeCheckCmd.Flags().BoolVarP(&checkAll, "all", "a", false, "check every git-backed theme")
}

type checkResult struct {
	id   int64
	name string
	src  theme.RemoteSource
	err  error
}

func runThemeCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	themes, err := a.svc.ListRemoteThemes(ctx)
	if err != nil {
		return err
	}
	names := make(map[int64]string, len(themes))
	for _, rt := range themes {
		names[rt.Theme.ID] = rt.Theme.Name
	}

	var ids []int64
	switch {
	case checkAll:
		for _, rt := range themes {
			if rt.Source.IsGit() {
				ids = append(ids, rt.Theme.ID)
			}
		}
	case len(args) > 0:
		ids, err = parseThemeIDs(args)
		if err != nil {
			return err
		}
	default:
		selected, err := picker.Run("Select themes to check", picker.ThemeItems(themes, true))
		if err != nil {
			return err
		}
		for _, s := range selected {
			id, _ := strconv.ParseInt(s, 10, 64)
			ids = append(ids, id)
		}
	}

	if len(ids) == 0 {
		fmt.Println("No themes to check")
		return nil
	}

	fmt.Printf("Checking %d themes for updates...\n\n", len(ids))

	// each theme has its own source row, so checks only run in parallel
	// across different themes
	var mu sync.Mutex
	results := make([]checkResult, 0, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Check.Concurrency)
	for _, id := range ids {
		g.Go(func() error {
			src, err := a.svc.UpdateRemoteVersion(gctx, id)
			mu.Lock()
			results = append(results, checkResult{id: id, name: names[id], src: src, err: err})
			mu.Unlock()
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].id < results[j].id })

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tNAME\tLOCAL\tREMOTE\tBEHIND\tSTATUS\n")
	fmt.Fprintf(w, "--\t----\t-----\t------\t------\t------\n")
	behind, failed := 0, 0
	for _, r := range results {
		status := string(picker.StatusOf(r.src))
		switch {
		case r.err != nil:
			status = r.err.Error()
			failed++
		case r.src.Failed():
			status = "failed: " + r.src.LastErrorText
			failed++
		case r.src.OutOfDate():
			behind++
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n",
			r.id, r.name,
			theme.ShortVersion(r.src.LocalVersion), theme.ShortVersion(r.src.RemoteVersion),
			r.src.CommitsBehind, status)
	}
	w.Flush()

	fmt.Println()
	if behind > 0 {
		fmt.Printf("%d themes have updates. Run 'themesync theme update <id>' to apply.\n", behind)
	} else {
		fmt.Println("All checked themes are up to date")
	}
	if failed > 0 {
		fmt.Printf("%d themes could not be checked\n", failed)
	}
	return nil
}
