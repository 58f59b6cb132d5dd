package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0up4200/gallery3/filter"
	"github.com/s0up4200/gallery3/gallery"
)

var (
	findIn      string
	listFilters bool
	runAll      bool
	deleteFound bool
)

// findCmd represents the find command
var findCmd = &cobra.Command{
	Use:   "find [filter]",
	Short: "Search the gallery with a filter expression",
	Long: `Walk the gallery and print every item matching a filter. The filter is either
the name of a saved search from the config file or an expression, for example:

  gallery3 find 'isPhoto() && daysSince(Created) > 365'
  gallery3 find 'containsFold(Title, "beach")' --in /holiday`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFind,
}

func init() {
	findCmd.Flags().StringVar(&findIn, "in", "", "album to search (default is the root album)")
	findCmd.Flags().BoolVarP(&listFilters, "list", "l", false, "list saved searches")
	findCmd.Flags().BoolVarP(&runAll, "all", "a", false, "run every saved search")
	findCmd.Flags().BoolVar(&deleteFound, "delete", false, "delete the matching items")
	findCmd.Flags().BoolVar(&noConfirm, "no-confirm", false, "skip confirmation prompt")

	rootCmd.AddCommand(findCmd)
}

func runFind(cmd *cobra.Command, args []string) error {
	manager := filter.NewManager()
	if err := manager.RegisterAll(cfg.Filters); err != nil {
		return err
	}

	if listFilters {
		if len(cfg.Filters) == 0 {
			fmt.Println("No saved searches configured.")
			return nil
		}
		for _, name := range manager.Names() {
			fmt.Printf("• %s: %s\n", name, cfg.Filters[name])
		}
		return nil
	}
	if !runAll && len(args) == 0 {
		return fmt.Errorf("no filter specified: give an expression or the name of a saved search")
	}
	if runAll && deleteFound {
		return fmt.Errorf("--delete cannot be combined with --all")
	}

	client, err := newClient()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	start, err := resolveAlbum(ctx, client, findIn)
	if err != nil {
		return err
	}

	infos, items, err := collectItems(ctx, start)
	if err != nil {
		return err
	}
	logger.Debug().Int("items", len(infos)).Str("album", gallery.ItemPath(start)).Msg("Collected items")

	if runAll {
		results, err := manager.FindAll(ctx, infos)
		if err != nil {
			return err
		}
		for _, name := range manager.Names() {
			printMatches(name, results[name])
		}
		return nil
	}

	query := args[0]
	logger.Info().Str("filter", query).Msg("Searching items")

	matches, err := manager.Find(ctx, query, infos)
	if err != nil {
		return fmt.Errorf("invalid filter expression: %w", err)
	}
	printMatches(query, matches)

	if !deleteFound || len(matches) == 0 {
		return nil
	}
	return deleteMatches(ctx, matches, items)
}

// collectItems walks start and snapshots every item below it. The start album
// itself is not a candidate.
func collectItems(ctx context.Context, start gallery.Item) ([]filter.ItemInfo, map[string]gallery.Item, error) {
	var infos []filter.ItemInfo
	items := make(map[string]gallery.Item)

	err := gallery.Walk(ctx, start, func(item gallery.Item, depth int) error {
		if depth == 0 {
			return nil
		}
		infos = append(infos, filter.NewItemInfo(item, depth))
		items[item.URL()] = item
		return nil
	})
	return infos, items, err
}

func printMatches(name string, matches []filter.ItemInfo) {
	if len(matches) == 0 {
		fmt.Printf("\n%s: no items found.\n", name)
		return
	}
	fmt.Printf("\n%s: found %d items:\n", name, len(matches))
	fmt.Println(strings.Repeat("-", 80))
	for _, m := range matches {
		fmt.Printf("• %s [%s]", m.Path, m.Type)
		if !m.Created.IsZero() {
			fmt.Printf("  %s", m.Created.Format("2006-01-02"))
		}
		fmt.Println()
	}
}

func deleteMatches(ctx context.Context, matches []filter.ItemInfo, items map[string]gallery.Item) error {
	if cfg.Safety.DryRun {
		for _, m := range matches {
			logger.Info().Str("item", m.Path).Msg("[DRY RUN] Would delete item")
		}
		return nil
	}

	if cfg.Safety.ConfirmDelete && !noConfirm {
		if !confirm(fmt.Sprintf("\nDelete %d items?", len(matches))) {
			logger.Info().Msg("Deletion cancelled")
			return nil
		}
	}

	var deleted, failed int
	for _, m := range matches {
		item, ok := items[m.URL]
		if !ok || isDetachedBy(item, matches) {
			continue
		}
		res, err := item.Delete(ctx)
		if err != nil {
			return err
		}
		if !res.Success {
			failed++
			logger.Error().Str("item", m.Path).Str("reason", res.Message).Msg("Failed to delete item")
			continue
		}
		deleted++
		logger.Info().Str("item", m.Path).Msg("Deleted item")
	}

	logger.Info().Int("deleted", deleted).Int("failed", failed).Msg("Deletion complete")
	if failed > 0 {
		return fmt.Errorf("failed to delete %d of %d items", failed, len(matches))
	}
	return nil
}

// isDetachedBy reports whether an ancestor of item is also in matches. Such
// items go away with the ancestor.
func isDetachedBy(item gallery.Item, matches []filter.ItemInfo) bool {
	for p := item.Parent(); p != nil; p = p.Parent() {
		for _, m := range matches {
			if m.URL == p.URL() {
				return true
			}
		}
	}
	return false
}
