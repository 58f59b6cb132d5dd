package cmd

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0up4200/gallery3/gallery"
)

var (
	albumTitle       string
	albumDescription string
	editTitle        string
	editDescription  string
)

// mkdirCmd represents the mkdir command
var mkdirCmd = &cobra.Command{
	Use:   "mkdir <path>",
	Short: "Create an album",
	Long: `Create an album. The last path segment is the new album's name; the rest
must name an existing album.`,
	Args: cobra.ExactArgs(1),
	RunE: runMkdir,
}

// editCmd represents the edit command
var editCmd = &cobra.Command{
	Use:   "edit <item>",
	Short: "Change the title or description of an item",
	Args:  cobra.ExactArgs(1),
	RunE:  runEdit,
}

// rmCmd represents the rm command
var rmCmd = &cobra.Command{
	Use:   "rm <item>...",
	Short: "Delete items from the gallery",
	Long:  `Delete items from the gallery. Deleting an album deletes everything in it.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRemove,
}

// coverCmd represents the cover command
var coverCmd = &cobra.Command{
	Use:   "cover <album> <item>",
	Short: "Set the cover of an album",
	Args:  cobra.ExactArgs(2),
	RunE:  runCover,
}

func init() {
	mkdirCmd.Flags().StringVarP(&albumTitle, "title", "t", "", "album title (defaults to the name)")
	mkdirCmd.Flags().StringVar(&albumDescription, "description", "", "album description")

	editCmd.Flags().StringVarP(&editTitle, "title", "t", "", "new title")
	editCmd.Flags().StringVar(&editDescription, "description", "", "new description")

	rmCmd.Flags().BoolVar(&noConfirm, "no-confirm", false, "skip confirmation prompt")

	rootCmd.AddCommand(mkdirCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(coverCmd)
}

func runMkdir(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	parentRef, name := splitAlbumPath(args[0])
	if name == "" {
		return fmt.Errorf("album name is required")
	}
	title := albumTitle
	if title == "" {
		title = name
	}

	ctx := commandContext(cmd)
	parent, err := resolveAlbum(ctx, client, parentRef)
	if err != nil {
		return err
	}

	if cfg.Safety.DryRun {
		logger.Info().
			Str("parent", gallery.ItemPath(parent)).
			Str("name", name).
			Str("title", title).
			Msg("[DRY RUN] Would create album")
		return nil
	}

	album, err := parent.AddAlbum(ctx, name, title, albumDescription)
	if err != nil {
		return fmt.Errorf("failed to create album: %w", err)
	}

	fmt.Printf("✓ Created %s (%s)\n", gallery.ItemPath(album), album.URL())
	return nil
}

// splitAlbumPath separates the parent reference from the new album's name
func splitAlbumPath(p string) (string, string) {
	p = "/" + strings.Trim(p, "/")
	return strings.TrimPrefix(path.Dir(p), "/"), strings.TrimPrefix(path.Base(p), "/")
}

func runEdit(cmd *cobra.Command, args []string) error {
	var update gallery.ItemUpdate
	if cmd.Flags().Changed("title") {
		update.Title = &editTitle
	}
	if cmd.Flags().Changed("description") {
		update.Description = &editDescription
	}
	if update.Title == nil && update.Description == nil {
		return fmt.Errorf("nothing to change: use --title or --description")
	}

	client, err := newClient()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	item, err := resolveItem(ctx, client, args[0])
	if err != nil {
		return err
	}

	if cfg.Safety.DryRun {
		event := logger.Info().Str("item", gallery.ItemPath(item))
		if update.Title != nil {
			event = event.Str("title", *update.Title)
		}
		if update.Description != nil {
			event = event.Str("description", *update.Description)
		}
		event.Msg("[DRY RUN] Would update item")
		return nil
	}

	res, err := item.Update(ctx, update)
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("failed to update %s: %s", gallery.ItemPath(item), res.Message)
	}

	fmt.Printf("✓ Updated %s\n", gallery.ItemPath(item))
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	items := make([]gallery.Item, 0, len(args))
	for _, ref := range args {
		item, err := resolveItem(ctx, client, ref)
		if err != nil {
			return err
		}
		if item.URL() == rootURL(ctx, client) {
			return fmt.Errorf("refusing to delete the root album")
		}
		items = append(items, item)
	}

	fmt.Printf("\nItems to delete (%d):\n", len(items))
	fmt.Println(strings.Repeat("-", 80))
	for _, item := range items {
		fmt.Printf("• %s [%s]\n", gallery.ItemPath(item), item.Type())
	}

	if cfg.Safety.DryRun {
		for _, item := range items {
			logger.Info().Str("item", gallery.ItemPath(item)).Msg("[DRY RUN] Would delete item")
		}
		return nil
	}

	if cfg.Safety.ConfirmDelete && !noConfirm {
		if !confirm(fmt.Sprintf("\nDelete %d items?", len(items))) {
			logger.Info().Msg("Deletion cancelled")
			return nil
		}
	}

	var failed int
	for _, item := range items {
		itemPath := gallery.ItemPath(item)
		res, err := item.Delete(ctx)
		if err != nil {
			return err
		}
		if !res.Success {
			failed++
			logger.Error().Str("item", itemPath).Str("reason", res.Message).Msg("Failed to delete item")
			continue
		}
		logger.Info().Str("item", itemPath).Msg("Deleted item")
	}

	if failed > 0 {
		return fmt.Errorf("failed to delete %d of %d items", failed, len(items))
	}
	return nil
}

// rootURL returns the root album's URL, or "" when it cannot be fetched
func rootURL(ctx context.Context, client gallery.API) string {
	root, err := client.Root(ctx)
	if err != nil {
		return ""
	}
	return root.URL()
}

func runCover(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	album, err := resolveAlbum(ctx, client, args[0])
	if err != nil {
		return err
	}
	cover, err := resolveItem(ctx, client, args[1])
	if err != nil {
		return err
	}

	if cfg.Safety.DryRun {
		logger.Info().
			Str("album", gallery.ItemPath(album)).
			Str("cover", cover.URL()).
			Msg("[DRY RUN] Would set album cover")
		return nil
	}

	res, err := album.SetCover(ctx, cover)
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("failed to set cover of %s: %s", gallery.ItemPath(album), res.Message)
	}

	fmt.Printf("✓ Cover of %s set to %s\n", gallery.ItemPath(album), cover.Name())
	return nil
}
