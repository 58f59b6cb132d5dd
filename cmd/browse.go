package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0up4200/gallery3/gallery"
)

var maxDepth int

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test connection to the gallery",
	Long:  `Fetch the root album of the configured gallery and display basic information.`,
	Args:  cobra.NoArgs,
	RunE:  runTest,
}

// lsCmd represents the ls command
var lsCmd = &cobra.Command{
	Use:   "ls [album]",
	Short: "List the members of an album",
	Long: `List the direct members of an album. The album is given by id, REST URL or
path of names below the root album. Without an argument the root album is listed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

// treeCmd represents the tree command
var treeCmd = &cobra.Command{
	Use:   "tree [album]",
	Short: "Print the album tree",
	Long:  `Walk an album depth-first and print every album, photo and movie below it.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTree,
}

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <item>",
	Short: "Show the details of an item",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	treeCmd.Flags().IntVar(&maxDepth, "depth", 0, "maximum depth to descend (0 means unlimited)")

	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(infoCmd)
}

func runTest(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	fmt.Printf("Testing connection to %s...\n", cfg.Gallery.Host)

	ctx := commandContext(cmd)
	if err := client.TestConnection(ctx); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	fmt.Println("✓ Connection successful!")

	root, err := client.Root(ctx)
	if err != nil {
		return err
	}
	albums, err := root.Albums(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("\nGallery:\n")
	fmt.Printf("- Root album: %s\n", root.Title())
	fmt.Printf("- Top-level members: %d\n", len(root.MemberURLs()))
	fmt.Printf("- Top-level albums: %d\n", len(albums))
	fmt.Printf("- Editable: %s\n", boolToStatus(root.CanEdit()))
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	album, err := resolveAlbum(ctx, client, firstArg(args))
	if err != nil {
		return err
	}
	members, err := album.Members(ctx)
	if err != nil {
		return err
	}

	if len(members) == 0 {
		fmt.Printf("%s is empty.\n", gallery.ItemPath(album))
		return nil
	}

	fmt.Printf("\n%s (%d items):\n", gallery.ItemPath(album), len(members))
	fmt.Println(strings.Repeat("-", 80))
	for _, m := range members {
		fmt.Printf("%-6s %-40s %s\n", m.Type(), truncate(m.Name(), 40), m.Title())
	}
	return nil
}

func runTree(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	start, err := resolveAlbum(ctx, client, firstArg(args))
	if err != nil {
		return err
	}
	return printTree(ctx, os.Stdout, start, maxDepth)
}

// printTree writes one indented line per item below start. limit bounds the
// depth when positive.
func printTree(ctx context.Context, w io.Writer, start gallery.Item, limit int) error {
	var albums, files int
	err := gallery.Walk(ctx, start, func(item gallery.Item, depth int) error {
		if depth == 0 {
			fmt.Fprintln(w, gallery.ItemPath(item))
			return nil
		}
		marker := ""
		if item.Type() == gallery.TypeAlbum {
			marker = "/"
			albums++
		} else {
			files++
		}
		fmt.Fprintf(w, "%s%s%s\n", strings.Repeat("  ", depth), item.Name(), marker)
		if limit > 0 && depth >= limit && item.Type() == gallery.TypeAlbum {
			return gallery.SkipDir
		}
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d albums, %d files\n", albums, files)
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	item, err := resolveItem(ctx, client, args[0])
	if err != nil {
		return err
	}
	path, err := gallery.ResolvePath(ctx, item)
	if err != nil {
		logger.Debug().Err(err).Str("url", item.URL()).Msg("Could not resolve full path")
		path = gallery.ItemPath(item)
	}
	printInfo(os.Stdout, item, path)
	return nil
}

// printInfo writes the common fields followed by every other attribute
func printInfo(w io.Writer, item gallery.Item, path string) {
	fmt.Fprintf(w, "URL:         %s\n", item.URL())
	fmt.Fprintf(w, "Path:        %s\n", path)
	fmt.Fprintf(w, "Type:        %s\n", item.Type())
	fmt.Fprintf(w, "Name:        %s\n", item.Name())
	fmt.Fprintf(w, "Title:       %s\n", item.Title())
	if item.Description() != "" {
		fmt.Fprintf(w, "Description: %s\n", item.Description())
	}
	if t := item.Created(); !t.IsZero() {
		fmt.Fprintf(w, "Created:     %s\n", t.Format("2006-01-02 15:04"))
	}
	if t := item.Updated(); !t.IsZero() {
		fmt.Fprintf(w, "Updated:     %s\n", t.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(w, "Editable:    %t\n", item.CanEdit())

	shown := []string{"name", "title", "description", "type", "created", "updated", "can_edit"}
	var extra []string
	for _, key := range item.AttrNames() {
		if slices.Contains(shown, key) {
			continue
		}
		if v, ok := item.Attr(key); ok && v != nil && fmt.Sprint(v) != "" {
			extra = append(extra, fmt.Sprintf("  %-14s %v", key+":", v))
		}
	}
	if len(extra) > 0 {
		fmt.Fprintln(w, "Attributes:")
		for _, line := range extra {
			fmt.Fprintln(w, line)
		}
	}
}

func boolToStatus(b bool) string {
	if b {
		return "Enabled"
	}
	return "Disabled"
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
