package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0up4200/gallery3/gallery"
	"github.com/s0up4200/gallery3/uploader"
)

var (
	uploadRecursive   bool
	uploadConcurrency int
	uploadExif        bool
	downloadSize      string
)

// uploadCmd represents the upload command
var uploadCmd = &cobra.Command{
	Use:   "upload <album> <path>...",
	Short: "Upload files and directories into an album",
	Long: `Upload photos and movies into an album. Directories are walked; with
--recursive every directory becomes an album of the same name, and albums that
already exist are reused.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runUpload,
}

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get <item> [destination]",
	Short: "Download a photo or movie",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runGet,
}

func init() {
	uploadCmd.Flags().BoolVarP(&uploadRecursive, "recursive", "r", true, "create albums for directories")
	uploadCmd.Flags().IntVarP(&uploadConcurrency, "concurrency", "c", 0, "number of files prepared in parallel")
	uploadCmd.Flags().BoolVar(&uploadExif, "exif", false, "describe photos with their EXIF data")

	getCmd.Flags().StringVarP(&downloadSize, "size", "s", string(gallery.SizeFull), "rendition to download (full, resize, thumb)")

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(getCmd)
}

// uploadOptions merges the upload settings with flags given on the command line
func uploadOptions(cmd *cobra.Command) uploader.Options {
	opts := uploader.Options{
		SpaceReplacement: cfg.Upload.SpaceReplacement,
		Concurrency:      cfg.Upload.Concurrency,
		Recursive:        cfg.Upload.Recursive,
		ExifDescription:  cfg.Upload.ExifDescription,
		DryRun:           cfg.Safety.DryRun,
	}
	if cmd.Flags().Changed("recursive") {
		opts.Recursive = uploadRecursive
	}
	if cmd.Flags().Changed("concurrency") {
		opts.Concurrency = uploadConcurrency
	}
	if cmd.Flags().Changed("exif") {
		opts.ExifDescription = uploadExif
	}
	return opts
}

func runUpload(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	target, err := resolveAlbum(ctx, client, args[0])
	if err != nil {
		return err
	}

	up := uploader.New(target, logger, uploadOptions(cmd))

	plan, err := up.Plan(ctx, args[1:])
	if err != nil {
		return err
	}
	for _, skip := range plan.Skipped {
		logger.Warn().Str("file", skip.Path).Str("reason", skip.Reason).Msg("Skipping file")
	}
	if len(plan.Entries) == 0 {
		fmt.Println("No files to upload.")
		return nil
	}

	summary, err := up.Run(ctx, plan)
	if summary != nil {
		printSummary(summary, cfg.Safety.DryRun)
	}
	if err != nil {
		return err
	}
	if len(summary.Failed) > 0 {
		return fmt.Errorf("%d uploads failed", len(summary.Failed))
	}
	return nil
}

func printSummary(s *uploader.Summary, dry bool) {
	prefix := ""
	if dry {
		prefix = "[DRY RUN] "
	}
	fmt.Printf("\n%sUpload summary:\n", prefix)
	fmt.Println(strings.Repeat("-", 80))
	fmt.Printf("- Uploaded: %d\n", s.Uploaded)
	fmt.Printf("- Albums created: %d\n", s.Albums)
	fmt.Printf("- Skipped: %d\n", s.Skipped)
	fmt.Printf("- Failed: %d\n", len(s.Failed))
	for _, f := range s.Failed {
		fmt.Printf("  • %s: %v\n", f.Path, f.Err)
	}
}

// downloader is implemented by photos and movies
type downloader interface {
	gallery.Item
	Download(ctx context.Context, size gallery.Size) (io.ReadCloser, error)
}

func runGet(cmd *cobra.Command, args []string) error {
	size := gallery.Size(downloadSize)
	switch size {
	case gallery.SizeFull, gallery.SizeResize, gallery.SizeThumb:
	default:
		return fmt.Errorf("invalid size: %s (must be full, resize or thumb)", downloadSize)
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
	d, ok := item.(downloader)
	if !ok {
		return fmt.Errorf("%s is a %s and cannot be downloaded", gallery.ItemPath(item), item.Type())
	}

	dest := destination(item.Name(), firstArg(args[1:]))

	if cfg.Safety.DryRun {
		logger.Info().Str("item", gallery.ItemPath(item)).Str("file", dest).Msg("[DRY RUN] Would download")
		return nil
	}

	n, err := download(ctx, d, size, dest)
	if err != nil {
		return err
	}

	logger.Info().Str("file", dest).Int64("bytes", n).Msg("Downloaded")
	return nil
}

// destination picks the local file name. An existing directory receives the
// item under its own name.
func destination(name, target string) string {
	if target == "" {
		return name
	}
	if fi, err := os.Stat(target); err == nil && fi.IsDir() {
		return filepath.Join(target, name)
	}
	return target
}

func download(ctx context.Context, d downloader, size gallery.Size, dest string) (int64, error) {
	rc, err := d.Download(ctx, size)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	f, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dest, err)
	}

	n, err := io.Copy(f, rc)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		return n, fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return n, nil
}
