// Package uploader mirrors local files and directories into a gallery album.
//
// Uploading happens in two steps. Plan walks the inputs and prepares every
// file concurrently (content type detection, optional EXIF parsing); nothing
// is sent to the server. Run then uploads the plan in order, one request at a
// time, creating or reusing a sub-album for every directory.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/gallery3/gallery"
)

// DefaultConcurrency bounds local preparation when Options leaves it unset
const DefaultConcurrency = 4

// Options controls planning and uploading
type Options struct {
	SpaceReplacement string
	Concurrency      int
	Recursive        bool
	ExifDescription  bool
	DryRun           bool
}

// Entry is one local file scheduled for upload.
type Entry struct {
	Path        string
	Albums      []string // album names below the target, outermost first
	Asset       *gallery.LocalAsset
	Title       string
	Description string
}

// Skip records an input that will not be uploaded
type Skip struct {
	Path   string
	Reason string
}

// Plan is the ordered result of preparing the inputs.
type Plan struct {
	Entries []Entry
	Skipped []Skip
}

// Failure records an entry whose upload failed
type Failure struct {
	Path string
	Err  error
}

// Summary reports what Run did. In dry-run mode it reports what Run would do.
type Summary struct {
	Uploaded int
	Albums   int
	Skipped  int
	Failed   []Failure
}

// Uploader sends local files into a target album.
type Uploader struct {
	target *gallery.Album
	logger zerolog.Logger
	opts   Options
}

// New creates an uploader for the target album
func New(target *gallery.Album, logger zerolog.Logger, opts Options) *Uploader {
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.SpaceReplacement == "" {
		opts.SpaceReplacement = gallery.DefaultSpaceReplacement
	}
	return &Uploader{
		target: target,
		logger: logger.With().Str("component", "uploader").Logger(),
		opts:   opts,
	}
}

// source is a file found while walking the inputs, before preparation
type source struct {
	path   string
	albums []string
}

// Plan collects the files named by paths and prepares them concurrently.
// Directories are expanded; with Recursive set, each directory becomes an album.
func (u *Uploader) Plan(ctx context.Context, paths []string) (*Plan, error) {
	plan := &Plan{}

	var sources []source
	for _, p := range paths {
		found, skipped, err := u.collect(p)
		if err != nil {
			return nil, err
		}
		sources = append(sources, found...)
		plan.Skipped = append(plan.Skipped, skipped...)
	}

	sources, dups := dedupe(sources)
	plan.Skipped = append(plan.Skipped, dups...)

	entries := make([]*Entry, len(sources))
	skips := make([]*Skip, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(u.opts.Concurrency)
	for i, src := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			entry, err := u.prepare(src)
			if err != nil {
				u.logger.Debug().Err(err).Str("path", src.path).Msg("Skipping file")
				skips[i] = &Skip{Path: src.path, Reason: err.Error()}
				return nil
			}
			entries[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range sources {
		switch {
		case entries[i] != nil:
			plan.Entries = append(plan.Entries, *entries[i])
		case skips[i] != nil:
			plan.Skipped = append(plan.Skipped, *skips[i])
		}
	}

	u.logger.Info().
		Int("files", len(plan.Entries)).
		Int("skipped", len(plan.Skipped)).
		Msg("Upload planned")

	return plan, nil
}

// collect expands one input path into sources
func (u *Uploader) collect(root string) ([]source, []Skip, error) {
	fi, err := os.Stat(root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat %s: %w", root, err)
	}
	if !fi.IsDir() {
		return []source{{path: root}}, nil, nil
	}

	root = filepath.Clean(root)
	base := filepath.Base(root)

	var (
		found   []source
		skipped []Skip
	)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			skipped = append(skipped, Skip{Path: path, Reason: err.Error()})
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && !u.opts.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			skipped = append(skipped, Skip{Path: path, Reason: "not a regular file"})
			return nil
		}

		src := source{path: path}
		if u.opts.Recursive {
			rel, err := filepath.Rel(root, filepath.Dir(path))
			if err != nil {
				return err
			}
			src.albums = []string{base}
			if rel != "." {
				src.albums = append(src.albums, strings.Split(filepath.ToSlash(rel), "/")...)
			}
		}
		found = append(found, src)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return found, skipped, nil
}

// prepare builds the asset and its title and description. The file handle is
// released before returning; the upload reopens it.
func (u *Uploader) prepare(src source) (*Entry, error) {
	asset, err := gallery.NewLocalAsset(src.path, gallery.WithSpaceReplacement(u.opts.SpaceReplacement))
	if err != nil {
		return nil, err
	}
	defer asset.Close()

	entry := &Entry{
		Path:   src.path,
		Albums: src.albums,
		Asset:  asset,
		Title:  strings.TrimSuffix(filepath.Base(src.path), filepath.Ext(src.path)),
	}

	if u.opts.ExifDescription && asset.Type() == gallery.TypePhoto {
		data, err := asset.Exif()
		if err != nil {
			return nil, err
		}
		entry.Description = data.Describe()
	}
	return entry, nil
}

// Run uploads the plan in order. Failures of single files are collected in the
// summary; a permission error or a cancelled context stops the run.
func (u *Uploader) Run(ctx context.Context, plan *Plan) (*Summary, error) {
	summary := &Summary{Skipped: len(plan.Skipped)}
	albums := newAlbumCache(u.target)

	for _, entry := range plan.Entries {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		log := u.logger.With().Str("file", entry.Path).Logger()

		album, created, err := albums.ensure(ctx, entry.Albums, u.opts.DryRun)
		summary.Albums += created
		if err != nil {
			log.Error().Err(err).Strs("albums", entry.Albums).Msg("Failed to prepare album")
			summary.Failed = append(summary.Failed, Failure{Path: entry.Path, Err: err})
			if errors.Is(err, gallery.ErrAuth) {
				return summary, err
			}
			continue
		}

		if u.opts.DryRun {
			log.Info().
				Str("name", entry.Asset.Filename()).
				Str("type", string(entry.Asset.Type())).
				Str("album", "/"+strings.Join(entry.Albums, "/")).
				Msg("[DRY RUN] Would upload")
			summary.Uploaded++
			continue
		}

		item, err := album.Add(ctx, entry.Asset, gallery.UploadOptions{
			Title:       entry.Title,
			Description: entry.Description,
		})
		if err != nil {
			log.Error().Err(err).Msg("Upload failed")
			summary.Failed = append(summary.Failed, Failure{Path: entry.Path, Err: err})
			if errors.Is(err, gallery.ErrAuth) || ctx.Err() != nil {
				return summary, err
			}
			continue
		}

		log.Info().Str("url", item.URL()).Msg("Uploaded")
		summary.Uploaded++
	}

	return summary, nil
}
