package uploader

import (
	"context"
	"fmt"
	"strings"

	"github.com/s0up4200/gallery3/gallery"
)

// albumCache maps album paths below the target to resolved albums. A nil album
// stands for one that a dry run would have created.
type albumCache struct {
	target *gallery.Album
	albums map[string]*gallery.Album
}

func newAlbumCache(target *gallery.Album) *albumCache {
	return &albumCache{
		target: target,
		albums: map[string]*gallery.Album{"": target},
	}
}

// ensure returns the album at names, creating missing ones unless dryRun is
// set. created counts the albums added (or that would be added).
func (c *albumCache) ensure(ctx context.Context, names []string, dryRun bool) (*gallery.Album, int, error) {
	var created int
	parent := c.target

	for i, name := range names {
		key := strings.Join(names[:i+1], "/")
		if album, ok := c.albums[key]; ok {
			parent = album
			continue
		}

		var album *gallery.Album
		if parent != nil {
			existing, err := findAlbum(ctx, parent, name)
			if err != nil {
				return nil, created, err
			}
			album = existing
		}

		if album == nil {
			created++
			if !dryRun {
				var err error
				album, err = parent.AddAlbum(ctx, name, name, "")
				if err != nil {
					return nil, created - 1, fmt.Errorf("failed to create album %s: %w", key, err)
				}
			}
		}

		c.albums[key] = album
		parent = album
	}

	return parent, created, nil
}

// findAlbum returns the sub-album of parent with the given name, or nil
func findAlbum(ctx context.Context, parent *gallery.Album, name string) (*gallery.Album, error) {
	subs, err := parent.Albums(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list albums of %s: %w", parent.URL(), err)
	}
	for _, a := range subs {
		if a.Name() == name {
			return a, nil
		}
	}
	return nil, nil
}
