package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/s0up4200/gallery3/gallery"
)

// resolveItem finds the item named by ref. A ref is a numeric item id, a full
// REST URL, or a slash-separated path of item names below the root album.
func resolveItem(ctx context.Context, client gallery.API, ref string) (gallery.Item, error) {
	ref = strings.TrimSpace(ref)

	if id, err := strconv.Atoi(ref); err == nil {
		return client.ItemByID(ctx, id)
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return client.Item(ctx, ref)
	}

	root, err := client.Root(ctx)
	if err != nil {
		return nil, err
	}

	var current gallery.Item = root
	for _, name := range strings.Split(ref, "/") {
		if name == "" {
			continue
		}
		next, err := findMember(ctx, current, name)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

// resolveAlbum is resolveItem for refs that must name an album
func resolveAlbum(ctx context.Context, client gallery.API, ref string) (*gallery.Album, error) {
	item, err := resolveItem(ctx, client, ref)
	if err != nil {
		return nil, err
	}
	album, ok := item.(*gallery.Album)
	if !ok {
		return nil, fmt.Errorf("%s is a %s, not an album", ref, item.Type())
	}
	return album, nil
}

func findMember(ctx context.Context, parent gallery.Item, name string) (gallery.Item, error) {
	if parent.Type() != gallery.TypeAlbum {
		return nil, fmt.Errorf("%s is not an album", gallery.ItemPath(parent))
	}
	members, err := parent.Members(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", gallery.ItemPath(parent), err)
	}
	for _, m := range members {
		if m.Name() == name {
			return m, nil
		}
	}
	return nil, fmt.Errorf("no item named %q in %s", name, gallery.ItemPath(parent))
}
