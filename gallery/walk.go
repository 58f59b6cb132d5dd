package gallery

import (
	"context"
	"errors"
	"slices"
	"strings"
)

// SkipDir can be returned by a WalkFunc to skip an album's members.
var SkipDir = errors.New("skip this album")

// WalkFunc is called for every item visited by Walk. depth is 0 for the start item.
type WalkFunc func(item Item, depth int) error

// Walk visits item and then, depth first, every member of every album below it.
// Members are resolved as they are reached.
func Walk(ctx context.Context, item Item, fn WalkFunc) error {
	err := walk(ctx, item, 0, fn)
	if errors.Is(err, SkipDir) {
		return nil
	}
	return err
}

func walk(ctx context.Context, item Item, depth int, fn WalkFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(item, depth); err != nil {
		return err
	}
	if item.Type() != TypeAlbum {
		return nil
	}

	members, err := item.Members(ctx)
	if err != nil {
		return err
	}
	for _, m := range members {
		if err := walk(ctx, m, depth+1, fn); err != nil {
			if errors.Is(err, SkipDir) {
				continue
			}
			return err
		}
	}
	return nil
}

// ItemPath joins the names of item and its resolved parents with "/". The root
// album contributes no segment. When the chain of parents stops short of the
// root, as for an item fetched by URL or id, the path is relative to the
// topmost known ancestor and has no leading slash.
func ItemPath(item Item) string {
	parts, rooted := pathParts(item)
	if !rooted {
		return strings.Join(parts, "/")
	}
	return "/" + strings.Join(parts, "/")
}

// ResolvePath is ItemPath for items whose parents were not resolved. It
// follows the "parent" link of the topmost known ancestor until it reaches the
// root album.
func ResolvePath(ctx context.Context, item Item) (string, error) {
	parts, rooted := pathParts(item)
	top := item
	for top != nil && top.Parent() != nil {
		top = top.Parent()
	}

	seen := make(map[string]bool)
	for !rooted && top != nil {
		if seen[top.URL()] {
			return "", &InvalidResponseError{Reason: "parent cycle at " + top.URL()}
		}
		seen[top.URL()] = true

		parent, err := top.Link(ctx, "parent")
		if err != nil {
			return "", err
		}
		if parent == nil {
			return "", &InvalidResponseError{Reason: "no parent link on " + top.URL()}
		}
		if isRoot(parent) {
			break
		}
		parts = append([]string{parent.Name()}, parts...)
		top = parent
	}
	return "/" + strings.Join(parts, "/"), nil
}

// pathParts collects names from the topmost known ancestor down to item and
// reports whether that ancestor is the root album.
func pathParts(item Item) ([]string, bool) {
	var parts []string
	rooted := false
	for it := item; it != nil; it = it.Parent() {
		if isRoot(it) {
			rooted = true
			break
		}
		parts = append(parts, it.Name())
	}
	slices.Reverse(parts)
	return parts, rooted
}

// isRoot reports whether item is the root album (item 1) of its gallery.
func isRoot(item Item) bool {
	if item.Type() != TypeAlbum {
		return false
	}
	if r := item.remote(); r != nil && r.client != nil {
		return item.URL() == r.client.BuildURL(rootURI, nil)
	}
	return strings.HasSuffix(strings.TrimRight(item.URL(), "/"), "/item/1")
}
