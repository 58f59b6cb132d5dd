package gallery

import (
	"context"
	"net/url"
)

// API defines the interface for Gallery 3 operations
type API interface {
	// TestConnection verifies the host and API key
	TestConnection(ctx context.Context) error

	// Root returns the root album
	Root(ctx context.Context) (*Album, error)

	// Item fetches the item at a full REST URL
	Item(ctx context.Context, rawURL string) (Item, error)

	// ItemByID fetches an item by its numeric id
	ItemByID(ctx context.Context, id int) (Item, error)

	// GetRespFromURI issues a GET for a resource path relative to the install
	GetRespFromURI(ctx context.Context, uri string, query url.Values) ([]byte, error)
}

var _ API = (*Client)(nil)
