// Package gallery provides a client for the Gallery 3 REST API.
//
// Gallery 3 exposes albums, photos and movies as JSON entities linked by URL.
// This package maps those entities onto a lazily resolved object tree.
//
// # Architecture
//
// The package is organized into several components:
//
//   - Client: Session state (host, API key) and the single request path
//   - Request/Transport: Method-tagged requests and the HTTP layer that sends them
//   - Items: Album, RemoteImage and RemoteMovie built from entity responses
//   - LocalAsset: A file on disk staged for a multipart upload
//   - Errors: Structured error types for permission, response and request failures
//
// # Usage
//
// Log in once and walk the tree from the root album:
//
//	logger := zerolog.New(os.Stdout)
//	client, err := gallery.Login(ctx, "photos.example.com", "user", "secret", logger,
//		gallery.WithSSL(true),
//		gallery.WithPort(443),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	root, err := client.Root(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	albums, err := root.Albums(ctx)
//
// Members and URL-valued fields (album_cover, parent, ...) are fetched on first
// access and cached on the item. Items hold a plain pointer to their client and
// parent; they must not outlive the client they came from.
//
// # Requests
//
// Only GET and POST travel on the wire. The REST verb is sent in the
// X-Gallery-Request-Method header and the API key in X-Gallery-Request-Key.
// Mapping bodies are sent as a single "entity" form field holding JSON.
//
// # Error Handling
//
// Write operations on items (Update, Delete, SetCover) return a Result. The
// error return is reserved for *AuthError, raised before any I/O when the item
// is not editable. Creation operations return errors directly:
//
//   - *AuthError: Permission precondition failed or login rejected
//   - *InvalidResponseError: Response lacks the expected entity structure
//   - *UnknownTypeError: entity.type is not album, photo or movie
//   - *RequestError: Server rejected the request with field errors
//   - *UnknownError: Anything else, wrapping the cause
//
// Each matches its sentinel with errors.Is:
//
//	if errors.Is(err, gallery.ErrAuth) {
//		// Handle permission failure
//	}
package gallery
