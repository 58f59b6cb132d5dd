package gallery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Defaults matching a stock Gallery 3 install
const (
	DefaultBasePath = "/gallery3"
	DefaultPort     = 80

	restPath = "index.php/rest"
	rootURI  = restPath + "/item/1"
)

// Client represents a Gallery 3 REST API client. It is not safe for
// concurrent use: the session and the item caches are mutated in place.
type Client struct {
	host      string
	apiKey    string
	basePath  string
	port      int
	ssl       bool
	transport Transport
	logger    zerolog.Logger

	root *Album
}

// NewClient creates a client for an existing API key. No request is made.
func NewClient(host, apiKey string, logger zerolog.Logger, opts ...Option) (*Client, error) {
	if host == "" {
		return nil, fmt.Errorf("gallery host is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gallery API key is required")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return newClient(host, apiKey, o, o.buildTransport(), logger), nil
}

func newClient(host, apiKey string, o clientOptions, t Transport, logger zerolog.Logger) *Client {
	return &Client{
		host:      host,
		apiKey:    apiKey,
		basePath:  strings.Trim(o.basePath, "/"),
		port:      o.port,
		ssl:       o.ssl,
		transport: t,
		logger:    logger,
	}
}

// Login exchanges a username and password for an API key and returns a
// client using it. A rejected login is reported as *AuthError.
func Login(ctx context.Context, host, username, password string, logger zerolog.Logger, opts ...Option) (*Client, error) {
	if host == "" {
		return nil, fmt.Errorf("gallery host is required")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	t := o.buildTransport()
	c := newClient(host, "", o, t, logger)

	loginURL := c.BuildURL(restPath, nil)
	form := url.Values{
		"user":     {username},
		"password": {password},
	}
	req, err := NewRequest(MethodPost, loginURL, "", form.Encode(), nil)
	if err != nil {
		return nil, err
	}

	logger.Debug().Str("url", loginURL).Str("user", username).Msg("Logging in")

	body, err := t.Send(ctx, req)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			return nil, &AuthError{
				Op:         "login",
				URL:        loginURL,
				StatusCode: httpErr.StatusCode,
				Message:    fmt.Sprintf("login rejected for user %q", username),
			}
		}
		return nil, &UnknownError{Message: "login failed", Err: err}
	}

	apiKey := strings.Trim(strings.TrimSpace(string(body)), `'"`)
	if apiKey == "" {
		return nil, &InvalidResponseError{Reason: "login returned an empty API key", Body: body}
	}
	c.apiKey = apiKey

	logger.Info().Str("host", host).Str("user", username).Msg("Logged in")
	return c, nil
}

// APIKey returns the key sent with every request
func (c *Client) APIKey() string {
	return c.apiKey
}

// Root returns the root album (item 1). It is fetched once and cached.
func (c *Client) Root(ctx context.Context) (*Album, error) {
	if c.root != nil {
		return c.root, nil
	}

	body, err := c.GetRespFromURI(ctx, rootURI, nil)
	if err != nil {
		return nil, err
	}
	item, err := NewItemFromResponse(body, c, nil)
	if err != nil {
		return nil, err
	}
	root, ok := item.(*Album)
	if !ok {
		return nil, &InvalidResponseError{Reason: fmt.Sprintf("root item is a %s, expected album", item.Type()), Body: body}
	}
	c.root = root
	return root, nil
}

// TestConnection verifies the host and API key by fetching the root album
func (c *Client) TestConnection(ctx context.Context) error {
	if _, err := c.Root(ctx); err != nil {
		return err
	}
	c.logger.Debug().Str("host", c.host).Msg("Successfully connected to Gallery")
	return nil
}

// Item fetches the item at a full REST URL
func (c *Client) Item(ctx context.Context, rawURL string) (Item, error) {
	return c.fetchItem(ctx, rawURL, nil)
}

// ItemByID fetches an item by its numeric id
func (c *Client) ItemByID(ctx context.Context, id int) (Item, error) {
	if id == 1 {
		return c.Root(ctx)
	}
	return c.Item(ctx, c.BuildURL(restPath+"/item/"+strconv.Itoa(id), nil))
}

// GetRespFromURL issues a GET for a full URL and returns the body.
func (c *Client) GetRespFromURL(ctx context.Context, rawURL string) ([]byte, error) {
	return c.send(ctx, MethodGet, rawURL, nil, nil)
}

// GetRespFromURI issues a GET for a resource path relative to the install.
func (c *Client) GetRespFromURI(ctx context.Context, uri string, query url.Values) ([]byte, error) {
	return c.GetRespFromURL(ctx, c.BuildURL(uri, query))
}

// BuildURL composes protocol, host, port, base path and the percent-encoded resource.
func (c *Client) BuildURL(resource string, query url.Values) string {
	scheme := "http"
	if c.ssl {
		scheme = "https"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s://%s:%d/", scheme, c.host, c.port)
	if c.basePath != "" {
		b.WriteString(escapePath(c.basePath))
		b.WriteByte('/')
	}
	b.WriteString(escapePath(strings.TrimLeft(resource, "/")))
	if len(query) > 0 {
		b.WriteByte('?')
		b.WriteString(query.Encode())
	}
	return b.String()
}

// escapePath percent-encodes each segment and keeps the separators
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// fetchItem GETs rawURL and builds the item with the given parent
func (c *Client) fetchItem(ctx context.Context, rawURL string, parent Item) (Item, error) {
	if c == nil {
		return nil, &UnknownError{Message: "item has no client"}
	}
	body, err := c.GetRespFromURL(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return NewItemFromResponse(body, c, parent)
}

// send builds and dispatches a request with the client's key
func (c *Client) send(ctx context.Context, method Method, rawURL string, body any, header http.Header) ([]byte, error) {
	req, err := NewRequest(method, rawURL, c.apiKey, body, header)
	if err != nil {
		return nil, err
	}
	return c.openRequest(ctx, req)
}

// openRequest dispatches through the transport. It is the single place where
// transport failures become domain errors.
func (c *Client) openRequest(ctx context.Context, req *Request) ([]byte, error) {
	c.logger.Debug().
		Str("method", string(req.Method)).
		Str("url", req.URL).
		Msg("Making Gallery API request")

	body, err := c.transport.Send(ctx, req)
	if err != nil {
		return nil, translateError(err)
	}
	return body, nil
}

// open streams a GET response, falling back to a buffered body when the
// transport cannot stream.
func (c *Client) open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := NewRequest(MethodGet, rawURL, c.apiKey, nil, nil)
	if err != nil {
		return nil, err
	}

	if o, ok := c.transport.(Opener); ok {
		rc, err := o.Open(ctx, req)
		if err != nil {
			return nil, translateError(err)
		}
		return rc, nil
	}

	body, err := c.openRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

// forget drops cached references to a deleted item: the cached root itself,
// or the item's URL in any member list already loaded below the root.
func (c *Client) forget(item Item) {
	if c.root == nil {
		return
	}
	if Item(c.root) == item {
		c.root = nil
		return
	}
	pruneMember(c.root, item.URL())
}

// pruneMember removes url from the member lists of album and of every loaded
// album below it. Nothing is fetched.
func pruneMember(album Item, url string) {
	m := album.remote().members
	if m == nil {
		return
	}
	m.remove(url)
	for _, child := range m.items {
		if child != nil && child.Type() == TypeAlbum {
			pruneMember(child, url)
		}
	}
}

// translateError maps a transport failure into the error taxonomy.
func translateError(err error) error {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return &UnknownError{Message: "request failed", Err: err}
	}

	var payload struct {
		Errors map[string]any `json:"errors"`
	}
	if json.Unmarshal(httpErr.Body, &payload) == nil && len(payload.Errors) > 0 {
		fields := make(map[string]string, len(payload.Errors))
		for k, v := range payload.Errors {
			fields[k] = fmt.Sprint(v)
		}
		return &RequestError{StatusCode: httpErr.StatusCode, Fields: fields}
	}

	return &UnknownError{
		StatusCode: httpErr.StatusCode,
		Message:    strings.TrimSpace(string(httpErr.Body)),
		Body:       httpErr.Body,
		Err:        err,
	}
}
