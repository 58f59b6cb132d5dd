package gallery

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serverOptions points a client at an httptest server
func serverOptions(t *testing.T, server *httptest.Server) (string, []Option) {
	t.Helper()
	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return u.Hostname(), []Option{WithPort(port), WithTimeout(5 * time.Second)}
}

func TestNewClient(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name    string
		host    string
		apiKey  string
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid config",
			host:   "example.com",
			apiKey: "test-key",
		},
		{
			name:    "missing host",
			apiKey:  "test-key",
			wantErr: true,
			errMsg:  "host is required",
		},
		{
			name:    "missing API key",
			host:    "example.com",
			wantErr: true,
			errMsg:  "API key is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.host, tt.apiKey, logger)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.apiKey, client.APIKey())
			assert.Nil(t, client.root)
		})
	}
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name     string
		opts     []Option
		resource string
		query    url.Values
		want     string
	}{
		{
			name:     "defaults",
			resource: "index.php/rest/item/1",
			want:     "http://example.com:80/gallery3/index.php/rest/item/1",
		},
		{
			name:     "ssl and port",
			opts:     []Option{WithSSL(true), WithPort(443)},
			resource: "index.php/rest/item/1",
			want:     "https://example.com:443/gallery3/index.php/rest/item/1",
		},
		{
			name:     "base path slashes stripped",
			opts:     []Option{WithBasePath("/photos/g3/")},
			resource: "/index.php/rest",
			want:     "http://example.com:80/photos/g3/index.php/rest",
		},
		{
			name:     "empty base path",
			opts:     []Option{WithBasePath("")},
			resource: "index.php/rest",
			want:     "http://example.com:80/index.php/rest",
		},
		{
			name:     "segments escaped",
			resource: "index.php/rest/item tags/a&b",
			want:     "http://example.com:80/gallery3/index.php/rest/item%20tags/a&b",
		},
		{
			name:     "query",
			resource: "index.php/rest/items",
			query:    url.Values{"urls": {`["x"]`}},
			want:     "http://example.com:80/gallery3/index.php/rest/items?urls=%5B%22x%22%5D",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient("example.com", "k", zerolog.Nop(), tt.opts...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.BuildURL(tt.resource, tt.query))
		})
	}
}

func TestLogin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gallery3/index.php/rest", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "post", r.Header.Get(HeaderRequestMethod))
		assert.Empty(t, r.Header.Get(HeaderRequestKey))
		assert.NoError(t, r.ParseForm())

		if r.PostForm.Get("user") != "admin" || r.PostForm.Get("password") != "secret" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		io.WriteString(w, `"0123456789abcdef"`+"\n")
	}))
	defer server.Close()

	host, opts := serverOptions(t, server)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		c, err := Login(ctx, host, "admin", "secret", zerolog.Nop(), opts...)
		require.NoError(t, err)
		assert.Equal(t, "0123456789abcdef", c.APIKey())
	})

	t.Run("rejected", func(t *testing.T) {
		_, err := Login(ctx, host, "admin", "wrong", zerolog.Nop(), opts...)
		require.Error(t, err)
		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, http.StatusForbidden, authErr.StatusCode)
		assert.Equal(t, "login", authErr.Op)
	})
}

func TestLoginEmptyKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `""`)
	}))
	defer server.Close()

	host, opts := serverOptions(t, server)
	_, err := Login(context.Background(), host, "a", "b", zerolog.Nop(), opts...)
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestRootOverHTTP(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, "/gallery3/index.php/rest/item/1", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "get", r.Header.Get(HeaderRequestMethod))
		assert.Equal(t, "test-key", r.Header.Get(HeaderRequestKey))

		json.NewEncoder(w).Encode(map[string]any{
			"url":     "http://" + r.Host + r.URL.Path,
			"entity":  map[string]any{"type": "album", "name": "", "title": "Gallery", "can_edit": true},
			"members": []string{},
		})
	}))
	defer server.Close()

	host, opts := serverOptions(t, server)
	c, err := NewClient(host, "test-key", zerolog.Nop(), opts...)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.TestConnection(ctx))

	root, err := c.Root(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Gallery", root.Title())
	assert.Nil(t, root.Parent())
	assert.Equal(t, 1, hits)
}

func TestRootRejectsNonAlbum(t *testing.T) {
	f := newFakeTransport()
	f.add(1, TypePhoto, "odd.jpg", nil, nil)
	c := newTestClient(t, f)

	_, err := c.Root(context.Background())
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestItemByID(t *testing.T) {
	f := newFakeTransport()
	f.add(1, TypeAlbum, "root", nil, nil)
	f.add(12, TypePhoto, "a.jpg", nil, nil)
	c := newTestClient(t, f)
	ctx := context.Background()

	item, err := c.ItemByID(ctx, 12)
	require.NoError(t, err)
	assert.Equal(t, "a.jpg", item.Name())
	assert.Nil(t, item.Parent())

	root, err := c.ItemByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, TypeAlbum, root.Type())

	_, err = c.ItemByID(ctx, 99)
	var unkErr *UnknownError
	require.ErrorAs(t, err, &unkErr)
	assert.Equal(t, 404, unkErr.StatusCode)
}

func TestHTTPTransport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "put", r.Header.Get(HeaderRequestMethod))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		body, _ := io.ReadAll(r.Body)
		entity, err := DecodeEntity(body)
		assert.NoError(t, err)

		if entity["title"] == "bad" {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"errors":{"title":"invalid"}}`)
			return
		}
		io.WriteString(w, "{}")
	}))
	defer server.Close()

	tr := NewHTTPTransport(5 * time.Second)
	ctx := context.Background()

	req, err := NewRequest(MethodPut, server.URL+"/item/2", "k", map[string]any{"title": "good"}, nil)
	require.NoError(t, err)
	body, err := tr.Send(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(body))

	req, err = NewRequest(MethodPut, server.URL+"/item/2", "k", map[string]any{"title": "bad"}, nil)
	require.NoError(t, err)
	_, err = tr.Send(ctx, req)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	assert.JSONEq(t, `{"errors":{"title":"invalid"}}`, string(httpErr.Body))
}

func TestHTTPTransportWithClientAddsJar(t *testing.T) {
	custom := &http.Client{Timeout: 10 * time.Second}
	tr := NewHTTPTransportWithClient(custom)
	assert.Same(t, custom, tr.httpClient)
	assert.NotNil(t, custom.Jar)
}

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/gallery3/index.php/rest/item/3":
			json.NewEncoder(w).Encode(map[string]any{
				"url": "http://" + r.Host + r.URL.Path,
				"entity": map[string]any{
					"type":      "photo",
					"name":      "a.jpg",
					"mime_type": "image/jpeg",
					"file_url":  "http://" + r.Host + "/gallery3/index.php/rest/data/3?size=full",
					"thumb_url": "http://" + r.Host + "/gallery3/index.php/rest/data/3?size=thumb",
				},
			})
		case "/gallery3/index.php/rest/data/3":
			io.WriteString(w, "image-"+r.URL.Query().Get("size"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	host, opts := serverOptions(t, server)
	c, err := NewClient(host, "k", zerolog.Nop(), opts...)
	require.NoError(t, err)
	ctx := context.Background()

	item, err := c.ItemByID(ctx, 3)
	require.NoError(t, err)
	img := item.(*RemoteImage)
	assert.Equal(t, "image/jpeg", img.MimeType())

	for _, size := range []Size{SizeFull, SizeThumb} {
		rc, err := img.Download(ctx, size)
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		assert.Equal(t, "image-"+string(size), string(data))
	}

	_, err = img.Download(ctx, SizeResize)
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestDownloadBufferedTransport(t *testing.T) {
	f := newFakeTransport()
	u := f.add(3, TypePhoto, "a.jpg", nil, map[string]any{"file_url": itemURL(3)})
	c := newTestClient(t, f)
	ctx := context.Background()

	item, err := c.Item(ctx, u)
	require.NoError(t, err)

	rc, err := item.(*RemoteImage).Download(ctx, SizeFull)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"a.jpg"`)
}
