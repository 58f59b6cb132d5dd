package gallery

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const itemBase = "http://example.com:80/gallery3/index.php/rest/item/"

func itemURL(id int) string {
	return fmt.Sprintf("%s%d", itemBase, id)
}

// fakeTransport serves canned entities by URL and records every request.
type fakeTransport struct {
	entities map[string]map[string]any
	created  map[string]string
	fail     map[string]error
	requests []*Request
	counts   map[string]int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		entities: make(map[string]map[string]any),
		created:  make(map[string]string),
		fail:     make(map[string]error),
		counts:   make(map[string]int),
	}
}

func requestKey(m Method, u string) string {
	return string(m) + " " + u
}

func (f *fakeTransport) Send(_ context.Context, req *Request) ([]byte, error) {
	f.requests = append(f.requests, req)
	key := requestKey(req.Method, req.URL)
	f.counts[key]++

	if err, ok := f.fail[key]; ok {
		return nil, err
	}

	switch req.Method {
	case MethodGet:
		e, ok := f.entities[req.URL]
		if !ok {
			return nil, &HTTPError{StatusCode: 404, Body: []byte("not found")}
		}
		return json.Marshal(e)
	case MethodPost:
		newURL, ok := f.created[req.URL]
		if !ok {
			return nil, &HTTPError{StatusCode: 400, Body: []byte(`{"errors":{"type":"invalid"}}`)}
		}
		return json.Marshal(map[string]string{"url": newURL})
	default:
		return []byte("{}"), nil
	}
}

func (f *fakeTransport) count(m Method, u string) int {
	return f.counts[requestKey(m, u)]
}

func (f *fakeTransport) last() *Request {
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

// add registers an entity response. Members go at the top level like the REST module sends them.
func (f *fakeTransport) add(id int, typ ItemType, name string, members []int, extra map[string]any) string {
	u := itemURL(id)
	entity := map[string]any{
		"id":          id,
		"type":        string(typ),
		"name":        name,
		"title":       name,
		"description": "",
		"can_edit":    true,
		"created":     1700000000,
		"updated":     1700000100,
	}
	for k, v := range extra {
		entity[k] = v
	}
	resp := map[string]any{
		"url":    u,
		"entity": entity,
	}
	if typ == TypeAlbum {
		urls := make([]string, 0, len(members))
		for _, m := range members {
			urls = append(urls, itemURL(m))
		}
		resp["members"] = urls
	}
	f.entities[u] = resp
	return u
}

func newTestClient(t *testing.T, f *fakeTransport) *Client {
	t.Helper()
	c, err := NewClient("example.com", "test-key", zerolog.Nop(), WithTransport(f))
	require.NoError(t, err)
	return c
}

func ptr[T any](v T) *T {
	return &v
}
