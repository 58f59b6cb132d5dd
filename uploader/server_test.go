package uploader

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/gallery3/gallery"
)

const restPrefix = "/gallery3/index.php/rest/item/"

type node struct {
	id          int
	typ         string
	name        string
	title       string
	description string
	content     []byte
	members     []int
}

// galleryServer is a minimal in-memory Gallery 3 REST endpoint
type galleryServer struct {
	mu     sync.Mutex
	nodes  map[int]*node
	nextID int
	posts  int
	srv    *httptest.Server
}

func newGalleryServer(t *testing.T) *galleryServer {
	t.Helper()
	s := &galleryServer{
		nodes:  map[int]*node{1: {id: 1, typ: "album", name: "", title: "Gallery"}},
		nextID: 2,
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *galleryServer) itemURL(r *http.Request, id int) string {
	return fmt.Sprintf("http://%s%s%d", r.Host, restPrefix, id)
}

func (s *galleryServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Header.Get(gallery.HeaderRequestKey) != "test-key" {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	id, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, restPrefix))
	n, ok := s.nodes[id]
	if err != nil || !ok {
		http.NotFound(w, r)
		return
	}

	switch r.Header.Get(gallery.HeaderRequestMethod) {
	case "get":
		members := make([]string, 0, len(n.members))
		for _, m := range n.members {
			members = append(members, s.itemURL(r, m))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"url": s.itemURL(r, id),
			"entity": map[string]any{
				"id":          id,
				"type":        n.typ,
				"name":        n.name,
				"title":       n.title,
				"description": n.description,
				"can_edit":    true,
			},
			"members": members,
		})
	case "post":
		child, err := s.create(r)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, `{"errors":{"entity":%q}}`, err.Error())
			return
		}
		child.id = s.nextID
		s.nextID++
		s.nodes[child.id] = child
		n.members = append(n.members, child.id)
		s.posts++
		json.NewEncoder(w).Encode(map[string]string{"url": s.itemURL(r, child.id)})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *galleryServer) create(r *http.Request) (*node, error) {
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}

	var (
		entity  map[string]string
		content []byte
	)
	if mediaType == "multipart/form-data" {
		mr := multipart.NewReader(r.Body, params["boundary"])
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, err
			}
			data, err := io.ReadAll(part)
			if err != nil {
				return nil, err
			}
			switch part.FormName() {
			case "entity":
				if err := json.Unmarshal(data, &entity); err != nil {
					return nil, err
				}
			case "file":
				content = data
			}
		}
	} else {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		form, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(form.Get("entity")), &entity); err != nil {
			return nil, err
		}
	}

	if entity["name"] == "" {
		return nil, fmt.Errorf("missing name")
	}
	return &node{
		typ:         entity["type"],
		name:        entity["name"],
		title:       entity["title"],
		description: entity["description"],
		content:     content,
	}, nil
}

// find returns the child of parent with the given name
func (s *galleryServer) find(parent int, name string) *node {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.nodes[parent].members {
		if s.nodes[id].name == name {
			return s.nodes[id]
		}
	}
	return nil
}

func (s *galleryServer) addAlbum(parent int, name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.nodes[id] = &node{id: id, typ: "album", name: name, title: name}
	s.nodes[parent].members = append(s.nodes[parent].members, id)
	return id
}

func (s *galleryServer) root(t *testing.T) *gallery.Album {
	t.Helper()
	u, err := url.Parse(s.srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	client, err := gallery.NewClient(u.Hostname(), "test-key", zerolog.Nop(), gallery.WithPort(port))
	require.NoError(t, err)
	root, err := client.Root(t.Context())
	require.NoError(t, err)
	return root
}
