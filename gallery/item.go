package gallery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ItemType is the value of a response's entity.type
type ItemType string

const (
	TypeAlbum ItemType = "album"
	TypePhoto ItemType = "photo"
	TypeMovie ItemType = "movie"
)

// Item is implemented by *Album, *RemoteImage and *RemoteMovie.
type Item interface {
	URL() string
	Type() ItemType
	Name() string
	Title() string
	Description() string
	Created() time.Time
	Updated() time.Time
	CanEdit() bool
	Parent() Item
	Attr(name string) (any, bool)
	AttrNames() []string
	Members(ctx context.Context) ([]Item, error)
	Link(ctx context.Context, name string) (Item, error)
	Update(ctx context.Context, u ItemUpdate) (Result, error)
	Delete(ctx context.Context) (Result, error)

	remote() *RemoteItem
}

// lazyState tracks a lazily resolved field.
type lazyState int

const (
	stateUnresolved lazyState = iota
	stateResolving
	stateResolved
)

// memberList keeps raw member URLs and resolved items side by side. A nil
// entry in items has not been fetched yet.
type memberList struct {
	state lazyState
	urls  []string
	items []Item
}

func newMemberList(urls []string) *memberList {
	m := &memberList{
		urls:  urls,
		items: make([]Item, len(urls)),
	}
	if len(urls) == 0 {
		m.state = stateResolved
	}
	return m
}

func (m *memberList) append(url string, item Item) {
	m.urls = append(m.urls, url)
	m.items = append(m.items, item)
}

func (m *memberList) remove(url string) bool {
	i := slices.Index(m.urls, url)
	if i < 0 {
		return false
	}
	m.urls = slices.Delete(m.urls, i, i+1)
	m.items = slices.Delete(m.items, i, i+1)
	return true
}

// itemLink is a single URL-valued field resolved on first access.
type itemLink struct {
	state lazyState
	url   string
	item  Item
}

// RemoteItem holds the state shared by every gallery item variant.
//
// client and parent are non-owning: the tree never keeps its client alive on
// purpose, and items must not be used once their client is discarded.
type RemoteItem struct {
	client  *Client
	parent  Item
	self    Item
	attrs   map[string]any
	links   map[string]*itemLink
	members *memberList
	deleted bool
}

// Result reports the outcome of a write operation.
type Result struct {
	Success bool
	Message string
}

// ItemUpdate lists the fields to change. Nil fields are left as they are.
type ItemUpdate struct {
	Title       *string
	Description *string
}

// NewItemFromResponse decodes an entity response and builds the matching variant.
func NewItemFromResponse(body []byte, client *Client, parent Item) (Item, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var resp map[string]any
	if err := dec.Decode(&resp); err != nil {
		return nil, &InvalidResponseError{Reason: fmt.Sprintf("malformed JSON: %v", err), Body: body}
	}

	entity, ok := resp["entity"].(map[string]any)
	if !ok {
		return nil, &InvalidResponseError{Reason: `response contains no "entity"`, Body: body}
	}
	rawType, ok := entity["type"]
	if !ok || rawType == nil {
		return nil, &InvalidResponseError{Reason: `response contains no "entity.type"`, Body: body}
	}
	typ, ok := rawType.(string)
	if !ok {
		return nil, &UnknownTypeError{Type: fmt.Sprint(rawType)}
	}

	var (
		item Item
		base *RemoteItem
	)
	switch ItemType(typ) {
	case TypeAlbum:
		a := &Album{}
		item, base = a, &a.RemoteItem
	case TypePhoto:
		img := &RemoteImage{}
		item, base = img, &img.RemoteItem
	case TypeMovie:
		mov := &RemoteMovie{}
		item, base = mov, &mov.RemoteItem
	default:
		return nil, &UnknownTypeError{Type: typ}
	}

	base.client = client
	base.parent = parent
	base.self = item
	base.attrs = make(map[string]any, len(resp)+len(entity))
	base.links = make(map[string]*itemLink)

	for k, v := range resp {
		if k == "entity" {
			continue
		}
		base.setField(k, v)
	}
	for k, v := range entity {
		base.setField(k, v)
	}

	return item, nil
}

// setField stores a decoded field, routing members and URL-valued fields to
// their unresolved form.
func (r *RemoteItem) setField(name string, v any) {
	if name == "members" {
		if urls, ok := stringList(v); ok {
			r.members = newMemberList(urls)
			delete(r.attrs, name)
			return
		}
	}
	if s, ok := v.(string); ok && isURL(s) && !strings.Contains(strings.ToLower(name), "url") {
		r.links[name] = &itemLink{url: s}
		delete(r.attrs, name)
		return
	}
	delete(r.links, name)
	r.attrs[name] = v
}

func (r *RemoteItem) remote() *RemoteItem {
	return r
}

// URL returns the REST URL identifying the item
func (r *RemoteItem) URL() string {
	return r.stringAttr("url")
}

// Type returns the entity type
func (r *RemoteItem) Type() ItemType {
	return ItemType(r.stringAttr("type"))
}

// Name returns the item's file or directory name on the server
func (r *RemoteItem) Name() string {
	return r.stringAttr("name")
}

// Title returns the item title
func (r *RemoteItem) Title() string {
	return r.stringAttr("title")
}

// Description returns the item description
func (r *RemoteItem) Description() string {
	return r.stringAttr("description")
}

// Created returns the creation time, or the zero time when unknown
func (r *RemoteItem) Created() time.Time {
	return r.timeAttr("created")
}

// Updated returns the last update time, or the zero time when unknown
func (r *RemoteItem) Updated() time.Time {
	return r.timeAttr("updated")
}

// CanEdit reports whether the current key may modify the item
func (r *RemoteItem) CanEdit() bool {
	switch v := r.attrs["can_edit"].(type) {
	case bool:
		return v
	case json.Number:
		n, err := v.Int64()
		return err == nil && n != 0
	case string:
		b, err := strconv.ParseBool(v)
		return err == nil && b
	default:
		return false
	}
}

// Parent returns the item this one was resolved from, if any
func (r *RemoteItem) Parent() Item {
	return r.parent
}

// Attr returns a plain attribute as decoded from the response.
func (r *RemoteItem) Attr(name string) (any, bool) {
	v, ok := r.attrs[name]
	return v, ok
}

// AttrNames returns the names of the plain attributes, sorted
func (r *RemoteItem) AttrNames() []string {
	return slices.Sorted(maps.Keys(r.attrs))
}

// LinkURL returns the raw URL of a lazily resolved field.
func (r *RemoteItem) LinkURL(name string) string {
	if l, ok := r.links[name]; ok {
		return l.url
	}
	return ""
}

// Link resolves a URL-valued field into an item. The result is cached; a
// field that does not exist yields (nil, nil).
func (r *RemoteItem) Link(ctx context.Context, name string) (Item, error) {
	l, ok := r.links[name]
	if !ok {
		return nil, nil
	}

	switch l.state {
	case stateResolved:
		return l.item, nil
	case stateResolving:
		return nil, &InvalidResponseError{Reason: fmt.Sprintf("cycle while resolving %q of %s", name, r.URL())}
	}

	l.state = stateResolving
	item, err := r.client.fetchItem(ctx, l.url, nil)
	if err != nil {
		l.state = stateUnresolved
		return nil, fmt.Errorf("failed to resolve %s: %w", name, err)
	}
	l.item = item
	l.state = stateResolved
	return item, nil
}

// MemberURLs returns the raw member URLs without resolving them.
func (r *RemoteItem) MemberURLs() []string {
	if r.members == nil {
		return nil
	}
	return slices.Clone(r.members.urls)
}

// Members resolves the item's children on first call and returns the cached
// list afterwards. Only members not fetched before are requested.
func (r *RemoteItem) Members(ctx context.Context) ([]Item, error) {
	m := r.members
	if m == nil {
		return nil, nil
	}

	switch m.state {
	case stateResolved:
		return slices.Clone(m.items), nil
	case stateResolving:
		return nil, &InvalidResponseError{Reason: "cycle while resolving members of " + r.URL()}
	}

	m.state = stateResolving
	var fetched int
	for i, u := range m.urls {
		if m.items[i] != nil {
			continue
		}
		item, err := r.client.fetchItem(ctx, u, r.self)
		if err != nil {
			m.state = stateUnresolved
			return nil, fmt.Errorf("failed to resolve member %s: %w", u, err)
		}
		m.items[i] = item
		fetched++
	}
	m.state = stateResolved

	r.client.logger.Debug().
		Str("url", r.URL()).
		Int("members", len(m.items)).
		Int("fetched", fetched).
		Msg("Resolved members")

	return slices.Clone(m.items), nil
}

// Update changes title and/or description. The values are applied locally,
// then sent; a failed request restores the previous values.
func (r *RemoteItem) Update(ctx context.Context, u ItemUpdate) (Result, error) {
	if err := r.checkEditable("update"); err != nil {
		return Result{}, err
	}
	if err := r.checkValid(); err != nil {
		return failure(err), nil
	}

	prevTitle, hadTitle := r.attrs["title"]
	prevDesc, hadDesc := r.attrs["description"]
	if u.Title != nil {
		r.attrs["title"] = *u.Title
	}
	if u.Description != nil {
		r.attrs["description"] = *u.Description
	}

	data := map[string]any{
		"title":       r.Title(),
		"description": r.Description(),
	}
	if _, err := r.client.send(ctx, MethodPut, r.URL(), data, nil); err != nil {
		restoreAttr(r.attrs, "title", prevTitle, hadTitle)
		restoreAttr(r.attrs, "description", prevDesc, hadDesc)
		return failure(err), nil
	}

	r.client.logger.Info().Str("url", r.URL()).Msg("Updated item")
	return Result{Success: true}, nil
}

// Delete removes the item on the server and detaches it from its parent.
func (r *RemoteItem) Delete(ctx context.Context) (Result, error) {
	if err := r.checkEditable("delete"); err != nil {
		return Result{}, err
	}
	if err := r.checkValid(); err != nil {
		return failure(err), nil
	}

	if _, err := r.client.send(ctx, MethodDelete, r.URL(), nil, nil); err != nil {
		return failure(err), nil
	}

	r.deleted = true
	if r.parent != nil {
		if pm := r.parent.remote().members; pm != nil {
			pm.remove(r.URL())
		}
	}
	r.client.forget(r.self)

	r.client.logger.Info().Str("url", r.URL()).Msg("Deleted item")
	return Result{Success: true}, nil
}

// checkEditable is the permission gate run before every mutating request
func (r *RemoteItem) checkEditable(op string) error {
	if !r.CanEdit() {
		return &AuthError{Op: op, URL: r.URL(), Message: "item is not editable with this API key"}
	}
	return nil
}

// checkValid rejects items that cannot be addressed on the server
func (r *RemoteItem) checkValid() error {
	if r.deleted {
		return &UnknownError{Message: fmt.Sprintf("%s has been deleted", r.URL())}
	}
	if r.client == nil {
		return &UnknownError{Message: "item has no client"}
	}
	if r.URL() == "" {
		return &UnknownError{Message: fmt.Sprintf("the %s item has no url", r.Type())}
	}
	return nil
}

func (r *RemoteItem) stringAttr(name string) string {
	switch v := r.attrs[name].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func (r *RemoteItem) intAttr(name string) (int64, bool) {
	switch v := r.attrs[name].(type) {
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}

func (r *RemoteItem) timeAttr(name string) time.Time {
	if n, ok := r.intAttr(name); ok && n > 0 {
		return time.Unix(n, 0)
	}
	return time.Time{}
}

func restoreAttr(attrs map[string]any, name string, prev any, had bool) {
	if had {
		attrs[name] = prev
		return
	}
	delete(attrs, name)
}

func failure(err error) Result {
	return Result{Success: false, Message: err.Error()}
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func stringList(v any) ([]string, bool) {
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		s, ok := e.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}
