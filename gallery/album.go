package gallery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Album is a gallery item holding an ordered list of sub-albums, photos and movies.
type Album struct {
	RemoteItem
}

// UploadOptions describe a new photo or movie. Name overrides the asset's filename.
type UploadOptions struct {
	Title       string
	Description string
	Name        string
}

// Albums returns the sub-albums among the members
func (a *Album) Albums(ctx context.Context) ([]*Album, error) {
	return membersOf[*Album](ctx, a, TypeAlbum)
}

// Images returns the photos among the members
func (a *Album) Images(ctx context.Context) ([]*RemoteImage, error) {
	return membersOf[*RemoteImage](ctx, a, TypePhoto)
}

// Movies returns the movies among the members
func (a *Album) Movies(ctx context.Context) ([]*RemoteMovie, error) {
	return membersOf[*RemoteMovie](ctx, a, TypeMovie)
}

// membersOf filters the resolved members by type. It is recomputed on every
// call since membership changes with add and delete.
func membersOf[T Item](ctx context.Context, a *Album, typ ItemType) ([]T, error) {
	members, err := a.Members(ctx)
	if err != nil {
		return nil, err
	}
	var out []T
	for _, m := range members {
		if m.Type() != typ {
			continue
		}
		if v, ok := m.(T); ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// AlbumCover resolves the album's cover item
func (a *Album) AlbumCover(ctx context.Context) (Item, error) {
	return a.Link(ctx, "album_cover")
}

// AddAlbum creates a sub-album and appends it to the members.
func (a *Album) AddAlbum(ctx context.Context, name, title, description string) (*Album, error) {
	if err := a.checkEditable("add album"); err != nil {
		return nil, err
	}
	data := map[string]any{
		"type":        string(TypeAlbum),
		"name":        name,
		"title":       title,
		"description": description,
	}
	item, err := a.createChild(ctx, TypeAlbum, data, nil)
	if err != nil {
		return nil, err
	}
	return item.(*Album), nil
}

// AddImage uploads a local photo into the album.
func (a *Album) AddImage(ctx context.Context, asset *LocalAsset, opts UploadOptions) (*RemoteImage, error) {
	item, err := a.upload(ctx, asset, TypePhoto, opts)
	if err != nil {
		return nil, err
	}
	return item.(*RemoteImage), nil
}

// AddMovie uploads a local movie into the album.
func (a *Album) AddMovie(ctx context.Context, asset *LocalAsset, opts UploadOptions) (*RemoteMovie, error) {
	item, err := a.upload(ctx, asset, TypeMovie, opts)
	if err != nil {
		return nil, err
	}
	return item.(*RemoteMovie), nil
}

// Add uploads an asset as a photo or movie depending on its type.
func (a *Album) Add(ctx context.Context, asset *LocalAsset, opts UploadOptions) (Item, error) {
	return a.upload(ctx, asset, asset.Type(), opts)
}

func (a *Album) upload(ctx context.Context, asset *LocalAsset, want ItemType, opts UploadOptions) (Item, error) {
	defer asset.Close()

	if err := a.checkEditable("add " + string(want)); err != nil {
		return nil, err
	}
	if asset.Type() != want {
		return nil, fmt.Errorf("asset %s is a %s, not a %s", asset.Path(), asset.Type(), want)
	}
	if opts.Name != "" {
		asset.SetFilename(opts.Name)
	}

	entity := map[string]any{
		"name":        asset.Filename(),
		"type":        string(asset.Type()),
		"title":       opts.Title,
		"description": opts.Description,
	}
	body, contentType, err := buildUploadBody(entity, asset, newBoundary())
	if err != nil {
		return nil, err
	}

	a.client.logger.Debug().
		Str("album", a.URL()).
		Str("file", asset.Filename()).
		Str("content_type", asset.ContentType()).
		Int("bytes", len(body)).
		Msg("Uploading asset")

	header := http.Header{"Content-Type": {contentType}}
	return a.createChild(ctx, want, body, header)
}

// createChild posts a creation request, fetches the new resource and appends
// it to both member lists.
func (a *Album) createChild(ctx context.Context, want ItemType, body any, header http.Header) (Item, error) {
	if err := a.checkValid(); err != nil {
		return nil, err
	}

	resp, err := a.client.send(ctx, MethodPost, a.URL(), body, header)
	if err != nil {
		return nil, err
	}
	newURL, err := urlFromResponse(resp)
	if err != nil {
		return nil, err
	}

	item, err := a.client.fetchItem(ctx, newURL, a)
	if err != nil {
		return nil, err
	}
	if item.Type() != want {
		return nil, &InvalidResponseError{Reason: fmt.Sprintf("created %s is a %s, expected %s", newURL, item.Type(), want)}
	}

	if a.members == nil {
		a.members = newMemberList(nil)
	}
	a.members.append(newURL, item)

	a.client.logger.Info().
		Str("album", a.URL()).
		Str("url", newURL).
		Str("type", string(want)).
		Msg("Created item")

	return item, nil
}

// SetCover makes a photo or movie the album's cover.
func (a *Album) SetCover(ctx context.Context, cover Item) (Result, error) {
	if err := a.checkEditable("set cover"); err != nil {
		return Result{}, err
	}
	if err := a.checkValid(); err != nil {
		return failure(err), nil
	}

	switch cover.(type) {
	case *RemoteImage, *RemoteMovie:
	default:
		return failure(&UnknownError{Message: fmt.Sprintf("album cover must be a photo or movie, got %T", cover)}), nil
	}
	coverURL := cover.URL()
	if coverURL == "" {
		return failure(&UnknownError{Message: "album cover has no url"}), nil
	}

	data := map[string]any{"album_cover": coverURL}
	if _, err := a.client.send(ctx, MethodPut, a.URL(), data, nil); err != nil {
		return failure(err), nil
	}

	if a.links == nil {
		a.links = make(map[string]*itemLink)
	}
	a.links["album_cover"] = &itemLink{state: stateResolved, url: coverURL, item: cover}
	return Result{Success: true}, nil
}

// urlFromResponse extracts the "url" of a creation response
func urlFromResponse(body []byte) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &InvalidResponseError{Reason: fmt.Sprintf("malformed JSON: %v", err), Body: body}
	}
	if resp.URL == "" {
		return "", &InvalidResponseError{Reason: `creation response contains no "url"`, Body: body}
	}
	return resp.URL, nil
}
