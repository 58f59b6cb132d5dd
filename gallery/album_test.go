package gallery

import (
	"bytes"
	"context"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAsset(t *testing.T, name string, content []byte) *LocalAsset {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	asset, err := NewLocalAsset(path)
	require.NoError(t, err)
	return asset
}

func TestAddAlbum(t *testing.T) {
	f := newFakeTransport()
	albumURL := f.add(2, TypeAlbum, "A", nil, nil)
	f.created[albumURL] = itemURL(5)
	f.add(5, TypeAlbum, "n", nil, map[string]any{"title": "T"})
	c := newTestClient(t, f)
	ctx := context.Background()

	item, err := c.Item(ctx, albumURL)
	require.NoError(t, err)
	parent := item.(*Album)

	child, err := parent.AddAlbum(ctx, "n", "T", "D")
	require.NoError(t, err)

	assert.Equal(t, 1, f.count(MethodPost, albumURL))
	assert.Equal(t, 1, f.count(MethodGet, itemURL(5)))
	assert.Equal(t, "T", child.Title())
	assert.Same(t, Item(parent), child.Parent())

	post := f.requests[len(f.requests)-2]
	sent, err := DecodeEntity(post.Body)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"type": "album", "name": "n", "title": "T", "description": "D"}, sent)

	members, err := parent.Members(ctx)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Same(t, Item(child), members[0])

	albums, err := parent.Albums(ctx)
	require.NoError(t, err)
	require.Len(t, albums, 1)
	assert.Same(t, child, albums[0])
}

func TestAddAlbumWhileMembersUnresolved(t *testing.T) {
	f := newFakeTransport()
	f.add(1, TypeAlbum, "root", []int{2}, nil)
	f.add(2, TypePhoto, "a.jpg", nil, nil)
	f.created[itemURL(1)] = itemURL(5)
	f.add(5, TypeAlbum, "new", nil, nil)
	c := newTestClient(t, f)
	ctx := context.Background()

	root, err := c.Root(ctx)
	require.NoError(t, err)

	_, err = root.AddAlbum(ctx, "new", "new", "")
	require.NoError(t, err)
	assert.Equal(t, []string{itemURL(2), itemURL(5)}, root.MemberURLs())

	members, err := root.Members(ctx)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "a.jpg", members[0].Name())
	assert.Equal(t, "new", members[1].Name())
	assert.Equal(t, 1, f.count(MethodGet, itemURL(5)))
}

func TestAddAlbumErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("not editable", func(t *testing.T) {
		f := newFakeTransport()
		u := f.add(2, TypeAlbum, "A", nil, map[string]any{"can_edit": false})
		c := newTestClient(t, f)

		item, err := c.Item(ctx, u)
		require.NoError(t, err)
		before := len(f.requests)

		_, err = item.(*Album).AddAlbum(ctx, "n", "T", "")
		assert.ErrorIs(t, err, ErrAuth)
		assert.Len(t, f.requests, before)
	})

	t.Run("server rejects", func(t *testing.T) {
		f := newFakeTransport()
		u := f.add(2, TypeAlbum, "A", nil, nil)
		c := newTestClient(t, f)

		item, err := c.Item(ctx, u)
		require.NoError(t, err)

		_, err = item.(*Album).AddAlbum(ctx, "n", "T", "")
		var reqErr *RequestError
		require.ErrorAs(t, err, &reqErr)
		assert.Equal(t, "invalid", reqErr.Fields["type"])
		assert.Empty(t, item.(*Album).MemberURLs())
	})

	t.Run("created item has wrong type", func(t *testing.T) {
		f := newFakeTransport()
		u := f.add(2, TypeAlbum, "A", nil, nil)
		f.created[u] = itemURL(5)
		f.add(5, TypePhoto, "p.jpg", nil, nil)
		c := newTestClient(t, f)

		item, err := c.Item(ctx, u)
		require.NoError(t, err)

		_, err = item.(*Album).AddAlbum(ctx, "n", "T", "")
		assert.ErrorIs(t, err, ErrInvalidResponse)
	})
}

func TestAddImage(t *testing.T) {
	f := newFakeTransport()
	albumURL := f.add(2, TypeAlbum, "A", nil, nil)
	f.created[albumURL] = itemURL(6)
	f.add(6, TypePhoto, "my_photo.jpg", nil, map[string]any{"title": "Sunset"})
	c := newTestClient(t, f)
	ctx := context.Background()

	item, err := c.Item(ctx, albumURL)
	require.NoError(t, err)
	album := item.(*Album)

	content := []byte("\xff\xd8\xff\xe0 jpeg bytes")
	asset := writeAsset(t, "my photo.jpg", content)

	img, err := album.AddImage(ctx, asset, UploadOptions{Title: "Sunset", Description: "Evening"})
	require.NoError(t, err)
	assert.Equal(t, "Sunset", img.Title())
	assert.Same(t, Item(album), img.Parent())
	assert.Nil(t, asset.file)

	post := f.requests[len(f.requests)-2]
	assert.Equal(t, MethodPost, post.Method)
	mediaType, params, err := mime.ParseMediaType(post.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data", mediaType)
	assert.Equal(t, "test-key", post.Header.Get(HeaderRequestKey))

	mr := multipart.NewReader(bytes.NewReader(post.Body), params["boundary"])
	entityPart, err := mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "entity", entityPart.FormName())
	filePart, err := mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "my_photo.jpg", filePart.FileName())
	data, err := io.ReadAll(filePart)
	require.NoError(t, err)
	assert.Equal(t, content, data)

	images, err := album.Images(ctx)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Same(t, img, images[0])
}

func TestAddImageRejectsMovie(t *testing.T) {
	f := newFakeTransport()
	albumURL := f.add(2, TypeAlbum, "A", nil, nil)
	c := newTestClient(t, f)
	ctx := context.Background()

	item, err := c.Item(ctx, albumURL)
	require.NoError(t, err)

	asset := writeAsset(t, "clip.mp4", []byte("movie"))
	_, err = item.(*Album).AddImage(ctx, asset, UploadOptions{})
	require.Error(t, err)
	assert.Nil(t, asset.file)
	assert.Equal(t, 0, f.count(MethodPost, albumURL))
}

func TestAddMovieWithNameOverride(t *testing.T) {
	f := newFakeTransport()
	albumURL := f.add(2, TypeAlbum, "A", nil, nil)
	f.created[albumURL] = itemURL(7)
	f.add(7, TypeMovie, "holiday_2024.mp4", nil, nil)
	c := newTestClient(t, f)
	ctx := context.Background()

	item, err := c.Item(ctx, albumURL)
	require.NoError(t, err)

	asset := writeAsset(t, "clip.mp4", []byte("movie"))
	mov, err := item.(*Album).AddMovie(ctx, asset, UploadOptions{Name: "holiday 2024.mp4"})
	require.NoError(t, err)
	assert.Equal(t, TypeMovie, mov.Type())
	assert.Equal(t, "holiday_2024.mp4", asset.Filename())
}

func TestSetCover(t *testing.T) {
	f := newFakeTransport()
	f.add(1, TypeAlbum, "root", []int{3, 4}, nil)
	f.add(3, TypePhoto, "a.jpg", nil, nil)
	f.add(4, TypeAlbum, "sub", nil, nil)
	c := newTestClient(t, f)
	ctx := context.Background()

	root, err := c.Root(ctx)
	require.NoError(t, err)
	members, err := root.Members(ctx)
	require.NoError(t, err)

	res, err := root.SetCover(ctx, members[0])
	require.NoError(t, err)
	assert.True(t, res.Success)

	sent, err := DecodeEntity(f.last().Body)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"album_cover": itemURL(3)}, sent)

	cover, err := root.AlbumCover(ctx)
	require.NoError(t, err)
	assert.Same(t, members[0], cover)

	res, err = root.SetCover(ctx, members[1])
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestSetCoverWithoutLinks(t *testing.T) {
	f := newFakeTransport()
	f.add(1, TypeAlbum, "root", []int{3}, nil)
	f.add(3, TypePhoto, "a.jpg", nil, nil)
	c := newTestClient(t, f)
	ctx := context.Background()

	root, err := c.Root(ctx)
	require.NoError(t, err)
	members, err := root.Members(ctx)
	require.NoError(t, err)

	root.links = nil
	res, err := root.SetCover(ctx, members[0])
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, itemURL(3), root.LinkURL("album_cover"))
}
