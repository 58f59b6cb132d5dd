package gallery

import (
	"context"
	"fmt"
	"io"
)

// RemoteImage is a photo stored in the gallery.
type RemoteImage struct {
	RemoteItem
}

// RemoteMovie is a movie stored in the gallery.
type RemoteMovie struct {
	RemoteImage
}

// Size selects which rendition of a photo or movie to download.
type Size string

const (
	SizeFull   Size = "full"
	SizeResize Size = "resize"
	SizeThumb  Size = "thumb"
)

// field returns the entity field holding the rendition's URL
func (s Size) field() string {
	switch s {
	case SizeResize:
		return "resize_url"
	case SizeThumb:
		return "thumb_url"
	default:
		return "file_url"
	}
}

// FileURL returns the data URL of the requested rendition, if the server sent one.
func (i *RemoteImage) FileURL(size Size) string {
	return i.stringAttr(size.field())
}

// MimeType returns the content type recorded by the server
func (i *RemoteImage) MimeType() string {
	return i.stringAttr("mime_type")
}

// Download opens a stream of the requested rendition. The caller must close it.
func (i *RemoteImage) Download(ctx context.Context, size Size) (io.ReadCloser, error) {
	if err := i.checkValid(); err != nil {
		return nil, err
	}
	u := i.FileURL(size)
	if u == "" {
		return nil, &InvalidResponseError{Reason: fmt.Sprintf("%s has no %s", i.URL(), size.field())}
	}
	return i.client.open(ctx, u)
}
