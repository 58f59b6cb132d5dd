package filter

import (
	"encoding/json"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/s0up4200/gallery3/gallery"
)

// ItemInfo is the flat view of a gallery item that filter expressions see.
type ItemInfo struct {
	URL         string
	Name        string
	Title       string
	Description string
	Type        string
	MimeType    string
	Extension   string
	Created     time.Time
	Updated     time.Time
	CanEdit     bool
	Width       int64
	Height      int64
	FileSize    int64
	Views       int64
	Depth       int
	Path        string
}

// NewItemInfo snapshots item. depth is the distance from the walk's start.
func NewItemInfo(item gallery.Item, depth int) ItemInfo {
	info := ItemInfo{
		URL:         item.URL(),
		Name:        item.Name(),
		Title:       item.Title(),
		Description: item.Description(),
		Type:        string(item.Type()),
		Extension:   strings.TrimPrefix(strings.ToLower(path.Ext(item.Name())), "."),
		Created:     item.Created(),
		Updated:     item.Updated(),
		CanEdit:     item.CanEdit(),
		Width:       numberAttr(item, "width"),
		Height:      numberAttr(item, "height"),
		FileSize:    numberAttr(item, "file_size"),
		Views:       numberAttr(item, "view_count"),
		Depth:       depth,
		Path:        gallery.ItemPath(item),
	}
	if v, ok := item.Attr("mime_type"); ok {
		if s, ok := v.(string); ok {
			info.MimeType = s
		}
	}
	return info
}

func numberAttr(item gallery.Item, name string) int64 {
	v, ok := item.Attr(name)
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			f, _ := n.Float64()
			return int64(f)
		}
		return i
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	case float64:
		return int64(n)
	default:
		return 0
	}
}
