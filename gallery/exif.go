package gallery

import (
	"fmt"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// ExifData holds the EXIF fields used when describing uploads.
type ExifData struct {
	CameraMake  string
	CameraModel string
	Width       int
	Height      int
	Orientation int
	DateTaken   *time.Time
}

// Describe renders a short human description, or "" when nothing is known.
func (d *ExifData) Describe() string {
	if d == nil {
		return ""
	}
	var parts []string
	if d.DateTaken != nil {
		parts = append(parts, "Taken "+d.DateTaken.Format("2006-01-02 15:04"))
	}
	camera := strings.TrimSpace(d.CameraMake + " " + d.CameraModel)
	if camera != "" {
		parts = append(parts, "with "+camera)
	}
	return strings.Join(parts, " ")
}

// Exif reads EXIF metadata from a photo. Files without EXIF yield empty data,
// not an error. The asset's handle stays open for a later upload.
func (a *LocalAsset) Exif() (*ExifData, error) {
	d := &ExifData{Orientation: 1}
	if a.typ != TypePhoto {
		return d, nil
	}

	r, err := a.Reader()
	if err != nil {
		return nil, err
	}
	x, err := exif.Decode(r)
	if err != nil {
		return d, nil
	}

	d.CameraMake = exifString(x, exif.Make)
	d.CameraModel = exifString(x, exif.Model)

	if dt, err := x.DateTime(); err == nil {
		d.DateTaken = &dt
	}
	if orient, err := x.Get(exif.Orientation); err == nil {
		if v, err := orient.Int(0); err == nil && v >= 1 && v <= 8 {
			d.Orientation = v
		}
	}
	if pw, err := x.Get(exif.PixelXDimension); err == nil {
		if v, err := pw.Int(0); err == nil {
			d.Width = v
		}
	}
	if ph, err := x.Get(exif.PixelYDimension); err == nil {
		if v, err := ph.Int(0); err == nil {
			d.Height = v
		}
	}

	return d, nil
}

func exifString(x *exif.Exif, f exif.FieldName) string {
	tag, err := x.Get(f)
	if err != nil {
		return ""
	}
	if tag.Format() == tiff.StringVal {
		s, _ := tag.StringVal()
		return strings.TrimSpace(strings.TrimRight(s, "\x00"))
	}
	return strings.Trim(tag.String(), `"`)
}

// String implements fmt.Stringer
func (d *ExifData) String() string {
	return fmt.Sprintf("%dx%d %s", d.Width, d.Height, d.Describe())
}
