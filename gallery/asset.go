package gallery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DefaultSpaceReplacement is used for filenames unless WithSpaceReplacement says otherwise
const DefaultSpaceReplacement = "_"

// Extensions the gallery accepts that the mime package may not know.
var knownContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".flv":  "video/x-flv",
	".avi":  "video/x-msvideo",
	".webm": "video/webm",
}

// LocalAsset is a file on disk staged for upload. Its handle is opened on the
// first read and must be released with Close.
type LocalAsset struct {
	path             string
	filename         string
	contentType      string
	typ              ItemType
	size             int64
	spaceReplacement string
	file             *os.File
}

// AssetOption configures a LocalAsset
type AssetOption func(*LocalAsset)

// WithSpaceReplacement sets the string substituted for spaces in the upload filename.
func WithSpaceReplacement(s string) AssetOption {
	return func(a *LocalAsset) {
		a.spaceReplacement = s
	}
}

// WithContentType overrides the detected content type.
func WithContentType(ct string) AssetOption {
	return func(a *LocalAsset) {
		a.contentType = ct
	}
}

// NewLocalAsset stats path and detects its content type and gallery type.
func NewLocalAsset(path string, opts ...AssetOption) (*LocalAsset, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	a := &LocalAsset{
		path:             path,
		size:             fi.Size(),
		spaceReplacement: DefaultSpaceReplacement,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.contentType == "" {
		ct, err := detectContentType(path)
		if err != nil {
			return nil, err
		}
		a.contentType = ct
	}

	switch {
	case strings.HasPrefix(a.contentType, "image/"):
		a.typ = TypePhoto
	case strings.HasPrefix(a.contentType, "video/"):
		a.typ = TypeMovie
	default:
		return nil, fmt.Errorf("%s has unsupported content type %s", path, a.contentType)
	}

	a.SetFilename(filepath.Base(path))
	return a, nil
}

// detectContentType uses the extension first and sniffs the content otherwise
func detectContentType(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ct, ok := knownContentTypes[ext]; ok {
		return ct, nil
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err == nil {
			return mediaType, nil
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	mediaType, _, _ := mime.ParseMediaType(http.DetectContentType(head[:n]))
	return mediaType, nil
}

// Path returns the local path
func (a *LocalAsset) Path() string {
	return a.path
}

// Filename returns the normalized upload filename
func (a *LocalAsset) Filename() string {
	return a.filename
}

// SetFilename overrides the upload filename; spaces are replaced by the asset's policy.
func (a *LocalAsset) SetFilename(name string) {
	a.filename = strings.ReplaceAll(name, " ", a.spaceReplacement)
}

// ContentType returns the MIME type sent with the file part
func (a *LocalAsset) ContentType() string {
	return a.contentType
}

// Type returns TypePhoto or TypeMovie
func (a *LocalAsset) Type() ItemType {
	return a.typ
}

// Size returns the file size in bytes at the time the asset was created
func (a *LocalAsset) Size() int64 {
	return a.size
}

// Reader returns the file positioned at its start, opening it if needed.
func (a *LocalAsset) Reader() (io.Reader, error) {
	if a.file == nil {
		f, err := os.Open(a.path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", a.path, err)
		}
		a.file = f
		return f, nil
	}
	if _, err := a.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind %s: %w", a.path, err)
	}
	return a.file, nil
}

// Close releases the file handle. It is safe to call more than once.
func (a *LocalAsset) Close() error {
	if a == nil || a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// writeFilePart writes the binary file part of an upload
func (a *LocalAsset) writeFilePart(mw *multipart.Writer) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(a.filename)))
	h.Set("Content-Type", a.contentType)
	h.Set("Content-Transfer-Encoding", "binary")

	w, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create file part: %w", err)
	}
	r, err := a.Reader()
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("failed to copy %s: %w", a.path, err)
	}
	return nil
}

// newBoundary returns a random multipart boundary
func newBoundary() string {
	return uuid.NewString()
}

// buildUploadBody encodes the entity descriptor and the file as multipart/form-data.
func buildUploadBody(entity map[string]any, asset *LocalAsset, boundary string) ([]byte, string, error) {
	raw, err := json.Marshal(entity)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode entity: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.SetBoundary(boundary); err != nil {
		return nil, "", fmt.Errorf("invalid boundary: %w", err)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="entity"`)
	h.Set("Content-Type", "text/plain; charset=UTF-8")
	h.Set("Content-Transfer-Encoding", "8bit")
	w, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create entity part: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return nil, "", err
	}

	if err := asset.writeFilePart(mw); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), mw.FormDataContentType(), nil
}
