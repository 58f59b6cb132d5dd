package gallery

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Method is the REST verb carried in the method-override header.
type Method string

const (
	MethodGet    Method = "get"
	MethodPost   Method = "post"
	MethodPut    Method = "put"
	MethodDelete Method = "delete"
)

// Wire header names
const (
	HeaderRequestKey    = "X-Gallery-Request-Key"
	HeaderRequestMethod = "X-Gallery-Request-Method"

	formContentType = "application/x-www-form-urlencoded"
)

// Request is a method-tagged request ready to be handed to a Transport.
type Request struct {
	Method Method
	URL    string
	Header http.Header
	Body   []byte
}

// HTTPMethod returns the verb actually sent on the wire. Gallery 3 reads the
// real verb from the override header, so only POST and GET are ever used.
func (r *Request) HTTPMethod() string {
	if r.Body != nil {
		return http.MethodPost
	}
	return http.MethodGet
}

// NewRequest builds a request for the given method.
//
// body may be nil, a map (sent as a single "entity" form field holding its
// JSON encoding) or a pre-encoded string/[]byte passed through unmodified.
// Any other body type fails with ErrBodyType before any I/O happens.
func NewRequest(method Method, rawURL, apiKey string, body any, header http.Header) (*Request, error) {
	switch method {
	case MethodGet, MethodPost, MethodPut, MethodDelete:
	default:
		return nil, fmt.Errorf("unsupported request method %q", method)
	}

	h := make(http.Header, len(header)+3)
	for k, vs := range header {
		h[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}
	h.Set(HeaderRequestMethod, string(method))
	if apiKey != "" {
		h.Set(HeaderRequestKey, apiKey)
	}

	data, err := encodeBody(body)
	if err != nil {
		return nil, err
	}
	if data != nil && h.Get("Content-Type") == "" {
		h.Set("Content-Type", formContentType)
	}

	return &Request{
		Method: method,
		URL:    rawURL,
		Header: h,
		Body:   data,
	}, nil
}

// encodeBody converts a request body into its wire form
func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	case map[string]any, map[string]string:
		return encodeEntity(b)
	default:
		return nil, fmt.Errorf("%w: %T", ErrBodyType, body)
	}
}

// encodeEntity wraps the JSON encoding of v as the form field "entity".
func encodeEntity(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode entity: %w", err)
	}
	form := url.Values{"entity": {string(raw)}}
	return []byte(form.Encode()), nil
}

// DecodeEntity reverses the "entity" form encoding. It is the server-side view
// of a mapping body and mainly useful for tests and request logging.
func DecodeEntity(body []byte) (map[string]any, error) {
	form, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse form body: %w", err)
	}
	raw := form.Get("entity")
	if raw == "" {
		return nil, fmt.Errorf("form body has no entity field")
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("failed to decode entity: %w", err)
	}
	return out, nil
}
