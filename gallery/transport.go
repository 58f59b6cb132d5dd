package gallery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// Transport sends a built Request and returns the response body.
// Non-2xx responses must be reported as *HTTPError carrying the body.
type Transport interface {
	Send(ctx context.Context, req *Request) ([]byte, error)
}

// Opener is implemented by transports that can stream a response body.
type Opener interface {
	Open(ctx context.Context, req *Request) (io.ReadCloser, error)
}

var (
	_ Transport = (*HTTPTransport)(nil)
	_ Opener    = (*HTTPTransport)(nil)
)

// HTTPTransport implements Transport over net/http. The client keeps a cookie
// jar so the gallery session survives across requests.
type HTTPTransport struct {
	httpClient *http.Client
}

// NewHTTPTransport creates a transport with its own cookie jar
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	jar, _ := cookiejar.New(nil)
	return &HTTPTransport{
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
	}
}

// NewHTTPTransportWithClient wraps an existing http.Client. A cookie jar is
// added when the client has none.
func NewHTTPTransportWithClient(c *http.Client) *HTTPTransport {
	if c.Jar == nil {
		jar, _ := cookiejar.New(nil)
		c.Jar = jar
	}
	return &HTTPTransport{httpClient: c}
}

// Send performs the request and reads the whole body
func (t *HTTPTransport) Send(ctx context.Context, req *Request) ([]byte, error) {
	rc, err := t.Open(ctx, req)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// Open performs the request and returns the unread body. The caller must close it.
func (t *HTTPTransport) Open(ctx context.Context, req *Request) (io.ReadCloser, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.HTTPMethod(), req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range req.Header {
		httpReq.Header[k] = vs
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: data}
	}

	return resp.Body, nil
}
