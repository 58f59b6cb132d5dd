package gallery

import (
	"net/http"
	"time"
)

// Option configures a Client.
type Option func(*clientOptions)

// clientOptions holds configuration options for the Client.
type clientOptions struct {
	basePath   string
	port       int
	ssl        bool
	timeout    time.Duration
	httpClient *http.Client
	transport  Transport
}

func defaultOptions() clientOptions {
	return clientOptions{
		basePath: DefaultBasePath,
		port:     DefaultPort,
		timeout:  30 * time.Second,
	}
}

// WithBasePath sets the path of the Gallery 3 install on the host.
func WithBasePath(path string) Option {
	return func(o *clientOptions) {
		o.basePath = path
	}
}

// WithPort sets the port to connect to.
func WithPort(port int) Option {
	return func(o *clientOptions) {
		if port > 0 {
			o.port = port
		}
	}
}

// WithSSL selects https.
func WithSSL(ssl bool) Option {
	return func(o *clientOptions) {
		o.ssl = ssl
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		o.timeout = timeout
	}
}

// WithHTTPClient uses a custom http.Client for the default transport.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = c
	}
}

// WithTransport replaces the HTTP transport entirely.
func WithTransport(t Transport) Option {
	return func(o *clientOptions) {
		o.transport = t
	}
}

func (o clientOptions) buildTransport() Transport {
	switch {
	case o.transport != nil:
		return o.transport
	case o.httpClient != nil:
		return NewHTTPTransportWithClient(o.httpClient)
	default:
		return NewHTTPTransport(o.timeout)
	}
}
