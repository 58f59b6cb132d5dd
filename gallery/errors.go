package gallery

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Common errors
var (
	// ErrAuth indicates the caller lacks permission for the operation
	ErrAuth = errors.New("gallery3: permission denied")
	// ErrInvalidResponse indicates a response that does not follow the entity contract
	ErrInvalidResponse = errors.New("gallery3: invalid response")
	// ErrUnknownType indicates an entity type other than album, photo or movie
	ErrUnknownType = errors.New("gallery3: unknown entity type")
	// ErrRequest indicates the server rejected a request with field errors
	ErrRequest = errors.New("gallery3: request rejected")
	// ErrUnknown indicates any other failure
	ErrUnknown = errors.New("gallery3: unknown error")
	// ErrBodyType indicates a request body that is neither a mapping nor pre-encoded
	ErrBodyType = errors.New("gallery3: unsupported request body type")
)

// AuthError is returned when a permission precondition fails or login is rejected.
type AuthError struct {
	Op         string
	URL        string
	StatusCode int
	Message    string
}

// Error implements the error interface
func (e *AuthError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "permission denied"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("gallery3 %s %s: status %d: %s", e.Op, e.URL, e.StatusCode, msg)
	}
	return fmt.Sprintf("gallery3 %s %s: %s", e.Op, e.URL, msg)
}

// Is reports whether target is ErrAuth
func (e *AuthError) Is(target error) bool {
	return target == ErrAuth
}

// InvalidResponseError is returned when a response is missing expected structure.
type InvalidResponseError struct {
	Reason string
	Body   []byte
}

func (e *InvalidResponseError) Error() string {
	return "gallery3: invalid response: " + e.Reason
}

func (e *InvalidResponseError) Is(target error) bool {
	return target == ErrInvalidResponse
}

// UnknownTypeError is an InvalidResponseError whose entity.type is not recognised.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("gallery3: unknown entity type: %q", e.Type)
}

// Is matches both ErrUnknownType and ErrInvalidResponse.
func (e *UnknownTypeError) Is(target error) bool {
	return target == ErrUnknownType || target == ErrInvalidResponse
}

// RequestError carries the per-field validation errors returned by the server.
type RequestError struct {
	StatusCode int
	Fields     map[string]string
}

// Error renders one "field: message" line per field, sorted by field name.
func (e *RequestError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+": "+e.Fields[k])
	}
	return strings.Join(lines, "\n")
}

func (e *RequestError) Is(target error) bool {
	return target == ErrRequest
}

// UnknownError covers unstructured server failures, transport failures and
// malformed local objects.
type UnknownError struct {
	StatusCode int
	Message    string
	Body       []byte
	Err        error
}

func (e *UnknownError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("gallery3: status %d: %s", e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("gallery3: status %d", e.StatusCode)
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("gallery3: %s: %v", e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("gallery3: %v", e.Err)
	default:
		return "gallery3: " + e.Message
	}
}

func (e *UnknownError) Is(target error) bool {
	return target == ErrUnknown
}

func (e *UnknownError) Unwrap() error {
	return e.Err
}

// HTTPError is returned by a Transport when the server answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http status %d", e.StatusCode)
}

// IsUnauthorized checks if the status indicates an authentication failure
func (e *HTTPError) IsUnauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// IsNotFound checks if the status indicates a missing resource
func (e *HTTPError) IsNotFound() bool {
	return e.StatusCode == 404
}
