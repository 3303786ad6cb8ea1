package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNoSession is returned before any I/O when an endpoint requires a
	// token and none is available.
	ErrNoSession = errors.New("no active session")

	// ErrNetwork wraps failures to complete a request at all.
	ErrNetwork = errors.New("network error")

	// ErrMalformedResponse wraps 2xx responses whose body cannot be used.
	ErrMalformedResponse = errors.New("malformed response")
)

// StatusError is a non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s %d: %s", e.Method, e.Path, e.StatusCode, e.Text())
}

// Text is the envelope's error message when the body is one, otherwise the
// raw body, or the status text when the body is empty.
func (e *StatusError) Text() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return http.StatusText(e.StatusCode)
	}
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal([]byte(body), &envelope) == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return body
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}
