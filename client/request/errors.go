package request

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Error is returned for a response with a non-2xx status. For the CMIS
// Browser Binding, Title is the exception name (objectNotFound,
// permissionDenied, ...) and Detail its message.
type Error struct {
	StatusCode int
	Status     string
	Title      string
	Detail     string
	Body       []byte
	// REST is set for the failures reported by the NemakiWare management
	// API in its {"status": ..., "error": ...} envelope.
	REST bool
}

func (e *Error) Error() string {
	if e.Detail == "" || e.Title == e.Detail {
		return fmt.Sprintf("%d %s", e.StatusCode, e.Title)
	}
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Title, e.Detail)
}

// TransportError is returned when no response was received: connection
// refused or reset, aborted request, timeout.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout returns true if the request was aborted by a deadline, from the
// context or from the timeout of the http.Client.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(e.Err, &nerr) && nerr.Timeout()
}

// ParseError is returned when a response was received but its body is not
// what was expected, like a 200 with an HTML page instead of JSON.
type ParseError struct {
	StatusCode  int
	ContentType string
	Body        []byte
	Err         error
}

func (e *ParseError) Error() string {
	excerpt := e.Body
	if len(excerpt) > 80 {
		excerpt = excerpt[:80]
	}
	return fmt.Sprintf("invalid response body (status %d, %q): %s: %q",
		e.StatusCode, e.ContentType, e.Err, excerpt)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsTransport returns true if err is, or wraps, a *TransportError.
func IsTransport(err error) bool {
	var terr *TransportError
	return errors.As(err, &terr)
}

// IsTimeout returns true if err is a transport error caused by a timeout.
func IsTimeout(err error) bool {
	var terr *TransportError
	return errors.As(err, &terr) && terr.Timeout()
}

// IsParse returns true if err is, or wraps, a *ParseError.
func IsParse(err error) bool {
	var perr *ParseError
	return errors.As(err, &perr)
}

// StatusCode returns the HTTP status of an *Error, or 0 for the other
// errors.
func StatusCode(err error) int {
	var herr *Error
	if errors.As(err, &herr) {
		return herr.StatusCode
	}
	return 0
}

// IsStatus returns true if err is an *Error with one of the given status.
func IsStatus(err error, codes ...int) bool {
	code := StatusCode(err)
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

// IsServerError returns true for the 5xx responses. They are the ones a
// caller may want to retry, with the transport errors.
func IsServerError(err error) bool {
	code := StatusCode(err)
	return code >= http.StatusInternalServerError
}

// IsNotFound returns true for a 404, a CMIS objectNotFound exception, or a
// NemakiWare REST "notFound" error. Only the REST errors are matched on
// their message.
func IsNotFound(err error) bool {
	var herr *Error
	if !errors.As(err, &herr) {
		return false
	}
	if herr.StatusCode == http.StatusNotFound || herr.Title == "objectNotFound" {
		return true
	}
	return herr.REST && strings.Contains(strings.ToLower(herr.Detail), "notfound")
}

// IsAlreadyExists returns true when the server refused to create something
// that is already there: a 409, a CMIS contentAlreadyExists or
// nameConstraintViolation exception, or a NemakiWare REST "alreadyExists"
// error.
func IsAlreadyExists(err error) bool {
	var herr *Error
	if !errors.As(err, &herr) {
		return false
	}
	switch herr.Title {
	case "contentAlreadyExists", "nameConstraintViolation":
		return true
	}
	if herr.StatusCode == http.StatusConflict {
		return true
	}
	msg := strings.ToLower(herr.Detail)
	return strings.Contains(msg, "alreadyexists") || strings.Contains(msg, "already exists")
}

// IsPermissionDenied returns true for a 401, a 403, or a CMIS
// permissionDenied exception.
func IsPermissionDenied(err error) bool {
	var herr *Error
	if !errors.As(err, &herr) {
		return false
	}
	switch herr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	return herr.Title == "permissionDenied"
}
