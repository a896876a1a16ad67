package fakecmis

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type faultKind int

const (
	faultStatus faultKind = iota
	faultMalformed
	faultDrop
)

type fault struct {
	kind   faultKind
	status int
	body   string
}

const malformedBody = "<html><head><title>Service Temporarily Unavailable</title></head><body>proxy error</body></html>"

// FailNext makes the next n requests fail with the status and body. The
// faults are consumed in order, whatever the endpoint.
func (s *Server) FailNext(n, status int, body string) {
	s.queue(n, fault{kind: faultStatus, status: status, body: body})
}

// MalformNext makes the next n requests answer a 200 with an HTML body in
// place of the JSON one.
func (s *Server) MalformNext(n int) {
	s.queue(n, fault{kind: faultMalformed, status: http.StatusOK, body: malformedBody})
}

// DropNext makes the server close the connection in the middle of the next
// n responses.
func (s *Server) DropNext(n int) {
	s.queue(n, fault{kind: faultDrop})
}

// FailDelete makes every delete of the object fail with the status and
// body, including the deletes done as part of a deleteTree.
func (s *Server) FailDelete(objectID string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteFailures[objectID] = fault{kind: faultStatus, status: status, body: body}
}

// ClearFaults removes the pending faults.
func (s *Server) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = nil
	s.deleteFailures = make(map[string]fault)
}

func (s *Server) queue(n int, f fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.faults = append(s.faults, f)
	}
}

func (s *Server) popFault() (fault, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.faults) == 0 {
		return fault{}, false
	}
	f := s.faults[0]
	s.faults = s.faults[1:]
	return f, true
}

func (s *Server) injectFaults(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		f, ok := s.popFault()
		if !ok {
			return next(c)
		}
		s.log.Debugf("inject fault %d on %s %s", f.kind, c.Request().Method, c.Request().URL.Path)
		switch f.kind {
		case faultMalformed:
			return c.HTMLBlob(f.status, []byte(f.body))
		case faultDrop:
			return drop(c)
		default:
			if strings.HasPrefix(strings.TrimSpace(f.body), "<") {
				return c.HTMLBlob(f.status, []byte(f.body))
			}
			return c.Blob(f.status, echo.MIMEApplicationJSONCharsetUTF8, []byte(f.body))
		}
	}
}

// drop sends the headers and the beginning of a body announced longer, then
// closes the connection. The client gets a response and fails while reading
// its body, so that no transport retries it silently.
func drop(c echo.Context) error {
	hj, ok := c.Response().Writer.(http.Hijacker)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "hijacking not supported")
	}
	conn, buf, err := hj.Hijack()
	if err != nil {
		return err
	}
	_, _ = buf.WriteString("HTTP/1.1 200 OK\r\nContent-Type: application/json\r\nContent-Length: 1024\r\n\r\n{\"succ")
	_ = buf.Flush()
	return conn.Close()
}
