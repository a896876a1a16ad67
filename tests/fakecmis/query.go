package fakecmis

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/nemakiware/cmis-fixture/pkg/cmis"
)

var statementRegexp = regexp.MustCompile(
	`(?is)^\s*SELECT\s+(.+?)\s+FROM\s+(\S+)(?:\s+WHERE\s+cmis:name\s+LIKE\s+'((?:[^'\\]|\\.)*)')?\s*$`)

type statement struct {
	columns []string
	from    string
	like    *regexp.Regexp
}

func parseStatement(q string) (*statement, bool) {
	m := statementRegexp.FindStringSubmatch(q)
	if m == nil {
		return nil, false
	}
	st := &statement{from: m[2]}
	for _, col := range strings.Split(m[1], ",") {
		st.columns = append(st.columns, strings.TrimSpace(col))
	}
	if m[3] != "" || strings.Contains(strings.ToUpper(q), " LIKE ") {
		st.like = likeRegexp(m[3])
	}
	return st, true
}

// likeRegexp translates a LIKE pattern, with its backslash escapes, into an
// anchored regexp.
func likeRegexp(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("^")
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			b.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			b.WriteString(".*")
		case r == '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

// query must be called with the lock held.
func (s *Server) query(c echo.Context) error {
	st, ok := parseStatement(c.QueryParam("q"))
	if !ok {
		return cmisError(c, http.StatusBadRequest, cmis.ExceptionInvalidArgument, "Invalid statement: "+c.QueryParam("q"))
	}
	switch st.from {
	case cmis.BaseObject, cmis.BaseDocument, cmis.BaseFolder, cmis.BaseItem:
	default:
		if _, ok := s.types[st.from]; !ok {
			return cmisError(c, http.StatusBadRequest, cmis.ExceptionInvalidArgument, "Unknown type in FROM: "+st.from)
		}
	}

	var matches []*object
	for _, obj := range s.objects {
		if obj.id == s.rootID || !s.isA(obj, st.from) {
			continue
		}
		if st.like != nil && !st.like.MatchString(obj.name) {
			continue
		}
		if !s.allowed(principal(c), obj, false) {
			continue
		}
		matches = append(matches, obj)
	}
	sortObjects(matches)

	skip, max := s.paging(c)
	page, more := window(matches, skip, max)
	results := make([]echo.Map, 0, len(page))
	for _, obj := range page {
		results = append(results, renderProperties(s.selectColumns(obj, st.columns), s.succinctFor(c)))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"results":      results,
		"hasMoreItems": more,
		"numItems":     len(matches),
	})
}

// selectColumns returns the requested properties of a row. The rows of an
// object whose type is gone only carry the id. It must be called with the
// lock held.
func (s *Server) selectColumns(obj *object, columns []string) cmis.Properties {
	all := s.properties(obj)
	if s.orphan(obj) {
		all = cmis.Properties{cmis.PropObjectID: obj.id}
	}
	if len(columns) == 1 && columns[0] == "*" {
		return all
	}
	props := make(cmis.Properties, len(columns))
	for _, col := range columns {
		if v, ok := all[col]; ok {
			props[col] = v
		}
	}
	return props
}
