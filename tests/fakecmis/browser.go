package fakecmis

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/nemakiware/cmis-fixture/pkg/cmis"
)

func (s *Server) checkRepository(c echo.Context) error {
	if c.Param("repo") != s.Repository {
		return cmisError(c, http.StatusNotFound, cmis.ExceptionObjectNotFound, "Unknown repository "+c.Param("repo"))
	}
	return nil
}

func (s *Server) succinctFor(c echo.Context) bool {
	return s.succinct || c.QueryParam("succinct") == "true"
}

func (s *Server) paging(c echo.Context) (skip, max int) {
	max = defaultPageSize
	if v, err := strconv.Atoi(c.QueryParam("maxItems")); err == nil && v > 0 {
		max = v
	}
	if s.pageSize > 0 && s.pageSize < max {
		max = s.pageSize
	}
	if v, err := strconv.Atoi(c.QueryParam("skipCount")); err == nil && v > 0 {
		skip = v
	}
	return skip, max
}

func (s *Server) repositorySelector(c echo.Context) error {
	if err := s.checkRepository(c); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	selector := c.QueryParam("cmisselector")
	if selector == "" {
		selector = cmis.SelectorRepositoryInfo
	}
	s.record(c, selector, nil)

	switch selector {
	case cmis.SelectorRepositoryInfo:
		base := c.Scheme() + "://" + c.Request().Host + "/core/browser/" + s.Repository
		return c.JSON(http.StatusOK, echo.Map{
			s.Repository: echo.Map{
				"repositoryId":          s.Repository,
				"repositoryName":        s.Repository,
				"repositoryDescription": "in-memory repository",
				"productName":           "fakecmis",
				"productVersion":        "1.0",
				"rootFolderId":          s.rootID,
				"cmisVersionSupported":  "1.1",
				"repositoryUrl":         base,
				"rootFolderUrl":         base + "/root",
			},
		})
	case cmis.SelectorQuery:
		return s.query(c)
	case cmis.SelectorTypeDefinition:
		def, ok := s.types[c.QueryParam("typeId")]
		if !ok {
			return cmisError(c, http.StatusNotFound, cmis.ExceptionObjectNotFound, "Type not found: "+c.QueryParam("typeId"))
		}
		return c.JSON(http.StatusOK, def)
	}
	return cmisError(c, http.StatusBadRequest, cmis.ExceptionNotSupported, "Unsupported selector "+selector)
}

func (s *Server) objectSelector(c echo.Context) error {
	if err := s.checkRepository(c); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	selector := c.QueryParam("cmisselector")
	if selector == "" {
		selector = cmis.SelectorObject
	}
	s.record(c, selector, nil)

	id := c.Param("id")
	if id == "root" {
		id = s.rootID
		if oid := c.QueryParam("objectId"); oid != "" {
			id = oid
		}
	}
	obj, ok := s.objects[id]
	if !ok {
		return cmisError(c, http.StatusNotFound, cmis.ExceptionObjectNotFound, "Object not found: "+id)
	}
	if !s.allowed(principal(c), obj, false) {
		return cmisError(c, http.StatusForbidden, cmis.ExceptionPermissionDenied, "Permission denied on "+id)
	}

	switch selector {
	case cmis.SelectorObject:
		if s.orphan(obj) {
			return cmisError(c, http.StatusInternalServerError, cmis.ExceptionRuntime, "Type definition not found: "+obj.typeID)
		}
		return c.JSON(http.StatusOK, s.renderObject(obj, s.succinctFor(c)))
	case cmis.SelectorChildren:
		if obj.baseType != cmis.BaseFolder {
			return cmisError(c, http.StatusBadRequest, cmis.ExceptionInvalidArgument, "Not a folder: "+id)
		}
		var visible []*object
		for _, child := range s.children(id) {
			if s.allowed(principal(c), child, false) {
				visible = append(visible, child)
			}
		}
		skip, max := s.paging(c)
		page, more := window(visible, skip, max)
		entries := make([]echo.Map, 0, len(page))
		for _, child := range page {
			entries = append(entries, echo.Map{"object": s.renderObject(child, s.succinctFor(c))})
		}
		return c.JSON(http.StatusOK, echo.Map{
			"objects":      entries,
			"hasMoreItems": more,
			"numItems":     len(visible),
		})
	case cmis.SelectorACL:
		return c.JSON(http.StatusOK, s.renderACL(obj))
	}
	return cmisError(c, http.StatusBadRequest, cmis.ExceptionNotSupported, "Unsupported selector "+selector)
}

func (s *Server) atomACL(c echo.Context) error {
	if err := s.checkRepository(c); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(c, "atom:acl", nil)
	obj, ok := s.objects[c.QueryParam("id")]
	if !ok {
		return c.String(http.StatusNotFound, "Object not found")
	}
	b, err := obj.cmisACL().MarshalAtom()
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "application/cmisacl+xml", b)
}

func window(objs []*object, skip, max int) ([]*object, bool) {
	if skip >= len(objs) {
		return nil, false
	}
	end := skip + max
	if end > len(objs) {
		end = len(objs)
	}
	return objs[skip:end], end < len(objs)
}
