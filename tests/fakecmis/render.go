package fakecmis

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nemakiware/cmis-fixture/pkg/cmis"
)

func cmisError(c echo.Context, status int, exception, message string) error {
	return c.JSON(status, echo.Map{
		"exception": exception,
		"message":   message,
	})
}

func restFailure(c echo.Context, item, code string) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status": "failure",
		"error":  []map[string]string{{item: code}},
	})
}

func restSuccess(c echo.Context, extra echo.Map) error {
	res := echo.Map{"status": "success"}
	for k, v := range extra {
		res[k] = v
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	exception := cmis.ExceptionRuntime
	message := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if msg, ok := he.Message.(string); ok {
			message = msg
		}
		switch status {
		case http.StatusNotFound:
			exception = cmis.ExceptionObjectNotFound
		case http.StatusMethodNotAllowed, http.StatusBadRequest:
			exception = cmis.ExceptionInvalidArgument
		}
	}
	_ = cmisError(c, status, exception, message)
}

// properties must be called with the lock held.
func (s *Server) properties(obj *object) cmis.Properties {
	props := cmis.Properties{
		cmis.PropObjectID:     obj.id,
		cmis.PropName:         obj.name,
		cmis.PropObjectTypeID: obj.typeID,
		cmis.PropBaseTypeID:   obj.baseType,
		cmis.PropCreatedBy:    obj.createdBy,
		cmis.PropCreationDate: obj.created.UnixMilli(),
	}
	if obj.parentID != "" {
		props[cmis.PropParentID] = obj.parentID
	}
	if obj.baseType == cmis.BaseDocument {
		props[cmis.PropContentLength] = int64(len(obj.content))
		if obj.mimeType != "" {
			props[cmis.PropContentMimeType] = obj.mimeType
			props[cmis.PropContentFileName] = obj.filename
		}
	}
	return props
}

// orphan returns true if the type of the object is no longer defined. It
// must be called with the lock held.
func (s *Server) orphan(obj *object) bool {
	_, ok := s.types[obj.typeID]
	return !ok
}

func renderProperties(props cmis.Properties, succinct bool) echo.Map {
	if succinct {
		return echo.Map{"succinctProperties": props}
	}
	verbose := make(map[string]echo.Map, len(props))
	for id, v := range props {
		verbose[id] = echo.Map{
			"id":          id,
			"localName":   id,
			"queryName":   id,
			"cardinality": "single",
			"value":       v,
		}
	}
	return echo.Map{"properties": verbose}
}

// renderObject must be called with the lock held.
func (s *Server) renderObject(obj *object, succinct bool) echo.Map {
	return renderProperties(s.properties(obj), succinct)
}

func (obj *object) cmisACL() *cmis.ACL {
	acl := &cmis.ACL{Exact: true}
	for _, a := range obj.acl {
		acl.ACEs = append(acl.ACEs, cmis.ACE{
			Principal:   a.principal,
			Permissions: append([]string(nil), a.permissions...),
			Direct:      a.direct,
		})
	}
	return acl
}

// renderACL must be called with the lock held.
func (s *Server) renderACL(obj *object) echo.Map {
	aces := make([]echo.Map, 0, len(obj.acl))
	for _, a := range obj.acl {
		entry := echo.Map{
			"permissions": a.permissions,
			"isDirect":    a.direct,
		}
		if s.flatPrincipal {
			entry["principalId"] = a.principal
		} else {
			entry["principal"] = echo.Map{"principalId": a.principal}
		}
		aces = append(aces, entry)
	}
	acl := echo.Map{"aces": aces, "isExact": true}
	if s.nestedACL {
		return echo.Map{"acl": acl}
	}
	return acl
}
