package fakecmis

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nemakiware/cmis-fixture/pkg/cmis"
	"github.com/nemakiware/cmis-fixture/pkg/utils"
)

const principalKey = "principal"

func (s *Server) basicAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, password, ok := c.Request().BasicAuth()
		if !ok {
			return cmisError(c, http.StatusUnauthorized, cmis.ExceptionUnauthorized, "Authentication required")
		}
		s.mu.Lock()
		u, exists := s.users[id]
		accepted := exists && u.password == password
		if accepted && u.authFailures > 0 {
			u.authFailures--
			accepted = false
		}
		s.mu.Unlock()
		if !accepted {
			return cmisError(c, http.StatusUnauthorized, cmis.ExceptionUnauthorized, "Authentication failed")
		}
		c.Set(principalKey, id)
		return next(c)
	}
}

func (s *Server) adminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if principal(c) != AdminUser {
			return cmisError(c, http.StatusForbidden, cmis.ExceptionPermissionDenied, "Admin only")
		}
		return next(c)
	}
}

func principal(c echo.Context) string {
	p, _ := c.Get(principalKey).(string)
	return p
}

// principalsOf returns the principal and the groups it belongs to, directly
// or not. It must be called with the lock held.
func (s *Server) principalsOf(id string) []string {
	principals := []string{id, cmis.GroupEveryone}
	for changed := true; changed; {
		changed = false
		for _, g := range s.groups {
			if utils.IsInArray(g.id, principals) {
				continue
			}
			for _, member := range append(append([]string{}, g.users...), g.groups...) {
				if utils.IsInArray(member, principals) {
					principals = append(principals, g.id)
					changed = true
					break
				}
			}
		}
	}
	return principals
}

// allowed returns true if the principal can read (or write, when write is
// true) the object. It must be called with the lock held.
func (s *Server) allowed(principal string, obj *object, write bool) bool {
	if principal == AdminUser {
		return true
	}
	principals := s.principalsOf(principal)
	for _, a := range obj.acl {
		if !utils.IsInArray(a.principal, principals) {
			continue
		}
		if !write && len(a.permissions) > 0 {
			return true
		}
		if utils.IsInArray(cmis.PermissionWrite, a.permissions) || utils.IsInArray(cmis.PermissionAll, a.permissions) {
			return true
		}
	}
	return false
}
