package fakecmis

import (
	"encoding/json"
	"sort"

	"github.com/labstack/echo/v4"
)

func (s *Server) createUser(c echo.Context) error {
	if err := s.checkRepository(c); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(c, "rest:user:create", nil)
	id := c.Param("id")
	if _, ok := s.users[id]; ok {
		return restFailure(c, "userId", "alreadyExists")
	}
	password := c.FormValue("password")
	if password == "" {
		return restFailure(c, "password", "mandatory")
	}
	s.users[id] = &user{
		id:           id,
		name:         c.FormValue("name"),
		password:     password,
		firstName:    c.FormValue("firstName"),
		lastName:     c.FormValue("lastName"),
		email:        c.FormValue("email"),
		authFailures: s.authDelay,
	}
	return restSuccess(c, nil)
}

func (s *Server) deleteUser(c echo.Context) error {
	if err := s.checkRepository(c); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(c, "rest:user:delete", nil)
	id := c.Param("id")
	if _, ok := s.users[id]; !ok || id == AdminUser {
		return restFailure(c, "user", "notFound")
	}
	delete(s.users, id)
	return restSuccess(c, nil)
}

func userJSON(u *user) echo.Map {
	return echo.Map{
		"userId":    u.id,
		"userName":  u.name,
		"firstName": u.firstName,
		"lastName":  u.lastName,
		"email":     u.email,
		"isAdmin":   u.id == AdminUser,
	}
}

func (s *Server) showUser(c echo.Context) error {
	if err := s.checkRepository(c); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(c, "rest:user:show", nil)
	u, ok := s.users[c.Param("id")]
	if !ok {
		return restFailure(c, "user", "notFound")
	}
	return restSuccess(c, echo.Map{"user": userJSON(u)})
}

func (s *Server) listUsers(c echo.Context) error {
	if err := s.checkRepository(c); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(c, "rest:user:list", nil)
	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	list := make([]echo.Map, 0, len(ids))
	for _, id := range ids {
		list = append(list, userJSON(s.users[id]))
	}
	return restSuccess(c, echo.Map{"users": list})
}

func (s *Server) createGroup(c echo.Context) error {
	if err := s.checkRepository(c); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(c, "rest:group:create", nil)
	id := c.Param("id")
	if _, ok := s.groups[id]; ok {
		return restFailure(c, "groupId", "alreadyExists")
	}
	g := &group{id: id, name: c.FormValue("name")}
	if v := c.FormValue("users"); v != "" {
		if err := json.Unmarshal([]byte(v), &g.users); err != nil {
			return restFailure(c, "users", "invalid")
		}
	}
	if v := c.FormValue("groups"); v != "" {
		if err := json.Unmarshal([]byte(v), &g.groups); err != nil {
			return restFailure(c, "groups", "invalid")
		}
	}
	s.groups[id] = g
	return restSuccess(c, nil)
}

func (s *Server) deleteGroup(c echo.Context) error {
	if err := s.checkRepository(c); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(c, "rest:group:delete", nil)
	id := c.Param("id")
	if _, ok := s.groups[id]; !ok {
		return restFailure(c, "group", "notFound")
	}
	delete(s.groups, id)
	return restSuccess(c, nil)
}

func (s *Server) listGroups(c echo.Context) error {
	if err := s.checkRepository(c); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(c, "rest:group:list", nil)
	ids := make([]string, 0, len(s.groups))
	for id := range s.groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	list := make([]echo.Map, 0, len(ids))
	for _, id := range ids {
		g := s.groups[id]
		list = append(list, echo.Map{
			"groupId":   g.id,
			"groupName": g.name,
			"users":     g.users,
			"groups":    g.groups,
		})
	}
	return restSuccess(c, echo.Map{"groups": list})
}
