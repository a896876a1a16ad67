package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// Group is a group of principals, as managed by the REST API.
type Group struct {
	ID     string   `json:"groupId"`
	Name   string   `json:"groupName,omitempty"`
	Users  []string `json:"users,omitempty"`
	Groups []string `json:"groups,omitempty"`
}

// UnmarshalJSON accepts the id and name keys used by the older versions of
// the API.
func (g *Group) UnmarshalJSON(b []byte) error {
	type group Group
	var doc struct {
		group
		AltID   string `json:"id"`
		AltName string `json:"name"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	*g = Group(doc.group)
	if g.ID == "" {
		g.ID = doc.AltID
	}
	if g.Name == "" {
		g.Name = doc.AltName
	}
	return nil
}

// CreateGroup creates a group with its direct members.
func (c *Client) CreateGroup(ctx context.Context, g *Group) error {
	name := g.Name
	if name == "" {
		name = g.ID
	}
	users, err := json.Marshal(nonNil(g.Users))
	if err != nil {
		return err
	}
	groups, err := json.Marshal(nonNil(g.Groups))
	if err != nil {
		return err
	}
	body := url.Values{
		"name":   {name},
		"users":  {string(users)},
		"groups": {string(groups)},
	}
	return c.rest(ctx, http.MethodPost, "rest:group:create", []string{"group", "create", g.ID}, body, nil)
}

// DeleteGroup deletes a group.
func (c *Client) DeleteGroup(ctx context.Context, groupID string) error {
	return c.rest(ctx, http.MethodDelete, "rest:group:delete", []string{"group", "delete", groupID}, nil, nil)
}

// ListGroups returns all the groups of the repository.
func (c *Client) ListGroups(ctx context.Context) ([]*Group, error) {
	var doc struct {
		Groups []*Group `json:"groups"`
	}
	if err := c.rest(ctx, http.MethodGet, "rest:group:list", []string{"group", "list"}, nil, &doc); err != nil {
		return nil, err
	}
	return doc.Groups, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
