package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// User is a user of the repository, as managed by the REST API.
type User struct {
	ID        string `json:"userId"`
	Name      string `json:"userName,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
	IsAdmin   bool   `json:"isAdmin,omitempty"`
}

// UnmarshalJSON accepts the id and name keys used by the older versions of
// the API.
func (u *User) UnmarshalJSON(b []byte) error {
	type user User
	var doc struct {
		user
		AltID   string `json:"id"`
		AltName string `json:"name"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	*u = User(doc.user)
	if u.ID == "" {
		u.ID = doc.AltID
	}
	if u.Name == "" {
		u.Name = doc.AltName
	}
	return nil
}

// CreateUser creates a user with the given password. The name defaults to
// the id.
func (c *Client) CreateUser(ctx context.Context, u *User, password string) error {
	name := u.Name
	if name == "" {
		name = u.ID
	}
	body := url.Values{
		"name":      {name},
		"password":  {password},
		"firstName": {u.FirstName},
		"lastName":  {u.LastName},
		"email":     {u.Email},
	}
	return c.rest(ctx, http.MethodPost, "rest:user:create", []string{"user", "create", u.ID}, body, nil)
}

// DeleteUser deletes a user.
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	return c.rest(ctx, http.MethodDelete, "rest:user:delete", []string{"user", "delete", userID}, nil, nil)
}

// GetUser returns a user.
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	var doc struct {
		User *User `json:"user"`
	}
	if err := c.rest(ctx, http.MethodGet, "rest:user:show", []string{"user", "show", userID}, nil, &doc); err != nil {
		return nil, err
	}
	if doc.User == nil {
		return nil, errUnexpectedShape
	}
	return doc.User, nil
}

// ListUsers returns all the users of the repository.
func (c *Client) ListUsers(ctx context.Context) ([]*User, error) {
	var doc struct {
		Users []*User `json:"users"`
	}
	if err := c.rest(ctx, http.MethodGet, "rest:user:list", []string{"user", "list"}, nil, &doc); err != nil {
		return nil, err
	}
	return doc.Users, nil
}
