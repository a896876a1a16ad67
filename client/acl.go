package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/nemakiware/cmis-fixture/client/request"
	"github.com/nemakiware/cmis-fixture/pkg/cmis"
	"github.com/nemakiware/cmis-fixture/pkg/form"
)

// GetACL returns the ACL of an object, via the Browser Binding.
func (c *Client) GetACL(ctx context.Context, objectID string) (*cmis.ACL, error) {
	var acl cmis.ACL
	if err := c.Select(ctx, objectID, &SelectorParams{Selector: cmis.SelectorACL}, &acl); err != nil {
		return nil, err
	}
	return &acl, nil
}

// GetACLAtom returns the ACL of an object, via the AtomPub binding. Some
// server versions expose the isDirect flag of the entries only there.
func (c *Client) GetACLAtom(ctx context.Context, objectID string) (*cmis.ACL, error) {
	res, err := c.Req(ctx, "atom:acl", &request.Options{
		Method:  http.MethodGet,
		Path:    c.AtomPath + "/" + url.PathEscape(c.Repository) + "/acl",
		Queries: url.Values{"id": {objectID}},
		Headers: request.Headers{"Accept": "application/cmisacl+xml"},
	})
	if err != nil {
		return nil, err
	}
	b, err := request.ReadAll(res)
	if err != nil {
		return nil, err
	}
	acl, err := cmis.ParseAtomACL(b)
	if err != nil {
		return nil, &request.ParseError{
			StatusCode:  res.StatusCode,
			ContentType: res.Header.Get("Content-Type"),
			Body:        b,
			Err:         err,
		}
	}
	return acl, nil
}

// ApplyACL removes then adds entries to the ACL of an object, in a single
// applyACL action. An empty propagation lets the server decide. It returns
// the resulting ACL when the server sends it back, or nil.
func (c *Client) ApplyACL(ctx context.Context, objectID string, add, remove []cmis.ACE, propagation string) (*cmis.ACL, error) {
	f := form.New(cmis.ActionApplyACL).Set("objectId", objectID)
	for _, ace := range remove {
		f.RemoveACE(ace.Principal, ace.Permissions...)
	}
	for _, ace := range add {
		f.AddACE(ace.Principal, ace.Permissions...)
	}
	if propagation != "" {
		f.Set("ACLPropagation", propagation)
	}
	b, err := c.actionRaw(ctx, f)
	if err != nil || len(b) == 0 {
		return nil, err
	}
	var acl cmis.ACL
	if err := json.Unmarshal(b, &acl); err != nil {
		return nil, &request.ParseError{StatusCode: http.StatusOK, Body: b, Err: err}
	}
	return &acl, nil
}
