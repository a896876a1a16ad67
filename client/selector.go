package client

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/google/go-querystring/query"
	"github.com/nemakiware/cmis-fixture/client/request"
	"github.com/nemakiware/cmis-fixture/pkg/form"
)

// SelectorParams are the query parameters of a Browser Binding GET.
type SelectorParams struct {
	Selector          string `url:"cmisselector"`
	ObjectID          string `url:"objectId,omitempty"`
	Statement         string `url:"q,omitempty"`
	TypeID            string `url:"typeId,omitempty"`
	SearchAllVersions bool   `url:"searchAllVersions,omitempty"`
	MaxItems          int    `url:"maxItems,omitempty"`
	SkipCount         int    `url:"skipCount,omitempty"`
	Succinct          bool   `url:"succinct,omitempty"`
}

// Select performs a GET on the Browser Binding with the given selector, and
// decodes the JSON response in out. When objectID is empty, the URL is the
// one of the repository (for repositoryInfo, query, typeDefinition);
// otherwise it is the URL of the object.
func (c *Client) Select(ctx context.Context, objectID string, params *SelectorParams, out interface{}) error {
	q, err := query.Values(params)
	if err != nil {
		return err
	}
	p := c.repositoryPath()
	if objectID != "" {
		p += "/" + url.PathEscape(objectID)
	}
	res, err := c.Req(ctx, params.Selector, &request.Options{
		Method:  http.MethodGet,
		Path:    p,
		Queries: q,
		Headers: request.Headers{"Accept": "application/json"},
	})
	if err != nil {
		return err
	}
	if out == nil {
		_, err = request.ReadAll(res)
		return err
	}
	return request.ReadJSON(res, out)
}

// Action posts an url-encoded form to the Browser Binding, and decodes the
// JSON response in out (if not nil).
func (c *Client) Action(ctx context.Context, f *form.Form, out interface{}) error {
	body, contentType := f.Reader()
	res, b, err := c.post(ctx, f.Action(), body, contentType)
	if err != nil || out == nil {
		return err
	}
	return request.DecodeJSON(res, b, out)
}

// ActionMultipart posts a multipart form with a content stream to the
// Browser Binding.
func (c *Client) ActionMultipart(ctx context.Context, f *form.Form, content *form.Content, out interface{}) error {
	body, contentType, err := f.Multipart(content)
	if err != nil {
		return err
	}
	res, b, err := c.post(ctx, f.Action(), body, contentType)
	if err != nil || out == nil {
		return err
	}
	return request.DecodeJSON(res, b, out)
}

// actionRaw posts an url-encoded form and returns the raw body, that may be
// empty.
func (c *Client) actionRaw(ctx context.Context, f *form.Form) ([]byte, error) {
	body, contentType := f.Reader()
	_, b, err := c.post(ctx, f.Action(), body, contentType)
	return bytes.TrimSpace(b), err
}

func (c *Client) post(ctx context.Context, action string, body io.Reader, contentType string) (*http.Response, []byte, error) {
	res, err := c.Req(ctx, action, &request.Options{
		Method: http.MethodPost,
		Path:   c.repositoryPath(),
		Headers: request.Headers{
			"Content-Type": contentType,
			"Accept":       "application/json",
		},
		Body: body,
	})
	if err != nil {
		return nil, nil, err
	}
	b, err := request.ReadAll(res)
	if err != nil {
		return nil, nil, err
	}
	return res, b, nil
}
