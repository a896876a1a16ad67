package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/nemakiware/cmis-fixture/client/request"
)

const restStatusSuccess = "success"

// rest calls the NemakiWare management API. The API answers most failures
// with a 200 and a status other than "success": they are turned into a
// *request.Error with this status as Title.
func (c *Client) rest(ctx context.Context, method, label string, path []string, body url.Values, out interface{}) error {
	opts := &request.Options{
		Method:     method,
		Path:       c.restPath(path...),
		Headers:    request.Headers{"Accept": "application/json"},
		Authorizer: c.RESTAuthorizer,
	}
	if body != nil {
		opts.Body = strings.NewReader(body.Encode())
		opts.Headers["Content-Type"] = "application/x-www-form-urlencoded"
	}
	res, err := c.Req(ctx, label, opts)
	if err != nil {
		return err
	}
	b, err := request.ReadAll(res)
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(b))) == 0 && out == nil {
		return nil
	}
	var result restResult
	if err := request.DecodeJSON(res, b, &result); err != nil {
		return err
	}
	if result.Status != "" && result.Status != restStatusSuccess {
		return &request.Error{
			StatusCode: res.StatusCode,
			Status:     http.StatusText(res.StatusCode),
			Title:      result.Status,
			Detail:     restErrorMessage(result.Error),
			Body:       b,
			REST:       true,
		}
	}
	if out == nil {
		return nil
	}
	return request.DecodeJSON(res, b, out)
}
