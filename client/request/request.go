package request

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	build "github.com/nemakiware/cmis-fixture/pkg/config"
	"github.com/nemakiware/cmis-fixture/pkg/logger"
)

type (
	// Authorizer is an interface to represent any element that can be used as
	// the value of the Authorization header.
	Authorizer interface {
		AuthHeader() string
	}

	// Headers is a map of strings used to represent HTTP headers
	Headers map[string]string

	// Options is a struct holding of the details of a request.
	//
	// The NoResponse field can be used in case the call's response if not used. In
	// such cases, the response body is automatically closed.
	Options struct {
		Domain     string
		Scheme     string
		Method     string
		Path       string
		Queries    url.Values
		Headers    Headers
		Body       io.Reader
		Authorizer Authorizer
		NoResponse bool

		Client     *http.Client
		UserAgent  string
		ParseError func(res *http.Response, b []byte) error
	}
)

var log = logger.WithNamespace("request")

// BasicAuthorizer implements the HTTP basic auth for authorization.
type BasicAuthorizer struct {
	Username string
	Password string
}

// AuthHeader implemented the interface Authorizer.
func (b *BasicAuthorizer) AuthHeader() string {
	auth := b.Username + ":" + b.Password
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(auth))
}

// BearerAuthorizer implements a placeholder authorizer if the token is already
// known.
type BearerAuthorizer struct {
	Token string
}

// AuthHeader implemented the interface Authorizer.
func (b *BearerAuthorizer) AuthHeader() string {
	return "Bearer " + b.Token
}

// URL returns the URL targeted by the options.
func (opts *Options) URL() *url.URL {
	scheme := opts.Scheme
	if scheme == "" {
		scheme = "http"
	}
	u := &url.URL{
		Scheme: scheme,
		Host:   opts.Domain,
		Path:   opts.Path,
	}
	if opts.Queries != nil {
		u.RawQuery = opts.Queries.Encode()
	}
	return u
}

// Req performs a request with the specified request options. It does a
// single HTTP call: retrying is the decision of the caller, helped by the
// type of the returned error (*TransportError, *Error).
func Req(ctx context.Context, opts *Options) (*http.Response, error) {
	u := opts.URL()
	req, err := http.NewRequestWithContext(ctx, opts.Method, u.String(), opts.Body)
	if err != nil {
		return nil, err
	}

	for k, v := range opts.Headers {
		if k == "Content-Length" {
			var contentLength int64
			contentLength, err = strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("Invalid Content-Length value")
			}
			req.ContentLength = contentLength
		} else {
			req.Header.Add(k, v)
		}
	}

	if opts.Authorizer != nil {
		req.Header.Add("Authorization", opts.Authorizer.AuthHeader())
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = build.UserAgent()
	}
	req.Header.Add("User-Agent", ua)

	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}

	log.Debugf("%s %s", opts.Method, u.Redacted())
	res, err := client.Do(req)
	if err != nil {
		return nil, &TransportError{Method: opts.Method, URL: u.Redacted(), Err: err}
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, parseError(opts, res)
	}

	if opts.NoResponse {
		if err = res.Body.Close(); err != nil {
			return nil, err
		}
	}

	return res, nil
}

func parseError(opts *Options, res *http.Response) (err error) {
	defer checkClose(res.Body, &err)
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return &Error{
			StatusCode: res.StatusCode,
			Status:     http.StatusText(res.StatusCode),
			Title:      http.StatusText(res.StatusCode),
			Detail:     err.Error(),
		}
	}
	if opts.ParseError == nil {
		return &Error{
			StatusCode: res.StatusCode,
			Status:     http.StatusText(res.StatusCode),
			Title:      http.StatusText(res.StatusCode),
			Detail:     string(b),
			Body:       b,
		}
	}
	return opts.ParseError(res, b)
}

// ReadAll reads the body of the response and closes it.
func ReadAll(res *http.Response) (b []byte, err error) {
	defer checkClose(res.Body, &err)
	b, err = io.ReadAll(res.Body)
	if err != nil {
		return nil, &TransportError{Method: res.Request.Method, URL: res.Request.URL.Redacted(), Err: err}
	}
	return b, nil
}

// ReadJSON reads the body of the response, closes it, and decodes it as JSON
// in data. A body that is not the expected JSON gives a *ParseError.
func ReadJSON(res *http.Response, data interface{}) error {
	b, err := ReadAll(res)
	if err != nil {
		return err
	}
	return DecodeJSON(res, b, data)
}

// DecodeJSON decodes an already read body, with the same errors as ReadJSON.
func DecodeJSON(res *http.Response, b []byte, data interface{}) error {
	if len(bytes.TrimSpace(b)) == 0 {
		return &ParseError{StatusCode: res.StatusCode, ContentType: res.Header.Get("Content-Type"), Err: io.ErrUnexpectedEOF}
	}
	if err := json.Unmarshal(b, data); err != nil {
		return &ParseError{
			StatusCode:  res.StatusCode,
			ContentType: res.Header.Get("Content-Type"),
			Body:        b,
			Err:         err,
		}
	}
	return nil
}

func checkClose(c io.Closer, err *error) {
	cerr := c.Close()
	if *err == nil && cerr != nil {
		*err = cerr
	}
}
