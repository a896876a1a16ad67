package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/nemakiware/cmis-fixture/client/request"
	"github.com/nemakiware/cmis-fixture/pkg/logger"
	"github.com/nemakiware/cmis-fixture/pkg/metrics"
)

// DefaultTimeout is the timeout of a single call when the Client has none.
// It is generous: a deleteTree on a server with a loaded index often takes
// 10 to 15 seconds.
const DefaultTimeout = 60 * time.Second

const (
	// DefaultBrowserPath is the path of the Browser Binding on a NemakiWare
	// server.
	DefaultBrowserPath = "/core/browser"
	// DefaultRESTPath is the path of the NemakiWare management API.
	DefaultRESTPath = "/core/rest"
	// DefaultAtomPath is the path of the AtomPub binding.
	DefaultAtomPath = "/core/atom"
)

// cmisError is the JSON body of a Browser Binding error.
type cmisError struct {
	Exception string `json:"exception"`
	Message   string `json:"message"`
}

// restResult is the envelope of the NemakiWare REST responses.
type restResult struct {
	Status string          `json:"status"`
	Error  json.RawMessage `json:"error,omitempty"`
}

// Client encapsulates the element representing a typical connection to the
// CMIS server of a repository.
//
// It holds the credentials used for every call, as well as the transport
// layer. A Client holds no mutable state once initialized and can be shared.
type Client struct {
	Scheme      string
	Domain      string
	BrowserPath string
	RESTPath    string
	AtomPath    string
	Repository  string
	Authorizer  request.Authorizer
	// RESTAuthorizer, when set, is used for the management API in place of
	// Authorizer.
	RESTAuthorizer request.Authorizer

	// PageSize is the maxItems of the paged calls (query, children).
	PageSize int
	// Succinct asks the server for the succinct shape of the objects.
	Succinct bool

	Client    *http.Client
	Timeout   time.Duration
	UserAgent string
	Transport http.RoundTripper

	inited bool
	initMu sync.Mutex
}

// New returns a client for the repository, from the URL of the Browser
// Binding (like http://localhost:8080/core/browser). The REST and Atom paths
// are guessed as the siblings of the Browser Binding path.
func New(browserURL, repository string, authorizer request.Authorizer) (*Client, error) {
	u, err := url.Parse(browserURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, &url.Error{Op: "parse", URL: browserURL, Err: errMissingHost}
	}
	browserPath := strings.TrimSuffix(u.Path, "/")
	if browserPath == "" {
		browserPath = DefaultBrowserPath
	}
	base := path.Dir(browserPath)
	return &Client{
		Scheme:      u.Scheme,
		Domain:      u.Host,
		BrowserPath: browserPath,
		RESTPath:    path.Join(base, "rest"),
		AtomPath:    path.Join(base, "atom"),
		Repository:  repository,
		Authorizer:  authorizer,
	}, nil
}

func (c *Client) init() {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	if c.inited {
		return
	}
	if c.BrowserPath == "" {
		c.BrowserPath = DefaultBrowserPath
	}
	if c.RESTPath == "" {
		c.RESTPath = DefaultRESTPath
	}
	if c.AtomPath == "" {
		c.AtomPath = DefaultAtomPath
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Transport == nil {
		c.Transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
		}
	}
	if c.Client == nil {
		c.Client = &http.Client{
			Timeout:   c.Timeout,
			Transport: c.Transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	c.inited = true
}

// WithAuthorizer returns a client for the same server and repository, but
// with other credentials, for both bindings and the management API. The
// transport is shared.
func (c *Client) WithAuthorizer(a request.Authorizer) *Client {
	c.init()
	return &Client{
		Scheme:      c.Scheme,
		Domain:      c.Domain,
		BrowserPath: c.BrowserPath,
		RESTPath:    c.RESTPath,
		AtomPath:    c.AtomPath,
		Repository:  c.Repository,
		Authorizer:  a,
		PageSize:    c.PageSize,
		Succinct:    c.Succinct,
		Client:      c.Client,
		Timeout:     c.Timeout,
		UserAgent:   c.UserAgent,
		Transport:   c.Transport,
	}
}

// BaseURL returns the URL of the server, without path.
func (c *Client) BaseURL() string {
	scheme := c.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return scheme + "://" + c.Domain
}

func (c *Client) repositoryPath() string {
	return c.BrowserPath + "/" + url.PathEscape(c.Repository)
}

func (c *Client) restPath(parts ...string) string {
	p := c.RESTPath + "/repo/" + url.PathEscape(c.Repository)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

// Req is used to perform a request to the server given the request options.
// The label is used for the metrics (the CMIS action or selector).
func (c *Client) Req(ctx context.Context, label string, opts *request.Options) (*http.Response, error) {
	c.init()
	if opts.Authorizer == nil {
		opts.Authorizer = c.Authorizer
	}
	if opts.Domain == "" {
		opts.Domain = c.Domain
	}
	opts.Scheme = c.Scheme
	opts.Client = c.Client
	opts.UserAgent = c.UserAgent
	opts.ParseError = parseCMISError

	start := time.Now()
	res, err := request.Req(ctx, opts)
	code := "error"
	if err == nil {
		code = strconv.Itoa(res.StatusCode)
	} else if status := request.StatusCode(err); status != 0 {
		code = strconv.Itoa(status)
	}
	metrics.CMISRequestDurations.
		WithLabelValues(opts.Method, label, code).
		Observe(time.Since(start).Seconds())

	if err != nil {
		logger.WithNamespace("client").
			WithFields(logger.Fields{"method": opts.Method, "label": label}).
			Debugf("request failed: %s", err)
	}
	return res, err
}

// parseCMISError builds a *request.Error from the body of an error response.
// The Browser Binding sends {"exception":..., "message":...}; the REST API
// sends {"status":"failure", "error":...}; a servlet container in front of
// them may answer with an HTML page.
func parseCMISError(res *http.Response, b []byte) error {
	herr := &request.Error{
		StatusCode: res.StatusCode,
		Status:     http.StatusText(res.StatusCode),
		Title:      http.StatusText(res.StatusCode),
		Detail:     string(b),
		Body:       b,
	}
	var cerr cmisError
	if err := json.Unmarshal(b, &cerr); err == nil && cerr.Exception != "" {
		herr.Title = cerr.Exception
		herr.Detail = cerr.Message
		return herr
	}
	var rerr restResult
	if err := json.Unmarshal(b, &rerr); err == nil && len(rerr.Error) > 0 {
		herr.Detail = restErrorMessage(rerr.Error)
		herr.REST = true
		return herr
	}
	if strings.Contains(res.Header.Get("Content-Type"), "html") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(b))); err == nil {
			title := strings.TrimSpace(doc.Find("title").First().Text())
			if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
				title = h1
			}
			if title != "" {
				herr.Detail = title
			}
		}
	}
	return herr
}

// restErrorMessage flattens the error field of a REST result. NemakiWare
// sends either a string or a list of {"item": "code"} objects.
func restErrorMessage(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []map[string]string
	if err := json.Unmarshal(raw, &list); err == nil {
		var msgs []string
		for _, m := range list {
			for k, v := range m {
				msgs = append(msgs, k+": "+v)
			}
		}
		return strings.Join(msgs, ", ")
	}
	return string(raw)
}
