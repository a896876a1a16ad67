package request

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func optionsFor(ts *httptest.Server, method, path string) *Options {
	return &Options{
		Scheme: "http",
		Domain: strings.TrimPrefix(ts.URL, "http://"),
		Method: method,
		Path:   path,
		Client: ts.Client(),
	}
}

func TestBasicAuthorizer(t *testing.T) {
	a := &BasicAuthorizer{Username: "admin", Password: "admin"}
	assert.Equal(t, "Basic YWRtaW46YWRtaW4=", a.AuthHeader())
	assert.Equal(t, a.AuthHeader(), a.AuthHeader())

	b := &BasicAuthorizer{Username: "user", Password: "p:ss wörd"}
	assert.Equal(t, "Basic dXNlcjpwOnNzIHfDtnJk", b.AuthHeader())
}

func TestReq(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			assert.Equal(t, "Basic YWRtaW46YWRtaW4=", r.Header.Get("Authorization"))
			assert.Equal(t, "repositoryInfo", r.URL.Query().Get("cmisselector"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"bedroom":{"rootFolderId":"root"}}`))
		case "/garbage":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<html>oops</html>`))
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"exception":"objectNotFound","message":"Not found"}`))
		case "/boom":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`internal error`))
		case "/slow":
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}
	}))
	defer ts.Close()

	t.Run("Success", func(t *testing.T) {
		opts := optionsFor(ts, http.MethodGet, "/ok")
		opts.Queries = map[string][]string{"cmisselector": {"repositoryInfo"}}
		opts.Authorizer = &BasicAuthorizer{Username: "admin", Password: "admin"}
		res, err := Req(context.Background(), opts)
		require.NoError(t, err)
		var infos map[string]map[string]string
		require.NoError(t, ReadJSON(res, &infos))
		assert.Equal(t, "root", infos["bedroom"]["rootFolderId"])
	})

	t.Run("MalformedBody", func(t *testing.T) {
		res, err := Req(context.Background(), optionsFor(ts, http.MethodGet, "/garbage"))
		require.NoError(t, err)
		var v map[string]interface{}
		err = ReadJSON(res, &v)
		require.Error(t, err)
		assert.True(t, IsParse(err))
		assert.False(t, IsTransport(err))
		var perr *ParseError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, http.StatusOK, perr.StatusCode)
		assert.Equal(t, "text/html", perr.ContentType)
		assert.Equal(t, "<html>oops</html>", string(perr.Body))
	})

	t.Run("StatusWithoutParser", func(t *testing.T) {
		_, err := Req(context.Background(), optionsFor(ts, http.MethodGet, "/boom"))
		require.Error(t, err)
		assert.True(t, IsStatus(err, http.StatusInternalServerError))
		assert.True(t, IsServerError(err))
		assert.False(t, IsNotFound(err))
		var herr *Error
		require.True(t, errors.As(err, &herr))
		assert.Equal(t, "internal error", string(herr.Body))
	})

	t.Run("StatusWithParser", func(t *testing.T) {
		opts := optionsFor(ts, http.MethodGet, "/missing")
		opts.ParseError = func(res *http.Response, b []byte) error {
			assert.Contains(t, string(b), "objectNotFound")
			return &Error{StatusCode: res.StatusCode, Title: "objectNotFound", Detail: "Not found", Body: b}
		}
		_, err := Req(context.Background(), opts)
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
		assert.Equal(t, http.StatusNotFound, StatusCode(err))
		assert.Equal(t, "404 objectNotFound: Not found", err.Error())
	})

	t.Run("Timeout", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := Req(ctx, optionsFor(ts, http.MethodGet, "/slow"))
		require.Error(t, err)
		assert.True(t, IsTransport(err))
		assert.True(t, IsTimeout(err))
		assert.Equal(t, 0, StatusCode(err))
	})
}

func TestReqConnectionRefused(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	opts := optionsFor(ts, http.MethodPost, "/core/browser/bedroom")
	ts.Close()

	_, err := Req(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.False(t, IsTimeout(err))
	assert.False(t, IsParse(err))
	assert.False(t, IsStatus(err, http.StatusNotFound))
}

func TestErrorPredicates(t *testing.T) {
	assert.True(t, IsAlreadyExists(&Error{StatusCode: 409, Title: "contentAlreadyExists"}))
	assert.True(t, IsAlreadyExists(&Error{StatusCode: 500, Detail: "user alreadyExists"}))
	assert.False(t, IsAlreadyExists(&Error{StatusCode: 500, Detail: "runtime"}))
	assert.True(t, IsPermissionDenied(&Error{StatusCode: 401}))
	assert.True(t, IsPermissionDenied(&Error{StatusCode: 500, Title: "permissionDenied"}))
	assert.False(t, IsPermissionDenied(errors.New("401")))
	assert.True(t, IsNotFound(&Error{StatusCode: 500, Title: "objectNotFound"}))
	assert.True(t, IsNotFound(&Error{StatusCode: 200, Title: "failure", Detail: "user: notFound", REST: true}))
	assert.False(t, IsNotFound(&Error{StatusCode: 500, Title: "runtime", Detail: "TypeNotFound: test:orphan could not be resolved"}))
	assert.False(t, IsNotFound(&Error{StatusCode: 200, Detail: "notFound"}))
}
