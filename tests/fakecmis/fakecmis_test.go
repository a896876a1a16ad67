package fakecmis_test

import (
	"net/http"
	"testing"

	"github.com/nemakiware/cmis-fixture/pkg/cmis"
	"github.com/nemakiware/cmis-fixture/tests/fakecmis"
	"github.com/nemakiware/cmis-fixture/tests/testutils"
)

func TestFakeServer(t *testing.T) {
	server := fakecmis.New("")
	server.Start()
	t.Cleanup(server.Close)
	e := testutils.CreateTestClient(t, server.URL())

	t.Run("AuthRequired", func(t *testing.T) {
		e.GET("/core/browser/bedroom").
			Expect().Status(http.StatusUnauthorized).
			JSON().Object().HasValue("exception", "unauthorized")

		e.GET("/core/browser/bedroom").
			WithBasicAuth("admin", "wrong").
			Expect().Status(http.StatusUnauthorized)
	})

	t.Run("RepositoryInfo", func(t *testing.T) {
		obj := e.GET("/core/browser/bedroom").
			WithQuery("cmisselector", "repositoryInfo").
			WithBasicAuth("admin", "admin").
			Expect().Status(http.StatusOK).
			JSON().Object().Value("bedroom").Object()
		obj.HasValue("repositoryId", "bedroom")
		obj.HasValue("rootFolderId", server.RootID())
	})

	t.Run("UnknownRepository", func(t *testing.T) {
		e.GET("/core/browser/nope").
			WithBasicAuth("admin", "admin").
			Expect().Status(http.StatusNotFound).
			JSON().Object().HasValue("exception", "objectNotFound")
	})

	t.Run("CreateAndQuery", func(t *testing.T) {
		e.POST("/core/browser/bedroom").
			WithBasicAuth("admin", "admin").
			WithFormField("cmisaction", "createFolder").
			WithFormField("objectId", server.RootID()).
			WithFormField("propertyId[0]", "cmis:objectTypeId").
			WithFormField("propertyValue[0]", "cmis:folder").
			WithFormField("propertyId[1]", "cmis:name").
			WithFormField("propertyValue[1]", "it's-here").
			Expect().Status(http.StatusCreated).
			JSON().Object().
			Value("properties").Object().
			Value("cmis:name").Object().
			HasValue("value", "it's-here")

		e.POST("/core/browser/bedroom").
			WithBasicAuth("admin", "admin").
			WithFormField("cmisaction", "createFolder").
			WithFormField("objectId", server.RootID()).
			WithFormField("propertyId[0]", "cmis:name").
			WithFormField("propertyValue[0]", "it's-here").
			Expect().Status(http.StatusConflict).
			JSON().Object().HasValue("exception", "nameConstraintViolation")

		res := e.GET("/core/browser/bedroom").
			WithBasicAuth("admin", "admin").
			WithQuery("cmisselector", "query").
			WithQuery("q", `SELECT cmis:objectId FROM cmis:folder WHERE cmis:name LIKE 'it\'s-%'`).
			WithQuery("succinct", "true").
			Expect().Status(http.StatusOK).
			JSON().Object()
		res.HasValue("numItems", 1)
		res.HasValue("hasMoreItems", false)
		row := res.Value("results").Array().Value(0).Object().Value("succinctProperties").Object()
		row.ContainsKey(cmis.PropObjectID)
		row.NotContainsKey(cmis.PropName)
	})

	t.Run("RESTAdminOnly", func(t *testing.T) {
		server.AddUser("bob", "secret")
		e.GET("/core/rest/repo/bedroom/user/list").
			WithBasicAuth("bob", "secret").
			Expect().Status(http.StatusForbidden)
		e.GET("/core/rest/repo/bedroom/user/list").
			WithBasicAuth("admin", "admin").
			Expect().Status(http.StatusOK).
			JSON().Object().HasValue("status", "success")
	})

	t.Run("Faults", func(t *testing.T) {
		server.FailNext(1, http.StatusInternalServerError, `{"exception":"runtime","message":"boom"}`)
		server.MalformNext(1)
		e.GET("/core/browser/bedroom").
			WithBasicAuth("admin", "admin").
			Expect().Status(http.StatusInternalServerError).
			JSON().Object().HasValue("message", "boom")
		e.GET("/core/browser/bedroom").
			WithBasicAuth("admin", "admin").
			Expect().Status(http.StatusOK).
			ContentType("text/html")
		e.GET("/core/browser/bedroom").
			WithBasicAuth("admin", "admin").
			Expect().Status(http.StatusOK).
			JSON().Object().ContainsKey("bedroom")
	})

	t.Run("Metrics", func(t *testing.T) {
		e.GET("/metrics").Expect().Status(http.StatusOK)
	})
}

func TestAuthDelay(t *testing.T) {
	server := fakecmis.New("")
	server.Start()
	t.Cleanup(server.Close)
	e := testutils.CreateTestClient(t, server.URL())

	server.AuthDelay(2)
	e.POST("/core/rest/repo/bedroom/user/create/late").
		WithBasicAuth("admin", "admin").
		WithFormField("name", "late").
		WithFormField("password", "pw").
		Expect().Status(http.StatusOK).
		JSON().Object().HasValue("status", "success")

	for i := 0; i < 2; i++ {
		e.GET("/core/browser/bedroom").
			WithBasicAuth("late", "pw").
			Expect().Status(http.StatusUnauthorized)
	}
	e.GET("/core/browser/bedroom").
		WithBasicAuth("late", "pw").
		Expect().Status(http.StatusOK)
}
