// Package fakecmis is an in-memory CMIS Browser Binding server, with the
// NemakiWare REST user and group API and the Atom ACL endpoint. It is used
// to test the client and the fixtures without a live repository, and it can
// inject the faults seen on a real server: error statuses, garbage bodies,
// dropped connections, and slow propagation of new principals.
package fakecmis

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/labstack/echo/v4"
	"github.com/nemakiware/cmis-fixture/pkg/cmis"
	"github.com/nemakiware/cmis-fixture/pkg/form"
	"github.com/nemakiware/cmis-fixture/pkg/logger"
	"github.com/nemakiware/cmis-fixture/pkg/metrics"
)

const (
	// DefaultRepository is the id of the repository served by default.
	DefaultRepository = "bedroom"
	// AdminUser is the id of the administrator.
	AdminUser = "admin"
	// AdminPassword is the password of the administrator.
	AdminPassword = "admin"

	defaultPageSize = 100
)

// Request is a request received by the server, after the fault injection.
type Request struct {
	Method    string
	Path      string
	Label     string
	Principal string
	Query     map[string][]string
	Form      *form.Decoded
}

type user struct {
	id           string
	name         string
	password     string
	firstName    string
	lastName     string
	email        string
	authFailures int
}

type group struct {
	id     string
	name   string
	users  []string
	groups []string
}

type ace struct {
	principal   string
	permissions []string
	direct      bool
}

type object struct {
	seq       int
	id        string
	name      string
	typeID    string
	baseType  string
	parentID  string
	createdBy string
	created   time.Time
	content   []byte
	mimeType  string
	filename  string
	acl       []*ace
}

// Server is the fake CMIS server. The zero value is not usable: use New.
type Server struct {
	Repository string

	mu       sync.Mutex
	seq      int
	rootID   string
	users    map[string]*user
	groups   map[string]*group
	objects  map[string]*object
	types    map[string]*cmis.TypeDefinition
	requests []Request

	faults         []fault
	deleteFailures map[string]fault
	authDelay      int
	pageSize       int
	succinct       bool
	nestedACL      bool
	flatPrincipal  bool

	echo *echo.Echo
	ts   *httptest.Server
	log  *logger.Entry
}

// New returns a server for the repository, with an administrator
// (admin/admin) and an empty root folder.
func New(repository string) *Server {
	if repository == "" {
		repository = DefaultRepository
	}
	s := &Server{
		Repository:     repository,
		users:          make(map[string]*user),
		groups:         make(map[string]*group),
		objects:        make(map[string]*object),
		types:          make(map[string]*cmis.TypeDefinition),
		deleteFailures: make(map[string]fault),
		log:            logger.WithNamespace("fakecmis"),
	}
	s.users[AdminUser] = &user{id: AdminUser, name: AdminUser, password: AdminPassword}
	for _, base := range []string{cmis.BaseDocument, cmis.BaseFolder, cmis.BaseItem} {
		s.types[base] = &cmis.TypeDefinition{
			ID:        base,
			LocalName: base,
			QueryName: base,
			BaseID:    base,
			Creatable: true,
			Fileable:  base != cmis.BaseItem,
			Queryable: true,
		}
	}
	root := &object{
		id:        newID(),
		name:      "",
		typeID:    cmis.BaseFolder,
		baseType:  cmis.BaseFolder,
		createdBy: "system",
		created:   time.Now(),
		acl: []*ace{
			{principal: AdminUser, permissions: []string{cmis.PermissionAll}, direct: true},
		},
	}
	s.rootID = root.id
	s.objects[root.id] = root
	s.echo = s.routes()
	return s
}

func newID() string {
	return uuid.Must(uuid.NewV4()).String()
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts an HTTP server on a random local port and returns its URL.
func (s *Server) Start() string {
	s.ts = httptest.NewServer(s.echo)
	return s.ts.URL
}

// Close stops the HTTP server started by Start.
func (s *Server) Close() {
	if s.ts != nil {
		s.ts.Close()
	}
}

// URL returns the URL of the started server.
func (s *Server) URL() string {
	if s.ts == nil {
		return ""
	}
	return s.ts.URL
}

// BrowserURL returns the URL of the Browser Binding of the started server.
func (s *Server) BrowserURL() string {
	return s.URL() + "/core/browser"
}

func (s *Server) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.errorHandler

	e.Use(s.injectFaults)
	metrics.Routes(e.Group("/metrics"))

	browser := e.Group("/core/browser", s.basicAuth)
	browser.GET("/:repo", s.repositorySelector)
	browser.POST("/:repo", s.action)
	browser.GET("/:repo/:id", s.objectSelector)

	atom := e.Group("/core/atom", s.basicAuth)
	atom.GET("/:repo/acl", s.atomACL)

	rest := e.Group("/core/rest/repo/:repo", s.basicAuth, s.adminOnly)
	rest.POST("/user/create/:id", s.createUser)
	rest.DELETE("/user/delete/:id", s.deleteUser)
	rest.GET("/user/show/:id", s.showUser)
	rest.GET("/user/list", s.listUsers)
	rest.POST("/group/create/:id", s.createGroup)
	rest.DELETE("/group/delete/:id", s.deleteGroup)
	rest.GET("/group/list", s.listGroups)
	return e
}

func (s *Server) record(c echo.Context, label string, f *form.Decoded) {
	principal, _, _ := c.Request().BasicAuth()
	s.requests = append(s.requests, Request{
		Method:    c.Request().Method,
		Path:      c.Request().URL.Path,
		Label:     label,
		Principal: principal,
		Query:     c.QueryParams(),
		Form:      f,
	})
}

// Requests returns the requests received so far, faults excluded.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestsLabelled returns the requests with the given action or selector.
func (s *Server) RequestsLabelled(label string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Label == label {
			out = append(out, r)
		}
	}
	return out
}

// RootID returns the id of the root folder.
func (s *Server) RootID() string {
	return s.rootID
}

// SetPageSize caps the number of items of a page, whatever the maxItems
// sent by the client.
func (s *Server) SetPageSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageSize = n
}

// SetSuccinct makes the server answer with the succinct shape of the
// objects, even when the client does not ask for it.
func (s *Server) SetSuccinct(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.succinct = v
}

// SetNestedACL makes the server send the ACL under an acl key.
func (s *Server) SetNestedACL(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nestedACL = v
}

// SetFlatPrincipal makes the server send the principal of an ACE as a flat
// principalId instead of a principal object.
func (s *Server) SetFlatPrincipal(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flatPrincipal = v
}

// AuthDelay makes every user created from now on fail to authenticate n
// times before being accepted, as a server that propagates new principals
// asynchronously.
func (s *Server) AuthDelay(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authDelay = n
}

// AddUser creates a user directly, without delay of propagation.
func (s *Server) AddUser(id, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = &user{id: id, name: id, password: password}
}

// HasUser returns true if the user exists.
func (s *Server) HasUser(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[id]
	return ok
}

// HasGroup returns true if the group exists.
func (s *Server) HasGroup(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.groups[id]
	return ok
}

// HasType returns true if the type is defined.
func (s *Server) HasType(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.types[id]
	return ok
}

// Exists returns true if the object exists.
func (s *Server) Exists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[id]
	return ok
}

// Count returns the number of objects, root folder excluded.
func (s *Server) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects) - 1
}

// AddObject creates an object directly, without any check on its type. It
// is used to seed objects of a type that will later be removed.
func (s *Server) AddObject(parentID, name, typeID, baseType string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if parentID == "" {
		parentID = s.rootID
	}
	return s.insert(parentID, name, typeID, baseType, AdminUser).id
}

// OrphanType removes the definition of a type while keeping the objects of
// this type, as a repository where a type was deleted behind its objects.
func (s *Server) OrphanType(typeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.types, typeID)
}

// ACL returns the ACL of an object, or nil.
func (s *Server) ACL(id string) *cmis.ACL {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[id]
	if !ok {
		return nil
	}
	return obj.cmisACL()
}

// insert must be called with the lock held.
func (s *Server) insert(parentID, name, typeID, baseType, creator string) *object {
	s.seq++
	obj := &object{
		seq:       s.seq,
		id:        newID(),
		name:      name,
		typeID:    typeID,
		baseType:  baseType,
		parentID:  parentID,
		createdBy: creator,
		created:   time.Now(),
	}
	if parent, ok := s.objects[parentID]; ok {
		for _, a := range parent.acl {
			obj.acl = append(obj.acl, &ace{
				principal:   a.principal,
				permissions: append([]string(nil), a.permissions...),
				direct:      false,
			})
		}
	}
	s.objects[obj.id] = obj
	return obj
}

// children must be called with the lock held.
func (s *Server) children(parentID string) []*object {
	var out []*object
	for _, obj := range s.objects {
		if obj.parentID == parentID && obj.id != s.rootID {
			out = append(out, obj)
		}
	}
	sortObjects(out)
	return out
}

func sortObjects(objs []*object) {
	sort.Slice(objs, func(i, j int) bool { return objs[i].seq < objs[j].seq })
}

// isA returns true if the object is of the type or of a subtype. It must be
// called with the lock held.
func (s *Server) isA(obj *object, typeID string) bool {
	switch typeID {
	case cmis.BaseObject:
		return true
	case cmis.BaseDocument, cmis.BaseFolder, cmis.BaseItem:
		return obj.baseType == typeID
	}
	for t := obj.typeID; t != ""; {
		if t == typeID {
			return true
		}
		def, ok := s.types[t]
		if !ok || def.ParentID == t {
			return false
		}
		t = def.ParentID
	}
	return false
}
