// Package fixture holds the test data of a suite: the objects, types and
// principals it creates on a CMIS repository, and their removal.
//
// Every name produced by a Session starts with the session prefix and ends
// with a random suffix, so that suites running in parallel on the same
// repository never see each other's data.
package fixture

import (
	"context"
	"sync"

	"github.com/nemakiware/cmis-fixture/client"
	"github.com/nemakiware/cmis-fixture/pkg/cmis"
	"github.com/nemakiware/cmis-fixture/pkg/config/config"
	"github.com/nemakiware/cmis-fixture/pkg/form"
	"github.com/nemakiware/cmis-fixture/pkg/utils"
)

// Options are the settings of a Session.
type Options struct {
	// Tree removes the folders of the session with their content.
	Tree bool
	// Skip keeps the data at the end of the session.
	Skip bool
	// Auth is the policy used to wait for a new principal, by default
	// utils.DefaultAuthPolicy.
	Auth utils.RetryPolicy
}

// Session bundles what a test suite needs to create and remove its data.
type Session struct {
	Client      *client.Client
	Cleaner     *Cleaner
	Provisioner *Provisioner
	Prefix      string
	Options     Options

	mu    sync.Mutex
	types []string
}

// NewSession returns a session for the suite name. The prefix of the names
// is the suite name followed by a short random part.
func NewSession(c *client.Client, suite string, opts Options) *Session {
	return &Session{
		Client:      c,
		Cleaner:     NewCleaner(c),
		Provisioner: NewProvisioner(c, opts.Auth),
		Prefix:      suite + "-" + utils.RandomString(6),
		Options:     opts,
	}
}

// FromConfig returns a session on the configured server, with the admin
// credentials.
func FromConfig(suite string) (*Session, error) {
	c, err := config.NewClient()
	if err != nil {
		return nil, err
	}
	cfg := config.GetConfig()
	return NewSession(c, suite, Options{
		Tree: cfg.Cleanup.Tree,
		Skip: cfg.Cleanup.Skip,
		Auth: cfg.Auth,
	}), nil
}

// Name returns a unique name for an object of the session, like
// <prefix>-restricted-folder-<uuid>.
func (s *Session) Name(kind string) string {
	return UniqueName(s.Prefix + "-" + kind)
}

// Pattern returns the LIKE pattern matching all the names of the session.
func (s *Session) Pattern() string {
	return Pattern(s.Prefix)
}

// CreateFolder creates a folder with a unique name in the parent folder, or
// in the root folder if parentID is empty.
func (s *Session) CreateFolder(ctx context.Context, parentID, kind string) (*cmis.Object, error) {
	if parentID == "" {
		var err error
		if parentID, err = s.Client.RootFolderID(ctx); err != nil {
			return nil, err
		}
	}
	return s.Client.CreateFolder(ctx, parentID, s.Name(kind))
}

// CreateDocument creates a document with a unique name in the parent folder,
// or in the root folder if parentID is empty.
func (s *Session) CreateDocument(ctx context.Context, parentID, kind string, content *form.Content) (*cmis.Object, error) {
	if parentID == "" {
		var err error
		if parentID, err = s.Client.RootFolderID(ctx); err != nil {
			return nil, err
		}
	}
	return s.Client.CreateDocument(ctx, parentID, s.Name(kind), content)
}

// CreateType creates a document type with a unique id, removed at the end
// of the session after the objects.
func (s *Session) CreateType(ctx context.Context, kind string) (*cmis.TypeDefinition, error) {
	id := UniquePrincipalID(s.Prefix + kind)
	def, err := s.Client.CreateType(ctx, cmis.NewDocumentType("test:"+id, ""))
	if err != nil {
		return nil, err
	}
	s.RegisterType(def.ID)
	return def, nil
}

// RegisterType adds a type to remove at the end of the session.
func (s *Session) RegisterType(typeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !utils.IsInArray(typeID, s.types) {
		s.types = append(s.types, typeID)
	}
}

// Plan returns the cleanup plan of the session: its documents (including
// those of a type that is gone), its folders, and its types. The documents
// come first so that a cleanup without Tree finds the folders empty.
func (s *Session) Plan() Plan {
	s.mu.Lock()
	types := append([]string(nil), s.types...)
	s.mu.Unlock()
	return Plan{
		Targets: []Target{
			{BaseType: cmis.BaseDocument, Pattern: s.Pattern()},
			{BaseType: cmis.BaseFolder, Pattern: s.Pattern()},
		},
		Tree:    s.Options.Tree,
		TypeIDs: types,
	}
}

// Cleanup removes the data of the session, then its principals. It is meant
// to be called after each test, or at the end of the suite, and never
// fails: the report tells what could not be removed.
func (s *Session) Cleanup(ctx context.Context) *Report {
	if s.Options.Skip {
		cleanupLog.Infof("cleanup of %s skipped", s.Prefix)
		return &Report{}
	}
	r := s.Cleaner.Run(ctx, s.Plan())
	r.Merge(s.Provisioner.Teardown(ctx))
	return r
}
