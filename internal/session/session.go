// Package session is the client-side state orchestrator. It owns the
// connection registry, database catalog, object tree, query tabs and the
// notification snackbar, and runs the server -> database -> object tree
// fetch cascade against the backend.
//
// Every fetch in the cascade is stamped with a generation captured when it
// starts. A result that comes back after the selection it was issued for
// has changed is dropped instead of being applied.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rebeliceyang/sequel/internal/logger"
	"github.com/rebeliceyang/sequel/internal/models"
)

var (
	// ErrInvalidTabReference is returned for a tab position with no tab
	ErrInvalidTabReference = errors.New("invalid tab reference")
	// ErrUnknownNode is returned for a node id not in the current tree
	ErrUnknownNode = errors.New("unknown database object node")
	// ErrNoActiveTab is returned when a command needs an active tab
	ErrNoActiveTab = errors.New("no active query tab")
	// ErrNoActiveConnection is returned when a command needs an active connection
	ErrNoActiveConnection = errors.New("no active connection")
	// ErrNoActiveDatabase is returned when a command needs an active database
	ErrNoActiveDatabase = errors.New("no active database")
)

// Backend is the REST API the session drives
type Backend interface {
	ListServerConnections(ctx context.Context) ([]models.ServerConnection, error)
	AddServerConnection(ctx context.Context, conn models.ServerConnection) error
	DeleteServerConnection(ctx context.Context, id int) error
	TestServerConnection(ctx context.Context, conn models.ServerConnection) error
	ListDatabases(ctx context.Context, conn models.ServerConnection) ([]string, error)
	ListDatabaseObjects(ctx context.Context, qc models.QueryExecutionContext) ([]models.DatabaseObjectNode, error)
	ExecuteQuery(ctx context.Context, qc models.QueryExecutionContext) (*models.QueryResponseContext, error)
}

// Execution describes one finished query run
type Execution struct {
	Connection models.ServerConnection
	Database   string
	Query      string
	Response   *models.QueryResponseContext // nil when the call itself failed
	Err        error
	Duration   time.Duration
	ExecutedAt time.Time
}

// Recorder receives every query execution, e.g. a history store
type Recorder interface {
	Record(ctx context.Context, exec Execution) error
}

// Option configures a Session
type Option func(*Session)

// WithLogger sets the session logger
func WithLogger(l *logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l.WithComponent("session")
		}
	}
}

// WithRecorder records query executions
func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// WithTabIDs replaces the tab identity generator
func WithTabIDs(gen func() string) Option {
	return func(s *Session) {
		if gen != nil {
			s.tabs.newID = gen
		}
	}
}

// Session owns all client state. All mutation goes through its methods;
// the lock is never held across a backend call.
type Session struct {
	backend  Backend
	recorder Recorder
	logger   *logger.Logger

	mu       sync.Mutex
	notice   notifier
	registry registry
	catalog  catalog
	tree     objectTree
	tabs     tabSession

	// connGen guards database list results, treeGen guards tree results
	connGen uint64
	treeGen uint64

	subs    map[int]chan Snapshot
	nextSub int
}

// New creates a session on top of backend
func New(backend Backend, opts ...Option) *Session {
	s := &Session{
		backend: backend,
		logger:  logger.Discard(),
		tree:    newObjectTree(),
		tabs:    newTabSession(),
		subs:    make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ShowNotification replaces the current notification and shows it
func (s *Session) ShowNotification(n models.AppSnackbar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice.show(n)
	s.publishLocked()
}

// HideNotification hides the notification but keeps its text
func (s *Session) HideNotification() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice.hide()
	s.publishLocked()
}

// RefreshConnections replaces the connection list with the backend's
func (s *Session) RefreshConnections(ctx context.Context) error {
	conns, err := s.backend.ListServerConnections(ctx)
	if err != nil {
		s.logger.Warn("failed to fetch server connections", "error", err)
		s.ShowNotification(failureNotice("Could not load database connections", err))
		return fmt.Errorf("failed to fetch server connections: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry.replace(conns)
	s.publishLocked()
	return nil
}

// AddConnection creates a connection on the backend and reloads the list
func (s *Session) AddConnection(ctx context.Context, conn models.ServerConnection) error {
	if err := s.backend.AddServerConnection(ctx, conn); err != nil {
		s.logger.Warn("failed to add server connection", "connection", conn, "error", err)
		s.ShowNotification(failureNotice("Could not add database connection", err))
		return fmt.Errorf("failed to add server connection: %w", err)
	}
	if err := s.RefreshConnections(ctx); err != nil {
		return err
	}
	s.ShowNotification(successNotice("New database connection added."))
	return nil
}

// DeleteConnection removes a connection on the backend and reloads the list.
// Deleting the active connection leaves no active connection.
func (s *Session) DeleteConnection(ctx context.Context, id int) error {
	if err := s.backend.DeleteServerConnection(ctx, id); err != nil {
		s.logger.Warn("failed to delete server connection", "connection_id", id, "error", err)
		s.ShowNotification(failureNotice("Could not delete database connection", err))
		return fmt.Errorf("failed to delete server connection %d: %w", id, err)
	}
	if err := s.RefreshConnections(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	wasActive := s.registry.isActive(id)
	s.mu.Unlock()
	if wasActive {
		if err := s.SetActiveConnection(ctx, nil); err != nil {
			return err
		}
	}

	s.ShowNotification(successNotice("Database connection deleted."))
	return nil
}

// TestConnection asks the backend to verify conn. No state changes.
func (s *Session) TestConnection(ctx context.Context, conn models.ServerConnection) error {
	if err := s.backend.TestServerConnection(ctx, conn); err != nil {
		s.ShowNotification(failureNotice("Database connection failed", err))
		return fmt.Errorf("connection test failed: %w", err)
	}
	s.ShowNotification(successNotice("Database connection succeeded."))
	return nil
}

// SetActiveConnection selects conn (nil for none), drops the catalog and
// tree of the previous selection and refetches the database list.
func (s *Session) SetActiveConnection(ctx context.Context, conn *models.ServerConnection) error {
	s.mu.Lock()
	s.registry.setActive(conn)
	s.connGen++
	s.treeGen++
	s.catalog.clear()
	s.tree.clear()
	s.publishLocked()
	s.mu.Unlock()

	if conn != nil {
		s.logger.WithConnection(conn.ID).Debug("active connection changed", "dbms", conn.DBMS)
	}
	return s.RefreshDatabases(ctx)
}

// SetEditDraft replaces the connection being edited. It has no other effect.
func (s *Session) SetEditDraft(conn *models.ServerConnection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry.setDraft(conn)
	s.publishLocked()
}

// RefreshDatabases reloads the database list of the active connection and
// then selects its first database, which in turn reloads the tree.
func (s *Session) RefreshDatabases(ctx context.Context) error {
	s.mu.Lock()
	gen := s.connGen
	active := s.registry.active.Clone()
	if active == nil {
		s.catalog.replace(nil)
		treeGen := s.selectDatabaseLocked("")
		s.publishLocked()
		s.mu.Unlock()
		return s.refreshRoots(ctx, treeGen)
	}
	s.mu.Unlock()

	names, err := s.backend.ListDatabases(ctx, *active)
	if err != nil {
		if s.connStale(gen) {
			return nil
		}
		s.logger.Warn("failed to fetch databases", "connection", *active, "error", err)
		s.ShowNotification(failureNotice("Could not load databases", err))
		return fmt.Errorf("failed to fetch databases for %s: %w", active, err)
	}

	s.mu.Lock()
	if gen != s.connGen {
		s.mu.Unlock()
		s.logger.Debug("discarding stale database list", "connection", *active)
		return nil
	}
	s.catalog.replace(names)
	treeGen := s.selectDatabaseLocked(s.catalog.defaultDatabase())
	s.publishLocked()
	s.mu.Unlock()

	return s.refreshRoots(ctx, treeGen)
}

// SetActiveDatabase selects a database ("" for none) and reloads the tree
func (s *Session) SetActiveDatabase(ctx context.Context, name string) error {
	s.mu.Lock()
	gen := s.selectDatabaseLocked(name)
	s.publishLocked()
	s.mu.Unlock()

	return s.refreshRoots(ctx, gen)
}

// selectDatabaseLocked sets the active database and invalidates the tree
func (s *Session) selectDatabaseLocked(name string) uint64 {
	s.catalog.active = name
	s.treeGen++
	s.tree.clear()
	return s.treeGen
}

// RefreshRoots reloads the root objects of the active database
func (s *Session) RefreshRoots(ctx context.Context) error {
	s.mu.Lock()
	gen := s.treeGen
	s.mu.Unlock()
	return s.refreshRoots(ctx, gen)
}

func (s *Session) refreshRoots(ctx context.Context, gen uint64) error {
	s.mu.Lock()
	if gen != s.treeGen {
		s.mu.Unlock()
		return nil
	}
	if s.catalog.active == "" || s.registry.active == nil {
		s.tree.clear()
		s.publishLocked()
		s.mu.Unlock()
		return nil
	}
	qc := models.QueryExecutionContext{
		Server:   *s.registry.active,
		Database: s.catalog.active,
	}
	s.mu.Unlock()

	nodes, err := s.backend.ListDatabaseObjects(ctx, qc)
	if err != nil {
		if s.treeStale(gen) {
			return nil
		}
		s.logger.Warn("failed to fetch database objects", "database", qc.Database, "error", err)
		s.ShowNotification(failureNotice("Could not load database objects", err))
		return fmt.Errorf("failed to fetch objects of %s: %w", qc.Database, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.treeGen {
		s.logger.Debug("discarding stale object tree", "database", qc.Database)
		return nil
	}
	s.tree.replaceRoots(nodes)
	s.publishLocked()
	return nil
}

// Expand fetches the children of a node and appends them. Expanding the
// same node again appends a second copy; callers check Loaded first.
func (s *Session) Expand(ctx context.Context, id models.NodeID) error {
	s.mu.Lock()
	gen := s.treeGen
	parent, ok := s.tree.object(id)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("expand node %d: %w", id, ErrUnknownNode)
	}
	qc := models.QueryExecutionContext{
		Server:         *s.registry.active,
		Database:       s.catalog.active,
		DatabaseObject: &parent,
	}
	s.mu.Unlock()

	nodes, err := s.backend.ListDatabaseObjects(ctx, qc)
	if err != nil {
		if s.treeStale(gen) {
			return nil
		}
		s.logger.Warn("failed to expand node", "node", parent.Name, "error", err)
		s.ShowNotification(failureNotice(fmt.Sprintf("Could not expand %s", parent.Name), err))
		return fmt.Errorf("failed to expand %s: %w", parent.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.treeGen {
		s.logger.Debug("discarding stale children", "node", parent.Name)
		return nil
	}
	if err := s.tree.appendChildren(id, nodes); err != nil {
		// the forest was reloaded while the fetch was in flight
		s.logger.Debug("discarding children of replaced node", "node", parent.Name)
		return nil
	}
	s.publishLocked()
	return nil
}

// SetActiveNode selects a node (0 for none). Selection never fetches.
func (s *Session) SetActiveNode(id models.NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != 0 && !s.tree.has(id) {
		return fmt.Errorf("select node %d: %w", id, ErrUnknownNode)
	}
	s.tree.active = id
	s.publishLocked()
	return nil
}

// OpenTab adds a new query tab and makes it active
func (s *Session) OpenTab() models.QueryTabContent {
	s.mu.Lock()
	defer s.mu.Unlock()
	tab := s.tabs.open()
	s.publishLocked()
	return tab
}

// CloseTab removes the tab at pos. See tabSession.close for how the
// active tab is chosen afterwards.
func (s *Session) CloseTab(pos int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.tabs.close(pos); err != nil {
		return err
	}
	s.publishLocked()
	return nil
}

// SetActiveTab activates the tab at pos
func (s *Session) SetActiveTab(pos int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.tabs.setActive(pos); err != nil {
		return err
	}
	s.publishLocked()
	return nil
}

// UpdateTabContent merges the editor payload of tab into the live tab with
// the same id. It reports false, and changes nothing, if that tab is gone.
func (s *Session) UpdateTabContent(tab models.QueryTabContent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tabs.mergeEditor(tab) {
		s.logger.Debug("ignoring update for closed tab", "tab", tab.ID)
		return false
	}
	s.publishLocked()
	return true
}

// ActiveEditor returns the editor payload of the active tab
func (s *Session) ActiveEditor() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tab, ok := s.tabs.active()
	return tab.Editor, ok
}

// ExecuteActiveTab runs the active tab's editor text against the active
// connection and database. The result lands on that tab even if it moved;
// it is dropped if the tab was closed meanwhile.
func (s *Session) ExecuteActiveTab(ctx context.Context) (*models.QueryResponseContext, error) {
	s.mu.Lock()
	tab, ok := s.tabs.active()
	if !ok {
		s.mu.Unlock()
		return nil, ErrNoActiveTab
	}
	if s.registry.active == nil {
		s.mu.Unlock()
		return nil, ErrNoActiveConnection
	}
	if s.catalog.active == "" {
		s.mu.Unlock()
		return nil, ErrNoActiveDatabase
	}
	qc := models.QueryExecutionContext{
		Server:   *s.registry.active,
		Database: s.catalog.active,
		Query:    tab.Editor,
	}
	s.mu.Unlock()

	start := time.Now()
	resp, err := s.backend.ExecuteQuery(ctx, qc)
	exec := Execution{
		Connection: qc.Server,
		Database:   qc.Database,
		Query:      qc.Query,
		Response:   resp,
		Err:        err,
		Duration:   time.Since(start),
		ExecutedAt: start,
	}
	if resp != nil && resp.Elapsed > 0 {
		exec.Duration = time.Duration(resp.Elapsed * float64(time.Millisecond))
	}
	s.record(ctx, exec)

	if err != nil {
		s.logger.Warn("query failed", "tab", tab.Title, "error", err)
		s.ShowNotification(failureNotice("Query failed", err))
		return nil, fmt.Errorf("failed to execute %s: %w", tab.Title, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tabs.setResult(tab.ID, resp) {
		s.logger.Debug("discarding result of closed tab", "tab", tab.ID)
	}
	if resp == nil {
		// the backend had nothing to return
		s.notice.show(successNotice("Query executed."))
	} else {
		s.notice.show(responseNotice(resp))
	}
	s.publishLocked()
	return resp, nil
}

func (s *Session) record(ctx context.Context, exec Execution) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, exec); err != nil {
		s.logger.Warn("failed to record query history", "error", err)
	}
}

func (s *Session) connStale(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen != s.connGen
}

func (s *Session) treeStale(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen != s.treeGen
}
