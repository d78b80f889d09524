package session

import (
	"context"
	"errors"
	"sync"

	"github.com/rebeliceyang/sequel/internal/client"
	"github.com/rebeliceyang/sequel/internal/models"
)

// gate parks a backend call until released
type gate struct {
	entered chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gate) wait() {
	close(g.entered)
	<-g.release
}

type fakeBackend struct {
	mu    sync.Mutex
	calls map[string]int

	connections []models.ServerConnection
	databases   map[int][]string
	// objects is keyed by database, then by parent name ("" for roots)
	objects map[string]map[string][]models.DatabaseObjectNode

	addErr    error
	deleteErr error
	testErr   error
	listErr   error
	dbErr     error
	objErr    error

	queryResp   *models.QueryResponseContext
	queryErr    error
	lastQuery   models.QueryExecutionContext
	lastObjects models.QueryExecutionContext

	dbGates  map[int]*gate
	objGates map[string]*gate
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		calls:     make(map[string]int),
		databases: make(map[int][]string),
		objects:   make(map[string]map[string][]models.DatabaseObjectNode),
		dbGates:   make(map[int]*gate),
		objGates:  make(map[string]*gate),
	}
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeBackend) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeBackend) setObjects(database, parent string, names ...string) {
	nodes := make([]models.DatabaseObjectNode, 0, len(names))
	for _, n := range names {
		nodes = append(nodes, models.DatabaseObjectNode{Name: n, Type: "object"})
	}
	if f.objects[database] == nil {
		f.objects[database] = make(map[string][]models.DatabaseObjectNode)
	}
	f.objects[database][parent] = nodes
}

func (f *fakeBackend) ListServerConnections(context.Context) ([]models.ServerConnection, error) {
	f.hit("ListServerConnections")
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ServerConnection(nil), f.connections...), nil
}

func (f *fakeBackend) AddServerConnection(_ context.Context, conn models.ServerConnection) error {
	f.hit("AddServerConnection")
	if f.addErr != nil {
		return f.addErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	conn.ID = len(f.connections) + 1
	f.connections = append(f.connections, conn)
	return nil
}

func (f *fakeBackend) DeleteServerConnection(_ context.Context, id int) error {
	f.hit("DeleteServerConnection")
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.connections {
		if c.ID == id {
			f.connections = append(f.connections[:i], f.connections[i+1:]...)
			return nil
		}
	}
	return &client.RemoteError{StatusCode: 404, Reason: "Not Found"}
}

func (f *fakeBackend) TestServerConnection(context.Context, models.ServerConnection) error {
	f.hit("TestServerConnection")
	return f.testErr
}

func (f *fakeBackend) ListDatabases(_ context.Context, conn models.ServerConnection) ([]string, error) {
	f.hit("ListDatabases")
	f.mu.Lock()
	g := f.dbGates[conn.ID]
	f.mu.Unlock()
	if g != nil {
		g.wait()
	}
	if f.dbErr != nil {
		return nil, f.dbErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.databases[conn.ID], nil
}

func (f *fakeBackend) ListDatabaseObjects(_ context.Context, qc models.QueryExecutionContext) ([]models.DatabaseObjectNode, error) {
	f.hit("ListDatabaseObjects")
	f.mu.Lock()
	f.lastObjects = qc
	g := f.objGates[qc.Database]
	f.mu.Unlock()
	if g != nil {
		g.wait()
	}
	if f.objErr != nil {
		return nil, f.objErr
	}
	parent := ""
	if qc.DatabaseObject != nil {
		parent = qc.DatabaseObject.Name
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[qc.Database][parent], nil
}

func (f *fakeBackend) ExecuteQuery(_ context.Context, qc models.QueryExecutionContext) (*models.QueryResponseContext, error) {
	f.hit("ExecuteQuery")
	f.mu.Lock()
	f.lastQuery = qc
	f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.queryResp, nil
}

var errBoom = errors.New("boom")

func (f *fakeBackend) lastObjectQuery(t interface{ Helper() }) models.QueryExecutionContext {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastObjects
}
