package client

import (
	"context"
	"fmt"

	"github.com/rebeliceyang/sequel/internal/models"
)

const (
	serverConnectionsPath = "/sequel/server-connections"
	databasesPath         = "/sequel/databases"
	databaseObjectsPath   = "/sequel/database-objects"
	queryPath             = "/sequel/query"
)

// Sequel is the typed backend API used by the session
type Sequel struct {
	http *HTTPClient
}

// NewSequel wraps a transport with the sequel endpoints
func NewSequel(http *HTTPClient) *Sequel {
	return &Sequel{http: http}
}

// ListServerConnections returns every connection known to the backend
func (s *Sequel) ListServerConnections(ctx context.Context) ([]models.ServerConnection, error) {
	var conns []models.ServerConnection
	if err := s.http.Get(ctx, serverConnectionsPath, &conns); err != nil {
		return nil, err
	}
	return conns, nil
}

// AddServerConnection registers a new connection
func (s *Sequel) AddServerConnection(ctx context.Context, conn models.ServerConnection) error {
	return s.http.Post(ctx, serverConnectionsPath, conn, nil)
}

// DeleteServerConnection removes a connection by id
func (s *Sequel) DeleteServerConnection(ctx context.Context, id int) error {
	return s.http.Delete(ctx, fmt.Sprintf("%s/%d", serverConnectionsPath, id), nil)
}

// TestServerConnection asks the backend to verify a connection without saving it
func (s *Sequel) TestServerConnection(ctx context.Context, conn models.ServerConnection) error {
	return s.http.Post(ctx, serverConnectionsPath+"/test", conn, nil)
}

// ListDatabases returns the database names reachable through conn
func (s *Sequel) ListDatabases(ctx context.Context, conn models.ServerConnection) ([]string, error) {
	var names []string
	if err := s.http.Post(ctx, databasesPath, conn, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// ListDatabaseObjects returns the objects below qc.DatabaseObject, or the
// root objects of the database when it is nil.
func (s *Sequel) ListDatabaseObjects(ctx context.Context, qc models.QueryExecutionContext) ([]models.DatabaseObjectNode, error) {
	var nodes []models.DatabaseObjectNode
	if err := s.http.Post(ctx, databaseObjectsPath, qc, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// ExecuteQuery runs qc.Query against the server and database in qc.
// An empty success response yields a nil result and no error.
func (s *Sequel) ExecuteQuery(ctx context.Context, qc models.QueryExecutionContext) (*models.QueryResponseContext, error) {
	var resp *models.QueryResponseContext
	if err := s.http.Post(ctx, queryPath, qc, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}
