package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebeliceyang/sequel/internal/models"
)

// fakeServer is an in-memory sequel backend
type fakeServer struct {
	mu      sync.Mutex
	conns   []models.ServerConnection
	added   []models.ServerConnection
	deleted []string
	tested  []models.ServerConnection
	objects []models.QueryExecutionContext
	queries []models.QueryExecutionContext
	result  models.QueryResponseContext
	// noBody answers queries with an empty 200
	noBody bool
}

func newFakeServer(t *testing.T) (*fakeServer, string) {
	t.Helper()
	fs := &fakeServer{
		conns: []models.ServerConnection{
			{ID: 1, Name: "local", DBMS: models.PostgreSQL, Host: "localhost", Port: 5432, Username: "postgres"},
			{ID: 2, DBMS: models.SQLite, ConnectionString: "/tmp/app.db"},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /sequel/server-connections", func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		defer fs.mu.Unlock()
		writeJSON(t, w, fs.conns)
	})
	mux.HandleFunc("POST /sequel/server-connections", func(w http.ResponseWriter, r *http.Request) {
		var conn models.ServerConnection
		require.NoError(t, json.NewDecoder(r.Body).Decode(&conn))
		fs.mu.Lock()
		fs.added = append(fs.added, conn)
		fs.mu.Unlock()
	})
	mux.HandleFunc("DELETE /sequel/server-connections/{id}", func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		fs.deleted = append(fs.deleted, r.PathValue("id"))
		fs.mu.Unlock()
	})
	mux.HandleFunc("POST /sequel/server-connections/test", func(w http.ResponseWriter, r *http.Request) {
		var conn models.ServerConnection
		require.NoError(t, json.NewDecoder(r.Body).Decode(&conn))
		fs.mu.Lock()
		fs.tested = append(fs.tested, conn)
		fs.mu.Unlock()
		if conn.Host == "unreachable" {
			http.Error(w, "connection refused", http.StatusBadGateway)
		}
	})
	mux.HandleFunc("POST /sequel/databases", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []string{"shop", "hr"})
	})
	mux.HandleFunc("POST /sequel/database-objects", func(w http.ResponseWriter, r *http.Request) {
		var qc models.QueryExecutionContext
		require.NoError(t, json.NewDecoder(r.Body).Decode(&qc))
		fs.mu.Lock()
		fs.objects = append(fs.objects, qc)
		fs.mu.Unlock()

		switch {
		case qc.DatabaseObject == nil:
			writeJSON(t, w, []models.DatabaseObjectNode{{Name: "public", Type: "schema"}, {Name: "audit", Type: "schema"}})
		case qc.DatabaseObject.Name == "public":
			writeJSON(t, w, []models.DatabaseObjectNode{{Name: "orders", Type: "table"}})
		default:
			writeJSON(t, w, []models.DatabaseObjectNode{})
		}
	})
	mux.HandleFunc("POST /sequel/query", func(w http.ResponseWriter, r *http.Request) {
		var qc models.QueryExecutionContext
		require.NoError(t, json.NewDecoder(r.Body).Decode(&qc))
		fs.mu.Lock()
		defer fs.mu.Unlock()
		fs.queries = append(fs.queries, qc)
		if fs.noBody {
			w.Header().Set("Content-Length", "0")
			return
		}
		writeJSON(t, w, fs.result)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return fs, srv.URL
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	assert.NoError(t, json.NewEncoder(w).Encode(v))
}

// runCLI executes the root command against apiURL and returns what it
// wrote to stdout. Config and history live in a temp dir.
func runCLI(t *testing.T, apiURL, stdin string, args ...string) (string, error) {
	t.Helper()
	return runCLIIn(t, t.TempDir(), apiURL, stdin, args...)
}

// runCLIIn is runCLI with dir as the user config directory
func runCLIIn(t *testing.T, dir, apiURL, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cmd := NewRootCmd()
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{
		"--config", filepath.Join(dir, "missing.yaml"),
		"--api-url", apiURL,
		"--history=false",
	}, args...))

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestConnectionsList(t *testing.T) {
	_, url := newFakeServer(t)

	out, err := runCLI(t, url, "", "connections", "list")
	require.NoError(t, err)
	for _, want := range []string{"local", "PostgreSQL", "localhost", "5432", "SQLite"} {
		assert.Contains(t, out, want)
	}
}

func TestConnectionsList_JSON(t *testing.T) {
	_, url := newFakeServer(t)

	out, err := runCLI(t, url, "", "-o", "json", "connections", "list")
	require.NoError(t, err)

	var conns []models.ServerConnection
	require.NoError(t, json.Unmarshal([]byte(out), &conns))
	require.Len(t, conns, 2)
	assert.Equal(t, "PostgreSQL#1", conns[0].String())
}

func TestConnectionsAdd(t *testing.T) {
	fs, url := newFakeServer(t)

	out, err := runCLI(t, url, "", "connections", "add",
		"--name", "reports", "--dbms", "MySQL", "--host", "db.internal", "--port", "3306", "-u", "root")
	require.NoError(t, err)
	assert.Equal(t, "New database connection added.\n", out)

	require.Len(t, fs.added, 1)
	assert.Equal(t, models.ServerConnection{
		Name: "reports", DBMS: models.MySQL, Host: "db.internal", Port: 3306, Username: "root",
	}, fs.added[0])
}

func TestConnectionsAdd_Invalid(t *testing.T) {
	fs, url := newFakeServer(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "unknown dbms", args: []string{"--dbms", "Sybase", "--host", "h"}, wantErr: `unknown DBMS "Sybase"`},
		{name: "missing host", args: []string{"--dbms", "MySQL"}, wantErr: "--host or --connection-string is required"},
		{name: "bad port", args: []string{"--dbms", "MySQL", "--host", "h", "--port", "70000"}, wantErr: "invalid port"},
		{name: "dbms required", args: []string{"--host", "h"}, wantErr: "dbms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, url, "", append([]string{"connections", "add"}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
	assert.Empty(t, fs.added)
}

func TestConnectionsDelete(t *testing.T) {
	fs, url := newFakeServer(t)

	out, err := runCLI(t, url, "", "connections", "delete", "3")
	require.NoError(t, err)
	assert.Equal(t, "Database connection deleted.\n", out)
	assert.Equal(t, []string{"3"}, fs.deleted)

	_, err = runCLI(t, url, "", "connections", "delete", "abc")
	assert.EqualError(t, err, `invalid connection id "abc"`)
}

func TestConnectionsTest(t *testing.T) {
	fs, url := newFakeServer(t)

	out, err := runCLI(t, url, "", "connections", "test", "1")
	require.NoError(t, err)
	assert.Equal(t, "Connection test successful.\n", out)
	require.Len(t, fs.tested, 1)
	assert.Equal(t, "local", fs.tested[0].Name)

	_, err = runCLI(t, url, "", "connections", "test", "--dbms", "MySQL", "--host", "unreachable")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection test failed")

	_, err = runCLI(t, url, "", "connections", "test", "9")
	assert.EqualError(t, err, "connection 9 not found")

	_, err = runCLI(t, url, "", "connections", "test")
	assert.Error(t, err)
}

func TestDatabases(t *testing.T) {
	_, url := newFakeServer(t)

	out, err := runCLI(t, url, "", "databases", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "shop")
	assert.Contains(t, out, "hr")

	out, err = runCLI(t, url, "", "-o", "json", "databases", "1")
	require.NoError(t, err)
	assert.JSONEq(t, `["shop","hr"]`, out)
}

func TestObjects_Expand(t *testing.T) {
	fs, url := newFakeServer(t)

	out, err := runCLI(t, url, "", "objects", "1", "shop", "--expand", "public")
	require.NoError(t, err)
	assert.Contains(t, out, "public (schema)")
	assert.Contains(t, out, "orders (table)")
	assert.Contains(t, out, "audit (schema)")

	require.Len(t, fs.objects, 2)
	assert.Nil(t, fs.objects[0].DatabaseObject)
	require.NotNil(t, fs.objects[1].DatabaseObject)
	assert.Equal(t, "public", fs.objects[1].DatabaseObject.Name)
	assert.Equal(t, "shop", fs.objects[1].Database)

	_, err = runCLI(t, url, "", "objects", "1", "shop", "--expand", "public/missing")
	assert.EqualError(t, err, `object "public/missing" not found`)
}

func TestQuery_CSVExport(t *testing.T) {
	fs, url := newFakeServer(t)
	fs.result = models.QueryResponseContext{
		Status:   true,
		Columns:  []models.ColumnDefinition{{Text: "answer", Value: "answer"}},
		Rows:     []map[string]any{{"answer": 42}},
		RowCount: 1,
	}

	out, err := runCLI(t, url, "", "query", "1", "shop", "select 42 as answer", "--format", "csv")
	require.NoError(t, err)
	assert.Equal(t, "answer\n42\n", out)

	require.Len(t, fs.queries, 1)
	assert.Equal(t, "select 42 as answer", fs.queries[0].Query)
	assert.Equal(t, "shop", fs.queries[0].Database)
	assert.Equal(t, 1, fs.queries[0].Server.ID)
}

func TestQuery_FromStdinRendersTable(t *testing.T) {
	fs, url := newFakeServer(t)
	fs.result = models.QueryResponseContext{
		Status:   true,
		Message:  "OK",
		Columns:  []models.ColumnDefinition{{Text: "name", Value: "name"}},
		Rows:     []map[string]any{{"name": "ada"}, {"name": "grace"}},
		RowCount: 2,
		Elapsed:  12,
	}

	out, err := runCLI(t, url, "  select name from users\n", "query", "1", "shop")
	require.NoError(t, err)
	assert.Contains(t, out, "ada")
	assert.Contains(t, out, "grace")
	assert.Contains(t, out, "OK · 2 rows · 12 ms")
	assert.Equal(t, "select name from users", fs.queries[0].Query)
}

func TestQuery_Failed(t *testing.T) {
	fs, url := newFakeServer(t)
	fs.result = models.QueryResponseContext{Status: false, Error: "syntax error near selec"}

	out, err := runCLI(t, url, "", "query", "1", "shop", "selec 1")
	assert.EqualError(t, err, "query failed")
	assert.Contains(t, out, "Query failed: syntax error near selec")
}

func TestReadQuery(t *testing.T) {
	file := filepath.Join(t.TempDir(), "q.sql")
	require.NoError(t, os.WriteFile(file, []byte("select 1;\n"), 0644))

	got, err := readQuery(strings.NewReader(""), nil, file)
	require.NoError(t, err)
	assert.Equal(t, "select 1;", got)

	_, err = readQuery(strings.NewReader(""), []string{"select 2"}, file)
	assert.Error(t, err)

	_, err = readQuery(strings.NewReader("   \n"), nil, "")
	assert.EqualError(t, err, "query is empty")
}

func TestHistory_Disabled(t *testing.T) {
	_, url := newFakeServer(t)

	_, err := runCLI(t, url, "", "history")
	assert.EqualError(t, err, "query history is disabled")
}

func TestInvalidOutputFormat(t *testing.T) {
	_, url := newFakeServer(t)

	_, err := runCLI(t, url, "", "-o", "yaml", "connections", "list")
	assert.EqualError(t, err, `unknown output format "yaml" (want table or json)`)
}

func TestInvalidAPIURL(t *testing.T) {
	_, err := runCLI(t, "localhost:8123", "", "connections", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api.base_url")
}

func TestNewVersionCommand(t *testing.T) {
	tests := []struct {
		name    string
		version string
		wantOut []string
	}{
		{name: "default version", version: "0.1.0", wantOut: []string{"sequel v0.1.0", "commit unknown"}},
		{name: "dev version", version: "dev", wantOut: []string{"sequel vdev"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewVersionCommand(tt.version)
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)

			require.NoError(t, cmd.Execute())
			for _, want := range tt.wantOut {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestRootCommandFlags(t *testing.T) {
	cmd := NewRootCmd()

	assert.Equal(t, "sequel", cmd.Use)
	for _, flag := range []string{"config", "api-url", "timeout", "log-level", "log-format", "log-file", "theme", "history", "output"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}

	names := make([]string, 0)
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"version", "connections", "databases", "objects", "query", "history", "favorites"} {
		assert.Contains(t, names, want)
	}
}

func TestFindObject(t *testing.T) {
	forest := []models.DatabaseObjectNode{
		{Name: "public", Children: []models.DatabaseObjectNode{{Name: "tables", Children: []models.DatabaseObjectNode{{Name: "orders"}}}}},
	}

	node := findObject(forest, splitObjectPath("/public//tables/orders"))
	require.NotNil(t, node)
	assert.Equal(t, "orders", node.Name)
	assert.Nil(t, findObject(forest, splitObjectPath("public/views")))
	assert.Nil(t, findObject(forest, nil))
}

func TestFavorites_SaveListAndRun(t *testing.T) {
	fs, url := newFakeServer(t)
	fs.result = models.QueryResponseContext{Status: true, RowCount: 0}
	dir := t.TempDir()

	out, err := runCLIIn(t, dir, url, "", "favorites", "add", "open-orders",
		"select * from orders where shipped_at is null", "--database", "shop", "--tag", "ops")
	require.NoError(t, err)
	assert.Equal(t, "Saved query \"open-orders\".\n", out)

	_, err = runCLIIn(t, dir, url, "", "favorites", "add", "Open-Orders", "select 1")
	require.Error(t, err)

	out, err = runCLIIn(t, dir, url, "", "favorites", "list", "ops")
	require.NoError(t, err)
	assert.Contains(t, out, "open-orders")

	out, err = runCLIIn(t, dir, url, "", "favorites", "show", "open-orders")
	require.NoError(t, err)
	assert.Equal(t, "select * from orders where shipped_at is null\n", out)

	_, err = runCLIIn(t, dir, url, "", "query", "1", "shop", "--favorite", "open-orders")
	require.NoError(t, err)
	require.Len(t, fs.queries, 1)
	assert.Equal(t, "select * from orders where shipped_at is null", fs.queries[0].Query)

	out, err = runCLIIn(t, dir, url, "", "-o", "json", "favorites", "show", "open-orders")
	require.NoError(t, err)
	var fav struct {
		UsageCount int `json:"usageCount"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &fav))
	assert.Equal(t, 1, fav.UsageCount)

	_, err = runCLIIn(t, dir, url, "", "query", "1", "shop", "select 1", "--favorite", "open-orders")
	require.Error(t, err)

	out, err = runCLIIn(t, dir, url, "", "favorites", "delete", "open-orders")
	require.NoError(t, err)
	assert.Equal(t, "Deleted query \"open-orders\".\n", out)

	_, err = runCLIIn(t, dir, url, "", "favorites", "show", "open-orders")
	assert.Error(t, err)
}

func TestQuery_EmptyResponse(t *testing.T) {
	fs, url := newFakeServer(t)
	fs.noBody = true

	out, err := runCLI(t, url, "", "query", "1", "shop", "vacuum")
	require.NoError(t, err)
	assert.Contains(t, out, "OK")
	assert.NotContains(t, out, "Query failed")
	require.Len(t, fs.queries, 1)
}

func TestFavorites_ListTop(t *testing.T) {
	fs, url := newFakeServer(t)
	fs.result = models.QueryResponseContext{Status: true}
	dir := t.TempDir()

	for _, name := range []string{"daily", "weekly", "yearly"} {
		_, err := runCLIIn(t, dir, url, "", "favorites", "add", name, "select 1")
		require.NoError(t, err)
	}
	for _, name := range []string{"weekly", "weekly", "yearly"} {
		_, err := runCLIIn(t, dir, url, "", "query", "1", "shop", "--favorite", name)
		require.NoError(t, err)
	}

	out, err := runCLIIn(t, dir, url, "", "-o", "json", "favorites", "list", "--top", "2")
	require.NoError(t, err)
	var favs []struct {
		Name       string `json:"name"`
		UsageCount int    `json:"usageCount"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &favs))
	require.Len(t, favs, 2)
	assert.Equal(t, "weekly", favs[0].Name)
	assert.Equal(t, 2, favs[0].UsageCount)
	assert.Equal(t, "yearly", favs[1].Name)

	_, err = runCLIIn(t, dir, url, "", "favorites", "list", "--top", "1", "weekly")
	assert.Error(t, err)
	_, err = runCLIIn(t, dir, url, "", "favorites", "list", "--top", "-1")
	assert.Error(t, err)
}
