package models

import (
	"fmt"
	"log/slog"
)

// DBMS identifies the kind of database server behind a connection.
// It is serialized by name, never by its numeric value.
type DBMS int

const (
	MySQL DBMS = iota
	MariaDB
	Oracle
	PostgreSQL
	SQLite
	SQLServer
	Cassandra
	CockroachDB
)

var dbmsNames = [...]string{
	MySQL:       "MySQL",
	MariaDB:     "MariaDB",
	Oracle:      "Oracle",
	PostgreSQL:  "PostgreSQL",
	SQLite:      "SQLite",
	SQLServer:   "SQLServer",
	Cassandra:   "Cassandra",
	CockroachDB: "CockroachDB",
}

// AllDBMS returns every supported DBMS in declaration order
func AllDBMS() []DBMS {
	all := make([]DBMS, len(dbmsNames))
	for i := range dbmsNames {
		all[i] = DBMS(i)
	}
	return all
}

func (d DBMS) String() string {
	if d < 0 || int(d) >= len(dbmsNames) {
		return fmt.Sprintf("DBMS(%d)", int(d))
	}
	return dbmsNames[d]
}

// ParseDBMS resolves a symbolic DBMS name
func ParseDBMS(name string) (DBMS, error) {
	for i, n := range dbmsNames {
		if n == name {
			return DBMS(i), nil
		}
	}
	return 0, fmt.Errorf("unknown DBMS %q", name)
}

// MarshalText implements encoding.TextMarshaler
func (d DBMS) MarshalText() ([]byte, error) {
	if d < 0 || int(d) >= len(dbmsNames) {
		return nil, fmt.Errorf("invalid DBMS value %d", int(d))
	}
	return []byte(dbmsNames[d]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *DBMS) UnmarshalText(text []byte) error {
	parsed, err := ParseDBMS(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ServerConnection is a database server registered with the backend.
// Everything except ID and DBMS is opaque to the session.
type ServerConnection struct {
	ID               int    `json:"id"`
	Name             string `json:"name,omitempty"`
	DBMS             DBMS   `json:"dbms"`
	Host             string `json:"host,omitempty"`
	Port             int    `json:"port,omitempty"`
	Username         string `json:"username,omitempty"`
	Password         string `json:"password,omitempty"`
	ConnectionString string `json:"connectionString,omitempty"`
}

// String renders the connection as "<DBMS>#<id>", e.g. "PostgreSQL#1"
func (c ServerConnection) String() string {
	return fmt.Sprintf("%s#%d", c.DBMS, c.ID)
}

// DisplayName prefers the user given name
func (c ServerConnection) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.String()
}

// Clone returns a pointer to a copy of c, or nil when c is nil
func (c *ServerConnection) Clone() *ServerConnection {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// LogValue keeps credentials out of log output
func (c ServerConnection) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("id", c.ID),
		slog.String("dbms", c.DBMS.String()),
		slog.String("host", c.Host),
	)
}
