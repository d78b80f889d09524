package models

// Snackbar colors understood by the front end
const (
	ColorSuccess = "success"
	ColorError   = "error"
	ColorInfo    = "info"
	ColorWarning = "warning"
)

// AppSnackbar is the single transient user-facing notification
type AppSnackbar struct {
	Message string `json:"message"`
	Color   string `json:"color"`
	Error   bool   `json:"error,omitempty"`
	Show    bool   `json:"show"`
}

// DatabaseObjectNode is a schema object as returned by the backend.
// The set of Type values is defined by the backend.
type DatabaseObjectNode struct {
	Name     string               `json:"name"`
	Type     string               `json:"type"`
	Children []DatabaseObjectNode `json:"children"`
}

// QueryExecutionContext scopes a metadata fetch or a query to a server,
// a database and optionally a parent object.
type QueryExecutionContext struct {
	Server         ServerConnection    `json:"server"`
	Database       string              `json:"database"`
	DatabaseObject *DatabaseObjectNode `json:"databaseObject"`
	Query          string              `json:"query,omitempty"`
}

// ColumnDefinition describes one column of a query result grid
type ColumnDefinition struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

// QueryResponseContext is the backend's answer to a query execution
type QueryResponseContext struct {
	ID       string             `json:"id"`
	Status   bool               `json:"status"`
	Color    string             `json:"color"`
	Error    string             `json:"error,omitempty"`
	Message  string             `json:"message"`
	Elapsed  float64            `json:"elapsed"` // milliseconds
	Columns  []ColumnDefinition `json:"columns"`
	Rows     []map[string]any   `json:"rows"`
	RowCount int                `json:"rowCount"`
}

// QueryTabContent is one query editor tab. ID is stable for the tab's
// lifetime; its position in the tab list is not.
type QueryTabContent struct {
	ID     string                `json:"id"`
	Num    int                   `json:"num"`
	Title  string                `json:"title"`
	Editor string                `json:"editor"`
	Result *QueryResponseContext `json:"result,omitempty"`
}
