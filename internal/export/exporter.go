package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rebeliceyang/sequel/internal/models"
)

// ErrNoResult is returned when there is nothing to export.
var ErrNoResult = errors.New("no query result to export")

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts "csv" or "json".
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatJSON:
		return Format(s), nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// Write encodes the result to w in the given format.
func Write(w io.Writer, result *models.QueryResponseContext, format Format) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, result)
	case FormatJSON:
		return WriteJSON(w, result)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

// ToFile exports the result to path, creating or truncating it.
func ToFile(result *models.QueryResponseContext, path string, format Format) error {
	if result == nil {
		return ErrNoResult
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}

	if err := Write(file, result, format); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// WriteCSV writes a header of column titles followed by one record per row.
// Cells follow the column order of the result, not the map order of the row.
func WriteCSV(w io.Writer, result *models.QueryResponseContext) error {
	if result == nil {
		return ErrNoResult
	}

	writer := csv.NewWriter(w)

	header := make([]string, len(result.Columns))
	for i, col := range result.Columns {
		header[i] = col.Text
		if header[i] == "" {
			header[i] = col.Value
		}
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, row := range result.Rows {
		record := make([]string, len(result.Columns))
		for i, col := range result.Columns {
			record[i] = FormatCell(row[col.Value])
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// WriteJSON writes the rows as an indented JSON array of objects.
func WriteJSON(w io.Writer, result *models.QueryResponseContext) error {
	if result == nil {
		return ErrNoResult
	}

	rows := result.Rows
	if rows == nil {
		rows = []map[string]any{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("failed to marshal rows to JSON: %w", err)
	}
	return nil
}

// FormatCell renders a decoded JSON value for display or CSV output.
func FormatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	case map[string]any, []any:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	default:
		return fmt.Sprint(val)
	}
}
