// Package sqlutil holds small helpers for database/sql queries.
package sqlutil

import (
	"database/sql"
	"strings"
)

// InClauseArgs expands values into "?, ?, ..." placeholders and matching args.
// An empty list yields "NULL" so that `IN (NULL)` matches no rows.
func InClauseArgs(values []string) (string, []any) {
	if len(values) == 0 {
		return "NULL", nil
	}
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", "), args
}

// ScanRows drains rows through scan and closes them.
func ScanRows[T any](rows *sql.Rows, scan func(*sql.Rows) (T, error)) ([]T, error) {
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
