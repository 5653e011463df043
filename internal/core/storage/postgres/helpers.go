package postgres

import (
	"database/sql"
	"fmt"
	"strings"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePrefix turns a literal key prefix into a LIKE pattern.
// User and device names may contain '_' or '%', which LIKE would otherwise
// treat as wildcards.
func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}

// validateTable checks that a migration-managed table exists.
// Returns an error if the table is missing (migrations not run).
func validateTable(db *sql.DB, table string) error {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_name = $1
		)
	`
	if err := db.QueryRow(query, table).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check schema: %w", err)
	}
	if !exists {
		return fmt.Errorf("%s table does not exist", table)
	}
	return nil
}
