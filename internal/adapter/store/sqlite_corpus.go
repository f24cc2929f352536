package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"steward-core/internal/domain/entity"
)

// SQLiteCorpus reads the reference corpus extracted from historical
// conversations. The table is produced by the upstream ETL; this side only
// ever reads it.
type SQLiteCorpus struct {
	db *sql.DB
}

const corpusQuery = `
SELECT scenario_text, reference_response, category
FROM reference_responses
ORDER BY rowid`

// OpenCorpus opens the corpus database file.
func OpenCorpus(path string) (*SQLiteCorpus, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open corpus db: %w", err)
	}
	return &SQLiteCorpus{db: db}, nil
}

// Load reads every reference example.
func (c *SQLiteCorpus) Load(ctx context.Context) ([]entity.ReferenceExample, error) {
	rows, err := c.db.QueryContext(ctx, corpusQuery)
	if err != nil {
		return nil, fmt.Errorf("query corpus: %w", err)
	}
	defer rows.Close()

	var out []entity.ReferenceExample
	for rows.Next() {
		var ex entity.ReferenceExample
		if err := rows.Scan(&ex.Scenario, &ex.Response, &ex.Category); err != nil {
			return nil, fmt.Errorf("scan corpus row: %w", err)
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (c *SQLiteCorpus) Close() error {
	return c.db.Close()
}
