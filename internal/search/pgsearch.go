package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgSearch implements Searcher using a plain ILIKE scan as a fallback. Issue
// volume per deployment is small enough that this holds up without an index.
type PgSearch struct {
	db *sql.DB
}

// NewPgSearch creates a PostgreSQL-backed searcher.
func NewPgSearch(db *sql.DB) *PgSearch {
	return &PgSearch{db: db}
}

// Healthy always returns true — if Postgres is down, the whole app is down.
func (p *PgSearch) Healthy() bool {
	return true
}

// Search matches the query against issue title, description, and address.
func (p *PgSearch) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}

	pattern := "%" + strings.TrimSpace(q.Text) + "%"
	query := `
		SELECT id, title, LEFT(description, 160), category_id, status
		FROM issues
		WHERE (title ILIKE $1 OR description ILIKE $1 OR COALESCE(address, '') ILIKE $1)
	`
	args := []any{pattern}
	if q.CategoryID != "" {
		query += " AND category_id = $2"
		args = append(args, q.CategoryID)
	}
	query += fmt.Sprintf(" ORDER BY vote_count DESC, created_at DESC LIMIT $%d", len(args)+1)
	args = append(args, limit)

	ctx := context.Background()
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pg search: %w", err)
	}
	defer rows.Close()

	results := make([]Result, 0)
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.Title, &r.Snippet, &r.CategoryID, &r.Status); err != nil {
			return nil, 0, fmt.Errorf("scan search result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate search results: %w", err)
	}
	return results, len(results), nil
}
