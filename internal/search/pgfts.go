package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher directly on Postgres as the fallback when
// Meilisearch is down or not configured: a UNION ALL over the named
// instance tables joined back to their contexts.
type PgFTS struct {
	db *sql.DB
}

func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true: if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

const namedContextsSQL = `
	SELECT ctx.id, ctx.contextlevel, named.name FROM (
		SELECT id AS instanceid, 40 AS contextlevel, name FROM course_categories
		UNION ALL
		SELECT id, 50, fullname FROM courses
		UNION ALL
		SELECT id, 70, name FROM course_modules
		UNION ALL
		SELECT id, 80, title FROM course_blocks
	) named
	JOIN contexts ctx ON ctx.contextlevel = named.contextlevel AND ctx.instanceid = named.instanceid
`

// Search scans instance display names with a case-insensitive substring
// match.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	ctx := context.Background()
	where := `WHERE named.name ILIKE '%' || $1 || '%'`

	var total int
	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s %s) sub", namedContextsSQL, where)
	if err := p.db.QueryRowContext(ctx, countSQL, q.Text).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("context search count: %w", err)
	}

	dataSQL := fmt.Sprintf("%s %s ORDER BY named.name ASC LIMIT %d OFFSET %d", namedContextsSQL, where, limit, offset)
	rows, err := p.db.QueryContext(ctx, dataSQL, q.Text)
	if err != nil {
		return nil, 0, fmt.Errorf("context search query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ContextID, &r.Level, &r.Name); err != nil {
			return nil, 0, fmt.Errorf("context search scan: %w", err)
		}
		results = append(results, r)
	}
	return results, total, rows.Err()
}

// LoadAllRecords returns every named context for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]ContextRecord, error) {
	rows, err := p.db.QueryContext(ctx, namedContextsSQL)
	if err != nil {
		return nil, fmt.Errorf("load contexts: %w", err)
	}
	defer rows.Close()

	records := make([]ContextRecord, 0)
	for rows.Next() {
		var r ContextRecord
		if err := rows.Scan(&r.ContextID, &r.Level, &r.Name); err != nil {
			return nil, fmt.Errorf("scan context record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate context records: %w", err)
	}
	return records, nil
}
