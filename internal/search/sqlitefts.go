package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// SQLiteSearch implements Searcher over the local registry as a
// fallback, using LIKE matching against the indexed text columns.
type SQLiteSearch struct {
	db *sql.DB
}

// NewSQLiteSearch creates a SQLite-backed searcher.
func NewSQLiteSearch(db *sql.DB) *SQLiteSearch {
	return &SQLiteSearch{db: db}
}

// Healthy always returns true — if SQLite is down, the whole app is down.
func (s *SQLiteSearch) Healthy() bool {
	return true
}

// Search matches the query text against title, objective, and
// guidelines, case-insensitively.
func (s *SQLiteSearch) Search(q Query) ([]Result, int, error) {
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

	pattern := "%" + q.Text + "%"
	where := `(d.titulo LIKE ? COLLATE NOCASE
		OR d.objetivo LIKE ? COLLATE NOCASE
		OR d.diretrizes LIKE ? COLLATE NOCASE)`
	args := []any{pattern, pattern, pattern}
	if q.FilterFolderID != "" {
		where += " AND d.pasta_id = ?"
		args = append(args, q.FilterFolderID)
	}

	ctx := context.Background()

	var total int
	countSQL := fmt.Sprintf(`SELECT count(*) FROM documentos d WHERE %s`, where)
	if err := s.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite search count: %w", err)
	}

	dataSQL := fmt.Sprintf(`
		SELECT d.id, d.titulo, substr(coalesce(d.objetivo, ''), 1, 200), d.pasta_id, p.nome, d.tema_sigla
		FROM documentos d
		JOIN pastas p ON p.id = d.pasta_id
		WHERE %s
		ORDER BY d.id DESC
		LIMIT %d OFFSET %d`, where, limit, offset)

	rows, err := s.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite search query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.Title, &r.Snippet, &r.FolderID, &r.FolderName, &r.TopicCode); err != nil {
			return nil, 0, fmt.Errorf("sqlite search scan: %w", err)
		}
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all documents for full reindexing.
func (s *SQLiteSearch) LoadAllRecords(ctx context.Context) ([]DocumentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.titulo, coalesce(d.objetivo, ''), coalesce(d.diretrizes, ''), d.pasta_id, p.nome, coalesce(d.tema_sigla, '')
		FROM documentos d
		JOIN pastas p ON p.id = d.pasta_id
	`)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	defer rows.Close()

	documents := make([]DocumentRecord, 0)
	for rows.Next() {
		var d DocumentRecord
		if err := rows.Scan(&d.ID, &d.Title, &d.Objective, &d.Guidelines, &d.FolderID, &d.FolderName, &d.TopicCode); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		documents = append(documents, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	return documents, nil
}
