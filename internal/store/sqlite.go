package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrCodeTaken is returned when a folder sigla collides with an existing one.
var ErrCodeTaken = errors.New("folder code already in use")

// aliasColumns are the optional registry columns probed, in order, when
// resolving a textual folder token. Deployments migrated from older schemas
// may carry any subset of them.
var aliasColumns = []string{"sigla", "codigo", "abreviacao", "codigo_pasta"}

type SQLiteStore struct {
	db *sql.DB

	aliasOnce      sync.Once
	aliasSupported []string
	aliasErr       error
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) CreateFolder(ctx context.Context, name, code string) (Folder, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO pastas (nome, sigla) VALUES (?, ?)`, name, code)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return Folder{}, ErrCodeTaken
		}
		return Folder{}, fmt.Errorf("insert folder: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Folder{}, fmt.Errorf("folder insert id: %w", err)
	}
	return Folder{ID: id, Name: name, Code: code}, nil
}

func (s *SQLiteStore) ListFolders(ctx context.Context) ([]Folder, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, nome, sigla FROM pastas ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	var folders []Folder
	for rows.Next() {
		var f Folder
		if err := rows.Scan(&f.ID, &f.Name, &f.Code); err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

func (s *SQLiteStore) GetFolder(ctx context.Context, id int64) (Folder, error) {
	var f Folder
	err := s.db.QueryRowContext(ctx, `SELECT id, nome, sigla FROM pastas WHERE id=?`, id).
		Scan(&f.ID, &f.Name, &f.Code)
	if err != nil {
		return Folder{}, err
	}
	return f, nil
}

func (s *SQLiteStore) GetFolderByName(ctx context.Context, name string) (Folder, error) {
	var f Folder
	err := s.db.QueryRowContext(ctx,
		`SELECT id, nome, sigla FROM pastas WHERE nome = ? COLLATE NOCASE`, name).
		Scan(&f.ID, &f.Name, &f.Code)
	if err != nil {
		return Folder{}, err
	}
	return f, nil
}

// NextDocumentNumber returns the number the next registered document will
// carry, matching the id the insert will be assigned.
func (s *SQLiteStore) NextDocumentNumber(ctx context.Context) (int64, error) {
	var next int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM documentos`).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next document number: %w", err)
	}
	return next, nil
}

func (s *SQLiteStore) InsertDocument(ctx context.Context, doc Document) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO documentos (
			pasta_id, titulo, objetivo, responsaveis, conceitos_siglas, diretrizes,
			documentos_complementares, referencias, revisoes_json, anexos_json,
			data_criacao, email, tema_sigla
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, doc.FolderID, doc.Title, doc.Objective, doc.Responsible, doc.Concepts,
		doc.Guidelines, doc.Complementary, doc.References, doc.RevisionsJSON,
		doc.AttachmentsJSON, doc.CreatedAt, doc.Email, doc.TopicCode)
	if err != nil {
		return 0, fmt.Errorf("insert document: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("document insert id: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) UpdateDocument(ctx context.Context, doc Document) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE documentos SET
			titulo=?, objetivo=?, responsaveis=?, conceitos_siglas=?, diretrizes=?,
			documentos_complementares=?, referencias=?, revisoes_json=?, tema_sigla=?, email=?
		WHERE id=?
	`, doc.Title, doc.Objective, doc.Responsible, doc.Concepts, doc.Guidelines,
		doc.Complementary, doc.References, doc.RevisionsJSON, doc.TopicCode, doc.Email, doc.ID)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return nil
}

const documentColumns = `
	d.id, d.pasta_id, d.titulo, d.objetivo, d.responsaveis, d.conceitos_siglas,
	d.diretrizes, d.documentos_complementares, d.referencias, d.revisoes_json,
	d.anexos_json, d.data_criacao, d.email, d.tema_sigla, p.nome, p.sigla
`

func scanDocument(row interface{ Scan(...any) error }) (Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.FolderID, &d.Title, &d.Objective, &d.Responsible,
		&d.Concepts, &d.Guidelines, &d.Complementary, &d.References,
		&d.RevisionsJSON, &d.AttachmentsJSON, &d.CreatedAt, &d.Email,
		&d.TopicCode, &d.FolderName, &d.FolderCode)
	return d, err
}

func (s *SQLiteStore) GetDocument(ctx context.Context, id int64) (Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+documentColumns+`
		FROM documentos d JOIN pastas p ON d.pasta_id = p.id
		WHERE d.id = ?
	`, id)
	return scanDocument(row)
}

func (s *SQLiteStore) ListDocumentsByFolder(ctx context.Context, folderID int64) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+documentColumns+`
		FROM documentos d JOIN pastas p ON d.pasta_id = p.id
		WHERE d.pasta_id = ?
		ORDER BY d.id
	`, folderID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *SQLiteStore) InsertStatusEntry(ctx context.Context, entry StatusEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO status (pasta_id, pasta_name, status, email)
		VALUES (?, ?, ?, ?)
	`, entry.FolderID, entry.FolderName, entry.Status, entry.Email)
	if err != nil {
		return fmt.Errorf("insert status entry: %w", err)
	}
	return nil
}

// FolderNameByID resolves a folder name by primary key. The boolean is
// false when no folder has that id.
func (s *SQLiteStore) FolderNameByID(ctx context.Context, id int64) (string, bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT nome FROM pastas WHERE id=?`, id).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("folder by id: %w", err)
	}
	return name, true, nil
}

// FolderNameByAlias probes the alias columns the current schema actually
// has and returns the first case-insensitive match. A column absent from
// the schema is a skipped strategy, not an error.
func (s *SQLiteStore) FolderNameByAlias(ctx context.Context, alias string) (string, bool, error) {
	supported, err := s.supportedAliasColumns(ctx)
	if err != nil {
		return "", false, err
	}
	for _, col := range supported {
		var name string
		query := fmt.Sprintf(`SELECT nome FROM pastas WHERE %s = ? COLLATE NOCASE`, col)
		err := s.db.QueryRowContext(ctx, query, alias).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("folder by alias %s: %w", col, err)
		}
		return name, true, nil
	}
	return "", false, nil
}

// FolderNameContaining matches the token as a case-insensitive substring
// of the folder name.
func (s *SQLiteStore) FolderNameContaining(ctx context.Context, token string) (string, bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT nome FROM pastas WHERE nome LIKE ? COLLATE NOCASE ORDER BY id LIMIT 1`,
		"%"+token+"%").Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("folder by name substring: %w", err)
	}
	return name, true, nil
}

// FolderNameByDocumentTitle maps a stored document title to its owning
// folder's name.
//
// Deprecated: legacy lookup kept for documents registered before the
// token naming convention; do not extend.
func (s *SQLiteStore) FolderNameByDocumentTitle(ctx context.Context, title string) (string, bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `
		SELECT p.nome FROM documentos d
		JOIN pastas p ON d.pasta_id = p.id
		WHERE d.titulo = ? COLLATE NOCASE
		ORDER BY d.id LIMIT 1
	`, title).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("folder by document title: %w", err)
	}
	return name, true, nil
}

func (s *SQLiteStore) supportedAliasColumns(ctx context.Context) ([]string, error) {
	s.aliasOnce.Do(func() {
		rows, err := s.db.QueryContext(ctx, `PRAGMA table_info(pastas)`)
		if err != nil {
			s.aliasErr = fmt.Errorf("inspect pastas schema: %w", err)
			return
		}
		defer rows.Close()

		present := make(map[string]bool)
		for rows.Next() {
			var (
				cid       int
				name, typ string
				notNull   int
				dflt      sql.NullString
				pk        int
			)
			if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
				s.aliasErr = fmt.Errorf("scan pastas schema: %w", err)
				return
			}
			present[strings.ToLower(name)] = true
		}
		if err := rows.Err(); err != nil {
			s.aliasErr = err
			return
		}
		for _, col := range aliasColumns {
			if present[col] {
				s.aliasSupported = append(s.aliasSupported, col)
			}
		}
	})
	return s.aliasSupported, s.aliasErr
}
