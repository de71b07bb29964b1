package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	ctx := context.Background()

	db, err := Open(ctx, filepath.Join(t.TempDir(), "banco.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	migrationsDir := migrationsDirForTest(t)
	if err := ApplyMigrations(ctx, db, migrationsDir); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return NewSQLiteStore(db)
}

// migrationsDirForTest resolves db/migrations relative to this package.
func migrationsDirForTest(t *testing.T) string {
	t.Helper()
	dir := filepath.Join("..", "..", "db", "migrations")
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("migrations dir not found: %v", err)
	}
	return dir
}

func TestCreateAndListFolders(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.CreateFolder(ctx, "Financeiro", "FIN")
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	if created.ID == 0 {
		t.Error("expected non-zero folder id")
	}

	if _, err := s.CreateFolder(ctx, "Outro Financeiro", "FIN"); !errors.Is(err, ErrCodeTaken) {
		t.Errorf("duplicate sigla: got %v, want ErrCodeTaken", err)
	}

	folders, err := s.ListFolders(ctx)
	if err != nil {
		t.Fatalf("ListFolders: %v", err)
	}
	if len(folders) != 1 || folders[0].Name != "Financeiro" || folders[0].Code != "FIN" {
		t.Errorf("unexpected folders: %+v", folders)
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	folder, err := s.CreateFolder(ctx, "RH", "RH")
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}

	next, err := s.NextDocumentNumber(ctx)
	if err != nil {
		t.Fatalf("NextDocumentNumber: %v", err)
	}
	if next != 1 {
		t.Errorf("NextDocumentNumber = %d, want 1", next)
	}

	id, err := s.InsertDocument(ctx, Document{
		FolderID:        folder.ID,
		Title:           "Política de Férias",
		Objective:       "Definir regras de férias",
		TopicCode:       "FER",
		RevisionsJSON:   "[]",
		AttachmentsJSON: "[]",
		CreatedAt:       "2024-01-02",
		Email:           "rh@example.com",
	})
	if err != nil {
		t.Fatalf("InsertDocument: %v", err)
	}
	if id != next {
		t.Errorf("insert id = %d, want %d", id, next)
	}

	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if doc.Title != "Política de Férias" || doc.FolderName != "RH" || doc.FolderCode != "RH" {
		t.Errorf("unexpected document: %+v", doc)
	}

	doc.Objective = "Atualizado"
	if err := s.UpdateDocument(ctx, doc); err != nil {
		t.Fatalf("UpdateDocument: %v", err)
	}
	updated, err := s.GetDocument(ctx, id)
	if err != nil {
		t.Fatalf("GetDocument after update: %v", err)
	}
	if updated.Objective != "Atualizado" {
		t.Errorf("Objective = %q after update", updated.Objective)
	}

	docs, err := s.ListDocumentsByFolder(ctx, folder.ID)
	if err != nil {
		t.Fatalf("ListDocumentsByFolder: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
}

func TestFolderNameByID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	folder, err := s.CreateFolder(ctx, "Financeiro", "FIN")
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}

	name, ok, err := s.FolderNameByID(ctx, folder.ID)
	if err != nil || !ok || name != "Financeiro" {
		t.Errorf("FolderNameByID = (%q, %v, %v)", name, ok, err)
	}

	_, ok, err = s.FolderNameByID(ctx, 9999)
	if err != nil || ok {
		t.Errorf("missing id: ok=%v err=%v, want (false, nil)", ok, err)
	}
}

func TestFolderNameByAlias(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateFolder(ctx, "Financeiro", "FIN"); err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}

	name, ok, err := s.FolderNameByAlias(ctx, "fin")
	if err != nil || !ok || name != "Financeiro" {
		t.Errorf("alias lookup = (%q, %v, %v), want Financeiro", name, ok, err)
	}

	_, ok, err = s.FolderNameByAlias(ctx, "zzz")
	if err != nil || ok {
		t.Errorf("unknown alias: ok=%v err=%v, want (false, nil)", ok, err)
	}
}

// The alias lookup must skip columns the schema does not carry instead of
// failing; only "sigla" exists in the baseline schema.
func TestFolderNameByAliasTolerantOfMissingColumns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	supported, err := s.supportedAliasColumns(ctx)
	if err != nil {
		t.Fatalf("supportedAliasColumns: %v", err)
	}
	if len(supported) != 1 || supported[0] != "sigla" {
		t.Errorf("supported alias columns = %v, want [sigla]", supported)
	}
}

func TestFolderNameByAliasWithExtraColumn(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.DB().ExecContext(ctx, `ALTER TABLE pastas ADD COLUMN codigo TEXT`); err != nil {
		t.Fatalf("alter table: %v", err)
	}
	if _, err := s.DB().ExecContext(ctx,
		`INSERT INTO pastas (nome, sigla, codigo) VALUES ('Jurídico', 'JUR', 'LEGAL')`); err != nil {
		t.Fatalf("insert folder: %v", err)
	}

	name, ok, err := s.FolderNameByAlias(ctx, "legal")
	if err != nil || !ok || name != "Jurídico" {
		t.Errorf("codigo lookup = (%q, %v, %v), want Jurídico", name, ok, err)
	}
}

func TestFolderNameContaining(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateFolder(ctx, "Recursos Humanos", "RH"); err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}

	name, ok, err := s.FolderNameContaining(ctx, "humanos")
	if err != nil || !ok || name != "Recursos Humanos" {
		t.Errorf("substring lookup = (%q, %v, %v)", name, ok, err)
	}

	_, ok, err = s.FolderNameContaining(ctx, "inexistente")
	if err != nil || ok {
		t.Errorf("unmatched substring: ok=%v err=%v", ok, err)
	}
}

func TestFolderNameByDocumentTitle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	folder, err := s.CreateFolder(ctx, "Segurança", "SEG")
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	if _, err := s.InsertDocument(ctx, Document{
		FolderID:        folder.ID,
		Title:           "Política de Senhas",
		RevisionsJSON:   "[]",
		AttachmentsJSON: "[]",
	}); err != nil {
		t.Fatalf("InsertDocument: %v", err)
	}

	name, ok, err := s.FolderNameByDocumentTitle(ctx, "Política de Senhas")
	if err != nil || !ok || name != "Segurança" {
		t.Errorf("title lookup = (%q, %v, %v)", name, ok, err)
	}
}

func TestStatusEntryInsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	folder, err := s.CreateFolder(ctx, "RH", "RH")
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	if err := s.InsertStatusEntry(ctx, StatusEntry{
		FolderID:   folder.ID,
		FolderName: folder.Name,
		Status:     "Pendente",
		Email:      "autor@example.com",
	}); err != nil {
		t.Fatalf("InsertStatusEntry: %v", err)
	}

	var count int
	if err := s.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM status WHERE status='Pendente'`).Scan(&count); err != nil {
		t.Fatalf("count status: %v", err)
	}
	if count != 1 {
		t.Errorf("status rows = %d, want 1", count)
	}
}

func TestGetFolderByNameCaseInsensitive(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateFolder(ctx, "Financeiro", "FIN"); err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	folder, err := s.GetFolderByName(ctx, "FINANCEIRO")
	if err != nil {
		t.Fatalf("GetFolderByName: %v", err)
	}
	if folder.Code != "FIN" {
		t.Errorf("folder code = %q", folder.Code)
	}

	if _, err := s.GetFolderByName(ctx, "nada"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("missing folder err = %v, want sql.ErrNoRows", err)
	}
}
