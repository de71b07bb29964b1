package archive

import (
	"testing"
)

func TestSaveAndReadDocument(t *testing.T) {
	svc, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := svc.SaveDocument("Recursos Humanos", "PSG-3-FER-01.docx", []byte("conteudo"), "Maria Silva"); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}

	data, err := svc.ReadFile("Recursos Humanos", "PSG-3-FER-01.docx")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "conteudo" {
		t.Errorf("content = %q", data)
	}
}

func TestListFilesCaseInsensitiveFolder(t *testing.T) {
	svc, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := svc.SaveDocument("Financeiro", "PSG-7-LGPD-01.docx", []byte("a"), ""); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}
	if err := svc.SaveDocument("Financeiro", "PSG-7-LGPD-02.docx", []byte("b"), ""); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}

	files, err := svc.ListFiles("FINANCEIRO")
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 2 || files[0] != "PSG-7-LGPD-01.docx" {
		t.Errorf("files = %v", files)
	}
}

func TestListFilesUnknownFolderIsEmpty(t *testing.T) {
	svc, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	files, err := svc.ListFiles("inexistente")
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("files = %v, want empty", files)
	}
}

func TestReadFileRejectsTraversal(t *testing.T) {
	svc, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := svc.SaveDocument("RH", "doc.docx", []byte("x"), ""); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}
	if _, err := svc.ReadFile("RH", "../RH/doc.docx"); err != ErrFileNotFound {
		t.Errorf("traversal read err = %v, want ErrFileNotFound", err)
	}
}

func TestHistoryRecordsCommits(t *testing.T) {
	svc, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	commits, err := svc.History(10)
	if err != nil {
		t.Fatalf("History on empty repo: %v", err)
	}
	if len(commits) != 0 {
		t.Errorf("commits = %v, want none", commits)
	}

	if err := svc.SaveDocument("RH", "PSG-3-FER-01.docx", []byte("x"), "Maria"); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}
	if err := svc.SaveDocument("RH", "PSG-3-FER-02.docx", []byte("y"), "Maria"); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}

	commits, err = svc.History(1)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(commits) != 1 || commits[0].Message != "Registrar PSG-3-FER-02.docx" {
		t.Errorf("commits = %+v", commits)
	}
	if commits[0].Author != "Maria" {
		t.Errorf("author = %q", commits[0].Author)
	}
}

func TestReopenExistingArchive(t *testing.T) {
	dir := t.TempDir()
	svc, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := svc.SaveDocument("RH", "doc.docx", []byte("x"), ""); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}

	reopened, err := New(dir)
	if err != nil {
		t.Fatalf("New on existing repo: %v", err)
	}
	data, err := reopened.ReadFile("RH", "doc.docx")
	if err != nil || string(data) != "x" {
		t.Errorf("ReadFile after reopen = (%q, %v)", data, err)
	}
}
