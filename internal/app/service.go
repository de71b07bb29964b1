package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"psgdocs/api/internal/archive"
	"psgdocs/api/internal/export"
	"psgdocs/api/internal/search"
	"psgdocs/api/internal/store"
)

// dataStore is the slice of the registry the service needs.
type dataStore interface {
	Ping(ctx context.Context) error
	CreateFolder(ctx context.Context, name, code string) (store.Folder, error)
	ListFolders(ctx context.Context) ([]store.Folder, error)
	GetFolder(ctx context.Context, id int64) (store.Folder, error)
	GetFolderByName(ctx context.Context, name string) (store.Folder, error)
	NextDocumentNumber(ctx context.Context) (int64, error)
	InsertDocument(ctx context.Context, doc store.Document) (int64, error)
	UpdateDocument(ctx context.Context, doc store.Document) error
	GetDocument(ctx context.Context, id int64) (store.Document, error)
	ListDocumentsByFolder(ctx context.Context, folderID int64) ([]store.Document, error)
	InsertStatusEntry(ctx context.Context, entry store.StatusEntry) error
}

// RemoteStore is the subset of the drive client used by the service.
// A nil RemoteStore disables remote publication.
type RemoteStore interface {
	EnsureFolder(ctx context.Context, path string) error
	UploadContent(ctx context.Context, path string, data []byte) error
	ItemIDByPath(ctx context.Context, path string) (string, bool, error)
	DeleteItem(ctx context.Context, itemID string) error
}

type docExporter interface {
	Export(ctx context.Context, req export.Request) (*export.Result, error)
	GenerateDOCX(doc export.DocumentInfo, baseName string) (*export.Result, error)
}

type docArchive interface {
	SaveDocument(folderName, fileName string, data []byte, author string) error
	ListFiles(folderName string) ([]string, error)
	ReadFile(folderName, fileName string) ([]byte, error)
	History(limit int) ([]archive.CommitInfo, error)
}

type mailer interface {
	IsConfigured() bool
	SendPendingApprovalEmail(to, title, fileName, folderName string) error
}

type documentSearcher interface {
	Search(q search.Query) search.Response
	IndexDocument(doc search.DocumentRecord)
	DeleteDocument(id string)
}

type ServiceOptions struct {
	BasePath      string
	PendingFolder string
}

type Service struct {
	store    dataStore
	remote   RemoteStore
	exporter docExporter
	archive  docArchive
	mail     mailer
	search   documentSearcher

	basePath      string
	pendingFolder string
}

func NewService(st dataStore, remote RemoteStore, exporter docExporter, arc docArchive, mail mailer, searcher documentSearcher, opts ServiceOptions) *Service {
	if opts.BasePath == "" {
		opts.BasePath = "PSG"
	}
	if opts.PendingFolder == "" {
		opts.PendingFolder = "Pendentes"
	}
	return &Service{
		store:         st,
		remote:        remote,
		exporter:      exporter,
		archive:       arc,
		mail:          mail,
		search:        searcher,
		basePath:      opts.BasePath,
		pendingFolder: opts.PendingFolder,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) ListFolders(ctx context.Context) ([]store.Folder, error) {
	return s.store.ListFolders(ctx)
}

// CreateFolder registers a sector folder and mirrors it on the remote
// drive. When the registry rejects the code as a duplicate, the remote
// folder created for this attempt is removed again so a failed call
// leaves no orphan behind.
func (s *Service) CreateFolder(ctx context.Context, name, code string) (store.Folder, error) {
	name = strings.TrimSpace(name)
	code = strings.TrimSpace(code)
	if name == "" || code == "" {
		return store.Folder{}, domainError(http.StatusBadRequest, "VALIDATION", "nome and sigla are required", nil)
	}

	remotePath := s.basePath + "/" + name
	if s.remote != nil {
		if err := s.remote.EnsureFolder(ctx, remotePath); err != nil {
			return store.Folder{}, fmt.Errorf("create remote folder: %w", err)
		}
	}

	folder, err := s.store.CreateFolder(ctx, name, code)
	if err != nil {
		if s.remote != nil {
			s.removeRemoteFolder(ctx, remotePath)
		}
		if errors.Is(err, store.ErrCodeTaken) {
			return store.Folder{}, domainError(http.StatusConflict, "CODE_TAKEN", "sigla already in use", map[string]string{"sigla": code})
		}
		return store.Folder{}, fmt.Errorf("create folder: %w", err)
	}
	return folder, nil
}

func (s *Service) removeRemoteFolder(ctx context.Context, path string) {
	itemID, found, err := s.remote.ItemIDByPath(ctx, path)
	if err != nil || !found {
		return
	}
	if err := s.remote.DeleteItem(ctx, itemID); err != nil {
		log.Printf("folder rollback: delete %s: %v", path, err)
	}
}

type GenerateDocumentInput struct {
	FolderID      int64
	Title         string
	TopicCode     string
	Objective     string
	Responsible   string
	Concepts      string
	Guidelines    string
	Complementary string
	References    string
	Email         string
	Revisions     []store.Revision
	Attachments   []string
}

type GeneratedDocument struct {
	DocumentID int64
	FileName   string
	Data       []byte
}

// GenerateDocument renders the standard document, archives it locally,
// records it in the registry and publishes it to the pending folder on
// the remote drive. Email notification and search indexing are best
// effort and never fail the request.
func (s *Service) GenerateDocument(ctx context.Context, in GenerateDocumentInput) (GeneratedDocument, error) {
	if strings.TrimSpace(in.Title) == "" {
		return GeneratedDocument{}, domainError(http.StatusBadRequest, "VALIDATION", "titulo is required", nil)
	}
	if strings.TrimSpace(in.TopicCode) == "" {
		return GeneratedDocument{}, domainError(http.StatusBadRequest, "VALIDATION", "tema is required", nil)
	}

	folder, err := s.store.GetFolder(ctx, in.FolderID)
	if err != nil {
		return GeneratedDocument{}, fmt.Errorf("load folder: %w", err)
	}

	number, err := s.store.NextDocumentNumber(ctx)
	if err != nil {
		return GeneratedDocument{}, fmt.Errorf("allocate document number: %w", err)
	}

	version := len(in.Revisions)
	if version < 1 {
		version = 1
	}
	baseName := fmt.Sprintf("PSG-%d-%s-%02d", folder.ID, strings.ToUpper(in.TopicCode), version)
	code := fmt.Sprintf("PSG.%s.%s.%03d", folder.Code, strings.ToUpper(in.TopicCode), number)

	revisionsJSON, err := json.Marshal(in.Revisions)
	if err != nil {
		return GeneratedDocument{}, fmt.Errorf("encode revisions: %w", err)
	}
	attachmentsJSON, err := json.Marshal(in.Attachments)
	if err != nil {
		return GeneratedDocument{}, fmt.Errorf("encode attachments: %w", err)
	}

	result, err := s.exporter.GenerateDOCX(export.DocumentInfo{
		Code:             code,
		Title:            in.Title,
		Revision:         fmt.Sprintf("%02d", version),
		ApprovedAt:       time.Now().Format("02/01/2006"),
		Objective:        in.Objective,
		Responsibilities: in.Responsible,
		Concepts:         in.Concepts,
		Guidelines:       in.Guidelines,
		Complementary:    in.Complementary,
		References:       in.References,
		Attachments:      in.Attachments,
		Revisions:        exportRevisions(in.Revisions),
	}, baseName)
	if err != nil {
		return GeneratedDocument{}, fmt.Errorf("render document: %w", err)
	}

	if err := s.archive.SaveDocument(folder.Name, result.Filename, result.Data, in.Email); err != nil {
		return GeneratedDocument{}, fmt.Errorf("archive document: %w", err)
	}

	doc := store.Document{
		FolderID:        folder.ID,
		Title:           in.Title,
		Objective:       in.Objective,
		Responsible:     in.Responsible,
		Concepts:        in.Concepts,
		Guidelines:      in.Guidelines,
		Complementary:   in.Complementary,
		References:      in.References,
		RevisionsJSON:   string(revisionsJSON),
		AttachmentsJSON: string(attachmentsJSON),
		CreatedAt:       time.Now().Format("2006-01-02"),
		Email:           in.Email,
		TopicCode:       strings.ToUpper(in.TopicCode),
	}
	docID, err := s.store.InsertDocument(ctx, doc)
	if err != nil {
		return GeneratedDocument{}, fmt.Errorf("insert document: %w", err)
	}
	if err := s.store.InsertStatusEntry(ctx, store.StatusEntry{
		FolderID:   folder.ID,
		FolderName: folder.Name,
		Status:     "Pendente",
		Email:      in.Email,
	}); err != nil {
		return GeneratedDocument{}, fmt.Errorf("record status: %w", err)
	}

	if s.remote != nil {
		pendingPath := s.basePath + "/" + s.pendingFolder + "/" + result.Filename
		if err := s.remote.UploadContent(ctx, pendingPath, result.Data); err != nil {
			return GeneratedDocument{}, fmt.Errorf("upload pending document: %w", err)
		}
	}

	if s.mail != nil && s.mail.IsConfigured() && in.Email != "" {
		if err := s.mail.SendPendingApprovalEmail(in.Email, in.Title, result.Filename, folder.Name); err != nil {
			log.Printf("pending approval mail to %s: %v", in.Email, err)
		}
	}
	if s.search != nil {
		s.search.IndexDocument(search.DocumentRecord{
			ID:         fmt.Sprintf("%d", docID),
			Title:      in.Title,
			Objective:  in.Objective,
			Guidelines: in.Guidelines,
			FolderID:   fmt.Sprintf("%d", folder.ID),
			FolderName: folder.Name,
			TopicCode:  strings.ToUpper(in.TopicCode),
		})
	}

	return GeneratedDocument{DocumentID: docID, FileName: result.Filename, Data: result.Data}, nil
}

func exportRevisions(revs []store.Revision) []export.RevisionRow {
	rows := make([]export.RevisionRow, 0, len(revs))
	for _, r := range revs {
		rows = append(rows, export.RevisionRow{Date: r.Data, Responsible: r.Responsavel, Change: r.Alteracao})
	}
	return rows
}

type UpdateDocumentInput struct {
	Title         string
	Objective     string
	Responsible   string
	Concepts      string
	Guidelines    string
	Complementary string
	References    string
	Revisions     []store.Revision
	Attachments   []string
}

// UpdateDocument rewrites the registry row, regenerates the document
// under its original number and queues it for approval again.
func (s *Service) UpdateDocument(ctx context.Context, id int64, in UpdateDocumentInput) (store.Document, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return store.Document{}, fmt.Errorf("load document: %w", err)
	}
	if strings.TrimSpace(in.Title) != "" {
		doc.Title = in.Title
	}
	doc.Objective = in.Objective
	doc.Responsible = in.Responsible
	doc.Concepts = in.Concepts
	doc.Guidelines = in.Guidelines
	doc.Complementary = in.Complementary
	doc.References = in.References
	if in.Revisions != nil {
		raw, err := json.Marshal(in.Revisions)
		if err != nil {
			return store.Document{}, fmt.Errorf("encode revisions: %w", err)
		}
		doc.RevisionsJSON = string(raw)
	}
	if in.Attachments != nil {
		raw, err := json.Marshal(in.Attachments)
		if err != nil {
			return store.Document{}, fmt.Errorf("encode attachments: %w", err)
		}
		doc.AttachmentsJSON = string(raw)
	}
	if err := s.store.UpdateDocument(ctx, doc); err != nil {
		return store.Document{}, fmt.Errorf("update document: %w", err)
	}

	folder, err := s.store.GetFolder(ctx, doc.FolderID)
	if err != nil {
		return store.Document{}, fmt.Errorf("load folder: %w", err)
	}

	var revisions []store.Revision
	if doc.RevisionsJSON != "" {
		if err := json.Unmarshal([]byte(doc.RevisionsJSON), &revisions); err != nil {
			return store.Document{}, fmt.Errorf("decode revisions: %w", err)
		}
	}
	var attachments []string
	if doc.AttachmentsJSON != "" {
		if err := json.Unmarshal([]byte(doc.AttachmentsJSON), &attachments); err != nil {
			return store.Document{}, fmt.Errorf("decode attachments: %w", err)
		}
	}
	version := len(revisions)
	if version < 1 {
		version = 1
	}
	baseName := fmt.Sprintf("PSG-%d-%s-%02d", folder.ID, doc.TopicCode, version)

	result, err := s.exporter.GenerateDOCX(export.DocumentInfo{
		Code:             fmt.Sprintf("PSG.%s.%s.%03d", folder.Code, doc.TopicCode, doc.ID),
		Title:            doc.Title,
		Revision:         fmt.Sprintf("%02d", version),
		ApprovedAt:       time.Now().Format("02/01/2006"),
		Objective:        doc.Objective,
		Responsibilities: doc.Responsible,
		Concepts:         doc.Concepts,
		Guidelines:       doc.Guidelines,
		Complementary:    doc.Complementary,
		References:       doc.References,
		Attachments:      attachments,
		Revisions:        exportRevisions(revisions),
	}, baseName)
	if err != nil {
		return store.Document{}, fmt.Errorf("render document: %w", err)
	}
	if err := s.archive.SaveDocument(folder.Name, result.Filename, result.Data, doc.Email); err != nil {
		return store.Document{}, fmt.Errorf("archive document: %w", err)
	}
	if err := s.store.InsertStatusEntry(ctx, store.StatusEntry{
		FolderID:   folder.ID,
		FolderName: folder.Name,
		Status:     "Pendente",
		Email:      doc.Email,
	}); err != nil {
		return store.Document{}, fmt.Errorf("record status: %w", err)
	}
	if s.remote != nil {
		pendingPath := s.basePath + "/" + s.pendingFolder + "/" + result.Filename
		if err := s.remote.UploadContent(ctx, pendingPath, result.Data); err != nil {
			return store.Document{}, fmt.Errorf("upload pending document: %w", err)
		}
	}

	if s.search != nil {
		s.search.IndexDocument(search.DocumentRecord{
			ID:         fmt.Sprintf("%d", doc.ID),
			Title:      doc.Title,
			Objective:  doc.Objective,
			Guidelines: doc.Guidelines,
			FolderID:   fmt.Sprintf("%d", folder.ID),
			FolderName: folder.Name,
			TopicCode:  doc.TopicCode,
		})
	}
	return doc, nil
}

func (s *Service) GetDocument(ctx context.Context, id int64) (store.Document, error) {
	return s.store.GetDocument(ctx, id)
}

func (s *Service) ListDocumentsByFolder(ctx context.Context, folderID int64) ([]store.Document, error) {
	return s.store.ListDocumentsByFolder(ctx, folderID)
}

// ListArchiveFiles lists the locally archived files of one folder. The
// folder is resolved through the registry first, so requests with a
// different casing still reach the canonical archive directory.
func (s *Service) ListArchiveFiles(ctx context.Context, folderName string) ([]string, error) {
	folder, err := s.store.GetFolderByName(ctx, folderName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "folder not found", map[string]string{"pasta": folderName})
		}
		return nil, fmt.Errorf("resolve folder: %w", err)
	}
	return s.archive.ListFiles(folder.Name)
}

func (s *Service) ReadArchiveFile(folderName, fileName string) ([]byte, error) {
	data, err := s.archive.ReadFile(folderName, fileName)
	if err != nil {
		if errors.Is(err, archive.ErrFileNotFound) {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "file not found", map[string]string{"arquivo": fileName})
		}
		return nil, fmt.Errorf("read archive file: %w", err)
	}
	return data, nil
}

func (s *Service) ArchiveHistory(limit int) ([]archive.CommitInfo, error) {
	return s.archive.History(limit)
}

func (s *Service) ExportDocument(ctx context.Context, id int64, format export.Format) (*export.Result, error) {
	result, err := s.exporter.Export(ctx, export.Request{DocumentID: id, Format: format})
	if err != nil {
		if errors.Is(err, export.ErrPDFDependencyMissing) || errors.Is(err, export.ErrDOCXDependencyMissing) {
			return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", err.Error(), nil)
		}
		return nil, err
	}
	return result, nil
}

func (s *Service) Search(q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(q)
}
