package export

import (
	"context"
	"fmt"
)

// DataStore defines the interface for data access
type DataStore interface {
	GetDocument(ctx context.Context, id int64) (DocumentInfo, error)
}

// DocumentInfo holds the document fields the renderer consumes. The
// caller maps its storage model into this shape.
type DocumentInfo struct {
	Code             string
	Title            string
	Revision         string
	ApprovedAt       string
	Objective        string
	Responsibilities string
	Concepts         string
	Guidelines       string
	Complementary    string
	References       string
	Attachments      []string
	Revisions        []RevisionRow
}

// Service provides document export functionality
type Service struct {
	store DataStore
}

// NewService creates a new export service
func NewService(store DataStore) *Service {
	return &Service{store: store}
}

// Export generates an export in the requested format
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	doc, err := s.store.GetDocument(ctx, req.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	html, err := RenderDocumentHTML(templateData(doc))
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	switch req.Format {
	case FormatPDF:
		return exportPDF(html, sanitizeFilename(doc.Title))
	case FormatDOCX:
		return exportDOCX(html, sanitizeFilename(doc.Title))
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
}

// GenerateDOCX renders a document straight to DOCX under an explicit
// base filename. Used when registering a new document, where the
// filename carries the approval-routing token.
func (s *Service) GenerateDOCX(doc DocumentInfo, baseName string) (*Result, error) {
	html, err := RenderDocumentHTML(templateData(doc))
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}
	return exportDOCX(html, baseName)
}

func templateData(doc DocumentInfo) TemplateData {
	return TemplateData{
		Code:             doc.Code,
		Title:            doc.Title,
		Revision:         doc.Revision,
		ApprovedAt:       doc.ApprovedAt,
		Objective:        doc.Objective,
		Responsibilities: doc.Responsibilities,
		Concepts:         doc.Concepts,
		Guidelines:       doc.Guidelines,
		Complementary:    doc.Complementary,
		References:       doc.References,
		Attachments:      doc.Attachments,
		Revisions:        doc.Revisions,
	}
}
