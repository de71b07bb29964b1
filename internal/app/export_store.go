package app

import (
	"context"
	"encoding/json"
	"fmt"

	"psgdocs/api/internal/export"
	"psgdocs/api/internal/store"
)

type documentReader interface {
	GetDocument(ctx context.Context, id int64) (store.Document, error)
}

// ExportStore adapts the document registry to the exporter's read side.
type ExportStore struct {
	Store documentReader
}

func (e ExportStore) GetDocument(ctx context.Context, id int64) (export.DocumentInfo, error) {
	doc, err := e.Store.GetDocument(ctx, id)
	if err != nil {
		return export.DocumentInfo{}, err
	}

	var revisions []store.Revision
	if doc.RevisionsJSON != "" {
		if err := json.Unmarshal([]byte(doc.RevisionsJSON), &revisions); err != nil {
			return export.DocumentInfo{}, fmt.Errorf("decode revisions: %w", err)
		}
	}
	var attachments []string
	if doc.AttachmentsJSON != "" {
		if err := json.Unmarshal([]byte(doc.AttachmentsJSON), &attachments); err != nil {
			return export.DocumentInfo{}, fmt.Errorf("decode attachments: %w", err)
		}
	}

	version := len(revisions)
	if version < 1 {
		version = 1
	}

	return export.DocumentInfo{
		Code:             fmt.Sprintf("PSG.%s.%s.%03d", doc.FolderCode, doc.TopicCode, doc.ID),
		Title:            doc.Title,
		Revision:         fmt.Sprintf("%02d", version),
		ApprovedAt:       doc.CreatedAt,
		Objective:        doc.Objective,
		Responsibilities: doc.Responsible,
		Concepts:         doc.Concepts,
		Guidelines:       doc.Guidelines,
		Complementary:    doc.Complementary,
		References:       doc.References,
		Attachments:      attachments,
		Revisions:        exportRevisions(revisions),
	}, nil
}
