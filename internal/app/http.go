package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"psgdocs/api/internal/export"
	"psgdocs/api/internal/search"
	"psgdocs/api/internal/store"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/pastas" {
		folders, err := s.service.ListFolders(r.Context())
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		payload := make([]map[string]any, 0, len(folders))
		for _, folder := range folders {
			payload = append(payload, folderJSON(folder))
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/criar_pasta" {
		var body struct {
			Nome  string `json:"nome"`
			Sigla string `json:"sigla"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		folder, err := s.service.CreateFolder(r.Context(), body.Nome, body.Sigla)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusCreated, folderJSON(folder))
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/gerar_documento" {
		s.handleGenerateDocument(w, r)
		return
	}

	parts := splitPath(r.URL.Path)

	if r.Method == http.MethodGet && len(parts) == 2 && parts[0] == "documentos_por_pasta" {
		folderID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION", "invalid folder id", nil)
			return
		}
		docs, err := s.service.ListDocumentsByFolder(r.Context(), folderID)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		payload := make([]map[string]any, 0, len(docs))
		for _, doc := range docs {
			payload = append(payload, documentJSON(doc))
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if r.Method == http.MethodGet && len(parts) == 2 && parts[0] == "documento" {
		docID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION", "invalid document id", nil)
			return
		}
		doc, err := s.service.GetDocument(r.Context(), docID)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, documentJSON(doc))
		return
	}

	if r.Method == http.MethodPut && len(parts) == 2 && parts[0] == "atualizar_documento" {
		docID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION", "invalid document id", nil)
			return
		}
		var body struct {
			Titulo                   string           `json:"titulo"`
			Objetivo                 string           `json:"objetivo"`
			Responsabilidades        string           `json:"responsabilidades"`
			ConceitosSiglas          string           `json:"conceitos_siglas"`
			Diretrizes               string           `json:"diretrizes"`
			DocumentosComplementares string           `json:"documentos_complementares"`
			Referencias              string           `json:"referencias"`
			Revisoes                 []store.Revision `json:"revisoes"`
			Anexos                   []string         `json:"anexos"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		doc, err := s.service.UpdateDocument(r.Context(), docID, UpdateDocumentInput{
			Title:         body.Titulo,
			Objective:     body.Objetivo,
			Responsible:   body.Responsabilidades,
			Concepts:      body.ConceitosSiglas,
			Guidelines:    body.Diretrizes,
			Complementary: body.DocumentosComplementares,
			References:    body.Referencias,
			Revisions:     body.Revisoes,
			Attachments:   body.Anexos,
		})
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, documentJSON(doc))
		return
	}

	if r.Method == http.MethodGet && len(parts) == 2 && parts[0] == "exportar_documento" {
		docID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION", "invalid document id", nil)
			return
		}
		format := export.Format(r.URL.Query().Get("formato"))
		if format == "" {
			format = export.FormatPDF
		}
		result, err := s.service.ExportDocument(r.Context(), docID, format)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeFile(w, result.Filename, result.MimeType, result.Data)
		return
	}

	if r.Method == http.MethodGet && len(parts) == 2 && parts[0] == "listar_arquivos" {
		files, err := s.service.ListArchiveFiles(r.Context(), parts[1])
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"arquivos": files})
		return
	}

	if r.Method == http.MethodGet && len(parts) == 3 && parts[0] == "download" {
		data, err := s.service.ReadArchiveFile(parts[1], parts[2])
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeFile(w, parts[2], "application/vnd.openxmlformats-officedocument.wordprocessingml.document", data)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/historico" {
		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				writeError(w, http.StatusBadRequest, "VALIDATION", "limit must be a positive integer", nil)
				return
			}
			limit = parsed
		}
		commits, err := s.service.ArchiveHistory(limit)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		payload := make([]map[string]any, 0, len(commits))
		for _, c := range commits {
			payload = append(payload, map[string]any{
				"hash":     c.Hash,
				"mensagem": c.Message,
				"autor":    c.Author,
				"data":     c.CreatedAt.Format(time.RFC3339),
			})
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		s.handleSearch(w, r)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleGenerateDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid form body", nil)
		return
	}

	folderID, err := strconv.ParseInt(r.FormValue("pasta_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "pasta_id must be an integer", nil)
		return
	}

	var revisions []store.Revision
	if raw := r.FormValue("revisoes"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &revisions); err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION", "revisoes must be a JSON array", nil)
			return
		}
	}
	var attachments []string
	if raw := r.FormValue("anexos"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &attachments); err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION", "anexos must be a JSON array", nil)
			return
		}
	}

	generated, err := s.service.GenerateDocument(r.Context(), GenerateDocumentInput{
		FolderID:      folderID,
		Title:         r.FormValue("titulo"),
		TopicCode:     r.FormValue("tema"),
		Objective:     r.FormValue("objetivo"),
		Responsible:   r.FormValue("responsabilidades"),
		Concepts:      r.FormValue("conceitos_siglas"),
		Guidelines:    r.FormValue("diretrizes"),
		Complementary: r.FormValue("documentos_complementares"),
		References:    r.FormValue("referencias"),
		Email:         r.FormValue("email"),
		Revisions:     revisions,
		Attachments:   attachments,
	})
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}

	w.Header().Set("X-Document-ID", strconv.FormatInt(generated.DocumentID, 10))
	writeFile(w, generated.FileName, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", generated.Data)
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := search.Query{Text: r.URL.Query().Get("q")}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			writeError(w, http.StatusBadRequest, "VALIDATION", "limit must be between 1 and 100", nil)
			return
		}
		query.Limit = parsed
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "VALIDATION", "offset must be a non-negative integer", nil)
			return
		}
		query.Offset = parsed
	}
	if raw := r.URL.Query().Get("pasta"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION", "pasta must be an integer", nil)
			return
		}
		query.FilterFolderID = strconv.FormatInt(parsed, 10)
	}

	writeJSON(w, http.StatusOK, s.service.Search(query))
}

func folderJSON(folder store.Folder) map[string]any {
	return map[string]any{
		"id":    folder.ID,
		"nome":  folder.Name,
		"sigla": folder.Code,
	}
}

func documentJSON(doc store.Document) map[string]any {
	payload := map[string]any{
		"id":                        doc.ID,
		"pasta_id":                  doc.FolderID,
		"titulo":                    doc.Title,
		"objetivo":                  doc.Objective,
		"responsabilidades":         doc.Responsible,
		"conceitos_siglas":          doc.Concepts,
		"diretrizes":                doc.Guidelines,
		"documentos_complementares": doc.Complementary,
		"referencias":               doc.References,
		"data_criacao":              doc.CreatedAt,
		"email":                     doc.Email,
		"tema_sigla":                doc.TopicCode,
	}
	if doc.FolderName != "" {
		payload["pasta_nome"] = doc.FolderName
	}
	if doc.RevisionsJSON != "" {
		payload["revisoes"] = json.RawMessage(doc.RevisionsJSON)
	}
	if doc.AttachmentsJSON != "" {
		payload["anexos"] = json.RawMessage(doc.AttachmentsJSON)
	}
	return payload
}

// writeFile replaces the JSON content type set by the middleware with
// the binary one for the attachment being served.
func writeFile(w http.ResponseWriter, filename, mimeType string, data []byte) {
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, store.ErrCodeTaken) {
		return http.StatusConflict, "CODE_TAKEN", "sigla already in use", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
