package app

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestServer(t *testing.T) (*serviceFixture, *httptest.Server) {
	t.Helper()
	fixture := newServiceFixture()
	server := httptest.NewServer(NewHTTPServer(fixture.service, "*").Handler())
	t.Cleanup(server.Close)
	return fixture, server
}

func decodeJSON(t *testing.T, body io.Reader, target any) {
	t.Helper()
	if err := json.NewDecoder(body).Decode(target); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	_, server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var payload map[string]any
	decodeJSON(t, resp.Body, &payload)
	if payload["ok"] != true {
		t.Fatalf("payload = %v", payload)
	}
}

func TestReadyReportsDatabaseFailure(t *testing.T) {
	fixture, server := newTestServer(t)
	fixture.store.pingErr = io.ErrUnexpectedEOF

	resp, err := http.Get(server.URL + "/api/ready")
	if err != nil {
		t.Fatalf("GET /api/ready: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var payload struct {
		OK     bool           `json:"ok"`
		Checks map[string]any `json:"checks"`
	}
	decodeJSON(t, resp.Body, &payload)
	if payload.OK {
		t.Fatalf("expected not ready")
	}
}

func TestOptionsRequestsAreShortCircuited(t *testing.T) {
	_, server := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, server.URL+"/pastas", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header")
	}
}

func TestCreateAndListFoldersHTTP(t *testing.T) {
	_, server := newTestServer(t)

	resp, err := http.Post(server.URL+"/criar_pasta", "application/json",
		strings.NewReader(`{"nome":"Recursos Humanos","sigla":"RH"}`))
	if err != nil {
		t.Fatalf("POST /criar_pasta: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	listResp, err := http.Get(server.URL + "/pastas")
	if err != nil {
		t.Fatalf("GET /pastas: %v", err)
	}
	defer listResp.Body.Close()
	var folders []map[string]any
	decodeJSON(t, listResp.Body, &folders)
	if len(folders) != 1 || folders[0]["sigla"] != "RH" {
		t.Fatalf("folders = %v", folders)
	}
}

func TestCreateFolderConflictHTTP(t *testing.T) {
	_, server := newTestServer(t)

	for i := 0; i < 2; i++ {
		resp, err := http.Post(server.URL+"/criar_pasta", "application/json",
			strings.NewReader(`{"nome":"Qualidade","sigla":"QLD"}`))
		if err != nil {
			t.Fatalf("POST /criar_pasta: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusCreated {
			continue
		}
		if resp.StatusCode != http.StatusConflict {
			t.Fatalf("status = %d", resp.StatusCode)
		}
	}
}

func TestGenerateDocumentHTTP(t *testing.T) {
	_, server := newTestServer(t)

	resp, err := http.Post(server.URL+"/criar_pasta", "application/json",
		strings.NewReader(`{"nome":"Recursos Humanos","sigla":"RH"}`))
	if err != nil {
		t.Fatalf("POST /criar_pasta: %v", err)
	}
	resp.Body.Close()

	var form bytes.Buffer
	writer := multipart.NewWriter(&form)
	fields := map[string]string{
		"pasta_id": "1",
		"titulo":   "Política de Férias",
		"tema":     "FER",
		"objetivo": "Definir regras de férias.",
		"email":    "rh@example.com",
		"revisoes": `[{"data":"01/01/2025","responsavel":"RH","alteracao":"Emissão inicial"}]`,
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatalf("write field %s: %v", name, err)
		}
	}
	writer.Close()

	genResp, err := http.Post(server.URL+"/gerar_documento", writer.FormDataContentType(), &form)
	if err != nil {
		t.Fatalf("POST /gerar_documento: %v", err)
	}
	defer genResp.Body.Close()
	if genResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(genResp.Body)
		t.Fatalf("status = %d body = %s", genResp.StatusCode, body)
	}
	if got := genResp.Header.Get("Content-Disposition"); !strings.Contains(got, "PSG-1-FER-01.docx") {
		t.Fatalf("content disposition = %q", got)
	}
	if genResp.Header.Get("X-Document-ID") != "1" {
		t.Fatalf("document id header = %q", genResp.Header.Get("X-Document-ID"))
	}
	data, err := io.ReadAll(genResp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("DOCX:")) {
		t.Fatalf("unexpected payload %q", data)
	}
}

func TestGenerateDocumentRequiresFolderID(t *testing.T) {
	_, server := newTestServer(t)

	var form bytes.Buffer
	writer := multipart.NewWriter(&form)
	_ = writer.WriteField("titulo", "Política de Férias")
	writer.Close()

	resp, err := http.Post(server.URL+"/gerar_documento", writer.FormDataContentType(), &form)
	if err != nil {
		t.Fatalf("POST /gerar_documento: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestSearchValidatesLimit(t *testing.T) {
	_, server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/search?q=ferias&limit=0")
	if err != nil {
		t.Fatalf("GET /api/search: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var payload map[string]any
	decodeJSON(t, resp.Body, &payload)
	if payload["code"] != "VALIDATION" {
		t.Fatalf("payload = %v", payload)
	}
}

func TestSearchAcceptsFolderFilter(t *testing.T) {
	_, server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/search?q=ferias&pasta=2")
	if err != nil {
		t.Fatalf("GET /api/search: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var payload struct {
		Query string `json:"query"`
	}
	decodeJSON(t, resp.Body, &payload)
	if payload.Query != "ferias" {
		t.Fatalf("query = %q", payload.Query)
	}
}

func TestDownloadMissingFileIs404(t *testing.T) {
	_, server := newTestServer(t)

	resp, err := http.Get(server.URL + "/download/Recursos%20Humanos/nope.docx")
	if err != nil {
		t.Fatalf("GET /download: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	_, server := newTestServer(t)

	resp, err := http.Get(server.URL + "/nope")
	if err != nil {
		t.Fatalf("GET /nope: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var payload map[string]any
	decodeJSON(t, resp.Body, &payload)
	if payload["code"] != "NOT_FOUND" {
		t.Fatalf("payload = %v", payload)
	}
}
