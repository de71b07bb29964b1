package graph

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// fakeGraph serves the handful of Graph endpoints the client touches.
type fakeGraph struct {
	t          *testing.T
	tokenCalls int
	files      map[string][]byte
	folders    map[string]bool
	deleted    []string
}

func newFakeGraph(t *testing.T) *fakeGraph {
	return &fakeGraph{
		t:       t,
		files:   map[string][]byte{},
		folders: map[string]bool{},
	}
}

func (f *fakeGraph) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/tenant-1/oauth2/v2.0/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("grant_type") != "client_credentials" ||
			r.PostForm.Get("client_id") != "client-1" ||
			r.PostForm.Get("client_secret") != "secret-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.tokenCalls++
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-1", "expires_in": 3600})
	})
	mux.HandleFunc("/v1.0/sites/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		rest := strings.TrimPrefix(r.URL.Path, "/v1.0/sites/")
		switch rest {
		case "contoso.sharepoint.com:/sites/psg":
			json.NewEncoder(w).Encode(map[string]any{"id": "site-1"})
		case "site-1/drives":
			json.NewEncoder(w).Encode(map[string]any{"value": []map[string]any{
				{"id": "drive-other", "name": "Site Assets"},
				{"id": "drive-1", "name": "Documentos"},
			}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	mux.HandleFunc("/v1.0/drives/drive-1/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		rest := strings.TrimPrefix(r.URL.Path, "/v1.0/drives/drive-1/")
		switch {
		case strings.HasPrefix(rest, "items/") && r.Method == http.MethodDelete:
			f.deleted = append(f.deleted, strings.TrimPrefix(rest, "items/"))
			w.WriteHeader(http.StatusNoContent)
		case strings.HasPrefix(rest, "root:/"):
			f.handleRoot(w, r, strings.TrimPrefix(rest, "root:/"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	return mux
}

func (f *fakeGraph) handleRoot(w http.ResponseWriter, r *http.Request, rest string) {
	switch {
	case strings.HasSuffix(rest, ":/content"):
		path := strings.TrimSuffix(rest, ":/content")
		switch r.Method {
		case http.MethodGet:
			data, ok := f.files[path]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write(data)
		case http.MethodPut:
			data, err := io.ReadAll(r.Body)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			f.files[path] = data
			w.WriteHeader(http.StatusCreated)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case strings.HasSuffix(rest, ":/children"):
		path := strings.TrimSuffix(rest, ":/children")
		var items []map[string]any
		for file := range f.files {
			if strings.HasPrefix(file, path+"/") && !strings.Contains(strings.TrimPrefix(file, path+"/"), "/") {
				items = append(items, map[string]any{"id": "item-" + file, "name": strings.TrimPrefix(file, path+"/")})
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"value": items})
	case r.Method == http.MethodPatch:
		f.folders[rest] = true
		w.WriteHeader(http.StatusCreated)
	default:
		if _, ok := f.files[rest]; ok {
			json.NewEncoder(w).Encode(map[string]any{"id": "item-" + rest})
			return
		}
		if f.folders[rest] {
			json.NewEncoder(w).Encode(map[string]any{"id": "folder-" + rest})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(t *testing.T) (*Client, *fakeGraph) {
	t.Helper()
	fake := newFakeGraph(t)
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)
	client := NewClient(Options{
		BaseURL:      server.URL,
		LoginBaseURL: server.URL,
		TenantID:     "tenant-1",
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		SiteURL:      "https://contoso.sharepoint.com/sites/psg",
		DriveName:    "Documentos",
		HTTPClient:   server.Client(),
	})
	return client, fake
}

func TestAuthenticateReusesToken(t *testing.T) {
	client, fake := newTestClient(t)
	ctx := context.Background()

	if err := client.Authenticate(ctx); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if err := client.Authenticate(ctx); err != nil {
		t.Fatalf("Authenticate again: %v", err)
	}
	if fake.tokenCalls != 1 {
		t.Errorf("token endpoint hit %d times, want 1", fake.tokenCalls)
	}
}

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	fake := newFakeGraph(t)
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)
	client := NewClient(Options{
		BaseURL:      server.URL,
		LoginBaseURL: server.URL,
		TenantID:     "tenant-1",
		ClientID:     "client-1",
		ClientSecret: "wrong",
		SiteURL:      "https://contoso.sharepoint.com/sites/psg",
		HTTPClient:   server.Client(),
	})
	if err := client.Authenticate(context.Background()); err == nil {
		t.Fatal("expected error for bad credentials")
	}
}

func TestResolveDriveIDPicksNamedDrive(t *testing.T) {
	client, _ := newTestClient(t)

	id, err := client.ResolveDriveID(context.Background())
	if err != nil {
		t.Fatalf("ResolveDriveID: %v", err)
	}
	if id != "drive-1" {
		t.Errorf("drive id = %q, want drive-1", id)
	}
}

func TestFetchContent(t *testing.T) {
	client, fake := newTestClient(t)
	ctx := context.Background()
	fake.files["PSG/Pendentes/PSG-7-LGPD-01.docx"] = []byte("docx-bytes")

	data, found, err := client.FetchContent(ctx, "PSG/Pendentes/PSG-7-LGPD-01.docx")
	if err != nil || !found {
		t.Fatalf("FetchContent = found=%v err=%v", found, err)
	}
	if string(data) != "docx-bytes" {
		t.Errorf("content = %q", data)
	}

	_, found, err = client.FetchContent(ctx, "PSG/Pendentes/missing.docx")
	if err != nil || found {
		t.Errorf("missing file: found=%v err=%v, want (false, nil)", found, err)
	}
}

func TestUploadContent(t *testing.T) {
	client, fake := newTestClient(t)

	if err := client.UploadContent(context.Background(), "PSG/RH/PSG-RH-FER-01.docx", []byte("payload")); err != nil {
		t.Fatalf("UploadContent: %v", err)
	}
	if string(fake.files["PSG/RH/PSG-RH-FER-01.docx"]) != "payload" {
		t.Errorf("stored files = %v", fake.files)
	}
}

func TestItemIDByPathAndDelete(t *testing.T) {
	client, fake := newTestClient(t)
	ctx := context.Background()
	fake.files["PSG/Pendentes/doc.docx"] = []byte("x")

	id, found, err := client.ItemIDByPath(ctx, "PSG/Pendentes/doc.docx")
	if err != nil || !found {
		t.Fatalf("ItemIDByPath = found=%v err=%v", found, err)
	}
	if err := client.DeleteItem(ctx, id); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if len(fake.deleted) != 1 || fake.deleted[0] != id {
		t.Errorf("deleted ids = %v", fake.deleted)
	}
}

func TestListChildren(t *testing.T) {
	client, fake := newTestClient(t)
	fake.files["PSG/RH/a.docx"] = []byte("a")
	fake.files["PSG/RH/b.docx"] = []byte("b")
	fake.files["PSG/FIN/c.docx"] = []byte("c")

	items, err := client.ListChildren(context.Background(), "PSG/RH")
	if err != nil {
		t.Fatalf("ListChildren: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("children = %+v, want 2 entries", items)
	}
}

func TestEnsureFolderCreatesOnce(t *testing.T) {
	client, fake := newTestClient(t)
	ctx := context.Background()

	if err := client.EnsureFolder(ctx, "PSG/Novo Setor"); err != nil {
		t.Fatalf("EnsureFolder: %v", err)
	}
	if len(fake.folders) != 1 {
		t.Fatalf("folders = %v", fake.folders)
	}
	if err := client.EnsureFolder(ctx, "PSG/Novo Setor"); err != nil {
		t.Fatalf("EnsureFolder again: %v", err)
	}
	if len(fake.folders) != 1 {
		t.Errorf("folder created twice: %v", fake.folders)
	}
}
