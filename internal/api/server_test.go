package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"studyprep/internal/db"
	"studyprep/internal/services"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	conn, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return NewServer(Deps{
		PingMessage: "ping",
		CORSOrigin:  "*",
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),

		Users:     services.NewUserService(conn),
		Extractor: services.NewExtractorService(),
		Generator: services.NewGenerationService("", "llama-3.3-70b-versatile", "", nil),
		Papers:    services.NewPaperStore(),
		Sets:      services.NewQuestionSetStore(),
		Docs:      services.NewDocumentStore(),
		Exporter:  services.NewExportService(nil),
		Study:     services.NewStudyService(),
	})
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var decoded map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, decoded
}

func TestPing(t *testing.T) {
	srv := newTestServer(t)
	rec, body := doJSON(t, srv, http.MethodGet, "/api/ping", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["message"] != "ping" {
		t.Errorf("message = %v", body["message"])
	}
	if body["success"] != true {
		t.Errorf("success = %v", body["success"])
	}
}

func TestSyncUser(t *testing.T) {
	srv := newTestServer(t)

	t.Run("MissingFields", func(t *testing.T) {
		rec, body := doJSON(t, srv, http.MethodPost, "/api/sync-user", map[string]any{"email": "a@b.com"})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
		if body["success"] != false {
			t.Errorf("success = %v", body["success"])
		}
	})

	t.Run("CreatesAndReturnsUser", func(t *testing.T) {
		rec, body := doJSON(t, srv, http.MethodPost, "/api/sync-user", map[string]any{
			"clerk_id": "clerk_1",
			"email":    "alice@example.com",
			"name":     "Alice Example",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d body = %v", rec.Code, body)
		}
		user, ok := body["user"].(map[string]any)
		if !ok {
			t.Fatalf("no user in response: %v", body)
		}
		if user["id"] != "clerk_1" {
			t.Errorf("id = %v", user["id"])
		}
		// "name" substitutes for a missing full_name.
		if user["full_name"] != "Alice Example" {
			t.Errorf("full_name = %v", user["full_name"])
		}
	})

	t.Run("UpsertKeepsID", func(t *testing.T) {
		_, body := doJSON(t, srv, http.MethodPost, "/api/sync-user", map[string]any{
			"clerk_id": "clerk_1",
			"email":    "alice@changed.example.com",
		})
		user := body["user"].(map[string]any)
		if user["id"] != "clerk_1" {
			t.Errorf("id changed on re-sync: %v", user["id"])
		}
		if user["email"] != "alice@changed.example.com" {
			t.Errorf("email = %v", user["email"])
		}
	})
}

func TestGetAndDeleteUser(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, http.MethodPost, "/api/sync-user", map[string]any{
		"clerk_id": "clerk_1", "email": "alice@example.com",
	})

	rec, _ := doJSON(t, srv, http.MethodGet, "/api/get-user/clerk_1", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("get-user status = %d", rec.Code)
	}

	rec, _ = doJSON(t, srv, http.MethodGet, "/api/get-user/nobody", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown user status = %d", rec.Code)
	}

	rec, _ = doJSON(t, srv, http.MethodDelete, "/api/delete-user/clerk_1", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("delete status = %d", rec.Code)
	}

	rec, _ = doJSON(t, srv, http.MethodDelete, "/api/delete-user/clerk_1", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d", rec.Code)
	}
}

func TestUserData(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, http.MethodPost, "/api/sync-user", map[string]any{
		"clerk_id": "clerk_1", "email": "alice@example.com",
	})

	t.Run("UnknownUser", func(t *testing.T) {
		rec, _ := doJSON(t, srv, http.MethodGet, "/api/user-data/nobody", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("EmptyBody", func(t *testing.T) {
		rec, _ := doJSON(t, srv, http.MethodPost, "/api/user-data/clerk_1", map[string]any{})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("SetAndGet", func(t *testing.T) {
		rec, _ := doJSON(t, srv, http.MethodPost, "/api/user-data/clerk_1", map[string]any{
			"theme":     "dark",
			"streak":    7,
			"favorites": []string{"math", "physics"},
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("set status = %d", rec.Code)
		}

		rec, body := doJSON(t, srv, http.MethodGet, "/api/user-data/clerk_1", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("get status = %d", rec.Code)
		}
		data := body["data"].(map[string]any)
		if data["theme"] != "dark" {
			t.Errorf("theme = %v", data["theme"])
		}
		// Non-string values are stored in their JSON encoding.
		if data["streak"] != "7" {
			t.Errorf("streak = %v", data["streak"])
		}
		if data["favorites"] != `["math","physics"]` {
			t.Errorf("favorites = %v", data["favorites"])
		}
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		rec, _ := doJSON(t, srv, http.MethodPut, "/api/user-data/clerk_1", map[string]any{"theme": "light"})
		if rec.Code != http.StatusOK {
			t.Fatalf("put status = %d", rec.Code)
		}
		_, body := doJSON(t, srv, http.MethodGet, "/api/user-data/clerk_1", nil)
		data := body["data"].(map[string]any)
		if data["theme"] != "light" {
			t.Errorf("theme = %v", data["theme"])
		}
	})
}

func TestUploadPapers(t *testing.T) {
	srv := newTestServer(t)

	t.Run("NoFiles", func(t *testing.T) {
		rec, _ := doJSON(t, srv, http.MethodPost, "/api/upload-papers", map[string]any{"files": []any{}})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("RegistersStubs", func(t *testing.T) {
		rec, body := doJSON(t, srv, http.MethodPost, "/api/upload-papers", map[string]any{
			"files": []map[string]string{
				{"filename": "exam2023.pdf", "filePath": "/tmp/exam2023.pdf"},
				{"filename": "exam2024.pdf", "filePath": "/tmp/exam2024.pdf"},
			},
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d body = %v", rec.Code, body)
		}
		papers := body["papers"].([]any)
		if len(papers) != 2 {
			t.Fatalf("expected 2 papers, got %d", len(papers))
		}
		first := papers[0].(map[string]any)
		if first["id"] == "" || first["id"] == nil {
			t.Error("paper id missing")
		}
	})
}

func TestGenerateQuestions(t *testing.T) {
	srv := newTestServer(t)

	t.Run("NoPapers", func(t *testing.T) {
		rec, _ := doJSON(t, srv, http.MethodPost, "/api/generate-questions", map[string]any{})
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("GenerationUnavailable", func(t *testing.T) {
		// No API key is configured, so a paper with real text reaches the
		// generator and fails with the configuration error.
		dir := t.TempDir()
		path := filepath.Join(dir, "notes.txt")
		content := strings.Repeat("Photosynthesis converts light into chemical energy. ", 3)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}

		rec, body := doJSON(t, srv, http.MethodPost, "/api/generate-questions", map[string]any{
			"files": []map[string]string{{"filename": "notes.txt", "filePath": path}},
		})
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d body = %v", rec.Code, body)
		}
		if !strings.Contains(fmt.Sprint(body["message"]), "not configured") {
			t.Errorf("message = %v", body["message"])
		}
	})
}

func TestDownloadQuestionsNotFound(t *testing.T) {
	srv := newTestServer(t)
	rec, _ := doJSON(t, srv, http.MethodGet, "/api/download-questions/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestStudyPlanNotFound(t *testing.T) {
	srv := newTestServer(t)
	rec, _ := doJSON(t, srv, http.MethodGet, "/api/study-plan/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestDocumentLifecycle(t *testing.T) {
	srv := newTestServer(t)

	rec, body := doJSON(t, srv, http.MethodPost, "/api/upload-doc", map[string]any{"filename": "my_resume.docx"})
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d body = %v", rec.Code, body)
	}
	docID, _ := body["documentId"].(string)
	if docID == "" {
		t.Fatal("no documentId in response")
	}
	if !strings.Contains(fmt.Sprint(body["content"]), "RESUME") {
		t.Error("resume template not selected")
	}

	t.Run("EditUnknown", func(t *testing.T) {
		rec, _ := doJSON(t, srv, http.MethodPost, "/api/edit-doc", map[string]any{"documentId": "missing"})
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("EditAppliesPatch", func(t *testing.T) {
		rec, body := doJSON(t, srv, http.MethodPost, "/api/edit-doc", map[string]any{
			"documentId": docID,
			"content":    "Replaced body.",
			"formatting": map[string]any{"bold": true, "fontSize": 16},
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d body = %v", rec.Code, body)
		}
		if body["preview"] != "Replaced body." {
			t.Errorf("preview = %v", body["preview"])
		}
		formatting := body["formatting"].(map[string]any)
		if formatting["bold"] != true || formatting["fontSize"] != 16.0 {
			t.Errorf("formatting = %v", formatting)
		}
	})

	t.Run("DownloadDocx", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/download-doc/"+docID, nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "my_resume_edited.docx") {
			t.Errorf("Content-Disposition = %q", cd)
		}
		if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
			t.Error("body is not a zip archive")
		}
	})

	t.Run("DownloadPDF", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/download-doc/"+docID+"?format=pdf", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
			t.Errorf("Content-Type = %q", ct)
		}
		if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
			t.Error("body is not a PDF")
		}
	})

	t.Run("UnsupportedFormat", func(t *testing.T) {
		rec, _ := doJSON(t, srv, http.MethodGet, "/api/download-doc/"+docID+"?format=odt", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("DownloadUnknown", func(t *testing.T) {
		rec, _ := doJSON(t, srv, http.MethodGet, "/api/download-doc/missing", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d", rec.Code)
		}
	})
}

func TestNotFoundEnvelope(t *testing.T) {
	srv := newTestServer(t)
	rec, body := doJSON(t, srv, http.MethodGet, "/api/no-such-route", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["success"] != false {
		t.Errorf("fallback should use the JSON envelope, got %q", rec.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/ping", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rec.Code)
	}
	if origin := rec.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("allow-origin = %q", origin)
	}
}
