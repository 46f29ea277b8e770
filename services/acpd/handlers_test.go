// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package acpd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/acp/services/acp/cache"
	"github.com/AleutianAI/acp/services/acp/query"
	badgerstore "github.com/AleutianAI/acp/services/acp/storage/badger"
)

func init() {
	// Set Gin to test mode to reduce noise
	gin.SetMode(gin.TestMode)
}

func setupTestRouter(svc *Service) *gin.Engine {
	router := gin.New()
	handlers := NewHandlers(svc)
	v1 := router.Group("/v1")
	RegisterRoutes(v1, handlers)
	return router
}

// indexedService returns a service with one published snapshot.
func indexedService(t *testing.T, archive *badgerstore.Archive) *Service {
	t.Helper()
	svc := testService(t, archive)
	if _, err := svc.Reindex(context.Background()); err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	return svc
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal error response: %v", err)
	}
	return resp
}

func TestHandlers_HandleHealth(t *testing.T) {
	svc := testService(t, nil)
	router := setupTestRouter(svc)

	req, _ := http.NewRequest("GET", "/v1/acp/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if resp.Status != "healthy" {
		t.Errorf("expected status 'healthy', got %q", resp.Status)
	}
	if resp.Version != ServiceVersion {
		t.Errorf("expected version %q, got %q", ServiceVersion, resp.Version)
	}
	if resp.Indexed {
		t.Error("expected Indexed=false before first reindex")
	}
}

func TestHandlers_NoSnapshot_Returns503(t *testing.T) {
	svc := testService(t, nil)
	router := setupTestRouter(svc)

	paths := []string{
		"/v1/acp/files/auth/login.go",
		"/v1/acp/locks/frozen",
		"/v1/acp/domains/auth",
		"/v1/acp/symbols/Login",
		"/v1/acp/primer",
		"/v1/acp/stats",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			req, _ := http.NewRequest("GET", path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusServiceUnavailable {
				t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
			}
			if resp := decodeError(t, w); resp.Code != "NO_INDEX" {
				t.Errorf("expected code NO_INDEX, got %q", resp.Code)
			}
		})
	}
}

func TestHandlers_HandleGetBootstrap_WithoutSnapshot(t *testing.T) {
	svc := testService(t, nil)
	router := setupTestRouter(svc)

	req, _ := http.NewRequest("GET", "/v1/acp/bootstrap", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp BootstrapResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if !strings.Contains(resp.Text, "no index") {
		t.Errorf("expected absence indicator, got %q", resp.Text)
	}
}

func TestHandlers_HandleGetFile(t *testing.T) {
	svc := indexedService(t, nil)
	router := setupTestRouter(svc)

	req, _ := http.NewRequest("GET", "/v1/acp/files/auth/login.go", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var entry cache.FileEntry
	if err := json.Unmarshal(w.Body.Bytes(), &entry); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if entry.FilePath != "auth/login.go" {
		t.Errorf("file_path = %q, want auth/login.go", entry.FilePath)
	}
	if entry.Domain != "auth" {
		t.Errorf("domain = %q, want auth", entry.Domain)
	}
	if len(entry.Symbols) != 1 {
		t.Errorf("symbols = %d, want 1", len(entry.Symbols))
	}
}

func TestHandlers_HandleGetFile_NotFound(t *testing.T) {
	svc := indexedService(t, nil)
	router := setupTestRouter(svc)

	req, _ := http.NewRequest("GET", "/v1/acp/files/ghost/nowhere.go", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
	if resp := decodeError(t, w); resp.Code != "FILE_NOT_FOUND" {
		t.Errorf("expected code FILE_NOT_FOUND, got %q", resp.Code)
	}
}

func TestHandlers_HandleGetFile_EmptyPath(t *testing.T) {
	svc := indexedService(t, nil)
	router := setupTestRouter(svc)

	req, _ := http.NewRequest("GET", "/v1/acp/files/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	if resp := decodeError(t, w); resp.Code != "MISSING_PARAMETER" {
		t.Errorf("expected code MISSING_PARAMETER, got %q", resp.Code)
	}
}

func TestHandlers_HandleGetFile_Traversal(t *testing.T) {
	svc := indexedService(t, nil)
	router := setupTestRouter(svc)

	req, _ := http.NewRequest("GET", "/v1/acp/files/../secrets.env", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	if resp := decodeError(t, w); resp.Code != "INVALID_PATH" {
		t.Errorf("expected code INVALID_PATH, got %q", resp.Code)
	}
}

func TestHandlers_HandleGetLock(t *testing.T) {
	svc := indexedService(t, nil)
	router := setupTestRouter(svc)

	req, _ := http.NewRequest("GET", "/v1/acp/locks/frozen", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp LockResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Count != 1 || len(resp.Paths) != 1 || resp.Paths[0] != "auth/login.go" {
		t.Errorf("unexpected lock response: %+v", resp)
	}
}

func TestHandlers_HandleGetLock_Invalid(t *testing.T) {
	svc := indexedService(t, nil)
	router := setupTestRouter(svc)

	req, _ := http.NewRequest("GET", "/v1/acp/locks/legendary", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	if resp := decodeError(t, w); resp.Code != "INVALID_LOCK_LEVEL" {
		t.Errorf("expected code INVALID_LOCK_LEVEL, got %q", resp.Code)
	}
}

func TestHandlers_HandleGetDomain(t *testing.T) {
	svc := indexedService(t, nil)
	router := setupTestRouter(svc)

	tests := []struct {
		name      string
		domain    string
		wantCount int
	}{
		{name: "known domain", domain: "pay", wantCount: 1},
		{name: "unknown domain is empty not error", domain: "ghost", wantCount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", "/v1/acp/domains/"+tt.domain, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
			}

			var resp DomainResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if resp.Count != tt.wantCount {
				t.Errorf("count = %d, want %d", resp.Count, tt.wantCount)
			}
		})
	}
}

func TestHandlers_HandleGetSymbol(t *testing.T) {
	svc := indexedService(t, nil)
	router := setupTestRouter(svc)

	req, _ := http.NewRequest("GET", "/v1/acp/symbols/Login", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp SymbolsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Count != 1 {
		t.Fatalf("count = %d, want 1", resp.Count)
	}
	match := resp.Matches[0]
	if match.FilePath != "auth/login.go" || match.Name != "Login" {
		t.Errorf("unexpected match: %+v", match)
	}
}

func TestHandlers_HandleGetPrimer(t *testing.T) {
	svc := indexedService(t, nil)
	router := setupTestRouter(svc)

	req, _ := http.NewRequest("GET", "/v1/acp/primer", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp PrimerResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.MaxLength != query.DefaultPrimerLength {
		t.Errorf("max_length = %d, want default %d", resp.MaxLength, query.DefaultPrimerLength)
	}
	if resp.Truncated {
		t.Error("small index should not truncate at the default budget")
	}
	if !strings.Contains(resp.Text, "2 files") {
		t.Errorf("primer text = %q, want file count", resp.Text)
	}
}

func TestHandlers_HandleGetPrimer_Params(t *testing.T) {
	svc := indexedService(t, nil)
	router := setupTestRouter(svc)

	t.Run("domain scope", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/v1/acp/primer?domain=auth", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		var resp PrimerResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if resp.Domain != "auth" {
			t.Errorf("domain = %q, want auth", resp.Domain)
		}
		if !strings.Contains(resp.Text, "auth/login.go") {
			t.Errorf("primer text = %q, want file line", resp.Text)
		}
	})

	t.Run("tight budget truncates", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/v1/acp/primer?max_length=50", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		var resp PrimerResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if len(resp.Text) > 50 {
			t.Errorf("primer length = %d, want <= 50", len(resp.Text))
		}
		if !resp.Truncated {
			t.Error("expected truncation at a 50-char budget")
		}
	})

	t.Run("invalid max_length", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/v1/acp/primer?max_length=-3", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
		if resp := decodeError(t, w); resp.Code != "INVALID_REQUEST" {
			t.Errorf("expected code INVALID_REQUEST, got %q", resp.Code)
		}
	})
}

func TestHandlers_HandleGetStats(t *testing.T) {
	svc := indexedService(t, nil)
	router := setupTestRouter(svc)

	req, _ := http.NewRequest("GET", "/v1/acp/stats", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp query.Stats
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.TotalFiles != 2 {
		t.Errorf("total_files = %d, want 2", resp.TotalFiles)
	}
	if resp.ByLockLevel["frozen"] != 1 || resp.ByLockLevel["restricted"] != 1 {
		t.Errorf("unexpected lock counts: %v", resp.ByLockLevel)
	}
	if resp.GitCommit != testCommit {
		t.Errorf("git_commit = %q, want %q", resp.GitCommit, testCommit)
	}
}

func TestHandlers_HandleReindex(t *testing.T) {
	svc := testService(t, nil)
	router := setupTestRouter(svc)

	req, _ := http.NewRequest("POST", "/v1/acp/reindex", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var resp ReindexResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.FilesIndexed != 2 {
		t.Errorf("files_indexed = %d, want 2", resp.FilesIndexed)
	}
	if !svc.Indexed() {
		t.Error("service not indexed after reindex")
	}
}

func TestHandlers_HandleReindex_Conflict(t *testing.T) {
	svc := testService(t, nil)
	router := setupTestRouter(svc)

	svc.reindexMu.Lock()
	defer svc.reindexMu.Unlock()

	req, _ := http.NewRequest("POST", "/v1/acp/reindex", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, w.Code)
	}
	if resp := decodeError(t, w); resp.Code != "REINDEX_IN_PROGRESS" {
		t.Errorf("expected code REINDEX_IN_PROGRESS, got %q", resp.Code)
	}
}

func TestHandlers_Snapshots_Disabled(t *testing.T) {
	svc := indexedService(t, nil)
	router := setupTestRouter(svc)

	for _, path := range []string{"/v1/acp/snapshots", "/v1/acp/snapshots/deadbeef"} {
		t.Run(path, func(t *testing.T) {
			req, _ := http.NewRequest("GET", path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusServiceUnavailable {
				t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
			}
			if resp := decodeError(t, w); resp.Code != "ARCHIVE_DISABLED" {
				t.Errorf("expected code ARCHIVE_DISABLED, got %q", resp.Code)
			}
		})
	}
}

func TestHandlers_Snapshots(t *testing.T) {
	db, err := badgerstore.Open(badgerstore.InMemoryConfig())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	archive, err := badgerstore.NewArchive(db)
	if err != nil {
		t.Fatalf("NewArchive: %v", err)
	}
	t.Cleanup(func() { _ = archive.Close() })

	svc := indexedService(t, archive)
	router := setupTestRouter(svc)

	t.Run("list", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/v1/acp/snapshots", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		var resp SnapshotsResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if resp.Count != 1 || resp.Snapshots[0].Commit != testCommit {
			t.Errorf("unexpected snapshot list: %+v", resp)
		}
	})

	t.Run("get by prefix", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/v1/acp/snapshots/0123456", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		var snapshot cache.Cache
		if err := json.Unmarshal(w.Body.Bytes(), &snapshot); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if snapshot.GitCommit != testCommit {
			t.Errorf("git_commit = %q, want %q", snapshot.GitCommit, testCommit)
		}
	})

	t.Run("unknown commit", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/v1/acp/snapshots/deadbeef", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
		}
		if resp := decodeError(t, w); resp.Code != "SNAPSHOT_NOT_FOUND" {
			t.Errorf("expected code SNAPSHOT_NOT_FOUND, got %q", resp.Code)
		}
	})

	t.Run("invalid commit", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/v1/acp/snapshots/zzz", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
		if resp := decodeError(t, w); resp.Code != "INVALID_COMMIT" {
			t.Errorf("expected code INVALID_COMMIT, got %q", resp.Code)
		}
	})
}

func TestHandlers_RequestIDEcho(t *testing.T) {
	svc := indexedService(t, nil)
	router := setupTestRouter(svc)

	t.Run("provided id echoed", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/v1/acp/stats", nil)
		req.Header.Set("X-Request-ID", "req-42")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if got := w.Header().Get("X-Request-ID"); got != "req-42" {
			t.Errorf("X-Request-ID = %q, want req-42", got)
		}
	})

	t.Run("generated when absent", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/v1/acp/stats", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Header().Get("X-Request-ID") == "" {
			t.Error("X-Request-ID not set on response")
		}
	})
}
