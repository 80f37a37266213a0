package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/NamanLimani/guardrail-ai/internal/cli"
	"github.com/NamanLimani/guardrail-ai/internal/config"
	"github.com/NamanLimani/guardrail-ai/internal/models"
)

// isolate clears provider credentials so tests never reach a hosted model.
func isolate(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		config.EnvHFToken, config.EnvOpenAIAPIKey, config.EnvGroqAPIKey,
		config.EnvDatabaseURL, config.EnvAllowedOrigins,
	} {
		t.Setenv(key, "")
	}
}

func writeTestConfig(t *testing.T) (configPath, dir string) {
	t.Helper()
	dir = t.TempDir()
	configPath = filepath.Join(dir, "config.yaml")
	yaml := `storage:
  database_path: ./db/guardrail.db
  bleve_index_path: ./indices/bleve
blob:
  upload_dir: ./uploads
embedding:
  provider: mock
  dimensions: 8
`
	if err := os.WriteFile(configPath, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	return configPath, dir
}

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const sample = "Contact jane@example.com about the lease. SSN 123-45-6789."

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	if err := run("version", nil, &out); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != "guardrail version dev\n" {
		t.Errorf("version output = %q", got)
	}
}

func TestRun_Help(t *testing.T) {
	var out bytes.Buffer
	if err := run("help", nil, &out); err != nil {
		t.Fatal(err)
	}
	for _, cmd := range []string{"server", "redact", "process", "search", "status"} {
		if !strings.Contains(out.String(), cmd) {
			t.Errorf("usage does not mention %q", cmd)
		}
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	err := run("frobnicate", nil, &bytes.Buffer{})
	if !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestRedact_Text(t *testing.T) {
	isolate(t)
	configPath, dir := writeTestConfig(t)
	input := writeInput(t, dir, "lease.txt", sample)

	var out bytes.Buffer
	if err := run("redact", []string{"-config", configPath, input}, &out); err != nil {
		t.Fatal(err)
	}
	got := out.String()
	for _, want := range []string{"File: lease.txt", "Risk: 110 (high)", "<EMAIL>", "<SSN>", "Entity pass skipped"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "jane@example.com") || strings.Contains(got, "123-45-6789") {
		t.Errorf("output leaks PII:\n%s", got)
	}
}

func TestRedact_JSON(t *testing.T) {
	isolate(t)
	configPath, dir := writeTestConfig(t)
	input := writeInput(t, dir, "lease.txt", sample)

	var out bytes.Buffer
	if err := run("redact", []string{"-config", configPath, "-format", "json", input}, &out); err != nil {
		t.Fatal(err)
	}
	var r cli.Redaction
	if err := json.Unmarshal(out.Bytes(), &r); err != nil {
		t.Fatalf("decode: %v\n%s", err, out.String())
	}
	if r.Stats[models.CategoryEmail] != 1 || r.Stats[models.CategorySSN] != 1 {
		t.Errorf("stats = %v", r.Stats)
	}
	if r.Score != 110 || r.Level != "high" {
		t.Errorf("score = %d (%s), want 110 (high)", r.Score, r.Level)
	}
}

func TestRedact_Usage(t *testing.T) {
	isolate(t)
	err := run("redact", []string{"-config", filepath.Join(t.TempDir(), "missing.yaml")}, &bytes.Buffer{})
	if !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestRedact_EmptyFile(t *testing.T) {
	isolate(t)
	configPath, dir := writeTestConfig(t)
	input := writeInput(t, dir, "blank.txt", "   \n")

	err := run("redact", []string{"-config", configPath, input}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "no text found") {
		t.Fatalf("expected no-text error, got %v", err)
	}
}

func TestProcess_StoresCompletedDocument(t *testing.T) {
	isolate(t)
	configPath, dir := writeTestConfig(t)
	input := writeInput(t, dir, "lease.txt", sample)

	var out bytes.Buffer
	if err := run("process", []string{"-config", configPath, "-owner", "u1", "-format", "json", input}, &out); err != nil {
		t.Fatalf("process: %v\n%s", err, out.String())
	}
	var doc models.Document
	if err := json.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v\n%s", err, out.String())
	}
	if doc.Status != models.StatusCompleted {
		t.Fatalf("status = %s (%s)", doc.Status, doc.FailureReason)
	}
	if doc.OwnerID != "u1" || doc.Filename != "lease.txt" || doc.RiskScore != 110 {
		t.Errorf("unexpected document: %+v", doc)
	}
	if len(doc.Vector) != 0 {
		t.Error("vector should not be printed")
	}
	if strings.Contains(doc.TextContent, "jane@example.com") {
		t.Error("stored text is not redacted")
	}
	if _, err := os.Stat(filepath.Join(dir, "db", "guardrail.db")); err != nil {
		t.Errorf("database not created under config dir: %v", err)
	}
}

func TestBuildEmbedder(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.EmbeddingConfig
		wantNil bool
		wantErr bool
	}{
		{"huggingface without token", config.EmbeddingConfig{Provider: "huggingface", Dimensions: 384}, true, false},
		{"huggingface with token", config.EmbeddingConfig{Provider: "huggingface", APIKey: "hf_x", Dimensions: 384}, false, false},
		{"openai without key", config.EmbeddingConfig{Provider: "openai", Dimensions: 1536}, true, false},
		{"openai with key", config.EmbeddingConfig{Provider: "openai", APIKey: "sk-x", Model: "text-embedding-3-small", Dimensions: 1536}, false, false},
		{"mock", config.EmbeddingConfig{Provider: "mock", Dimensions: 8}, false, false},
		{"unknown", config.EmbeddingConfig{Provider: "word2vec"}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := buildEmbedder(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if (e == nil) != tt.wantNil {
				t.Fatalf("embedder = %v, wantNil %v", e, tt.wantNil)
			}
			if e != nil && e.Dimensions() != tt.cfg.Dimensions {
				t.Errorf("dimensions = %d, want %d", e.Dimensions(), tt.cfg.Dimensions)
			}
		})
	}
}

func TestSearch_ViaServer(t *testing.T) {
	var gotPath, gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var req models.SearchRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotQuery = req.Query
		_ = json.NewEncoder(w).Encode([]models.ScoredMatch{
			{DocumentID: "d1", Filename: "lease.txt", Score: 0.81, Preview: "the lease runs..."},
		})
	}))
	defer ts.Close()

	var out bytes.Buffer
	err := run("search", []string{"-server", ts.URL, "-owner", "u1", "lease", "terms"}, &out)
	if err != nil {
		t.Fatal(err)
	}
	if gotPath != "/api/v1/u1/search" {
		t.Errorf("path = %q", gotPath)
	}
	if gotQuery != "lease terms" {
		t.Errorf("query = %q", gotQuery)
	}
	if !strings.Contains(out.String(), "lease.txt") {
		t.Errorf("output missing match:\n%s", out.String())
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	err := run("search", []string{"-server", "http://127.0.0.1:1", "  "}, &bytes.Buffer{})
	if !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestStatus_ViaServer(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/status" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"documents":{"completed":3,"failed":1},"providers":{"storage":"sqlite3","embedding":"mock"},"queue_pending":2,"disk_usage_bytes":4096}`))
	}))
	defer ts.Close()

	var out bytes.Buffer
	if err := run("status", []string{"-server", ts.URL}, &out); err != nil {
		t.Fatal(err)
	}
	got := out.String()
	for _, want := range []string{"documents:          4", "completed:", "queue_pending:      2", "disk_usage_bytes:   4096", "sqlite3"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestStatus_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to count documents"}`))
	}))
	defer ts.Close()

	err := run("status", []string{"-server", ts.URL}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "failed to count documents") {
		t.Fatalf("expected server error, got %v", err)
	}
}
