package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/moorea/moodboard/internal/domain"
	"github.com/moorea/moodboard/internal/jobs"
	"github.com/moorea/moodboard/internal/logger"
	"github.com/moorea/moodboard/internal/metrics"
	"github.com/moorea/moodboard/internal/pipeline"
	"github.com/moorea/moodboard/internal/vocab"
)

// pngBytes is a minimal payload that sniffs as image/png.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 100)...)

type stubRunner struct{}

func (stubRunner) Run(_ context.Context, jobID string, _ []byte, _ string, _ pipeline.ProgressFunc) (*domain.MoodboardResult, error) {
	return &domain.MoodboardResult{JobID: jobID}, nil
}

func testRouter(t *testing.T) (*gin.Engine, *jobs.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	catalog := `aesthetics:
  minimalist:
    description: "clean lines"
    keywords: ["minimalist outfit"]
  romantic:
    description: "soft fabrics"
    keywords: ["lace blouse"]
`
	path := filepath.Join(t.TempDir(), "aesthetics.yaml")
	if err := os.WriteFile(path, []byte(catalog), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	store := vocab.NewStore(path, logger.NewNop())

	m := metrics.New(prometheus.NewRegistry())
	// Workers are never started: submitted jobs stay pending, which lets
	// the handlers be tested deterministically.
	manager := jobs.NewManager(jobs.NewMemoryStore(), stubRunner{}, 1, m, logger.NewNop())

	router := gin.New()
	SetupRoutes(router, NewHandler(manager, store, logger.NewNop()))
	return router, manager
}

func uploadRequest(t *testing.T, field string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, "photo.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/moodboard", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestSubmitMoodboard(t *testing.T) {
	router, _ := testRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "image", pngBytes))

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp SubmitResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.JobID == "" {
		t.Error("missing job_id")
	}
	if resp.Status != string(domain.StatusPending) {
		t.Errorf("status = %s, want pending", resp.Status)
	}
	if resp.Deduplicated {
		t.Error("first submit flagged as deduplicated")
	}
}

func TestSubmitDuplicateReturnsExistingJob(t *testing.T) {
	router, _ := testRouter(t)

	w1 := httptest.NewRecorder()
	router.ServeHTTP(w1, uploadRequest(t, "image", pngBytes))
	var first SubmitResponse
	_ = json.Unmarshal(w1.Body.Bytes(), &first)

	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, uploadRequest(t, "image", pngBytes))
	var second SubmitResponse
	_ = json.Unmarshal(w2.Body.Bytes(), &second)

	if w2.Code != http.StatusAccepted {
		t.Fatalf("duplicate status = %d", w2.Code)
	}
	if !second.Deduplicated {
		t.Error("duplicate submit not flagged")
	}
	if second.JobID != first.JobID {
		t.Errorf("duplicate got job %s, want %s", second.JobID, first.JobID)
	}
}

func TestSubmitRejectsMissingFile(t *testing.T) {
	router, _ := testRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "wrong_field", pngBytes))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestSubmitRejectsNonImage(t *testing.T) {
	router, _ := testRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "image", []byte("definitely plain text, not pixels")))
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want 415", w.Code)
	}
}

func TestGetStatus(t *testing.T) {
	router, manager := testRouter(t)

	job, _, err := manager.Submit(pngBytes)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/moodboard/"+job.ID+"/status", http.NoBody))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.JobID != job.ID || resp.Status != string(domain.StatusPending) {
		t.Errorf("unexpected status payload: %+v", resp)
	}
}

func TestGetStatusUnknownJob(t *testing.T) {
	router, _ := testRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/moodboard/nope/status", http.NoBody))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestGetResultWhileProcessing(t *testing.T) {
	router, manager := testRouter(t)

	job, _, err := manager.Submit(pngBytes)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/moodboard/"+job.ID, http.NoBody))
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 while pending", w.Code)
	}
}

func TestListAesthetics(t *testing.T) {
	router, _ := testRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/aesthetics", http.NoBody))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp AestheticsListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 2 {
		t.Fatalf("total = %d, want 2", resp.Total)
	}
	if resp.Aesthetics[0].Name != "minimalist" || resp.Aesthetics[1].Name != "romantic" {
		t.Errorf("catalog not sorted by name: %+v", resp.Aesthetics)
	}
}
