package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"support_pipeline/internal/config"
	"support_pipeline/internal/events"
	"support_pipeline/internal/handoff"
	"support_pipeline/internal/pipeline"
	"support_pipeline/internal/roles"
	"support_pipeline/internal/scoring"
	"support_pipeline/internal/stt"
	"support_pipeline/internal/summarylog"
	"support_pipeline/internal/transcript"
)

type fakeSTT struct {
	frags []stt.Fragment
	err   error
}

func (f *fakeSTT) Transcribe(ctx context.Context, audioPath string) ([]stt.Fragment, error) {
	return f.frags, f.err
}

type fakeCompleter struct {
	resp string
	err  error
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	return f.resp, f.err
}

func (f *fakeCompleter) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	return f.resp, f.err
}

func multipartBody(t *testing.T, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &body, mw.FormDataContentType()
}

func setupAudio(t *testing.T, backend stt.Backend, completer roles.Completer) (*http.ServeMux, *transcript.Store) {
	dir := t.TempDir()
	cfg := config.Config{HistoryLimit: 10}
	store := transcript.NewStore(filepath.Join(dir, "t.csv"), filepath.Join(dir, "stamp.json"))
	slog := summarylog.New(filepath.Join(dir, "summaries.csv"))
	bus := events.NewBus()
	pipe := pipeline.NewAudioPipeline(backend, roles.NewEngine(completer), store, slog, bus)
	mux := http.NewServeMux()
	NewAudioRouter(cfg, pipe, store, slog, events.NewRecorder(bus)).Register(mux)
	return mux, store
}

func setupScoring(t *testing.T, fake *fakeCompleter) (*http.ServeMux, *transcript.Store) {
	dir := t.TempDir()
	store := transcript.NewStore(filepath.Join(dir, "t.csv"), filepath.Join(dir, "stamp.json"))
	sync := handoff.New(store, 10*time.Millisecond)
	engine := scoring.NewEngine(fake, store, sync, filepath.Join(dir, "scores.json"), 0)
	mux := http.NewServeMux()
	NewScoringRouter(engine, nil).Register(mux)
	return mux, store
}

func TestUploadAudioReturnsSummary(t *testing.T) {
	backend := &fakeSTT{frags: []stt.Fragment{{Text: "Hello."}, {Text: "My order is late."}}}
	completer := &fakeCompleter{resp: "Speaker 00 (Agent): Hello.\nSpeaker 01 (Customer): My order is late.\nSUMMARY: Late order."}
	mux, store := setupAudio(t, backend, completer)

	body, contentType := multipartBody(t, "call.m4a", "fake audio bytes")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "success" || resp["summary"] != "Late order." {
		t.Fatalf("unexpected response: %v", resp)
	}

	written, err := store.Read()
	if err != nil {
		t.Fatal(err)
	}
	if len(written) != 2 {
		t.Fatalf("expected transcript written, got %d turns", len(written))
	}
}

func TestUploadAudioFailureReturnsError(t *testing.T) {
	backend := &fakeSTT{err: errors.New("stt down")}
	mux, _ := setupAudio(t, backend, &fakeCompleter{})

	body, contentType := multipartBody(t, "call.m4a", "fake audio bytes")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}

func TestGetTranscriptEmptyList(t *testing.T) {
	mux, _ := setupAudio(t, &fakeSTT{}, &fakeCompleter{})
	req := httptest.NewRequest(http.MethodGet, "/get-transcript", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rr.Code)
	}
	if got := bytes.TrimSpace(rr.Body.Bytes()); string(got) != "[]" {
		t.Fatalf("expected empty list, got %s", got)
	}
}

func TestGetSummaryNotFound(t *testing.T) {
	mux, _ := setupAudio(t, &fakeSTT{}, &fakeCompleter{})
	req := httptest.NewRequest(http.MethodGet, "/get-summary", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestAnalyzeQualityEmptyTextFileRejected(t *testing.T) {
	fake := &fakeCompleter{resp: `{"empathy":8,"compliance":7,"resolution":9,"reasoning":"ok"}`}
	mux, _ := setupScoring(t, fake)

	body, contentType := multipartBody(t, "chat.txt", "   \n ")
	req := httptest.NewRequest(http.MethodPost, "/analyze-quality", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty upload, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestAnalyzeQualityFailureStillHTTPSuccess(t *testing.T) {
	fake := &fakeCompleter{err: errors.New("model down")}
	mux, _ := setupScoring(t, fake)

	body, contentType := multipartBody(t, "chat.txt", "Agent: hi\nCustomer: order late\n")
	req := httptest.NewRequest(http.MethodPost, "/analyze-quality", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with sentinel payload, got %d", rr.Code)
	}
	var score scoring.QualityScore
	if err := json.Unmarshal(rr.Body.Bytes(), &score); err != nil {
		t.Fatal(err)
	}
	if score.Empathy != 0 || score.Reasoning == "" {
		t.Fatalf("expected zero sentinel with reasoning, got %+v", score)
	}
}

func TestGetQualityScoresNoData(t *testing.T) {
	mux, _ := setupScoring(t, &fakeCompleter{})
	req := httptest.NewRequest(http.MethodGet, "/get-quality-scores", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rr.Code)
	}
	var score scoring.QualityScore
	if err := json.Unmarshal(rr.Body.Bytes(), &score); err != nil {
		t.Fatal(err)
	}
	if score != scoring.NoData() {
		t.Fatalf("expected no-data sentinel, got %+v", score)
	}
}

func TestOpsHealth(t *testing.T) {
	mux, _ := setupAudio(t, &fakeSTT{}, &fakeCompleter{})
	req := httptest.NewRequest(http.MethodGet, "/ops/health", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
}
