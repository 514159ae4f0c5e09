package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"

	"support_pipeline/internal/config"
	"support_pipeline/internal/events"
	"support_pipeline/internal/handoff"
	"support_pipeline/internal/httpapi"
	"support_pipeline/internal/llm"
	"support_pipeline/internal/pipeline"
	"support_pipeline/internal/roles"
	"support_pipeline/internal/scoring"
	"support_pipeline/internal/stt"
	"support_pipeline/internal/summarize"
	"support_pipeline/internal/summarylog"
	"support_pipeline/internal/transcript"
)

// App wires one of the three pipeline services together.
type App struct {
	name string
	port string
	mux  *http.ServeMux
}

// NewAudio builds the audio transcription service (upload → roles →
// transcript store + summary log).
func NewAudio(cfg config.Config) (*App, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}
	bus := events.NewBus()
	recorder := events.NewRecorder(bus)
	store := transcript.NewStore(cfg.TranscriptPath, cfg.StampPath)
	slog := summarylog.New(cfg.SummaryLogPath)
	client := llm.New(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTemperature)
	backend := stt.NewHTTPBackend(cfg.STTBaseURL, cfg.STTAPIKey, cfg.STTModel, cfg.STTLanguage)
	pipe := pipeline.NewAudioPipeline(backend, roles.NewEngine(client), store, slog, bus)

	mux := http.NewServeMux()
	httpapi.NewAudioRouter(cfg, pipe, store, slog, recorder).Register(mux)
	return &App{name: "audio", port: cfg.AudioPort, mux: mux}, nil
}

// NewChat builds the text-chat ingestion service.
func NewChat(cfg config.Config) (*App, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}
	bus := events.NewBus()
	recorder := events.NewRecorder(bus)
	store := transcript.NewStore(cfg.ChatTranscriptPath, "")
	slog := summarylog.New(cfg.ChatSummaryLogPath)
	client := llm.New(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTemperature)
	summarizer := summarize.New(client, cfg.MaxRetries, cfg.RetryBaseDelay)
	pipe := pipeline.NewChatPipeline(summarizer, store, slog, bus)

	mux := http.NewServeMux()
	httpapi.NewChatRouter(cfg, pipe, store, slog, recorder).Register(mux)
	return &App{name: "chat", port: cfg.ChatPort, mux: mux}, nil
}

// NewScoring builds the quality scoring service. It reads the transcript
// store written by the audio service and synchronizes on its stamp.
func NewScoring(cfg config.Config) (*App, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}
	bus := events.NewBus()
	recorder := events.NewRecorder(bus)
	store := transcript.NewStore(cfg.TranscriptPath, cfg.StampPath)
	sync := handoff.New(store, cfg.HandoffPoll)
	client := llm.New(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTemperature)
	engine := scoring.NewEngine(client, store, sync, cfg.ScoresPath, cfg.HandoffTimeout)

	mux := http.NewServeMux()
	httpapi.NewScoringRouter(engine, recorder).Register(mux)
	return &App{name: "scoring", port: cfg.ScoringPort, mux: mux}, nil
}

// Run starts the HTTP server and shuts it down when ctx ends.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{Addr: ":" + a.port, Handler: httpapi.WithCORS(a.mux)}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	log.Printf("%s service listening on %s", a.name, a.port)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Mux exposes the handler for tests.
func (a *App) Mux() *http.ServeMux { return a.mux }
