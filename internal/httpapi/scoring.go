package httpapi

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"support_pipeline/internal/events"
	"support_pipeline/internal/scoring"
)

// ScoringRouter serves the quality scoring endpoints. Analysis always
// answers with a score payload; internal failures surface as the sentinel
// record, never as an error status.
type ScoringRouter struct {
	engine *scoring.Engine
	ops    opsHandlers
}

func NewScoringRouter(engine *scoring.Engine, rec *events.Recorder) *ScoringRouter {
	return &ScoringRouter{engine: engine, ops: opsHandlers{recorder: rec}}
}

func (r *ScoringRouter) Register(mux *http.ServeMux) {
	mux.HandleFunc("/analyze-quality", r.analyze)
	mux.HandleFunc("/get-quality-scores", r.scores)
	r.ops.register(mux)
}

func (r *ScoringRouter) analyze(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	f, fileName, err := formUpload(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer f.Close()

	// Text uploads are scored verbatim; anything else is assumed to be the
	// audio recording whose transcript the audio service produces.
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), ".")) {
	case "txt", "csv":
		content, err := io.ReadAll(f)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		score, err := r.engine.ScoreText(req.Context(), string(content))
		if err != nil {
			if errors.Is(err, scoring.ErrEmptyInput) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		respondJSON(w, score)
	default:
		respondJSON(w, r.engine.ScoreTranscript(req.Context(), fileName))
	}
}

func (r *ScoringRouter) scores(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, r.engine.Scores())
}
