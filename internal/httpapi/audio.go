package httpapi

import (
	"errors"
	"log"
	"net/http"
	"os"

	"support_pipeline/internal/config"
	"support_pipeline/internal/events"
	"support_pipeline/internal/pipeline"
	"support_pipeline/internal/summarylog"
	"support_pipeline/internal/transcript"
	"support_pipeline/internal/turns"
)

// AudioRouter serves the audio upload pipeline endpoints.
type AudioRouter struct {
	cfg   config.Config
	pipe  *pipeline.AudioPipeline
	store *transcript.Store
	log   *summarylog.Log
	ops   opsHandlers
}

func NewAudioRouter(cfg config.Config, pipe *pipeline.AudioPipeline, store *transcript.Store, slog *summarylog.Log, rec *events.Recorder) *AudioRouter {
	return &AudioRouter{cfg: cfg, pipe: pipe, store: store, log: slog, ops: opsHandlers{recorder: rec}}
}

func (r *AudioRouter) Register(mux *http.ServeMux) {
	mux.HandleFunc("/upload", r.upload)
	mux.HandleFunc("/get-transcript", r.transcript)
	mux.HandleFunc("/get-summary", r.summary)
	mux.HandleFunc("/history", r.history)
	r.ops.register(mux)
}

func (r *AudioRouter) upload(w http.ResponseWriter, req *http.Request) {
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

	tmpPath, err := saveUpload(f, fileName)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer os.Remove(tmpPath)

	summary, err := r.pipe.Process(req.Context(), tmpPath, fileName)
	if err != nil {
		if errors.Is(err, pipeline.ErrEmptyUpload) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("audio upload %s: %v", fileName, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, map[string]string{"status": "success", "summary": summary})
}

func (r *AudioRouter) transcript(w http.ResponseWriter, req *http.Request) {
	t, err := r.store.Read()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if t == nil {
		t = []turns.LabeledTurn{}
	}
	respondJSON(w, t)
}

func (r *AudioRouter) summary(w http.ResponseWriter, req *http.Request) {
	rec, ok, err := r.log.Latest()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "Summary not found", http.StatusNotFound)
		return
	}
	respondJSON(w, map[string]string{"summary": rec.Summary})
}

func (r *AudioRouter) history(w http.ResponseWriter, req *http.Request) {
	recs, err := r.log.Recent(r.cfg.HistoryLimit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []summarylog.Record{}
	}
	respondJSON(w, recs)
}
