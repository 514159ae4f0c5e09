package httpapi

import (
	"errors"
	"log"
	"net/http"

	"support_pipeline/internal/config"
	"support_pipeline/internal/events"
	"support_pipeline/internal/pipeline"
	"support_pipeline/internal/summarylog"
	"support_pipeline/internal/transcript"
	"support_pipeline/internal/turns"
)

// ChatRouter serves the text-chat upload pipeline endpoints.
type ChatRouter struct {
	cfg   config.Config
	pipe  *pipeline.ChatPipeline
	store *transcript.Store
	log   *summarylog.Log
	ops   opsHandlers
}

func NewChatRouter(cfg config.Config, pipe *pipeline.ChatPipeline, store *transcript.Store, slog *summarylog.Log, rec *events.Recorder) *ChatRouter {
	return &ChatRouter{cfg: cfg, pipe: pipe, store: store, log: slog, ops: opsHandlers{recorder: rec}}
}

func (r *ChatRouter) Register(mux *http.ServeMux) {
	mux.HandleFunc("/upload-text", r.upload)
	mux.HandleFunc("/get-text-transcript", r.transcript)
	mux.HandleFunc("/get-text-summary", r.summary)
	mux.HandleFunc("/history", r.history)
	r.ops.register(mux)
}

func (r *ChatRouter) upload(w http.ResponseWriter, req *http.Request) {
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

	summary, err := r.pipe.Process(req.Context(), f, fileName)
	if err != nil {
		if errors.Is(err, pipeline.ErrEmptyUpload) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("chat upload %s: %v", fileName, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, map[string]string{"status": "success", "summary": summary})
}

func (r *ChatRouter) transcript(w http.ResponseWriter, req *http.Request) {
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

func (r *ChatRouter) summary(w http.ResponseWriter, req *http.Request) {
	rec, ok, err := r.log.Latest()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		respondJSON(w, map[string]string{"summary": "No summary available."})
		return
	}
	respondJSON(w, map[string]string{"summary": rec.Summary})
}

func (r *ChatRouter) history(w http.ResponseWriter, req *http.Request) {
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
