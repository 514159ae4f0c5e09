package httpapi

import (
	"encoding/json"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"support_pipeline/internal/events"
	"support_pipeline/internal/metrics"
)

const maxUploadBytes = 64 << 20

func respondJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write json: %v", err)
	}
}

// WithCORS allows the browser frontend to reach the service from another
// origin.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, req)
	})
}

// formUpload opens the multipart "file" field.
func formUpload(req *http.Request) (multipart.File, string, error) {
	if err := req.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, "", err
	}
	f, hdr, err := req.FormFile("file")
	if err != nil {
		return nil, "", err
	}
	return f, filepath.Base(hdr.Filename), nil
}

// saveUpload spools the multipart file to a temp path. The caller removes it
// on every exit path.
func saveUpload(f multipart.File, fileName string) (string, error) {
	tmp, err := os.CreateTemp("", "upload-*"+filepath.Ext(fileName))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, f); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// opsHandlers serves the shared observability endpoints.
type opsHandlers struct {
	recorder *events.Recorder
}

func (o *opsHandlers) register(mux *http.ServeMux) {
	mux.HandleFunc("/ops/status", o.status)
	mux.HandleFunc("/ops/health", o.health)
}

func (o *opsHandlers) status(w http.ResponseWriter, req *http.Request) {
	payload := map[string]any{"metrics": metrics.Snapshot()}
	if o.recorder != nil {
		payload["recent"] = o.recorder.Recent()
	}
	respondJSON(w, payload)
}

func (o *opsHandlers) health(w http.ResponseWriter, req *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
