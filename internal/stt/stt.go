package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Fragment is one time-stamped piece of transcribed speech.
type Fragment struct {
	Text  string
	Start float64
	End   float64
}

// Backend is a pluggable speech-to-text backend.
type Backend interface {
	Transcribe(ctx context.Context, audioPath string) ([]Fragment, error)
}

// HTTPBackend calls an OpenAI-compatible /v1/audio/transcriptions endpoint.
type HTTPBackend struct {
	baseURL  string
	apiKey   string
	model    string
	language string
	client   *http.Client
}

func NewHTTPBackend(baseURL, apiKey, model, language string) *HTTPBackend {
	return &HTTPBackend{
		baseURL:  baseURL,
		apiKey:   apiKey,
		model:    model,
		language: language,
		client:   &http.Client{Timeout: 10 * time.Minute},
	}
}

type transcriptionResp struct {
	Text     string `json:"text"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func (b *HTTPBackend) Transcribe(ctx context.Context, audioPath string) ([]Fragment, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("model", b.model); err != nil {
		return nil, err
	}
	if b.language != "" {
		if err := mw.WriteField("language", b.language); err != nil {
			return nil, err
		}
	}
	if err := mw.WriteField("response_format", "verbose_json"); err != nil {
		return nil, err
	}
	fw, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	endpoint := strings.TrimRight(b.baseURL, "/") + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+b.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("stt status %d: %s", resp.StatusCode, string(msg))
	}

	var parsed transcriptionResp
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode stt response: %w", err)
	}
	var out []Fragment
	for _, s := range parsed.Segments {
		out = append(out, Fragment{Text: s.Text, Start: s.Start, End: s.End})
	}
	// Some backends only return the flat text field.
	if len(out) == 0 && strings.TrimSpace(parsed.Text) != "" {
		out = append(out, Fragment{Text: parsed.Text})
	}
	return out, nil
}
