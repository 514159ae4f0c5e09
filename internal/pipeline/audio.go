package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"support_pipeline/internal/events"
	"support_pipeline/internal/metrics"
	"support_pipeline/internal/roles"
	"support_pipeline/internal/stt"
	"support_pipeline/internal/summarylog"
	"support_pipeline/internal/transcript"
	"support_pipeline/internal/turns"
)

// ErrEmptyUpload marks an upload that produced no usable turns. Nothing is
// written for such an upload.
var ErrEmptyUpload = errors.New("upload contains no usable content")

// audio summary timestamps use clock-time display, matching the history view.
const audioTimestampLayout = "3:04 PM"

// AudioPipeline handles one audio upload end to end: transcription, role
// assignment, transcript store overwrite, summary log append. One sequential
// instance per upload, no queuing.
type AudioPipeline struct {
	stt   stt.Backend
	roles *roles.Engine
	store *transcript.Store
	log   *summarylog.Log
	bus   *events.Bus
}

func NewAudioPipeline(backend stt.Backend, engine *roles.Engine, store *transcript.Store, log *summarylog.Log, bus *events.Bus) *AudioPipeline {
	return &AudioPipeline{stt: backend, roles: engine, store: store, log: log, bus: bus}
}

// Process transcribes the uploaded audio file and persists the labeled
// transcript and its summary. A role-assignment failure leaves the stores
// untouched.
func (p *AudioPipeline) Process(ctx context.Context, audioPath, fileName string) (string, error) {
	frags, err := p.stt.Transcribe(ctx, audioPath)
	if err != nil {
		metrics.IncUploadFailed()
		return "", fmt.Errorf("transcribe %s: %w", fileName, err)
	}
	raw := turns.FromFragments(frags)
	if len(raw) == 0 {
		metrics.IncUploadFailed()
		return "", ErrEmptyUpload
	}

	labeled, summary, err := p.roles.Label(ctx, raw)
	if err != nil {
		metrics.IncUploadFailed()
		return "", fmt.Errorf("assign roles for %s: %w", fileName, err)
	}

	meta := transcript.WriteMeta{UploadID: uuid.NewString(), FileName: fileName}
	if err := p.store.Write(labeled, meta); err != nil {
		metrics.IncUploadFailed()
		return "", err
	}
	rec := summarylog.Record{
		FileName:  fileName,
		Timestamp: time.Now().Format(audioTimestampLayout),
		Summary:   summary,
	}
	if err := p.log.Append(rec); err != nil {
		metrics.IncUploadFailed()
		return "", err
	}

	metrics.IncUploadSucceeded()
	p.bus.Publish(events.Event{Kind: "audio_upload", File: fileName, Detail: summary})
	return summary, nil
}
