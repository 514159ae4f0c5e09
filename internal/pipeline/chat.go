package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"support_pipeline/internal/events"
	"support_pipeline/internal/metrics"
	"support_pipeline/internal/summarize"
	"support_pipeline/internal/summarylog"
	"support_pipeline/internal/transcript"
	"support_pipeline/internal/turns"
)

const chatTimestampLayout = "2006-01-02 15:04:05"

// ChatPipeline handles one text-chat upload: line parsing with synthetic
// speaker ids, transcript store overwrite, free-text summary, summary log
// append. Role inference is bypassed on this path.
type ChatPipeline struct {
	summarizer *summarize.Summarizer
	store      *transcript.Store
	log        *summarylog.Log
	bus        *events.Bus
}

func NewChatPipeline(s *summarize.Summarizer, store *transcript.Store, log *summarylog.Log, bus *events.Bus) *ChatPipeline {
	return &ChatPipeline{summarizer: s, store: store, log: log, bus: bus}
}

func (p *ChatPipeline) Process(ctx context.Context, r io.Reader, fileName string) (string, error) {
	doc, err := turns.ParseChat(r)
	if err != nil {
		metrics.IncUploadFailed()
		return "", fmt.Errorf("parse chat %s: %w", fileName, err)
	}
	if len(doc.Turns) == 0 {
		metrics.IncUploadFailed()
		return "", ErrEmptyUpload
	}

	meta := transcript.WriteMeta{UploadID: uuid.NewString(), FileName: fileName}
	if err := p.store.Write(doc.Turns, meta); err != nil {
		metrics.IncUploadFailed()
		return "", err
	}

	summary, err := p.summarizer.Summarize(ctx, doc.Text)
	if err != nil {
		metrics.IncUploadFailed()
		return "", fmt.Errorf("summarize %s: %w", fileName, err)
	}
	rec := summarylog.Record{
		FileName:  fileName,
		Timestamp: time.Now().Format(chatTimestampLayout),
		Summary:   summary,
	}
	if err := p.log.Append(rec); err != nil {
		metrics.IncUploadFailed()
		return "", err
	}

	metrics.IncUploadSucceeded()
	p.bus.Publish(events.Event{Kind: "chat_upload", File: fileName, Detail: summary})
	return summary, nil
}
