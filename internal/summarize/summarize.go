package summarize

import (
	"context"
	"fmt"
	"strings"
	"time"

	"support_pipeline/internal/llm"
)

const systemPrompt = "You are a professional call analyst. " +
	"Provide ONLY a short final conclusion in 1-2 sentences. " +
	"No bullet points. No formatting."

// maxPromptBytes caps the conversation text sent to the model.
const maxPromptBytes = 4000

// Completer is the single model call the summarizer needs.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Summarizer produces a short free-text conclusion for a conversation.
// Transient backend failures are retried with exponential backoff up to
// maxRetries; everything else surfaces immediately.
type Summarizer struct {
	llm        Completer
	maxRetries int
	baseDelay  time.Duration
}

func New(c Completer, maxRetries int, baseDelay time.Duration) *Summarizer {
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &Summarizer{llm: c, maxRetries: maxRetries, baseDelay: baseDelay}
}

func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	if len(text) > maxPromptBytes {
		text = text[:maxPromptBytes]
	}
	user := "Transcript:\n" + text

	var lastErr error
	delay := s.baseDelay
	for attempt := 0; ; attempt++ {
		out, err := s.llm.Complete(ctx, systemPrompt, user)
		if err == nil {
			return strings.TrimSpace(out), nil
		}
		if !llm.IsTransient(err) {
			return "", err
		}
		lastErr = err
		if attempt >= s.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return "", fmt.Errorf("summary backend unavailable after %d retries: %w", s.maxRetries, lastErr)
}
