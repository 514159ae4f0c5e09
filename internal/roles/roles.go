package roles

import (
	"context"
	"fmt"
	"strings"

	"support_pipeline/internal/turns"
)

// PlaceholderSummary is returned when the model output carries no SUMMARY line.
const PlaceholderSummary = "No summary generated."

const systemPrompt = `You are analyzing a customer support call transcript.
1. Identify who is the Agent and who is the Customer.
2. Label each line properly.
3. Do NOT alternate automatically.
4. Agent is the person answering the phone and helping.

Return strictly in this format:
Speaker 00 (Agent): text
Speaker 01 (Customer): text
...
SUMMARY: One sentence summary.`

// Completer is the single model call the engine needs.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Engine assigns speaker roles and derives a one-line summary via the model.
type Engine struct {
	llm Completer
}

func NewEngine(c Completer) *Engine {
	return &Engine{llm: c}
}

// Label sends the raw turns to the model and parses its labeled output.
// Transport errors propagate unmodified; the engine never retries.
func (e *Engine) Label(ctx context.Context, raw []turns.RawTurn) ([]turns.LabeledTurn, string, error) {
	resp, err := e.llm.Complete(ctx, systemPrompt, buildPrompt(raw))
	if err != nil {
		return nil, "", err
	}
	labeled, summary := parseResponse(resp)
	return labeled, summary, nil
}

// buildPrompt tags every turn with its position so the model can infer
// turn-taking without being told the count.
func buildPrompt(raw []turns.RawTurn) string {
	var b strings.Builder
	for i, t := range raw {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Line %d: %s", t.Position, t.Text)
	}
	return b.String()
}

// parseResponse scans model output line by line. A SUMMARY: line sets the
// summary (last one wins), any other line containing a separator becomes a
// labeled turn, and everything else is dropped. Partial, well-formed output
// beats failing the whole request.
func parseResponse(resp string) ([]turns.LabeledTurn, string) {
	var labeled []turns.LabeledTurn
	summary := PlaceholderSummary

	for _, line := range strings.Split(strings.TrimSpace(resp), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "SUMMARY:") {
			summary = strings.TrimSpace(strings.TrimPrefix(line, "SUMMARY:"))
			continue
		}
		if speaker, text, ok := strings.Cut(line, ":"); ok {
			labeled = append(labeled, turns.LabeledTurn{
				Speaker: strings.TrimSpace(speaker),
				Text:    strings.TrimSpace(text),
			})
		}
	}
	return labeled, summary
}
