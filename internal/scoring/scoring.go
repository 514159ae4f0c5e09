package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"support_pipeline/internal/handoff"
	"support_pipeline/internal/metrics"
	"support_pipeline/internal/transcript"
)

// ErrEmptyInput marks an upload with no scoreable content. It surfaces to the
// caller as a validation failure before any model call; no sentinel is
// persisted for this path.
var ErrEmptyInput = errors.New("uploaded file has no text content")

// QualityScore is the fixed-shape evaluation record. The all-zero form with a
// diagnostic Reasoning is the failure sentinel.
type QualityScore struct {
	Empathy    int    `json:"empathy"`
	Compliance int    `json:"compliance"`
	Resolution int    `json:"resolution"`
	Reasoning  string `json:"reasoning"`
}

// NoData is the sentinel returned before any analysis has run.
func NoData() QualityScore {
	return QualityScore{Reasoning: "No analysis data found. Please upload a file."}
}

const systemPrompt = `Act as a Professional Call Quality Auditor.
Analyze the conversation strictly based on the text provided.
Evaluate and provide integer scores (1-10) for:
1. Empathy: Did the agent show concern and politeness?
2. Compliance: Did the agent follow security/business protocols?
3. Resolution: Was the customer's issue addressed?
Return ONLY a JSON object with exactly these keys:
empathy, compliance, resolution, reasoning.
The reasoning must be a concise explanation based ONLY on the provided text.`

// JSONCompleter is the structured-output model call the engine needs.
type JSONCompleter interface {
	CompleteJSON(ctx context.Context, system, user string) (string, error)
}

// Engine evaluates conversations and persists exactly one live QualityScore.
// Every failure overwrites the previous score with a sentinel so retrieval
// never exposes a stale result after a failed re-analysis.
type Engine struct {
	llm            JSONCompleter
	store          *transcript.Store
	sync           *handoff.Synchronizer
	scoresPath     string
	handoffTimeout time.Duration

	mu sync.Mutex
}

func NewEngine(llm JSONCompleter, store *transcript.Store, sync *handoff.Synchronizer, scoresPath string, handoffTimeout time.Duration) *Engine {
	return &Engine{
		llm:            llm,
		store:          store,
		sync:           sync,
		scoresPath:     scoresPath,
		handoffTimeout: handoffTimeout,
	}
}

// ScoreText evaluates raw uploaded text verbatim.
func (e *Engine) ScoreText(ctx context.Context, text string) (QualityScore, error) {
	if strings.TrimSpace(text) == "" {
		return QualityScore{}, ErrEmptyInput
	}
	return e.analyze(ctx, text, ""), nil
}

// ScoreTranscript evaluates the current transcript store contents for the
// named upload, synchronizing against the store's readiness stamp first.
func (e *Engine) ScoreTranscript(ctx context.Context, fileName string) QualityScore {
	want := handoff.Expect{FileName: fileName, Baseline: e.sync.Baseline()}
	res := e.sync.Wait(ctx, want, e.handoffTimeout)
	if res.Fresh {
		metrics.IncHandoffFresh()
	} else {
		metrics.IncHandoffStale()
	}

	t, err := e.store.Read()
	if err != nil {
		return e.fail("transcript unreadable: " + err.Error())
	}
	if len(t) == 0 {
		return e.fail("transcript not found; ensure the audio service has processed the upload")
	}
	parts := make([]string, 0, len(t))
	for _, turn := range t {
		parts = append(parts, turn.Text)
	}
	staleNote := ""
	if !res.Fresh {
		staleNote = "[possibly stale transcript: no fresh handoff signal before timeout] "
	}
	return e.analyze(ctx, strings.Join(parts, " "), staleNote)
}

func (e *Engine) analyze(ctx context.Context, text, notePrefix string) QualityScore {
	user := "CONVERSATION TEXT:\n" + text
	out, err := e.llm.CompleteJSON(ctx, systemPrompt, user)
	if err != nil {
		metrics.IncScoreFailed()
		return e.fail("analysis failed: " + err.Error())
	}
	score, err := parseScore(out)
	if err != nil {
		metrics.IncScoreFailed()
		return e.fail("analysis failed: malformed model response: " + err.Error())
	}
	score.Reasoning = notePrefix + score.Reasoning
	metrics.IncScoreComputed()
	e.persist(score)
	return score
}

// fail persists and returns the zero sentinel; scoring never surfaces an
// error status to HTTP callers.
func (e *Engine) fail(reason string) QualityScore {
	s := QualityScore{Reasoning: reason}
	e.persist(s)
	return s
}

func (e *Engine) persist(s QualityScore) {
	e.mu.Lock()
	defer e.mu.Unlock()
	buf, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		log.Printf("scoring: marshal scores: %v", err)
		return
	}
	if err := transcript.WriteAtomic(e.scoresPath, buf); err != nil {
		log.Printf("scoring: persist scores: %v", err)
	}
}

// Scores returns the last persisted QualityScore, or the no-data sentinel.
func (e *Engine) Scores() QualityScore {
	e.mu.Lock()
	defer e.mu.Unlock()
	buf, err := os.ReadFile(e.scoresPath)
	if err != nil {
		return NoData()
	}
	var s QualityScore
	if err := json.Unmarshal(buf, &s); err != nil {
		return QualityScore{Reasoning: fmt.Sprintf("stored scores unreadable: %v", err)}
	}
	return s
}
