package turns

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"support_pipeline/internal/stt"
)

// UnknownSpeaker labels chat lines that carry no speaker prefix.
const UnknownSpeaker = "UNKNOWN"

// RawTurn is one unlabeled utterance. Position is strictly increasing within
// an upload but may have gaps where empty fragments were dropped.
type RawTurn struct {
	Position int
	Text     string
}

// LabeledTurn is one speaker-attributed utterance.
type LabeledTurn struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// FromFragments converts speech-to-text output into raw turns. Fragments that
// trim to empty are dropped; the remaining turns keep their original index.
func FromFragments(frags []stt.Fragment) []RawTurn {
	var out []RawTurn
	for i, f := range frags {
		text := strings.TrimSpace(f.Text)
		if text == "" {
			continue
		}
		out = append(out, RawTurn{Position: i, Text: text})
	}
	return out
}

// SpeakerMap assigns synthetic speaker ids in first-seen order, local to one
// upload.
type SpeakerMap struct {
	ids map[string]string
}

func NewSpeakerMap() *SpeakerMap {
	return &SpeakerMap{ids: make(map[string]string)}
}

// Assign returns the synthetic id for token, creating SPEAKER_00, SPEAKER_01,
// ... as new tokens appear.
func (m *SpeakerMap) Assign(token string) string {
	if id, ok := m.ids[token]; ok {
		return id
	}
	id := fmt.Sprintf("SPEAKER_%02d", len(m.ids))
	m.ids[token] = id
	return id
}

// ChatDocument is the result of parsing a line-delimited chat upload.
type ChatDocument struct {
	Turns []LabeledTurn
	// Text is the joined utterance text, used for summarization and scoring.
	Text string
}

// ParseChat reads line-delimited chat text. Lines shaped like "label: text"
// get a synthetic speaker id; lines without a separator keep the unknown
// speaker label. A line that is only a separator still yields an
// empty-text turn.
func ParseChat(r io.Reader) (ChatDocument, error) {
	var doc ChatDocument
	var full strings.Builder
	speakers := NewSpeakerMap()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var turn LabeledTurn
		if before, after, ok := strings.Cut(line, ":"); ok {
			token := strings.TrimSpace(before)
			turn = LabeledTurn{Speaker: speakers.Assign(token), Text: strings.TrimSpace(after)}
		} else {
			turn = LabeledTurn{Speaker: UnknownSpeaker, Text: line}
		}
		doc.Turns = append(doc.Turns, turn)
		if turn.Text != "" {
			full.WriteString(" ")
			full.WriteString(turn.Text)
		}
	}
	if err := scanner.Err(); err != nil {
		return ChatDocument{}, err
	}
	doc.Text = strings.TrimSpace(full.String())
	return doc, nil
}
