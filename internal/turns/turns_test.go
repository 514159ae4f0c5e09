package turns

import (
	"strings"
	"testing"

	"support_pipeline/internal/stt"
)

func TestFromFragmentsDropsEmptyKeepsPositions(t *testing.T) {
	frags := []stt.Fragment{
		{Text: " Hello there. "},
		{Text: "   "},
		{Text: "My order is late."},
	}
	got := FromFragments(frags)
	if len(got) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(got))
	}
	if got[0].Position != 0 || got[0].Text != "Hello there." {
		t.Fatalf("unexpected first turn: %+v", got[0])
	}
	if got[1].Position != 2 {
		t.Fatalf("expected position gap preserved, got %d", got[1].Position)
	}
}

func TestSpeakerMapFirstSeenWins(t *testing.T) {
	m := NewSpeakerMap()
	if id := m.Assign("Agent"); id != "SPEAKER_00" {
		t.Fatalf("expected SPEAKER_00, got %s", id)
	}
	if id := m.Assign("Customer"); id != "SPEAKER_01" {
		t.Fatalf("expected SPEAKER_01, got %s", id)
	}
	if id := m.Assign("Agent"); id != "SPEAKER_00" {
		t.Fatalf("expected stable id for repeated token, got %s", id)
	}
}

func TestParseChatAssignsSyntheticSpeakers(t *testing.T) {
	doc, err := ParseChat(strings.NewReader("Agent: Hello, how can I help?\nCustomer: My order is late.\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(doc.Turns))
	}
	want := []LabeledTurn{
		{Speaker: "SPEAKER_00", Text: "Hello, how can I help?"},
		{Speaker: "SPEAKER_01", Text: "My order is late."},
	}
	for i, w := range want {
		if doc.Turns[i] != w {
			t.Fatalf("turn %d: expected %+v, got %+v", i, w, doc.Turns[i])
		}
	}
	if doc.Text != "Hello, how can I help? My order is late." {
		t.Fatalf("unexpected joined text: %q", doc.Text)
	}
}

func TestParseChatNoSeparatorFallback(t *testing.T) {
	doc, err := ParseChat(strings.NewReader("just some words\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Turns) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(doc.Turns))
	}
	if doc.Turns[0].Speaker != UnknownSpeaker {
		t.Fatalf("expected %s, got %s", UnknownSpeaker, doc.Turns[0].Speaker)
	}
}

func TestParseChatSeparatorOnlyLineStillEmitted(t *testing.T) {
	doc, err := ParseChat(strings.NewReader("Agent:\nAgent: hi\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Turns) != 2 {
		t.Fatalf("expected separator-only line to be kept, got %d turns", len(doc.Turns))
	}
	if doc.Turns[0].Text != "" {
		t.Fatalf("expected empty text turn, got %q", doc.Turns[0].Text)
	}
	if doc.Turns[0].Speaker != doc.Turns[1].Speaker {
		t.Fatalf("expected same speaker id for repeated token")
	}
}

func TestParseChatSkipsBlankLines(t *testing.T) {
	doc, err := ParseChat(strings.NewReader("\n\nA: one\n\nB: two\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(doc.Turns))
	}
}
