package domain

import "testing"

func TestRecordReplacesPreviousChoice(t *testing.T) {
	p := NewSequenceProgress()
	p.Record("q1", "A")
	p.Record("q2", "B")
	p.Record("q1", "B")

	if p.Scores["B"] != 2 {
		t.Fatalf("expected B=2, got %d", p.Scores["B"])
	}
	if _, ok := p.Scores["A"]; ok {
		t.Fatalf("expected A removed, got %v", p.Scores)
	}
	if p.AnsweredCount() != 2 {
		t.Fatalf("expected 2 answers, got %d", p.AnsweredCount())
	}
}

func TestProgressTotals(t *testing.T) {
	quiz := Quiz{Sequences: []Sequence{{ID: "s1"}, {ID: "s2"}}}
	p := NewProgress(quiz)
	p.Sequence("s1").Record("q1", "A")
	p.Sequence("s2").Record("q2", "A")
	p.Sequence("s2").Record("q3", "C")

	totals := p.TotalScores()
	if totals["A"] != 2 || totals["C"] != 1 {
		t.Fatalf("unexpected totals %v", totals)
	}
	if p.AnsweredCount() != 3 {
		t.Fatalf("expected 3 answers, got %d", p.AnsweredCount())
	}
	if len(p.AllAnswers()) != 3 {
		t.Fatalf("expected 3 flattened answers, got %v", p.AllAnswers())
	}
}

func TestSequenceFillsNilMaps(t *testing.T) {
	p := &Progress{Sequences: map[string]*SequenceProgress{"s1": {Completed: true}}}
	entry := p.Sequence("s1")
	if entry.Answers == nil || entry.Scores == nil {
		t.Fatalf("expected maps initialised")
	}
	if !entry.Completed {
		t.Fatalf("expected existing entry kept")
	}
}

func TestResolveProfileFallbacks(t *testing.T) {
	quiz := Quiz{Profiles: []Profile{{Code: "A", Title: "Mon titre"}}}

	if got := ResolveProfile(quiz, "A"); got.Name != "Mon titre" {
		t.Fatalf("expected configured title as name, got %q", got.Name)
	}
	if got := ResolveProfile(quiz, "B"); got.Name != "Prudence / Contrôle" {
		t.Fatalf("expected built-in B, got %q", got.Name)
	}
	if got := ResolveProfile(quiz, "E"); got.Name != "Profil E" || got.Emoji != "🎯" {
		t.Fatalf("expected placeholder, got %+v", got)
	}
}
