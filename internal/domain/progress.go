package domain

// SequenceProgress is the saved state of one sequence.
type SequenceProgress struct {
	Answers   map[string]string `json:"answers"`
	Scores    map[string]int    `json:"scores"`
	Completed bool              `json:"completed"`
	Cursor    int               `json:"currentQuestion"`
}

// NewSequenceProgress returns an empty entry.
func NewSequenceProgress() *SequenceProgress {
	return &SequenceProgress{
		Answers: make(map[string]string),
		Scores:  make(map[string]int),
	}
}

// AnsweredCount is the number of recorded answers.
func (p *SequenceProgress) AnsweredCount() int {
	if p == nil {
		return 0
	}
	return len(p.Answers)
}

// Record stores code for questionID, replacing any earlier choice so a question is never
// counted twice.
func (p *SequenceProgress) Record(questionID, code string) {
	if prev, ok := p.Answers[questionID]; ok {
		p.Scores[prev]--
		if p.Scores[prev] <= 0 {
			delete(p.Scores, prev)
		}
	}
	p.Answers[questionID] = code
	p.Scores[code]++
}

// Progress is the locally persisted state of a quiz, keyed by sequence ID.
type Progress struct {
	Sequences map[string]*SequenceProgress `json:"sequences"`
}

// NewProgress returns progress with an empty entry per sequence of quiz.
func NewProgress(quiz Quiz) *Progress {
	p := &Progress{Sequences: make(map[string]*SequenceProgress, len(quiz.Sequences))}
	for _, seq := range quiz.Sequences {
		p.Sequences[seq.ID] = NewSequenceProgress()
	}
	return p
}

// Sequence returns the entry for id, creating it when missing.
func (p *Progress) Sequence(id string) *SequenceProgress {
	if p.Sequences == nil {
		p.Sequences = make(map[string]*SequenceProgress)
	}
	entry, ok := p.Sequences[id]
	if !ok || entry == nil {
		entry = NewSequenceProgress()
		p.Sequences[id] = entry
	}
	if entry.Answers == nil {
		entry.Answers = make(map[string]string)
	}
	if entry.Scores == nil {
		entry.Scores = make(map[string]int)
	}
	return entry
}

// AnsweredCount sums recorded answers across sequences.
func (p *Progress) AnsweredCount() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, entry := range p.Sequences {
		n += entry.AnsweredCount()
	}
	return n
}

// TotalScores sums per-code scores across every sequence.
func (p *Progress) TotalScores() map[string]int {
	totals := make(map[string]int)
	if p == nil {
		return totals
	}
	for _, entry := range p.Sequences {
		if entry == nil {
			continue
		}
		for code, n := range entry.Scores {
			totals[code] += n
		}
	}
	return totals
}

// AllAnswers flattens answers across sequences, keyed by question ID.
func (p *Progress) AllAnswers() map[string]string {
	all := make(map[string]string)
	if p == nil {
		return all
	}
	for _, entry := range p.Sequences {
		if entry == nil {
			continue
		}
		for q, code := range entry.Answers {
			all[q] = code
		}
	}
	return all
}

// Completion records that every sequence of a quiz was finished.
type Completion struct {
	Dominant string `json:"dominant"`
}
