package app

import (
	"fmt"
	"math"

	"op-quiz-engine/internal/domain"
)

// View is the render model of the current screen. Only the block matching Screen is set.
type View struct {
	Screen    Screen       `json:"screen"`
	SessionID string       `json:"sessionId"`
	Actions   []ActionKind `json:"actions"`
	Error     string       `json:"error,omitempty"`

	Quiz       *QuizInfo          `json:"quiz,omitempty"`
	Intro      *IntroView         `json:"intro,omitempty"`
	Summary    *SummaryView       `json:"summary,omitempty"`
	Sequence   *SequenceInfo      `json:"sequence,omitempty"`
	Question   *QuestionView      `json:"question,omitempty"`
	Insight    string             `json:"insight,omitempty"`
	Bilan      *SequenceBilan     `json:"bilan,omitempty"`
	Conclusion *domain.Conclusion `json:"conclusion,omitempty"`
	Result     *FinalResult       `json:"result,omitempty"`
}

// QuizInfo is the metadata shown around every screen.
type QuizInfo struct {
	ID              string   `json:"id"`
	Slug            string   `json:"slug"`
	Title           string   `json:"title"`
	Subtitle        string   `json:"subtitle,omitempty"`
	Description     string   `json:"description,omitempty"`
	Duration        string   `json:"duration"`
	CoverImage      string   `json:"coverImage,omitempty"`
	IntroStat       string   `json:"introStat,omitempty"`
	IntroStatSource string   `json:"introStatSource,omitempty"`
	Benefits        []string `json:"benefits,omitempty"`
	QuestionCount   int      `json:"questionCount"`
	SequenceCount   int      `json:"sequenceCount"`
	CollectEmail    bool     `json:"collectEmail"`
	ShowProgress    bool     `json:"showProgress"`
}

// IntroView tells the intro screen whether to offer resuming.
type IntroView struct {
	CanResume        bool   `json:"canResume"`
	AnsweredCount    int    `json:"answeredCount"`
	PreviousDominant string `json:"previousDominant,omitempty"`
}

// SummaryView is the hub listing every sequence.
type SummaryView struct {
	Cards         []SequenceCard `json:"cards"`
	AllCompleted  bool           `json:"allCompleted"`
	AnsweredCount int            `json:"answeredCount"`
	QuestionCount int            `json:"questionCount"`
	Progress      int            `json:"progress"`
}

// SequenceCard is one row of the summary.
type SequenceCard struct {
	Index         int            `json:"index"`
	ID            string         `json:"id"`
	Numero        int            `json:"numero"`
	Title         string         `json:"title"`
	Description   string         `json:"description,omitempty"`
	Status        SequenceStatus `json:"status"`
	ActionLabel   string         `json:"actionLabel"`
	Answered      int            `json:"answered"`
	QuestionCount int            `json:"questionCount"`
	Dominant      *ScoreEntry    `json:"dominant,omitempty"`
}

// SequenceInfo describes the sequence being played.
type SequenceInfo struct {
	Index         int    `json:"index"`
	ID            string `json:"id"`
	Numero        int    `json:"numero"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	Context       string `json:"context,omitempty"`
	StatText      string `json:"statText,omitempty"`
	StatSource    string `json:"statSource,omitempty"`
	QuestionCount int    `json:"questionCount"`
	Empty         bool   `json:"empty"`
	IsLast        bool   `json:"isLast"`
}

// QuestionView is the question being answered.
type QuestionView struct {
	ID       string       `json:"id"`
	Numero   int          `json:"numero"`
	Prompt   string       `json:"prompt"`
	Index    int          `json:"index"`
	Total    int          `json:"total"`
	Progress int          `json:"progress"`
	Answers  []AnswerView `json:"answers"`
	Selected string       `json:"selected,omitempty"`
}

// AnswerView is one choice of a question.
type AnswerView struct {
	Code  string `json:"code"`
	Text  string `json:"text"`
	Label string `json:"label,omitempty"`
}

// View returns the current render model.
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewLocked()
}

func (e *Engine) viewLocked() View {
	v := View{
		Screen:    e.screen,
		SessionID: e.sessionID,
		Actions:   e.actionsLocked(),
	}
	switch e.screen {
	case ScreenLoading:
		return v
	case ScreenError:
		v.Error = e.failure
		return v
	}

	v.Quiz = e.quizInfoLocked()
	switch e.screen {
	case ScreenIntro:
		n := e.progress.AnsweredCount()
		v.Intro = &IntroView{CanResume: n > 0, AnsweredCount: n, PreviousDominant: e.previous}
	case ScreenSummary:
		v.Summary = e.summaryLocked()
	case ScreenSequenceIntro:
		v.Sequence = e.sequenceInfoLocked()
	case ScreenQuestion, ScreenInsight:
		v.Sequence = e.sequenceInfoLocked()
		v.Question = e.questionLocked()
		v.Insight = e.insight
	case ScreenBilan:
		v.Sequence = e.sequenceInfoLocked()
		v.Bilan = e.bilan
	case ScreenConclusion:
		c := e.quiz.Conclusion
		v.Conclusion = &c
	case ScreenResult:
		v.Result = e.result
	}
	return v
}

func (e *Engine) quizInfoLocked() *QuizInfo {
	q := e.quiz
	duration := q.Duration
	if duration == "" {
		duration = fmt.Sprintf("%d min", int(math.Ceil(float64(q.QuestionCount())*0.5)))
	}
	return &QuizInfo{
		ID:              q.ID,
		Slug:            q.Slug,
		Title:           q.Title,
		Subtitle:        q.Subtitle,
		Description:     q.Description,
		Duration:        duration,
		CoverImage:      q.CoverImage,
		IntroStat:       q.IntroStat,
		IntroStatSource: q.IntroStatSource,
		Benefits:        q.Benefits,
		QuestionCount:   q.QuestionCount(),
		SequenceCount:   len(q.Sequences),
		CollectEmail:    q.CollectEmail,
		ShowProgress:    q.ShowProgress,
	}
}

func (e *Engine) summaryLocked() *SummaryView {
	sv := &SummaryView{
		Cards:         make([]SequenceCard, 0, len(e.quiz.Sequences)),
		AllCompleted:  e.allCompletedLocked(),
		AnsweredCount: e.progress.AnsweredCount(),
		QuestionCount: e.quiz.QuestionCount(),
	}
	sv.Progress = percent(sv.AnsweredCount, sv.QuestionCount)

	for i, seq := range e.quiz.Sequences {
		entry := e.progress.Sequence(seq.ID)
		card := SequenceCard{
			Index:         i,
			ID:            seq.ID,
			Numero:        seq.Numero,
			Title:         seq.Title,
			Description:   seq.Description,
			Status:        e.statusLocked(i),
			Answered:      entry.AnsweredCount(),
			QuestionCount: len(seq.Questions),
		}
		switch card.Status {
		case StatusCompleted:
			card.ActionLabel = "Refaire"
			bilan := SequenceBilanOf(e.quiz, seq, entry)
			card.Dominant = bilan.Dominant
		case StatusActive:
			card.ActionLabel = "Commencer"
			if card.Answered > 0 {
				card.ActionLabel = "Reprendre"
			}
		default:
			card.ActionLabel = "Verrouillé"
		}
		sv.Cards = append(sv.Cards, card)
	}
	return sv
}

func (e *Engine) sequenceInfoLocked() *SequenceInfo {
	seq := e.quiz.Sequences[e.seq]
	return &SequenceInfo{
		Index:         e.seq,
		ID:            seq.ID,
		Numero:        seq.Numero,
		Title:         seq.Title,
		Description:   seq.Description,
		Context:       seq.Context,
		StatText:      seq.StatText,
		StatSource:    seq.StatSource,
		QuestionCount: len(seq.Questions),
		Empty:         len(seq.Questions) == 0,
		IsLast:        e.isLastRemainingLocked(),
	}
}

// isLastRemainingLocked reports whether finishing the current sequence completes the quiz.
func (e *Engine) isLastRemainingLocked() bool {
	for i, seq := range e.quiz.Sequences {
		if i == e.seq {
			continue
		}
		if entry, ok := e.progress.Sequences[seq.ID]; !ok || entry == nil || !entry.Completed {
			return false
		}
	}
	return true
}

func (e *Engine) questionLocked() *QuestionView {
	seq := e.quiz.Sequences[e.seq]
	if e.question >= len(seq.Questions) {
		return nil
	}
	q := seq.Questions[e.question]
	qv := &QuestionView{
		ID:       q.ID,
		Numero:   q.Numero,
		Prompt:   q.Prompt,
		Index:    e.question,
		Total:    len(seq.Questions),
		Progress: percent(e.question, len(seq.Questions)),
		Answers:  make([]AnswerView, 0, len(q.Answers)),
		Selected: e.selected,
	}
	for _, a := range q.Answers {
		label := a.ProfileLabel
		if label == "" {
			if l, ok := seq.Label(a.Code); ok {
				label = l.Name
			}
		}
		qv.Answers = append(qv.Answers, AnswerView{Code: a.Code, Text: a.Text, Label: label})
	}
	return qv
}

// Subscribe returns a channel that receives a view on every state change, starting with
// the current one. The caller must invoke the returned cancel function to avoid leaks.
func (e *Engine) Subscribe() (<-chan View, func()) {
	ch := make(chan View, 8)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	e.subscribers[ch] = struct{}{}
	ch <- e.viewLocked()
	e.mu.Unlock()

	cancel := func() {
		e.mu.Lock()
		if _, ok := e.subscribers[ch]; ok {
			delete(e.subscribers, ch)
			close(ch)
		}
		e.mu.Unlock()
	}
	return ch, cancel
}

func (e *Engine) broadcastLocked() View {
	v := e.viewLocked()
	for ch := range e.subscribers {
		select {
		case ch <- v:
		default:
			// Slow reader: drop its oldest view so the latest one always lands.
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	}
	return v
}
