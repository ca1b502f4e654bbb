package app

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"op-quiz-engine/internal/domain"
)

// DefaultSlug is played when no quiz is selected.
const DefaultSlug = "mindset-financier"

// DefaultAutoAdvance is the pause before moving on from a question without insight.
const DefaultAutoAdvance = 800 * time.Millisecond

// Screen is a state of the quiz-taking machine.
type Screen string

const (
	ScreenLoading       Screen = "loading"
	ScreenIntro         Screen = "intro"
	ScreenSummary       Screen = "summary"
	ScreenSequenceIntro Screen = "sequence_intro"
	ScreenQuestion      Screen = "question"
	ScreenInsight       Screen = "insight"
	ScreenBilan         Screen = "bilan"
	ScreenConclusion    Screen = "conclusion"
	ScreenResult        Screen = "result"
	ScreenError         Screen = "error"
)

// ActionKind names a user action.
type ActionKind string

const (
	ActionStart          ActionKind = "start"
	ActionResume         ActionKind = "resume"
	ActionRestartFresh   ActionKind = "restart_fresh"
	ActionGoToSequence   ActionKind = "go_to_sequence"
	ActionStartSequence  ActionKind = "start_sequence"
	ActionSelectAnswer   ActionKind = "select_answer"
	ActionNext           ActionKind = "next"
	ActionBackToSummary  ActionKind = "back_to_summary"
	ActionContinue       ActionKind = "continue"
	ActionShowResult     ActionKind = "show_result"
	ActionRestart        ActionKind = "restart"
	ActionAttachEmail    ActionKind = "attach_email"
)

// Action is a discrete input to the engine. Code, Index and Email are read only by the
// actions that need them.
type Action struct {
	Kind  ActionKind `json:"action"`
	Code  string     `json:"code,omitempty"`
	Index int        `json:"index,omitempty"`
	Email string     `json:"email,omitempty"`
}

// AfterFunc schedules f after d and returns a function that cancels it.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

func realAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// EngineConfig carries an engine's collaborators.
type EngineConfig struct {
	Slug    string
	Preview bool

	Quizzes QuizRepository
	Store   *ProgressStore
	Results *ResultSubmitter
	Logger  *zap.Logger

	AutoAdvance  time.Duration
	AfterFunc    AfterFunc
	NewSessionID func() string
}

// Engine drives one respondent through a quiz. All session state lives here; methods are
// safe for concurrent use and every state change is published to subscribers.
type Engine struct {
	slug    string
	preview bool

	quizzes     QuizRepository
	store       *ProgressStore
	results     *ResultSubmitter
	logger      *zap.Logger
	autoAdvance time.Duration
	afterFunc   AfterFunc
	newSession  func() string

	mu        sync.Mutex
	screen    Screen
	failure   string
	quiz      domain.Quiz
	progress  *domain.Progress
	seq       int
	question  int
	selected  string
	insight   string
	bilan     *SequenceBilan
	result    *FinalResult
	sessionID string
	submitted bool
	previous  string

	pendingAdvance bool
	timerGen       uint64
	stopTimer      func() bool

	subscribers map[chan View]struct{}
	closed      bool
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Slug == "" {
		cfg.Slug = DefaultSlug
	}
	if cfg.AutoAdvance <= 0 {
		cfg.AutoAdvance = DefaultAutoAdvance
	}
	if cfg.AfterFunc == nil {
		cfg.AfterFunc = realAfterFunc
	}
	if cfg.NewSessionID == nil {
		cfg.NewSessionID = newSessionID
	}
	return &Engine{
		slug:        cfg.Slug,
		preview:     cfg.Preview,
		quizzes:     cfg.Quizzes,
		store:       cfg.Store,
		results:     cfg.Results,
		logger:      cfg.Logger,
		autoAdvance: cfg.AutoAdvance,
		afterFunc:   cfg.AfterFunc,
		newSession:  cfg.NewSessionID,
		screen:      ScreenLoading,
		sessionID:   cfg.NewSessionID(),
		subscribers: make(map[chan View]struct{}),
	}
}

func newSessionID() string {
	return "quiz_" + uuid.NewString()
}

// SessionID identifies the current run; it changes on restart.
func (e *Engine) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionID
}

// Load fetches the quiz and restores saved progress. A failure moves the engine to the
// terminal error screen. The lock is not held during the fetch; actions arriving meanwhile
// are rejected because the screen is still loading.
func (e *Engine) Load(ctx context.Context) (View, error) {
	e.mu.Lock()
	if e.screen != ScreenLoading {
		defer e.mu.Unlock()
		return e.viewLocked(), fmt.Errorf("load from %s: %w", e.screen, domain.ErrInvalidTransition)
	}
	e.mu.Unlock()

	quiz, err := e.quizzes.GetQuiz(ctx, e.slug, e.preview)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.logger.Error("load quiz", zap.Bool("preview", e.preview), zap.Error(err))
		e.failure = "Impossible de charger le quiz. Veuillez réessayer."
		if errors.Is(err, domain.ErrQuizNotFound) {
			e.failure = "Ce quiz est introuvable."
		}
		e.transitionLocked(ScreenError)
		return e.broadcastLocked(), fmt.Errorf("load quiz %q: %w", e.slug, err)
	}

	e.quiz = quiz
	e.progress = e.restoreLocked(ctx)
	if c, ok := e.store.Completion(ctx, e.slug); ok {
		e.previous = c.Dominant
	}
	e.transitionLocked(ScreenIntro)
	e.logger.Info("quiz loaded",
		zap.Int("sequences", len(quiz.Sequences)),
		zap.Int("questions", quiz.QuestionCount()),
		zap.Int("answered", e.progress.AnsweredCount()))
	return e.broadcastLocked(), nil
}

// restoreLocked reads saved progress and aligns it with the loaded quiz: every sequence gets
// an entry and scores are rebuilt from the answers of questions that still exist.
func (e *Engine) restoreLocked(ctx context.Context) *domain.Progress {
	saved := e.store.Load(ctx, e.slug)
	if saved == nil {
		return domain.NewProgress(e.quiz)
	}
	for _, seq := range e.quiz.Sequences {
		entry := saved.Sequence(seq.ID)
		if len(entry.Answers) == 0 {
			continue
		}
		answers := entry.Answers
		entry.Answers = make(map[string]string, len(answers))
		entry.Scores = make(map[string]int)
		for _, q := range seq.Questions {
			if code, ok := answers[q.ID]; ok {
				entry.Record(q.ID, code)
			}
		}
	}
	return saved
}

// Dispatch applies a to the current screen. Rejected actions leave the state untouched.
func (e *Engine) Dispatch(ctx context.Context, a Action) (View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.applyLocked(ctx, a); err != nil {
		return e.viewLocked(), err
	}
	return e.broadcastLocked(), nil
}

func (e *Engine) Start(ctx context.Context) (View, error) {
	return e.Dispatch(ctx, Action{Kind: ActionStart})
}

func (e *Engine) Resume(ctx context.Context) (View, error) {
	return e.Dispatch(ctx, Action{Kind: ActionResume})
}

func (e *Engine) RestartFresh(ctx context.Context) (View, error) {
	return e.Dispatch(ctx, Action{Kind: ActionRestartFresh})
}

func (e *Engine) GoToSequence(ctx context.Context, index int) (View, error) {
	return e.Dispatch(ctx, Action{Kind: ActionGoToSequence, Index: index})
}

func (e *Engine) StartSequence(ctx context.Context) (View, error) {
	return e.Dispatch(ctx, Action{Kind: ActionStartSequence})
}

func (e *Engine) SelectAnswer(ctx context.Context, code string) (View, error) {
	return e.Dispatch(ctx, Action{Kind: ActionSelectAnswer, Code: code})
}

func (e *Engine) Next(ctx context.Context) (View, error) {
	return e.Dispatch(ctx, Action{Kind: ActionNext})
}

func (e *Engine) BackToSummary(ctx context.Context) (View, error) {
	return e.Dispatch(ctx, Action{Kind: ActionBackToSummary})
}

func (e *Engine) Continue(ctx context.Context) (View, error) {
	return e.Dispatch(ctx, Action{Kind: ActionContinue})
}

func (e *Engine) ShowResult(ctx context.Context) (View, error) {
	return e.Dispatch(ctx, Action{Kind: ActionShowResult})
}

func (e *Engine) Restart(ctx context.Context) (View, error) {
	return e.Dispatch(ctx, Action{Kind: ActionRestart})
}

func (e *Engine) AttachEmail(ctx context.Context, email string) (View, error) {
	return e.Dispatch(ctx, Action{Kind: ActionAttachEmail, Email: email})
}

func (e *Engine) applyLocked(ctx context.Context, a Action) error {
	if !e.allowedLocked(a.Kind) {
		return fmt.Errorf("%s on %s: %w", a.Kind, e.screen, domain.ErrInvalidTransition)
	}

	switch a.Kind {
	case ActionStart, ActionRestartFresh:
		e.resetLocked(ctx)
		e.transitionLocked(ScreenSummary)
	case ActionResume:
		if e.progress.AnsweredCount() == 0 {
			return domain.ErrNoProgress
		}
		e.transitionLocked(ScreenSummary)
	case ActionGoToSequence:
		return e.goToSequenceLocked(ctx, a.Index)
	case ActionStartSequence:
		e.startSequenceLocked(ctx)
	case ActionSelectAnswer:
		return e.selectAnswerLocked(ctx, a.Code)
	case ActionNext:
		e.advanceLocked(ctx)
	case ActionBackToSummary:
		e.transitionLocked(ScreenSummary)
	case ActionContinue:
		if e.allCompletedLocked() {
			e.finishLocked(ctx)
		} else {
			e.transitionLocked(ScreenSummary)
		}
	case ActionShowResult:
		if e.screen == ScreenConclusion {
			e.enterResultLocked(ctx)
		} else {
			e.finishLocked(ctx)
		}
	case ActionRestart:
		e.resetLocked(ctx)
		e.sessionID = e.newSession()
		e.submitted = false
		e.previous = ""
		e.transitionLocked(ScreenSummary)
	case ActionAttachEmail:
		return e.attachEmailLocked(a.Email)
	}
	return nil
}

// allowedLocked is the transition table: which actions each screen accepts.
func (e *Engine) allowedLocked(kind ActionKind) bool {
	for _, k := range e.actionsLocked() {
		if k == kind {
			return true
		}
	}
	return false
}

func (e *Engine) actionsLocked() []ActionKind {
	switch e.screen {
	case ScreenIntro:
		if e.progress.AnsweredCount() > 0 {
			return []ActionKind{ActionResume, ActionRestartFresh}
		}
		return []ActionKind{ActionStart}
	case ScreenSummary:
		actions := []ActionKind{ActionGoToSequence}
		if e.allCompletedLocked() {
			actions = append(actions, ActionShowResult)
		}
		return append(actions, ActionRestart)
	case ScreenSequenceIntro:
		return []ActionKind{ActionStartSequence, ActionBackToSummary}
	case ScreenQuestion:
		if e.pendingAdvance {
			return []ActionKind{ActionNext, ActionBackToSummary}
		}
		return []ActionKind{ActionSelectAnswer, ActionBackToSummary}
	case ScreenInsight:
		return []ActionKind{ActionNext, ActionBackToSummary}
	case ScreenBilan:
		return []ActionKind{ActionContinue, ActionBackToSummary}
	case ScreenConclusion:
		return []ActionKind{ActionShowResult, ActionBackToSummary}
	case ScreenResult:
		return []ActionKind{ActionRestart, ActionAttachEmail, ActionBackToSummary}
	default:
		return nil
	}
}

func (e *Engine) goToSequenceLocked(ctx context.Context, index int) error {
	if index < 0 || index >= len(e.quiz.Sequences) {
		return fmt.Errorf("sequence %d: %w", index, domain.ErrSequenceNotFound)
	}
	seq := e.quiz.Sequences[index]

	switch e.statusLocked(index) {
	case StatusLocked:
		return fmt.Errorf("sequence %d: %w", index, domain.ErrSequenceLocked)
	case StatusCompleted:
		e.progress.Sequences[seq.ID] = domain.NewSequenceProgress()
		e.store.Save(ctx, e.slug, e.progress)
		e.store.ClearCompletion(ctx, e.slug)
		e.enterSequenceLocked(index, 0)
		e.transitionLocked(ScreenSequenceIntro)
		return nil
	}

	entry := e.progress.Sequence(seq.ID)
	if entry.AnsweredCount() == 0 {
		e.enterSequenceLocked(index, 0)
		e.transitionLocked(ScreenSequenceIntro)
		return nil
	}

	next := firstUnanswered(seq, entry)
	e.enterSequenceLocked(index, next)
	if next >= len(seq.Questions) {
		e.completeSequenceLocked(ctx)
		return nil
	}
	entry.Cursor = next
	e.store.Save(ctx, e.slug, e.progress)
	e.transitionLocked(ScreenQuestion)
	return nil
}

func (e *Engine) enterSequenceLocked(index, question int) {
	e.seq = index
	e.question = question
	e.bilan = nil
}

func firstUnanswered(seq domain.Sequence, entry *domain.SequenceProgress) int {
	for i, q := range seq.Questions {
		if _, ok := entry.Answers[q.ID]; !ok {
			return i
		}
	}
	return len(seq.Questions)
}

func (e *Engine) startSequenceLocked(ctx context.Context) {
	seq := e.quiz.Sequences[e.seq]
	if len(seq.Questions) == 0 {
		e.completeSequenceLocked(ctx)
		return
	}
	entry := e.progress.Sequence(seq.ID)
	e.question = firstUnanswered(seq, entry)
	entry.Cursor = e.question
	e.store.Save(ctx, e.slug, e.progress)
	e.transitionLocked(ScreenQuestion)
}

func (e *Engine) selectAnswerLocked(ctx context.Context, code string) error {
	seq := e.quiz.Sequences[e.seq]
	q := seq.Questions[e.question]
	if !offers(q, code) {
		return fmt.Errorf("code %q on question %s: %w", code, q.ID, domain.ErrAnswerNotFound)
	}

	entry := e.progress.Sequence(seq.ID)
	entry.Record(q.ID, code)
	entry.Cursor = e.question
	e.store.Save(ctx, e.slug, e.progress)

	insight := q.Explanation
	if insight == "" {
		insight = seq.Insight
	}
	if insight != "" {
		e.transitionLocked(ScreenInsight)
		e.selected = code
		e.insight = insight
		return nil
	}

	e.selected = code
	e.scheduleAdvanceLocked()
	return nil
}

func offers(q domain.Question, code string) bool {
	if code == "" {
		return false
	}
	for _, a := range q.Answers {
		if a.Code == code {
			return true
		}
	}
	return false
}

// advanceLocked moves the cursor past the current question, completing the sequence after
// its last one.
func (e *Engine) advanceLocked(ctx context.Context) {
	seq := e.quiz.Sequences[e.seq]
	entry := e.progress.Sequence(seq.ID)
	e.question++
	if e.question >= len(seq.Questions) {
		e.completeSequenceLocked(ctx)
		return
	}
	entry.Cursor = e.question
	e.store.Save(ctx, e.slug, e.progress)
	e.transitionLocked(ScreenQuestion)
}

func (e *Engine) completeSequenceLocked(ctx context.Context) {
	seq := e.quiz.Sequences[e.seq]
	entry := e.progress.Sequence(seq.ID)
	entry.Completed = true
	entry.Cursor = len(seq.Questions)
	e.question = len(seq.Questions)
	e.store.Save(ctx, e.slug, e.progress)

	bilan := SequenceBilanOf(e.quiz, seq, entry)
	e.transitionLocked(ScreenBilan)
	e.bilan = &bilan
}

// finishLocked leaves the sequence flow: through the conclusion screen when the quiz has one.
func (e *Engine) finishLocked(ctx context.Context) {
	if e.quiz.Conclusion.HasContent() {
		e.transitionLocked(ScreenConclusion)
		return
	}
	e.enterResultLocked(ctx)
}

func (e *Engine) enterResultLocked(ctx context.Context) {
	res := Aggregate(e.quiz, e.progress)
	e.transitionLocked(ScreenResult)
	e.result = &res

	// A completion flag left by an earlier session means these answers were already
	// submitted; redoing a sequence clears it.
	submit := !e.submitted
	if submit {
		if _, done := e.store.Completion(ctx, e.slug); done {
			submit = false
		}
	}
	e.submitted = true
	e.store.MarkCompleted(ctx, e.slug, res.Dominant.Code)
	if !submit {
		return
	}
	e.results.Submit(domain.Result{
		QuizID:    e.quiz.ID,
		SessionID: e.sessionID,
		Dominant:  res.Dominant.Code,
		Scores:    res.Scores,
		Answers:   e.progress.AllAnswers(),
	})
}

func (e *Engine) attachEmailLocked(email string) error {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%q: %w", email, domain.ErrInvalidEmail)
	}
	e.results.AttachEmail(e.sessionID, email)
	return nil
}

func (e *Engine) resetLocked(ctx context.Context) {
	e.store.Clear(ctx, e.slug)
	e.progress = domain.NewProgress(e.quiz)
	e.store.Save(ctx, e.slug, e.progress)
	e.enterSequenceLocked(0, 0)
	e.result = nil
}

// transitionLocked switches screens and drops anything tied to the previous one, including a
// pending auto-advance.
func (e *Engine) transitionLocked(to Screen) {
	e.cancelAdvanceLocked()
	e.screen = to
	e.selected = ""
	e.insight = ""
	if to != ScreenBilan {
		e.bilan = nil
	}
	if to != ScreenResult {
		e.result = nil
	}
}

func (e *Engine) scheduleAdvanceLocked() {
	e.cancelAdvanceLocked()
	e.pendingAdvance = true
	gen := e.timerGen
	e.stopTimer = e.afterFunc(e.autoAdvance, func() { e.fireAdvance(gen) })
}

func (e *Engine) cancelAdvanceLocked() {
	if e.stopTimer != nil {
		e.stopTimer()
		e.stopTimer = nil
	}
	e.pendingAdvance = false
	e.timerGen++
}

// fireAdvance runs on the timer goroutine. A generation mismatch means the engine moved on
// since the timer was armed.
func (e *Engine) fireAdvance(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || gen != e.timerGen || !e.pendingAdvance || e.screen != ScreenQuestion {
		return
	}
	e.stopTimer = nil
	e.advanceLocked(context.Background())
	e.broadcastLocked()
}

// SequenceStatus is derived on every render, never stored.
type SequenceStatus string

const (
	StatusLocked    SequenceStatus = "locked"
	StatusActive    SequenceStatus = "active"
	StatusCompleted SequenceStatus = "completed"
)

func (e *Engine) statusLocked(index int) SequenceStatus {
	seq := e.quiz.Sequences[index]
	if entry, ok := e.progress.Sequences[seq.ID]; ok && entry != nil && entry.Completed {
		return StatusCompleted
	}
	if index == e.firstIncompleteLocked() {
		return StatusActive
	}
	return StatusLocked
}

func (e *Engine) firstIncompleteLocked() int {
	for i, seq := range e.quiz.Sequences {
		entry, ok := e.progress.Sequences[seq.ID]
		if !ok || entry == nil || !entry.Completed {
			return i
		}
	}
	return -1
}

func (e *Engine) allCompletedLocked() bool {
	return e.firstIncompleteLocked() == -1
}

// Close cancels pending timers and releases subscribers.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.cancelAdvanceLocked()
	for ch := range e.subscribers {
		delete(e.subscribers, ch)
		close(ch)
	}
}
