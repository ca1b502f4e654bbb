package domain

import "time"

// Quiz is a published (or previewed) questionnaire split into ordered sequences.
type Quiz struct {
	ID          string `json:"id" yaml:"id"`
	Slug        string `json:"slug" yaml:"slug"`
	Title       string `json:"title" yaml:"title"`
	Subtitle    string `json:"subtitle,omitempty" yaml:"subtitle"`
	Description string `json:"description,omitempty" yaml:"description"`

	Duration        string   `json:"duration,omitempty" yaml:"duration"`
	CoverImage      string   `json:"coverImage,omitempty" yaml:"coverImage"`
	IntroStat       string   `json:"introStat,omitempty" yaml:"introStat"`
	IntroStatSource string   `json:"introStatSource,omitempty" yaml:"introStatSource"`
	Benefits        []string `json:"benefits,omitempty" yaml:"benefits"`

	Published    bool `json:"published" yaml:"published"`
	CollectEmail bool `json:"collectEmail" yaml:"collectEmail"`
	ShowProgress bool `json:"showProgress" yaml:"showProgress"`

	Conclusion Conclusion `json:"conclusion" yaml:"conclusion"`
	Profiles   []Profile  `json:"profiles" yaml:"profiles"`
	Sequences  []Sequence `json:"sequences" yaml:"sequences"`
}

// QuestionCount is the number of questions across every sequence.
func (q Quiz) QuestionCount() int {
	n := 0
	for _, seq := range q.Sequences {
		n += len(seq.Questions)
	}
	return n
}

// Profile returns the configured global profile for code, if any.
func (q Quiz) Profile(code string) (Profile, bool) {
	for _, p := range q.Profiles {
		if p.Code == code {
			return p, true
		}
	}
	return Profile{}, false
}

// Conclusion is the optional screen shown between the last bilan and the final result.
type Conclusion struct {
	Title        string   `json:"title,omitempty" yaml:"title"`
	Is           []string `json:"is,omitempty" yaml:"is"`
	IsNot        []string `json:"isNot,omitempty" yaml:"isNot"`
	Quote        string   `json:"quote,omitempty" yaml:"quote"`
	CallToAction string   `json:"callToAction,omitempty" yaml:"callToAction"`
}

// HasContent reports whether any conclusion field is populated.
func (c Conclusion) HasContent() bool {
	return c.Title != "" || len(c.Is) > 0 || len(c.IsNot) > 0 || c.Quote != "" || c.CallToAction != ""
}

// Sequence is an ordered level of a quiz with its own questions and profile labels.
type Sequence struct {
	ID          string `json:"id" yaml:"id"`
	Numero      int    `json:"numero" yaml:"numero"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description"`
	Context     string `json:"context,omitempty" yaml:"context"`
	StatText    string `json:"statText,omitempty" yaml:"statText"`
	StatSource  string `json:"statSource,omitempty" yaml:"statSource"`
	Insight     string `json:"insight,omitempty" yaml:"insight"`
	BilanTitle  string `json:"bilanTitle,omitempty" yaml:"bilanTitle"`
	BilanText   string `json:"bilanText,omitempty" yaml:"bilanText"`

	ProfileLabels map[string]ProfileLabel `json:"profileLabels,omitempty" yaml:"profileLabels"`
	Questions     []Question              `json:"questions" yaml:"questions"`
}

// Label returns the sequence-scoped label for code.
func (s Sequence) Label(code string) (ProfileLabel, bool) {
	label, ok := s.ProfileLabels[code]
	if !ok || label.Name == "" {
		return label, false
	}
	return label, true
}

// Question belongs to exactly one sequence.
type Question struct {
	ID          string   `json:"id" yaml:"id"`
	Numero      int      `json:"numero" yaml:"numero"`
	Prompt      string   `json:"prompt" yaml:"prompt"`
	Explanation string   `json:"explanation,omitempty" yaml:"explanation"`
	Answers     []Answer `json:"answers" yaml:"answers"`
}

// Answer maps a displayed choice to a profile code.
type Answer struct {
	Code         string `json:"code" yaml:"code"`
	Text         string `json:"text" yaml:"text"`
	Position     int    `json:"position" yaml:"position"`
	ProfileLabel string `json:"profileLabel,omitempty" yaml:"profileLabel"`
}

// Profile is the quiz-wide description of a profile code.
type Profile struct {
	Code        string   `json:"code" yaml:"code"`
	Emoji       string   `json:"emoji,omitempty" yaml:"emoji"`
	Name        string   `json:"name" yaml:"name"`
	Title       string   `json:"title,omitempty" yaml:"title"`
	Description string   `json:"description,omitempty" yaml:"description"`
	Forces      []string `json:"forces,omitempty" yaml:"forces"`
	Vigilances  []string `json:"vigilances,omitempty" yaml:"vigilances"`
}

// Result is the record submitted once a respondent reaches the final screen.
type Result struct {
	QuizID    string            `json:"quizId"`
	SessionID string            `json:"sessionId"`
	Dominant  string            `json:"dominant"`
	Scores    map[string]int    `json:"scores"`
	Answers   map[string]string `json:"answers"`
	Email     string            `json:"email,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}
