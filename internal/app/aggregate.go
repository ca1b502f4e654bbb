package app

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"op-quiz-engine/internal/domain"
)

// Classification describes how clearly one profile dominates the final distribution.
type Classification string

const (
	ClassificationNone     Classification = "none"
	ClassificationPure     Classification = "pure"
	ClassificationTendency Classification = "tendency"
	ClassificationHybrid   Classification = "hybrid"
)

const (
	pureGap     = 20
	tendencyGap = 10
)

// ScoreEntry is one code of a ranked distribution.
type ScoreEntry struct {
	Code    string `json:"code"`
	Count   int    `json:"count"`
	Percent int    `json:"percent"`
	Name    string `json:"name"`
	Emoji   string `json:"emoji,omitempty"`
}

// SequenceBilan is the per-sequence assessment shown once a sequence is completed.
type SequenceBilan struct {
	SequenceID      string       `json:"sequenceId"`
	Title           string       `json:"title"`
	Text            string       `json:"text,omitempty"`
	Total           int          `json:"total"`
	Ranking         []ScoreEntry `json:"ranking"`
	Dominant        *ScoreEntry  `json:"dominant,omitempty"`
	DominantContent string       `json:"dominantContent,omitempty"`
}

// FinalResult is the global classification across every sequence.
type FinalResult struct {
	Total          int            `json:"total"`
	Scores         map[string]int `json:"scores"`
	Distribution   []ScoreEntry   `json:"distribution"`
	Classification Classification `json:"classification"`
	Gap            int            `json:"gap"`

	Dominant         domain.Profile  `json:"dominant"`
	DominantPercent  int             `json:"dominantPercent"`
	Secondary        *domain.Profile `json:"secondary,omitempty"`
	SecondaryPercent int             `json:"secondaryPercent"`

	Name         string   `json:"name"`
	Emoji        string   `json:"emoji"`
	Description  string   `json:"description"`
	Forces       []string `json:"forces"`
	Vigilances   []string `json:"vigilances"`
	TendencyNote string   `json:"tendencyNote,omitempty"`
	ShareText    string   `json:"shareText"`
}

// Classify maps the dominant/secondary percentages onto pure, tendency or hybrid.
func Classify(total, dominantPercent, secondaryPercent int) Classification {
	if total == 0 {
		return ClassificationNone
	}
	gap := dominantPercent - secondaryPercent
	switch {
	case gap > pureGap:
		return ClassificationPure
	case gap > tendencyGap:
		return ClassificationTendency
	case secondaryPercent > 0:
		return ClassificationHybrid
	default:
		return ClassificationPure
	}
}

// SequenceBilanOf ranks the codes answered in one sequence. Display names come from the
// sequence's labels and fall back to the bare code.
func SequenceBilanOf(quiz domain.Quiz, seq domain.Sequence, entry *domain.SequenceProgress) SequenceBilan {
	codes := sequenceCodes(seq)
	scores := map[string]int{}
	if entry != nil {
		scores = entry.Scores
	}
	ranking, total := rank(scores, codes)
	for i := range ranking {
		if label, ok := seq.Label(ranking[i].Code); ok {
			ranking[i].Name = label.Name
		} else {
			ranking[i].Name = ranking[i].Code
		}
	}

	bilan := SequenceBilan{
		SequenceID: seq.ID,
		Title:      seq.BilanTitle,
		Text:       seq.BilanText,
		Total:      total,
		Ranking:    ranking,
	}
	if bilan.Title == "" {
		bilan.Title = "Bilan : " + seq.Title
	}
	if total > 0 {
		top := ranking[0]
		bilan.Dominant = &top
		if label, ok := seq.Label(top.Code); ok && label.Content != "" {
			bilan.DominantContent = label.Content
		} else if p, ok := quiz.Profile(top.Code); ok {
			bilan.DominantContent = p.Description
		}
	}
	return bilan
}

// Aggregate sums every sequence of quiz and classifies the outcome.
func Aggregate(quiz domain.Quiz, progress *domain.Progress) FinalResult {
	scores := make(map[string]int)
	if progress != nil {
		for _, seq := range quiz.Sequences {
			entry, ok := progress.Sequences[seq.ID]
			if !ok || entry == nil {
				continue
			}
			for code, n := range entry.Scores {
				scores[code] += n
			}
		}
	}

	ranking, total := rank(scores, quizCodes(quiz))
	for i := range ranking {
		p := domain.ResolveProfile(quiz, ranking[i].Code)
		ranking[i].Name = p.Name
		ranking[i].Emoji = p.Emoji
	}

	res := FinalResult{
		Total:        total,
		Scores:       scores,
		Distribution: ranking,
	}
	if total == 0 {
		// Nothing answered: no dominant profile, even when codes are known.
		res.Classification = ClassificationNone
		return res
	}

	dominant := ranking[0]
	res.Dominant = domain.ResolveProfile(quiz, dominant.Code)
	res.DominantPercent = dominant.Percent
	secondaryPercent := 0
	if len(ranking) > 1 {
		secondaryPercent = ranking[1].Percent
	}
	res.SecondaryPercent = secondaryPercent
	res.Gap = dominant.Percent - secondaryPercent
	res.Classification = Classify(total, dominant.Percent, secondaryPercent)

	var secondary domain.Profile
	if len(ranking) > 1 && ranking[1].Count > 0 {
		secondary = domain.ResolveProfile(quiz, ranking[1].Code)
		res.Secondary = &secondary
	}

	d := res.Dominant
	res.Name, res.Emoji, res.Description = d.Name, d.Emoji, d.Description
	res.Forces = append([]string{}, d.Forces...)
	res.Vigilances = append([]string{}, d.Vigilances...)

	switch res.Classification {
	case ClassificationTendency:
		res.TendencyNote = fmt.Sprintf("Avec une tendance %s (%d%%)", secondary.Name, secondaryPercent)
	case ClassificationHybrid:
		res.Name = d.Name + " & " + secondary.Name
		res.Emoji = d.Emoji + secondary.Emoji
		res.Description = joinNonEmpty("\n\n", d.Description, secondary.Description)
		res.Forces = mergeUnique(d.Forces, secondary.Forces)
		res.Vigilances = mergeUnique(d.Vigilances, secondary.Vigilances)
	}

	if res.Classification != ClassificationNone {
		res.ShareText = fmt.Sprintf("Je viens de découvrir mon profil : %s %s ! Et toi, quel est le tien ?", res.Name, res.Emoji)
	}
	return res
}

// rank orders every known code by count desc, then code asc. Percentages are rounded against
// the grand total and stay zero when nothing was answered.
func rank(scores map[string]int, codes []string) ([]ScoreEntry, int) {
	seen := make(map[string]bool, len(codes))
	entries := make([]ScoreEntry, 0, len(codes)+len(scores))
	add := func(code string) {
		if code == "" || seen[code] {
			return
		}
		seen[code] = true
		entries = append(entries, ScoreEntry{Code: code, Count: scores[code]})
	}
	for _, code := range codes {
		add(code)
	}
	for code := range scores {
		add(code)
	}

	total := 0
	for _, e := range entries {
		total += e.Count
	}
	for i := range entries {
		entries[i].Percent = percent(entries[i].Count, total)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Code < entries[j].Code
	})
	return entries, total
}

func percent(count, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(count) * 100 / float64(total)))
}

func sequenceCodes(seq domain.Sequence) []string {
	var codes []string
	for _, q := range seq.Questions {
		for _, a := range q.Answers {
			codes = append(codes, a.Code)
		}
	}
	for code := range seq.ProfileLabels {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func quizCodes(quiz domain.Quiz) []string {
	var codes []string
	for _, p := range quiz.Profiles {
		codes = append(codes, p.Code)
	}
	for _, seq := range quiz.Sequences {
		for _, q := range seq.Questions {
			for _, a := range q.Answers {
				codes = append(codes, a.Code)
			}
		}
	}
	sort.Strings(codes)
	return codes
}

func mergeUnique(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]bool, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
