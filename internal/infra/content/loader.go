package content

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"op-quiz-engine/internal/domain"
)

// Loader loads and caches quiz content from YAML files, one quiz per file.
type Loader struct {
	rootDir string
	logger  *zap.Logger
	mu      sync.RWMutex
	quizzes map[string]domain.Quiz
}

// NewLoader reads every quiz under rootDir.
func NewLoader(rootDir string, logger *zap.Logger) (*Loader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Loader{
		rootDir: rootDir,
		logger:  logger,
		quizzes: make(map[string]domain.Quiz),
	}
	if err := l.loadAll(); err != nil {
		return nil, fmt.Errorf("loading quiz content: %w", err)
	}
	logger.Info("quiz content loaded", zap.String("dir", rootDir), zap.Int("quizzes", len(l.quizzes)))
	return l, nil
}

func (l *Loader) LoadQuiz(_ context.Context, slug string, includeUnpublished bool) (domain.Quiz, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	quiz, ok := l.quizzes[slug]
	if !ok || (!quiz.Published && !includeUnpublished) {
		return domain.Quiz{}, fmt.Errorf("slug %q: %w", slug, domain.ErrQuizNotFound)
	}
	return quiz, nil
}

// All returns every loaded quiz ordered by slug.
func (l *Loader) All() []domain.Quiz {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Quiz, 0, len(l.quizzes))
	for _, q := range l.quizzes {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

func (l *Loader) loadAll() error {
	return filepath.Walk(l.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
			return l.loadQuiz(path)
		}
		return nil
	})
}

func (l *Loader) loadQuiz(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		l.logger.Warn("skipping invalid quiz YAML", zap.String("path", path), zap.Error(err))
		return nil
	}
	if _, ok := doc["slug"]; !ok {
		return nil // not a quiz file
	}
	if err := validateQuiz(doc); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	var quiz domain.Quiz
	if err := yaml.Unmarshal(data, &quiz); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := normalize(&quiz, doc); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, dup := l.quizzes[quiz.Slug]; dup {
		return fmt.Errorf("duplicate quiz slug %q in %s", quiz.Slug, path)
	}
	l.quizzes[quiz.Slug] = quiz
	return nil
}

// normalize fills the numbering and positions authors left out, orders profiles by code,
// sequences and questions by numero and answers by position, then assigns missing ids.
// doc is the raw document and tells an explicit zero from an absent field.
func normalize(quiz *domain.Quiz, doc map[string]any) error {
	if quiz.ID == "" {
		quiz.ID = quiz.Slug
	}
	sort.SliceStable(quiz.Profiles, func(i, j int) bool {
		return quiz.Profiles[i].Code < quiz.Profiles[j].Code
	})

	rawSeqs := items(doc, "sequences")
	for i := range quiz.Sequences {
		seq := &quiz.Sequences[i]
		rawSeq := at(rawSeqs, i)
		if !has(rawSeq, "numero") {
			seq.Numero = i + 1
		}
		if seq.ProfileLabels == nil {
			seq.ProfileLabels = map[string]domain.ProfileLabel{}
		}
		rawQuestions := items(rawSeq, "questions")
		for j := range seq.Questions {
			q := &seq.Questions[j]
			rawQuestion := at(rawQuestions, j)
			if !has(rawQuestion, "numero") {
				q.Numero = j + 1
			}
			rawAnswers := items(rawQuestion, "answers")
			for k := range q.Answers {
				if !has(at(rawAnswers, k), "position") {
					q.Answers[k].Position = k
				}
			}
			sort.SliceStable(q.Answers, func(a, b int) bool {
				return q.Answers[a].Position < q.Answers[b].Position
			})
		}
		sort.SliceStable(seq.Questions, func(a, b int) bool {
			return seq.Questions[a].Numero < seq.Questions[b].Numero
		})
	}
	sort.SliceStable(quiz.Sequences, func(a, b int) bool {
		return quiz.Sequences[a].Numero < quiz.Sequences[b].Numero
	})

	seqNumeros := make(map[int]bool, len(quiz.Sequences))
	for i := range quiz.Sequences {
		seq := &quiz.Sequences[i]
		if seqNumeros[seq.Numero] {
			return fmt.Errorf("duplicate sequence numero %d", seq.Numero)
		}
		seqNumeros[seq.Numero] = true
		if seq.ID == "" {
			seq.ID = fmt.Sprintf("%s-s%d", quiz.ID, seq.Numero)
		}

		questionNumeros := make(map[int]bool, len(seq.Questions))
		for j := range seq.Questions {
			q := &seq.Questions[j]
			if questionNumeros[q.Numero] {
				return fmt.Errorf("duplicate question numero %d in sequence %d", q.Numero, seq.Numero)
			}
			questionNumeros[q.Numero] = true
			if q.ID == "" {
				q.ID = fmt.Sprintf("%s-q%d", seq.ID, q.Numero)
			}
		}
	}
	return nil
}

func items(node any, key string) []any {
	m, ok := node.(map[string]any)
	if !ok {
		return nil
	}
	list, _ := m[key].([]any)
	return list
}

func at(list []any, i int) any {
	if i < len(list) {
		return list[i]
	}
	return nil
}

func has(node any, key string) bool {
	m, ok := node.(map[string]any)
	if !ok {
		return false
	}
	v, ok := m[key]
	return ok && v != nil
}
