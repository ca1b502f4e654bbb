package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"op-quiz-engine/internal/domain"
)

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes"`

	ID              string             `bun:"id,pk,type:uuid"`
	Slug            string             `bun:"slug,notnull"`
	Titre           string             `bun:"titre,notnull"`
	SousTitre       string             `bun:"sous_titre,nullzero"`
	Description     string             `bun:"description,nullzero"`
	Duree           string             `bun:"duree,nullzero"`
	ImageCouverture string             `bun:"image_couverture,nullzero"`
	IntroStat       string             `bun:"intro_stat,nullzero"`
	IntroStatSource string             `bun:"intro_stat_source,nullzero"`
	Benefices       []string           `bun:"benefices,type:jsonb"`
	Published       bool               `bun:"published,notnull"`
	CollectEmail    bool               `bun:"collect_email,notnull"`
	ShowProgress    bool               `bun:"show_progress,notnull"`
	Conclusion      *domain.Conclusion `bun:"conclusion,type:jsonb"`
}

type profileRow struct {
	bun.BaseModel `bun:"table:quiz_profiles"`

	ID          string   `bun:"id,pk,type:uuid"`
	QuizID      string   `bun:"quiz_id,type:uuid"`
	Code        string   `bun:"code,notnull"`
	Nom         string   `bun:"nom,nullzero"`
	Emoji       string   `bun:"emoji,nullzero"`
	Titre       string   `bun:"titre,nullzero"`
	Description string   `bun:"description,nullzero"`
	Forces      []string `bun:"forces,type:jsonb"`
	Vigilances  []string `bun:"vigilances,type:jsonb"`
}

type sequenceRow struct {
	bun.BaseModel `bun:"table:quiz_sequences"`

	ID          string                         `bun:"id,pk,type:uuid"`
	QuizID      string                         `bun:"quiz_id,type:uuid"`
	Numero      int                            `bun:"numero,notnull"`
	Titre       string                         `bun:"titre,notnull"`
	Description string                         `bun:"description,nullzero"`
	Contexte    string                         `bun:"contexte,nullzero"`
	StatTexte   string                         `bun:"stat_texte,nullzero"`
	StatSource  string                         `bun:"stat_source,nullzero"`
	Insight     string                         `bun:"insight,nullzero"`
	BilanTitre  string                         `bun:"bilan_titre,nullzero"`
	BilanTexte  string                         `bun:"bilan_texte,nullzero"`
	Profils     map[string]domain.ProfileLabel `bun:"profils,type:jsonb"`
}

type questionRow struct {
	bun.BaseModel `bun:"table:quiz_questions"`

	ID          string `bun:"id,pk,type:uuid"`
	QuizID      string `bun:"quiz_id,type:uuid"`
	SequenceID  string `bun:"sequence_id,type:uuid,nullzero"`
	Numero      int    `bun:"numero,notnull"`
	Question    string `bun:"question,notnull"`
	Explication string `bun:"explication,nullzero"`
}

type answerRow struct {
	bun.BaseModel `bun:"table:quiz_answers"`

	ID          string `bun:"id,pk,type:uuid"`
	QuestionID  string `bun:"question_id,type:uuid"`
	Code        string `bun:"code,notnull"`
	Texte       string `bun:"texte,notnull"`
	ProfilLabel string `bun:"profil_label,nullzero"`
	Ordre       int    `bun:"ordre,notnull"`
}

type resultRow struct {
	bun.BaseModel `bun:"table:quiz_results"`

	ID             string            `bun:"id,pk,type:uuid"`
	QuizID         string            `bun:"quiz_id,notnull"`
	SessionID      string            `bun:"session_id,notnull"`
	ProfilDominant string            `bun:"profil_dominant,nullzero"`
	Scores         map[string]int    `bun:"scores,type:jsonb"`
	Reponses       map[string]string `bun:"reponses,type:jsonb"`
	Email          string            `bun:"email,nullzero"`
	CreatedAt      time.Time         `bun:"created_at,notnull"`
}
