package domain

// defaultProfiles is the built-in content used when a quiz configures no profile for a code.
var defaultProfiles = map[string]Profile{
	"A": {
		Code:        "A",
		Emoji:       "🔒",
		Name:        "Sécurité Dominante",
		Title:       "Profil Sécurité",
		Description: "L'argent est avant tout un bouclier contre l'imprévu, le stress, la perte de contrôle. Il est lié au soulagement plus qu'au plaisir.",
		Forces:      []string{"Prudence développée", "Capacité d'anticipation", "Sens des responsabilités"},
		Vigilances:  []string{"Difficulté à se projeter positivement", "Tendance à retenir plutôt qu'à choisir", "Risque de vivre dans l'attente permanente"},
	},
	"B": {
		Code:        "B",
		Emoji:       "🛡️",
		Name:        "Prudence / Contrôle",
		Title:       "Profil Prudence",
		Description: "L'argent est un système à maîtriser. Tu cherches à éviter les erreurs, réduire les risques, garder la main.",
		Forces:      []string{"Organisation solide", "Rigueur appréciable", "Sens du cadre"},
		Vigilances:  []string{"Sur-contrôle possible", "Charge mentale élevée", "Difficulté à lâcher prise"},
	},
	"C": {
		Code:        "C",
		Emoji:       "⚖️",
		Name:        "Équilibre / Rationalité",
		Title:       "Profil Équilibre",
		Description: "Tu vois l'argent comme un outil fonctionnel. Ni trop émotionnel, ni totalement détaché.",
		Forces:      []string{"Capacité d'analyse", "Décisions posées", "Vision structurée"},
		Vigilances:  []string{"Peu de lien au plaisir", "Tendance à intellectualiser", "Difficulté à écouter l'émotion"},
	},
	"D": {
		Code:        "D",
		Emoji:       "🕊️",
		Name:        "Liberté / Alignement",
		Title:       "Profil Liberté",
		Description: "L'argent est un levier de choix : choix de vie, de temps, d'alignement.",
		Forces:      []string{"Vision claire", "Capacité à investir en toi", "Projection long terme"},
		Vigilances:  []string{"Sous-estimation des contraintes", "Besoin de sécuriser sans s'enfermer", "Risque de déconnexion du cadre"},
	},
}

// DefaultProfile returns the built-in profile for code, or a generic placeholder.
func DefaultProfile(code string) Profile {
	if p, ok := defaultProfiles[code]; ok {
		p.Forces = append([]string(nil), p.Forces...)
		p.Vigilances = append([]string(nil), p.Vigilances...)
		return p
	}
	return Profile{
		Code:  code,
		Emoji: "🎯",
		Name:  "Profil " + code,
		Title: "Profil " + code,
	}
}

// ResolveProfile prefers the quiz's own profile and falls back to DefaultProfile.
func ResolveProfile(quiz Quiz, code string) Profile {
	if p, ok := quiz.Profile(code); ok {
		if p.Name == "" {
			p.Name = p.Title
		}
		if p.Name == "" {
			p.Name = DefaultProfile(code).Name
		}
		return p
	}
	return DefaultProfile(code)
}
