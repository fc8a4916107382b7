package domain

import (
	"errors"
	"sort"
	"strings"
)

// Specialist is the canonical name of a sub-agent the Head Coach can delegate to.
type Specialist string

const (
	SpecialistNutritionExpert   Specialist = "Nutrition Expert"
	SpecialistScienceResearcher Specialist = "Science Researcher"
	SpecialistWellnessCoach     Specialist = "Wellness Coach"
)

var ErrUnknownSpecialist = errors.New("unknown specialist")

// specialistAliases maps lower-cased free-text references to canonical names.
var specialistAliases = map[string]Specialist{
	"nutrition expert":   SpecialistNutritionExpert,
	"nutritionexpert":    SpecialistNutritionExpert,
	"nutrition":          SpecialistNutritionExpert,
	"science researcher": SpecialistScienceResearcher,
	"scienceresearcher":  SpecialistScienceResearcher,
	"science":            SpecialistScienceResearcher,
	"researcher":         SpecialistScienceResearcher,
	"wellness coach":     SpecialistWellnessCoach,
	"wellnesscoach":      SpecialistWellnessCoach,
	"wellness":           SpecialistWellnessCoach,
	"coach":              SpecialistWellnessCoach,
}

// NormalizeSpecialist maps a free-text specialist reference to its canonical name.
// Unrecognized input comes back trimmed but with its original casing, so the
// specialist backend can still resolve it or reject it explicitly.
func NormalizeSpecialist(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if s, ok := specialistAliases[strings.ToLower(trimmed)]; ok {
		return string(s)
	}
	return trimmed
}

// LookupSpecialist resolves a canonical name, case-insensitively.
func LookupSpecialist(name string) (Specialist, bool) {
	for _, s := range []Specialist{SpecialistNutritionExpert, SpecialistScienceResearcher, SpecialistWellnessCoach} {
		if strings.EqualFold(string(s), strings.TrimSpace(name)) {
			return s, true
		}
	}
	return "", false
}

// SpecialistAliases returns the aliases registered for s, sorted.
func SpecialistAliases(s Specialist) []string {
	var out []string
	for alias, target := range specialistAliases {
		if target == s {
			out = append(out, alias)
		}
	}
	sort.Strings(out)
	return out
}

// SpecialistProfile describes a built-in specialist and the instructions it runs with.
type SpecialistProfile struct {
	Name         Specialist `json:"name"`
	Description  string     `json:"description"`
	SystemPrompt string     `json:"system_prompt"`
	Aliases      []string   `json:"aliases"`
}

// BuiltinSpecialists returns the fixed specialist roster.
func BuiltinSpecialists() []SpecialistProfile {
	return []SpecialistProfile{
		{
			Name:        SpecialistNutritionExpert,
			Description: "Diet, food, nutrients, meals, ingredients.",
			SystemPrompt: `You are the Nutrition Expert on Vita's coaching team.
Give practical, evidence-aware guidance on diet, food choices, nutrients and meal planning.
When reference data is provided, ground your numbers in it and say when it is missing.
Be concise and concrete: portions, swaps, simple recipes.`,
			Aliases: SpecialistAliases(SpecialistNutritionExpert),
		},
		{
			Name:        SpecialistScienceResearcher,
			Description: "Evidence, research, clinical trials, medical facts.",
			SystemPrompt: `You are the Science Researcher on Vita's coaching team.
Summarize what the research says, how strong the evidence is, and where it is uncertain.
Cite the provided studies by title when you use them. Never give a diagnosis.`,
			Aliases: SpecialistAliases(SpecialistScienceResearcher),
		},
		{
			Name:        SpecialistWellnessCoach,
			Description: "Stress, exercise, sleep, mindfulness, habits.",
			SystemPrompt: `You are the Wellness Coach on Vita's coaching team.
Help with stress, movement, sleep, mindfulness and habit building.
Offer small, realistic next steps and an encouraging tone.`,
			Aliases: SpecialistAliases(SpecialistWellnessCoach),
		},
	}
}
