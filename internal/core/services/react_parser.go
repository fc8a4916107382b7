package services

import (
	"regexp"
	"strings"

	"github.com/manthysbr/vita/internal/core/domain"
)

const (
	markerThought     = "Thought:"
	markerAction      = "Action:"
	markerActionInput = "Action Input:"
)

// Call-expression matchers. Each must span the whole action string.
var (
	callSpecialistRe  = regexp.MustCompile(`(?s)^call_specialist\(\s*(.+?)\s*,\s*(.+?)\s*\)$`)
	searchNutritionRe = regexp.MustCompile(`(?s)^search_nutrition\(\s*(.+?)\s*\)$`)
	searchResearchRe  = regexp.MustCompile(`(?s)^search_research\(\s*(.+?)\s*\)$`)
	finishCallRe      = regexp.MustCompile(`(?is)^finish\(\s*(.+?)\s*\)$`)
)

// ParseReactOutput extracts Thought / Action / Action Input from model output.
// Fields may span several lines. A missing marker yields an empty field; this never fails.
func ParseReactOutput(text string) domain.ReactTurn {
	return domain.ReactTurn{
		Thought:     sectionAfter(text, markerThought, markerAction),
		Action:      sectionAfter(text, markerAction, markerActionInput),
		ActionInput: lastSectionAfter(text, markerActionInput),
	}
}

// sectionAfter returns the trimmed text between the first start marker and the
// next end marker, or the end of text when no end marker follows.
func sectionAfter(text, start, end string) string {
	i := strings.Index(text, start)
	if i < 0 {
		return ""
	}
	rest := text[i+len(start):]
	if j := strings.Index(rest, end); j >= 0 {
		rest = rest[:j]
	}
	return strings.TrimSpace(rest)
}

func lastSectionAfter(text, marker string) string {
	i := strings.LastIndex(text, marker)
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(text[i+len(marker):])
}

// MatchFinish reports whether action terminates the run and, if so, the final answer.
// finish(<response>) yields the captured response; a bare "finish" yields actionInput.
func MatchFinish(action, actionInput string) (string, bool) {
	if m := finishCallRe.FindStringSubmatch(action); m != nil {
		return m[1], true
	}
	if strings.EqualFold(action, "finish") {
		return actionInput, true
	}
	return "", false
}

// ClassifyAction maps a raw action expression onto an ActionIntent.
// Matchers run in a fixed order and the first hit wins; anything else is Unknown.
func ClassifyAction(action, actionInput string) domain.ActionIntent {
	if name, task, ok := matchCallSpecialist(action, actionInput); ok {
		return domain.ActionIntent{Kind: domain.ActionCallSpecialist, Specialist: name, Task: task}
	}

	if m := searchNutritionRe.FindStringSubmatch(action); m != nil {
		return domain.ActionIntent{Kind: domain.ActionSearchNutrition, Query: m[1]}
	}

	if m := searchResearchRe.FindStringSubmatch(action); m != nil {
		return domain.ActionIntent{Kind: domain.ActionSearchResearch, Query: m[1]}
	}

	if strings.HasPrefix(strings.ToLower(action), "finish") {
		if m := finishCallRe.FindStringSubmatch(action); m != nil {
			return domain.ActionIntent{Kind: domain.ActionFinish, Response: m[1]}
		}
		return domain.ActionIntent{Kind: domain.ActionFinish, Response: actionInput}
	}

	return domain.ActionIntent{Kind: domain.ActionUnknown, Raw: action}
}

// matchCallSpecialist handles both call_specialist(Name, task) and the looser form
// where the action is just "call_specialist" and Action Input carries "Name, task".
func matchCallSpecialist(action, actionInput string) (string, string, bool) {
	var name, task string
	if m := callSpecialistRe.FindStringSubmatch(action); m != nil {
		name = domain.NormalizeSpecialist(m[1])
		task = strings.TrimSpace(m[2])
	} else if strings.HasPrefix(strings.ToLower(action), "call_specialist") {
		parts := strings.SplitN(actionInput, ",", 2)
		name = domain.NormalizeSpecialist(parts[0])
		if len(parts) > 1 {
			task = strings.TrimSpace(parts[1])
		} else {
			task = actionInput
		}
	}
	return name, task, name != "" && task != ""
}
