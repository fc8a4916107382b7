package services

import (
	"testing"

	"github.com/manthysbr/vita/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func TestParseReactOutput(t *testing.T) {
	tests := []struct {
		name string
		text string
		want domain.ReactTurn
	}{
		{
			name: "well formed",
			text: "Thought: I need nutrition info\nAction: search_nutrition(spinach)\nAction Input: spinach",
			want: domain.ReactTurn{Thought: "I need nutrition info", Action: "search_nutrition(spinach)", ActionInput: "spinach"},
		},
		{
			name: "multi-line fields",
			text: "Thought: first line\nsecond line\nAction: finish(Eat more\nvegetables)\nAction Input: line one\nline two\n",
			want: domain.ReactTurn{
				Thought:     "first line\nsecond line",
				Action:      "finish(Eat more\nvegetables)",
				ActionInput: "line one\nline two",
			},
		},
		{
			name: "no markers",
			text: "I think you should drink water.",
			want: domain.ReactTurn{},
		},
		{
			name: "empty",
			text: "",
			want: domain.ReactTurn{},
		},
		{
			name: "missing action input",
			text: "Thought: hmm\nAction: finish(done)",
			want: domain.ReactTurn{Thought: "hmm", Action: "finish(done)"},
		},
		{
			name: "only action input",
			text: "Action Input: orphan",
			want: domain.ReactTurn{ActionInput: "orphan"},
		},
		{
			name: "extra blocks use first action and last action input",
			text: "Thought: a\nAction: search_research(x)\nAction Input: x\nThought: b\nAction: finish(y)\nAction Input: y",
			want: domain.ReactTurn{Thought: "a", Action: "search_research(x)", ActionInput: "y"},
		},
		{
			name: "whitespace trimmed",
			text: "Thought:    padded   \nAction:\tfinish(ok)\t\nAction Input:   \n",
			want: domain.ReactTurn{Thought: "padded", Action: "finish(ok)", ActionInput: ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseReactOutput(tt.text))
		})
	}
}

func TestMatchFinish(t *testing.T) {
	tests := []struct {
		action, input string
		want          string
		ok            bool
	}{
		{"finish(All done!)", "", "All done!", true},
		{"FINISH( spaced out )", "", "spaced out", true},
		{"finish(line one\nline two)", "", "line one\nline two", true},
		{"finish", "the answer", "the answer", true},
		{"Finish", "the answer", "the answer", true},
		{"finish()", "fallback", "", false},
		{"finishing", "x", "", false},
		{"search_nutrition(x)", "x", "", false},
		{"", "x", "", false},
	}
	for _, tt := range tests {
		got, ok := MatchFinish(tt.action, tt.input)
		assert.Equal(t, tt.ok, ok, "action %q", tt.action)
		assert.Equal(t, tt.want, got, "action %q", tt.action)
	}
}

func TestClassifyAction(t *testing.T) {
	tests := []struct {
		name   string
		action string
		input  string
		want   domain.ActionIntent
	}{
		{
			name:   "call specialist with alias",
			action: "call_specialist(nutrition, plan a vegan breakfast)",
			want:   domain.ActionIntent{Kind: domain.ActionCallSpecialist, Specialist: "Nutrition Expert", Task: "plan a vegan breakfast"},
		},
		{
			name:   "task keeps inner commas",
			action: "call_specialist(Wellness Coach, sleep, stress, and habits)",
			want:   domain.ActionIntent{Kind: domain.ActionCallSpecialist, Specialist: "Wellness Coach", Task: "sleep, stress, and habits"},
		},
		{
			name:   "unknown specialist name passes through",
			action: "call_specialist(Chef, make soup)",
			want:   domain.ActionIntent{Kind: domain.ActionCallSpecialist, Specialist: "Chef", Task: "make soup"},
		},
		{
			name:   "bare call_specialist takes arguments from action input",
			action: "call_specialist",
			input:  "research, is creatine safe?",
			want:   domain.ActionIntent{Kind: domain.ActionCallSpecialist, Specialist: "Science Researcher", Task: "is creatine safe?"},
		},
		{
			name:   "bare call_specialist without comma reuses whole input as task",
			action: "Call_Specialist",
			input:  "wellness",
			want:   domain.ActionIntent{Kind: domain.ActionCallSpecialist, Specialist: "Wellness Coach", Task: "wellness"},
		},
		{
			name:   "search nutrition",
			action: "search_nutrition( oats )",
			want:   domain.ActionIntent{Kind: domain.ActionSearchNutrition, Query: "oats"},
		},
		{
			name:   "search research",
			action: "search_research(omega-3 and heart health)",
			want:   domain.ActionIntent{Kind: domain.ActionSearchResearch, Query: "omega-3 and heart health"},
		},
		{
			name:   "finish call",
			action: "finish(All done!)",
			input:  "ignored",
			want:   domain.ActionIntent{Kind: domain.ActionFinish, Response: "All done!"},
		},
		{
			name:   "finish prefix falls back to action input",
			action: "finish now",
			input:  "here you go",
			want:   domain.ActionIntent{Kind: domain.ActionFinish, Response: "here you go"},
		},
		{
			name:   "unknown",
			action: "dance()",
			want:   domain.ActionIntent{Kind: domain.ActionUnknown, Raw: "dance()"},
		},
		{
			name:   "empty action is unknown",
			action: "",
			want:   domain.ActionIntent{Kind: domain.ActionUnknown, Raw: ""},
		},
		{
			name:   "search with trailing text is unknown",
			action: "search_nutrition(oats) please",
			want:   domain.ActionIntent{Kind: domain.ActionUnknown, Raw: "search_nutrition(oats) please"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyAction(tt.action, tt.input))
		})
	}
}
