package domain

// OrchestratorModule is the module name recorded on every step the Head Coach produces.
const OrchestratorModule = "Orchestrator Agent"

// MaxIterations bounds the ReAct loop before forced synthesis kicks in.
const MaxIterations = 5

// ReactTurn is one parsed Thought / Action / Action Input block.
// Missing markers leave the corresponding field empty.
type ReactTurn struct {
	Thought     string `json:"thought"`
	Action      string `json:"action"`       // raw expression, e.g. call_specialist(Nutrition Expert, plan a meal)
	ActionInput string `json:"action_input"` // free text
}

// ActionKind tags the variant held by an ActionIntent.
type ActionKind string

const (
	ActionCallSpecialist  ActionKind = "call_specialist"
	ActionSearchNutrition ActionKind = "search_nutrition"
	ActionSearchResearch  ActionKind = "search_research"
	ActionFinish          ActionKind = "finish"
	ActionUnknown         ActionKind = "unknown"
)

// ActionIntent is the classified form of a turn's action.
// Only the fields belonging to Kind are populated.
type ActionIntent struct {
	Kind ActionKind `json:"kind"`

	// call_specialist
	Specialist string `json:"specialist,omitempty"`
	Task       string `json:"task,omitempty"`

	// search_nutrition, search_research
	Query string `json:"query,omitempty"`

	// finish
	Response string `json:"response,omitempty"`

	// unknown
	Raw string `json:"raw,omitempty"`
}
