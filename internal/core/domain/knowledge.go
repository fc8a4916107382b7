package domain

// Knowledge collections backing the two retrieval lookups
const (
	CollectionNutrition = "nutrition"
	CollectionResearch  = "research"
)

// KnowledgeDoc is one retrievable passage
type KnowledgeDoc struct {
	ID         string `json:"id"`
	Collection string `json:"collection"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Source     string `json:"source,omitempty"`
}
