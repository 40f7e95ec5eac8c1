package domain

// Narrative is the optional model-generated commentary attached to an
// analysis response. Summary is cleaned Markdown; absence is represented
// as a nil pointer, never an error.
type Narrative struct {
	Summary    string   `json:"summary"`
	Highlights []string `json:"highlights"`
	Cautions   []string `json:"cautions"`
}
