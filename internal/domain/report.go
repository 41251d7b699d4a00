package domain

// Tally is one labelled count in a report distribution.
type Tally struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Report describes the classified corpus.
type Report struct {
	GeneratedAt    string  `json:"generated_at"`
	Processed      int     `json:"processed"`
	Accepted       int     `json:"accepted"`
	Rejected       int     `json:"rejected"`
	AcceptanceRate float64 `json:"acceptance_rate"`

	Categories      []Tally `json:"categories"`
	Areas           []Tally `json:"civil_engineering_areas"`
	Techniques      []Tally `json:"ai_techniques"`
	Stages          []Tally `json:"application_stages"`
	SourceTypes     []Tally `json:"source_types"`
	TopSources      []Tally `json:"top_sources"`
	Months          []Tally `json:"months"`
	TopKeywords     []Tally `json:"top_keywords"`
	RejectionCauses []Tally `json:"rejection_causes"`
}
