package harness

// QueryOutcome is what one query step produced.
type QueryOutcome struct {
	Name  string   `json:"name"`
	IDs   []string `json:"ids"`
	Count int      `json:"count"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Queries holds one outcome per query step, in scenario order.
	// Used for golden comparison.
	Queries []QueryOutcome `json:"queries"`

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Queries: []QueryOutcome{},
		Errors:  []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
