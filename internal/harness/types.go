package harness

import (
	"github.com/roach88/flatc/internal/compiler"
	"github.com/roach88/flatc/internal/store"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	Pass bool `json:"pass"`

	// RunID identifies the run recorded for this scenario.
	RunID string `json:"run_id"`

	// Listing is the compiler.Dump rendering of a successful lowering.
	Listing string `json:"listing,omitempty"`

	// Emissions is the emission order of a successful lowering.
	Emissions []compiler.Emission `json:"-"`

	// Symbols are the flat names recorded for the run.
	Symbols []store.Symbol `json:"symbols,omitempty"`

	// Stats are the pipeline counters of a successful lowering.
	Stats compiler.Stats `json:"stats"`

	// Err is the lowering error, if any.
	Err error `json:"-"`

	// Errors contains expectation and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
