package harness

import "github.com/roach88/lineage/internal/ir"

// TraceEvent records one applied object declaration or step.
type TraceEvent struct {
	Step    int         `json:"step"`
	Op      string      `json:"op"`
	Target  string      `json:"target"`
	Source  string      `json:"source,omitempty"`
	Detail  string      `json:"detail,omitempty"`
	ID      ir.ObjectID `json:"id"`
	Outcome string      `json:"outcome"`
}

// Result is the outcome of applying or running a scenario.
type Result struct {
	// Pass is true when every step met its expectation and every assertion held.
	Pass bool `json:"pass"`

	// Objects maps each declared alias to its object id.
	Objects map[string]ir.ObjectID `json:"objects"`

	// Trace lists applied declarations and steps in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains step and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Objects: make(map[string]ir.ObjectID),
		Trace:   []TraceEvent{},
		Errors:  []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an event to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
