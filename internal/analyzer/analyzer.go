package analyzer

import "context"

// Target describes what a review run operates on: a repository reference
// plus the unified diff under review.
type Target struct {
	Repo  string   `json:"repo"`
	Ref   string   `json:"ref"`
	Diff  string   `json:"diff"`
	Files []string `json:"files,omitempty"`
}

// RawFinding is the output contract every analyzer produces. Payloads are
// validated and normalized by the review ingestor; a malformed payload is
// rejected individually, never the whole batch.
type RawFinding struct {
	Title       string          `json:"title"`
	Category    string          `json:"category"`
	Severity    string          `json:"severity"`
	File        string          `json:"file,omitempty"`
	Line        int             `json:"line,omitempty"`
	Description string          `json:"description,omitempty"`
	Evidence    []string        `json:"evidence,omitempty"`
	Signals     map[string]bool `json:"signals,omitempty"`
}

// Confidence signal names analyzers may set on a RawFinding. The ingestor
// derives SignalLocation and SignalExcerpt from the payload itself so they
// always reflect the data actually attached.
const (
	// Evidence-quality signals (each worth +20, at most four counted).
	SignalLocation       = "location"        // file and line present
	SignalExcerpt        = "excerpt"         // quoted code/content attached
	SignalChangedContent = "changed_content" // concerns content changed vs baseline
	SignalDocumentedRule = "documented_rule" // names a specific documented rule

	// False-positive indicators (each worth -20, uncapped).
	SignalUnchangedContent   = "unchanged_content"   // concerns unchanged/baseline content
	SignalDeterministicCheck = "deterministic_check" // a cheaper deterministic check would catch it
	SignalSuppressed         = "suppressed"          // carries an explicit suppression marker
	SignalStylePreference    = "style_preference"    // subjective style preference, not a defect
)

// Analyzer is a domain-specific producer of candidate findings for a target.
// Implementations are opaque to the pipeline; only the output contract matters.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, target Target) ([]RawFinding, error)
}

// Registry holds the analyzers available to a review run.
type Registry struct {
	analyzers map[string]Analyzer
	order     []string
}

// NewRegistry creates an empty analyzer registry.
func NewRegistry() *Registry {
	return &Registry{analyzers: make(map[string]Analyzer)}
}

// Register adds an analyzer to the registry, keyed by its Name. Registering
// the same name twice replaces the earlier entry but keeps its position.
func (r *Registry) Register(a Analyzer) {
	if _, ok := r.analyzers[a.Name()]; !ok {
		r.order = append(r.order, a.Name())
	}
	r.analyzers[a.Name()] = a
}

// Get retrieves an analyzer by name, returns the analyzer and a boolean indicating if it was found.
func (r *Registry) Get(name string) (Analyzer, bool) {
	a, ok := r.analyzers[name]
	return a, ok
}

// All returns registered analyzers in registration order.
func (r *Registry) All() []Analyzer {
	out := make([]Analyzer, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.analyzers[name])
	}
	return out
}

// Len reports the number of registered analyzers.
func (r *Registry) Len() int {
	return len(r.analyzers)
}
