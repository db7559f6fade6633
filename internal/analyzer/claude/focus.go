package claude

// ReviewFocus maps each review category to the guidance its analyzer injects
// into the prompt. main registers one analyzer per entry.
var ReviewFocus = map[string]string{
	"security": `Look for injection risks, missing authentication or authorization,
secrets in code, unsafe deserialization, path traversal, and unvalidated input
crossing a trust boundary. Ignore style and anything a linter would catch.`,

	"performance": `Look for work inside hot loops, N+1 query patterns, unbounded
memory growth, missing pagination, synchronous calls that should batch, and
accidental quadratic behavior. Ignore micro-optimizations with no measured cost.`,

	"platform-pattern": `Look for misuse of the platform's conventions: ignored
errors, leaked goroutines or handles, missing context propagation, improper
shutdown, and API contracts the surrounding codebase establishes but this
change violates.`,

	"design": `Look for leaky abstractions, circular ownership, interfaces that
expose implementation detail, and responsibilities landing in the wrong
component. Only report issues that make the change harder to evolve.`,

	"quality": `Look for dead code, unreachable branches, swallowed errors,
misleading names, and missing test coverage for behavior this change adds.
Do not report formatting or subjective style preferences.`,
}
