package claude

import (
	"context"
	"fmt"
	"strings"

	"github.com/linnemanlabs/sift/internal/analyzer"
)

// Completer is the LLM boundary the analyzer needs. Implemented by Client.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Analyzer reviews a target for a single category via one LLM call.
type Analyzer struct {
	completer Completer
	category  string
	focus     string
}

// New creates a category analyzer. focus is the category-specific review
// guidance injected into the prompt.
func New(completer Completer, category, focus string) *Analyzer {
	return &Analyzer{completer: completer, category: category, focus: focus}
}

// Name implements analyzer.Analyzer.
func (a *Analyzer) Name() string { return "claude-" + a.category }

// Analyze implements analyzer.Analyzer. A response that is not a valid JSON
// finding list is an analyzer failure; the pipeline degrades it to an empty
// contribution.
func (a *Analyzer) Analyze(ctx context.Context, target analyzer.Target) ([]analyzer.RawFinding, error) {
	content, err := a.completer.Complete(ctx, systemPrompt(a.category, a.focus), userPrompt(target))
	if err != nil {
		return nil, err
	}

	findings, err := parseFindings(content)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid response: %w", a.Name(), err)
	}

	// the model reviews one concern; enforce it rather than trust it
	for i := range findings {
		findings[i].Category = a.category
	}
	return findings, nil
}

func systemPrompt(category, focus string) string {
	return fmt.Sprintf(`You are a code review analyzer focused exclusively on %s.

%s

Report each observation as an object in a single JSON array with fields:
  title (string, required)
  category (string, always %q)
  severity ("P1" | "P2" | "P3", required; P1 is most severe)
  file (string, repository-relative path; omit for repo-wide observations)
  line (integer, line number in the new version; omit for repo-wide observations)
  description (string)
  evidence (array of strings: quoted excerpts from the diff)
  signals (object of booleans; set only signals you are sure about:
    changed_content, documented_rule, unchanged_content,
    deterministic_check, suppressed, style_preference)

Respond with ONLY the JSON array. No prose, no markdown fences.`, category, focus, category)
}

func userPrompt(target analyzer.Target) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Repository: %s\nRef: %s\n", target.Repo, target.Ref)
	if len(target.Files) > 0 {
		sb.WriteString("Files changed:\n")
		for _, f := range target.Files {
			sb.WriteString("  " + f + "\n")
		}
	}
	sb.WriteString("\nUnified diff under review:\n\n")
	sb.WriteString(target.Diff)
	return sb.String()
}
