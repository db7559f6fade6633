package claude

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/linnemanlabs/sift/internal/analyzer"
)

// parseFindings decodes the model's JSON array, tolerating markdown code
// fences the model sometimes wraps around otherwise valid output.
func parseFindings(content string) ([]analyzer.RawFinding, error) {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		lines := strings.Split(content, "\n")
		if len(lines) >= 2 {
			start := 1
			end := len(lines)
			if strings.TrimSpace(lines[end-1]) == "```" {
				end--
			}
			content = strings.Join(lines[start:end], "\n")
		}
	}

	var findings []analyzer.RawFinding
	if err := json.Unmarshal([]byte(content), &findings); err != nil {
		return nil, fmt.Errorf("invalid JSON array: %w", err)
	}
	return findings, nil
}
