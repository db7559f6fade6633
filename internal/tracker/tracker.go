// Package tracker converts accepted findings into external issue-tracker
// tasks, with bounded, independent retries per submission.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linnemanlabs/sift/internal/review"
)

const httpTimeout = 10 * time.Second

// Task is the external tracker's create-task call contract.
type Task struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	Labels      []string `json:"labels"`
}

// Tracker is the boundary to the external issue/task system.
type Tracker interface {
	CreateTask(ctx context.Context, t Task) (externalID string, err error)
}

// Tracker priority scale. Every severity maps deterministically; there is no
// fallthrough default.
const (
	PriorityHighest = "highest"
	PriorityMedium  = "medium"
	PriorityLowest  = "lowest"
)

// PriorityFor is the total severity-to-priority mapping. An unknown severity
// is an error, never a silent default.
func PriorityFor(s review.Severity) (string, error) {
	switch s {
	case review.SeverityP1:
		return PriorityHighest, nil
	case review.SeverityP2:
		return PriorityMedium, nil
	case review.SeverityP3:
		return PriorityLowest, nil
	}
	return "", fmt.Errorf("tracker: no priority mapping for severity %q", s)
}

// BuildTask renders a finding into the tracker call contract.
func BuildTask(f review.Finding) (Task, error) {
	priority, err := PriorityFor(f.Severity)
	if err != nil {
		return Task{}, err
	}

	var b strings.Builder
	if f.File != "" {
		fmt.Fprintf(&b, "Location: %s", f.File)
		if f.Line > 0 {
			fmt.Fprintf(&b, ":%d", f.Line)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Confidence: %d\n", f.Confidence)
	fmt.Fprintf(&b, "Reported by: %s\n", f.SourceAnalyzer)
	if f.Conflict {
		b.WriteString("Severity is contested between analyzers; verify before scheduling.\n")
	}
	if f.Description != "" {
		b.WriteString("\n" + f.Description + "\n")
	}
	for _, ev := range f.Evidence {
		b.WriteString("\n> " + ev + "\n")
	}

	return Task{
		Title:       f.Title,
		Description: b.String(),
		Priority:    priority,
		Labels:      []string{"sift", string(f.Category), f.SourceAnalyzer},
	}, nil
}

// Client talks to the external tracker's create-task HTTP endpoint.
type Client struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewClient creates a tracker client for the given create-task endpoint.
// token, when non-empty, is sent as a bearer token.
func NewClient(endpoint, token string) *Client {
	return &Client{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: httpTimeout},
	}
}

// CreateTask posts the task and returns the tracker-assigned identifier.
func (c *Client) CreateTask(ctx context.Context, t Task) (string, error) {
	body, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("tracker: marshal task: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("tracker: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req) //nolint:gosec // G704: endpoint is from trusted config, not user input
	if err != nil {
		return "", fmt.Errorf("tracker: post task: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("tracker: create task returned %d: %s", resp.StatusCode, string(respBody))
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("tracker: decode response: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("tracker: response missing task id")
	}
	return out.ID, nil
}
