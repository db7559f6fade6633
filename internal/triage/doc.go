// Package triage drives the decision loop over a review run's surviving
// findings. It defines the Session state machine (each finding stays
// presented until it reaches a terminal accept/skip decision), the
// DecisionProvider boundary (automated or remote), and the cancellation
// semantics: a session cancelled between findings is incomplete, not failed,
// and already-recorded decisions are preserved.
package triage
