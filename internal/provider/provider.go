// ABOUTME: Generator interface for the pluggable text-generation capability
// ABOUTME: The inbox core invokes generation but never implements it

package provider

import "context"

// Generator is the externally supplied text-generation capability. Given a
// system instruction and a user message it produces text. Implementations own
// their retry policy; callers treat every failure the same way (degrade).
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// GenerateRequest is one generation call.
type GenerateRequest struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}
