// Package ai provides text-generation clients. The live client speaks the
// Anthropic messages REST API; the demo client returns deterministic canned
// output so the service runs without an API key.
package ai

import (
	"context"
	"errors"
)

var (
	ErrNotConfigured  = errors.New("generation client not configured")
	ErrInvalidRequest = errors.New("invalid generation request")
	ErrUnauthorized   = errors.New("generation request unauthorized")
	ErrRateLimited    = errors.New("generation rate limited")
	ErrTimeout        = errors.New("generation timed out")
	ErrUnavailable    = errors.New("generation service unavailable")
)

// Request is a single system+user generation call. MaxTokens of zero means
// the client's configured default.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Client produces raw model text for a request. Implementations must honor
// ctx cancellation and map transport failures onto the package sentinels.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}
