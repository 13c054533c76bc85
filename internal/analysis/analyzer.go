// Package analysis defines the pluggable backend that turns a user message
// into a derived assistant reply.
package analysis

import (
	"context"
	"fmt"
	"time"
)

// Request carries one completed user message into the analysis backend.
type Request struct {
	ConversationID string
	Content        string
	// AttachmentRef is the stored reference of the message's image, if any.
	AttachmentRef string
}

// Result is the derived assistant output.
type Result struct {
	Content string
	// AnnotationRef optionally points at a processed artifact derived from
	// the attachment (e.g. a segmentation mask).
	AnnotationRef string
}

// Analyzer produces exactly one derived message per request. Implementations
// run out-of-band from ingestion and must respect ctx cancellation.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (Result, error)
}

// Stub is a fixed-delay placeholder backend producing canned analysis text.
// It stands in for the real segmentation/LLM pipeline during development.
type Stub struct {
	delay time.Duration
}

// NewStub creates a stub analyzer with the given artificial delay.
func NewStub(delay time.Duration) *Stub {
	if delay < 0 {
		delay = 0
	}
	return &Stub{delay: delay}
}

// Analyze waits for the configured delay and fabricates a reply quoting the
// query. It returns no annotation ref; real backends fill Result.AnnotationRef
// with their derived artifact.
func (s *Stub) Analyze(ctx context.Context, req Request) (Result, error) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-timer.C:
		}
	}
	return Result{
		Content: fmt.Sprintf(
			"Analysis complete for query: %q. Reasoning-based segmentation identifies 3 high-priority threats.",
			req.Content,
		),
	}, nil
}
