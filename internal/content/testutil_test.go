package content

import (
	"context"
	"fmt"

	"github.com/rovista/listingflow/internal/gen"
	"github.com/rovista/listingflow/pkg/workflow"
)

// Fake collaborators shared across tests.

// fakeText returns canned text keyed by call order and records prompts.
type fakeText struct {
	replies []string
	calls   int
	prompts []string
	err     error
}

func (f *fakeText) GenerateText(_ context.Context, _, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	reply := fmt.Sprintf("text-%d", f.calls)
	if f.calls < len(f.replies) {
		reply = f.replies[f.calls]
	}
	f.calls++
	return reply, nil
}

// fakeImage returns a fixed asset reference.
type fakeImage struct {
	ref   string
	calls int
}

func (f *fakeImage) GenerateImage(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.ref == "" {
		return gen.PlaceholderAsset, nil
	}
	return f.ref, nil
}

// fakePublisher records requests and returns a configurable outcome.
type fakePublisher struct {
	outcome *gen.PublishOutcome
	err     error
	reqs    []gen.PublishRequest
}

func (f *fakePublisher) Publish(_ context.Context, req gen.PublishRequest) (*gen.PublishOutcome, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	if f.outcome != nil {
		return f.outcome, nil
	}
	return &gen.PublishOutcome{OK: true, Message: "posted", PostID: "p-1", URL: "https://social.example/p-1"}, nil
}

// testSteps builds a Steps over the given fakes.
func testSteps(text *fakeText, image *fakeImage, pub *fakePublisher) *Steps {
	return &Steps{
		Text:        text,
		Image:       image,
		Publisher:   pub,
		Destination: "facebook",
	}
}

// wfCtx creates a workflow context for direct handler calls.
func wfCtx() workflow.Context {
	return workflow.NewContext(context.Background())
}

// strptr helpers for building expected updates.
func strptr(s string) *string { return &s }
