package content

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rovista/listingflow/internal/gen"
	"github.com/rovista/listingflow/pkg/workflow"
)

// Step node identifiers.
const (
	NodeDraftBrand        = "draft-brand"
	NodeDraftVisualPrompt = "draft-visual-prompt"
	NodeGenerateImage     = "generate-image"
	NodeValidate          = "validate-required-fields"
	NodeGeneratePost      = "generate-post"
	NodePublish           = "publish"
	NodeAnnouncePreview   = "announce-preview"
	NodeAwaitMoreInput    = "await-more-input"
)

// DefaultCallTimeout bounds each external collaborator call.
const DefaultCallTimeout = 30 * time.Second

// Steps bundles the collaborators the step handlers call out to.
type Steps struct {
	Text        gen.TextGenerator
	Image       gen.ImageGenerator
	Publisher   gen.Publisher
	Destination string
	CallTimeout time.Duration
}

// callCtx derives a bounded context for one collaborator call.
func (st *Steps) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := st.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// DraftBrand turns the agent's free-text intent into short branding copy.
func (st *Steps) DraftBrand(ctx workflow.Context, s State) (workflow.Update[State], error) {
	callCtx, cancel := st.callCtx(ctx)
	defer cancel()

	prompt := fmt.Sprintf("Write two punchy branding lines for this property pitch: %q", s.UserInput)
	text, err := st.Text.GenerateText(callCtx,
		"You are a real-estate marketing copywriter. Be concrete and warm, no hashtags.",
		prompt)
	if err != nil {
		return nil, err
	}
	return Update{BrandText: &text}, nil
}

// DraftVisualPrompt writes the image-generation prompt from the intent
// and branding copy.
func (st *Steps) DraftVisualPrompt(ctx workflow.Context, s State) (workflow.Update[State], error) {
	callCtx, cancel := st.callCtx(ctx)
	defer cancel()

	prompt := fmt.Sprintf(
		"Describe, in one paragraph for an image model, a photorealistic hero shot for this listing.\nPitch: %s\nBranding: %s",
		s.UserInput, s.BrandText)
	text, err := st.Text.GenerateText(callCtx,
		"You write prompts for a photorealistic image model. One paragraph, no lists.",
		prompt)
	if err != nil {
		return nil, err
	}
	return Update{VisualPrompt: &text}, nil
}

// GenerateImage renders the visual prompt to a stored asset reference.
// The generator degrades to a placeholder internally, so an error here
// means something beyond the image pipeline went wrong.
func (st *Steps) GenerateImage(ctx workflow.Context, s State) (workflow.Update[State], error) {
	callCtx, cancel := st.callCtx(ctx)
	defer cancel()

	ref, err := st.Image.GenerateImage(callCtx, s.VisualPrompt)
	if err != nil {
		return nil, err
	}
	return Update{ImageRef: &ref}, nil
}

// Validate recomputes the missing required fields. The list is always
// set, so a previous turn's result never leaks into this one.
func (st *Steps) Validate(ctx workflow.Context, s State) (workflow.Update[State], error) {
	missing := s.MissingFields()
	return Update{Missing: &missing}, nil
}

// GeneratePost writes the final post body from the branding copy and
// the structured listing fields.
func (st *Steps) GeneratePost(ctx workflow.Context, s State) (workflow.Update[State], error) {
	callCtx, cancel := st.callCtx(ctx)
	defer cancel()

	prompt := fmt.Sprintf(
		"Write a social post for this listing.\nBranding: %s\nLocation: %s\nPrice: %s\nBedrooms: %s\nFeatures: %s",
		s.BrandText, s.Listing.Location, s.Listing.Price, s.Listing.Bedrooms,
		strings.Join(s.Listing.Features, ", "))
	text, err := st.Text.GenerateText(callCtx,
		"You are a real-estate agent posting to a property page. Under 120 words, end with a call to action.",
		prompt)
	if err != nil {
		return nil, err
	}
	return Update{PostText: &text}, nil
}

// PublishPost pushes the finished post to the social platform.
func (st *Steps) PublishPost(ctx workflow.Context, s State) (workflow.Update[State], error) {
	callCtx, cancel := st.callCtx(ctx)
	defer cancel()

	outcome, err := st.Publisher.Publish(callCtx, gen.PublishRequest{
		Message:     s.PostText,
		AssetRef:    s.ImageRef,
		Destination: st.Destination,
	})
	if err != nil {
		return nil, err
	}

	result := &PublishResult{
		Status:  StatusPublished,
		Message: outcome.Message,
		PostID:  outcome.PostID,
		URL:     outcome.URL,
	}
	if !outcome.OK {
		result.Status = StatusFailed
	}
	return Update{Publish: result}, nil
}

// AnnouncePreview records the post as preview-only; nothing leaves the
// process.
func (st *Steps) AnnouncePreview(ctx workflow.Context, s State) (workflow.Update[State], error) {
	result := &PublishResult{
		Status:  StatusPreview,
		Message: "preview ready - not published",
	}
	return Update{Publish: result}, nil
}

// AwaitMoreInput is the no-op terminal for turns paused on validation.
func (st *Steps) AwaitMoreInput(ctx workflow.Context, s State) (workflow.Update[State], error) {
	return nil, nil
}

// RouteValidation branches on whether any required field is missing.
func RouteValidation(ctx workflow.Context, s State) string {
	if len(s.Missing) > 0 {
		return NodeAwaitMoreInput
	}
	return NodeGeneratePost
}

// RoutePublish branches on the caller's auto-publish flag.
func RoutePublish(ctx workflow.Context, s State) string {
	if s.AutoPublish {
		return NodePublish
	}
	return NodeAnnouncePreview
}
