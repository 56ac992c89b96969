// Package gen defines the external collaborators the orchestrator's
// steps call out to: text generation, image generation, and
// social-platform publishing. The orchestrator core consumes these
// interfaces; the concrete clients live in this package too.
package gen

import "context"

// TextGenerator produces text from a prompt.
type TextGenerator interface {
	// GenerateText runs a single prompt and returns the generated text.
	// instructions carries the system-level framing and may be empty.
	GenerateText(ctx context.Context, instructions, prompt string) (string, error)
}

// ImageGenerator produces a stored-asset reference from a prompt.
//
// Implementations degrade rather than fail: when generation errors,
// they return a deterministic placeholder asset reference and no error,
// so a broken image pipeline never aborts a content turn.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// PublishRequest describes one post to push to the social platform.
type PublishRequest struct {
	// Message is the post body.
	Message string `json:"message"`
	// AssetRef optionally attaches a generated image.
	AssetRef string `json:"asset_ref,omitempty"`
	// Destination identifies the page/account to post to.
	Destination string `json:"destination"`
}

// PublishOutcome is the platform's answer to a publish attempt.
type PublishOutcome struct {
	// OK reports whether the platform accepted the post.
	OK bool `json:"ok"`
	// Message is a human-readable status line.
	Message string `json:"message"`
	// PostID is the platform's identifier for the created post.
	PostID string `json:"post_id,omitempty"`
	// URL is the public link to the created post.
	URL string `json:"url,omitempty"`
}

// Publisher pushes finished content to the social platform.
type Publisher interface {
	Publish(ctx context.Context, req PublishRequest) (*PublishOutcome, error)
}
