package gen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// SocialPublisher implements Publisher against the social platform's
// page-post HTTP API.
type SocialPublisher struct {
	endpoint string
	token    string
	client   *http.Client
}

// Compile-time interface check.
var _ Publisher = (*SocialPublisher)(nil)

// PublisherOption configures the social publisher.
type PublisherOption func(*SocialPublisher)

// WithPublisherHTTPClient sets the underlying HTTP client.
func WithPublisherHTTPClient(client *http.Client) PublisherOption {
	return func(p *SocialPublisher) {
		p.client = client
	}
}

// NewSocialPublisher creates a publisher posting to the given endpoint
// with a bearer token.
func NewSocialPublisher(endpoint, token string, opts ...PublisherOption) *SocialPublisher {
	p := &SocialPublisher{
		endpoint: endpoint,
		token:    token,
		client:   http.DefaultClient,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// publishResponse is the platform's wire response.
type publishResponse struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Message string `json:"message"`
}

// Publish implements Publisher.
func (p *SocialPublisher) Publish(ctx context.Context, req PublishRequest) (*PublishOutcome, error) {
	if req.Message == "" {
		return nil, fmt.Errorf("empty post message")
	}
	if req.Destination == "" {
		return nil, fmt.Errorf("no destination page")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("error encoding publish request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &PublishOutcome{
			OK:      false,
			Message: fmt.Sprintf("platform rejected post (status %d): %s", resp.StatusCode, string(data)),
		}, nil
	}

	var decoded publishResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("error decoding response: %w", err)
	}

	msg := decoded.Message
	if msg == "" {
		msg = "post published"
	}

	return &PublishOutcome{
		OK:      true,
		Message: msg,
		PostID:  decoded.ID,
		URL:     decoded.URL,
	}, nil
}
