package gen

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingTransport refuses every request.
type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("no route to host")
}

// TestOpenAIImage_EmptyPrompt_Placeholder tests degradation on an empty
// prompt without touching the network.
func TestOpenAIImage_EmptyPrompt_Placeholder(t *testing.T) {
	g := NewOpenAIImage(WithImageAPIKey("test-key"))

	ref, err := g.GenerateImage(context.Background(), "")

	require.NoError(t, err)
	assert.Equal(t, PlaceholderAsset, ref)
}

// TestOpenAIImage_TransportFailure_Placeholder tests that an API outage
// degrades to the placeholder instead of failing the step.
func TestOpenAIImage_TransportFailure_Placeholder(t *testing.T) {
	g := NewOpenAIImage(
		WithImageAPIKey("test-key"),
		WithImageHTTPClient(&http.Client{Transport: failingTransport{}}),
	)

	ref, err := g.GenerateImage(context.Background(), "hero shot of a balcony")

	require.NoError(t, err)
	assert.Equal(t, PlaceholderAsset, ref)
}

// TestOpenAIImage_PlaceholderIsDeterministic tests that repeated
// failures yield the same reference.
func TestOpenAIImage_PlaceholderIsDeterministic(t *testing.T) {
	g := NewOpenAIImage(
		WithImageAPIKey("test-key"),
		WithImageHTTPClient(&http.Client{Transport: failingTransport{}}),
	)

	first, err := g.GenerateImage(context.Background(), "prompt a")
	require.NoError(t, err)
	second, err := g.GenerateImage(context.Background(), "prompt b")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
