package gen

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// PlaceholderAsset is returned whenever image generation fails.
// Deterministic so downstream posting stays stable across retries.
const PlaceholderAsset = "assets/placeholder-listing.png"

// DefaultImageModel is the model used for listing visuals.
var DefaultImageModel = openai.ImageModelDallE3

// OpenAIImage implements ImageGenerator on the OpenAI Images API.
// Generated images are written under AssetDir and referenced by path.
type OpenAIImage struct {
	client   openai.Client
	model    openai.ImageModel
	assetDir string
	logger   *slog.Logger
	options  []option.RequestOption
}

// Compile-time interface check.
var _ ImageGenerator = (*OpenAIImage)(nil)

// ImageOption configures the OpenAI image generator.
type ImageOption func(*OpenAIImage)

// WithImageAPIKey sets the API key explicitly.
func WithImageAPIKey(apiKey string) ImageOption {
	return func(g *OpenAIImage) {
		g.options = append(g.options, option.WithAPIKey(apiKey))
	}
}

// WithImageModel sets the image model.
func WithImageModel(model string) ImageOption {
	return func(g *OpenAIImage) {
		g.model = openai.ImageModel(model)
	}
}

// WithAssetDir sets the directory generated images are written to.
func WithAssetDir(dir string) ImageOption {
	return func(g *OpenAIImage) {
		g.assetDir = dir
	}
}

// WithImageHTTPClient sets the underlying HTTP client.
func WithImageHTTPClient(client *http.Client) ImageOption {
	return func(g *OpenAIImage) {
		g.options = append(g.options, option.WithHTTPClient(client))
	}
}

// WithImageLogger sets the logger used for degradation warnings.
func WithImageLogger(logger *slog.Logger) ImageOption {
	return func(g *OpenAIImage) {
		g.logger = logger
	}
}

// NewOpenAIImage creates an image generator backed by the OpenAI API.
func NewOpenAIImage(opts ...ImageOption) *OpenAIImage {
	g := &OpenAIImage{
		model:    DefaultImageModel,
		assetDir: "assets",
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.client = openai.NewClient(g.options...)
	return g
}

// GenerateImage implements ImageGenerator. Failures never propagate:
// the placeholder asset reference is returned instead so the content
// turn keeps going without a visual.
func (g *OpenAIImage) GenerateImage(ctx context.Context, prompt string) (string, error) {
	ref, err := g.generate(ctx, prompt)
	if err != nil {
		g.logger.Warn("image generation degraded to placeholder",
			slog.String("error", err.Error()))
		return PlaceholderAsset, nil
	}
	return ref, nil
}

func (g *OpenAIImage) generate(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("empty prompt")
	}

	params := openai.ImageGenerateParams{
		Prompt:         prompt,
		Model:          g.model,
		Size:           openai.ImageGenerateParamsSize1024x1024,
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
		N:              openai.Int(1),
	}

	response, err := g.client.Images.Generate(ctx, params)
	if err != nil {
		return "", fmt.Errorf("error generating image: %w", err)
	}

	if len(response.Data) == 0 {
		return "", fmt.Errorf("no images were generated")
	}

	raw, err := base64.StdEncoding.DecodeString(response.Data[0].B64JSON)
	if err != nil {
		return "", fmt.Errorf("error decoding image data: %w", err)
	}

	if err := os.MkdirAll(g.assetDir, 0o755); err != nil {
		return "", fmt.Errorf("error creating asset dir: %w", err)
	}

	path := filepath.Join(g.assetDir, uuid.New().String()+".png")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("error writing asset: %w", err)
	}

	return path, nil
}
