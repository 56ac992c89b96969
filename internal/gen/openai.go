package gen

import (
	"context"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

// Defaults for the OpenAI-backed text generator.
var (
	DefaultTextModel = openai.ChatModelGPT4o
	DefaultMaxTokens = 1024
)

// OpenAIText implements TextGenerator on the OpenAI Responses API.
type OpenAIText struct {
	client    openai.Client
	model     openai.ChatModel
	maxTokens int
	options   []option.RequestOption
}

// Compile-time interface check.
var _ TextGenerator = (*OpenAIText)(nil)

// TextOption configures the OpenAI text generator.
type TextOption func(*OpenAIText)

// WithTextAPIKey sets the API key explicitly.
// Defaults to the OPENAI_API_KEY environment variable.
func WithTextAPIKey(apiKey string) TextOption {
	return func(t *OpenAIText) {
		t.options = append(t.options, option.WithAPIKey(apiKey))
	}
}

// WithTextModel sets the model used for generation.
func WithTextModel(model string) TextOption {
	return func(t *OpenAIText) {
		t.model = openai.ChatModel(model)
	}
}

// WithTextMaxTokens bounds the generated output length.
func WithTextMaxTokens(n int) TextOption {
	return func(t *OpenAIText) {
		t.maxTokens = n
	}
}

// WithTextHTTPClient sets the underlying HTTP client.
func WithTextHTTPClient(client *http.Client) TextOption {
	return func(t *OpenAIText) {
		t.options = append(t.options, option.WithHTTPClient(client))
	}
}

// NewOpenAIText creates a text generator backed by the OpenAI API.
func NewOpenAIText(opts ...TextOption) *OpenAIText {
	t := &OpenAIText{
		model:     DefaultTextModel,
		maxTokens: DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.client = openai.NewClient(t.options...)
	return t
}

// GenerateText implements TextGenerator.
func (t *OpenAIText) GenerateText(ctx context.Context, instructions, prompt string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("empty prompt")
	}

	params := responses.ResponseNewParams{
		Model: t.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(prompt),
		},
		MaxOutputTokens: openai.Int(int64(t.maxTokens)),
	}
	if instructions != "" {
		params.Instructions = openai.String(instructions)
	}

	response, err := t.client.Responses.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("error making request: %w", err)
	}

	text := collectOutputText(response)
	if text == "" {
		return "", fmt.Errorf("response contained no text output")
	}
	return text, nil
}

// collectOutputText concatenates the output_text blocks of a response.
func collectOutputText(response *responses.Response) string {
	var text string
	for _, item := range response.Output {
		if item.Type != "message" {
			continue
		}
		msg := item.AsMessage()
		for _, content := range msg.Content {
			if content.Type == "output_text" {
				text += content.AsOutputText().Text
			}
		}
	}
	return text
}
