package llm

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rotisserie/eris"

	"github.com/sells-group/legal-analyzer/internal/resilience"
)

// OpenAIClient generates text and embeddings through the OpenAI API.
type OpenAIClient struct {
	client         *openai.Client
	model          string
	embeddingModel string
}

// NewOpenAIClient creates an OpenAI-backed client. embeddingModel is used by
// Embed; pass "" to default to text-embedding-3-small.
func NewOpenAIClient(apiKey, model, embeddingModel string) *OpenAIClient {
	if embeddingModel == "" {
		embeddingModel = "text-embedding-3-small"
	}
	return &OpenAIClient{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
		),
		model:          model,
		embeddingModel: embeddingModel,
	}
}

func (c *OpenAIClient) Name() string { return "openai" }

func (c *OpenAIClient) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.F(c.model),
		Messages:    openai.F(messages),
		Temperature: openai.F(req.Temperature),
		MaxTokens:   openai.F(req.MaxTokens),
	})
	if err != nil {
		wrapped := eris.Wrap(err, "openai: chat completion")
		var apierr *openai.Error
		if errors.As(err, &apierr) && resilience.IsTransientHTTPStatus(apierr.StatusCode) {
			return "", resilience.NewTransientError(wrapped, apierr.StatusCode)
		}
		return "", wrapped
	}
	if len(resp.Choices) == 0 {
		return "", eris.New("openai: chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.F(c.embeddingModel),
		Input: openai.F[openai.EmbeddingNewParamsInputUnion](
			openai.EmbeddingNewParamsInputArrayOfStrings{text},
		),
	})
	if err != nil {
		return nil, eris.Wrap(err, "openai: create embedding")
	}
	if len(resp.Data) == 0 {
		return nil, eris.New("openai: embedding response is empty")
	}

	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}
