package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultBaseURL is ZhipuAI's OpenAI-compatible endpoint for the GLM models.
const DefaultBaseURL = "https://open.bigmodel.cn/api/paas/v4/"

// Completer is the single synchronous call the pipeline needs from an LLM.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// GLMClient talks to a GLM (or any OpenAI-compatible) chat completions
// endpoint with fixed sampling parameters.
type GLMClient struct {
	client      *openai.Client
	model       string
	temperature float64
	maxTokens   int
	thinking    bool
}

type GLMClientOptions struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	// Thinking enables the GLM reasoning mode, a Zhipu extension to the
	// chat completions request body.
	Thinking bool
}

func NewGLMClient(opts GLMClientOptions) (*GLMClient, error) {
	if opts.APIKey == "" {
		return nil, errors.New("glm client: missing API key")
	}
	if opts.Model == "" {
		return nil, errors.New("glm client: missing model")
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := openai.NewClient(
		option.WithAPIKey(opts.APIKey),
		option.WithBaseURL(baseURL),
	)
	return &GLMClient{
		client:      &client,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		thinking:    opts.Thinking,
	}, nil
}

func (g *GLMClient) Complete(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxTokens:   openai.Int(int64(g.maxTokens)),
		Temperature: openai.Float(g.temperature),
	}

	var reqOpts []option.RequestOption
	if g.thinking {
		reqOpts = append(reqOpts, option.WithJSONSet("thinking", map[string]string{"type": "enabled"}))
	}

	resp, err := g.client.Chat.Completions.New(ctx, params, reqOpts...)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}
