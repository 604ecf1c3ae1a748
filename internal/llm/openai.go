package llm

import (
	"context"
	"fmt"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const defaultRequestTimeout = 60 * time.Second

// OpenAI is a Completer backed by the OpenAI chat completions API.
type OpenAI struct {
	client  *openai.Client
	model   openai.ChatModel
	timeout time.Duration
}

// NewOpenAI builds the backend. With an empty apiKey every call fails with
// ErrClientNotInitialised.
func NewOpenAI(apiKey, model string, timeout time.Duration) *OpenAI {
	if apiKey == "" {
		return &OpenAI{}
	}
	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	// Retries are owned by Client; the SDK must not retry on its own.
	client := openai.NewClient(option.WithAPIKey(apiKey), option.WithMaxRetries(0))
	return &OpenAI{
		client:  &client,
		model:   openai.ChatModel(model),
		timeout: timeout,
	}
}

// Complete sends req as a single user message. TopK has no OpenAI
// equivalent and is ignored.
func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	if o.client == nil {
		return "", ErrClientNotInitialised
	}

	params := openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(req.Prompt),
					},
				},
			},
		},
		Temperature:         openai.Float(req.Temperature),
		TopP:                openai.Float(req.TopP),
		MaxCompletionTokens: openai.Int(int64(req.MaxOutputTokens)),
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion received")
	}
	return resp.Choices[0].Message.Content, nil
}
