package providers

import (
	"context"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider implements the Provider interface for OpenAI.
type OpenAIProvider struct {
	Base
	client openai.Client
}

// NewOpenAI creates a new OpenAI provider. The optional baseURL parameter
// allows overriding the API endpoint (pass "" for the default).
func NewOpenAI(apiKey string, baseURL string) (*OpenAIProvider, error) {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	resolvedBase := "https://api.openai.com"
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
		resolvedBase = baseURL
	}
	client := openai.NewClient(opts...)
	return &OpenAIProvider{
		Base:   Base{name: "openai", apiKey: apiKey, baseURL: resolvedBase},
		client: client,
	}, nil
}

// SupportedModels returns the list of models supported by this provider.
// For now, we return a static list, but this could be dynamic.
func (p *OpenAIProvider) SupportedModels() []string {
	return []string{
		"gpt-4o",
		"gpt-4-turbo",
		"gpt-4",
		"gpt-3.5-turbo",
	}
}

// SupportsModel returns true if the model matches known OpenAI prefixes.
func (p *OpenAIProvider) SupportsModel(model string) bool {
	for _, prefix := range []string{"gpt-", "chatgpt-", "ft:", "babbage-", "davinci-"} {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	if len(model) >= 2 && model[0] == 'o' && model[1] >= '0' && model[1] <= '9' {
		return true
	}
	return false
}

// Models returns model information for all supported models.
func (p *OpenAIProvider) Models() []ModelInfo {
	return ModelsFromList(p.name, p.SupportedModels())
}

// Complete sends a chat completion request to OpenAI.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	params := openai.ChatCompletionNewParams{
		Messages: buildOpenAIMessages(req.Messages),
		Model:    req.Model,
	}
	applyOpenAIParams(&params, req)

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &TimeoutError{Provider: p.name}
		}
		return nil, &ProviderError{Provider: p.name, StatusCode: 0, Body: err.Error()}
	}

	resp := &Response{
		ID:    completion.ID,
		Model: completion.Model,
		Usage: Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
			// CompletionTokensDetails and PromptTokensDetails are value structs
			// in the SDK (not pointers), so these fields are 0 when absent — no
			// nil check required.
			ReasoningTokens: int(completion.Usage.CompletionTokensDetails.ReasoningTokens),
			CacheReadTokens: int(completion.Usage.PromptTokensDetails.CachedTokens),
		},
	}
	for i, choice := range completion.Choices {
		resp.Choices = append(resp.Choices, Choice{
			Index: i,
			Message: Message{
				Role:    string(choice.Message.Role),
				Content: choice.Message.Content,
			},
			FinishReason: string(choice.FinishReason),
		})
	}
	return resp, nil
}

// CompleteStream sends a streaming chat completion request to OpenAI.
func (p *OpenAIProvider) CompleteStream(ctx context.Context, req Request) (<-chan StreamChunk, error) {
	params := openai.ChatCompletionNewParams{
		Messages: buildOpenAIMessages(req.Messages),
		Model:    req.Model,
	}
	applyOpenAIParams(&params, req)

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)

	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		for stream.Next() {
			chunk := stream.Current()
			sc := StreamChunk{
				ID:    chunk.ID,
				Model: chunk.Model,
			}
			for _, c := range chunk.Choices {
				sc.Choices = append(sc.Choices, StreamChoice{
					Index: int(c.Index),
					Delta: MessageDelta{
						Role:    c.Delta.Role,
						Content: c.Delta.Content,
					},
					FinishReason: c.FinishReason,
				})
			}
			ch <- sc
		}
		if err := stream.Err(); err != nil {
			if ctx.Err() != nil {
				ch <- StreamChunk{Error: &TimeoutError{Provider: p.name}}
			} else {
				ch <- StreamChunk{Error: &ProviderError{Provider: p.name, StatusCode: 0, Body: err.Error()}}
			}
		}
	}()

	return ch, nil
}

// buildOpenAIMessages converts gateway Messages to the openai-go SDK union type.
func buildOpenAIMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case RoleUser:
			out = append(out, openai.UserMessage(msg.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		case RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

// applyOpenAIParams applies all optional Request fields to the SDK params struct.
func applyOpenAIParams(params *openai.ChatCompletionNewParams, req Request) {
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.TopP != nil {
		params.TopP = openai.Float(*req.TopP)
	}
	if req.N != nil {
		params.N = openai.Int(int64(*req.N))
	}
	if req.Seed != nil {
		params.Seed = openai.Int(*req.Seed)
	}
	if req.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*req.MaxTokens))
	}
	if req.PresencePenalty != nil {
		params.PresencePenalty = openai.Float(*req.PresencePenalty)
	}
	if req.FrequencyPenalty != nil {
		params.FrequencyPenalty = openai.Float(*req.FrequencyPenalty)
	}
	if req.User != "" {
		params.User = openai.String(req.User)
	}
	if req.LogProbs {
		params.Logprobs = openai.Bool(true)
	}
	if req.TopLogProbs != nil {
		params.TopLogprobs = openai.Int(int64(*req.TopLogProbs))
	}
	if len(req.Stop) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{
			OfStringArray: req.Stop,
		}
	}
}
