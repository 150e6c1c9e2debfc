package providers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// AnthropicProvider implements the Provider interface for Anthropic.
type AnthropicProvider struct {
	Base
	httpClient *http.Client
}

// NewAnthropic creates a new Anthropic provider. The optional baseURL parameter
// allows overriding the API endpoint (pass "" for the default).
func NewAnthropic(apiKey string, baseURL string) (*AnthropicProvider, error) {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	return &AnthropicProvider{
		Base:       Base{name: "anthropic", apiKey: apiKey, baseURL: baseURL},
		httpClient: &http.Client{},
	}, nil
}

// SupportedModels returns the list of models supported by this provider.
func (p *AnthropicProvider) SupportedModels() []string {
	return []string{
		"claude-sonnet-4-20250514",
		"claude-3-5-sonnet-20241022",
		"claude-3-haiku-20240307",
		"claude-3-opus-20240229",
	}
}

// SupportsModel returns true if the model matches the Anthropic prefix.
func (p *AnthropicProvider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "claude-")
}

// Models returns model information for all supported models.
func (p *AnthropicProvider) Models() []ModelInfo {
	return ModelsFromList(p.name, p.SupportedModels())
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature *float64           `json:"temperature,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
}

type anthropicResponse struct {
	ID      string                  `json:"id"`
	Type    string                  `json:"type"`
	Role    string                  `json:"role"`
	Content []anthropicContentBlock `json:"content"`
	Model   string                  `json:"model"`
	Usage   anthropicUsage          `json:"usage"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type anthropicErrorResponse struct {
	Type  string         `json:"type"`
	Error anthropicError `json:"error"`
}

// Complete sends a chat completion request to Anthropic.
func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	// Extract system messages and build the Anthropic messages array.
	var systemParts []string
	var messages []anthropicMessage
	for _, msg := range req.Messages {
		if msg.Role == "system" {
			systemParts = append(systemParts, msg.Content)
		} else {
			messages = append(messages, anthropicMessage{
				Role:    msg.Role,
				Content: msg.Content,
			})
		}
	}

	maxTokens := 1024
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	anthropicReq := anthropicRequest{
		Model:       req.Model,
		MaxTokens:   maxTokens,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	if len(systemParts) > 0 {
		anthropicReq.System = strings.Join(systemParts, "\n")
	}

	body, err := json.Marshal(anthropicReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")
	httpReq.Header.Set("content-type", "application/json")

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &TimeoutError{Provider: p.name}
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var errResp anthropicErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			return nil, &ProviderError{Provider: p.name, StatusCode: httpResp.StatusCode, Body: errResp.Error.Message}
		}
		return nil, &ProviderError{Provider: p.name, StatusCode: httpResp.StatusCode, Body: string(respBody)}
	}

	var anthropicResp anthropicResponse
	if err := json.Unmarshal(respBody, &anthropicResp); err != nil {
		return nil, &DecodeError{Provider: p.name, Err: err}
	}

	// Build the content string from content blocks.
	var content strings.Builder
	for _, block := range anthropicResp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	totalTokens := anthropicResp.Usage.InputTokens + anthropicResp.Usage.OutputTokens

	return &Response{
		ID:    anthropicResp.ID,
		Model: anthropicResp.Model,
		Choices: []Choice{
			{
				Index: 0,
				Message: Message{
					Role:    anthropicResp.Role,
					Content: content.String(),
				},
				FinishReason: "stop",
			},
		},
		Usage: Usage{
			PromptTokens:     anthropicResp.Usage.InputTokens,
			CompletionTokens: anthropicResp.Usage.OutputTokens,
			TotalTokens:      totalTokens,
			CacheReadTokens:  anthropicResp.Usage.CacheReadInputTokens,
			CacheWriteTokens: anthropicResp.Usage.CacheCreationInputTokens,
		},
	}, nil
}

// Anthropic SSE event types for streaming.

type anthropicStreamMessageStart struct {
	Type    string `json:"type"`
	Message struct {
		ID    string `json:"id"`
		Model string `json:"model"`
		Role  string `json:"role"`
	} `json:"message"`
}

type anthropicStreamContentDelta struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
}

// CompleteStream sends a streaming chat completion request to Anthropic.
func (p *AnthropicProvider) CompleteStream(ctx context.Context, req Request) (<-chan StreamChunk, error) {
	var systemParts []string
	var messages []anthropicMessage
	for _, msg := range req.Messages {
		if msg.Role == "system" {
			systemParts = append(systemParts, msg.Content)
		} else {
			messages = append(messages, anthropicMessage{
				Role:    msg.Role,
				Content: msg.Content,
			})
		}
	}

	maxTokens := 1024
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	anthropicReq := anthropicRequest{
		Model:       req.Model,
		MaxTokens:   maxTokens,
		Messages:    messages,
		Temperature: req.Temperature,
		Stream:      true,
	}
	if len(systemParts) > 0 {
		anthropicReq.System = strings.Join(systemParts, "\n")
	}

	body, err := json.Marshal(anthropicReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")
	httpReq.Header.Set("content-type", "application/json")

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &TimeoutError{Provider: p.name}
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		defer func() { _ = httpResp.Body.Close() }()
		respBody, _ := io.ReadAll(httpResp.Body)
		var errResp anthropicErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			return nil, &ProviderError{Provider: p.name, StatusCode: httpResp.StatusCode, Body: errResp.Error.Message}
		}
		return nil, &ProviderError{Provider: p.name, StatusCode: httpResp.StatusCode, Body: string(respBody)}
	}

	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		defer func() { _ = httpResp.Body.Close() }()

		var msgID, model string
		scanner := bufio.NewScanner(httpResp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			data := strings.TrimPrefix(line, "data: ")

			var raw map[string]interface{}
			if json.Unmarshal([]byte(data), &raw) != nil {
				continue
			}

			eventType, _ := raw["type"].(string)
			switch eventType {
			case "message_start":
				var evt anthropicStreamMessageStart
				if json.Unmarshal([]byte(data), &evt) == nil {
					msgID = evt.Message.ID
					model = evt.Message.Model
				}
			case "content_block_delta":
				var evt anthropicStreamContentDelta
				if json.Unmarshal([]byte(data), &evt) == nil {
					ch <- StreamChunk{
						ID:    msgID,
						Model: model,
						Choices: []StreamChoice{
							{
								Index: evt.Index,
								Delta: MessageDelta{
									Content: evt.Delta.Text,
								},
							},
						},
					}
				}
			case "message_delta":
				ch <- StreamChunk{
					ID:    msgID,
					Model: model,
					Choices: []StreamChoice{
						{
							Index:        0,
							FinishReason: "stop",
						},
					},
				}
			}
		}
		if err := scanner.Err(); err != nil {
			ch <- StreamChunk{Error: err}
		}
	}()

	return ch, nil
}
