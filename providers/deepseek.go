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

// DeepSeekProvider implements the Provider interface for DeepSeek.
type DeepSeekProvider struct {
	Base
	httpClient *http.Client
}

// NewDeepSeek creates a new DeepSeek provider.
func NewDeepSeek(apiKey string, baseURL string) (*DeepSeekProvider, error) {
	if baseURL == "" {
		baseURL = "https://api.deepseek.com"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	return &DeepSeekProvider{
		Base:       Base{name: "deepseek", apiKey: apiKey, baseURL: baseURL},
		httpClient: &http.Client{},
	}, nil
}

// SupportedModels returns the static list of known models for the /v1/models endpoint.
func (p *DeepSeekProvider) SupportedModels() []string {
	return []string{
		"deepseek-chat",
		"deepseek-reasoner",
	}
}

// SupportsModel returns true if the model matches the DeepSeek prefix.
func (p *DeepSeekProvider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "deepseek-")
}

// Models returns structured model metadata for the /v1/models endpoint.
func (p *DeepSeekProvider) Models() []ModelInfo {
	return ModelsFromList(p.name, p.SupportedModels())
}

// deepseekRequest is OpenAI-compatible.
type deepseekRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

type deepseekResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

type deepseekErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type deepseekErrorResponse struct {
	Error deepseekErrorDetail `json:"error"`
}

// Complete sends a chat completion request and returns the full response.
func (p *DeepSeekProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	deepseekReq := deepseekRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	body, err := json.Marshal(deepseekReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

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
		var errResp deepseekErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			return nil, &ProviderError{Provider: p.name, StatusCode: httpResp.StatusCode, Body: errResp.Error.Message}
		}
		return nil, &ProviderError{Provider: p.name, StatusCode: httpResp.StatusCode, Body: string(respBody)}
	}

	var deepseekResp deepseekResponse
	if err := json.Unmarshal(respBody, &deepseekResp); err != nil {
		return nil, &DecodeError{Provider: p.name, Err: err}
	}

	return &Response{
		ID:      deepseekResp.ID,
		Model:   deepseekResp.Model,
		Choices: deepseekResp.Choices,
		Usage:   deepseekResp.Usage,
	}, nil
}

type deepseekStreamResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index int `json:"index"`
		Delta struct {
			Role    string `json:"role,omitempty"`
			Content string `json:"content,omitempty"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason,omitempty"`
	} `json:"choices"`
}

// CompleteStream sends a streaming chat completion request to DeepSeek.
func (p *DeepSeekProvider) CompleteStream(ctx context.Context, req Request) (<-chan StreamChunk, error) {
	deepseekReq := deepseekRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      true,
	}

	body, err := json.Marshal(deepseekReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

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
		var errResp deepseekErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			return nil, &ProviderError{Provider: p.name, StatusCode: httpResp.StatusCode, Body: errResp.Error.Message}
		}
		return nil, &ProviderError{Provider: p.name, StatusCode: httpResp.StatusCode, Body: string(respBody)}
	}

	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		defer func() { _ = httpResp.Body.Close() }()

		scanner := bufio.NewScanner(httpResp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			data := strings.TrimPrefix(line, "data: ")
			if data == SSEDone {
				return
			}

			var chunk deepseekStreamResponse
			if json.Unmarshal([]byte(data), &chunk) != nil {
				continue
			}

			sc := StreamChunk{
				ID:    chunk.ID,
				Model: chunk.Model,
			}
			for _, c := range chunk.Choices {
				sc.Choices = append(sc.Choices, StreamChoice{
					Index: c.Index,
					Delta: MessageDelta{
						Role:    c.Delta.Role,
						Content: c.Delta.Content,
					},
					FinishReason: c.FinishReason,
				})
			}
			ch <- sc
		}
		if err := scanner.Err(); err != nil {
			ch <- StreamChunk{Error: err}
		}
	}()

	return ch, nil
}
