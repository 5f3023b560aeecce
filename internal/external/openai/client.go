package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/wonny/divsage/pkg/config"
	"github.com/wonny/divsage/pkg/httputil"
	"github.com/wonny/divsage/pkg/logger"
)

// systemMessage pins the analyst persona. Grounding instructions live
// in the per-run prompt; this only sets tone and the no-fabrication rule.
const systemMessage = "You are a meticulous dividend-portfolio analyst. " +
	"Your analysis must be 100% grounded in the data provided. " +
	"Never fabricate tickers, prices, or fundamentals."

// Client is an OpenAI-compatible chat-completions client.
// Implements contracts.ReasoningModel.
// SSOT: reasoning-model HTTP calls happen here only.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	endpoint   string
	apiKey     string
	model      string
}

// NewClient creates a new reasoning-model client.
// Retry is disabled on the transport: the pipeline requires at most
// one invocation per attempt.
func NewClient(httpClient *httputil.Client, cfg config.ReasoningConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient.DisableRetry(),
		logger:     log,
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
	}
}

// message represents a chat message
type message struct {
	Role    string `json:"role"` // "system" or "user"
	Content string `json:"content"`
}

// chatRequest represents a chat completion request
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// chatResponse represents a chat completion response
type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
		Finish  string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Invoke sends one chat completion request and returns the raw text
func (c *Client) Invoke(ctx context.Context, prompt string, maxTokens int) (string, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: systemMessage},
			{Role: "user", Content: prompt},
		},
		// Deterministic-leaning output; validation downstream is strict
		Temperature: 0.2,
		MaxTokens:   maxTokens,
	}

	resp, err := c.httpClient.PostJSONWithHeaders(ctx, c.endpoint+"/chat/completions", reqBody, map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("chat completion API error %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no response choices returned")
	}

	c.logger.WithFields(map[string]interface{}{
		"model":             c.model,
		"prompt_tokens":     chatResp.Usage.PromptTokens,
		"completion_tokens": chatResp.Usage.CompletionTokens,
		"finish_reason":     chatResp.Choices[0].Finish,
	}).Debug("Chat completion received")

	return chatResp.Choices[0].Message.Content, nil
}
