package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BerylCAtieno/agreement-analyzer/internal/utils"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	// minAPIKeyLength rejects obviously truncated or placeholder keys.
	minAPIKeyLength = 30
)

type OpenRouterConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	Referer string
}

type openRouterClient struct {
	cfg    OpenRouterConfig
	logger *utils.Logger
	client *http.Client
}

type OpenRouterRequest struct {
	Model          string          `json:"model"`
	Messages       []ChatMessage   `json:"messages"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

type OpenRouterResponse struct {
	Choices []Choice  `json:"choices"`
	Error   *APIError `json:"error,omitempty"`
}

type Choice struct {
	Message            ChatMessage `json:"message"`
	FinishReason       string      `json:"finish_reason"`
	NativeFinishReason string      `json:"native_finish_reason"`
}

type APIError struct {
	Message  string         `json:"message"`
	Code     any            `json:"code"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewOpenRouterClient returns a Completer backed by an OpenAI-compatible
// chat-completions endpoint.
func NewOpenRouterClient(cfg OpenRouterConfig, logger *utils.Logger) Completer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = utils.NewDiscardLogger()
	}
	return &openRouterClient{
		cfg:    cfg,
		logger: logger,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (c *openRouterClient) Complete(ctx context.Context, prompt string) (*Completion, error) {
	if len(strings.TrimSpace(c.cfg.APIKey)) < minAPIKeyLength {
		return nil, &ClientError{Class: ClassCredentials, Message: "api key is missing or too short"}
	}

	reqBody := OpenRouterRequest{
		Model: c.cfg.Model,
		Messages: []ChatMessage{
			{
				Role:    "user",
				Content: prompt,
			},
		},
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}

	start := time.Now()
	c.logger.Debug("llm.request", "request_id", requestID, "model", c.cfg.Model, "prompt_chars", len(prompt))

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("failed to send request: %w", ctxErr)
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			// left unclassified so the timeout itself decides the kind
			return nil, &ClientError{Message: "request timed out", Err: err}
		}
		return nil, &ClientError{Class: ClassNetwork, Message: "failed to send request", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ClientError{Class: ClassNetwork, StatusCode: resp.StatusCode, Message: "failed to read response", Err: err}
	}

	c.logger.Debug("llm.response",
		"request_id", requestID,
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration_ms", time.Since(start).Milliseconds())

	var orResp OpenRouterResponse
	decodeErr := json.Unmarshal(body, &orResp)

	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		if decodeErr == nil && orResp.Error != nil && orResp.Error.Message != "" {
			msg = orResp.Error.Message
		}
		c.logger.Error("OpenRouter API error", "request_id", requestID, "status", resp.StatusCode, "message", msg)

		if isModeration(resp.StatusCode, orResp.Error) {
			return &Completion{Blocked: true, BlockReason: msg}, nil
		}
		return nil, &ClientError{Class: classForStatus(resp.StatusCode), StatusCode: resp.StatusCode, Message: msg}
	}

	if decodeErr != nil {
		return nil, &ClientError{Class: ClassServer, StatusCode: resp.StatusCode, Message: "failed to unmarshal response", Err: decodeErr}
	}

	if orResp.Error != nil {
		if isModeration(resp.StatusCode, orResp.Error) {
			return &Completion{Blocked: true, BlockReason: orResp.Error.Message}, nil
		}
		return nil, &ClientError{Message: orResp.Error.Message}
	}

	if len(orResp.Choices) == 0 {
		return nil, &ClientError{Class: ClassServer, StatusCode: resp.StatusCode, Err: errors.New("no choices in response")}
	}

	choice := orResp.Choices[0]
	if isBlockedFinish(choice.FinishReason) || isBlockedFinish(choice.NativeFinishReason) {
		reason := choice.NativeFinishReason
		if reason == "" {
			reason = choice.FinishReason
		}
		return &Completion{Blocked: true, BlockReason: reason}, nil
	}

	return &Completion{Text: choice.Message.Content}, nil
}

func classForStatus(status int) ClientClass {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ClassCredentials
	case status == http.StatusTooManyRequests || status == http.StatusPaymentRequired:
		return ClassQuota
	case status == http.StatusBadGateway || status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout:
		return ClassNetwork
	case status >= 500:
		return ClassServer
	default:
		return ClassUnclassified
	}
}

func isModeration(status int, apiErr *APIError) bool {
	if apiErr == nil {
		return false
	}
	if _, ok := apiErr.Metadata["flagged_input"]; ok {
		return true
	}
	if _, ok := apiErr.Metadata["reasons"]; ok && status == http.StatusForbidden {
		return true
	}
	msg := strings.ToLower(apiErr.Message)
	return strings.Contains(msg, "moderation") || strings.Contains(msg, "flagged")
}

func isBlockedFinish(reason string) bool {
	switch strings.ToLower(reason) {
	case "content_filter", "safety", "blocked", "prohibited_content", "recitation":
		return true
	}
	return false
}
