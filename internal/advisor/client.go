// Package advisor OpenAI 兼容的文本生成服务客户端（可选）
//
// 返回内容一律视为不可信，由调用方校验。
package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

var ErrEmptyResponse = errors.New("empty completion")

// Config 文本生成服务配置
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Client 文本生成客户端（无重试）
type Client struct {
	httpClient *resty.Client
	model      string
	logger     *zap.Logger
}

// NewClient 创建客户端
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: client,
		model:      cfg.Model,
		logger:     logger,
	}
}

// PlanJSON 请求 JSON 对象格式的决策计划
func (c *Client) PlanJSON(ctx context.Context, system string, payload interface{}) (string, error) {
	return c.complete(ctx, system, payload, true)
}

// RephraseText 请求改写后的提醒文本
func (c *Client) RephraseText(ctx context.Context, system string, payload interface{}) (string, error) {
	return c.complete(ctx, system, payload, false)
}

func (c *Client) complete(ctx context.Context, system string, payload interface{}, jsonMode bool) (string, error) {
	user, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion context: %w", err)
	}

	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: string(user)},
		},
		Temperature: 0.2,
	}
	if jsonMode {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	var result chatResponse
	var apiErr errorResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		SetError(&apiErr).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("failed to call completion API: %w", err)
	}
	if resp.IsError() {
		c.logger.Warn("Completion API returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("msg", apiErr.Error.Message),
		)
		return "", fmt.Errorf("completion API error: %s (status: %d)", apiErr.Error.Message, resp.StatusCode())
	}

	if len(result.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	content := strings.TrimSpace(result.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}
