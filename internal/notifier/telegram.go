// Package notifier 提醒消息的格式化与发送
package notifier

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// TelegramConfig 消息服务配置
type TelegramConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	ErrorCode   int    `json:"error_code"`
}

// TelegramClient Telegram Bot API 兼容的消息发送客户端（无重试、不确认送达）
type TelegramClient struct {
	httpClient *resty.Client
	token      string
	logger     *zap.Logger
}

// NewTelegramClient 创建消息客户端
func NewTelegramClient(cfg TelegramConfig, logger *zap.Logger) *TelegramClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &TelegramClient{
		httpClient: client,
		token:      cfg.Token,
		logger:     logger,
	}
}

// Send 发送纯文本消息
func (c *TelegramClient) Send(ctx context.Context, recipient, text string) error {
	var result sendMessageResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(sendMessageRequest{ChatID: recipient, Text: text}).
		SetResult(&result).
		SetError(&result).
		Post("/bot" + c.token + "/sendMessage")
	if err != nil {
		return fmt.Errorf("failed to call messaging API: %w", stripURL(err))
	}

	if resp.IsError() || !result.OK {
		c.logger.Error("Messaging API returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.Int("error_code", result.ErrorCode),
			zap.String("description", result.Description),
		)
		return fmt.Errorf("messaging API error: %s (status: %d)", result.Description, resp.StatusCode())
	}

	c.logger.Debug("Message sent",
		zap.String("recipient", recipient),
		zap.Int("length", len(text)),
	)
	return nil
}

// stripURL 去掉 *url.Error 中的请求地址（路径中含 bot token）
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
