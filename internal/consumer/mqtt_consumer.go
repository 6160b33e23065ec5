package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqttcommon "wisefido-hydration/internal/common/mqtt"
	"wisefido-hydration/internal/models"

	"go.uber.org/zap"
)

// 单条读数处理超时（包含消息发送与文本改写）
const handleTimeout = 30 * time.Second

// Subscriber MQTT 订阅方（mqttcommon.Client 实现）
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// ReadingProcessor 读数处理流水线
type ReadingProcessor interface {
	HandleReading(ctx context.Context, req *models.ReadingRequest) (*models.Outcome, error)
}

// MQTTConsumer 订阅水瓶读数主题，每条消息走与 HTTP 相同的流水线
type MQTTConsumer struct {
	subscriber Subscriber
	processor  ReadingProcessor
	topic      string
	qos        byte
	logger     *zap.Logger
}

// NewMQTTConsumer 创建MQTT消费者
func NewMQTTConsumer(subscriber Subscriber, processor ReadingProcessor, topic string, qos byte, logger *zap.Logger) *MQTTConsumer {
	return &MQTTConsumer{
		subscriber: subscriber,
		processor:  processor,
		topic:      topic,
		qos:        qos,
		logger:     logger,
	}
}

// Start 订阅主题并阻塞到 ctx 取消
func (c *MQTTConsumer) Start(ctx context.Context) error {
	if c.topic == "" {
		return errors.New("reading MQTT topic not configured")
	}
	if err := c.subscriber.Subscribe(c.topic, c.qos, c.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to reading topic: %w", err)
	}

	c.logger.Info("MQTT consumer started", zap.String("topic", c.topic))

	<-ctx.Done()
	return nil
}

// Stop 取消订阅
func (c *MQTTConsumer) Stop() {
	if err := c.subscriber.Unsubscribe(c.topic); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
	}
	c.logger.Info("MQTT consumer stopped")
}

// handleMessage 处理一条读数；错误只返回给订阅方记录日志，不回复设备
func (c *MQTTConsumer) handleMessage(topic string, payload []byte) error {
	c.logger.Debug("Received MQTT message",
		zap.String("topic", topic),
		zap.Int("payload_size", len(payload)),
	)

	var req models.ReadingRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("failed to unmarshal reading: %w", err)
	}
	if !req.Valid() {
		return fmt.Errorf("reading on %s is missing pct/ml", topic)
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	out, err := c.processor.HandleReading(ctx, &req)
	if err != nil {
		return fmt.Errorf("failed to handle reading: %w", err)
	}

	c.logger.Debug("MQTT reading handled",
		zap.String("topic", topic),
		zap.String("event_id", out.EventID),
		zap.Bool("notified", out.Notified),
		zap.String("skipped", string(out.Skipped)),
	)
	return nil
}
