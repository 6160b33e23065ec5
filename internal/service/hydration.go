package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"wisefido-hydration/internal/config"
	"wisefido-hydration/internal/evaluator"
	"wisefido-hydration/internal/models"
	"wisefido-hydration/internal/notifier"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrInvalidReading = errors.New("missing pct/ml")

// Messenger 消息发送方
type Messenger interface {
	Send(ctx context.Context, recipient, text string) error
}

// Rephraser 提醒文本改写（可选）
type Rephraser interface {
	RephraseText(ctx context.Context, system string, payload interface{}) (string, error)
}

// DecisionPublisher 决策事件发布（可选，失败只记录日志）
type DecisionPublisher interface {
	PublishDecision(ctx context.Context, event DecisionEvent) error
}

// DecisionEvent 每次读数处理后的事件
type DecisionEvent struct {
	EventID   string            `json:"event_id"`
	Recipient string            `json:"recipient"`
	At        time.Time         `json:"at"`
	Reading   models.Reading    `json:"reading"`
	Notified  bool              `json:"notified"`
	Skipped   models.SkipReason `json:"skipped,omitempty"`
	Decision  *models.Decision  `json:"decision,omitempty"`
}

// Dependencies HydrationService 的协作方
type Dependencies struct {
	Gate      *evaluator.Gate
	Source    evaluator.DecisionSource
	Messenger Messenger
	Rephraser Rephraser         // nil 表示不改写
	Publisher DecisionPublisher // nil 表示不发布
	Clock     func() time.Time  // nil 表示 time.Now
}

// HydrationService 读数处理流水线：门控 → 用户配置 → 目标/节奏 → 决策 → 发送
type HydrationService struct {
	cfg       *config.Config
	gate      *evaluator.Gate
	source    evaluator.DecisionSource
	messenger Messenger
	rephraser Rephraser
	publisher DecisionPublisher
	clock     func() time.Time
	logger    *zap.Logger
}

// NewHydrationService 创建服务
func NewHydrationService(cfg *config.Config, deps Dependencies, logger *zap.Logger) *HydrationService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &HydrationService{
		cfg:       cfg,
		gate:      deps.Gate,
		source:    deps.Source,
		messenger: deps.Messenger,
		rephraser: deps.Rephraser,
		publisher: deps.Publisher,
		clock:     clock,
		logger:    logger,
	}
}

// HandleReading 处理一次读数
// 错误: ErrInvalidReading（无副作用）、config.ErrMissingCredentials（无副作用）、发送失败
func (s *HydrationService) HandleReading(ctx context.Context, req *models.ReadingRequest) (*models.Outcome, error) {
	if !req.Valid() {
		return nil, ErrInvalidReading
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}

	reading := req.Reading()
	wall := s.clock()
	now := s.resolveTime(req.TS, wall)
	recipient := s.cfg.Messaging.RecipientID
	outcome := &models.Outcome{EventID: uuid.NewString()}
	logger := s.logger.With(
		zap.String("event_id", outcome.EventID),
		zap.Float64("ml", reading.ML),
		zap.Float64("pct", reading.Pct),
	)

	// 1. 静默时段（读数时间）/ 冷却（服务端时钟）
	if skip := s.gate.Check(ctx, recipient, now, wall); skip != models.SkipNone {
		outcome.Skipped = skip
		logger.Info("Reading skipped", zap.String("skipped", string(skip)))
		s.publish(ctx, outcome, recipient, now, reading)
		return outcome, nil
	}

	// 2. 用户配置 → 决策
	profile := evaluator.NormalizeProfile(s.cfg.Profile.Merge(req.Profile), now)
	decision, err := s.source.Decide(ctx, evaluator.Input{
		Reading:    reading,
		Profile:    profile,
		Now:        now,
		GoalMode:   s.cfg.Decision.GoalMode,
		PacingMode: s.cfg.Decision.PacingMode,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decide: %w", err)
	}
	outcome.Decision = &decision

	if !decision.Notify {
		outcome.Skipped = models.SkipOnTrackOrDone
		logger.Info("Reading on track",
			zap.Int("goal_ml", decision.GoalML),
			zap.Int("target_ml_now", decision.TargetMLNow),
			zap.String("source", decision.Source),
		)
		s.publish(ctx, outcome, recipient, now, reading)
		return outcome, nil
	}

	// 3. 发送提醒；无论成功与否都记录冷却时间
	outcome.Message = s.composeMessage(ctx, profile.Name, decision, reading)
	sendErr := s.messenger.Send(ctx, recipient, outcome.Message)
	if err := s.gate.Record(ctx, recipient, wall); err != nil {
		logger.Warn("Failed to record notification time", zap.Error(err))
	}
	if sendErr != nil {
		logger.Error("Failed to send reminder", zap.Error(sendErr))
		return nil, fmt.Errorf("failed to send reminder: %w", sendErr)
	}

	outcome.Notified = true
	logger.Info("Reminder sent",
		zap.Int("goal_ml", decision.GoalML),
		zap.Int("target_ml_now", decision.TargetMLNow),
		zap.Int("next_sip_ml", decision.SipML),
		zap.String("source", decision.Source),
	)
	s.publish(ctx, outcome, recipient, now, reading)
	return outcome, nil
}

// composeMessage 模板文本；启用改写时尝试改写，失败则保留模板
func (s *HydrationService) composeMessage(ctx context.Context, name string, d models.Decision, r models.Reading) string {
	text := notifier.Compose(name, d, r)
	if s.rephraser == nil {
		return text
	}

	rephrased, err := s.rephraser.RephraseText(ctx, notifier.RephraseSystemPrompt, notifier.RephraseContext(name, text, d))
	if err != nil {
		s.logger.Warn("Rephrase failed, using template", zap.Error(err))
		return text
	}
	if cleaned, ok := notifier.CleanRephrased(rephrased); ok {
		return cleaned
	}
	return text
}

func (s *HydrationService) publish(ctx context.Context, outcome *models.Outcome, recipient string, at time.Time, reading models.Reading) {
	if s.publisher == nil {
		return
	}
	event := DecisionEvent{
		EventID:   outcome.EventID,
		Recipient: recipient,
		At:        at,
		Reading:   reading,
		Notified:  outcome.Notified,
		Skipped:   outcome.Skipped,
		Decision:  outcome.Decision,
	}
	if err := s.publisher.PublishDecision(ctx, event); err != nil {
		s.logger.Warn("Failed to publish decision event",
			zap.String("event_id", outcome.EventID),
			zap.Error(err),
		)
	}
}

// resolveTime 请求中的 ts（RFC3339 或 Unix 秒/毫秒）优先，否则使用 wall；统一转换到用户时区
// 只用于节奏与静默时段，冷却始终按服务端时钟
func (s *HydrationService) resolveTime(raw json.RawMessage, wall time.Time) time.Time {
	now := wall
	if t, ok := ParseTimestamp(raw); ok {
		now = t
	}
	if s.cfg.Location != nil {
		now = now.In(s.cfg.Location)
	}
	return now
}

// ParseTimestamp 解析 ts 字段；无法识别时返回 false
func ParseTimestamp(raw json.RawMessage) (time.Time, bool) {
	v := strings.TrimSpace(string(raw))
	if v == "" || v == "null" {
		return time.Time{}, false
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if t, err := time.Parse(time.RFC3339, str); err == nil {
			return t, true
		}
		v = str
	}

	n, err := strconv.ParseFloat(v, 64)
	if err != nil || n <= 0 {
		return time.Time{}, false
	}
	if n >= 1e12 {
		return time.UnixMilli(int64(n)), true
	}
	return time.Unix(int64(n), 0), true
}
