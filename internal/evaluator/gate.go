package evaluator

import (
	"context"
	"errors"
	"time"

	"wisefido-hydration/internal/models"
	"wisefido-hydration/internal/store"

	"go.uber.org/zap"
)

const (
	DefaultQuietStartHour = 23
	DefaultQuietEndHour   = 7
	DefaultMinInterval    = 30 * time.Minute
)

// Gate 静默时段 + 冷却检查，在任何目标计算之前执行
type Gate struct {
	QuietStartHour int
	QuietEndHour   int
	MinInterval    time.Duration

	store  store.NotifyStore
	logger *zap.Logger
}

// NewGate 创建门控
func NewGate(quietStart, quietEnd int, minInterval time.Duration, s store.NotifyStore, logger *zap.Logger) *Gate {
	return &Gate{
		QuietStartHour: quietStart,
		QuietEndHour:   quietEnd,
		MinInterval:    minInterval,
		store:          s,
		logger:         logger,
	}
}

// InQuietHours now（本地时间）是否处于静默时段
// start > end 时跨午夜：hour >= start || hour < end
func (g *Gate) InQuietHours(now time.Time) bool {
	hour := now.Hour()
	if g.QuietStartHour == g.QuietEndHour {
		return false
	}
	if g.QuietStartHour > g.QuietEndHour {
		return hour >= g.QuietStartHour || hour < g.QuietEndHour
	}
	return hour >= g.QuietStartHour && hour < g.QuietEndHour
}

// CooldownActive 距上次提醒是否不足 MinInterval；读不到记录视为已过冷却
func (g *Gate) CooldownActive(ctx context.Context, recipient string, now time.Time) bool {
	last, err := g.store.LastNotified(ctx, recipient)
	if err != nil {
		if !errors.Is(err, store.ErrMiss) {
			g.logger.Warn("Failed to read cooldown state, treating as elapsed",
				zap.String("recipient", recipient),
				zap.Error(err),
			)
		}
		return false
	}
	return now.Sub(last) < g.MinInterval
}

// Check 依次检查静默时段、冷却；返回 SkipNone 表示放行
// 静默时段按读数时间 local 判断，冷却只按服务端时钟 wall 判断
func (g *Gate) Check(ctx context.Context, recipient string, local, wall time.Time) models.SkipReason {
	if g.InQuietHours(local) {
		return models.SkipQuietHours
	}
	if g.CooldownActive(ctx, recipient, wall) {
		return models.SkipInterval
	}
	return models.SkipNone
}

// Record 记录一次提醒
func (g *Gate) Record(ctx context.Context, recipient string, at time.Time) error {
	return g.store.MarkNotified(ctx, recipient, at)
}
