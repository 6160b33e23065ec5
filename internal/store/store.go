// Package store 提醒冷却状态（recipient → 上次提醒时间）
//
// 一致性约定：尽力而为、非持久。多个实例并发处理同一 recipient 时，
// 两个请求可能同时通过冷却检查并各自发送一次提醒（已知竞态，不做加锁）。
package store

import (
	"context"
	"errors"
	"time"
)

var ErrMiss = errors.New("recipient never notified")

// NotifyStore 冷却状态存储
type NotifyStore interface {
	// LastNotified 返回上次提醒时间；从未提醒时返回 ErrMiss
	LastNotified(ctx context.Context, recipient string) (time.Time, error)
	// MarkNotified 记录提醒时间
	MarkNotified(ctx context.Context, recipient string, at time.Time) error
}
