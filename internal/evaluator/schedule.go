package evaluator

import (
	"fmt"
	"strings"
	"time"

	"wisefido-hydration/internal/models"
)

// PacingMode 分段比例的选取方式
type PacingMode string

const (
	// PacingModeActivity 按活动等级选择分段比例
	PacingModeActivity PacingMode = "activity"
	// PacingModeFixed 所有人统一使用 0.35 / 0.45 / 0.20
	PacingModeFixed PacingMode = "fixed"
)

// ParsePacingMode 解析配置值
func ParsePacingMode(s string) (PacingMode, error) {
	switch m := PacingMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return PacingModeActivity, nil
	case PacingModeActivity, PacingModeFixed:
		return m, nil
	default:
		return "", fmt.Errorf("unknown pacing mode: %q", s)
	}
}

// 分段边界（按清醒时长的比例）
const (
	morningEnd   = 0.33
	afternoonEnd = 0.80
)

// phaseShares 上午 / 下午 / 晚上各自占全天目标的比例
type phaseShares [3]float64

var (
	heavyShares    = phaseShares{0.25, 0.55, 0.20}
	moderateShares = phaseShares{0.30, 0.50, 0.20}
	defaultShares  = phaseShares{0.35, 0.45, 0.20}
)

func sharesFor(level models.ActivityLevel, mode PacingMode) phaseShares {
	if mode == PacingModeFixed {
		return defaultShares
	}
	switch level {
	case models.ActivityHeavy:
		return heavyShares
	case models.ActivityModerate:
		return moderateShares
	default:
		return defaultShares
	}
}

// Schedule 分段线性的累计饮水比例曲线
type Schedule struct {
	wake   time.Time
	sleep  time.Time
	shares phaseShares
}

// NewSchedule 构建曲线；sleep 不晚于 wake 时视为次日入睡
func NewSchedule(wake, sleep time.Time, level models.ActivityLevel, mode PacingMode) Schedule {
	for !sleep.After(wake) {
		sleep = sleep.Add(24 * time.Hour)
	}
	return Schedule{wake: wake, sleep: sleep, shares: sharesFor(level, mode)}
}

// Wake 起床时间
func (s Schedule) Wake() time.Time { return s.wake }

// Sleep 入睡时间
func (s Schedule) Sleep() time.Time { return s.sleep }

// FractionAt t 时刻应已完成的目标比例，范围 [0,1]
func (s Schedule) FractionAt(t time.Time) float64 {
	if !t.After(s.wake) {
		return 0
	}
	if !t.Before(s.sleep) {
		return 1
	}

	total := s.sleep.Sub(s.wake).Seconds()
	x := t.Sub(s.wake).Seconds() / total

	bounds := [4]float64{0, morningEnd, afternoonEnd, 1}
	start := 0.0
	for i := 0; i < 3; i++ {
		lo, hi := bounds[i], bounds[i+1]
		if x < hi || i == 2 {
			f := start + s.shares[i]*(x-lo)/(hi-lo)
			if f > 1 {
				f = 1
			}
			return f
		}
		start += s.shares[i]
	}
	return 1
}
