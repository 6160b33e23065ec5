package evaluator

import (
	"context"
	"math"
	"time"

	"wisefido-hydration/internal/models"
)

const (
	// BehindToleranceML 传感器/测量噪声容差
	BehindToleranceML = 50
	// VeryLowPct 瓶内余量低于该百分比时提醒
	VeryLowPct = 40
	// sipGapDivisor 每次提醒补足落后量的三分之一
	sipGapDivisor = 3

	SourceRule    = "rule"
	SourceAdvisor = "ai"
)

// SipRange 单次建议饮水量范围（ml）
type SipRange struct {
	Min int
	Max int
}

// SipRangeFor 按活动等级返回单次饮水范围
func SipRangeFor(level models.ActivityLevel) SipRange {
	switch level {
	case models.ActivityHeavy:
		return SipRange{Min: 200, Max: 300}
	case models.ActivityModerate:
		return SipRange{Min: 180, Max: 250}
	default:
		return SipRange{Min: 150, Max: 220}
	}
}

// SipSize 建议单次饮水量
func SipSize(targetML int, ml float64, level models.ActivityLevel) int {
	gap := math.Max(0, float64(targetML)-ml)
	r := SipRangeFor(level)
	return clampInt(int(math.Round(gap/sipGapDivisor)), r.Min, r.Max)
}

// TargetNow 当前时刻的节奏目标（ml）
func TargetNow(goalML int, schedule Schedule, now time.Time) int {
	return int(math.Round(float64(goalML) * schedule.FractionAt(now)))
}

// Decide 根据读数、目标与节奏目标判定是否提醒
func Decide(goalML, targetML int, reading models.Reading, level models.ActivityLevel) models.Decision {
	remainingML := math.Max(0, float64(goalML)-reading.ML)
	behind := reading.ML+BehindToleranceML < float64(targetML)
	veryLow := reading.Pct < VeryLowPct

	d := models.Decision{
		GoalML:      goalML,
		TargetMLNow: targetML,
		RemainingML: int(math.Round(remainingML)),
		Behind:      behind,
		VeryLow:     veryLow,
		Notify:      (behind || veryLow) && remainingML > 0,
		Source:      SourceRule,
	}
	if d.Notify {
		d.SipML = SipSize(targetML, reading.ML, level)
		if behind {
			d.Reason = "behind_pace"
		} else {
			d.Reason = "bottle_low"
		}
	}
	return d
}

// Input 一次决策所需的全部输入
type Input struct {
	Reading    models.Reading
	Profile    models.Profile
	Now        time.Time
	GoalMode   GoalMode
	PacingMode PacingMode
}

// DecisionSource 决策来源（规则 / AI 增强）
type DecisionSource interface {
	Name() string
	Decide(ctx context.Context, in Input) (models.Decision, error)
}

// RuleSource 纯规则决策，始终可用
type RuleSource struct{}

// NewRuleSource 创建规则决策源
func NewRuleSource() *RuleSource { return &RuleSource{} }

// Name 决策源名称
func (r *RuleSource) Name() string { return SourceRule }

// Decide 目标 → 节奏曲线 → 判定
func (r *RuleSource) Decide(_ context.Context, in Input) (models.Decision, error) {
	goal := CalculateGoal(in.Profile, in.GoalMode)
	schedule := NewSchedule(in.Profile.Wake, in.Profile.Sleep, in.Profile.ActivityLevel, in.PacingMode)
	target := TargetNow(goal, schedule, in.Now)
	return Decide(goal, target, in.Reading, in.Profile.ActivityLevel), nil
}
