package evaluator

import (
	"context"
	"math"
	"time"

	"wisefido-hydration/internal/models"

	"go.uber.org/zap"
)

const planSystemPrompt = `You are a hydration coach planning reminders for a smart water bottle user.
Given the JSON context, reply with ONLY a JSON object with the keys:
goal_ml (integer, full-day target), target_ml_now (integer, amount that should be consumed by now),
notify (boolean), next_sip_ml (integer, single sip suggestion), reason (short string).
Respect clinician_limit_ml and medical_conditions when present.`

// Planner 文本生成服务（JSON 模式）
type Planner interface {
	PlanJSON(ctx context.Context, system string, payload interface{}) (string, error)
}

// AdvisorSource AI 决策源；任何失败都回退到规则决策
type AdvisorSource struct {
	planner  Planner
	fallback *RuleSource
	logger   *zap.Logger
}

// NewAdvisorSource 创建 AI 决策源
func NewAdvisorSource(planner Planner, logger *zap.Logger) *AdvisorSource {
	return &AdvisorSource{
		planner:  planner,
		fallback: NewRuleSource(),
		logger:   logger,
	}
}

// Name 决策源名称
func (a *AdvisorSource) Name() string { return SourceAdvisor }

// Decide 先算出规则决策作为兜底，再尝试采用 AI 计划
func (a *AdvisorSource) Decide(ctx context.Context, in Input) (models.Decision, error) {
	ruleDecision, _ := a.fallback.Decide(ctx, in)

	content, err := a.planner.PlanJSON(ctx, planSystemPrompt, planContext(in, ruleDecision))
	if err != nil {
		a.logger.Warn("Plan request failed, using rule decision", zap.Error(err))
		return ruleDecision, nil
	}

	plan, err := ParsePlan(content)
	if err != nil {
		a.logger.Warn("Plan response rejected, using rule decision",
			zap.Error(err),
			zap.Int("content_length", len(content)),
		)
		return ruleDecision, nil
	}

	return a.applyPlan(plan, in), nil
}

// applyPlan 计划值再经过目标规则约束（医嘱上限、[1200,4000]）
func (a *AdvisorSource) applyPlan(plan Plan, in Input) models.Decision {
	goal := ApplyGoalLimits(plan.GoalML, in.Profile)
	target := clampInt(plan.TargetMLNow, 0, goal)
	remainingML := math.Max(0, float64(goal)-in.Reading.ML)

	d := models.Decision{
		GoalML:      goal,
		TargetMLNow: target,
		RemainingML: int(math.Round(remainingML)),
		Behind:      in.Reading.ML+BehindToleranceML < float64(target),
		VeryLow:     in.Reading.Pct < VeryLowPct,
		Notify:      plan.Notify && remainingML > 0,
		Reason:      plan.Reason,
		Source:      SourceAdvisor,
	}
	if d.Notify {
		d.SipML = plan.SipML
	}
	return d
}

func planContext(in Input, rule models.Decision) map[string]interface{} {
	p := in.Profile
	ctx := map[string]interface{}{
		"now":                in.Now.Format(time.RFC3339),
		"wake_time":          p.Wake.Format("15:04"),
		"sleep_time":         p.Sleep.Format("15:04"),
		"weight_kg":          p.WeightKG,
		"activity_level":     string(p.ActivityLevel),
		"medical_conditions": p.MedicalConditions,
		"current_ml":         in.Reading.ML,
		"current_pct":        in.Reading.Pct,
		"rule_plan": map[string]interface{}{
			"goal_ml":       rule.GoalML,
			"target_ml_now": rule.TargetMLNow,
			"notify":        rule.Notify,
			"next_sip_ml":   rule.SipML,
		},
	}
	if p.ActivityMinutes != nil {
		ctx["activity_minutes"] = *p.ActivityMinutes
	}
	if p.ClinicianLimitML != nil {
		ctx["clinician_limit_ml"] = *p.ClinicianLimitML
	}
	if p.Age != nil {
		ctx["age"] = *p.Age
	}
	if p.TempC != nil {
		ctx["temp_c"] = *p.TempC
	}
	if p.HumidityPct != nil {
		ctx["humidity_pct"] = *p.HumidityPct
	}
	return ctx
}
