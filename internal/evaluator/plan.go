package evaluator

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// AI 计划的安全范围
const (
	PlanGoalMinML = 800
	PlanGoalMaxML = 6000
	PlanSipMinML  = 120
	PlanSipMaxML  = 300
	PlanReasonMax = 140
)

var ErrIncompletePlan = errors.New("incomplete plan")

// Plan 经过清洗的 AI 决策计划
type Plan struct {
	GoalML      int
	TargetMLNow int
	SipML       int
	Notify      bool
	Reason      string
}

// ParsePlan 解析并清洗文本生成服务返回的计划（内容不可信）
func ParsePlan(content string) (Plan, error) {
	body := extractJSONObject(content)
	if body == "" {
		return Plan{}, fmt.Errorf("no JSON object in plan response")
	}

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return Plan{}, fmt.Errorf("failed to unmarshal plan: %w", err)
	}

	goal, ok := numberField(raw, "goal_ml")
	if !ok {
		return Plan{}, fmt.Errorf("%w: goal_ml", ErrIncompletePlan)
	}
	target, ok := numberField(raw, "target_ml_now")
	if !ok {
		return Plan{}, fmt.Errorf("%w: target_ml_now", ErrIncompletePlan)
	}
	sip, ok := numberField(raw, "next_sip_ml")
	if !ok {
		return Plan{}, fmt.Errorf("%w: next_sip_ml", ErrIncompletePlan)
	}
	notifyVal, ok := raw["notify"]
	if !ok {
		return Plan{}, fmt.Errorf("%w: notify", ErrIncompletePlan)
	}

	p := Plan{
		GoalML: clampInt(int(math.Round(goal)), PlanGoalMinML, PlanGoalMaxML),
		SipML:  clampInt(int(math.Round(sip)), PlanSipMinML, PlanSipMaxML),
		Notify: coerceBool(notifyVal),
	}
	p.TargetMLNow = clampInt(int(math.Round(target)), 0, p.GoalML)
	if reason, ok := raw["reason"].(string); ok {
		p.Reason = truncateRunes(strings.TrimSpace(reason), PlanReasonMax)
	}
	return p, nil
}

// extractJSONObject 去掉 markdown 代码块等包裹，取第一个 '{' 到最后一个 '}'
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func numberField(raw map[string]interface{}, key string) (float64, bool) {
	switch v := raw[key].(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func coerceBool(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case float64:
		return b != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes", "y", "1":
			return true
		}
		return false
	default:
		return false
	}
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
