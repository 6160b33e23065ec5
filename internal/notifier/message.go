package notifier

import (
	"fmt"
	"math"
	"strings"

	"wisefido-hydration/internal/models"
)

// RephraseSystemPrompt 改写提醒文本时使用的系统提示
const RephraseSystemPrompt = `Rewrite the hydration reminder in the JSON context as one short, friendly message.
Keep every number exactly as given. No markdown, at most two sentences, one emoji at most.
Reply with the message text only.`

// MaxMessageLength 改写结果的最大长度（字符）
const MaxMessageLength = 400

// Compose 按模板生成提醒文本
func Compose(name string, d models.Decision, r models.Reading) string {
	greeting := ""
	if name = strings.TrimSpace(name); name != "" {
		greeting = name + ", "
	}

	ml := int(math.Round(r.ML))
	var text string
	if d.Behind {
		text = fmt.Sprintf("%syou're at %d ml of your %d ml goal; the plan was about %d ml by now. Take a sip of ~%d ml 💧",
			greeting, ml, d.GoalML, d.TargetMLNow, d.SipML)
	} else {
		text = fmt.Sprintf("%syour bottle is down to %d%%. Refill and take ~%d ml (%d ml left for today) 💧",
			greeting, int(math.Round(r.Pct)), d.SipML, d.RemainingML)
	}
	return capitalizeFirst(text)
}

// RephraseContext 改写请求的上下文
func RephraseContext(name, message string, d models.Decision) map[string]interface{} {
	return map[string]interface{}{
		"name":          name,
		"message":       message,
		"goal_ml":       d.GoalML,
		"target_ml_now": d.TargetMLNow,
		"next_sip_ml":   d.SipML,
		"reason":        d.Reason,
	}
}

// CleanRephrased 清理改写结果；为空时返回 false
func CleanRephrased(text string) (string, bool) {
	text = strings.TrimSpace(strings.Trim(strings.TrimSpace(text), "\"`"))
	if text == "" {
		return "", false
	}
	if r := []rune(text); len(r) > MaxMessageLength {
		text = string(r[:MaxMessageLength])
	}
	return text, true
}

func capitalizeFirst(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = []rune(strings.ToUpper(string(r[0])))[0]
	return string(r)
}
