package models

// SkipReason 不发送提醒的原因
type SkipReason string

const (
	SkipNone          SkipReason = ""
	SkipQuietHours    SkipReason = "quiet_hours"
	SkipInterval      SkipReason = "interval"
	SkipOnTrackOrDone SkipReason = "on_track_or_done"
)

// Decision 决策引擎输出
type Decision struct {
	GoalML      int    `json:"goal_ml"`
	TargetMLNow int    `json:"target_ml_now"`
	RemainingML int    `json:"remaining_ml"`
	Behind      bool   `json:"behind"`
	VeryLow     bool   `json:"very_low"`
	Notify      bool   `json:"notify"`
	SipML       int    `json:"next_sip_ml"`
	Reason      string `json:"reason,omitempty"`
	Source      string `json:"source"`
}

// Outcome 一次读数处理的结果
type Outcome struct {
	EventID  string     `json:"event_id"`
	Notified bool       `json:"notified"`
	Skipped  SkipReason `json:"skipped,omitempty"`
	Decision *Decision  `json:"decision,omitempty"`
	Message  string     `json:"message,omitempty"`
}
