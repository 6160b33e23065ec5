package models

import "encoding/json"

// Reading 单次传感器采样
type Reading struct {
	ML  float64  `json:"ml"`
	Pct float64  `json:"pct"`
	CM  *float64 `json:"cm,omitempty"` // 距离传感器原始值，决策不使用
}

// ReadingRequest 入站请求体（HTTP / MQTT 共用）
type ReadingRequest struct {
	ML      *float64        `json:"ml"`
	Pct     *float64        `json:"pct"`
	CM      *float64        `json:"cm,omitempty"`
	TS      json.RawMessage `json:"ts,omitempty"`
	Profile *RawProfile     `json:"profile,omitempty"`
}

// Valid 必填字段是否齐全
func (r *ReadingRequest) Valid() bool {
	return r != nil && r.ML != nil && r.Pct != nil
}

// Reading 转换为采样值（调用前须 Valid）
func (r *ReadingRequest) Reading() Reading {
	ml := *r.ML
	if ml < 0 {
		ml = 0
	}
	return Reading{ML: ml, Pct: *r.Pct, CM: r.CM}
}
