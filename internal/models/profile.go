package models

import (
	"strings"
	"time"
)

// ActivityLevel 活动强度
type ActivityLevel string

const (
	ActivitySedentary ActivityLevel = "Sedentary"
	ActivityLight     ActivityLevel = "Light"
	ActivityModerate  ActivityLevel = "Moderate"
	ActivityHeavy     ActivityLevel = "Heavy"
)

// DayActivity 某一天的活动描述（自由文本）及可选时长
type DayActivity struct {
	Activity string   `json:"activity"`
	Minutes  *float64 `json:"minutes,omitempty"`
}

// RawProfile 原始用户配置，字段可能缺失
type RawProfile struct {
	Name              string                 `json:"name,omitempty"`
	Age               *float64               `json:"age,omitempty"`
	WeightKG          *float64               `json:"weight_kg,omitempty"`
	ActivityLevel     string                 `json:"activity_level,omitempty"`
	ActivityMinutes   *float64               `json:"daily_activity_minutes,omitempty"`
	ActivityByDay     map[string]DayActivity `json:"activity_by_day,omitempty"`
	MedicalConditions []string               `json:"medical_conditions,omitempty"`
	ClinicianLimitML  *float64               `json:"clinician_limit_ml,omitempty"`
	WakeTime          string                 `json:"wake_time,omitempty"`
	SleepTime         string                 `json:"sleep_time,omitempty"`
	TempC             *float64               `json:"temp_c,omitempty"`
	HumidityPct       *float64               `json:"humidity_pct,omitempty"`
}

// Merge 用 override 中已设置的字段覆盖当前配置，返回新副本
func (r RawProfile) Merge(override *RawProfile) RawProfile {
	if override == nil {
		return r
	}
	out := r
	if override.Name != "" {
		out.Name = override.Name
	}
	if override.Age != nil {
		out.Age = override.Age
	}
	if override.WeightKG != nil {
		out.WeightKG = override.WeightKG
	}
	if override.ActivityLevel != "" {
		out.ActivityLevel = override.ActivityLevel
	}
	if override.ActivityMinutes != nil {
		out.ActivityMinutes = override.ActivityMinutes
	}
	if len(override.ActivityByDay) > 0 {
		out.ActivityByDay = override.ActivityByDay
	}
	if override.MedicalConditions != nil {
		out.MedicalConditions = override.MedicalConditions
	}
	if override.ClinicianLimitML != nil {
		out.ClinicianLimitML = override.ClinicianLimitML
	}
	if override.WakeTime != "" {
		out.WakeTime = override.WakeTime
	}
	if override.SleepTime != "" {
		out.SleepTime = override.SleepTime
	}
	if override.TempC != nil {
		out.TempC = override.TempC
	}
	if override.HumidityPct != nil {
		out.HumidityPct = override.HumidityPct
	}
	return out
}

// Profile 归一化后的用户配置（单次决策周期内不可变）
type Profile struct {
	Name              string
	Age               *float64
	WeightKG          float64
	ActivityLevel     ActivityLevel
	ActivityMinutes   *float64 // nil 表示只有活动类别，没有时长
	MedicalConditions []string // 小写、去空白
	ClinicianLimitML  *float64
	Wake              time.Time
	Sleep             time.Time
	TempC             *float64
	HumidityPct       *float64
}

// HasCondition 是否包含某个病症标记（不区分大小写）
func (p Profile) HasCondition(cond string) bool {
	cond = strings.ToLower(strings.TrimSpace(cond))
	for _, c := range p.MedicalConditions {
		if c == cond {
			return true
		}
	}
	return false
}
