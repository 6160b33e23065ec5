package evaluator

import (
	"strconv"
	"strings"
	"time"

	"wisefido-hydration/internal/models"
)

const (
	// DefaultWeightKG 缺省体重
	DefaultWeightKG = 70.0

	defaultWakeHour  = 7
	defaultSleepHour = 23
)

var (
	heavyKeywords    = []string{"run", "gym", "match", "intense", "cycle"}
	moderateKeywords = []string{"walk", "jog", "yoga", "swim"}

	// 枚举词按强度从高到低匹配
	enumLevels = []models.ActivityLevel{
		models.ActivityHeavy,
		models.ActivityModerate,
		models.ActivityLight,
		models.ActivitySedentary,
	}
)

// NormalizeActivity 将自由文本活动描述归一化为四个活动等级之一
// 优先级: 枚举词 > 强度关键词 > Light
func NormalizeActivity(text string) models.ActivityLevel {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return models.ActivityLight
	}
	for _, level := range enumLevels {
		if strings.Contains(s, strings.ToLower(string(level))) {
			return level
		}
	}
	for _, kw := range heavyKeywords {
		if strings.Contains(s, kw) {
			return models.ActivityHeavy
		}
	}
	for _, kw := range moderateKeywords {
		if strings.Contains(s, kw) {
			return models.ActivityModerate
		}
	}
	return models.ActivityLight
}

// ParseClock 解析 "HH:MM"（24 小时制），锚定到 day 所在日期；非法时使用 fallback 小时
func ParseClock(s string, day time.Time, fallbackHour int) time.Time {
	hour, minute, ok := parseHHMM(s)
	if !ok {
		hour, minute = fallbackHour, 0
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}

func parseHHMM(s string) (int, int, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 || len(parts[1]) != 2 || len(parts[0]) == 0 || len(parts[0]) > 2 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

// weekdayKeys 星期的可接受键（小写）
var weekdayKeys = map[time.Weekday][]string{
	time.Sunday:    {"sun", "sunday"},
	time.Monday:    {"mon", "monday"},
	time.Tuesday:   {"tue", "tuesday"},
	time.Wednesday: {"wed", "wednesday"},
	time.Thursday:  {"thu", "thursday"},
	time.Friday:    {"fri", "friday"},
	time.Saturday:  {"sat", "saturday"},
}

// ActivityForDay 查找某天的活动配置（键不区分大小写）
func ActivityForDay(byDay map[string]models.DayActivity, day time.Weekday) (models.DayActivity, bool) {
	if len(byDay) == 0 {
		return models.DayActivity{}, false
	}
	for key, entry := range byDay {
		k := strings.ToLower(strings.TrimSpace(key))
		for _, want := range weekdayKeys[day] {
			if k == want {
				return entry, true
			}
		}
	}
	return models.DayActivity{}, false
}

// NormalizeProfile 将原始配置补全为完整 Profile，不返回错误
// now 需已转换到用户所在时区
func NormalizeProfile(raw models.RawProfile, now time.Time) models.Profile {
	p := models.Profile{
		Name:             strings.TrimSpace(raw.Name),
		Age:              raw.Age,
		WeightKG:         DefaultWeightKG,
		ClinicianLimitML: raw.ClinicianLimitML,
		TempC:            raw.TempC,
		HumidityPct:      raw.HumidityPct,
	}
	if raw.WeightKG != nil && *raw.WeightKG > 0 {
		p.WeightKG = *raw.WeightKG
	}

	// 当天的活动配置优先于统一配置
	activity, minutes := raw.ActivityLevel, raw.ActivityMinutes
	if entry, ok := ActivityForDay(raw.ActivityByDay, now.Weekday()); ok {
		activity, minutes = entry.Activity, entry.Minutes
	}
	p.ActivityLevel = NormalizeActivity(activity)
	if minutes != nil {
		m := *minutes
		if m < 0 {
			m = 0
		}
		p.ActivityMinutes = &m
	}

	for _, c := range raw.MedicalConditions {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			p.MedicalConditions = append(p.MedicalConditions, c)
		}
	}

	p.Wake = ParseClock(raw.WakeTime, now, defaultWakeHour)
	p.Sleep = ParseClock(raw.SleepTime, now, defaultSleepHour)
	// 入睡时间跨午夜且 now 尚未到入睡时间：仍属于前一天的作息
	if !p.Sleep.After(p.Wake) && now.Before(p.Sleep) {
		p.Wake = p.Wake.AddDate(0, 0, -1)
	}
	return p
}
