package evaluator

import (
	"fmt"
	"math"
	"strings"

	"wisefido-hydration/internal/models"
)

// GoalMode 活动加量公式
type GoalMode string

const (
	// GoalModeAuto 有活动时长时按 30 分钟块计算，否则按等级固定加量
	GoalModeAuto GoalMode = "auto"
	// GoalModeBlocks 始终按 30 分钟块计算（无时长时加量为 0）
	GoalModeBlocks GoalMode = "blocks"
	// GoalModeFlat 始终按等级固定加量，忽略时长
	GoalModeFlat GoalMode = "flat"
)

// ParseGoalMode 解析配置值
func ParseGoalMode(s string) (GoalMode, error) {
	switch m := GoalMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return GoalModeAuto, nil
	case GoalModeAuto, GoalModeBlocks, GoalModeFlat:
		return m, nil
	default:
		return "", fmt.Errorf("unknown goal mode: %q", s)
	}
}

const (
	GoalMinML = 1200
	GoalMaxML = 4000

	mlPerKG          = 35.0
	activityBlockMin = 30.0
	envAddendML      = 300
	hotTempC         = 30.0
	humidPct         = 70.0
	medicalSoftCapML = 2000
)

var (
	blockAddendML = map[models.ActivityLevel]int{
		models.ActivitySedentary: 0,
		models.ActivityLight:     200,
		models.ActivityModerate:  400,
		models.ActivityHeavy:     600,
	}
	flatAddendML = map[models.ActivityLevel]int{
		models.ActivitySedentary: 0,
		models.ActivityLight:     400,
		models.ActivityModerate:  800,
		models.ActivityHeavy:     1200,
	}
	// 需要软上限的病症（慢性肾病、心衰）
	cappedConditions = []string{"ckd", "hf"}
)

// ActivityAddend 活动加量（ml）
func ActivityAddend(p models.Profile, mode GoalMode) int {
	useBlocks := mode == GoalModeBlocks || (mode != GoalModeFlat && p.ActivityMinutes != nil)
	if !useBlocks {
		return flatAddendML[p.ActivityLevel]
	}
	if p.ActivityMinutes == nil {
		return 0
	}
	blocks := int(math.Round(*p.ActivityMinutes / activityBlockMin))
	return blocks * blockAddendML[p.ActivityLevel]
}

// EnvironmentAddend 高温或高湿时的加量，未提供环境数据时为 0
func EnvironmentAddend(p models.Profile) int {
	if (p.TempC != nil && *p.TempC >= hotTempC) || (p.HumidityPct != nil && *p.HumidityPct >= humidPct) {
		return envAddendML
	}
	return 0
}

// ApplyGoalLimits 依次应用医嘱上限 / 病症软上限，并夹到 [GoalMinML, GoalMaxML]
func ApplyGoalLimits(goal int, p models.Profile) int {
	if p.ClinicianLimitML != nil {
		if limit := int(math.Round(*p.ClinicianLimitML)); limit < goal {
			goal = limit
		}
	} else {
		for _, c := range cappedConditions {
			if p.HasCondition(c) && goal > medicalSoftCapML {
				goal = medicalSoftCapML
				break
			}
		}
	}
	return clampInt(goal, GoalMinML, GoalMaxML)
}

// CalculateGoal 计算当日饮水目标（ml）
func CalculateGoal(p models.Profile, mode GoalMode) int {
	goal := int(math.Round(mlPerKG * p.WeightKG))
	goal += ActivityAddend(p, mode)
	goal += EnvironmentAddend(p)
	return ApplyGoalLimits(goal, p)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
