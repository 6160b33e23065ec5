package evaluator

import (
	"testing"

	"wisefido-hydration/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateGoal_BlockMode(t *testing.T) {
	p := models.Profile{
		WeightKG:        70,
		ActivityLevel:   models.ActivityModerate,
		ActivityMinutes: floatPtr(60),
	}
	// 2450 + 2×400
	assert.Equal(t, 3250, CalculateGoal(p, GoalModeAuto))
	assert.Equal(t, 3250, CalculateGoal(p, GoalModeBlocks))
}

func TestCalculateGoal_BlocksRoundHalfUp(t *testing.T) {
	p := models.Profile{
		WeightKG:        60,
		ActivityLevel:   models.ActivityLight,
		ActivityMinutes: floatPtr(45),
	}
	// round(45/30) = 2 → 2100 + 400
	assert.Equal(t, 2500, CalculateGoal(p, GoalModeAuto))
}

func TestCalculateGoal_FlatModeWithoutMinutes(t *testing.T) {
	p := models.Profile{WeightKG: 70, ActivityLevel: models.ActivityHeavy}
	assert.Equal(t, 3650, CalculateGoal(p, GoalModeAuto))

	// blocks 模式下缺少时长 → 不加量
	assert.Equal(t, 2450, CalculateGoal(p, GoalModeBlocks))
}

func TestCalculateGoal_FlatModeIgnoresMinutes(t *testing.T) {
	p := models.Profile{
		WeightKG:        70,
		ActivityLevel:   models.ActivityModerate,
		ActivityMinutes: floatPtr(120),
	}
	assert.Equal(t, 3250, CalculateGoal(p, GoalModeFlat))
}

func TestCalculateGoal_FloorClamp(t *testing.T) {
	p := models.Profile{WeightKG: 10, ActivityLevel: models.ActivitySedentary}
	assert.Equal(t, GoalMinML, CalculateGoal(p, GoalModeAuto))
}

func TestCalculateGoal_CeilingClamp(t *testing.T) {
	p := models.Profile{
		WeightKG:        120,
		ActivityLevel:   models.ActivityHeavy,
		ActivityMinutes: floatPtr(120),
	}
	assert.Equal(t, GoalMaxML, CalculateGoal(p, GoalModeAuto))
}

func TestCalculateGoal_Environment(t *testing.T) {
	base := models.Profile{WeightKG: 60, ActivityLevel: models.ActivityLight}
	require.Equal(t, 2500, CalculateGoal(base, GoalModeAuto))

	hot := base
	hot.TempC = floatPtr(30)
	assert.Equal(t, 2800, CalculateGoal(hot, GoalModeAuto))

	humid := base
	humid.HumidityPct = floatPtr(70)
	assert.Equal(t, 2800, CalculateGoal(humid, GoalModeAuto))

	mild := base
	mild.TempC = floatPtr(29.9)
	mild.HumidityPct = floatPtr(50)
	assert.Equal(t, 2500, CalculateGoal(mild, GoalModeAuto))
}

func TestCalculateGoal_ClinicianLimit(t *testing.T) {
	p := models.Profile{
		WeightKG:          70,
		ActivityLevel:     models.ActivityModerate,
		ActivityMinutes:   floatPtr(60),
		ClinicianLimitML:  floatPtr(3000),
		MedicalConditions: []string{"ckd"},
	}
	// 有医嘱上限时不再应用软上限
	assert.Equal(t, 3000, CalculateGoal(p, GoalModeAuto))

	p.ClinicianLimitML = floatPtr(1000)
	assert.Equal(t, GoalMinML, CalculateGoal(p, GoalModeAuto))
}

func TestCalculateGoal_MedicalSoftCap(t *testing.T) {
	p := models.Profile{
		WeightKG:          70,
		ActivityLevel:     models.ActivityModerate,
		ActivityMinutes:   floatPtr(60),
		MedicalConditions: []string{"hf"},
	}
	assert.Equal(t, 2000, CalculateGoal(p, GoalModeAuto))

	// 低于软上限时不变
	p.WeightKG = 40
	p.ActivityLevel = models.ActivitySedentary
	assert.Equal(t, 1400, CalculateGoal(p, GoalModeAuto))

	// 其它病症不触发
	p = models.Profile{WeightKG: 70, ActivityLevel: models.ActivityHeavy, MedicalConditions: []string{"asthma"}}
	assert.Equal(t, 3650, CalculateGoal(p, GoalModeAuto))
}

func TestParseGoalMode(t *testing.T) {
	m, err := ParseGoalMode("")
	require.NoError(t, err)
	assert.Equal(t, GoalModeAuto, m)

	m, err = ParseGoalMode(" FLAT ")
	require.NoError(t, err)
	assert.Equal(t, GoalModeFlat, m)

	_, err = ParseGoalMode("hourly")
	assert.Error(t, err)
}
