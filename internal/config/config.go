package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	commoncfg "wisefido-hydration/internal/common/config"
	"wisefido-hydration/internal/evaluator"
	"wisefido-hydration/internal/models"
)

var ErrMissingCredentials = errors.New("MESSAGING_TOKEN and RECIPIENT_ID are required")

const (
	DecisionSourceRule = "rule"
	DecisionSourceAI   = "ai"

	StateBackendMemory = "memory"
	StateBackendRedis  = "redis"
)

// Config 饮水提醒服务配置
type Config struct {
	HTTP struct {
		Addr         string
		MaxBodyBytes int64
	}
	Log struct {
		Level  string
		Format string
	}

	// 用户所在时区（静默时段、起床/入睡时间都按该时区计算）
	Timezone string
	Location *time.Location

	Messaging struct {
		BaseURL     string
		Token       string
		RecipientID string
		Timeout     time.Duration
	}

	Gate struct {
		QuietStartHour int
		QuietEndHour   int
		MinInterval    time.Duration
	}

	// 用户配置缺省值（请求体中的 profile 会覆盖）
	Profile models.RawProfile

	Decision struct {
		Source     string
		GoalMode   evaluator.GoalMode
		PacingMode evaluator.PacingMode
		Rephrase   bool
	}

	AI struct {
		BaseURL string
		APIKey  string
		Model   string
		Timeout time.Duration
	}

	State struct {
		Backend   string
		KeyPrefix string
	}
	Redis          commoncfg.RedisConfig
	DecisionStream string

	MQTT struct {
		Enabled bool
		commoncfg.MQTTConfig
	}
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")
	cfg.HTTP.MaxBodyBytes = 64 << 10
	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Timezone = getEnv("TIMEZONE", "UTC")
	if cfg.Location, err = time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}

	// 消息服务
	cfg.Messaging.BaseURL = getEnv("MESSAGING_BASE_URL", "https://api.telegram.org")
	cfg.Messaging.Token = getEnv("MESSAGING_TOKEN", "")
	cfg.Messaging.RecipientID = getEnv("RECIPIENT_ID", "")
	cfg.Messaging.Timeout = time.Duration(parseInt(getEnv("MESSAGING_TIMEOUT_SECONDS", "10"), 10)) * time.Second

	// 静默时段与冷却
	cfg.Gate.QuietStartHour = parseHour(getEnv("QUIET_START_HOUR", "23"), evaluator.DefaultQuietStartHour)
	cfg.Gate.QuietEndHour = parseHour(getEnv("QUIET_END_HOUR", "7"), evaluator.DefaultQuietEndHour)
	cfg.Gate.MinInterval = time.Duration(parseInt(getEnv("MIN_INTERVAL_MINUTES", "30"), 30)) * time.Minute

	// 用户配置
	cfg.Profile = models.RawProfile{
		Name:              getEnv("PROFILE_NAME", ""),
		Age:               parseOptionalFloat(os.Getenv("PROFILE_AGE")),
		WeightKG:          parseOptionalFloat(os.Getenv("WEIGHT_KG")),
		ActivityLevel:     getEnv("ACTIVITY_LEVEL", ""),
		ActivityMinutes:   parseOptionalFloat(os.Getenv("ACTIVITY_MINUTES")),
		ActivityByDay:     ParseActivityByDay(os.Getenv("ACTIVITY_BY_DAY")),
		MedicalConditions: parseList(os.Getenv("MEDICAL_CONDITIONS")),
		ClinicianLimitML:  parseOptionalFloat(os.Getenv("CLINICIAN_LIMIT_ML")),
		WakeTime:          getEnv("WAKE_TIME", "07:00"),
		SleepTime:         getEnv("SLEEP_TIME", "23:00"),
		TempC:             parseOptionalFloat(os.Getenv("TEMP_C")),
		HumidityPct:       parseOptionalFloat(os.Getenv("HUMIDITY_PCT")),
	}

	// 决策
	cfg.Decision.Source = strings.ToLower(getEnv("DECISION_SOURCE", DecisionSourceRule))
	if cfg.Decision.Source != DecisionSourceRule && cfg.Decision.Source != DecisionSourceAI {
		return nil, fmt.Errorf("invalid DECISION_SOURCE %q", cfg.Decision.Source)
	}
	if cfg.Decision.GoalMode, err = evaluator.ParseGoalMode(os.Getenv("GOAL_MODE")); err != nil {
		return nil, err
	}
	if cfg.Decision.PacingMode, err = evaluator.ParsePacingMode(os.Getenv("PACING_MODE")); err != nil {
		return nil, err
	}
	cfg.Decision.Rephrase = getEnv("AI_REPHRASE", "false") == "true"

	cfg.AI.BaseURL = getEnv("AI_BASE_URL", "https://api.openai.com/v1")
	cfg.AI.APIKey = getEnv("AI_API_KEY", "")
	cfg.AI.Model = getEnv("AI_MODEL", "gpt-4o-mini")
	cfg.AI.Timeout = time.Duration(parseInt(getEnv("AI_TIMEOUT_SECONDS", "10"), 10)) * time.Second

	// 冷却状态存储
	cfg.State.Backend = strings.ToLower(getEnv("STATE_BACKEND", StateBackendMemory))
	if cfg.State.Backend != StateBackendMemory && cfg.State.Backend != StateBackendRedis {
		return nil, fmt.Errorf("invalid STATE_BACKEND %q", cfg.State.Backend)
	}
	cfg.State.KeyPrefix = getEnv("STATE_KEY_PREFIX", "hydration:notify:")
	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.LoadFromEnv("REDIS")
	cfg.DecisionStream = getEnv("DECISION_STREAM", "")

	// MQTT 读数接入（默认禁用）
	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "wisefido-hydration"
	cfg.MQTT.Topic = "bottle/+/reading"
	cfg.MQTT.QoS = 1
	cfg.MQTT.LoadFromEnv("MQTT")

	return cfg, nil
}

// Validate 检查必需的消息服务凭据
func (c *Config) Validate() error {
	if c.Messaging.Token == "" || c.Messaging.RecipientID == "" {
		return ErrMissingCredentials
	}
	return nil
}

// AIEnabled 是否配置了文本生成服务
func (c *Config) AIEnabled() bool {
	return c.AI.APIKey != "" && c.AI.BaseURL != ""
}

// ParseActivityByDay 解析 "mon=gym:60,tue=yoga,sat=walk:30"
func ParseActivityByDay(s string) map[string]models.DayActivity {
	out := map[string]models.DayActivity{}
	for _, item := range strings.Split(s, ",") {
		day, value, ok := strings.Cut(strings.TrimSpace(item), "=")
		day = strings.ToLower(strings.TrimSpace(day))
		if !ok || day == "" {
			continue
		}
		desc, minutes, hasMinutes := strings.Cut(value, ":")
		entry := models.DayActivity{Activity: strings.TrimSpace(desc)}
		if hasMinutes {
			entry.Minutes = parseOptionalFloat(minutes)
		}
		out[day] = entry
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return i
}

func parseHour(s string, def int) int {
	h := parseInt(s, def)
	if h < 0 || h > 23 {
		return def
	}
	return h
}

func parseOptionalFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

func parseList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
