package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedisConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("REDIS_PASSWORD", "secret")
	t.Setenv("REDIS_DB", "3")

	c := RedisConfig{Addr: "localhost:6379"}
	c.LoadFromEnv("REDIS")

	assert.Equal(t, "redis:6380", c.Addr)
	assert.Equal(t, "secret", c.Password)
	assert.Equal(t, 3, c.DB)
}

func TestRedisConfig_LoadFromEnv_KeepsDefaultsOnBadDB(t *testing.T) {
	t.Setenv("REDIS_DB", "not-a-number")

	c := RedisConfig{Addr: "localhost:6379", DB: 1}
	c.LoadFromEnv("REDIS")

	assert.Equal(t, "localhost:6379", c.Addr)
	assert.Equal(t, 1, c.DB)
}

func TestMQTTConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("MQTT_BROKER", "tcp://broker:1883")
	t.Setenv("MQTT_CLIENT_ID", "bottle-backend")
	t.Setenv("MQTT_TOPIC", "bottle/+/reading")
	t.Setenv("MQTT_QOS", "2")

	c := MQTTConfig{QoS: 1}
	c.LoadFromEnv("MQTT")

	assert.Equal(t, "tcp://broker:1883", c.Broker)
	assert.Equal(t, "bottle-backend", c.ClientID)
	assert.Equal(t, "bottle/+/reading", c.Topic)
	assert.Equal(t, byte(2), c.QoS)

	// 超出范围的 QoS 被忽略
	t.Setenv("MQTT_QOS", "5")
	c.LoadFromEnv("MQTT")
	assert.Equal(t, byte(2), c.QoS)
}
