package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wisefido-hydration/internal/advisor"
	"wisefido-hydration/internal/common/logger"
	mqttcommon "wisefido-hydration/internal/common/mqtt"
	rediscommon "wisefido-hydration/internal/common/redis"
	"wisefido-hydration/internal/config"
	"wisefido-hydration/internal/consumer"
	"wisefido-hydration/internal/evaluator"
	httpapi "wisefido-hydration/internal/http"
	"wisefido-hydration/internal/notifier"
	"wisefido-hydration/internal/service"
	"wisefido-hydration/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "wisefido-hydration")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	// 凭据缺失时照常启动，每个请求返回 missing_config
	if err := cfg.Validate(); err != nil {
		zapLogger.Warn("Messaging credentials not configured", zap.Error(err))
	}

	// Redis（冷却状态共享 / 决策事件流，按需）
	var redisClient *redis.Client
	if cfg.State.Backend == config.StateBackendRedis || cfg.DecisionStream != "" {
		redisClient = rediscommon.NewRedisClient(&cfg.Redis)
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rediscommon.Ping(pingCtx, redisClient); err != nil {
			zapLogger.Warn("Redis not reachable at startup", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		cancel()
	}

	var notifyStore store.NotifyStore = store.NewMemoryStore()
	if cfg.State.Backend == config.StateBackendRedis {
		notifyStore = store.NewRedisStore(redisClient, cfg.State.KeyPrefix, store.DefaultTTL)
	}
	gate := evaluator.NewGate(cfg.Gate.QuietStartHour, cfg.Gate.QuietEndHour, cfg.Gate.MinInterval, notifyStore, zapLogger)

	deps := service.Dependencies{
		Gate:   gate,
		Source: evaluator.NewRuleSource(),
		Messenger: notifier.NewTelegramClient(notifier.TelegramConfig{
			BaseURL: cfg.Messaging.BaseURL,
			Token:   cfg.Messaging.Token,
			Timeout: cfg.Messaging.Timeout,
		}, zapLogger),
	}

	// 文本生成服务（决策 / 改写）
	if cfg.AIEnabled() {
		ai := advisor.NewClient(advisor.Config{
			BaseURL: cfg.AI.BaseURL,
			APIKey:  cfg.AI.APIKey,
			Model:   cfg.AI.Model,
			Timeout: cfg.AI.Timeout,
		}, zapLogger)
		if cfg.Decision.Source == config.DecisionSourceAI {
			deps.Source = evaluator.NewAdvisorSource(ai, zapLogger)
		}
		if cfg.Decision.Rephrase {
			deps.Rephraser = ai
		}
	} else if cfg.Decision.Source == config.DecisionSourceAI || cfg.Decision.Rephrase {
		zapLogger.Warn("AI_API_KEY not set, using rule decisions and template messages")
	}

	if cfg.DecisionStream != "" {
		deps.Publisher = service.NewStreamPublisher(redisClient, cfg.DecisionStream)
	}

	hydration := service.NewHydrationService(cfg, deps, zapLogger)

	zapLogger.Info("Hydration service configured",
		zap.String("timezone", cfg.Timezone),
		zap.String("decision_source", deps.Source.Name()),
		zap.String("goal_mode", string(cfg.Decision.GoalMode)),
		zap.String("pacing_mode", string(cfg.Decision.PacingMode)),
		zap.String("state_backend", cfg.State.Backend),
		zap.Bool("rephrase", deps.Rephraser != nil),
	)

	router := httpapi.NewRouter(zapLogger)
	router.RegisterReadingRoutes(httpapi.NewReadingHandler(hydration, cfg.HTTP.MaxBodyBytes, zapLogger))
	srv := service.NewServer(cfg.HTTP.Addr, router, zapLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// MQTT 读数接入（可选）
	var mqttClient *mqttcommon.Client
	var mqttConsumer *consumer.MQTTConsumer
	if cfg.MQTT.Enabled {
		mqttClient, err = mqttcommon.NewClient(&cfg.MQTT.MQTTConfig, zapLogger)
		if err != nil {
			zapLogger.Error("Failed to connect to MQTT broker, MQTT ingestion disabled", zap.Error(err))
		} else {
			mqttConsumer = consumer.NewMQTTConsumer(mqttClient, hydration, cfg.MQTT.Topic, cfg.MQTT.QoS, zapLogger)
			go func() {
				if err := mqttConsumer.Start(ctx); err != nil {
					errCh <- err
				}
			}()
		}
	}

	// 等待中断信号
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zapLogger.Info("Shutting down wisefido-hydration")
	case err := <-errCh:
		zapLogger.Error("Service error", zap.Error(err))
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if mqttConsumer != nil {
		mqttConsumer.Stop()
	}
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	if err := srv.Stop(shutdownCtx); err != nil {
		zapLogger.Error("Failed to stop HTTP server", zap.Error(err))
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}
