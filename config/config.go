package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

type Config struct {
	// TheSports 上游配置
	APIToken   string
	APIBaseURL string

	// MQTT 推送配置
	MQTTBroker   string
	MQTTUsername string
	MQTTPassword string
	MQTTTopic    string

	// AMQP 推送配置 (可选，为空时不启动)
	AMQPURL   string
	AMQPQueue string

	// 数据库配置
	DatabaseURL string

	// 服务器配置
	Port string

	// 其他配置
	Environment string

	// 轮询配置
	PollInterval time.Duration // 活比赛快照轮询间隔
	FetchTimeout time.Duration // 上游请求超时，超时当作本轮无数据

	// 对账配置
	AuditInterval time.Duration // 审计周期
	OrphanCycles  int           // 连续多少个周期不在上游活列表才判定为孤儿比赛

	// 调度配置
	LockTimeout time.Duration // 单场比赛锁的最大等待时间，超时进入重试队列

	// status 字段的来源信任顺序（从高到低），score 字段固定为 push>api>watchdog
	StatusTrustOrder []string
}

func Load() *Config {
	return &Config{
		// TheSports 上游配置
		APIToken:   getEnv("THESPORTS_API_TOKEN", ""),
		APIBaseURL: getEnv("THESPORTS_API_URL", "https://api.thesports.com"),

		// MQTT 推送配置
		MQTTBroker:   getEnv("MQTT_BROKER", "ssl://mq.thesports.com:443"),
		MQTTUsername: getEnv("MQTT_USERNAME", ""),
		MQTTPassword: getEnv("MQTT_PASSWORD", ""),
		MQTTTopic:    getEnv("MQTT_TOPIC", "thesports/football/match/v1"),

		// AMQP 推送配置
		AMQPURL:   getEnv("AMQP_URL", ""),
		AMQPQueue: getEnv("AMQP_QUEUE", "livematch.updates"),

		// 数据库配置
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/livematch?sslmode=disable"),

		// 服务器配置
		Port: getEnv("PORT", "8080"),

		// 其他配置
		Environment: getEnv("ENVIRONMENT", "development"),

		// 轮询配置
		PollInterval: time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 20)) * time.Second,
		FetchTimeout: time.Duration(getEnvInt("FETCH_TIMEOUT_SECONDS", 5)) * time.Second,

		// 对账配置
		AuditInterval: time.Duration(getEnvInt("AUDIT_INTERVAL_SECONDS", 60)) * time.Second,
		OrphanCycles:  getEnvInt("ORPHAN_CYCLES", 3),

		// 调度配置
		LockTimeout: time.Duration(getEnvInt("LOCK_TIMEOUT_MS", 1000)) * time.Millisecond,

		// status 信任顺序待运营确认，先做成可配置
		StatusTrustOrder: getStatusTrustOrder(),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var result int
	fmt.Sscanf(value, "%d", &result)
	if result == 0 {
		// 显式的 0 和解析失败都落回默认值，提示一下防止配置拼错没人发现
		log.Printf("⚠️  Invalid %s=%q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return result
}

func getStatusTrustOrder() []string {
	order := getEnv("STATUS_TRUST_ORDER", "push,api,watchdog")
	parts := strings.Split(order, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
