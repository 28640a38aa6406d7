package main

import (
	"strings"
	"time"

	"github.com/samber/lo"
)

type Settings struct {
	Port      int    `env:"PORT,default=8000"`
	BasePath  string `env:"BASE_PATH,default=/gateway"`
	JWTSecret string `env:"JWT_SECRET,required=true"`
	APIKeys   string `env:"API_KEYS"`

	LogEncoding    string `env:"LOG_ENCODING,default=console"`
	LogLevel       string `env:"LOG_LEVEL,default=debug"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`

	PingIntervalMs int `env:"PING_INTERVAL_MS,default=10000"`
	PingTimeoutMs  int `env:"PING_TIMEOUT_MS,default=15000"`
	SendBufferSize int `env:"SEND_BUFFER_SIZE,default=256"`

	Store           string `env:"STORE,default=memory"`
	MongoDBURI      string `env:"MONGODB_URI,default=mongodb://localhost:27017"`
	MongoDBDatabase string `env:"MONGODB_DATABASE,default=chat"`

	EventBus          string `env:"EVENT_BUS,default=memory"`
	RedisAddr         string `env:"REDIS_ADDR,default=localhost:6379"`
	RedisPassword     string `env:"REDIS_PASSWORD"`
	RedisDB           int    `env:"REDIS_DB,default=0"`
	RedisPrefix       string `env:"REDIS_PREFIX,default=gateway:"`
	NatsURL           string `env:"NATS_URL,default=nats://localhost:4222"`
	NatsSubjectPrefix string `env:"NATS_SUBJECT_PREFIX,default=gateway."`
}

func (s Settings) APIKeyList() []string {
	return splitList(s.APIKeys)
}

func (s Settings) AllowedOriginList() []string {
	return splitList(s.AllowedOrigins)
}

func (s Settings) PingInterval() time.Duration {
	return time.Duration(s.PingIntervalMs) * time.Millisecond
}

func (s Settings) PingTimeout() time.Duration {
	return time.Duration(s.PingTimeoutMs) * time.Millisecond
}

func splitList(value string) []string {
	return lo.Compact(lo.Map(strings.Split(value, ","), func(item string, _ int) string {
		return strings.TrimSpace(item)
	}))
}
