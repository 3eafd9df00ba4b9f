package config

import (
	"errors"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv   string `envconfig:"APP_ENV" default:"dev"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	APIToken string `envconfig:"API_TOKEN"`

	Discord struct {
		Token         string `envconfig:"DISCORD_TOKEN"`
		ApplicationID string `envconfig:"DISCORD_APP_ID"`
		WebhookName   string `envconfig:"DISCORD_MIRROR_WEBHOOK" default:"QOTW Mirror"`
	} `envconfig:""`

	Telegram struct {
		Token       string `envconfig:"TG_BOT_TOKEN"`
		StaffChatID int64  `envconfig:"TG_STAFF_CHAT_ID"`
	} `envconfig:""`

	PGDSN      string `envconfig:"PG_DSN"`
	PGMaxConns int32  `envconfig:"PG_MAX_CONNS" default:"5"`

	RedisAddr   string `envconfig:"REDIS_ADDR"`
	RedisPrefix string `envconfig:"REDIS_PREFIX" default:"qotw:"`

	GuildsFile string `envconfig:"GUILDS_FILE" default:"guilds.yaml"`

	QOTW struct {
		PopulateWorkers int           `envconfig:"POPULATE_WORKERS" default:"4"`
		PopulateQueue   string        `envconfig:"POPULATE_QUEUE_KEY" default:"qotw:populate"`
		GuardTTL        time.Duration `envconfig:"QOTW_GUARD_TTL" default:"336h"`
		ReminderCron    string        `envconfig:"REMINDER_CRON" default:"0 7 * * 1"`
		NotifyTimeout   time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"10s"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения. Файл .env, если есть, читается первым.
func Load() AppConfig {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("не удалось прочитать .env: %v", err)
	}
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
