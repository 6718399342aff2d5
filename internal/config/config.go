// Package config загружает конфигурацию бота из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Telegram ---
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	// ID основного чата сообщества (единственный разрешённый групповой чат)
	CommunityChatID int64 `envconfig:"COMMUNITY_CHAT_ID" required:"true"`
	// Канал журнала активности (0 — журнал отключён)
	LogChannelID int64  `envconfig:"LOG_CHANNEL_ID" default:"0"`
	AdminIDsRaw  string `envconfig:"ADMIN_IDS" required:"true"`
	AdminIDs     []int64 `envconfig:"-"` // заполним вручную

	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose).
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"botuser"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"heavenly_pounds"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`

	// --- Bot runtime ---
	// Сколько апдейтов обрабатываем параллельно. Иначе "go на каждый
	// апдейт" = утечка памяти при флуде.
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`
	// Таймаут long polling (секунды)
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`
	// Rate limiting: не больше N запросов на пользователя за окно
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"20"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"60s"`

	// --- Admin ---
	// Пустая строка отключает парольный вход через DM (остаются ADMIN_IDS).
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH" default:""`

	// --- Ставки наград ---
	// Каноническая таблица ставок (см. DESIGN.md, Open Questions).
	RewardInvite       int64 `envconfig:"REWARD_INVITE" default:"80"`
	RewardMessageBatch int64 `envconfig:"REWARD_MESSAGE_BATCH" default:"20"`
	MessageThreshold   int64 `envconfig:"MESSAGE_THRESHOLD" default:"100"`
	RewardVoiceBatch   int64 `envconfig:"REWARD_VOICE_BATCH" default:"20"`
	VoiceThresholdMin  int64 `envconfig:"VOICE_THRESHOLD_MINUTES" default:"60"`
	RewardBoost        int64 `envconfig:"REWARD_BOOST" default:"1000"`
	DailyBaseReward    int64 `envconfig:"DAILY_BASE_REWARD" default:"10"`

	// --- Серверный пул ---
	PoolSeedBalance int64 `envconfig:"POOL_SEED_BALANCE" default:"100000"`

	// --- Экспорт покупок ---
	// Путь к append-only CSV-журналу покупок ("" — экспорт отключён).
	PurchaseLedgerPath string `envconfig:"PURCHASE_LEDGER_PATH" default:"purchases.csv"`

	// --- Feature Flags ---
	FeatureGiveawaysEnabled bool `envconfig:"FEATURE_GIVEAWAYS_ENABLED" default:"true"`
	FeatureShopEnabled      bool `envconfig:"FEATURE_SHOP_ENABLED" default:"true"`
	FeatureDailyEnabled     bool `envconfig:"FEATURE_DAILY_ENABLED" default:"true"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// IsAdmin проверяет, входит ли пользователь в список ADMIN_IDS.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (c *Config) Validate() error {
	if c.CommunityChatID == 0 {
		return fmt.Errorf("COMMUNITY_CHAT_ID не задан или равен 0")
	}
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
	}
	if c.BotUpdateTimeoutSeconds <= 0 {
		return fmt.Errorf("BOT_UPDATE_TIMEOUT_SECONDS должен быть > 0")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.MessageThreshold <= 0 || c.VoiceThresholdMin <= 0 {
		return fmt.Errorf("пороги начислений должны быть > 0")
	}
	if c.RewardInvite < 0 || c.RewardMessageBatch < 0 || c.RewardVoiceBatch < 0 ||
		c.RewardBoost < 0 || c.DailyBaseReward < 0 || c.PoolSeedBalance < 0 {
		return fmt.Errorf("ставки наград не могут быть отрицательными")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	ids, err := parseInt64CSV(cfg.AdminIDsRaw)
	if err != nil {
		return nil, fmt.Errorf("ADMIN_IDS parse: %w", err)
	}
	cfg.AdminIDs = ids

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseInt64CSV(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad int64 %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}
