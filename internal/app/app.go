// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, репозитории, сервисы, обработчики,
// фильтры и собирает всё в один объект Bot.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mymmrac/telego"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/heavenly-temple/pounds-bot/internal/bot"
	"github.com/heavenly-temple/pounds-bot/internal/bot/filters"
	"github.com/heavenly-temple/pounds-bot/internal/config"
	"github.com/heavenly-temple/pounds-bot/internal/db/postgres"
	"github.com/heavenly-temple/pounds-bot/internal/export"
	"github.com/heavenly-temple/pounds-bot/internal/features/accrual"
	"github.com/heavenly-temple/pounds-bot/internal/features/admin"
	"github.com/heavenly-temple/pounds-bot/internal/features/daily"
	"github.com/heavenly-temple/pounds-bot/internal/features/giveaway"
	"github.com/heavenly-temple/pounds-bot/internal/features/ledger"
	"github.com/heavenly-temple/pounds-bot/internal/features/pool"
	"github.com/heavenly-temple/pounds-bot/internal/features/shop"
	"github.com/heavenly-temple/pounds-bot/internal/jobs"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool
	BotAPI    *telego.Bot
	Giveaways *giveaway.Service
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	db, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	// Запускаем миграции
	if err := runMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Telegram Bot API ===
	api, err := telego.NewBot(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	me, err := api.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка авторизации бота: %w", err)
	}
	log.Infof("Авторизован как @%s", me.Username)

	// === 3. Журнал активности ===
	notifier := bot.NewChannelNotifier(api, cfg.LogChannelID)

	// === 4. Репозитории ===
	ledgerRepo := ledger.NewRepository(db)
	accrualRepo := accrual.NewRepository(db)
	poolRepo := pool.NewRepository(db)
	shopRepo := shop.NewRepository(db)
	dailyRepo := daily.NewRepository(db)
	giveawayRepo := giveaway.NewRepository(db)
	adminRepo := admin.NewRepository(db)

	// === 5. Сервисы ===
	ledgerService := ledger.NewService(ledgerRepo)
	poolService := pool.NewService(poolRepo)

	// Пул создаётся один раз со стартовым балансом
	if err := poolService.Initialize(ctx, decimal.NewFromInt(cfg.PoolSeedBalance)); err != nil {
		return nil, fmt.Errorf("ошибка инициализации пула: %w", err)
	}

	accrualService := accrual.NewService(accrualRepo, ledgerService, accrual.Rates{
		Invite:           cfg.RewardInvite,
		MessageBatch:     cfg.RewardMessageBatch,
		MessageThreshold: cfg.MessageThreshold,
		VoiceBatch:       cfg.RewardVoiceBatch,
		VoiceThreshold:   cfg.VoiceThresholdMin,
		Boost:            cfg.RewardBoost,
	}, notifier)

	var exporter shop.Exporter
	if cfg.PurchaseLedgerPath != "" {
		exporter = export.NewCSVLedger(cfg.PurchaseLedgerPath)
	}
	shopService := shop.NewService(shopRepo, exporter, notifier)
	dailyService := daily.NewService(dailyRepo, cfg.DailyBaseReward, notifier)
	giveawayService := giveaway.NewService(giveawayRepo, ledgerService, poolService, notifier, nil)
	adminService := admin.NewService(adminRepo, ledgerService, poolService, cfg, notifier)

	// === 6. Обработчики ===
	ledgerHandler := ledger.NewHandler(ledgerService, api)
	accrualHandler := accrual.NewHandler(accrualService, ledgerService, api)
	shopHandler := shop.NewHandler(shopService, api)
	dailyHandler := daily.NewHandler(dailyService, api)
	giveawayHandler := giveaway.NewHandler(giveawayService, adminService, api, cfg.CommunityChatID)
	adminHandler := admin.NewHandler(adminService, ledgerService, api)

	// Таймеры розыгрышей объявляют итоги через обработчик
	giveawayService.SetAnnouncer(giveawayHandler.AnnounceResult)

	// Розыгрыши, пережившие рестарт, получают таймеры заново
	if err := giveawayService.RestoreTimers(ctx); err != nil {
		return nil, fmt.Errorf("ошибка восстановления таймеров: %w", err)
	}

	// === 7. Фильтры ===
	chatFilter := filters.NewChatFilter(cfg.CommunityChatID, ledgerService, api)

	// === 8. Собираем бота ===
	b := bot.New(
		api, cfg,
		ledgerService, ledgerHandler,
		accrualService, accrualHandler,
		shopHandler,
		dailyHandler,
		giveawayHandler,
		adminHandler,
		chatFilter,
	)

	// === 9. Планировщик задач ===
	scheduler := jobs.NewScheduler(giveawayService, giveawayHandler, adminService)

	return &App{
		Bot:       b,
		Scheduler: scheduler,
		DB:        db,
		BotAPI:    api,
		Giveaways: giveawayService,
	}, nil
}

// runMigrations выполняет все SQL-миграции.
func runMigrations(ctx context.Context, db *pgxpool.Pool) error {
	// Инициализируем систему миграций
	if err := postgres.InitMigrations(ctx, db); err != nil {
		return err
	}

	// Выполняем миграции по порядку
	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001Users},
		{2, migration002Activity},
		{3, migration003ServerStats},
		{4, migration004Giveaways},
		{5, migration005Admin},
	}

	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, db, m.version, m.sql); err != nil {
			return fmt.Errorf("миграция %d: %w", m.version, err)
		}
		log.Infof("Миграция %d применена", m.version)
	}

	return nil
}

// SQL-миграции встроены в код для упрощения деплоя.

var migration001Users = `
CREATE TABLE IF NOT EXISTS users (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT UNIQUE NOT NULL,
    username VARCHAR(255),
    first_name VARCHAR(255),
    last_name VARCHAR(255),
    balance NUMERIC(20,2) NOT NULL DEFAULT 0,
    gold BIGINT NOT NULL DEFAULT 0,
    wood BIGINT NOT NULL DEFAULT 0,
    food BIGINT NOT NULL DEFAULT 0,
    stone BIGINT NOT NULL DEFAULT 0,
    last_daily DATE,
    daily_streak INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_users_user_id ON users(user_id);
CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);
CREATE INDEX IF NOT EXISTS idx_users_balance ON users(balance DESC);

CREATE TABLE IF NOT EXISTS transactions (
    id BIGSERIAL PRIMARY KEY,
    from_user_id BIGINT,
    to_user_id BIGINT,
    amount NUMERIC(20,2) NOT NULL,
    transaction_type VARCHAR(50) NOT NULL,
    description TEXT,
    created_at TIMESTAMP DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_transactions_from_user ON transactions(from_user_id);
CREATE INDEX IF NOT EXISTS idx_transactions_to_user ON transactions(to_user_id);
CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at DESC);
`

var migration002Activity = `
CREATE TABLE IF NOT EXISTS message_counts (
    user_id BIGINT PRIMARY KEY,
    count BIGINT NOT NULL DEFAULT 0,
    rewarded BIGINT NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS voice_times (
    user_id BIGINT PRIMARY KEY,
    minutes BIGINT NOT NULL DEFAULT 0,
    rewarded_minutes BIGINT NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS invites (
    user_id BIGINT PRIMARY KEY,
    count BIGINT NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS boosts (
    user_id BIGINT PRIMARY KEY,
    count BIGINT NOT NULL DEFAULT 0,
    rewarded BIGINT NOT NULL DEFAULT 0
);
`

var migration003ServerStats = `
CREATE TABLE IF NOT EXISTS server_stats (
    id BIGINT PRIMARY KEY,
    pool_balance NUMERIC(20,2) NOT NULL DEFAULT 0,
    updated_at TIMESTAMP DEFAULT NOW()
);
`

var migration004Giveaways = `
CREATE TABLE IF NOT EXISTS giveaways (
    id BIGSERIAL PRIMARY KEY,
    prize NUMERIC(20,2) NOT NULL,
    entry_cost NUMERIC(20,2) NOT NULL DEFAULT 0,
    winners_count INTEGER NOT NULL DEFAULT 1,
    participants BIGINT[] NOT NULL DEFAULT '{}',
    winners BIGINT[] NOT NULL DEFAULT '{}',
    message_id BIGINT NOT NULL DEFAULT 0,
    created_by BIGINT NOT NULL,
    ends_at TIMESTAMP NOT NULL,
    ended BOOLEAN NOT NULL DEFAULT FALSE,
    cancelled BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_giveaways_open ON giveaways(ends_at) WHERE ended = FALSE;
CREATE INDEX IF NOT EXISTS idx_giveaways_message ON giveaways(message_id);
`

var migration005Admin = `
CREATE TABLE IF NOT EXISTS admin_sessions (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT,
    session_token VARCHAR(255) UNIQUE,
    authenticated_at TIMESTAMP DEFAULT NOW(),
    expires_at TIMESTAMP,
    last_activity TIMESTAMP DEFAULT NOW(),
    is_active BOOLEAN DEFAULT TRUE
);
CREATE INDEX IF NOT EXISTS idx_admin_sessions_user_id ON admin_sessions(user_id);
CREATE TABLE IF NOT EXISTS admin_login_attempts (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT,
    attempt_time TIMESTAMP DEFAULT NOW(),
    success BOOLEAN DEFAULT FALSE
);
`
