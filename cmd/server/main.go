package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"raid-server/internal/agent"
	"raid-server/internal/engine"
	"raid-server/internal/infrastructure/storage"
	"raid-server/internal/mechanics"
	"raid-server/internal/server"
	"raid-server/internal/version"
	"raid-server/pkg/logger"
)

func init() {
	logger.Init()
}

func main() {
	// 1. Парсинг конфигурации
	var (
		seed          int64
		mechanicsPath string
		journalDir    string
		sessionID     string
		bots          int
	)
	// Читаем флаг -seed. По умолчанию 0 (значит сгенерировать случайно).
	flag.Int64Var(&seed, "seed", 0, "Master seed (0 for random)")
	flag.StringVar(&mechanicsPath, "mechanics", "", "Path to mechanics YAML table (empty = built-in defaults)")
	flag.StringVar(&journalDir, "journal", "journals", "Directory for encounter journals (empty = don't save)")
	flag.StringVar(&sessionID, "session", engine.DefaultSessionID, "Session the bots join")
	flag.IntVar(&bots, "bots", 0, "Number of headless bots to spawn")
	flag.Parse()

	logger.Log.Info("Starting Raid Server...")
	logger.Log.Info(version.String())

	// Формируем конфиг
	cfg := engine.NewConfig()
	if seed != 0 {
		cfg.Seed = seed
		logger.Log.Infof("🎲 Using explicit Master Seed: %d", seed)
	} else {
		logger.Log.Infof("🎲 Using random Master Seed: %d", cfg.Seed)
	}

	if mechanicsPath != "" {
		table, err := mechanics.LoadTable(mechanicsPath)
		if err != nil {
			logger.Log.WithError(err).Fatal("Failed to load mechanics table")
		}
		cfg.Table = table
		logger.Log.WithField("mechanics", table.IDs()).Info("Mechanics table loaded")
	}

	port := os.Getenv("RAID_PORT")
	if port == "" {
		port = "8080"
	}

	// Graceful Shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Инициализация ядра с конфигом
	gameService := engine.NewService(cfg)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := gameService.Run(ctx); err != nil {
			logger.Log.WithError(err).Error("Service loop failed")
		}
	}()

	for i := 0; i < bots; i++ {
		bot := agent.NewBot(fmt.Sprintf("bot-%d", i+1), sessionID, fmt.Sprintf("Bot %d", i+1), gameService)
		go func() {
			if err := bot.Run(ctx); err != nil {
				logger.Log.WithError(err).Warn("Bot stopped")
			}
		}()
	}

	// 3. Запуск сервера (блокирует до сигнала)
	srv := server.New(gameService, port)
	if err := srv.Run(ctx); err != nil {
		logger.Log.WithError(err).Fatal("Server start error")
	}

	<-loopDone
	logger.Log.Info("Shutting down...")

	saveJournals(gameService, journalDir)
	logger.Log.Info("Done.")
}

// saveJournals сохраняет журналы всех боев. Цикл сервиса к этому моменту остановлен.
func saveJournals(svc *engine.GameService, dir string) {
	if dir == "" {
		return
	}
	store, err := storage.NewJournalService(dir)
	if err != nil {
		logger.Log.WithError(err).Error("Journal storage unavailable")
		return
	}

	for _, j := range svc.Journals() {
		if len(j.Records) == 0 {
			continue
		}
		path, err := store.Save(&j)
		if err != nil {
			logger.Log.WithError(err).WithField("session", j.SessionID).Error("Failed to save journal")
			continue
		}
		logger.Log.WithField("path", path).Info("💾 Journal saved")
	}
}
