package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-board/internal/config"
	"github.com/BuzzLyutic/todo-board/internal/feed"
	"github.com/BuzzLyutic/todo-board/internal/handler"
	"github.com/BuzzLyutic/todo-board/internal/repo"
	"github.com/BuzzLyutic/todo-board/internal/schedule"
	"github.com/BuzzLyutic/todo-board/internal/service"
	"github.com/BuzzLyutic/todo-board/internal/worker"
	"github.com/BuzzLyutic/todo-board/migrations"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// Подключаем логгер
	level, _ := cfg.Level()
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := zcfg.Build()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	loc, _ := cfg.Location()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Подключаем БД
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to Database", zap.Error(err)) // дальнейшая работа теряет смысл
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("Failed to ping the Database", zap.Error(err))
	}
	logger.Info("Successfully connected to the Database!")

	if cfg.AutoMigrate {
		if err := migrations.Apply(ctx, pool); err != nil {
			logger.Fatal("Failed to apply migrations", zap.Error(err))
		}
		logger.Info("Schema is up to date")
	}

	cal := schedule.New(loc, time.Now)
	tagService := service.NewTagService(repo.NewTagRepo(pool))
	taskService := service.NewTaskService(repo.NewTaskRepo(pool, loc.String()), tagService, cal)

	// Подписки: хаб перечитывает коллекции по уведомлениям из Postgres
	hub := feed.NewHub(map[string]feed.Source{
		feed.CollectionTasks: func(ctx context.Context) (any, error) { return taskService.Snapshot(ctx) },
		feed.CollectionTags:  func(ctx context.Context) (any, error) { return tagService.List(ctx) },
	}, logger.Named("feed"))
	relay := feed.NewRelay(pool, hub, logger.Named("relay"))
	var feedWG sync.WaitGroup
	feedWG.Add(2)
	go func() { defer feedWG.Done(); hub.Run(ctx) }()
	go func() { defer feedWG.Done(); relay.Run(ctx) }()

	workerPool := worker.NewPool(pool, logger.Named("worker"), cfg.WorkerCount, cfg.WorkerInterval, worker.DefaultBatch, loc.String())
	if pending, err := workerPool.Pending(ctx); err == nil && pending > 0 {
		logger.Info("Done tasks waiting for backfill", zap.Int("count", pending))
	}
	workerPool.Start(ctx)

	router := handler.Router{
		Tasks:  handler.NewTaskHandler(taskService, logger),
		Tags:   handler.NewTagHandler(tagService, logger),
		Feed:   feed.Handler(hub, logger.Named("ws")),
		DB:     pool,
		Logger: logger,
	}

	srv := http.Server{ // Создаем сервер
		Addr:        ":" + cfg.Port,
		Handler:     router.Handler(),
		ReadTimeout: 10 * time.Second,
		// WriteTimeout не задаем: websocket-соединения живут долго
		IdleTimeout: 60 * time.Second,
		// отмена ctx закрывает и открытые websocket-подписки
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() { // Запуск сервера и обработка ошибок
		logger.Info("Server started", zap.String("addr", srv.Addr), zap.String("timezone", loc.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	<-ctx.Done()

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}
	workerPool.Stop()
	// релей держит свое соединение, пул закрываем только после него
	feedWG.Wait()
	logger.Info("Server stopped successfully!")
}
