// Точка входа DMS — сервер документооборота с нормативными сроками хранения.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL
// и объектному хранилищу, создаёт bootstrap-администратора, запускает
// мониторинг зависимостей и HTTP-сервер с JWT middleware и graceful shutdown.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/godms/internal/api/handlers"
	"github.com/bigkaa/godms/internal/api/middleware"
	"github.com/bigkaa/godms/internal/config"
	"github.com/bigkaa/godms/internal/database"
	"github.com/bigkaa/godms/internal/domain/access"
	"github.com/bigkaa/godms/internal/objstore"
	"github.com/bigkaa/godms/internal/repository"
	"github.com/bigkaa/godms/internal/server"
	"github.com/bigkaa/godms/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("DMS запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	if os.Getenv("DMS_DEPHEALTH_GROUP") == "" {
		logger.Warn("DMS_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Применение миграций БД (схема + seed классификации)
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode)
	pgDB := stdlib.OpenDBFromPool(pool)
	defer func() { _ = pgDB.Close() }()

	// 5. Объектное хранилище
	store, err := objstore.New(cfg.ObjstoreConfig())
	if err != nil {
		logger.Error("Ошибка создания объектного хранилища", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		logger.Error("Ошибка создания бакета", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Объектное хранилище готово",
		slog.String("type", cfg.StorageType),
		slog.String("bucket", cfg.MinIOBucket),
	)

	// 6. Repositories
	classRepo := repository.NewClassificationRepository(pool)
	docRepo := repository.NewDocumentRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	// 7. Доступ по ролям и сервисный слой
	resolver := access.NewResolver(access.DefaultRoleMapping())
	cache := service.NewCacheService(cfg.CacheSize, cfg.CacheTTL)

	auditSvc := service.NewAuditService(auditRepo, logger)
	authSvc := service.NewAuthService(userRepo, auditSvc, cfg.JWTSecret, logger)
	classSvc := service.NewClassificationService(classRepo, resolver, cache, logger)
	docSvc := service.NewDocumentService(docRepo, classSvc, resolver, store, auditSvc, txRunner, logger)
	searchSvc := service.NewSearchService(docRepo, resolver, logger)

	// 8. Bootstrap-администратор (идемпотентно)
	if err := authSvc.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		logger.Error("Ошибка создания bootstrap-администратора", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 9. Readiness checkers (PostgreSQL + хранилище) и handlers
	pgChecker := database.NewReadinessChecker(pool)
	storageChecker := objstore.NewReadinessChecker(store)
	healthHandler := handlers.NewHealthHandler(pgChecker, storageChecker)

	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		authSvc,
		classSvc,
		docSvc,
		searchSvc,
		auditSvc,
		logger,
	)

	// 10. JWT middleware
	jwtAuth := middleware.NewJWTAuth(authSvc, logger)

	// 11. topologymetrics — мониторинг зависимостей (PostgreSQL + MinIO).
	// В режиме memory-хранилища MinIO endpoint отсутствует и мониторинг не запускается.
	if cfg.StorageType == "minio" {
		startDephealth(ctx, cfg, pgDB, logger)
	}

	// 12. HTTP-сервер: metrics и logging глобально, JWT на защищённой группе
	srv := server.New(cfg, logger, apiHandler, jwtAuth.Middleware(),
		middleware.MetricsMiddleware(),
		middleware.RequestLogger(logger),
	)

	// 13. Запуск сервера (блокирующий вызов с graceful shutdown)
	if err := srv.Run(); err != nil {
		logger.Error("Сервер завершился с ошибкой", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("DMS остановлен")
}

// startDephealth запускает мониторинг зависимостей; ошибки не фатальны.
func startDephealth(ctx context.Context, cfg *config.Config, pgDB *sql.DB, logger *slog.Logger) {
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"dms-server",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseURL(),
		cfg.MinIOURL(),
		cfg.DephealthCheckInterval,
		cfg.DephealthIsEntry,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
		return
	}
	if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics",
			slog.String("error", startErr.Error()),
		)
		return
	}
	logger.Info("topologymetrics запущен",
		slog.String("group", cfg.DephealthGroup),
		slog.String("check_interval", cfg.DephealthCheckInterval.String()),
	)
}
