package app

import (
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"shopwhiz/go_backend/internal/app/config"
	apphttp "shopwhiz/go_backend/internal/app/http"
	"shopwhiz/go_backend/internal/app/http/handlers"
	"shopwhiz/go_backend/internal/app/http/handlers/assistant"
	"shopwhiz/go_backend/internal/domain/catalog"
	"shopwhiz/go_backend/internal/domain/conversation"
	"shopwhiz/go_backend/internal/domain/events"
	"shopwhiz/go_backend/internal/domain/vector"
	"shopwhiz/go_backend/internal/infra/cache"
	"shopwhiz/go_backend/internal/infra/db/postgres"
	"shopwhiz/go_backend/internal/infra/search"
)

func Run() {
	cfg := config.MustLoad()

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	db, err := postgres.New(cfg.Database.URL)
	if err != nil {
		logger.Fatal("db", zap.Error(err))
	}
	defer db.Close()

	rdb, err := cache.New(cfg.Redis)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	if rdb == nil {
		logger.Info("redis not configured, best-seller cache disabled")
	}

	es, err := search.New(cfg.Elasticsearch)
	if err != nil {
		logger.Fatal("elasticsearch", zap.Error(err))
	}

	catalogStore := catalog.NewStore(db)
	svc, err := assistant.New(
		cfg,
		logger,
		catalogStore,
		events.NewStore(db),
		conversation.NewStore(db),
		vector.NewIndex(es, cfg.Elasticsearch.Index, logger),
		rdb,
		nil,
	)
	if err != nil {
		logger.Fatal("assistant", zap.Error(err))
	}

	h := handlers.New(cfg, logger, svc, catalogStore)
	router := apphttp.NewRouter(cfg, logger, h)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("listening", zap.String("addr", cfg.HTTP.Addr))
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal("server", zap.Error(err))
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
