package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gopherai-docqa/internal/ai"
	appsvc "gopherai-docqa/internal/app"
	"gopherai-docqa/internal/cache"
	"gopherai-docqa/internal/config"
	"gopherai-docqa/internal/metrics"
	"gopherai-docqa/internal/model"
	"gopherai-docqa/internal/platform/logger"
	mysqlClient "gopherai-docqa/internal/platform/mysql"
	rabbitmqClient "gopherai-docqa/internal/platform/rabbitmq"
	redisClient "gopherai-docqa/internal/platform/redis"
	"gopherai-docqa/internal/rag"
	"gopherai-docqa/internal/repository"
	"gopherai-docqa/internal/vision"
	"gopherai-docqa/internal/worker"
)

type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	Sessions   *appsvc.SessionStore
	RAG        *appsvc.RAGService
	Classifier *vision.Classifier

	// Set only when history is enabled.
	MySQL          *gorm.DB
	Redis          *redis.Client
	MQConn         *amqp.Connection
	ExchangeWorker *worker.ExchangePersistWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:    cfg,
		Logger:    log,
		StartedAt: time.Now(),
	}
	if cfg.Metrics.Enabled {
		a.Metrics = metrics.New()
	}

	var recorder appsvc.ExchangeRecorder = appsvc.NopRecorder{}
	if cfg.History.Enabled {
		recorder, err = a.initHistory(ctx)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	client := ai.NewOpenAICompatibleClient(cfg.LLMTimeout())
	embedder := rag.NewRemoteEmbedder(client, ai.EmbeddingConfig{
		BaseURL: cfg.EmbeddingURL(),
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.EmbeddingModel,
	}, cfg.LLM.EmbeddingBatchSize)
	generator := rag.NewLLMGenerator(client, ai.ChatConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
	})

	pipeline := &rag.Pipeline{
		Extractor: rag.NewPDFExtractor(),
		Chunker:   rag.NewChunker(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap, rag.DefaultSeparator),
		Embedder:  embedder,
		Observe: func(stage string, elapsed time.Duration) {
			a.Metrics.ObserveStage(stage, elapsed)
			log.Debug("pipeline stage", zap.String("stage", stage), zap.Duration("elapsed", elapsed))
		},
	}

	a.Sessions = appsvc.NewSessionStore(pipeline, cfg.RAG.TopK, log.Named("sessions"))
	a.RAG = appsvc.NewRAGService(a.Sessions, generator, appsvc.RAGServiceOptions{
		SourceLimit:    cfg.RAG.SourceLimit,
		SourceMaxChars: cfg.RAG.SourceMaxChars,
		History:        recorder,
		Metrics:        a.Metrics,
		Logger:         log.Named("rag"),
	})

	a.Classifier = vision.NewClassifier(cfg.Vision.ModelPath, cfg.Vision.LabelsPath, cfg.Vision.ONNXSharedLibPath, cfg.Vision.TopK)
	if cfg.Vision.Enabled {
		if err := a.Classifier.Load(); err != nil {
			log.Warn("classifier not loaded", zap.String("model_path", cfg.Vision.ModelPath), zap.Error(err))
		} else {
			log.Info("classifier loaded", zap.String("model_path", cfg.Vision.ModelPath))
		}
	}

	log.Info("application initialized",
		zap.String("llm_model", cfg.LLM.Model),
		zap.String("embedding_model", cfg.LLM.EmbeddingModel),
		zap.Bool("history", cfg.History.Enabled),
		zap.Bool("metrics", cfg.Metrics.Enabled))
	return a, nil
}

func (a *App) initHistory(ctx context.Context) (*appsvc.HistoryService, error) {
	cfg := a.Config

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN(), mysqlClient.Pool{
		MaxIdleConns:    cfg.MySQL.MaxIdleConns,
		MaxOpenConns:    cfg.MySQL.MaxOpenConns,
		ConnMaxLifetime: time.Duration(cfg.MySQL.ConnMaxLifetimeMinutes) * time.Minute,
	})
	if err != nil {
		return nil, err
	}
	a.MySQL = mysqlDB
	if err := mysqlDB.AutoMigrate(&model.Exchange{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, redisClient.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, err
	}
	a.Redis = redisCli

	mqConn, err := rabbitmqClient.New(cfg.RabbitMQ.URL, cfg.App.Name)
	if err != nil {
		return nil, err
	}
	a.MQConn = mqConn

	exchangeRepo := repository.NewExchangeRepository(mysqlDB)
	a.ExchangeWorker = worker.NewExchangePersistWorker(mqConn, exchangeRepo, cfg.RabbitMQ.ExchangeQueue, cfg.RabbitMQ.Prefetch, a.Logger.Named("worker"))
	if err := a.ExchangeWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start exchange worker failed: %w", err)
	}

	historyCache := cache.NewHistoryCache(redisCli,
		time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(cfg.Redis.HistoryDirtyTTLSeconds)*time.Second)
	publisher := rabbitmqClient.NewExchangePublisher(mqConn, cfg.RabbitMQ.ExchangeQueue)

	a.Logger.Info("history enabled",
		zap.String("queue", cfg.RabbitMQ.ExchangeQueue),
		zap.String("redis", cfg.Redis.Addr))
	return appsvc.NewHistoryService(publisher, historyCache, exchangeRepo, a.Logger.Named("history")), nil
}

// RunJanitor blocks until ctx is done when idle eviction is configured.
func (a *App) RunJanitor(ctx context.Context) {
	ttl := a.Config.SessionIdleTTL()
	if ttl <= 0 {
		return
	}
	a.Logger.Info("session janitor started",
		zap.Duration("idle_ttl", ttl),
		zap.Duration("interval", a.Config.SessionSweepInterval()))
	a.Sessions.RunJanitor(ctx, ttl, a.Config.SessionSweepInterval(), a.RAG.OnEvicted)
}

func (a *App) Close() error {
	var closeErr error
	if a.Classifier != nil {
		a.Classifier.Close()
	}
	if a.ExchangeWorker != nil {
		a.ExchangeWorker.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return closeErr
}
