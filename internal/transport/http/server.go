package http

import (
	"context"
	"errors"
	nethttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appsvc "gopherai-docqa/internal/app"
	"gopherai-docqa/internal/bootstrap"
	"gopherai-docqa/internal/metrics"
	"gopherai-docqa/internal/transport/http/handler"
	"gopherai-docqa/internal/transport/http/middleware"
)

// Deps is everything the router serves.
type Deps struct {
	GinMode        string
	JWTSecret      string
	AllowedOrigins []string
	MaxUploadBytes int64
	HistoryLimit   int
	MetricsPath    string

	Logger     *zap.Logger
	Metrics    *metrics.Metrics
	RAG        *appsvc.RAGService
	Defaults   appsvc.GenerationConfig
	Classifier handler.ImageClassifier
	Health     handler.HealthInfo
	Checks     []handler.DependencyCheck
}

func NewRouter(app *bootstrap.App) nethttp.Handler {
	cfg := app.Config
	deps := Deps{
		GinMode:        cfg.App.GinMode,
		JWTSecret:      cfg.Auth.JWTSecret,
		AllowedOrigins: cfg.App.CORSAllowedOrigins,
		MaxUploadBytes: int64(cfg.App.MaxUploadMB) << 20,
		HistoryLimit:   cfg.History.Limit,
		MetricsPath:    cfg.Metrics.Path,
		Logger:         app.Logger,
		Metrics:        app.Metrics,
		RAG:            app.RAG,
		Defaults: appsvc.GenerationConfig{
			Model:       cfg.LLM.DefaultModelLabel,
			MaxTokens:   cfg.LLM.DefaultMaxTokens,
			Temperature: cfg.LLM.DefaultTemperature,
		},
		Classifier: app.Classifier,
		Health: handler.HealthInfo{
			AppName:      cfg.App.Name,
			Env:          cfg.App.Env,
			StartedAt:    app.StartedAt,
			SessionCount: app.RAG.SessionCount,
			VisionLoaded: app.Classifier.Loaded,
		},
	}
	if app.MySQL != nil {
		deps.Checks = append(deps.Checks, handler.DependencyCheck{Name: "mysql", Check: func(ctx context.Context) error {
			sqlDB, err := app.MySQL.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}})
	}
	if app.Redis != nil {
		deps.Checks = append(deps.Checks, handler.DependencyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return app.Redis.Ping(ctx).Err()
		}})
	}
	if app.MQConn != nil {
		deps.Checks = append(deps.Checks, handler.DependencyCheck{Name: "rabbitmq", Check: func(context.Context) error {
			if app.MQConn.IsClosed() {
				return errConnectionClosed
			}
			return nil
		}})
	}
	return NewHandler(deps)
}

var errConnectionClosed = errors.New("connection closed")

// NewHandler builds the gin engine and wraps it with CORS.
func NewHandler(deps Deps) nethttp.Handler {
	if deps.GinMode != "" {
		gin.SetMode(deps.GinMode)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.RequestLogger(logger), middleware.Recovery(logger))

	healthHandler := handler.NewHealthHandler(deps.Health, deps.Checks...)
	router.GET("/", healthHandler.Root)
	router.GET("/health", healthHandler.Health)
	router.GET("/healthz", healthHandler.Check)
	if deps.Metrics != nil {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(deps.Metrics.Handler()))
	}

	api := router.Group("/")
	if deps.JWTSecret != "" {
		api.Use(middleware.AuthJWT(deps.JWTSecret))
	}

	ragHandler := handler.NewRAGHandler(deps.RAG, deps.Defaults, deps.MaxUploadBytes, deps.HistoryLimit)
	api.POST("/upload", ragHandler.Upload)
	api.POST("/upload-pdf", ragHandler.Upload)
	api.POST("/ask", ragHandler.Ask)
	api.DELETE("/session/:id", ragHandler.DeleteSession)
	api.GET("/sessions", ragHandler.ListSessions)
	if deps.RAG.HistoryEnabled() {
		api.GET("/session/:id/history", ragHandler.History)
	}

	if deps.Classifier != nil {
		visionHandler := handler.NewVisionHandler(deps.Classifier)
		api.POST("/classify", visionHandler.Classify)
	}

	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{middleware.HeaderRequestID},
		MaxAge:         300,
	})(router)
}
