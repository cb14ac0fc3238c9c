package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/dushixiang/monitoring/internal/config"
	"github.com/dushixiang/monitoring/internal/handler"
	"github.com/dushixiang/monitoring/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Server HTTP 服务
type Server struct {
	logger    *zap.Logger
	cfg       *config.AppConfig
	echo      *echo.Echo
	ingestion *service.IngestionService
}

// New 组装服务、处理器和路由
func New(logger *zap.Logger, cfg *config.AppConfig, db *gorm.DB) *Server {
	profileService := service.NewProfileService(logger, db)
	authService := service.NewAuthService(logger, cfg.Security, profileService)
	ingestionService := service.NewIngestionService(logger, db, cfg.Ingest)
	errorLogService := service.NewErrorLogService(logger, db)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string {
			return uuid.New().String()
		},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("requestId", v.RequestID))
			return nil
		},
	}))
	if cfg.Server.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))
	}

	auth := handler.NewAuthMiddleware(logger, authService)
	systemInfoHandler := handler.NewSystemInfoHandler(logger, ingestionService)
	errorLogHandler := handler.NewErrorLogHandler(logger, errorLogService)
	profileHandler := handler.NewProfileHandler(logger, profileService)

	e.GET("/", handler.GetVersion)

	e.POST("/system-info/:profileId", systemInfoHandler.Save, auth.Profile)
	e.GET("/system-info/:profileId", systemInfoHandler.GetLatest, auth.Profile)
	e.GET("/system-info/:profileId/status", systemInfoHandler.GetStatus, auth.Profile)

	e.POST("/error/:profileId", errorLogHandler.Save, auth.Profile)

	e.GET("/profiles", profileHandler.List, auth.ReadKey)
	e.POST("/profiles", profileHandler.Create, auth.ApiKey)

	return &Server{
		logger:    logger,
		cfg:       cfg,
		echo:      e,
		ingestion: ingestionService,
	}
}

// Handler 用于测试
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start 启动监听，阻塞直到服务关闭
func (s *Server) Start() error {
	s.logger.Info("HTTP 服务启动",
		zap.String("addr", s.cfg.Server.Addr),
		zap.String("ingestMode", s.ingestion.Mode()))
	if err := s.echo.Start(s.cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
