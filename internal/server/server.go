package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tenant-inbox/config"
	"tenant-inbox/internal/handler"
	"tenant-inbox/internal/middleware"
	"tenant-inbox/internal/redis"
	"tenant-inbox/internal/transport/httpdto"
	"tenant-inbox/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Messaging   *handler.MessagingHandler
	Attachments *handler.AttachmentHandler
}

// Dependencies are the cross-cutting pieces the routes need. RateLimiter is
// nil when Redis is disabled.
type Dependencies struct {
	Auth        middleware.TokenParser
	RateLimiter *redis.RateLimiter
	// HealthChecks run on /health; any error reports the service unhealthy.
	HealthChecks map[string]func(ctx context.Context) error
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(middleware.Recovery(l))

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.AppPort),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) SetupRoutes(handlers *Handlers, deps Dependencies) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.TimeoutMiddleware(s.config.RequestTimeout))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		for name, check := range deps.HealthChecks {
			if err := check(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(name+": "+err.Error(), "UNHEALTHY"))
				return
			}
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	messageLimit := middleware.RateLimitMiddleware(deps.RateLimiter, redis.ActionMessage)
	uploadLimit := middleware.RateLimitMiddleware(deps.RateLimiter, redis.ActionUpload)

	inbox := s.engine.Group("/v1/tenant-messaging", middleware.AuthMiddleware(deps.Auth))
	{
		inbox.POST("/send", messageLimit, handlers.Messaging.Send)
		inbox.GET("/conversations", handlers.Messaging.ListInbox)
		inbox.POST("/conversations", messageLimit, handlers.Messaging.CreateConversation)
		inbox.GET("/my-conversations", handlers.Messaging.MyConversations)
		inbox.GET("/conversations/:id/messages", handlers.Messaging.GetMessages)
		inbox.POST("/conversations/:id/messages", messageLimit, handlers.Messaging.Reply)
		inbox.POST("/conversations/:id/close", handlers.Messaging.Close)
		inbox.POST("/conversations/:id/reopen", handlers.Messaging.Reopen)
		inbox.GET("/unread-count", handlers.Messaging.UnreadCount)
		inbox.POST("/upload", uploadLimit, handlers.Attachments.Upload)
		inbox.GET("/download/*locator", handlers.Attachments.Download)
	}
}

func (s *Server) Start() error {
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	<-quit

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}

	return nil
}
