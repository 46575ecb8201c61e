package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "retroboard/docs"
	"retroboard/internal/auth"
	"retroboard/internal/config"
	"retroboard/internal/handler"
	"retroboard/internal/kanban"
	"retroboard/internal/middleware"
	"retroboard/internal/repository"
	"retroboard/internal/session"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	Engine   *gin.Engine
	DB       *gorm.DB
	Config   *config.Config
	Logger   *zap.Logger
	Sessions *session.Manager

	closeStore func() error
}

// Deps are the collaborators the HTTP routes need.
type Deps struct {
	Users     handler.UserStore
	Boards    handler.BoardStore
	Sessions  handler.SessionRunner
	Issuer    *auth.Issuer
	JWTSecret string
	Logger    *zap.Logger
}

// OpenDB connects to Postgres with GORM.
func OpenDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}
	return db, nil
}

func Init(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	db, err := OpenDB(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to database", zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))

	store, closeStore, err := OpenSnapshotStore(ctx, cfg, db, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("snapshot store ready", zap.String("backend", cfg.SnapshotStore))

	sessions := session.NewManager(func(ctx context.Context, boardID string) (*kanban.Machine, error) {
		return kanban.Open(ctx, boardID, store,
			kanban.WithDefaultColumns(cfg.DefaultColumns...),
			kanban.WithLogger(logger),
		)
	}, cfg.SessionTTL, logger)

	engine := NewRouter(Deps{
		Users:     repository.NewUserRepository(db),
		Boards:    repository.NewBoardRepository(db),
		Sessions:  sessions,
		Issuer:    auth.NewIssuer(cfg.JWTSecret, cfg.JWTExpiry),
		JWTSecret: cfg.JWTSecret,
		Logger:    logger,
	})

	return &Server{
		Engine:     engine,
		DB:         db,
		Config:     cfg,
		Logger:     logger,
		Sessions:   sessions,
		closeStore: closeStore,
	}, nil
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(d.Logger))

	userHandler := handler.NewUserHandler(d.Users, d.Issuer)
	boardHandler := handler.NewBoardHandler(d.Boards)
	stateHandler := handler.NewStateHandler(d.Boards, d.Sessions, d.Logger)

	// Public routes
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.POST("/register", userHandler.Register)
	r.POST("/login", userHandler.Login)

	// Protected routes - require authentication
	authorized := r.Group("/")
	authorized.Use(middleware.JWTAuthMiddleware(d.JWTSecret))
	{
		authorized.GET("/me", userHandler.Me)

		// Board routes
		authorized.POST("/boards", boardHandler.Create)
		authorized.GET("/boards", boardHandler.GetAll)
		authorized.GET("/boards/:id", boardHandler.GetByID)
		authorized.PUT("/boards/:id", boardHandler.Update)

		// Board columns and cards
		authorized.GET("/boards/:id/state", stateHandler.Get)
		authorized.POST("/boards/:id/intents", stateHandler.Dispatch)
	}
	return r
}

// Run serves HTTP and sweeps idle sessions until ctx is cancelled or the
// process receives SIGINT/SIGTERM.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              ":" + s.Config.ServerPort,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.Logger.Info("server running", zap.String("port", s.Config.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return s.Sessions.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		s.Logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()
	s.Close()
	if err == nil {
		s.Logger.Info("server exited properly")
	}
	return err
}

// Close releases the snapshot store and the database pool.
func (s *Server) Close() {
	if s.closeStore != nil {
		if err := s.closeStore(); err != nil {
			s.Logger.Warn("failed to close snapshot store", zap.Error(err))
		}
	}
	if s.DB != nil {
		if sqlDB, err := s.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
