package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/iseelabs/isee/internal/config"
	"github.com/iseelabs/isee/internal/pkg/cache"
	"github.com/iseelabs/isee/internal/pkg/logger"
	"github.com/iseelabs/isee/internal/pkg/mailer"
	"github.com/iseelabs/isee/internal/pkg/mq"
	"github.com/iseelabs/isee/internal/pkg/mq/worker"
	"github.com/iseelabs/isee/internal/pkg/transfer"
	"github.com/iseelabs/isee/internal/repositories"
	"github.com/iseelabs/isee/internal/router"
	"github.com/iseelabs/isee/internal/services"
	"github.com/iseelabs/isee/internal/setup"
	"go.uber.org/zap"
)

// Server owns the HTTP engine and every long-lived connection behind it.
type Server struct {
	cfg        *config.Config
	httpServer *http.Server
	mqClient   *mq.RabbitMQClient
}

// NewServer connects the infrastructure and wires repositories, services
// and handlers together.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := setup.InitMySQL(&cfg.MySQL)
	if err != nil {
		return nil, fmt.Errorf("init mysql: %w", err)
	}

	redisClient, err := setup.InitRedis(&cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	esClient, err := setup.InitElasticsearch(&cfg.Elasticsearch)
	if err != nil {
		return nil, fmt.Errorf("init elasticsearch: %w", err)
	}

	transferClient, err := transfer.NewClient(&cfg.Transfer)
	if err != nil {
		return nil, fmt.Errorf("init transfer client: %w", err)
	}

	var mqClient *mq.RabbitMQClient
	if cfg.RabbitMQ.URL != "" {
		mqClient, err = mq.NewRabbitMQClient(cfg.RabbitMQ.URL)
		if err != nil {
			return nil, fmt.Errorf("init rabbitmq: %w", err)
		}
		cleanup := worker.NewCleanupWorker(mqClient, transferClient)
		cleanup.Start()
	} else {
		logger.Warn("RabbitMQ not configured, orphaned remote files will not be collected")
	}

	mailSender, err := mailer.NewSender(&cfg.SMTP)
	if err != nil {
		return nil, fmt.Errorf("init mailer: %w", err)
	}

	userRepo := repositories.NewUserRepository(db)
	videoRepo := repositories.NewVideoRepository(db)
	commentRepo := repositories.NewCommentRepository(db)
	imageRepo := repositories.NewImageRepository(db)

	var search repositories.VideoSearchIndex
	if esClient != nil {
		search = repositories.NewVideoSearchIndex(esClient, cfg.Elasticsearch.Index)
	}

	redisCache := cache.NewRedisCache(redisClient)
	root := remoteRoot(&cfg.Transfer)

	authService := services.NewAuthService(userRepo, mailSender, cfg)
	videoService := services.NewVideoService(videoRepo, search, redisCache, mqClient, root)
	userService := services.NewUserService(userRepo, videoRepo, commentRepo, imageRepo, search, mqClient, root)
	commentService := services.NewCommentService(commentRepo, videoRepo)
	imageService := services.NewImageService(imageRepo, transferClient, mqClient, root)

	engine := router.SetupRouter(cfg, &router.Services{
		Auth:       authService,
		User:       userService,
		Video:      videoService,
		Comment:    commentService,
		Image:      imageService,
		Transfer:   transferClient,
		MQ:         mqClient,
		TokenStore: redisCache,
		RemoteRoot: root,
	})

	return &Server{
		cfg: cfg,
		httpServer: &http.Server{
			Addr:    ":" + cfg.Server.Port,
			Handler: engine,
		},
		mqClient: mqClient,
	}, nil
}

// remoteRoot is the directory uploads land in. Only the FTP backend uses a
// path prefix; MinIO scopes objects by bucket.
func remoteRoot(cfg *config.TransferConfig) string {
	if cfg.Type == "ftp" {
		return cfg.FTP.Root
	}
	return ""
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if s.mqClient != nil {
		s.mqClient.Close()
	}
	return nil
}
