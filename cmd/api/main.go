package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chachabrian/rescuelink-backend/internal/auth"
	"github.com/chachabrian/rescuelink-backend/internal/config"
	"github.com/chachabrian/rescuelink-backend/internal/database"
	"github.com/chachabrian/rescuelink-backend/internal/handlers"
	"github.com/chachabrian/rescuelink-backend/internal/incidents"
	"github.com/chachabrian/rescuelink-backend/internal/logger"
	"github.com/chachabrian/rescuelink-backend/internal/middleware"
	"github.com/chachabrian/rescuelink-backend/internal/services"
	"github.com/chachabrian/rescuelink-backend/pkg/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	zl, err := logger.New(cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		zl.Fatal("Failed to initialize database", zap.Error(err))
	}

	board := incidents.NewBoard()

	var authOpts []auth.Option
	if cfg.Redis.URL != "" {
		rdb, err := services.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			zl.Fatal("Failed to initialize Redis", zap.Error(err))
		}
		defer rdb.Close()
		authOpts = append(authOpts, auth.WithLimiter(
			services.NewOTPLimiter(rdb, cfg.OTP.Cooldown, cfg.OTP.Window, cfg.OTP.MaxPerWindow),
		))
		board.Subscribe(services.NewPublisher(rdb).Subscriber(zl))
	} else {
		zl.Warn("REDIS_URL not set, OTP rate limiting and pub/sub disabled")
	}

	// Leave the interface nil rather than wrapping a nil *Mailer.
	var sender auth.Sender
	if cfg.SMTP.Configured() {
		sender = utils.NewMailer(utils.MailConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			AppName:  cfg.SMTP.AppName,
		})
	}

	tokens := utils.NewTokenManager(cfg.JWT.Secret, cfg.JWT.TTL)
	authSvc := auth.NewService(db, sender, tokens, auth.Options{
		DevMode:   cfg.OTP.DevMode,
		SingleUse: cfg.OTP.SingleUse,
		Freshness: cfg.OTP.Freshness,
	}, zl, authOpts...)

	hub := services.NewHub(zl)
	go hub.Run(ctx)
	board.Subscribe(hub.PublishEvent)

	storage, err := services.NewStorage(services.StorageConfig{
		AWSRegion:    cfg.Storage.AWSRegion,
		AWSAccessKey: cfg.Storage.AWSAccessKey,
		AWSSecretKey: cfg.Storage.AWSSecretKey,
		Bucket:       cfg.Storage.Bucket,
		UploadDir:    cfg.Storage.UploadDir,
		BaseURL:      cfg.BaseURL,
	}, zl)
	if err != nil {
		zl.Fatal("Failed to initialize storage", zap.Error(err))
	}

	notifier, err := services.NewNotifier(ctx, cfg.Firebase.ServiceAccountPath, zl)
	if err != nil {
		// Push is optional; dispatch still reaches websocket clients.
		zl.Warn("Firebase initialization failed", zap.Error(err))
	} else if notifier.Enabled() {
		board.Subscribe(services.AssignmentPusher(db, notifier))
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(zl))

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = []string{"*"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(corsCfg))

	if !storage.UsingS3() {
		r.Static("/uploads", storage.UploadDir())
	}

	handlers.RegisterRoutes(r, handlers.Deps{
		DB:     db,
		Auth:   authSvc,
		Tokens: tokens,
		Board:  board,
		Hub:    hub,
		Photos: storage,
		Log:    zl,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("RescueLink API listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("Graceful shutdown failed", zap.Error(err))
	}
}
