package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	apirest "github.com/gamehive/server/api/rest"
	"github.com/gamehive/server/audit"
	"github.com/gamehive/server/cache"
	"github.com/gamehive/server/chat"
	"github.com/gamehive/server/config"
	dbadapter "github.com/gamehive/server/db"
	mw "github.com/gamehive/server/middleware"
	"github.com/gamehive/server/model"
	"github.com/gamehive/server/scheduler"
	"github.com/gamehive/server/social"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	if cfg.Security.JWTSecret == "" {
		logger.Warn("security.jwt_secret is not set; tokens are signed with an empty secret")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized")

	// ---- Cache (sessions) ----
	c, err := cache.NewCache(cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
	})
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(nil)

	// ---- Services ----
	socialSvc := social.NewService(db, logger)
	chatSvc := chat.NewService(db, socialSvc, cfg.Social.MaxMessageLen, logger)

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()
	retention := time.Duration(cfg.Social.AuditRetentionDays) * 24 * time.Hour
	sched.AddTicker("audit_prune", 24*time.Hour, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		n, err := auditSvc.Prune(ctx, retention)
		if err != nil {
			logger.Error("audit prune failed", zap.Error(err))
			return
		}
		logger.Info("audit pruned", zap.Int64("rows", n))
	})

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	// Health check
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	// ---- REST API routes ----
	authH := apirest.NewAuthHandler(db, c, cfg.Security)
	friendsH := apirest.NewFriendsHandler(socialSvc, auditSvc)
	messagesH := apirest.NewMessagesHandler(chatSvc, auditSvc)

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/login", authH.Login)
		authG.POST("/logout", mw.Auth(cfg.Security, c), authH.Logout)
		authG.POST("/refresh", mw.Auth(cfg.Security, c), authH.Refresh)

		friendsG := api.Group("/friends")
		friendsG.Use(mw.Auth(cfg.Security, c))
		friendsG.POST("", friendsH.Send)
		friendsG.GET("", friendsH.List)
		friendsG.GET("/requests", friendsH.ListRequests)
		friendsG.PUT("/:id/accept", friendsH.Accept)
		friendsG.PUT("/:id/reject", friendsH.Reject)
		friendsG.DELETE("/:id", friendsH.Cancel)
		friendsG.PUT("/block/:user_id", friendsH.Block)
		friendsG.PUT("/unblock/:user_id", friendsH.Unblock)
		friendsG.PUT("/favorite/:user_id", friendsH.Favorite)

		messagesG := api.Group("/messages")
		messagesG.Use(mw.Auth(cfg.Security, c))
		messagesG.POST("", messagesH.Send)
		messagesG.GET("/thread/:friend_id", messagesH.Thread)
		messagesG.GET("/conversations", messagesH.Conversations)
		messagesG.DELETE("/:id", messagesH.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
