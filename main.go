package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/scholarquest/api/rest"
	"github.com/kasuganosora/scholarquest/audit"
	"github.com/kasuganosora/scholarquest/cache"
	"github.com/kasuganosora/scholarquest/catalog"
	"github.com/kasuganosora/scholarquest/config"
	dbadapter "github.com/kasuganosora/scholarquest/db"
	"github.com/kasuganosora/scholarquest/game/academy"
	"github.com/kasuganosora/scholarquest/game/character"
	"github.com/kasuganosora/scholarquest/game/clock"
	"github.com/kasuganosora/scholarquest/game/craft"
	"github.com/kasuganosora/scholarquest/game/daily"
	"github.com/kasuganosora/scholarquest/game/debug"
	"github.com/kasuganosora/scholarquest/game/dice"
	"github.com/kasuganosora/scholarquest/game/event"
	"github.com/kasuganosora/scholarquest/game/item"
	"github.com/kasuganosora/scholarquest/game/market"
	"github.com/kasuganosora/scholarquest/game/olympiad"
	"github.com/kasuganosora/scholarquest/game/quest"
	"github.com/kasuganosora/scholarquest/game/study"
	"github.com/kasuganosora/scholarquest/metrics"
	mw "github.com/kasuganosora/scholarquest/middleware"
	"github.com/kasuganosora/scholarquest/model"
	"github.com/kasuganosora/scholarquest/scheduler"
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

	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(context.Background())

	// ---- Cache / PubSub ----
	c, err := cache.NewCache(cfg.Cache)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	pubsub, err := cache.NewPubSub(cfg.Cache)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	// ---- Catalog ----
	var cat *catalog.Catalog
	if cfg.Catalog.Path != "" {
		cat, err = catalog.Load(cfg.Catalog.Path)
	} else {
		cat, err = catalog.Default()
	}
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}
	logger.Info("Catalog loaded",
		zap.Int("subjects", len(cat.SubjectIDs())),
		zap.Int("locations", len(cat.Locations())))

	// ---- Metrics ----
	var m *metrics.Manager
	if cfg.Server.Metrics {
		m = metrics.New()
	}

	// ---- Game Services ----
	clk := clock.System{}
	rng := dice.New()
	flags := debug.NewFlags(cfg.Game.CooldownDisabled)

	chars := character.NewService(db, cat, clk, cfg.Game, logger)
	items := item.NewService(db, cat, logger)
	events := event.NewService(db, chars, rng, pubsub, auditSvc, logger)
	rotator := event.NewRotator(db, events, c, cfg.Game.Event, logger)

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()
	rotator.Start(sched)

	services := rest.Services{
		Chars:     chars,
		Academy:   academy.NewService(db, chars, auditSvc, logger),
		Study:     study.NewService(db, chars, items, c, flags, rng, cfg.Game, logger),
		Quests:    quest.NewService(db, chars, items, rng, logger),
		Olympiads: olympiad.NewService(db, chars, items, rng, logger),
		Daily:     daily.NewService(db, chars, items, rng, auditSvc, logger),
		Items:     items,
		Craft:     craft.NewService(db, chars, items, auditSvc, logger),
		Market:    market.NewService(db, chars, items, pubsub, auditSvc, cfg.Game.Market, logger),
		Events:    events,
		Rotator:   rotator,
		Debug:     debug.NewService(db, chars, flags, rng, auditSvc, logger),
		Scheduler: sched,
	}

	// ---- Notifications ----
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	notices, cancelSub, err := pubsub.Subscribe(ctx, market.SoldChannel, event.FinalizedChannel)
	if err != nil {
		log.Fatalf("pubsub subscribe: %v", err)
	}
	defer cancelSub()
	go func() {
		for msg := range notices {
			m.Notification(msg.Channel)
			logger.Info("notification", zap.String("channel", msg.Channel), zap.String("payload", msg.Payload))
		}
	}()

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))
	if m != nil {
		r.Use(m.Middleware())
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	rest.Register(r, services, rest.Options{
		Cache:    c,
		AdminKey: cfg.Server.AdminKey,
		Metrics:  m,
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
}
