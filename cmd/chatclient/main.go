package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/52im/xuanxuan/internal/config"
	"github.com/52im/xuanxuan/internal/directory"
	"github.com/52im/xuanxuan/internal/events"
	"github.com/52im/xuanxuan/internal/metrics"
	"github.com/52im/xuanxuan/internal/storage"
)

var (
	// Version is injected via -ldflags "-X main.Version=..."
	Version = "dev"
)

func main() {
	var (
		cfgPath string
		uid     int64
		account string
	)
	flag.StringVar(&cfgPath, "c", "", "config file path (defaults to ./config/config.yaml)")
	flag.Int64Var(&uid, "uid", 0, "logged-in user id")
	flag.StringVar(&account, "account", "", "logged-in user account")
	flag.Parse()

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(err)
	}

	log := newLogger(cfg.LogLevel)
	defer log.Sync()
	log.Info("chatclient starting",
		zap.String("version", Version),
		zap.String("app", cfg.AppName),
		zap.Int64("uid", uid))

	db, err := storage.InitDB(cfg.Database)
	if err != nil {
		log.Fatal("database init failed", zap.Error(err))
	}
	if err := storage.AutoMigrateTables(db); err != nil {
		log.Fatal("database migration failed", zap.Error(err))
	}

	metrics.Register()
	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Addr, log)
	}

	bus := events.NewBus()
	bus.OnNotice(func(notice events.Notice) {
		log.Info("unread total changed", zap.Int("chats", notice.Chats))
	})

	profile := directory.NewProfile(uid, account)
	session := directory.NewSession(profile, bus, storage.NewGormChatMessageRepository(db), directory.SessionOptions{
		Chat: directory.ChatDirectoryOptions{
			NoticeDelay:      cfg.Chat.NoticeDelay,
			MessagePageLimit: cfg.Chat.MessagePageLimit,
			RecentWindow:     cfg.Chat.RecentWindow,
		},
		Logger: log,
	})
	defer session.Close()

	session.Members.Init(nil)
	session.Chats.Init(context.Background(), nil)
	log.Info("session ready", zap.String("account", profile.Account()))

	// The transport layer feeds the bus; this shell only keeps the session
	// alive until interrupted.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("chatclient shutting down")
}

func newLogger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if parsed, err := zap.ParseAtomicLevel(level); err == nil {
		cfg.Level = parsed
	}
	log, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return log
}

func serveMetrics(addr string, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info("metrics listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warn("metrics server stopped", zap.Error(err))
	}
}
