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

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dannynguyen57/Chameleon-X-sub000/internal/api"
	appcfg "github.com/dannynguyen57/Chameleon-X-sub000/internal/config"
	"github.com/dannynguyen57/Chameleon-X-sub000/internal/msgcat"
	"github.com/dannynguyen57/Chameleon-X-sub000/internal/notify"
	"github.com/dannynguyen57/Chameleon-X-sub000/internal/obslog"
	"github.com/dannynguyen57/Chameleon-X-sub000/internal/room"
	"github.com/dannynguyen57/Chameleon-X-sub000/internal/words"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis url error: %v", err)
	}
	rdb := redis.NewClient(opts)
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		pingCancel()
		log.Fatalf("redis connect error: %v", err)
	}
	pingCancel()

	cat, err := words.New(cfg.WordsDir)
	if err != nil {
		log.Fatalf("word catalog error: %v", err)
	}
	msgs, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	mgr := room.NewManager(rdb, cat)
	mgr.Store().SetTTL(time.Duration(cfg.RoomTTLHours) * time.Hour)
	mgr.AttachNotifier(notify.NewPublisher(rdb))

	var repo *room.Repository
	if cfg.DatabaseURL != "" {
		repo, err = room.NewRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("repository init error: %v", err)
		}
		mgr.AttachRepository(repo)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := notify.NewHub(rdb)
	go hub.Run(ctx)
	go mgr.RunSweeper(ctx, time.Duration(cfg.SweepIntervalSec)*time.Second)

	srv := api.NewServer(mgr, cat, msgs)
	go func() {
		if err := srv.ListenAndServe(cfg.ListenAddr); err != nil {
			obslog.L().Fatal("api_serve_failed", zap.Error(err))
		}
	}()

	wsSrv := api.NewWSServer(hub)
	go func() {
		if err := wsSrv.ListenAndServe(cfg.WSAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			obslog.L().Fatal("ws_serve_failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	obslog.L().Info("shutdown_begin")

	cancel()
	_ = srv.Shutdown()
	shCtx, shCancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = wsSrv.Shutdown(shCtx)
	shCancel()
	if repo != nil {
		_ = repo.Close()
	}
	_ = rdb.Close()
	obslog.L().Info("shutdown_done")
}
