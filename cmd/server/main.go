package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"durak/internal/config"
	"durak/internal/room"
	"durak/internal/server"
	"durak/internal/storage"
)

func main() {
	configPath := flag.String("config", "durak.yaml", "path to the YAML config file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Sugar()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalw("load config", "path", *configPath, "error", err)
	}

	store, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalw("open database", "path", cfg.DBPath, "error", err)
	}
	defer store.Close()

	registry := room.NewRegistry(cfg.Rules, cfg.RoomConfig(), log, store)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go registry.CleanupLoop(ctx, cfg.CleanupInterval, cfg.RoomIdleTimeout)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.New(registry, store, log),
	}
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	log.Infow("listening", "addr", cfg.Addr, "rules", cfg.Rules)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalw("server", "error", err)
	}
}
