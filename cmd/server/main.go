package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/npezzotti/vibehub/internal/api"
	"github.com/npezzotti/vibehub/internal/config"
	"github.com/npezzotti/vibehub/internal/database"
	"github.com/npezzotti/vibehub/internal/music"
	"github.com/npezzotti/vibehub/internal/server"
	"github.com/npezzotti/vibehub/internal/service"
	"github.com/npezzotti/vibehub/internal/session"
	"github.com/npezzotti/vibehub/internal/stats"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// a missing .env file is fine, the environment may be set already
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WithError(err).Warn("could not load .env file")
	}

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		logger.WithError(err).Fatal("config")
	}
	logger.SetLevel(cfg.LogLevel)

	dbConn, err := database.NewPgVibeHubRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.WithError(err).Fatal("db open")
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.WithError(err).Error("db close")
		}
	}()

	if err := dbConn.Migrate(); err != nil {
		logger.WithError(err).Fatal("db migrate")
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)
	statsUpdater.Run()

	hub := server.NewHub(logger, statsUpdater)
	go hub.Run()

	files := music.NewStore(logger, cfg.UploadDir)
	sessions := session.NewJwtSessionResolver(logger, dbConn, cfg.SigningKey, cfg.TokenTTL)

	rooms := service.NewRoomService(logger, dbConn, files, hub, statsUpdater)
	svc := api.Services{
		Auth:     service.NewAuthService(logger, dbConn, sessions, statsUpdater),
		Users:    service.NewUserService(logger, dbConn, rooms),
		Guests:   service.NewGuestService(logger, dbConn, sessions, hub, statsUpdater),
		Rooms:    rooms,
		Musics:   service.NewMusicService(logger, dbConn, files),
		Messages: service.NewMessageService(logger, dbConn, hub, statsUpdater),
	}
	sweeper := service.NewGuestSweeper(logger, dbConn, hub, statsUpdater, cfg.GuestSweepInterval, cfg.GuestIdleTimeout)

	srv := api.NewVibeHubApp(mux, logger, hub, dbConn, sessions, svc, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return sweeper.Run(gCtx)
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}

		logger.Info("closing live connections...")
		return hub.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("server exited with error")
	}

	statsUpdater.Stop()
	logger.Info("shutdown complete")
}
