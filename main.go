package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"racehub/internal/config"
	"racehub/internal/gateway"
	"racehub/internal/httpapi"
	"racehub/internal/roommanager"
	"racehub/internal/storage"
	"racehub/internal/trackpack"
)

const shutdownGrace = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "racehub: config:", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Mode)

	tracks, err := storage.NewTracks(cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("open tracks collection")
	}
	leaderboards, err := storage.NewLeaderboards(cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("open leaderboards collection")
	}
	if err := trackpack.Seed("tracks", tracks); err != nil {
		log.Warn().Err(err).Msg("seed bundled tracks")
	}

	manager := roommanager.New(tracks, leaderboards, log)
	defer manager.Close()

	hub := gateway.NewHub()

	api := httpapi.New(tracks, leaderboards, manager, log)
	router := api.Router()
	router.HandleFunc("/ws", gateway.WebSocketHandler(hub, manager, tracks, log))

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	grpcServer := grpc.NewServer()
	grpcServer.RegisterService(&gateway.ServiceDesc, gateway.NewServer(hub, manager, tracks, log))
	reflection.Register(grpcServer)

	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatal().Err(err).Msg("listen grpc")
	}

	go func() {
		log.Info().Int("port", cfg.Port).Msg("http/websocket listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server")
		}
	}()

	go func() {
		log.Info().Str("addr", cfg.GRPCAddr).Msg("grpc gateway listening")
		if err := grpcServer.Serve(grpcLis); err != nil {
			log.Error().Err(err).Msg("grpc server")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	grpcServer.GracefulStop()
}

// newLogger builds the process-wide base logger: a human-readable
// console writer in development, newline-delimited JSON in production,
// matching toonknapen-accbroadcastingsdk's zerolog setup.
func newLogger(mode string) zerolog.Logger {
	if mode == "production" {
		return zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()
}
