package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/BioHazard786/Watchdrop/internal/server"
	"github.com/BioHazard786/Watchdrop/internal/signaling"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	host = configVar[string]{
		envKey:       "WATCHDROP_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
	}
	port = configVar[int]{
		envKey:       "WATCHDROP_PORT",
		flagKey:      "port",
		defaultValue: 8080,
	}
	roomCapacity = configVar[int]{
		envKey:       "WATCHDROP_ROOM_CAPACITY",
		flagKey:      "room-capacity",
		defaultValue: signaling.DefaultRoomCapacity,
	}
	logLevel = configVar[string]{
		envKey:       "WATCHDROP_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "info",
	}
)

type serverConfig struct {
	Host         string
	Port         int
	RoomCapacity int
	LogLevel     string
}

func loadServerConfig() *serverConfig {
	pflag.String(host.flagKey, host.defaultValue, "Listen host")
	pflag.Int(port.flagKey, port.defaultValue, "Listen port")
	pflag.Int(roomCapacity.flagKey, roomCapacity.defaultValue, "Maximum number of members per room")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(host.flagKey, host.envKey)
	viper.BindEnv(port.flagKey, port.envKey)
	viper.BindEnv(roomCapacity.flagKey, roomCapacity.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)

	viper.SetDefault(host.flagKey, host.defaultValue)
	viper.SetDefault(port.flagKey, port.defaultValue)
	viper.SetDefault(roomCapacity.flagKey, roomCapacity.defaultValue)
	viper.SetDefault(logLevel.flagKey, logLevel.defaultValue)

	return &serverConfig{
		Host:         viper.GetString(host.flagKey),
		Port:         viper.GetInt(port.flagKey),
		RoomCapacity: viper.GetInt(roomCapacity.flagKey),
		LogLevel:     viper.GetString(logLevel.flagKey),
	}
}

func setupLogger(level string) *slog.Logger {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		slog.Warn("unknown log level, using info", "level", level)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return logger
}

func main() {
	cfg := loadServerConfig()
	logger := setupLogger(cfg.LogLevel)

	hub := signaling.NewHub(cfg.RoomCapacity, logger)
	go hub.Run()

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: server.NewRouter(hub),
	}

	go func() {
		logger.Info("starting rendezvous server", "address", srv.Addr, "room_capacity", cfg.RoomCapacity)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
