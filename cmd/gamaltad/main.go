package main

import (
	"context"
	"database/sql"
	"io"
	"os"
	"os/signal"
	"time"

	"syscall"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/yummydirtx/open-gamalta/internal/ble"
	"github.com/yummydirtx/open-gamalta/internal/config"
	"github.com/yummydirtx/open-gamalta/internal/manager"
	"github.com/yummydirtx/open-gamalta/internal/scene"
	"github.com/yummydirtx/open-gamalta/internal/web"
)

func main() {
	cfg, err := config.ReadConfig()
	if err != nil {
		log.Fatal("reading config", "error", err)
	}

	logger := newLogger(cfg)
	logger.Info("gamaltad starting")

	// scene registry: built-ins, the sun synced schedule, persisted customs
	registry := scene.NewRegistry(logger)
	registry.Seed(scene.Builtins()...)
	seedSunSync(logger, registry, cfg)

	db, err := sql.Open("sqlite3", cfg.SceneDB)
	if err != nil {
		logger.Fatal("opening scene database", "path", cfg.SceneDB, "error", err)
	}
	defer db.Close()

	store, err := scene.NewStore(db)
	if err != nil {
		logger.Fatal("initialising scene database", "error", err)
	}
	if err := registry.AttachStore(store); err != nil {
		logger.Fatal("loading custom scenes", "error", err)
	}

	// create/wire up services
	transport := func() ble.Transport { return ble.NewBluetoothTransport(logger) }
	scanner := ble.NewBluetoothTransport(logger)
	mgr := manager.New(logger, registry, transport, scanner, managerOptions(cfg))

	server := web.NewServer(logger, mgr, registry, cfg.ListenAddress)

	stopChannel := make(chan struct{})
	go refreshSunSync(logger, registry, cfg, stopChannel)

	// best effort connect on startup; the device may simply not be powered
	// yet, in which case /api/connect does it later
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if name, err := mgr.Connect(ctx, cfg.DeviceAddress); err != nil {
			logger.Warn("Initial connect failed", "error", err)
		} else {
			logger.Info("Connected", "name", name)
		}
	}()

	go func() {
		if err := server.ListenAndServe(); err != nil {
			logger.Fatal("web server", "error", err)
		}
	}()

	quitChannel := make(chan os.Signal, 1)
	signal.Notify(quitChannel, syscall.SIGINT, syscall.SIGTERM)
	<-quitChannel

	// cleanup before exit
	close(stopChannel)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Shutting down web server", "error", err)
	}
	if err := mgr.Disconnect(); err != nil {
		logger.Error("Disconnecting", "error", err)
	}
	logger.Info("gamaltad closing")
}

func newLogger(cfg *config.Config) *log.Logger {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}

	var out io.Writer = os.Stderr
	if cfg.LogFile != "" {
		out = &lumberjack.Logger{
			Filename: cfg.LogFile,
			MaxAge:   3,
		}
	}

	return log.NewWithOptions(out, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      "2006/01/02 15:04:05",
	})
}

func managerOptions(cfg *config.Config) manager.Options {
	opts := manager.DefaultOptions()
	if cfg.NameFilter != "" {
		opts.NameFilter = cfg.NameFilter
	}
	if cfg.ScanTimeout > 0 {
		opts.ScanTimeout = cfg.ScanTimeout
	}
	if cfg.PollInterval > 0 {
		opts.PollInterval = cfg.PollInterval
	}
	if cfg.SettleDelay > 0 {
		opts.SettleDelay = cfg.SettleDelay
	}
	if cfg.Password != "" {
		opts.Session.Password = cfg.Password
	}
	if cfg.CommandDelay > 0 {
		opts.Session.CommandDelay = cfg.CommandDelay
	}
	if cfg.QueryTimeout > 0 {
		opts.Session.QueryTimeout = cfg.QueryTimeout
	}
	return opts
}

func seedSunSync(logger *log.Logger, registry *scene.Registry, cfg *config.Config) {
	lat, lon, ok, err := cfg.LatLon()
	if err != nil {
		logger.Fatal("reading geo location", "error", err)
	}
	if !ok {
		logger.Info("No geo location configured, sun synced schedule unavailable")
		return
	}
	s, err := scene.SunSync(lat, lon, time.Now())
	if err != nil {
		logger.Error("Building sun synced schedule", "error", err)
		return
	}
	registry.Seed(s)
}

// refreshSunSync rebuilds the sun synced schedule shortly after midnight so
// its keyframes track the drifting sunrise and sunset.
func refreshSunSync(logger *log.Logger, registry *scene.Registry, cfg *config.Config, stop <-chan struct{}) {
	for {
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day(), 0, 5, 0, 0, now.Location()).AddDate(0, 0, 1)
		select {
		case <-stop:
			return
		case <-time.After(time.Until(next)):
			seedSunSync(logger, registry, cfg)
		}
	}
}
