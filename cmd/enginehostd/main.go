package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"enginehost/internal/config"
	"enginehost/internal/history"
	"enginehost/internal/httpapi"
	"enginehost/internal/manager"
)

func main() {
	defaultAddr := ":8080"
	if v := os.Getenv("ENGINEHOSTD_ADDR"); v != "" {
		defaultAddr = v
	}
	defaultEngines := "~/engines"
	if v := os.Getenv("ENGINEHOSTD_ENGINES_DIR"); v != "" {
		defaultEngines = v
	}
	addr := flag.String("addr", defaultAddr, "HTTP listen address, e.g. :8080")
	enginesDir := flag.String("engines-dir", defaultEngines, "Directory containing engine installations")
	historyDB := flag.String("history-db", "", "Path of the sqlite event log (empty disables history)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	configPath := flag.String("config", "", "Optional config file (.yaml/.json/.toml); flags override")
	flag.Parse()

	cfg := config.Config{Addr: *addr, EnginesDir: *enginesDir, HistoryDB: *historyDB, LogLevel: *logLevel}
	if *configPath != "" {
		fileCfg, err := config.Load(*configPath)
		if err != nil {
			l := zerolog.New(os.Stderr)
			l.Fatal().Err(err).Msg("load config")
		}
		cfg = merge(fileCfg, cfg)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	var hist *history.Store
	if cfg.HistoryDB != "" {
		hist, err = history.Open(cfg.HistoryDB)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.HistoryDB).Msg("open history store")
		}
		defer hist.Close()
	}

	mgr := manager.New(manager.Config{
		EnginesDir: cfg.EnginesDir,
		History:    hist,
		Logger:     log,
	})

	httpapi.SetLogger(log)
	srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.NewMux(mgr)}

	go func() {
		log.Info().Str("addr", cfg.Addr).Str("engines_dir", cfg.EnginesDir).Msg("enginehostd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	mgr.Shutdown(ctx)
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown")
	}
}

// merge overlays non-zero flag values on top of the file config.
func merge(file, flags config.Config) config.Config {
	out := file
	if flags.Addr != "" {
		out.Addr = flags.Addr
	}
	if flags.EnginesDir != "" {
		out.EnginesDir = flags.EnginesDir
	}
	if flags.HistoryDB != "" {
		out.HistoryDB = flags.HistoryDB
	}
	if flags.LogLevel != "" {
		out.LogLevel = flags.LogLevel
	}
	return out
}
