package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/manasvi-chauhan/Shemovessafe1/server/internal/advisory"
	"github.com/manasvi-chauhan/Shemovessafe1/server/internal/alerts"
	"github.com/manasvi-chauhan/Shemovessafe1/server/internal/api"
	"github.com/manasvi-chauhan/Shemovessafe1/server/internal/config"
	"github.com/manasvi-chauhan/Shemovessafe1/server/internal/metrics"
	"github.com/manasvi-chauhan/Shemovessafe1/server/internal/rating"
	"github.com/manasvi-chauhan/Shemovessafe1/server/internal/store"
	"github.com/manasvi-chauhan/Shemovessafe1/server/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file; built-in defaults are used if it does not exist")
	uiDir := flag.String("ui-dir", "", "serve the front-end static files from this directory; overrides server.static_dir")
	envFile := flag.String("env-file", ".env", "dotenv file loaded into the environment before config is read")
	flag.Parse()

	// A missing .env is normal in production, where the key comes from the
	// real environment.
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	cfg, watchConfig, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logLevel := new(slog.LevelVar)
	logLevel.Set(cfg.Server.SlogLevel())
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	staticDir := cfg.Server.StaticDir
	if *uiDir != "" {
		staticDir = *uiDir
	}

	slog.Info("saferoute-server starting",
		"config", *configPath,
		"http_port", cfg.Server.HTTPPort,
		"strict_ratings", cfg.Server.Ratings.Strict,
		"clamp", cfg.Server.Adjustment.Clamp.Enabled,
		"advisory_enabled", cfg.Server.Advisory.Enabled,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st := store.New(bounds(cfg.Server))
	ratings := store.NewRatings()
	reg := metrics.New(st.Count)
	alertEngine := alerts.New(cfg.Server.Alerts, reg)

	// Without a key the advisor answers with a simulated note.
	var provider advisory.Provider
	if key := cfg.Server.Advisory.Key(); key != "" {
		provider = advisory.NewOpenAIProvider(key,
			cfg.Server.Advisory.BaseURL,
			cfg.Server.Advisory.Model,
			cfg.Server.Advisory.Timeout,
		)
	} else {
		slog.Warn("advisory key not set, analysis runs in simulation mode",
			"key_env", cfg.Server.Advisory.KeyEnv)
	}

	// WebSocket hub: pushes scores on every interval and after each rating.
	hub := ws.New(ratings, cfg.Server.Stream.Interval)
	reg.TrackSubscribers(hub.Count)
	go hub.Run(ctx)

	apiHandler := api.New(api.Deps{
		Store:    st,
		Ratings:  ratings,
		Advisor:  advisory.New(provider, cfg.Server.Advisory.Enabled),
		Alerts:   alertEngine,
		Metrics:  reg,
		OnRating: hub.Notify,
	}, apiOptions(cfg.Server))

	if watchConfig {
		go func() {
			err := config.Watch(ctx, *configPath, func(next *config.Config) {
				logLevel.Set(next.Server.SlogLevel())
				apiHandler.SetOptions(apiOptions(next.Server))
				st.SetBounds(bounds(next.Server))
				alertEngine.SetConfig(next.Server.Alerts)
				slog.Info("config reloaded",
					"strict_ratings", next.Server.Ratings.Strict,
					"rate_limit", next.Server.Ratings.RateLimit,
					"alert_rules", len(next.Server.Alerts.Rules),
				)
			})
			if err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", apiHandler)
	httpMux.Handle("/ws/scores", hub)
	httpMux.Handle("/metrics", reg)
	httpMux.Handle("/", rootHandler(staticDir))
	if staticDir != "" {
		slog.Info("serving static files", "dir", staticDir)
	} else {
		slog.Warn("no static dir configured, / returns 404")
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           httpMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("saferoute-server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
	alertEngine.Wait()
}

// loadConfig reads path, falling back to built-in defaults when the file does
// not exist. The second result reports whether the file should be watched.
func loadConfig(path string) (*config.Config, bool, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return config.Defaults(), false, nil
	}
	return nil, false, err
}

func apiOptions(s config.ServerConfig) api.Options {
	return api.Options{
		Policy:    rating.Policy{Strict: s.Ratings.Strict},
		RateLimit: s.Ratings.RateLimit,
		Burst:     s.Ratings.Burst,
	}
}

func bounds(s config.ServerConfig) store.Bounds {
	c := s.Adjustment.Clamp
	return store.Bounds{Enabled: c.Enabled, Min: c.Min, Max: c.Max}
}
