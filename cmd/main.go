package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/vitrinhq/vitrin/internal/adapters/http/api"
	"github.com/vitrinhq/vitrin/internal/app"
	"github.com/vitrinhq/vitrin/internal/config"
	"github.com/vitrinhq/vitrin/internal/domain/badge"
	"github.com/vitrinhq/vitrin/pkg/logger"
	"github.com/vitrinhq/vitrin/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// The engine exposes only its own metrics; the default Go and process
	// collectors would double-register on the global registry.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env). Invalid
	// scoring parameters are fatal, never clamped.
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	opts := []app.Option{
		app.WithLogger(log),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithWeights(cfg.UpvoteWeight, cfg.ViewWeight),
		app.WithHalfLifeDays(cfg.HalfLifeDays),
		app.WithViewDedupWindow(time.Duration(cfg.ViewDedupWindowMinutes) * time.Minute),
	}
	if len(cfg.Badges) > 0 {
		opts = append(opts, app.WithBadgeDefinitions(badgeDefinitions(cfg.Badges)))
	}
	svc := app.New(opts...)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer svc.Stop()

	go startServiceMetricsUpdater(ctx, svc)

	mux := http.NewServeMux()
	apiServer := api.NewServer(svc, svc,
		api.WithMaxPageSize(cfg.MaxPageSize),
		api.WithAuthTokens(cfg.APITokens),
	)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
}

// badgeDefinitions converts configured badge rules into domain
// definitions. Validation already ran in config.Load.
func badgeDefinitions(rules []config.BadgeRule) []badge.Definition {
	defs := make([]badge.Definition, 0, len(rules))
	for _, r := range rules {
		defs = append(defs, badge.Definition{
			ID:    r.ID,
			Label: r.Label,
			Rule:  badgeRule(r),
			Bonus: r.Bonus,
		})
	}
	return defs
}

func badgeRule(r config.BadgeRule) badge.Rule {
	rule := badge.Rule{
		Kind:      badge.RuleKind(r.Kind),
		Threshold: r.Threshold,
	}
	for _, p := range r.Parts {
		rule.Parts = append(rule.Parts, badgeRule(p))
	}
	return rule
}

// startServiceMetricsUpdater periodically refreshes gauges derived from
// service state.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateQueueSize(svc.GetStats().QueueLength)
		}
	}
}
