package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/crimson-sun/vigil/internal/alert"
	"github.com/crimson-sun/vigil/internal/config"
	"github.com/crimson-sun/vigil/internal/detect"
	"github.com/crimson-sun/vigil/internal/extract"
	"github.com/crimson-sun/vigil/internal/feedback"
	"github.com/crimson-sun/vigil/internal/history"
	"github.com/crimson-sun/vigil/internal/logging"
	"github.com/crimson-sun/vigil/internal/pipeline"
	"github.com/crimson-sun/vigil/internal/scorer"
	"github.com/crimson-sun/vigil/internal/server"
	"github.com/crimson-sun/vigil/internal/throttle"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (defaults to $VIGIL_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logging.Init(cfg.LogLevel, cfg.LogPretty)
	logger := logging.Component("main")

	// Load the persisted model, or start with an inert one until /train.
	model := scorer.NewSwappable(scorer.LoadOrUntrained(
		cfg.Detection.ModelPath, cfg.Detection.FeatureNames, cfg.Detection.ZThreshold))

	eng := detect.New(detect.Config{
		DefaultRules: cfg.Detection.Rules[config.DefaultKey],
		ServiceRules: serviceRules(cfg.Detection.Rules),
		FeatureNames: cfg.Detection.FeatureNames,
		ScoreCutoff:  cfg.Detection.ScoreCutoff,
	}, model)

	sinks := buildSinks(cfg.Alerts, logger)
	thr := throttle.New(throttleConfig(cfg.RateAlert), sinks)

	hist := buildHistory(cfg.History, logger)
	fb := feedback.NewStore(cfg.Feedback.Path)
	ex := extract.New()
	pipe := pipeline.New(ex, eng, hist, thr)

	srv := server.New(pipe, hist, ex, model, fb, server.TrainerConfig{
		FeatureNames: cfg.Detection.FeatureNames,
		ZThreshold:   cfg.Detection.ZThreshold,
		ModelPath:    cfg.Detection.ModelPath,
	})

	httpSrv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Set up graceful shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown error")
		}
	}()

	logger.Info().
		Str("addr", cfg.HTTPAddr).
		Strs("sinks", sinks.Sinks()).
		Int("history_capacity", cfg.History.Capacity).
		Msg("vigild starting")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server error")
	}
}

// serviceRules strips the fallback entry; the engine carries it as
// DefaultRules.
func serviceRules(rules map[string]map[string]float64) map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(rules))
	for service, table := range rules {
		if service == config.DefaultKey {
			continue
		}
		out[service] = table
	}
	return out
}

func throttleConfig(rc config.RateAlertConfig) throttle.Config {
	cfg := throttle.Config{Services: make(map[string]throttle.Rule, len(rc.Policies))}
	for service, policy := range rc.Policies {
		rule := throttle.Rule{
			Count:  policy.Count,
			Window: time.Duration(policy.WindowSeconds) * time.Second,
		}
		if service == config.DefaultKey {
			r := rule
			cfg.Default = &r
			continue
		}
		cfg.Services[service] = rule
	}
	return cfg
}

// buildSinks registers every alert sink the config enables.
func buildSinks(ac config.AlertConfig, logger zerolog.Logger) *alert.Manager {
	m := alert.NewManager()
	if ac.Console {
		m.Register(alert.NewConsoleSink())
	}
	if ac.SlackWebhookURL != "" {
		m.Register(alert.NewSlackSink(ac.SlackWebhookURL))
	}
	if ac.PagerDutyRoutingKey != "" {
		m.Register(alert.NewPagerDutySink(ac.PagerDutyRoutingKey))
	}
	if ac.WebhookURL != "" {
		m.Register(alert.NewWebhookSink(ac.WebhookURL))
	}
	if ac.Redis.Addr != "" {
		sink, err := alert.NewRedisSink(ac.Redis.Addr, ac.Redis.Channel)
		if err != nil {
			logger.Warn().Err(err).Str("addr", ac.Redis.Addr).Msg("redis sink unavailable, continuing without it")
		} else {
			m.Register(sink)
		}
	}
	return m
}

// buildHistory creates the anomaly store, with an S3 snapshot mirror
// when a bucket is configured.
func buildHistory(hc config.HistoryConfig, logger zerolog.Logger) *history.Store {
	var opts []history.Option
	if hc.S3.Bucket != "" {
		mirror, err := history.NewS3Mirror(context.Background(),
			hc.S3.Region, hc.S3.Bucket, hc.S3.Key,
			time.Duration(hc.S3.TimeoutSeconds)*time.Second)
		if err != nil {
			logger.Warn().Err(err).Str("bucket", hc.S3.Bucket).Msg("s3 mirror unavailable, continuing without it")
		} else {
			opts = append(opts, history.WithMirror(mirror))
		}
	}
	return history.New(hc.Capacity, hc.SnapshotPath, opts...)
}
