package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/warden/internal/activity"
	"github.com/xxxsen/warden/internal/api"
	"github.com/xxxsen/warden/internal/config"
	"github.com/xxxsen/warden/internal/matcher"
	"github.com/xxxsen/warden/internal/metrics"
	"github.com/xxxsen/warden/internal/privacy"
	"github.com/xxxsen/warden/internal/proxy"
	"github.com/xxxsen/warden/internal/source"
	"go.uber.org/zap"
)

func main() {
	cfgPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		// logger not initialised yet, fallback to stderr
		log.Fatalf("init config failed, err:%v", err)
	}
	logkit := logger.Init(cfg.Log.File, cfg.Log.Level, int(cfg.Log.FileCount),
		int(cfg.Log.FileSize), int(cfg.Log.KeepDays), cfg.Log.Console)
	defer logkit.Sync() //nolint:errcheck

	srcs, err := source.MakeSources(cfg.Lists)
	if err != nil {
		logkit.Fatal("build blocklist sources failed", zap.Error(err))
	}

	sink := activity.NewRingSink(cfg.Activity.Size)
	layer, err := privacy.New(
		privacy.WithCacheSize(int(cfg.Cache.Size)),
		privacy.WithSink(sink),
		privacy.WithMatcherOptions(buildMatcherOptions(cfg)...),
	)
	if err != nil {
		logkit.Fatal("build privacy layer failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := reload(ctx, layer, srcs, cfg.Refresh.Concurrent); err != nil {
		logkit.Fatal("load blocklists failed", zap.Error(err))
	}
	if cfg.Refresh.Interval > 0 {
		go refreshLoop(ctx, layer, srcs,
			time.Duration(cfg.Refresh.Interval)*time.Second, cfg.Refresh.Concurrent)
	}

	admin, err := api.New(
		api.WithBind(cfg.APIBind),
		api.WithLayer(layer),
		api.WithSink(sink),
	)
	if err != nil {
		logkit.Fatal("initialise api server failed", zap.Error(err))
	}
	go func() {
		if err := admin.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logkit.Error("api server stopped", zap.Error(err))
		}
	}()

	if cfg.Pprof.Enable {
		startPprofServer(ctx, cfg.Pprof.Bind, logkit)
	}

	filter, err := proxy.New(
		proxy.WithBind(cfg.Bind),
		proxy.WithLayer(layer),
	)
	if err != nil {
		logkit.Fatal("initialise proxy failed", zap.Error(err))
	}

	logkit.Info("filtering proxy listening",
		zap.String("addr", cfg.Bind), zap.String("api", cfg.APIBind))
	if err := filter.Start(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, syscall.EINTR) {
		logkit.Fatal("server error", zap.Error(err))
	}
	logkit.Info("shutdown complete")
}

func buildMatcherOptions(cfg *config.Config) []matcher.Option {
	var opts []matcher.Option
	if cfg.Bloom.FalsePositiveRate > 0 {
		opts = append(opts, matcher.WithFalsePositiveRate(cfg.Bloom.FalsePositiveRate))
	}
	if cfg.Bloom.ExpectedDomains > 0 {
		opts = append(opts, matcher.WithExpectedDomains(int(cfg.Bloom.ExpectedDomains)))
	}
	return opts
}

func reload(ctx context.Context, layer *privacy.Layer, srcs []source.ISource, concurrent int) error {
	payload, err := source.FetchAll(ctx, srcs, concurrent)
	if err != nil {
		metrics.ListReloadsTotal.WithLabelValues(metrics.ResultError).Inc()
		return err
	}
	layer.Reload(ctx, payload.Rules, payload.Exceptions)
	metrics.ListReloadsTotal.WithLabelValues(metrics.ResultOK).Inc()
	return nil
}

func refreshLoop(ctx context.Context, layer *privacy.Layer, srcs []source.ISource,
	interval time.Duration, concurrent int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := reload(ctx, layer, srcs, concurrent); err != nil {
				logutil.GetLogger(ctx).Error("refresh blocklists failed", zap.Error(err))
			}
		}
	}
}
