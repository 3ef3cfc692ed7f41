// Command h3cachectl runs the tiered cache's lifecycle controllers
// against a hot and a cold store.Driver.
/*
 * Copyright (c) 2019-2024, FORTH-ICS. All rights reserved.
 */
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli"

	"github.com/h3tier/h3cache/cache"
	"github.com/h3tier/h3cache/controller"
	"github.com/h3tier/h3cache/sched"
	"github.com/h3tier/h3cache/store"
	_ "github.com/h3tier/h3cache/store/kvdriver"
	_ "github.com/h3tier/h3cache/store/memdriver"
)

const (
	defaultWatermarkLow   = 50
	defaultWatermarkHigh  = 90
	defaultExpiresTime    = 1800
	defaultExpireInterval = 1200
	defaultEvictInterval  = 600
)

func main() {
	app := cli.NewApp()
	app.Name = "h3cachectl"
	app.Usage = "run the tiered object cache's lifecycle controllers"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "hot_storage", Usage: "hot tier URI, e.g. mem://"},
		cli.StringFlag{Name: "cold_storage", Usage: "cold tier URI, e.g. kv:///var/lib/h3cache"},
		cli.IntFlag{Name: "watermark_low", Value: defaultWatermarkLow, Usage: "eviction stops at or below this fill percentage"},
		cli.IntFlag{Name: "watermark_high", Value: defaultWatermarkHigh, Usage: "eviction starts at or above this fill percentage"},
		cli.IntFlag{Name: "expires_time", Value: defaultExpiresTime, Usage: "default maximum residency in hot, seconds"},
		cli.IntFlag{Name: "expire_interval", Value: defaultExpireInterval, Usage: "period of the cache-expiration pass, seconds"},
		cli.IntFlag{Name: "evict_interval", Value: defaultEvictInterval, Usage: "period of the eviction pass, seconds"},
		cli.StringFlag{Name: "conf", Usage: "optional JSON file overlaying the flags above"},
		cli.StringFlag{Name: "metrics_addr", Usage: "if set, serve Prometheus metrics on this address, e.g. :9090"},
		cli.IntFlag{Name: "v", Usage: "glog verbosity level"},
	}
	app.Action = run
	app.Commands = []cli.Command{
		sweepCommand(),
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type settings struct {
	hotStorage, coldStorage                    string
	watermarkLow, watermarkHigh                 int
	expiresTime, expireInterval, evictInterval int
	metricsAddr                                 string
}

func resolveSettings(c *cli.Context) (*settings, error) {
	s := &settings{
		hotStorage:     c.String("hot_storage"),
		coldStorage:    c.String("cold_storage"),
		watermarkLow:   c.Int("watermark_low"),
		watermarkHigh:  c.Int("watermark_high"),
		expiresTime:    c.Int("expires_time"),
		expireInterval: c.Int("expire_interval"),
		evictInterval:  c.Int("evict_interval"),
		metricsAddr:    c.String("metrics_addr"),
	}

	if path := c.String("conf"); path != "" {
		fc, err := loadFileConfig(path)
		if err != nil {
			return nil, err
		}
		if !c.IsSet("hot_storage") && fc.HotStorage != "" {
			s.hotStorage = fc.HotStorage
		}
		if !c.IsSet("cold_storage") && fc.ColdStorage != "" {
			s.coldStorage = fc.ColdStorage
		}
		if !c.IsSet("watermark_low") && fc.WatermarkLow != nil {
			s.watermarkLow = *fc.WatermarkLow
		}
		if !c.IsSet("watermark_high") && fc.WatermarkHigh != nil {
			s.watermarkHigh = *fc.WatermarkHigh
		}
		if !c.IsSet("expires_time") && fc.ExpiresTime != nil {
			s.expiresTime = *fc.ExpiresTime
		}
		if !c.IsSet("expire_interval") && fc.ExpireInterval != nil {
			s.expireInterval = *fc.ExpireInterval
		}
		if !c.IsSet("evict_interval") && fc.EvictInterval != nil {
			s.evictInterval = *fc.EvictInterval
		}
	}

	if s.hotStorage == "" {
		return nil, cli.NewExitError("missing required flag --hot_storage", 1)
	}
	if s.coldStorage == "" {
		return nil, cli.NewExitError("missing required flag --cold_storage", 1)
	}
	if err := validatePercent("watermark_low", s.watermarkLow); err != nil {
		return nil, err
	}
	if err := validatePercent("watermark_high", s.watermarkHigh); err != nil {
		return nil, err
	}
	return s, nil
}

func validatePercent(flag string, v int) error {
	if v < 0 || v > 100 {
		return cli.NewExitError(fmt.Sprintf("--%s must be an integer in [0,100], got %d", flag, v), 1)
	}
	return nil
}

// setVerbosity forwards -v to glog's own flag.FlagSet, the same plumbing
// the teacher's daemon entrypoint uses to let glog parse its own flags.
func setVerbosity(v int) {
	if v <= 0 {
		return
	}
	if f := flag.Lookup("v"); f != nil {
		_ = f.Value.Set(fmt.Sprintf("%d", v))
	}
}

func run(c *cli.Context) error {
	setVerbosity(c.Int("v"))

	s, err := resolveSettings(c)
	if err != nil {
		return err
	}

	// hot and cold are opened exactly once and shared by reference between
	// the cache adapter and the lifecycle controllers, so the controllers
	// see the same hot-tier contents client traffic through the adapter
	// actually produced rather than a second, independently-empty handle.
	hot, err := store.Open(s.hotStorage)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("opening hot tier: %v", err), 1)
	}
	cold, err := store.Open(s.coldStorage)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("opening cold tier: %v", err), 1)
	}
	adapter := cache.NewWithDrivers(hot, cold, 0)

	if s.metricsAddr != "" {
		for _, col := range adapter.Collectors() {
			if err := prometheus.Register(col); err != nil {
				return cli.NewExitError(fmt.Sprintf("registering metrics: %v", err), 1)
			}
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		server := &http.Server{Addr: s.metricsAddr, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				glog.Errorf("metrics server exited: %v", err)
			}
		}()
		defer server.Close()
	}

	lock := controller.NewLock()
	eviction := controller.NewEviction(hot, cold, lock, s.watermarkLow, s.watermarkHigh, adapter.RecordWriteback)
	expiration := controller.NewCacheExpiration(hot, cold, lock, time.Duration(s.expiresTime)*time.Second, adapter.RecordWriteback)

	scheduler := sched.New()
	scheduler.Schedule("eviction", time.Duration(s.evictInterval)*time.Second, eviction.Run)
	scheduler.Schedule("cache-expiration", time.Duration(s.expireInterval)*time.Second, expiration.Run)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	glog.Infof("h3cachectl: received %v, shutting down", sig)
	if err := scheduler.Stop(); err != nil {
		return cli.NewExitError(fmt.Sprintf("controller exited with error: %v", err), 1)
	}
	return nil
}
