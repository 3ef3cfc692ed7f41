package main

import (
	"flag"
	"testing"

	"github.com/urfave/cli"
)

func newTestContext(t *testing.T, set map[string]string) *cli.Context {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.String("hot_storage", "", "")
	fs.String("cold_storage", "", "")
	fs.Int("watermark_low", defaultWatermarkLow, "")
	fs.Int("watermark_high", defaultWatermarkHigh, "")
	fs.Int("expires_time", defaultExpiresTime, "")
	fs.Int("expire_interval", defaultExpireInterval, "")
	fs.Int("evict_interval", defaultEvictInterval, "")
	fs.String("conf", "", "")
	fs.String("metrics_addr", "", "")
	fs.Int("v", 0, "")
	for name, value := range set {
		if err := fs.Set(name, value); err != nil {
			t.Fatalf("setting %s=%s: %v", name, value, err)
		}
	}
	return cli.NewContext(cli.NewApp(), fs, nil)
}

func TestResolveSettingsRequiresHotStorage(t *testing.T) {
	c := newTestContext(t, map[string]string{"cold_storage": "mem://"})
	if _, err := resolveSettings(c); err == nil {
		t.Fatal("expected error for missing --hot_storage")
	}
}

func TestResolveSettingsRequiresColdStorage(t *testing.T) {
	c := newTestContext(t, map[string]string{"hot_storage": "mem://"})
	if _, err := resolveSettings(c); err == nil {
		t.Fatal("expected error for missing --cold_storage")
	}
}

func TestResolveSettingsRejectsOutOfRangeWatermark(t *testing.T) {
	c := newTestContext(t, map[string]string{
		"hot_storage": "mem://", "cold_storage": "mem://", "watermark_high": "150",
	})
	if _, err := resolveSettings(c); err == nil {
		t.Fatal("expected error for watermark_high out of [0,100]")
	}
}

func TestResolveSettingsAppliesDefaults(t *testing.T) {
	c := newTestContext(t, map[string]string{"hot_storage": "mem://", "cold_storage": "mem://"})
	s, err := resolveSettings(c)
	if err != nil {
		t.Fatalf("resolveSettings: %v", err)
	}
	if s.watermarkLow != defaultWatermarkLow || s.watermarkHigh != defaultWatermarkHigh {
		t.Fatalf("unexpected watermark defaults: %+v", s)
	}
	if s.expiresTime != defaultExpiresTime || s.expireInterval != defaultExpireInterval || s.evictInterval != defaultEvictInterval {
		t.Fatalf("unexpected interval defaults: %+v", s)
	}
}
