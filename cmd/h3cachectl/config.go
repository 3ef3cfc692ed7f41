package main

import (
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// fileConfig overlays the seven CLI tunables from an optional JSON file
// given via --conf, the same CLI-flags-take-precedence-over-config-file
// rule the teacher applies in ais/daemon.go's confCustom handling.
type fileConfig struct {
	HotStorage     string `json:"hot_storage"`
	ColdStorage    string `json:"cold_storage"`
	WatermarkLow   *int   `json:"watermark_low"`
	WatermarkHigh  *int   `json:"watermark_high"`
	ExpiresTime    *int   `json:"expires_time"`
	ExpireInterval *int   `json:"expire_interval"`
	EvictInterval  *int   `json:"evict_interval"`
}

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

func loadFileConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config file %q", path)
	}
	var cfg fileConfig
	if err := jsonAPI.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config file %q", path)
	}
	return &cfg, nil
}
