package config

import (
	"github.com/jpalmerr/adcbridge"
)

// BuildOptions converts parsed configuration into SDK options.
//
// The returned options do not include a logger; callers append
// [adcbridge.WithLogger] themselves.
func BuildOptions(cfg *Config) ([]adcbridge.Option, error) {
	opts := []adcbridge.Option{
		adcbridge.WithDevice(cfg.Serial.Device),
		adcbridge.WithBaudRate(cfg.Serial.BaudRate),
		adcbridge.WithDelimiter(cfg.Serial.DelimiterValue()),
		adcbridge.WithPort(cfg.Port),
		adcbridge.WithPath(cfg.Path),
	}

	if cfg.Title != "" {
		opts = append(opts, adcbridge.WithTitle(cfg.Title))
	}

	if cfg.Pattern != "" {
		extractor, err := adcbridge.PatternExtractor(cfg.Pattern)
		if err != nil {
			return nil, err
		}
		opts = append(opts, adcbridge.WithExtractor(extractor))
	}

	if cfg.Discovery.Enabled {
		opts = append(opts, adcbridge.WithAdvertise(adcbridge.AdvertiseConfig{
			Instance:  cfg.Discovery.Instance,
			TTL:       cfg.Discovery.TTL.Duration(),
			Interface: cfg.Discovery.Interface,
		}))
	}

	return opts, nil
}
