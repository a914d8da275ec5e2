// Package config loads olsrv2d's settings: environment variables first
// (via go-envconfig's struct tags), then an optional YAML file layered on
// top, the same two-stage precedence the rest of this codebase's daemons
// use for their configuration.
package config

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// Config is olsrv2d's process-wide configuration.
type Config struct {
	LogLevel string `yaml:"logLevel" env:"LOG_LEVEL,default=info"`

	// RateLimit is C7's window: the minimum spacing between two Dijkstra
	// runs that were not triggered by a domain-parameter change. It is
	// loaded here, but cmd/olsrv2d does not pass it to the
	// core: RoutingCore always uses routingcore.DefaultRateLimit.
	RateLimit time.Duration `yaml:"rateLimit" env:"RATE_LIMIT,default=1s"`

	// Domain 0's kernel route identity. Additional domains can only be
	// configured at runtime today (RoutingCore.SetDomainParameter); the
	// file format has no syntax for them yet.
	Table    int    `yaml:"table" env:"TABLE,default=254"`
	Protocol int    `yaml:"protocol" env:"PROTOCOL,default=100"`
	Distance uint8  `yaml:"distance" env:"DISTANCE,default=5"`
	UseSrcIP bool   `yaml:"useSrcIp" env:"USE_SRC_IP,default=false"`
	LocalIP4 string `yaml:"localIp4" env:"LOCAL_IP4"`
}

// Load builds a Config from the environment, then overlays path's contents
// if path is non-empty.
func Load(ctx context.Context, path string) (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process(ctx, cfg); err != nil {
		return nil, errors.Wrap(err, "reading environment configuration")
	}
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening config file %s", path)
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config file %s", path)
	}
	return cfg, nil
}
