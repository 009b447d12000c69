package reduce

import (
	"context"
	"flag"
	"fmt"
	"runtime"
	"time"

	"github.com/grafana/globalconf"
	"github.com/raintank/dur"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Concurrency int
	// Timeout bounds a whole ReduceAll run. "0" disables it.
	Timeout string

	timeout time.Duration
}

// Validate checks the config and parses Timeout.
func (cfg *Config) Validate() error {
	if cfg.Concurrency < 1 {
		return fmt.Errorf("concurrency must be >= 1, got %d", cfg.Concurrency)
	}
	secs, err := dur.ParseDuration(cfg.Timeout)
	if err != nil {
		return fmt.Errorf("invalid timeout %q: %s", cfg.Timeout, err)
	}
	cfg.timeout = time.Duration(secs) * time.Second
	return nil
}

// Context returns a context bounded by the configured timeout, if any.
// Only valid after Validate.
func (cfg *Config) Context(parent context.Context) (context.Context, context.CancelFunc) {
	if cfg.timeout == 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, cfg.timeout)
}

// return Config with default values set.
func NewConfig() *Config {
	return &Config{
		Concurrency: runtime.NumCPU(),
		Timeout:     "0",
	}
}

var CliConfig = NewConfig()

func ConfigSetup() {
	reduceCfg := flag.NewFlagSet("reduce", flag.ExitOnError)
	reduceCfg.IntVar(&CliConfig.Concurrency, "concurrency", CliConfig.Concurrency, "max number of metric groups to reduce in parallel")
	reduceCfg.StringVar(&CliConfig.Timeout, "timeout", CliConfig.Timeout, "max duration of a reduction of all groups, e.g. 30s or 2min. 0 to disable")
	globalconf.Register("reduce", reduceCfg, flag.ExitOnError)
}

func ConfigProcess() {
	if err := CliConfig.Validate(); err != nil {
		log.Fatalf("reduce: Config validation error. %s", err)
	}
}
