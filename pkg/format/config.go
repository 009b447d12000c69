package format

import (
	"flag"
	"fmt"

	"github.com/grafana/globalconf"
	lru "github.com/hashicorp/golang-lru"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	PatternCacheSize int
}

func (cfg *Config) Validate() error {
	if cfg.PatternCacheSize <= 0 {
		return fmt.Errorf("pattern-cache-size must be > 0, got %d", cfg.PatternCacheSize)
	}
	return nil
}

// return Config with default values set.
func NewConfig() *Config {
	return &Config{
		PatternCacheSize: 256,
	}
}

var CliConfig = NewConfig()

// compiled decimal patterns, keyed by pattern
var patternCache = mustCache(CliConfig.PatternCacheSize)

func mustCache(size int) *lru.Cache {
	c, err := lru.New(size)
	if err != nil {
		panic(err)
	}
	return c
}

func ConfigSetup() {
	formatCfg := flag.NewFlagSet("format", flag.ExitOnError)
	formatCfg.IntVar(&CliConfig.PatternCacheSize, "pattern-cache-size", CliConfig.PatternCacheSize, "number of compiled decimal patterns to keep around")
	globalconf.Register("format", formatCfg, flag.ExitOnError)
}

func ConfigProcess() {
	if err := CliConfig.Validate(); err != nil {
		log.Fatalf("format: Config validation error. %s", err)
	}
	patternCache = mustCache(CliConfig.PatternCacheSize)
}
