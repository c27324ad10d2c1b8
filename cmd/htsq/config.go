package main

import (
	"fmt"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/nimezhu/hts"
	"github.com/nimezhu/hts/region"
)

type arrayFlags []string

func (a *arrayFlags) String() string {
	return fmt.Sprintf("%v", *a)
}

func (a *arrayFlags) Set(value string) error {
	*a = append(*a, value)
	return nil
}

// Config holds the command line settings of htsq.
type Config struct {
	Input       string
	Index       string
	Regions     arrayFlags
	LogLevel    string
	MetricsAddr string
	CacheSize   int
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Input == "" {
		return fmt.Errorf("input cannot be empty")
	}
	if len(c.Regions) == 0 {
		return fmt.Errorf("at least one region must be given")
	}
	for _, s := range c.Regions {
		if _, err := region.Parse(s); err != nil {
			return err
		}
	}
	if c.CacheSize < 1 {
		return fmt.Errorf("cache size must be positive, got %d", c.CacheSize)
	}
	if _, err := levelOption(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// IndexCandidates lists the index locations tried for the input, in order.
func (c *Config) IndexCandidates(f hts.Format) []string {
	if c.Index != "" {
		return []string{c.Index}
	}
	if f == hts.BAM {
		return []string{c.Input + ".bai", c.Input + ".csi"}
	}
	return []string{c.Input + ".csi"}
}

func levelOption(s string) (level.Option, error) {
	switch strings.ToLower(s) {
	case "debug":
		return level.AllowDebug(), nil
	case "info":
		return level.AllowInfo(), nil
	case "warn":
		return level.AllowWarn(), nil
	case "error":
		return level.AllowError(), nil
	}
	return nil, fmt.Errorf("unknown log level %q", s)
}

func newLogger(w log.Logger, lvl string) log.Logger {
	opt, err := levelOption(lvl)
	if err != nil {
		opt = level.AllowInfo()
	}
	logger := level.NewFilter(w, opt)
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	return log.With(logger, "caller", log.DefaultCaller)
}
