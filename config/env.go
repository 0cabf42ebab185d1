package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvString returns the trimmed value of key when it is set and non-empty.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses key as an integer.
func EnvInt(key string) (int, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return n, true, nil
}

// EnvBool parses key as a boolean (1, true, yes, on / 0, false, no, off).
func EnvBool(key string) (bool, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return false, false, nil
	}
	switch strings.ToLower(value) {
	case "1", "true", "yes", "on":
		return true, true, nil
	case "0", "false", "no", "off":
		return false, true, nil
	}
	return false, false, fmt.Errorf("%s: invalid boolean %q", key, value)
}

// EnvDuration parses key with time.ParseDuration.
func EnvDuration(key string) (time.Duration, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return d, true, nil
}

// ApplyEnv overlays SCRAPER_* environment variables onto c.
func (c *Config) ApplyEnv() error {
	if v, ok := EnvString("SCRAPER_LIST_URL"); ok {
		c.ListURL = v
	}
	if v, ok, err := EnvInt("SCRAPER_TARGET"); err != nil {
		return err
	} else if ok {
		c.TargetCount = v
	}
	if v, ok, err := EnvInt("SCRAPER_PAGES"); err != nil {
		return err
	} else if ok {
		c.MaxPages = v
	}
	if v, ok, err := EnvDuration("SCRAPER_DELAY_MIN"); err != nil {
		return err
	} else if ok {
		c.DelayMin = v
	}
	if v, ok, err := EnvDuration("SCRAPER_DELAY_MAX"); err != nil {
		return err
	} else if ok {
		c.DelayMax = v
	}
	if v, ok, err := EnvDuration("SCRAPER_TIMEOUT"); err != nil {
		return err
	} else if ok {
		c.Timeout = v
	}
	if v, ok, err := EnvBool("SCRAPER_FALLBACK"); err != nil {
		return err
	} else if ok {
		c.EnableFallbackOnEmpty = v
	}
	if v, ok := EnvString("SCRAPER_STORE_DSN"); ok {
		c.StoreDSN = v
	}
	if v, ok := EnvString("SCRAPER_LOAD_MODE"); ok {
		c.LoadMode = strings.ToLower(v)
	}
	if v, ok := EnvString("SCRAPER_OUTPUT"); ok {
		c.OutputFile = v
	}
	if v, ok := EnvString("SCRAPER_METRICS_ADDR"); ok {
		c.MetricsAddr = v
	}
	return nil
}
