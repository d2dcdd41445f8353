package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate returns configuration problems found in cfg.
// It does not mutate cfg.
func Validate(cfg *Config) []error {
	if cfg == nil {
		return []error{fmt.Errorf("config is nil")}
	}

	var errs []error

	if len(cfg.Cards.Files) == 0 {
		errs = append(errs, fmt.Errorf("cards.files must contain at least one card"))
	}
	errs = append(errs, validateNonEmptyStringList("cards.files", cfg.Cards.Files)...)

	tm := cfg.TaskModule
	if strings.TrimSpace(tm.URL) == "" {
		errs = append(errs, fmt.Errorf("task_module.url is required"))
	} else if err := validateAbsoluteURL(tm.URL, "http", "https"); err != nil {
		errs = append(errs, fmt.Errorf("task_module.url: %w", err))
	}
	if tm.FallbackURL != "" {
		if err := validateAbsoluteURL(tm.FallbackURL, "http", "https"); err != nil {
			errs = append(errs, fmt.Errorf("task_module.fallback_url: %w", err))
		}
	}
	if tm.Height <= 0 {
		errs = append(errs, fmt.Errorf("task_module.height must be > 0"))
	}
	if tm.Width <= 0 {
		errs = append(errs, fmt.Errorf("task_module.width must be > 0"))
	}

	if cfg.Gateway.Port <= 0 || cfg.Gateway.Port > 65535 {
		errs = append(errs, fmt.Errorf("gateway.port must be in 1..65535"))
	}
	if cfg.Gateway.TurnsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("gateway.turns_per_second must be >= 0"))
	}
	if cfg.Gateway.TurnsPerSecond > 0 && cfg.Gateway.TurnBurst <= 0 {
		errs = append(errs, fmt.Errorf("gateway.turn_burst must be > 0 when gateway.turns_per_second > 0"))
	}

	if cfg.Channels.Bridge.Enabled {
		if cfg.Channels.Bridge.URL == "" {
			errs = append(errs, fmt.Errorf("channels.bridge.url is required when channels.bridge.enabled=true"))
		} else if err := validateAbsoluteURL(cfg.Channels.Bridge.URL, "ws", "wss"); err != nil {
			errs = append(errs, fmt.Errorf("channels.bridge.url: %w", err))
		}
	}

	if cfg.Sentinel.Enabled && cfg.Sentinel.IntervalSec <= 0 {
		errs = append(errs, fmt.Errorf("sentinel.interval_sec must be > 0 when sentinel.enabled=true"))
	}

	if cfg.Logging.Enabled {
		if cfg.Logging.Dir == "" {
			errs = append(errs, fmt.Errorf("logging.dir is required when logging.enabled=true"))
		}
		if cfg.Logging.Filename == "" {
			errs = append(errs, fmt.Errorf("logging.filename is required when logging.enabled=true"))
		}
		if cfg.Logging.MaxSizeMB <= 0 {
			errs = append(errs, fmt.Errorf("logging.max_size_mb must be > 0"))
		}
		if cfg.Logging.RetentionDays <= 0 {
			errs = append(errs, fmt.Errorf("logging.retention_days must be > 0"))
		}
	}

	return errs
}

func validateAbsoluteURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Host == "" {
		return fmt.Errorf("%q must be an absolute URL", raw)
	}
	for _, s := range schemes {
		if strings.EqualFold(u.Scheme, s) {
			return nil
		}
	}
	return fmt.Errorf("%q must use one of: %s", raw, strings.Join(schemes, ", "))
}

func validateNonEmptyStringList(path string, values []string) []error {
	var errs []error
	for i, value := range values {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%s[%d] must not be empty", path, i))
		}
	}
	return errs
}
