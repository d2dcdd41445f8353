package main

import (
	"fmt"
	"os"
)

func statusCmd() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		return
	}

	configPath := getConfigPath()

	fmt.Printf("%s cardbot Status\n\n", logo)

	if _, err := os.Stat(configPath); err == nil {
		fmt.Println("Config:", configPath, "✓")
	} else {
		fmt.Println("Config:", configPath, "✗ (using defaults)")
	}

	for _, path := range cardCatalog(cfg).Paths() {
		if _, err := os.Stat(path); err == nil {
			fmt.Println("Card:", path, "✓")
		} else {
			fmt.Println("Card:", path, "✗")
		}
	}

	fmt.Printf("Task Module URL: %s\n", cfg.TaskModule.URL)
	fmt.Printf("Task Module Fallback URL: %s\n", cfg.TaskModuleFallbackURL())
	fmt.Printf("Task Module Size: %dx%d\n", cfg.TaskModule.Width, cfg.TaskModule.Height)
	fmt.Printf("Gateway: %s\n", cfg.GatewayAddr())
	if cfg.Gateway.TurnsPerSecond > 0 {
		fmt.Printf("Gateway Rate Limit: %.1f turns/s (burst %d)\n", cfg.Gateway.TurnsPerSecond, cfg.Gateway.TurnBurst)
	}
	fmt.Printf("Bridge: %v\n", cfg.Channels.Bridge.Enabled)
	if cfg.Channels.Bridge.Enabled {
		fmt.Printf("Bridge URL: %s\n", cfg.Channels.Bridge.URL)
	}
	fmt.Printf("Sentinel: %v\n", cfg.Sentinel.Enabled)
	if cfg.Sentinel.Enabled {
		fmt.Printf("Sentinel Interval: %ds (auto-heal %v)\n", cfg.Sentinel.IntervalSec, cfg.Sentinel.AutoHeal)
	}
	fmt.Printf("Logging: %v\n", cfg.Logging.Enabled)
	if cfg.Logging.Enabled {
		fmt.Printf("Log File: %s\n", cfg.LogFilePath())
		fmt.Printf("Log Max Size: %d MB\n", cfg.Logging.MaxSizeMB)
		fmt.Printf("Log Retention: %d days\n", cfg.Logging.RetentionDays)
	}
}
