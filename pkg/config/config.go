package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Cards      CardsConfig      `json:"cards"`
	TaskModule TaskModuleConfig `json:"task_module"`
	Gateway    GatewayConfig    `json:"gateway"`
	Channels   ChannelsConfig   `json:"channels"`
	Sentinel   SentinelConfig   `json:"sentinel"`
	Logging    LoggingConfig    `json:"logging"`
	mu         sync.RWMutex
}

// CardsConfig lists the adaptive card definitions the bot sends. Files are
// resolved against ResourcesDir unless absolute; the first entry is the card
// sent in reply to messages.
type CardsConfig struct {
	ResourcesDir string   `json:"resources_dir" env:"CARDBOT_CARDS_RESOURCES_DIR"`
	Files        []string `json:"files" env:"CARDBOT_CARDS_FILES"`
}

type TaskModuleConfig struct {
	URL         string `json:"url" env:"CARDBOT_TASK_MODULE_URL"`
	FallbackURL string `json:"fallback_url" env:"CARDBOT_TASK_MODULE_FALLBACK_URL"`
	Height      int    `json:"height" env:"CARDBOT_TASK_MODULE_HEIGHT"`
	Width       int    `json:"width" env:"CARDBOT_TASK_MODULE_WIDTH"`
	Title       string `json:"title" env:"CARDBOT_TASK_MODULE_TITLE"`
}

type GatewayConfig struct {
	Host           string  `json:"host" env:"CARDBOT_GATEWAY_HOST"`
	Port           int     `json:"port" env:"CARDBOT_GATEWAY_PORT"`
	TurnsPerSecond float64 `json:"turns_per_second" env:"CARDBOT_GATEWAY_TURNS_PER_SECOND"`
	TurnBurst      int     `json:"turn_burst" env:"CARDBOT_GATEWAY_TURN_BURST"`
}

type ChannelsConfig struct {
	Bridge BridgeConfig `json:"bridge"`
}

type BridgeConfig struct {
	Enabled   bool     `json:"enabled" env:"CARDBOT_CHANNELS_BRIDGE_ENABLED"`
	URL       string   `json:"url" env:"CARDBOT_CHANNELS_BRIDGE_URL"`
	AllowFrom []string `json:"allow_from" env:"CARDBOT_CHANNELS_BRIDGE_ALLOW_FROM"`
}

// SentinelConfig drives the gateway's periodic self-check of config, card
// files and the log directory.
type SentinelConfig struct {
	Enabled     bool `json:"enabled" env:"CARDBOT_SENTINEL_ENABLED"`
	IntervalSec int  `json:"interval_sec" env:"CARDBOT_SENTINEL_INTERVAL_SEC"`
	AutoHeal    bool `json:"auto_heal" env:"CARDBOT_SENTINEL_AUTO_HEAL"`
}

type LoggingConfig struct {
	Enabled       bool   `json:"enabled" env:"CARDBOT_LOGGING_ENABLED"`
	Dir           string `json:"dir" env:"CARDBOT_LOGGING_DIR"`
	Filename      string `json:"filename" env:"CARDBOT_LOGGING_FILENAME"`
	MaxSizeMB     int    `json:"max_size_mb" env:"CARDBOT_LOGGING_MAX_SIZE_MB"`
	RetentionDays int    `json:"retention_days" env:"CARDBOT_LOGGING_RETENTION_DAYS"`
}

var (
	isDebug bool
	muDebug sync.RWMutex
)

func SetDebugMode(debug bool) {
	muDebug.Lock()
	defer muDebug.Unlock()
	isDebug = debug
}

func IsDebugMode() bool {
	muDebug.RLock()
	defer muDebug.RUnlock()
	return isDebug
}

func GetConfigDir() string {
	if IsDebugMode() {
		return ".cardbot"
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cardbot")
}

func DefaultConfig() *Config {
	return &Config{
		Cards: CardsConfig{
			ResourcesDir: "Resources",
			Files:        []string{"Adaptivecard1.json"},
		},
		TaskModule: TaskModuleConfig{
			URL:    "http://localhost:3978/taskmodule",
			Height: 1000,
			Width:  700,
			Title:  "Task Module Title",
		},
		Gateway: GatewayConfig{
			Host:           "0.0.0.0",
			Port:           3978,
			TurnsPerSecond: 50,
			TurnBurst:      100,
		},
		Channels: ChannelsConfig{
			Bridge: BridgeConfig{
				Enabled:   false,
				URL:       "ws://localhost:3001",
				AllowFrom: []string{},
			},
		},
		Sentinel: SentinelConfig{
			Enabled:     true,
			IntervalSec: 60,
			AutoHeal:    true,
		},
		Logging: LoggingConfig{
			Enabled:       true,
			Dir:           filepath.Join(GetConfigDir(), "logs"),
			Filename:      "cardbot.log",
			MaxSizeMB:     20,
			RetentionDays: 3,
		},
	}
}

// LoadConfig reads path over the defaults and then applies CARDBOT_*
// environment overrides. A missing file yields the defaults (with overrides).
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := unmarshalConfigStrict(data, cfg); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ParseConfig decodes data over the defaults with the same strictness as
// LoadConfig. Environment overrides are not applied.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := unmarshalConfigStrict(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func unmarshalConfigStrict(data []byte, cfg *Config) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return err
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); err != io.EOF {
		if err == nil {
			return fmt.Errorf("invalid config: trailing JSON content")
		}
		return err
	}
	return nil
}

func SaveConfig(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func (c *Config) ResourcesPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return expandHome(c.Cards.ResourcesDir)
}

// TaskModuleFallbackURL falls back to the task module URL when no separate
// fallback is configured.
func (c *Config) TaskModuleFallbackURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.TaskModule.FallbackURL != "" {
		return c.TaskModule.FallbackURL
	}
	return c.TaskModule.URL
}

func (c *Config) GatewayAddr() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return fmt.Sprintf("%s:%d", c.Gateway.Host, c.Gateway.Port)
}

func (c *Config) LogFilePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	filename := c.Logging.Filename
	if filename == "" {
		filename = "cardbot.log"
	}
	return filepath.Join(expandHome(c.Logging.Dir), filename)
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
