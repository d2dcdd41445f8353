package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cardbot/pkg/bot"
	"cardbot/pkg/cards"
	"cardbot/pkg/config"
	"cardbot/pkg/logger"
)

func normalizeCLIArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := []string{args[0]}
	for i := 1; i < len(args); i++ {
		arg := args[i]
		if arg == "--debug" || arg == "-d" {
			continue
		}
		if arg == "--config" {
			if i+1 < len(args) {
				i++
			}
			continue
		}
		if strings.HasPrefix(arg, "--config=") {
			continue
		}
		normalized = append(normalized, arg)
	}
	return normalized
}

func detectConfigPathFromArgs(args []string) string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--config" && i+1 < len(args) {
			return strings.TrimSpace(args[i+1])
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimSpace(strings.TrimPrefix(arg, "--config="))
		}
	}
	return ""
}

func printHelp() {
	fmt.Printf("%s cardbot - Adaptive Cards bot v%s\n\n", logo, version)
	fmt.Println("Usage: cardbot <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  gateway     Run the HTTP gateway, channels and turn loop")
	fmt.Println("  console     Talk to the bot from the terminal")
	fmt.Println("  card        Inspect configured cards (show, validate)")
	fmt.Println("  config      Get/set/check config values")
	fmt.Println("  status      Show cardbot status")
	fmt.Println("  version     Show version information")
	fmt.Println()
	fmt.Println("Global options:")
	fmt.Println("  --config <path>         Use custom config file")
	fmt.Println("  --debug, -d             Enable debug logging")
	fmt.Println()
	fmt.Println("Cards:")
	fmt.Println("  cardbot card show [index]       # print a card attachment")
	fmt.Println("  cardbot card validate           # load every configured card")
}

func getConfigPath() string {
	if strings.TrimSpace(globalConfigPathOverride) != "" {
		return globalConfigPathOverride
	}
	if fromEnv := strings.TrimSpace(os.Getenv("CARDBOT_CONFIG")); fromEnv != "" {
		return fromEnv
	}
	return filepath.Join(config.GetConfigDir(), "config.json")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, err
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		return nil, joinConfigErrors(errs)
	}
	configureLogging(cfg)
	return cfg, nil
}

func joinConfigErrors(errs []error) error {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func configureLogging(cfg *config.Config) {
	if !cfg.Logging.Enabled {
		logger.DisableFileLogging()
		return
	}

	logFile := cfg.LogFilePath()
	if err := logger.EnableFileLoggingWithRotation(logFile, cfg.Logging.MaxSizeMB, cfg.Logging.RetentionDays); err != nil {
		fmt.Printf("Warning: failed to enable file logging: %v\n", err)
	}
}

func cardCatalog(cfg *config.Config) *cards.Catalog {
	return cards.NewCatalog(cfg.ResourcesPath(), cfg.Cards.Files)
}

func buildDispatcher(cfg *config.Config) (*bot.Dispatcher, error) {
	return bot.NewDispatcher(cardCatalog(cfg).Paths(), bot.TaskModuleSettings{
		URL:         cfg.TaskModule.URL,
		FallbackURL: cfg.TaskModuleFallbackURL(),
		Height:      cfg.TaskModule.Height,
		Width:       cfg.TaskModule.Width,
		Title:       cfg.TaskModule.Title,
	})
}
