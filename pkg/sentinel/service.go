// Package sentinel periodically checks that the running gateway can still
// serve turns: every card of the running config loads and its log directory
// exists. It also reports when the config file on disk would fail on the
// next start.
package sentinel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cardbot/pkg/cards"
	"cardbot/pkg/config"
	"cardbot/pkg/lifecycle"
	"cardbot/pkg/logger"
)

const alertCooldown = 5 * time.Minute

type AlertFunc func(msg string)

type Service struct {
	cfg        *config.Config
	cfgPath    string
	interval   time.Duration
	autoHeal   bool
	onAlert    AlertFunc
	runner     *lifecycle.LoopRunner
	mu         sync.RWMutex
	issues     []string
	lastAlerts map[string]time.Time
	now        func() time.Time
}

// NewService checks cfg, the config the gateway was built from. cfgPath is
// only read to catch edits that would break the next start; it may be empty.
func NewService(cfg *config.Config, cfgPath string, intervalSec int, autoHeal bool, onAlert AlertFunc) *Service {
	if intervalSec <= 0 {
		intervalSec = 60
	}
	return &Service{
		cfg:        cfg,
		cfgPath:    cfgPath,
		interval:   time.Duration(intervalSec) * time.Second,
		autoHeal:   autoHeal,
		onAlert:    onAlert,
		runner:     lifecycle.NewLoopRunner(),
		lastAlerts: map[string]time.Time{},
		now:        time.Now,
	}
}

func (s *Service) Start(ctx context.Context) {
	if !s.runner.Start(ctx, s.loop) {
		return
	}
	logger.InfoCF("sentinel", "Sentinel started", map[string]interface{}{
		"interval":  s.interval.String(),
		"auto_heal": s.autoHeal,
	})
}

func (s *Service) Stop() {
	if !s.runner.Stop() {
		return
	}
	logger.InfoC("sentinel", "Sentinel stopped")
}

// Issues returns the problems found by the latest check.
func (s *Service) Issues() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.issues...)
}

func (s *Service) loop(ctx context.Context) {
	tk := time.NewTicker(s.interval)
	defer tk.Stop()

	s.RunChecks()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
			s.RunChecks()
		}
	}
}

// RunChecks runs every check once, records the issues and alerts on each.
func (s *Service) RunChecks() []string {
	var issues []string
	issues = append(issues, s.checkCards(s.cfg)...)
	issues = append(issues, s.checkLogs(s.cfg)...)
	issues = append(issues, s.checkConfigFile()...)

	s.mu.Lock()
	s.issues = issues
	s.mu.Unlock()

	for _, issue := range issues {
		s.alert(issue)
	}
	return issues
}

// checkConfigFile loads the config file the way the next start would. A
// missing file means defaults and is not an issue.
func (s *Service) checkConfigFile() []string {
	if s.cfgPath == "" {
		return nil
	}
	cfg, err := config.LoadConfig(s.cfgPath)
	if err != nil {
		return []string{fmt.Sprintf("sentinel: config file will not load on restart: %v", err)}
	}

	verrs := config.Validate(cfg)
	out := make([]string, 0, len(verrs))
	for _, e := range verrs {
		out = append(out, fmt.Sprintf("sentinel: config file invalid for restart: %v", e))
	}
	return out
}

func (s *Service) checkCards(cfg *config.Config) []string {
	catalog := cards.NewCatalog(cfg.ResourcesPath(), cfg.Cards.Files)
	var out []string
	for i := range cfg.Cards.Files {
		if _, err := catalog.Load(i); err != nil {
			var loadErr *cards.CardLoadError
			if errors.As(err, &loadErr) {
				out = append(out, fmt.Sprintf("sentinel: card unavailable: %s: %v", loadErr.Path, loadErr.Err))
				continue
			}
			out = append(out, fmt.Sprintf("sentinel: card unavailable: %v", err))
		}
	}
	return out
}

func (s *Service) checkLogs(cfg *config.Config) []string {
	if !cfg.Logging.Enabled {
		return nil
	}
	logDir := filepath.Clean(filepath.Dir(cfg.LogFilePath()))
	if _, err := os.Stat(logDir); err != nil {
		if s.autoHeal {
			if mkErr := os.MkdirAll(logDir, 0755); mkErr == nil {
				logger.InfoCF("sentinel", "Log dir missing, auto-healed", map[string]interface{}{
					"dir": logDir,
				})
				return nil
			}
		}
		return []string{fmt.Sprintf("sentinel: log dir missing: %s", logDir)}
	}
	return nil
}

// alert logs msg, at most once per cooldown for the same message.
func (s *Service) alert(msg string) {
	now := s.now()
	s.mu.Lock()
	last, ok := s.lastAlerts[msg]
	if ok && now.Sub(last) < alertCooldown {
		s.mu.Unlock()
		return
	}
	s.lastAlerts[msg] = now
	s.mu.Unlock()

	logger.WarnCF("sentinel", msg, nil)
	if s.onAlert != nil {
		s.onAlert(msg)
	}
}
