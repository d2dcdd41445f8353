package config

import (
	"strings"
	"testing"
)

func containsError(errs []error, fragment string) bool {
	for _, err := range errs {
		if strings.Contains(err.Error(), fragment) {
			return true
		}
	}
	return false
}

func TestValidateRequiresTaskModuleURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TaskModule.URL = ""

	errs := Validate(cfg)
	if !containsError(errs, "task_module.url is required") {
		t.Fatalf("expected missing url error, got %v", errs)
	}
}

func TestValidateRejectsRelativeTaskModuleURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TaskModule.URL = "/taskmodule"

	if errs := Validate(cfg); !containsError(errs, "absolute URL") {
		t.Fatalf("expected absolute url error, got %v", errs)
	}
}

func TestValidateRequiresCards(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cards.Files = nil

	if errs := Validate(cfg); !containsError(errs, "cards.files must contain at least one card") {
		t.Fatalf("expected empty card list error, got %v", errs)
	}

	cfg.Cards.Files = []string{"ok.json", " "}
	if errs := Validate(cfg); !containsError(errs, "cards.files[1] must not be empty") {
		t.Fatalf("expected blank entry error, got %v", errs)
	}
}

func TestValidateBridgeURLScheme(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Channels.Bridge.Enabled = true
	cfg.Channels.Bridge.URL = "http://localhost:3001"

	if errs := Validate(cfg); !containsError(errs, "channels.bridge.url") {
		t.Fatalf("expected bridge scheme error, got %v", errs)
	}

	cfg.Channels.Bridge.URL = "wss://bridge.example.com/socket"
	if errs := Validate(cfg); len(errs) != 0 {
		t.Fatalf("expected valid config, got %v", errs)
	}
}

func TestValidateNil(t *testing.T) {
	if errs := Validate(nil); len(errs) != 1 {
		t.Fatalf("expected single nil config error, got %v", errs)
	}
}

func TestValidateSentinelInterval(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sentinel.IntervalSec = 0

	if errs := Validate(cfg); !containsError(errs, "sentinel.interval_sec") {
		t.Fatalf("expected sentinel interval error, got %v", errs)
	}

	cfg.Sentinel.Enabled = false
	if errs := Validate(cfg); len(errs) != 0 {
		t.Fatalf("disabled sentinel needs no interval, got %v", errs)
	}
}
