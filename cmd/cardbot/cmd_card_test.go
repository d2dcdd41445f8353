package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cardbot/pkg/cards"
)

func TestValidateCardsReportsFailures(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "good.json"), []byte(`{"type":"AdaptiveCard","version":"1.2","body":[{},{}],"actions":[{}]}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	catalog := cards.NewCatalog(dir, []string{"good.json", "bad.json", "missing.json"})

	var buf bytes.Buffer
	if failed := validateCards(&buf, catalog); failed != 2 {
		t.Fatalf("failed = %d, want 2\n%s", failed, buf.String())
	}
	out := buf.String()
	if !strings.Contains(out, "AdaptiveCard v1.2 (2 body elements, 1 actions)") {
		t.Fatalf("missing summary:\n%s", out)
	}
	if !strings.Contains(out, "3 card(s), 2 failed") {
		t.Fatalf("missing totals:\n%s", out)
	}
}

func TestShowCard(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "c.json"), []byte(`{"type":"AdaptiveCard"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	catalog := cards.NewCatalog(dir, []string{"c.json"})

	var buf bytes.Buffer
	if err := showCard(&buf, catalog, 0); err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(buf.String(), cards.ContentTypeAdaptiveCard) {
		t.Fatalf("attachment content type missing:\n%s", buf.String())
	}
	if err := showCard(&buf, catalog, 3); err == nil {
		t.Fatalf("out of range index should fail")
	}
}
