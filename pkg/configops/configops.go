// Package configops edits the config file by dotted path, the way the
// config CLI exposes it, and refuses writes that would leave an invalid
// config behind.
package configops

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"cardbot/pkg/config"
)

// Document is a config file held as a generic JSON object so that edits
// keep keys the caller did not touch.
type Document struct {
	root map[string]interface{}
}

// Load reads path. A missing file starts from the defaults.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		data, err = json.Marshal(config.DefaultConfig())
	}
	if err != nil {
		return nil, err
	}

	var root map[string]interface{}
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("config is not a JSON object: %w", err)
	}
	return &Document{root: root}, nil
}

func (d *Document) Bytes() ([]byte, error) {
	return json.MarshalIndent(d.root, "", "  ")
}

// Get returns the raw JSON at path.
func (d *Document) Get(path string) (string, bool) {
	data, err := json.Marshal(d.root)
	if err != nil {
		return "", false
	}
	res := gjson.GetBytes(data, NormalizePath(path))
	if !res.Exists() {
		return "", false
	}
	return res.Raw, true
}

// Set parses raw with ParseValue and stores it at path, creating
// intermediate objects as needed.
func (d *Document) Set(path, raw string) (interface{}, error) {
	path = NormalizePath(path)
	if path == "" {
		return nil, fmt.Errorf("path is empty")
	}
	value := ParseValue(raw)

	parts := strings.Split(path, ".")
	cur := d.root
	for _, key := range parts[:len(parts)-1] {
		if key == "" {
			return nil, fmt.Errorf("invalid path: %s", path)
		}
		next, ok := cur[key]
		if !ok {
			child := map[string]interface{}{}
			cur[key] = child
			cur = child
			continue
		}
		child, ok := next.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("path segment is not object: %s", key)
		}
		cur = child
	}
	last := parts[len(parts)-1]
	if last == "" {
		return nil, fmt.Errorf("invalid path: %s", path)
	}
	cur[last] = value
	return value, nil
}

// Check decodes the document as a config and runs validation.
func (d *Document) Check() (*config.Config, []error) {
	data, err := d.Bytes()
	if err != nil {
		return nil, []error{err}
	}
	cfg, err := config.ParseConfig(data)
	if err != nil {
		return nil, []error{err}
	}
	return cfg, config.Validate(cfg)
}

// NormalizePath trims stray dots and accepts "enable" for "enabled".
func NormalizePath(path string) string {
	p := strings.Trim(strings.TrimSpace(path), ".")
	parts := strings.Split(p, ".")
	for i, part := range parts {
		if part == "enable" {
			parts[i] = "enabled"
		}
	}
	return strings.Join(parts, ".")
}

// ParseValue reads a CLI value. JSON arrays and objects are decoded, as
// are booleans, null and numbers; quoted or bare text stays a string.
func ParseValue(raw string) interface{} {
	v := strings.TrimSpace(raw)
	switch strings.ToLower(v) {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	if strings.HasPrefix(v, "[") || strings.HasPrefix(v, "{") {
		var out interface{}
		if err := json.Unmarshal([]byte(v), &out); err == nil {
			return out
		}
	}
	if i, err := strconv.ParseInt(v, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && strings.Contains(v, ".") {
		return f
	}
	if len(v) >= 2 && ((v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'')) {
		return v[1 : len(v)-1]
	}
	return v
}

// WriteAtomic validates the document, keeps the previous file as
// <path>.bak and replaces path through a temp file. It returns the backup
// path, empty when there was no previous file.
func (d *Document) WriteAtomic(path string) (string, error) {
	if _, errs := d.Check(); len(errs) > 0 {
		return "", fmt.Errorf("refusing to write invalid config: %w", errors.Join(errs...))
	}
	data, err := d.Bytes()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}

	backupPath := ""
	if oldData, err := os.ReadFile(path); err == nil {
		backupPath = path + ".bak"
		if err := os.WriteFile(backupPath, oldData, 0644); err != nil {
			return "", fmt.Errorf("write backup failed: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("read existing config failed: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return "", fmt.Errorf("write temp config failed: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("atomic replace config failed: %w", err)
	}
	return backupPath, nil
}
