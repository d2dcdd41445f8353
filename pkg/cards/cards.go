// Package cards loads adaptive card definitions from disk and wraps them in
// the attachment envelope channels deliver to users.
package cards

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
)

const ContentTypeAdaptiveCard = "application/vnd.microsoft.card.adaptive"

var utf8BOM = []byte("\xef\xbb\xbf")

type Attachment struct {
	ContentType string      `json:"contentType"`
	Content     interface{} `json:"content"`
}

// CardLoadError reports a card file that is missing, unreadable or not
// valid JSON.
type CardLoadError struct {
	Path string
	Err  error
}

func (e *CardLoadError) Error() string {
	return fmt.Sprintf("load card %s: %v", e.Path, e.Err)
}

func (e *CardLoadError) Unwrap() error {
	return e.Err
}

// LoadCard reads the card at path on every call.
func LoadCard(path string) (Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Attachment{}, &CardLoadError{Path: path, Err: err}
	}

	data = bytes.TrimPrefix(data, utf8BOM)

	var content interface{}
	if err := json.Unmarshal(data, &content); err != nil {
		return Attachment{}, &CardLoadError{Path: path, Err: fmt.Errorf("invalid card JSON: %w", err)}
	}

	return Attachment{
		ContentType: ContentTypeAdaptiveCard,
		Content:     content,
	}, nil
}

// Catalog is the configured, ordered list of card files.
type Catalog struct {
	dir   string
	files []string
}

func NewCatalog(resourcesDir string, files []string) *Catalog {
	return &Catalog{
		dir:   resourcesDir,
		files: append([]string(nil), files...),
	}
}

func (c *Catalog) Len() int {
	return len(c.files)
}

// Paths returns the resolved path of every card, in configured order.
func (c *Catalog) Paths() []string {
	paths := make([]string, 0, len(c.files))
	for _, f := range c.files {
		paths = append(paths, c.resolve(f))
	}
	return paths
}

func (c *Catalog) Path(i int) (string, error) {
	if i < 0 || i >= len(c.files) {
		return "", fmt.Errorf("card index %d out of range (have %d)", i, len(c.files))
	}
	return c.resolve(c.files[i]), nil
}

func (c *Catalog) Load(i int) (Attachment, error) {
	path, err := c.Path(i)
	if err != nil {
		return Attachment{}, err
	}
	return LoadCard(path)
}

func (c *Catalog) resolve(file string) string {
	if filepath.IsAbs(file) || c.dir == "" {
		return file
	}
	return filepath.Join(c.dir, file)
}

// Summary is a short description of a card for logs and the CLI.
type Summary struct {
	Type     string
	Version  string
	Elements int
	Actions  int
}

func (s Summary) String() string {
	return fmt.Sprintf("%s v%s (%d body elements, %d actions)", s.Type, s.Version, s.Elements, s.Actions)
}

func Describe(a Attachment) (Summary, error) {
	raw, err := json.Marshal(a.Content)
	if err != nil {
		return Summary{}, err
	}
	res := gjson.GetManyBytes(raw, "type", "version", "body.#", "actions.#")
	return Summary{
		Type:     res[0].String(),
		Version:  res[1].String(),
		Elements: int(res[2].Int()),
		Actions:  int(res[3].Int()),
	}, nil
}
