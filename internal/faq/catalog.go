package faq

import (
	"authbot/internal/types"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/klauspost/compress/zstd"
)

const (
	CallbackThemes   = "faq"
	CallbackTheme    = "faq_theme"
	CallbackQuestion = "faq_question"
	CallbackBack     = "faq_back"
	CallbackHome     = "faq_home"
)

// Catalog is the static FAQ: themes, each with questions and answers.
// It is read-only once loaded and safe for concurrent use.
type Catalog struct {
	themes []types.FAQTheme
}

type catalogFile struct {
	Themes []types.FAQTheme `yaml:"themes"`
}

func NewCatalog(themes []types.FAQTheme) *Catalog {
	return &Catalog{themes: themes}
}

// LoadFile reads a YAML catalog. Files ending in ".zst" are zstd-compressed.
// An empty path yields an empty catalog.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return NewCatalog(nil), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read faq file: %w", err)
	}
	if strings.HasSuffix(path, ".zst") {
		raw, err = decompress(raw)
		if err != nil {
			return nil, fmt.Errorf("decompress faq file: %w", err)
		}
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse faq: %w", err)
	}
	for i, t := range f.Themes {
		if t.Theme == "" {
			return nil, fmt.Errorf("faq theme %d has no title", i)
		}
	}
	return NewCatalog(f.Themes), nil
}

func decompress(raw []byte) ([]byte, error) {
	dec, err := zstd.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return io.ReadAll(dec)
}

func (c *Catalog) Themes() []types.FAQTheme {
	return c.themes
}

func (c *Catalog) Theme(i int) (types.FAQTheme, bool) {
	if i < 0 || i >= len(c.themes) {
		return types.FAQTheme{}, false
	}
	return c.themes[i], true
}

func (c *Catalog) Question(theme, question int) (types.FAQQuestion, bool) {
	t, ok := c.Theme(theme)
	if !ok || question < 0 || question >= len(t.Questions) {
		return types.FAQQuestion{}, false
	}
	return t.Questions[question], true
}

// ThemeCallback builds "faq_theme:<i>".
func ThemeCallback(theme int) string {
	return fmt.Sprintf("%s:%d", CallbackTheme, theme)
}

// QuestionCallback builds "faq_question:<i>:<j>".
func QuestionCallback(theme, question int) string {
	return fmt.Sprintf("%s:%d:%d", CallbackQuestion, theme, question)
}

// ParseThemeCallback parses "faq_theme:<i>".
func ParseThemeCallback(data string) (int, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 2 || parts[0] != CallbackTheme {
		return 0, fmt.Errorf("bad theme callback %q", data)
	}
	return strconv.Atoi(parts[1])
}

// ParseQuestionCallback parses "faq_question:<i>:<j>".
func ParseQuestionCallback(data string) (theme, question int, err error) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 || parts[0] != CallbackQuestion {
		return 0, 0, fmt.Errorf("bad question callback %q", data)
	}
	if theme, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, err
	}
	if question, err = strconv.Atoi(parts[2]); err != nil {
		return 0, 0, err
	}
	return theme, question, nil
}
