package providers

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/recordkeeper/internal/common"
)

const defaultType = "note"

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"02.01.2006",
}

// Extraction is the structured result read from model output.
type Extraction struct {
	Items       []map[string]any
	Markdown    string
	Type        string
	EventDate   *time.Time
	Title       string
	Description string
	Tags        []string
}

type codeBlock struct {
	syntax string
	code   string
}

// findCodeBlocks returns the fenced blocks of s without the newline before
// the closing fence. An unterminated last block runs to the end of the text.
func findCodeBlocks(s string) []codeBlock {
	var blocks []codeBlock
	for {
		start := strings.Index(s, "```")
		if start < 0 {
			return blocks
		}
		s = s[start+3:]

		syntax := ""
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			syntax = strings.TrimSpace(s[:nl])
			s = s[nl+1:]
		} else {
			syntax = strings.TrimSpace(s)
			s = ""
		}

		end := strings.Index(s, "```")
		if end < 0 {
			blocks = append(blocks, codeBlock{syntax: syntax, code: strings.TrimSuffix(s, "\n")})
			return blocks
		}
		blocks = append(blocks, codeBlock{syntax: syntax, code: strings.TrimSuffix(s[:end], "\n")})
		s = s[end+3:]
	}
}

// ParseExtraction reads the json and markdown blocks of text. Without a json
// block the whole text is the markdown body. An item carrying an "error"
// field yields common.ErrInvalidDocument.
func ParseExtraction(text string, createdAt time.Time) (*Extraction, error) {
	ex := &Extraction{}

	if !strings.Contains(text, "```json") {
		ex.Markdown = strings.TrimSpace(text)
	} else {
		for _, b := range findCodeBlocks(text) {
			switch b.syntax {
			case "json":
				items, err := decodeItems(b.code)
				if err != nil {
					return nil, err
				}
				ex.Items = append(ex.Items, items...)
			case "markdown":
				ex.Markdown += b.code
			}
		}
	}

	for _, item := range ex.Items {
		if v, ok := item["error"]; ok && v != nil && v != "" && v != false {
			return nil, fmt.Errorf("%w: %v", common.ErrInvalidDocument, v)
		}
	}

	ex.Type = deriveType(ex.Items)
	ex.EventDate = deriveEventDate(ex.Items, createdAt)
	ex.Title = firstString(ex.Items, "title")
	ex.Description = firstString(ex.Items, "summary")
	ex.Tags = collectTags(ex.Items)
	return ex, nil
}

func decodeItems(code string) ([]map[string]any, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}

	var v any
	if err := json.Unmarshal([]byte(code), &v); err != nil {
		return nil, fmt.Errorf("decode extraction json: %w", err)
	}

	var items []map[string]any
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			if m, ok := e.(map[string]any); ok {
				items = append(items, m)
			}
		}
	case map[string]any:
		items = append(items, t)
	}
	return items, nil
}

func str(item map[string]any, key string) string {
	s, _ := item[key].(string)
	return strings.TrimSpace(s)
}

func deriveType(items []map[string]any) string {
	var types []string
	for _, item := range items {
		t := str(item, "subtype")
		if t == "" {
			t = str(item, "type")
		}
		if t != "" {
			types = append(types, t)
		}
	}
	if len(types) == 0 {
		return defaultType
	}
	return strings.Join(types, ", ")
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func deriveEventDate(items []map[string]any, createdAt time.Time) *time.Time {
	for _, key := range []string{"test_date", "admission_date"} {
		for _, item := range items {
			if t, ok := parseDate(str(item, key)); ok {
				return &t
			}
		}
	}
	if createdAt.IsZero() {
		return nil
	}
	t := createdAt
	return &t
}

func firstString(items []map[string]any, key string) string {
	for _, item := range items {
		if s := str(item, key); s != "" {
			return s
		}
	}
	return ""
}

func collectTags(items []map[string]any) []string {
	seen := map[string]bool{}
	var tags []string
	add := func(t string) {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			return
		}
		seen[t] = true
		tags = append(tags, t)
	}

	for _, item := range items {
		switch v := item["tags"].(type) {
		case []any:
			for _, t := range v {
				if s, ok := t.(string); ok {
					add(s)
				}
			}
		case string:
			for _, s := range strings.Split(v, ",") {
				add(s)
			}
		}
	}
	return tags
}
