package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "all flags", args: []string{"cmd", "-a", "127.0.0.1:9090", "-i", "30", "-f", "x.db", "-k", "family", "-o", "3",
			"-s", "", "-p", "llm", "-l", "chatgpt", "-m", "gpt-4o", "-g", "German", "-w", "7"},
			expected: &Config{ServerEndpointAddr: "127.0.0.1:9090", RefreshInterval: 30 * time.Second, DatabasePath: "x.db",
				DatabaseID: "family", FolderID: 3, OCRProvider: "llm", LLMBackend: "chatgpt", Model: "gpt-4o",
				TargetLanguage: "German", StaleAfter: 7 * time.Minute}},
		{name: "unknown flags are ignored", args: []string{"cmd", "-c", "cfg.json", "-i", "5"},
			expected: &Config{RefreshInterval: 5 * time.Second}},
		{name: "incorrect interval", args: []string{"cmd", "-i", "abc"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			config := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}
			require.NotPanics(t, func() { parseFlags(config) })
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
