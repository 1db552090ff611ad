package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/recordkeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
// os.Args is filtered with flagx.FilterArgs first so -c and unknown flags
// do not break parsing. Parse errors panic.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-i", "-f", "-k", "-o", "-s", "-p", "-l", "-m", "-g", "-w"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	refreshInterval := fs.Int("i", int(cfg.RefreshInterval.Seconds()), "folder refresh interval (in seconds)")
	fs.StringVar(&cfg.DatabasePath, "f", cfg.DatabasePath, "local sqlite cache path")
	fs.StringVar(&cfg.DatabaseID, "k", cfg.DatabaseID, "database id")
	fs.Int64Var(&cfg.FolderID, "o", cfg.FolderID, "folder id")
	fs.StringVar(&cfg.StatusAddr, "s", cfg.StatusAddr, "status api address")
	fs.StringVar(&cfg.OCRProvider, "p", cfg.OCRProvider, "ocr provider")
	fs.StringVar(&cfg.LLMBackend, "l", cfg.LLMBackend, "llm backend")
	fs.StringVar(&cfg.Model, "m", cfg.Model, "model name")
	fs.StringVar(&cfg.TargetLanguage, "g", cfg.TargetLanguage, "target translation language")
	staleAfter := fs.Int("w", int(cfg.StaleAfter.Minutes()), "lock staleness window (in minutes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RefreshInterval = time.Duration(*refreshInterval) * time.Second
	cfg.StaleAfter = time.Duration(*staleAfter) * time.Minute
}
