package config

import "time"

const (
	ProviderSingleShot = "llm"
	ProviderPaged      = "llm-paged"
	ProviderTesseract  = "tesseract"

	BackendGemini  = "gemini"
	BackendChatGPT = "chatgpt"
)

// Config holds runtime settings for the recordkeeper client.
type Config struct {
	ServerEndpointAddr string
	RefreshInterval    time.Duration
	DatabasePath       string
	// DatabaseID names the shared record database; its hash is part of every
	// checksum, so devices of one database must agree on it.
	DatabaseID     string
	FolderID       int64
	StatusAddr     string
	UserAgent      string
	OCRProvider    string
	OCRLanguage    string
	LLMBackend     string
	Model          string
	TargetLanguage string
	StaleAfter     time.Duration
	AutoParse      bool
	AutoTranslate  bool

	VertexProject string
	VertexRegion  string
	OpenAIAPIKey  string
	OpenAIBaseURL string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.RefreshInterval = 10 * time.Second
	c.DatabasePath = "recordkeeper.db"
	c.DatabaseID = "default"
	c.FolderID = 1
	c.StatusAddr = "127.0.0.1:8089"
	c.UserAgent = "recordkeeper-cli"
	c.OCRProvider = ProviderPaged
	c.OCRLanguage = "eng"
	c.LLMBackend = BackendGemini
	c.Model = "gemini-1.5-flash"
	c.TargetLanguage = "English"
	c.StaleAfter = 5 * time.Minute
	c.AutoParse = true
	c.AutoTranslate = false
	c.VertexRegion = "us-central1"
	c.OpenAIBaseURL = "https://api.openai.com/v1"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment, JSON (if present) and command-line flags (if present).
// Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
