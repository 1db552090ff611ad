package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// dotenvFiles is the list of files parseEnv loads; tests point it elsewhere.
var dotenvFiles = []string{".env"}

func loadDotenv() {
	for _, f := range dotenvFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		// existing environment wins over the file
		_ = godotenv.Load(f)
	}
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envBool(key string, dst *bool) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envInt64(key string, dst *int64) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

// parseEnv overlays RK_* variables, after loading .env if there is one.
// Malformed numeric or boolean values are ignored.
func parseEnv(cfg *Config) {
	loadDotenv()

	envString("RK_SERVER_ADDR", &cfg.ServerEndpointAddr)
	envDuration("RK_REFRESH_INTERVAL", &cfg.RefreshInterval)
	envString("RK_DATABASE_PATH", &cfg.DatabasePath)
	envString("RK_DATABASE_ID", &cfg.DatabaseID)
	envInt64("RK_FOLDER_ID", &cfg.FolderID)
	envString("RK_STATUS_ADDR", &cfg.StatusAddr)
	envString("RK_OCR_PROVIDER", &cfg.OCRProvider)
	envString("RK_OCR_LANGUAGE", &cfg.OCRLanguage)
	envString("RK_LLM_BACKEND", &cfg.LLMBackend)
	envString("RK_MODEL", &cfg.Model)
	envString("RK_TARGET_LANGUAGE", &cfg.TargetLanguage)
	envDuration("RK_STALE_AFTER", &cfg.StaleAfter)
	envBool("RK_AUTO_PARSE", &cfg.AutoParse)
	envBool("RK_AUTO_TRANSLATE", &cfg.AutoTranslate)

	envString("RK_VERTEX_PROJECT", &cfg.VertexProject)
	envString("RK_VERTEX_REGION", &cfg.VertexRegion)
	envString("RK_OPENAI_API_KEY", &cfg.OpenAIAPIKey)
	envString("RK_OPENAI_BASE_URL", &cfg.OpenAIBaseURL)
}
