package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/recordkeeper/internal/flagx"
	"github.com/dmitrijs2005/recordkeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations
// use timex.Duration so they can be strings like "3s" or nanoseconds.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	RefreshInterval    timex.Duration `json:"refresh_interval"`
	DatabasePath       string         `json:"database_path"`
	DatabaseID         string         `json:"database_id"`
	FolderID           int64          `json:"folder_id"`
	StatusAddr         string         `json:"status_addr"`
	UserAgent          string         `json:"user_agent"`
	OCRProvider        string         `json:"ocr_provider"`
	OCRLanguage        string         `json:"ocr_language"`
	LLMBackend         string         `json:"llm_backend"`
	Model              string         `json:"model"`
	TargetLanguage     string         `json:"target_language"`
	StaleAfter         timex.Duration `json:"stale_after"`
	AutoParse          bool           `json:"auto_parse"`
	AutoTranslate      bool           `json:"auto_translate"`
	VertexProject      string         `json:"vertex_project"`
	VertexRegion       string         `json:"vertex_region"`
	OpenAIBaseURL      string         `json:"openai_base_url"`
}

// parseJson overlays Config with values loaded from the file named by -c or
// -config. Keys absent from the file keep their current value. Read or
// unmarshal errors panic. The OpenAI key is never read from JSON.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JSONConfigPath()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	jc := JsonConfig{
		ServerEndpointAddr: cfg.ServerEndpointAddr,
		RefreshInterval:    timex.Duration{Duration: cfg.RefreshInterval},
		DatabasePath:       cfg.DatabasePath,
		DatabaseID:         cfg.DatabaseID,
		FolderID:           cfg.FolderID,
		StatusAddr:         cfg.StatusAddr,
		UserAgent:          cfg.UserAgent,
		OCRProvider:        cfg.OCRProvider,
		OCRLanguage:        cfg.OCRLanguage,
		LLMBackend:         cfg.LLMBackend,
		Model:              cfg.Model,
		TargetLanguage:     cfg.TargetLanguage,
		StaleAfter:         timex.Duration{Duration: cfg.StaleAfter},
		AutoParse:          cfg.AutoParse,
		AutoTranslate:      cfg.AutoTranslate,
		VertexProject:      cfg.VertexProject,
		VertexRegion:       cfg.VertexRegion,
		OpenAIBaseURL:      cfg.OpenAIBaseURL,
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	cfg.RefreshInterval = jc.RefreshInterval.Duration
	cfg.DatabasePath = jc.DatabasePath
	cfg.DatabaseID = jc.DatabaseID
	cfg.FolderID = jc.FolderID
	cfg.StatusAddr = jc.StatusAddr
	cfg.UserAgent = jc.UserAgent
	cfg.OCRProvider = jc.OCRProvider
	cfg.OCRLanguage = jc.OCRLanguage
	cfg.LLMBackend = jc.LLMBackend
	cfg.Model = jc.Model
	cfg.TargetLanguage = jc.TargetLanguage
	cfg.StaleAfter = jc.StaleAfter.Duration
	cfg.AutoParse = jc.AutoParse
	cfg.AutoTranslate = jc.AutoTranslate
	cfg.VertexProject = jc.VertexProject
	cfg.VertexRegion = jc.VertexRegion
	cfg.OpenAIBaseURL = jc.OpenAIBaseURL
}
