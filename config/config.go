package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultOpenRouterURL   = "https://openrouter.ai/api/v1"
	DefaultModel           = "openrouter/auto"
	DefaultStoryBibleRange = "A1:C10"
	DefaultServerAddr      = ":8080"

	defaultTimeoutSeconds = 60
	defaultExcerptChars   = 12000
)

// Config is read from a JSON file and then overridden from the environment
// (and a .env file when one exists).
type Config struct {
	ServerAddr string          `json:"server_addr,omitempty"`
	LLM        LLMConfig       `json:"llm"`
	Google     GoogleConfig    `json:"google"`
	Workspace  WorkspaceConfig `json:"workspace"`
	Edits      EditsConfig     `json:"edits"`
}

// LLMConfig selects the chat model. OpenRouter speaks the OpenAI API.
type LLMConfig struct {
	Provider          string `json:"provider,omitempty"`
	Model             string `json:"model,omitempty"`
	APIKey            string `json:"api_key,omitempty"`
	BaseURL           string `json:"base_url,omitempty"`
	Referer           string `json:"referer,omitempty"`
	Title             string `json:"title,omitempty"`
	TimeoutSeconds    int    `json:"timeout_seconds,omitempty"`
	RequestsPerMinute int    `json:"requests_per_minute,omitempty"`
}

// GoogleConfig holds service account credentials for Docs, Sheets and Drive.
type GoogleConfig struct {
	CredentialsFile string `json:"credentials_file,omitempty"`
	CredentialsJSON string `json:"credentials_json,omitempty"`
	TimeoutSeconds  int    `json:"timeout_seconds,omitempty"`
}

type WorkspaceConfig struct {
	DocumentID             string `json:"document_id,omitempty"`
	StoryBibleSheetID      string `json:"story_bible_sheet_id,omitempty"`
	StoryBibleRange        string `json:"story_bible_range,omitempty"`
	ManuscriptExcerptChars int    `json:"manuscript_excerpt_chars,omitempty"`
}

type EditsConfig struct {
	// Format is the suggestion format asked of the model: "lines" or "json".
	Format          string `json:"format,omitempty"`
	RequireApproval *bool  `json:"require_approval,omitempty"`
}

func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c GoogleConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ApprovalRequired defaults to true when unset.
func (c EditsConfig) ApprovalRequired() bool {
	return c.RequireApproval == nil || *c.RequireApproval
}

// Load reads path (optional when the environment carries the secrets),
// applies environment overrides and defaults, and validates the result.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Printf("config %s not found, using environment only", path)
		case err != nil:
			return Config{}, err
		default:
			if err := json.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.LLM.APIKey = getEnv("OPENROUTER_API_KEY", c.LLM.APIKey)
	c.LLM.Model = getEnv("OPENROUTER_MODEL", c.LLM.Model)
	c.LLM.BaseURL = getEnv("OPENROUTER_BASE_URL", c.LLM.BaseURL)
	c.LLM.Provider = getEnv("LLM_PROVIDER", c.LLM.Provider)
	c.Google.CredentialsFile = getEnv("GOOGLE_APPLICATION_CREDENTIALS", c.Google.CredentialsFile)
	c.Google.CredentialsJSON = getEnv("GCP_SERVICE_ACCOUNT_JSON", c.Google.CredentialsJSON)
	c.Workspace.DocumentID = getEnv("GRIMOIRE_DOC_ID", c.Workspace.DocumentID)
	c.Workspace.StoryBibleSheetID = getEnv("GRIMOIRE_SHEET_ID", c.Workspace.StoryBibleSheetID)
	if port := os.Getenv("PORT"); port != "" {
		c.ServerAddr = ":" + port
	}
	if v := os.Getenv("GRIMOIRE_REQUIRE_APPROVAL"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("Warning: Invalid boolean for GRIMOIRE_REQUIRE_APPROVAL, ignoring: %q", v)
		} else {
			c.Edits.RequireApproval = &b
		}
	}
}

func (c *Config) applyDefaults() {
	if c.ServerAddr == "" {
		c.ServerAddr = DefaultServerAddr
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openrouter"
	}
	if c.LLM.Provider == "openrouter" {
		if c.LLM.BaseURL == "" {
			c.LLM.BaseURL = DefaultOpenRouterURL
		}
		if c.LLM.Model == "" {
			c.LLM.Model = DefaultModel
		}
	}
	if c.LLM.TimeoutSeconds == 0 {
		c.LLM.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.Google.TimeoutSeconds == 0 {
		c.Google.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.Workspace.StoryBibleRange == "" {
		c.Workspace.StoryBibleRange = DefaultStoryBibleRange
	}
	if c.Workspace.ManuscriptExcerptChars == 0 {
		c.Workspace.ManuscriptExcerptChars = defaultExcerptChars
	}
	if c.Edits.Format == "" {
		c.Edits.Format = "lines"
	}
}

func (c Config) Validate() error {
	switch c.LLM.Provider {
	case "openrouter", "openai", "deepseek", "mock":
	default:
		return fmt.Errorf("llm provider %s not supported", c.LLM.Provider)
	}
	if c.LLM.Provider != "mock" && c.LLM.Model == "" {
		return errors.New("llm.model is required")
	}
	if c.LLM.TimeoutSeconds < 0 || c.Google.TimeoutSeconds < 0 {
		return errors.New("timeouts must not be negative")
	}
	if c.LLM.RequestsPerMinute < 0 {
		return errors.New("llm.requests_per_minute must not be negative")
	}
	switch c.Edits.Format {
	case "lines", "json":
	default:
		return fmt.Errorf("edits.format must be lines or json, got %q", c.Edits.Format)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
