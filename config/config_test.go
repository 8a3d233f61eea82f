package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"OPENROUTER_API_KEY", "OPENROUTER_MODEL", "OPENROUTER_BASE_URL", "LLM_PROVIDER",
		"GOOGLE_APPLICATION_CREDENTIALS", "GCP_SERVICE_ACCOUNT_JSON",
		"GRIMOIRE_DOC_ID", "GRIMOIRE_SHEET_ID", "GRIMOIRE_REQUIRE_APPROVAL", "PORT",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, "openrouter", cfg.LLM.Provider)
	assert.Equal(t, DefaultOpenRouterURL, cfg.LLM.BaseURL)
	assert.Equal(t, DefaultModel, cfg.LLM.Model)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout())
	assert.Equal(t, 60*time.Second, cfg.Google.Timeout())
	assert.Equal(t, DefaultStoryBibleRange, cfg.Workspace.StoryBibleRange)
	assert.Equal(t, DefaultServerAddr, cfg.ServerAddr)
	assert.Equal(t, "lines", cfg.Edits.Format)
	assert.True(t, cfg.Edits.ApprovalRequired())
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `{
		"server_addr": ":9000",
		"llm": {"provider": "openrouter", "model": "anthropic/claude-sonnet", "api_key": "file-key", "timeout_seconds": 30},
		"workspace": {"document_id": "doc-from-file", "story_bible_range": "Bible!A1:D40"},
		"edits": {"format": "json", "require_approval": false}
	}`)
	t.Setenv("OPENROUTER_API_KEY", "env-key")
	t.Setenv("GRIMOIRE_SHEET_ID", "sheet-1")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.ServerAddr)
	assert.Equal(t, "env-key", cfg.LLM.APIKey)
	assert.Equal(t, "anthropic/claude-sonnet", cfg.LLM.Model)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout())
	assert.Equal(t, "doc-from-file", cfg.Workspace.DocumentID)
	assert.Equal(t, "sheet-1", cfg.Workspace.StoryBibleSheetID)
	assert.Equal(t, "Bible!A1:D40", cfg.Workspace.StoryBibleRange)
	assert.Equal(t, "json", cfg.Edits.Format)
	assert.False(t, cfg.Edits.ApprovalRequired())
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7070")
	t.Setenv("GRIMOIRE_REQUIRE_APPROVAL", "false")
	t.Setenv("GCP_SERVICE_ACCOUNT_JSON", `{"type":"service_account"}`)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.ServerAddr)
	assert.False(t, cfg.Edits.ApprovalRequired())
	assert.Equal(t, `{"type":"service_account"}`, cfg.Google.CredentialsJSON)
}

func TestLoad_InvalidApprovalEnvIsIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("GRIMOIRE_REQUIRE_APPROVAL", "maybe")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Edits.ApprovalRequired())
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	_, err := Load(writeConfig(t, `{not json`))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, `{"llm": {"provider": "carrier-pigeon"}}`))
	assert.EqualError(t, err, "llm provider carrier-pigeon not supported")

	_, err = Load(writeConfig(t, `{"edits": {"format": "yaml"}}`))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, `{"llm": {"provider": "openai"}}`))
	assert.EqualError(t, err, "llm.model is required")
}
