package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/multierr"
)

// unsetenv clears key for the duration of the test.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	os.Unsetenv(key)
}

// chdir changes the working directory to dir for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, k := range []string{"ENV", "SERVER_PORT", "LOG_LEVEL", "STORAGE_BACKEND", "STORAGE_PATH",
		"LLM_PROVIDER", "LLM_BASE_URL", "LLM_MODEL", "LLM_API_KEY", "LLM_TIMEOUT", "LLM_TEMPERATURE",
		"TITLE_LENGTH", "JWT_SECRET_KEY"} {
		unsetenv(t, k)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServerPort != "8100" || cfg.StorageBackend != "sqlite" || cfg.LLMProvider != "langchain" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.LLMTimeout != 60*time.Second {
		t.Errorf("timeout = %v", cfg.LLMTimeout)
	}
	if cfg.TitleLength != 30 {
		t.Errorf("title length = %d", cfg.TitleLength)
	}
	if cfg.IsProduction() {
		t.Error("default environment treated as production")
	}
}

func TestLoadOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ENV", "development")
	t.Setenv("STORAGE_BACKEND", "gorm")
	t.Setenv("STORAGE_PATH", "chat.db")
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("LLM_MODEL", "gpt-4o-mini")
	t.Setenv("LLM_TIMEOUT", "15s")
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("TITLE_LENGTH", "12")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StorageBackend != "gorm" || cfg.LLMProvider != "openai" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.LLMTimeout != 15*time.Second || cfg.TitleLength != 12 || cfg.LLMTemperature != 0.2 {
		t.Errorf("cfg = %+v", cfg)
	}
	pc := cfg.ProviderConfig()
	if pc.Name != "openai" || pc.Model != "gpt-4o-mini" {
		t.Errorf("provider config = %+v", pc)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := &Config{
		Environment:    "production",
		StorageBackend: "redis",
		LLMProvider:    "gemini",
		LLMTimeout:     0,
		TitleLength:    0,
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected errors")
	}
	errs := multierr.Errors(err)
	if len(errs) < 6 {
		t.Errorf("got %d errors, want at least 6: %v", len(errs), err)
	}
	if !strings.Contains(err.Error(), "JWT_SECRET_KEY") {
		t.Errorf("missing production secret check: %v", err)
	}
}

func TestBadNumbersFallBack(t *testing.T) {
	t.Setenv("TITLE_LENGTH", "abc")
	t.Setenv("LLM_TIMEOUT", "soon")
	if got := getEnvAsInt("TITLE_LENGTH", 30); got != 30 {
		t.Errorf("int fallback = %d", got)
	}
	if got := getEnvAsDuration("LLM_TIMEOUT", time.Minute); got != time.Minute {
		t.Errorf("duration fallback = %v", got)
	}
}
