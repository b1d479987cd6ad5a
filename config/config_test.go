package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Load
// ---------------------------------------------------------------------------

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if cfg.Model != "gemini-2.5-flash" {
		t.Errorf("model = %q", cfg.Model)
	}
	if cfg.MaxRetries != 5 {
		t.Errorf("max retries = %d, want 5", cfg.MaxRetries)
	}
	if cfg.InitialDelay != time.Second {
		t.Errorf("initial delay = %s, want 1s", cfg.InitialDelay)
	}
	if cfg.Timeout != 120*time.Second {
		t.Errorf("timeout = %s, want 2m", cfg.Timeout)
	}
	if cfg.Style != "direct" || cfg.Topic != "general" {
		t.Errorf("style/topic = %q/%q", cfg.Style, cfg.Topic)
	}
	if cfg.Source() != "" {
		t.Errorf("source = %q, want none without a config file", cfg.Source())
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "translaitor.yaml")
	content := `api_key: file-key
model: gemini-2.5-pro
style: formal
max_retries: 2
initial_delay: 500ms
chunk_size: 40
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(New(), path)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if cfg.APIKey != "file-key" {
		t.Errorf("api key = %q", cfg.APIKey)
	}
	if cfg.Model != "gemini-2.5-pro" {
		t.Errorf("model = %q", cfg.Model)
	}
	if cfg.MaxRetries != 2 {
		t.Errorf("max retries = %d", cfg.MaxRetries)
	}
	if cfg.InitialDelay != 500*time.Millisecond {
		t.Errorf("initial delay = %s", cfg.InitialDelay)
	}
	if cfg.ChunkSize != 40 {
		t.Errorf("chunk size = %d", cfg.ChunkSize)
	}
	// Unset keys keep their defaults.
	if cfg.Topic != "general" {
		t.Errorf("topic = %q", cfg.Topic)
	}
	if cfg.Source() != path {
		t.Errorf("source = %q, want %q", cfg.Source(), path)
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	if _, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for an explicitly named missing file")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TRANSLAITOR_API_KEY", "env-key")
	t.Setenv("TRANSLAITOR_TARGET_LANG", "hu")
	t.Setenv("TRANSLAITOR_MAX_RETRIES", "7")

	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if cfg.APIKey != "env-key" {
		t.Errorf("api key = %q, want the env value", cfg.APIKey)
	}
	if cfg.TargetLang != "hu" {
		t.Errorf("target lang = %q", cfg.TargetLang)
	}
	if cfg.MaxRetries != 7 {
		t.Errorf("max retries = %d", cfg.MaxRetries)
	}
}

// ---------------------------------------------------------------------------
// Conversions
// ---------------------------------------------------------------------------

func TestGeminiConversion(t *testing.T) {
	cfg := &Config{
		APIKey:       "k",
		Model:        "m",
		BaseURL:      "http://example.test",
		Timeout:      30 * time.Second,
		MaxRetries:   3,
		InitialDelay: 2 * time.Second,
	}

	gc := cfg.Gemini()
	if gc.APIKey != "k" || gc.Model != "m" || gc.BaseURL != "http://example.test" {
		t.Errorf("gemini config = %+v", gc)
	}
	if gc.MaxRetries != 3 || gc.InitialDelay != 2*time.Second || gc.Timeout != 30*time.Second {
		t.Errorf("retry settings = %+v", gc)
	}
}

func TestTranslateOptionsConversion(t *testing.T) {
	cfg := &Config{Style: "formal", Topic: "diving", SourceLang: "en", ChunkSize: 25}

	opts, err := cfg.TranslateOptions()
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if opts.Style != "formal" || opts.Topic != "diving" || opts.SourceLang != "en" || opts.ChunkSize != 25 {
		t.Errorf("options = %+v", opts)
	}
	if opts.Prompts != nil {
		t.Error("prompts set without a prompts file")
	}
}

func TestTranslateOptions_PromptsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	if err := os.WriteFile(path, []byte("styles:\n  blunt: \"Be blunt.\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{PromptsFile: path}
	opts, err := cfg.TranslateOptions()
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if opts.Prompts == nil || opts.Prompts.Styles["blunt"] != "Be blunt." {
		t.Errorf("prompts = %+v", opts.Prompts)
	}

	cfg.PromptsFile = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := cfg.TranslateOptions(); err == nil {
		t.Error("expected error for missing prompts file")
	}
}
