package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apperrors "adcrew/internal/errors"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, names := range envBindings {
		for _, n := range names {
			t.Setenv(n, "")
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(LoadOptions{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Provider != ProviderOpenAI {
		t.Errorf("provider = %q", cfg.Provider)
	}
	if cfg.Pipeline.Policy != PolicyStrict {
		t.Errorf("policy = %q", cfg.Pipeline.Policy)
	}
	if cfg.Search.NumResults != 5 {
		t.Errorf("num results = %d", cfg.Search.NumResults)
	}
	if cfg.Pipeline.RetryBackoff != time.Second {
		t.Errorf("retry backoff = %v", cfg.Pipeline.RetryBackoff)
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "adcrew.yaml")
	content := `
provider: openai
openai:
  api_key: from-file
  model: file-model
pipeline:
  policy: lenient
  human_timeout: 90s
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("API_KEY", "from-env")

	cfg, err := Load(LoadOptions{ConfigFile: file})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OpenAI.APIKey != "from-env" {
		t.Errorf("api key = %q, want env value", cfg.OpenAI.APIKey)
	}
	if cfg.OpenAI.Model != "file-model" {
		t.Errorf("model = %q", cfg.OpenAI.Model)
	}
	if cfg.Pipeline.Policy != PolicyLenient {
		t.Errorf("policy = %q", cfg.Pipeline.Policy)
	}
	if cfg.Pipeline.HumanTimeout != 90*time.Second {
		t.Errorf("human timeout = %v", cfg.Pipeline.HumanTimeout)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	content := "API_KEY=dot-key\nOPENAI_MODEL_NAME=gpt-test\nSERPER_API_KEY=serper\n"
	if err := os.WriteFile(envFile, []byte(content), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("OPENAI_MODEL_NAME", "process-model")

	cfg, err := Load(LoadOptions{EnvFile: envFile})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OpenAI.APIKey != "dot-key" {
		t.Errorf("api key = %q", cfg.OpenAI.APIKey)
	}
	if cfg.OpenAI.Model != "process-model" {
		t.Errorf("process env should win over .env, got %q", cfg.OpenAI.Model)
	}
	if cfg.Search.APIKey != "serper" {
		t.Errorf("search key = %q", cfg.Search.APIKey)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestLoad_DotEnvBetweenFileAndEnvironment(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "adcrew.yaml")
	yaml := `
openai:
  api_key: from-file
  model: file-model
search:
  api_key: file-serper
`
	if err := os.WriteFile(file, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	envFile := filepath.Join(dir, "test.env")
	if err := os.WriteFile(envFile, []byte("API_KEY=dot-key\nOPENAI_MODEL_NAME=dot-model\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("OPENAI_MODEL_NAME", "process-model")

	cfg, err := Load(LoadOptions{ConfigFile: file, EnvFile: envFile})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OpenAI.APIKey != "dot-key" {
		t.Errorf(".env should win over the config file, got %q", cfg.OpenAI.APIKey)
	}
	if cfg.OpenAI.Model != "process-model" {
		t.Errorf("process env should win over .env, got %q", cfg.OpenAI.Model)
	}
	if cfg.Search.APIKey != "file-serper" {
		t.Errorf("search key = %q", cfg.Search.APIKey)
	}
}

func TestLoad_MissingExplicitFiles(t *testing.T) {
	clearEnv(t)
	_, err := Load(LoadOptions{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")})
	if !errors.Is(err, apperrors.ErrConfiguration) {
		t.Errorf("missing config file: got %v", err)
	}
	_, err = Load(LoadOptions{EnvFile: filepath.Join(t.TempDir(), "nope.env")})
	if !errors.Is(err, apperrors.ErrConfiguration) {
		t.Errorf("missing env file: got %v", err)
	}
}

func TestValidate_MissingCredentials(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(LoadOptions{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	err = cfg.Validate()
	if !errors.Is(err, apperrors.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	for _, want := range []string{"API_KEY", "OPENAI_MODEL_NAME", "SERPER_API_KEY"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error does not mention %s: %v", want, err)
		}
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"echo with mock search", Config{Provider: ProviderEcho, Search: SearchConfig{Mock: true}, Pipeline: PipelineConfig{Policy: PolicyStrict}}, false},
		{"anthropic ok", Config{Provider: ProviderAnthropic, Anthropic: AnthropicConfig{APIKey: "k", Model: "m"}, Search: SearchConfig{APIKey: "s"}, Pipeline: PipelineConfig{Policy: PolicyLenient}}, false},
		{"anthropic missing key", Config{Provider: ProviderAnthropic, Anthropic: AnthropicConfig{Model: "m"}, Search: SearchConfig{Mock: true}, Pipeline: PipelineConfig{Policy: PolicyStrict}}, true},
		{"unknown provider", Config{Provider: "llama", Search: SearchConfig{Mock: true}, Pipeline: PipelineConfig{Policy: PolicyStrict}}, true},
		{"unknown policy", Config{Provider: ProviderEcho, Search: SearchConfig{Mock: true}, Pipeline: PipelineConfig{Policy: "maybe"}}, true},
		{"negative retries", Config{Provider: ProviderEcho, Search: SearchConfig{Mock: true}, Pipeline: PipelineConfig{Policy: PolicyStrict, ToolRetries: -1}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
