package cmd

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "adcrew/internal/errors"
	"adcrew/internal/util"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	util.SetOutput(io.Discard)
	t.Cleanup(func() { util.SetOutput(os.Stdout) })
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRunDryRun(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "run", "--dry-run", "--answer", "sneakers", "--run-dir", dir)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := "Mocked web search results for: sneakers creative ad ideas photo video"
	if !strings.Contains(out, want) {
		t.Fatalf("output = %q, want %q", out, want)
	}
	runs, _ := filepath.Glob(filepath.Join(dir, "run-*", "run.yaml"))
	if len(runs) != 1 {
		t.Fatalf("expected one run.yaml, found %v", runs)
	}
	outputs, _ := filepath.Glob(filepath.Join(filepath.Dir(runs[0]), "outputs", "*.md"))
	if len(outputs) != 5 {
		t.Fatalf("expected 5 outputs, found %v", outputs)
	}
}

func TestValidateBundledCrew(t *testing.T) {
	out, err := execute(t, "validate")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.HasPrefix(out, "1. analysis_area (User Input Agent) [human input]") {
		t.Fatalf("output = %q", out)
	}
	if !strings.Contains(out, "5. creative_recommendations") {
		t.Fatalf("output = %q", out)
	}
}

func TestToolMetaAdsLibrary(t *testing.T) {
	out, err := execute(t, "tool", "meta_ads_library", "bike", "park")
	if err != nil {
		t.Fatalf("tool: %v", err)
	}
	if strings.TrimSpace(out) != "Mocked Meta Ads Library results for: bike park" {
		t.Fatalf("output = %q", out)
	}
	if _, err := execute(t, "tool", "crystal_ball", "x"); !errors.Is(err, apperrors.ErrDefinition) {
		t.Fatalf("unknown tool err = %v", err)
	}
}

func TestValidateSuggestsOrder(t *testing.T) {
	file := filepath.Join(t.TempDir(), "tasks.yaml")
	content := `tasks:
  - id: report
    actor: creative_director
    depends_on: [research]
    description: Summarize {{research}}
  - id: research
    actor: trend_analyst
    query: bike park
    description: Research bike park ads
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { tasksFile = "" })

	out, err := execute(t, "validate", "-f", file)
	if !errors.Is(err, apperrors.ErrDefinition) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(out, "suggested order: research, report") {
		t.Fatalf("output = %q", out)
	}
}

func TestRunWithoutCredentials(t *testing.T) {
	for _, name := range []string{
		"ADCREW_PROVIDER", "API_KEY", "OPENAI_API_KEY", "OPENAI_MODEL_NAME", "OPENAI_BASE_URL",
		"ANTHROPIC_API_KEY", "ANTHROPIC_MODEL", "SERPER_API_KEY", "ADCREW_REDIS_ADDR", "ADCREW_POLICY",
	} {
		t.Setenv(name, "")
	}
	dir := t.TempDir()
	_, err := execute(t, "run", "--dry-run=false", "--run-dir", dir)
	if !errors.Is(err, apperrors.ErrConfiguration) {
		t.Fatalf("err = %v", err)
	}
	if runs, _ := filepath.Glob(filepath.Join(dir, "run-*")); len(runs) != 0 {
		t.Fatalf("run directory created without credentials: %v", runs)
	}
}
