package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Reporter writes the artifacts of one run under <base>/run-<id>/:
// outputs/<task>.md for each completed task, log.txt and run.yaml.
type Reporter struct {
	dir string
}

func NewReporter(base, runID string) (*Reporter, error) {
	dir := filepath.Join(base, "run-"+runID)
	if err := os.MkdirAll(filepath.Join(dir, "outputs"), 0755); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}
	return &Reporter{dir: dir}, nil
}

func (r *Reporter) Dir() string     { return r.dir }
func (r *Reporter) LogPath() string { return filepath.Join(r.dir, "log.txt") }

func (r *Reporter) SaveOutput(taskID, output string) error {
	path := filepath.Join(r.dir, "outputs", fmt.Sprintf("%s.md", taskID))
	return os.WriteFile(path, []byte(output), 0644)
}

type runSummary struct {
	RunID     string       `yaml:"run_id"`
	Status    string       `yaml:"status"`
	Timestamp string       `yaml:"timestamp"`
	Error     string       `yaml:"error,omitempty"`
	Tasks     []TaskReport `yaml:"tasks"`
}

func (r *Reporter) WriteSummary(runID, status string, tasks []TaskReport, runErr error) error {
	summary := runSummary{
		RunID:     runID,
		Status:    status,
		Timestamp: time.Now().Format(time.RFC3339),
		Tasks:     tasks,
	}
	if runErr != nil {
		summary.Error = runErr.Error()
	}
	f, err := os.Create(filepath.Join(r.dir, "run.yaml"))
	if err != nil {
		return err
	}
	defer f.Close()
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(summary); err != nil {
		return err
	}
	return enc.Close()
}
