package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"adcrew/internal/dag"
)

func TestDefaultCrew(t *testing.T) {
	actors, err := DefaultActors()
	if err != nil {
		t.Fatalf("DefaultActors: %v", err)
	}
	tasks, err := DefaultTasks()
	if err != nil {
		t.Fatalf("DefaultTasks: %v", err)
	}
	if len(actors) != 5 || len(tasks) != 5 {
		t.Fatalf("got %d actors, %d tasks", len(actors), len(tasks))
	}
	if !tasks[0].HumanInput || tasks[0].ID != "analysis_area" {
		t.Fatalf("first task = %+v", tasks[0])
	}
	if err := dag.ValidateOrder(tasks); err != nil {
		t.Fatalf("default order: %v", err)
	}
	names := map[string]bool{}
	for _, a := range actors {
		names[a.Name] = true
	}
	for _, task := range tasks {
		if !names[task.Actor] {
			t.Errorf("task %s uses unknown actor %s", task.ID, task.Actor)
		}
		if task.ID != "analysis_area" && !strings.Contains(task.Description, "{{analysis_area}}") {
			t.Errorf("task %s does not reference the analysis area", task.ID)
		}
	}
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	actorsPath := filepath.Join(dir, "actors.yaml")
	tasksPath := filepath.Join(dir, "tasks.yaml")
	os.WriteFile(actorsPath, []byte(`actors:
  - name: researcher
    role: Researcher
    tools: [meta_ads_library]
`), 0644)
	os.WriteFile(tasksPath, []byte(`tasks:
  - id: research
    actor: researcher
    description: Research
    query: sneakers
  - id: summary
    actor: researcher
    description: "Summarize {{research}}"
    depends_on: [research]
`), 0644)

	actors, err := LoadActors(actorsPath)
	if err != nil {
		t.Fatal(err)
	}
	if actors[0].Tools[0] != "meta_ads_library" {
		t.Fatalf("actors = %+v", actors)
	}
	tasks, err := LoadTasks(tasksPath)
	if err != nil {
		t.Fatal(err)
	}
	if tasks[0].Query != "sneakers" || tasks[1].DependsOn[0] != "research" {
		t.Fatalf("tasks = %+v", tasks)
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	if _, err := ParseTasks(strings.NewReader("tasks:\n  - id: a\n    prompt: typo\n")); err == nil {
		t.Fatal("unknown field should fail")
	}
	if _, err := ParseActors(strings.NewReader("actors: []\n")); err == nil {
		t.Fatal("empty actor list should fail")
	}
	if _, err := LoadTasks(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("missing file should fail")
	}
}
