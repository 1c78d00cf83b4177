package internal

import (
	"context"

	"adcrew/internal/capability"
)

// Actor is a role-bound identity. Capabilities are resolved once when the
// crew is built and never change afterwards.
type Actor struct {
	Name      string   `yaml:"name"`
	Role      string   `yaml:"role"`
	Goal      string   `yaml:"goal"`
	Backstory string   `yaml:"backstory"`
	Tools     []string `yaml:"tools,omitempty"`
	Verbose   bool     `yaml:"verbose"`

	caps []capability.Capability
}

// WithCapabilities returns a copy of a bound to caps.
func (a Actor) WithCapabilities(caps ...capability.Capability) Actor {
	a.Tools = append([]string(nil), a.Tools...)
	a.caps = append([]capability.Capability(nil), caps...)
	return a
}

// Capabilities returns the bound capability set.
func (a Actor) Capabilities() []capability.Capability {
	return append([]capability.Capability(nil), a.caps...)
}

type Task struct {
	ID             string   `yaml:"id"`
	Description    string   `yaml:"description"`
	Actor          string   `yaml:"actor"`
	ExpectedOutput string   `yaml:"expected_output"`
	HumanInput     bool     `yaml:"human_input,omitempty"`
	DependsOn      []string `yaml:"depends_on,omitempty"`
	// Query is the tool query template; empty means the resolved description.
	Query string `yaml:"query,omitempty"`
}

type TaskStatus string

const (
	StatusPending       TaskStatus = "pending"
	StatusAwaitingHuman TaskStatus = "awaiting_human"
	StatusRunning       TaskStatus = "running"
	StatusCompleted     TaskStatus = "completed"
	StatusFailed        TaskStatus = "failed"
	StatusCancelled     TaskStatus = "cancelled"
	StatusSkipped       TaskStatus = "skipped"
)

// Terminal reports whether no further transition is allowed.
func (s TaskStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusSkipped:
		return true
	}
	return false
}

// Entry is one completed task output in the context store.
type Entry struct {
	Position int    `yaml:"position"`
	TaskID   string `yaml:"task_id"`
	Output   string `yaml:"output"`
}

// Assignment is everything a running task hands to its executor.
type Assignment struct {
	Position       int
	Task           Task
	Actor          Actor
	Description    string
	Query          string
	ExpectedOutput string
	HumanInput     string
	// Context holds the outputs of the declared dependencies.
	Context []Entry
	// Visible is the full store snapshot for positions before this task.
	Visible []Entry
}

type Executor interface {
	Execute(ctx context.Context, a Assignment) (out string, err error)
}
