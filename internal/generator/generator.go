// Package generator is the boundary to the language-generation backend.
// Given an actor's identity, a task and its accumulated context, a
// Generator produces the task's output text.
package generator

import (
	"context"
	"strings"
)

// Identity is the part of an actor the backend sees.
type Identity struct {
	Role      string
	Goal      string
	Backstory string
}

// Observation is one tool result gathered before generation.
type Observation struct {
	Tool   string
	Query  string
	Output string
}

// ContextItem is the output of a prior task.
type ContextItem struct {
	TaskID string
	Output string
}

type Request struct {
	Actor          Identity
	Description    string
	ExpectedOutput string
	HumanInput     string
	Context        []ContextItem
	Observations   []Observation
}

type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Echo returns its most specific input unchanged: tool observations if
// there are any, then the human input, then the description.
type Echo struct{}

func (Echo) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(req.Observations) > 0 {
		parts := make([]string, 0, len(req.Observations))
		for _, o := range req.Observations {
			parts = append(parts, o.Output)
		}
		return strings.Join(parts, "\n\n"), nil
	}
	if strings.TrimSpace(req.HumanInput) != "" {
		return req.HumanInput, nil
	}
	return req.Description, nil
}
