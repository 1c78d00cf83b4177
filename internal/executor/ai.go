package executor

import (
	"adcrew/internal"
	"adcrew/internal/capability"
	apperrors "adcrew/internal/errors"
	"adcrew/internal/generator"
	"adcrew/internal/util"
	"context"
	"strings"
	"time"
)

// AgentExecutor runs one task for an actor: it consults every capability
// bound to the actor, then asks the generation backend for the output.
type AgentExecutor struct {
	Generator generator.Generator
	// Retries is the number of extra attempts for a retryable tool failure.
	Retries int
	// Backoff is the delay before the first retry; it doubles per attempt.
	Backoff time.Duration
}

func (e *AgentExecutor) Execute(ctx context.Context, a internal.Assignment) (string, error) {
	var observations []generator.Observation
	for _, c := range a.Actor.Capabilities() {
		util.DebugIf(a.Actor.Verbose, "%s: %s(%q)", a.Actor.Role, c.Name(), a.Query)
		out, err := e.invoke(ctx, c, a.Query)
		if err != nil {
			return "", err
		}
		util.DebugIf(a.Actor.Verbose, "%s: %s returned %d bytes", a.Actor.Role, c.Name(), len(out))
		observations = append(observations, generator.Observation{Tool: c.Name(), Query: a.Query, Output: out})
	}

	req := generator.Request{
		Actor: generator.Identity{
			Role:      a.Actor.Role,
			Goal:      a.Actor.Goal,
			Backstory: a.Actor.Backstory,
		},
		Description:    a.Description,
		ExpectedOutput: a.ExpectedOutput,
		HumanInput:     a.HumanInput,
		Observations:   observations,
	}
	for _, entry := range a.Context {
		req.Context = append(req.Context, generator.ContextItem{TaskID: entry.TaskID, Output: entry.Output})
	}

	out, err := e.Generator.Generate(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", apperrors.Wrap(apperrors.CodeCancelled, ctxErr, "generation interrupted",
				apperrors.WithMetadata("task", a.Task.ID))
		}
		return "", apperrors.Wrap(apperrors.CodeGeneration, err, "",
			apperrors.WithMetadata("task", a.Task.ID),
			apperrors.WithMetadata("actor", a.Actor.Name))
	}
	if strings.TrimSpace(out) == "" {
		return "", apperrors.New(apperrors.CodeGeneration, "backend returned empty output",
			apperrors.WithMetadata("task", a.Task.ID))
	}
	util.DebugIf(a.Actor.Verbose, "%s: produced %d bytes", a.Actor.Role, len(out))
	return out, nil
}

func (e *AgentExecutor) invoke(ctx context.Context, c capability.Capability, query string) (string, error) {
	delay := e.Backoff
	for attempt := 0; ; attempt++ {
		out, err := c.Invoke(ctx, query)
		if err == nil {
			return out, nil
		}
		if apperrors.CodeOf(err) != apperrors.CodeToolInvocation {
			err = apperrors.Wrap(apperrors.CodeToolInvocation, err, "", apperrors.WithMetadata("tool", c.Name()))
		}
		if attempt >= e.Retries || !apperrors.IsRetryable(err) || ctx.Err() != nil {
			return "", err
		}
		util.Warn("%s failed (attempt %d/%d), retrying in %s: %v", c.Name(), attempt+1, e.Retries+1, delay, err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", apperrors.Wrap(apperrors.CodeCancelled, ctx.Err(), "retry interrupted",
				apperrors.WithMetadata("tool", c.Name()))
		}
		delay *= 2
	}
}
