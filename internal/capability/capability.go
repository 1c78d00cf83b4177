// Package capability holds the tools an actor can be bound to. The set of
// variants is closed: WebSearch, MockedLibrarySearch and the Cached
// decorator around either of them.
package capability

import (
	"context"
	"fmt"

	apperrors "adcrew/internal/errors"
)

type Capability interface {
	Name() string
	Description() string
	Invoke(ctx context.Context, query string) (string, error)

	sealed()
}

func invocationError(name, query string, cause error, msg string, opts ...apperrors.Option) error {
	opts = append([]apperrors.Option{
		apperrors.WithMetadata("tool", name),
		apperrors.WithMetadata("query", truncate(query, 80)),
	}, opts...)
	return apperrors.Wrap(apperrors.CodeToolInvocation, cause, msg, opts...)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// Describe renders a one-line summary used in prompts and the CLI.
func Describe(c Capability) string {
	return fmt.Sprintf("%s: %s", c.Name(), c.Description())
}
