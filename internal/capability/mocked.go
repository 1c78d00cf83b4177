package capability

import (
	"context"
	"fmt"
)

// MockedLibrarySearch stands in for an ad-library lookup. It never fails and
// always answers the same query with the same text.
type MockedLibrarySearch struct {
	name        string
	domain      string
	description string
}

func NewMockedLibrarySearch(name, domain, description string) *MockedLibrarySearch {
	return &MockedLibrarySearch{name: name, domain: domain, description: description}
}

func (m *MockedLibrarySearch) Name() string        { return m.name }
func (m *MockedLibrarySearch) Description() string { return m.description }
func (m *MockedLibrarySearch) Domain() string      { return m.domain }

func (m *MockedLibrarySearch) Invoke(ctx context.Context, query string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", invocationError(m.name, query, err, "invocation cancelled")
	}
	return fmt.Sprintf("Mocked %s results for: %s", m.domain, query), nil
}

func (m *MockedLibrarySearch) sealed() {}
