// Package contextstore keeps the ordered outputs of completed tasks.
package contextstore

import (
	"fmt"
	"sync"

	"adcrew/internal"
)

// Store is append-only. Positions must strictly increase and task IDs are
// unique, so a task can never observe itself or a later task.
type Store struct {
	mu      sync.RWMutex
	entries []internal.Entry
	byID    map[string]int
}

func New() *Store {
	return &Store{byID: map[string]int{}}
}

func (s *Store) Append(position int, taskID, output string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[taskID]; ok {
		return fmt.Errorf("context store: task %q already recorded", taskID)
	}
	if n := len(s.entries); n > 0 && s.entries[n-1].Position >= position {
		return fmt.Errorf("context store: position %d not after %d", position, s.entries[n-1].Position)
	}
	s.byID[taskID] = len(s.entries)
	s.entries = append(s.entries, internal.Entry{Position: position, TaskID: taskID, Output: output})
	return nil
}

// View returns a copy of the entries recorded before position.
func (s *Store) View(position int) []internal.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]internal.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.Position >= position {
			break
		}
		out = append(out, e)
	}
	return out
}

// Select returns the entries for ids in store order. Unknown ids are skipped.
func (s *Store) Select(ids []string) []internal.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []internal.Entry
	for _, e := range s.entries {
		if want[e.TaskID] {
			out = append(out, e)
		}
	}
	return out
}

func (s *Store) Get(taskID string) (internal.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[taskID]
	if !ok {
		return internal.Entry{}, false
	}
	return s.entries[i], true
}

func (s *Store) Last() (internal.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.entries) == 0 {
		return internal.Entry{}, false
	}
	return s.entries[len(s.entries)-1], true
}

// Entries returns a copy of everything recorded so far.
func (s *Store) Entries() []internal.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]internal.Entry(nil), s.entries...)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
