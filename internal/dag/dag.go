package dag

import (
	"adcrew/internal"
	"errors"
	"fmt"
	"sort"
)

// DAG indexes a task sequence by id. order keeps the declared sequence.
type DAG struct {
	Tasks map[string]*internal.Task
	Edges map[string][]string
	order []string
}

func NewDAG(tasks []internal.Task) (*DAG, error) {
	d := &DAG{
		Tasks: map[string]*internal.Task{},
		Edges: map[string][]string{},
	}
	for i, t := range tasks {
		if t.ID == "" {
			return nil, fmt.Errorf("task at position %d has no id", i)
		}
		if _, dup := d.Tasks[t.ID]; dup {
			return nil, fmt.Errorf("duplicate task id %q", t.ID)
		}
		d.Tasks[t.ID] = &tasks[i]
		d.Edges[t.ID] = t.DependsOn
		d.order = append(d.order, t.ID)
	}
	for _, id := range d.order {
		for _, dep := range d.Edges[id] {
			if _, ok := d.Tasks[dep]; !ok {
				return nil, fmt.Errorf("task %q depends on unknown task %q", id, dep)
			}
		}
	}
	if _, err := TopoSort(d); err != nil {
		return nil, err
	}
	return d, nil
}

// TopoSort returns an order in which every task follows its dependencies.
// Among ready tasks the one declared first wins, so a sequence that is
// already valid comes back unchanged and an invalid one moves as little
// as possible.
func TopoSort(d *DAG) ([]string, error) {
	placed := make(map[string]bool, len(d.order))
	order := make([]string, 0, len(d.order))
	for len(order) < len(d.order) {
		next := ""
		for _, id := range d.order {
			if !placed[id] && ready(d, id, placed) {
				next = id
				break
			}
		}
		if next == "" {
			return nil, errors.New("cycle detected in task dependencies")
		}
		placed[next] = true
		order = append(order, next)
	}
	return order, nil
}

func ready(d *DAG, id string, placed map[string]bool) bool {
	for _, dep := range d.Edges[id] {
		if !placed[dep] {
			return false
		}
	}
	return true
}

// ValidateOrder checks that the declared sequence is itself a valid
// execution order: every dependency sits at an earlier position.
func ValidateOrder(tasks []internal.Task) error {
	if _, err := NewDAG(tasks); err != nil {
		return err
	}
	pos := make(map[string]int, len(tasks))
	for i, t := range tasks {
		pos[t.ID] = i
	}
	for i, t := range tasks {
		for _, dep := range t.DependsOn {
			if dep == t.ID {
				return fmt.Errorf("task %q depends on itself", t.ID)
			}
			if pos[dep] >= i {
				return fmt.Errorf("task %q (position %d) depends on %q at later position %d", t.ID, i, dep, pos[dep])
			}
		}
	}
	return nil
}

// Dependents returns every task that transitively depends on id.
func Dependents(d *DAG, id string) []string {
	children := make(map[string][]string)
	for n, deps := range d.Edges {
		for _, dep := range deps {
			children[dep] = append(children[dep], n)
		}
	}
	seen := map[string]bool{}
	var walk func(string)
	walk = func(n string) {
		for _, c := range children[n] {
			if !seen[c] {
				seen[c] = true
				walk(c)
			}
		}
	}
	walk(id)
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
