package pipeline

import (
	"adcrew/internal"
	"fmt"
	"time"
)

var transitions = map[internal.TaskStatus][]internal.TaskStatus{
	internal.StatusPending: {
		internal.StatusAwaitingHuman,
		internal.StatusRunning,
		internal.StatusSkipped,
		internal.StatusCancelled,
	},
	internal.StatusAwaitingHuman: {
		internal.StatusRunning,
		internal.StatusFailed,
		internal.StatusCancelled,
	},
	internal.StatusRunning: {
		internal.StatusCompleted,
		internal.StatusFailed,
		internal.StatusCancelled,
	},
}

// Node is one task in the pipeline together with its execution state.
// Only the pipeline's Run loop mutates it.
type Node struct {
	position int
	task     internal.Task
	actor    internal.Actor

	status      internal.TaskStatus
	history     []internal.TaskStatus
	description string
	humanInput  string
	output      string
	err         error
	started     time.Time
	finished    time.Time
}

func newNode(position int, task internal.Task, actor internal.Actor) *Node {
	return &Node{
		position: position,
		task:     task,
		actor:    actor,
		status:   internal.StatusPending,
		history:  []internal.TaskStatus{internal.StatusPending},
	}
}

func (n *Node) Position() int               { return n.position }
func (n *Node) Task() internal.Task         { return n.task }
func (n *Node) Actor() internal.Actor       { return n.actor }
func (n *Node) Status() internal.TaskStatus { return n.status }
func (n *Node) Output() string              { return n.output }
func (n *Node) Err() error                  { return n.err }

// History returns every status the node has been in, oldest first.
func (n *Node) History() []internal.TaskStatus {
	return append([]internal.TaskStatus(nil), n.history...)
}

func (n *Node) canTransition(to internal.TaskStatus) bool {
	if to == internal.StatusAwaitingHuman && !n.task.HumanInput {
		return false
	}
	if n.status == internal.StatusPending && to == internal.StatusRunning && n.task.HumanInput {
		return false
	}
	for _, allowed := range transitions[n.status] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (n *Node) transition(to internal.TaskStatus) error {
	if !n.canTransition(to) {
		return fmt.Errorf("task %q: illegal transition %s -> %s", n.task.ID, n.status, to)
	}
	n.status = to
	n.history = append(n.history, to)
	switch {
	case to == internal.StatusRunning || to == internal.StatusAwaitingHuman:
		if n.started.IsZero() {
			n.started = time.Now()
		}
	case to.Terminal():
		n.finished = time.Now()
	}
	return nil
}

func (n *Node) duration() time.Duration {
	if n.started.IsZero() || n.finished.IsZero() {
		return 0
	}
	return n.finished.Sub(n.started)
}
