// Package pipeline drives task nodes strictly in sequence. Each node
// resolves its description against the outputs of the tasks it declares as
// dependencies, optionally waits for a human answer, runs on its actor's
// executor and records its output before the next node starts.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"adcrew/internal"
	"adcrew/internal/contextstore"
	"adcrew/internal/dag"
	apperrors "adcrew/internal/errors"
	"adcrew/internal/executor"
	"adcrew/internal/util"
)

type Policy string

const (
	// PolicyStrict aborts the remaining sequence on the first failure.
	PolicyStrict Policy = "strict"
	// PolicyLenient records the failure, skips its dependents and continues.
	PolicyLenient Policy = "lenient"
)

// Event reports one status transition.
type Event struct {
	Position int
	TaskID   string
	From     internal.TaskStatus
	To       internal.TaskStatus
	Err      error
}

type Options struct {
	Policy Policy
	// HumanTimeout bounds the wait at a human-input gate; zero waits forever.
	HumanTimeout         time.Duration
	AllowEmptyHumanInput bool
	// Reporter receives per-task outputs and the run summary when set.
	Reporter *Reporter
	// RunID overrides the generated run identifier.
	RunID    string
	Observer func(Event)
}

type OutputStatus string

const (
	OutputCompleted OutputStatus = "completed"
	OutputPartial   OutputStatus = "partial"
)

type TaskReport struct {
	Position int                 `yaml:"position"`
	ID       string              `yaml:"id"`
	Actor    string              `yaml:"actor"`
	Status   internal.TaskStatus `yaml:"status"`
	Duration string              `yaml:"duration,omitempty"`
	Error    string              `yaml:"error,omitempty"`
}

// Output is the result of a run. Text is the final task's output; under the
// lenient policy a run whose final task did not complete is partial and
// Text holds the latest completed output.
type Output struct {
	RunID   string
	Text    string
	Status  OutputStatus
	Entries []internal.Entry
	Tasks   []TaskReport
}

// PipelineError is returned when a run aborts. Partial holds every output
// recorded before the abort.
type PipelineError struct {
	RunID    string
	TaskID   string
	Position int
	Status   internal.TaskStatus
	Partial  []internal.Entry
	Err      error
}

func (e *PipelineError) Error() string { return e.Err.Error() }
func (e *PipelineError) Unwrap() error { return e.Err }

type Pipeline struct {
	id    string
	nodes []*Node
	dag   *dag.DAG
	store *contextstore.Store
	exec  internal.Executor
	gate  executor.Gate
	opts  Options
	ran   bool
}

// New validates the definition and creates every node in Pending. The
// order of tasks is the execution order and never changes.
func New(tasks []internal.Task, actors []internal.Actor, exec internal.Executor, gate executor.Gate, opts Options) (*Pipeline, error) {
	if len(tasks) == 0 {
		return nil, apperrors.New(apperrors.CodeDefinition, "pipeline has no tasks")
	}
	if exec == nil {
		return nil, apperrors.New(apperrors.CodeDefinition, "pipeline has no executor")
	}
	switch opts.Policy {
	case "":
		opts.Policy = PolicyStrict
	case PolicyStrict, PolicyLenient:
	default:
		return nil, apperrors.Newf(apperrors.CodeDefinition, "unknown failure policy %q", opts.Policy)
	}

	actorByName := make(map[string]internal.Actor, len(actors))
	for _, a := range actors {
		if a.Name == "" {
			return nil, apperrors.New(apperrors.CodeDefinition, "actor without a name")
		}
		if _, dup := actorByName[a.Name]; dup {
			return nil, apperrors.Newf(apperrors.CodeDefinition, "duplicate actor %q", a.Name)
		}
		actorByName[a.Name] = a
	}

	if err := dag.ValidateOrder(tasks); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDefinition, err, "invalid task order")
	}
	d, err := dag.NewDAG(append([]internal.Task(nil), tasks...))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDefinition, err, "invalid task graph")
	}

	nodes := make([]*Node, 0, len(tasks))
	for i, t := range tasks {
		actor, ok := actorByName[t.Actor]
		if !ok {
			return nil, apperrors.Newf(apperrors.CodeDefinition, "task %q: unknown actor %q", t.ID, t.Actor)
		}
		if strings.TrimSpace(t.Description) == "" {
			return nil, apperrors.Newf(apperrors.CodeDefinition, "task %q: empty description", t.ID)
		}
		if t.HumanInput && gate == nil {
			return nil, apperrors.Newf(apperrors.CodeDefinition, "task %q needs human input but no gate is configured", t.ID)
		}
		if err := checkBindings(t); err != nil {
			return nil, err
		}
		t.DependsOn = append([]string(nil), t.DependsOn...)
		nodes = append(nodes, newNode(i, t, actor))
	}

	id := opts.RunID
	if id == "" {
		id = util.NewUUID()
	}
	return &Pipeline{
		id:    id,
		nodes: nodes,
		dag:   d,
		store: contextstore.New(),
		exec:  exec,
		gate:  gate,
		opts:  opts,
	}, nil
}

// checkBindings rejects placeholders that do not name a declared dependency.
func checkBindings(t internal.Task) error {
	deps := make(map[string]bool, len(t.DependsOn))
	for _, d := range t.DependsOn {
		deps[d] = true
	}
	for _, tmpl := range []string{t.Description, t.Query} {
		for _, ref := range placeholders(tmpl) {
			if !deps[ref] {
				return apperrors.Newf(apperrors.CodeDefinition,
					"task %q references {{%s}} without declaring it in depends_on", t.ID, ref)
			}
		}
	}
	return nil
}

func (p *Pipeline) ID() string { return p.id }

func (p *Pipeline) Nodes() []*Node {
	return append([]*Node(nil), p.nodes...)
}

// Order returns the task IDs in execution order.
func (p *Pipeline) Order() []string {
	ids := make([]string, len(p.nodes))
	for i, n := range p.nodes {
		ids[i] = n.task.ID
	}
	return ids
}

// Run drives every node to a terminal state in order. A Pipeline runs once.
func (p *Pipeline) Run(ctx context.Context) (*Output, error) {
	if p.ran {
		return nil, apperrors.New(apperrors.CodeDefinition, "pipeline already ran")
	}
	p.ran = true
	util.Info("run %s: %d tasks, %s policy", p.id, len(p.nodes), p.opts.Policy)

	for _, node := range p.nodes {
		if node.status != internal.StatusPending {
			continue
		}
		if err := ctx.Err(); err != nil {
			p.setStatus(node, internal.StatusCancelled, err)
			return nil, p.abort(node, apperrors.Wrap(apperrors.CodeCancelled, err, "run cancelled"))
		}

		err := p.drive(ctx, node)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			if !errors.Is(err, apperrors.ErrCancelled) {
				err = apperrors.Wrap(apperrors.CodeCancelled, err, "run cancelled")
			}
			return nil, p.abort(node, err)
		}
		if p.opts.Policy == PolicyStrict {
			return nil, p.abort(node, err)
		}
		util.Warn("%s %s, continuing: %v", node.task.ID, node.status, err)
		p.skipDependents(node)
	}

	out := p.output()
	p.finish(string(out.Status), nil)
	return out, nil
}

func (p *Pipeline) drive(ctx context.Context, node *Node) error {
	deps := p.store.Select(node.task.DependsOn)
	node.description = bind(node.task.Description, deps)
	query := node.description
	if strings.TrimSpace(node.task.Query) != "" {
		query = bind(node.task.Query, deps)
	}

	if node.task.HumanInput {
		if err := p.setStatus(node, internal.StatusAwaitingHuman, nil); err != nil {
			return err
		}
		answer, err := p.awaitHuman(ctx, node)
		if err != nil {
			return p.stop(ctx, node, err)
		}
		node.humanInput = answer
	}

	if err := p.setStatus(node, internal.StatusRunning, nil); err != nil {
		return err
	}
	util.Info("[RUNNING] %s (%s)", node.task.ID, node.actor.Role)

	var out string
	if node.task.HumanInput && len(node.actor.Capabilities()) == 0 {
		// Nothing to consult: the answer is recorded verbatim so later
		// placeholders bind to exactly what the human typed.
		out = node.humanInput
	} else {
		var err error
		out, err = p.exec.Execute(ctx, internal.Assignment{
			Position:       node.position,
			Task:           node.task,
			Actor:          node.actor,
			Description:    node.description,
			Query:          query,
			ExpectedOutput: node.task.ExpectedOutput,
			HumanInput:     node.humanInput,
			Context:        deps,
			Visible:        p.store.View(node.position),
		})
		if err != nil {
			return p.stop(ctx, node, err)
		}
	}

	if err := p.store.Append(node.position, node.task.ID, out); err != nil {
		return p.stop(ctx, node, apperrors.Wrap(apperrors.CodeUnexpected, err, "record output"))
	}
	node.output = out
	if err := p.setStatus(node, internal.StatusCompleted, nil); err != nil {
		return err
	}
	util.Success("%s completed", node.task.ID)
	if p.opts.Reporter != nil {
		if err := p.opts.Reporter.SaveOutput(node.task.ID, out); err != nil {
			util.Warn("save output of %s: %v", node.task.ID, err)
		}
	}
	return nil
}

func (p *Pipeline) awaitHuman(ctx context.Context, node *Node) (string, error) {
	gctx := ctx
	if p.opts.HumanTimeout > 0 {
		var cancel context.CancelFunc
		gctx, cancel = context.WithTimeout(ctx, p.opts.HumanTimeout)
		defer cancel()
	}
	answer, err := p.gate.Ask(gctx, node.description)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return "", apperrors.Wrap(apperrors.CodeCancelled, ctx.Err(), "human input cancelled",
			apperrors.WithMetadata("task", node.task.ID))
	case errors.Is(err, context.DeadlineExceeded):
		return "", apperrors.Wrap(apperrors.CodeCancelled, err,
			fmt.Sprintf("no human input within %s", p.opts.HumanTimeout),
			apperrors.WithMetadata("task", node.task.ID))
	default:
		return "", apperrors.Wrap(apperrors.CodeHumanInput, err, "",
			apperrors.WithMetadata("task", node.task.ID))
	}
	answer = strings.TrimSpace(answer)
	if answer == "" && !p.opts.AllowEmptyHumanInput {
		return "", apperrors.New(apperrors.CodeHumanInput, "empty response",
			apperrors.WithMetadata("task", node.task.ID))
	}
	return answer, nil
}

// stop moves node to Cancelled or Failed depending on the cause.
func (p *Pipeline) stop(ctx context.Context, node *Node, cause error) error {
	to := internal.StatusFailed
	if ctx.Err() != nil || apperrors.CodeOf(cause) == apperrors.CodeCancelled {
		to = internal.StatusCancelled
	}
	if err := p.setStatus(node, to, cause); err != nil {
		return err
	}
	util.Fail("%s: %v", node.task.ID, cause)
	return cause
}

func (p *Pipeline) setStatus(node *Node, to internal.TaskStatus, cause error) error {
	from := node.status
	if err := node.transition(to); err != nil {
		return apperrors.Wrap(apperrors.CodeUnexpected, err, "state machine")
	}
	if cause != nil {
		node.err = cause
	}
	if p.opts.Observer != nil {
		p.opts.Observer(Event{Position: node.position, TaskID: node.task.ID, From: from, To: to, Err: cause})
	}
	return nil
}

func (p *Pipeline) skipDependents(failed *Node) {
	for _, id := range dag.Dependents(p.dag, failed.task.ID) {
		for _, n := range p.nodes {
			if n.task.ID != id || n.status != internal.StatusPending {
				continue
			}
			cause := fmt.Errorf("dependency %q did not complete", failed.task.ID)
			if err := p.setStatus(n, internal.StatusSkipped, cause); err != nil {
				util.Warn("skip %s: %v", id, err)
				continue
			}
			util.Warn("%s skipped: %v", id, cause)
		}
	}
}

func (p *Pipeline) abort(node *Node, cause error) error {
	err := &PipelineError{
		RunID:    p.id,
		TaskID:   node.task.ID,
		Position: node.position,
		Status:   node.status,
		Partial:  p.store.Entries(),
		Err: apperrors.Wrap(apperrors.CodePipeline, cause,
			fmt.Sprintf("task %q (position %d) %s", node.task.ID, node.position, node.status)),
	}
	p.finish("fail", err)
	return err
}

func (p *Pipeline) output() *Output {
	out := &Output{
		RunID:   p.id,
		Status:  OutputCompleted,
		Entries: p.store.Entries(),
		Tasks:   p.reports(),
	}
	final := p.nodes[len(p.nodes)-1]
	if final.status == internal.StatusCompleted {
		out.Text = final.output
		return out
	}
	out.Status = OutputPartial
	if last, ok := p.store.Last(); ok {
		out.Text = last.Output
	}
	return out
}

func (p *Pipeline) reports() []TaskReport {
	reports := make([]TaskReport, 0, len(p.nodes))
	for _, n := range p.nodes {
		r := TaskReport{
			Position: n.position,
			ID:       n.task.ID,
			Actor:    n.actor.Name,
			Status:   n.status,
		}
		if d := n.duration(); d > 0 {
			r.Duration = d.Round(time.Millisecond).String()
		}
		if n.err != nil {
			r.Error = n.err.Error()
		}
		reports = append(reports, r)
	}
	return reports
}

func (p *Pipeline) finish(status string, runErr error) {
	if p.opts.Reporter == nil {
		return
	}
	if err := p.opts.Reporter.WriteSummary(p.id, status, p.reports(), runErr); err != nil {
		util.Warn("write run summary: %v", err)
	}
}
