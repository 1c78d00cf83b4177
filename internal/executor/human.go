package executor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrAborted means the input channel closed before an answer arrived.
var ErrAborted = errors.New("human input aborted")

// Gate is the synchronous human request/response boundary. Only one
// request is outstanding at a time.
type Gate interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

type lineResult struct {
	text string
	err  error
}

// ConsoleGate prints the prompt and reads one line per request. A single
// reader goroutine serves requests one at a time, each with its own reply
// channel, so a line typed after its request was cancelled is dropped
// instead of answering the next prompt.
type ConsoleGate struct {
	in       io.Reader
	out      io.Writer
	once     sync.Once
	requests chan chan lineResult
}

func NewConsoleGate(in io.Reader, out io.Writer) *ConsoleGate {
	return &ConsoleGate{in: in, out: out, requests: make(chan chan lineResult, 1)}
}

func (g *ConsoleGate) start() {
	go func() {
		scanner := bufio.NewScanner(g.in)
		var closed error
		for reply := range g.requests {
			if closed == nil && scanner.Scan() {
				reply <- lineResult{text: strings.TrimSpace(scanner.Text())}
				continue
			}
			if closed == nil {
				if closed = scanner.Err(); closed == nil {
					closed = ErrAborted
				}
			}
			reply <- lineResult{err: closed}
		}
	}()
}

func (g *ConsoleGate) Ask(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	g.once.Do(g.start)
	fmt.Fprintln(g.out, "[HUMAN TASK]", prompt)
	fmt.Fprint(g.out, "> ")
	// reply is buffered so the reader never blocks on an abandoned request.
	reply := make(chan lineResult, 1)
	select {
	case g.requests <- reply:
	case <-ctx.Done():
		fmt.Fprintln(g.out)
		return "", ctx.Err()
	}
	select {
	case r := <-reply:
		return r.text, r.err
	case <-ctx.Done():
		fmt.Fprintln(g.out)
		return "", ctx.Err()
	}
}

// ScriptedGate answers from a fixed list, in order.
type ScriptedGate struct {
	mu      sync.Mutex
	answers []string
	prompts []string
}

func NewScriptedGate(answers ...string) *ScriptedGate {
	return &ScriptedGate{answers: answers}
}

func (g *ScriptedGate) Ask(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if len(g.answers) == 0 {
		return "", ErrAborted
	}
	a := g.answers[0]
	g.answers = g.answers[1:]
	return a, nil
}

// Prompts returns every prompt received so far.
func (g *ScriptedGate) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}
