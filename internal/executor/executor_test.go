package executor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"adcrew/internal"
	"adcrew/internal/capability"
	apperrors "adcrew/internal/errors"
	"adcrew/internal/generator"
	"adcrew/internal/util"
)

type recordingGenerator struct {
	req generator.Request
	out string
	err error
}

func (g *recordingGenerator) Generate(ctx context.Context, req generator.Request) (string, error) {
	g.req = req
	return g.out, g.err
}

func quiet(t *testing.T) {
	t.Helper()
	util.SetOutput(io.Discard)
	t.Cleanup(func() { util.SetOutput(os.Stdout) })
}

func TestAgentExecutorPassesContextAndObservations(t *testing.T) {
	quiet(t)
	gen := &recordingGenerator{out: "done"}
	e := &AgentExecutor{Generator: gen}
	actor := (internal.Actor{Name: "meta", Role: "Meta Ads Analyst", Goal: "find ads"}).
		WithCapabilities(capability.MetaAdsLibrary())
	out, err := e.Execute(context.Background(), internal.Assignment{
		Task:        internal.Task{ID: "meta_ads_analysis"},
		Actor:       actor,
		Description: "Analyze ads for sneakers",
		Query:       "sneakers",
		Context:     []internal.Entry{{Position: 0, TaskID: "analysis_area", Output: "sneakers"}},
	})
	if err != nil || out != "done" {
		t.Fatalf("Execute = %q, %v", out, err)
	}
	if gen.req.Actor.Role != "Meta Ads Analyst" || gen.req.Description != "Analyze ads for sneakers" {
		t.Fatalf("request = %+v", gen.req)
	}
	if len(gen.req.Context) != 1 || gen.req.Context[0].TaskID != "analysis_area" {
		t.Fatalf("context = %+v", gen.req.Context)
	}
	if len(gen.req.Observations) != 1 || gen.req.Observations[0].Output != "Mocked Meta Ads Library results for: sneakers" {
		t.Fatalf("observations = %+v", gen.req.Observations)
	}
}

func TestAgentExecutorGenerationErrors(t *testing.T) {
	quiet(t)
	e := &AgentExecutor{Generator: &recordingGenerator{err: errors.New("backend down")}}
	_, err := e.Execute(context.Background(), internal.Assignment{Task: internal.Task{ID: "t"}})
	if !errors.Is(err, apperrors.ErrGeneration) {
		t.Fatalf("err = %v", err)
	}

	e = &AgentExecutor{Generator: &recordingGenerator{out: "  "}}
	_, err = e.Execute(context.Background(), internal.Assignment{Task: internal.Task{ID: "t"}})
	if !errors.Is(err, apperrors.ErrGeneration) {
		t.Fatalf("empty output err = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e = &AgentExecutor{Generator: generator.Echo{}}
	_, err = e.Execute(ctx, internal.Assignment{Task: internal.Task{ID: "t"}, Description: "x"})
	if !errors.Is(err, apperrors.ErrCancelled) {
		t.Fatalf("cancelled err = %v", err)
	}
}

func TestAgentExecutorRetriesTool(t *testing.T) {
	quiet(t)
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"organic":[{"title":"T","link":"https://x","snippet":"S"}]}`)
	}))
	defer srv.Close()
	search, err := capability.NewWebSearch(capability.WebSearchConfig{APIKey: "k", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	actor := (internal.Actor{Name: "trend"}).WithCapabilities(search)
	a := internal.Assignment{Task: internal.Task{ID: "t"}, Actor: actor, Query: "q"}

	_, err = (&AgentExecutor{Generator: generator.Echo{}}).Execute(context.Background(), a)
	if !errors.Is(err, apperrors.ErrToolInvocation) {
		t.Fatalf("without retries err = %v", err)
	}

	calls.Store(0)
	out, err := (&AgentExecutor{Generator: generator.Echo{}, Retries: 2, Backoff: time.Millisecond}).Execute(context.Background(), a)
	if err != nil {
		t.Fatalf("with retries: %v", err)
	}
	if !strings.Contains(out, "Title: T") || calls.Load() != 2 {
		t.Fatalf("out = %q after %d calls", out, calls.Load())
	}
}

func TestAgentExecutorDoesNotRetryRejectedKey(t *testing.T) {
	quiet(t)
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer srv.Close()
	search, err := capability.NewWebSearch(capability.WebSearchConfig{APIKey: "bad", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	actor := (internal.Actor{Name: "trend"}).WithCapabilities(search)
	a := internal.Assignment{Task: internal.Task{ID: "t"}, Actor: actor, Query: "q"}

	_, err = (&AgentExecutor{Generator: generator.Echo{}, Retries: 2, Backoff: time.Millisecond}).Execute(context.Background(), a)
	if !errors.Is(err, apperrors.ErrToolInvocation) {
		t.Fatalf("err = %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("backend called %d times, want 1", calls.Load())
	}
}

func TestConsoleGate(t *testing.T) {
	var out bytes.Buffer
	g := NewConsoleGate(strings.NewReader("  sneakers \nshoes\n"), &out)
	got, err := g.Ask(context.Background(), "Which area?")
	if err != nil || got != "sneakers" {
		t.Fatalf("Ask = %q, %v", got, err)
	}
	if !strings.Contains(out.String(), "[HUMAN TASK] Which area?") || !strings.Contains(out.String(), "> ") {
		t.Fatalf("prompt output = %q", out.String())
	}
	if got, _ := g.Ask(context.Background(), "again"); got != "shoes" {
		t.Fatalf("second answer = %q", got)
	}
	if _, err := g.Ask(context.Background(), "eof"); !errors.Is(err, ErrAborted) {
		t.Fatalf("after EOF err = %v", err)
	}
}

func TestConsoleGateCancel(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	g := NewConsoleGate(r, io.Discard)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := g.Ask(ctx, "waiting"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
}

func TestConsoleGateDropsLateAnswer(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	g := NewConsoleGate(r, io.Discard)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := g.Ask(ctx, "first"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("first err = %v", err)
	}

	go func() {
		io.WriteString(w, "late answer to first\n")
		io.WriteString(w, "answer to second\n")
	}()
	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	got, err := g.Ask(ctx2, "second")
	if err != nil || got != "answer to second" {
		t.Fatalf("second Ask = %q, %v", got, err)
	}
}

func TestScriptedGate(t *testing.T) {
	g := NewScriptedGate("one")
	if got, err := g.Ask(context.Background(), "p1"); err != nil || got != "one" {
		t.Fatalf("Ask = %q, %v", got, err)
	}
	if _, err := g.Ask(context.Background(), "p2"); !errors.Is(err, ErrAborted) {
		t.Fatalf("exhausted err = %v", err)
	}
	if p := g.Prompts(); len(p) != 2 || p[1] != "p2" {
		t.Fatalf("prompts = %q", p)
	}
}
