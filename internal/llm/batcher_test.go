package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

// countingClient tracks concurrent in-flight completions.
type countingClient struct {
	mu         sync.Mutex
	inFlight   int
	maxSeen    int
	callCount  int
	delay      time.Duration
	completeFn func(prompt string) (string, error)
}

func (c *countingClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

func (c *countingClient) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	c.mu.Lock()
	c.inFlight++
	c.callCount++
	if c.inFlight > c.maxSeen {
		c.maxSeen = c.inFlight
	}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.inFlight--
		c.mu.Unlock()
	}()

	if c.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.delay):
		}
	}

	if c.completeFn != nil {
		return c.completeFn(prompt)
	}
	return "echo: " + prompt, nil
}

func TestMain(m *testing.M) {
	// opencensus (pulled in by genai) starts a permanent stats worker.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

func TestExecuteParallel_RespectsConcurrencyBound(t *testing.T) {
	client := &countingClient{delay: 20 * time.Millisecond}
	b := NewBatcher(client, 3)

	requests := make([]Request, 10)
	for i := range requests {
		requests[i] = Request{Prompt: fmt.Sprintf("req-%d", i)}
	}

	results := b.ExecuteParallel(context.Background(), requests)

	if client.maxSeen > 3 {
		t.Errorf("observed %d concurrent calls, budget is 3", client.maxSeen)
	}
	if client.callCount != 10 {
		t.Errorf("expected 10 calls, got %d", client.callCount)
	}
	for i, r := range results {
		if r.Err != nil {
			t.Errorf("request %d failed: %v", i, r.Err)
		}
		if r.Index != i {
			t.Errorf("result %d has index %d", i, r.Index)
		}
	}
}

func TestExecuteParallel_PreservesOrder(t *testing.T) {
	client := &countingClient{delay: time.Millisecond}
	b := NewBatcher(client, 4)

	requests := []Request{
		{Prompt: "alpha"},
		{Prompt: "beta"},
		{Prompt: "gamma"},
	}
	results := b.ExecuteParallel(context.Background(), requests)

	want := []string{"echo: alpha", "echo: beta", "echo: gamma"}
	for i, r := range results {
		if r.Output != want[i] {
			t.Errorf("result %d = %q, want %q", i, r.Output, want[i])
		}
	}
}

func TestExecuteParallel_ErrorsAreIsolated(t *testing.T) {
	client := &countingClient{
		completeFn: func(prompt string) (string, error) {
			if strings.Contains(prompt, "bad") {
				return "", errors.New("boom")
			}
			return "fine", nil
		},
	}
	b := NewBatcher(client, 2)

	results := b.ExecuteParallel(context.Background(), []Request{
		{Prompt: "good-1"},
		{Prompt: "bad-2"},
		{Prompt: "good-3"},
	})

	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("healthy requests should not fail: %v, %v", results[0].Err, results[2].Err)
	}
	if results[1].Err == nil {
		t.Error("expected error for failing request")
	}
	if results[0].Output != "fine" || results[2].Output != "fine" {
		t.Errorf("unexpected outputs: %q, %q", results[0].Output, results[2].Output)
	}
}

func TestExecuteParallel_CancelledContext(t *testing.T) {
	client := &countingClient{delay: 5 * time.Second}
	b := NewBatcher(client, 1)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	results := b.ExecuteParallel(ctx, []Request{
		{Prompt: "one"},
		{Prompt: "two"},
		{Prompt: "three"},
	})
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("cancellation took %v, should be prompt", elapsed)
	}

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed == 0 {
		t.Error("expected at least one cancelled request")
	}
}

func TestExecuteParallel_Empty(t *testing.T) {
	b := NewBatcher(&countingClient{}, 2)
	results := b.ExecuteParallel(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestBatchInvoke_ParsesJSONArray(t *testing.T) {
	client := &countingClient{
		completeFn: func(prompt string) (string, error) {
			return `["yes", "no", "maybe"]`, nil
		},
	}
	b := NewBatcher(client, 2)

	answers, err := b.BatchInvoke(context.Background(), "classify", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("BatchInvoke: %v", err)
	}
	if len(answers) != 3 || answers[0] != "yes" || answers[2] != "maybe" {
		t.Errorf("unexpected answers: %v", answers)
	}
	if client.callCount != 1 {
		t.Errorf("expected a single call, got %d", client.callCount)
	}
}

func TestBatchInvoke_ToleratesFencesAndProse(t *testing.T) {
	client := &countingClient{
		completeFn: func(prompt string) (string, error) {
			return "Here you go:\n```json\n[\"x\", \"y\"]\n```", nil
		},
	}
	b := NewBatcher(client, 2)

	answers, err := b.BatchInvoke(context.Background(), "", []string{"1", "2"})
	if err != nil {
		t.Fatalf("BatchInvoke: %v", err)
	}
	if answers[0] != "x" || answers[1] != "y" {
		t.Errorf("unexpected answers: %v", answers)
	}
}

func TestBatchInvoke_LengthMismatchFailsBatch(t *testing.T) {
	client := &countingClient{
		completeFn: func(prompt string) (string, error) {
			return `["only one"]`, nil
		},
	}
	b := NewBatcher(client, 2)

	if _, err := b.BatchInvoke(context.Background(), "", []string{"a", "b"}); err == nil {
		t.Error("expected error on answer count mismatch")
	}
}

func TestBatchInvoke_GarbageFailsBatch(t *testing.T) {
	client := &countingClient{
		completeFn: func(prompt string) (string, error) {
			return "I cannot help with that.", nil
		},
	}
	b := NewBatcher(client, 2)

	if _, err := b.BatchInvoke(context.Background(), "", []string{"a"}); err == nil {
		t.Error("expected error on non-JSON response")
	}
}

func TestBatchInvoke_Empty(t *testing.T) {
	b := NewBatcher(&countingClient{}, 2)
	answers, err := b.BatchInvoke(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("BatchInvoke: %v", err)
	}
	if answers != nil {
		t.Errorf("expected nil answers, got %v", answers)
	}
}
