package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"majordomo/internal/logging"
)

// Request is one prompt submitted to ExecuteParallel.
type Request struct {
	System string // optional system prompt
	Prompt string
}

// Result is the outcome of one Request. Output and Err are mutually
// exclusive; results keep the order of the submitted requests.
type Result struct {
	Index  int
	Output string
	Err    error
}

// Batcher fans independent prompts out to the LLM under a fixed
// concurrency budget, and packs related small prompts into a single
// call when they share a shape.
type Batcher struct {
	client LLMClient
	sem    *semaphore.Weighted
	limit  int64
}

// NewBatcher creates a batcher over the given client.
// maxParallel bounds concurrent in-flight LLM calls.
func NewBatcher(client LLMClient, maxParallel int) *Batcher {
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &Batcher{
		client: client,
		sem:    semaphore.NewWeighted(int64(maxParallel)),
		limit:  int64(maxParallel),
	}
}

// ExecuteParallel runs all requests concurrently, bounded by the
// batcher's budget. Every request gets a Result; a failed request
// never blocks or fails the others.
func (b *Batcher) ExecuteParallel(ctx context.Context, requests []Request) []Result {
	results := make([]Result, len(requests))
	if len(requests) == 0 {
		return results
	}

	timer := logging.StartTimer(logging.CategoryAPI, fmt.Sprintf("batch of %d", len(requests)))
	defer timer.Stop()

	var wg sync.WaitGroup
	for i, req := range requests {
		results[i].Index = i

		if err := b.sem.Acquire(ctx, 1); err != nil {
			// Context cancelled while waiting for a slot; the
			// remaining requests fail the same way.
			for j := i; j < len(requests); j++ {
				results[j].Index = j
				results[j].Err = err
			}
			break
		}

		wg.Add(1)
		go func(i int, req Request) {
			defer wg.Done()
			defer b.sem.Release(1)

			out, err := b.complete(ctx, req)
			results[i].Output = out
			results[i].Err = err
		}(i, req)
	}
	wg.Wait()

	return results
}

func (b *Batcher) complete(ctx context.Context, req Request) (string, error) {
	if req.System != "" {
		return b.client.CompleteWithSystem(ctx, req.System, req.Prompt)
	}
	return b.client.Complete(ctx, req.Prompt)
}

// BatchInvoke answers all items with a single LLM call by asking for
// a JSON array of strings, one element per item in order. A response
// that does not parse, or whose length does not match, fails the whole
// batch: callers cannot attribute partial output to items.
func (b *Batcher) BatchInvoke(ctx context.Context, systemPrompt string, items []string) ([]string, error) {
	if len(items) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString("Answer each numbered item. Respond with ONLY a JSON array of strings, ")
	sb.WriteString("one element per item, in the same order. No other text.\n\n")
	for i, item := range items {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, item)
	}

	if err := b.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer b.sem.Release(1)

	raw, err := b.complete(ctx, Request{System: systemPrompt, Prompt: sb.String()})
	if err != nil {
		return nil, fmt.Errorf("batch call failed: %w", err)
	}

	arrText, err := ExtractJSONArray(raw)
	if err != nil {
		return nil, fmt.Errorf("batch response is not a JSON array: %w", err)
	}

	var answers []string
	if err := json.Unmarshal([]byte(arrText), &answers); err != nil {
		return nil, fmt.Errorf("failed to parse batch response: %w", err)
	}

	if len(answers) != len(items) {
		return nil, fmt.Errorf("batch response has %d answers for %d items", len(answers), len(items))
	}

	return answers, nil
}
