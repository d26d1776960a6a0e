package tools

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// RegisterBuiltins adds the built-in adapters to a registry.
func RegisterBuiltins(r *Registry) {
	r.Register(EchoTool{})
	r.Register(WaitTool{})
	r.Register(TimeTool{})
	r.Register(NewHTTPHeadTool(10 * time.Second))
}

// EchoTool returns its "text" parameter. Useful for plan smoke tests.
type EchoTool struct{}

func (EchoTool) Name() string        { return "echo" }
func (EchoTool) Description() string { return "Return the given text unchanged" }

func (EchoTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	text, _ := params["text"].(string)
	if text == "" {
		return "", fmt.Errorf("echo requires a text parameter")
	}
	return text, nil
}

// WaitTool sleeps for a duration. It exists to exercise concurrent
// scheduling and timeouts against a predictable slow step.
type WaitTool struct{}

func (WaitTool) Name() string        { return "wait" }
func (WaitTool) Description() string { return "Wait for the given duration, e.g. 500ms or 2s" }

func (WaitTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	raw, _ := params["duration"].(string)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return "", fmt.Errorf("wait requires a valid duration parameter: %w", err)
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(d):
		return fmt.Sprintf("waited %s", d), nil
	}
}

// TimeTool reports the current time.
type TimeTool struct{}

func (TimeTool) Name() string        { return "time.now" }
func (TimeTool) Description() string { return "Get the current date and time" }

func (TimeTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	loc := time.Local
	if tz, _ := params["timezone"].(string); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return "", fmt.Errorf("unknown timezone %q: %w", tz, err)
		}
		loc = l
	}
	return time.Now().In(loc).Format("Mon, 02 Jan 2006 15:04:05 MST"), nil
}

// HTTPHeadTool checks whether a URL is reachable.
type HTTPHeadTool struct {
	client *http.Client
}

// NewHTTPHeadTool creates the reachability checker with a timeout.
func NewHTTPHeadTool(timeout time.Duration) *HTTPHeadTool {
	return &HTTPHeadTool{client: &http.Client{Timeout: timeout}}
}

func (*HTTPHeadTool) Name() string        { return "http.head" }
func (*HTTPHeadTool) Description() string { return "Check whether a URL responds, via HEAD request" }

func (t *HTTPHeadTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	url, _ := params["url"].(string)
	if url == "" {
		return "", fmt.Errorf("http.head requires a url parameter")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "", fmt.Errorf("url must start with http:// or https://")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	resp.Body.Close()

	return fmt.Sprintf("%s responded with %s", url, resp.Status), nil
}
