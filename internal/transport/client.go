package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/RyanProMax/stock-analysis/internal/events"
)

// Client consumes the streaming endpoint from the other side of the wire.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient targets a running server, e.g. "http://localhost:8000".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Minute},
	}
}

// Stream opens one analysis session and invokes handle for every decoded
// event, in order, until the stream ends. Events of unknown kind are
// skipped so newer servers stay consumable. A non-nil error from handle
// aborts the stream.
func (c *Client) Stream(ctx context.Context, symbol string, handle func(events.Event) error) error {
	endpoint := fmt.Sprintf("%s/api/agent/analyze?symbol=%s", c.baseURL, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return ReadStream(resp.Body, handle)
}

// ReadStream decodes an SSE body into events. Only data: lines matter;
// event: lines are redundant with the payload's own type tag and comment
// or retry lines are ignored per the SSE grammar.
func ReadStream(r io.Reader, handle func(events.Event) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		ev, err := events.DecodeWire([]byte(payload))
		if err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		if ev.Kind == events.KindUnknown {
			continue
		}
		if err := handle(ev); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return nil
}
