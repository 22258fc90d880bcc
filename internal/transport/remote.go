package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// RemoteKind selects the framing driver for a non-stdio endpoint: the
// remote variant wraps the same payload in either server-sent events or
// chunked HTTP POSTs.
type RemoteKind string

const (
	RemoteSSE            RemoteKind = "sse"
	RemoteStreamableHTTP RemoteKind = "streamable-http"
)

// RemoteClient speaks the same JSON-RPC envelope as StdioClient but over a
// chunked HTTP POST per request, optionally authenticated via an
// oauth2.TokenSource (client-credentials grant).
type RemoteClient struct {
	baseURL string
	kind    RemoteKind
	http    *http.Client
	tokens  oauth2.TokenSource
	logger  zerolog.Logger

	nextID int64

	errMu sync.Mutex
	errs  []TransportError
}

// NewRemoteClient builds a client against baseURL. tokens may be nil when
// the endpoint requires no auth.
func NewRemoteClient(baseURL string, kind RemoteKind, tokens oauth2.TokenSource, logger zerolog.Logger) *RemoteClient {
	return &RemoteClient{
		baseURL: baseURL,
		kind:    kind,
		http:    &http.Client{Timeout: 60 * time.Second},
		tokens:  tokens,
		logger:  logger,
	}
}

func (c *RemoteClient) recordError(e TransportError) {
	c.errMu.Lock()
	c.errs = append(c.errs, e)
	c.errMu.Unlock()
	c.logger.Warn().Str("category", string(e.Category)).Str("op", e.Operation).Msg(e.Message)
}

func (c *RemoteClient) Errors() []TransportError {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	out := make([]TransportError, len(c.errs))
	copy(out, c.errs)
	return out
}

func (c *RemoteClient) call(ctx context.Context, method string, params any, timeoutMs int) (*Response, error) {
	id := atomic.AddInt64(&c.nextID, 1)

	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal params for %s: %w", method, err)
		}
		raw = b
	}

	req := Request{JSONRPC: "2.0", ID: id, Method: method, Params: raw}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	deadline := time.Duration(timeoutMs) * time.Millisecond
	if deadline <= 0 {
		deadline = 30 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.kind == RemoteSSE {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	if c.tokens != nil {
		tok, terr := c.tokens.Token()
		if terr == nil {
			tok.SetAuthHeader(httpReq)
		}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		cerr := &CallError{TransportError{
			Timestamp: time.Now().UTC(), Category: classifyHTTPErr(callCtx, err),
			Message: fmt.Sprintf("%s request failed: %v", method, err), Operation: method,
		}}
		c.recordError(cerr.TransportError)
		return nil, cerr
	}
	defer resp.Body.Close()

	raw2, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	line := raw2
	if c.kind == RemoteSSE {
		line = extractSSEData(raw2)
	}

	var rpcResp Response
	if jerr := json.Unmarshal(line, &rpcResp); jerr != nil {
		e := TransportError{
			Timestamp: time.Now().UTC(), Category: CategoryInvalidJSON,
			Message: "response body failed to parse as JSON", RawError: string(raw2),
			Operation: method, LikelyServerBug: true,
		}
		c.recordError(e)
		return nil, &CallError{e}
	}
	if rpcResp.JSONRPC != "2.0" {
		e := TransportError{
			Timestamp: time.Now().UTC(), Category: CategoryProtocolError,
			Message: "reply missing or invalid jsonrpc field", RawError: string(raw2),
			Operation: method, LikelyServerBug: true,
		}
		c.recordError(e)
		return nil, &CallError{e}
	}

	return &rpcResp, nil
}

// extractSSEData pulls the last "data: ..." payload out of an SSE stream
// buffered in full (mcpwatch doesn't need incremental delivery for request
// framing; interview-level streaming happens only on the LLM side).
func extractSSEData(raw []byte) []byte {
	lines := bytes.Split(raw, []byte("\n"))
	var last []byte
	for _, l := range lines {
		l = bytes.TrimRight(l, "\r")
		if bytes.HasPrefix(l, []byte("data:")) {
			last = bytes.TrimSpace(bytes.TrimPrefix(l, []byte("data:")))
		}
	}
	if last == nil {
		return raw
	}
	return last
}

func classifyHTTPErr(ctx context.Context, err error) ErrorCategory {
	if ctx.Err() != nil {
		return CategoryTimeout
	}
	return CategoryConnRefused
}

func (c *RemoteClient) Initialize(ctx context.Context) (*InitializeResult, error) {
	resp, err := c.call(ctx, "initialize", map[string]any{
		"protocolVersion": "2024-11-05",
		"clientInfo":      map[string]string{"name": "mcpwatch", "version": "dev"},
	}, 30_000)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("initialize failed: %s", resp.Error.Message)
	}
	var result InitializeResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to parse initialize result: %w", err)
	}
	return &result, nil
}

func (c *RemoteClient) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	resp, err := c.call(ctx, "tools/list", nil, 15_000)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("tools/list failed: %s", resp.Error.Message)
	}
	var wrapper struct {
		Tools []ToolDescriptor `json:"tools"`
	}
	if err := json.Unmarshal(resp.Result, &wrapper); err != nil {
		return nil, fmt.Errorf("failed to parse tools/list result: %w", err)
	}
	return wrapper.Tools, nil
}

func (c *RemoteClient) ListPrompts(ctx context.Context) ([]PromptDescriptor, error) {
	resp, err := c.call(ctx, "prompts/list", nil, 15_000)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("prompts/list failed: %s", resp.Error.Message)
	}
	var wrapper struct {
		Prompts []PromptDescriptor `json:"prompts"`
	}
	if err := json.Unmarshal(resp.Result, &wrapper); err != nil {
		return nil, fmt.Errorf("failed to parse prompts/list result: %w", err)
	}
	return wrapper.Prompts, nil
}

func (c *RemoteClient) ListResources(ctx context.Context) ([]ResourceDescriptor, error) {
	resp, err := c.call(ctx, "resources/list", nil, 15_000)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("resources/list failed: %s", resp.Error.Message)
	}
	var wrapper struct {
		Resources []ResourceDescriptor `json:"resources"`
	}
	if err := json.Unmarshal(resp.Result, &wrapper); err != nil {
		return nil, fmt.Errorf("failed to parse resources/list result: %w", err)
	}
	return wrapper.Resources, nil
}

func (c *RemoteClient) CallTool(ctx context.Context, name string, args map[string]any, timeoutMs int) (*CallToolResult, error) {
	resp, err := c.call(ctx, "tools/call", map[string]any{
		"name":      name,
		"arguments": args,
	}, timeoutMs)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("tools/call %s failed: %s", name, resp.Error.Message)
	}
	var result CallToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to parse tools/call result: %w", err)
	}
	return &result, nil
}

// Close is a no-op for the remote driver: there is no persistent
// connection to tear down, each call is an independent HTTP request.
func (c *RemoteClient) Close() error { return nil }
