package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// pendingCall is the sink a caller awaits for one outstanding request.
type pendingCall struct {
	resp chan *Response
	done chan struct{} // closed once resp has been delivered or cancelled
}

// StdioClient frames JSON-RPC over a child process's stdin/stdout, one
// object per newline-terminated line.
type StdioClient struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	logger zerolog.Logger

	nextID int64

	mu      sync.Mutex // guards pending and writes to stdin
	pending map[int64]*pendingCall
	closed  bool

	errMu sync.Mutex
	errs  []TransportError
}

// NewStdioClient spawns command with args and starts its reader loop. The
// caller must call Close when done to release the child process.
func NewStdioClient(ctx context.Context, command string, args []string, logger zerolog.Logger) (*StdioClient, error) {
	cmd := exec.CommandContext(ctx, command, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, &CallError{TransportError{
			Timestamp:       time.Now().UTC(),
			Category:        CategoryProcessSpawn,
			Message:         fmt.Sprintf("failed to spawn %s: %v", command, err),
			Operation:       "spawn",
			LikelyServerBug: false,
		}}
	}

	c := &StdioClient{
		cmd:     cmd,
		stdin:   stdin,
		stdout:  stdout,
		logger:  logger,
		pending: make(map[int64]*pendingCall),
	}

	go c.readLoop()
	go c.drainStderr(stderr)

	return c, nil
}

// readLoop is the single producer correlating inbound lines to pending
// requests by id.
func (c *StdioClient) readLoop() {
	scanner := bufio.NewScanner(c.stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var resp Response
		if err := json.Unmarshal(line, &resp); err != nil {
			c.recordError(TransportError{
				Timestamp:       time.Now().UTC(),
				Category:        CategoryInvalidJSON,
				Message:         "stdout line failed to parse as JSON",
				RawError:        string(line),
				Operation:       "read",
				LikelyServerBug: true,
			})
			continue
		}

		if resp.JSONRPC != "2.0" {
			c.recordError(TransportError{
				Timestamp:       time.Now().UTC(),
				Category:        CategoryProtocolError,
				Message:         "reply missing or invalid jsonrpc field",
				RawError:        string(line),
				Operation:       "read",
				LikelyServerBug: true,
			})
			continue
		}

		c.mu.Lock()
		call, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.mu.Unlock()

		if !ok {
			c.recordError(TransportError{
				Timestamp:       time.Now().UTC(),
				Category:        CategoryProtocolError,
				Message:         fmt.Sprintf("reply references unknown request id %d", resp.ID),
				RawError:        string(line),
				Operation:       "read",
				LikelyServerBug: true,
			})
			continue
		}

		respCopy := resp
		select {
		case call.resp <- &respCopy:
		default:
		}
		close(call.done)
	}

	// Connection severed: drain any callers still waiting.
	c.mu.Lock()
	remaining := c.pending
	c.pending = make(map[int64]*pendingCall)
	c.mu.Unlock()

	for _, call := range remaining {
		close(call.done)
	}
}

func (c *StdioClient) drainStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		c.logger.Debug().Str("stream", "stderr").Str("line", scanner.Text()).Msg("child stderr")
	}
}

func (c *StdioClient) recordError(e TransportError) {
	c.errMu.Lock()
	c.errs = append(c.errs, e)
	c.errMu.Unlock()
	c.logger.Warn().Str("category", string(e.Category)).Str("op", e.Operation).Msg(e.Message)
}

// Errors returns a snapshot of transport errors recorded so far.
func (c *StdioClient) Errors() []TransportError {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	out := make([]TransportError, len(c.errs))
	copy(out, c.errs)
	return out
}

// call sends method/params and blocks until a reply arrives, ctx is done,
// or the connection closes, whichever happens first.
func (c *StdioClient) call(ctx context.Context, method string, params any, timeoutMs int) (*Response, error) {
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
	line, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	line = append(line, '\n')

	call := &pendingCall{resp: make(chan *Response, 1), done: make(chan struct{})}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, &CallError{TransportError{
			Timestamp: time.Now().UTC(), Category: CategoryCancelled,
			Message: "transport closed", Operation: method,
		}}
	}
	c.pending[id] = call
	_, werr := c.stdin.Write(line)
	c.mu.Unlock()

	if werr != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, &CallError{TransportError{
			Timestamp: time.Now().UTC(), Category: CategoryConnRefused,
			Message: fmt.Sprintf("failed to write request: %v", werr), Operation: method,
		}}
	}

	deadline := time.Duration(timeoutMs) * time.Millisecond
	if deadline <= 0 {
		deadline = 30 * time.Second
	}
	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case <-call.done:
		select {
		case resp := <-call.resp:
			return resp, nil
		default:
			return nil, &CallError{TransportError{
				Timestamp: time.Now().UTC(), Category: CategoryCancelled,
				Message: "connection closed before reply", Operation: method,
			}}
		}
	case <-timer.C:
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		err := &CallError{TransportError{
			Timestamp: time.Now().UTC(), Category: CategoryTimeout,
			Message: fmt.Sprintf("%s timed out after %s", method, deadline), Operation: method,
		}}
		c.recordError(err.TransportError)
		return nil, err
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, &CallError{TransportError{
			Timestamp: time.Now().UTC(), Category: CategoryCancelled,
			Message: "call cancelled", Operation: method,
		}}
	}
}

func (c *StdioClient) Initialize(ctx context.Context) (*InitializeResult, error) {
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

func (c *StdioClient) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
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

func (c *StdioClient) ListPrompts(ctx context.Context) ([]PromptDescriptor, error) {
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

func (c *StdioClient) ListResources(ctx context.Context) ([]ResourceDescriptor, error) {
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

func (c *StdioClient) CallTool(ctx context.Context, name string, args map[string]any, timeoutMs int) (*CallToolResult, error) {
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

// Close terminates the child process and drains pending callers.
func (c *StdioClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	remaining := c.pending
	c.pending = make(map[int64]*pendingCall)
	c.mu.Unlock()

	for _, call := range remaining {
		close(call.done)
	}

	_ = c.stdin.Close()
	if c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
	return c.cmd.Wait()
}
