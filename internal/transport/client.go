package transport

import (
	"context"
	"encoding/json"
)

// ToolDescriptor is a server-advertised tool, populated from tools/list.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// PromptDescriptor and ResourceDescriptor are the prompts/list and
// resources/list counterparts; discovery treats them only as evidence for
// advertised-but-empty warnings, so they carry just enough shape to
// support that.
type PromptDescriptor struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type ResourceDescriptor struct {
	URI         string `json:"uri"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// ServerInfo is the subset of the initialize reply discovery cares about.
type ServerInfo struct {
	Name             string   `json:"name"`
	Version          string   `json:"version"`
	ProtocolVersion  string   `json:"protocolVersion"`
	Capabilities     []string `json:"capabilities"`
}

// InitializeResult is the parsed reply to the initialize call.
type InitializeResult struct {
	Server ServerInfo `json:"serverInfo"`
}

// CallToolResult is the parsed reply to tools/call.
type CallToolResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// ContentBlock is one element of a tool call's content array. Only Text is
// interpreted by the core; Type is preserved for fingerprinting.
type ContentBlock struct {
	Type string          `json:"type"`
	Text string          `json:"text,omitempty"`
	Raw  json.RawMessage `json:"-"`
}

// Client is the contract the rest of mcpwatch depends on. Both the stdio
// child-process driver and the remote SSE/HTTP driver implement it
// identically from the caller's point of view.
type Client interface {
	Initialize(ctx context.Context) (*InitializeResult, error)
	ListTools(ctx context.Context) ([]ToolDescriptor, error)
	ListPrompts(ctx context.Context) ([]PromptDescriptor, error)
	ListResources(ctx context.Context) ([]ResourceDescriptor, error)
	CallTool(ctx context.Context, name string, args map[string]any, timeoutMs int) (*CallToolResult, error)

	// Errors returns a snapshot of transport errors recorded so far.
	Errors() []TransportError

	// Close terminates the underlying connection/process, cancelling any
	// pending calls with CategoryCancelled.
	Close() error
}
