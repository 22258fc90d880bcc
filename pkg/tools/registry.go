package tools

import (
	"fmt"

	"github.com/blackcoderx/mcpwatch/internal/engine"
)

// Registry holds every Tool mcpwatch exposes to a driving agent, built up
// component by component the way the project this was adapted from wires
// its own tool belt (one register* method per concern rather than one
// monolithic constructor).
type Registry struct {
	Engine        *engine.Engine
	ServerCommand string

	tools  []Tool
	byName map[string]Tool
}

// NewRegistry creates an empty Registry bound to eng. serverCommand labels
// baselines written by tools that build or check against one.
func NewRegistry(eng *engine.Engine, serverCommand string) *Registry {
	return &Registry{
		Engine:        eng,
		ServerCommand: serverCommand,
		byName:        make(map[string]Tool),
	}
}

// RegisterAllTools wires every tool category.
func (r *Registry) RegisterAllTools() {
	r.registerDiscoveryTools()
	r.registerInterviewTools()
	r.registerBaselineTools()
}

func (r *Registry) register(t Tool) {
	r.tools = append(r.tools, t)
	r.byName[t.Name()] = t
}

func (r *Registry) registerDiscoveryTools() {
	r.register(NewDiscoverTool(r.Engine))
}

func (r *Registry) registerInterviewTools() {
	r.register(NewInterviewTool(r.Engine))
}

func (r *Registry) registerBaselineTools() {
	r.register(NewBuildBaselineTool(r.Engine, r.ServerCommand))
	r.register(NewCheckTool(r.Engine, r.ServerCommand))
}

// List returns every registered tool, in registration order.
func (r *Registry) List() []Tool {
	return r.tools
}

// Get returns the registered tool named name, or false if none matches.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Execute looks up name and runs it with args, the entry point a
// tool-calling agent loop drives.
func (r *Registry) Execute(name, args string) (string, error) {
	t, ok := r.Get(name)
	if !ok {
		return "", fmt.Errorf("unknown tool %q", name)
	}
	return t.Execute(args)
}
