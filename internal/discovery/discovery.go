// Package discovery drives capability enumeration against a connected MCP
// server: initialize, then conditionally list tools/prompts/resources per
// advertised capability.
package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/blackcoderx/mcpwatch/internal/transport"
	"github.com/rs/zerolog"
)

// WarningLevel is the fixed level for an anomaly warning.
type WarningLevel string

const WarningLevelWarning WarningLevel = "warning"

// Warning is an anomaly emitted when a capability is advertised but its
// listing comes back empty.
type Warning struct {
	Level          WarningLevel `json:"level"`
	Message        string       `json:"message"`
	Recommendation string       `json:"recommendation"`
}

// Result bundles everything discovery produces for one target server.
type Result struct {
	Server    transport.ServerInfo         `json:"server"`
	Tools     []transport.ToolDescriptor   `json:"tools"`
	Prompts   []transport.PromptDescriptor `json:"prompts"`
	Resources []transport.ResourceDescriptor `json:"resources"`
	Warnings  []Warning                   `json:"warnings"`
}

func hasCapability(caps []string, name string) bool {
	for _, c := range caps {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// Discover issues initialize and the capability-conditional listing calls
// against client, collecting anomaly warnings along the way.
func Discover(ctx context.Context, client transport.Client, logger zerolog.Logger) (*Result, error) {
	init, err := client.Initialize(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovery: initialize failed: %w", err)
	}

	result := &Result{Server: init.Server}

	if hasCapability(init.Server.Capabilities, "tools") {
		tools, err := client.ListTools(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("tools/list failed after capability was advertised")
		} else {
			result.Tools = tools
			if len(tools) == 0 {
				result.Warnings = append(result.Warnings, Warning{
					Level:          WarningLevelWarning,
					Message:        "server advertises tools capability but returned no tools",
					Recommendation: "confirm the server registered its tools before advertising the capability",
				})
			}
		}
	}

	if hasCapability(init.Server.Capabilities, "prompts") {
		prompts, err := client.ListPrompts(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("prompts/list failed after capability was advertised")
		} else {
			result.Prompts = prompts
			if len(prompts) == 0 {
				result.Warnings = append(result.Warnings, Warning{
					Level:          WarningLevelWarning,
					Message:        "server advertises prompts capability but returned no prompts",
					Recommendation: "confirm the server registered its prompts before advertising the capability",
				})
			}
		}
	}

	if hasCapability(init.Server.Capabilities, "resources") {
		resources, err := client.ListResources(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("resources/list failed after capability was advertised")
		} else {
			result.Resources = resources
			if len(resources) == 0 {
				result.Warnings = append(result.Warnings, Warning{
					Level:          WarningLevelWarning,
					Message:        "server advertises resources capability but returned no resources",
					Recommendation: "confirm the server registered its resources before advertising the capability",
				})
			}
		}
	}

	return result, nil
}
