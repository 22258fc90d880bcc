// Package engine wires the A-J internal packages into the handful of
// end-to-end operations mcpwatch exposes: discover a server, interview
// it, assemble a baseline, and diff two baselines. Both cmd/mcpwatch and
// pkg/tools call through here rather than reimplementing the wiring.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/blackcoderx/mcpwatch/internal/baseline"
	"github.com/blackcoderx/mcpwatch/internal/cache"
	"github.com/blackcoderx/mcpwatch/internal/comparator"
	"github.com/blackcoderx/mcpwatch/internal/config"
	"github.com/blackcoderx/mcpwatch/internal/discovery"
	"github.com/blackcoderx/mcpwatch/internal/interview"
	"github.com/blackcoderx/mcpwatch/internal/llm"
	"github.com/blackcoderx/mcpwatch/internal/transport"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// Engine bundles the shared services one run of mcpwatch needs: a
// connected transport, the response cache, and an LLM client for
// question generation.
type Engine struct {
	Config config.Config
	Client transport.Client
	Cache  *cache.Cache
	LLM    *llm.TokenBudget
	Logger zerolog.Logger
}

// New connects to the target described by cfg.Transport and assembles an
// Engine. The caller owns the returned Engine and must call Close when
// done.
func New(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Engine, error) {
	client, err := newTransport(ctx, cfg.Transport, logger)
	if err != nil {
		return nil, fmt.Errorf("engine: failed to connect transport: %w", err)
	}

	respCache := cache.New(cache.Options{
		MaxEntries:   cfg.Cache.MaxEntries,
		MaxSizeBytes: cfg.Cache.MaxSizeBytes,
		TTL:          cfg.CacheTTL(),
		DiskDir:      cfg.Cache.DiskDir,
	})

	providers, err := buildProviders(ctx, cfg.Providers)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("engine: failed to build LLM providers: %w", err)
	}

	fallback := llm.NewFallbackClient(providers, 3, llm.WithLogger(logger))
	budgeted := llm.NewTokenBudget(fallback, 120_000, false, 2)

	return &Engine{Config: cfg, Client: client, Cache: respCache, LLM: budgeted, Logger: logger}, nil
}

func newTransport(ctx context.Context, tc config.TransportConfig, logger zerolog.Logger) (transport.Client, error) {
	switch tc.Kind {
	case "", "stdio":
		return transport.NewStdioClient(ctx, tc.Command, tc.Args, logger)
	case "sse":
		return transport.NewRemoteClient(tc.URL, transport.RemoteSSE, tokenSourceFromEnv(), logger), nil
	case "streamable-http":
		return transport.NewRemoteClient(tc.URL, transport.RemoteStreamableHTTP, tokenSourceFromEnv(), logger), nil
	default:
		return nil, fmt.Errorf("engine: unknown transport kind %q", tc.Kind)
	}
}

// tokenSourceFromEnv returns nil, deferring to RemoteClient's unauthenticated
// path; a future config knob can supply a real oauth2.TokenSource for
// servers that require bearer auth.
func tokenSourceFromEnv() oauth2.TokenSource {
	return nil
}

func buildProviders(ctx context.Context, cfgs []config.ProviderConfig) ([]llm.Provider, error) {
	var providers []llm.Provider
	for _, pc := range cfgs {
		switch pc.Name {
		case "gemini":
			p, err := llm.NewGeminiProvider(ctx, pc.APIKey, pc.Model)
			if err != nil {
				return nil, fmt.Errorf("provider %s: %w", pc.Name, err)
			}
			providers = append(providers, p)
		default:
			// No concrete driver is wired for this provider name yet; it
			// stays configured (so ordering/health slots remain stable if
			// one is added later) but is skipped at construction time.
		}
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no usable LLM providers configured")
	}
	return providers, nil
}

// Close releases the underlying transport connection.
func (e *Engine) Close() error {
	return e.Client.Close()
}

// Discover runs capability discovery against the connected server (A+B).
func (e *Engine) Discover(ctx context.Context) (*discovery.Result, error) {
	return discovery.Discover(ctx, e.Client, e.Logger)
}

// Interview runs the full persona-scheduled interview (G, backed by D
// and C) over disc's discovered tools.
func (e *Engine) Interview(ctx context.Context, disc *discovery.Result, personas []interview.Persona) (map[string]*interview.ToolProfile, error) {
	if len(personas) == 0 {
		personas = DefaultPersonas()
	}

	generator := interview.NewLLMQuestionGenerator(e.LLM, e.Config.Interview.QuestionsPerTool)
	orch := interview.New(e.Client, e.Cache, generator, e.Logger, interview.Config{
		ToolTimeoutMs:         e.Config.Interview.ToolTimeoutMs,
		MaxConcurrentPersonas: e.Config.Interview.MaxConcurrency,
	})

	return orch.Run(ctx, disc.Tools, personas)
}

// BuildBaseline assembles a BehavioralBaseline from one interview run (H).
func (e *Engine) BuildBaseline(serverCommand string, disc *discovery.Result, profiles map[string]*interview.ToolProfile) (baseline.BehavioralBaseline, error) {
	summary := fmt.Sprintf("interviewed %d tool(s) at %s", len(profiles), time.Now().UTC().Format(time.RFC3339))
	return baseline.Build(serverCommand, disc, profiles, summary)
}

// Check runs discover+interview+build against the live server and diffs
// the freshly built baseline against the one stored at baselinePath,
// loading it first (H load + I diff). If no baseline exists yet at
// baselinePath, Check returns the fresh baseline with a nil diff.
func (e *Engine) Check(ctx context.Context, serverCommand, baselinePath string, personas []interview.Persona) (*baseline.BehavioralBaseline, *comparator.BehavioralDiff, error) {
	runID := uuid.New().String()
	log := e.Logger.With().Str("runId", runID).Logger()
	log.Info().Str("baseline", baselinePath).Msg("starting check run")

	disc, err := e.Discover(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("engine: discovery failed: %w", err)
	}

	profiles, err := e.Interview(ctx, disc, personas)
	if err != nil {
		return nil, nil, fmt.Errorf("engine: interview failed: %w", err)
	}

	fresh, err := e.BuildBaseline(serverCommand, disc, profiles)
	if err != nil {
		return nil, nil, fmt.Errorf("engine: baseline assembly failed: %w", err)
	}
	log.Info().Int("tools", len(fresh.Tools)).Msg("baseline assembled")

	prev, err := baseline.Load(baselinePath, baseline.LoadOptions{})
	if err != nil {
		// No prior baseline (first run against this server) is not a
		// failure; every other load error is.
		if errors.Is(err, os.ErrNotExist) {
			return &fresh, nil, nil
		}
		return &fresh, nil, fmt.Errorf("engine: failed to load previous baseline: %w", err)
	}

	diff := comparator.Diff(*prev, fresh)
	log.Info().Str("severity", string(diff.Severity)).Msg("check run complete")
	return &fresh, &diff, nil
}
