package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/blackcoderx/mcpwatch/internal/config"
	"github.com/blackcoderx/mcpwatch/internal/engine"
	"github.com/blackcoderx/mcpwatch/internal/logging"
	"github.com/blackcoderx/mcpwatch/pkg/tools"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	cfgFile      string
	logLevel     string
	transportKind string
	command      string
	commandArgs  []string
	serverURL    string
	baselinePath string
	personaNames []string

	rootCmd = &cobra.Command{
		Use:   "mcpwatch",
		Short: "mcpwatch behaviorally interviews MCP servers and watches them for drift",
		Long: `mcpwatch is a behavioral interviewer and drift detector for MCP servers.
It discovers a server's tools, drives an LLM-guided interview across several
personas, assembles a behavioral baseline, and diffs baselines to classify
drift as breaking, warning, or informational.`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .mcpwatch/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&transportKind, "transport", "", "transport kind: stdio, sse, streamable-http (overrides config)")
	rootCmd.PersistentFlags().StringVar(&command, "command", "", "stdio server command to launch (overrides config)")
	rootCmd.PersistentFlags().StringArrayVar(&commandArgs, "arg", nil, "argument to pass to --command, may be repeated")
	rootCmd.PersistentFlags().StringVar(&serverURL, "url", "", "server URL for sse/streamable-http transports (overrides config)")

	discoverCmd.Flags().StringSliceVar(&personaNames, "persona", nil, "accepted but ignored: discover runs no interview")
	interviewCmd.Flags().StringSliceVar(&personaNames, "persona", nil, "limit to these persona ids (default: all)")

	baselineCmd.Flags().StringVar(&baselinePath, "output", "", "path to write the baseline to (required)")
	baselineCmd.Flags().StringSliceVar(&personaNames, "persona", nil, "limit to these persona ids (default: all)")
	_ = baselineCmd.MarkFlagRequired("output")

	checkCmd.Flags().StringVar(&baselinePath, "baseline", "", "path to the stored baseline to diff against (required)")
	checkCmd.Flags().StringSliceVar(&personaNames, "persona", nil, "limit to these persona ids (default: all)")
	_ = checkCmd.MarkFlagRequired("baseline")

	rootCmd.AddCommand(discoverCmd, interviewCmd, baselineCmd, checkCmd, versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".mcpwatch")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}
	viper.SetEnvPrefix("MCPWATCH")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Enumerate a server's tools, prompts, and resources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRegistry(func(r *tools.Registry) error {
			out, err := r.Execute("discover_server", "{}")
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		})
	},
}

var interviewCmd = &cobra.Command{
	Use:   "explore",
	Short: "Interview a server's tools and print what was learned",
	RunE: func(cmd *cobra.Command, args []string) error {
		argsJSON, err := json.Marshal(tools.InterviewParams{Personas: personaNames})
		if err != nil {
			return err
		}
		return withRegistry(func(r *tools.Registry) error {
			out, err := r.Execute("interview_tools", string(argsJSON))
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		})
	},
}

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Interview a server and save a behavioral baseline",
	RunE: func(cmd *cobra.Command, args []string) error {
		argsJSON, err := json.Marshal(tools.BuildBaselineParams{OutputPath: baselinePath, Personas: personaNames})
		if err != nil {
			return err
		}
		return withRegistry(func(r *tools.Registry) error {
			out, err := r.Execute("build_baseline", string(argsJSON))
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		})
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Re-interview a server and diff it against a stored baseline",
	RunE: func(cmd *cobra.Command, args []string) error {
		argsJSON, err := json.Marshal(tools.CheckParams{BaselinePath: baselinePath, Personas: personaNames})
		if err != nil {
			return err
		}
		return withRegistry(func(r *tools.Registry) error {
			out, err := r.Execute("check_against_baseline", string(argsJSON))
			if err != nil {
				return err
			}
			fmt.Println(styleSeverityLine(out))
			return nil
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mcpwatch %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

// withRegistry loads config, overlays any transport flags, connects an
// Engine, builds its tool Registry, and runs fn against it, always closing
// the Engine's connection afterward.
func withRegistry(fn func(r *tools.Registry) error) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: failed to load .env file: %v\n", err)
	}

	path := cfgFile
	if path == "" {
		path = viper.ConfigFileUsed()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyTransportFlags(&cfg)

	logger := logging.New(os.Stderr, logLevel)

	eng, err := engine.New(context.Background(), cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}
	defer eng.Close()

	registry := tools.NewRegistry(eng, serverLabel(cfg))
	registry.RegisterAllTools()

	return fn(registry)
}

func applyTransportFlags(cfg *config.Config) {
	if transportKind != "" {
		cfg.Transport.Kind = transportKind
	}
	if command != "" {
		cfg.Transport.Command = command
		cfg.Transport.Args = commandArgs
	}
	if serverURL != "" {
		cfg.Transport.URL = serverURL
	}
}

func serverLabel(cfg config.Config) string {
	if cfg.Transport.URL != "" {
		return cfg.Transport.URL
	}
	return cfg.Transport.Command
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
