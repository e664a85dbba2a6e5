package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jlaustill/cnextc/internal/cache"
	"github.com/jlaustill/cnextc/internal/config"
	"github.com/jlaustill/cnextc/internal/depgraph"
	"github.com/jlaustill/cnextc/internal/graph/neo4j"
	"github.com/jlaustill/cnextc/internal/observability"
	"github.com/jlaustill/cnextc/internal/pipeline"
	"github.com/jlaustill/cnextc/internal/source"
)

// version is stamped by the release build via -ldflags.
var version = "0.1.0"

func main() {
	var (
		outputDir    string
		includePaths []string
		configPath   string
		noCache      bool
		jsonOutput   bool
	)

	rootCmd := &cobra.Command{
		Use:   "cnextc",
		Short: "C-Next to portable C transpiler",
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the compiler version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("cnextc %s\n", version)
		},
	}

	compileCmd := &cobra.Command{
		Use:   "compile <file-or-directory>",
		Short: "Compile C-Next sources to C",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(args[0], configPath, outputDir, includePaths, noCache, jsonOutput)
		},
	}
	compileCmd.Flags().StringVar(&outputDir, "output", "", "Output directory for generated .c/.h files")
	compileCmd.Flags().StringSliceVar(&includePaths, "include", nil, "Additional include search paths")
	compileCmd.Flags().StringVar(&configPath, "config", "cnextc.yaml", "Config file path")
	compileCmd.Flags().BoolVar(&noCache, "no-cache", false, "Disable the dependency cache")
	compileCmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit diagnostics as JSON")

	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the dependency cache",
	}
	cacheClearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(configPath)
			if err != nil {
				return err
			}
			store, err := cache.NewStore(cfg.Build.CacheDir)
			if err != nil {
				return err
			}
			return store.Clear()
		},
	}
	cacheClearCmd.Flags().StringVar(&configPath, "config", "cnextc.yaml", "Config file path")
	cacheCmd.AddCommand(cacheClearCmd)

	graphCmd := &cobra.Command{
		Use:   "graph",
		Short: "Dependency graph operations",
	}
	graphExportCmd := &cobra.Command{
		Use:   "export <file-or-directory>",
		Short: "Export the dependency and symbol graph to Neo4j",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraphExport(args[0], configPath, includePaths)
		},
	}
	graphExportCmd.Flags().StringVar(&configPath, "config", "cnextc.yaml", "Config file path")
	graphExportCmd.Flags().StringSliceVar(&includePaths, "include", nil, "Additional include search paths")

	graphDotCmd := &cobra.Command{
		Use:   "dot <file-or-directory>",
		Short: "Print the dependency graph in Graphviz DOT format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraphPrint(args[0], configPath, includePaths, "dot")
		},
	}
	graphDotCmd.Flags().StringVar(&configPath, "config", "cnextc.yaml", "Config file path")
	graphDotCmd.Flags().StringSliceVar(&includePaths, "include", nil, "Additional include search paths")

	graphStatsCmd := &cobra.Command{
		Use:   "stats <file-or-directory>",
		Short: "Print dependency graph statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraphPrint(args[0], configPath, includePaths, "stats")
		},
	}
	graphStatsCmd.Flags().StringVar(&configPath, "config", "cnextc.yaml", "Config file path")
	graphStatsCmd.Flags().StringSliceVar(&includePaths, "include", nil, "Additional include search paths")

	graphCmd.AddCommand(graphExportCmd, graphDotCmd, graphStatsCmd)

	rootCmd.AddCommand(compileCmd, cacheCmd, graphCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(cfg.Log.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func buildConfig(configPath, outputDir string, includePaths []string, noCache bool) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, err
	}
	if outputDir != "" {
		cfg.Build.OutputDir = outputDir
	}
	cfg.Build.IncludePaths = append(cfg.Build.IncludePaths, includePaths...)
	if noCache {
		cfg.Build.NoCache = true
	}
	return cfg, nil
}

func runCompile(path, configPath, outputDir string, includePaths []string, noCache, jsonOutput bool) error {
	ctx := context.Background()
	cfg, err := buildConfig(configPath, outputDir, includePaths, noCache)
	if err != nil {
		return err
	}
	log := setupLogger(cfg)

	tp, err := observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:    "cnextc",
		ServiceVersion: version,
		OTLPEndpoint:   cfg.Trace.Endpoint,
		SampleRate:     1.0,
	})
	if err != nil {
		return err
	}
	defer tp.Shutdown(ctx)

	sources, err := source.Discover(path)
	if err != nil {
		return err
	}

	p, err := pipeline.New(cfg, log)
	if err != nil {
		return err
	}
	results, buildErr := p.CompileAll(ctx, sources)

	if jsonOutput {
		report := struct {
			Units  int              `json:"units"`
			Failed int              `json:"failed"`
			Diags  map[string][]any `json:"diagnostics,omitempty"`
		}{Units: len(results), Diags: map[string][]any{}}
		for _, r := range results {
			if r.Failed() {
				report.Failed++
				for _, d := range r.Diags {
					report.Diags[r.Source] = append(report.Diags[r.Source], d)
				}
			}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
		return buildErr
	}

	for _, r := range results {
		if r.Failed() {
			fmt.Fprint(os.Stderr, pipeline.FormatDiagnostics(r.Diags))
		}
	}
	return buildErr
}

func runGraphExport(path, configPath string, includePaths []string) error {
	ctx := context.Background()
	cfg, err := buildConfig(configPath, "", includePaths, false)
	if err != nil {
		return err
	}
	if cfg.Graph.URI == "" {
		return fmt.Errorf("graph.uri is not configured")
	}
	log := setupLogger(cfg)

	repo, err := neo4j.NewNeo4j(ctx, cfg.Graph.URI, cfg.Graph.Username, cfg.Graph.Password)
	if err != nil {
		return err
	}
	defer repo.Close(ctx)

	g, err := buildGraph(ctx, cfg, log, path)
	if err != nil {
		return err
	}
	if err := repo.StoreGraph(ctx, g); err != nil {
		return err
	}
	log.Info("graph export complete",
		"files", g.Stats.FileCount, "symbols", g.Stats.SymbolCount, "edges", g.Stats.EdgeCount)
	return nil
}

func runGraphPrint(path, configPath string, includePaths []string, format string) error {
	ctx := context.Background()
	cfg, err := buildConfig(configPath, "", includePaths, false)
	if err != nil {
		return err
	}
	log := setupLogger(cfg)

	g, err := buildGraph(ctx, cfg, log, path)
	if err != nil {
		return err
	}
	switch format {
	case "dot":
		fmt.Print(depgraph.ExportDOT(g))
	case "stats":
		fmt.Print(depgraph.FormatStats(g))
	}
	return nil
}

// buildGraph compiles every discovered unit and accumulates the
// include and symbol graph across all of them.
func buildGraph(ctx context.Context, cfg *config.Config, log *slog.Logger, path string) (*depgraph.Graph, error) {
	sources, err := source.Discover(path)
	if err != nil {
		return nil, err
	}
	p, err := pipeline.New(cfg, log)
	if err != nil {
		return nil, err
	}

	builder := depgraph.NewBuilder()
	for _, src := range sources {
		res := p.CompileUnit(ctx, src)
		if res.Failed() {
			fmt.Fprint(os.Stderr, pipeline.FormatDiagnostics(res.Diags))
			continue
		}
		builder.AddUnit(res.Node, res.Symbols)
	}
	return builder.Graph(), nil
}
