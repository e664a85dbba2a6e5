// Package pipeline orchestrates one or more translation units through
// resolve, collect, parse, generate, and cache. Units are independent:
// a failing file reports its diagnostics and the build moves on to the
// next one.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jlaustill/cnextc/internal/cache"
	"github.com/jlaustill/cnextc/internal/codegen"
	"github.com/jlaustill/cnextc/internal/config"
	"github.com/jlaustill/cnextc/internal/diag"
	"github.com/jlaustill/cnextc/internal/lang"
	"github.com/jlaustill/cnextc/internal/observability"
	"github.com/jlaustill/cnextc/internal/preproc"
	"github.com/jlaustill/cnextc/internal/readers"
	"github.com/jlaustill/cnextc/internal/readers/cheader"
	"github.com/jlaustill/cnextc/internal/readers/cnext"
	"github.com/jlaustill/cnextc/internal/readers/cppheader"
	"github.com/jlaustill/cnextc/internal/readers/system"
	"github.com/jlaustill/cnextc/internal/symbols"
)

// UnitResult is the outcome of compiling one source file.
type UnitResult struct {
	Source      string
	Output      codegen.Output
	Diags       []*diag.Diagnostic
	CacheHit    bool
	SymbolCount int
	Node        *preproc.Node     // resolved dependency tree
	Symbols     []*symbols.Symbol // foreign symbols the unit compiled against
}

// Failed reports whether the unit produced any diagnostics.
func (r UnitResult) Failed() bool { return len(r.Diags) > 0 }

// Pipeline drives the compiler stages with shared configuration.
type Pipeline struct {
	cfg      *config.Config
	log      *slog.Logger
	registry *readers.Registry
	store    *cache.Store // nil when caching is disabled
}

// New wires the reader registry and, unless disabled, the cache store.
func New(cfg *config.Config, log *slog.Logger) (*Pipeline, error) {
	reg := readers.NewRegistry()
	reg.Register(cheader.New())
	reg.Register(cppheader.New())
	reg.Register(cnext.Reader{})
	reg.Register(system.Reader{})

	p := &Pipeline{cfg: cfg, log: log, registry: reg}
	if !cfg.Build.NoCache {
		store, err := cache.NewStore(cfg.Build.CacheDir)
		if err != nil {
			return nil, err
		}
		p.store = store
	}
	return p, nil
}

// CompileAll compiles every source and writes outputs for the units
// that succeeded. The returned error summarizes failures without
// masking the per-unit diagnostics in the results.
func (p *Pipeline) CompileAll(ctx context.Context, sources []string) ([]UnitResult, error) {
	results := make([]UnitResult, 0, len(sources))
	failed := 0
	for _, src := range sources {
		res := p.CompileUnit(ctx, src)
		if res.Failed() {
			failed++
			p.log.Error("unit failed", "source", src, "diagnostics", len(res.Diags))
		} else {
			if err := p.writeOutputs(src, res.Output); err != nil {
				return results, err
			}
			p.log.Info("unit compiled", "source", src,
				"cache_hit", res.CacheHit, "symbols", res.SymbolCount)
		}
		results = append(results, res)
	}
	if failed > 0 {
		return results, fmt.Errorf("%d of %d units failed", failed, len(sources))
	}
	return results, nil
}

// CompileUnit runs one source file through the full pipeline.
func (p *Pipeline) CompileUnit(ctx context.Context, src string) UnitResult {
	ctx, span := observability.StartUnitSpan(ctx, src)
	defer span.End()

	res := UnitResult{Source: src}
	errs := &diag.Collector{}

	table, root := p.prepare(ctx, src, &res, errs)
	if errs.HasErrors() {
		res.Diags = errs.All()
		observability.RecordUnitResult(span, res.CacheHit, res.SymbolCount, len(res.Diags))
		return res
	}
	res.Node = root
	res.Symbols = dumpSymbols(table)
	res.SymbolCount = table.Len()

	_, parseSpan := observability.StartStageSpan(ctx, observability.StageParse)
	content, err := os.ReadFile(src)
	if err != nil {
		parseSpan.End()
		errs.AddError(diag.ParseError, diag.Pos{File: src}, err)
		res.Diags = errs.All()
		return res
	}
	f := lang.Parse(src, string(content), errs)
	parseSpan.End()

	_, genSpan := observability.StartStageSpan(ctx, observability.StageGenerate)
	res.Output = codegen.New(table, errs).Generate(f)
	genSpan.End()

	if errs.HasErrors() {
		res.Diags = errs.All()
	}
	observability.RecordUnitResult(span, res.CacheHit, res.SymbolCount, len(res.Diags))
	return res
}

// prepare produces the foreign-symbol table for src: from the cache on
// a fresh entry, or by resolving and collecting the dependency tree.
func (p *Pipeline) prepare(ctx context.Context, src string, res *UnitResult, errs *diag.Collector) (*symbols.Table, *preproc.Node) {
	if p.store != nil {
		_, cacheSpan := observability.StartStageSpan(ctx, observability.StageCache)
		entry, hit, err := p.store.Load(src)
		cacheSpan.End()
		if err != nil {
			p.log.Warn("cache read failed", "source", src, "error", err)
		} else if hit {
			res.CacheHit = true
			return cache.TableFromEntry(entry), cache.Rebuild(entry)
		}
	}

	_, resolveSpan := observability.StartStageSpan(ctx, observability.StageResolve)
	resolver := preproc.NewResolver(p.cfg.Build.IncludePaths)
	root, order, err := resolver.Resolve(src)
	resolveSpan.End()
	if err != nil {
		errs.AddError(diag.UnresolvedInclude, diag.Pos{File: src}, err)
		return nil, nil
	}

	_, collectSpan := observability.StartStageSpan(ctx, observability.StageCollect)
	table := symbols.NewTable()
	for _, node := range order {
		if node == root {
			continue // the unit's own symbols enter during generation
		}
		reader, rerr := p.registry.For(node.Language)
		if rerr != nil {
			errs.Add(diag.New(diag.UnknownLanguage,
				diag.Pos{File: node.AbsolutePath}, "%v", rerr))
			continue
		}
		reader.Collect(readers.File{Path: node.AbsolutePath, Content: node.RawContent}, table, errs)
	}
	collectSpan.End()

	if p.store != nil && !errs.HasErrors() {
		nodes, mtimes := cache.Flatten(root)
		entry := &cache.Entry{
			Source:  src,
			Root:    root.AbsolutePath,
			Nodes:   nodes,
			MTimes:  mtimes,
			Symbols: dumpSymbols(table),
		}
		for _, name := range table.RegisterNames() {
			if reg, ok := table.Register(name); ok {
				entry.Registers = append(entry.Registers, reg)
			}
		}
		if err := p.store.Save(entry); err != nil {
			p.log.Warn("cache write failed", "source", src, "error", err)
		}
	}
	return table, root
}

func dumpSymbols(table *symbols.Table) []*symbols.Symbol {
	var out []*symbols.Symbol
	for _, name := range table.Names() {
		out = append(out, table.LookupAll(name)...)
	}
	return out
}

// writeOutputs places the generated .c/.h pair in the configured output
// directory, or alongside the source when none is set.
func (p *Pipeline) writeOutputs(src string, out codegen.Output) error {
	dir := p.cfg.Build.OutputDir
	if dir == "" {
		dir = filepath.Dir(src)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	cPath := filepath.Join(dir, out.Unit+".c")
	hPath := filepath.Join(dir, out.Unit+".h")
	if err := os.WriteFile(cPath, []byte(out.CSource), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", cPath, err)
	}
	if err := os.WriteFile(hPath, []byte(out.HSource), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", hPath, err)
	}
	return nil
}

// FormatDiagnostics renders diagnostics the way the CLI prints them,
// one per line, sorted by position.
func FormatDiagnostics(diags []*diag.Diagnostic) string {
	var b strings.Builder
	for _, d := range diags {
		b.WriteString(d.Error())
		b.WriteString("\n")
	}
	return b.String()
}
