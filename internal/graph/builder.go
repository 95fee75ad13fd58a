// Package graph builds the module graph from a set of entry points.
//
// Discovery runs concurrently across independent subtrees. A claim table
// keyed by module id guarantees each module is read, transformed and scanned
// exactly once, however many importers discover it and in whatever order.
// Later discoverers only record the edge, which is also what breaks cycles.
package graph

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/assetgraph/internal/diag"
	"github.com/wolfeidau/assetgraph/internal/models"
	"github.com/wolfeidau/assetgraph/internal/plugin"
	"github.com/wolfeidau/assetgraph/internal/resolver"
	"github.com/wolfeidau/assetgraph/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Resolver maps specifiers to module ids.
type Resolver interface {
	Root() string
	Resolve(specifier string, from models.ModuleID) (resolver.Resolution, error)
	ResolveEntry(path string) (models.ModuleID, error)
}

// Transformer runs the transform pipeline for a module.
type Transformer interface {
	Transform(id models.ModuleID, raw []byte) ([]byte, error)
}

// EntryPoint is a named entry file, relative to the resolver root unless absolute.
type EntryPoint struct {
	Name string
	Path string
}

// Builder constructs module graphs. A Builder may be reused; each call to
// Build starts from an empty graph.
type Builder struct {
	resolver Resolver
	pipeline Transformer
	plugins  *plugin.Host
	workers  int
	readFile func(string) ([]byte, error)
}

// Option configures a Builder.
type Option func(*Builder)

// WithWorkers bounds the number of concurrent read+transform operations.
// Values below one use GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(b *Builder) {
		b.workers = n
	}
}

// WithPlugins sets the plugin host receiving pre-resolve and post-transform hooks.
func WithPlugins(h *plugin.Host) Option {
	return func(b *Builder) {
		b.plugins = h
	}
}

// WithReadFile overrides how module content is read.
func WithReadFile(fn func(string) ([]byte, error)) Option {
	return func(b *Builder) {
		b.readFile = fn
	}
}

// NewBuilder returns a Builder using r for resolution and t for transforms.
func NewBuilder(r Resolver, t Transformer, opts ...Option) *Builder {
	b := &Builder{
		resolver: r,
		pipeline: t,
		readFile: os.ReadFile,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.workers < 1 {
		b.workers = runtime.GOMAXPROCS(0)
	}
	return b
}

// Build resolves the entries and discovers every module reachable from them.
//
// The first failure, by claim order, is returned and no graph is produced.
// Cancelling ctx stops new claims; transforms already running finish and the
// build reports a cancelled error.
func (b *Builder) Build(ctx context.Context, entries []EntryPoint) (*models.Graph, error) {
	if len(entries) == 0 {
		return nil, diag.Config("at least one entry is required")
	}

	g, gctx := errgroup.WithContext(ctx)

	run := &buildRun{
		Builder: b,
		parent:  ctx,
		gctx:    gctx,
		group:   g,
		sem:     semaphore.NewWeighted(int64(b.workers)),
		claims:  make(map[models.ModuleID]int),
		graph:   models.NewGraph(b.resolver.Root()),
	}

	names := make(map[string]bool, len(entries))
	for _, entry := range entries {
		id, err := b.resolver.ResolveEntry(entry.Path)
		if err != nil {
			return nil, err
		}

		name := entry.Name
		if name == "" {
			name = EntryName(entry.Path)
		}
		if names[name] {
			return nil, diag.Config("duplicate entry name %q", name)
		}
		names[name] = true

		run.graph.Entries = append(run.graph.Entries, models.Entry{Name: name, ID: id})
	}

	for _, entry := range run.graph.Entries {
		if err := run.discover(entry.ID); err != nil {
			_ = g.Wait()
			return nil, err
		}
	}

	groupErr := g.Wait()

	if f := run.firstFailure(); f != nil {
		return nil, f
	}
	if err := ctx.Err(); err != nil {
		return nil, diag.Cancelled(err)
	}
	if groupErr != nil {
		return nil, groupErr
	}

	zerolog.Ctx(ctx).Debug().Int("modules", run.graph.Len()).Msg("module graph built")

	return run.graph, nil
}

// EntryName derives a chunk name from an entry path: "./src/app.js" -> "app".
func EntryName(path string) string {
	base := filepath.Base(filepath.FromSlash(path))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

type failure struct {
	seq int
	err error
}

// buildRun holds the state of a single Build call.
type buildRun struct {
	*Builder

	parent context.Context // cancellation token from the caller
	gctx   context.Context // cancelled on the first failure
	group  *errgroup.Group
	sem    *semaphore.Weighted

	mu       sync.Mutex
	claims   map[models.ModuleID]int
	nextSeq  int
	graph    *models.Graph
	failures []failure
}

// claim registers id for processing. It returns false when id was already
// claimed or the build is stopping.
func (r *buildRun) claim(id models.ModuleID) (int, bool, error) {
	if err := r.parent.Err(); err != nil {
		return 0, false, diag.Cancelled(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.claims[id]; ok {
		return 0, false, nil
	}
	if r.gctx.Err() != nil {
		return 0, false, nil
	}

	seq := r.nextSeq
	r.nextSeq++
	r.claims[id] = seq
	return seq, true, nil
}

// discover claims id and schedules it when this caller is the first to see it.
func (r *buildRun) discover(id models.ModuleID) error {
	seq, claimed, err := r.claim(id)
	if err != nil || !claimed {
		return err
	}

	r.group.Go(func() error {
		return r.process(seq, id)
	})
	return nil
}

func (r *buildRun) process(seq int, id models.ModuleID) error {
	if err := r.sem.Acquire(r.gctx, 1); err != nil {
		return nil
	}
	if r.gctx.Err() != nil {
		r.sem.Release(1)
		return nil
	}

	mod, err := r.load(id)
	r.sem.Release(1)
	if err != nil {
		return r.fail(seq, err)
	}

	r.mu.Lock()
	r.graph.Modules[id] = mod
	r.mu.Unlock()

	for _, dep := range mod.ResolvedDependencies {
		if err := r.discover(dep); err != nil {
			return err
		}
	}
	return nil
}

// load reads, transforms and scans a module and resolves its dependencies.
func (r *buildRun) load(id models.ModuleID) (*models.Module, error) {
	ctx := r.gctx
	metrics := telemetry.GetMetrics()
	raw, err := r.readFile(id.Path)
	if err != nil {
		return nil, diag.Transform(id, -1, "read", err)
	}

	started := time.Now()

	transformed, err := r.pipeline.Transform(id, raw)
	if err != nil {
		metrics.TransformErrorsTotal.Add(ctx, 1)
		return nil, err
	}

	tc := &plugin.TransformContext{ID: id, Content: transformed}
	if err := r.plugins.PostTransform(ctx, tc); err != nil {
		return nil, err
	}

	metrics.ModulesTransformedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("ext", id.Ext())))
	metrics.TransformDuration.Record(ctx, telemetry.Milliseconds(time.Since(started)))

	deps, err := scanDependencies(id, tc.Content)
	if err != nil {
		return nil, diag.Transform(id, -1, "scan", err)
	}

	mod := &models.Module{
		ID:           id,
		Raw:          raw,
		Transformed:  tc.Content,
		Dependencies: deps,
		Imports:      make(map[string]models.ModuleID),
	}

	seen := make(map[models.ModuleID]bool)
	for _, specifier := range mod.Dependencies {
		rc := &plugin.ResolveContext{Importer: id, Specifier: specifier}
		if err := r.plugins.PreResolve(ctx, rc); err != nil {
			return nil, err
		}

		var res resolver.Resolution
		if !rc.External {
			res, err = r.resolver.Resolve(rc.Specifier, id)
			if err != nil {
				return nil, err
			}
		}

		if rc.External || res.External {
			mod.Externals = append(mod.Externals, specifier)
			continue
		}

		mod.Imports[specifier] = res.ID
		if !seen[res.ID] {
			seen[res.ID] = true
			mod.ResolvedDependencies = append(mod.ResolvedDependencies, res.ID)
		}
	}

	zerolog.Ctx(r.parent).Debug().
		Str("module", id.Rel(r.graph.Root)).
		Int("dependencies", len(mod.ResolvedDependencies)).
		Int("externals", len(mod.Externals)).
		Msg("module loaded")

	return mod, nil
}

// fail records err against the claim sequence and returns it so the group
// cancels the remaining work.
func (r *buildRun) fail(seq int, err error) error {
	r.mu.Lock()
	r.failures = append(r.failures, failure{seq: seq, err: err})
	r.mu.Unlock()
	return fmt.Errorf("module %d failed: %w", seq, err)
}

// firstFailure returns the failure with the lowest claim sequence.
func (r *buildRun) firstFailure() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var first *failure
	for i := range r.failures {
		if first == nil || r.failures[i].seq < first.seq {
			first = &r.failures[i]
		}
	}
	if first == nil {
		return nil
	}

	var de *diag.Error
	if errors.As(first.err, &de) {
		return de
	}
	return first.err
}
