// Package bundler runs a complete build: resolve, transform and graph the
// entries, then emit chunks and the manifest.
package bundler

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/assetgraph/internal/diag"
	"github.com/wolfeidau/assetgraph/internal/emit"
	"github.com/wolfeidau/assetgraph/internal/graph"
	"github.com/wolfeidau/assetgraph/internal/models"
	"github.com/wolfeidau/assetgraph/internal/plugin"
	"github.com/wolfeidau/assetgraph/internal/resolver"
	"github.com/wolfeidau/assetgraph/internal/telemetry"
	"github.com/wolfeidau/assetgraph/internal/transform"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Build runs one build. Every failure is returned as a *diag.Error and no
// partial bundle is produced, although files written before an emit failure
// stay on disk.
func Build(ctx context.Context, o Options) (bundle *models.Bundle, err error) {
	start := time.Now()
	metrics := telemetry.GetMetrics()
	mode := attribute.String("mode", o.Mode)

	ctx, span := telemetry.Tracer().Start(ctx, "assetgraph.build",
		trace.WithAttributes(mode, attribute.Int("entries", len(o.Entries))))
	defer span.End()

	metrics.BuildsTotal.Add(ctx, 1, metric.WithAttributes(mode))

	defer func() {
		metrics.BuildDuration.Record(ctx, telemetry.Milliseconds(time.Since(start)), metric.WithAttributes(mode))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			metrics.BuildFailuresTotal.Add(ctx, 1, metric.WithAttributes(
				mode,
				attribute.String("kind", string(diag.KindOf(err))),
			))
		}
	}()

	return build(ctx, o)
}

// session is the per-build state shared by the graph and emit phases.
type session struct {
	root      string
	outputDir string
	builder   *graph.Builder
	host      *plugin.Host
}

func prepare(o Options) (*session, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}

	res, err := o.NewResolver()
	if err != nil {
		return nil, err
	}
	root := res.Root()

	outputDir := o.OutputDir
	if !filepath.IsAbs(outputDir) {
		outputDir = filepath.Join(root, outputDir)
	}

	pipeline, err := transform.NewPipeline(root, o.Rules)
	if err != nil {
		return nil, diag.Config("%v", err)
	}

	host := plugin.NewHost(o.Plugins...)

	return &session{
		root:      root,
		outputDir: outputDir,
		host:      host,
		builder: graph.NewBuilder(res, pipeline,
			graph.WithWorkers(o.Workers),
			graph.WithPlugins(host),
		),
	}, nil
}

// NewResolver returns the resolver described by o.
func (o Options) NewResolver() (*resolver.Resolver, error) {
	res, err := resolver.New(resolver.Config{
		Root:       o.Root,
		Extensions: o.Extensions,
		ModuleDirs: o.ModuleDirs,
		Externals:  o.Externals,
	})
	if err != nil {
		return nil, diag.Config("%v", err)
	}
	return res, nil
}

// Graph resolves and transforms every module reachable from the entries and
// returns the graph without emitting anything. Build-start hooks do not run.
func Graph(ctx context.Context, o Options) (*models.Graph, error) {
	s, err := prepare(o)
	if err != nil {
		return nil, err
	}
	return buildGraph(ctx, s.builder, o.Entries)
}

func build(ctx context.Context, o Options) (*models.Bundle, error) {
	s, err := prepare(o)
	if err != nil {
		return nil, err
	}

	buildID, err := uuid.NewV7()
	if err != nil {
		return nil, diag.Config("failed to generate build id: %v", err)
	}

	log := zerolog.Ctx(ctx).With().Str("build_id", buildID.String()).Logger()
	ctx = log.WithContext(ctx)

	err = s.host.BuildStart(ctx, &plugin.BuildContext{
		Mode:      o.Mode,
		Root:      s.root,
		OutputDir: s.outputDir,
	})
	if err != nil {
		return nil, err
	}

	g, err := buildGraph(ctx, s.builder, o.Entries)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, diag.Cancelled(err)
	}

	bundle, err := emitBundle(ctx, emit.New(s.host), g, emit.Config{
		OutputDir:   s.outputDir,
		Mode:        o.Mode,
		CommonChunk: o.CommonChunk,
		BuildID:     buildID.String(),
		SourceMaps:  o.SourceMaps,
	})
	if err != nil {
		return nil, err
	}

	log.Debug().
		Int("modules", g.Len()).
		Int("chunks", len(bundle.Chunks)).
		Str("output_dir", s.outputDir).
		Msg("build complete")

	return bundle, nil
}

func buildGraph(ctx context.Context, b *graph.Builder, entries []Entry) (*models.Graph, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "assetgraph.graph")
	defer span.End()

	g, err := b.Build(ctx, entries)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("modules", g.Len()))
	return g, nil
}

func emitBundle(ctx context.Context, e *emit.Emitter, g *models.Graph, cfg emit.Config) (*models.Bundle, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "assetgraph.emit")
	defer span.End()

	b, err := e.Emit(ctx, g, cfg)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("chunks", len(b.Chunks)))
	return b, nil
}
