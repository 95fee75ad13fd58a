// Package plugin dispatches build lifecycle hooks to registered extensions.
//
// A plugin implements Plugin plus any of the hook interfaces. Hooks fire in
// registration order and each plugin sees the context as left by the
// previous one. A hook returning an error, or panicking, aborts the build
// with a plugin error naming the plugin and the hook.
package plugin

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/assetgraph/internal/diag"
	"github.com/wolfeidau/assetgraph/internal/models"
)

// Hook names.
const (
	HookBuildStart    = "build-start"
	HookPreResolve    = "pre-resolve"
	HookPostTransform = "post-transform"
	HookPreEmit       = "pre-emit"
	HookPostEmit      = "post-emit"
)

// Plugin is a named build extension.
type Plugin interface {
	Name() string
}

// BuildStarter runs once before any module is resolved.
type BuildStarter interface {
	BuildStart(ctx context.Context, bc *BuildContext) error
}

// PreResolver runs before each specifier is resolved. It may rewrite
// Specifier or set External.
type PreResolver interface {
	PreResolve(ctx context.Context, rc *ResolveContext) error
}

// PostTransformer runs after the transform pipeline for each module. It may
// rewrite Content.
type PostTransformer interface {
	PostTransform(ctx context.Context, tc *TransformContext) error
}

// PreEmitter runs after chunks are rendered and hashed, before anything is
// written. It may only add synthetic chunks.
type PreEmitter interface {
	PreEmit(ctx context.Context, ec *EmitContext) error
}

// PostEmitter runs after every chunk and the manifest have been written.
type PostEmitter interface {
	PostEmit(ctx context.Context, pc *PostEmitContext) error
}

// BuildContext describes the build about to start.
type BuildContext struct {
	Mode      string
	Root      string
	OutputDir string
}

// ResolveContext is handed to PreResolve hooks.
type ResolveContext struct {
	Importer  models.ModuleID // read-only
	Specifier string
	External  bool
}

// TransformContext is handed to PostTransform hooks.
type TransformContext struct {
	ID      models.ModuleID // read-only
	Content []byte
}

// PostEmitContext is handed to PostEmit hooks.
type PostEmitContext struct {
	Mode      string
	OutputDir string
	Manifest  models.Manifest
	Chunks    []models.Chunk // copies, read-only
}

// Host holds the ordered plugin list for one build.
type Host struct {
	plugins []Plugin
}

// NewHost returns a host dispatching to plugins in the given order.
func NewHost(plugins ...Plugin) *Host {
	return &Host{plugins: append([]Plugin(nil), plugins...)}
}

// Plugins returns the registered plugins in order.
func (h *Host) Plugins() []Plugin {
	if h == nil {
		return nil
	}
	return append([]Plugin(nil), h.plugins...)
}

// BuildStart dispatches the build-start hook.
func (h *Host) BuildStart(ctx context.Context, bc *BuildContext) error {
	return h.dispatch(ctx, HookBuildStart, func(p Plugin) (bool, error) {
		hp, ok := p.(BuildStarter)
		if !ok {
			return false, nil
		}
		return true, hp.BuildStart(ctx, bc)
	})
}

// PreResolve dispatches the pre-resolve hook.
func (h *Host) PreResolve(ctx context.Context, rc *ResolveContext) error {
	importer := rc.Importer
	err := h.dispatch(ctx, HookPreResolve, func(p Plugin) (bool, error) {
		hp, ok := p.(PreResolver)
		if !ok {
			return false, nil
		}
		return true, hp.PreResolve(ctx, rc)
	})
	rc.Importer = importer
	return err
}

// PostTransform dispatches the post-transform hook.
func (h *Host) PostTransform(ctx context.Context, tc *TransformContext) error {
	id := tc.ID
	err := h.dispatch(ctx, HookPostTransform, func(p Plugin) (bool, error) {
		hp, ok := p.(PostTransformer)
		if !ok {
			return false, nil
		}
		return true, hp.PostTransform(ctx, tc)
	})
	tc.ID = id
	return err
}

// PreEmit dispatches the pre-emit hook.
func (h *Host) PreEmit(ctx context.Context, ec *EmitContext) error {
	return h.dispatch(ctx, HookPreEmit, func(p Plugin) (bool, error) {
		hp, ok := p.(PreEmitter)
		if !ok {
			return false, nil
		}
		return true, hp.PreEmit(ctx, ec)
	})
}

// PostEmit dispatches the post-emit hook.
func (h *Host) PostEmit(ctx context.Context, pc *PostEmitContext) error {
	return h.dispatch(ctx, HookPostEmit, func(p Plugin) (bool, error) {
		hp, ok := p.(PostEmitter)
		if !ok {
			return false, nil
		}
		return true, hp.PostEmit(ctx, pc)
	})
}

func (h *Host) dispatch(ctx context.Context, hook string, call func(Plugin) (bool, error)) error {
	if h == nil {
		return nil
	}

	for _, p := range h.plugins {
		called, err := safeCall(p, call)
		if err != nil {
			return diag.Plugin(p.Name(), hook, err)
		}
		if called {
			zerolog.Ctx(ctx).Trace().Str("plugin", p.Name()).Str("hook", hook).Msg("plugin hook")
		}
	}
	return nil
}

func safeCall(p Plugin, call func(Plugin) (bool, error)) (called bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			called = true
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return call(p)
}
