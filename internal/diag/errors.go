// Package diag defines the build error taxonomy. Every failure surfaced by a
// build is a *Error carrying the kind and, where known, the module, plugin,
// hook and transform stage involved.
package diag

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wolfeidau/assetgraph/internal/models"
)

// Kind classifies a build failure.
type Kind string

const (
	KindResolution Kind = "resolution"
	KindTransform  Kind = "transform"
	KindPlugin     Kind = "plugin"
	KindEmit       Kind = "emit"
	KindCancelled  Kind = "cancelled"
	KindConfig     Kind = "config"
)

var (
	// ErrResolution indicates a specifier could not be resolved to a file
	ErrResolution = errors.New("resolution failed")
	// ErrTransform indicates a transform stage failed for a module
	ErrTransform = errors.New("transform failed")
	// ErrPlugin indicates a plugin hook failed or panicked
	ErrPlugin = errors.New("plugin failed")
	// ErrEmit indicates an output file could not be written
	ErrEmit = errors.New("emit failed")
	// ErrCancelled indicates the build was cancelled before completion
	ErrCancelled = errors.New("build cancelled")
	// ErrConfig indicates the build options are invalid
	ErrConfig = errors.New("invalid configuration")
)

var sentinels = map[Kind]error{
	KindResolution: ErrResolution,
	KindTransform:  ErrTransform,
	KindPlugin:     ErrPlugin,
	KindEmit:       ErrEmit,
	KindCancelled:  ErrCancelled,
	KindConfig:     ErrConfig,
}

// Error is a structured build failure.
type Error struct {
	Kind      Kind
	ModuleID  models.ModuleID // zero when not tied to a module
	Specifier string          // resolution failures
	PluginID  string          // plugin failures
	Hook      string          // plugin failures
	Stage     int             // transform failures, index into the rule's stages
	StageName string
	Path      string // emit failures
	Message   string
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(" error")

	switch e.Kind {
	case KindResolution:
		fmt.Fprintf(&b, ": cannot resolve %q", e.Specifier)
		if !e.ModuleID.IsZero() {
			fmt.Fprintf(&b, " from %s", e.ModuleID)
		}
	case KindTransform:
		fmt.Fprintf(&b, " in %s at stage %d (%s)", e.ModuleID, e.Stage, e.StageName)
	case KindPlugin:
		fmt.Fprintf(&b, " in plugin %q during %s", e.PluginID, e.Hook)
	case KindEmit:
		if e.Path != "" {
			fmt.Fprintf(&b, " writing %s", e.Path)
		}
	}

	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error kind so callers can use
// errors.Is(err, diag.ErrTransform).
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// Resolution builds a resolution error for specifier imported from from.
func Resolution(specifier string, from models.ModuleID, msg string) *Error {
	return &Error{Kind: KindResolution, Specifier: specifier, ModuleID: from, Message: msg}
}

// Transform builds a transform error for a failed stage.
func Transform(id models.ModuleID, stage int, stageName string, err error) *Error {
	return &Error{Kind: KindTransform, ModuleID: id, Stage: stage, StageName: stageName, Err: err}
}

// Plugin builds a plugin error for a failed hook.
func Plugin(pluginID, hook string, err error) *Error {
	return &Error{Kind: KindPlugin, PluginID: pluginID, Hook: hook, Err: err}
}

// Emit builds an emit error for a failed write.
func Emit(path string, err error) *Error {
	return &Error{Kind: KindEmit, Path: path, Err: err}
}

// Cancelled wraps the cause of a cancelled build.
func Cancelled(cause error) *Error {
	return &Error{Kind: KindCancelled, Err: cause}
}

// Config builds a configuration error.
func Config(format string, args ...any) *Error {
	return &Error{Kind: KindConfig, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or "" when err is not a build error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
