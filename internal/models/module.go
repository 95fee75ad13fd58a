package models

import (
	"path/filepath"
	"strings"
)

// ModuleID is the canonical identity of a source unit in the module graph.
// Path is an absolute, cleaned file path. Query carries an optional variant
// such as "inline" in "./logo.svg?inline".
type ModuleID struct {
	Path  string
	Query string
}

// NewModuleID builds a ModuleID from an absolute path and optional query.
func NewModuleID(path, query string) ModuleID {
	return ModuleID{Path: filepath.Clean(path), Query: query}
}

// IsZero reports whether the id has not been assigned.
func (id ModuleID) IsZero() bool {
	return id.Path == "" && id.Query == ""
}

// String renders the id as path?query.
func (id ModuleID) String() string {
	if id.Query == "" {
		return id.Path
	}
	return id.Path + "?" + id.Query
}

// Rel renders the id relative to root using forward slashes. Emitted output
// uses this form so it does not depend on where the project is checked out.
func (id ModuleID) Rel(root string) string {
	rel, err := filepath.Rel(root, id.Path)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = id.Path
	}
	rel = filepath.ToSlash(rel)
	if id.Query != "" {
		rel += "?" + id.Query
	}
	return rel
}

// Ext returns the file extension of the module path including the dot.
func (id ModuleID) Ext() string {
	return filepath.Ext(id.Path)
}

// Module is a single node in the module graph.
type Module struct {
	ID          ModuleID
	Raw         []byte // content as read from disk
	Transformed []byte // content after the transform pipeline

	// Dependencies lists every specifier found in Transformed, in discovery order.
	Dependencies []string
	// ResolvedDependencies lists the resolved ids of the non-external
	// specifiers in discovery order, without duplicates.
	ResolvedDependencies []ModuleID
	// Externals lists specifiers excluded from the graph, kept for diagnostics.
	Externals []string
	// Imports maps each non-external specifier to the id it resolved to.
	Imports map[string]ModuleID
}

// IsExternal reports whether the specifier was recorded as an external reference.
func (m *Module) IsExternal(specifier string) bool {
	for _, ext := range m.Externals {
		if ext == specifier {
			return true
		}
	}
	return false
}
