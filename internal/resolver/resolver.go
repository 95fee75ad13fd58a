// Package resolver maps import specifiers to canonical module ids.
package resolver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/wolfeidau/assetgraph/internal/diag"
	"github.com/wolfeidau/assetgraph/internal/models"
)

// Config controls how specifiers are resolved.
type Config struct {
	// Root is the absolute project directory entries are resolved against.
	Root string
	// Extensions are tried in order when a specifier has no matching file,
	// e.g. [".ts", ".js"]. The first existing candidate wins.
	Extensions []string
	// ModuleDirs are the lookup roots for bare specifiers, relative to Root
	// unless absolute. Defaults to node_modules.
	ModuleDirs []string
	// Externals are glob patterns of specifiers excluded from the graph.
	Externals []string
}

// Resolution is the outcome of resolving a specifier.
type Resolution struct {
	Specifier string
	ID        models.ModuleID // zero for externals
	External  bool
}

// Resolver resolves specifiers against the file system. It is safe for
// concurrent use.
type Resolver struct {
	root       string
	extensions []string
	moduleDirs []string
	externals  []glob.Glob
}

// New compiles the external patterns and returns a Resolver.
func New(cfg Config) (*Resolver, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}

	moduleDirs := cfg.ModuleDirs
	if len(moduleDirs) == 0 {
		moduleDirs = []string{"node_modules"}
	}

	r := &Resolver{
		root:       root,
		extensions: append([]string(nil), cfg.Extensions...),
	}

	for _, dir := range moduleDirs {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		r.moduleDirs = append(r.moduleDirs, filepath.Clean(dir))
	}

	for _, pattern := range cfg.Externals {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid external pattern %q: %w", pattern, err)
		}
		r.externals = append(r.externals, g)
	}

	return r, nil
}

// Root returns the absolute project root.
func (r *Resolver) Root() string {
	return r.root
}

// IsExternal reports whether the specifier matches an external pattern.
func (r *Resolver) IsExternal(specifier string) bool {
	for _, g := range r.externals {
		if g.Match(specifier) {
			return true
		}
	}
	return false
}

// Resolve maps specifier, imported from the module from, to a module id.
// Specifiers matching an external pattern resolve to an external marker
// without touching the file system.
func (r *Resolver) Resolve(specifier string, from models.ModuleID) (Resolution, error) {
	if specifier == "" {
		return Resolution{}, diag.Resolution(specifier, from, "empty specifier")
	}

	if r.IsExternal(specifier) {
		return Resolution{Specifier: specifier, External: true}, nil
	}

	request, query := splitQuery(specifier)

	var candidates []string
	switch {
	case isRelative(request):
		base := r.root
		if !from.IsZero() {
			base = filepath.Dir(from.Path)
		}
		candidates = []string{filepath.Join(base, filepath.FromSlash(request))}
	case filepath.IsAbs(request):
		candidates = []string{filepath.Clean(request)}
	default:
		for _, dir := range r.moduleDirs {
			candidates = append(candidates, filepath.Join(dir, filepath.FromSlash(request)))
		}
	}

	for _, candidate := range candidates {
		path, ok, err := r.resolvePath(candidate)
		if err != nil {
			return Resolution{}, diag.Resolution(specifier, from, err.Error())
		}
		if ok {
			return Resolution{Specifier: specifier, ID: models.NewModuleID(path, query)}, nil
		}
	}

	return Resolution{}, diag.Resolution(specifier, from, "no matching file")
}

// ResolveEntry resolves an entry path relative to the root.
func (r *Resolver) ResolveEntry(path string) (models.ModuleID, error) {
	request, query := splitQuery(path)
	if !filepath.IsAbs(request) {
		request = filepath.Join(r.root, filepath.FromSlash(request))
	}

	resolved, ok, err := r.resolvePath(request)
	if err != nil {
		return models.ModuleID{}, diag.Resolution(path, models.ModuleID{}, err.Error())
	}
	if !ok {
		return models.ModuleID{}, diag.Resolution(path, models.ModuleID{}, "entry not found")
	}
	return models.NewModuleID(resolved, query), nil
}

// resolvePath tries the file candidates for path, then the directory forms.
func (r *Resolver) resolvePath(path string) (string, bool, error) {
	if resolved, ok := r.resolveFile(path); ok {
		return resolved, true, nil
	}

	if !isDir(path) {
		return "", false, nil
	}

	main, err := packageMain(path)
	if err != nil {
		return "", false, err
	}
	if main != "" {
		if resolved, ok := r.resolveFile(filepath.Join(path, filepath.FromSlash(main))); ok {
			return resolved, true, nil
		}
	}

	if resolved, ok := r.resolveFile(filepath.Join(path, "index")); ok {
		return resolved, true, nil
	}

	return "", false, nil
}

// resolveFile tries path itself, then path with each extension in order.
func (r *Resolver) resolveFile(path string) (string, bool) {
	if isFile(path) {
		return path, true
	}
	for _, ext := range r.extensions {
		if candidate := path + ext; isFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}

type packageJSON struct {
	Main string `json:"main"`
}

func packageMain(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read package.json: %w", err)
	}

	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return "", fmt.Errorf("invalid package.json in %s: %w", dir, err)
	}
	return pkg.Main, nil
}

func splitQuery(specifier string) (string, string) {
	if i := strings.IndexByte(specifier, '?'); i >= 0 {
		return specifier[:i], specifier[i+1:]
	}
	return specifier, ""
}

func isRelative(request string) bool {
	return request == "." || request == ".." ||
		strings.HasPrefix(request, "./") || strings.HasPrefix(request, "../")
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
