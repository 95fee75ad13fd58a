package assets

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/wolfeidau/assetgraph/internal/models"
)

// LoadManifest reads the manifest written by a build
func (r *Renderer) LoadManifest() error {
	data, err := os.ReadFile(r.config.ManifestPath)
	if err != nil {
		return err
	}

	var manifest models.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return fmt.Errorf("invalid manifest %s: %w", r.config.ManifestPath, err)
	}

	r.SetManifest(manifest)
	return nil
}

// LoadScripts returns the ordered list of script URLs needed for the given
// entrypoints, shared chunks first, each file once
func (r *Renderer) LoadScripts(entrypoints ...string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.manifest == nil {
		return nil, errors.New("manifest not loaded, call LoadManifest() or SetManifest() first")
	}

	if len(entrypoints) == 0 {
		entrypoints = sortedEntrypoints(r.manifest)
	}

	scripts := []string{}
	visited := make(map[string]bool)

	for _, entry := range entrypoints {
		files, ok := r.manifest.Scripts(entry)
		if !ok {
			return nil, fmt.Errorf("entrypoint %q not found in manifest", entry)
		}
		for _, file := range files {
			if !visited[file] {
				visited[file] = true
				scripts = append(scripts, r.config.PublicPath+file)
			}
		}
	}

	return scripts, nil
}

// Render writes the page for the given entrypoints using the named template
func (r *Renderer) Render(w io.Writer, templateName string, context any, entrypoints ...string) error {
	scripts, err := r.LoadScripts(entrypoints...)
	if err != nil {
		return err
	}

	if templateName == "" {
		templateName = r.tmpl.Name()
	}

	data := map[string]any{
		"Title":   r.config.Title,
		"Scripts": scripts,
		"Context": context,
	}

	if err := r.tmpl.ExecuteTemplate(w, templateName, data); err != nil {
		return fmt.Errorf("failed to render template %s: %w", templateName, err)
	}
	return nil
}

// sortedEntrypoints returns the manifest entrypoints by name so pages are
// stable across builds
func sortedEntrypoints(m *models.Manifest) []string {
	names := make([]string, 0, len(m.Entrypoints))
	for name := range m.Entrypoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
