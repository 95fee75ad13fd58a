package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/assetgraph/internal/bundler"
	"github.com/wolfeidau/assetgraph/internal/diag"
	"github.com/wolfeidau/assetgraph/internal/models"
)

type GraphCmd struct {
	ConfigFlags

	Format string `help:"Output format" enum:"text,json" default:"text"`
}

type graphEntry struct {
	Name   string `json:"name"`
	Module string `json:"module"`
}

type graphModule struct {
	ID           string   `json:"id"`
	Dependencies []string `json:"dependencies,omitempty"`
	Externals    []string `json:"externals,omitempty"`
}

type graphOutput struct {
	Root    string        `json:"root"`
	Entries []graphEntry  `json:"entries"`
	Modules []graphModule `json:"modules"`
}

func (g *GraphCmd) Run(ctx context.Context, globals *Globals) error {
	opts, err := g.options("")
	if err != nil {
		return err
	}

	graph, err := bundler.Graph(log.Logger.WithContext(ctx), opts)
	if err != nil {
		if diag.KindOf(err) != "" {
			printDiagnostic(os.Stderr, err)
		}
		return err
	}

	out := describeGraph(graph)
	if g.Format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	printGraph(os.Stdout, out)
	return nil
}

// describeGraph lists modules in emission order with their edges.
func describeGraph(g *models.Graph) graphOutput {
	out := graphOutput{Root: g.Root}
	for _, e := range g.Entries {
		out.Entries = append(out.Entries, graphEntry{Name: e.Name, Module: e.ID.Rel(g.Root)})
	}
	for _, id := range g.Order() {
		m, ok := g.Module(id)
		if !ok {
			continue
		}
		gm := graphModule{ID: id.Rel(g.Root), Externals: m.Externals}
		for _, dep := range m.ResolvedDependencies {
			gm.Dependencies = append(gm.Dependencies, dep.Rel(g.Root))
		}
		out.Modules = append(out.Modules, gm)
	}
	return out
}

func printGraph(w io.Writer, out graphOutput) {
	for _, e := range out.Entries {
		chunkColor.Fprintf(w, "%s", e.Name)
		fmt.Fprintf(w, " -> %s\n", e.Module)
	}
	fmt.Fprintln(w)
	for _, m := range out.Modules {
		fmt.Fprintln(w, m.ID)
		for _, dep := range m.Dependencies {
			fmt.Fprintf(w, "  %s\n", dep)
		}
		for _, ext := range m.Externals {
			extraColor.Fprintf(w, "  %s (external)\n", ext)
		}
	}
}
