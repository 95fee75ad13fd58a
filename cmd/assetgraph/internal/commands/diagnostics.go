package commands

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/wolfeidau/assetgraph/internal/diag"
	"github.com/wolfeidau/assetgraph/internal/models"
)

var (
	errorColor  = color.New(color.FgRed, color.Bold)
	labelColor  = color.New(color.Faint)
	chunkColor  = color.New(color.FgGreen, color.Bold)
	commonColor = color.New(color.FgCyan, color.Bold)
	extraColor  = color.New(color.FgYellow)
)

// printDiagnostic writes err as a structured, coloured block.
func printDiagnostic(w io.Writer, err error) {
	d := diag.From(err)

	kind := string(d.Kind)
	if kind == "" {
		kind = "build"
	}
	errorColor.Fprintf(w, "%s error\n", kind)

	field := func(label, value string) {
		if value == "" {
			return
		}
		labelColor.Fprintf(w, "  %-8s ", label+":")
		fmt.Fprintln(w, value)
	}
	field("module", d.ModuleID)
	field("plugin", d.PluginID)
	field("hook", d.Hook)
	field("message", d.Message)
}

// printBundle lists the emitted files in manifest order with their sizes.
func printBundle(w io.Writer, b *models.Bundle) {
	for _, c := range b.Chunks {
		name := chunkColor
		switch c.Kind {
		case models.ChunkCommon:
			name = commonColor
		case models.ChunkSynthetic:
			name = extraColor
		}
		name.Fprintf(w, "%-24s", c.Name)
		fmt.Fprintf(w, " %-40s %10s\n", filepath.ToSlash(c.File), formatBytes(c.Size()))
	}
}

func formatBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
