package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wolfeidau/assetgraph/internal/models"
)

type ResolveCmd struct {
	ConfigFlags

	Specifier string `arg:"" help:"Specifier to resolve, e.g. ./util or react"`
	From      string `help:"Importing file, relative to the project root" default:"index.js"`
}

func (r *ResolveCmd) Run(ctx context.Context, globals *Globals) error {
	opts, err := r.resolverOptions()
	if err != nil {
		return err
	}

	res, err := opts.NewResolver()
	if err != nil {
		return err
	}

	from := r.From
	if !filepath.IsAbs(from) {
		from = filepath.Join(res.Root(), filepath.FromSlash(from))
	}

	resolution, err := res.Resolve(r.Specifier, models.NewModuleID(from, ""))
	if err != nil {
		printDiagnostic(os.Stderr, err)
		return err
	}

	if resolution.External {
		extraColor.Fprintf(os.Stdout, "%s (external)\n", r.Specifier)
		return nil
	}
	fmt.Fprintln(os.Stdout, resolution.ID.Path)
	return nil
}
