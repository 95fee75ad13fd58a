package plugins

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/assetgraph/internal/opts"
	"github.com/wolfeidau/assetgraph/internal/plugin"
)

// Clean empties the output directory before the build starts.
type Clean struct {
	Verbose bool
	Dry     bool
}

func newClean(o opts.Options, _ Env) (plugin.Plugin, error) {
	verbose, err := o.Bool("verbose", false)
	if err != nil {
		return nil, err
	}
	dry, err := o.Bool("dry", false)
	if err != nil {
		return nil, err
	}
	return &Clean{Verbose: verbose, Dry: dry}, nil
}

func (c *Clean) Name() string { return "clean" }

func (c *Clean) BuildStart(ctx context.Context, bc *plugin.BuildContext) error {
	if err := checkCleanTarget(bc.Root, bc.OutputDir); err != nil {
		return err
	}

	entries, err := os.ReadDir(bc.OutputDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read output directory: %w", err)
	}

	log := zerolog.Ctx(ctx)
	for _, entry := range entries {
		path := filepath.Join(bc.OutputDir, entry.Name())
		if c.Verbose {
			log.Info().Str("path", path).Bool("dry", c.Dry).Msg("clean: removing")
		}
		if c.Dry {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return nil
}

// checkCleanTarget refuses to clean the project root or anything above it.
func checkCleanTarget(root, outputDir string) error {
	if outputDir == "" {
		return errors.New("output directory is not set")
	}

	out, err := filepath.Abs(outputDir)
	if err != nil {
		return err
	}
	if root == "" {
		return nil
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	rel, err := filepath.Rel(out, abs)
	if err != nil {
		return nil
	}
	if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("refusing to clean %s: it contains the project root", out)
	}
	return nil
}
