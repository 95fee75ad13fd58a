package plugins

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/assetgraph/internal/opts"
	"github.com/wolfeidau/assetgraph/internal/plugin"
)

// Compression writes a gzip copy next to every output file that matches the
// pattern, is at least Threshold bytes and compresses to at most MinRatio of
// its size. Originals are kept.
type Compression struct {
	Pattern   glob.Glob
	Threshold int
	MinRatio  float64
	Level     int
}

func newCompression(o opts.Options, _ Env) (plugin.Plugin, error) {
	pattern, err := o.String("test", "**.{js,css,html,svg}")
	if err != nil {
		return nil, err
	}
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("invalid test pattern %q: %w", pattern, err)
	}

	c := &Compression{Pattern: g}
	if c.Threshold, err = o.Int("threshold", 10240); err != nil {
		return nil, err
	}
	if c.MinRatio, err = o.Float("min_ratio", 0.8); err != nil {
		return nil, err
	}
	if c.Level, err = o.Int("level", gzip.BestCompression); err != nil {
		return nil, err
	}
	if c.Level < gzip.HuffmanOnly || c.Level > gzip.BestCompression {
		return nil, fmt.Errorf("level %d out of range", c.Level)
	}
	return c, nil
}

func (c *Compression) Name() string { return "compression" }

func (c *Compression) PostEmit(ctx context.Context, pc *plugin.PostEmitContext) error {
	log := zerolog.Ctx(ctx)

	return filepath.WalkDir(pc.OutputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, ".gz") {
			return nil
		}

		rel, err := filepath.Rel(pc.OutputDir, path)
		if err != nil {
			return err
		}
		if !c.Pattern.Match(filepath.ToSlash(rel)) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if len(data) < c.Threshold {
			return nil
		}

		compressed, err := c.gzip(data)
		if err != nil {
			return fmt.Errorf("failed to compress %s: %w", rel, err)
		}

		ratio := float64(len(compressed)) / float64(len(data))
		if ratio > c.MinRatio {
			log.Debug().Str("file", rel).Float64("ratio", ratio).Msg("compression: skipped, ratio too high")
			return nil
		}

		log.Debug().
			Str("file", rel).
			Int("original_bytes", len(data)).
			Int("compressed_bytes", len(compressed)).
			Msg("compression: wrote gzip variant")

		return os.WriteFile(path+".gz", compressed, 0644)
	})
}

func (c *Compression) gzip(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, c.Level)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
