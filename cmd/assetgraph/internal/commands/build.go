package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/assetgraph/internal/bundler"
	"github.com/wolfeidau/assetgraph/internal/diag"
	"github.com/wolfeidau/assetgraph/internal/models"
	"github.com/wolfeidau/assetgraph/internal/telemetry"
)

type BuildCmd struct {
	ConfigFlags

	Output  string        `help:"Output directory, overrides the config" short:"o" env:"ASSETGRAPH_OUTPUT"`
	Retries uint          `help:"Retry the build this many times when writing output fails" default:"0" env:"ASSETGRAPH_RETRIES"`
	Timeout time.Duration `help:"Abort the build after this long, 0 disables" default:"0s" env:"ASSETGRAPH_TIMEOUT"`
	Otel    bool          `help:"Export traces and metrics over OTLP gRPC" env:"ASSETGRAPH_OTEL"`
}

func (b *BuildCmd) Run(ctx context.Context, globals *Globals) error {
	if b.Otel {
		shutdown, err := telemetry.InitTelemetry(ctx, "assetgraph", globals.Version)
		if err != nil {
			return fmt.Errorf("failed to initialise telemetry: %w", err)
		}
		defer func() {
			if err := shutdown(context.WithoutCancel(ctx)); err != nil {
				log.Warn().Err(err).Msg("Telemetry shutdown failed")
			}
		}()
	}

	opts, err := b.options(b.Output)
	if err != nil {
		return err
	}

	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}
	ctx = log.Logger.WithContext(ctx)

	log.Info().
		Str("mode", opts.Mode).
		Str("root", opts.Root).
		Int("entries", len(opts.Entries)).
		Msg("Build starting")

	started := time.Now()

	bundle, err := b.build(ctx, opts)
	if err != nil {
		kind := diag.KindOf(err)
		if kind == "" {
			return err
		}
		printDiagnostic(os.Stderr, err)
		return fmt.Errorf("build failed: %s error", kind)
	}

	printBundle(os.Stdout, bundle)

	log.Info().
		Str("build_id", bundle.Manifest.BuildID).
		Int("chunks", len(bundle.Chunks)).
		Dur("duration", time.Since(started)).
		Msg("Build finished")

	return nil
}

// build retries only emit failures; everything else is deterministic and
// fails the same way on every attempt.
func (b *BuildCmd) build(ctx context.Context, opts bundler.Options) (*models.Bundle, error) {
	return backoff.Retry(ctx, func() (*models.Bundle, error) {
		bundle, err := bundler.Build(ctx, opts)
		if err != nil && !errors.Is(err, diag.ErrEmit) {
			return nil, backoff.Permanent(err)
		}
		return bundle, err
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(b.Retries+1),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn().Err(err).Dur("retry_in", next).Msg("Writing output failed, retrying")
		}),
	)
}
