package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/assetgraph/cmd/assetgraph/internal/commands"
	"github.com/wolfeidau/assetgraph/internal/logger"
)

var (
	version = "dev"
	cli     struct {
		Build   commands.BuildCmd   `cmd:"" help:"Build the bundle"`
		Graph   commands.GraphCmd   `cmd:"" help:"Print the module graph in emission order"`
		Resolve commands.ResolveCmd `cmd:"" help:"Resolve a specifier the way the build does"`
		Page    commands.PageCmd    `cmd:"" help:"Render an HTML page from a build manifest"`
		Debug   bool                `help:"Enable debug mode." env:"ASSETGRAPH_DEBUG"`
		Version kong.VersionFlag
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Name("assetgraph"),
		kong.Description("Resolve, transform and bundle JavaScript and asset modules."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	log.Logger = logger.Setup(cli.Debug)

	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
