package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/Bahjat/page-link-checker/internal/platform/config"
	"github.com/Bahjat/page-link-checker/internal/platform/logger"
)

type cli struct {
	Config string `help:"Path to a YAML config file. Environment variables override it." type:"path" env:"LINKCHECKER_CONFIG" short:"c"`

	Serve     serveCmd     `cmd:"" help:"Serve the link check HTTP API."`
	Import    importCmd    `cmd:"" help:"Load a content tree from a YAML file into the database."`
	Check     checkCmd     `cmd:"" help:"Check the links of one content page."`
	CheckTree checkTreeCmd `cmd:"" name:"check-tree" help:"Check every page below a content node."`
	CheckURL  checkURLCmd  `cmd:"" name:"check-url" help:"Check the links of any page by URL."`
}

func main() {
	os.Exit(run())
}

func run() int {
	var c cli
	kctx := kong.Parse(&c,
		kong.Name("linkchecker"),
		kong.Description("Finds broken links in the pages of a content tree."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load(c.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}

	log := logger.New(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp(cfg, log)
	defer app.Close()

	kctx.BindTo(ctx, (*context.Context)(nil))
	if err := kctx.Run(app); err != nil {
		if errors.Is(err, errBrokenLinks) {
			return 2
		}
		fmt.Fprintf(os.Stderr, "linkchecker: %v\n", err)
		return 1
	}
	return 0
}
