package main

import (
	"context"
	"log/slog"

	"github.com/Bahjat/page-link-checker/internal/content/sqlite"
	"github.com/Bahjat/page-link-checker/internal/linkcheck"
	"github.com/Bahjat/page-link-checker/internal/platform/config"
	"github.com/Bahjat/page-link-checker/internal/sitecheck"
)

// app holds the dependencies shared by the commands. The database is only
// opened by commands that need the content tree.
type app struct {
	cfg    config.Config
	log    *slog.Logger
	engine *linkcheck.Engine
	store  *sqlite.Store
}

func newApp(cfg config.Config, log *slog.Logger) *app {
	fetcher := linkcheck.NewHTTPClient(linkcheck.FetcherConfig{
		Timeout:              cfg.LinkCheckTimeout,
		UserAgent:            cfg.InternalUserAgent,
		BlockPrivateNetworks: cfg.BlockPrivateNetworks,
	})
	checker := linkcheck.NewLinkChecker(linkcheck.CheckerConfig{
		Timeout:              cfg.LinkCheckTimeout,
		CachePeriod:          cfg.LinkCachePeriod,
		UserAgent:            cfg.ExternalUserAgent,
		Concurrency:          cfg.LinkCheckConcurrency,
		RequestsPerSecond:    cfg.LinkCheckRate,
		BlockPrivateNetworks: cfg.BlockPrivateNetworks,
	})

	return &app{
		cfg:    cfg,
		log:    log,
		engine: linkcheck.NewEngine(fetcher, checker),
	}
}

func (a *app) openStore(ctx context.Context) (*sqlite.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	store, err := sqlite.New(ctx, a.cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	a.store = store
	return store, nil
}

func (a *app) service(ctx context.Context) (*sitecheck.Service, error) {
	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	return sitecheck.NewService(store, a.engine, a.log, a.cfg.PageCheckConcurrency), nil
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Error("failed to close database", "error", err)
		}
	}
}
