package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/Bahjat/page-link-checker/internal/content"
	"github.com/Bahjat/page-link-checker/internal/export"
	"github.com/Bahjat/page-link-checker/internal/linkcheck"
	"github.com/Bahjat/page-link-checker/internal/model"
	"github.com/Bahjat/page-link-checker/internal/platform/middleware"
	"github.com/Bahjat/page-link-checker/internal/sitecheck"
)

// errBrokenLinks makes the process exit non-zero when --fail-on-broken is set.
var errBrokenLinks = errors.New("broken links found")

const shutdownTimeout = 10 * time.Second

type serveCmd struct{}

func (c *serveCmd) Run(ctx context.Context, a *app) error {
	svc, err := a.service(ctx)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	sitecheck.NewTransport(svc, a.log).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           middleware.Chain(mux, middleware.Recover(a.log), middleware.RequestID, middleware.Logging(a.log)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type importCmd struct {
	File string `arg:"" help:"YAML file with the content tree." type:"existingfile"`
}

func (c *importCmd) Run(ctx context.Context, a *app) error {
	f, err := os.Open(c.File)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	roots, err := content.LoadTreeYAML(f)
	if err != nil {
		return err
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	n, err := store.ImportTree(ctx, roots)
	if err != nil {
		return err
	}

	a.log.Info("content tree imported", "file", c.File, "nodes", n, "database", a.cfg.DatabasePath)
	fmt.Fprintf(os.Stdout, "imported %d nodes into %s\n", n, a.cfg.DatabasePath)
	return nil
}

// checkFlags are shared by the check commands.
type checkFlags struct {
	EntireDocument bool   `help:"Also check links inside <head>."`
	Timeout        int    `help:"Per-request timeout in seconds (minimum 1)." default:"30"`
	OmitPort       bool   `help:"Strip the port from the page URL before checking."`
	InternalOnly   bool   `help:"Only check links without an explicit scheme."`
	Status         string `help:"Comma-separated statuses to display, e.g. 4xx,5xx,error."`
	OnlyErrors     bool   `help:"Only display links that did not return a 2xx status."`
	Format         string `help:"Report format." enum:"table,json,csv" default:"table" short:"f"`
	Output         string `help:"Write the report to this file instead of stdout." type:"path" short:"o"`
	FailOnBroken   bool   `help:"Exit with status 2 when a link or page fails."`
}

func (f checkFlags) options() (linkcheck.Options, sitecheck.DisplayFilter, error) {
	opts := linkcheck.Options{
		CheckEntireDocument:    f.EntireDocument,
		TimeoutSeconds:         f.Timeout,
		OmitPortDuringChecks:   f.OmitPort,
		CheckInternalLinksOnly: f.InternalOnly,
	}
	statuses, err := sitecheck.ParseStatuses(f.Status)
	if err != nil {
		return opts, sitecheck.DisplayFilter{}, err
	}
	return opts, sitecheck.DisplayFilter{Statuses: statuses, OnlyErrors: f.OnlyErrors}, nil
}

func (f checkFlags) write(report *model.TreeReport) (err error) {
	exp, err := export.New(export.Format(f.Format))
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if f.Output != "" {
		file, cerr := os.Create(f.Output)
		if cerr != nil {
			return cerr
		}
		defer func() {
			if cerr := file.Close(); err == nil {
				err = cerr
			}
		}()
		w = file
	}

	if err := exp.Export(w, report); err != nil {
		return err
	}
	if f.FailOnBroken && report.HasErrors() {
		return errBrokenLinks
	}
	return nil
}

type checkCmd struct {
	checkFlags `embed:""`
	ID int64 `arg:"" help:"Content node id."`
}

func (c *checkCmd) Run(ctx context.Context, a *app) error {
	opts, filter, err := c.options()
	if err != nil {
		return err
	}
	svc, err := a.service(ctx)
	if err != nil {
		return err
	}

	page, err := svc.CheckPage(ctx, c.ID, opts, filter)
	if err != nil {
		return err
	}
	return c.write(export.SinglePage(page))
}

type checkTreeCmd struct {
	checkFlags `embed:""`
	ID int64 `arg:"" help:"Root content node id."`
}

func (c *checkTreeCmd) Run(ctx context.Context, a *app) error {
	opts, filter, err := c.options()
	if err != nil {
		return err
	}
	svc, err := a.service(ctx)
	if err != nil {
		return err
	}

	report, err := svc.CheckTree(ctx, c.ID, opts, filter)
	if err != nil {
		return err
	}
	return c.write(report)
}

type checkURLCmd struct {
	checkFlags `embed:""`
	URL string `arg:"" help:"Absolute http(s) URL of the page."`
}

func (c *checkURLCmd) Run(ctx context.Context, a *app) error {
	opts, filter, err := c.options()
	if err != nil {
		return err
	}

	page, err := a.engine.CheckURL(ctx, c.URL, opts)
	if err != nil {
		return err
	}
	filter.Apply(page)

	a.log.Info("page check complete", "url", c.URL, "links", page.LinksCount(), "broken_links", page.ErrorCount())
	return c.write(export.SinglePage(page))
}
