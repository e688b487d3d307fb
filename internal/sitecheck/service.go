package sitecheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Bahjat/page-link-checker/internal/content"
	"github.com/Bahjat/page-link-checker/internal/linkcheck"
	"github.com/Bahjat/page-link-checker/internal/model"
	"github.com/Bahjat/page-link-checker/internal/platform/errs"
	"github.com/Bahjat/page-link-checker/internal/platform/requestid"
)

// DefaultPageConcurrency is the number of pages checked in parallel by CheckTree.
const DefaultPageConcurrency = 4

// Service looks pages up in the content repository, checks them with a
// PageChecker and logs results.
type Service struct {
	repo            content.Repository
	checker         PageChecker
	logger          *slog.Logger
	pageConcurrency int
	now             func() time.Time
}

// NewService creates a Service. A non-positive pageConcurrency means
// DefaultPageConcurrency.
func NewService(repo content.Repository, checker PageChecker, logger *slog.Logger, pageConcurrency int) *Service {
	if pageConcurrency <= 0 {
		pageConcurrency = DefaultPageConcurrency
	}
	return &Service{
		repo:            repo,
		checker:         checker,
		logger:          logger,
		pageConcurrency: pageConcurrency,
		now:             time.Now,
	}
}

// ListCheckableDescendantIDs returns rootID and its descendants in pre-order,
// skipping nodes that have no URL to check.
func (s *Service) ListCheckableDescendantIDs(ctx context.Context, rootID int64) ([]int64, error) {
	nodes, err := s.checkableNodes(ctx, rootID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids, nil
}

func (s *Service) checkableNodes(ctx context.Context, rootID int64) ([]*content.Node, error) {
	if rootID <= 0 {
		return nil, &errs.AppError{Kind: errs.InvalidInput, Message: "The node id must be a positive number."}
	}

	ids, err := s.repo.DescendantIDs(ctx, rootID)
	if err != nil {
		return nil, repoError(err, rootID)
	}

	nodes := make([]*content.Node, 0, len(ids))
	for _, id := range ids {
		node, err := s.repo.GetNode(ctx, id)
		if err != nil {
			return nil, repoError(err, id)
		}
		if node.URL == "" {
			continue
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// CheckPage checks the links of a single content page and flags the ones
// matching filter for display.
func (s *Service) CheckPage(ctx context.Context, pageID int64, opts linkcheck.Options, filter DisplayFilter) (*model.CheckedPage, error) {
	if pageID <= 0 {
		return nil, &errs.AppError{Kind: errs.InvalidInput, Message: "The node id must be a positive number."}
	}

	node, err := s.repo.GetNode(ctx, pageID)
	if err != nil {
		return nil, repoError(err, pageID)
	}

	return s.checkNode(ctx, node, opts, filter)
}

func (s *Service) checkNode(ctx context.Context, node *content.Node, opts linkcheck.Options, filter DisplayFilter) (*model.CheckedPage, error) {
	logger := s.logger.With("page_id", node.ID, "url", node.URL, "request_id", requestid.FromContext(ctx))
	start := s.now()

	page, err := s.checker.CheckPage(ctx, node, opts)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && errs.KindOf(err) != errs.Timeout {
			err = &errs.AppError{
				Kind:    errs.Timeout,
				Message: "The link check timed out. The page may be slow to respond.",
				Cause:   err,
			}
		}

		attrs := []any{"error", err}
		var appErr *errs.AppError
		if errors.As(err, &appErr) && appErr.UpstreamStatus != 0 {
			attrs = append(attrs, "target_status", appErr.UpstreamStatus)
		}
		logger.Error("page check failed", attrs...)
		return nil, err
	}

	filter.Apply(page)

	logger.Info("page check complete",
		"links", page.LinksCount(),
		"ok_links", page.SuccessCount(),
		"broken_links", page.ErrorCount(),
		"displayed_links", page.DisplayCount(),
		"duration", s.now().Sub(start).String(),
	)
	return page, nil
}

// CheckTree checks every checkable page under rootID, several pages at a
// time. A page that cannot be fetched is recorded with its FetchError and
// does not stop the others. Pages are reported in tree order.
func (s *Service) CheckTree(ctx context.Context, rootID int64, opts linkcheck.Options, filter DisplayFilter) (*model.TreeReport, error) {
	nodes, err := s.checkableNodes(ctx, rootID)
	if err != nil {
		return nil, err
	}

	report := &model.TreeReport{RootID: rootID, Pages: make([]*model.CheckedPage, 0, len(nodes)), StartedAt: s.now()}
	pages := make([]*model.CheckedPage, len(nodes))

	var g errgroup.Group
	g.SetLimit(s.pageConcurrency)
	for i, node := range nodes {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			page, err := s.checkNode(ctx, node, opts, filter)
			if err != nil {
				page = model.NewCheckedPage(*node)
				page.FetchError = errorMessage(err)
			}
			pages[i] = page
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &errs.AppError{Kind: errs.Timeout, Message: "The tree check timed out.", Cause: err}
		}
		return nil, err
	}

	for _, page := range pages {
		report.Add(page)
	}
	report.FinishedAt = s.now()

	s.logger.Info("tree check complete",
		"root_id", rootID,
		"request_id", requestid.FromContext(ctx),
		"pages", report.Totals.PagesChecked,
		"failed_pages", report.Totals.PagesFailed,
		"links", report.Totals.LinksChecked,
		"broken_links", report.Totals.LinksError,
		"duration", report.FinishedAt.Sub(report.StartedAt).String(),
	)
	return report, nil
}

// repoError converts repository failures into application errors.
func repoError(err error, id int64) error {
	if errors.Is(err, content.ErrNotFound) {
		return &errs.AppError{
			Kind:    errs.NotFound,
			Message: fmt.Sprintf("No node could be found with an id of %d.", id),
			Cause:   err,
		}
	}
	return &errs.AppError{Kind: errs.Unknown, Message: "The content repository failed.", Cause: err}
}

// errorMessage is the user-facing text of err.
func errorMessage(err error) string {
	var appErr *errs.AppError
	if errors.As(err, &appErr) {
		if appErr.UpstreamStatus != 0 {
			return fmt.Sprintf("%s (HTTP %d)", appErr.Message, appErr.UpstreamStatus)
		}
		return appErr.Message
	}
	return err.Error()
}
