// Package sitecheck runs link checks against pages of the content tree and
// serves them over HTTP.
package sitecheck

import (
	"context"

	"github.com/Bahjat/page-link-checker/internal/content"
	"github.com/Bahjat/page-link-checker/internal/linkcheck"
	"github.com/Bahjat/page-link-checker/internal/model"
)

// PageChecker defines the contract for any single-page link check engine.
type PageChecker interface {
	CheckPage(ctx context.Context, node *content.Node, opts linkcheck.Options) (*model.CheckedPage, error)
}
