package crawler

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/bradykim7/auchan-crawler/internal/models"
	"github.com/bradykim7/auchan-crawler/internal/retry"
	"go.uber.org/zap"
)

// Fetcher is the part of Session the resolvers depend on
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, opts FetchOptions) (string, error)
}

// BrandResolver looks up a product's brand in the characteristics table of
// its detail page.
type BrandResolver struct {
	fetcher Fetcher
	sel     Selectors
	policy  retry.Policy
	log     *zap.Logger
}

// NewBrandResolver creates a resolver that retries page fetches per policy
func NewBrandResolver(f Fetcher, sel Selectors, policy retry.Policy, log *zap.Logger) *BrandResolver {
	return &BrandResolver{
		fetcher: f,
		sel:     sel,
		policy:  policy,
		log:     log.Named("brand"),
	}
}

// Resolve returns the brand of the product at productURL, or models.NoBrand
// when the page has no brand row. Fetch errors are retried and returned once
// the policy is exhausted.
func (r *BrandResolver) Resolve(ctx context.Context, productURL string) (string, error) {
	return retry.Do(ctx, r.policy, r.log.With(zap.String("url", productURL)), func(ctx context.Context) (string, error) {
		body, err := r.fetcher.Fetch(ctx, productURL, FetchOptions{})
		if err != nil {
			return "", err
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
		if err != nil {
			return "", retry.Permanent(fmt.Errorf("failed to parse product page: %w", err))
		}
		return FindBrand(doc, r.sel), nil
	})
}

// FindBrand scans table rows for the one whose header cell reads the brand
// label and returns its data cell.
func FindBrand(doc *goquery.Document, sel Selectors) string {
	brand := models.NoBrand
	doc.Find(sel.BrandRow).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		header := row.Find(sel.BrandHeader).First()
		if header.Length() == 0 || strings.TrimSpace(header.Text()) != sel.BrandLabel {
			return true
		}
		brand = strings.TrimSpace(row.Find(sel.BrandValue).First().Text())
		return false
	})
	if brand == "" {
		return models.NoBrand
	}
	return brand
}
