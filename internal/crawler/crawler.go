package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/bradykim7/auchan-crawler/internal/models"
	"github.com/bradykim7/auchan-crawler/internal/retry"
	"github.com/bradykim7/auchan-crawler/pkg/config"
	"go.uber.org/zap"
)

const (
	regionCookie = "region_id"
	pageParam    = "page"
)

// Options configures a crawl
type Options struct {
	CatalogURL string
	BaseURL    string
	Pages      int
	Regions    []config.Region
	Selectors  Selectors
	Timeout    time.Duration

	// PagePolicy retries a single listing page fetch, BrandPolicy a single
	// product page fetch. RunPolicy retries the whole crawl, which resumes
	// after the last completed page.
	PagePolicy  retry.Policy
	BrandPolicy retry.Policy
	RunPolicy   retry.Policy
}

// OptionsFromConfig builds crawl options from application configuration
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	sel, err := LoadSelectors(cfg.SelectorsFile)
	if err != nil {
		return Options{}, err
	}

	policy := retry.Policy{
		Attempts: cfg.RetryAttempts,
		Delay:    cfg.RetryDelay,
		Backoff:  cfg.RetryBackoff,
	}

	return Options{
		CatalogURL:  cfg.CatalogURL,
		BaseURL:     cfg.BaseURL,
		Pages:       cfg.Pages,
		Regions:     append([]config.Region(nil), cfg.Regions...),
		Selectors:   sel,
		Timeout:     cfg.HTTPTimeout,
		PagePolicy:  policy,
		BrandPolicy: policy,
		RunPolicy:   policy,
	}, nil
}

// Stats counts what a crawl did
type Stats struct {
	RunAttempts    int `json:"run_attempts"`
	PagesFetched   int `json:"pages_fetched"`
	CardsSeen      int `json:"cards_seen"`
	BrandFallbacks int `json:"brand_fallbacks"`
	Products       int `json:"products"`
}

type pageKey struct {
	region string
	page   int
}

// Crawler walks every region and page of the catalog in order
type Crawler struct {
	opts    Options
	log     *zap.Logger
	session *Session
	brands  *BrandResolver
	results *Results
	done    map[pageKey]bool
	stats   Stats
	now     func() time.Time
}

// New creates a crawler and opens its HTTP session
func New(opts Options, log *zap.Logger) (*Crawler, error) {
	if opts.Pages < 1 {
		return nil, fmt.Errorf("pages must be positive, got %d", opts.Pages)
	}
	if len(opts.Regions) == 0 {
		return nil, errors.New("no regions to crawl")
	}
	if err := opts.Selectors.Validate(); err != nil {
		return nil, err
	}

	log = log.Named("crawler")

	session, err := NewSession(log, opts.CatalogURL, opts.Timeout)
	if err != nil {
		return nil, err
	}

	return &Crawler{
		opts:    opts,
		log:     log,
		session: session,
		brands:  NewBrandResolver(session, opts.Selectors, opts.BrandPolicy, log),
		results: NewResults(),
		done:    make(map[pageKey]bool),
		now:     time.Now,
	}, nil
}

// Run crawls all regions and pages. On failure it returns the products
// committed so far together with the error.
func (c *Crawler) Run(ctx context.Context) ([]models.Product, error) {
	c.log.Info("Starting crawler run",
		zap.String("catalog", c.opts.CatalogURL),
		zap.Int("regions", len(c.opts.Regions)),
		zap.Int("pages", c.opts.Pages))

	err := retry.Run(ctx, c.opts.RunPolicy, c.log, c.crawlRemaining)

	products := c.results.Products()
	c.stats.Products = c.results.Len()

	if err != nil {
		c.log.Error("Crawler run failed",
			zap.Error(err),
			zap.Int("products", len(products)))
		return products, err
	}

	c.log.Info("Crawler run completed", zap.Int("products", len(products)))
	return products, nil
}

// crawlRemaining visits every (region, page) pair not yet committed.
func (c *Crawler) crawlRemaining(ctx context.Context) error {
	c.stats.RunAttempts++

	for _, region := range c.opts.Regions {
		c.log.Info("Crawling region",
			zap.String("region", region.Name),
			zap.String("region_id", region.ID))
		c.session.SetCookie(regionCookie, region.ID)

		for page := 1; page <= c.opts.Pages; page++ {
			key := pageKey{region: region.ID, page: page}
			if c.done[key] {
				continue
			}

			products, err := c.crawlPage(ctx, region, page)
			if err != nil {
				err = fmt.Errorf("region %s page %d: %w", region.ID, page, err)
				var missing *MissingFieldError
				if errors.As(err, &missing) || ctx.Err() != nil {
					return retry.Permanent(err)
				}
				return err
			}

			c.results.Commit(products)
			c.done[key] = true
		}
	}

	return nil
}

// crawlPage fetches one listing page and builds its records. Nothing is
// committed here.
func (c *Crawler) crawlPage(ctx context.Context, region config.Region, page int) ([]models.Product, error) {
	log := c.log.With(zap.String("region_id", region.ID), zap.Int("page", page))

	body, err := retry.Do(ctx, c.opts.PagePolicy, log, func(ctx context.Context) (string, error) {
		return c.session.Fetch(ctx, c.opts.CatalogURL, FetchOptions{
			Cookies: map[string]string{regionCookie: region.ID},
			Params:  url.Values{pageParam: {strconv.Itoa(page)}},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing: %w", err)
	}
	c.stats.PagesFetched++

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	cards := ExtractCards(doc, c.opts.Selectors)
	c.stats.CardsSeen += len(cards)
	log.Debug("Found cards", zap.Int("cards", len(cards)))

	products := make([]models.Product, 0, len(cards))
	for i, card := range cards {
		product, err := BuildRecord(card, c.opts.Selectors, c.opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("card %d: %w", i+1, err)
		}

		product.Brand, err = c.resolveBrand(ctx, product.URL)
		if err != nil {
			return nil, err
		}
		product.Region = region.ID
		product.CrawledAt = c.now()

		products = append(products, product)
		log.Info("Product added",
			zap.String("product_id", product.ID),
			zap.String("name", product.Name),
			zap.String("regular_price", product.RegularPrice),
			zap.String("promo_price", product.PromoPrice),
			zap.String("brand", product.Brand),
			zap.String("url", product.URL))
	}

	return products, nil
}

// resolveBrand falls back to models.NoBrand when the product page cannot be
// fetched. Only cancellation is returned as an error.
func (c *Crawler) resolveBrand(ctx context.Context, productURL string) (string, error) {
	brand, err := c.brands.Resolve(ctx, productURL)
	if err == nil {
		return brand, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}

	c.stats.BrandFallbacks++
	c.log.Warn("Brand lookup failed, using placeholder",
		zap.Error(err),
		zap.String("url", productURL))
	return models.NoBrand, nil
}

// Stats returns counters of the crawl so far
func (c *Crawler) Stats() Stats {
	return c.stats
}

// Close releases the HTTP session
func (c *Crawler) Close() error {
	return c.session.Close()
}
