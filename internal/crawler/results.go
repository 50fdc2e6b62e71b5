package crawler

import "github.com/bradykim7/auchan-crawler/internal/models"

// Results accumulates the products of fully processed pages in crawl order.
// Every card becomes one record, even when product IDs repeat; pages are
// committed at most once by the crawler.
type Results struct {
	products []models.Product
}

// NewResults creates an empty accumulator
func NewResults() *Results {
	return &Results{}
}

// Commit appends the products of one fully processed page.
func (r *Results) Commit(products []models.Product) {
	r.products = append(r.products, products...)
}

// Products returns a copy of the accumulated products. The result is never
// nil.
func (r *Results) Products() []models.Product {
	out := make([]models.Product, len(r.products))
	copy(out, r.products)
	return out
}

// Len returns the number of committed products
func (r *Results) Len() int {
	return len(r.products)
}
