package crawler

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/bradykim7/auchan-crawler/internal/models"
)

// MissingFieldError means the markup no longer matches the schema.
type MissingFieldError struct {
	Field    string
	Selector string
}

func (e *MissingFieldError) Error() string {
	if e.Selector == "" {
		return fmt.Sprintf("card field %q not found", e.Field)
	}
	return fmt.Sprintf("card field %q not found (selector %q)", e.Field, e.Selector)
}

// ExtractCards returns the product cards of a listing page in document order.
func ExtractCards(doc *goquery.Document, sel Selectors) []*goquery.Selection {
	cards := make([]*goquery.Selection, 0)
	doc.Find(sel.Card).Each(func(_ int, s *goquery.Selection) {
		cards = append(cards, s)
	})
	return cards
}

// BuildRecord extracts every field but the brand from a card. The link is
// made absolute against baseURL.
func BuildRecord(card *goquery.Selection, sel Selectors, baseURL string) (models.Product, error) {
	var (
		p   models.Product
		err error
	)

	if p.ID, err = extractField(card, "product ID", sel.ID); err != nil {
		return p, err
	}
	if p.ID == "" {
		return p, &MissingFieldError{Field: "product ID", Selector: sel.ID.Selector}
	}

	if p.Name, err = extractField(card, "name", sel.Name); err != nil {
		return p, err
	}

	href, err := extractField(card, "product link", sel.Link)
	if err != nil {
		return p, err
	}
	if href == "" {
		return p, &MissingFieldError{Field: "product link", Selector: sel.Link.Selector}
	}
	p.URL = absoluteURL(baseURL, href)

	if p.RegularPrice, err = extractField(card, "regular price", sel.RegularPrice); err != nil {
		return p, err
	}
	if p.PromoPrice, err = extractField(card, "promo price", sel.PromoPrice); err != nil {
		return p, err
	}

	return p, nil
}

func extractField(card *goquery.Selection, field string, rule FieldRule) (string, error) {
	s := card
	if rule.Selector != "" {
		s = card.Find(rule.Selector).First()
		if s.Length() == 0 {
			return "", &MissingFieldError{Field: field, Selector: rule.Selector}
		}
	}

	if rule.Attr == "" {
		return strings.TrimSpace(s.Text()), nil
	}

	value, exists := s.Attr(rule.Attr)
	if !exists {
		return "", &MissingFieldError{Field: field, Selector: rule.Selector + "[" + rule.Attr + "]"}
	}
	return strings.TrimSpace(value), nil
}

// absoluteURL prefixes hrefs with baseURL. Absolute hrefs keep only their
// path and query so every link stays on the catalog site.
func absoluteURL(baseURL, href string) string {
	baseURL = strings.TrimRight(baseURL, "/")
	if strings.HasPrefix(href, baseURL+"/") {
		return href
	}
	if u, err := url.Parse(href); err == nil && u.IsAbs() {
		href = u.RequestURI()
	}
	return baseURL + "/" + strings.TrimLeft(href, "/")
}
