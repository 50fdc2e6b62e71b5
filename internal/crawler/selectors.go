package crawler

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// FieldRule locates one value inside a card. An empty Selector means the
// card element itself; an empty Attr means the element's text.
type FieldRule struct {
	Selector string `yaml:"selector"`
	Attr     string `yaml:"attr"`
}

// Selectors is the markup schema of the catalog. Class names on the site are
// generated, so they live in configuration rather than in code.
type Selectors struct {
	Card         string    `yaml:"card"`
	ID           FieldRule `yaml:"id"`
	Name         FieldRule `yaml:"name"`
	Link         FieldRule `yaml:"link"`
	RegularPrice FieldRule `yaml:"regular_price"`
	PromoPrice   FieldRule `yaml:"promo_price"`

	// Characteristics table on the product page
	BrandRow    string `yaml:"brand_row"`
	BrandHeader string `yaml:"brand_header"`
	BrandValue  string `yaml:"brand_value"`
	BrandLabel  string `yaml:"brand_label"`
}

// DefaultSelectors returns the schema of the auchan.ru mobile catalog.
func DefaultSelectors() Selectors {
	return Selectors{
		Card:         "div.css-n9ebcy-Item",
		ID:           FieldRule{Attr: "data-offer-id"},
		Name:         FieldRule{Selector: "p.css-1bdovxp"},
		Link:         FieldRule{Selector: "a.linkToPDP.active.css-do8div", Attr: "href"},
		RegularPrice: FieldRule{Selector: "div.active.css-xtv3eo"},
		PromoPrice:   FieldRule{Selector: "div.active.css-1hxq85i"},
		BrandRow:     "tr",
		BrandHeader:  "th",
		BrandValue:   "td",
		BrandLabel:   "Бренд",
	}
}

// LoadSelectors reads a YAML schema file. Keys absent from the file keep
// their default values.
func LoadSelectors(path string) (Selectors, error) {
	sel := DefaultSelectors()
	if path == "" {
		return sel, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Selectors{}, fmt.Errorf("failed to read selectors file: %w", err)
	}
	if err := yaml.Unmarshal(data, &sel); err != nil {
		return Selectors{}, fmt.Errorf("failed to parse selectors file %s: %w", path, err)
	}
	if err := sel.Validate(); err != nil {
		return Selectors{}, fmt.Errorf("selectors file %s: %w", path, err)
	}
	return sel, nil
}

// Validate checks that every rule can match something
func (s Selectors) Validate() error {
	required := map[string]string{
		"card":         s.Card,
		"brand_row":    s.BrandRow,
		"brand_header": s.BrandHeader,
		"brand_value":  s.BrandValue,
		"brand_label":  s.BrandLabel,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s selector is empty", name)
		}
	}

	rules := map[string]FieldRule{
		"id":            s.ID,
		"name":          s.Name,
		"link":          s.Link,
		"regular_price": s.RegularPrice,
		"promo_price":   s.PromoPrice,
	}
	for name, rule := range rules {
		if rule.Selector == "" && rule.Attr == "" {
			return fmt.Errorf("%s rule needs a selector or an attribute", name)
		}
	}
	if s.Link.Attr == "" {
		return fmt.Errorf("link rule must read an attribute")
	}
	return nil
}
