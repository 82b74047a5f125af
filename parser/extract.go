package parser

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-catalog-crawler/models"
)

const (
	// DescriptionPlaceholder is used when a detail page has no description block.
	DescriptionPlaceholder = "No description available."
	// NoRating is used when a detail page has no rating marker.
	NoRating = "No rating"

	breadcrumbDepth = 4
)

// Product table header keys.
const (
	KeyUPC          = "UPC"
	KeyPriceInclTax = "Price (incl. tax)"
	KeyPriceExclTax = "Price (excl. tax)"
	KeyAvailability = "Availability"
)

// ErrMissingElement marks a detail page that lacks a required element.
var ErrMissingElement = errors.New("missing element")

var availableCount = regexp.MustCompile(`\((\d+) available\)`)

// ExtractionError reports a detail page that could not be turned into a record.
type ExtractionError struct {
	URL   string
	Field string
	Err   error
}

func (e ExtractionError) Error() string {
	return fmt.Sprintf("extract %s from %s: %v", e.Field, e.URL, e.Err)
}

func (e ExtractionError) Unwrap() error {
	return e.Err
}

// ProductTable maps product information header cells to their data cells.
// Lookups of absent headers yield the empty string.
type ProductTable map[string]string

// ParseProductTable reads every th/td row under sel.
func ParseProductTable(sel *goquery.Selection) ProductTable {
	table := make(ProductTable)
	sel.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		header := strings.TrimSpace(row.Find("th").First().Text())
		if header == "" {
			return
		}
		table[header] = strings.TrimSpace(row.Find("td").First().Text())
	})
	return table
}

// Get returns the value for header, or "" when the row is absent.
func (t ProductTable) Get(header string) string {
	return t[header]
}

// ParseQuantity pulls N out of "(N available)". Text without that pattern is
// returned verbatim.
func ParseQuantity(availability string) string {
	if m := availableCount.FindStringSubmatch(availability); m != nil {
		return m[1]
	}
	return availability
}

// ExtractRecord builds a record from a parsed detail page served at pageURL.
func ExtractRecord(doc *goquery.Selection, pageURL *url.URL) (*models.Record, error) {
	if doc == nil || pageURL == nil {
		return nil, ExtractionError{Field: "page", Err: errors.New("nil document or url")}
	}
	page := pageURL.String()

	title := extractTitle(doc)
	if title == "" {
		return nil, ExtractionError{URL: page, Field: "title", Err: ErrMissingElement}
	}

	category, err := extractCategory(doc)
	if err != nil {
		return nil, ExtractionError{URL: page, Field: "category", Err: err}
	}

	imageURL, err := extractImageURL(doc, pageURL)
	if err != nil {
		return nil, ExtractionError{URL: page, Field: "image", Err: err}
	}

	table := ParseProductTable(doc)

	return &models.Record{
		PageURL:      page,
		UPC:          table.Get(KeyUPC),
		Title:        title,
		PriceInclTax: table.Get(KeyPriceInclTax),
		PriceExclTax: table.Get(KeyPriceExclTax),
		Quantity:     ParseQuantity(table.Get(KeyAvailability)),
		Description:  extractDescription(doc),
		Category:     category,
		Rating:       extractRating(doc),
		ImageURL:     imageURL,
	}, nil
}

func extractTitle(doc *goquery.Selection) string {
	heading := doc.Find("div.product_main h1").First()
	if heading.Length() == 0 {
		heading = doc.Find("h1").First()
	}
	return strings.TrimSpace(heading.Text())
}

func extractDescription(doc *goquery.Selection) string {
	marker := doc.Find("#product_description").First()
	if marker.Length() == 0 {
		return DescriptionPlaceholder
	}
	paragraph := marker.NextAllFiltered("p").First()
	if paragraph.Length() == 0 {
		return DescriptionPlaceholder
	}
	return strings.TrimSpace(paragraph.Text())
}

// extractCategory takes the second-to-last breadcrumb entry. Only the
// root/Books/category/title layout is understood.
func extractCategory(doc *goquery.Selection) (string, error) {
	crumbs := doc.Find("ul.breadcrumb li")
	if crumbs.Length() != breadcrumbDepth {
		return "", fmt.Errorf("breadcrumb has %d entries, want %d: %w", crumbs.Length(), breadcrumbDepth, ErrMissingElement)
	}
	return cleanText(crumbs.Eq(breadcrumbDepth - 2).Text()), nil
}

func extractRating(doc *goquery.Selection) string {
	class, ok := doc.Find("p.star-rating").First().Attr("class")
	if !ok {
		return NoRating
	}
	for _, token := range strings.Fields(class) {
		if token != "star-rating" {
			return token
		}
	}
	return NoRating
}

func extractImageURL(doc *goquery.Selection, pageURL *url.URL) (string, error) {
	src, ok := doc.Find("div.item.active img").First().Attr("src")
	if !ok {
		src, ok = doc.Find("img[src]").First().Attr("src")
	}
	if !ok || strings.TrimSpace(src) == "" {
		return "", nil
	}
	return ResolveURL(pageURL, src)
}
