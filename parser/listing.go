package parser

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-catalog-crawler/models"
)

// RootCategory is the navigation entry that lists the whole catalog.
const RootCategory = "Books"

// ErrNoCategories is returned when the root page has no category navigation.
var ErrNoCategories = errors.New("category navigation not found")

// ListingPage holds the links found on one page of a category listing.
type ListingPage struct {
	ItemURLs []string
	NextURL  string
}

// HasNext reports whether the page links to a following page.
func (p ListingPage) HasNext() bool {
	return p.NextURL != ""
}

// ParseCategories lists the catalog categories in document order, skipping
// the root pseudo-category.
func ParseCategories(doc *goquery.Selection, pageURL *url.URL) ([]models.Category, error) {
	links := doc.Find("div.side_categories ul li a")
	if links.Length() == 0 {
		return nil, ErrNoCategories
	}

	var (
		categories []models.Category
		firstErr   error
	)
	links.EachWithBreak(func(_ int, a *goquery.Selection) bool {
		name := cleanText(a.Text())
		if name == "" || name == RootCategory {
			return true
		}
		abs, err := ResolveURL(pageURL, a.AttrOr("href", ""))
		if err != nil {
			firstErr = fmt.Errorf("category %q: %w", name, err)
			return false
		}
		categories = append(categories, models.Category{Name: name, URL: abs})
		return true
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return categories, nil
}

// ParseListing collects item detail links and the next-page link of a listing page.
func ParseListing(doc *goquery.Selection, pageURL *url.URL) (ListingPage, error) {
	var (
		page     ListingPage
		firstErr error
	)

	doc.Find("article.product_pod h3 a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		abs, err := ResolveURL(pageURL, a.AttrOr("href", ""))
		if err != nil {
			firstErr = fmt.Errorf("item link: %w", err)
			return false
		}
		page.ItemURLs = append(page.ItemURLs, abs)
		return true
	})
	if firstErr != nil {
		return ListingPage{}, firstErr
	}

	if href, ok := doc.Find("li.next a[href]").First().Attr("href"); ok && href != "" {
		next, err := ResolveURL(pageURL, href)
		if err != nil {
			return ListingPage{}, fmt.Errorf("next link: %w", err)
		}
		page.NextURL = next
	}

	return page, nil
}
