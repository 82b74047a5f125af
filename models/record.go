// Package models defines data structures for the crawler.
package models

import "time"

// Record is one catalog item extracted from its detail page.
type Record struct {
	PageURL      string `csv:"product_page_url" json:"product_page_url"`
	UPC          string `csv:"universal_product_code" json:"universal_product_code"`
	Title        string `csv:"book_title" json:"book_title"`
	PriceInclTax string `csv:"price_including_tax" json:"price_including_tax"`
	PriceExclTax string `csv:"price_excluding_tax" json:"price_excluding_tax"`
	Quantity     string `csv:"quantity_available" json:"quantity_available"`
	Description  string `csv:"product_description" json:"product_description"`
	Category     string `csv:"category" json:"category"`
	Rating       string `csv:"review_rating" json:"review_rating"`
	ImageURL     string `csv:"image_url" json:"image_url"`
}

// Category is a named catalog partition and the URL of its first listing page.
type Category struct {
	Name string
	URL  string
}

// CategoryResult summarises the crawl of a single category.
type CategoryResult struct {
	Name         string
	URL          string
	PageCount    int
	ItemCount    int
	RecordCount  int
	SkippedItems int
	ImagesSaved  int
	ImageErrors  int
	OutputFiles  []string
}

// CrawlResult holds the overall result of a crawl run.
type CrawlResult struct {
	Categories   []*CategoryResult
	StartTime    time.Time
	EndTime      time.Time
	TotalCount   int
	ErrorCount   int
	FailedURLs   []string
	ErrorsByType map[string]int
	RequestCount int
	PageCount    int
}
