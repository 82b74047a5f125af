package parser

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-catalog-crawler/models"
	"github.com/google/go-cmp/cmp"
)

const detailURL = "https://books.toscrape.com/catalogue/a-light-in-the-attic_1000/index.html"

type detailFixture struct {
	title        string
	availability string
	description  string
	rating       string
	crumbs       []string
	image        string
	noTitle      bool
	noDesc       bool
}

func defaultDetail() detailFixture {
	return detailFixture{
		title:        "A Light in the Attic",
		availability: "In stock (22 available)",
		description:  "It's hard to imagine a world without A Light in the Attic.",
		rating:       "Three",
		crumbs:       []string{"Home", "Books", "Poetry"},
		image:        "../../media/cache/fe/72/fe72f0532301ec28892ae79a629a293c.jpg",
	}
}

func (f detailFixture) html() string {
	var b strings.Builder
	b.WriteString("<html><body><ul class=\"breadcrumb\">")
	for i, crumb := range f.crumbs {
		fmt.Fprintf(&b, "<li><a href=\"%s\">%s</a></li>", strings.Repeat("../", i)+"index.html", crumb)
	}
	fmt.Fprintf(&b, "<li class=\"active\">%s</li></ul>", f.title)
	b.WriteString("<article class=\"product_page\"><div class=\"row\">")
	if f.image != "" {
		fmt.Fprintf(&b, "<div id=\"product_gallery\"><div class=\"item active\"><img src=\"%s\" alt=\"%s\" /></div></div>", f.image, f.title)
	}
	b.WriteString("<div class=\"product_main\">")
	if !f.noTitle {
		fmt.Fprintf(&b, "<h1>  %s  </h1>", f.title)
	}
	b.WriteString("<p class=\"price_color\">£51.77</p>")
	if f.rating != "" {
		fmt.Fprintf(&b, "<p class=\"star-rating %s\"><i class=\"icon-star\"></i></p>", f.rating)
	}
	b.WriteString("</div></div>")
	if !f.noDesc {
		b.WriteString("<div id=\"product_description\" class=\"sub-header\"><h2>Product Description</h2></div>")
		fmt.Fprintf(&b, "<p>%s</p>", f.description)
	}
	b.WriteString("<div class=\"sub-header\"><h2>Product Information</h2></div><table class=\"table table-striped\">")
	b.WriteString("<tr><th>UPC</th><td>a897fe39b1053632</td></tr>")
	b.WriteString("<tr><th>Product Type</th><td>Books</td></tr>")
	b.WriteString("<tr><th>Price (excl. tax)</th><td>£51.77</td></tr>")
	b.WriteString("<tr><th>Price (incl. tax)</th><td>£51.77</td></tr>")
	b.WriteString("<tr><th>Tax</th><td>£0.00</td></tr>")
	fmt.Fprintf(&b, "<tr><th>Availability</th><td>\n  %s\n</td></tr>", f.availability)
	b.WriteString("<tr><th>Number of reviews</th><td>0</td></tr>")
	b.WriteString("</table></article></body></html>")
	return b.String()
}

func parseFixture(t *testing.T, body string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc.Selection
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url %q: %v", raw, err)
	}
	return u
}

func TestExtractRecord(t *testing.T) {
	doc := parseFixture(t, defaultDetail().html())

	got, err := ExtractRecord(doc, mustURL(t, detailURL))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	want := &models.Record{
		PageURL:      detailURL,
		UPC:          "a897fe39b1053632",
		Title:        "A Light in the Attic",
		PriceInclTax: "£51.77",
		PriceExclTax: "£51.77",
		Quantity:     "22",
		Description:  "It's hard to imagine a world without A Light in the Attic.",
		Category:     "Poetry",
		Rating:       "Three",
		ImageURL:     "https://books.toscrape.com/media/cache/fe/72/fe72f0532301ec28892ae79a629a293c.jpg",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractRecordFallbacks(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*detailFixture)
		check  func(*testing.T, *models.Record)
	}{
		{
			name:   "missing description marker",
			mutate: func(f *detailFixture) { f.noDesc = true },
			check: func(t *testing.T, r *models.Record) {
				if r.Description != DescriptionPlaceholder {
					t.Fatalf("description = %q, want placeholder", r.Description)
				}
			},
		},
		{
			name:   "missing rating",
			mutate: func(f *detailFixture) { f.rating = "" },
			check: func(t *testing.T, r *models.Record) {
				if r.Rating != NoRating {
					t.Fatalf("rating = %q, want %q", r.Rating, NoRating)
				}
			},
		},
		{
			name:   "malformed availability",
			mutate: func(f *detailFixture) { f.availability = "Out of stock" },
			check: func(t *testing.T, r *models.Record) {
				if r.Quantity != "Out of stock" {
					t.Fatalf("quantity = %q, want raw availability text", r.Quantity)
				}
			},
		},
		{
			name:   "absolute image url",
			mutate: func(f *detailFixture) { f.image = "https://cdn.example.test/cover.jpg" },
			check: func(t *testing.T, r *models.Record) {
				if r.ImageURL != "https://cdn.example.test/cover.jpg" {
					t.Fatalf("image url = %q", r.ImageURL)
				}
			},
		},
		{
			name:   "no image",
			mutate: func(f *detailFixture) { f.image = "" },
			check: func(t *testing.T, r *models.Record) {
				if r.ImageURL != "" {
					t.Fatalf("image url = %q, want empty", r.ImageURL)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fixture := defaultDetail()
			tt.mutate(&fixture)
			record, err := ExtractRecord(parseFixture(t, fixture.html()), mustURL(t, detailURL))
			if err != nil {
				t.Fatalf("extract: %v", err)
			}
			tt.check(t, record)
		})
	}
}

func TestExtractRecordFailures(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*detailFixture)
		wantField string
	}{
		{
			name:      "missing title",
			mutate:    func(f *detailFixture) { f.noTitle = true },
			wantField: "title",
		},
		{
			name:      "shallow breadcrumb",
			mutate:    func(f *detailFixture) { f.crumbs = []string{"Home", "Books"} },
			wantField: "category",
		},
		{
			name:      "nested breadcrumb",
			mutate:    func(f *detailFixture) { f.crumbs = []string{"Home", "Books", "Fiction", "Poetry"} },
			wantField: "category",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fixture := defaultDetail()
			tt.mutate(&fixture)
			record, err := ExtractRecord(parseFixture(t, fixture.html()), mustURL(t, detailURL))
			if err == nil {
				t.Fatalf("expected extraction error, got record %+v", record)
			}
			var extractErr ExtractionError
			if !errors.As(err, &extractErr) {
				t.Fatalf("error %v is not an ExtractionError", err)
			}
			if extractErr.Field != tt.wantField {
				t.Fatalf("field = %q, want %q", extractErr.Field, tt.wantField)
			}
			if !errors.Is(err, ErrMissingElement) {
				t.Fatalf("expected ErrMissingElement in chain, got %v", err)
			}
		})
	}
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "In stock (22 available)", expected: "22"},
		{input: "In stock (1 available)", expected: "1"},
		{input: "In stock (0 available)", expected: "0"},
		{input: "In stock", expected: "In stock"},
		{input: "In stock (many available)", expected: "In stock (many available)"},
		{input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseQuantity(tt.input)
			if got != tt.expected {
				t.Fatalf("ParseQuantity(%q) = %q, want %q", tt.input, got, tt.expected)
			}
			if availableCount.MatchString(tt.input) {
				n, err := strconv.Atoi(got)
				if err != nil || n < 0 {
					t.Fatalf("matched availability produced %q, want non-negative integer", got)
				}
			}
		})
	}
}

func TestProductTableDefaults(t *testing.T) {
	table := ParseProductTable(parseFixture(t, defaultDetail().html()))
	if got := table.Get(KeyUPC); got != "a897fe39b1053632" {
		t.Fatalf("UPC = %q", got)
	}
	if got := table.Get("Not A Header"); got != "" {
		t.Fatalf("missing header = %q, want empty", got)
	}
	if got := table.Get(KeyAvailability); got != "In stock (22 available)" {
		t.Fatalf("availability = %q, want trimmed text", got)
	}
}
