package scraper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aluiziolira/go-catalog-crawler/parser"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Walk is the outcome of following a category's pagination chain.
type Walk struct {
	Pages    []string
	ItemURLs []string
}

// WalkCategory follows "next" links from startURL and returns every item URL
// in page order. Each page URL is fetched at most once; a link back to an
// already visited page ends the walk. Any fetch or parse failure is returned.
func (s *Scraper) WalkCategory(ctx context.Context, startURL string) (*Walk, error) {
	visited, err := lru.New[string, struct{}](s.cfg.VisitedCacheSize)
	if err != nil {
		return nil, fmt.Errorf("visited cache: %w", err)
	}

	walk := &Walk{}
	for next := startURL; next != ""; {
		if visited.Contains(next) {
			slog.Warn("pagination loop detected",
				slog.String("start", startURL),
				slog.String("url", next),
			)
			break
		}
		if s.cfg.MaxPages > 0 && len(walk.Pages) >= s.cfg.MaxPages {
			slog.Info("max pages reached",
				slog.String("start", startURL),
				slog.Int("pages", len(walk.Pages)),
			)
			break
		}
		if len(walk.Pages) > 0 {
			if err := s.sleep(ctx, s.cfg.PageDelay); err != nil {
				return nil, err
			}
		}
		visited.Add(next, struct{}{})

		page, err := s.fetcher.Fetch(ctx, next, phaseListing)
		if err != nil {
			s.noteError(next, err)
			return nil, fmt.Errorf("listing page: %w", err)
		}
		listing, err := parser.ParseListing(page.DOM, page.URL)
		if err != nil {
			s.noteError(next, err)
			return nil, fmt.Errorf("parse listing %s: %w", next, err)
		}

		s.pageCount++
		walk.Pages = append(walk.Pages, next)
		walk.ItemURLs = append(walk.ItemURLs, listing.ItemURLs...)
		slog.Debug("listing page walked",
			slog.String("url", next),
			slog.Int("items", len(listing.ItemURLs)),
			slog.Bool("has_next", listing.HasNext()),
		)
		next = listing.NextURL
	}
	return walk, nil
}
