package sitemap

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Limit concurrent child-sitemap fetches during index expansion.
const maxConcurrentFetches = 10

// Collector walks a sitemap source and returns the page URLs it lists.
//
// Expansion goes exactly one level deep: a sitemapindex root is expanded into
// its child sitemaps, but a child is always read as a plain urlset, even if
// it carries sitemapindex markup itself. The bound caps worst-case fan-out
// and makes reference cycles impossible; it is a design limit, not an
// oversight.
type Collector struct {
	fetcher *Fetcher
	logger  *zap.Logger
}

func NewCollector(fetcher *Fetcher, logger *zap.Logger) *Collector {
	return &Collector{fetcher: fetcher, logger: logger}
}

// Collect resolves rootURL into a deduplicated list of page URLs in
// first-seen order. Failures on individual child sitemaps only reduce the
// result; Collect itself never fails, an unreachable root simply yields nil.
func (c *Collector) Collect(ctx context.Context, rootURL string) []string {
	body, ferr := c.fetcher.Fetch(ctx, rootURL)
	if ferr != nil {
		c.logger.Warn("sitemap fetch failed", zap.String("url", rootURL), zap.Error(ferr))
		return nil
	}

	doc := Parse(body)
	switch doc.Kind {
	case KindURLSet:
		return dedupe(doc.Locs)
	case KindIndex:
		return dedupe(c.expandIndex(ctx, doc.Locs))
	default:
		c.logger.Warn("sitemap has unrecognized shape", zap.String("url", rootURL))
		return nil
	}
}

// expandIndex fetches every child sitemap independently and concatenates
// their locs in child order. A failing child contributes zero URLs and never
// aborts its siblings.
func (c *Collector) expandIndex(ctx context.Context, children []string) []string {
	results := make([][]string, len(children))

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxConcurrentFetches)

	for i, child := range children {
		wg.Add(1)
		go func(i int, child string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			body, ferr := c.fetcher.Fetch(ctx, child)
			if ferr != nil {
				c.logger.Warn("child sitemap fetch failed", zap.String("url", child), zap.Error(ferr))
				return
			}
			doc := Parse(body)
			if doc.Kind != KindURLSet {
				c.logger.Warn("child sitemap is not a urlset", zap.String("url", child), zap.String("kind", string(doc.Kind)))
				return
			}
			results[i] = doc.Locs
		}(i, child)
	}
	wg.Wait()

	var merged []string
	for _, locs := range results {
		merged = append(merged, locs...)
	}
	return merged
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, u := range in {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
