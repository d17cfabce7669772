package pipeline

import (
	"context"
	"errors"
	"fmt"

	"indexpilot/internal/indexnow"
	"indexpilot/internal/models"

	"go.uber.org/zap"
)

var (
	ErrNotFound            = errors.New("site not found")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrMissingKey          = errors.New("indexnow key not configured")
)

// SiteStore resolves a site only if the given user owns it.
type SiteStore interface {
	OwnedSite(userID, siteID uint) (*models.Site, error)
}

// CreditLedger is the atomic credit store. Decrement must be conditional at
// the storage layer: it returns false, leaving the balance untouched, when
// fewer than n credits remain.
type CreditLedger interface {
	Balance(userID uint) (int64, error)
	Decrement(userID uint, n int) (bool, error)
}

// Recorder persists one append-only submission row per URL.
type Recorder interface {
	RecordBatch(siteID uint, urls []string, statusCode int) error
}

// Submitter is the IndexNow wire client.
type Submitter interface {
	Submit(ctx context.Context, host, key string, keyLocation *string, urls []string) indexnow.Result
}

// Discoverer expands one sitemap source into page URLs.
type Discoverer interface {
	Collect(ctx context.Context, sitemapURL string) []string
}

// Request describes one pipeline invocation. ManualURLs, when set, bypass
// discovery entirely; otherwise SitemapURLs are collected and merged.
type Request struct {
	User          *models.User
	SiteID        uint
	SitemapURLs   []string
	ManualURLs    []string
	PerRequestMax int

	// OnSourceCrawled, when set, is called once per discovered sitemap
	// source with the number of URLs it yielded. Used for best-effort stat
	// refreshes; the hook must not block.
	OnSourceCrawled func(sitemapURL string, urlCount int)
}

// Result is the per-invocation summary returned to callers.
type Result struct {
	Success          bool        `json:"success"`
	Submitted        int         `json:"submitted"`
	Failed           int         `json:"failed"`
	CreditsUsed      int         `json:"credits_used"`
	CreditsRemaining int64       `json:"credits_remaining"`
	Results          []URLResult `json:"results"`
	Message          string      `json:"message,omitempty"`

	// UpstreamDown marks a transport-level IndexNow failure (no HTTP
	// response at all), which handlers surface as 502.
	UpstreamDown bool `json:"-"`

	// IndexNow carries the raw wire outcome for callers that echo it,
	// like the dashboard sync endpoint.
	IndexNow indexnow.Result `json:"-"`
}

type URLResult struct {
	URL    string `json:"url"`
	Status int    `json:"status"`
}

// Orchestrator runs the submit pipeline: resolve site, check credits,
// discover candidates, batch, submit, record, decrement. Each invocation is
// an independent unit of work; the only shared state is the ledger and the
// submission history behind their interfaces.
type Orchestrator struct {
	sites     SiteStore
	ledger    CreditLedger
	recorder  Recorder
	submitter Submitter
	discover  Discoverer
	logger    *zap.Logger
}

func NewOrchestrator(sites SiteStore, ledger CreditLedger, recorder Recorder, submitter Submitter, discover Discoverer, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		sites:     sites,
		ledger:    ledger,
		recorder:  recorder,
		submitter: submitter,
		discover:  discover,
		logger:    logger,
	}
}

func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	site, err := o.sites.OwnedSite(req.User.ID, req.SiteID)
	if err != nil {
		return nil, err
	}

	// Test-mode keys simulate the whole call: no credits, no network.
	if req.User.TestMode {
		return o.simulate(site, req), nil
	}

	balance, err := o.ledger.Balance(req.User.ID)
	if err != nil {
		return nil, fmt.Errorf("read credit balance: %w", err)
	}
	if balance < 1 {
		return nil, ErrInsufficientCredits
	}

	candidates := req.ManualURLs
	if len(candidates) == 0 {
		candidates = o.discoverCandidates(ctx, req)
	}
	if len(candidates) == 0 {
		// Unreachable or empty sitemaps: fall back to the bare domain so
		// the site's root still gets pinged.
		candidates = []string{"https://" + indexnow.Hostname(site.Domain)}
	}

	batch := MakeBatch(candidates, req.PerRequestMax, balance)

	if site.IndexNowKey == "" {
		// Hard precondition: unkeyed submissions cannot be attributed.
		return nil, ErrMissingKey
	}

	host := indexnow.Hostname(site.Domain)
	res := o.submitter.Submit(ctx, host, site.IndexNowKey, site.KeyLocation, batch.URLs)

	status := res.Status
	if res.Success {
		status = 200
	}

	// History must never omit an attempted submission, so rows are written
	// before any credit accounting.
	if err := o.recorder.RecordBatch(site.ID, batch.URLs, status); err != nil {
		return nil, fmt.Errorf("record submissions: %w", err)
	}

	creditsUsed := 0
	if res.Success {
		ok, err := o.ledger.Decrement(req.User.ID, len(batch.URLs))
		if err != nil {
			return nil, fmt.Errorf("decrement credits: %w", err)
		}
		if ok {
			creditsUsed = len(batch.URLs)
		} else {
			// Lost a race with a concurrent invocation; balance stays
			// non-negative, this call just goes unbilled.
			o.logger.Warn("credit decrement lost race", zap.Uint("user_id", req.User.ID), zap.Int("requested", len(batch.URLs)))
		}
	}

	remaining, err := o.ledger.Balance(req.User.ID)
	if err != nil {
		remaining = balance - int64(creditsUsed)
	}

	out := &Result{
		Success:          res.Success,
		CreditsUsed:      creditsUsed,
		CreditsRemaining: remaining,
		Message:          res.Message,
		UpstreamDown:     !res.Success && res.Status == 0,
		IndexNow:         res,
		Results:          make([]URLResult, 0, len(batch.URLs)),
	}
	if res.Success {
		out.Submitted = len(batch.URLs)
	} else {
		out.Failed = len(batch.URLs)
	}
	for _, u := range batch.URLs {
		out.Results = append(out.Results, URLResult{URL: u, Status: status})
	}

	o.logger.Info("pipeline finished",
		zap.Uint("site_id", site.ID),
		zap.Int("requested", batch.Requested),
		zap.Int("submitted", out.Submitted),
		zap.Int("failed", out.Failed),
		zap.Int("dropped", batch.Dropped),
		zap.Int("credits_used", creditsUsed),
	)

	return out, nil
}

func (o *Orchestrator) discoverCandidates(ctx context.Context, req Request) []string {
	seen := make(map[string]struct{})
	var merged []string
	for _, src := range req.SitemapURLs {
		locs := o.discover.Collect(ctx, src)
		if req.OnSourceCrawled != nil {
			req.OnSourceCrawled(src, len(locs))
		}
		for _, u := range locs {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			merged = append(merged, u)
		}
	}
	return merged
}

// simulate returns a success summary without touching credits, history, or
// the network. Candidates come from the manual list when given, else the
// bare domain; discovery is skipped because test mode must not do I/O.
func (o *Orchestrator) simulate(site *models.Site, req Request) *Result {
	candidates := req.ManualURLs
	if len(candidates) == 0 {
		candidates = []string{"https://" + indexnow.Hostname(site.Domain)}
	}
	batch := MakeBatch(candidates, req.PerRequestMax, int64(len(candidates)))

	out := &Result{
		Success:          true,
		Submitted:        len(batch.URLs),
		CreditsUsed:      0,
		CreditsRemaining: req.User.Credits,
		Message:          "test mode: submission simulated",
		IndexNow:         indexnow.Result{Success: true, Status: 200, Message: "test mode: submission simulated"},
		Results:          make([]URLResult, 0, len(batch.URLs)),
	}
	for _, u := range batch.URLs {
		out.Results = append(out.Results, URLResult{URL: u, Status: 200})
	}
	return out
}
