package pipeline

import (
	"context"
	"sync"
	"testing"

	"indexpilot/internal/indexnow"
	"indexpilot/internal/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSites struct {
	site  *models.Site
	owner uint
}

func (f *fakeSites) OwnedSite(userID, siteID uint) (*models.Site, error) {
	if f.site == nil || userID != f.owner || siteID != f.site.ID {
		return nil, ErrNotFound
	}
	return f.site, nil
}

type fakeLedger struct {
	mu      sync.Mutex
	balance int64
}

func (f *fakeLedger) Balance(userID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balance, nil
}

func (f *fakeLedger) Decrement(userID uint, n int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balance < int64(n) {
		return false, nil
	}
	f.balance -= int64(n)
	return true, nil
}

type recordedRow struct {
	siteID uint
	url    string
	status int
}

type fakeRecorder struct {
	mu   sync.Mutex
	rows []recordedRow
}

func (f *fakeRecorder) RecordBatch(siteID uint, urls []string, statusCode int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range urls {
		f.rows = append(f.rows, recordedRow{siteID: siteID, url: u, status: statusCode})
	}
	return nil
}

type submitCall struct {
	host string
	key  string
	urls []string
}

type fakeSubmitter struct {
	mu     sync.Mutex
	result indexnow.Result
	calls  []submitCall
}

func (f *fakeSubmitter) Submit(ctx context.Context, host, key string, keyLocation *string, urls []string) indexnow.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, submitCall{host: host, key: key, urls: urls})
	return f.result
}

type fakeDiscoverer struct {
	byURL map[string][]string
	calls int
}

func (f *fakeDiscoverer) Collect(ctx context.Context, sitemapURL string) []string {
	f.calls++
	return f.byURL[sitemapURL]
}

type fixture struct {
	sites     *fakeSites
	ledger    *fakeLedger
	recorder  *fakeRecorder
	submitter *fakeSubmitter
	discover  *fakeDiscoverer
	orch      *Orchestrator
	user      *models.User
}

func newFixture(balance int64, key string) *fixture {
	user := &models.User{ID: 1, Plan: models.PlanStandard, Credits: balance}
	f := &fixture{
		sites: &fakeSites{
			owner: 1,
			site:  &models.Site{ID: 7, UserID: 1, Domain: "example.com", IndexNowKey: key},
		},
		ledger:    &fakeLedger{balance: balance},
		recorder:  &fakeRecorder{},
		submitter: &fakeSubmitter{result: indexnow.Result{Success: true, Status: 200, Message: "accepted"}},
		discover:  &fakeDiscoverer{byURL: map[string][]string{}},
		user:      user,
	}
	f.orch = NewOrchestrator(f.sites, f.ledger, f.recorder, f.submitter, f.discover, zap.NewNop())
	return f
}

func TestRun_SitemapDiscoverySubmitsAndDeducts(t *testing.T) {
	f := newFixture(10, "secretkey")
	f.discover.byURL["https://example.com/sitemap.xml"] = []string{
		"https://example.com/a",
		"https://example.com/b",
		"https://example.com/c",
	}

	res, err := f.orch.Run(context.Background(), Request{
		User:          f.user,
		SiteID:        7,
		SitemapURLs:   []string{"https://example.com/sitemap.xml"},
		PerRequestMax: 100,
	})
	require.NoError(t, err)

	require.True(t, res.Success)
	require.Equal(t, 3, res.Submitted)
	require.Equal(t, 0, res.Failed)
	require.Equal(t, 3, res.CreditsUsed)
	require.Equal(t, int64(7), res.CreditsRemaining)

	require.Len(t, f.recorder.rows, 3)
	for _, row := range f.recorder.rows {
		require.Equal(t, uint(7), row.siteID)
		require.Equal(t, 200, row.status)
	}

	require.Len(t, f.submitter.calls, 1)
	require.Equal(t, "example.com", f.submitter.calls[0].host)
	require.Equal(t, "secretkey", f.submitter.calls[0].key)
}

func TestRun_MissingKeyFailsHard(t *testing.T) {
	f := newFixture(10, "")
	f.discover.byURL["https://example.com/sitemap.xml"] = []string{"https://example.com/a"}

	_, err := f.orch.Run(context.Background(), Request{
		User:          f.user,
		SiteID:        7,
		SitemapURLs:   []string{"https://example.com/sitemap.xml"},
		PerRequestMax: 100,
	})
	require.ErrorIs(t, err, ErrMissingKey)

	require.Empty(t, f.recorder.rows)
	require.Empty(t, f.submitter.calls)
	require.Equal(t, int64(10), f.ledger.balance)
}

func TestRun_ZeroCreditsShortCircuitsBeforeAnyWork(t *testing.T) {
	f := newFixture(0, "secretkey")
	f.discover.byURL["https://example.com/sitemap.xml"] = []string{"https://example.com/a"}

	_, err := f.orch.Run(context.Background(), Request{
		User:          f.user,
		SiteID:        7,
		SitemapURLs:   []string{"https://example.com/sitemap.xml"},
		PerRequestMax: 100,
	})
	require.ErrorIs(t, err, ErrInsufficientCredits)

	require.Zero(t, f.discover.calls)
	require.Empty(t, f.submitter.calls)
	require.Empty(t, f.recorder.rows)
}

func TestRun_NotOwnedSite(t *testing.T) {
	f := newFixture(10, "secretkey")

	_, err := f.orch.Run(context.Background(), Request{
		User:          f.user,
		SiteID:        999,
		PerRequestMax: 100,
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRun_ProtocolFailureRecordsButKeepsCredits(t *testing.T) {
	f := newFixture(10, "secretkey")
	f.submitter.result = indexnow.Result{Success: false, Status: 403, Message: "forbidden"}

	res, err := f.orch.Run(context.Background(), Request{
		User:          f.user,
		SiteID:        7,
		ManualURLs:    []string{"https://example.com/a", "https://example.com/b"},
		PerRequestMax: 100,
	})
	require.NoError(t, err)

	require.False(t, res.Success)
	require.Equal(t, 0, res.Submitted)
	require.Equal(t, 2, res.Failed)
	require.Equal(t, 0, res.CreditsUsed)
	require.Equal(t, int64(10), res.CreditsRemaining)
	require.Equal(t, int64(10), f.ledger.balance)

	require.Len(t, f.recorder.rows, 2)
	for _, row := range f.recorder.rows {
		require.Equal(t, 403, row.status)
	}
	for _, r := range res.Results {
		require.Equal(t, 403, r.Status)
	}
}

func TestRun_EmptyDiscoveryFallsBackToDomain(t *testing.T) {
	f := newFixture(10, "secretkey")
	f.discover.byURL["https://example.com/sitemap.xml"] = nil

	res, err := f.orch.Run(context.Background(), Request{
		User:          f.user,
		SiteID:        7,
		SitemapURLs:   []string{"https://example.com/sitemap.xml"},
		PerRequestMax: 100,
	})
	require.NoError(t, err)

	require.Equal(t, 1, res.Submitted)
	require.Len(t, f.submitter.calls, 1)
	require.Equal(t, []string{"https://example.com"}, f.submitter.calls[0].urls)
}

func TestRun_ManualURLsBypassDiscovery(t *testing.T) {
	f := newFixture(10, "secretkey")

	res, err := f.orch.Run(context.Background(), Request{
		User:          f.user,
		SiteID:        7,
		SitemapURLs:   []string{"https://example.com/sitemap.xml"},
		ManualURLs:    []string{"https://example.com/manual"},
		PerRequestMax: 100,
	})
	require.NoError(t, err)

	require.Zero(t, f.discover.calls)
	require.Equal(t, 1, res.Submitted)
}

func TestRun_PlanCapTruncatesBatch(t *testing.T) {
	f := newFixture(100, "secretkey")

	res, err := f.orch.Run(context.Background(), Request{
		User:          f.user,
		SiteID:        7,
		ManualURLs:    []string{"https://example.com/1", "https://example.com/2", "https://example.com/3"},
		PerRequestMax: 2,
	})
	require.NoError(t, err)

	require.Equal(t, 2, res.Submitted)
	require.Equal(t, 2, res.CreditsUsed)
	require.Len(t, f.submitter.calls[0].urls, 2)
}

func TestRun_TestModeSimulates(t *testing.T) {
	f := newFixture(10, "secretkey")
	f.user.TestMode = true

	res, err := f.orch.Run(context.Background(), Request{
		User:          f.user,
		SiteID:        7,
		ManualURLs:    []string{"https://example.com/a", "https://example.com/b"},
		PerRequestMax: 100,
	})
	require.NoError(t, err)

	require.True(t, res.Success)
	require.Equal(t, 2, res.Submitted)
	require.Equal(t, 0, res.CreditsUsed)

	require.Empty(t, f.submitter.calls)
	require.Empty(t, f.recorder.rows)
	require.Zero(t, f.discover.calls)
	require.Equal(t, int64(10), f.ledger.balance)
}

func TestRun_ConcurrentInvocationsNeverOverspend(t *testing.T) {
	f := newFixture(5, "secretkey")
	urls := []string{
		"https://example.com/1", "https://example.com/2", "https://example.com/3",
		"https://example.com/4", "https://example.com/5",
	}

	results := make([]*Result, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.orch.Run(context.Background(), Request{
				User:          f.user,
				SiteID:        7,
				ManualURLs:    urls,
				PerRequestMax: 100,
			})
		}(i)
	}
	wg.Wait()

	// Both invocations may pass the balance check, but the conditional
	// decrement lets at most one spend the full batch; a loser either goes
	// unbilled or is rejected outright, and the balance never goes negative.
	totalUsed := 0
	fullBatches := 0
	for i := range results {
		if errs[i] != nil {
			require.ErrorIs(t, errs[i], ErrInsufficientCredits)
			continue
		}
		totalUsed += results[i].CreditsUsed
		if results[i].CreditsUsed == 5 {
			fullBatches++
		}
	}
	require.LessOrEqual(t, totalUsed, 5)
	require.LessOrEqual(t, fullBatches, 1)
	require.GreaterOrEqual(t, f.ledger.balance, int64(0))
}
