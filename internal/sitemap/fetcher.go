package sitemap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

type FailureKind string

const (
	FailureNetwork FailureKind = "network_error"
	FailureTimeout FailureKind = "timeout"
	FailureHTTP    FailureKind = "http_error"
)

// FetchError is a failure value, not an exception: callers branch on Kind
// and decide locally whether the failure matters.
type FetchError struct {
	Kind   FailureKind
	Status int
	URL    string
}

func (e *FetchError) Error() string {
	if e.Kind == FailureHTTP {
		return fmt.Sprintf("%s %s: status %d", e.Kind, e.URL, e.Status)
	}
	return fmt.Sprintf("%s %s", e.Kind, e.URL)
}

// Fetcher retrieves remote text documents with a bounded timeout. No retries
// here; retry policy belongs to callers.
type Fetcher struct {
	client *resty.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/xml,text/xml,*/*").
		SetHeader("User-Agent", "IndexPilot/1.0")
	return &Fetcher{client: client}
}

// Fetch performs one GET and returns the body, or a typed failure.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, *FetchError) {
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		kind := FailureNetwork
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			kind = FailureTimeout
		} else if errors.Is(err, context.DeadlineExceeded) {
			kind = FailureTimeout
		}
		return "", &FetchError{Kind: kind, URL: url}
	}

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return "", &FetchError{Kind: FailureHTTP, Status: resp.StatusCode(), URL: url}
	}

	return strings.TrimSpace(string(resp.Body())), nil
}
