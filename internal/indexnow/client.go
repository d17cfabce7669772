package indexnow

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Result is the protocol-level outcome of one submission call. Any 2xx from
// the endpoint counts as success; everything else, including transport
// failures, is a failure with Status 0 when no response was received.
type Result struct {
	Success bool   `json:"success"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}

type payload struct {
	Host        string   `json:"host"`
	Key         string   `json:"key"`
	KeyLocation *string  `json:"keyLocation"`
	URLList     []string `json:"urlList"`
}

// Client speaks the IndexNow wire protocol.
type Client struct {
	client   *resty.Client
	endpoint string
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &Client{client: client, endpoint: endpoint}
}

// Submit posts one batch of URLs. host must be the bare hostname matching the
// URLs' domain; keyLocation, when nil, is sent as JSON null so the engine
// falls back to https://{host}/{key}.txt. Submit never returns an error: the
// outcome is always a Result value.
func (c *Client) Submit(ctx context.Context, host, key string, keyLocation *string, urls []string) Result {
	body := payload{
		Host:        host,
		Key:         key,
		KeyLocation: keyLocation,
		URLList:     urls,
	}

	resp, err := c.client.R().SetContext(ctx).SetBody(body).Post(c.endpoint)
	if err != nil {
		return Result{Success: false, Status: 0, Message: err.Error()}
	}

	status := resp.StatusCode()
	if status >= 200 && status <= 299 {
		return Result{Success: true, Status: status, Message: "accepted"}
	}

	return Result{Success: false, Status: status, Message: responseSnippet(resp.Body())}
}

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if s == "" {
		return "<empty>"
	}
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}

// Hostname strips scheme, path, and port from a raw domain or URL, leaving
// the bare host the protocol expects.
func Hostname(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return strings.TrimSuffix(strings.TrimSpace(raw), "/")
	}
	return u.Hostname()
}
