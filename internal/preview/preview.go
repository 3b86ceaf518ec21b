package preview

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/classboard/board-stream/internal/timers"
)

// DebounceDelay is the quiet period after the last draft change before a
// link preview fetch actually goes out.
const DebounceDelay = 1000 * time.Millisecond

const maxBodyBytes = 512 * 1024

type Preview struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	ImageURL string `json:"image_url,omitempty"`
}

var (
	firstURLRe = regexp.MustCompile(`https?://[^\s]+`)
	titleRe    = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	ogTitleRe  = regexp.MustCompile(`(?i)<meta[^>]+property=["']og:title["'][^>]+content=["']([^"']*)["']`)
	ogImageRe  = regexp.MustCompile(`(?i)<meta[^>]+property=["']og:image["'][^>]+content=["']([^"']*)["']`)
)

// Fetcher resolves a link preview for the first URL in a message draft.
// Fetches are debounced per composer and wrapped in a circuit breaker so a
// slow or flapping target site cannot pile up requests. Any parse or
// transport problem is a silent no-op, never a user-facing error.
type Fetcher struct {
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
	debounce *timers.Debouncer
}

func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Fetcher{
		client: client,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "link-preview",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 3
			},
		}),
		debounce: timers.NewDebouncer(),
	}
}

// OnDraftChanged schedules a debounced fetch for the first URL in draft.
// cb runs with nil when the draft has no usable URL or the fetch failed.
func (f *Fetcher) OnDraftChanged(ctx context.Context, draft string, cb func(*Preview)) {
	f.debounce.Schedule(DebounceDelay, func() {
		cb(f.Fetch(ctx, draft))
	})
}

// Cancel drops any pending debounced fetch; call on composer teardown.
func (f *Fetcher) Cancel() { f.debounce.Cancel() }

// Fetch resolves the preview synchronously, or nil.
func (f *Fetcher) Fetch(ctx context.Context, draft string) *Preview {
	raw := firstURLRe.FindString(draft)
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil
	}

	res, err := f.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, err
		}
		return body, nil
	})
	if err != nil {
		return nil
	}

	body := res.([]byte)
	p := &Preview{URL: u.String()}
	if m := ogTitleRe.FindSubmatch(body); m != nil {
		p.Title = strings.TrimSpace(string(m[1]))
	} else if m := titleRe.FindSubmatch(body); m != nil {
		p.Title = strings.TrimSpace(string(m[1]))
	}
	if m := ogImageRe.FindSubmatch(body); m != nil {
		p.ImageURL = strings.TrimSpace(string(m[1]))
	}
	if p.Title == "" && p.ImageURL == "" {
		return nil
	}
	return p
}
