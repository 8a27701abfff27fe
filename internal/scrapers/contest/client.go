// Package contest fetches contest submission pages and extracts their vote and view counts.
package contest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"votetracker/internal/components/assert"
	"votetracker/internal/components/telemetry"
	"votetracker/internal/tracker"
	"votetracker/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

const (
	report_client_decode = "client.decode"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
	DefaultTimeout   = 30 * time.Second

	acceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
)

type Options struct {
	// BaseURL is the submission listing, entity pages live at {BaseURL}/{id}/.
	BaseURL   string
	ContestID string
	UserAgent string
	Timeout   time.Duration
	// CloudflareBypass wraps the transport with browser-like TLS and headers.
	CloudflareBypass bool
	// RequestsPerSecond limits outgoing requests, zero means unlimited.
	RequestsPerSecond float64
	// Output receives a full dump of every exchange when debug logging is on, may be nil.
	Output restyutil.InstrumentOutput
}

// Client is a tracker.Fetcher for contest submission pages.
type Client struct {
	http      *resty.Client
	contestID string
	tel       telemetry.API
}

func NewClient(opts Options, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("contest_scraper", tel)

	if opts.BaseURL == "" {
		return nil, fmt.Errorf("contest scraper: base url is required")
	}
	if _, err := url.ParseRequestURI(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("contest scraper: invalid base url: %w", err)
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(strings.TrimRight(opts.BaseURL, "/"))
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}
	httpClient.SetHeader("user-agent", opts.UserAgent)
	httpClient.SetHeader("accept", acceptHTML)
	httpClient.SetHeader("cache-control", "no-store, no-cache")
	httpClient.SetHeader("pragma", "no-cache")
	httpClient.SetTimeout(opts.Timeout)

	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, tel)
	restyutil.InstrumentClient(httpClient, nil, opts.Output)

	return &Client{
		http:      httpClient,
		contestID: opts.ContestID,
		tel:       tel,
	}, nil
}

// Fetch requests one submission page, cache-busted with the cycle timestamp. It never
// returns an error, failures come back as a sample with Success=false.
func (c *Client) Fetch(ctx context.Context, entity tracker.Entity, cycleTimestamp time.Time) tracker.Sample {
	sample := tracker.Sample{
		EntityID:  entity.ID,
		Timestamp: cycleTimestamp,
	}

	query := map[string]string{
		"cm": "1",
		"_":  strconv.FormatInt(cycleTimestamp.UnixMilli(), 10),
	}
	if c.contestID != "" {
		query["cid"] = c.contestID
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", entity.ID).
		SetQueryParams(query).
		Get("/{id}/")
	if err != nil {
		c.tel.ReportDebug("fetch failed", telemetry.KV{Key: "entity", Value: entity.ID}, err)
		sample.FailureReason = describeError(err)
		return sample
	}
	if res.StatusCode() < 200 || res.StatusCode() >= 300 {
		sample.FailureReason = fmt.Sprintf("HTTP %d", res.StatusCode())
		c.tel.ReportDebug("unexpected status", telemetry.KV{Key: "entity", Value: entity.ID}, sample.FailureReason)
		return sample
	}

	body := c.decode(res)
	counts := ExtractCounts(body)
	if counts.Votes == nil {
		c.tel.ReportDebug("votes not found", telemetry.KV{Key: "entity", Value: entity.ID})
	}
	if counts.Views == nil {
		c.tel.ReportDebug("views not found", telemetry.KV{Key: "entity", Value: entity.ID})
	}

	sample.Success = true
	sample.Votes = counts.Votes
	sample.Views = counts.Views
	return sample
}

// decode converts the body to UTF-8 following the declared charset, falling back to the
// raw bytes.
func (c *Client) decode(res *resty.Response) string {
	raw := res.Body()
	reader, err := charset.NewReader(bytes.NewReader(raw), res.Header().Get("content-type"))
	if err != nil {
		c.tel.ReportDebug("charset detection failed", err)
		return string(raw)
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		c.tel.ReportWarning(report_client_decode, err)
		return string(raw)
	}
	return string(decoded)
}

func describeError(err error) string {
	if err == nil {
		return ""
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return "request timed out"
		}
		return urlErr.Err.Error()
	}
	return err.Error()
}
