// Package fund123 implements the primary fund data provider. It needs a
// per-process CSRF token obtained by a one-time handshake; if the handshake
// fails the provider stays degraded for the rest of the process.
package fund123

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"sync"
	"time"

	"resty.dev/v3"

	"fundwatch/internal/fetcher"
	"fundwatch/internal/fund"
	"fundwatch/internal/ratelimit"
)

const (
	// DefaultBaseURL is the production endpoint.
	DefaultBaseURL = "https://www.fund123.cn"

	defaultTimeout = 10 * time.Second
	apiKey         = "foobar"
	estimateLimit  = 200
	estimateSource = "WEALTHBFFWEB"
)

var (
	csrfPattern         = regexp.MustCompile(`"csrf":"(.*?)"`)
	netValuePattern     = regexp.MustCompile(`"netValue":"(.*?)"`)
	netValueDatePattern = regexp.MustCompile(`"netValueDate":"(.*?)"`)
	dayOfGrowthPattern  = regexp.MustCompile(`"dayOfGrowth":"(.*?)"`)

	// chinaTime is the market's wall clock; estimate timestamps and the
	// intraday query window are expressed in it.
	chinaTime = time.FixedZone("CST", 8*60*60)
)

// Options configures a Provider.
type Options struct {
	BaseURL string
	// Timeout bounds every outbound call, including the handshake.
	Timeout time.Duration
	Limiter *ratelimit.Limiter
	// Now is the clock used for the intraday query window.
	Now func() time.Time
}

// Provider fetches fund data from fund123.
type Provider struct {
	client  *resty.Client
	baseURL string
	timeout time.Duration
	limiter *ratelimit.Limiter
	now     func() time.Time
	log     *slog.Logger

	handshakeOnce sync.Once
	handshakeErr  error
	mu            sync.RWMutex
	csrf          string
	degraded      bool
}

// New creates a provider. No request is made until Handshake or the first call.
func New(opts Options) *Provider {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Provider{
		client:  fetcher.NewHTTPClient(opts.BaseURL),
		baseURL: opts.BaseURL,
		timeout: opts.Timeout,
		limiter: opts.Limiter,
		now:     opts.Now,
		log:     slog.Default().With("component", "fund123"),
	}
}

// Source implements fetcher.Provider.
func (p *Provider) Source() fund.Source { return fund.SourcePrimary }

// Handshake fetches the CSRF token. It runs at most once per Provider; later
// calls return the first result without touching the network.
func (p *Provider) Handshake(ctx context.Context) error {
	p.handshakeOnce.Do(func() {
		token, err := p.fetchToken(ctx)

		p.mu.Lock()
		defer p.mu.Unlock()
		if err != nil {
			p.degraded = true
			p.handshakeErr = err
			p.log.Warn("handshake failed, provider degraded for process lifetime", "error", err)
			return
		}
		p.csrf = token
		p.log.Debug("handshake succeeded")
	})
	return p.handshakeErr
}

// Degraded reports whether the handshake failed.
func (p *Provider) Degraded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.degraded
}

func (p *Provider) fetchToken(ctx context.Context) (string, error) {
	body, err := p.send(ctx, http.MethodGet, "/fund", func(r *resty.Request) *resty.Request {
		return r.SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	})
	if err != nil {
		return "", err
	}
	m := csrfPattern.FindStringSubmatch(body)
	if m == nil || m[1] == "" {
		return "", fetcher.NewParseError(fund.SourcePrimary, "csrf token not found in landing page")
	}
	return m[1], nil
}

// session makes sure the handshake has run and returns the token.
func (p *Provider) session(ctx context.Context) (string, error) {
	if err := p.Handshake(ctx); err != nil {
		return "", fetcher.NewUnreachableError(fund.SourcePrimary, "provider degraded after failed handshake", err)
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.csrf, nil
}

type searchRequest struct {
	FundCode string `json:"fundCode"`
}

type searchResponse struct {
	Success  bool `json:"success"`
	FundInfo *struct {
		Key      string `json:"key"`
		FundName string `json:"fundName"`
	} `json:"fundInfo"`
}

// ResolveIdentity implements fetcher.Provider.
func (p *Provider) ResolveIdentity(ctx context.Context, code string) (fund.Identity, error) {
	token, err := p.session(ctx)
	if err != nil {
		return fund.Identity{}, err
	}

	body, err := p.send(ctx, http.MethodPost, "/api/fund/searchFund", func(r *resty.Request) *resty.Request {
		return p.jsonAPI(r, code, token).SetBody(searchRequest{FundCode: code})
	})
	if err != nil {
		return fund.Identity{}, err
	}

	var result searchResponse
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		return fund.Identity{}, fetcher.NewParseError(fund.SourcePrimary, fmt.Sprintf("decode search response: %v", err))
	}
	if !result.Success || result.FundInfo == nil || result.FundInfo.Key == "" {
		return fund.Identity{}, fetcher.NewNotFoundError(fund.SourcePrimary, code)
	}

	return fund.Identity{
		Code:        code,
		ProviderKey: result.FundInfo.Key,
		Name:        result.FundInfo.FundName,
		ResolvedBy:  fund.SourcePrimary,
	}, nil
}

// FetchDetail implements fetcher.Provider. The detail page embeds the NAV in
// a JSON blob inside the HTML.
func (p *Provider) FetchDetail(ctx context.Context, id fund.Identity) (fund.Detail, error) {
	if _, err := p.session(ctx); err != nil {
		return fund.Detail{}, err
	}

	body, err := p.send(ctx, http.MethodGet, "/matiaria", func(r *resty.Request) *resty.Request {
		return r.
			SetQueryParam("fundCode", id.Code).
			SetHeader("Referer", fmt.Sprintf("%s/matiaria?fundCode=%s", p.baseURL, id.Code))
	})
	if err != nil {
		return fund.Detail{}, err
	}

	netValue := firstGroup(netValuePattern, body)
	if netValue == "" {
		return fund.Detail{}, fetcher.NewParseError(fund.SourcePrimary, fmt.Sprintf("net value not found for %s", id.Code))
	}

	return fund.Detail{
		NetValue:     fund.NumberOrUnavailable(netValue),
		NetValueDate: firstGroup(netValueDatePattern, body),
		DayGrowthPct: fund.NumberOrUnavailable(firstGroup(dayOfGrowthPattern, body)),
	}, nil
}

type estimateRequest struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Limit     int    `json:"limit"`
	ProductID string `json:"productId"`
	Format    bool   `json:"format"`
	Source    string `json:"source"`
}

type estimatePoint struct {
	Time             int64 `json:"time"`
	ForecastGrowth   any   `json:"forecastGrowth"`
	ForecastNetValue any   `json:"forecastNetValue"`
}

type estimateResponse struct {
	Success bool            `json:"success"`
	List    []estimatePoint `json:"list"`
}

// FetchIntradayEstimate implements fetcher.Provider. An empty estimate list
// means the fund has no intraday valuation and is reported as Unsupported.
func (p *Provider) FetchIntradayEstimate(ctx context.Context, id fund.Identity) (fund.Estimate, error) {
	token, err := p.session(ctx)
	if err != nil {
		return fund.Estimate{}, err
	}

	today := p.now().In(chinaTime)
	payload := estimateRequest{
		StartTime: today.Format(time.DateOnly),
		EndTime:   today.AddDate(0, 0, 1).Format(time.DateOnly),
		Limit:     estimateLimit,
		ProductID: id.ProviderKey,
		Format:    true,
		Source:    estimateSource,
	}

	body, err := p.send(ctx, http.MethodPost, "/api/fund/queryFundEstimateIntraday", func(r *resty.Request) *resty.Request {
		return p.jsonAPI(r, id.Code, token).SetBody(payload)
	})
	if err != nil {
		return fund.Estimate{}, err
	}

	var result estimateResponse
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		return fund.Estimate{}, fetcher.NewParseError(fund.SourcePrimary, fmt.Sprintf("decode estimate response: %v", err))
	}
	if !result.Success {
		return fund.Estimate{}, fetcher.NewParseError(fund.SourcePrimary, fmt.Sprintf("estimate query for %s was not successful", id.Code))
	}
	if len(result.List) == 0 {
		return fund.Estimate{}, fetcher.NewUnsupportedError(fund.SourcePrimary, fmt.Sprintf("no intraday estimate for %s", id.Code))
	}

	latest := result.List[len(result.List)-1]
	growth := fund.NumberOrUnavailable(latest.ForecastGrowth)
	if d, ok := growth.Decimal(); ok {
		// the API reports growth as a fraction
		growth = fund.NumberOf(d.Shift(2))
	}

	return fund.Estimate{
		TimeOfDay:         time.UnixMilli(latest.Time).In(chinaTime).Format("15:04"),
		ForecastGrowthPct: growth.Round(2),
		ForecastNetValue:  fund.NumberOrUnavailable(latest.ForecastNetValue).Round(4),
	}, nil
}

func (p *Provider) jsonAPI(r *resty.Request, code, token string) *resty.Request {
	return r.
		SetQueryParam("_csrf", token).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "json").
		SetHeader("Origin", p.baseURL).
		SetHeader("Referer", fmt.Sprintf("%s/matiaria?fundCode=%s", p.baseURL, code)).
		SetHeader("X-API-Key", apiKey)
}

// send performs one rate-limited request bounded by the per-call timeout and
// returns the response body.
func (p *Provider) send(ctx context.Context, method, path string, build func(*resty.Request) *resty.Request) (string, error) {
	if err := p.limiter.Wait(ctx, fund.SourcePrimary); err != nil {
		return "", fetcher.ClassifyTransportError(fund.SourcePrimary, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := build(p.client.R().SetContext(ctx)).Execute(method, path)
	if err != nil {
		return "", fetcher.ClassifyTransportError(fund.SourcePrimary, err)
	}
	if !resp.IsSuccess() {
		return "", fetcher.ClassifyHTTPError(fund.SourcePrimary, resp.StatusCode())
	}
	return resp.String(), nil
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}
