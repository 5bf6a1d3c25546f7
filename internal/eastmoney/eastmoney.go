// Package eastmoney implements the fallback fund data provider. Identity
// comes from the pingzhongdata script, the daily detail and any intraday
// estimate come together from the fundgz JSONP feed.
package eastmoney

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"resty.dev/v3"

	"fundwatch/internal/fetcher"
	"fundwatch/internal/fund"
	"fundwatch/internal/ratelimit"
)

const (
	// DefaultInfoBaseURL serves the pingzhongdata script with name and NAV history.
	DefaultInfoBaseURL = "http://fund.eastmoney.com"
	// DefaultEstimateBaseURL serves the JSONP intraday estimate.
	DefaultEstimateBaseURL = "http://fundgz.1234567.com.cn"

	defaultTimeout  = 10 * time.Second
	growthPrecision = 2
)

var (
	namePattern  = regexp.MustCompile(`var fS_name = "(.*?)"`)
	codePattern  = regexp.MustCompile(`var fS_code = "(.*?)"`)
	trendPattern = regexp.MustCompile(`var Data_netWorthTrend = (\[.*?\]);`)
	// greedy: fund names may contain parentheses
	jsonpPattern = regexp.MustCompile(`(?s)jsonpgz\((.*)\)`)
	chinaTime    = time.FixedZone("CST", 8*60*60)
	hundred      = decimal.NewFromInt(100)
)

// Options configures a Provider.
type Options struct {
	InfoBaseURL     string
	EstimateBaseURL string
	Timeout         time.Duration
	Limiter         *ratelimit.Limiter
	// Now is used for the cache-busting query parameter.
	Now func() time.Time
}

// Provider fetches fund data from eastmoney.
type Provider struct {
	info     *resty.Client
	estimate *resty.Client
	infoURL  string
	timeout  time.Duration
	limiter  *ratelimit.Limiter
	now      func() time.Time
	log      *slog.Logger
}

// New creates a provider.
func New(opts Options) *Provider {
	if opts.InfoBaseURL == "" {
		opts.InfoBaseURL = DefaultInfoBaseURL
	}
	if opts.EstimateBaseURL == "" {
		opts.EstimateBaseURL = DefaultEstimateBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Provider{
		info:     fetcher.NewHTTPClient(opts.InfoBaseURL),
		estimate: fetcher.NewHTTPClient(opts.EstimateBaseURL),
		infoURL:  opts.InfoBaseURL,
		timeout:  opts.Timeout,
		limiter:  opts.Limiter,
		now:      opts.Now,
		log:      slog.Default().With("component", "eastmoney"),
	}
}

// Source implements fetcher.Provider.
func (p *Provider) Source() fund.Source { return fund.SourceFallback }

// ResolveIdentity implements fetcher.Provider. The provider key is the fund
// code itself.
func (p *Provider) ResolveIdentity(ctx context.Context, code string) (fund.Identity, error) {
	body, err := p.pingzhongdata(ctx, code)
	if err != nil {
		return fund.Identity{}, err
	}

	name := firstGroup(namePattern, body)
	if name == "" {
		return fund.Identity{}, fetcher.NewNotFoundError(fund.SourceFallback, code)
	}
	if got := firstGroup(codePattern, body); got != "" && got != code {
		return fund.Identity{}, fetcher.NewParseError(fund.SourceFallback,
			fmt.Sprintf("asked for %s, script describes %s", code, got))
	}

	return fund.Identity{
		Code:        code,
		ProviderKey: code,
		Name:        name,
		ResolvedBy:  fund.SourceFallback,
	}, nil
}

// gzPayload is the body of the fundgz JSONP callback. All values are strings.
type gzPayload struct {
	FundCode string `json:"fundcode"`
	Name     string `json:"name"`
	NAVDate  string `json:"jzrq"`
	NAV      string `json:"dwjz"`
	Estimate string `json:"gsz"`
	Growth   string `json:"gszzl"`
	Time     string `json:"gztime"`
}

// FetchDetail implements fetcher.Provider. The returned detail carries the
// intraday estimate when the feed has one. An empty feed, typical for QDII
// funds, falls back to the last point of the published NAV history and is
// flagged NoIntraday.
func (p *Provider) FetchDetail(ctx context.Context, id fund.Identity) (fund.Detail, error) {
	body, err := p.send(ctx, p.estimate, "/js/"+id.Code+".js", func(r *resty.Request) *resty.Request {
		return r.
			SetQueryParam("rt", strconv.FormatInt(p.now().UnixMilli(), 10)).
			SetHeader("Referer", p.infoURL+"/")
	})
	if err != nil {
		return fund.Detail{}, err
	}

	m := jsonpPattern.FindStringSubmatch(body)
	if m == nil {
		return fund.Detail{}, fetcher.NewParseError(fund.SourceFallback, fmt.Sprintf("no jsonpgz payload for %s", id.Code))
	}
	if strings.TrimSpace(m[1]) == "" {
		p.log.Debug("empty estimate feed, reading nav history", "code", id.Code)
		return p.latestNAV(ctx, id.Code)
	}

	var gz gzPayload
	if err := json.Unmarshal([]byte(m[1]), &gz); err != nil {
		return fund.Detail{}, fetcher.NewParseError(fund.SourceFallback, fmt.Sprintf("decode jsonpgz payload: %v", err))
	}

	nav := fund.NumberOrUnavailable(gz.NAV)
	if !nav.Valid() {
		return fund.Detail{}, fetcher.NewParseError(fund.SourceFallback, fmt.Sprintf("net value missing for %s", id.Code))
	}
	estimateValue := fund.NumberOrUnavailable(gz.Estimate)

	est := fund.UnavailableEstimate()
	if t := timeOfDay(gz.Time); t != "" {
		est = fund.Estimate{
			TimeOfDay:         t,
			ForecastGrowthPct: fund.NumberOrUnavailable(gz.Growth),
			ForecastNetValue:  estimateValue,
		}
	}

	return fund.Detail{
		NetValue:     nav,
		NetValueDate: gz.NAVDate,
		DayGrowthPct: growthBetween(nav, estimateValue),
		Estimate:     &est,
	}, nil
}

// FetchIntradayEstimate implements fetcher.Provider. Estimates arrive with
// the detail, so there is no separate endpoint.
func (p *Provider) FetchIntradayEstimate(_ context.Context, id fund.Identity) (fund.Estimate, error) {
	return fund.Estimate{}, fetcher.NewUnsupportedError(fund.SourceFallback,
		fmt.Sprintf("no standalone intraday estimate for %s", id.Code))
}

type trendPoint struct {
	X            int64 `json:"x"`
	Y            any   `json:"y"`
	EquityReturn any   `json:"equityReturn"`
}

func (p *Provider) latestNAV(ctx context.Context, code string) (fund.Detail, error) {
	body, err := p.pingzhongdata(ctx, code)
	if err != nil {
		return fund.Detail{}, err
	}

	raw := firstGroup(trendPattern, body)
	if raw == "" {
		return fund.Detail{}, fetcher.NewParseError(fund.SourceFallback, fmt.Sprintf("nav history not found for %s", code))
	}
	var points []trendPoint
	if err := json.Unmarshal([]byte(raw), &points); err != nil {
		return fund.Detail{}, fetcher.NewParseError(fund.SourceFallback, fmt.Sprintf("decode nav history: %v", err))
	}
	if len(points) == 0 {
		return fund.Detail{}, fetcher.NewParseError(fund.SourceFallback, fmt.Sprintf("nav history empty for %s", code))
	}

	last := points[len(points)-1]
	nav := fund.NumberOrUnavailable(last.Y)
	if !nav.Valid() {
		return fund.Detail{}, fetcher.NewParseError(fund.SourceFallback, fmt.Sprintf("net value missing for %s", code))
	}

	return fund.Detail{
		NetValue:     nav,
		NetValueDate: time.UnixMilli(last.X).In(chinaTime).Format(time.DateOnly),
		DayGrowthPct: fund.NumberOrUnavailable(last.EquityReturn).Round(growthPrecision),
		NoIntraday:   true,
	}, nil
}

func (p *Provider) pingzhongdata(ctx context.Context, code string) (string, error) {
	return p.send(ctx, p.info, "/pingzhongdata/"+code+".js", func(r *resty.Request) *resty.Request {
		return r.SetHeader("Referer", fmt.Sprintf("%s/%s.html", p.infoURL, code))
	})
}

// send performs one rate-limited GET bounded by the per-call timeout.
func (p *Provider) send(ctx context.Context, client *resty.Client, path string, build func(*resty.Request) *resty.Request) (string, error) {
	if err := p.limiter.Wait(ctx, fund.SourceFallback); err != nil {
		return "", fetcher.ClassifyTransportError(fund.SourceFallback, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := build(client.R().SetContext(ctx)).Execute(http.MethodGet, path)
	if err != nil {
		return "", fetcher.ClassifyTransportError(fund.SourceFallback, err)
	}
	if !resp.IsSuccess() {
		return "", fetcher.ClassifyHTTPError(fund.SourceFallback, resp.StatusCode())
	}
	return resp.String(), nil
}

// growthBetween is the percentage change from nav to estimate, rounded to two
// places.
func growthBetween(nav, estimate fund.Number) fund.Number {
	base, ok := nav.Decimal()
	if !ok || base.IsZero() {
		return fund.Unavailable()
	}
	est, ok := estimate.Decimal()
	if !ok {
		return fund.Unavailable()
	}
	return fund.NumberOf(est.Sub(base).Div(base).Mul(hundred).Round(growthPrecision))
}

// timeOfDay extracts "HH:MM" from a "2006-01-02 15:04" feed timestamp.
func timeOfDay(raw string) string {
	t, err := time.ParseInLocation("2006-01-02 15:04", strings.TrimSpace(raw), chinaTime)
	if err != nil {
		return ""
	}
	return t.Format("15:04")
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}
