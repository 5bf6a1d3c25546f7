package eastmoney

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundwatch/internal/fetcher"
	"fundwatch/internal/fund"
)

func pingzhongScript(code, name string, trend string) string {
	return fmt.Sprintf(`/*Tuesday*/var ishb=false;var fS_name = "%s";var fS_code = "%s";var fund_sourceRate="0.15";
var Data_netWorthTrend = %s;var Data_ACWorthTrend = [[1741017600000,2.1]];`, name, code, trend)
}

func newTestProvider(t *testing.T, info, estimate http.HandlerFunc) *Provider {
	t.Helper()
	infoServer := httptest.NewServer(info)
	t.Cleanup(infoServer.Close)
	estimateServer := httptest.NewServer(estimate)
	t.Cleanup(estimateServer.Close)

	return New(Options{
		InfoBaseURL:     infoServer.URL,
		EstimateBaseURL: estimateServer.URL,
		Timeout:         time.Second,
	})
}

func notCalled(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL.Path)
		w.WriteHeader(http.StatusTeapot)
	}
}

func TestProvider_ResolveIdentity(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pingzhongdata/001186.js", r.URL.Path)
		w.Write([]byte(pingzhongScript("001186", "富国文体健康股票A", "[]")))
	}, notCalled(t))

	id, err := p.ResolveIdentity(context.Background(), "001186")
	require.NoError(t, err)

	assert.Equal(t, fund.Identity{
		Code:        "001186",
		ProviderKey: "001186",
		Name:        "富国文体健康股票A",
		ResolvedBy:  fund.SourceFallback,
	}, id)
}

func TestProvider_ResolveIdentity_NotFound(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"http 404", func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) }},
		{"no name in script", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("var ishb=false;")) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, tt.handler, notCalled(t))

			_, err := p.ResolveIdentity(context.Background(), "000000")
			assert.True(t, fetcher.IsType(err, fetcher.ErrorTypeNotFound), "got %v", err)
		})
	}
}

func TestProvider_ResolveIdentity_CodeMismatch(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(pingzhongScript("110022", "易方达消费行业股票", "[]")))
	}, notCalled(t))

	_, err := p.ResolveIdentity(context.Background(), "001186")
	assert.True(t, fetcher.IsType(err, fetcher.ErrorTypeParse), "got %v", err)
}

func TestProvider_FetchDetail_WithEstimate(t *testing.T) {
	p := newTestProvider(t, notCalled(t), func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/js/001186.js", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("rt"))
		w.Write([]byte(`jsonpgz({"fundcode":"001186","name":"富国文体健康股票A(LOF)","jzrq":"2025-03-03","dwjz":"2.0000","gsz":"2.0250","gszzl":"1.25","gztime":"2025-03-04 14:45"});`))
	})

	detail, err := p.FetchDetail(context.Background(), fund.Identity{Code: "001186"})
	require.NoError(t, err)

	assert.Equal(t, "2", detail.NetValue.String())
	assert.Equal(t, "2025-03-03", detail.NetValueDate)
	assert.Equal(t, "1.25", detail.DayGrowthPct.String())
	assert.False(t, detail.NoIntraday)

	require.NotNil(t, detail.Estimate)
	assert.Equal(t, "14:45", detail.Estimate.TimeOfDay)
	assert.Equal(t, "1.25", detail.Estimate.ForecastGrowthPct.String())
	assert.Equal(t, "2.025", detail.Estimate.ForecastNetValue.String())
}

func TestProvider_FetchDetail_MissingEstimateTime(t *testing.T) {
	p := newTestProvider(t, notCalled(t), func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`jsonpgz({"fundcode":"001186","jzrq":"2025-03-03","dwjz":"1.5","gsz":"","gszzl":"","gztime":""});`))
	})

	detail, err := p.FetchDetail(context.Background(), fund.Identity{Code: "001186"})
	require.NoError(t, err)

	assert.Equal(t, "1.5", detail.NetValue.String())
	assert.False(t, detail.DayGrowthPct.Valid())
	require.NotNil(t, detail.Estimate)
	assert.False(t, detail.Estimate.Available())
	assert.False(t, detail.Estimate.ForecastGrowthPct.Valid())
}

func TestProvider_FetchDetail_EmptyFeedUsesHistory(t *testing.T) {
	var infoCalls atomic.Int32
	// 2025-03-03 in China
	day := time.Date(2025, 3, 2, 16, 0, 0, 0, time.UTC).UnixMilli()
	trend := fmt.Sprintf(`[{"x":%d,"y":1.1,"equityReturn":0.1,"unitMoney":""},{"x":%d,"y":1.2345,"equityReturn":-1.237,"unitMoney":""}]`,
		day-86400000, day)

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		infoCalls.Add(1)
		w.Write([]byte(pingzhongScript("513260", "华夏恒生科技ETF联接(QDII)A", trend)))
	}, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`jsonpgz();`))
	})

	detail, err := p.FetchDetail(context.Background(), fund.Identity{Code: "513260"})
	require.NoError(t, err)

	assert.Equal(t, int32(1), infoCalls.Load())
	assert.True(t, detail.NoIntraday)
	assert.Nil(t, detail.Estimate)
	assert.Equal(t, "1.2345", detail.NetValue.String())
	assert.Equal(t, "2025-03-03", detail.NetValueDate)
	assert.Equal(t, "-1.24", detail.DayGrowthPct.String())
}

func TestProvider_FetchDetail_EmptyFeedEmptyHistory(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(pingzhongScript("513260", "QDII", "[]")))
	}, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`jsonpgz();`))
	})

	_, err := p.FetchDetail(context.Background(), fund.Identity{Code: "513260"})
	assert.True(t, fetcher.IsType(err, fetcher.ErrorTypeParse), "got %v", err)
}

func TestProvider_FetchDetail_Errors(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantType fetcher.ErrorType
	}{
		{
			name:     "not jsonp",
			handler:  func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("<html></html>")) },
			wantType: fetcher.ErrorTypeParse,
		},
		{
			name:     "malformed json",
			handler:  func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`jsonpgz({"dwjz":);`)) },
			wantType: fetcher.ErrorTypeParse,
		},
		{
			name:     "no nav",
			handler:  func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`jsonpgz({"dwjz":"--"});`)) },
			wantType: fetcher.ErrorTypeParse,
		},
		{
			name:     "server error",
			handler:  func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
			wantType: fetcher.ErrorTypeUnreachable,
		},
		{
			name:     "unknown code",
			handler:  func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) },
			wantType: fetcher.ErrorTypeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, notCalled(t), tt.handler)

			_, err := p.FetchDetail(context.Background(), fund.Identity{Code: "001186"})
			assert.Equal(t, tt.wantType, fetcher.TypeOf(err), "got %v", err)
		})
	}
}

func TestProvider_FetchIntradayEstimate_Unsupported(t *testing.T) {
	p := newTestProvider(t, notCalled(t), notCalled(t))

	_, err := p.FetchIntradayEstimate(context.Background(), fund.Identity{Code: "001186"})
	assert.True(t, fetcher.IsType(err, fetcher.ErrorTypeUnsupported), "got %v", err)
}

func TestGrowthBetween(t *testing.T) {
	tests := []struct {
		nav, estimate string
		want          string
	}{
		{"1.0000", "1.0123", "1.23"},
		{"2", "1.9", "-5"},
		{"0", "1", fund.UnavailableText},
		{"1", "", fund.UnavailableText},
		{"", "1", fund.UnavailableText},
	}

	for _, tt := range tests {
		got := growthBetween(fund.NumberOrUnavailable(tt.nav), fund.NumberOrUnavailable(tt.estimate))
		assert.Equal(t, tt.want, got.String(), "nav=%q estimate=%q", tt.nav, tt.estimate)
	}
}
