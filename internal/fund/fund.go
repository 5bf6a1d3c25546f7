// Package fund holds the valuation data model shared by providers, the
// resolver and the reporting collaborators.
package fund

import (
	"time"
)

// UnavailableText is the textual sentinel for a value a source could not supply.
const UnavailableText = "unavailable"

// Source identifies which data provider produced a value.
type Source string

const (
	// SourcePrimary is the fund123 provider.
	SourcePrimary Source = "primary"
	// SourceFallback is the eastmoney provider.
	SourceFallback Source = "fallback"
)

// Identity is a resolved fund. It is immutable once created.
type Identity struct {
	// Code is the 6-digit lookup key.
	Code string `json:"code"`
	// ProviderKey is the opaque product key the primary provider needs for
	// follow-up calls. Equal to Code when resolved by the fallback.
	ProviderKey string `json:"provider_key"`
	Name        string `json:"name"`
	// ResolvedBy is the provider that produced this identity.
	ResolvedBy Source `json:"resolved_by"`
}

// Estimate is an intraday valuation estimate.
type Estimate struct {
	// TimeOfDay is "HH:MM" or UnavailableText.
	TimeOfDay         string `json:"estimate_time"`
	ForecastGrowthPct Number `json:"forecast_growth_pct"`
	ForecastNetValue  Number `json:"forecast_net_value"`
}

// UnavailableEstimate is the sentinel used when no estimate could be obtained.
func UnavailableEstimate() Estimate {
	return Estimate{TimeOfDay: UnavailableText}
}

// Available reports whether the estimate carries a timestamp.
func (e Estimate) Available() bool {
	return e.TimeOfDay != "" && e.TimeOfDay != UnavailableText
}

// Detail is the daily valuation detail of a fund.
type Detail struct {
	NetValue     Number
	NetValueDate string
	DayGrowthPct Number
	// Estimate is set when the detail response already carries an intraday
	// estimate (fallback provider).
	Estimate *Estimate
	// NoIntraday is set when the source states that it has no intraday
	// estimate for this fund.
	NoIntraday bool
}

// Snapshot is one fund's valuation as observed in one cycle. Snapshots are
// never mutated after construction.
type Snapshot struct {
	Code              string    `json:"code"`
	Name              string    `json:"name"`
	Type              Type      `json:"type"`
	NetValue          Number    `json:"net_value"`
	NetValueDate      string    `json:"net_value_date"`
	DayGrowthPct      Number    `json:"day_growth_pct"`
	EstimateTime      string    `json:"estimate_time"`
	ForecastGrowthPct Number    `json:"forecast_growth_pct"`
	ForecastNetValue  Number    `json:"forecast_net_value"`
	IsQDII            bool      `json:"is_qdii"`
	Source            Source    `json:"source"`
	ObservedAt        time.Time `json:"observed_at"`
}

// HasEstimate reports whether the snapshot carries a usable intraday estimate.
func (s Snapshot) HasEstimate() bool {
	return s.EstimateTime != "" && s.EstimateTime != UnavailableText
}

// NewSnapshot combines an identity, its detail and an estimate.
func NewSnapshot(id Identity, detail Detail, est Estimate, source Source, observedAt time.Time) Snapshot {
	typ := Classify(id.Name)
	date := detail.NetValueDate
	if date == "" {
		date = UnavailableText
	}
	timeOfDay := est.TimeOfDay
	if timeOfDay == "" {
		timeOfDay = UnavailableText
	}
	return Snapshot{
		Code:              id.Code,
		Name:              id.Name,
		Type:              typ,
		NetValue:          detail.NetValue,
		NetValueDate:      date,
		DayGrowthPct:      detail.DayGrowthPct,
		EstimateTime:      timeOfDay,
		ForecastGrowthPct: est.ForecastGrowthPct,
		ForecastNetValue:  est.ForecastNetValue,
		IsQDII:            typ == TypeQDII || detail.NoIntraday,
		Source:            source,
		ObservedAt:        observedAt,
	}
}

// Outcome is the result of fetching one fund: either a snapshot or a failure.
type Outcome struct {
	Code     string
	Snapshot *Snapshot
	Err      error
}

// Success wraps a snapshot.
func Success(s Snapshot) Outcome {
	return Outcome{Code: s.Code, Snapshot: &s}
}

// Failure records why a fund could not be fetched.
func Failure(code string, reason error) Outcome {
	return Outcome{Code: code, Err: reason}
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool {
	return o.Err == nil && o.Snapshot != nil
}

// Reason returns the failure reason, or "" for a success.
func (o Outcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// CountSuccesses returns the number of successful outcomes.
func CountSuccesses(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}
