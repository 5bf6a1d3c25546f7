// Package report renders the outcomes of a fetch cycle as text, JSON or CSV.
package report

import (
	"github.com/shopspring/decimal"

	"fundwatch/internal/fund"
)

// Summary aggregates one cycle's outcomes.
type Summary struct {
	Total          int `json:"total"`
	QDII           int `json:"qdii"`
	ValidEstimates int `json:"valid_estimates"`
	Failed         int `json:"failed"`
	// AverageForecastGrowth is the mean forecast growth over funds that have
	// one, rounded to two places.
	AverageForecastGrowth fund.Number `json:"average_forecast_growth_pct"`
	Rising                int         `json:"rising"`
	Falling               int         `json:"falling"`
	Flat                  int         `json:"flat"`
}

// Summarize counts outcomes. Only funds with an available forecast growth
// take part in the average and the rise/fall distribution.
func Summarize(outcomes []fund.Outcome) Summary {
	s := Summary{Total: len(outcomes)}
	sum := decimal.Zero
	n := 0

	for _, o := range outcomes {
		if !o.OK() {
			s.Failed++
			continue
		}
		snap := o.Snapshot
		if snap.IsQDII {
			s.QDII++
		}
		if snap.HasEstimate() {
			s.ValidEstimates++
		}
		growth, ok := snap.ForecastGrowthPct.Decimal()
		if !ok {
			continue
		}
		sum = sum.Add(growth)
		n++
		switch growth.Sign() {
		case 1:
			s.Rising++
		case -1:
			s.Falling++
		default:
			s.Flat++
		}
	}

	if n > 0 {
		s.AverageForecastGrowth = fund.NumberOf(sum.Div(decimal.NewFromInt(int64(n))).Round(2))
	}
	return s
}
