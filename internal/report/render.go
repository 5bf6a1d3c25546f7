package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"fundwatch/internal/fund"
)

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"

	timestampLayout = "2006-01-02 15:04:05"
	rule            = "======================================================================"
	thinRule        = "----------------------------------------------------------------------"
)

// Render writes outcomes to w in format.
func Render(w io.Writer, format string, outcomes []fund.Outcome, generatedAt time.Time) error {
	switch format {
	case FormatText, "":
		return Text(w, outcomes, generatedAt)
	case FormatJSON:
		return JSON(w, outcomes, generatedAt)
	case FormatCSV:
		return CSV(w, outcomes)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// Text writes a human-readable report.
func Text(w io.Writer, outcomes []fund.Outcome, generatedAt time.Time) error {
	var b strings.Builder

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "  Fund valuation")
	fmt.Fprintf(&b, "  Updated: %s\n", generatedAt.Format(timestampLayout))
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b)

	if len(outcomes) == 0 {
		fmt.Fprintln(&b, "No fund data")
		_, err := io.WriteString(w, b.String())
		return err
	}

	s := Summarize(outcomes)
	fmt.Fprintln(&b, "[Summary]")
	fmt.Fprintf(&b, "  Funds: %d\n", s.Total)
	fmt.Fprintf(&b, "  QDII: %d\n", s.QDII)
	fmt.Fprintf(&b, "  Valid estimates: %d\n", s.ValidEstimates)
	fmt.Fprintf(&b, "  Failed: %d\n", s.Failed)
	fmt.Fprintf(&b, "  Average forecast growth: %s\n", percent(s.AverageForecastGrowth))
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "[Distribution]")
	fmt.Fprintf(&b, "  Up: %d  Down: %d  Flat: %d\n", s.Rising, s.Falling, s.Flat)
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "[Funds]")
	fmt.Fprintln(&b, thinRule)

	for i, o := range outcomes {
		fmt.Fprintf(&b, "\n[%d] ", i+1)
		if !o.OK() {
			fmt.Fprintf(&b, "[%s] FAILED\n  Reason: %s\n", o.Code, o.Reason())
			continue
		}
		snap := o.Snapshot
		qdii := ""
		if snap.IsQDII {
			qdii = " [QDII]"
		}
		fmt.Fprintf(&b, "[%s] %s%s\n", snap.Code, snap.Name, qdii)
		fmt.Fprintf(&b, "  NAV: %s (%s)\n", snap.NetValue, snap.NetValueDate)
		fmt.Fprintf(&b, "  Day growth: %s\n", percent(snap.DayGrowthPct))
		fmt.Fprintf(&b, "  Estimate: %s (%s)\n", snap.ForecastNetValue, snap.EstimateTime)
		fmt.Fprintf(&b, "  Estimate growth: %s\n", percent(snap.ForecastGrowthPct))
		fmt.Fprintf(&b, "  Source: %s\n", snap.Source)
	}

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "Data: fund123.cn / eastmoney.com")
	fmt.Fprintln(&b, rule)

	_, err := io.WriteString(w, b.String())
	return err
}

type document struct {
	GeneratedAt string  `json:"generated_at"`
	Summary     Summary `json:"summary"`
	Funds       []entry `json:"funds"`
}

type entry struct {
	Code   string `json:"code"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	*fund.Snapshot
}

// JSON writes a document with a summary block and a funds array.
func JSON(w io.Writer, outcomes []fund.Outcome, generatedAt time.Time) error {
	doc := document{
		GeneratedAt: generatedAt.Format(timestampLayout),
		Summary:     Summarize(outcomes),
		Funds:       make([]entry, 0, len(outcomes)),
	}
	for _, o := range outcomes {
		e := entry{Code: o.Code, Status: "ok", Snapshot: o.Snapshot}
		if !o.OK() {
			e.Status = "failed"
			e.Error = o.Reason()
			e.Snapshot = nil
		}
		doc.Funds = append(doc.Funds, e)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

var csvHeader = []string{
	"code", "name", "type", "net_value", "net_value_date", "day_growth_pct",
	"estimate_time", "forecast_net_value", "forecast_growth_pct", "is_qdii",
	"source", "observed_at", "status", "error",
}

// CSV writes one row per outcome.
func CSV(w io.Writer, outcomes []fund.Outcome) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, o := range outcomes {
		if !o.OK() {
			row := make([]string, len(csvHeader))
			row[0] = o.Code
			row[len(row)-2] = "failed"
			row[len(row)-1] = o.Reason()
			if err := cw.Write(row); err != nil {
				return err
			}
			continue
		}
		s := o.Snapshot
		row := []string{
			s.Code,
			s.Name,
			string(s.Type),
			s.NetValue.String(),
			s.NetValueDate,
			s.DayGrowthPct.String(),
			s.EstimateTime,
			s.ForecastNetValue.String(),
			s.ForecastGrowthPct.String(),
			strconv.FormatBool(s.IsQDII),
			string(s.Source),
			s.ObservedAt.Format(time.RFC3339),
			"ok",
			"",
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// percent formats a growth figure as "+1.23%".
func percent(n fund.Number) string {
	d, ok := n.Decimal()
	if !ok {
		return fund.UnavailableText
	}
	s := d.StringFixed(2) + "%"
	if d.IsPositive() {
		s = "+" + s
	}
	return s
}
