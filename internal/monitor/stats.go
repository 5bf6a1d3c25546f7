package monitor

import "time"

// Stats counts monitor cycles. Retries inside a cycle are not counted.
type Stats struct {
	TotalUpdates      int       `json:"total_updates"`
	SuccessfulUpdates int       `json:"successful_updates"`
	FailedUpdates     int       `json:"failed_updates"`
	StartedAt         time.Time `json:"started_at"`
	LastUpdateAt      time.Time `json:"last_update_at"`
	LastError         string    `json:"last_error,omitempty"`
}

// SuccessRate is the percentage of successful cycles, 0 before the first.
func (s Stats) SuccessRate() float64 {
	if s.TotalUpdates == 0 {
		return 0
	}
	return float64(s.SuccessfulUpdates) / float64(s.TotalUpdates) * 100
}

// Uptime is the time since the monitor started.
func (s Stats) Uptime(now time.Time) time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	return now.Sub(s.StartedAt)
}
