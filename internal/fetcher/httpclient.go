package fetcher

import (
	"log/slog"

	"resty.dev/v3"
)

const (
	// browserUserAgent is sent by both providers; the public endpoints reject
	// clients without one.
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	acceptLanguage   = "zh-CN,zh;q=0.9"
)

// NewHTTPClient creates a resty client for one provider.
// Retries are disabled: a failed call is reported to the resolver, which
// decides whether to fall back. The client keeps resty's cookie jar so
// session cookies from a handshake are replayed on later calls.
func NewHTTPClient(baseURL string) *resty.Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("User-Agent", browserUserAgent).
		SetHeader("Accept-Language", acceptLanguage).
		SetRetryCount(0).
		AddResponseMiddleware(logResponse)

	return client
}

// logResponse logs every response at debug level for observability
func logResponse(_ *resty.Client, r *resty.Response) error {
	slog.Debug("provider response",
		"method", r.Request.Method,
		"url", r.Request.URL,
		"status_code", r.StatusCode())
	return nil
}
