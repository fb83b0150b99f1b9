// Package papersources provides the shared transport used by the clients of
// external providers: the arXiv metadata API, the social search API, the
// translation API, and the chat API.
//
// Every provider client sends its requests through an HTTPClient, which
// applies a per-provider rate limit, retries on 429 and 5xx responses, and
// reports request counts, durations, and failures to a RequestRecorder.
//
// Example usage:
//
//	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
//		Source:    papersources.SourceArXiv,
//		RateLimit: 1.0 / 3.0,
//		BurstSize: 1,
//		Recorder:  metrics,
//	})
//	client := arxiv.NewWithHTTPClient(cfg, httpClient)
package papersources

// Provider names used as the "source" label in logs and metrics.
const (
	SourceArXiv   = "arxiv"
	SourceTwitter = "twitter"
	SourceDeepL   = "deepl"
	SourceSlack   = "slack"
)

// RequestRecorder receives per-request telemetry from an HTTPClient.
// observability.Metrics satisfies it.
type RequestRecorder interface {
	RecordProviderRequest(source, endpoint string, durationSeconds float64)
	RecordProviderRequestFailed(source, endpoint, errorType string)
}

type nopRecorder struct{}

func (nopRecorder) RecordProviderRequest(string, string, float64)      {}
func (nopRecorder) RecordProviderRequestFailed(string, string, string) {}

// Error types reported to RequestRecorder.RecordProviderRequestFailed.
const (
	ErrorTypeTransport   = "transport"
	ErrorTypeRateLimited = "rate_limited"
	ErrorTypeServer      = "server"
	ErrorTypeCanceled    = "canceled"
)
