package fathom

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/teemow/fathom-mcp/internal/instrumentation"
	"github.com/teemow/fathom-mcp/internal/logging"
)

// DefaultBaseURL is the base path of the Fathom external API.
const DefaultBaseURL = "https://api.fathom.ai/external/v1"

// apiKeyHeader is the request header Fathom expects the API key in. The key
// is never placed in the URL and never logged.
const apiKeyHeader = "X-Api-Key"

// Client issues authenticated requests against the Fathom external API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
}

// NewClient creates a client for the production Fathom API.
func NewClient() *Client {
	return NewClientWithBaseURL(DefaultBaseURL)
}

// NewClientWithBaseURL creates a client against a custom base URL.
// Used by tests and by deployments that front the API with a proxy.
func NewClientWithBaseURL(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.Default(),
	}
}

// SetLogger sets a custom logger for the client.
func (c *Client) SetLogger(logger *slog.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// SetMetrics enables upstream request metrics. A nil recorder is a no-op.
func (c *Client) SetMetrics(metrics *instrumentation.Metrics) {
	c.metrics = metrics
}

// observe opens a client span for one upstream operation and returns a
// completion func that records the outcome on both the span and the
// request metrics.
func (c *Client) observe(ctx context.Context, operation string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := instrumentation.StartUpstreamSpan(ctx, operation)

	return ctx, func(err error) {
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
			instrumentation.SetSpanError(span, err)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
		span.End()
		c.metrics.RecordUpstreamRequest(ctx, operation, status, time.Since(start))
	}
}

// FetchJSON performs a GET against path with the given query parameters and
// returns the raw response body. Parameters with empty values are omitted
// entirely rather than serialized as empty strings. A non-2xx response is
// returned as an *APIError carrying the status and body; no retries are
// performed.
func (c *Client) FetchJSON(ctx context.Context, apiKey, path string, params map[string]string) (json.RawMessage, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key must not be empty")
	}

	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid request URL: %w", err)
	}

	q := u.Query()
	for k, v := range params {
		if v == "" {
			continue
		}
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set(apiKeyHeader, apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fathom API request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug("fathom API response", "path", path, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return json.RawMessage(body), nil
}

// ValidateKey performs one real API call to verify that the key is accepted
// by the upstream. Used by the authorization flow before minting a session.
func (c *Client) ValidateKey(ctx context.Context, apiKey string) (err error) {
	ctx, done := c.observe(ctx, instrumentation.OperationValidateKey)
	defer func() { done(err) }()

	_, err = c.FetchJSON(ctx, apiKey, "/meetings", map[string]string{"limit": "1"})
	return err
}

// ListMeetings fetches the meeting list and projects each record into a
// MeetingSummary. The upstream list envelope is polymorphic; see
// ExtractMeetingList. The limit is applied after envelope extraction.
func (c *Client) ListMeetings(ctx context.Context, apiKey string, opts ListMeetingsOptions) ([]MeetingSummary, error) {
	ctx, done := c.observe(ctx, instrumentation.OperationListMeetings)

	params := map[string]string{
		"created_after":  opts.CreatedAfter,
		"created_before": opts.CreatedBefore,
	}
	if opts.IncludeTranscript {
		params["include_transcript"] = "true"
	}

	payload, err := c.FetchJSON(ctx, apiKey, "/meetings", params)
	done(err)
	if err != nil {
		return nil, err
	}

	records := ExtractMeetingList(payload)

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if len(records) > limit {
		records = records[:limit]
	}

	summaries := make([]MeetingSummary, 0, len(records))
	for _, record := range records {
		summaries = append(summaries, ProjectSummary(record, opts.IncludeTranscript))
	}

	c.logger.Debug("listed meetings", logging.Operation(instrumentation.OperationListMeetings),
		"count", len(summaries))
	return summaries, nil
}

// GetMeeting fetches the full upstream record for a meeting, unprojected.
func (c *Client) GetMeeting(ctx context.Context, apiKey, meetingID string) (record json.RawMessage, err error) {
	ctx, done := c.observe(ctx, instrumentation.OperationGetMeeting)
	defer func() { done(err) }()

	record, err = c.FetchJSON(ctx, apiKey, "/meetings/"+url.PathEscape(meetingID), nil)
	return record, err
}

// GetTranscript fetches and normalizes the transcript for a meeting.
//
// The recording-scoped endpoint is tried first, using recordingID when
// provided and meetingID otherwise. If that call fails for any reason the
// meeting-scoped resource is fetched with the include_transcript flag set;
// the two endpoints return semantically equivalent data in different
// envelopes. The second call is only issued after the first has fully
// failed. Only transport and auth failures are returned as errors; payload
// shape ambiguity degrades to pretty-printed JSON via NormalizeTranscript.
func (c *Client) GetTranscript(ctx context.Context, apiKey, meetingID, recordingID string) (transcript string, err error) {
	ctx, done := c.observe(ctx, instrumentation.OperationGetTranscript)
	defer func() { done(err) }()

	rid := recordingID
	if rid == "" {
		rid = meetingID
	}

	payload, err := c.FetchJSON(ctx, apiKey, "/recordings/"+url.PathEscape(rid)+"/transcript", nil)
	if err != nil {
		c.logger.Debug("recording transcript fetch failed, falling back to meeting resource",
			logging.MeetingID(meetingID), logging.Err(err))
		payload, err = c.FetchJSON(ctx, apiKey, "/meetings/"+url.PathEscape(meetingID), map[string]string{
			"include_transcript": "true",
		})
		if err != nil {
			return "", err
		}
	}

	return NormalizeTranscript(payload), nil
}
