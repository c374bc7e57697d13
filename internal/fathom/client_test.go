package fathom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/teemow/fathom-mcp/internal/instrumentation"
)

func TestFetchJSONSendsKeyHeaderOnly(t *testing.T) {
	var gotHeader string
	var gotURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Api-Key")
		gotURL = r.URL.String()
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.URL)
	_, err := client.FetchJSON(context.Background(), "secret-key", "/meetings", nil)
	if err != nil {
		t.Fatalf("FetchJSON failed: %v", err)
	}

	if gotHeader != "secret-key" {
		t.Errorf("X-Api-Key = %q", gotHeader)
	}
	// The credential travels in the header, never in the URL.
	if strings.Contains(gotURL, "secret-key") {
		t.Errorf("credential leaked into URL: %s", gotURL)
	}
}

func TestFetchJSONOmitsEmptyParams(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.URL)
	_, err := client.FetchJSON(context.Background(), "k", "/meetings", map[string]string{
		"created_after":  "2026-01-01",
		"created_before": "",
	})
	if err != nil {
		t.Fatalf("FetchJSON failed: %v", err)
	}

	if gotQuery != "created_after=2026-01-01" {
		t.Errorf("query = %q, empty parameters must be omitted entirely", gotQuery)
	}
}

func TestFetchJSONUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"invalid key"}`))
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.URL)
	_, err := client.FetchJSON(context.Background(), "bad-key", "/meetings", nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d", apiErr.StatusCode)
	}
	if !strings.Contains(apiErr.Body, "invalid key") {
		t.Errorf("Body = %q, expected upstream body to be preserved", apiErr.Body)
	}
}

func TestFetchJSONRejectsEmptyKey(t *testing.T) {
	client := NewClientWithBaseURL("http://127.0.0.1:0")
	if _, err := client.FetchJSON(context.Background(), "", "/meetings", nil); err == nil {
		t.Error("expected an error for an empty api key")
	}
}

func TestListMeetingsProjectsAndLimits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[
			{"id":"m1","title":"One"},
			{"id":"m2","name":"Two"},
			{"id":"m3"}
		]}`))
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.URL)
	summaries, err := client.ListMeetings(context.Background(), "k", ListMeetingsOptions{Limit: 2})
	if err != nil {
		t.Fatalf("ListMeetings failed: %v", err)
	}

	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, limit of 2 must apply after extraction", len(summaries))
	}
	if summaries[0].Title != "One" || summaries[1].Title != "Two" {
		t.Errorf("titles = %q, %q", summaries[0].Title, summaries[1].Title)
	}
}

func TestListMeetingsForwardsFilters(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.URL)
	_, err := client.ListMeetings(context.Background(), "k", ListMeetingsOptions{
		CreatedAfter:      "2026-01-01",
		IncludeTranscript: true,
	})
	if err != nil {
		t.Fatalf("ListMeetings failed: %v", err)
	}

	if got := gotQuery["created_after"]; len(got) != 1 || got[0] != "2026-01-01" {
		t.Errorf("created_after = %v", got)
	}
	if got := gotQuery["include_transcript"]; len(got) != 1 || got[0] != "true" {
		t.Errorf("include_transcript = %v", got)
	}
	if _, ok := gotQuery["created_before"]; ok {
		t.Error("unset created_before must not appear in the query")
	}
}

func TestGetTranscriptRecordingEndpoint(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Write([]byte(`{"transcript":[{"speaker":"A","text":"hi"}]}`))
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.URL)
	text, err := client.GetTranscript(context.Background(), "k", "m1", "r1")
	if err != nil {
		t.Fatalf("GetTranscript failed: %v", err)
	}

	if text != "[A]: hi" {
		t.Errorf("transcript = %q", text)
	}
	if len(paths) != 1 || paths[0] != "/recordings/r1/transcript" {
		t.Errorf("paths = %v, the recording endpoint must be tried first and alone on success", paths)
	}
}

func TestGetTranscriptFallsBackToMeeting(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if strings.HasPrefix(r.URL.Path, "/recordings/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.URL.Query().Get("include_transcript") != "true" {
			t.Errorf("fallback request missing include_transcript: %s", r.URL.String())
		}
		w.Write([]byte(`{"id":"m1","transcript":"flat text"}`))
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.URL)
	text, err := client.GetTranscript(context.Background(), "k", "m1", "")
	if err != nil {
		t.Fatalf("GetTranscript failed: %v", err)
	}

	if text != "flat text" {
		t.Errorf("transcript = %q", text)
	}
	// Without a recording id the meeting id doubles as one; the meeting
	// resource is only fetched after the first call has failed.
	want := []string{"/recordings/m1/transcript", "/meetings/m1"}
	if len(paths) != 2 || paths[0] != want[0] || paths[1] != want[1] {
		t.Errorf("paths = %v, expected %v", paths, want)
	}
}

func TestGetTranscriptBothEndpointsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"unauthorized"}`))
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.URL)
	_, err := client.GetTranscript(context.Background(), "k", "m1", "")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d", apiErr.StatusCode)
	}
}

func TestGetMeetingReturnsRawRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/meetings/m42" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"id":"m42","custom_field":true}`))
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.URL)
	raw, err := client.GetMeeting(context.Background(), "k", "m42")
	if err != nil {
		t.Fatalf("GetMeeting failed: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	// The record passes through unprojected.
	if m["custom_field"] != true {
		t.Errorf("record = %v", m)
	}
}

func TestGetTranscriptFallbackLogNeverCarriesKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/recordings/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"transcript":"flat"}`))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	client := NewClientWithBaseURL(srv.URL)
	client.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	_, err := client.GetTranscript(context.Background(), "secret-key", "m1", "")
	if err != nil {
		t.Fatalf("GetTranscript failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "meeting_id=m1") {
		t.Errorf("fallback log missing meeting_id attribute: %s", out)
	}
	if strings.Contains(out, "secret-key") {
		t.Errorf("credential leaked into logs: %s", out)
	}
}

func TestClientRecordsUpstreamMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	ctx := context.Background()
	provider, err := instrumentation.NewProvider(ctx, instrumentation.Config{
		ServiceName:     "test-service",
		Enabled:         true,
		MetricsExporter: instrumentation.ExporterPrometheus,
		TracingExporter: instrumentation.ExporterNone,
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	t.Cleanup(func() { _ = provider.Shutdown(ctx) })

	client := NewClientWithBaseURL(srv.URL)
	client.SetMetrics(provider.Metrics())

	if _, err := client.ListMeetings(ctx, "k", ListMeetingsOptions{}); err != nil {
		t.Fatalf("ListMeetings failed: %v", err)
	}
	if err := client.ValidateKey(ctx, "k"); err != nil {
		t.Fatalf("ValidateKey failed: %v", err)
	}

	// An error outcome must record too, not just the happy path.
	srvErr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srvErr.Close()
	failing := NewClientWithBaseURL(srvErr.URL)
	failing.SetMetrics(provider.Metrics())
	if _, err := failing.GetMeeting(ctx, "k", "m1"); err == nil {
		t.Fatal("expected an upstream error")
	}
}
