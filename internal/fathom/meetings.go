package fathom

import (
	"encoding/json"
)

// listEnvelopeKeys are the object keys a meeting list may arrive under when
// the response is not a bare array, in priority order.
var listEnvelopeKeys = []string{"items", "meetings", "data"}

// ExtractMeetingList reduces the polymorphic list response to a flat slice
// of raw records. The response may be a bare array or an object carrying
// the array under one of listEnvelopeKeys. Anything else yields an empty
// list rather than an error.
func ExtractMeetingList(payload json.RawMessage) []json.RawMessage {
	var records []json.RawMessage
	if err := json.Unmarshal(payload, &records); err == nil {
		return records
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil
	}

	for _, key := range listEnvelopeKeys {
		raw, ok := envelope[key]
		if !ok || isJSONNull(raw) {
			continue
		}
		if err := json.Unmarshal(raw, &records); err == nil {
			return records
		}
	}
	return nil
}

// ProjectSummary reduces one upstream meeting record to the fixed summary
// shape. Every field has a fallback chain of source keys since the upstream
// does not guarantee field names. When includeTranscript is set the
// transcript is attached iff the record already carries one; no extra call
// is issued.
func ProjectSummary(record json.RawMessage, includeTranscript bool) MeetingSummary {
	var m map[string]any
	_ = json.Unmarshal(record, &m)

	summary := MeetingSummary{
		ID:              m["id"],
		Title:           firstString(m, "title", "name"),
		Date:            firstValue(m, "created_at", "date", "recorded_at"),
		DurationSeconds: firstValue(m, "duration", "duration_seconds"),
		Participants:    firstValue(m, "participants", "attendees"),
		RecordingID:     firstValue(m, "recording_id"),
	}

	if summary.Title == "" {
		summary.Title = UntitledMeeting
	}
	if summary.Participants == nil {
		summary.Participants = []any{}
	}
	if summary.RecordingID == nil {
		if recordings, ok := m["recordings"].([]any); ok && len(recordings) > 0 {
			if first, ok := recordings[0].(map[string]any); ok {
				summary.RecordingID = first["id"]
			}
		}
	}
	if includeTranscript {
		if t, ok := m["transcript"]; ok && t != nil {
			summary.Transcript = t
		}
	}

	return summary
}

// firstValue returns the first non-nil, non-empty-string value among keys.
func firstValue(m map[string]any, keys ...string) any {
	for _, key := range keys {
		v, ok := m[key]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && s == "" {
			continue
		}
		return v
	}
	return nil
}

// firstString returns the first non-empty string value among keys.
func firstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
