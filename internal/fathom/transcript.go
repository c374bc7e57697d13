package fathom

import (
	"bytes"
	"encoding/json"
	"strings"
)

// segmentKeys are the payload keys that may carry transcript segments, in
// priority order.
var segmentKeys = []string{"transcript", "segments", "utterances"}

// NormalizeTranscript reduces an arbitrary transcript payload to one block
// of speaker-attributed text. The shapes are tried in order:
//
//  1. a plain JSON string is returned verbatim
//  2. a "transcript" field: an array maps to "[speaker]: content" lines;
//     any other non-null value is stringified
//  3. a "segments" or "utterances" array, same per-element mapping
//  4. anything else falls back to pretty-printed JSON
//
// The function never fails: shape ambiguity degrades to the raw JSON
// fallback so the caller always gets something legible.
func NormalizeTranscript(payload json.RawMessage) string {
	var flat string
	if err := json.Unmarshal(payload, &flat); err == nil {
		return flat
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err == nil {
		for _, key := range segmentKeys {
			raw, ok := obj[key]
			if !ok || isJSONNull(raw) {
				continue
			}
			if lines, ok := parseSegments(raw); ok {
				return renderLines(lines)
			}
			if key == "transcript" {
				// A scalar transcript field is used as-is.
				return stringifyScalar(raw)
			}
		}
	}

	return prettyJSON(payload)
}

// parseSegments decodes an array of transcript segments. Returns false when
// raw is not an array at all.
func parseSegments(raw json.RawMessage) ([]TranscriptLine, bool) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, false
	}

	lines := make([]TranscriptLine, 0, len(elems))
	for _, elem := range elems {
		lines = append(lines, parseSegment(elem))
	}
	return lines, true
}

// parseSegment maps one segment to a TranscriptLine using the fallback
// chains speaker/speaker_name and text/content. Segments that are not
// objects render as an unattributed empty line, matching how the upstream
// shapes degrade.
func parseSegment(raw json.RawMessage) TranscriptLine {
	line := TranscriptLine{Speaker: UnknownSpeaker}

	var seg map[string]any
	if err := json.Unmarshal(raw, &seg); err != nil {
		return line
	}

	if speaker := firstString(seg, "speaker", "speaker_name"); speaker != "" {
		line.Speaker = speaker
	}
	line.Content = firstString(seg, "text", "content")
	return line
}

func renderLines(lines []TranscriptLine) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, line.String())
	}
	return strings.Join(parts, "\n")
}

// stringifyScalar renders a scalar JSON value as plain text: strings are
// unquoted, other scalars keep their JSON form.
func stringifyScalar(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

func prettyJSON(payload json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, payload, "", "  "); err != nil {
		return string(payload)
	}
	return buf.String()
}

func isJSONNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
