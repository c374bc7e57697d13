package fathom

import "fmt"

// UntitledMeeting is the title placeholder for upstream records that carry
// neither a title nor a name.
const UntitledMeeting = "Untitled meeting"

// UnknownSpeaker is the speaker placeholder for transcript segments without
// speaker attribution.
const UnknownSpeaker = "Unknown"

// APIError is returned when the Fathom API responds with a non-2xx status.
// The body is kept verbatim so callers can surface the upstream message.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fathom API %d: %s", e.StatusCode, e.Body)
}

// MeetingSummary is the fixed projection of an upstream meeting record.
// Field types are loose on purpose: the upstream does not guarantee types
// for ids, dates, or durations, and the summary passes them through
// verbatim. Title is the exception: it always resolves to a non-empty
// string, using UntitledMeeting as the placeholder.
type MeetingSummary struct {
	ID              any    `json:"id"`
	Title           string `json:"title"`
	Date            any    `json:"date,omitempty"`
	DurationSeconds any    `json:"duration_seconds,omitempty"`
	Participants    any    `json:"participants"`
	RecordingID     any    `json:"recording_id,omitempty"`
	Transcript      any    `json:"transcript,omitempty"`
}

// TranscriptLine is one speaker-attributed line of a normalized transcript.
type TranscriptLine struct {
	Speaker string `json:"speaker"`
	Content string `json:"content"`
}

func (l TranscriptLine) String() string {
	return fmt.Sprintf("[%s]: %s", l.Speaker, l.Content)
}

// ListMeetingsOptions holds the supported filters for listing meetings.
type ListMeetingsOptions struct {
	// CreatedAfter and CreatedBefore are ISO-8601 datetimes passed through
	// to the upstream API when non-empty.
	CreatedAfter  string
	CreatedBefore string

	// IncludeTranscript asks the upstream to inline transcripts and attaches
	// them to summaries when the record already carries one. No extra calls
	// are issued per meeting.
	IncludeTranscript bool

	// Limit caps the number of summaries returned. Zero or negative means
	// DefaultListLimit. Applied after envelope extraction, not before.
	Limit int
}

// DefaultListLimit is the meeting list limit used when the caller does not
// specify one.
const DefaultListLimit = 20
