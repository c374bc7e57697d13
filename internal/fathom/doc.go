// Package fathom provides a client for the Fathom.video external API.
//
// The API is only loosely documented and returns meeting lists and
// transcripts in several inconsistent shapes. This package owns the
// normalization of those shapes into stable outputs:
//   - meeting lists are reduced to MeetingSummary values regardless of the
//     envelope they arrive in
//   - transcripts are reduced to speaker-attributed "[speaker]: content"
//     lines, falling back to pretty-printed JSON when the payload shape is
//     not recognized
//
// Authentication uses a per-account API key sent in the X-Api-Key header.
// The key is supplied per call so one client can serve requests
// authenticated as different accounts.
package fathom
