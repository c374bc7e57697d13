// Package oauth implements the credential-entry authorization flow for the
// streamable HTTP transport.
//
// The flow is OAuth 2.0 shaped so that standard MCP clients can drive it,
// but the "login" step is a form where the user pastes their Fathom API
// key. A submitted key is validated with one real upstream call before a
// session is minted; the key then lives only in the server-side session
// store, bound to an opaque bearer token. The key never appears in redirect
// URLs, logs, or token responses.
//
// Client state round-trips through the form byte for byte: the encoded
// state parameter received on the GET is the exact string replayed on the
// redirect, so clients that sign or compare their state are unaffected by
// failed attempts in between.
package oauth
