// Package credential resolves the Fathom API key for a tool invocation.
//
// A Resolver encapsulates one credential strategy: a static key from the
// process environment, an explicit key passed as a tool argument, or a
// session-bound key carried on the request context by the OAuth layer.
// Resolution never logs the key and never embeds it in URLs or error
// messages.
package credential
