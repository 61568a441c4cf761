// Package google handles per-user OAuth2 authorization for the Google
// Calendar API.
//
// Each chat user grants access individually: the assistant sends them a
// consent URL, the callback exchanges the code, and the token is stored
// keyed by their chat user ID. TokenService refreshes expired tokens
// transparently and persists the refreshed token.
package google
