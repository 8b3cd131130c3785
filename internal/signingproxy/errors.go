// Package signingproxy wraps an http.RoundTripper so every outbound request
// that passes through it is signed with AWS Signature Version 4 before it
// reaches the wire. It inverts the inbound-verification middleware pattern
// into an outbound-signing one: instead of checking a signature a client
// already attached, it attaches one.
package signingproxy

import "errors"

// ErrCredentials wraps a CredentialsSource failure so callers can tell a
// signing failure apart from a downstream transport failure with errors.Is.
var ErrCredentials = errors.New("signingproxy: could not resolve credentials")
