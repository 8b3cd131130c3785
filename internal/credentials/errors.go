// Package credentials resolves the access key, secret key, and optional
// session token a Signer needs, from the environment, static values, or a
// caching decorator around another source.
package credentials

import "errors"

// ErrCredentialsUnavailable indicates a CredentialsSource had nothing to
// return: the environment variables were unset, or a Static source holds an
// empty access key.
var ErrCredentialsUnavailable = errors.New("credentials: no credentials available")
