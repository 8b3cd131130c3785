package sigv4

import "errors"

// ErrSigning indicates the signer was given inconsistent inputs: an empty
// region or service, or a header value that cannot be represented in the
// canonical request's ASCII encoding. Well-formed callers should never hit
// this; treat it as a programmer error rather than a transient failure.
var ErrSigning = errors.New("sigv4: inconsistent signing inputs")
