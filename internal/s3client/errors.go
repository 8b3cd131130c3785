// Package s3client turns typed S3 operations (ListBuckets, PutObject,
// multipart upload calls, ...) into signed HTTP requests routed through a
// signingproxy.Proxy, and turns their responses back into typed results or
// an *xmlutil.S3Error.
package s3client

import "errors"

// ErrUnexpectedStatus names an unexpected response status. No Client method
// returns it: a non-2xx body that is not an S3 error document comes back as
// an *xmlutil.S3Error with Code "Unknown".
var ErrUnexpectedStatus = errors.New("s3client: unexpected response status")
