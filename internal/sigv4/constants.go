// Package sigv4 implements the AWS Signature Version 4 signing pipeline:
// hashing primitives, canonical request construction, and the signer that
// turns a method/url/headers tuple into an Authorization header.
package sigv4

import "time"

// Algorithm and format constants pinned by the AWS SigV4 specification.
const (
	// Algorithm is the value of the Authorization header's algorithm field.
	Algorithm = "AWS4-HMAC-SHA256"

	// ISO8601Basic is the x-amz-date wire format, e.g. 20230730T133730Z.
	ISO8601Basic = "20060102T150405Z"

	// DateOnly is the first 8 characters of ISO8601Basic, the credential scope date.
	DateOnly = "20060102"

	// AWS4Request is the terminal scope component, constant across all requests.
	AWS4Request = "aws4_request"

	// UnsignedPayload is used when the body length is unknown ahead of signing.
	UnsignedPayload = "UNSIGNED-PAYLOAD"

	// EmptyStringSHA256 is the SHA-256 digest of the empty string, used as the
	// payload hash for zero-length bodies.
	EmptyStringSHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
)

// Header names used by the signing pipeline, as keys of Request.Headers. All
// lowercase per SigV4 canonicalization; the signing proxy writes them to the
// wire with canonical HTTP casing (e.g. "Authorization").
const (
	HeaderAuthorization   = "authorization"
	HeaderHost            = "host"
	HeaderXAmzDate        = "x-amz-date"
	HeaderXAmzContentSHA  = "x-amz-content-sha256"
	HeaderXAmzSecurity    = "x-amz-security-token"
	HeaderInvocationID    = "amz-sdk-invocation-id"
	HeaderSDKRequest      = "amz-sdk-request"
	HeaderRange           = "range"
	HeaderETag            = "etag"
	HeaderContentType     = "content-type"
	HeaderContentLength   = "content-length"
	SDKRequestAttemptOne  = "attempt=1"
	ContentTypeXML        = "application/xml"
)

// BaseSignedHeaders is the fixed signed-header set before an optional session
// token extends it. Order here fixes the order of the canonical headers block
// and of the semicolon-joined SignedHeaders list.
var BaseSignedHeaders = []string{
	HeaderInvocationID,
	HeaderSDKRequest,
	HeaderHost,
	HeaderXAmzContentSHA,
	HeaderXAmzDate,
}

// MaxSkew is how far a request timestamp may drift from wall-clock time before
// S3 rejects the request. Nothing in this package checks it.
const MaxSkew = 15 * time.Minute
