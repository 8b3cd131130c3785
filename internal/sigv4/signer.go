package sigv4

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Scope binds a derived signing key to a day, region, and service.
type Scope struct {
	Date    string // yyyymmdd
	Region  string
	Service string
}

// String renders the scope as it appears in the Credential field and the
// string-to-sign: yyyymmdd/region/service/aws4_request.
func (s Scope) String() string {
	return strings.Join([]string{s.Date, s.Region, s.Service, AWS4Request}, "/")
}

// Credentials is the minimal secret material the signer consumes. SecretKey
// is zeroed by Sign once the signing key has been derived from it.
type Credentials struct {
	AccessKeyID  string
	SecretKey    []byte
	SessionToken string
}

// Request is the mutable view of an outbound HTTP request the signer
// enriches in place. Headers carries lowercase header names; Sign writes the
// host header itself, under "host", from URL.Host.
type Request struct {
	Method      string
	URL         *url.URL
	Headers     map[string]string // lowercase name -> value; mutated by Sign
	PayloadHash string            // x-amz-content-sha256 value, set by caller
}

// Signer derives signing keys and produces Authorization headers per AWS
// Signature Version 4. It carries no mutable state and is safe for
// concurrent use from multiple goroutines.
type Signer struct {
	clock func() time.Time
	newID func() string
}

// New returns a Signer using wall-clock time and random UUIDs. Tests inject
// deterministic clock/newID via NewWithClock to make signatures reproducible.
func New() *Signer {
	return &Signer{
		clock: time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

// NewWithClock returns a Signer using the given clock and ID generator,
// letting tests pin the timestamp and invocation ID that would otherwise
// make Sign's output non-deterministic.
func NewWithClock(clock func() time.Time, newID func() string) *Signer {
	return &Signer{clock: clock, newID: newID}
}

// Sign performs the full SigV4 algorithm against req: it inserts the signing
// headers, builds the canonical request and string-to-sign, derives the
// signing key from creds, and sets req.Headers[Authorization]. It returns the
// computed signature's string-to-sign and canonical request for callers that
// want to log or test against them.
func (s *Signer) Sign(req *Request, scope Scope, creds Credentials) (stringToSign, canonicalRequest string, err error) {
	if scope.Region == "" || scope.Service == "" {
		return "", "", fmt.Errorf("%w: empty region or service", ErrSigning)
	}
	if req.Headers == nil {
		req.Headers = make(map[string]string)
	}

	now := s.clock().UTC()
	amzDate := now.Format(ISO8601Basic)
	scope.Date = now.Format(DateOnly)

	req.Headers[HeaderXAmzDate] = amzDate
	req.Headers[HeaderXAmzContentSHA] = req.PayloadHash
	req.Headers[HeaderInvocationID] = s.newID()
	req.Headers[HeaderSDKRequest] = SDKRequestAttemptOne
	req.Headers[HeaderHost] = req.URL.Host

	hasToken := creds.SessionToken != ""
	if hasToken {
		req.Headers[HeaderXAmzSecurity] = creds.SessionToken
	}
	signedNames := SignedHeaderNames(hasToken)

	for _, name := range signedNames {
		if !isASCII(req.Headers[name]) {
			return "", "", fmt.Errorf("%w: header %q is not ASCII", ErrSigning, name)
		}
	}

	cr := CanonicalRequest{
		Method:            req.Method,
		URI:               req.URL.Path,
		Query:             req.URL.Query(),
		Headers:           req.Headers,
		SignedHeaderNames: signedNames,
		PayloadHash:       req.PayloadHash,
	}
	canonicalRequest = cr.Build()
	crHash := SHA256Hex([]byte(canonicalRequest))

	stringToSign = strings.Join([]string{
		Algorithm,
		amzDate,
		scope.String(),
		crHash,
	}, "\n")

	signingKey := DeriveSigningKey(creds.SecretKey, scope)
	defer zero(signingKey)
	defer zero(creds.SecretKey)

	signature := hexHMAC(signingKey, stringToSign)

	req.Headers[HeaderAuthorization] = fmt.Sprintf(
		"%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		Algorithm,
		creds.AccessKeyID,
		scope.String(),
		strings.Join(signedNames, ";"),
		signature,
	)

	return stringToSign, canonicalRequest, nil
}

// DeriveSigningKey computes the four-step HMAC chain:
// HMAC(HMAC(HMAC(HMAC("AWS4"+secret, date), region), service), "aws4_request").
func DeriveSigningKey(secret []byte, scope Scope) []byte {
	kSecret := append([]byte("AWS4"), secret...)
	kDate := HMACSHA256(kSecret, []byte(scope.Date))
	kRegion := HMACSHA256(kDate, []byte(scope.Region))
	kService := HMACSHA256(kRegion, []byte(scope.Service))
	kSigning := HMACSHA256(kService, []byte(AWS4Request))
	return kSigning
}

func hexHMAC(key []byte, data string) string {
	sum := HMACSHA256(key, []byte(data))
	return fmt.Sprintf("%x", sum)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return false
		}
	}
	return true
}

// zero overwrites a secret buffer before it is released, the best a
// garbage-collected runtime can do in place of the source language's
// on-drop destructor.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
