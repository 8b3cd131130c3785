package sigv4

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// S1 — canonical date formatting.
func TestDateFormatting(t *testing.T) {
	ts, err := time.Parse(time.RFC3339, "2023-07-30T13:37:30Z")
	require.NoError(t, err)

	assert.Equal(t, "20230730T133730Z", ts.UTC().Format(ISO8601Basic))
	assert.Equal(t, "20230730", ts.UTC().Format(DateOnly))
}

// S2 — string-to-sign fixture.
func TestStringToSignFixture(t *testing.T) {
	scope := Scope{Date: "20230730", Region: "us-east-1", Service: "s3"}
	crHash := "2c31cb8ee9244dc6872a9079e221cd10d1a178e4aa16a6c3796e0e203770fe96"

	got := buildStringToSign("20230730T133730Z", scope, crHash)

	want := "AWS4-HMAC-SHA256\n" +
		"20230730T133730Z\n" +
		"20230730/us-east-1/s3/aws4_request\n" +
		"2c31cb8ee9244dc6872a9079e221cd10d1a178e4aa16a6c3796e0e203770fe96"
	assert.Equal(t, want, got)
}

func buildStringToSign(amzDate string, scope Scope, canonicalRequestHash string) string {
	return Algorithm + "\n" + amzDate + "\n" + scope.String() + "\n" + canonicalRequestHash
}

// S3 — signing-key derivation chain, the literal AWS-documented vector.
func TestDeriveSigningKeyVector(t *testing.T) {
	secret := []byte("wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY")
	scope := Scope{Date: "20150830", Region: "us-east-1", Service: "iam"}

	k4 := DeriveSigningKey(secret, scope)

	assert.Equal(t, "c4afb1cc5771d871763a393e44b703571b55cc28424d1a5e86da6ed3c154a4b9", hexEncode(k4))
}

func hexEncode(b []byte) string {
	const hextable = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hextable[c>>4]
		out[i*2+1] = hextable[c&0x0f]
	}
	return string(out)
}

// Property 1 — empty SHA-256.
func TestEmptySHA256(t *testing.T) {
	assert.Equal(t, EmptyStringSHA256, SHA256Hex(nil))
}

// Property 2 — HMAC with distinct keys diverges.
func TestHMACDistinctKeys(t *testing.T) {
	d := []byte("same data")
	a := HMACSHA256([]byte("key-one"), d)
	b := HMACSHA256([]byte("key-two"), d)
	assert.NotEqual(t, a, b)
}

func fixedSigner() *Signer {
	return NewWithClock(
		func() time.Time { return time.Date(2023, 7, 30, 13, 37, 30, 0, time.UTC) },
		func() string { return "11111111-1111-1111-1111-111111111111" },
	)
}

func newSignedRequest(t *testing.T) *Request {
	t.Helper()
	u, err := url.Parse("https://example-bucket.s3.us-east-1.amazonaws.com/my-key")
	require.NoError(t, err)
	return &Request{
		Method:      "GET",
		URL:         u,
		Headers:     map[string]string{},
		PayloadHash: EmptyStringSHA256,
	}
}

// Property 3 — signature determinism: identical inputs produce identical
// Authorization headers.
func TestSignatureDeterminism(t *testing.T) {
	signer := fixedSigner()
	creds := func() Credentials {
		return Credentials{AccessKeyID: "AKIDEXAMPLE", SecretKey: []byte("secretkeyvalue")}
	}

	req1 := newSignedRequest(t)
	_, _, err := signer.Sign(req1, Scope{Region: "us-east-1", Service: "s3"}, creds())
	require.NoError(t, err)

	req2 := newSignedRequest(t)
	_, _, err = signer.Sign(req2, Scope{Region: "us-east-1", Service: "s3"}, creds())
	require.NoError(t, err)

	assert.Equal(t, req1.Headers[HeaderAuthorization], req2.Headers[HeaderAuthorization])
}

// Property 4 — canonical-request stability under header/query reordering.
func TestCanonicalRequestStability(t *testing.T) {
	base := CanonicalRequest{
		Method:            "GET",
		URI:               "/my-key",
		Query:             url.Values{"b": {"2"}, "a": {"1"}},
		Headers:           map[string]string{"host": "example.com", "x-amz-date": "20230730T133730Z"},
		SignedHeaderNames: []string{"host", "x-amz-date"},
		PayloadHash:       EmptyStringSHA256,
	}
	reordered := CanonicalRequest{
		Method:            "GET",
		URI:               "/my-key",
		Query:             url.Values{"a": {"1"}, "b": {"2"}},
		Headers:           map[string]string{"x-amz-date": "20230730T133730Z", "host": "example.com"},
		SignedHeaderNames: []string{"host", "x-amz-date"},
		PayloadHash:       EmptyStringSHA256,
	}

	assert.Equal(t, base.Build(), reordered.Build())
}

func TestSignRejectsEmptyRegion(t *testing.T) {
	signer := fixedSigner()
	req := newSignedRequest(t)
	_, _, err := signer.Sign(req, Scope{Service: "s3"}, Credentials{AccessKeyID: "AKID", SecretKey: []byte("s")})
	require.Error(t, err)
}

func TestSignWithSessionToken(t *testing.T) {
	signer := fixedSigner()
	req := newSignedRequest(t)
	creds := Credentials{AccessKeyID: "AKID", SecretKey: []byte("secret"), SessionToken: "token-value"}

	_, _, err := signer.Sign(req, Scope{Region: "us-east-1", Service: "s3"}, creds)
	require.NoError(t, err)

	assert.Equal(t, "token-value", req.Headers[HeaderXAmzSecurity])
	assert.Contains(t, req.Headers[HeaderAuthorization], "x-amz-security-token")
}
