package signingproxy

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/prn-tf/s3sig/internal/credentials"
	"github.com/prn-tf/s3sig/internal/metrics"
	"github.com/prn-tf/s3sig/internal/sigv4"
)

// signedHeaderKeys are the canonical http.Header keys the proxy writes back
// onto the outgoing request after signing. Kept in one place so tests and
// the round tripper agree on what "signed" means.
var signedHeaderKeys = []string{
	"Authorization",
	"X-Amz-Date",
	"X-Amz-Content-Sha256",
	"X-Amz-Security-Token",
	"Amz-Sdk-Invocation-Id",
	"Amz-Sdk-Request",
	"Host",
}

// Proxy signs every request that passes through RoundTrip and forwards it to
// Next.
type Proxy struct {
	Credentials credentials.Source
	Signer      *sigv4.Signer
	Scope       sigv4.Scope
	Next        http.RoundTripper
	Metrics     *metrics.Metrics

	logger zerolog.Logger
}

// New returns a Proxy ready to wrap next. Pass http.DefaultTransport for
// next to sign requests bound for the real network. m is optional and may be
// nil; when non-nil, the proxy reports every signing attempt to it.
func New(creds credentials.Source, signer *sigv4.Signer, scope sigv4.Scope, next http.RoundTripper, m *metrics.Metrics) *Proxy {
	return &Proxy{
		Credentials: creds,
		Signer:      signer,
		Scope:       scope,
		Next:        next,
		Metrics:     m,
		logger:      log.With().Str("component", "signingproxy").Logger(),
	}
}

// RoundTrip signs req in place and forwards it to p.Next. It never mutates
// req.URL; it does set/overwrite the headers listed in signedHeaderKeys.
func (p *Proxy) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	creds, err := p.Credentials.Fetch(ctx)
	if err != nil {
		p.observeFailure()
		return nil, fmt.Errorf("%w: %v", ErrCredentials, err)
	}

	payloadHash, err := p.payloadHash(req)
	if err != nil {
		return nil, fmt.Errorf("signingproxy: reading request body: %w", err)
	}

	headers := make(map[string]string, len(req.Header)+5)
	for key, values := range req.Header {
		if len(values) > 0 {
			headers[lowerHeader(key)] = values[0]
		}
	}

	sreq := &sigv4.Request{
		Method:      req.Method,
		URL:         req.URL,
		Headers:     headers,
		PayloadHash: payloadHash,
	}

	if _, _, err := p.Signer.Sign(sreq, p.Scope, creds); err != nil {
		p.observeFailure()
		return nil, fmt.Errorf("signingproxy: %w", err)
	}

	for _, canonicalKey := range signedHeaderKeys {
		lower := lowerHeader(canonicalKey)
		if v, ok := sreq.Headers[lower]; ok {
			req.Header.Set(canonicalKey, v)
		}
	}
	req.Host = sreq.Headers[lowerHeader("Host")]

	p.logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("scope", p.Scope.String()).
		Msg("signed outbound request")

	if p.Metrics != nil {
		p.Metrics.ObserveSignedRequest(p.Scope.Service)
	}

	return p.Next.RoundTrip(req)
}

func (p *Proxy) observeFailure() {
	if p.Metrics != nil {
		p.Metrics.ObserveSigningFailure()
	}
}

// payloadHash returns the x-amz-content-sha256 value for req. A genuinely
// empty body signs as the empty-string hash; any nonzero-length body signs
// as UNSIGNED-PAYLOAD. Signing precomputed digests over arbitrary bodies is
// a non-goal, so this never reads the body to hash it.
func (p *Proxy) payloadHash(req *http.Request) (string, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return sigv4.EmptyStringSHA256, nil
	}
	return sigv4.UnsignedPayload, nil
}

func lowerHeader(key string) string {
	out := []byte(key)
	for i, c := range out {
		if 'A' <= c && c <= 'Z' {
			out[i] = c + ('a' - 'A')
		}
	}
	return string(out)
}

var _ http.RoundTripper = (*Proxy)(nil)
