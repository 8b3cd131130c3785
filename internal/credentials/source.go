package credentials

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/prn-tf/s3sig/internal/sigv4"
)

// Credentials is an alias of sigv4.Credentials so callers of this package
// never need to import sigv4 just to hold a value.
type Credentials = sigv4.Credentials

// Source resolves the credentials a Signer should use for the next request.
// Implementations may hit the network or the environment on every call;
// wrap one in a Cache to avoid that.
type Source interface {
	Fetch(ctx context.Context) (Credentials, error)
}

// Static always returns the same, pre-supplied credentials. It exists mainly
// for tests and for callers who already hold long-lived credentials.
type Static struct {
	Creds Credentials
}

// NewStatic returns a Source that always yields creds unchanged.
func NewStatic(creds Credentials) Static {
	return Static{Creds: creds}
}

func (s Static) Fetch(_ context.Context) (Credentials, error) {
	if s.Creds.AccessKeyID == "" {
		return Credentials{}, ErrCredentialsUnavailable
	}
	out := s.Creds
	out.SecretKey = append([]byte(nil), s.Creds.SecretKey...)
	return out, nil
}

// EnvNames lists the environment variables Env reads. Overridable so a
// caller can point at a differently-prefixed variable set without wrapping.
type EnvNames struct {
	AccessKeyID  string
	SecretKey    string
	SessionToken string
}

// DefaultEnvNames matches the AWS CLI/SDK convention.
var DefaultEnvNames = EnvNames{
	AccessKeyID:  "AWS_ACCESS_KEY_ID",
	SecretKey:    "AWS_SECRET_ACCESS_KEY",
	SessionToken: "AWS_SESSION_TOKEN",
}

// Env reads credentials from the process environment on every Fetch, so a
// credential rotation that rewrites the environment (e.g. an ECS task role
// refresh script) takes effect on the next request without a restart.
type Env struct {
	Names EnvNames
}

// NewEnv returns an Env source using DefaultEnvNames.
func NewEnv() Env {
	return Env{Names: DefaultEnvNames}
}

func (e Env) Fetch(_ context.Context) (Credentials, error) {
	names := e.Names
	if names.AccessKeyID == "" {
		names = DefaultEnvNames
	}
	accessKey := os.Getenv(names.AccessKeyID)
	secret := os.Getenv(names.SecretKey)
	if accessKey == "" || secret == "" {
		return Credentials{}, ErrCredentialsUnavailable
	}
	return Credentials{
		AccessKeyID:  accessKey,
		SecretKey:    []byte(secret),
		SessionToken: os.Getenv(names.SessionToken),
	}, nil
}

// Cache decorates another Source, remembering its last successful result
// for TTL and returning it without a re-fetch. A fresh copy of the secret
// key is handed out on every Fetch, since sigv4.Signer zeroes the slice it
// is given; the cache itself keeps its own copy alive.
type Cache struct {
	source Source
	ttl    time.Duration

	mu       sync.Mutex
	cached   Credentials
	expiry   time.Time
	hasValue bool
	now      func() time.Time
}

// NewCache wraps source, re-fetching at most once per ttl.
func NewCache(source Source, ttl time.Duration) *Cache {
	return &Cache{source: source, ttl: ttl, now: time.Now}
}

func (c *Cache) Fetch(ctx context.Context) (Credentials, error) {
	c.mu.Lock()
	if c.hasValue && c.now().Before(c.expiry) {
		out := c.cached
		out.SecretKey = append([]byte(nil), c.cached.SecretKey...)
		c.mu.Unlock()
		return out, nil
	}
	c.mu.Unlock()

	fresh, err := c.source.Fetch(ctx)
	if err != nil {
		return Credentials{}, err
	}

	c.mu.Lock()
	c.cached = fresh
	c.cached.SecretKey = append([]byte(nil), fresh.SecretKey...)
	c.expiry = c.now().Add(c.ttl)
	c.hasValue = true
	c.mu.Unlock()

	out := fresh
	out.SecretKey = append([]byte(nil), fresh.SecretKey...)
	return out, nil
}
