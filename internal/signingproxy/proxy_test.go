package signingproxy

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/s3sig/internal/credentials"
	"github.com/prn-tf/s3sig/internal/sigv4"
)

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	if resp, ok := args.Get(0).(*http.Response); ok {
		return resp, args.Error(1)
	}
	return nil, args.Error(1)
}

func fixedSignerProxy() *sigv4.Signer {
	return sigv4.NewWithClock(
		func() time.Time { return time.Date(2023, 7, 30, 13, 37, 30, 0, time.UTC) },
		func() string { return "11111111-1111-1111-1111-111111111111" },
	)
}

func TestRoundTripSignsRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "https://example-bucket.s3.us-east-1.amazonaws.com/my-key", nil)

	transport := new(mockTransport)
	transport.On("RoundTrip", mock.Anything).Return(&http.Response{StatusCode: 200, Body: io.NopCloser(bytes.NewReader(nil))}, nil)

	proxy := New(
		credentials.NewStatic(credentials.Credentials{AccessKeyID: "AKID", SecretKey: []byte("secret")}),
		fixedSignerProxy(),
		sigv4.Scope{Region: "us-east-1", Service: "s3"},
		transport,
		nil,
	)

	resp, err := proxy.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	assert.NotEmpty(t, req.Header.Get("Authorization"))
	assert.Contains(t, req.Header.Get("Authorization"), "Credential=AKID")
	assert.Equal(t, "20230730T133730Z", req.Header.Get("X-Amz-Date"))
	assert.Equal(t, sigv4.EmptyStringSHA256, req.Header.Get("X-Amz-Content-Sha256"))

	transport.AssertExpectations(t)
}

func TestRoundTripPropagatesCredentialFailure(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "https://example-bucket.s3.us-east-1.amazonaws.com/my-key", nil)
	transport := new(mockTransport)

	proxy := New(
		credentials.NewStatic(credentials.Credentials{}),
		fixedSignerProxy(),
		sigv4.Scope{Region: "us-east-1", Service: "s3"},
		transport,
		nil,
	)

	_, err := proxy.RoundTrip(req)
	require.ErrorIs(t, err, ErrCredentials)
	transport.AssertNotCalled(t, "RoundTrip", mock.Anything)
}

func TestRoundTripUnsignedPayloadForReplayableBody(t *testing.T) {
	body := []byte(`<CompleteMultipartUpload></CompleteMultipartUpload>`)
	req := httptest.NewRequest(http.MethodPost, "https://example-bucket.s3.us-east-1.amazonaws.com/my-key?uploadId=abc", bytes.NewReader(body))
	req.ContentLength = int64(len(body))
	req.GetBody = func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(body)), nil }

	transport := new(mockTransport)
	transport.On("RoundTrip", mock.Anything).Return(&http.Response{StatusCode: 200, Body: io.NopCloser(bytes.NewReader(nil))}, nil)

	proxy := New(
		credentials.NewStatic(credentials.Credentials{AccessKeyID: "AKID", SecretKey: []byte("secret")}),
		fixedSignerProxy(),
		sigv4.Scope{Region: "us-east-1", Service: "s3"},
		transport,
		nil,
	)

	_, err := proxy.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, sigv4.UnsignedPayload, req.Header.Get("X-Amz-Content-Sha256"))
}

func TestRoundTripUnsignedPayloadWhenNotReplayable(t *testing.T) {
	body := []byte("some streamed part bytes")
	req := httptest.NewRequest(http.MethodPut, "https://example-bucket.s3.us-east-1.amazonaws.com/my-key", bytes.NewReader(body))
	req.ContentLength = int64(len(body))
	req.GetBody = nil

	transport := new(mockTransport)
	transport.On("RoundTrip", mock.Anything).Return(&http.Response{StatusCode: 200, Body: io.NopCloser(bytes.NewReader(nil))}, nil)

	proxy := New(
		credentials.NewStatic(credentials.Credentials{AccessKeyID: "AKID", SecretKey: []byte("secret")}),
		fixedSignerProxy(),
		sigv4.Scope{Region: "us-east-1", Service: "s3"},
		transport,
		nil,
	)

	_, err := proxy.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, sigv4.UnsignedPayload, req.Header.Get("X-Amz-Content-Sha256"))
}
