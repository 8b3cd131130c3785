package s3client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rewriteTransport redirects every request's scheme and host to a local
// httptest.Server, so client_test can exercise Client's URL-building logic
// (virtual-hosted bucket names, query strings) while still sending the
// request somewhere real.
type rewriteTransport struct {
	target *url.URL
}

func (r *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = r.target.Scheme
	req.URL.Host = r.target.Host
	req.Host = r.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	target, err := url.Parse(srv.URL)
	require.NoError(t, err)

	client := &Client{
		HTTP:   &http.Client{Transport: &rewriteTransport{target: target}},
		Region: "us-east-1",
	}
	return client, srv.Close
}

func TestListBuckets(t *testing.T) {
	client, closeFn := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(`<ListAllMyBucketsResult><Buckets><Bucket><Name>bucket-one</Name></Bucket></Buckets></ListAllMyBucketsResult>`))
	})
	defer closeFn()

	buckets, err := client.ListBuckets(context.Background())
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, "bucket-one", buckets[0].Name)
}

func TestPutObjectReturnsETag(t *testing.T) {
	client, closeFn := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "hello world", string(body))
		w.Header().Set("ETag", `"abc123"`)
		w.WriteHeader(http.StatusOK)
	})
	defer closeFn()

	etag, err := client.PutObject(context.Background(), "my-bucket", "my-key", []byte("hello world"), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, `"abc123"`, etag)
}

func TestUploadPartMissingETag(t *testing.T) {
	client, closeFn := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	defer closeFn()

	_, err := client.UploadPart(context.Background(), "my-bucket", "my-key", "upload-1", 1, []byte("part-data"))
	require.Error(t, err)
}

// S6 — S3Error surfaced through a client call.
func TestCompleteMultipartUploadSurfacesS3Error(t *testing.T) {
	client, closeFn := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "uploadId=")
		assert.NotContains(t, r.URL.RawQuery, "&&")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`<Error><Code>InvalidPart</Code><Message>One or more parts could not be found</Message></Error>`))
	})
	defer closeFn()

	_, err := client.CompleteMultipartUpload(context.Background(), "my-bucket", "my-key", "upload-1", []CompletedPart{
		{PartNumber: 1, ETag: `"etag1"`},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "InvalidPart")
}

func TestCreateMultipartUploadReturnsUploadID(t *testing.T) {
	client, closeFn := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "uploads", r.URL.RawQuery)
		w.Write([]byte(`<InitiateMultipartUploadResult><UploadId>upload-xyz</UploadId></InitiateMultipartUploadResult>`))
	})
	defer closeFn()

	uploadID, err := client.CreateMultipartUpload(context.Background(), "my-bucket", "my-key", "")
	require.NoError(t, err)
	assert.Equal(t, "upload-xyz", uploadID)
}
