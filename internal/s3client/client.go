package s3client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/prn-tf/s3sig/internal/sigv4"
	"github.com/prn-tf/s3sig/internal/xmlutil"
)

// Doer is the subset of *http.Client this package needs. A signingproxy.Proxy
// satisfies it once wrapped in an *http.Client via its RoundTripper field, or
// it can be passed directly as an http.RoundTripper-backed client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client issues S3 REST operations over an already-signing Doer. It never
// touches credentials or signing itself; that is signingproxy's job.
type Client struct {
	HTTP     Doer
	Region   string
	Endpoint string // e.g. "amazonaws.com"; empty means the default AWS endpoint
}

// New returns a Client whose requests target region under the standard AWS
// S3 endpoint suffix.
func New(http Doer, region string) *Client {
	return &Client{HTTP: http, Region: region, Endpoint: "amazonaws.com"}
}

func (c *Client) endpointSuffix() string {
	if c.Endpoint == "" {
		return "amazonaws.com"
	}
	return c.Endpoint
}

// serviceURL is the path-style root used for account-level operations that
// have no bucket, like ListBuckets.
func (c *Client) serviceURL() string {
	return fmt.Sprintf("https://s3.%s.%s/", c.Region, c.endpointSuffix())
}

// bucketURL is the virtual-hosted-style root for a specific bucket.
func (c *Client) bucketURL(bucket string) string {
	return fmt.Sprintf("https://%s.s3.%s.%s/", bucket, c.Region, c.endpointSuffix())
}

func (c *Client) objectURL(bucket, key string) string {
	return c.bucketURL(bucket) + url.PathEscape(key)
}

// ListBuckets returns every bucket owned by the signing identity.
func (c *Client) ListBuckets(ctx context.Context) ([]xmlutil.Bucket, error) {
	resp, body, err := c.do(ctx, http.MethodGet, c.serviceURL(), nil, nil)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp, body); err != nil {
		return nil, err
	}
	return xmlutil.ParseListBuckets(body)
}

// ObjectMeta is the subset of head-response headers callers typically need.
type ObjectMeta struct {
	ETag          string
	ContentLength int64
	ContentType   string
}

// HeadObject retrieves object metadata without downloading its body.
func (c *Client) HeadObject(ctx context.Context, bucket, key string) (ObjectMeta, error) {
	resp, body, err := c.do(ctx, http.MethodHead, c.objectURL(bucket, key), nil, nil)
	if err != nil {
		return ObjectMeta{}, err
	}
	if err := checkStatus(resp, body); err != nil {
		return ObjectMeta{}, err
	}
	return ObjectMeta{
		ETag:          resp.Header.Get(sigv4.HeaderETag),
		ContentLength: resp.ContentLength,
		ContentType:   resp.Header.Get(sigv4.HeaderContentType),
	}, nil
}

// GetObject downloads key from bucket. When byteRange is non-empty it is
// sent verbatim as the Range header, e.g. "bytes=0-1023".
func (c *Client) GetObject(ctx context.Context, bucket, key, byteRange string) (io.ReadCloser, ObjectMeta, error) {
	headers := map[string]string{}
	if byteRange != "" {
		headers[sigv4.HeaderRange] = byteRange
	}
	resp, err := c.doStreaming(ctx, http.MethodGet, c.objectURL(bucket, key), headers, nil)
	if err != nil {
		return nil, ObjectMeta{}, err
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, ObjectMeta{}, xmlutil.ParseError(body, resp.StatusCode)
	}
	return resp.Body, ObjectMeta{
		ETag:          resp.Header.Get(sigv4.HeaderETag),
		ContentLength: resp.ContentLength,
		ContentType:   resp.Header.Get(sigv4.HeaderContentType),
	}, nil
}

// PutObject uploads body in a single request. The signing proxy signs any
// non-empty body as UNSIGNED-PAYLOAD.
func (c *Client) PutObject(ctx context.Context, bucket, key string, body []byte, contentType string) (etag string, err error) {
	headers := map[string]string{}
	if contentType != "" {
		headers[sigv4.HeaderContentType] = contentType
	}
	resp, respBody, err := c.do(ctx, http.MethodPut, c.objectURL(bucket, key), headers, body)
	if err != nil {
		return "", err
	}
	if err := checkStatus(resp, respBody); err != nil {
		return "", err
	}
	return resp.Header.Get(sigv4.HeaderETag), nil
}

// DeleteObject removes key from bucket. S3 returns 204 for both an existing
// and a nonexistent key, so callers cannot distinguish those cases here.
func (c *Client) DeleteObject(ctx context.Context, bucket, key string) error {
	resp, body, err := c.do(ctx, http.MethodDelete, c.objectURL(bucket, key), nil, nil)
	if err != nil {
		return err
	}
	return checkStatus(resp, body)
}

// CreateMultipartUpload initiates a multipart upload and returns its upload ID.
func (c *Client) CreateMultipartUpload(ctx context.Context, bucket, key, contentType string) (uploadID string, err error) {
	headers := map[string]string{}
	if contentType != "" {
		headers[sigv4.HeaderContentType] = contentType
	}
	resp, body, err := c.do(ctx, http.MethodPost, c.objectURL(bucket, key)+"?uploads", headers, nil)
	if err != nil {
		return "", err
	}
	if err := checkStatus(resp, body); err != nil {
		return "", err
	}
	return xmlutil.ParseInitiateMultipartUpload(body)
}

// UploadPart uploads a single part of an in-progress multipart upload and
// returns the ETag S3 assigned it, which must be echoed back verbatim in
// CompleteMultipartUpload.
func (c *Client) UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int, body []byte) (etag string, err error) {
	u := fmt.Sprintf("%s?partNumber=%d&uploadId=%s", c.objectURL(bucket, key), partNumber, url.QueryEscape(uploadID))
	resp, respBody, err := c.do(ctx, http.MethodPut, u, nil, body)
	if err != nil {
		return "", err
	}
	if err := checkStatus(resp, respBody); err != nil {
		return "", err
	}
	etag = resp.Header.Get(sigv4.HeaderETag)
	if etag == "" {
		return "", fmt.Errorf("s3client: part %d response carried no ETag", partNumber)
	}
	return etag, nil
}

// CompletedPart is one entry of the completion document, in ascending
// PartNumber order.
type CompletedPart struct {
	PartNumber int
	ETag       string
}

// CompleteMultipartUpload finalizes an upload from its collected part ETags
// and returns the resulting object's ETag. The completion URL always uses
// "?uploadId=" as its sole query parameter.
func (c *Client) CompleteMultipartUpload(ctx context.Context, bucket, key, uploadID string, parts []CompletedPart) (etag string, err error) {
	u := fmt.Sprintf("%s?uploadId=%s", c.objectURL(bucket, key), url.QueryEscape(uploadID))
	body := buildCompletionDocument(parts)

	resp, respBody, err := c.do(ctx, http.MethodPost, u, map[string]string{sigv4.HeaderContentType: sigv4.ContentTypeXML}, body)
	if err != nil {
		return "", err
	}
	if err := checkStatus(resp, respBody); err != nil {
		return "", err
	}
	return xmlutil.ParseCompleteMultipartUpload(respBody)
}

// AbortMultipartUpload releases the parts already uploaded for an upload
// that will never complete.
func (c *Client) AbortMultipartUpload(ctx context.Context, bucket, key, uploadID string) error {
	u := fmt.Sprintf("%s?uploadId=%s", c.objectURL(bucket, key), url.QueryEscape(uploadID))
	resp, body, err := c.do(ctx, http.MethodDelete, u, nil, nil)
	if err != nil {
		return err
	}
	return checkStatus(resp, body)
}

func buildCompletionDocument(parts []CompletedPart) []byte {
	var b []byte
	b = append(b, `<?xml version="1.0" encoding="UTF-8"?><CompleteMultipartUpload>`...)
	for _, p := range parts {
		b = append(b, fmt.Sprintf("<Part><PartNumber>%d</PartNumber><ETag>%s</ETag></Part>", p.PartNumber, p.ETag)...)
	}
	b = append(b, `</CompleteMultipartUpload>`...)
	return b
}

func checkStatus(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return xmlutil.ParseError(body, resp.StatusCode)
}

func (c *Client) do(ctx context.Context, method, rawURL string, headers map[string]string, body []byte) (*http.Response, []byte, error) {
	resp, err := c.doStreaming(ctx, method, rawURL, headers, body)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("s3client: reading response body: %w", err)
	}
	return resp, respBody, nil
}

func (c *Client) doStreaming(ctx context.Context, method, rawURL string, headers map[string]string, body []byte) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("s3client: building request: %w", err)
	}
	if body != nil {
		req.ContentLength = int64(len(body))
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("s3client: %s %s: %w", method, rawURL, err)
	}
	return resp, nil
}
