package xmlutil

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// Bucket is one entry of a ListBuckets response.
type Bucket struct {
	Name         string `xml:"Name"`
	CreationDate string `xml:"CreationDate"`
}

type listAllMyBucketsResult struct {
	Buckets struct {
		Bucket []Bucket `xml:"Bucket"`
	} `xml:"Buckets"`
}

// ParseListBuckets extracts the bucket list from a ListBuckets response body.
// encoding/xml matches elements by local name when a struct tag carries no
// namespace, so the "s3:" / default-namespace prefixes S3 sometimes emits
// are transparent to this parser.
func ParseListBuckets(body []byte) ([]Bucket, error) {
	var doc listAllMyBucketsResult
	if err := unmarshalStrict(body, &doc); err != nil {
		return nil, err
	}
	return doc.Buckets.Bucket, nil
}

type initiateMultipartUploadResult struct {
	Bucket   string `xml:"Bucket"`
	Key      string `xml:"Key"`
	UploadID string `xml:"UploadId"`
}

// ParseInitiateMultipartUpload extracts the upload ID CreateMultipartUpload
// assigned.
func ParseInitiateMultipartUpload(body []byte) (uploadID string, err error) {
	var doc initiateMultipartUploadResult
	if err := unmarshalStrict(body, &doc); err != nil {
		return "", err
	}
	if doc.UploadID == "" {
		return "", fmt.Errorf("%w: missing UploadId", ErrMalformed)
	}
	return doc.UploadID, nil
}

type completeMultipartUploadResult struct {
	Location string `xml:"Location"`
	Bucket   string `xml:"Bucket"`
	Key      string `xml:"Key"`
	ETag     string `xml:"ETag"`
}

// ParseCompleteMultipartUpload extracts the final object ETag from a
// CompleteMultipartUpload response.
func ParseCompleteMultipartUpload(body []byte) (etag string, err error) {
	var doc completeMultipartUploadResult
	if err := unmarshalStrict(body, &doc); err != nil {
		return "", err
	}
	if doc.ETag == "" {
		return "", fmt.Errorf("%w: missing ETag", ErrMalformed)
	}
	return doc.ETag, nil
}

// S3Error is the parsed form of an S3 error response body: <Error><Code>
// ...<Message>...</Error>. HTTPStatus is filled in by the caller from the
// transport response, since it is never present in the body itself.
type S3Error struct {
	Code       string `xml:"Code"`
	Message    string `xml:"Message"`
	Resource   string `xml:"Resource"`
	RequestID  string `xml:"RequestId"`
	HTTPStatus int    `xml:"-"`
}

func (e *S3Error) Error() string {
	return fmt.Sprintf("s3: %s (%s): %s", e.Code, httpStatusText(e.HTTPStatus), e.Message)
}

func httpStatusText(status int) string {
	if status == 0 {
		return "unknown status"
	}
	return fmt.Sprintf("HTTP %d", status)
}

// ParseError parses an S3 XML error body. Callers set HTTPStatus after the
// fact; when body is not valid XML at all, ParseError returns an *S3Error
// with Code "Unknown" carrying the raw body as its message rather than
// failing outright, since a non-XML 5xx from a misbehaving intermediary is
// still an error the caller needs to surface.
func ParseError(body []byte, httpStatus int) *S3Error {
	var doc S3Error
	if err := unmarshalStrict(body, &doc); err != nil || doc.Code == "" {
		return &S3Error{
			Code:       "Unknown",
			Message:    string(bytes.TrimSpace(body)),
			HTTPStatus: httpStatus,
		}
	}
	doc.HTTPStatus = httpStatus
	return &doc
}

// unmarshalStrict decodes body with a namespace-tolerant xml.Decoder,
// rejecting completely unparsable input rather than silently returning a
// zero-value document.
func unmarshalStrict(body []byte, v any) error {
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.Strict = false
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
