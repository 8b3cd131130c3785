// Package capability exposes the S3 client as a small graph of interfaces
// with a single ownership direction: an S3 owns Buckets, a Bucket owns
// Objects, and nothing ever points back up the chain. This mirrors the
// capability-style RPC facade the client is modeled on, without its
// possibility of reference cycles between a bucket and its objects.
package capability

import (
	"context"
	"io"

	"github.com/prn-tf/s3sig/internal/multipart"
	"github.com/prn-tf/s3sig/internal/s3client"
	"github.com/prn-tf/s3sig/internal/xmlutil"
)

// S3 is the root capability: the only thing constructible without already
// holding another capability.
type S3 interface {
	Bucket(name string) Bucket
	ListBuckets(ctx context.Context) ([]xmlutil.Bucket, error)
}

// Bucket is a capability scoped to one bucket name. It never exposes a way
// back to the S3 it came from; a caller that needs another bucket asks S3
// again.
type Bucket interface {
	Name() string
	Object(key string) Object
}

// Object is a capability scoped to one key within its owning bucket. It
// holds only what it needs to act (bucket name, key, and the underlying
// client) and does not hold a reference to its owning Bucket value.
type Object interface {
	Key() string
	Head(ctx context.Context) (s3client.ObjectMeta, error)
	Get(ctx context.Context, byteRange string) (io.ReadCloser, s3client.ObjectMeta, error)
	Put(ctx context.Context, body []byte, contentType string) (etag string, err error)
	Delete(ctx context.Context) error
	Multipart(cfg multipart.Config, contentType string) (MultipartUpload, error)
}

// MultipartUpload is the capability handed back once a multipart upload has
// been initiated. It owns the upload ID and cannot be recreated from an
// Object alone, forcing every part write through the same handle that
// created it.
type MultipartUpload interface {
	Write(ctx context.Context, data []byte) error
	End(ctx context.Context) (etag string, err error)
}
