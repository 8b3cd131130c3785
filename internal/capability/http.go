package capability

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/prn-tf/s3sig/internal/metrics"
	"github.com/prn-tf/s3sig/internal/multipart"
	"github.com/prn-tf/s3sig/internal/registry"
	"github.com/prn-tf/s3sig/internal/s3client"
	"github.com/prn-tf/s3sig/internal/xmlutil"
)

// httpS3 backs S3 with an *s3client.Client.
type httpS3 struct {
	client  *s3client.Client
	reg     registry.Store
	metrics *metrics.Metrics
}

// New wraps client as the root S3 capability. reg and m are both optional
// and may be nil; when reg is non-nil, every multipart upload started
// through this capability graph is registered for crash recovery and kept
// in sync as parts complete and the upload finishes.
func New(client *s3client.Client, reg registry.Store, m *metrics.Metrics) S3 {
	return &httpS3{client: client, reg: reg, metrics: m}
}

func (s *httpS3) Bucket(name string) Bucket {
	return &httpBucket{client: s.client, name: name, reg: s.reg, metrics: s.metrics}
}

func (s *httpS3) ListBuckets(ctx context.Context) ([]xmlutil.Bucket, error) {
	return s.client.ListBuckets(ctx)
}

type httpBucket struct {
	client  *s3client.Client
	name    string
	reg     registry.Store
	metrics *metrics.Metrics
}

func (b *httpBucket) Name() string { return b.name }

func (b *httpBucket) Object(key string) Object {
	return &httpObject{client: b.client, bucket: b.name, key: key, reg: b.reg, metrics: b.metrics}
}

type httpObject struct {
	client  *s3client.Client
	bucket  string
	key     string
	reg     registry.Store
	metrics *metrics.Metrics
}

func (o *httpObject) Key() string { return o.key }

func (o *httpObject) Head(ctx context.Context) (s3client.ObjectMeta, error) {
	return o.client.HeadObject(ctx, o.bucket, o.key)
}

func (o *httpObject) Get(ctx context.Context, byteRange string) (io.ReadCloser, s3client.ObjectMeta, error) {
	return o.client.GetObject(ctx, o.bucket, o.key, byteRange)
}

func (o *httpObject) Put(ctx context.Context, body []byte, contentType string) (string, error) {
	return o.client.PutObject(ctx, o.bucket, o.key, body, contentType)
}

func (o *httpObject) Delete(ctx context.Context) error {
	return o.client.DeleteObject(ctx, o.bucket, o.key)
}

func (o *httpObject) Multipart(cfg multipart.Config, contentType string) (MultipartUpload, error) {
	ctx := context.Background()
	uploadID, err := o.client.CreateMultipartUpload(ctx, o.bucket, o.key, contentType)
	if err != nil {
		return nil, err
	}

	if o.reg != nil {
		err := o.reg.Register(ctx, registry.Record{
			UploadID:  uploadID,
			Bucket:    o.bucket,
			Key:       o.key,
			State:     registry.StateOpen,
			CreatedAt: time.Now().UTC(),
		})
		if o.metrics != nil {
			o.metrics.ObserveRegistryOp("register", err)
		}
		if err != nil {
			return nil, err
		}
	}

	adapter := &clientPartAdapter{client: o.client, bucket: o.bucket, key: o.key, uploadID: uploadID}
	stream := multipart.New(cfg, adapter, adapter, o.metrics)
	return &httpMultipartUpload{
		stream:   stream,
		reg:      o.reg,
		metrics:  o.metrics,
		uploadID: uploadID,
	}, nil
}

// clientPartAdapter implements multipart.PartUploader and multipart.Completer
// against a fixed bucket/key/uploadID triple, translating the small
// multipart.Part shape into s3client.CompletedPart.
type clientPartAdapter struct {
	client   *s3client.Client
	bucket   string
	key      string
	uploadID string
}

func (a *clientPartAdapter) UploadPart(ctx context.Context, partNumber int, data []byte) (string, error) {
	return a.client.UploadPart(ctx, a.bucket, a.key, a.uploadID, partNumber, data)
}

func (a *clientPartAdapter) Complete(ctx context.Context, parts []multipart.Part) (string, error) {
	completed := make([]s3client.CompletedPart, len(parts))
	for i, p := range parts {
		completed[i] = s3client.CompletedPart{PartNumber: p.Number, ETag: p.ETag}
	}
	return a.client.CompleteMultipartUpload(ctx, a.bucket, a.key, a.uploadID, completed)
}

func (a *clientPartAdapter) Abort(ctx context.Context) error {
	return a.client.AbortMultipartUpload(ctx, a.bucket, a.key, a.uploadID)
}

// httpMultipartUpload tracks a live multipart.Stream alongside the
// crash-recovery registry row it was opened with, keeping the row's part
// count and terminal state in sync as the caller drives the upload.
type httpMultipartUpload struct {
	stream   *multipart.Stream
	reg      registry.Store
	metrics  *metrics.Metrics
	uploadID string

	mu            sync.Mutex
	lastPartCount int
}

func (m *httpMultipartUpload) Write(ctx context.Context, data []byte) error {
	err := m.stream.Write(ctx, data)
	m.syncPartCount(ctx)
	return err
}

// syncPartCount pushes the stream's current part count to the registry when
// it has grown since the last call. It is best-effort: a failed update does
// not fail the caller's Write, since the registry row exists purely for
// crash recovery, not correctness of the upload itself.
func (m *httpMultipartUpload) syncPartCount(ctx context.Context) {
	if m.reg == nil {
		return
	}
	count := m.stream.PartCount()

	m.mu.Lock()
	if count <= m.lastPartCount {
		m.mu.Unlock()
		return
	}
	m.lastPartCount = count
	m.mu.Unlock()

	err := m.reg.UpdatePartCount(ctx, m.uploadID, count)
	if m.metrics != nil {
		m.metrics.ObserveRegistryOp("update_part_count", err)
	}
}

func (m *httpMultipartUpload) End(ctx context.Context) (string, error) {
	etag, err := m.stream.End(ctx)
	m.syncPartCount(ctx)

	if m.reg != nil {
		state := registry.StateCompleted
		if err != nil {
			state = registry.StateAborted
		}
		markErr := m.reg.MarkState(ctx, m.uploadID, state)
		if m.metrics != nil {
			m.metrics.ObserveRegistryOp("mark_state", markErr)
		}
	}

	return etag, err
}

var (
	_ S3     = (*httpS3)(nil)
	_ Bucket = (*httpBucket)(nil)
	_ Object = (*httpObject)(nil)
)
