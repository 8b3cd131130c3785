package multipart

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/prn-tf/s3sig/internal/metrics"
)

// State is the lifecycle a Stream moves through. There is no "Flushing"
// state exposed to callers: the tail-buffer flush that precedes Completing
// is an implementation detail of End, not something a caller can observe or
// interleave with.
type State int

const (
	StateOpen State = iota
	StateCompleting
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "Open"
	case StateCompleting:
		return "Completing"
	case StateCompleted:
		return "Completed"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Part is one uploaded piece of the object, ready to be echoed back in the
// completion document.
type Part struct {
	Number int
	ETag   string
}

// PartUploader uploads one part of a multipart upload and returns the ETag
// S3 assigned it. Implementations must be safe for concurrent use: Stream
// calls UploadPart from up to Config.MaxInflight goroutines at once.
type PartUploader interface {
	UploadPart(ctx context.Context, partNumber int, data []byte) (etag string, err error)
}

// Completer finishes or discards a multipart upload once every part has an
// ETag.
type Completer interface {
	Complete(ctx context.Context, parts []Part) (etag string, err error)
	Abort(ctx context.Context) error
}

// Stream is a buffered byte sink that slices everything written to it into
// Config.PartSize chunks, uploads each chunk as soon as it fills, and
// assembles the final completion document once End is called. A Stream is
// safe for concurrent Write calls but is meant to be driven by a single
// writer goroutine, matching the single producer that owns an object body.
type Stream struct {
	cfg       Config
	uploader  PartUploader
	completer Completer
	metrics   *metrics.Metrics
	logger    zerolog.Logger

	mu         sync.Mutex
	buffer     []byte
	nextNumber int
	parts      []Part
	started    bool
	state      State
	failCause  error

	sem     sync.WaitGroup
	gate    chan struct{}
	errOnce sync.Once
}

// New returns an open Stream ready to accept Write calls. m is optional and
// may be nil; when non-nil, Stream reports per-part and per-upload outcomes
// to it.
func New(cfg Config, uploader PartUploader, completer Completer, m *metrics.Metrics) *Stream {
	cfg = cfg.WithDefaults()
	return &Stream{
		cfg:       cfg,
		uploader:  uploader,
		completer: completer,
		metrics:   m,
		logger:    log.With().Str("component", "multipart").Logger(),
		buffer:    make([]byte, 0, cfg.PartSize),
		gate:      make(chan struct{}, cfg.MaxInflight),
	}
}

// Write appends bytes to the internal buffer, spawning an asynchronous part
// upload every time the buffer reaches Config.PartSize. It never blocks on
// the network unless MaxInflight uploads are already running, in which case
// it blocks until a slot frees up, bounding memory to roughly
// MaxInflight*PartSize.
func (s *Stream) Write(ctx context.Context, data []byte) error {
	for len(data) > 0 {
		s.mu.Lock()
		if s.state != StateOpen {
			s.mu.Unlock()
			return ErrClosed
		}

		room := int(s.cfg.PartSize) - len(s.buffer)
		n := len(data)
		if n > room {
			n = room
		}
		s.buffer = append(s.buffer, data[:n]...)
		data = data[n:]

		var flushed []byte
		partNumber := 0
		if len(s.buffer) == int(s.cfg.PartSize) {
			flushed = s.buffer
			s.buffer = make([]byte, 0, s.cfg.PartSize)
			s.nextNumber++
			partNumber = s.nextNumber
			s.started = true
		}
		s.mu.Unlock()

		if flushed != nil {
			if err := s.spawnPart(ctx, partNumber, flushed); err != nil {
				return err
			}
		}
	}
	return nil
}

// spawnPart uploads a full part asynchronously, respecting MaxInflight.
// Acquiring a gate slot can block the caller, which is Write's backpressure
// mechanism: a slow uploader throttles the producer instead of buffering an
// unbounded number of pending parts in memory.
func (s *Stream) spawnPart(ctx context.Context, partNumber int, data []byte) error {
	select {
	case s.gate <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.sem.Add(1)
	go func() {
		defer s.sem.Done()
		defer func() { <-s.gate }()

		start := time.Now()
		etag, err := s.uploader.UploadPart(ctx, partNumber, data)
		if err != nil {
			if s.metrics != nil {
				s.metrics.ObservePartUpload(false, len(data), time.Since(start))
			}
			s.recordFailure(&PartUploadError{PartNumber: partNumber, Cause: err})
			return
		}

		if s.metrics != nil {
			s.metrics.ObservePartUpload(true, len(data), time.Since(start))
		}

		s.mu.Lock()
		s.parts = append(s.parts, Part{Number: partNumber, ETag: etag})
		s.mu.Unlock()

		s.logger.Debug().Int("part", partNumber).Int("bytes", len(data)).Msg("part uploaded")
	}()

	return s.inflightFailure()
}

func (s *Stream) recordFailure(err error) {
	s.errOnce.Do(func() {
		s.mu.Lock()
		s.state = StateFailed
		s.failCause = err
		s.mu.Unlock()
	})
}

func (s *Stream) inflightFailure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateFailed {
		return s.failCause
	}
	return nil
}

// End flushes any buffered tail bytes as the final part, waits for every
// in-flight part upload to finish, and completes the multipart upload. It
// returns the final object's ETag. Calling End on a Stream that never
// received a single byte is an error: S3 requires at least one part.
func (s *Stream) End(ctx context.Context) (etag string, err error) {
	s.mu.Lock()
	if s.state == StateFailed {
		cause := s.failCause
		s.mu.Unlock()
		return "", cause
	}
	if s.state != StateOpen {
		s.mu.Unlock()
		return "", ErrClosed
	}

	var tail []byte
	if len(s.buffer) > 0 {
		tail = s.buffer
		s.buffer = nil
		s.nextNumber++
		s.started = true
	}
	started := s.started
	s.state = StateCompleting
	s.mu.Unlock()

	if !started {
		noData := fmt.Errorf("multipart: End called with no data ever written")
		s.mu.Lock()
		s.state = StateFailed
		s.failCause = noData
		s.mu.Unlock()
		s.observeResult(StateFailed)
		return "", noData
	}

	if tail != nil {
		partNumber := s.nextNumber
		if err := s.spawnPart(ctx, partNumber, tail); err != nil {
			s.recordFailure(err)
			s.observeResult(StateFailed)
			return "", err
		}
	}

	s.sem.Wait()

	if err := s.inflightFailure(); err != nil {
		s.observeResult(StateFailed)
		return "", err
	}

	s.mu.Lock()
	parts := append([]Part(nil), s.parts...)
	s.mu.Unlock()
	sort.Slice(parts, func(i, j int) bool { return parts[i].Number < parts[j].Number })

	etag, err = s.completer.Complete(ctx, parts)
	s.mu.Lock()
	if err != nil {
		s.state = StateFailed
		s.failCause = err
	} else {
		s.state = StateCompleted
	}
	s.mu.Unlock()
	s.observeResult(s.state)
	return etag, err
}

// observeResult reports the terminal state of an upload to metrics, if any
// are configured.
func (s *Stream) observeResult(state State) {
	if s.metrics != nil {
		s.metrics.ObserveMultipartResult(state.String())
	}
}

// State reports the Stream's current lifecycle state.
func (s *Stream) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PartCount reports how many parts have completed upload so far.
func (s *Stream) PartCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.parts)
}
