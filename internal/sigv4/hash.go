package sigv4

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
)

// SHA256Hex returns the lowercase hex SHA-256 digest of data.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HMACSHA256 computes HMAC-SHA256(key, data).
func HMACSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// StreamingHash is a single-use streaming SHA-256 accumulator. Update may be
// called any number of times; Finalize consumes the accumulator and returns
// the digest. Calling Update after Finalize panics, matching the "no hidden
// state after finalize" guarantee: a finalized StreamingHash is inert.
type StreamingHash struct {
	h    hash.Hash
	done bool
}

// NewStreamingHash returns a ready-to-use streaming SHA-256 accumulator.
func NewStreamingHash() *StreamingHash {
	return &StreamingHash{h: sha256.New()}
}

// Update feeds more bytes into the accumulator.
func (s *StreamingHash) Update(p []byte) {
	if s.done {
		panic("sigv4: Update called on a finalized StreamingHash")
	}
	s.h.Write(p)
}

// Finalize returns the SHA-256 digest of everything written so far and
// retires the accumulator.
func (s *StreamingHash) Finalize() [32]byte {
	var out [32]byte
	copy(out[:], s.h.Sum(nil))
	s.done = true
	return out
}

// FinalizeHex is Finalize encoded as lowercase hex.
func (s *StreamingHash) FinalizeHex() string {
	sum := s.Finalize()
	return hex.EncodeToString(sum[:])
}

// SHA256Reader streams r through a SHA-256 accumulator while still making its
// bytes available to the caller, the way a request body is hashed while being
// sent. It implements io.Reader; call SumHex after the underlying reader is
// drained to EOF.
type SHA256Reader struct {
	r io.Reader
	h hash.Hash
}

// NewSHA256Reader wraps r so that every byte read through it is also hashed.
func NewSHA256Reader(r io.Reader) *SHA256Reader {
	return &SHA256Reader{r: r, h: sha256.New()}
}

func (s *SHA256Reader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if n > 0 {
		s.h.Write(p[:n])
	}
	return n, err
}

// SumHex returns the lowercase hex digest of everything read so far.
func (s *SHA256Reader) SumHex() string {
	return hex.EncodeToString(s.h.Sum(nil))
}
