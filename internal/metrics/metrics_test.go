package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveSignedRequestIncrementsByService(t *testing.T) {
	m := New()
	m.ObserveSignedRequest("s3")
	m.ObserveSignedRequest("s3")
	m.ObserveSignedRequest("sts")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.signedRequests.WithLabelValues("s3")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.signedRequests.WithLabelValues("sts")))
}

func TestObserveSigningFailureIncrements(t *testing.T) {
	m := New()
	m.ObserveSigningFailure()
	m.ObserveSigningFailure()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.signingFailures))
}

func TestObservePartUploadSplitsByOutcome(t *testing.T) {
	m := New()
	m.ObservePartUpload(true, 1024, 10*time.Millisecond)
	m.ObservePartUpload(false, 0, 5*time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.partUploads.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.partUploads.WithLabelValues("failure")))
	assert.Equal(t, float64(1024), testutil.ToFloat64(m.partUploadBytes))
}

func TestObserveMultipartResultTracksState(t *testing.T) {
	m := New()
	m.ObserveMultipartResult("completed")
	m.ObserveMultipartResult("failed")
	m.ObserveMultipartResult("failed")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.multipartResults.WithLabelValues("completed")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.multipartResults.WithLabelValues("failed")))
}

func TestObserveRegistryOpTracksOutcome(t *testing.T) {
	m := New()
	m.ObserveRegistryOp("register", nil)
	m.ObserveRegistryOp("register", assert.AnError)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.registryOps.WithLabelValues("register", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.registryOps.WithLabelValues("register", "error")))
}

func TestObserveLockAcquireTracksOutcome(t *testing.T) {
	m := New()
	m.ObserveLockAcquire(true)
	m.ObserveLockAcquire(false)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.lockContention.WithLabelValues("acquired")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.lockContention.WithLabelValues("contended")))
}
