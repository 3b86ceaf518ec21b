package upload_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classboard/board-stream/internal/domain"
	"github.com/classboard/board-stream/internal/upload"
)

type fakeUploader struct {
	mu       sync.Mutex
	inFlight int32
	maxSeen  int32
	failOn   string
	delay    time.Duration
}

func (f *fakeUploader) Upload(ctx context.Context, att domain.PendingAttachment) (string, error) {
	cur := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	f.mu.Lock()
	if cur > f.maxSeen {
		f.maxSeen = cur
	}
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if att.Name == f.failOn {
		return "", errors.New("storage unavailable")
	}
	return "https://cdn.test/" + att.Name, nil
}

func files(n int) []domain.PendingAttachment {
	out := make([]domain.PendingAttachment, n)
	for i := range out {
		out[i] = domain.PendingAttachment{Kind: domain.KindFile, Name: fmt.Sprintf("f%d.bin", i)}
	}
	return out
}

func TestUploadManyPreservesOrder(t *testing.T) {
	up := &fakeUploader{delay: time.Millisecond}
	urls, err := upload.UploadMany(context.Background(), up, files(5), 2, nil)
	require.NoError(t, err)
	require.Len(t, urls, 5)
	for i, u := range urls {
		assert.Equal(t, fmt.Sprintf("https://cdn.test/f%d.bin", i), u)
	}
}

func TestUploadManyBoundsConcurrency(t *testing.T) {
	up := &fakeUploader{delay: 10 * time.Millisecond}
	_, err := upload.UploadMany(context.Background(), up, files(6), 2, nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, up.maxSeen, int32(2))
}

func TestUploadManyProgressMonotonic(t *testing.T) {
	up := &fakeUploader{delay: time.Millisecond}
	var seen []int
	_, err := upload.UploadMany(context.Background(), up, files(5), 3, func(done, total int) {
		assert.Equal(t, 5, total)
		seen = append(seen, done)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, seen)
}

func TestUploadManyFailFast(t *testing.T) {
	up := &fakeUploader{failOn: "f2.bin", delay: time.Millisecond}
	urls, err := upload.UploadMany(context.Background(), up, files(5), 2, nil)
	require.Error(t, err)
	// the error names the failed file, and no partial result is exposed
	assert.Contains(t, err.Error(), "f2.bin")
	assert.Nil(t, urls)
}

func TestUploadManyEmpty(t *testing.T) {
	urls, err := upload.UploadMany(context.Background(), &fakeUploader{}, nil, 2, nil)
	require.NoError(t, err)
	assert.Empty(t, urls)
}
