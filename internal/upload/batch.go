package upload

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/classboard/board-stream/internal/domain"
)

// Uploader pushes one attachment to object storage and returns its public
// URL.
type Uploader interface {
	Upload(ctx context.Context, att domain.PendingAttachment) (string, error)
}

// ProgressFunc is invoked after every individual completion with a
// monotonically increasing done count.
type ProgressFunc func(done, total int)

// UploadMany uploads files with at most concurrency in flight, preserving
// input order in the returned URLs regardless of completion order. A shared
// cursor hands the next pending file to whichever worker frees up first.
//
// The batch is fail-fast: the first failure cancels the remaining work and
// the error names the failed file. Files already uploaded are not rolled
// back; callers decide whether to retry the whole batch.
func UploadMany(ctx context.Context, up Uploader, files []domain.PendingAttachment, concurrency int, onProgress ProgressFunc) ([]string, error) {
	if len(files) == 0 {
		return []string{}, nil
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > len(files) {
		concurrency = len(files)
	}

	urls := make([]string, len(files))
	var cursor int64 = -1
	var progressMu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < concurrency; w++ {
		g.Go(func() error {
			for {
				i := int(atomic.AddInt64(&cursor, 1))
				if i >= len(files) {
					return nil
				}
				if err := gctx.Err(); err != nil {
					return err
				}
				url, err := up.Upload(gctx, files[i])
				if err != nil {
					return fmt.Errorf("upload %q: %w", files[i].Name, err)
				}
				urls[i] = url
				progressMu.Lock()
				done++
				if onProgress != nil {
					onProgress(done, len(files))
				}
				progressMu.Unlock()
			}
		})
	}
	if err := g.Wait(); err != nil {
		// no partial result is exposed on failure
		return nil, err
	}
	return urls, nil
}
