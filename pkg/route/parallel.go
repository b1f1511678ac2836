package route

import (
	"context"

	"k8s.io/client-go/util/workqueue"
)

// errorChannel keeps the first error sent to it.
type errorChannel struct {
	errCh chan error
}

func newErrorChannel() *errorChannel {
	return &errorChannel{errCh: make(chan error, 1)}
}

// sendErrorWithCancel records err if none is held yet and cancels the work.
func (e *errorChannel) sendErrorWithCancel(err error, cancel context.CancelFunc) {
	select {
	case e.errCh <- err:
	default:
	}
	cancel()
}

// receiveError returns the recorded error, or nil.
func (e *errorChannel) receiveError() error {
	select {
	case err := <-e.errCh:
		return err
	default:
		return nil
	}
}

// until runs fn for every piece on up to workers goroutines.
func until(ctx context.Context, workers, pieces int, fn func(piece int)) {
	workqueue.ParallelizeUntil(ctx, workers, pieces, fn)
}
