package core

import (
	"context"
	"sync"
)

// resultOnce is a single-assignment result. The first resolve wins; later
// calls are ignored and report false.
type resultOnce[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

func newResultOnce[T any]() *resultOnce[T] {
	return &resultOnce[T]{done: make(chan struct{})}
}

func (r *resultOnce[T]) resolve(v T, err error) bool {
	resolved := false
	r.once.Do(func() {
		r.value, r.err = v, err
		resolved = true
		close(r.done)
	})
	return resolved
}

// wait blocks until the result is resolved or ctx ends.
func (r *resultOnce[T]) wait(ctx context.Context) (T, error) {
	select {
	case <-r.done:
		return r.value, r.err
	default:
	}

	select {
	case <-r.done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// extractHeaders reads only as far as the header row and abandons the rest
// of the document.
func extractHeaders(ctx context.Context, doc []byte, opts ReaderOptions) ([]string, error) {
	if doc == nil {
		return nil, ErrMissingFile
	}

	result := newResultOnce[[]string]()
	rr := NewRecordReader(ctx, doc, opts)

	headers, err := rr.Headers()
	switch {
	case err != nil:
		result.resolve(nil, err)
	case len(headers) == 0:
		result.resolve(nil, &ParseError{Err: ErrEmptyDocument})
	default:
		result.resolve(append([]string(nil), headers...), nil)
	}

	return result.wait(ctx)
}
