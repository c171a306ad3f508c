package ledger

import (
	"context"
	"sync"
)

// views remembers the newest request of every viewer, like a dashboard tab
// that switches from one camp to another. Starting a request cancels the
// viewer's previous one with ErrSuperseded; the reads it was waiting on are
// abandoned unless another caller still shares them.
type views struct {
	mu   sync.Mutex
	live map[string]*viewRequest
}

type viewRequest struct {
	cancel context.CancelCauseFunc
}

func newViews() *views {
	return &views{live: make(map[string]*viewRequest)}
}

func (v *views) begin(ctx context.Context, view string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(ctx)
	req := &viewRequest{cancel: cancel}

	v.mu.Lock()
	if prev, ok := v.live[view]; ok {
		prev.cancel(ErrSuperseded)
	}
	v.live[view] = req
	v.mu.Unlock()

	return ctx, func() {
		v.mu.Lock()
		if v.live[view] == req {
			delete(v.live, view)
		}
		v.mu.Unlock()
		cancel(context.Canceled)
	}
}

func (v *views) len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.live)
}
