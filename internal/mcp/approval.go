package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultApprovalTimeout = 2 * time.Minute

var (
	errRejected = errors.New("rejected by user")
	errExpired  = errors.New("approval expired")
)

// EventEmitter notifies whoever is watching the approval queue.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// ForceRequest is a forced load waiting for a human decision.
type ForceRequest struct {
	ID          string    `json:"id"`
	ProfileID   string    `json:"profileId"`
	Table       string    `json:"table"`
	Summary     string    `json:"summary"`
	RequestedAt time.Time `json:"requestedAt"`
}

type waiter struct {
	req      ForceRequest
	decision chan bool
}

// ApprovalQueue gates forced loads past the refusal threshold. Await emits
// "mcp:approval-required" and blocks until Decide, the timeout, or shutdown.
type ApprovalQueue struct {
	ctx     context.Context
	emitter EventEmitter
	timeout time.Duration

	mu      sync.Mutex
	waiting map[string]*waiter
}

// NewApprovalQueue creates a queue. A non-positive timeout uses the default.
func NewApprovalQueue(ctx context.Context, emitter EventEmitter, timeout time.Duration) *ApprovalQueue {
	if timeout <= 0 {
		timeout = defaultApprovalTimeout
	}
	return &ApprovalQueue{
		ctx:     ctx,
		emitter: emitter,
		timeout: timeout,
		waiting: make(map[string]*waiter),
	}
}

// Await queues req and returns nil once it is approved.
func (q *ApprovalQueue) Await(req ForceRequest) error {
	req.ID = uuid.NewString()
	req.RequestedAt = time.Now().UTC()
	w := &waiter{req: req, decision: make(chan bool, 1)}

	q.mu.Lock()
	q.waiting[req.ID] = w
	q.mu.Unlock()
	defer q.forget(req.ID)

	q.emit("mcp:approval-required", req)

	timer := time.NewTimer(q.timeout)
	defer timer.Stop()

	select {
	case ok := <-w.decision:
		if ok {
			return nil
		}
		return fmt.Errorf("force load of %s: %w", req.Table, errRejected)
	case <-timer.C:
		q.emit("mcp:approval-dismissed", req.ID)
		return fmt.Errorf("force load of %s after %s: %w", req.Table, q.timeout, errExpired)
	case <-q.ctx.Done():
		return q.ctx.Err()
	}
}

// Pending lists the waiting requests, oldest first.
func (q *ApprovalQueue) Pending() []ForceRequest {
	q.mu.Lock()
	out := make([]ForceRequest, 0, len(q.waiting))
	for _, w := range q.waiting {
		out = append(out, w.req)
	}
	q.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return out
}

// Decide resolves a waiting request. It reports false for an unknown id.
func (q *ApprovalQueue) Decide(id string, approve bool) bool {
	q.mu.Lock()
	w, ok := q.waiting[id]
	q.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case w.decision <- approve:
	default:
	}
	return true
}

func (q *ApprovalQueue) forget(id string) {
	q.mu.Lock()
	delete(q.waiting, id)
	q.mu.Unlock()
}

func (q *ApprovalQueue) emit(event string, data any) {
	if q.emitter != nil {
		q.emitter.Emit(q.ctx, event, data)
	}
}
