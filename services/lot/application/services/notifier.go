package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ghuser/lotdesk/services/lot/domain/events"
)

// DefaultNoticeTTL is how long a failure notice stays visible.
const DefaultNoticeTTL = 5 * time.Second

// ErrNothingToRetry is returned by Retry when no failure notice is visible.
var ErrNothingToRetry = errors.New("no failed operation to retry")

// Notice is the single visible failure message with its retry affordance.
type Notice struct {
	Outcome    events.Outcome `json:"outcome"`
	RetryLabel string         `json:"retry_label"`
	RaisedAt   time.Time      `json:"raised_at"`
	ExpiresAt  time.Time      `json:"expires_at"`
}

// Notifier keeps the most recent failed operation. A notice hides itself
// once its TTL has elapsed, whether or not the operation is still pending.
type Notifier struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	current *Notice
	retry   RetryFunc
}

// NewNotifier returns a Notifier whose notices expire after ttl.
// A non-positive ttl falls back to DefaultNoticeTTL.
func NewNotifier(ttl time.Duration) *Notifier {
	if ttl <= 0 {
		ttl = DefaultNoticeTTL
	}
	return &Notifier{ttl: ttl, now: time.Now}
}

// Report implements Reporter. Successful outcomes are ignored; a failure
// replaces whatever notice was showing.
func (n *Notifier) Report(_ context.Context, outcome events.Outcome, retry RetryFunc) {
	if outcome.Success {
		return
	}
	now := n.now()

	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = &Notice{
		Outcome:    outcome,
		RetryLabel: outcome.Kind.Label() + " Again",
		RaisedAt:   now,
		ExpiresAt:  now.Add(n.ttl),
	}
	n.retry = retry
}

// Current returns the visible notice, if any.
func (n *Notifier) Current() (Notice, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.visibleLocked() {
		return Notice{}, false
	}
	return *n.current, true
}

// Dismiss hides the current notice.
func (n *Notifier) Dismiss() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = nil
	n.retry = nil
}

// Retry hides the visible notice and re-runs its operation. A new failure
// raises a new notice through the collection.
func (n *Notifier) Retry(ctx context.Context) error {
	n.mu.Lock()
	if !n.visibleLocked() || n.retry == nil {
		n.mu.Unlock()
		return ErrNothingToRetry
	}
	retry := n.retry
	n.current = nil
	n.retry = nil
	n.mu.Unlock()

	return retry(ctx)
}

func (n *Notifier) visibleLocked() bool {
	if n.current == nil {
		return false
	}
	if !n.now().Before(n.current.ExpiresAt) {
		n.current = nil
		n.retry = nil
		return false
	}
	return true
}
