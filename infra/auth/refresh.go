package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/CrestNiraj12/terminalnotes/domain"
	"github.com/CrestNiraj12/terminalnotes/infra/metrics"
)

// RefreshFunc exchanges a refresh token for a new token pair. It must return
// an error matching domain.ErrUnauthorized when the refresh token is rejected.
type RefreshFunc func(ctx context.Context, refreshToken string) (domain.Tokens, error)

type refreshResult struct {
	access string
	err    error
}

// Refresher serializes access token refreshes. Callers that hit a 401 while a
// refresh is running queue behind it and all receive its outcome; only one
// refresh request is ever in flight.
type Refresher struct {
	store     TokenStore
	refresh   RefreshFunc
	onExpired func()
	logger    *slog.Logger
	metrics   *metrics.Metrics
	timeout   time.Duration

	mu         sync.Mutex
	refreshing bool
	waiters    []chan refreshResult
	expired    bool // Session already terminated; suppresses repeat redirects.
}

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

// WithExpiredHandler is called once each time the session is terminated.
func WithExpiredHandler(fn func()) RefresherOption {
	return func(r *Refresher) { r.onExpired = fn }
}

func WithRefreshLogger(l *slog.Logger) RefresherOption {
	return func(r *Refresher) { r.logger = l }
}

func WithRefreshMetrics(m *metrics.Metrics) RefresherOption {
	return func(r *Refresher) { r.metrics = m }
}

// WithRefreshTimeout bounds a single refresh call.
func WithRefreshTimeout(d time.Duration) RefresherOption {
	return func(r *Refresher) { r.timeout = d }
}

// NewRefresher creates a Refresher over store using refresh to rotate tokens.
func NewRefresher(store TokenStore, refresh RefreshFunc, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		store:   store,
		refresh: refresh,
		logger:  slog.New(slog.DiscardHandler),
		timeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetExpiredHandler replaces the session-expired callback. Used by the TUI,
// which only has a program to notify after construction.
func (r *Refresher) SetExpiredHandler(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onExpired = fn
}

// Refresh returns an access token newer than stale, the token the caller's
// request was rejected with. If the stored token already differs from stale,
// it is returned without a network call.
func (r *Refresher) Refresh(ctx context.Context, stale string) (string, error) {
	r.mu.Lock()
	if !r.refreshing {
		cur, err := r.store.Load()
		if err != nil {
			r.mu.Unlock()
			return "", fmt.Errorf("loading tokens: %w", err)
		}
		if cur.Refresh != "" {
			r.expired = false
		}
		if cur.Access != "" && cur.Access != stale {
			r.mu.Unlock()
			return cur.Access, nil
		}
		if cur.Refresh == "" {
			notify := r.expireLocked("no refresh token")
			r.mu.Unlock()
			if notify {
				r.notifyExpired()
			}
			return "", domain.ErrSessionExpired
		}
		r.refreshing = true
		go r.run(cur.Refresh)
	}
	ch := make(chan refreshResult, 1)
	r.waiters = append(r.waiters, ch)
	r.mu.Unlock()

	select {
	case res := <-ch:
		return res.access, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (r *Refresher) run(refreshToken string) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	r.logger.Debug("refreshing access token")
	tokens, err := r.refresh(ctx, refreshToken)
	if err == nil && tokens.Access == "" {
		err = errors.New("refresh returned an empty access token")
	}

	var (
		res    refreshResult
		expire bool
	)
	switch {
	case err == nil:
		if tokens.Refresh == "" {
			tokens.Refresh = refreshToken
		}
		if serr := r.store.Save(tokens); serr != nil {
			res.err = fmt.Errorf("saving refreshed tokens: %w", serr)
		} else {
			res.access = tokens.Access
		}
		r.metrics.ObserveRefresh("ok")
	case errors.Is(err, domain.ErrUnauthorized):
		res.err = fmt.Errorf("%w: %v", domain.ErrSessionExpired, err)
		expire = true
		r.metrics.ObserveRefresh("expired")
	default:
		res.err = fmt.Errorf("refreshing access token: %w", err)
		r.metrics.ObserveRefresh("error")
		r.logger.Warn("token refresh failed", "error", err)
	}

	r.mu.Lock()
	waiters := r.waiters
	r.waiters = nil
	r.refreshing = false
	notify := false
	if expire {
		notify = r.expireLocked("refresh token rejected")
	} else if res.err == nil {
		r.expired = false
	}
	r.mu.Unlock()

	if notify {
		r.notifyExpired()
	}
	for _, w := range waiters {
		w <- res
	}
}

// expireLocked clears credentials and reports whether the expiry callback
// should run. Callers must hold r.mu.
func (r *Refresher) expireLocked(reason string) bool {
	if err := r.store.Clear(); err != nil {
		r.logger.Error("clearing tokens failed", "error", err)
	}
	if r.expired {
		return false
	}
	r.expired = true
	r.logger.Info("session expired", "reason", reason)
	return r.onExpired != nil
}

func (r *Refresher) notifyExpired() {
	r.mu.Lock()
	fn := r.onExpired
	r.mu.Unlock()
	if fn != nil {
		fn()
	}
}
