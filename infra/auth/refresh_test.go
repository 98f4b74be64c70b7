package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/CrestNiraj12/terminalnotes/domain"
	"github.com/CrestNiraj12/terminalnotes/infra/metrics"
)

func TestRefresher_QueuesWaitersBehindOneRefresh(t *testing.T) {
	store := NewMemoryTokenStore(domain.Tokens{Access: "old", Refresh: "r1"})
	started := make(chan struct{})
	unblock := make(chan struct{})
	var calls atomic.Int32
	m := metrics.New(prometheus.NewRegistry())

	r := NewRefresher(store, func(_ context.Context, refresh string) (domain.Tokens, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-unblock
		if refresh != "r1" {
			t.Errorf("unexpected refresh token %q", refresh)
		}
		return domain.Tokens{Access: "new", Refresh: "r2"}, nil
	}, WithRefreshMetrics(m))

	const callers = 5
	var wg sync.WaitGroup
	results := make([]string, callers)
	errs := make([]error, callers)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = r.Refresh(context.Background(), "old")
	}()
	<-started
	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = r.Refresh(context.Background(), "old")
		}(i)
	}
	// Give the queued callers a moment to enqueue before resolving.
	time.Sleep(20 * time.Millisecond)
	close(unblock)
	wg.Wait()

	for i := range callers {
		if errs[i] != nil || results[i] != "new" {
			t.Fatalf("caller %d: got %q %v", i, results[i], errs[i])
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single refresh call, got %d", calls.Load())
	}
	if got, _ := store.Load(); got != (domain.Tokens{Access: "new", Refresh: "r2"}) {
		t.Fatalf("unexpected stored tokens: %#v", got)
	}
	if v := testutil.ToFloat64(m.Refreshes().WithLabelValues("ok")); v != 1 {
		t.Fatalf("expected one ok refresh metric, got %v", v)
	}
}

func TestRefresher_AlreadyRotatedTokenSkipsRefresh(t *testing.T) {
	store := NewMemoryTokenStore(domain.Tokens{Access: "new", Refresh: "r2"})
	r := NewRefresher(store, func(context.Context, string) (domain.Tokens, error) {
		t.Fatalf("refresh must not run when the token already rotated")
		return domain.Tokens{}, nil
	})
	tok, err := r.Refresh(context.Background(), "old")
	if err != nil || tok != "new" {
		t.Fatalf("expected current token, got %q %v", tok, err)
	}
}

func TestRefresher_UnauthorizedRefreshExpiresOnce(t *testing.T) {
	store := NewMemoryTokenStore(domain.Tokens{Access: "old", Refresh: "r1"})
	var expired atomic.Int32
	r := NewRefresher(store, func(context.Context, string) (domain.Tokens, error) {
		return domain.Tokens{}, &domain.APIError{Method: "POST", Path: "/auth/refresh", Status: 401}
	}, WithExpiredHandler(func() { expired.Add(1) }))

	if _, err := r.Refresh(context.Background(), "old"); !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("expected session expiry, got %v", err)
	}
	if _, err := r.Refresh(context.Background(), ""); !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("expected session expiry without refresh token, got %v", err)
	}
	if expired.Load() != 1 {
		t.Fatalf("expected exactly one expiry notification, got %d", expired.Load())
	}
	if got, _ := store.Load(); !got.Empty() {
		t.Fatalf("tokens must be cleared, got %#v", got)
	}

	// A new login re-arms the notification.
	_ = store.Save(domain.Tokens{Access: "fresh", Refresh: "r9"})
	if _, err := r.Refresh(context.Background(), "fresh"); !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("expected session expiry, got %v", err)
	}
	if expired.Load() != 2 {
		t.Fatalf("expected a second notification after re-login, got %d", expired.Load())
	}
}

func TestRefresher_TransientFailureKeepsTokens(t *testing.T) {
	store := NewMemoryTokenStore(domain.Tokens{Access: "old", Refresh: "r1"})
	var expired atomic.Int32
	r := NewRefresher(store, func(context.Context, string) (domain.Tokens, error) {
		return domain.Tokens{}, errors.New("connection reset")
	}, WithExpiredHandler(func() { expired.Add(1) }))

	_, err := r.Refresh(context.Background(), "old")
	if err == nil || errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if got, _ := store.Load(); got.Refresh != "r1" {
		t.Fatalf("transient failures must keep credentials, got %#v", got)
	}
	if expired.Load() != 0 {
		t.Fatalf("transient failures must not redirect to login")
	}
}

func TestRefresher_WaiterHonorsContext(t *testing.T) {
	store := NewMemoryTokenStore(domain.Tokens{Access: "old", Refresh: "r1"})
	unblock := make(chan struct{})
	defer close(unblock)
	r := NewRefresher(store, func(context.Context, string) (domain.Tokens, error) {
		<-unblock
		return domain.Tokens{Access: "new"}, nil
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := r.Refresh(ctx, "old"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
