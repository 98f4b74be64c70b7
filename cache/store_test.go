package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func counting[T any](v T, calls *atomic.Int32) Fetcher[T] {
	return func(context.Context) (T, error) {
		calls.Add(1)
		return v, nil
	}
}

func TestKey_HasPrefix(t *testing.T) {
	cases := []struct {
		key, prefix Key
		want        bool
	}{
		{"notes/mine", "notes", true},
		{"notes/mine", "notes/mine", true},
		{"notes/mine", "note", false},
		{"note/1/detail", "note/1", true},
		{"note/10/detail", "note/1", false},
		{"profile/me", "", true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.key.HasPrefix(tc.prefix), "%s under %s", tc.key, tc.prefix)
	}
	assert.Equal(t, []string{"note", "1", "likes"}, K("note", "1", "likes").Segments())
}

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry().
		Register("note", "note/{id}/detail", "notes").
		Register("likes", "note/{id}/likes")

	assert.Equal(t, []Key{"note/7/detail", "notes", "note/7/likes"},
		r.Resolve(Ref{Entity: "note", ID: "7"}, Ref{Entity: "likes", ID: "7"}, Ref{Entity: "note", ID: "7"}))
	assert.Equal(t, []Key{"note", "notes"}, r.Resolve(Ref{Entity: "note"}))
	assert.Empty(t, r.Resolve(Ref{Entity: "unknown", ID: "1"}))
}

func TestQuery_ServesFreshDataFromCache(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(WithClock(clock.Now), WithStaleTime(time.Minute))
	var calls atomic.Int32

	v, err := Query(context.Background(), s, "profile/me", counting("ada", &calls))
	require.NoError(t, err)
	assert.Equal(t, "ada", v)

	v, err = Query(context.Background(), s, "profile/me", counting("ada", &calls))
	require.NoError(t, err)
	assert.Equal(t, "ada", v)
	assert.EqualValues(t, 1, calls.Load())

	clock.Advance(time.Minute)
	assert.True(t, Snapshot[string](s, "profile/me").Stale)
	_, err = Query(context.Background(), s, "profile/me", counting("ada", &calls))
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
}

func TestQuery_DeduplicatesConcurrentFetches(t *testing.T) {
	s := NewStore()
	release := make(chan struct{})
	var calls atomic.Int32
	fetch := func(context.Context) ([]string, error) {
		calls.Add(1)
		<-release
		return []string{"a", "b"}, nil
	}

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := Query(context.Background(), s, "notes/mine", fetch)
			assert.NoError(t, err)
			assert.Equal(t, []string{"a", "b"}, got)
		}()
	}
	require.Eventually(t, func() bool { return Snapshot[[]string](s, "notes/mine").Loading }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	st := Snapshot[[]string](s, "notes/mine")
	assert.False(t, st.Loading)
	assert.False(t, st.Stale)
	assert.True(t, st.HasData)
}

func TestQuery_ErrorKeepsPreviousData(t *testing.T) {
	s := NewStore()
	Set(s, "notes/explore", []string{"old"})
	s.Invalidate("notes")

	boom := errors.New("boom")
	_, err := Query(context.Background(), s, "notes/explore", func(context.Context) ([]string, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	st := Snapshot[[]string](s, "notes/explore")
	assert.Equal(t, []string{"old"}, st.Data)
	assert.ErrorIs(t, st.Err, boom)
	assert.True(t, st.Stale)
}

func TestQuery_LocalWriteDuringFetchWins(t *testing.T) {
	s := NewStore()
	Set(s, "note/1/detail", 10)
	s.Invalidate("note/1")

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan int)
	go func() {
		v, err := Query(context.Background(), s, "note/1/detail", func(context.Context) (int, error) {
			close(started)
			<-release
			return 10, nil
		})
		assert.NoError(t, err)
		done <- v
	}()
	<-started

	m := Mutate(context.Background(), s, Spec[int]{
		Name:       "bump",
		Optimistic: func(tx *Tx) error { Modify(tx, "note/1/detail", func(n int) int { return n + 1 }); return nil },
		Run:        func(context.Context) (int, error) { return 11, nil },
	})
	_, err := m.Wait(context.Background())
	require.NoError(t, err)
	close(release)

	assert.Equal(t, 11, <-done)
	st := Snapshot[int](s, "note/1/detail")
	assert.Equal(t, 11, st.Data)
	assert.True(t, st.Stale, "the overtaken fetch must leave the entry stale")
}

func TestInvalidate_MarksPrefixWithoutRefetching(t *testing.T) {
	s := NewStore(WithStaleTime(0))
	var calls atomic.Int32
	_, _ = Query(context.Background(), s, "notes/mine", counting(1, &calls))
	_, _ = Query(context.Background(), s, "notes/explore", counting(2, &calls))
	_, _ = Query(context.Background(), s, "profile/me", counting(3, &calls))

	assert.Equal(t, 2, s.Invalidate("notes"))
	assert.EqualValues(t, 3, calls.Load())
	assert.True(t, Snapshot[int](s, "notes/mine").Stale)
	assert.False(t, Snapshot[int](s, "profile/me").Stale)
	assert.Equal(t, 1, Snapshot[int](s, "notes/mine").Data)

	_, _ = Query(context.Background(), s, "notes/mine", counting(1, &calls))
	assert.EqualValues(t, 4, calls.Load())
}

func TestSubscribe_NotifiesAndDropsOnLastObserver(t *testing.T) {
	s := NewStore()
	var hits atomic.Int32
	unsubA := s.Subscribe("profile/me", func(Key) { hits.Add(1) })
	unsubB := s.Subscribe("profile/me", func(Key) {})
	assert.Equal(t, 2, s.Observers("profile/me"))

	Set(s, "profile/me", "ada")
	Set(s, "profile/other", "bob")
	assert.EqualValues(t, 1, hits.Load())

	unsubA()
	unsubA()
	assert.True(t, Snapshot[string](s, "profile/me").HasData)
	unsubB()
	assert.Equal(t, 0, s.Observers("profile/me"))
	assert.False(t, Snapshot[string](s, "profile/me").HasData)
	assert.Equal(t, []Key{"profile/other"}, s.Keys("profile"))
}

func TestRefocus_RefetchesOnlyStaleObservedKeys(t *testing.T) {
	s := NewStore(WithStaleTime(0))
	var mine, explore, shared atomic.Int32
	ctx := context.Background()
	_, _ = Query(ctx, s, "notes/mine", counting(1, &mine))
	_, _ = Query(ctx, s, "notes/explore", counting(2, &explore))
	_, _ = Query(ctx, s, "notes/shared", counting(3, &shared))
	defer s.Subscribe("notes/mine", func(Key) {})()
	defer s.Subscribe("notes/explore", func(Key) {})()

	s.Invalidate("notes/mine", "notes/shared")
	require.NoError(t, s.Refocus(ctx))

	assert.EqualValues(t, 2, mine.Load())
	assert.EqualValues(t, 1, explore.Load(), "fresh keys are not refetched")
	assert.EqualValues(t, 1, shared.Load(), "unobserved keys are not refetched")
	assert.False(t, Snapshot[int](s, "notes/mine").Stale)

	require.NoError(t, s.Refetch(ctx, "notes"))
	assert.EqualValues(t, 3, mine.Load())
	assert.EqualValues(t, 2, explore.Load())
	assert.EqualValues(t, 2, shared.Load())
}

func TestRefetch_JoinsErrors(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	fail := true
	_, _ = Query(ctx, s, "notes/mine", func(context.Context) (int, error) {
		if fail {
			return 0, errors.New("offline")
		}
		return 1, nil
	})
	err := s.Refetch(ctx, "notes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refetching notes/mine")
}

func TestClear_DropsEverything(t *testing.T) {
	s := NewStore()
	Set(s, "notes/mine", 1)
	Set(s, "profile/me", 2)
	s.Clear()
	assert.Empty(t, s.Keys(""))
}
