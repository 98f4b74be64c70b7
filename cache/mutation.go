package cache

import (
	"context"
	"slices"
	"sync"
)

// Phase is the lifecycle position of a Mutation.
type Phase int

const (
	// PhasePending: the pre-mutation snapshot is being recorded.
	PhasePending Phase = iota
	// PhaseApplied: the optimistic write is visible and the request is in flight.
	PhaseApplied
	// PhaseCommitted: the server accepted the change and the cache reconciled.
	PhaseCommitted
	// PhaseRolledBack: the change failed and the snapshot was restored.
	PhaseRolledBack
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseApplied:
		return "applied"
	case PhaseCommitted:
		return "committed"
	case PhaseRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Settled reports whether p is final.
func (p Phase) Settled() bool {
	return p == PhaseCommitted || p == PhaseRolledBack
}

// Mutation is one invocation of an optimistic change. It is returned once
// the optimistic write is visible; Wait yields the server result.
type Mutation[T any] struct {
	name string

	mu      sync.Mutex
	phase   Phase
	result  T
	err     error
	done    chan struct{}
	settled []func(T, error)
}

func newMutation[T any](name string) *Mutation[T] {
	return &Mutation[T]{name: name, done: make(chan struct{})}
}

// Completed returns a mutation that already committed with v, for
// invocations that need no request.
func Completed[T any](name string, v T) *Mutation[T] {
	m := newMutation[T](name)
	m.finish(PhaseCommitted, v, nil)
	return m
}

// Rejected returns a mutation that failed before anything was applied, such
// as on local validation.
func Rejected[T any](name string, err error) *Mutation[T] {
	m := newMutation[T](name)
	var zero T
	m.finish(PhaseRolledBack, zero, err)
	return m
}

func (m *Mutation[T]) Name() string { return m.name }

func (m *Mutation[T]) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Done is closed when the mutation settles.
func (m *Mutation[T]) Done() <-chan struct{} { return m.done }

// Wait blocks until the mutation settles or ctx ends. Ending ctx does not
// cancel the mutation.
func (m *Mutation[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-m.done:
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.result, m.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Err returns the settled error, or nil while the mutation is in flight.
func (m *Mutation[T]) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// OnSettled registers fn to run when the mutation settles, before Wait
// returns. If it already settled, fn runs immediately.
func (m *Mutation[T]) OnSettled(fn func(T, error)) {
	m.mu.Lock()
	if !m.phase.Settled() {
		m.settled = append(m.settled, fn)
		m.mu.Unlock()
		return
	}
	res, err := m.result, m.err
	m.mu.Unlock()
	fn(res, err)
}

func (m *Mutation[T]) setPhase(p Phase) {
	m.mu.Lock()
	m.phase = p
	m.mu.Unlock()
}

func (m *Mutation[T]) finish(p Phase, res T, err error) {
	m.mu.Lock()
	m.phase, m.result, m.err = p, res, err
	fns := m.settled
	m.settled = nil
	m.mu.Unlock()
	for _, fn := range fns {
		fn(res, err)
	}
	close(m.done)
}

// Spec describes an optimistic change.
type Spec[T any] struct {
	// Name labels logs and metrics.
	Name string
	// Optimistic applies the speculative write. Returning an error aborts the
	// mutation before Run, restoring anything already written.
	Optimistic func(tx *Tx) error
	// Run performs the server request.
	Run func(ctx context.Context) (T, error)
	// Commit reconciles the cache with the server result.
	Commit func(tx *Tx, result T)
	// Affects lists the entities whose cached views are marked stale when the
	// mutation settles, whatever the outcome.
	Affects []Ref
}

// Mutate applies spec.Optimistic under the store lock, then runs the request
// in the background. On success spec.Commit reconciles; on failure every key
// written optimistically is restored to its snapshot. Keys whose entry was
// dropped meanwhile are left alone.
func Mutate[T any](ctx context.Context, s *Store, spec Spec[T]) *Mutation[T] {
	m := newMutation[T](spec.Name)
	tx := &Tx{s: s, snaps: make(map[Key]snapshot)}

	s.mu.Lock()
	if spec.Optimistic != nil {
		if err := spec.Optimistic(tx); err != nil {
			tx.rollbackLocked()
			s.mu.Unlock()
			s.notify(tx.changed...)
			s.metrics.ObserveMutation(spec.Name, "rejected")
			var zero T
			m.finish(PhaseRolledBack, zero, err)
			return m
		}
	}
	m.setPhase(PhaseApplied)
	s.mu.Unlock()
	s.notify(tx.changed...)

	go func() {
		res, err := spec.Run(ctx)
		settle(s, m, spec, tx, res, err)
	}()
	return m
}

func settle[T any](s *Store, m *Mutation[T], spec Spec[T], tx *Tx, res T, err error) {
	tx.changed = nil
	tx.settling = true

	s.mu.Lock()
	discarded := tx.droppedLocked()
	phase := PhaseCommitted
	if err != nil {
		phase = PhaseRolledBack
		tx.rollbackLocked()
	} else if spec.Commit != nil {
		spec.Commit(tx, res)
	}
	refs := append(slices.Clone(spec.Affects), tx.affects...)
	prefixes := s.registry.Resolve(refs...)
	for k, e := range s.entries {
		if matchesAny(k, prefixes) && !e.stale {
			e.stale = true
			tx.mark(k)
		}
	}
	s.mu.Unlock()
	s.notify(tx.changed...)

	outcome := phase.String()
	if discarded {
		outcome = "discarded"
	}
	s.metrics.ObserveMutation(spec.Name, outcome)
	if err != nil {
		s.logger.Warn("mutation rolled back", "mutation", spec.Name, "error", err, "discarded", discarded)
	} else {
		s.logger.Debug("mutation committed", "mutation", spec.Name, "discarded", discarded)
	}
	m.finish(phase, res, err)
}

type snapshot struct {
	e        *entry
	value    any
	hasValue bool
}

// Tx is the view of the store handed to optimistic and commit functions. It
// is only valid during the call it was passed to.
type Tx struct {
	s        *Store
	snaps    map[Key]snapshot
	changed  []Key
	affects  []Ref
	settling bool
}

// Affect adds refs to the entities marked stale when the mutation settles.
// Optimistic uses it for entities only known once the cache has been read.
func (tx *Tx) Affect(refs ...Ref) {
	tx.affects = append(tx.affects, refs...)
}

// Keys lists keys under prefix that currently hold data.
func (tx *Tx) Keys(prefix Key) []Key {
	var out []Key
	for k, e := range tx.s.entries {
		if e.hasValue && k.HasPrefix(prefix) && tx.writable(k) {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

// Get reads the value at key if it holds a T.
func Get[T any](tx *Tx, key Key) (T, bool) {
	var zero T
	if !tx.writable(key) {
		return zero, false
	}
	e, ok := tx.s.entries[key]
	if !ok || !e.hasValue {
		return zero, false
	}
	v, ok := e.value.(T)
	return v, ok
}

// Put writes v at key, creating the entry if needed.
func Put[T any](tx *Tx, key Key, v T) {
	if !tx.writable(key) {
		return
	}
	e := tx.record(key)
	if !e.hasValue {
		e.fetchedAt = tx.s.now()
	}
	e.value, e.hasValue = v, true
	e.version++
	tx.mark(key)
}

// Modify rewrites the value at key with fn if key holds a T. It reports
// whether a value was present.
func Modify[T any](tx *Tx, key Key, fn func(T) T) bool {
	v, ok := Get[T](tx, key)
	if !ok {
		return false
	}
	Put(tx, key, fn(v))
	return true
}

// Remove clears the data at key. Observers keep their subscription.
func (tx *Tx) Remove(key Key) {
	if !tx.writable(key) {
		return
	}
	e, ok := tx.s.entries[key]
	if !ok || !e.hasValue {
		return
	}
	e = tx.record(key)
	e.value, e.hasValue = nil, false
	e.version++
	tx.mark(key)
}

func (tx *Tx) record(key Key) *entry {
	e := tx.s.entryLocked(key)
	if _, seen := tx.snaps[key]; !seen && !tx.settling {
		tx.snaps[key] = snapshot{e: e, value: e.value, hasValue: e.hasValue}
	}
	return e
}

// writable reports whether key may be touched. During settle, keys snapshotted
// at apply time whose entry has since been dropped are off limits.
func (tx *Tx) writable(key Key) bool {
	if !tx.settling {
		return true
	}
	snap, ok := tx.snaps[key]
	if !ok {
		return true
	}
	return tx.s.entries[key] == snap.e
}

func (tx *Tx) droppedLocked() bool {
	if len(tx.snaps) == 0 {
		return false
	}
	for k, snap := range tx.snaps {
		if tx.s.entries[k] == snap.e {
			return false
		}
	}
	return true
}

func (tx *Tx) rollbackLocked() {
	for k, snap := range tx.snaps {
		e, ok := tx.s.entries[k]
		if !ok || e != snap.e {
			continue
		}
		e.value, e.hasValue = snap.value, snap.hasValue
		e.version++
		tx.mark(k)
	}
}

func (tx *Tx) mark(k Key) {
	if !slices.Contains(tx.changed, k) {
		tx.changed = append(tx.changed, k)
	}
}
