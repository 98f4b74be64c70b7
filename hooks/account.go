package hooks

import (
	"context"
	"errors"
	"fmt"

	"github.com/CrestNiraj12/terminalnotes/cache"
	"github.com/CrestNiraj12/terminalnotes/domain"
)

// Follows toggles and lists follow edges.
type Follows struct {
	*base
}

func (h *Follows) Followers(ctx context.Context, profileID string) ([]domain.Profile, error) {
	return cache.Query(ctx, h.store, FollowersKey(profileID), func(ctx context.Context) ([]domain.Profile, error) {
		return h.svc.Follows.Followers(ctx, profileID)
	})
}

func (h *Follows) Following(ctx context.Context, profileID string) ([]domain.Profile, error) {
	return cache.Query(ctx, h.store, FollowingKey(profileID), func(ctx context.Context) ([]domain.Profile, error) {
		return h.svc.Follows.Following(ctx, profileID)
	})
}

// Toggle follows or unfollows profileID. The target's follower count and the
// viewer's following count move together.
func (h *Follows) Toggle(ctx context.Context, profileID string) *cache.Mutation[domain.FollowState] {
	return cache.Mutate(ctx, h.store, cache.Spec[domain.FollowState]{
		Name: "follows.toggle",
		Optimistic: func(tx *cache.Tx) error {
			target, ok := cache.Get[domain.Profile](tx, ProfileKey(profileID))
			if !ok {
				return nil
			}
			following := !target.Following
			delta := 1
			if !following {
				delta = -1
			}
			cache.Modify(tx, ProfileKey(profileID), func(p domain.Profile) domain.Profile {
				p.Following = following
				p.FollowersCount = domain.ClampCount(p.FollowersCount + delta)
				return p
			})
			bump := func(p domain.Profile) domain.Profile {
				p.FollowingCount = domain.ClampCount(p.FollowingCount + delta)
				return p
			}
			if me, ok := viewer(tx); ok {
				cache.Modify(tx, ProfileKey(me.ID), bump)
				tx.Affect(profileRef(me.ID))
			}
			cache.Modify(tx, KeyMe, bump)
			return nil
		},
		Run: func(ctx context.Context) (domain.FollowState, error) {
			st, err := h.svc.Follows.Toggle(ctx, profileID)
			if err != nil {
				return domain.FollowState{}, fmt.Errorf("toggling follow of %s: %w", profileID, err)
			}
			return st, nil
		},
		Commit: func(tx *cache.Tx, st domain.FollowState) {
			cache.Modify(tx, ProfileKey(profileID), func(p domain.Profile) domain.Profile {
				p.Following = st.Following
				p.FollowersCount = domain.ClampCount(st.FollowersCount)
				return p
			})
		},
		Affects: []cache.Ref{
			profileRef(profileID),
			profileRef("me"),
			{Entity: EntityFollows, ID: profileID},
			{Entity: EntityFollows},
		},
	})
}

// Profile reads and edits profiles.
type Profile struct {
	*base
}

func (h *Profile) Me(ctx context.Context) (domain.Profile, error) {
	return cache.Query(ctx, h.store, KeyMe, h.svc.Profiles.Me)
}

func (h *Profile) Get(ctx context.Context, id string) (domain.Profile, error) {
	return cache.Query(ctx, h.store, ProfileKey(id), func(ctx context.Context) (domain.Profile, error) {
		return h.svc.Profiles.ByID(ctx, id)
	})
}

// Current returns the presentation state of the own profile.
func (h *Profile) Current() cache.State[domain.Profile] {
	return cache.Snapshot[domain.Profile](h.store, KeyMe)
}

// Update writes the edited fields to the own profile.
func (h *Profile) Update(ctx context.Context, in domain.ProfileInput) *cache.Mutation[domain.Profile] {
	const name = "profile.update"
	if err := domain.Validate(in); err != nil {
		return cache.Rejected[domain.Profile](name, err)
	}
	apply := func(p domain.Profile) domain.Profile {
		if in.Name != "" {
			p.Name = in.Name
		}
		if in.Username != "" {
			p.Username = in.Username
		}
		if in.AvatarURL != "" {
			p.AvatarURL = in.AvatarURL
		}
		if in.Bio != "" {
			p.Bio = in.Bio
		}
		return p
	}

	return cache.Mutate(ctx, h.store, cache.Spec[domain.Profile]{
		Name: name,
		Optimistic: func(tx *cache.Tx) error {
			if me, ok := viewer(tx); ok {
				cache.Modify(tx, ProfileKey(me.ID), apply)
			}
			cache.Modify(tx, KeyMe, apply)
			return nil
		},
		Run: func(ctx context.Context) (domain.Profile, error) {
			p, err := h.svc.Profiles.Update(ctx, in)
			if err != nil {
				return domain.Profile{}, fmt.Errorf("updating profile: %w", err)
			}
			return p, nil
		},
		Commit: func(tx *cache.Tx, p domain.Profile) {
			cache.Put(tx, KeyMe, p)
			cache.Modify(tx, ProfileKey(p.ID), func(domain.Profile) domain.Profile { return p })
		},
		Affects: []cache.Ref{{Entity: EntityProfile}, {Entity: EntityNote}},
	})
}

// Delete removes the account. On success credentials and the whole cache are
// cleared.
func (h *Profile) Delete(ctx context.Context) *cache.Mutation[struct{}] {
	m := cache.Mutate(ctx, h.store, cache.Spec[struct{}]{
		Name: "profile.delete",
		Run: func(ctx context.Context) (struct{}, error) {
			if err := h.svc.Profiles.Delete(ctx); err != nil {
				return struct{}{}, fmt.Errorf("deleting account: %w", err)
			}
			return struct{}{}, nil
		},
	})
	m.OnSettled(func(_ struct{}, err error) {
		if err != nil {
			return
		}
		if cerr := h.svc.Tokens.Clear(); cerr != nil {
			h.logger.Error("clearing tokens after account deletion failed", "error", cerr)
		}
		h.store.Clear()
	})
	return m
}

// Session logs in and out. Any change of identity resets the cache.
type Session struct {
	*base
	views *Views
}

// Login exchanges credentials for tokens and stores them.
func (h *Session) Login(ctx context.Context, creds domain.Credentials) *cache.Mutation[domain.Tokens] {
	const name = "session.login"
	if err := domain.Validate(creds); err != nil {
		return cache.Rejected[domain.Tokens](name, err)
	}
	return h.start(ctx, name, func(ctx context.Context) (domain.Tokens, error) {
		return h.svc.Auth.Login(ctx, creds)
	})
}

// Register creates an account and logs it in.
func (h *Session) Register(ctx context.Context, reg domain.Registration) *cache.Mutation[domain.Tokens] {
	const name = "session.register"
	if err := domain.Validate(reg); err != nil {
		return cache.Rejected[domain.Tokens](name, err)
	}
	return h.start(ctx, name, func(ctx context.Context) (domain.Tokens, error) {
		return h.svc.Auth.Register(ctx, reg)
	})
}

func (h *Session) start(ctx context.Context, name string, exchange func(context.Context) (domain.Tokens, error)) *cache.Mutation[domain.Tokens] {
	m := cache.Mutate(ctx, h.store, cache.Spec[domain.Tokens]{
		Name: name,
		Run: func(ctx context.Context) (domain.Tokens, error) {
			t, err := exchange(ctx)
			if err != nil {
				return domain.Tokens{}, err
			}
			if err := h.svc.Tokens.Save(t); err != nil {
				return domain.Tokens{}, fmt.Errorf("saving tokens: %w", err)
			}
			return t, nil
		},
	})
	m.OnSettled(func(_ domain.Tokens, err error) {
		if err == nil {
			h.reset()
		}
	})
	return m
}

// Logout forgets the tokens and everything cached for them.
func (h *Session) Logout(context.Context) error {
	h.reset()
	if err := h.svc.Tokens.Clear(); err != nil {
		return fmt.Errorf("logging out: %w", err)
	}
	return nil
}

// LoggedIn reports whether a session is stored.
func (h *Session) LoggedIn() bool {
	t, err := h.svc.Tokens.Load()
	return err == nil && !t.Empty()
}

// Expired resets local state after the transport gave up on the session.
func (h *Session) Expired() {
	h.reset()
}

func (h *Session) reset() {
	h.store.Clear()
	h.views.reset()
}

// IsExpired reports whether err means the user must log in again.
func IsExpired(err error) bool {
	return errors.Is(err, domain.ErrSessionExpired)
}
