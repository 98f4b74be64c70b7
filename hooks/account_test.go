package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrestNiraj12/terminalnotes/cache"
	"github.com/CrestNiraj12/terminalnotes/domain"
)

func TestFollowsToggle_MovesBothCounts(t *testing.T) {
	h := newHarness(t)
	cache.Set(h.store, KeyMe, me())
	cache.Set(h.store, ProfileKey("p1"), me())
	cache.Set(h.store, ProfileKey("p2"), domain.Profile{ID: "p2", FollowersCount: 5})

	g := newGate()
	h.follows.toggle = func(ctx context.Context, id string) (domain.FollowState, error) {
		return domain.FollowState{ProfileID: id, Following: true, FollowersCount: 9}, g.wait(ctx)
	}

	m := h.hooks.Follows.Toggle(context.Background(), "p2")
	g.awaitEntered(t)
	target := cache.Snapshot[domain.Profile](h.store, ProfileKey("p2")).Data
	assert.True(t, target.Following)
	assert.Equal(t, 6, target.FollowersCount)
	assert.Equal(t, 3, h.hooks.Profile.Current().Data.FollowingCount)
	assert.Equal(t, 3, noteIn[domain.Profile](h.store, ProfileKey("p1")).FollowingCount)

	g.release <- nil
	_, err := wait(t, m)
	require.NoError(t, err)
	target = cache.Snapshot[domain.Profile](h.store, ProfileKey("p2")).Data
	assert.Equal(t, 9, target.FollowersCount, "server count wins")
	assert.True(t, h.hooks.Profile.Current().Stale)
	assert.True(t, cache.Snapshot[domain.Profile](h.store, ProfileKey("p1")).Stale,
		"both cached copies of the own profile are refetched")
}

func TestFollowsToggle_RollbackRestoresBothProfiles(t *testing.T) {
	h := newHarness(t)
	cache.Set(h.store, KeyMe, me())
	target := domain.Profile{ID: "p2", FollowersCount: 1, Following: true}
	cache.Set(h.store, ProfileKey("p2"), target)
	h.follows.toggle = func(context.Context, string) (domain.FollowState, error) {
		return domain.FollowState{}, errOffline
	}

	_, err := wait(t, h.hooks.Follows.Toggle(context.Background(), "p2"))
	require.Error(t, err)
	assert.Equal(t, target, cache.Snapshot[domain.Profile](h.store, ProfileKey("p2")).Data)
	assert.Equal(t, me(), h.hooks.Profile.Current().Data)
}

func TestProfileUpdate_OptimisticAndRollback(t *testing.T) {
	h := newHarness(t)
	cache.Set(h.store, KeyMe, me())
	g := newGate()
	h.profiles.update = func(ctx context.Context, in domain.ProfileInput) (domain.Profile, error) {
		return domain.Profile{}, g.wait(ctx)
	}

	m := h.hooks.Profile.Update(context.Background(), domain.ProfileInput{Bio: "mathematician"})
	g.awaitEntered(t)
	cur := h.hooks.Profile.Current().Data
	assert.Equal(t, "mathematician", cur.Bio)
	assert.Equal(t, "Ada", cur.Name, "empty fields are left unchanged")

	g.release <- &domain.APIError{Method: "PATCH", Path: "/profiles/me", Status: 409, Message: "username taken"}
	_, err := wait(t, m)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.Equal(t, me(), h.hooks.Profile.Current().Data)

	_, err = wait(t, h.hooks.Profile.Update(context.Background(), domain.ProfileInput{AvatarURL: "not a url"}))
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "must be a URL", vErr.Fields["avatarurl"])
}

func TestProfileUpdate_InvalidatesFollowLists(t *testing.T) {
	h := newHarness(t)
	cache.Set(h.store, KeyMe, me())
	cache.Set(h.store, FollowersKey("p2"), []domain.Profile{me()})
	cache.Set(h.store, FollowingKey("p3"), []domain.Profile{{ID: "p4", Name: "Lin"}})
	h.profiles.update = func(_ context.Context, in domain.ProfileInput) (domain.Profile, error) {
		p := me()
		p.Name = in.Name
		return p, nil
	}

	_, err := wait(t, h.hooks.Profile.Update(context.Background(), domain.ProfileInput{Name: "Grace"}))
	require.NoError(t, err)
	assert.Equal(t, "Grace", h.hooks.Profile.Current().Data.Name)
	assert.True(t, cache.Snapshot[[]domain.Profile](h.store, FollowersKey("p2")).Stale)
	assert.True(t, cache.Snapshot[[]domain.Profile](h.store, FollowingKey("p3")).Stale)
}

func TestProfileDelete_ClearsSession(t *testing.T) {
	h := newHarness(t)
	cache.Set(h.store, KeyMe, me())
	cache.Set(h.store, KeyMyNotes, []domain.Note{sampleNote("n1", "p1", 0, false)})
	h.profiles.delete = func(context.Context) error { return nil }

	_, err := wait(t, h.hooks.Profile.Delete(context.Background()))
	require.NoError(t, err)
	assert.Empty(t, h.store.Keys(""))
	assert.False(t, h.hooks.Session.LoggedIn())
}

func TestProfileDelete_FailureKeepsSession(t *testing.T) {
	h := newHarness(t)
	cache.Set(h.store, KeyMe, me())
	h.profiles.delete = func(context.Context) error { return errors.New("nope") }

	_, err := wait(t, h.hooks.Profile.Delete(context.Background()))
	require.Error(t, err)
	assert.True(t, h.hooks.Profile.Current().HasData)
	assert.True(t, h.hooks.Session.LoggedIn())
}

func TestSessionLogin_StoresTokensAndResetsCache(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.tokens.Clear())
	cache.Set(h.store, KeyMe, domain.Profile{ID: "someone-else"})
	h.auth.login = func(_ context.Context, c domain.Credentials) (domain.Tokens, error) {
		if c.Password != "correct-horse" {
			return domain.Tokens{}, &domain.APIError{Method: "POST", Path: "/auth/login", Status: 401}
		}
		return domain.Tokens{Access: "a2", Refresh: "r2"}, nil
	}

	_, err := wait(t, h.hooks.Session.Login(context.Background(), domain.Credentials{Email: "ada@example.com", Password: "wrong-horse"}))
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.False(t, h.hooks.Session.LoggedIn())
	assert.True(t, h.hooks.Profile.Current().HasData, "a failed login leaves the cache alone")

	tok, err := wait(t, h.hooks.Session.Login(context.Background(), domain.Credentials{Email: "ada@example.com", Password: "correct-horse"}))
	require.NoError(t, err)
	assert.Equal(t, "a2", tok.Access)
	stored, _ := h.tokens.Load()
	assert.Equal(t, tok, stored)
	assert.False(t, h.hooks.Profile.Current().HasData)

	_, err = wait(t, h.hooks.Session.Login(context.Background(), domain.Credentials{Email: "not-an-email", Password: "x"}))
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Len(t, vErr.Fields, 2)
}

func TestSessionLogout_ClearsTokensAndCache(t *testing.T) {
	h := newHarness(t)
	cache.Set(h.store, KeyMe, me())
	require.True(t, h.hooks.Session.LoggedIn())
	require.NoError(t, h.hooks.Session.Logout(context.Background()))
	assert.False(t, h.hooks.Session.LoggedIn())
	assert.Empty(t, h.store.Keys(""))
	assert.True(t, IsExpired(errors.Join(errors.New("x"), domain.ErrSessionExpired)))
}
