package hooks

import "github.com/CrestNiraj12/terminalnotes/cache"

// Cached views of the notes API.
const (
	KeyMyNotes  cache.Key = "notes/mine"
	KeyExplore  cache.Key = "notes/explore"
	KeyShared   cache.Key = "notes/shared"
	KeyNoteList cache.Key = "notes"
	KeyMe       cache.Key = "profile/me"
)

func ProfileNotesKey(profileID string) cache.Key { return cache.K("notes", "profile", profileID) }
func NoteKey(noteID string) cache.Key            { return cache.K("note", noteID, "detail") }
func CommentsKey(noteID string) cache.Key        { return cache.K("note", noteID, "comments") }
func LikesKey(noteID string) cache.Key           { return cache.K("note", noteID, "likes") }
func ProfileKey(profileID string) cache.Key      { return cache.K("profile", profileID) }
func FollowersKey(profileID string) cache.Key    { return cache.K("follow", profileID, "followers") }
func FollowingKey(profileID string) cache.Key    { return cache.K("follow", profileID, "following") }

// Entity kinds that mutations report as affected.
const (
	EntityNote      cache.Entity = "note"
	EntityNoteLists cache.Entity = "note-lists"
	EntityComments  cache.Entity = "comments"
	EntityLikes     cache.Entity = "likes"
	EntityProfile   cache.Entity = "profile"
	EntityFollows   cache.Entity = "follows"
)

// NewRegistry maps every entity kind to the cached views that can contain it.
// A note shows up in its detail view and in any note list. A profile shows up
// in its own view and in every follow list, and through author summaries in
// note lists.
func NewRegistry() *cache.Registry {
	return cache.NewRegistry().
		Register(EntityNote, "note/{id}/detail", string(KeyNoteList)).
		Register(EntityNoteLists, string(KeyNoteList)).
		Register(EntityComments, "note/{id}/comments").
		Register(EntityLikes, "note/{id}/likes").
		Register(EntityProfile, "profile/{id}", "follow").
		Register(EntityFollows, "follow/{id}")
}

func noteRef(id string) cache.Ref { return cache.Ref{Entity: EntityNote, ID: id} }
func profileRef(id string) cache.Ref {
	return cache.Ref{Entity: EntityProfile, ID: id}
}
