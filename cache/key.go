package cache

import "strings"

// Key identifies a cached query result. Keys are slash-separated paths such
// as "notes/mine" or "note/42/comments"; a key is a prefix of another when
// its segments lead the other's.
type Key string

// K joins segments into a Key.
func K(segments ...string) Key {
	return Key(strings.Join(segments, "/"))
}

// Segments splits k into its path segments.
func (k Key) Segments() []string {
	if k == "" {
		return nil
	}
	return strings.Split(string(k), "/")
}

// HasPrefix reports whether prefix matches k segment-wise. The empty key
// matches everything.
func (k Key) HasPrefix(prefix Key) bool {
	if prefix == "" || k == prefix {
		return true
	}
	return strings.HasPrefix(string(k), string(prefix)+"/")
}

func (k Key) String() string { return string(k) }
