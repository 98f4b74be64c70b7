package domain

// Profile is the public identity of a user account.
type Profile struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Username       string `json:"username"`
	AvatarURL      string `json:"avatar_url"`
	Bio            string `json:"bio"`
	FollowersCount int    `json:"followers_count"`
	FollowingCount int    `json:"following_count"`
	Following      bool   `json:"following"` // Viewer follows this profile
}

// Summary returns the embedded author form of the profile.
func (p Profile) Summary() ProfileSummary {
	return ProfileSummary{ID: p.ID, Name: p.Name, Username: p.Username, AvatarURL: p.AvatarURL}
}

// ProfileSummary is the author block embedded in notes and comments.
type ProfileSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// DisplayName prefers the name and falls back to the username.
func (s ProfileSummary) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Username
}

// FollowState is the server's answer to a follow toggle.
type FollowState struct {
	ProfileID      string `json:"profile_id"`
	Following      bool   `json:"following"`
	FollowersCount int    `json:"followers_count"`
}

// Tokens is the pair of credentials persisted on the client.
type Tokens struct {
	Access  string `json:"access_token"`
	Refresh string `json:"refresh_token"`
}

// Empty reports whether no credentials are held.
func (t Tokens) Empty() bool {
	return t.Access == "" && t.Refresh == ""
}
