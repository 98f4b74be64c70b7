// Package fakeapi is an in-memory implementation of the notes HTTP API used
// by tests. It mirrors the server's JSON shapes and status codes, and lets
// tests revoke tokens, inject failures and hold requests in flight.
package fakeapi

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/CrestNiraj12/terminalnotes/domain"
)

type account struct {
	email    string
	password string
	profile  domain.Profile
}

type failure struct {
	method string
	path   string
	status int
}

// Server holds all fake API state behind one mutex.
type Server struct {
	engine *gin.Engine

	mu           sync.Mutex
	seq          int
	now          func() time.Time
	accounts     map[string]*account // by email
	profiles     map[string]*domain.Profile
	access       map[string]string // access token -> profile ID
	refresh      map[string]string // refresh token -> profile ID
	notes        map[string]*domain.Note
	likes        map[string]map[string]time.Time // note -> profile -> at
	comments     map[string][]domain.Comment
	follows      map[string]map[string]bool // follower -> followee
	failures     []failure
	holds        map[string]chan struct{}
	refreshCalls int
	requests     map[string]int
}

// New creates an empty fake API.
func New() *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{
		now:      time.Now,
		accounts: make(map[string]*account),
		profiles: make(map[string]*domain.Profile),
		access:   make(map[string]string),
		refresh:  make(map[string]string),
		notes:    make(map[string]*domain.Note),
		likes:    make(map[string]map[string]time.Time),
		comments: make(map[string][]domain.Comment),
		follows:  make(map[string]map[string]bool),
		holds:    make(map[string]chan struct{}),
		requests: make(map[string]int),
	}
	s.engine = s.routes()
	return s
}

// Handler exposes the router, typically to httptest.NewServer.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(s.intercept)

	r.POST("/auth/login", s.login)
	r.POST("/auth/register", s.register)
	r.POST("/auth/refresh", s.refreshTokens)

	authed := r.Group("/", s.authenticate)
	authed.GET("/profiles/me", s.me)
	authed.PATCH("/profiles/me", s.updateMe)
	authed.DELETE("/profiles/me", s.deleteMe)
	authed.GET("/profiles/:id", s.profileByID)
	authed.GET("/profiles/:id/notes", s.notesByProfile)
	authed.POST("/profiles/:id/follow", s.toggleFollow)
	authed.GET("/profiles/:id/followers", s.followers)
	authed.GET("/profiles/:id/following", s.following)

	authed.GET("/notes", s.myNotes)
	authed.POST("/notes", s.createNote)
	authed.GET("/notes/explore", s.explore)
	authed.GET("/notes/shared", s.shared)
	authed.GET("/notes/:id", s.getNote)
	authed.PATCH("/notes/:id", s.updateNote)
	authed.DELETE("/notes/:id", s.deleteNote)
	authed.POST("/notes/:id/share", s.shareNote)
	authed.POST("/notes/:id/likes", s.toggleLike)
	authed.GET("/notes/:id/likes", s.listLikes)
	authed.GET("/notes/:id/comments", s.listComments)
	authed.POST("/notes/:id/comments", s.createComment)
	authed.DELETE("/notes/:id/comments/:cid", s.deleteComment)
	authed.POST("/notes/:id/views", s.recordView)
	return r
}

// --- Test controls ---

// SeedUser registers an account and returns its profile and a token pair.
func (s *Server) SeedUser(email, password, name, username string) (domain.Profile, domain.Tokens) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.createAccountLocked(email, password, name, username)
	return *p, s.issueLocked(p.ID)
}

// SeedNote stores a note owned by profileID.
func (s *Server) SeedNote(profileID string, in domain.NoteInput, public bool) domain.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.createNoteLocked(profileID, in)
	n.Public = public
	return s.viewLocked(*n, profileID)
}

// RevokeAccess makes an access token answer 401 from now on.
func (s *Server) RevokeAccess(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.access, token)
}

// RevokeRefresh makes a refresh token answer 401 from now on.
func (s *Server) RevokeRefresh(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refresh, token)
}

// FailNext makes the next request matching method and path answer status.
func (s *Server) FailNext(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{method: method, path: path, status: status})
}

// Hold blocks requests matching method and path until the returned release
// function is called.
func (s *Server) Hold(method, path string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.holds[method+" "+path] = ch
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.holds, method+" "+path)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// RefreshCalls counts calls to the refresh endpoint.
func (s *Server) RefreshCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshCalls
}

// Requests counts requests served for method and path.
func (s *Server) Requests(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[method+" "+path]
}

// --- Middleware ---

func (s *Server) intercept(c *gin.Context) {
	key := c.Request.Method + " " + c.Request.URL.Path

	s.mu.Lock()
	s.requests[key]++
	hold := s.holds[key]
	status := 0
	for i, f := range s.failures {
		if f.method == c.Request.Method && f.path == c.Request.URL.Path {
			status = f.status
			s.failures = append(s.failures[:i], s.failures[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-c.Request.Context().Done():
			c.Abort()
			return
		}
	}
	if status != 0 {
		c.AbortWithStatusJSON(status, gin.H{"error": http.StatusText(status)})
		return
	}
	c.Next()
}

func (s *Server) authenticate(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	s.mu.Lock()
	id, ok := s.access[token]
	s.mu.Unlock()
	if token == "" || !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set("profileID", id)
	c.Next()
}

func viewer(c *gin.Context) string {
	return c.GetString("profileID")
}

// --- Auth ---

func (s *Server) login(c *gin.Context) {
	var creds domain.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[strings.ToLower(creds.Email)]
	if !ok || acct.password != creds.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	c.JSON(http.StatusOK, s.issueLocked(acct.profile.ID))
}

func (s *Server) register(c *gin.Context) {
	var reg domain.Registration
	if err := c.ShouldBindJSON(&reg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[strings.ToLower(reg.Email)]; exists {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}
	p := s.createAccountLocked(reg.Email, reg.Password, reg.Name, reg.Username)
	c.JSON(http.StatusCreated, s.issueLocked(p.ID))
}

func (s *Server) refreshTokens(c *gin.Context) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = c.ShouldBindJSON(&body)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshCalls++
	id, ok := s.refresh[body.RefreshToken]
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	delete(s.refresh, body.RefreshToken)
	for tok, owner := range s.access {
		if owner == id {
			delete(s.access, tok)
		}
	}
	c.JSON(http.StatusOK, s.issueLocked(id))
}

// --- Profiles ---

func (s *Server) me(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.profileViewLocked(viewer(c), viewer(c)))
}

func (s *Server) updateMe(c *gin.Context) {
	var in domain.ProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.profiles[viewer(c)]
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
	for _, n := range s.notes {
		if n.ProfileID == p.ID {
			n.Author = p.Summary()
		}
	}
	c.JSON(http.StatusOK, s.profileViewLocked(p.ID, p.ID))
}

func (s *Server) deleteMe(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := viewer(c)
	for email, a := range s.accounts {
		if a.profile.ID == id {
			delete(s.accounts, email)
		}
	}
	delete(s.profiles, id)
	for nid, n := range s.notes {
		if n.ProfileID == id {
			delete(s.notes, nid)
		}
	}
	for tok, owner := range s.access {
		if owner == id {
			delete(s.access, tok)
		}
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) profileByID(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[c.Param("id")]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	c.JSON(http.StatusOK, s.profileViewLocked(c.Param("id"), viewer(c)))
}

func (s *Server) toggleFollow(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	target := c.Param("id")
	if _, ok := s.profiles[target]; !ok || target == viewer(c) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "cannot follow this profile"})
		return
	}
	edges := s.follows[viewer(c)]
	if edges == nil {
		edges = make(map[string]bool)
		s.follows[viewer(c)] = edges
	}
	if edges[target] {
		delete(edges, target)
	} else {
		edges[target] = true
	}
	c.JSON(http.StatusOK, domain.FollowState{
		ProfileID:      target,
		Following:      edges[target],
		FollowersCount: s.followersCountLocked(target),
	})
}

func (s *Server) followers(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Profile{}
	for follower, edges := range s.follows {
		if edges[c.Param("id")] {
			out = append(out, s.profileViewLocked(follower, viewer(c)))
		}
	}
	sortProfiles(out)
	c.JSON(http.StatusOK, out)
}

func (s *Server) following(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Profile{}
	for followee := range s.follows[c.Param("id")] {
		out = append(out, s.profileViewLocked(followee, viewer(c)))
	}
	sortProfiles(out)
	c.JSON(http.StatusOK, out)
}

// --- Notes ---

func (s *Server) myNotes(c *gin.Context) {
	s.listNotes(c, func(n *domain.Note) bool { return n.ProfileID == viewer(c) })
}

func (s *Server) explore(c *gin.Context) {
	s.listNotes(c, func(n *domain.Note) bool { return n.Public })
}

func (s *Server) shared(c *gin.Context) {
	id := viewer(c)
	s.listNotes(c, func(n *domain.Note) bool {
		for _, p := range n.SharedWith {
			if p == id {
				return true
			}
		}
		return false
	})
}

func (s *Server) notesByProfile(c *gin.Context) {
	owner := c.Param("id")
	self := owner == viewer(c)
	s.listNotes(c, func(n *domain.Note) bool {
		return n.ProfileID == owner && (self || n.Public)
	})
}

func (s *Server) listNotes(c *gin.Context, keep func(*domain.Note) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Note{}
	for _, n := range s.notes {
		if keep(n) {
			out = append(out, s.viewLocked(*n, viewer(c)))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	c.JSON(http.StatusOK, out)
}

func (s *Server) createNote(c *gin.Context) {
	var in domain.NoteInput
	if err := c.ShouldBindJSON(&in); err != nil || strings.TrimSpace(in.Title) == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "title is required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.createNoteLocked(viewer(c), in)
	c.JSON(http.StatusCreated, s.viewLocked(*n, viewer(c)))
}

func (s *Server) getNote(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.readableLocked(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.viewLocked(*n, viewer(c)))
}

func (s *Server) updateNote(c *gin.Context) {
	var in domain.NoteInput
	if err := c.ShouldBindJSON(&in); err != nil || strings.TrimSpace(in.Title) == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "title is required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.ownedLocked(c)
	if !ok {
		return
	}
	n.Title = in.Title
	n.Content = in.Content
	n.UpdatedAt = s.now()
	c.JSON(http.StatusOK, s.viewLocked(*n, viewer(c)))
}

func (s *Server) deleteNote(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.ownedLocked(c)
	if !ok {
		return
	}
	delete(s.notes, n.ID)
	delete(s.likes, n.ID)
	delete(s.comments, n.ID)
	c.Status(http.StatusNoContent)
}

func (s *Server) shareNote(c *gin.Context) {
	var in domain.ShareInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.ownedLocked(c)
	if !ok {
		return
	}
	n.Public = in.Public
	n.SharedWith = append([]string(nil), in.ProfileIDs...)
	c.JSON(http.StatusOK, s.viewLocked(*n, viewer(c)))
}

// --- Interactions ---

func (s *Server) toggleLike(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.readableLocked(c)
	if !ok {
		return
	}
	set := s.likes[n.ID]
	if set == nil {
		set = make(map[string]time.Time)
		s.likes[n.ID] = set
	}
	if _, liked := set[viewer(c)]; liked {
		delete(set, viewer(c))
	} else {
		set[viewer(c)] = s.now()
	}
	_, liked := set[viewer(c)]
	c.JSON(http.StatusOK, domain.LikeState{NoteID: n.ID, Liked: liked, LikesCount: len(set)})
}

func (s *Server) listLikes(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.readableLocked(c)
	if !ok {
		return
	}
	out := []domain.Like{}
	for pid, at := range s.likes[n.ID] {
		out = append(out, domain.Like{ProfileID: pid, NoteID: n.ID, Author: s.profiles[pid].Summary(), CreatedAt: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	c.JSON(http.StatusOK, out)
}

func (s *Server) listComments(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.readableLocked(c)
	if !ok {
		return
	}
	out := append([]domain.Comment{}, s.comments[n.ID]...)
	c.JSON(http.StatusOK, out)
}

func (s *Server) createComment(c *gin.Context) {
	var in domain.CommentInput
	if err := c.ShouldBindJSON(&in); err != nil || strings.TrimSpace(in.Content) == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "content is required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.readableLocked(c)
	if !ok {
		return
	}
	s.seq++
	cm := domain.Comment{
		ID:        fmt.Sprintf("c%d", s.seq),
		NoteID:    n.ID,
		ProfileID: viewer(c),
		Author:    s.profiles[viewer(c)].Summary(),
		Content:   in.Content,
		CreatedAt: s.now(),
	}
	s.comments[n.ID] = append(s.comments[n.ID], cm)
	c.JSON(http.StatusCreated, cm)
}

func (s *Server) deleteComment(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.readableLocked(c)
	if !ok {
		return
	}
	list := s.comments[n.ID]
	for i, cm := range list {
		if cm.ID != c.Param("cid") {
			continue
		}
		if cm.ProfileID != viewer(c) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not the comment author"})
			return
		}
		s.comments[n.ID] = append(list[:i:i], list[i+1:]...)
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "comment not found"})
}

func (s *Server) recordView(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.readableLocked(c)
	if !ok {
		return
	}
	n.ViewsCount++
	c.JSON(http.StatusOK, domain.ViewState{NoteID: n.ID, ViewsCount: n.ViewsCount})
}

// --- Helpers (callers hold s.mu) ---

func (s *Server) createAccountLocked(email, password, name, username string) *domain.Profile {
	s.seq++
	p := &domain.Profile{ID: fmt.Sprintf("p%d", s.seq), Name: name, Username: username}
	s.profiles[p.ID] = p
	s.accounts[strings.ToLower(email)] = &account{email: email, password: password, profile: *p}
	return p
}

func (s *Server) issueLocked(profileID string) domain.Tokens {
	s.seq++
	t := domain.Tokens{
		Access:  fmt.Sprintf("access-%d", s.seq),
		Refresh: fmt.Sprintf("refresh-%d", s.seq),
	}
	s.access[t.Access] = profileID
	s.refresh[t.Refresh] = profileID
	return t
}

func (s *Server) createNoteLocked(profileID string, in domain.NoteInput) *domain.Note {
	s.seq++
	now := s.now()
	n := &domain.Note{
		ID:        fmt.Sprintf("n%d", s.seq),
		Title:     strings.TrimSpace(in.Title),
		Content:   in.Content,
		ProfileID: profileID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if p, ok := s.profiles[profileID]; ok {
		n.Author = p.Summary()
	}
	s.notes[n.ID] = n
	return n
}

func (s *Server) readableLocked(c *gin.Context) (*domain.Note, bool) {
	n, ok := s.notes[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "note not found"})
		return nil, false
	}
	if n.ProfileID == viewer(c) || n.Public {
		return n, true
	}
	for _, p := range n.SharedWith {
		if p == viewer(c) {
			return n, true
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "note not found"})
	return nil, false
}

func (s *Server) ownedLocked(c *gin.Context) (*domain.Note, bool) {
	n, ok := s.readableLocked(c)
	if !ok {
		return nil, false
	}
	if n.ProfileID != viewer(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the note owner"})
		return nil, false
	}
	return n, true
}

func (s *Server) viewLocked(n domain.Note, viewerID string) domain.Note {
	set := s.likes[n.ID]
	n.LikesCount = len(set)
	_, n.Liked = set[viewerID]
	n.CommentsCount = len(s.comments[n.ID])
	n.SharedWith = append([]string(nil), n.SharedWith...)
	return n
}

func (s *Server) profileViewLocked(id, viewerID string) domain.Profile {
	p := *s.profiles[id]
	p.FollowersCount = s.followersCountLocked(id)
	p.FollowingCount = len(s.follows[id])
	p.Following = s.follows[viewerID][id]
	return p
}

func (s *Server) followersCountLocked(id string) int {
	n := 0
	for _, edges := range s.follows {
		if edges[id] {
			n++
		}
	}
	return n
}

func sortProfiles(ps []domain.Profile) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].ID < ps[j].ID })
}
