// Package testutil runs an in-process Bedrud server for tests of the
// REST-facing packages.
package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/imtaco/bedrud-client/internal/jwt"
	"github.com/imtaco/bedrud-client/internal/validation"
)

const (
	signingSecret = "fake-bedrud-secret"
	// DefaultLivekitHost is handed out by join unless overridden.
	DefaultLivekitHost = "wss://media.fake.local"
)

var registerOnce sync.Once

type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	IsAdmin  bool   `json:"isAdmin"`
	Provider string `json:"provider,omitempty"`
	password string
}

type Room struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	CreatedBy       string         `json:"createdBy"`
	AdminID         string         `json:"adminId"`
	IsActive        bool           `json:"isActive"`
	IsPublic        bool           `json:"isPublic"`
	MaxParticipants int            `json:"maxParticipants"`
	ExpiresAt       string         `json:"expiresAt"`
	Settings        map[string]any `json:"settings"`
	Mode            string         `json:"mode"`
}

// FakeServer is a small Bedrud lookalike. Exported fields may be changed
// between requests; guard concurrent changes with Lock/Unlock.
type FakeServer struct {
	*httptest.Server
	sync.Mutex

	Healthy      bool
	RefreshFails bool
	LivekitHost  string
	// JoinGate and HealthGate, when set, hold every join or health probe
	// until closed or the request is cancelled.
	JoinGate   chan struct{}
	HealthGate chan struct{}

	signer   jwt.Auth
	users    map[string]*User // by email
	access   map[string]string
	refresh  map[string]string
	rooms    map[string]*Room
	calls    map[string]int
	requests []string
}

func NewFakeServer(t *testing.T) *FakeServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	registerOnce.Do(validation.MustRegisterGin)

	f := &FakeServer{
		Healthy:     true,
		LivekitHost: DefaultLivekitHost,
		signer:      jwt.NewAuth(signingSecret),
		users:       map[string]*User{},
		access:      map[string]string{},
		refresh:     map[string]string{},
		rooms:       map[string]*Room{},
		calls:       map[string]int{},
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(otelgin.Middleware("fake-bedrud"))
	engine.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowHeaders:    []string{"Authorization", "Content-Type"},
		MaxAge:          time.Hour,
	}))
	engine.Use(f.record)
	f.routes(engine)

	f.Server = httptest.NewServer(engine)
	t.Cleanup(f.Close)
	return f
}

func (f *FakeServer) routes(e *gin.Engine) {
	a := e.Group("/api")
	a.GET("/health", f.health)

	a.POST("/auth/login", f.login)
	a.POST("/auth/register", f.register)
	a.POST("/auth/guest-login", f.guestLogin)
	a.POST("/auth/refresh", f.refreshTokens)
	a.POST("/auth/passkey/login/begin", f.passkeyBegin)
	a.POST("/auth/passkey/login/finish", f.passkeyLoginFinish)
	a.POST("/auth/passkey/signup/begin", f.passkeyBegin)
	a.POST("/auth/passkey/signup/finish", f.passkeyLoginFinish)

	authed := a.Group("", f.requireAuth)
	authed.GET("/auth/me", f.me)
	authed.POST("/auth/logout", f.ok)
	authed.POST("/auth/passkey/register/begin", f.passkeyBegin)
	authed.POST("/auth/passkey/register/finish", f.ok)

	authed.POST("/room/create", f.createRoom)
	authed.POST("/room/join", f.joinRoom)
	authed.GET("/room/list", f.listRooms)
	authed.POST("/room/:roomId/kick/:identity", f.moderate)
	authed.POST("/room/:roomId/mute/:identity", f.moderate)
	authed.POST("/room/:roomId/video/:identity/off", f.moderate)
	authed.POST("/room/:roomId/stage/:identity/bring", f.moderate)
	authed.POST("/room/:roomId/stage/:identity/remove", f.moderate)
	authed.PUT("/room/:roomId/settings", f.updateSettings)
}

func (f *FakeServer) record(c *gin.Context) {
	f.Lock()
	key := c.Request.Method + " " + c.Request.URL.Path
	f.calls[key]++
	f.requests = append(f.requests, key)
	f.Unlock()
	c.Next()
}

// Calls counts requests to "METHOD /path".
func (f *FakeServer) Calls(key string) int {
	f.Lock()
	defer f.Unlock()
	return f.calls[key]
}

// Requests lists every request in arrival order.
func (f *FakeServer) Requests() []string {
	f.Lock()
	defer f.Unlock()
	return append([]string(nil), f.requests...)
}

// AddUser registers a password account and returns its id.
func (f *FakeServer) AddUser(email, password, name string) string {
	f.Lock()
	defer f.Unlock()
	u := &User{ID: uuid.NewString(), Email: email, Name: name, Provider: "local", password: password}
	f.users[email] = u
	return u.ID
}

// IssueTokens mints a valid pair for the user with the given email.
func (f *FakeServer) IssueTokens(email string) (access, refresh string) {
	f.Lock()
	defer f.Unlock()
	return f.issueLocked(f.users[email])
}

// ExpireAccessTokens invalidates every access token, refresh tokens stay valid.
func (f *FakeServer) ExpireAccessTokens() {
	f.Lock()
	defer f.Unlock()
	f.access = map[string]string{}
}

func (f *FakeServer) AddRoom(name string) {
	f.Lock()
	defer f.Unlock()
	f.rooms[name] = newRoom(name, "")
}

func (f *FakeServer) issueLocked(u *User) (string, string) {
	accesses := []string{"user"}
	if u.IsAdmin {
		accesses = append(accesses, "admin")
	}
	access, err := f.signer.Sign(&jwt.Claims{
		UserID:   u.ID,
		Email:    u.Email,
		Name:     u.Name,
		Accesses: accesses,
		Provider: u.Provider,
		RegisteredClaims: gojwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	if err != nil {
		panic(err)
	}
	refresh := "r-" + uuid.NewString()
	f.access[access] = u.Email
	f.refresh[refresh] = u.Email
	return access, refresh
}

func (f *FakeServer) userFromToken(c *gin.Context) *User {
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok {
		return nil
	}
	if _, err := f.signer.Verify(token); err != nil {
		return nil
	}
	f.Lock()
	defer f.Unlock()
	if email, ok := f.access[token]; ok {
		return f.users[email]
	}
	return nil
}

func (f *FakeServer) requireAuth(c *gin.Context) {
	u := f.userFromToken(c)
	if u == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}
	c.Set("user", u)
	c.Next()
}

func (f *FakeServer) health(c *gin.Context) {
	f.Lock()
	healthy, gate := f.Healthy, f.HealthGate
	f.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-c.Request.Context().Done():
			return
		}
	}
	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "version": "test"})
}

func (f *FakeServer) ok(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func loginBody(u *User, access, refresh string) gin.H {
	return gin.H{
		"tokens": gin.H{"accessToken": access, "refreshToken": refresh},
		"user":   u,
	}
}

func (f *FakeServer) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	f.Lock()
	defer f.Unlock()
	u, ok := f.users[req.Email]
	if !ok || u.password != req.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	access, refresh := f.issueLocked(u)
	c.JSON(http.StatusOK, loginBody(u, access, refresh))
}

func (f *FakeServer) register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
		Name     string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": validation.FormatValidationError(err)})
		return
	}
	f.Lock()
	defer f.Unlock()
	if _, exists := f.users[req.Email]; exists {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User already exists"})
		return
	}
	u := &User{ID: uuid.NewString(), Email: req.Email, Name: req.Name, Provider: "local", password: req.Password}
	f.users[req.Email] = u
	access, refresh := f.issueLocked(u)
	c.JSON(http.StatusOK, gin.H{"access_token": access, "refresh_token": refresh})
}

func (f *FakeServer) guestLogin(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"guestname"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name is required"})
		return
	}
	f.Lock()
	defer f.Unlock()
	id := uuid.NewString()
	u := &User{ID: id, Email: "guest-" + id + "@guest.local", Name: req.Name, Provider: "guest"}
	f.users[u.Email] = u
	access, refresh := f.issueLocked(u)
	c.JSON(http.StatusOK, loginBody(u, access, refresh))
}

func (f *FakeServer) refreshTokens(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	f.Lock()
	defer f.Unlock()
	email, ok := f.refresh[req.RefreshToken]
	if !ok || f.RefreshFails {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
		return
	}
	delete(f.refresh, req.RefreshToken)
	access, refresh := f.issueLocked(f.users[email])
	c.JSON(http.StatusOK, gin.H{"access_token": access, "refresh_token": refresh})
}

func (f *FakeServer) me(c *gin.Context) {
	c.JSON(http.StatusOK, c.MustGet("user"))
}

func (f *FakeServer) passkeyBegin(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"publicKey": gin.H{"challenge": randomHex(16), "rpId": "fake.local"},
	})
}

func (f *FakeServer) passkeyLoginFinish(c *gin.Context) {
	var cred map[string]any
	if err := c.ShouldBindJSON(&cred); err != nil || cred["id"] == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid credential"})
		return
	}
	f.Lock()
	defer f.Unlock()
	email := "passkey@fake.local"
	u, ok := f.users[email]
	if !ok {
		u = &User{ID: uuid.NewString(), Email: email, Name: "Passkey User", Provider: "passkey"}
		f.users[email] = u
	}
	access, refresh := f.issueLocked(u)
	c.JSON(http.StatusOK, loginBody(u, access, refresh))
}

func newRoom(name, owner string) *Room {
	return &Room{
		ID:              uuid.NewString(),
		Name:            name,
		CreatedBy:       owner,
		AdminID:         owner,
		IsActive:        true,
		IsPublic:        true,
		MaxParticipants: 20,
		ExpiresAt:       time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
		Settings:        map[string]any{"allowChat": true, "allowVideo": true, "allowAudio": true, "requireApproval": false, "e2ee": false},
		Mode:            "meeting",
	}
}

func (f *FakeServer) createRoom(c *gin.Context) {
	var req struct {
		Name            string `json:"name" binding:"omitempty,roomname"`
		MaxParticipants int    `json:"maxParticipants"`
		Mode            string `json:"mode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room name"})
		return
	}
	u := c.MustGet("user").(*User)
	name := req.Name
	if name == "" {
		name = randomHex(3) + "-" + randomHex(2) + "-" + randomHex(3)
	}

	f.Lock()
	defer f.Unlock()
	if _, exists := f.rooms[name]; exists {
		c.JSON(http.StatusConflict, gin.H{"error": "Room already exists"})
		return
	}
	r := newRoom(name, u.ID)
	if req.MaxParticipants > 0 {
		r.MaxParticipants = req.MaxParticipants
	}
	if req.Mode != "" {
		r.Mode = req.Mode
	}
	f.rooms[name] = r
	c.JSON(http.StatusOK, r)
}

func (f *FakeServer) joinRoom(c *gin.Context) {
	var req struct {
		RoomName string `json:"roomName" binding:"roomname"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room name"})
		return
	}

	f.Lock()
	gate := f.JoinGate
	f.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-c.Request.Context().Done():
			return
		}
	}

	f.Lock()
	defer f.Unlock()
	r, ok := f.rooms[req.RoomName]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":              r.ID,
		"name":            r.Name,
		"token":           "media-" + randomHex(8),
		"livekitHost":     f.LivekitHost,
		"createdBy":       r.CreatedBy,
		"adminId":         r.AdminID,
		"isActive":        r.IsActive,
		"isPublic":        r.IsPublic,
		"maxParticipants": r.MaxParticipants,
		"expiresAt":       r.ExpiresAt,
		"settings":        r.Settings,
		"mode":            r.Mode,
	})
}

func (f *FakeServer) listRooms(c *gin.Context) {
	u := c.MustGet("user").(*User)
	f.Lock()
	defer f.Unlock()
	out := []gin.H{}
	for _, r := range f.rooms {
		if r.CreatedBy != u.ID {
			continue
		}
		out = append(out, gin.H{
			"id":              r.ID,
			"name":            r.Name,
			"createdBy":       r.CreatedBy,
			"isActive":        r.IsActive,
			"maxParticipants": r.MaxParticipants,
			"expiresAt":       r.ExpiresAt,
			"settings":        r.Settings,
			"relationship":    "creator",
			"mode":            r.Mode,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (f *FakeServer) findRoomByID(id string) *Room {
	for _, r := range f.rooms {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (f *FakeServer) moderate(c *gin.Context) {
	f.Lock()
	r := f.findRoomByID(c.Param("roomId"))
	f.Unlock()
	if r == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "identity": c.Param("identity")})
}

func (f *FakeServer) updateSettings(c *gin.Context) {
	var settings map[string]any
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid settings"})
		return
	}
	f.Lock()
	defer f.Unlock()
	r := f.findRoomByID(c.Param("roomId"))
	if r == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	r.Settings = settings
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Room returns a copy of the named room, or nil.
func (f *FakeServer) Room(name string) *Room {
	f.Lock()
	defer f.Unlock()
	if r, ok := f.rooms[name]; ok {
		cp := *r
		return &cp
	}
	return nil
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
