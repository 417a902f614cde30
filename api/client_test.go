package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/imtaco/bedrud-client/internal/errors"
	"github.com/imtaco/bedrud-client/internal/httputil"
	"github.com/imtaco/bedrud-client/internal/log"
	"github.com/imtaco/bedrud-client/internal/testutil"
)

// stubTokens refreshes against the fake server through the AuthAPI.
type stubTokens struct {
	mu        sync.Mutex
	access    string
	refresh   string
	auth      AuthAPI
	refreshes int
	loggedOut bool
}

func (s *stubTokens) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access
}

func (s *stubTokens) RefreshAccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshes++
	pair, err := s.auth.Refresh(ctx, s.refresh)
	if err != nil {
		return "", err
	}
	s.access, s.refresh = pair.AccessToken, pair.RefreshToken
	return s.access, nil
}

func (s *stubTokens) Logout(context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loggedOut = true
	s.access, s.refresh = "", ""
}

type ClientTestSuite struct {
	suite.Suite
	ctx    context.Context
	server *testutil.FakeServer
	client *Client
	auth   AuthAPI
	rooms  RoomAPI
	tokens *stubTokens
}

func TestClientTestSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func (s *ClientTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.server = testutil.NewFakeServer(s.T())
	s.client = New(s.server.URL+"/api/", httputil.DefaultClientConfig(), log.NewTest(s.T()))
	s.auth = NewAuthAPI(s.client)
	s.rooms = NewRoomAPI(s.client)

	s.server.AddUser("ada@example.com", "secret1", "Ada")
	access, refresh := s.server.IssueTokens("ada@example.com")
	s.tokens = &stubTokens{access: access, refresh: refresh, auth: s.auth}
	s.client.SetTokenSource(s.tokens)
}

func (s *ClientTestSuite) TestBaseURLTrimmed() {
	s.Equal(s.server.URL+"/api", s.client.BaseURL())
}

func (s *ClientTestSuite) TestLogin() {
	resp, err := s.auth.Login(s.ctx, &LoginRequest{Email: "ada@example.com", Password: "secret1"})
	s.Require().NoError(err)
	s.NotEmpty(resp.Tokens.AccessToken)
	s.NotEmpty(resp.Tokens.RefreshToken)
	s.Equal("Ada", resp.User.Name)
	s.Equal("ada@example.com", resp.User.Email)
}

func (s *ClientTestSuite) TestLoginWrongPassword() {
	_, err := s.auth.Login(s.ctx, &LoginRequest{Email: "ada@example.com", Password: "nope"})
	s.True(errors.Is(err, errors.ErrAuth))
	s.Equal(http.StatusUnauthorized, StatusCode(err))
	s.Contains(err.Error(), "Invalid credentials")
	s.Zero(s.tokens.refreshes, "anonymous calls never refresh")
}

func (s *ClientTestSuite) TestLoginValidatedLocally() {
	_, err := s.auth.Login(s.ctx, &LoginRequest{Email: "not-an-email", Password: "x"})
	s.True(errors.Is(err, errors.ErrValidation))
	s.Zero(s.server.Calls("POST /api/auth/login"))
}

func (s *ClientTestSuite) TestRegisterReturnsSnakeCaseTokens() {
	pair, err := s.auth.Register(s.ctx, &RegisterRequest{Email: "bob@example.com", Password: "hunter22", Name: "Bob"})
	s.Require().NoError(err)
	s.NotEmpty(pair.AccessToken)
	s.NotEmpty(pair.RefreshToken)
}

func (s *ClientTestSuite) TestGuestLogin() {
	resp, err := s.auth.GuestLogin(s.ctx, &GuestLoginRequest{Name: "Visitor"})
	s.Require().NoError(err)
	s.Equal("Visitor", resp.User.Name)
	s.Require().NotNil(resp.User.Provider)
	s.Equal("guest", *resp.User.Provider)
}

func (s *ClientTestSuite) TestMeWithValidToken() {
	u, err := s.auth.Me(s.ctx)
	s.Require().NoError(err)
	s.Equal("Ada", u.Name)
	s.Zero(s.tokens.refreshes)
}

func (s *ClientTestSuite) TestExpiredTokenRefreshedOnce() {
	s.server.ExpireAccessTokens()

	u, err := s.auth.Me(s.ctx)
	s.Require().NoError(err)
	s.Equal("Ada", u.Name)
	s.Equal(1, s.tokens.refreshes)
	s.Equal(2, s.server.Calls("GET /api/auth/me"))
	s.Equal(1, s.server.Calls("POST /api/auth/refresh"))
}

func (s *ClientTestSuite) TestRefreshFailureIsAuthError() {
	s.server.ExpireAccessTokens()
	s.server.Lock()
	s.server.RefreshFails = true
	s.server.Unlock()

	_, err := s.auth.Me(s.ctx)
	s.True(errors.Is(err, errors.ErrAuth))
	s.Equal(1, s.tokens.refreshes)
	s.Equal(1, s.server.Calls("GET /api/auth/me"), "no retry without a fresh token")
}

func (s *ClientTestSuite) TestNetworkError() {
	s.server.Close()
	_, err := s.rooms.List(s.ctx)
	s.True(errors.Is(err, errors.ErrNetwork))
	s.Zero(StatusCode(err))
}

func (s *ClientTestSuite) TestCreateJoinList() {
	room, err := s.rooms.Create(s.ctx, &CreateRoomRequest{Name: "team-sync"})
	s.Require().NoError(err)
	s.Equal("team-sync", room.Name)
	s.True(room.Settings.AllowChat)

	joined, err := s.rooms.Join(s.ctx, "team-sync")
	s.Require().NoError(err)
	s.Equal(testutil.DefaultLivekitHost, joined.LivekitHost)
	s.NotEmpty(joined.Token)
	s.Equal(room.ID, joined.ID)

	list, err := s.rooms.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal("creator", list[0].Relationship)
}

func (s *ClientTestSuite) TestCreateGeneratesName() {
	room, err := s.rooms.Create(s.ctx, &CreateRoomRequest{})
	s.Require().NoError(err)
	s.NotEmpty(room.Name)
}

func (s *ClientTestSuite) TestJoinUnknownRoom() {
	_, err := s.rooms.Join(s.ctx, "missing-room")
	s.True(errors.Is(err, errors.ErrNetwork))
	s.Equal(http.StatusNotFound, StatusCode(err))
}

func (s *ClientTestSuite) TestJoinRejectsBadNameBeforeNetwork() {
	_, err := s.rooms.Join(s.ctx, "Bad Name")
	s.True(errors.Is(err, errors.ErrValidation))
	s.Zero(s.server.Calls("POST /api/room/join"))
}

func (s *ClientTestSuite) TestModeration() {
	room, err := s.rooms.Create(s.ctx, &CreateRoomRequest{Name: "mod-room"})
	s.Require().NoError(err)

	s.NoError(s.rooms.Kick(s.ctx, room.ID, "alice"))
	s.NoError(s.rooms.Mute(s.ctx, room.ID, "alice"))
	s.NoError(s.rooms.DisableVideo(s.ctx, room.ID, "alice"))
	s.NoError(s.rooms.BringToStage(s.ctx, room.ID, "alice"))
	s.NoError(s.rooms.RemoveFromStage(s.ctx, room.ID, "alice"))
	s.Equal(1, s.server.Calls("POST /api/room/"+room.ID+"/video/alice/off"))

	settings := DefaultRoomSettings()
	settings.E2EE = true
	s.NoError(s.rooms.UpdateSettings(s.ctx, room.ID, &settings))
	s.Equal(true, s.server.Room("mod-room").Settings["e2ee"])

	s.True(errors.Is(s.rooms.Kick(s.ctx, "", "alice"), errors.ErrValidation))
}

func (s *ClientTestSuite) TestPasskeyPassThrough() {
	opts, err := s.auth.PasskeyLoginBegin(s.ctx)
	s.Require().NoError(err)

	var doc map[string]any
	s.Require().NoError(json.Unmarshal(opts, &doc))
	s.Contains(doc, "publicKey")

	resp, err := s.auth.PasskeyLoginFinish(s.ctx, PasskeyCredential(`{"id":"cred-1","type":"public-key"}`))
	s.Require().NoError(err)
	s.Equal("Passkey User", resp.User.Name)

	_, err = s.auth.PasskeyLoginFinish(s.ctx, PasskeyCredential(`{}`))
	s.True(errors.Is(err, errors.ErrNetwork))
}

func (s *ClientTestSuite) TestCheckHealth() {
	h, err := CheckHealth(s.ctx, s.server.URL+"/", nil, log.NewTest(s.T()))
	s.Require().NoError(err)
	s.Equal("healthy", h.Status)

	s.server.Lock()
	s.server.Healthy = false
	s.server.Unlock()
	_, err = CheckHealth(s.ctx, s.server.URL, nil, log.NewTest(s.T()))
	s.True(errors.Is(err, errors.ErrNetwork))
	s.Equal(http.StatusServiceUnavailable, StatusCode(err))
}

func (s *ClientTestSuite) TestCheckHealthUnreachable() {
	_, err := CheckHealth(s.ctx, "http://127.0.0.1:1", nil, log.NewTest(s.T()))
	s.True(errors.Is(err, errors.ErrNetwork))
}
