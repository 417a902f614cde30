package manager

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/imtaco/bedrud-client/instances"
	"github.com/imtaco/bedrud-client/instances/store"
	"github.com/imtaco/bedrud-client/internal/errors"
	"github.com/imtaco/bedrud-client/internal/kv"
	"github.com/imtaco/bedrud-client/internal/log"
	"github.com/imtaco/bedrud-client/internal/testutil"
	"github.com/imtaco/bedrud-client/meetlink"
	"github.com/imtaco/bedrud-client/room"
	roommgr "github.com/imtaco/bedrud-client/room/manager"
	"github.com/imtaco/bedrud-client/room/media"
	"github.com/imtaco/bedrud-client/room/media/mocks"
)

type ManagerTestSuite struct {
	suite.Suite
	ctx     context.Context
	serverA *testutil.FakeServer
	serverB *testutil.FakeServer
	kv      kv.Store
	store   instances.Store
	engine  *mocks.MockEngine
	room    room.Manager
	mgr     Manager
}

func TestManagerTestSuite(t *testing.T) {
	suite.Run(t, new(ManagerTestSuite))
}

func (s *ManagerTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.serverA = testutil.NewFakeServer(s.T())
	s.serverB = testutil.NewFakeServer(s.T())
	s.serverA.AddUser("ada@example.com", "secret1", "Ada")
	s.serverB.AddUser("ada@example.com", "secret1", "Ada B")

	clock := clockwork.NewFakeClock()
	s.kv = kv.NewMemory()
	s.store = store.New(s.ctx, s.kv, clock, log.NewTest(s.T()))
	s.engine = mocks.NewMockEngine(gomock.NewController(s.T()))
	s.room = roommgr.New(s.engine, clock, log.NewNop())

	s.mgr = New(Options{
		Store: s.store,
		KV:    s.kv,
		Room:  s.room,
		Clock: clock,
	}, log.NewTest(s.T()))
	s.T().Cleanup(s.mgr.Close)
}

func (s *ManagerTestSuite) add(server *testutil.FakeServer) *instances.Instance {
	inst, err := s.mgr.AddInstance(s.ctx, server.URL, "")
	s.Require().NoError(err)
	return inst
}

func (s *ManagerTestSuite) expectMediaConnect() *mocks.MockConn {
	conn := mocks.NewMockConn(gomock.NewController(s.T()))
	s.engine.EXPECT().Connect(gomock.Any(), testutil.DefaultLivekitHost, gomock.Any()).Return(conn, nil)
	conn.EXPECT().RemoteParticipants().Return(nil)
	conn.EXPECT().Events().Return((<-chan media.Event)(make(chan media.Event)))
	return conn
}

func (s *ManagerTestSuite) TestNoInstance() {
	s.Nil(s.mgr.Deps())
	s.Nil(s.mgr.Active())
	s.Nil(s.mgr.ActiveInstance().Get())
	s.False(s.mgr.IsAuthenticated().Get())

	_, err := s.mgr.JoinRoom(s.ctx, "some-room")
	s.ErrorIs(err, instances.ErrNoInstance)
}

func (s *ManagerTestSuite) TestCheckHealth() {
	resp, err := s.mgr.CheckHealth(s.ctx, s.serverA.URL+"/")
	s.Require().NoError(err)
	s.Equal("healthy", resp.Status)

	_, err = s.mgr.CheckHealth(s.ctx, "not a url")
	s.ErrorIs(err, errors.ErrValidation)
}

func (s *ManagerTestSuite) TestAddInstanceBuildsDeps() {
	inst := s.add(s.serverA)

	u, _ := url.Parse(s.serverA.URL)
	s.Equal(u.Host, inst.DisplayName)
	s.Equal(inst.ID, s.mgr.Active().ID)
	s.Equal(inst.ID, s.mgr.ActiveInstance().Get().ID)

	deps := s.mgr.Deps()
	s.Require().NotNil(deps)
	s.Equal(inst.ID, deps.Instance.ID)
	s.Equal(s.serverA.URL+"/api", deps.Client.BaseURL())
	s.Equal(inst.ID, deps.Auth.InstanceID())
	s.NotNil(deps.Rooms)
	s.NotNil(deps.Passkeys)
	s.Equal(1, s.serverA.Calls("GET /api/health"))
}

func (s *ManagerTestSuite) TestAddInstanceKeepsDisplayName() {
	inst, err := s.mgr.AddInstance(s.ctx, s.serverA.URL+"//", "  Work  ")
	s.Require().NoError(err)
	s.Equal("Work", inst.DisplayName)
	s.Equal(s.serverA.URL, inst.ServerURL)
}

func (s *ManagerTestSuite) TestAddInstanceUnhealthy() {
	s.serverA.Lock()
	s.serverA.Healthy = false
	s.serverA.Unlock()

	_, err := s.mgr.AddInstance(s.ctx, s.serverA.URL, "")
	s.ErrorIs(err, errors.ErrNetwork)
	s.Empty(s.mgr.Instances())
	s.Nil(s.mgr.Deps())
}

func (s *ManagerTestSuite) TestAddInstanceUnreachable() {
	addr := s.serverB.URL
	s.serverB.Close()

	_, err := s.mgr.AddInstance(s.ctx, addr, "")
	s.ErrorIs(err, errors.ErrNetwork)
	s.Empty(s.mgr.Instances())
}

func (s *ManagerTestSuite) TestAddInstanceValidatesFirst() {
	_, err := s.mgr.AddInstance(s.ctx, "ftp://files.example.com", "")
	s.ErrorIs(err, errors.ErrValidation)
	s.Empty(s.mgr.Instances())
}

func (s *ManagerTestSuite) TestSwitchRebuilds() {
	a := s.add(s.serverA)
	depsA := s.mgr.Deps()
	b := s.add(s.serverB)
	depsB := s.mgr.Deps()

	s.Equal(b.ID, depsB.Instance.ID)
	s.Greater(depsB.Generation, depsA.Generation)
	s.Equal(s.serverB.URL+"/api", depsB.Client.BaseURL())

	// re-activating the current instance keeps the graph
	s.Require().NoError(s.mgr.SetActive(s.ctx, b.ID))
	s.Same(depsB, s.mgr.Deps())

	s.Require().NoError(s.mgr.SetActive(s.ctx, a.ID))
	s.Equal(a.ID, s.mgr.Deps().Instance.ID)
	s.NotSame(depsA, s.mgr.Deps())
}

func (s *ManagerTestSuite) TestIsAuthenticatedFollowsActiveInstance() {
	a := s.add(s.serverA)
	_, err := s.mgr.Deps().Auth.Login(s.ctx, "ada@example.com", "secret1")
	s.Require().NoError(err)
	s.True(s.mgr.IsAuthenticated().Get())

	s.add(s.serverB)
	s.False(s.mgr.IsAuthenticated().Get())

	// switching back restores the persisted session
	s.Require().NoError(s.mgr.SetActive(s.ctx, a.ID))
	s.True(s.mgr.IsAuthenticated().Get())
	s.Equal("Ada", s.mgr.Deps().Auth.CurrentUser().Get().Name)
}

func (s *ManagerTestSuite) TestTornDownAuthDoesNotLeak() {
	s.add(s.serverA)
	oldAuth := s.mgr.Deps().Auth
	s.add(s.serverB)

	var seen []bool
	cancel := s.mgr.IsAuthenticated().Subscribe(func(v bool) { seen = append(seen, v) })
	defer cancel()

	_, err := oldAuth.Login(s.ctx, "ada@example.com", "secret1")
	s.Require().NoError(err)

	s.False(s.mgr.IsAuthenticated().Get())
	s.Empty(seen)
}

func (s *ManagerTestSuite) TestRemoveActiveLogsOut() {
	a := s.add(s.serverA)
	b := s.add(s.serverB)
	s.Require().NoError(s.mgr.SetActive(s.ctx, a.ID))
	_, err := s.mgr.Deps().Auth.Login(s.ctx, "ada@example.com", "secret1")
	s.Require().NoError(err)

	s.Require().NoError(s.mgr.RemoveInstance(s.ctx, a.ID))

	s.Equal(1, s.serverA.Calls("POST /api/auth/logout"))
	s.Equal(b.ID, s.mgr.Active().ID)
	s.Equal(b.ID, s.mgr.Deps().Instance.ID)
	s.False(s.mgr.IsAuthenticated().Get())
	for _, key := range instances.SessionKeys(a.ID) {
		_, ok := s.kv.GetString(s.ctx, key)
		s.False(ok, key)
	}
}

func (s *ManagerTestSuite) TestRemoveProceedsWhenServerLogoutFails() {
	a := s.add(s.serverA)
	_, err := s.mgr.Deps().Auth.Login(s.ctx, "ada@example.com", "secret1")
	s.Require().NoError(err)
	s.serverA.Close()

	s.Require().NoError(s.mgr.RemoveInstance(s.ctx, a.ID))
	s.Empty(s.mgr.Instances())
	s.Nil(s.mgr.Deps())
	s.False(s.mgr.IsAuthenticated().Get())
}

func (s *ManagerTestSuite) TestRemoveUnknown() {
	s.add(s.serverA)
	s.NoError(s.mgr.RemoveInstance(s.ctx, "missing"))
	s.Len(s.mgr.Instances(), 1)
}

func (s *ManagerTestSuite) TestJoinRoom() {
	s.add(s.serverA)
	_, err := s.mgr.Deps().Auth.Login(s.ctx, "ada@example.com", "secret1")
	s.Require().NoError(err)
	s.serverA.AddRoom("team-sync")
	s.expectMediaConnect()

	resp, err := s.mgr.JoinRoom(s.ctx, "team-sync")
	s.Require().NoError(err)
	s.Equal(testutil.DefaultLivekitHost, resp.LivekitHost)
	s.Equal(room.Connected, s.room.Snapshot().State)
}

func (s *ManagerTestSuite) TestJoinUnknownRoom() {
	s.add(s.serverA)
	_, err := s.mgr.Deps().Auth.Login(s.ctx, "ada@example.com", "secret1")
	s.Require().NoError(err)

	_, err = s.mgr.JoinRoom(s.ctx, "nowhere")
	s.ErrorIs(err, errors.ErrNetwork)
	s.Equal(room.Disconnected, s.room.Snapshot().State)
}

func (s *ManagerTestSuite) TestSwitchDisconnectsRoom() {
	s.add(s.serverA)
	_, err := s.mgr.Deps().Auth.Login(s.ctx, "ada@example.com", "secret1")
	s.Require().NoError(err)
	s.serverA.AddRoom("team-sync")
	conn := s.expectMediaConnect()
	_, err = s.mgr.JoinRoom(s.ctx, "team-sync")
	s.Require().NoError(err)

	conn.EXPECT().Disconnect(gomock.Any()).Return(nil)
	s.add(s.serverB)

	s.Equal(room.Disconnected, s.room.Snapshot().State)
}

func (s *ManagerTestSuite) TestStaleJoinDiscarded() {
	a := s.add(s.serverA)
	b := s.add(s.serverB)
	s.Require().NoError(s.mgr.SetActive(s.ctx, a.ID))
	_, err := s.mgr.Deps().Auth.Login(s.ctx, "ada@example.com", "secret1")
	s.Require().NoError(err)
	s.serverA.AddRoom("team-sync")

	gate := make(chan struct{})
	defer close(gate)
	s.serverA.Lock()
	s.serverA.JoinGate = gate
	s.serverA.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := s.mgr.JoinRoom(s.ctx, "team-sync")
		done <- err
	}()
	s.Eventually(func() bool { return s.serverA.Calls("POST /api/room/join") == 1 }, time.Second, 5*time.Millisecond)

	depsBefore := s.mgr.Deps()
	s.Require().NoError(s.mgr.SetActive(s.ctx, b.ID))
	depsAfter := s.mgr.Deps()
	s.NotSame(depsBefore, depsAfter)

	// no engine expectation: a stale join must never reach the media engine
	s.ErrorIs(<-done, instances.ErrStale)
	s.Same(depsAfter, s.mgr.Deps())
	s.Equal(room.Disconnected, s.room.Snapshot().State)
}

// switchingRoom calls before ahead of every guarded connect.
type switchingRoom struct {
	room.Manager
	before func()
}

func (r *switchingRoom) ConnectIf(ctx context.Context, mediaURL, token string, current func() bool) error {
	r.before()
	return r.Manager.ConnectIf(ctx, mediaURL, token, current)
}

func (s *ManagerTestSuite) TestSwitchBetweenJoinAndConnect() {
	var b *instances.Instance
	s.mgr.Close()
	s.mgr = New(Options{
		Store: s.store,
		KV:    s.kv,
		Room: &switchingRoom{Manager: s.room, before: func() {
			s.Require().NoError(s.mgr.SetActive(s.ctx, b.ID))
		}},
		Clock: clockwork.NewFakeClock(),
	}, log.NewTest(s.T()))
	s.T().Cleanup(s.mgr.Close)

	a := s.add(s.serverA)
	b = s.add(s.serverB)
	s.Require().NoError(s.mgr.SetActive(s.ctx, a.ID))
	_, err := s.mgr.Deps().Auth.Login(s.ctx, "ada@example.com", "secret1")
	s.Require().NoError(err)
	s.serverA.AddRoom("team-sync")

	// no engine expectation: the switch lands before the room connects
	_, err = s.mgr.JoinRoom(s.ctx, "team-sync")
	s.ErrorIs(err, instances.ErrStale)
	s.Equal(b.ID, s.mgr.Active().ID)
	s.Equal(room.Disconnected, s.room.Snapshot().State)
}

func (s *ManagerTestSuite) TestSwitchDuringMediaConnect() {
	a := s.add(s.serverA)
	b := s.add(s.serverB)
	s.Require().NoError(s.mgr.SetActive(s.ctx, a.ID))
	_, err := s.mgr.Deps().Auth.Login(s.ctx, "ada@example.com", "secret1")
	s.Require().NoError(err)
	s.serverA.AddRoom("team-sync")

	conn := mocks.NewMockConn(gomock.NewController(s.T()))
	s.engine.EXPECT().Connect(gomock.Any(), testutil.DefaultLivekitHost, gomock.Any()).
		DoAndReturn(func(context.Context, string, string) (media.Conn, error) {
			s.Require().NoError(s.mgr.SetActive(s.ctx, b.ID))
			return conn, nil
		})
	conn.EXPECT().Disconnect(gomock.Any()).Return(nil)

	_, err = s.mgr.JoinRoom(s.ctx, "team-sync")
	s.ErrorIs(err, instances.ErrStale)
	s.Equal(room.Disconnected, s.room.Snapshot().State)
}

func (s *ManagerTestSuite) TestSwitchNeverLeavesStaleAuth() {
	a := s.add(s.serverA)
	b := s.add(s.serverB)
	access, refresh := s.serverA.IssueTokens("ada@example.com")

	for i := 0; i < 20; i++ {
		s.Require().NoError(s.mgr.SetActive(s.ctx, a.ID))
		auth := s.mgr.Deps().Auth

		stop := make(chan struct{})
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				select {
				case <-stop:
					return
				default:
				}
				_ = auth.SaveTokens(s.ctx, access, refresh)
				auth.Logout(s.ctx)
			}
		}()

		s.Require().NoError(s.mgr.SetActive(s.ctx, b.ID))
		s.False(s.mgr.IsAuthenticated().Get(), "round %d", i)

		close(stop)
		<-done
		s.False(s.mgr.IsAuthenticated().Get(), "round %d", i)
	}
}

func (s *ManagerTestSuite) TestStaleAddDiscarded() {
	s.add(s.serverA)
	serverC := testutil.NewFakeServer(s.T())
	gate := make(chan struct{})
	defer close(gate)
	serverC.Lock()
	serverC.HealthGate = gate
	serverC.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := s.mgr.AddInstance(s.ctx, serverC.URL, "")
		done <- err
	}()
	s.Eventually(func() bool { return serverC.Calls("GET /api/health") == 1 }, time.Second, 5*time.Millisecond)

	b := s.add(s.serverB)

	s.ErrorIs(<-done, instances.ErrStale)
	s.Len(s.mgr.Instances(), 2)
	s.Equal(b.ID, s.mgr.Active().ID)
}

func (s *ManagerTestSuite) TestMatchLink() {
	a := s.add(s.serverA)

	link, err := meetlink.Parse(s.serverA.URL + "/m/team-sync")
	s.Require().NoError(err)
	got, ok := s.mgr.MatchLink(link)
	s.True(ok)
	s.Equal(a.ID, got.ID)

	link, err = meetlink.Parse(s.serverB.URL + "/c/team-sync")
	s.Require().NoError(err)
	_, ok = s.mgr.MatchLink(link)
	s.False(ok)
	_, ok = s.mgr.MatchLink(nil)
	s.False(ok)
}

func (s *ManagerTestSuite) TestGuestJoinAddsInstance() {
	s.serverB.AddRoom("open-house")
	s.expectMediaConnect()

	resp, err := s.mgr.GuestJoin(s.ctx, s.serverB.URL+"/c/open-house/extra", "Visitor")
	s.Require().NoError(err)
	s.Equal("open-house", resp.Name)

	s.Len(s.mgr.Instances(), 1)
	s.Equal(s.serverB.URL, s.mgr.Active().ServerURL)
	s.True(s.mgr.IsAuthenticated().Get())
	s.Equal("Visitor", s.mgr.Deps().Auth.CurrentUser().Get().Name)
	s.Equal(room.Connected, s.room.Snapshot().State)
}

func (s *ManagerTestSuite) TestGuestJoinReusesInstance() {
	a := s.add(s.serverA)
	s.add(s.serverB)
	_, err := s.mgr.Deps().Auth.Login(s.ctx, "ada@example.com", "secret1")
	s.Require().NoError(err)
	s.serverA.AddRoom("open-house")
	s.expectMediaConnect()

	_, err = s.mgr.GuestJoin(s.ctx, s.serverA.URL+"/c/open-house", "Visitor")
	s.Require().NoError(err)

	s.Len(s.mgr.Instances(), 2)
	s.Equal(a.ID, s.mgr.Active().ID)
	s.Equal(1, s.serverA.Calls("POST /api/auth/guest-login"))
}

func (s *ManagerTestSuite) TestGuestJoinBadLink() {
	_, err := s.mgr.GuestJoin(s.ctx, "https://example.com/x/room", "Visitor")
	s.ErrorIs(err, errors.ErrValidation)
	s.Empty(s.mgr.Instances())
}
