package store

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/suite"

	"github.com/imtaco/bedrud-client/instances"
	"github.com/imtaco/bedrud-client/internal/errors"
	"github.com/imtaco/bedrud-client/internal/kv"
	"github.com/imtaco/bedrud-client/internal/log"
)

// failingKV rejects writes while fail is set.
type failingKV struct {
	kv.Store
	fail bool
}

func (f *failingKV) SetString(ctx context.Context, key, value string) error {
	if f.fail {
		return errors.New(errors.ErrNetwork, "disk full")
	}
	return f.Store.SetString(ctx, key, value)
}

type StoreTestSuite struct {
	suite.Suite
	ctx   context.Context
	kv    *failingKV
	clock *clockwork.FakeClock
	store instances.Store
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (s *StoreTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.kv = &failingKV{Store: kv.NewMemory()}
	s.clock = clockwork.NewFakeClockAt(time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC))
	s.store = s.reopen()
}

func (s *StoreTestSuite) reopen() instances.Store {
	return New(s.ctx, s.kv, s.clock, log.NewTest(s.T()))
}

func (s *StoreTestSuite) newInstance(name string) *instances.Instance {
	return instances.New("https://"+name+".example.com", name, s.clock)
}

func (s *StoreTestSuite) ids() []string {
	var out []string
	for _, i := range s.store.Instances() {
		out = append(out, i.ID)
	}
	return out
}

func (s *StoreTestSuite) assertInvariants() {
	list := s.store.Instances()
	active := s.store.ActiveID().Get()
	if len(list) == 0 {
		s.Empty(active)
		s.Nil(s.store.Active())
		return
	}
	s.Require().NotNil(s.store.Active())
	s.Equal(active, s.store.Active().ID)
}

func (s *StoreTestSuite) TestFirstAddActivates() {
	var published []string
	s.store.ActiveID().Subscribe(func(id string) { published = append(published, id) })

	a := s.newInstance("a")
	s.Require().NoError(s.store.Add(s.ctx, a))
	s.Equal(a.ID, s.store.ActiveID().Get())
	s.Equal([]string{a.ID}, published)

	b := s.newInstance("b")
	s.Require().NoError(s.store.Add(s.ctx, b))
	s.Equal(a.ID, s.store.ActiveID().Get(), "second add keeps active")
	s.Equal([]string{a.ID}, published)
}

func (s *StoreTestSuite) TestAddDuplicate() {
	a := s.newInstance("a")
	s.Require().NoError(s.store.Add(s.ctx, a))

	err := s.store.Add(s.ctx, a)
	s.True(errors.Is(err, instances.ErrDuplicateID))
	s.Len(s.store.Instances(), 1)
}

func (s *StoreTestSuite) TestAddWithoutID() {
	err := s.store.Add(s.ctx, &instances.Instance{ServerURL: "https://x"})
	s.True(errors.Is(err, errors.ErrValidation))
	s.Empty(s.store.Instances())
}

func (s *StoreTestSuite) TestRemoveActiveReassignsFirst() {
	a, b, c := s.newInstance("a"), s.newInstance("b"), s.newInstance("c")
	for _, i := range []*instances.Instance{a, b, c} {
		s.Require().NoError(s.store.Add(s.ctx, i))
	}
	s.Require().NoError(s.store.SetActive(s.ctx, b.ID))

	s.Require().NoError(s.store.Remove(s.ctx, b.ID))
	s.Equal(a.ID, s.store.ActiveID().Get())
	s.Equal([]string{a.ID, c.ID}, s.ids())

	s.Require().NoError(s.store.Remove(s.ctx, a.ID))
	s.Equal(c.ID, s.store.ActiveID().Get())
}

func (s *StoreTestSuite) TestRemoveLastClearsActive() {
	a := s.newInstance("a")
	s.Require().NoError(s.store.Add(s.ctx, a))

	s.Require().NoError(s.store.Remove(s.ctx, a.ID))
	s.Empty(s.store.ActiveID().Get())
	s.Nil(s.store.Active())

	_, ok := s.kv.GetString(s.ctx, instances.KeyActiveID)
	s.False(ok)
}

func (s *StoreTestSuite) TestRemoveNonActiveKeepsActive() {
	a, b := s.newInstance("a"), s.newInstance("b")
	s.Require().NoError(s.store.Add(s.ctx, a))
	s.Require().NoError(s.store.Add(s.ctx, b))

	var published int
	s.store.ActiveID().Subscribe(func(string) { published++ })

	s.Require().NoError(s.store.Remove(s.ctx, b.ID))
	s.Equal(a.ID, s.store.ActiveID().Get())
	s.Zero(published)
}

func (s *StoreTestSuite) TestRemoveUnknownIsNoop() {
	a := s.newInstance("a")
	s.Require().NoError(s.store.Add(s.ctx, a))
	s.NoError(s.store.Remove(s.ctx, "nope"))
	s.Equal([]string{a.ID}, s.ids())
}

func (s *StoreTestSuite) TestRemoveCascadesSession() {
	a, b := s.newInstance("a"), s.newInstance("b")
	s.Require().NoError(s.store.Add(s.ctx, a))
	s.Require().NoError(s.store.Add(s.ctx, b))
	for _, id := range []string{a.ID, b.ID} {
		for _, key := range instances.SessionKeys(id) {
			s.Require().NoError(s.kv.SetString(s.ctx, key, "v"))
		}
	}

	s.Require().NoError(s.store.Remove(s.ctx, a.ID))
	for _, key := range instances.SessionKeys(a.ID) {
		_, ok := s.kv.GetString(s.ctx, key)
		s.False(ok, key)
	}
	for _, key := range instances.SessionKeys(b.ID) {
		_, ok := s.kv.GetString(s.ctx, key)
		s.True(ok, key)
	}
}

func (s *StoreTestSuite) TestSetActiveUnknownIsNoop() {
	a, b := s.newInstance("a"), s.newInstance("b")
	s.Require().NoError(s.store.Add(s.ctx, a))
	s.Require().NoError(s.store.Add(s.ctx, b))

	beforeList, _ := s.kv.GetString(s.ctx, instances.KeyInstances)
	beforeActive, _ := s.kv.GetString(s.ctx, instances.KeyActiveID)

	var published int
	s.store.ActiveID().Subscribe(func(string) { published++ })
	s.Require().NoError(s.store.SetActive(s.ctx, "ghost"))

	afterList, _ := s.kv.GetString(s.ctx, instances.KeyInstances)
	afterActive, _ := s.kv.GetString(s.ctx, instances.KeyActiveID)
	s.Equal(beforeList, afterList)
	s.Equal(beforeActive, afterActive)
	s.Equal(a.ID, s.store.ActiveID().Get())
	s.Zero(published)
}

func (s *StoreTestSuite) TestSetActivePublishesEveryCall() {
	a, b := s.newInstance("a"), s.newInstance("b")
	s.Require().NoError(s.store.Add(s.ctx, a))
	s.Require().NoError(s.store.Add(s.ctx, b))

	var published []string
	s.store.ActiveID().Subscribe(func(id string) { published = append(published, id) })

	s.Require().NoError(s.store.SetActive(s.ctx, b.ID))
	s.Require().NoError(s.store.SetActive(s.ctx, b.ID))
	s.Equal([]string{b.ID, b.ID}, published)
}

func (s *StoreTestSuite) TestRoundTrip() {
	a, b := s.newInstance("a"), s.newInstance("b")
	s.Require().NoError(s.store.Add(s.ctx, a))
	s.Require().NoError(s.store.Add(s.ctx, b))
	s.Require().NoError(s.store.SetActive(s.ctx, b.ID))

	reopened := s.reopen()
	s.Equal(s.store.Instances(), reopened.Instances())
	s.Equal(b.ID, reopened.ActiveID().Get())
	s.Equal(b.DisplayName, reopened.Active().DisplayName)
}

func (s *StoreTestSuite) TestCorruptListLoadsEmpty() {
	s.Require().NoError(s.kv.SetString(s.ctx, instances.KeyInstances, "{not json"))
	s.Require().NoError(s.kv.SetString(s.ctx, instances.KeyActiveID, "x"))

	st := s.reopen()
	s.Empty(st.Instances())
	s.Empty(st.ActiveID().Get())
}

func (s *StoreTestSuite) TestDanglingActiveRepaired() {
	a, b := s.newInstance("a"), s.newInstance("b")
	bs, err := json.Marshal([]*instances.Instance{a, b})
	s.Require().NoError(err)
	s.Require().NoError(s.kv.SetString(s.ctx, instances.KeyInstances, string(bs)))
	s.Require().NoError(s.kv.SetString(s.ctx, instances.KeyActiveID, "gone"))

	st := s.reopen()
	s.Equal(a.ID, st.ActiveID().Get())
	stored, _ := s.kv.GetString(s.ctx, instances.KeyActiveID)
	s.Equal(a.ID, stored)
}

func (s *StoreTestSuite) TestPersistFailureLeavesStateUntouched() {
	a := s.newInstance("a")
	s.Require().NoError(s.store.Add(s.ctx, a))

	s.kv.fail = true
	b := s.newInstance("b")
	s.Error(s.store.Add(s.ctx, b))
	s.Error(s.store.Remove(s.ctx, a.ID))
	s.Equal([]string{a.ID}, s.ids())
	s.Equal(a.ID, s.store.ActiveID().Get())
}

func (s *StoreTestSuite) TestReturnedInstancesAreCopies() {
	a := s.newInstance("a")
	s.Require().NoError(s.store.Add(s.ctx, a))
	a.DisplayName = "mutated"

	got, ok := s.store.Get(a.ID)
	s.Require().True(ok)
	s.Equal("a", got.DisplayName)
	got.DisplayName = "again"
	s.Equal("a", s.store.Active().DisplayName)
}

func (s *StoreTestSuite) TestRandomOperationsKeepInvariants() {
	rnd := rand.New(rand.NewPCG(1, 2))
	var known []string
	for step := range 300 {
		switch op := rnd.IntN(3); {
		case op == 0 || len(known) == 0:
			inst := s.newInstance(fmt.Sprintf("n%d", step))
			wasEmpty := len(s.store.Instances()) == 0
			s.Require().NoError(s.store.Add(s.ctx, inst))
			known = append(known, inst.ID)
			if wasEmpty {
				s.Equal(inst.ID, s.store.ActiveID().Get())
			}
		case op == 1:
			id := known[rnd.IntN(len(known))]
			wasActive := s.store.ActiveID().Get() == id
			s.Require().NoError(s.store.Remove(s.ctx, id))
			if wasActive && len(s.store.Instances()) > 0 {
				s.Equal(s.store.Instances()[0].ID, s.store.ActiveID().Get())
			}
		default:
			s.Require().NoError(s.store.SetActive(s.ctx, known[rnd.IntN(len(known))]))
		}
		s.assertInvariants()
	}
}

func (s *StoreTestSuite) TestLegacyMigration() {
	s.Require().NoError(s.kv.SetString(s.ctx, legacyServerURL, "https://old.example.com"))
	s.Require().NoError(s.kv.SetString(s.ctx, legacyAccessToken, "acc"))
	s.Require().NoError(s.kv.SetString(s.ctx, legacyRefreshToken, "ref"))
	s.Require().NoError(s.kv.SetString(s.ctx, legacyUserData, `{"id":"u1"}`))

	st := s.reopen()
	s.Require().Len(st.Instances(), 1)
	inst := st.Active()
	s.Require().NotNil(inst)
	s.Equal("https://old.example.com", inst.ServerURL)
	s.Equal("old.example.com", inst.DisplayName)

	v, ok := s.kv.GetString(s.ctx, instances.AccessTokenKey(inst.ID))
	s.True(ok)
	s.Equal("acc", v)
	v, _ = s.kv.GetString(s.ctx, instances.RefreshTokenKey(inst.ID))
	s.Equal("ref", v)
	v, _ = s.kv.GetString(s.ctx, instances.UserDataKey(inst.ID))
	s.Equal(`{"id":"u1"}`, v)

	for _, key := range []string{legacyServerURL, legacyAccessToken, legacyRefreshToken, legacyUserData} {
		_, ok := s.kv.GetString(s.ctx, key)
		s.False(ok, key)
	}

	// second load finds the migrated list
	again := s.reopen()
	s.Equal(st.Instances(), again.Instances())
}

func (s *StoreTestSuite) TestLegacyMigrationDefaultsServer() {
	s.Require().NoError(s.kv.SetString(s.ctx, legacyAccessToken, "acc"))

	st := s.reopen()
	s.Require().NotNil(st.Active())
	s.Equal(legacyDefaultServer, st.Active().ServerURL)
}

func (s *StoreTestSuite) TestNoLegacyTokenNoMigration() {
	s.Require().NoError(s.kv.SetString(s.ctx, legacyServerURL, "https://old.example.com"))
	s.Empty(s.reopen().Instances())
}
