package store

import (
	"context"
	"encoding/json"
	"net/url"
	"slices"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/imtaco/bedrud-client/instances"
	"github.com/imtaco/bedrud-client/internal/errors"
	"github.com/imtaco/bedrud-client/internal/kv"
	"github.com/imtaco/bedrud-client/internal/log"
	"github.com/imtaco/bedrud-client/internal/observe"
)

type registry struct {
	list   []*instances.Instance
	active string
}

func (r registry) index(id string) int {
	return slices.IndexFunc(r.list, func(i *instances.Instance) bool { return i.ID == id })
}

func (r registry) clone() registry {
	return registry{list: slices.Clone(r.list), active: r.active}
}

// repair enforces the active-id invariants.
func (r *registry) repair() {
	if len(r.list) == 0 {
		r.active = ""
		return
	}
	if r.active == "" || r.index(r.active) < 0 {
		r.active = r.list[0].ID
	}
}

type storeImpl struct {
	kv     kv.Store
	clock  clockwork.Clock
	logger *log.Logger

	// pubMu keeps persisted state and ActiveID notifications in the same order
	pubMu sync.Mutex
	mu    sync.RWMutex
	reg   registry

	activeID *observe.Value[string]
}

// New loads the registry from kvStore. Missing or unreadable data yields an
// empty registry.
func New(ctx context.Context, kvStore kv.Store, clock clockwork.Clock, logger *log.Logger) instances.Store {
	if logger == nil {
		panic("logger is nil")
	}
	s := &storeImpl{
		kv:     kvStore,
		clock:  clock,
		logger: logger,
	}
	s.reg = s.load(ctx)
	s.activeID = observe.NewValue(s.reg.active)
	return s
}

func (s *storeImpl) load(ctx context.Context) registry {
	raw, ok := s.kv.GetString(ctx, instances.KeyInstances)
	if !ok {
		if reg, migrated := s.migrateLegacy(ctx); migrated {
			return reg
		}
		return registry{}
	}

	var reg registry
	if err := json.Unmarshal([]byte(raw), &reg.list); err != nil {
		s.logger.Warn("corrupt instance list, starting empty", log.Error(err))
		return registry{}
	}
	reg.list = slices.DeleteFunc(reg.list, func(i *instances.Instance) bool { return i == nil || i.ID == "" })

	reg.active, _ = s.kv.GetString(ctx, instances.KeyActiveID)
	stored := reg.active
	reg.repair()
	if reg.active != stored {
		s.logger.Info("repaired active instance",
			log.String("stored", stored),
			log.Instance(reg.active))
		if err := s.persist(ctx, reg); err != nil {
			s.logger.Warn("persist repaired registry", log.Error(err))
		}
	}
	return reg
}

func (s *storeImpl) persist(ctx context.Context, reg registry) error {
	bs, err := json.Marshal(reg.list)
	if err != nil {
		return errors.Wrap(errors.ErrValidation, err, "encode instances")
	}
	if err := s.kv.SetString(ctx, instances.KeyInstances, string(bs)); err != nil {
		return err
	}
	if reg.active == "" {
		return s.kv.Remove(ctx, instances.KeyActiveID)
	}
	return s.kv.SetString(ctx, instances.KeyActiveID, reg.active)
}

// commit persists next and swaps it in. Callers hold pubMu.
func (s *storeImpl) commit(ctx context.Context, next registry) (prevActive string, err error) {
	if err := s.persist(ctx, next); err != nil {
		return "", err
	}
	s.mu.Lock()
	prevActive = s.reg.active
	s.reg = next
	s.mu.Unlock()
	return prevActive, nil
}

func (s *storeImpl) snapshot() registry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reg.clone()
}

func (s *storeImpl) Add(ctx context.Context, inst *instances.Instance) error {
	if inst == nil || inst.ID == "" {
		return errors.New(errors.ErrValidation, "instance without id")
	}

	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	next := s.snapshot()
	if next.index(inst.ID) >= 0 {
		return errors.Newf(instances.ErrDuplicateID, "instance %s already registered", inst.ID)
	}
	cp := *inst
	next.list = append(next.list, &cp)
	next.repair()

	prev, err := s.commit(ctx, next)
	if err != nil {
		return err
	}
	s.logger.Info("instance added", log.Instance(inst.ID), log.String("server_url", inst.ServerURL))
	if prev != next.active {
		s.activeID.Set(next.active)
	}
	return nil
}

func (s *storeImpl) Remove(ctx context.Context, id string) error {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	next := s.snapshot()
	idx := next.index(id)
	if idx < 0 {
		return nil
	}
	next.list = slices.Delete(next.list, idx, idx+1)
	next.repair()

	prev, err := s.commit(ctx, next)
	if err != nil {
		return err
	}
	for _, key := range instances.SessionKeys(id) {
		if err := s.kv.Remove(ctx, key); err != nil {
			s.logger.Warn("remove session key", log.Instance(id), log.String("key", key), log.Error(err))
		}
	}
	s.logger.Info("instance removed", log.Instance(id))
	if prev != next.active {
		s.activeID.Set(next.active)
	}
	return nil
}

func (s *storeImpl) SetActive(ctx context.Context, id string) error {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	next := s.snapshot()
	if next.index(id) < 0 {
		s.logger.Debug("ignore activation of unknown instance", log.Instance(id))
		return nil
	}
	next.active = id
	if _, err := s.commit(ctx, next); err != nil {
		return err
	}
	s.activeID.Set(id)
	return nil
}

func (s *storeImpl) Active() *instances.Instance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.reg.index(s.reg.active); idx >= 0 {
		cp := *s.reg.list[idx]
		return &cp
	}
	return nil
}

func (s *storeImpl) Get(id string) (*instances.Instance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.reg.index(id); idx >= 0 {
		cp := *s.reg.list[idx]
		return &cp, true
	}
	return nil, false
}

func (s *storeImpl) Instances() []*instances.Instance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*instances.Instance, len(s.reg.list))
	for i, inst := range s.reg.list {
		cp := *inst
		out[i] = &cp
	}
	return out
}

func (s *storeImpl) ActiveID() *observe.Value[string] {
	return s.activeID
}

func hostOf(serverURL string) string {
	if u, err := url.Parse(serverURL); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return serverURL
}
