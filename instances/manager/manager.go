package manager

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/imtaco/bedrud-client/api"
	"github.com/imtaco/bedrud-client/auth/passkey"
	"github.com/imtaco/bedrud-client/auth/session"
	"github.com/imtaco/bedrud-client/instances"
	"github.com/imtaco/bedrud-client/internal/errors"
	"github.com/imtaco/bedrud-client/internal/httputil"
	"github.com/imtaco/bedrud-client/internal/kv"
	"github.com/imtaco/bedrud-client/internal/log"
	"github.com/imtaco/bedrud-client/internal/observe"
	intotel "github.com/imtaco/bedrud-client/internal/otel"
	"github.com/imtaco/bedrud-client/internal/validation"
	"github.com/imtaco/bedrud-client/internal/workflow"
	"github.com/imtaco/bedrud-client/meetlink"
	"github.com/imtaco/bedrud-client/room"
)

var tracer = intotel.Tracer("bedrud.instances")

type Options struct {
	Store instances.Store
	KV    kv.Store
	HTTP  *httputil.ClientConfig
	// Room is disconnected on every instance switch. Optional.
	Room room.Manager
	// Authenticator backs the passkey flows. Optional.
	Authenticator passkey.Authenticator
	Clock         clockwork.Clock
}

type addRequest struct {
	ServerURL   string `validate:"serverurl"`
	DisplayName string `validate:"displayname"`
}

type manager struct {
	opts   Options
	logger *log.Logger

	mu       sync.RWMutex
	built    bool
	activeID string
	gen      uint64
	deps     *Deps
	// genCtx is cancelled when the generation moves
	genCtx     context.Context
	genCancel  context.CancelFunc
	authCancel func()
	// authMu makes the generation check and the IsAuthenticated publish
	// one step, so a torn-down session can never publish after its
	// successor did.
	authMu sync.Mutex

	active      *observe.Value[*instances.Instance]
	authed      *observe.Value[bool]
	stopWatcher func()
}

func New(opts Options, logger *log.Logger) Manager {
	if logger == nil {
		panic("logger is nil")
	}
	if opts.Store == nil || opts.KV == nil {
		panic("store is nil")
	}
	if opts.HTTP == nil {
		opts.HTTP = httputil.DefaultClientConfig()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	m := &manager{
		opts:   opts,
		logger: logger,
		active: observe.NewValue[*instances.Instance](nil),
		authed: observe.NewComparable(false),
	}
	m.genCtx, m.genCancel = context.WithCancel(context.Background())
	m.stopWatcher = opts.Store.ActiveID().Watch(m.onActiveID)
	return m
}

func (m *manager) Close() {
	m.stopWatcher()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.genCancel()
	if m.authCancel != nil {
		m.authCancel()
		m.authCancel = nil
	}
}

// onActiveID runs on the goroutine that changed the store.
func (m *manager) onActiveID(id string) {
	m.mu.Lock()
	if m.built && id == m.activeID {
		m.mu.Unlock()
		return
	}
	m.built = true
	m.activeID = id
	m.gen++
	gen := m.gen

	m.genCancel()
	m.genCtx, m.genCancel = context.WithCancel(context.Background())
	if m.authCancel != nil {
		m.authCancel()
		m.authCancel = nil
	}

	var inst *instances.Instance
	if id != "" {
		inst, _ = m.opts.Store.Get(id)
	}
	var deps *Deps
	if inst != nil {
		deps = m.build(gen, inst)
	}
	m.deps = deps
	m.mu.Unlock()

	rebuilds.Add(context.Background(), 1, metric.WithAttributes(attribute.Bool("empty", deps == nil)))
	m.logger.Info("dependencies rebuilt", log.Instance(id), log.Uint64("gen", gen))

	if m.opts.Room != nil {
		m.opts.Room.Disconnect(context.Background())
	}
	m.active.Set(inst)

	if deps == nil {
		m.authMu.Lock()
		if m.currentGen() == gen {
			m.authed.Set(false)
		}
		m.authMu.Unlock()
		return
	}
	cancel := deps.Auth.LoggedIn().Watch(func(loggedIn bool) {
		m.authMu.Lock()
		defer m.authMu.Unlock()
		if m.currentGen() == gen {
			m.authed.Set(loggedIn)
		}
	})
	m.mu.Lock()
	if m.gen == gen {
		m.authCancel = cancel
		cancel = nil
	}
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (m *manager) build(gen uint64, inst *instances.Instance) *Deps {
	logger := m.logger.Module("Instance")
	ctx := context.Background()

	client := api.New(inst.APIBaseURL(), m.opts.HTTP, logger)
	authAPI := api.NewAuthAPI(client)
	sess := session.New(ctx, inst.ID, m.opts.KV, authAPI, logger)
	client.SetTokenSource(sess)

	return &Deps{
		Generation: gen,
		Instance:   inst,
		Client:     client,
		AuthAPI:    authAPI,
		Auth:       sess,
		Rooms:      api.NewRoomAPI(client),
		Passkeys:   passkey.New(authAPI, sess, m.opts.Authenticator, logger),
	}
}

func (m *manager) currentGen() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gen
}

// scoped derives a context that is also cancelled when the active
// instance changes, and returns the generation it is bound to.
func (m *manager) scoped(ctx context.Context) (context.Context, uint64, *Deps, context.CancelFunc) {
	m.mu.RLock()
	gen, deps, genCtx := m.gen, m.deps, m.genCtx
	m.mu.RUnlock()
	ctx, cancel := workflow.WithEitherDone(ctx, genCtx)
	return ctx, gen, deps, cancel
}

// stale reports whether gen is no longer current, counting the discard.
func (m *manager) stale(ctx context.Context, gen uint64, op string) bool {
	if m.currentGen() == gen {
		return false
	}
	staleDiscarded.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	m.logger.Debug("discard stale completion", log.String("op", op), log.Uint64("gen", gen))
	return true
}

func (m *manager) Deps() *Deps {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.deps
}

func (m *manager) ActiveInstance() *observe.Value[*instances.Instance] {
	return m.active
}

func (m *manager) IsAuthenticated() *observe.Value[bool] {
	return m.authed
}

func (m *manager) Instances() []*instances.Instance {
	return m.opts.Store.Instances()
}

func (m *manager) Active() *instances.Instance {
	return m.opts.Store.Active()
}

func (m *manager) SetActive(ctx context.Context, id string) error {
	return m.opts.Store.SetActive(ctx, id)
}

func normalizeServerURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

func (m *manager) CheckHealth(ctx context.Context, serverURL string) (*api.HealthResponse, error) {
	req := addRequest{ServerURL: normalizeServerURL(serverURL)}
	if err := validation.Struct(&req); err != nil {
		return nil, err
	}
	return api.CheckHealth(ctx, req.ServerURL, m.opts.HTTP, m.logger)
}

func (m *manager) AddInstance(ctx context.Context, serverURL, displayName string) (*instances.Instance, error) {
	req := addRequest{
		ServerURL:   normalizeServerURL(serverURL),
		DisplayName: strings.TrimSpace(displayName),
	}
	if err := validation.Struct(&req); err != nil {
		return nil, err
	}
	if req.DisplayName == "" {
		if u, err := url.Parse(req.ServerURL); err == nil {
			req.DisplayName = u.Host
		}
	}

	ctx, span := intotel.StartSpan(ctx, tracer, "AddInstance", attribute.String("server_url", req.ServerURL))
	defer span.End()

	scopedCtx, gen, _, cancel := m.scoped(ctx)
	defer cancel()

	if _, err := api.CheckHealth(scopedCtx, req.ServerURL, m.opts.HTTP, m.logger); err != nil {
		if m.stale(ctx, gen, "add_instance") {
			return nil, errors.Wrap(instances.ErrStale, err, "add instance")
		}
		intotel.RecordError(span, err)
		return nil, err
	}
	if m.stale(ctx, gen, "add_instance") {
		return nil, errors.New(instances.ErrStale, "active instance changed during health check")
	}

	inst := instances.New(req.ServerURL, req.DisplayName, m.opts.Clock)
	if err := m.opts.Store.Add(ctx, inst); err != nil {
		intotel.RecordError(span, err)
		return nil, err
	}
	if err := m.opts.Store.SetActive(ctx, inst.ID); err != nil {
		intotel.RecordError(span, err)
		return nil, err
	}
	return inst, nil
}

func (m *manager) RemoveInstance(ctx context.Context, id string) error {
	if deps := m.Deps(); deps != nil && deps.Instance.ID == id {
		if deps.Auth.IsAuthenticated() {
			if err := deps.AuthAPI.Logout(ctx); err != nil {
				m.logger.Debug("server logout failed", log.Instance(id), log.Error(err))
			}
		}
		deps.Auth.Logout(ctx)
	}
	return m.opts.Store.Remove(ctx, id)
}

func (m *manager) MatchLink(link *meetlink.MeetingLink) (*instances.Instance, bool) {
	if link == nil {
		return nil, false
	}
	for _, inst := range m.opts.Store.Instances() {
		if meetlink.SameServer(inst.ServerURL, link.ServerBaseURL) {
			return inst, true
		}
	}
	return nil, false
}

func (m *manager) JoinRoom(ctx context.Context, roomName string) (*api.JoinRoomResponse, error) {
	ctx, span := intotel.StartSpan(ctx, tracer, "JoinRoom", attribute.String("room", roomName))
	defer span.End()

	scopedCtx, gen, deps, cancel := m.scoped(ctx)
	defer cancel()
	if deps == nil {
		return nil, errors.New(instances.ErrNoInstance, "join room")
	}

	resp, err := deps.Rooms.Join(scopedCtx, roomName)
	if m.stale(ctx, gen, "join") {
		return nil, errors.Newf(instances.ErrStale, "join %s: active instance changed", roomName)
	}
	if err != nil {
		intotel.RecordError(span, err)
		return nil, err
	}

	if m.opts.Room != nil {
		// the room belongs to whichever instance is active; a switch
		// disconnects it, so only the current generation may connect it
		current := func() bool { return m.currentGen() == gen }
		if err := m.opts.Room.ConnectIf(scopedCtx, resp.LivekitHost, resp.Token, current); err != nil {
			if m.stale(ctx, gen, "connect") {
				return nil, errors.Wrap(instances.ErrStale, err, "connect room")
			}
			intotel.RecordError(span, err)
			return nil, err
		}
		if m.stale(ctx, gen, "connect") {
			return nil, errors.Newf(instances.ErrStale, "join %s: active instance changed", roomName)
		}
	}
	m.logger.Info("joined room", log.Room(roomName), log.Instance(deps.Instance.ID))
	return resp, nil
}

func (m *manager) GuestJoin(ctx context.Context, rawLink, guestName string) (*api.JoinRoomResponse, error) {
	link, err := meetlink.Parse(rawLink)
	if err != nil {
		return nil, err
	}

	inst, ok := m.MatchLink(link)
	if ok {
		if err := m.SetActive(ctx, inst.ID); err != nil {
			return nil, err
		}
	} else {
		if inst, err = m.AddInstance(ctx, link.ServerBaseURL, ""); err != nil {
			return nil, err
		}
	}

	deps := m.Deps()
	if deps == nil || deps.Instance.ID != inst.ID {
		return nil, errors.New(instances.ErrStale, "active instance changed before guest login")
	}
	if !deps.Auth.IsAuthenticated() {
		if _, err := deps.Auth.GuestLogin(ctx, guestName); err != nil {
			return nil, err
		}
	}
	return m.JoinRoom(ctx, link.RoomName)
}
