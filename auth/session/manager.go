package session

import (
	"context"
	"encoding/json"
	"slices"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"github.com/imtaco/bedrud-client/api"
	"github.com/imtaco/bedrud-client/auth"
	"github.com/imtaco/bedrud-client/instances"
	"github.com/imtaco/bedrud-client/internal/errors"
	"github.com/imtaco/bedrud-client/internal/jwt"
	"github.com/imtaco/bedrud-client/internal/kv"
	"github.com/imtaco/bedrud-client/internal/log"
	"github.com/imtaco/bedrud-client/internal/observe"
)

const refreshKey = "refresh"

type manager struct {
	instanceID string
	kv         kv.Store
	api        api.AuthAPI
	logger     *log.Logger
	flight     singleflight.Group

	// pubMu orders persistence with the LoggedIn/CurrentUser notifications
	pubMu sync.Mutex
	mu    sync.RWMutex
	sess  auth.Session
	// epoch moves on every SaveTokens and Logout; a refresh started under an
	// older epoch must not overwrite the newer tokens.
	epoch uint64

	loggedIn *observe.Value[bool]
	user     *observe.Value[*auth.User]
}

var (
	_ auth.Manager    = (*manager)(nil)
	_ api.TokenSource = (*manager)(nil)
)

// Manager is an auth.Manager that can also feed credentials to an
// api.Client.
type Manager interface {
	auth.Manager
	api.TokenSource
}

// New restores the session persisted for instanceID. Unreadable user data
// is dropped; tokens stay.
func New(ctx context.Context, instanceID string, kvStore kv.Store, authAPI api.AuthAPI, logger *log.Logger) Manager {
	if logger == nil {
		panic("logger is nil")
	}
	m := &manager{
		instanceID: instanceID,
		kv:         kvStore,
		api:        authAPI,
		logger:     logger,
	}
	m.sess = m.load(ctx)
	m.loggedIn = observe.NewComparable(m.sess.IsLoggedIn())
	m.user = observe.NewValue(m.sess.User)
	return m
}

func (m *manager) load(ctx context.Context) auth.Session {
	var sess auth.Session
	sess.AccessToken, _ = m.kv.GetString(ctx, instances.AccessTokenKey(m.instanceID))
	sess.RefreshToken, _ = m.kv.GetString(ctx, instances.RefreshTokenKey(m.instanceID))

	raw, ok := m.kv.GetString(ctx, instances.UserDataKey(m.instanceID))
	if !ok {
		return sess
	}
	var u auth.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		m.logger.Warn("drop unreadable user data", log.Instance(m.instanceID), log.Error(err))
		return sess
	}
	sess.User = &u
	return sess
}

func (m *manager) InstanceID() string {
	return m.instanceID
}

func (m *manager) SaveTokens(ctx context.Context, access, refresh string) error {
	_, err := m.saveTokens(ctx, access, refresh, nil)
	return err
}

// saveTokens persists the pair and returns the new epoch. With expect set
// the save only happens if no other save or logout ran in between.
func (m *manager) saveTokens(ctx context.Context, access, refresh string, expect *uint64) (uint64, error) {
	if access == "" {
		return 0, errors.New(errors.ErrValidation, "access token is empty")
	}

	m.pubMu.Lock()
	defer m.pubMu.Unlock()

	if expect != nil && m.currentEpoch() != *expect {
		return 0, instances.ErrStale
	}

	if err := m.kv.SetString(ctx, instances.AccessTokenKey(m.instanceID), access); err != nil {
		return 0, err
	}
	if refresh != "" {
		if err := m.kv.SetString(ctx, instances.RefreshTokenKey(m.instanceID), refresh); err != nil {
			return 0, err
		}
	}

	m.mu.Lock()
	m.sess.AccessToken = access
	if refresh != "" {
		m.sess.RefreshToken = refresh
	}
	m.epoch++
	epoch := m.epoch
	m.mu.Unlock()

	m.loggedIn.Set(true)
	return epoch, nil
}

func (m *manager) SaveUser(ctx context.Context, user *auth.User) error {
	m.pubMu.Lock()
	defer m.pubMu.Unlock()

	key := instances.UserDataKey(m.instanceID)
	if user == nil {
		if err := m.kv.Remove(ctx, key); err != nil {
			return err
		}
	} else {
		bs, err := json.Marshal(user)
		if err != nil {
			return errors.Wrap(errors.ErrValidation, err, "encode user")
		}
		if err := m.kv.SetString(ctx, key, string(bs)); err != nil {
			return err
		}
		cp := *user
		user = &cp
	}

	m.mu.Lock()
	m.sess.User = user
	m.mu.Unlock()

	m.user.Set(user)
	return nil
}

func (m *manager) Logout(ctx context.Context) {
	m.pubMu.Lock()
	defer m.pubMu.Unlock()

	for _, key := range instances.SessionKeys(m.instanceID) {
		if err := m.kv.Remove(ctx, key); err != nil {
			m.logger.Warn("remove session key", log.String("key", key), log.Error(err))
		}
	}

	m.mu.Lock()
	wasLoggedIn := m.sess.IsLoggedIn()
	m.sess = auth.Session{}
	m.epoch++
	m.mu.Unlock()

	if wasLoggedIn {
		logouts.Add(ctx, 1)
		m.logger.Info("logged out", log.Instance(m.instanceID))
	}
	m.loggedIn.Set(false)
	m.user.Set(nil)
}

func (m *manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sess.IsLoggedIn()
}

func (m *manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sess.AccessToken
}

func (m *manager) Session() auth.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess := m.sess
	if sess.User != nil {
		cp := *sess.User
		sess.User = &cp
	}
	return sess
}

func (m *manager) currentEpoch() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.epoch
}

func (m *manager) LoggedIn() *observe.Value[bool] {
	return m.loggedIn
}

func (m *manager) CurrentUser() *observe.Value[*auth.User] {
	return m.user
}

func (m *manager) Login(ctx context.Context, email, password string) (*auth.User, error) {
	resp, err := m.api.Login(ctx, &api.LoginRequest{Email: email, Password: password})
	if err != nil {
		countLogin(ctx, "password", err)
		return nil, err
	}
	user, err := m.complete(ctx, resp)
	countLogin(ctx, "password", err)
	return user, err
}

func (m *manager) GuestLogin(ctx context.Context, name string) (*auth.User, error) {
	resp, err := m.api.GuestLogin(ctx, &api.GuestLoginRequest{Name: name})
	if err != nil {
		countLogin(ctx, "guest", err)
		return nil, err
	}
	user, err := m.complete(ctx, resp)
	countLogin(ctx, "guest", err)
	return user, err
}

// complete stores the tokens and user of a login style response.
func (m *manager) complete(ctx context.Context, resp *api.LoginResponse) (*auth.User, error) {
	if err := m.SaveTokens(ctx, resp.Tokens.AccessToken, resp.Tokens.RefreshToken); err != nil {
		return nil, err
	}
	user := resp.User
	if err := m.SaveUser(ctx, &user); err != nil {
		return nil, err
	}
	m.logger.Info("logged in", log.Instance(m.instanceID), log.String("userId", user.ID))
	return &user, nil
}

// Register only gets tokens back, so the user comes from the access token
// claims, falling back to /auth/me.
func (m *manager) Register(ctx context.Context, email, password, name string) (*auth.User, error) {
	pair, err := m.api.Register(ctx, &api.RegisterRequest{Email: email, Password: password, Name: name})
	if err != nil {
		countLogin(ctx, "register", err)
		return nil, err
	}
	if err := m.SaveTokens(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		countLogin(ctx, "register", err)
		return nil, err
	}

	user, err := userFromToken(pair.AccessToken)
	if err != nil {
		m.logger.Debug("fall back to /auth/me", log.Error(err))
		user, err = m.FetchCurrentUser(ctx)
		countLogin(ctx, "register", err)
		return user, err
	}
	err = m.SaveUser(ctx, user)
	countLogin(ctx, "register", err)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func userFromToken(token string) (*auth.User, error) {
	claims, err := jwt.Decode(token)
	if err != nil {
		return nil, err
	}
	u := &auth.User{
		ID:      claims.UserID,
		Email:   claims.Email,
		Name:    claims.Name,
		IsAdmin: slices.Contains(claims.Accesses, "admin"),
	}
	if claims.Provider != "" {
		provider := claims.Provider
		u.Provider = &provider
	}
	return u, nil
}

func (m *manager) FetchCurrentUser(ctx context.Context) (*auth.User, error) {
	user, err := m.api.Me(ctx)
	if err != nil {
		return nil, err
	}
	if err := m.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// RefreshAccessToken collapses concurrent callers into one request. The
// request outlives a cancelled caller; the HTTP client timeout bounds it.
func (m *manager) RefreshAccessToken(ctx context.Context) (string, error) {
	ch := m.flight.DoChan(refreshKey, func() (any, error) {
		return m.refresh(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (m *manager) refresh(ctx context.Context) (string, error) {
	m.mu.RLock()
	token := m.sess.RefreshToken
	epoch := m.epoch
	m.mu.RUnlock()

	if token == "" {
		refreshes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "no_token")))
		m.Logout(ctx)
		return "", errors.New(errors.ErrAuth, "no refresh token")
	}

	pair, err := m.api.Refresh(ctx, token)
	if err != nil {
		if m.currentEpoch() != epoch {
			return "", errors.Wrap(instances.ErrStale, err, "refresh superseded")
		}
		refreshes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "failed")))
		m.logger.Warn("refresh failed, logging out", log.Instance(m.instanceID), log.Error(err))
		m.Logout(ctx)
		return "", errors.Wrap(errors.ErrAuth, err, "refresh access token")
	}

	if _, err := m.saveTokens(ctx, pair.AccessToken, pair.RefreshToken, &epoch); err != nil {
		if errors.Is(err, instances.ErrStale) {
			m.logger.Debug("discard refresh result, session changed meanwhile", log.Instance(m.instanceID))
		}
		return "", err
	}
	refreshes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ok")))
	return pair.AccessToken, nil
}

func countLogin(ctx context.Context, method string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(errors.CodeOf(err))
	}
	logins.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("outcome", outcome),
	))
}
