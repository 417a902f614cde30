// Package passkey drives WebAuthn login, signup and credential
// registration against a Bedrud server. The platform authenticator is
// supplied by the caller.
package passkey

import (
	"context"

	"github.com/imtaco/bedrud-client/api"
	"github.com/imtaco/bedrud-client/auth"
	"github.com/imtaco/bedrud-client/internal/errors"
	"github.com/imtaco/bedrud-client/internal/log"
)

// Authenticator turns server options into a signed credential.
type Authenticator interface {
	// Assert answers a login challenge with an existing credential.
	Assert(ctx context.Context, opts api.PasskeyOptions) (api.PasskeyCredential, error)
	// Create makes a new credential for signup or registration.
	Create(ctx context.Context, opts api.PasskeyOptions) (api.PasskeyCredential, error)
}

type manager struct {
	api     api.AuthAPI
	session auth.Manager
	authn   Authenticator
	logger  *log.Logger
}

func New(authAPI api.AuthAPI, session auth.Manager, authn Authenticator, logger *log.Logger) auth.PasskeyManager {
	if logger == nil {
		panic("logger is nil")
	}
	return &manager{
		api:     authAPI,
		session: session,
		authn:   authn,
		logger:  logger,
	}
}

func (m *manager) LoginWithPasskey(ctx context.Context) (*auth.User, error) {
	if m.authn == nil {
		return nil, errors.New(errors.ErrValidation, "no passkey authenticator")
	}
	opts, err := m.api.PasskeyLoginBegin(ctx)
	if err != nil {
		return nil, err
	}
	cred, err := m.authn.Assert(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrAuth, err, "passkey assertion")
	}
	resp, err := m.api.PasskeyLoginFinish(ctx, cred)
	if err != nil {
		return nil, err
	}
	return m.store(ctx, resp)
}

func (m *manager) SignupWithPasskey(ctx context.Context, email, name string) (*auth.User, error) {
	if m.authn == nil {
		return nil, errors.New(errors.ErrValidation, "no passkey authenticator")
	}
	opts, err := m.api.PasskeySignupBegin(ctx, &api.PasskeySignupRequest{Email: email, Name: name})
	if err != nil {
		return nil, err
	}
	cred, err := m.authn.Create(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrAuth, err, "passkey creation")
	}
	resp, err := m.api.PasskeySignupFinish(ctx, cred)
	if err != nil {
		return nil, err
	}
	return m.store(ctx, resp)
}

func (m *manager) RegisterPasskey(ctx context.Context) error {
	if m.authn == nil {
		return errors.New(errors.ErrValidation, "no passkey authenticator")
	}
	if !m.session.IsAuthenticated() {
		return errors.New(errors.ErrAuth, "login required to register a passkey")
	}
	opts, err := m.api.PasskeyRegisterBegin(ctx)
	if err != nil {
		return err
	}
	cred, err := m.authn.Create(ctx, opts)
	if err != nil {
		return errors.Wrap(errors.ErrAuth, err, "passkey creation")
	}
	if err := m.api.PasskeyRegisterFinish(ctx, cred); err != nil {
		return err
	}
	m.logger.Info("passkey registered", log.Instance(m.session.InstanceID()))
	return nil
}

func (m *manager) store(ctx context.Context, resp *api.LoginResponse) (*auth.User, error) {
	if err := m.session.SaveTokens(ctx, resp.Tokens.AccessToken, resp.Tokens.RefreshToken); err != nil {
		return nil, err
	}
	user := resp.User
	if err := m.session.SaveUser(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
