package api

import (
	"context"
	"net/http"

	"github.com/imtaco/bedrud-client/auth"
	"github.com/imtaco/bedrud-client/internal/validation"
)

type authAPI struct {
	c *Client
}

func NewAuthAPI(c *Client) AuthAPI {
	return &authAPI{c: c}
}

func (a *authAPI) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	var out LoginResponse
	if err := a.c.do(ctx, call{method: http.MethodPost, path: "/auth/login", body: req, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *authAPI) GuestLogin(ctx context.Context, req *GuestLoginRequest) (*LoginResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	var out LoginResponse
	if err := a.c.do(ctx, call{method: http.MethodPost, path: "/auth/guest-login", body: req, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *authAPI) Register(ctx context.Context, req *RegisterRequest) (*TokenPair, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	var out TokenPair
	if err := a.c.do(ctx, call{method: http.MethodPost, path: "/auth/register", body: req, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh goes out unauthenticated so a 401 here never recurses into
// another refresh.
func (a *authAPI) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var out TokenPair
	err := a.c.do(ctx, call{
		method: http.MethodPost,
		path:   "/auth/refresh",
		body:   &RefreshRequest{RefreshToken: refreshToken},
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *authAPI) Me(ctx context.Context) (*auth.User, error) {
	var out auth.User
	if err := a.c.do(ctx, call{method: http.MethodGet, path: "/auth/me", out: &out, authed: true}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *authAPI) Logout(ctx context.Context) error {
	return a.c.do(ctx, call{method: http.MethodPost, path: "/auth/logout", authed: true})
}

func (a *authAPI) PasskeyLoginBegin(ctx context.Context) (PasskeyOptions, error) {
	var out PasskeyOptions
	if err := a.c.do(ctx, call{method: http.MethodPost, path: "/auth/passkey/login/begin", out: &out}); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *authAPI) PasskeyLoginFinish(ctx context.Context, cred PasskeyCredential) (*LoginResponse, error) {
	var out LoginResponse
	if err := a.c.do(ctx, call{method: http.MethodPost, path: "/auth/passkey/login/finish", body: cred, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *authAPI) PasskeySignupBegin(ctx context.Context, req *PasskeySignupRequest) (PasskeyOptions, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	var out PasskeyOptions
	if err := a.c.do(ctx, call{method: http.MethodPost, path: "/auth/passkey/signup/begin", body: req, out: &out}); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *authAPI) PasskeySignupFinish(ctx context.Context, cred PasskeyCredential) (*LoginResponse, error) {
	var out LoginResponse
	if err := a.c.do(ctx, call{method: http.MethodPost, path: "/auth/passkey/signup/finish", body: cred, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *authAPI) PasskeyRegisterBegin(ctx context.Context) (PasskeyOptions, error) {
	var out PasskeyOptions
	err := a.c.do(ctx, call{method: http.MethodPost, path: "/auth/passkey/register/begin", out: &out, authed: true})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *authAPI) PasskeyRegisterFinish(ctx context.Context, cred PasskeyCredential) error {
	return a.c.do(ctx, call{method: http.MethodPost, path: "/auth/passkey/register/finish", body: cred, authed: true})
}
