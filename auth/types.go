package auth

import (
	"context"

	"github.com/imtaco/bedrud-client/internal/observe"
)

type User struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
	IsAdmin   bool    `json:"isAdmin"`
	Provider  *string `json:"provider,omitempty"`
}

// Session is what one instance remembers about its login.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *User
}

func (s Session) IsLoggedIn() bool {
	return s.AccessToken != ""
}

// Manager owns the session of a single instance. Storage keys are
// namespaced by instance id.
type Manager interface {
	InstanceID() string

	SaveTokens(ctx context.Context, access, refresh string) error
	SaveUser(ctx context.Context, user *User) error
	// Logout clears tokens and user. It is idempotent and never fails.
	Logout(ctx context.Context)
	IsAuthenticated() bool
	AccessToken() string
	Session() Session

	LoggedIn() *observe.Value[bool]
	CurrentUser() *observe.Value[*User]

	Login(ctx context.Context, email, password string) (*User, error)
	Register(ctx context.Context, email, password, name string) (*User, error)
	GuestLogin(ctx context.Context, name string) (*User, error)
	FetchCurrentUser(ctx context.Context) (*User, error)
	// RefreshAccessToken exchanges the refresh token. Concurrent callers
	// share one request; a failure logs the session out.
	RefreshAccessToken(ctx context.Context) (string, error)
}

// PasskeyManager runs the WebAuthn ceremonies of one instance and stores
// the resulting session in its Manager.
type PasskeyManager interface {
	LoginWithPasskey(ctx context.Context) (*User, error)
	SignupWithPasskey(ctx context.Context, email, name string) (*User, error)
	// RegisterPasskey adds a credential to the logged in account.
	RegisterPasskey(ctx context.Context) error
}
