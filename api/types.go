package api

import (
	"context"
	"encoding/json"

	"github.com/imtaco/bedrud-client/auth"
)

// TokenSource supplies credentials to authenticated requests.
type TokenSource interface {
	AccessToken() string
	RefreshAccessToken(ctx context.Context) (string, error)
	Logout(ctx context.Context)
}

type AuthAPI interface {
	Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error)
	GuestLogin(ctx context.Context, req *GuestLoginRequest) (*LoginResponse, error)
	Register(ctx context.Context, req *RegisterRequest) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Me(ctx context.Context) (*auth.User, error)
	// Logout tells the server to drop the refresh token. Callers treat it
	// as best effort.
	Logout(ctx context.Context) error

	PasskeyLoginBegin(ctx context.Context) (PasskeyOptions, error)
	PasskeyLoginFinish(ctx context.Context, cred PasskeyCredential) (*LoginResponse, error)
	PasskeySignupBegin(ctx context.Context, req *PasskeySignupRequest) (PasskeyOptions, error)
	PasskeySignupFinish(ctx context.Context, cred PasskeyCredential) (*LoginResponse, error)
	PasskeyRegisterBegin(ctx context.Context) (PasskeyOptions, error)
	PasskeyRegisterFinish(ctx context.Context, cred PasskeyCredential) error
}

type RoomAPI interface {
	Create(ctx context.Context, req *CreateRoomRequest) (*Room, error)
	Join(ctx context.Context, roomName string) (*JoinRoomResponse, error)
	List(ctx context.Context) ([]*UserRoom, error)

	Kick(ctx context.Context, roomID, identity string) error
	Mute(ctx context.Context, roomID, identity string) error
	DisableVideo(ctx context.Context, roomID, identity string) error
	BringToStage(ctx context.Context, roomID, identity string) error
	RemoveFromStage(ctx context.Context, roomID, identity string) error
	UpdateSettings(ctx context.Context, roomID string, settings *RoomSettings) error
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type GuestLoginRequest struct {
	Name string `json:"name" validate:"guestname"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required,max=64"`
}

type AuthTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type LoginResponse struct {
	Tokens AuthTokens `json:"tokens"`
	User   auth.User  `json:"user"`
}

// TokenPair is the snake_case token body of register and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type PasskeySignupRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required,max=64"`
}

// PasskeyOptions and PasskeyCredential are WebAuthn documents passed
// through untouched between server and authenticator.
type (
	PasskeyOptions    = json.RawMessage
	PasskeyCredential = json.RawMessage
)

type RoomSettings struct {
	AllowChat       bool `json:"allowChat"`
	AllowVideo      bool `json:"allowVideo"`
	AllowAudio      bool `json:"allowAudio"`
	RequireApproval bool `json:"requireApproval"`
	E2EE            bool `json:"e2ee"`
}

func DefaultRoomSettings() RoomSettings {
	return RoomSettings{AllowChat: true, AllowVideo: true, AllowAudio: true}
}

type CreateRoomRequest struct {
	Name            string        `json:"name,omitempty" validate:"omitempty,roomname"`
	MaxParticipants *int          `json:"maxParticipants,omitempty" validate:"omitempty,min=1"`
	IsPublic        *bool         `json:"isPublic,omitempty"`
	Mode            string        `json:"mode,omitempty"`
	Settings        *RoomSettings `json:"settings,omitempty"`
}

type JoinRoomRequest struct {
	RoomName string `json:"roomName" validate:"roomname"`
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
	Settings        RoomSettings   `json:"settings"`
	Relationship    string         `json:"relationship,omitempty"`
	Mode            string         `json:"mode"`
	Participants    []*Participant `json:"participants,omitempty"`
}

type Participant struct {
	ID            string `json:"id"`
	UserID        string `json:"userId"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	JoinedAt      string `json:"joinedAt"`
	IsActive      bool   `json:"isActive"`
	IsMuted       bool   `json:"isMuted"`
	IsVideoOff    bool   `json:"isVideoOff"`
	IsChatBlocked bool   `json:"isChatBlocked"`
	Permissions   string `json:"permissions"`
}

// JoinRoomResponse carries the media token and the media server host.
type JoinRoomResponse struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Token           string       `json:"token"`
	LivekitHost     string       `json:"livekitHost"`
	CreatedBy       string       `json:"createdBy"`
	AdminID         string       `json:"adminId"`
	IsActive        bool         `json:"isActive"`
	IsPublic        bool         `json:"isPublic"`
	MaxParticipants int          `json:"maxParticipants"`
	ExpiresAt       string       `json:"expiresAt"`
	Settings        RoomSettings `json:"settings"`
	Mode            string       `json:"mode"`
}

type UserRoom struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	CreatedBy       string       `json:"createdBy"`
	IsActive        bool         `json:"isActive"`
	MaxParticipants int          `json:"maxParticipants"`
	ExpiresAt       string       `json:"expiresAt"`
	Settings        RoomSettings `json:"settings"`
	Relationship    string       `json:"relationship"`
	Mode            string       `json:"mode"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
