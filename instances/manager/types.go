package manager

import (
	"context"

	"github.com/imtaco/bedrud-client/api"
	"github.com/imtaco/bedrud-client/auth"
	"github.com/imtaco/bedrud-client/instances"
	"github.com/imtaco/bedrud-client/internal/observe"
	"github.com/imtaco/bedrud-client/meetlink"
)

// Deps is everything built for one active instance. A Deps value is never
// modified after it was published; a switch replaces it as a whole.
type Deps struct {
	Generation uint64
	Instance   *instances.Instance
	Client     *api.Client
	AuthAPI    api.AuthAPI
	Auth       auth.Manager
	Rooms      api.RoomAPI
	Passkeys   auth.PasskeyManager
}

// Manager keeps the dependency graph in step with the active instance.
// ActiveInstance and IsAuthenticated change independently.
type Manager interface {
	CheckHealth(ctx context.Context, serverURL string) (*api.HealthResponse, error)
	AddInstance(ctx context.Context, serverURL, displayName string) (*instances.Instance, error)
	// RemoveInstance logs the active instance out before removing it.
	RemoveInstance(ctx context.Context, id string) error
	SetActive(ctx context.Context, id string) error

	Instances() []*instances.Instance
	Active() *instances.Instance
	// Deps returns nil while no instance is active.
	Deps() *Deps

	ActiveInstance() *observe.Value[*instances.Instance]
	IsAuthenticated() *observe.Value[bool]

	// MatchLink finds the registered instance serving link.
	MatchLink(link *meetlink.MeetingLink) (*instances.Instance, bool)
	JoinRoom(ctx context.Context, roomName string) (*api.JoinRoomResponse, error)
	// GuestJoin opens a meeting link, adding its server and logging in as
	// a guest when needed.
	GuestJoin(ctx context.Context, rawLink, guestName string) (*api.JoinRoomResponse, error)

	Close()
}
