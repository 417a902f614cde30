package instances

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/imtaco/bedrud-client/internal/errors"
	"github.com/imtaco/bedrud-client/internal/observe"
)

const (
	ErrDuplicateID errors.Code = "duplicate instance id"
	ErrNoInstance  errors.Code = "no active instance"
	// ErrStale is returned when an operation finished after the active
	// instance changed underneath it. Its result was discarded.
	ErrStale errors.Code = "stale completion"
)

// Persistence keys.
const (
	KeyInstances = "instances"
	KeyActiveID  = "active_instance_id"
)

// IconColors is the palette new instances draw their badge color from.
var IconColors = []string{
	"#3B82F6", "#EF4444", "#10B981", "#F59E0B",
	"#8B5CF6", "#EC4899", "#06B6D4", "#F97316",
}

type Instance struct {
	ID          string    `json:"id"`
	ServerURL   string    `json:"serverURL"`
	DisplayName string    `json:"displayName"`
	IconColor   string    `json:"iconColorHex"`
	AddedAt     time.Time `json:"addedAt"`
}

func New(serverURL, displayName string, clock clockwork.Clock) *Instance {
	return &Instance{
		ID:          uuid.NewString(),
		ServerURL:   serverURL,
		DisplayName: displayName,
		IconColor:   IconColors[rand.IntN(len(IconColors))],
		AddedAt:     clock.Now(),
	}
}

// APIBaseURL is the REST root of the instance, whatever trailing slashes
// the server URL was saved with.
func (i *Instance) APIBaseURL() string {
	return strings.TrimRight(i.ServerURL, "/") + "/api"
}

// Session keys are namespaced by instance id so sessions of different
// instances can share one kv.Store.
func AccessTokenKey(id string) string  { return id + "_access_token" }
func RefreshTokenKey(id string) string { return id + "_refresh_token" }
func UserDataKey(id string) string     { return id + "_user_data" }

func SessionKeys(id string) []string {
	return []string{AccessTokenKey(id), RefreshTokenKey(id), UserDataKey(id)}
}

// Store is the persisted registry of instances plus the active one.
// Invariants hold after every call: the active id is empty iff there are
// no instances, otherwise it names one of them.
type Store interface {
	Add(ctx context.Context, inst *Instance) error
	// Remove is a no-op for unknown ids. Removing the active instance
	// activates the first remaining one.
	Remove(ctx context.Context, id string) error
	// SetActive ignores unknown ids.
	SetActive(ctx context.Context, id string) error
	Active() *Instance
	Get(id string) (*Instance, bool)
	Instances() []*Instance
	// ActiveID publishes the active id after every change, "" for none.
	ActiveID() *observe.Value[string]
}
