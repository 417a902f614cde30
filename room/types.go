package room

import (
	"context"
	"time"

	"github.com/imtaco/bedrud-client/internal/errors"
	"github.com/imtaco/bedrud-client/internal/observe"
	"github.com/imtaco/bedrud-client/room/media"
)

const (
	ErrNotConnected     errors.Code = "room not connected"
	ErrAlreadyConnected errors.Code = "room already connected"
	// ErrSuperseded is returned by an operation whose connection was
	// replaced or closed while it ran.
	ErrSuperseded errors.Code = "connection superseded"
)

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Reconnecting
	Failed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Busy reports whether a connection attempt or connection is alive.
func (s State) Busy() bool {
	return s == Connecting || s == Connected || s == Reconnecting
}

// ChatMessage identity is its ID; two messages with the same text are
// still different messages.
type ChatMessage struct {
	ID         string
	SenderName string
	Text       string
	Timestamp  time.Time
	IsLocal    bool
}

// Snapshot is a consistent copy of the room connection.
type Snapshot struct {
	State State
	// FailureReason is set only in the Failed state.
	FailureReason string
	// Participants are remote peers in join order.
	Participants       []media.Participant
	MicEnabled         bool
	CameraEnabled      bool
	ScreenShareEnabled bool
	Quality            media.Quality
	Chat               []ChatMessage
	LastError          string
}

// Participant looks up a remote peer by identity.
func (s Snapshot) Participant(identity string) (media.Participant, bool) {
	for _, p := range s.Participants {
		if p.Identity == identity {
			return p, true
		}
	}
	return media.Participant{}, false
}

// Manager drives a single room connection. User actions are accepted only
// while Connected.
type Manager interface {
	Connect(ctx context.Context, url, token string) error
	// ConnectIf is Connect bound to an owner. current is checked under the
	// room lock before Connecting and again before Connected; once it
	// reports false the attempt ends with ErrSuperseded and leaves the
	// state untouched. The owner must Disconnect after current flips.
	ConnectIf(ctx context.Context, url, token string, current func() bool) error
	// Disconnect releases the connection and resets every field, whatever
	// the current state.
	Disconnect(ctx context.Context)

	ToggleMicrophone(ctx context.Context) error
	ToggleCamera(ctx context.Context) error
	ToggleScreenShare(ctx context.Context) error
	SwitchCamera(ctx context.Context) error
	// SendChatMessage appends the local message before it is sent.
	SendChatMessage(ctx context.Context, text string) error

	Snapshot() Snapshot
	Snapshots() *observe.Value[Snapshot]
}
