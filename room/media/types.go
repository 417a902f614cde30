// Package media describes the real-time media engine a room connection
// runs on. Implementations wrap a concrete SFU SDK.
package media

//go:generate mockgen -source=types.go -destination=mocks/types.go -package=mocks

import (
	"context"
)

type Reliability int

const (
	Reliable Reliability = iota
	Lossy
)

type CameraPosition int

const (
	CameraFront CameraPosition = iota
	CameraBack
)

func (p CameraPosition) Flip() CameraPosition {
	if p == CameraFront {
		return CameraBack
	}
	return CameraFront
}

type Quality int

const (
	QualityUnknown Quality = iota
	QualityLost
	QualityPoor
	QualityGood
	QualityExcellent
)

func (q Quality) String() string {
	switch q {
	case QualityLost:
		return "lost"
	case QualityPoor:
		return "poor"
	case QualityGood:
		return "good"
	case QualityExcellent:
		return "excellent"
	default:
		return "unknown"
	}
}

// Participant is a remote peer as last reported by the engine.
type Participant struct {
	Identity          string
	Name              string
	MicrophoneEnabled bool
	CameraEnabled     bool
	ScreenSharing     bool
	Quality           Quality
}

// DisplayName falls back to the identity when no name was set.
func (p Participant) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Identity
}

type EventKind int

const (
	EventParticipantJoined EventKind = iota + 1
	// EventParticipantUpdated carries a changed mute or track state.
	EventParticipantUpdated
	EventParticipantLeft
	EventDataReceived
	EventConnectionQuality
	EventReconnecting
	EventReconnected
	EventDisconnected
)

func (k EventKind) String() string {
	switch k {
	case EventParticipantJoined:
		return "participant_joined"
	case EventParticipantUpdated:
		return "participant_updated"
	case EventParticipantLeft:
		return "participant_left"
	case EventDataReceived:
		return "data_received"
	case EventConnectionQuality:
		return "connection_quality"
	case EventReconnecting:
		return "reconnecting"
	case EventReconnected:
		return "reconnected"
	case EventDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Event is one item of a connection's event stream. Which fields are set
// depends on Kind:
//
//	joined, updated   Participant
//	left              Identity
//	data              Identity (sender, may be empty), Data
//	quality           Identity (empty for the local participant), Quality
//	disconnected      Reason (empty for a clean close)
type Event struct {
	Kind        EventKind
	Participant Participant
	Identity    string
	Data        []byte
	Quality     Quality
	Reason      string
}

type Engine interface {
	Connect(ctx context.Context, url, token string) (Conn, error)
}

// Conn is one live connection to a media server.
type Conn interface {
	Disconnect(ctx context.Context) error

	SetMicrophoneEnabled(ctx context.Context, enabled bool) error
	SetCameraEnabled(ctx context.Context, enabled bool) error
	SetScreenShareEnabled(ctx context.Context, enabled bool) error
	PublishData(ctx context.Context, data []byte, reliability Reliability) error

	// LocalVideoTrack returns nil while no camera track is published.
	LocalVideoTrack() VideoTrack
	LocalName() string
	LocalIdentity() string
	RemoteParticipants() []Participant

	// Events is closed once the connection is gone.
	Events() <-chan Event
}

type VideoTrack interface {
	Position() CameraPosition
	// SetPosition restarts the capture on the given camera.
	SetPosition(ctx context.Context, pos CameraPosition) error
}
