package manager

import (
	"slices"

	"github.com/imtaco/bedrud-client/room"
	"github.com/imtaco/bedrud-client/room/media"
)

// connState is the mutable side of room.Snapshot.
type connState struct {
	state   room.State
	reason  string
	order   []string
	roster  map[string]media.Participant
	mic     bool
	camera  bool
	screen  bool
	quality media.Quality
	chat    []room.ChatMessage
	lastErr string
}

func defaultState() connState {
	return connState{
		state:  room.Disconnected,
		roster: map[string]media.Participant{},
		mic:    true,
		camera: true,
	}
}

func (s *connState) upsert(p media.Participant) (added bool) {
	if _, ok := s.roster[p.Identity]; !ok {
		s.order = append(s.order, p.Identity)
		added = true
	}
	s.roster[p.Identity] = p
	return added
}

func (s *connState) remove(identity string) bool {
	if _, ok := s.roster[identity]; !ok {
		return false
	}
	delete(s.roster, identity)
	s.order = slices.DeleteFunc(s.order, func(id string) bool { return id == identity })
	return true
}

// resetMedia drops everything tied to a live connection. Chat and the last
// error survive.
func (s *connState) resetMedia() {
	s.order = nil
	s.roster = map[string]media.Participant{}
	s.mic = true
	s.camera = true
	s.screen = false
	s.quality = media.QualityUnknown
}

func (s *connState) snapshot() room.Snapshot {
	ps := make([]media.Participant, 0, len(s.order))
	for _, id := range s.order {
		ps = append(ps, s.roster[id])
	}
	return room.Snapshot{
		State:              s.state,
		FailureReason:      s.reason,
		Participants:       ps,
		MicEnabled:         s.mic,
		CameraEnabled:      s.camera,
		ScreenShareEnabled: s.screen,
		Quality:            s.quality,
		Chat:               slices.Clone(s.chat),
		LastError:          s.lastErr,
	}
}
