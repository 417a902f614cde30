package manager

import (
	"context"

	"github.com/google/uuid"

	"github.com/imtaco/bedrud-client/internal/log"
	"github.com/imtaco/bedrud-client/room"
	"github.com/imtaco/bedrud-client/room/media"
)

// consume applies engine events until the stream ends or the connection
// is no longer the current one.
func (m *roomManager) consume(ctx context.Context, gen uint64, events <-chan media.Event) {
	for ev := range events {
		if !m.handle(ctx, gen, ev) {
			return
		}
	}
	// stream closed without a disconnect event
	m.handle(ctx, gen, media.Event{Kind: media.EventDisconnected})
}

// handle reports whether the loop should keep going.
func (m *roomManager) handle(ctx context.Context, gen uint64, ev media.Event) bool {
	var msg *room.ChatMessage
	if ev.Kind == media.EventDataReceived {
		var ok bool
		if msg, ok = m.parseChat(ctx, ev); !ok {
			return true
		}
	}

	m.lock()
	if m.gen != gen {
		m.unlock()
		return false
	}

	keepGoing := true
	switch ev.Kind {
	case media.EventParticipantJoined, media.EventParticipantUpdated:
		if ev.Participant.Identity == "" {
			m.unlock()
			return true
		}
		if m.st.upsert(ev.Participant) {
			participants.Add(ctx, 1)
			m.logger.Debug("participant joined", log.String("identity", ev.Participant.Identity))
		}

	case media.EventParticipantLeft:
		if m.st.remove(ev.Identity) {
			participants.Add(ctx, -1)
			m.logger.Debug("participant left", log.String("identity", ev.Identity))
		}

	case media.EventDataReceived:
		if msg.SenderName == "" {
			msg.SenderName = unknownSender
			if p, ok := m.st.roster[ev.Identity]; ok && p.DisplayName() != "" {
				msg.SenderName = p.DisplayName()
			}
		}
		m.st.chat = append(m.st.chat, *msg)
		chatReceived.Add(ctx, 1)

	case media.EventConnectionQuality:
		if ev.Identity == "" {
			m.st.quality = ev.Quality
		} else if p, ok := m.st.roster[ev.Identity]; ok {
			p.Quality = ev.Quality
			m.st.roster[ev.Identity] = p
		}

	case media.EventReconnecting:
		if m.st.state == room.Connected {
			m.st.state = room.Reconnecting
			reconnects.Add(ctx, 1)
			m.logger.Info("reconnecting")
		}

	case media.EventReconnected:
		if m.st.state == room.Reconnecting {
			m.st.state = room.Connected
			m.logger.Info("reconnected")
		}

	case media.EventDisconnected:
		participants.Add(ctx, -int64(len(m.st.order)))
		m.st.resetMedia()
		m.conn = nil
		if ev.Reason == "" {
			m.st.state = room.Disconnected
			m.st.reason = ""
		} else {
			m.st.state = room.Failed
			m.st.reason = ev.Reason
			m.st.lastErr = ev.Reason
		}
		m.logger.Info("engine closed connection", log.String("reason", ev.Reason))
		keepGoing = false

	default:
		m.unlock()
		m.logger.Debug("ignore engine event", log.Int("kind", int(ev.Kind)))
		return true
	}
	m.commit()
	return keepGoing
}

func (m *roomManager) parseChat(ctx context.Context, ev media.Event) (*room.ChatMessage, bool) {
	text, sender, err := decodeChat(ev.Data)
	if err != nil {
		dataDropped.Add(ctx, 1)
		if m.dropLog.Allow() {
			m.logger.Debug("drop inbound payload",
				log.String("from", ev.Identity),
				log.Int("size", len(ev.Data)),
				log.Error(err))
		}
		return nil, false
	}
	return &room.ChatMessage{
		ID:         uuid.NewString(),
		SenderName: sender,
		Text:       text,
		Timestamp:  m.clock.Now(),
	}, true
}
