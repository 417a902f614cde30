package manager

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"

	"github.com/imtaco/bedrud-client/internal/errors"
	"github.com/imtaco/bedrud-client/internal/log"
	"github.com/imtaco/bedrud-client/internal/observe"
	"github.com/imtaco/bedrud-client/room"
	"github.com/imtaco/bedrud-client/room/media"
)

type roomManager struct {
	engine media.Engine
	clock  clockwork.Clock
	logger *log.Logger
	// dropLog keeps a chatty peer from flooding the debug log
	dropLog *rate.Limiter

	// pubMu keeps snapshots published in the order the state changed
	pubMu sync.Mutex
	mu    sync.Mutex
	gen   uint64
	conn  media.Conn
	st    connState

	snap *observe.Value[room.Snapshot]
}

func New(engine media.Engine, clock clockwork.Clock, logger *log.Logger) room.Manager {
	if logger == nil {
		panic("logger is nil")
	}
	st := defaultState()
	return &roomManager{
		engine:  engine,
		clock:   clock,
		logger:  logger,
		dropLog: rate.NewLimiter(rate.Every(time.Second), 5),
		st:      st,
		snap:    observe.NewValue(st.snapshot()),
	}
}

// lock takes pubMu ahead of mu so snapshots reach subscribers in the
// order the state changed.
func (m *roomManager) lock() {
	m.pubMu.Lock()
	m.mu.Lock()
}

func (m *roomManager) unlock() {
	m.mu.Unlock()
	m.pubMu.Unlock()
}

// commit publishes the state the critical section left behind, then
// releases both locks.
func (m *roomManager) commit() {
	snap := m.st.snapshot()
	m.mu.Unlock()
	m.snap.Set(snap)
	m.pubMu.Unlock()
}

func (m *roomManager) Snapshot() room.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.snapshot()
}

func (m *roomManager) Snapshots() *observe.Value[room.Snapshot] {
	return m.snap
}

func (m *roomManager) Connect(ctx context.Context, url, token string) error {
	return m.ConnectIf(ctx, url, token, nil)
}

func (m *roomManager) ConnectIf(ctx context.Context, url, token string, current func() bool) error {
	if strings.TrimSpace(url) == "" || strings.TrimSpace(token) == "" {
		return errors.New(errors.ErrValidation, "media url and token are required")
	}
	owned := func() bool { return current == nil || current() }

	m.lock()
	if !owned() {
		m.unlock()
		connects.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "superseded")))
		return errors.New(room.ErrSuperseded, "owner changed before connect")
	}
	if m.st.state.Busy() {
		state := m.st.state
		m.unlock()
		return errors.Newf(room.ErrAlreadyConnected, "room is %s", state)
	}
	m.gen++
	gen := m.gen
	m.st = defaultState()
	m.st.state = room.Connecting
	m.commit()

	m.logger.Info("connecting", log.String("url", url))
	conn, err := m.engine.Connect(ctx, url, token)

	m.lock()
	if m.gen != gen || !owned() {
		m.unlock()
		connects.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "superseded")))
		if conn != nil {
			m.release(ctx, conn)
		}
		m.logger.Debug("discard superseded connect", log.Uint64("gen", gen))
		return errors.New(room.ErrSuperseded, "connect superseded")
	}
	if err != nil {
		m.st.state = room.Failed
		m.st.reason = err.Error()
		m.st.lastErr = err.Error()
		m.commit()

		connects.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "failed")))
		m.logger.Warn("connect failed", log.Error(err))
		return errors.Wrap(errors.ErrConnection, err, "connect room")
	}

	m.conn = conn
	m.st.state = room.Connected
	for _, p := range conn.RemoteParticipants() {
		if m.st.upsert(p) {
			participants.Add(ctx, 1)
		}
	}
	events := conn.Events()
	count := len(m.st.order)
	m.commit()

	connects.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ok")))
	m.logger.Info("connected", log.Int("participants", count))

	go m.consume(context.WithoutCancel(ctx), gen, events)
	return nil
}

func (m *roomManager) release(ctx context.Context, conn media.Conn) {
	if err := conn.Disconnect(context.WithoutCancel(ctx)); err != nil {
		m.logger.Warn("release media connection", log.Error(err))
	}
}

func (m *roomManager) Disconnect(ctx context.Context) {
	m.lock()
	conn := m.conn
	m.conn = nil
	m.gen++
	participants.Add(ctx, -int64(len(m.st.order)))
	m.st = defaultState()
	m.commit()

	if conn != nil {
		m.release(ctx, conn)
	}
	m.logger.Info("disconnected")
}

// active returns the live connection and its generation, or
// ErrNotConnected outside the Connected state.
func (m *roomManager) active() (media.Conn, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.st.state != room.Connected || m.conn == nil {
		return nil, 0, errors.Newf(room.ErrNotConnected, "room is %s", m.st.state)
	}
	return m.conn, m.gen, nil
}

type setFunc func(conn media.Conn, ctx context.Context, enabled bool) error

// toggle flips one local flag after the engine accepted the new value.
func (m *roomManager) toggle(ctx context.Context, name string, flag func(*connState) *bool, set setFunc) error {
	conn, gen, err := m.active()
	if err != nil {
		return err
	}

	m.mu.Lock()
	want := !*flag(&m.st)
	m.mu.Unlock()

	if err := set(conn, ctx, want); err != nil {
		return errors.Wrapf(errors.ErrConnection, err, "set %s %t", name, want)
	}

	m.lock()
	if m.gen != gen {
		m.unlock()
		return errors.New(room.ErrSuperseded, "connection closed while toggling "+name)
	}
	*flag(&m.st) = want
	m.commit()

	m.logger.Debug("toggled", log.String("track", name), log.Bool("enabled", want))
	return nil
}

func (m *roomManager) ToggleMicrophone(ctx context.Context) error {
	return m.toggle(ctx, "microphone",
		func(s *connState) *bool { return &s.mic },
		media.Conn.SetMicrophoneEnabled)
}

func (m *roomManager) ToggleCamera(ctx context.Context) error {
	return m.toggle(ctx, "camera",
		func(s *connState) *bool { return &s.camera },
		media.Conn.SetCameraEnabled)
}

func (m *roomManager) ToggleScreenShare(ctx context.Context) error {
	return m.toggle(ctx, "screen share",
		func(s *connState) *bool { return &s.screen },
		media.Conn.SetScreenShareEnabled)
}

func (m *roomManager) SwitchCamera(ctx context.Context) error {
	conn, _, err := m.active()
	if err != nil {
		return err
	}
	track := conn.LocalVideoTrack()
	if track == nil {
		return nil
	}
	pos := track.Position().Flip()
	if err := track.SetPosition(ctx, pos); err != nil {
		return errors.Wrap(errors.ErrConnection, err, "switch camera")
	}
	return nil
}

func (m *roomManager) SendChatMessage(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New(errors.ErrValidation, "chat message is empty")
	}

	m.lock()
	if m.st.state != room.Connected || m.conn == nil {
		state := m.st.state
		m.unlock()
		return errors.Newf(room.ErrNotConnected, "room is %s", state)
	}
	conn := m.conn
	sender := localName(conn)
	m.st.chat = append(m.st.chat, room.ChatMessage{
		ID:         uuid.NewString(),
		SenderName: sender,
		Text:       text,
		Timestamp:  m.clock.Now(),
		IsLocal:    true,
	})
	m.commit()

	payload, err := encodeChat(text, sender)
	if err != nil {
		return errors.Wrap(errors.ErrValidation, err, "encode chat")
	}
	if err := conn.PublishData(ctx, payload, media.Reliable); err != nil {
		chatSent.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "failed")))
		m.logger.Warn("publish chat", log.Error(err))
		return errors.Wrap(errors.ErrConnection, err, "publish chat")
	}
	chatSent.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ok")))
	return nil
}

func localName(conn media.Conn) string {
	if name := conn.LocalName(); name != "" {
		return name
	}
	if id := conn.LocalIdentity(); id != "" {
		return id
	}
	return defaultLocalName
}
