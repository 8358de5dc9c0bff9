package ui

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
)

// CustomIDPrefix marks component custom IDs routed through a Manager.
// The full format is "view:<session id>:<control id>".
const CustomIDPrefix = "view:"

// SplitCustomID extracts the session and control IDs from a routed
// custom ID.
func SplitCustomID(customID string) (sessionID, controlID string, ok bool) {
	rest, found := strings.CutPrefix(customID, CustomIDPrefix)
	if !found {
		return "", "", false
	}
	sessionID, controlID, found = strings.Cut(rest, ":")
	if !found || sessionID == "" {
		return "", "", false
	}
	return sessionID, controlID, true
}

// Manager tracks live sessions and routes disgo interaction events to
// them. Sessions deregister themselves when they reach a terminal state.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Track registers a session for dispatch until it ends.
func (m *Manager) Track(s *Session) {
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	s.OnEnd(func(ended *Session) {
		m.mu.Lock()
		delete(m.sessions, ended.ID())
		m.mu.Unlock()
	})
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// HandleComponent routes a button press to its session. Presses on
// sessions that no longer exist (or already ended) are acknowledged
// without any effect.
func (m *Manager) HandleComponent(event *events.ComponentInteractionCreate) {
	sessionID, controlID, ok := SplitCustomID(event.Data.CustomID())
	if !ok {
		return
	}

	s, ok := m.Get(sessionID)
	if !ok {
		_ = event.DeferUpdateMessage()
		return
	}

	err := s.Dispatch(controlID, componentItx{event})
	switch {
	case err == ErrStaleInteraction:
		slog.Debug("stale view interaction", slog.String("view", sessionID), slog.String("control", controlID))
		_ = event.DeferUpdateMessage()
	case err != nil:
		slog.Error("view control failed", slog.String("view", sessionID), slog.String("control", controlID), slog.Any("err", err))
		_ = event.CreateMessage(discord.NewMessageCreateBuilder().
			SetContent("Something went wrong. Please try again.").
			SetEphemeral(true).
			Build())
	}
}

// HandleModal routes a modal submission to its session.
func (m *Manager) HandleModal(event *events.ModalSubmitInteractionCreate) {
	sessionID, _, ok := SplitCustomID(event.Data.CustomID)
	if !ok {
		return
	}

	s, ok := m.Get(sessionID)
	if !ok {
		_ = event.DeferUpdateMessage()
		return
	}

	value := event.Data.Text(JumpInputID)
	err := s.DispatchModal(value, modalItx{event})
	switch {
	case err == ErrStaleInteraction:
		_ = event.DeferUpdateMessage()
	case err != nil:
		slog.Error("view modal failed", slog.String("view", sessionID), slog.Any("err", err))
		_ = event.CreateMessage(discord.NewMessageCreateBuilder().
			SetContent("Something went wrong. Please try again.").
			SetEphemeral(true).
			Build())
	}
}

// --- disgo event adapters ---

type componentItx struct {
	event *events.ComponentInteractionCreate
}

func (c componentItx) UserID() snowflake.ID { return c.event.User().ID }

func (c componentItx) Update(update discord.MessageUpdate) error {
	return c.event.UpdateMessage(update)
}

func (c componentItx) Notify(content string) error {
	return c.event.CreateMessage(discord.NewMessageCreateBuilder().
		SetContent(content).
		SetEphemeral(true).
		Build())
}

func (c componentItx) Modal(modal discord.ModalCreate) error {
	return c.event.Modal(modal)
}

type modalItx struct {
	event *events.ModalSubmitInteractionCreate
}

func (m modalItx) UserID() snowflake.ID { return m.event.User().ID }

func (m modalItx) Update(update discord.MessageUpdate) error {
	return m.event.UpdateMessage(update)
}

func (m modalItx) Notify(content string) error {
	return m.event.CreateMessage(discord.NewMessageCreateBuilder().
		SetContent(content).
		SetEphemeral(true).
		Build())
}

// Modals cannot open further modals.
func (m modalItx) Modal(discord.ModalCreate) error { return nil }
