package ui

import (
	"errors"
	"sync"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
)

// DefaultTimeout matches the inactivity window used by most views.
const DefaultTimeout = 3 * time.Minute

// MsgNotYourView is the ephemeral notice sent to users who try to use
// someone else's view.
const MsgNotYourView = "You can't interact with another user's message!"

// ErrStaleInteraction reports an interaction that arrived after the
// session reached a terminal state. It is rejected without mutating
// anything.
var ErrStaleInteraction = errors.New("interaction arrived after the view ended")

// ValidationError reports malformed user input to a control. It is
// surfaced to the user, never raised past the dispatch boundary.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// State is the lifecycle of a view session. Expired and Closed are
// terminal; no transition leaves them.
type State int

const (
	StateActive State = iota
	StateExpired
	StateClosed
)

// Interaction is the narrow capability surface a session needs from one
// inbound interaction: who clicked, rewriting the owning message, and
// side responses to the clicking user. Production code adapts disgo
// events to it (manager.go); tests substitute fakes.
type Interaction interface {
	UserID() snowflake.ID
	Update(update discord.MessageUpdate) error
	Notify(content string) error
	Modal(modal discord.ModalCreate) error
}

// HandlerFunc runs an authorized control press. Handlers that mutate
// session state must push a render before returning.
type HandlerFunc func(s *Session, itx Interaction) error

// RenderFunc produces the full component tree for the owning message.
type RenderFunc func(s *Session) []discord.LayoutComponent

// UpdateFunc edits the owning message outside an interaction, used for
// the final render when the session times out.
type UpdateFunc func(update discord.MessageUpdate) error

// Control is one button on a view. Controls live in an explicit table on
// the session; dispatch looks the handler up by the ID embedded in the
// component custom ID.
type Control struct {
	ID       string
	Label    string
	Style    discord.ButtonStyle
	Disabled bool
	Handle   HandlerFunc
}

// Session tracks one interactive message: who may use it, its controls,
// and its lifecycle. A session is created per command invocation and is
// never shared across commands.
type Session struct {
	// dispatchMu serializes handler execution: it is held across the
	// whole of Dispatch/DispatchModal, so no two handlers for one
	// session ever run concurrently and handlers may mutate view state
	// without their own locking. mu guards the session fields and is
	// never held while a handler runs.
	dispatchMu sync.Mutex

	mu       sync.Mutex
	id       string
	owner    snowflake.ID
	allow    func(snowflake.ID) bool
	state    State
	timer    *time.Timer
	render   RenderFunc
	update   UpdateFunc
	onEnd    []func(*Session)
	onModal  func(s *Session, value string, itx Interaction) error
	order    []string
	controls map[string]*Control
}

// Option configures a new session.
type Option func(*Session)

// WithPredicate authorizes interactions from users accepted by fn in
// addition to the owner.
func WithPredicate(fn func(snowflake.ID) bool) Option {
	return func(s *Session) { s.allow = fn }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) {
		if s.timer != nil {
			s.timer.Stop()
		}
		s.timer = time.AfterFunc(d, s.expire)
	}
}

// NewSession creates an active session owned by owner. The inactivity
// timer is armed once here and is not reset by interactions; the session
// expires a fixed duration after creation.
func NewSession(id string, owner snowflake.ID, render RenderFunc, opts ...Option) *Session {
	s := &Session{
		id:       id,
		owner:    owner,
		render:   render,
		controls: make(map[string]*Control),
	}
	s.timer = time.AfterFunc(DefaultTimeout, s.expire)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) ID() string          { return s.id }
func (s *Session) Owner() snowflake.ID { return s.owner }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// AddControl appends a control to the session's table.
func (s *Session) AddControl(ctl Control) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := ctl
	s.controls[c.ID] = &c
	s.order = append(s.order, c.ID)
}

// SetDisabled toggles one control's enabled state. The change becomes
// visible on the next render.
func (s *Session) SetDisabled(id string, disabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctl, ok := s.controls[id]; ok {
		ctl.Disabled = disabled
	}
}

// ControlDisabled reports whether a control is currently disabled.
func (s *Session) ControlDisabled(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctl, ok := s.controls[id]
	return ok && ctl.Disabled
}

// SetModalHandler installs the handler for modal submissions routed to
// this session.
func (s *Session) SetModalHandler(fn func(s *Session, value string, itx Interaction) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onModal = fn
}

// BindMessage supplies the editor used for the final render on timeout,
// typically a closure over the interaction response token.
func (s *Session) BindMessage(update UpdateFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.update = update
}

// OnEnd registers a callback invoked once when the session reaches a
// terminal state.
func (s *Session) OnEnd(fn func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEnd = append(s.onEnd, fn)
}

func (s *Session) customID(control string) string {
	return CustomIDPrefix + s.id + ":" + control
}

// ControlRow builds the action row for the session's control table, in
// insertion order. Render funcs append it below their page content.
func (s *Session) ControlRow() discord.LayoutComponent {
	s.mu.Lock()
	defer s.mu.Unlock()

	buttons := make([]discord.InteractiveComponent, 0, len(s.order))
	for _, id := range s.order {
		ctl := s.controls[id]
		buttons = append(buttons,
			discord.NewButton(ctl.Style, ctl.Label, s.customID(ctl.ID), "", 0).
				WithDisabled(ctl.Disabled || s.state != StateActive))
	}
	return discord.NewActionRow(buttons...)
}

// Components produces the complete component tree for the owning
// message.
func (s *Session) Components() []discord.LayoutComponent {
	return s.render(s)
}

func (s *Session) buildUpdate() discord.MessageUpdate {
	return discord.NewMessageUpdateBuilder().
		SetIsComponentsV2(true).
		SetComponents(s.Components()...).
		Build()
}

// Render pushes the session's current state onto the owning message.
// State and display must never diverge: every mutating handler ends with
// a Render.
func (s *Session) Render(itx Interaction) error {
	return itx.Update(s.buildUpdate())
}

func (s *Session) authorized(userID snowflake.ID) bool {
	if userID == s.owner {
		return true
	}
	return s.allow != nil && s.allow(userID)
}

// Dispatch routes one control press. Interactions after a terminal state
// are rejected as stale; unauthorized users get an ephemeral notice and
// no state changes; disabled or unknown controls are ignored. Presses
// on the same session are serialized, including handler execution.
func (s *Session) Dispatch(controlID string, itx Interaction) error {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return ErrStaleInteraction
	}
	if !s.authorized(itx.UserID()) {
		s.mu.Unlock()
		_ = itx.Notify(MsgNotYourView)
		return nil
	}
	ctl, ok := s.controls[controlID]
	if !ok || ctl.Disabled || ctl.Handle == nil {
		s.mu.Unlock()
		return nil
	}
	handle := ctl.Handle
	s.mu.Unlock()

	return handle(s, itx)
}

// DispatchModal routes a modal submission with the same gating and
// serialization as Dispatch.
func (s *Session) DispatchModal(value string, itx Interaction) error {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return ErrStaleInteraction
	}
	if !s.authorized(itx.UserID()) {
		s.mu.Unlock()
		_ = itx.Notify(MsgNotYourView)
		return nil
	}
	handle := s.onModal
	s.mu.Unlock()

	if handle == nil {
		return nil
	}
	return handle(s, value, itx)
}

// Close transitions the session to Closed and pushes a final render with
// every control disabled.
func (s *Session) Close(itx Interaction) error {
	if !s.terminate(StateClosed) {
		return ErrStaleInteraction
	}
	err := s.Render(itx)
	s.fireEnd()
	return err
}

// expire fires once when the inactivity timer elapses. The final render
// is best effort: the message may already be gone, and teardown finishes
// regardless.
func (s *Session) expire() {
	if !s.terminate(StateExpired) {
		return
	}
	s.mu.Lock()
	update := s.update
	s.mu.Unlock()
	if update != nil {
		// Wait out any in-flight handler so the final render does not
		// interleave with one it is about to overwrite.
		s.dispatchMu.Lock()
		_ = update(s.buildUpdate())
		s.dispatchMu.Unlock()
	}
	s.fireEnd()
}

// terminate moves to a terminal state, disables all controls, and stops
// the timer. It reports false if the session already ended.
func (s *Session) terminate(to State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return false
	}
	s.state = to
	if s.timer != nil {
		s.timer.Stop()
	}
	for _, ctl := range s.controls {
		ctl.Disabled = true
	}
	return true
}

func (s *Session) fireEnd() {
	s.mu.Lock()
	callbacks := s.onEnd
	s.onEnd = nil
	s.mu.Unlock()
	for _, fn := range callbacks {
		fn(s)
	}
}
