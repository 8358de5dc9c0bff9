package ui

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ownerID    snowflake.ID = 100
	strangerID snowflake.ID = 200
)

// fakeItx records everything a session pushes through the platform
// client.
type fakeItx struct {
	user    snowflake.ID
	updates []discord.MessageUpdate
	notices []string
	modals  []discord.ModalCreate
}

func (f *fakeItx) UserID() snowflake.ID { return f.user }

func (f *fakeItx) Update(update discord.MessageUpdate) error {
	f.updates = append(f.updates, update)
	return nil
}

func (f *fakeItx) Notify(content string) error {
	f.notices = append(f.notices, content)
	return nil
}

func (f *fakeItx) Modal(modal discord.ModalCreate) error {
	f.modals = append(f.modals, modal)
	return nil
}

func textRender(s *Session) []discord.LayoutComponent {
	return []discord.LayoutComponent{
		discord.NewContainer(discord.NewTextDisplay("hello")),
		s.ControlRow(),
	}
}

func TestDispatchRunsOwnerControl(t *testing.T) {
	s := NewSession("s1", ownerID, textRender)
	pressed := 0
	s.AddControl(Control{
		ID:    "ok",
		Label: "OK",
		Style: discord.ButtonStylePrimary,
		Handle: func(s *Session, itx Interaction) error {
			pressed++
			return s.Render(itx)
		},
	})

	itx := &fakeItx{user: ownerID}
	require.NoError(t, s.Dispatch("ok", itx))
	assert.Equal(t, 1, pressed)
	assert.Len(t, itx.updates, 1, "mutating handlers must render")
}

func TestAuthorizationGate(t *testing.T) {
	s := NewSession("s1", ownerID, textRender)
	pressed := 0
	s.AddControl(Control{ID: "ok", Label: "OK", Handle: func(*Session, Interaction) error {
		pressed++
		return nil
	}})

	itx := &fakeItx{user: strangerID}
	require.NoError(t, s.Dispatch("ok", itx))

	assert.Equal(t, 0, pressed, "unauthorized press must not run the handler")
	assert.Empty(t, itx.updates, "owning message must not change")
	require.Len(t, itx.notices, 1, "denial is an ephemeral notice to the attempting user")
	assert.Equal(t, MsgNotYourView, itx.notices[0])
}

func TestPredicateAuthorizes(t *testing.T) {
	s := NewSession("s1", ownerID, textRender,
		WithPredicate(func(id snowflake.ID) bool { return id == strangerID }))
	pressed := 0
	s.AddControl(Control{ID: "ok", Label: "OK", Handle: func(*Session, Interaction) error {
		pressed++
		return nil
	}})

	require.NoError(t, s.Dispatch("ok", &fakeItx{user: strangerID}))
	assert.Equal(t, 1, pressed)

	itx := &fakeItx{user: 300}
	require.NoError(t, s.Dispatch("ok", itx))
	assert.Equal(t, 1, pressed)
	assert.Len(t, itx.notices, 1)
}

func TestDisabledControlIsIgnored(t *testing.T) {
	s := NewSession("s1", ownerID, textRender)
	pressed := 0
	s.AddControl(Control{ID: "ok", Label: "OK", Handle: func(*Session, Interaction) error {
		pressed++
		return nil
	}})
	s.SetDisabled("ok", true)

	require.NoError(t, s.Dispatch("ok", &fakeItx{user: ownerID}))
	assert.Equal(t, 0, pressed)
}

func TestTerminalImmutability(t *testing.T) {
	s := NewSession("s1", ownerID, textRender)
	pressed := 0
	s.AddControl(Control{ID: "ok", Label: "OK", Handle: func(*Session, Interaction) error {
		pressed++
		return nil
	}})

	require.NoError(t, s.Close(&fakeItx{user: ownerID}))
	assert.Equal(t, StateClosed, s.State())

	err := s.Dispatch("ok", &fakeItx{user: ownerID})
	assert.True(t, errors.Is(err, ErrStaleInteraction))
	assert.Equal(t, 0, pressed)

	err = s.DispatchModal("2", &fakeItx{user: ownerID})
	assert.True(t, errors.Is(err, ErrStaleInteraction))

	// a second terminal action is also stale
	err = s.Close(&fakeItx{user: ownerID})
	assert.True(t, errors.Is(err, ErrStaleInteraction))
}

// The timeout is fixed from creation: interactions do not re-arm the
// timer.
func TestTimeoutExpiresAndRendersOnce(t *testing.T) {
	s := NewSession("s1", ownerID, textRender, WithTimeout(30*time.Millisecond))
	s.AddControl(Control{ID: "ok", Label: "OK", Handle: func(*Session, Interaction) error { return nil }})

	renders := 0
	s.BindMessage(func(discord.MessageUpdate) error {
		renders++
		return nil
	})
	ends := 0
	s.OnEnd(func(*Session) { ends++ })

	require.Eventually(t, func() bool { return s.State() == StateExpired },
		time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, renders, "expiry issues exactly one final render")
	assert.Equal(t, 1, ends)
	assert.True(t, s.ControlDisabled("ok"), "expiry disables all controls")

	err := s.Dispatch("ok", &fakeItx{user: ownerID})
	assert.True(t, errors.Is(err, ErrStaleInteraction))
}

func TestTimeoutRenderFailureIsSwallowed(t *testing.T) {
	s := NewSession("s1", ownerID, textRender, WithTimeout(20*time.Millisecond))
	s.BindMessage(func(discord.MessageUpdate) error {
		return errors.New("message already deleted")
	})

	require.Eventually(t, func() bool { return s.State() == StateExpired },
		time.Second, 5*time.Millisecond)
}

func TestCloseStopsTimer(t *testing.T) {
	s := NewSession("s1", ownerID, textRender, WithTimeout(30*time.Millisecond))
	require.NoError(t, s.Close(&fakeItx{user: ownerID}))

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, StateClosed, s.State(), "expiry must not override an explicit close")
}

func TestManagerRoutingAndTeardown(t *testing.T) {
	m := NewManager()
	s := NewSession("s1", ownerID, textRender)
	m.Track(s)

	got, ok := m.Get("s1")
	require.True(t, ok)
	assert.Same(t, s, got)

	require.NoError(t, s.Close(&fakeItx{user: ownerID}))
	_, ok = m.Get("s1")
	assert.False(t, ok, "ended sessions deregister themselves")
	assert.Equal(t, 0, m.Len())
}

func TestSplitCustomID(t *testing.T) {
	sid, ctl, ok := SplitCustomID("view:abc:next")
	require.True(t, ok)
	assert.Equal(t, "abc", sid)
	assert.Equal(t, "next", ctl)

	_, _, ok = SplitCustomID("console:nav")
	assert.False(t, ok)

	_, _, ok = SplitCustomID("view:noseparator")
	assert.False(t, ok)
}

func TestDispatchSerializesHandlers(t *testing.T) {
	s := NewSession("s1", ownerID, textRender)

	var running int32
	var overlaps int32
	pressed := 0
	s.AddControl(Control{
		ID:    "bump",
		Label: "Bump",
		Style: discord.ButtonStylePrimary,
		Handle: func(s *Session, itx Interaction) error {
			if atomic.AddInt32(&running, 1) > 1 {
				atomic.AddInt32(&overlaps, 1)
			}
			time.Sleep(time.Millisecond)
			pressed++
			atomic.AddInt32(&running, -1)
			return s.Render(itx)
		},
	})

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Dispatch("bump", &fakeItx{user: ownerID})
		}()
	}
	wg.Wait()

	assert.Zero(t, atomic.LoadInt32(&overlaps), "handlers for one session must not run concurrently")
	assert.Equal(t, 10, pressed, "serialized handlers see every press")
}
