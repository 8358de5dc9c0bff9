package ui

import (
	"fmt"
	"sync"
	"testing"

	"github.com/disgoorg/disgo/discord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pageRender(index, pages int) []discord.LayoutComponent {
	return []discord.LayoutComponent{
		discord.NewContainer(discord.NewTextDisplay(fmt.Sprintf("Page %d/%d", index+1, pages))),
	}
}

func newTestCarousel(t *testing.T, pages int) *Carousel {
	t.Helper()
	c := NewCarousel("c1", ownerID, pages, pageRender, nil)
	t.Cleanup(func() {
		if c.Session.State() == StateActive {
			_ = c.Session.Close(&fakeItx{user: ownerID})
		}
	})
	return c
}

func TestPaginationClamps(t *testing.T) {
	p := NewPagination(3)

	assert.True(t, p.Advance(1))
	assert.True(t, p.Advance(1))
	assert.False(t, p.Advance(1), "advance past the last page is a no-op")
	assert.Equal(t, 2, p.Index())

	assert.True(t, p.Advance(-5), "large deltas clamp to the first page")
	assert.Equal(t, 0, p.Index())
	assert.False(t, p.Advance(-1))
	assert.Equal(t, 0, p.Index())
}

func TestPaginationMinimumOnePage(t *testing.T) {
	p := NewPagination(0)
	assert.Equal(t, 1, p.Pages())
	assert.True(t, p.AtStart())
	assert.True(t, p.AtEnd())
}

func TestPaginationJumpValidation(t *testing.T) {
	p := NewPagination(5)

	var verr *ValidationError
	require.ErrorAs(t, p.JumpTo(5), &verr)
	require.ErrorAs(t, p.JumpTo(-1), &verr)
	assert.Equal(t, 0, p.Index(), "failed jumps leave the index unchanged")

	require.NoError(t, p.JumpTo(3))
	assert.Equal(t, 3, p.Index())
}

func TestCarouselBoundsAndButtonState(t *testing.T) {
	c := newTestCarousel(t, 3)

	// at the first page only next is usable
	assert.True(t, c.Session.ControlDisabled(ControlPrevious))
	assert.False(t, c.Session.ControlDisabled(ControlNext))

	for i := 0; i < 5; i++ {
		require.NoError(t, c.Session.Dispatch(ControlNext, &fakeItx{user: ownerID}))
	}
	assert.Equal(t, 2, c.Index(), "index never exceeds pages-1")
	assert.True(t, c.Session.ControlDisabled(ControlNext))
	assert.False(t, c.Session.ControlDisabled(ControlPrevious))

	for i := 0; i < 5; i++ {
		require.NoError(t, c.Session.Dispatch(ControlPrevious, &fakeItx{user: ownerID}))
	}
	assert.Equal(t, 0, c.Index(), "index never drops below zero")
	assert.True(t, c.Session.ControlDisabled(ControlPrevious))
	assert.False(t, c.Session.ControlDisabled(ControlNext))
}

func TestCarouselAdvanceRenders(t *testing.T) {
	c := newTestCarousel(t, 3)

	itx := &fakeItx{user: ownerID}
	require.NoError(t, c.Session.Dispatch(ControlNext, itx))
	assert.Equal(t, 1, c.Index())
	assert.Len(t, itx.updates, 1, "every successful advance re-renders")
}

func TestCarouselStrangerCannotNavigate(t *testing.T) {
	c := newTestCarousel(t, 3)

	itx := &fakeItx{user: strangerID}
	require.NoError(t, c.Session.Dispatch(ControlNext, itx))

	assert.Equal(t, 0, c.Index())
	assert.Empty(t, itx.updates)
	require.Len(t, itx.notices, 1)
	assert.Equal(t, MsgNotYourView, itx.notices[0])
	assert.True(t, c.Session.ControlDisabled(ControlPrevious), "button state untouched")
}

func TestCarouselJumpFlow(t *testing.T) {
	c := newTestCarousel(t, 5)

	// jump button opens the modal
	itx := &fakeItx{user: ownerID}
	require.NoError(t, c.Session.Dispatch(ControlJump, itx))
	require.Len(t, itx.modals, 1)
	assert.Equal(t, "view:c1:jump", itx.modals[0].CustomID)

	// out-of-range pages are reported, not applied (1-based input)
	itx = &fakeItx{user: ownerID}
	require.NoError(t, c.Session.DispatchModal("6", itx))
	assert.Equal(t, 0, c.Index())
	assert.Empty(t, itx.updates)
	require.Len(t, itx.notices, 1)

	itx = &fakeItx{user: ownerID}
	require.NoError(t, c.Session.DispatchModal("0", itx))
	assert.Equal(t, 0, c.Index())
	require.Len(t, itx.notices, 1)

	itx = &fakeItx{user: ownerID}
	require.NoError(t, c.Session.DispatchModal("garbage", itx))
	assert.Equal(t, 0, c.Index())
	require.Len(t, itx.notices, 1)

	// a valid jump applies and renders exactly once
	itx = &fakeItx{user: ownerID}
	require.NoError(t, c.Session.DispatchModal("4", itx))
	assert.Equal(t, 3, c.Index())
	assert.Len(t, itx.updates, 1)
	assert.Empty(t, itx.notices)
	assert.False(t, c.Session.ControlDisabled(ControlPrevious))
	assert.False(t, c.Session.ControlDisabled(ControlNext))
}

func TestCarouselWithoutJump(t *testing.T) {
	c := NewCarousel("c2", ownerID, 3, pageRender, nil, WithoutJump())
	defer c.Session.Close(&fakeItx{user: ownerID}) //nolint:errcheck

	itx := &fakeItx{user: ownerID}
	require.NoError(t, c.Session.Dispatch(ControlJump, itx))
	assert.Empty(t, itx.modals, "no jump control registered")
}

func TestCarouselSinglePageDisablesNav(t *testing.T) {
	c := newTestCarousel(t, 1)
	assert.True(t, c.Session.ControlDisabled(ControlPrevious))
	assert.True(t, c.Session.ControlDisabled(ControlNext))
}

func TestCarouselConcurrentPressesStayConsistent(t *testing.T) {
	c := newTestCarousel(t, 3)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Session.Dispatch(ControlNext, &fakeItx{user: ownerID})
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, c.Index(), "simultaneous presses never push the index past the last page")
	assert.True(t, c.Session.ControlDisabled(ControlNext))
	assert.False(t, c.Session.ControlDisabled(ControlPrevious))
}
