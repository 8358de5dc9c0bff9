package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
)

// Carousel control IDs.
const (
	ControlPrevious = "prev"
	ControlNext     = "next"
	ControlJump     = "jump"
)

// JumpInputID is the text input custom ID inside the jump modal.
const JumpInputID = "page"

// Pagination tracks a bounded page index. The invariant
// 0 <= index < pages always holds, with pages >= 1.
type Pagination struct {
	index int
	pages int
}

// NewPagination creates a pagination over pages pages, starting at 0.
func NewPagination(pages int) Pagination {
	if pages < 1 {
		pages = 1
	}
	return Pagination{pages: pages}
}

// Advance moves the index by delta, clamped to the valid range, and
// reports whether the index changed.
func (p *Pagination) Advance(delta int) bool {
	next := p.index + delta
	if next < 0 {
		next = 0
	}
	if next > p.pages-1 {
		next = p.pages - 1
	}
	if next == p.index {
		return false
	}
	p.index = next
	return true
}

// JumpTo sets the index to a specific page. Out-of-range input returns a
// ValidationError and leaves the index unchanged.
func (p *Pagination) JumpTo(index int) error {
	if index < 0 || index >= p.pages {
		return &ValidationError{Reason: fmt.Sprintf("Invalid page number! Pick 1-%d.", p.pages)}
	}
	p.index = index
	return nil
}

func (p Pagination) Index() int    { return p.index }
func (p Pagination) Pages() int    { return p.pages }
func (p Pagination) AtStart() bool { return p.index == 0 }
func (p Pagination) AtEnd() bool   { return p.index >= p.pages-1 }

// PageRenderFunc produces the page content for one index. The carousel
// appends its navigation row below whatever it returns.
type PageRenderFunc func(index, pages int) []discord.LayoutComponent

// Carousel composes a restricted Session with a Pagination and a page
// render strategy. Boundary buttons are disabled rather than relying on
// the clamp: previous is disabled on the first page, next on the last.
type Carousel struct {
	Session    *Session
	pager      Pagination
	renderPage PageRenderFunc
	jumpable   bool
}

// CarouselOption configures a new carousel.
type CarouselOption func(*Carousel)

// WithoutJump drops the jump-to-page control.
func WithoutJump() CarouselOption {
	return func(c *Carousel) { c.jumpable = false }
}

// WithStartPage opens the carousel on a specific page instead of the
// first. Out-of-range indexes are ignored.
func WithStartPage(index int) CarouselOption {
	return func(c *Carousel) {
		if index >= 0 && index < c.pager.Pages() {
			c.pager.index = index
		}
	}
}

// NewCarousel creates a carousel view over pages pages owned by owner.
// Session options (timeout, predicate) are passed through opts.
func NewCarousel(id string, owner snowflake.ID, pages int, renderPage PageRenderFunc, opts []Option, copts ...CarouselOption) *Carousel {
	c := &Carousel{
		pager:      NewPagination(pages),
		renderPage: renderPage,
		jumpable:   true,
	}
	for _, opt := range copts {
		opt(c)
	}

	c.Session = NewSession(id, owner, c.render, opts...)
	c.Session.AddControl(Control{
		ID:     ControlPrevious,
		Label:  "◀ Previous",
		Style:  discord.ButtonStylePrimary,
		Handle: c.advance(-1),
	})
	c.Session.AddControl(Control{
		ID:     ControlNext,
		Label:  "Next ▶",
		Style:  discord.ButtonStylePrimary,
		Handle: c.advance(1),
	})
	if c.jumpable {
		c.Session.AddControl(Control{
			ID:     ControlJump,
			Label:  "Jump to page",
			Style:  discord.ButtonStyleSecondary,
			Handle: c.openJumpModal,
		})
		c.Session.SetModalHandler(c.handleJump)
	}
	c.syncControls()
	return c
}

func (c *Carousel) Index() int { return c.pager.Index() }
func (c *Carousel) Pages() int { return c.pager.Pages() }

func (c *Carousel) render(s *Session) []discord.LayoutComponent {
	comps := c.renderPage(c.pager.Index(), c.pager.Pages())
	return append(comps, s.ControlRow())
}

// syncControls re-derives button enabled state from the page index.
func (c *Carousel) syncControls() {
	c.Session.SetDisabled(ControlPrevious, c.pager.AtStart())
	c.Session.SetDisabled(ControlNext, c.pager.AtEnd())
}

func (c *Carousel) advance(delta int) HandlerFunc {
	return func(s *Session, itx Interaction) error {
		if !c.pager.Advance(delta) {
			return nil
		}
		c.syncControls()
		return s.Render(itx)
	}
}

func (c *Carousel) openJumpModal(s *Session, itx Interaction) error {
	return itx.Modal(discord.ModalCreate{
		CustomID: CustomIDPrefix + s.ID() + ":" + ControlJump,
		Title:    "Jump to Page",
		Components: []discord.LayoutComponent{
			discord.NewActionRow(
				discord.NewTextInput(JumpInputID, discord.TextInputStyleShort,
					fmt.Sprintf("Page number (1-%d)", c.pager.Pages())).
					WithRequired(true).
					WithPlaceholder("2"),
			),
		},
	})
}

// handleJump validates the submitted page number (1-based) and applies
// it. Bad input is reported to the user without touching the index.
func (c *Carousel) handleJump(s *Session, value string, itx Interaction) error {
	page, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return itx.Notify("Please enter a valid page number.")
	}
	if err := c.pager.JumpTo(page - 1); err != nil {
		return itx.Notify(err.Error())
	}
	c.syncControls()
	return s.Render(itx)
}
