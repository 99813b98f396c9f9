// Package pokedex updates the Pokédex registry of a Generation 6 save when
// a Pokémon is imported into it.
//
// An Engine mutates the save buffer in place. Every call validates its
// input before the first write, so a precondition panic leaves the buffer
// untouched. Calls against the same buffer must be serialized by the
// caller; the engine keeps no state between calls.
package pokedex

import (
	"github.com/FocuswithJustin/pkdex/core/bits"
	"github.com/FocuswithJustin/pkdex/core/errors"
	"github.com/FocuswithJustin/pkdex/core/formdex"
	"github.com/FocuswithJustin/pkdex/core/game"
	"github.com/FocuswithJustin/pkdex/core/personal"
)

// Engine applies imports to saves of one layout.
type Engine struct {
	layout   game.Layout
	provider personal.Provider
}

// New returns an engine for the given layout. provider answers form counts.
func New(layout game.Layout, provider personal.Provider) *Engine {
	return &Engine{layout: layout, provider: provider}
}

// ForVersion returns an engine using the default layout of v.
func ForVersion(v game.Version, provider personal.Provider) (*Engine, error) {
	l, err := game.LayoutFor(v)
	if err != nil {
		return nil, err
	}
	return New(l, provider), nil
}

// Layout returns the layout the engine writes.
func (e *Engine) Layout() game.Layout {
	return e.layout
}

// Apply imports rec into buf using the default layout of v. It panics
// with a *errors.PreconditionError on invalid input.
func Apply(v game.Version, buf []byte, provider personal.Provider, rec Record) {
	New(game.MustLayout(v), provider).Apply(buf, rec)
}

// plan holds everything derived from one record before any write.
type plan struct {
	species0 int
	form     int
	female   bool
	shiny    bool
	lang     int
	hasLang  bool

	hasForms  bool
	formBase  int
	formCount int
	class     formdex.Class
}

func (e *Engine) plan(buf []byte, rec Record) (plan, error) {
	l := e.layout
	if !l.Version.Valid() {
		return plan{}, errors.NewUnsupported("game", l.Version.String())
	}
	if need := l.MinBufferLength(); len(buf) < need {
		return plan{}, errors.NewPrecondition("buffer", len(buf), need)
	}

	p := plan{
		species0: rec.Species - 1,
		form:     rec.Form,
		female:   rec.female(),
		shiny:    rec.Shiny,
	}
	if p.species0 < 0 || p.species0 >= l.SpeciesCount {
		return plan{}, errors.NewPrecondition("species", p.species0, l.SpeciesCount)
	}
	p.lang, p.hasLang = LanguageIndex(rec.Language)

	if e.provider != nil {
		p.formCount = e.provider.FormCount(rec.Species, rec.Form)
	}
	if p.formCount > 0 {
		p.formBase, p.hasForms = formdex.Offset(l.Version, rec.Species)
	}
	if !p.hasForms {
		return p, nil
	}

	p.class = formdex.ClassOf(rec.Species)
	if p.form < 0 || p.form >= p.formCount {
		return plan{}, errors.NewPrecondition("form", p.form, p.formCount)
	}
	last := p.formBase + p.formCount - 1
	if p.class == formdex.Split {
		last = max(last, p.formBase+formdex.SplitDistance)
	}
	if last >= l.FormBits() {
		return plan{}, errors.NewPrecondition("form bit", last, l.FormBits())
	}
	return p, nil
}

// Check reports whether rec can be applied to buf without violating a
// precondition. It never writes.
func (e *Engine) Check(buf []byte, rec Record) error {
	_, err := e.plan(buf, rec)
	return err
}

// Apply records rec in the Pokédex region of buf. It panics with a
// *errors.PreconditionError (or *errors.UnsupportedError for an unknown
// layout) when Check would fail; no byte is modified in that case.
func (e *Engine) Apply(buf []byte, rec Record) {
	p, err := e.plan(buf, rec)
	if err != nil {
		panic(err)
	}
	l := e.layout

	alreadySeen, alreadyDisplayed := e.snapshot(buf, p.species0)

	if p.hasForms {
		e.markFormSeen(buf, p)
		e.markFormDisplayed(buf, p, alreadySeen, alreadyDisplayed)
	}

	bits.Set(buf, l.SeenOffset(p.female, p.shiny), p.species0, true)

	// Only the first encountered gender/shininess pair is displayed.
	if !alreadyDisplayed {
		bits.Set(buf, l.DisplayedOffset(p.female, p.shiny), p.species0, true)
	}

	if p.hasLang {
		bits.Set(buf, l.LanguageOffset(), p.species0*game.LanguageCount+p.lang, true)
	}

	switch {
	case l.ForeignFlags && !rec.NativeBorn && rec.Species < l.NativeCutoff:
		bits.Set(buf, l.ForeignOffset(), p.species0, true)
	case !l.ForeignFlags || rec.NativeBorn:
		bits.Set(buf, l.OwnedOffset(), p.species0, true)
	}

	if l.SearchAssist {
		off := l.SearchAssistOffset(p.species0)
		if bits.Uint16(buf, off) == 0 {
			bits.PutUint16(buf, off, 1)
		}
	}
}

// snapshot reads the species-level seen and displayed state across the
// four gender/shininess blocks.
func (e *Engine) snapshot(buf []byte, species0 int) (seen, displayed bool) {
	for _, shiny := range []bool{false, true} {
		for _, female := range []bool{false, true} {
			seen = seen || bits.Get(buf, e.layout.SeenOffset(female, shiny), species0)
			displayed = displayed || bits.Get(buf, e.layout.DisplayedOffset(female, shiny), species0)
		}
	}
	return seen, displayed
}

func (e *Engine) markFormSeen(buf []byte, p plan) {
	off := e.layout.FormSeenOffset(p.shiny)
	switch p.class {
	case formdex.Cosmetic:
		for i := 0; i < p.formCount; i++ {
			bits.Set(buf, off, p.formBase+i, true)
		}
	case formdex.Split:
		bits.Set(buf, off, p.formBase, true)
		bits.Set(buf, off, p.formBase+formdex.SplitDistance, true)
	default:
		bits.Set(buf, off, p.formBase+p.form, true)
	}
}

// markFormDisplayed keeps at most one displayed form per species. A first
// encounter displays the current form. Otherwise displayed bits whose form
// was never seen are cleared, and the current form is displayed only if
// nothing else is.
func (e *Engine) markFormDisplayed(buf []byte, p plan, alreadySeen, alreadyDisplayed bool) {
	current := func() {
		bits.Set(buf, e.layout.FormDisplayedOffset(p.shiny), p.formBase+p.form, true)
	}

	if !alreadySeen && !alreadyDisplayed {
		current()
		return
	}
	if !e.anyFormDisplayed(buf, p) {
		current()
		return
	}
	if !e.repairFormDisplayed(buf, p) && !alreadyDisplayed {
		current()
	}
}

func (e *Engine) anyFormDisplayed(buf []byte, p plan) bool {
	for i := 0; i < p.formCount; i++ {
		for _, shiny := range []bool{false, true} {
			if bits.Get(buf, e.layout.FormDisplayedOffset(shiny), p.formBase+i) {
				return true
			}
		}
	}
	return false
}

// seenBit returns the form-seen bit that covers displayed form i. Split
// species mark only their base and sub-variant bits as seen, so every
// other form is covered by the base bit.
func seenBit(p plan, i int) int {
	if p.class == formdex.Split && i != formdex.SplitDistance {
		return p.formBase
	}
	return p.formBase + i
}

// repairFormDisplayed clears displayed bits lacking their seen bit and
// reports whether a valid displayed bit remains.
func (e *Engine) repairFormDisplayed(buf []byte, p plan) bool {
	remaining := false
	for i := 0; i < p.formCount; i++ {
		for _, shiny := range []bool{false, true} {
			bit := p.formBase + i
			if !bits.Get(buf, e.layout.FormDisplayedOffset(shiny), bit) {
				continue
			}
			if bits.Get(buf, e.layout.FormSeenOffset(shiny), seenBit(p, i)) {
				remaining = true
				continue
			}
			bits.Set(buf, e.layout.FormDisplayedOffset(shiny), bit, false)
		}
	}
	return remaining
}
