package pokedex

import (
	"github.com/FocuswithJustin/pkdex/core/bits"
	"github.com/FocuswithJustin/pkdex/core/errors"
	"github.com/FocuswithJustin/pkdex/core/formdex"
	"github.com/FocuswithJustin/pkdex/core/game"
)

// Entry is a read-only view of the registry state of one species.
// Seen and Displayed are indexed [shiny][female].
type Entry struct {
	Species   int
	Owned     bool
	Foreign   bool
	Seen      [2][2]bool
	Displayed [2][2]bool
	Languages []int // normalized language indices

	FormTracked   bool
	FormBase      int
	FormSeen      [2][]bool // [shiny][form]
	FormDisplayed [2][]bool // [shiny][form]

	SearchAssist uint16
}

// AnySeen reports whether any seen bit of the species is set.
func (e Entry) AnySeen() bool {
	return e.Seen[0][0] || e.Seen[0][1] || e.Seen[1][0] || e.Seen[1][1]
}

// AnyDisplayed reports whether any displayed bit of the species is set.
func (e Entry) AnyDisplayed() bool {
	return e.Displayed[0][0] || e.Displayed[0][1] || e.Displayed[1][0] || e.Displayed[1][1]
}

// Inspect reads the registry state of species (1-based) from buf.
func (e *Engine) Inspect(buf []byte, species int) (Entry, error) {
	l := e.layout
	if !l.Version.Valid() {
		return Entry{}, errors.NewUnsupported("game", l.Version.String())
	}
	if need := l.MinBufferLength(); len(buf) < need {
		return Entry{}, errors.NewPrecondition("buffer", len(buf), need)
	}
	s0 := species - 1
	if s0 < 0 || s0 >= l.SpeciesCount {
		return Entry{}, errors.NewPrecondition("species", s0, l.SpeciesCount)
	}

	out := Entry{
		Species: species,
		Owned:   bits.Get(buf, l.OwnedOffset(), s0),
	}
	if l.ForeignFlags {
		out.Foreign = bits.Get(buf, l.ForeignOffset(), s0)
	}
	for s, shiny := range []bool{false, true} {
		for f, female := range []bool{false, true} {
			out.Seen[s][f] = bits.Get(buf, l.SeenOffset(female, shiny), s0)
			out.Displayed[s][f] = bits.Get(buf, l.DisplayedOffset(female, shiny), s0)
		}
	}
	for i := 0; i < game.LanguageCount; i++ {
		if bits.Get(buf, l.LanguageOffset(), s0*game.LanguageCount+i) {
			out.Languages = append(out.Languages, i)
		}
	}
	if l.SearchAssist {
		out.SearchAssist = bits.Uint16(buf, l.SearchAssistOffset(s0))
	}

	count := 0
	if e.provider != nil {
		count = e.provider.FormCount(species, 0)
	}
	base, ok := formdex.Offset(l.Version, species)
	if count == 0 || !ok {
		return out, nil
	}
	count = min(count, l.FormBits()-base)
	out.FormTracked = true
	out.FormBase = base
	for s, shiny := range []bool{false, true} {
		out.FormSeen[s] = make([]bool, count)
		out.FormDisplayed[s] = make([]bool, count)
		for i := 0; i < count; i++ {
			out.FormSeen[s][i] = bits.Get(buf, l.FormSeenOffset(shiny), base+i)
			out.FormDisplayed[s][i] = bits.Get(buf, l.FormDisplayedOffset(shiny), base+i)
		}
	}
	return out, nil
}
