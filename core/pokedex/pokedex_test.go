package pokedex

import (
	"bytes"
	"errors"
	"testing"

	"github.com/FocuswithJustin/pkdex/core/bits"
	pkerrors "github.com/FocuswithJustin/pkdex/core/errors"
	"github.com/FocuswithJustin/pkdex/core/game"
	"github.com/FocuswithJustin/pkdex/core/personal"
)

// forms mirrors the personal data of the species used below.
var forms = personal.Map{
	3:   3,  // Venusaur
	25:  7,  // Pikachu
	201: 28, // Unown
	351: 4,  // Castform
	666: 20, // Vivillon
}

func newEngine(t *testing.T, v game.Version) (*Engine, []byte) {
	t.Helper()
	e, err := ForVersion(v, forms)
	if err != nil {
		t.Fatalf("ForVersion(%v) failed: %v", v, err)
	}
	return e, make([]byte, e.Layout().MinBufferLength())
}

func mustPanic(t *testing.T, fn func()) error {
	t.Helper()
	var got error
	func() {
		defer func() {
			r := recover()
			if r == nil {
				t.Fatal("expected panic")
			}
			err, ok := r.(error)
			if !ok {
				t.Fatalf("panic value %v is not an error", r)
			}
			got = err
		}()
		fn()
	}()
	return got
}

// TestFirstImportScenario follows a fresh native Venusaur into an X/Y save.
func TestFirstImportScenario(t *testing.T) {
	e, buf := newEngine(t, game.XY)
	l := e.Layout()

	e.Apply(buf, Record{Species: 3, Form: 0, Language: 2, Gender: Female, NativeBorn: true})

	if !bits.Get(buf, l.OwnedOffset(), 2) {
		t.Error("owned bit for species index 2 not set")
	}
	if bits.Get(buf, l.ForeignOffset(), 2) {
		t.Error("foreign bit should not be set for a native specimen")
	}
	if !bits.Get(buf, l.SeenOffset(true, false), 2) {
		t.Error("seen bit (female, normal) not set")
	}
	if !bits.Get(buf, l.DisplayedOffset(true, false), 2) {
		t.Error("displayed bit (female, normal) not set")
	}
	if !bits.Get(buf, l.FormSeenOffset(false), 131) {
		t.Error("form seen bit 131 not set in normal block")
	}
	if !bits.Get(buf, l.FormDisplayedOffset(false), 131) {
		t.Error("form displayed bit 131 not set in normal block")
	}
	if bits.Get(buf, l.FormSeenOffset(true), 131) || bits.Get(buf, l.FormDisplayedOffset(true), 131) {
		t.Error("shiny form blocks should stay clear")
	}
	if !bits.Get(buf, l.LanguageOffset(), 2*game.LanguageCount+1) {
		t.Error("English language bit not set")
	}
}

func TestIdempotence(t *testing.T) {
	records := []Record{
		{Species: 3, Form: 1, Language: 2, Gender: Male},
		{Species: 201, Form: 17, Language: 8, Shiny: true, Gender: Genderless, NativeBorn: true},
		{Species: 351, Form: 2, Language: 5, Gender: Female},
		{Species: 700, Language: 1, Gender: Female},
		{Species: 25, Form: 3, Language: 2},
		{Species: 25, Form: 6, Language: 2, Shiny: true},
	}
	for _, v := range game.Versions {
		for _, rec := range records {
			e, buf := newEngine(t, v)
			e.Apply(buf, rec)
			once := bytes.Clone(buf)
			e.Apply(buf, rec)
			if !bytes.Equal(once, buf) {
				t.Errorf("%v %+v: second import changed the buffer", v, rec)
			}
		}
	}
}

func TestFirstSeenDisplaysExactlyOnePair(t *testing.T) {
	for _, shiny := range []bool{false, true} {
		for _, gender := range []int{Male, Female} {
			e, buf := newEngine(t, game.ORAS)
			l := e.Layout()
			e.Apply(buf, Record{Species: 150, Shiny: shiny, Gender: gender})

			count := 0
			for _, s := range []bool{false, true} {
				for _, f := range []bool{false, true} {
					if bits.Get(buf, l.DisplayedOffset(f, s), 149) {
						count++
						if s != shiny || f != (gender == Female) {
							t.Errorf("displayed (female=%v, shiny=%v), want (female=%v, shiny=%v)", f, s, gender == Female, shiny)
						}
					}
				}
			}
			if count != 1 {
				t.Errorf("shiny=%v gender=%d: %d displayed bits, want 1", shiny, gender, count)
			}
		}
	}
}

func TestDisplayedKeepsFirstPair(t *testing.T) {
	e, buf := newEngine(t, game.XY)
	l := e.Layout()

	e.Apply(buf, Record{Species: 700, Gender: Male, NativeBorn: true})
	e.Apply(buf, Record{Species: 700, Gender: Female, Shiny: true, NativeBorn: true})

	if !bits.Get(buf, l.SeenOffset(true, true), 699) {
		t.Error("second pair should be seen")
	}
	if bits.Get(buf, l.DisplayedOffset(true, true), 699) {
		t.Error("second pair should not be displayed")
	}
	if !bits.Get(buf, l.DisplayedOffset(false, false), 699) {
		t.Error("first pair should stay displayed")
	}
}

func countDisplayedSeenForms(buf []byte, l game.Layout, base, count int, shiny bool) int {
	n := 0
	for i := 0; i < count; i++ {
		if bits.Get(buf, l.FormDisplayedOffset(shiny), base+i) && bits.Get(buf, l.FormSeenOffset(shiny), base+i) {
			n++
		}
	}
	return n
}

func TestAtMostOneDisplayedForm(t *testing.T) {
	for _, v := range game.Versions {
		e, buf := newEngine(t, v)
		l := e.Layout()
		for i := 0; i < 60; i++ {
			e.Apply(buf, Record{
				Species: 201,
				Form:    (i * 7) % 28,
				Shiny:   i%3 == 0,
				Gender:  i % 3,
			})
			for _, shiny := range []bool{false, true} {
				if n := countDisplayedSeenForms(buf, l, 0, 28, shiny); n > 1 {
					t.Fatalf("%v step %d shiny=%v: %d displayed forms", v, i, shiny, n)
				}
			}
		}
	}
}

func TestSelfHealingClearsOrphanedDisplayedForm(t *testing.T) {
	e, buf := newEngine(t, game.XY)
	l := e.Layout()
	const base = 83 // Vivillon

	// Seen by the game but with a displayed form that was never seen.
	bits.Set(buf, l.SeenOffset(false, false), 665, true)
	bits.Set(buf, l.FormDisplayedOffset(false), base+4, true)

	e.Apply(buf, Record{Species: 666, Form: 9, Gender: Female})

	if bits.Get(buf, l.FormDisplayedOffset(false), base+4) {
		t.Error("orphaned displayed form should be cleared")
	}
	if !bits.Get(buf, l.FormDisplayedOffset(false), base+9) {
		t.Error("current form should become displayed")
	}
	if n := countDisplayedSeenForms(buf, l, base, 20, false); n != 1 {
		t.Errorf("%d displayed forms, want 1", n)
	}
}

func TestSelfHealingRespectsDisplayedSpecies(t *testing.T) {
	e, buf := newEngine(t, game.XY)
	l := e.Layout()
	const base = 83

	bits.Set(buf, l.SeenOffset(true, true), 665, true)
	bits.Set(buf, l.DisplayedOffset(true, true), 665, true)
	bits.Set(buf, l.FormDisplayedOffset(true), base+2, true)

	e.Apply(buf, Record{Species: 666, Form: 5, Gender: Male})

	if bits.Get(buf, l.FormDisplayedOffset(true), base+2) {
		t.Error("orphaned displayed form should be cleared")
	}
	if bits.Get(buf, l.FormDisplayedOffset(false), base+5) {
		t.Error("species already displayed: current form should not be displayed")
	}
}

func TestSeenSpeciesWithoutFormsGetsDisplayedForm(t *testing.T) {
	e, buf := newEngine(t, game.ORAS)
	l := e.Layout()

	bits.Set(buf, l.SeenOffset(false, false), 2, true)
	bits.Set(buf, l.DisplayedOffset(false, false), 2, true)

	e.Apply(buf, Record{Species: 3, Form: 1, Shiny: true})

	if !bits.Get(buf, l.FormDisplayedOffset(true), 132) {
		t.Error("form displayed bit should be set when none existed")
	}
}

func TestValidDisplayedFormIsKept(t *testing.T) {
	e, buf := newEngine(t, game.ORAS)
	l := e.Layout()

	e.Apply(buf, Record{Species: 3, Form: 0})
	e.Apply(buf, Record{Species: 3, Form: 1, Shiny: true})

	if !bits.Get(buf, l.FormDisplayedOffset(false), 131) {
		t.Error("first form should stay displayed")
	}
	if bits.Get(buf, l.FormDisplayedOffset(true), 132) {
		t.Error("second form should not be displayed")
	}
	if !bits.Get(buf, l.FormSeenOffset(true), 132) {
		t.Error("second form should be seen in the shiny block")
	}
}

func TestCosmeticSpeciesMarksAllForms(t *testing.T) {
	e, buf := newEngine(t, game.XY)
	l := e.Layout()

	e.Apply(buf, Record{Species: 351, Form: 2})

	for i := 0; i < 4; i++ {
		if !bits.Get(buf, l.FormSeenOffset(false), 52+i) {
			t.Errorf("Castform form %d not seen", i)
		}
	}
	if bits.Get(buf, l.FormSeenOffset(false), 56) {
		t.Error("Cherrim's first bit should not be touched")
	}
	if !bits.Get(buf, l.FormDisplayedOffset(false), 54) {
		t.Error("encountered form should be displayed")
	}
}

func TestSplitSpeciesMarksBaseAndSixth(t *testing.T) {
	e, buf := newEngine(t, game.ORAS)
	l := e.Layout()

	e.Apply(buf, Record{Species: 25, Form: 3, Shiny: true})

	off := l.FormSeenOffset(true)
	if !bits.Get(buf, off, 189) || !bits.Get(buf, off, 195) {
		t.Error("Pikachu bits 189 and 195 should be seen")
	}
	if bits.Get(buf, off, 192) {
		t.Error("Pikachu form bit 192 should not be seen")
	}
	if !bits.Get(buf, l.FormDisplayedOffset(true), 192) {
		t.Error("Pikachu form 3 should be displayed")
	}
}

func TestSplitSpeciesReimportKeepsDisplayedForm(t *testing.T) {
	e, buf := newEngine(t, game.ORAS)
	l := e.Layout()

	rec := Record{Species: 25, Form: 3, Language: 2}
	e.Apply(buf, rec)
	e.Apply(buf, rec)
	if !bits.Get(buf, l.FormDisplayedOffset(false), 192) {
		t.Error("Pikachu form 3 should stay displayed after a second import")
	}
}

func TestSplitSpeciesClearsUncoveredDisplayedForm(t *testing.T) {
	e, buf := newEngine(t, game.ORAS)
	l := e.Layout()

	// Seen as a species, shiny form 3 displayed, but no shiny form seen.
	bits.Set(buf, l.SeenOffset(false, false), 24, true)
	bits.Set(buf, l.FormDisplayedOffset(true), 192, true)

	e.Apply(buf, Record{Species: 25, Form: 0, Language: 2})

	if bits.Get(buf, l.FormDisplayedOffset(true), 192) {
		t.Error("shiny form 3 without a shiny base seen bit should be cleared")
	}
	if !bits.Get(buf, l.FormDisplayedOffset(false), 189) {
		t.Error("current form should be displayed after the repair")
	}
}

func TestUntrackedFormsLeaveFormDexAlone(t *testing.T) {
	e, buf := newEngine(t, game.XY)
	l := e.Layout()

	// Pikachu has forms but no X/Y form-dex entry.
	e.Apply(buf, Record{Species: 25, Form: 3})

	region := buf[l.FormSeenOffset(false):l.LanguageOffset()]
	if !bytes.Equal(region, make([]byte, len(region))) {
		t.Error("form-dex should stay untouched")
	}
	if !bits.Get(buf, l.SeenOffset(false, false), 24) {
		t.Error("seen bit should still be set")
	}
}

func TestLanguageBoundary(t *testing.T) {
	for _, raw := range []int{0, 6, 9, 42, -1} {
		e, buf := newEngine(t, game.XY)
		l := e.Layout()
		e.Apply(buf, Record{Species: 700, Language: raw})

		start := l.LanguageOffset()
		end := start + (l.SpeciesCount*game.LanguageCount+7)/8
		if !bytes.Equal(buf[start:end], make([]byte, end-start)) {
			t.Errorf("raw language %d modified the language region", raw)
		}
	}
}

func TestLanguageIndex(t *testing.T) {
	tests := []struct {
		raw    int
		want   int
		wantOK bool
	}{
		{1, 0, true},
		{2, 1, true},
		{5, 4, true},
		{6, -1, false},
		{7, 5, true},
		{8, 6, true},
		{9, 7, false},
		{0, -1, false},
	}
	for _, tt := range tests {
		got, ok := LanguageIndex(tt.raw)
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Errorf("LanguageIndex(%d) = (%d, %v), want (%d, %v)", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
	if LanguageName(6) != "KOR" || LanguageName(7) != "???" {
		t.Errorf("LanguageName: got %q, %q", LanguageName(6), LanguageName(7))
	}
}

func TestOwnershipExclusivity(t *testing.T) {
	tests := []struct {
		name        string
		version     game.Version
		species     int
		native      bool
		wantOwned   bool
		wantForeign bool
	}{
		{"xy foreign low species", game.XY, 25, false, false, true},
		{"xy native low species", game.XY, 25, true, true, false},
		{"xy foreign kalos species", game.XY, 700, false, false, false},
		{"xy native kalos species", game.XY, 700, true, true, false},
		{"xy foreign last pre-kalos species", game.XY, 649, false, false, true},
		{"xy foreign first kalos species", game.XY, 650, false, false, false},
		{"xy native first kalos species", game.XY, 650, true, true, false},
		{"oras foreign", game.ORAS, 25, false, true, false},
		{"oras native", game.ORAS, 700, true, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, buf := newEngine(t, tt.version)
			l := e.Layout()
			e.Apply(buf, Record{Species: tt.species, NativeBorn: tt.native})

			s0 := tt.species - 1
			if got := bits.Get(buf, l.OwnedOffset(), s0); got != tt.wantOwned {
				t.Errorf("owned = %v, want %v", got, tt.wantOwned)
			}
			if got := bits.Get(buf, l.ForeignOffset(), s0); got != tt.wantForeign {
				t.Errorf("foreign = %v, want %v", got, tt.wantForeign)
			}
		})
	}
}

func TestSearchAssistCounter(t *testing.T) {
	e, buf := newEngine(t, game.ORAS)
	l := e.Layout()

	e.Apply(buf, Record{Species: 3})
	if got := bits.Uint16(buf, l.SearchAssistOffset(2)); got != 1 {
		t.Errorf("counter = %d, want 1", got)
	}

	bits.PutUint16(buf, l.SearchAssistOffset(2), 5)
	e.Apply(buf, Record{Species: 3})
	if got := bits.Uint16(buf, l.SearchAssistOffset(2)); got != 5 {
		t.Errorf("counter = %d, want 5", got)
	}
}

func TestXYHasNoSearchAssist(t *testing.T) {
	e, buf := newEngine(t, game.XY)
	l := e.Layout()
	e.Apply(buf, Record{Species: 3, NativeBorn: true})

	if got := bits.Uint16(buf, l.SearchAssistOffset(2)); got != 0 {
		t.Errorf("counter slot = %d, want untouched", got)
	}
}

func TestPreconditionsLeaveBufferUntouched(t *testing.T) {
	tests := []struct {
		name  string
		rec   Record
		field string
	}{
		{"species zero", Record{Species: 0}, "species"},
		{"species past dex", Record{Species: 722}, "species"},
		{"negative form", Record{Species: 201, Form: -1}, "form"},
		{"form past count", Record{Species: 3, Form: 3}, "form"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, buf := newEngine(t, game.XY)
			bits.Set(buf, e.Layout().OwnedOffset(), 0, true)
			before := bytes.Clone(buf)

			err := mustPanic(t, func() { e.Apply(buf, tt.rec) })
			var pe *pkerrors.PreconditionError
			if !errors.As(err, &pe) || pe.Field != tt.field {
				t.Fatalf("panic = %v, want PreconditionError on %s", err, tt.field)
			}
			if !bytes.Equal(before, buf) {
				t.Error("buffer modified by failed import")
			}
			if cerr := e.Check(buf, tt.rec); !errors.Is(cerr, pkerrors.ErrPrecondition) {
				t.Errorf("Check() = %v, want ErrPrecondition", cerr)
			}
		})
	}
}

func TestUndersizedBuffer(t *testing.T) {
	e, buf := newEngine(t, game.ORAS)
	short := buf[:len(buf)-1]

	err := mustPanic(t, func() { e.Apply(short, Record{Species: 1}) })
	var pe *pkerrors.PreconditionError
	if !errors.As(err, &pe) || pe.Field != "buffer" {
		t.Fatalf("panic = %v, want buffer PreconditionError", err)
	}
	if !bytes.Equal(short, make([]byte, len(short))) {
		t.Error("buffer modified by failed import")
	}
}

func TestFormCountBeyondBlock(t *testing.T) {
	e := New(game.MustLayout(game.XY), personal.Map{460: 9})
	buf := make([]byte, e.Layout().MinBufferLength())
	if err := e.Check(buf, Record{Species: 460, Form: 1}); !errors.Is(err, pkerrors.ErrPrecondition) {
		t.Errorf("Check() = %v, want ErrPrecondition", err)
	}
}

func TestUnknownLayout(t *testing.T) {
	e := New(game.Layout{}, forms)
	if err := e.Check(nil, Record{Species: 1}); !errors.Is(err, pkerrors.ErrUnsupported) {
		t.Errorf("Check() = %v, want ErrUnsupported", err)
	}
	if _, err := ForVersion(game.Version(7), forms); err == nil {
		t.Error("ForVersion(7) should fail")
	}
}

func TestPackageApply(t *testing.T) {
	buf := make([]byte, game.MustLayout(game.XY).MinBufferLength())
	Apply(game.XY, buf, nil, Record{Species: 1, NativeBorn: true})
	if !bits.Get(buf, game.MustLayout(game.XY).OwnedOffset(), 0) {
		t.Error("owned bit not set")
	}
}

func TestCustomDexOffset(t *testing.T) {
	l := game.MustLayout(game.XY).WithDexOffset(0x40)
	e := New(l, forms)
	buf := make([]byte, l.MinBufferLength())
	e.Apply(buf, Record{Species: 1, NativeBorn: true})
	if buf[0x48] != 0x01 {
		t.Errorf("owned byte = %#02x, want 0x01", buf[0x48])
	}
}
