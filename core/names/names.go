// Package names loads the localized name tables (species, moves, items,
// abilities, natures) shipped next to the tool.
//
// Each table is a text file with one name per line, stored as
// <dir>/<lang>/<kind>_<lang>.txt. Names are cut to a fixed width, blank
// lines are skipped and lookups past the end of a table return Fallback.
package names

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/FocuswithJustin/pkdex/core/errors"
)

// Fallback is returned for any index a table does not cover.
const Fallback = "(None)"

// Kind describes one name table.
type Kind struct {
	Name  string
	Width int // maximum bytes kept per entry
	Count int // entries in the table
}

// Tables shipped for Generation 6.
var (
	Abilities = Kind{Name: "abilities", Width: 24, Count: 192}
	Items     = Kind{Name: "items", Width: 32, Count: 776}
	Moves     = Kind{Name: "moves", Width: 24, Count: 622}
	Natures   = Kind{Name: "natures", Width: 16, Count: 25}
	Species   = Kind{Name: "species", Width: 24, Count: 722}
)

// Kinds lists every table loaded by LoadSet.
var Kinds = []Kind{Abilities, Items, Moves, Natures, Species}

// KindOf returns the kind whose table is called name.
func KindOf(name string) (Kind, bool) {
	for _, k := range Kinds {
		if k.Name == name {
			return k, true
		}
	}
	return Kind{}, false
}

// Languages are the locales name tables exist for.
var Languages = []string{"en", "fr", "de", "es"}

var hiddenPowerTypes = []string{
	"Fighting", "Flying", "Poison", "Ground",
	"Rock", "Bug", "Ghost", "Steel", "Fire", "Water",
	"Grass", "Electric", "Psychic", "Ice", "Dragon", "Dark",
}

// HiddenPowerType returns the English type name of a Hidden Power index.
func HiddenPowerType(i int) string {
	if i < 0 || i >= len(hiddenPowerTypes) {
		return Fallback
	}
	return hiddenPowerTypes[i]
}

var bom = []byte{0xEF, 0xBB, 0xBF}

// Table is one loaded name table.
type Table struct {
	kind    Kind
	entries []string
}

// Parse splits raw file contents into a table of kind k.
func Parse(k Kind, data []byte) *Table {
	data = bytes.TrimPrefix(data, bom)
	t := &Table{kind: k, entries: make([]string, 0, k.Count)}
	for len(data) > 0 && len(t.entries) < k.Count {
		line := data
		if i := bytes.IndexAny(data, "\n\x00"); i >= 0 {
			line, data = data[:i], data[i+1:]
		} else {
			data = nil
		}
		line = bytes.TrimRight(line, "\r")
		if len(line) == 0 {
			continue
		}
		t.entries = append(t.entries, truncate(line, k.Width))
	}
	return t
}

// truncate cuts b to at most width bytes without splitting a rune.
func truncate(b []byte, width int) string {
	if len(b) <= width {
		return string(b)
	}
	b = b[:width]
	for len(b) > 0 && !utf8.Valid(b) {
		b = b[:len(b)-1]
	}
	return string(b)
}

// Path returns where the table of kind k for lang lives under dir.
func Path(dir, lang string, k Kind) string {
	return filepath.Join(dir, lang, fmt.Sprintf("%s_%s.txt", k.Name, lang))
}

func supported(lang string) bool {
	for _, l := range Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// Load reads the table of kind k for lang from dir.
func Load(dir, lang string, k Kind) (*Table, error) {
	if !supported(lang) {
		return nil, errors.NewUnsupported("language", lang)
	}
	path := Path(dir, lang, k)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	return Parse(k, data), nil
}

// Name returns entry i, or Fallback when the table has no such entry.
func (t *Table) Name(i int) string {
	if t == nil || i < 0 || i >= len(t.entries) {
		return Fallback
	}
	return t.entries[i]
}

// Len returns the number of entries loaded.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Set groups the tables of one language.
type Set struct {
	Lang   string
	tables map[string]*Table
}

// LoadSet loads every table of Kinds for lang.
func LoadSet(dir, lang string) (*Set, error) {
	s := &Set{Lang: lang, tables: make(map[string]*Table, len(Kinds))}
	for _, k := range Kinds {
		t, err := Load(dir, lang, k)
		if err != nil {
			return nil, fmt.Errorf("load %s names: %w", k.Name, err)
		}
		s.tables[k.Name] = t
	}
	return s, nil
}

func (s *Set) table(k Kind) *Table {
	if s == nil {
		return nil
	}
	return s.tables[k.Name]
}

// Name returns entry i of the table of kind k.
func (s *Set) Name(k Kind, i int) string { return s.table(k).Name(i) }

// Len returns the number of entries loaded for kind k.
func (s *Set) Len(k Kind) int { return s.table(k).Len() }

// Species returns the name of a national dex number.
func (s *Set) Species(i int) string { return s.table(Species).Name(i) }

// Move returns the name of a move.
func (s *Set) Move(i int) string { return s.table(Moves).Name(i) }

// Item returns the name of an item.
func (s *Set) Item(i int) string { return s.table(Items).Name(i) }

// Ability returns the name of an ability.
func (s *Set) Ability(i int) string { return s.table(Abilities).Name(i) }

// Nature returns the name of a nature.
func (s *Set) Nature(i int) string { return s.table(Natures).Name(i) }
