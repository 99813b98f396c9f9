// Package personal loads species metadata from a personal table and answers
// the form-count queries of the registry engine.
//
// A personal table is a flat file of fixed-width records indexed by
// national dex number; record 0 is the placeholder entry. Byte 0xC of each
// record holds the number of forms of the species, base form included.
package personal

import (
	"fmt"
	"io"
	"os"

	"github.com/FocuswithJustin/pkdex/core/errors"
)

const (
	// RecordLength is the width of one personal record.
	RecordLength = 0x0E
	// FormCountOffset is the byte holding the form count inside a record.
	FormCountOffset = 0x0C
)

// Provider answers how many alternate forms a species has. Zero means the
// species has a single appearance.
type Provider interface {
	FormCount(species, form int) int
}

// Info is the metadata of one species record.
type Info struct {
	Species int
	Form    int // requested form, clamped to the species' last form
	Forms   int // raw form count, base form included
}

// FormCount returns Forms when the species has alternate forms, 0 otherwise.
func (i Info) FormCount() int {
	if i.Forms <= 1 {
		return 0
	}
	return i.Forms
}

// Table is a loaded personal table. It is read-only after loading and safe
// for concurrent use.
type Table struct {
	records []byte
	count   int
}

// Parse builds a table from raw personal data. Trailing bytes that do not
// form a full record are ignored.
func Parse(data []byte) (*Table, error) {
	count := len(data) / RecordLength
	if count < 2 {
		return nil, errors.NewParse("personal", "", fmt.Sprintf("need at least 2 records, got %d bytes", len(data)))
	}
	records := make([]byte, count*RecordLength)
	copy(records, data)
	return &Table{records: records, count: count}, nil
}

// Read parses a personal table from r.
func Read(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewIO("read", "personal", err)
	}
	return Parse(data)
}

// Load reads a personal table from disk.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		var pe *errors.ParseError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return nil, err
	}
	return t, nil
}

// Len returns the number of records, placeholder included.
func (t *Table) Len() int {
	return t.count
}

// Record returns the raw record of species, or nil if out of range.
func (t *Table) Record(species int) []byte {
	if species < 0 || species >= t.count {
		return nil
	}
	off := species * RecordLength
	return t.records[off : off+RecordLength : off+RecordLength]
}

// Info returns the metadata of species. Forms past the species' last form
// are clamped to it.
func (t *Table) Info(species, form int) (Info, bool) {
	rec := t.Record(species)
	if rec == nil {
		return Info{}, false
	}
	forms := int(rec[FormCountOffset])
	if form > forms {
		form = forms
	}
	if form < 0 {
		form = 0
	}
	return Info{Species: species, Form: form, Forms: forms}, true
}

// FormCount implements Provider. Unknown species report no forms.
func (t *Table) FormCount(species, form int) int {
	info, ok := t.Info(species, form)
	if !ok {
		return 0
	}
	return info.FormCount()
}

// Map is an in-memory Provider keyed by species, holding raw form counts.
type Map map[int]int

// FormCount implements Provider.
func (m Map) FormCount(species, _ int) int {
	return Info{Species: species, Forms: m[species]}.FormCount()
}

// Encode renders m as personal table bytes covering species 0..maxSpecies.
func (m Map) Encode(maxSpecies int) []byte {
	out := make([]byte, (maxSpecies+1)*RecordLength)
	for species, forms := range m {
		if species < 0 || species > maxSpecies {
			continue
		}
		out[species*RecordLength+FormCountOffset] = byte(forms)
	}
	return out
}
