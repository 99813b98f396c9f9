package personal

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	pkerrors "github.com/FocuswithJustin/pkdex/core/errors"
)

func sampleTable(t *testing.T) *Table {
	t.Helper()
	data := Map{3: 2, 6: 3, 201: 28, 1: 1}.Encode(721)
	tbl, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return tbl
}

func TestParse(t *testing.T) {
	tbl := sampleTable(t)
	if tbl.Len() != 722 {
		t.Errorf("Len() = %d, want 722", tbl.Len())
	}

	if _, err := Parse(make([]byte, RecordLength)); !errors.Is(err, pkerrors.ErrInvalidInput) {
		t.Errorf("Parse(short) error = %v, want ErrInvalidInput", err)
	}
}

func TestParseIgnoresTrailingBytes(t *testing.T) {
	data := append(Map{2: 1}.Encode(2), 0xAA, 0xBB)
	tbl, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if tbl.Len() != 3 {
		t.Errorf("Len() = %d, want 3", tbl.Len())
	}
}

func TestFormCount(t *testing.T) {
	tbl := sampleTable(t)

	tests := []struct {
		name    string
		species int
		want    int
	}{
		{"venusaur", 3, 2},
		{"charizard", 6, 3},
		{"unown", 201, 28},
		{"single form", 1, 0},
		{"zero record", 4, 0},
		{"out of range", 900, 0},
		{"negative", -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tbl.FormCount(tt.species, 0); got != tt.want {
				t.Errorf("FormCount(%d) = %d, want %d", tt.species, got, tt.want)
			}
		})
	}
}

func TestInfoClampsForm(t *testing.T) {
	tbl := sampleTable(t)

	info, ok := tbl.Info(6, 9)
	if !ok {
		t.Fatal("Info(6) not found")
	}
	if info.Form != 3 {
		t.Errorf("Form = %d, want 3", info.Form)
	}
	if _, ok := tbl.Info(722, 0); ok {
		t.Error("Info(722) should not be found")
	}
}

func TestRecordIsReadOnlyView(t *testing.T) {
	tbl := sampleTable(t)
	rec := tbl.Record(3)
	if len(rec) != RecordLength || cap(rec) != RecordLength {
		t.Fatalf("len/cap = %d/%d, want %d", len(rec), cap(rec), RecordLength)
	}
	if tbl.Record(-3) != nil {
		t.Error("Record(-3) should be nil")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "personal")
	if err := os.WriteFile(path, Map{25: 7}.Encode(721), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	tbl, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := tbl.FormCount(25, 0); got != 7 {
		t.Errorf("FormCount(25) = %d, want 7", got)
	}

	if _, err := Load(filepath.Join(dir, "missing")); err == nil {
		t.Error("Load(missing) should fail")
	}

	short := filepath.Join(dir, "short")
	if err := os.WriteFile(short, []byte{1, 2, 3}, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err = Load(short)
	var pe *pkerrors.ParseError
	if !errors.As(err, &pe) || pe.Path != short {
		t.Errorf("Load(short) error = %v, want ParseError with path", err)
	}
}

func TestRead(t *testing.T) {
	tbl, err := Read(bytes.NewReader(Map{3: 2}.Encode(10)))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if tbl.FormCount(3, 1) != 2 {
		t.Errorf("FormCount(3) = %d, want 2", tbl.FormCount(3, 1))
	}
}

func TestMapProvider(t *testing.T) {
	var p Provider = Map{3: 2, 1: 1}
	if p.FormCount(3, 0) != 2 {
		t.Errorf("FormCount(3) = %d, want 2", p.FormCount(3, 0))
	}
	if p.FormCount(1, 0) != 0 {
		t.Errorf("FormCount(1) = %d, want 0", p.FormCount(1, 0))
	}
	if p.FormCount(99, 0) != 0 {
		t.Errorf("FormCount(99) = %d, want 0", p.FormCount(99, 0))
	}
}
