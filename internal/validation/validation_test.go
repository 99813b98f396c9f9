package validation

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		wantError error
	}{
		{"valid relative", "saves/main", nil},
		{"valid absolute", "/tmp/main", nil},
		{"empty", "", ErrEmptyPath},
		{"too long", strings.Repeat("a", MaxPathLength+1), ErrPathTooLong},
		{"null byte", "main\x00.sav", ErrInvalidCharacter},
		{"control character", "main\n", ErrInvalidCharacter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path)
			if tt.wantError == nil {
				if err != nil {
					t.Errorf("ValidatePath() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantError) {
				t.Errorf("ValidatePath() error = %v, want %v", err, tt.wantError)
			}
		})
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.txt")
	if err := os.WriteFile(path, []byte("species=25"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "species=25" {
		t.Errorf("ReadFile() = %q", data)
	}

	if _, err := ReadFile(dir); !errors.Is(err, ErrNotRegular) {
		t.Errorf("ReadFile(dir) error = %v, want ErrNotRegular", err)
	}
	if _, err := ReadFile(filepath.Join(dir, "missing")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadFile(missing) error = %v, want ErrNotExist", err)
	}
	if _, err := ReadFile(""); !errors.Is(err, ErrEmptyPath) {
		t.Errorf("ReadFile(\"\") error = %v, want ErrEmptyPath", err)
	}
}

func TestReadFileTooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.Truncate(MaxFileSize + 1); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	f.Close()

	if _, err := ReadFile(path); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("ReadFile(huge) error = %v, want ErrFileTooLarge", err)
	}
}

func TestDetectFileType(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		filename string
		want     FileType
	}{
		{"json array", []byte(`[{"species":1}]`), "batch", FileTypeJSON},
		{"json with bom", []byte("\xEF\xBB\xBF  {\"species\":1}"), "batch", FileTypeJSON},
		{"xml", []byte(`<?xml version="1.0"?><specimens/>`), "batch.txt", FileTypeXML},
		{"expressions", []byte("species=25 form=1\n"), "batch.txt", FileTypeText},
		{"json by extension", []byte("\n"), "batch.json", FileTypeJSON},
		{"xz", []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00, 1, 2}, "b.xz", FileTypeXZ},
		{"sqlite", []byte("SQLite format 3\x00rest"), "journal.db", FileTypeSQLite},
		{"binary save", []byte{0, 0, 0, 0, 1, 2, 3}, "main", FileTypeBinary},
		{"empty", nil, "x", FileTypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFileType(tt.data, tt.filename); got != tt.want {
				t.Errorf("DetectFileType() = %s, want %s", got, tt.want)
			}
		})
	}
}
