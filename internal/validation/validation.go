// Package validation checks user-supplied paths and files before the tool
// reads them: path sanity, size limits and sniffing which format a batch
// file really holds.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

const (
	// MaxFileSize is the largest save or batch file accepted (16 MB).
	MaxFileSize = 16 << 20
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
)

// Common validation errors.
var (
	ErrPathTooLong      = errors.New("path too long")
	ErrInvalidCharacter = errors.New("invalid character in path")
	ErrEmptyPath        = errors.New("path cannot be empty")
	ErrFileTooLarge     = errors.New("file too large")
	ErrNotRegular       = errors.New("not a regular file")
)

// ValidatePath checks a path for length limits and control characters.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}
	if strings.Contains(path, "\x00") {
		return fmt.Errorf("%w: null byte not allowed", ErrInvalidCharacter)
	}
	for _, r := range path {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}
	return nil
}

// ReadFile validates path and reads it, refusing anything that is not a
// regular file or is larger than MaxFileSize.
func ReadFile(path string) ([]byte, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrNotRegular, path)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrFileTooLarge, path, info.Size())
	}

	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("%w: %s", ErrFileTooLarge, path)
	}
	return data, nil
}

// FileType is the detected format of a batch or save file.
type FileType string

const (
	FileTypeJSON    FileType = "json"
	FileTypeXML     FileType = "xml"
	FileTypeText    FileType = "text"
	FileTypeXZ      FileType = "xz"
	FileTypeSQLite  FileType = "sqlite"
	FileTypeBinary  FileType = "binary"
	FileTypeUnknown FileType = "unknown"
)

var magicBytes = []struct {
	fileType FileType
	magic    []byte
}{
	{FileTypeXZ, []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}},
	{FileTypeSQLite, []byte("SQLite format 3")},
}

// DetectFileType sniffs the first bytes of data, falling back to the
// filename extension when the content alone is ambiguous.
func DetectFileType(data []byte, filename string) FileType {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	for _, sig := range magicBytes {
		if bytes.HasPrefix(head, sig.magic) {
			return sig.fileType
		}
	}
	if !isLikelyText(head) {
		if len(head) == 0 {
			return FileTypeUnknown
		}
		return FileTypeBinary
	}

	trimmed := bytes.TrimLeft(bytes.TrimPrefix(head, []byte{0xEF, 0xBB, 0xBF}), " \t\r\n")
	switch {
	case bytes.HasPrefix(trimmed, []byte("<")):
		return FileTypeXML
	case bytes.HasPrefix(trimmed, []byte("[")), bytes.HasPrefix(trimmed, []byte("{")):
		return FileTypeJSON
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return FileTypeJSON
	case ".xml":
		return FileTypeXML
	}
	return FileTypeText
}

// isLikelyText reports whether buf looks like UTF-8 or ASCII text.
func isLikelyText(buf []byte) bool {
	if len(buf) == 0 {
		return false
	}
	if bytes.IndexByte(buf, 0) != -1 {
		return false
	}

	printable := 0
	control := 0
	for _, b := range buf {
		if b >= 0x20 && b <= 0x7e || b == '\t' || b == '\n' || b == '\r' {
			printable++
		} else if b < 0x20 {
			control++
		}
	}
	return printable > 0 && float64(printable)/float64(printable+control) > 0.95
}
