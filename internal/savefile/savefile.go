// Package savefile reads save images from disk and writes them back
// atomically.
package savefile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/FocuswithJustin/pkdex/core/errors"
	"github.com/FocuswithJustin/pkdex/core/game"
	"github.com/FocuswithJustin/pkdex/internal/validation"
)

// Seams for exercising write failures in tests.
var (
	osRename      = os.Rename
	tempFileWrite = func(f *os.File, data []byte) (int, error) {
		return f.Write(data)
	}
	tempFileClose = func(f io.Closer) error {
		return f.Close()
	}
)

// Save is a save image loaded into memory.
type Save struct {
	Path   string
	Data   []byte
	Layout game.Layout
}

// Detect guesses the game family from the size of a save image.
func Detect(data []byte) (game.Version, bool) {
	for _, v := range game.Versions {
		if len(data) == game.MustLayout(v).SaveSize {
			return v, true
		}
	}
	return 0, false
}

// Read loads the save image at path. When layout has no version the family
// is detected from the image size.
func Read(path string, layout game.Layout) (*Save, error) {
	data, err := validation.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}

	if !layout.Version.Valid() {
		v, ok := Detect(data)
		if !ok {
			return nil, errors.NewUnsupported("save size", fmt.Sprintf("%d bytes does not match a known game, pass --game", len(data)))
		}
		layout = game.MustLayout(v)
	}

	if need := layout.MinBufferLength(); len(data) < need {
		return nil, fmt.Errorf("%s: %w", path, errors.NewPrecondition("buffer", len(data), need))
	}
	return &Save{Path: path, Data: data, Layout: layout}, nil
}

// Write stores s.Data back to s.Path.
func (s *Save) Write() error {
	return Write(s.Path, s.Data)
}

// Write replaces the file at path with data through a temp file in the same
// directory, keeping the existing file mode.
func Write(path string, data []byte) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	tempFile, err := os.CreateTemp(dir, ".pkdex-save-*")
	if err != nil {
		return errors.NewIO("create temp file", dir, err)
	}
	tempPath := tempFile.Name()

	if _, err := tempFileWrite(tempFile, data); err != nil {
		tempFileClose(tempFile)
		os.Remove(tempPath)
		return errors.NewIO("write temp file", tempPath, err)
	}
	if err := tempFileClose(tempFile); err != nil {
		os.Remove(tempPath)
		return errors.NewIO("close temp file", tempPath, err)
	}
	if err := os.Chmod(tempPath, mode); err != nil {
		os.Remove(tempPath)
		return errors.NewIO("chmod", tempPath, err)
	}
	if err := osRename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return errors.NewIO("rename", path, err)
	}
	return nil
}
