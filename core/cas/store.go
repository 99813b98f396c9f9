// Package cas keeps content-addressed backups of save images.
// Every image is stored by the SHA-256 of its uncompressed bytes and
// compressed with xz on disk, so repeated backups of an unchanged save
// cost nothing.
package cas

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/ulikunitz/xz"
)

// osRename is a variable to allow testing of rename errors.
var osRename = os.Rename

// tempFileWrite is a function variable for writing to temp files (for testing).
var tempFileWrite = func(f *os.File, data []byte) (int, error) {
	return f.Write(data)
}

// tempFileClose is a function variable for closing temp files (for testing).
var tempFileClose = func(f io.Closer) error {
	return f.Close()
}

// ErrBlobNotFound is returned when a blob with the given hash does not exist.
var ErrBlobNotFound = errors.New("blob not found")

// ErrInvalidHash is returned when a hash string is not a 64-character lowercase hex string.
var ErrInvalidHash = errors.New("invalid hash format")

// ErrCorruptBlob is returned when a stored blob does not match its hash.
var ErrCorruptBlob = errors.New("blob content does not match hash")

var hashPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// Store provides content-addressed storage for save images.
type Store struct {
	root string
}

// NewStore creates a store at root, creating its directories if needed.
func NewStore(root string) (*Store, error) {
	blobDir := filepath.Join(root, "blobs", "sha256")
	if err := os.MkdirAll(blobDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the directory the store lives in.
func (s *Store) Root() string {
	return s.root
}

// Store compresses and stores data, returning its SHA-256 hash.
// Storing an existing blob is a no-op.
func (s *Store) Store(data []byte) (string, error) {
	hash := Hash(data)

	blobPath := s.pathForHash(hash)
	if _, err := os.Stat(blobPath); err == nil {
		return hash, nil
	}

	compressed, err := compress(data)
	if err != nil {
		return "", fmt.Errorf("failed to compress blob: %w", err)
	}

	if err := writeAtomic(filepath.Dir(blobPath), blobPath, ".blob-*", compressed); err != nil {
		return "", err
	}
	return hash, nil
}

// Retrieve returns the uncompressed blob with the given SHA-256 hash.
func (s *Store) Retrieve(hash string) ([]byte, error) {
	if !isValidHash(hash) {
		return nil, ErrInvalidHash
	}

	raw, err := os.ReadFile(s.pathForHash(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}

	data, err := decompress(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress blob: %w", err)
	}
	if Hash(data) != hash {
		return nil, ErrCorruptBlob
	}
	return data, nil
}

// Exists checks if a blob with the given hash exists in the store.
func (s *Store) Exists(hash string) bool {
	if !isValidHash(hash) {
		return false
	}
	_, err := os.Stat(s.pathForHash(hash))
	return err == nil
}

// pathForHash returns <root>/blobs/sha256/<first2>/<hash>.xz.
func (s *Store) pathForHash(hash string) string {
	return filepath.Join(s.root, "blobs", "sha256", hash[:2], hash+".xz")
}

func isValidHash(hash string) bool {
	return hashPattern.MatchString(hash)
}

// Hash computes the SHA-256 hash of the given data without storing it.
func Hash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

// writeAtomic writes data to dst through a temp file in dir.
func writeAtomic(dir, dst, pattern string, data []byte) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	if _, err := tempFileWrite(tempFile, data); err != nil {
		tempFileClose(tempFile)
		os.Remove(tempPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := tempFileClose(tempFile); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// Rename to final path (atomic on POSIX)
	if err := osRename(tempPath, dst); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
