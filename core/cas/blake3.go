package cas

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
)

// HashResult contains both SHA-256 and BLAKE3 hashes for a stored save.
type HashResult struct {
	SHA256 string `json:"sha256"`
	BLAKE3 string `json:"blake3"`
	Size   int    `json:"size"`
}

// blake3Pointer is the structure stored in BLAKE3 pointer files.
type blake3Pointer struct {
	SHA256 string `json:"sha256"`
}

// StoreWithBlake3 stores data and records a pointer from its BLAKE3 hash
// to the SHA-256 key.
func (s *Store) StoreWithBlake3(data []byte) (*HashResult, error) {
	sha256Hash, err := s.Store(data)
	if err != nil {
		return nil, err
	}

	blake3Hash := Blake3Hash(data)
	if err := s.createBlake3Pointer(blake3Hash, sha256Hash); err != nil {
		return nil, fmt.Errorf("failed to create BLAKE3 pointer: %w", err)
	}

	return &HashResult{
		SHA256: sha256Hash,
		BLAKE3: blake3Hash,
		Size:   len(data),
	}, nil
}

// createBlake3Pointer writes <root>/blobs/blake3/<first2>/<blake3>.json.
func (s *Store) createBlake3Pointer(blake3Hash, sha256Hash string) error {
	pointerDir := filepath.Join(s.root, "blobs", "blake3", blake3Hash[:2])
	pointerPath := filepath.Join(pointerDir, blake3Hash+".json")

	if _, err := os.Stat(pointerPath); err == nil {
		return nil
	}

	data, err := json.Marshal(blake3Pointer{SHA256: sha256Hash})
	if err != nil {
		return fmt.Errorf("failed to marshal pointer: %w", err)
	}
	return writeAtomic(pointerDir, pointerPath, ".pointer-*", data)
}

// LookupBlake3 returns the SHA-256 key recorded for a BLAKE3 hash.
func (s *Store) LookupBlake3(blake3Hash string) (string, error) {
	if !isValidHash(blake3Hash) {
		return "", ErrInvalidHash
	}

	pointerPath := filepath.Join(s.root, "blobs", "blake3", blake3Hash[:2], blake3Hash+".json")
	data, err := os.ReadFile(pointerPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrBlobNotFound
		}
		return "", fmt.Errorf("failed to read pointer: %w", err)
	}

	var pointer blake3Pointer
	if err := json.Unmarshal(data, &pointer); err != nil {
		return "", fmt.Errorf("failed to parse pointer: %w", err)
	}
	return pointer.SHA256, nil
}

// RetrieveByBlake3 retrieves a save by its BLAKE3 hash.
func (s *Store) RetrieveByBlake3(blake3Hash string) ([]byte, error) {
	sha256Hash, err := s.LookupBlake3(blake3Hash)
	if err != nil {
		return nil, err
	}
	return s.Retrieve(sha256Hash)
}

// RetrieveAny accepts either a SHA-256 or a BLAKE3 hash.
func (s *Store) RetrieveAny(hash string) ([]byte, error) {
	data, err := s.Retrieve(hash)
	if err == ErrBlobNotFound {
		return s.RetrieveByBlake3(hash)
	}
	return data, err
}

// Blake3Hash computes the BLAKE3 hash of the given data without storing it.
func Blake3Hash(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}
