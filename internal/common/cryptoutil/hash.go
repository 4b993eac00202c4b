// Package cryptoutil provides content digests for documents handled by the
// capability providers
package cryptoutil

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"

	"golang.org/x/crypto/blake2b"

	commonerrors "github.com/deploymenttheory/go-app-orchestrator/internal/common/errors"
)

// HashAlgorithm represents supported hash algorithms
type HashAlgorithm string

const (
	SHA256     HashAlgorithm = "sha256"
	SHA512     HashAlgorithm = "sha512"
	BLAKE2b256 HashAlgorithm = "blake2b-256"
	BLAKE2b512 HashAlgorithm = "blake2b-512"
)

// Hasher provides an interface for hashing operations
type Hasher interface {
	// Algorithm returns the algorithm the hasher implements
	Algorithm() HashAlgorithm

	// Hash hashes the provided data
	Hash(data []byte) (string, error)
}

type hasherImpl struct {
	algorithm HashAlgorithm
	newHash   func() (hash.Hash, error)
}

// NewHasher creates a new Hasher for the specified algorithm
func NewHasher(algorithm HashAlgorithm) (Hasher, error) {
	var newHashFunc func() (hash.Hash, error)

	switch HashAlgorithm(strings.ToLower(string(algorithm))) {
	case SHA256:
		newHashFunc = func() (hash.Hash, error) { return sha256.New(), nil }
	case SHA512:
		newHashFunc = func() (hash.Hash, error) { return sha512.New(), nil }
	case BLAKE2b256:
		newHashFunc = func() (hash.Hash, error) { return blake2b.New256(nil) }
	case BLAKE2b512:
		newHashFunc = func() (hash.Hash, error) { return blake2b.New512(nil) }
	default:
		return nil, fmt.Errorf("%w: unsupported hash algorithm '%s'", commonerrors.ErrInvalidArgument, algorithm)
	}

	return &hasherImpl{
		algorithm: HashAlgorithm(strings.ToLower(string(algorithm))),
		newHash:   newHashFunc,
	}, nil
}

func (h *hasherImpl) Algorithm() HashAlgorithm {
	return h.algorithm
}

// Hash hashes the provided data
func (h *hasherImpl) Hash(data []byte) (string, error) {
	hasher, err := h.newHash()
	if err != nil {
		return "", fmt.Errorf("%w: %s", commonerrors.ErrInvalidHasher, err.Error())
	}
	if _, err := hasher.Write(data); err != nil {
		return "", fmt.Errorf("hash operation failed: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Digest hashes data and returns it in the "algorithm:hex" form
func Digest(algorithm HashAlgorithm, data []byte) (string, error) {
	hasher, err := NewHasher(algorithm)
	if err != nil {
		return "", err
	}
	sum, err := hasher.Hash(data)
	if err != nil {
		return "", err
	}
	return string(hasher.Algorithm()) + ":" + sum, nil
}

// ParseHashWithAlgorithm parses a hash string that might include the algorithm as a prefix
// Example formats: "sha256:1234abcd..." or "1234abcd..."
func ParseHashWithAlgorithm(hashStr string) (string, HashAlgorithm) {
	algorithmStr, hash, ok := strings.Cut(hashStr, ":")
	if ok {
		switch alg := HashAlgorithm(strings.ToLower(algorithmStr)); alg {
		case SHA256, SHA512, BLAKE2b256, BLAKE2b512:
			return hash, alg
		}
	}
	return hashStr, ""
}

// IsHexDigest reports whether s is a hex string of the given byte length
func IsHexDigest(s string, size int) bool {
	if len(s) != size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
