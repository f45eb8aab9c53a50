package audit

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"
)

// Signer signs audit step hashes with a process-held Ed25519 private key.
// A nil *Signer is valid and means signing is disabled.
type Signer struct {
	key ed25519.PrivateKey
}

// NewSigner loads an Ed25519 seed from path. The file may hold the raw
// 32-byte seed or its hex encoding. An empty path disables signing.
func NewSigner(path string) (*Signer, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read audit signing key: %w", err)
	}
	seed, err := decodeSeed(raw)
	if err != nil {
		return nil, fmt.Errorf("decode audit signing key: %w", err)
	}
	return &Signer{key: ed25519.NewKeyFromSeed(seed)}, nil
}

func decodeSeed(raw []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == ed25519.SeedSize {
		return trimmed, nil
	}
	decoded, err := hex.DecodeString(string(trimmed))
	if err != nil {
		return nil, fmt.Errorf("key material must be %d raw bytes or hex-encoded: %w", ed25519.SeedSize, err)
	}
	if len(decoded) != ed25519.SeedSize {
		return nil, fmt.Errorf("decoded key material must be %d bytes, got %d", ed25519.SeedSize, len(decoded))
	}
	return decoded, nil
}

// Sign signs the ASCII hash string and returns "ed25519:" + hex(signature).
// Called only when s is non-nil; Store checks for that before calling.
func (s *Signer) Sign(hash string) (string, error) {
	sig := ed25519.Sign(s.key, []byte(hash))
	return "ed25519:" + hex.EncodeToString(sig), nil
}
