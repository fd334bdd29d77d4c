package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// GenerateServerSeed returns a fresh random seed and its SHA-256 hash.
// The hash is published when the round starts; the seed is revealed in
// the round archive so anyone can replay the path.
func GenerateServerSeed() (seed string, hash string) {
	bytes := make([]byte, 32)
	rand.Read(bytes)

	seed = hex.EncodeToString(bytes)

	h := sha256.Sum256([]byte(seed))
	hash = hex.EncodeToString(h[:])

	return
}

// VerifySeed checks a revealed seed against its published commitment.
func VerifySeed(seed, hash string) bool {
	h := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(h[:]) == hash
}
