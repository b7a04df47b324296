package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// scopeHashLen is the length of the hash in a scope prefix.
const scopeHashLen = 16

// ScopePrefix derives a short, stable key prefix from free-form parts, for
// use with [NewScopedKeyer]. The format is kind:hash: with a 16 character hash.
func ScopePrefix(kind string, parts ...any) string {
	data, _ := json.Marshal(parts)
	return kind + ":" + Hash(data)[:scopeHashLen] + ":"
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
