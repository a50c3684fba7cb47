// Package hashkey derives the deterministic content-address for a cell.
//
// The digest is a pure function of (cell id, creation timestamp string), so
// two parties that agree on those out of band converge on the same key with
// no session or handshake. Anyone holding both plaintext inputs can derive
// the key; truncated prefixes in API responses are convenience, not secrecy.
package hashkey

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// separator sits between the two identity inputs. A NUL byte cannot appear in
// a cell id or an ISO timestamp, so "ab"+"c" and "a"+"bc" never collide.
const separator = "\x00"

// DigestLen is the hex length of a SHA-256 digest.
const DigestLen = 64

// PrefixLen is the truncated prefix surfaced in API responses.
const PrefixLen = 8

var digestRx = regexp.MustCompile(`^[a-f0-9]{64}$`)

// Compute returns the lowercase hex SHA-256 of the identity tuple.
func Compute(cellID, createdAt string) (string, error) {
	if cellID == "" {
		return "", fmt.Errorf("cell id is required")
	}
	if createdAt == "" {
		return "", fmt.Errorf("created_at is required")
	}
	if strings.Contains(cellID, separator) || strings.Contains(createdAt, separator) {
		return "", fmt.Errorf("identity inputs must not contain NUL")
	}
	sum := sha256.Sum256([]byte(cellID + separator + createdAt))
	return hex.EncodeToString(sum[:]), nil
}

// Valid reports whether s has the exact shape of a digest produced by Compute.
func Valid(s string) bool {
	return digestRx.MatchString(s)
}

// Prefix returns the short display form of a digest.
func Prefix(digest string) string {
	if len(digest) < PrefixLen {
		return digest
	}
	return digest[:PrefixLen]
}
