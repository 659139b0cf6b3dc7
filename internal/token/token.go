// Package token centralizes the "typed token with a fixed textual prefix"
// pattern used by friend codes and leaderboard invite codes.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

type Prefix string

const (
	FriendCode Prefix = "ttfc_"
	InviteCode Prefix = "ttlic_"
)

// Format renders a stored code for presentation, e.g. "ttfc_ab12...".
func (p Prefix) Format(code string) string {
	return string(p) + code
}

// Strip removes the prefix from a presented token. Tokens submitted without
// the prefix are accepted as-is; only the prefixed form is ever rendered.
func (p Prefix) Strip(presented string) string {
	return strings.TrimPrefix(presented, string(p))
}

// Generate returns a new random code of n random bytes, hex encoded.
func Generate(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
