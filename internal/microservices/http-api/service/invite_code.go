package service

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	inviteCodeLength   = 8
	inviteCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// CodeGenerator produces candidate invite codes.
type CodeGenerator func() (string, error)

// NewInviteCode returns 8 characters drawn uniformly from A-Z and 0-9.
func NewInviteCode() (string, error) {
	max := big.NewInt(int64(len(inviteCodeAlphabet)))
	var b strings.Builder
	b.Grow(inviteCodeLength)
	for i := 0; i < inviteCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(inviteCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeInviteCode makes lookups case-insensitive.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
