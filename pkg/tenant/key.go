package tenant

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/Musavvir24/my-software/pkg/apperror"
)

const maxKeyPrefix = 40

// NormalizeEmail trims and lowercases an account email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Key derives the storage key for an email. Characters outside [a-z0-9]
// become "_" and a digest of the full email is appended, so two emails that
// sanitize to the same prefix still get separate storage. The result is a
// valid sqlite file name and postgres schema name.
func Key(email string) (string, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return "", apperror.Configuration("tenant.Key", "Email is required")
	}

	var b strings.Builder
	for _, r := range email {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
		if b.Len() >= maxKeyPrefix {
			break
		}
	}

	sum := sha256.Sum256([]byte(email))
	return b.String() + "_" + hex.EncodeToString(sum[:])[:12], nil
}
