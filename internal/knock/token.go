package knock

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// TokenBytes is the entropy of a token; rendered as hex it gives the
// 64-character identifiers used in relay addresses. No uniqueness check
// is done, collisions at 256 bits are not a practical concern.
const TokenBytes = 32

// RandomToken returns n cryptographically random bytes as lowercase hex.
func RandomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
