package ledger

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	referencePrefix   = "BK-"
	referenceLength   = 8
	referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	referenceAttempts = 5
)

// NewReference returns a random human-readable booking reference such as
// BK-7QX2M4PA. Ambiguous characters (0/O, 1/I) are left out.
func NewReference() (string, error) {
	b := make([]byte, referenceLength)
	max := big.NewInt(int64(len(referenceAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate reference: %w", err)
		}
		b[i] = referenceAlphabet[n.Int64()]
	}
	return referencePrefix + string(b), nil
}
