// Package refs generates the human-legible references stamped on orders,
// shipments, and payment transactions. References are prefix + millisecond
// timestamp + random base36 suffix; global uniqueness is enforced by the
// unique indexes on their columns, the suffix only makes collisions within
// one millisecond unlikely.
package refs

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const (
	orderPrefix       = "ORD"
	trackingPrefix    = "TRK"
	transactionPrefix = "TXN"

	base36 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// NewOrderNumber returns a new order reference, e.g. ORD1756712345678K3F9Q.
func NewOrderNumber() string {
	return build(orderPrefix, 5)
}

// NewTrackingNumber returns a new shipment reference, e.g. TRK1756712345678A8ZT2M.
func NewTrackingNumber() string {
	return build(trackingPrefix, 6)
}

// NewTransactionID returns a new payment reference, e.g. TXN1756712345678B61XP0QRS.
func NewTransactionID() string {
	return build(transactionPrefix, 9)
}

func build(prefix string, suffixLen int) string {
	return fmt.Sprintf("%s%d%s", prefix, time.Now().UnixMilli(), randomSuffix(suffixLen))
}

func randomSuffix(length int) string {
	var sb strings.Builder
	sb.Grow(length)
	max := big.NewInt(int64(len(base36)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken;
			// fall back to a timestamp-derived character.
			sb.WriteByte(base36[time.Now().UnixNano()%int64(len(base36))])
			continue
		}
		sb.WriteByte(base36[n.Int64()])
	}
	return sb.String()
}
