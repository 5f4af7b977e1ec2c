// Package xid generates the prefixed identifiers used for daily records,
// cash history entries, and audit log rows ("day-...", "audit-...").
package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// New returns "<prefix>-<unix nanos>-<8 random hex bytes>". The random tail
// keeps ids unique across processes; if the random source fails the
// timestamp-only form is still unique enough for a single writer.
func New(prefix string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(buf))
}
