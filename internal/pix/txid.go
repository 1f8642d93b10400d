package pix

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

const txidAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewTxID produces a transaction reference combining a fixed prefix, the
// current millisecond timestamp and a short random base-36 suffix.
// Uniqueness is best-effort: a collision is treated downstream as a new,
// distinguishable transaction, never deduplicated.
func NewTxID(prefix string) string {
	if prefix == "" {
		prefix = "LJ"
	}
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(strconv.FormatInt(time.Now().UnixMilli(), 10))
	for i := 0; i < 5; i++ {
		b.WriteByte(txidAlphabet[rand.IntN(len(txidAlphabet))])
	}
	return b.String()
}
