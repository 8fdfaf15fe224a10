package documents

import (
	"math/rand/v2"
	"strings"
	"time"
)

const refAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewReferenceNumber returns "REF-YYYY-MM-DD-XXXXXX" for the UTC date of now.
func NewReferenceNumber(now time.Time) string {
	var b strings.Builder
	b.WriteString("REF-")
	b.WriteString(now.UTC().Format("2006-01-02"))
	b.WriteByte('-')
	for range 6 {
		b.WriteByte(refAlphabet[rand.IntN(len(refAlphabet))])
	}
	return b.String()
}
