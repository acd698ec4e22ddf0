package order

import (
	"math/rand/v2"
	"time"
)

const numberCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateNumber produces a human-readable order identifier in the form
// ORD-YYYYMMDD-XXXX, where XXXX is 4 random uppercase-alphanumeric
// characters. The generator alone does not guarantee uniqueness; the
// storage layer enforces it with a unique constraint and callers retry
// on ErrDuplicateOrderNumber.
func GenerateNumber(now time.Time) string {
	buf := make([]byte, 0, 17)
	buf = append(buf, "ORD-"...)
	buf = now.AppendFormat(buf, "20060102")
	buf = append(buf, '-')
	for range 4 {
		buf = append(buf, numberCharset[rand.IntN(len(numberCharset))])
	}
	return string(buf)
}
