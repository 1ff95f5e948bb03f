package engine

import (
	"strconv"
	"strings"
)

// ReferenceDigest derives the short numeric token the bank echoes back for an
// order: the first 15 hex digits of the dash-stripped order UUID, read as a
// base-16 number, formatted base-10, last 8 characters. It is recomputed at
// match time, never stored.
func ReferenceDigest(orderID string) string {
	hex := strings.ReplaceAll(orderID, "-", "")
	if len(hex) < 15 {
		return ""
	}
	v, err := strconv.ParseUint(hex[:15], 16, 64)
	if err != nil {
		return ""
	}
	dec := strconv.FormatUint(v, 10)
	if len(dec) > 8 {
		dec = dec[len(dec)-8:]
	}
	return dec
}
