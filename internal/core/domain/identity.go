package domain

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

const digestHexLen = 16

// MakeChunkID derives the content-addressed identifier for a chunk.
// The digest covers docType, source and full content (order-sensitive), so
// identical content always maps to the same id while any edit produces a new
// one. The chunk ordinal is deliberately excluded: ordinals shift whenever
// splitting parameters change. The sanitized source prefix keeps ids readable
// and filesystem/URL safe.
func MakeChunkID(source, content string, docType DocType) string {
	sum := sha1.Sum([]byte(string(docType) + "\n" + source + "\n" + content))
	digest := hex.EncodeToString(sum[:])[:digestHexLen]
	return string(docType) + "-" + sanitizeSource(source) + "-" + digest
}

func sanitizeSource(source string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '_', r == '-', r == '=':
			return r
		default:
			return '-'
		}
	}, source)
}
