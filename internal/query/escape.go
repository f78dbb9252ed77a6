package query

import "strings"

const upperhex = "0123456789ABCDEF"

// readableInQuery are reserved characters OData uses as syntax and that stay
// unencoded in query values. '=' is kept for nested $expand options.
const readableInQuery = "$'(),:/@*;="

// readableInPath is readableInQuery without '/', which separates segments.
const readableInPath = "$'(),:@*;="

func isUnreserved(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') ||
		c == '-' || c == '.' || c == '_' || c == '~'
}

// escape percent-encodes s, keeping unreserved characters and those in keep.
// Spaces become %20, never '+'.
func escape(s, keep string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !isUnreserved(s[i]) && strings.IndexByte(keep, s[i]) < 0 {
			n++
		}
	}
	if n == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) || strings.IndexByte(keep, c) >= 0 {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func escapeQuery(s string) string { return escape(s, readableInQuery) }

func escapePath(s string) string { return escape(s, readableInPath) }
