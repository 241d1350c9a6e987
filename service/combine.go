package service

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// documentSeparator sits between document sections in the combined text.
const documentSeparator = "\n\n----------\n\n"

// Combine merges aggregated document text with optional web content. Web
// content goes under its own delimited section naming the source; with no
// web content the document text passes through unchanged.
func Combine(documentText, webText, webSourceLabel string) string {
	if strings.TrimSpace(webText) == "" {
		return documentText
	}

	label := webSourceLabel
	if label == "" {
		label = "web"
	}

	header := fmt.Sprintf("=== Web content (%s) ===", label)
	if strings.TrimSpace(documentText) == "" {
		return header + "\n\n" + webText
	}

	return documentText + documentSeparator + header + "\n\n" + webText
}

// Sanitize removes characters known to break the extraction service's
// input validation: control characters (keeping \n, \r, \t), stray
// surrogate code points, and invalid UTF-8 bytes.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for i, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteRune(r)
		case r < 0x20 || r == 0x7F:
			// control character
		case r >= 0xD800 && r <= 0xDFFF:
			// surrogate half
		case r == utf8.RuneError:
			// keep a genuine U+FFFD, drop decode failures
			if _, size := utf8.DecodeRuneInString(s[i:]); size > 1 {
				b.WriteRune(r)
			}
		default:
			b.WriteRune(r)
		}
	}

	return b.String()
}
