// Package validate implements the percent-decode, path-normalization,
// character-allowlist, extension-gate, and method-recheck pipeline
// spec §4.3 runs after the protocol parser and before the signature
// engine.
package validate

import (
	"strings"

	"github.com/byteness/vigil/errors"
)

// PercentDecode decodes percent-escaped octets in s. A malformed %xx
// sequence (missing or non-hex digits, or a trailing bare '%') fails
// with InvalidEncoding (spec §4.3 step 1).
func PercentDecode(s string) (string, error) {
	if !strings.ContainsRune(s, '%') {
		return s, nil
	}

	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '%' {
			sb.WriteByte(c)
			continue
		}
		if i+2 >= len(s) {
			return "", badEncoding(s)
		}
		hi, ok1 := hexVal(s[i+1])
		lo, ok2 := hexVal(s[i+2])
		if !ok1 || !ok2 {
			return "", badEncoding(s)
		}
		sb.WriteByte(hi<<4 | lo)
		i += 2
	}
	return sb.String(), nil
}

func hexVal(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

func badEncoding(s string) error {
	return errors.New(errors.ErrCodeBadPercentEncoding, errors.KindInvalidEncoding,
		"malformed percent-encoding in request path", "send well-formed %XX escape sequences", nil)
}
