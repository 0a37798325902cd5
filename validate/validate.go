// Package validate implements the percent-decode, path-normalization,
// character-allowlist, extension-gate, and method-recheck pipeline
// spec §4.3 runs after the protocol parser and before the signature
// engine, plus a display-sanitizer for safely logging attacker-supplied
// input.
package validate

import (
	"fmt"
	"path"
	"strings"
	"unicode"

	"github.com/byteness/vigil/errors"
	"github.com/byteness/vigil/protocol"
)

// Config holds the configurable gates spec §4.3 runs, sourced from
// config.VigilConfig.
type Config struct {
	// AllowedChars lists extra characters permitted in a normalized
	// path beyond [A-Za-z0-9] (spec §4.3 default: "/", "-", "_", ".").
	AllowedChars      []rune
	AllowedExtensions []string
	AllowedMethods    []string
}

// DefaultConfig returns the spec §4.3 documented defaults.
func DefaultConfig() Config {
	return Config{
		AllowedChars:      []rune{'/', '-', '_', '.'},
		AllowedExtensions: []string{".html", ".css", ".js", ".png", ".jpg", ".gif", ".svg", ".ico", ".txt", ".json"},
		AllowedMethods:    []string{"GET", "HEAD"},
	}
}

// Result is the outcome of validating and normalizing a Request.
type Result struct {
	DecodedPath    string
	NormalizedPath string
	// ResolvedPath is NormalizedPath with a directory request (trailing
	// slash) mapped to "index.html" internally, per spec §4.3 step 4;
	// the file handler is responsible for the actual read.
	ResolvedPath string
	IsDirectory  bool
}

// Validate runs the full spec §4.3 pipeline against req: percent-decode,
// path-normalize, disallowed-character check, extension gate, and
// method recheck, in that order. The first failing step returns its
// VigilError.
func Validate(req *protocol.Request, cfg Config) (*Result, error) {
	decoded, err := PercentDecode(req.Path)
	if err != nil {
		return nil, err
	}

	normalized, err := NormalizePath(decoded)
	if err != nil {
		return nil, err
	}

	if err := checkAllowedChars(normalized, cfg.AllowedChars); err != nil {
		return nil, err
	}

	isDir := strings.HasSuffix(normalized, "/")
	resolved := normalized
	if isDir {
		resolved = strings.TrimSuffix(normalized, "/") + "/index.html"
		if !strings.HasPrefix(resolved, "/") {
			resolved = "/" + resolved
		}
	} else if err := checkExtension(normalized, cfg.AllowedExtensions); err != nil {
		return nil, err
	}

	if err := checkMethod(req.Method, cfg.AllowedMethods); err != nil {
		return nil, err
	}

	return &Result{
		DecodedPath:    decoded,
		NormalizedPath: normalized,
		ResolvedPath:   resolved,
		IsDirectory:    isDir,
	}, nil
}

// checkAllowedChars enforces spec §4.3 step 3: alphanumeric plus the
// configured allowlist.
func checkAllowedChars(normalized string, allowed []rune) error {
	for _, r := range normalized {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			continue
		}
		ok := false
		for _, a := range allowed {
			if r == a {
				ok = true
				break
			}
		}
		if !ok {
			return errors.New(errors.ErrCodeDisallowedChar, errors.KindDisallowedExtension,
				"path contains a character outside the configured allowlist",
				"restrict the request path to alphanumerics and the configured allowed characters", nil)
		}
	}
	return nil
}

// checkExtension enforces spec §4.3 step 4 for non-directory requests:
// the final segment's extension must be in the configured allow-set.
func checkExtension(normalized string, allowedExt []string) error {
	ext := path.Ext(normalized)
	for _, a := range allowedExt {
		if strings.EqualFold(ext, a) {
			return nil
		}
	}
	return errors.New(errors.ErrCodeDisallowedExt, errors.KindDisallowedExtension,
		"requested file extension is not in the configured allow-set",
		"add the extension to allowed_extensions or request a different resource", nil)
}

// checkMethod enforces spec §4.3 step 5: method re-check against the
// configured allowlist under the current security level.
func checkMethod(method string, allowed []string) error {
	for _, m := range allowed {
		if m == method {
			return nil
		}
	}
	return errors.New(errors.ErrCodeMethodNotAllowed, errors.KindMalformed,
		"method is not allowed under the current security level",
		"use an allowed method or relax the security level's method allowlist", nil)
}

// SanitizeForDisplay escapes control characters, backslashes, and
// quotes so attacker-supplied paths and header values can be embedded
// safely in JSON audit/verdict log fields, truncating to maxLen runes.
// Adapted from the sentinel project's request-field log sanitizer.
func SanitizeForDisplay(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}

	var result strings.Builder
	runeCount := 0
	for _, r := range s {
		if runeCount >= maxLen {
			break
		}
		switch {
		case r < 32 || r == 127:
			result.WriteString(fmt.Sprintf("\\u%04x", r))
		case r == '\\':
			result.WriteString(`\\`)
		case r == '"':
			result.WriteString(`\"`)
		case r > 127 && !unicode.IsPrint(r):
			result.WriteString(fmt.Sprintf("\\u%04x", r))
		default:
			result.WriteRune(r)
		}
		runeCount++
	}
	return result.String()
}
