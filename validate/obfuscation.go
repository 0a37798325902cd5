package validate

import "strings"

// DetectObfuscation flags a raw (pre-decode) request target as likely
// obfuscated when it shows signs commonly used to evade signature and
// allowlist checks: double percent-encoding, null-byte injection, or
// mixed-case evasion of a sensitive keyword (SPEC_FULL.md §12
// supplement; informs the ClientRecord.Flags.Obfuscated signal the
// correlation engine's Backdoor detector reads).
func DetectObfuscation(rawTarget string) bool {
	lower := strings.ToLower(rawTarget)

	if strings.Contains(lower, "%25") {
		return true // re-encoded '%', i.e. double encoding
	}
	if strings.Contains(lower, "%00") || strings.Contains(rawTarget, "\x00") {
		return true
	}
	if strings.Contains(lower, "..%2f") || strings.Contains(lower, "%2e%2e") {
		return true // encoded traversal sequences
	}
	if hasMixedCaseKeyword(rawTarget) {
		return true
	}
	return false
}

// sensitiveKeywords are terms whose case is normally consistent in
// legitimate traffic; alternating case is a common WAF-evasion tell.
var sensitiveKeywords = []string{"select", "union", "script", "etc/passwd", "cmd.exe"}

func hasMixedCaseKeyword(s string) bool {
	lower := strings.ToLower(s)
	for _, kw := range sensitiveKeywords {
		idx := strings.Index(lower, kw)
		if idx < 0 {
			continue
		}
		candidate := s[idx : idx+len(kw)]
		if candidate != kw && candidate != strings.ToUpper(kw) {
			return true
		}
	}
	return false
}
