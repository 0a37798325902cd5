package signature

// DefaultSpecs returns the built-in rule catalog spec §4.4 groups by
// category (SQL injection, XSS, path traversal, command injection,
// protocol abuse, scan, recon). Substring rules are listed first and
// carry lower IDs so they are the cheap high-confidence probes tried
// before the regex fallback, per spec §4.4's evaluation order.
//
// Patterns are adapted from a Go WAF classifier's attack-signature
// catalog (SQLi/XSS/traversal/command-injection/SSRF/scanner rules).
func DefaultSpecs() []Spec {
	return []Spec{
		// --- substring probes: cheap, high-confidence, checked first ---
		{ID: 1, Category: CategoryPathTraversal, Type: RuleTypeSubstring, Pattern: "../", BaseConfidence: 0.88, Weight: 1.0},
		{ID: 2, Category: CategoryPathTraversal, Type: RuleTypeSubstring, Pattern: "..\\", BaseConfidence: 0.88, Weight: 1.0},
		{ID: 3, Category: CategoryPathTraversal, Type: RuleTypeSubstring, Pattern: "/etc/passwd", BaseConfidence: 0.95, Weight: 1.0},
		{ID: 4, Category: CategoryPathTraversal, Type: RuleTypeSubstring, Pattern: "win.ini", BaseConfidence: 0.9, Weight: 1.0},
		{ID: 5, Category: CategoryXSS, Type: RuleTypeSubstring, Pattern: "<script", BaseConfidence: 0.9, Weight: 1.0},
		{ID: 6, Category: CategoryXSS, Type: RuleTypeSubstring, Pattern: "javascript:", BaseConfidence: 0.87, Weight: 1.0},
		{ID: 7, Category: CategoryXSS, Type: RuleTypeSubstring, Pattern: "onerror=", BaseConfidence: 0.85, Weight: 1.0},
		{ID: 8, Category: CategorySQLInjection, Type: RuleTypeSubstring, Pattern: "union select", BaseConfidence: 0.92, Weight: 1.0},
		{ID: 9, Category: CategorySQLInjection, Type: RuleTypeSubstring, Pattern: "' or '1'='1", BaseConfidence: 0.93, Weight: 1.0},
		{ID: 10, Category: CategorySQLInjection, Type: RuleTypeSubstring, Pattern: "information_schema", BaseConfidence: 0.9, Weight: 1.0},
		{ID: 11, Category: CategoryCommandInjection, Type: RuleTypeSubstring, Pattern: "; cat ", BaseConfidence: 0.9, Weight: 1.0},
		{ID: 12, Category: CategoryCommandInjection, Type: RuleTypeSubstring, Pattern: "$(whoami)", BaseConfidence: 0.91, Weight: 1.0},
		{ID: 13, Category: CategoryCommandInjection, Type: RuleTypeSubstring, Pattern: "`id`", BaseConfidence: 0.89, Weight: 1.0},
		{ID: 14, Category: CategoryProtocolAbuse, Type: RuleTypeSubstring, Pattern: "%0d%0a", BaseConfidence: 0.8, Weight: 1.0},
		{ID: 15, Category: CategoryScan, Type: RuleTypeSubstring, Pattern: "/.git/config", BaseConfidence: 0.88, Weight: 1.0},
		{ID: 16, Category: CategoryScan, Type: RuleTypeSubstring, Pattern: "/wp-login.php", BaseConfidence: 0.85, Weight: 1.0},
		{ID: 17, Category: CategoryScan, Type: RuleTypeSubstring, Pattern: "/phpmyadmin", BaseConfidence: 0.85, Weight: 1.0},
		{ID: 18, Category: CategoryRecon, Type: RuleTypeSubstring, Pattern: "sqlmap", BaseConfidence: 0.92, Weight: 1.0},
		{ID: 19, Category: CategoryRecon, Type: RuleTypeSubstring, Pattern: "nikto", BaseConfidence: 0.92, Weight: 1.0},
		{ID: 20, Category: CategoryRecon, Type: RuleTypeSubstring, Pattern: "nmap", BaseConfidence: 0.9, Weight: 1.0},

		// --- regex fallback: broader patterns, checked after substrings ---
		{ID: 101, Category: CategorySQLInjection, Type: RuleTypeRegex,
			Pattern: `(?i)\b(union\s+(all\s+)?select|select\s+.*\s+from|insert\s+into|drop\s+(table|database)|alter\s+table)\b`,
			BaseConfidence: 0.9, Weight: 1.0},
		{ID: 102, Category: CategorySQLInjection, Type: RuleTypeRegex,
			Pattern: `(?i)(\bsleep\s*\(|\bbenchmark\s*\(|waitfor\s+delay)`, BaseConfidence: 0.87, Weight: 1.0},
		{ID: 103, Category: CategoryXSS, Type: RuleTypeRegex,
			Pattern: `(?i)\bon(error|load|click|mouseover|focus)\s*=`, BaseConfidence: 0.86, Weight: 1.0},
		{ID: 104, Category: CategoryXSS, Type: RuleTypeRegex,
			Pattern: `(?i)(document\s*\.\s*cookie|alert\s*\(|String\.fromCharCode)`, BaseConfidence: 0.85, Weight: 1.0},
		{ID: 105, Category: CategoryPathTraversal, Type: RuleTypeRegex,
			Pattern: `(?i)(%2e%2e%2f|%2e%2e/|\.\.%2f|%2e%2e%5c)`, BaseConfidence: 0.88, Weight: 1.0},
		{ID: 106, Category: CategoryCommandInjection, Type: RuleTypeRegex,
			Pattern: `(?i)\b(eval|exec|system|passthru|popen|proc_open|shell_exec)\s*\(`, BaseConfidence: 0.88, Weight: 1.0},
		{ID: 107, Category: CategoryProtocolAbuse, Type: RuleTypeRegex,
			Pattern: `(?i)(set-cookie\s*:|location\s*:.*%0d%0a)`, BaseConfidence: 0.78, Weight: 1.0},
		{ID: 108, Category: CategoryScan, Type: RuleTypeRegex,
			Pattern: `(?i)/\S*\.(bak|old|orig|save|swp|sql|conf|config|ini|yml|yaml)\b`, BaseConfidence: 0.82, Weight: 1.0},
		{ID: 109, Category: CategoryRecon, Type: RuleTypeRegex,
			Pattern: `(?i)(gobuster|dirbuster|wfuzz|ffuf|feroxbuster|nuclei|masscan|zgrab)`, BaseConfidence: 0.9, Weight: 1.0},
	}
}
