package config

import (
	"fmt"
	"net"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load parses YAML content into a VigilConfig, starting from DefaultConfig
// so any field absent from content keeps its default value.
func Load(content []byte) (VigilConfig, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse yaml: %w", err)
	}
	return cfg, nil
}

// LoadFile reads and parses a YAML config file from disk.
func LoadFile(path string) (VigilConfig, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return VigilConfig{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Load(content)
}

// Validate checks a VigilConfig for semantic errors and suspicious
// patterns, returning every issue found rather than failing fast.
func Validate(cfg VigilConfig, source string) ValidationResult {
	result := ValidationResult{Source: source, Valid: true, Issues: []ValidationIssue{}}

	addErr := func(location, message, suggestion string) {
		result.Valid = false
		result.Issues = append(result.Issues, ValidationIssue{Severity: SeverityError, Location: location, Message: message, Suggestion: suggestion})
	}
	addWarn := func(location, message, suggestion string) {
		result.Issues = append(result.Issues, ValidationIssue{Severity: SeverityWarning, Location: location, Message: message, Suggestion: suggestion})
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		addErr("port", fmt.Sprintf("port %d is out of range", cfg.Port), "use a port between 1 and 65535")
	}
	if cfg.RootDir == "" {
		addErr("root_dir", "root_dir cannot be empty", "set root_dir to the directory to serve")
	}
	if info, err := os.Stat(cfg.RootDir); err != nil || !info.IsDir() {
		addWarn("root_dir", fmt.Sprintf("root_dir %q is not a readable directory", cfg.RootDir), "verify the path exists before starting the server")
	}

	if cfg.MaxRequestSize <= 0 {
		addErr("max_request_size", "max_request_size must be positive", "set a positive byte limit")
	}
	if cfg.MaxHeaderSize <= 0 {
		addErr("max_header_size", "max_header_size must be positive", "set a positive byte limit")
	}
	if cfg.MaxURILength <= 0 {
		addErr("max_uri_length", "max_uri_length must be positive", "set a positive byte limit")
	}
	if cfg.MaxHeaderCount <= 0 {
		addErr("max_header_count", "max_header_count must be positive", "set a positive integer")
	}

	if cfg.RateLimitRequests <= 0 {
		addErr("rate_limit_requests", "rate_limit_requests must be positive", "set a positive request count")
	}
	if cfg.RateLimitWindowSeconds <= 0 {
		addErr("rate_limit_window_seconds", "rate_limit_window_seconds must be positive", "set a positive window in seconds")
	}
	if cfg.BurstLimit < 0 {
		addErr("burst_limit", "burst_limit cannot be negative", "set burst_limit to 0 to disable bursting or a positive value")
	}
	if cfg.BanDurationSeconds <= 0 {
		addErr("ban_duration_seconds", "ban_duration_seconds must be positive", "set a positive duration in seconds")
	}
	if cfg.BanThreshold <= 0 {
		addErr("ban_threshold", "ban_threshold must be positive", "set how many consecutive denies trigger a ban")
	}

	if !cfg.SecurityLevel.IsValid() {
		addErr("security_level", fmt.Sprintf("unknown security_level %q", cfg.SecurityLevel), "use one of: minimal, standard, high, paranoid")
	}

	if cfg.HistorySize <= 0 && (cfg.BehaviorAnalysisEnabled || cfg.CorrelationEnabled) {
		addErr("history_size", "history_size must be positive when behavior analysis or correlation is enabled", "set history_size to a positive event count")
	}

	if cfg.LogDir == "" {
		addErr("log_dir", "log_dir cannot be empty", "set log_dir to a writable directory")
	}
	if cfg.MaxLogFileSize <= 0 {
		addErr("max_log_file_size", "max_log_file_size must be positive", "set a positive byte threshold for rotation")
	}
	if cfg.MaxLogFiles < 0 {
		addErr("max_log_files", "max_log_files cannot be negative", "set 0 for unlimited retention or a positive count")
	}
	if cfg.AuditSecretEnvVar == "" {
		addWarn("audit_secret_env_var", "no audit_secret_env_var configured", "set this so the audit log can run signed instead of degraded")
	} else if os.Getenv(cfg.AuditSecretEnvVar) == "" {
		addWarn("audit_secret_env_var", fmt.Sprintf("environment variable %q is not set; the audit log will start in degraded mode", cfg.AuditSecretEnvVar), "export the named environment variable with a secret of at least 32 bytes")
	}

	if len(cfg.AllowedMethods) == 0 {
		addErr("allowed_methods", "allowed_methods cannot be empty", "list at least one HTTP method, e.g. GET, HEAD")
	}
	for i, m := range cfg.AllowedMethods {
		if strings.ToUpper(m) != m {
			addWarn(fmt.Sprintf("allowed_methods[%d]", i), fmt.Sprintf("method %q should be uppercase", m), "use the canonical uppercase method token")
		}
	}

	if len(cfg.AllowedExtensions) == 0 {
		addWarn("allowed_extensions", "allowed_extensions is empty; no static files will be served", "list at least one extension, e.g. .html")
	}

	for i, acl := range cfg.ACLEntries {
		if _, _, err := net.ParseCIDR(acl.CIDR); err != nil {
			addErr(fmt.Sprintf("acl_entries[%d].cidr", i), fmt.Sprintf("invalid CIDR %q: %v", acl.CIDR, err), "use CIDR notation, e.g. 10.0.0.0/8")
		}
		if acl.Effect != "allow" && acl.Effect != "deny" {
			addErr(fmt.Sprintf("acl_entries[%d].effect", i), fmt.Sprintf("effect must be allow or deny, got %q", acl.Effect), "set effect to allow or deny")
		}
	}

	for i, cidr := range cfg.TrustedCIDRs {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			addErr(fmt.Sprintf("trusted_cidrs[%d]", i), fmt.Sprintf("invalid CIDR %q: %v", cidr, err), "use CIDR notation, e.g. 127.0.0.0/8")
		}
	}

	for prefix, override := range cfg.PathRateOverrides {
		if override.RequestLimit <= 0 {
			addErr(fmt.Sprintf("path_rate_overrides[%s].request_limit", prefix), "request_limit must be positive", "set a positive request count")
		}
		if override.WindowSeconds <= 0 {
			addErr(fmt.Sprintf("path_rate_overrides[%s].window_seconds", prefix), "window_seconds must be positive", "set a positive window in seconds")
		}
	}

	return result
}

// ValidateFile reads and validates a config file from disk.
func ValidateFile(path string) (ValidationResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return ValidationResult{
			Source: path,
			Valid:  false,
			Issues: []ValidationIssue{{Severity: SeverityError, Message: fmt.Sprintf("failed to read file: %v", err), Suggestion: "verify the file path exists and is readable"}},
		}, err
	}
	cfg, err := Load(content)
	if err != nil {
		return ValidationResult{
			Source: path,
			Valid:  false,
			Issues: []ValidationIssue{{Severity: SeverityError, Message: err.Error(), Suggestion: "check YAML syntax for correct indentation and formatting"}},
		}, nil
	}
	return Validate(cfg, path), nil
}
