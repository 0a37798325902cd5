package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_AppliesDefaultsForMissingFields(t *testing.T) {
	cfg, err := Load([]byte("port: 9090\n"))
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, DefaultConfig().RootDir, cfg.RootDir)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load([]byte("port: [unterminated\n"))
	assert.Error(t, err)
}

func TestValidate_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.RootDir = dir
	cfg.LogDir = dir

	result := Validate(cfg, "test")
	assert.True(t, result.Valid, "issues: %+v", result.Issues)
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = 70000
	result := Validate(cfg, "test")
	assert.False(t, result.Valid)
}

func TestValidate_InvalidSecurityLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SecurityLevel = "extreme"
	result := Validate(cfg, "test")
	assert.False(t, result.Valid)
}

func TestValidate_InvalidACLCIDR(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ACLEntries = []ACLEntry{{CIDR: "not-a-cidr", Effect: "allow"}}
	result := Validate(cfg, "test")
	assert.False(t, result.Valid)
}

func TestValidate_InvalidACLEffect(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ACLEntries = []ACLEntry{{CIDR: "10.0.0.0/8", Effect: "maybe"}}
	result := Validate(cfg, "test")
	assert.False(t, result.Valid)
}

func TestValidate_EmptyAllowedMethods(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowedMethods = nil
	result := Validate(cfg, "test")
	assert.False(t, result.Valid)
}

func TestValidate_MissingAuditSecretIsWarningNotError(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.RootDir = dir
	cfg.LogDir = dir
	cfg.AuditSecretEnvVar = "VIGIL_TEST_UNSET_VAR"
	os.Unsetenv(cfg.AuditSecretEnvVar)

	result := Validate(cfg, "test")
	assert.True(t, result.Valid)

	var found bool
	for _, issue := range result.Issues {
		if issue.Severity == SeverityWarning && issue.Location == "audit_secret_env_var" {
			found = true
		}
	}
	assert.True(t, found, "expected a warning about the unset audit secret")
}

func TestValidate_PathRateOverride(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PathRateOverrides = map[string]PathRateOverride{
		"/login": {RequestLimit: 0, WindowSeconds: 60},
	}
	result := Validate(cfg, "test")
	assert.False(t, result.Valid)
}

func TestValidateFile_MissingFile(t *testing.T) {
	_, err := ValidateFile(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestValidateFile_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.RootDir = dir
	cfg.LogDir = dir
	data, err := Generate(TemplateStandard)
	require.NoError(t, err)

	path := filepath.Join(dir, "vigil.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	result, err := ValidateFile(path)
	require.NoError(t, err)
	assert.True(t, result.Valid, "issues: %+v", result.Issues)
}
