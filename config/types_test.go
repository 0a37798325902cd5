package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecurityLevel_IsValid(t *testing.T) {
	assert.True(t, LevelStandard.IsValid())
	assert.True(t, LevelParanoid.IsValid())
	assert.False(t, SecurityLevel("bogus").IsValid())
}

func TestResultSummary_Compute(t *testing.T) {
	result := ValidationResult{
		Issues: []ValidationIssue{
			{Severity: SeverityError},
			{Severity: SeverityWarning},
			{Severity: SeverityWarning},
		},
	}
	var s ResultSummary
	s.Compute(result)
	assert.Equal(t, 1, s.Errors)
	assert.Equal(t, 2, s.Warnings)
}

func TestDefaultConfig_SecurityLevelValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.SecurityLevel.IsValid())
	assert.NotEmpty(t, cfg.AllowedMethods)
}
