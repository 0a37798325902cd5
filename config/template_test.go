package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllTemplateIDs_HaveRegistryEntries(t *testing.T) {
	for _, id := range AllTemplateIDs() {
		tmpl, ok := GetTemplate(id)
		require.True(t, ok, "missing registry entry for %s", id)
		assert.Equal(t, id, tmpl.ID)
		assert.NotEmpty(t, tmpl.Name)
	}
}

func TestGenerate_Minimal(t *testing.T) {
	data, err := Generate(TemplateMinimal)
	require.NoError(t, err)
	cfg, err := Load(data)
	require.NoError(t, err)
	assert.Equal(t, LevelMinimal, cfg.SecurityLevel)
	assert.False(t, cfg.CorrelationEnabled)
}

func TestGenerate_Full(t *testing.T) {
	data, err := Generate(TemplateFull)
	require.NoError(t, err)
	cfg, err := Load(data)
	require.NoError(t, err)
	assert.Equal(t, LevelParanoid, cfg.SecurityLevel)
	assert.NotEmpty(t, cfg.TrustedCIDRs)
}

func TestGenerate_UnknownTemplate(t *testing.T) {
	_, err := Generate(TemplateID("bogus"))
	assert.Error(t, err)
}
