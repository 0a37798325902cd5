package config

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// TemplateID identifies a pre-built configuration template.
type TemplateID string

const (
	// TemplateMinimal monitors traffic; it denies only banned clients,
	// registry-capacity exhaustion, and internal errors.
	TemplateMinimal TemplateID = "minimal"
	// TemplateStandard applies the Standard security level with sane
	// limits for a small public site.
	TemplateStandard TemplateID = "standard"
	// TemplateFull enables every detection stage at the Paranoid level.
	TemplateFull TemplateID = "full"
)

// IsValid returns true if the TemplateID is a known value.
func (t TemplateID) IsValid() bool {
	switch t {
	case TemplateMinimal, TemplateStandard, TemplateFull:
		return true
	}
	return false
}

// String returns the string representation of the TemplateID.
func (t TemplateID) String() string { return string(t) }

// AllTemplateIDs returns all valid template ID values.
func AllTemplateIDs() []TemplateID {
	return []TemplateID{TemplateMinimal, TemplateStandard, TemplateFull}
}

// Template describes a pre-built configuration template.
type Template struct {
	ID          TemplateID
	Name        string
	Description string
}

var templateRegistry = map[TemplateID]Template{
	TemplateMinimal: {
		ID:          TemplateMinimal,
		Name:        "Minimal (monitor only)",
		Description: "Logs every decision and denies only banned clients, registry-capacity exhaustion, and internal errors; useful for baselining traffic before enforcement",
	},
	TemplateStandard: {
		ID:          TemplateStandard,
		Name:        "Standard",
		Description: "Denies signature hits, path traversal, malformed requests, rate limit violations, and oversized bodies",
	},
	TemplateFull: {
		ID:          TemplateFull,
		Name:        "Full enterprise",
		Description: "Paranoid security level with behavior analysis and correlation enabled",
	},
}

// GetTemplate returns the template metadata for the given ID.
func GetTemplate(id TemplateID) (Template, bool) {
	t, ok := templateRegistry[id]
	return t, ok
}

// AllTemplates returns metadata for all available templates.
func AllTemplates() []Template {
	templates := make([]Template, 0, len(templateRegistry))
	for _, id := range AllTemplateIDs() {
		templates = append(templates, templateRegistry[id])
	}
	return templates
}

// Generate renders a VigilConfig for the given template as YAML.
func Generate(id TemplateID) ([]byte, error) {
	cfg := DefaultConfig()

	switch id {
	case TemplateMinimal:
		cfg.SecurityLevel = LevelMinimal
		cfg.CorrelationEnabled = false
	case TemplateStandard:
		cfg.SecurityLevel = LevelStandard
	case TemplateFull:
		cfg.SecurityLevel = LevelParanoid
		cfg.BehaviorAnalysisEnabled = true
		cfg.CorrelationEnabled = true
		cfg.TrustedCIDRs = []string{"127.0.0.0/8"}
	default:
		return nil, fmt.Errorf("config: unknown template %q", id)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
