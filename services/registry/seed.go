package registry

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/prefeitura-digital/prompt-router/models"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

type catalogFile struct {
	Providers []catalogEntry `yaml:"providers"`
}

type catalogEntry struct {
	ID          string  `yaml:"id"`
	DisplayName string  `yaml:"display_name"`
	Family      string  `yaml:"family"`
	Endpoint    string  `yaml:"endpoint"`
	Credential  string  `yaml:"credential"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	Priority    int     `yaml:"priority"`
	Enabled     bool    `yaml:"enabled"`
	IsDefault   bool    `yaml:"is_default"`
}

// DefaultCatalog returns the built-in provider catalog used to seed
// an empty store. Only the Gemini providers ship enabled; the rest
// stay disabled until an admin configures credentials.
func DefaultCatalog() []models.Provider {
	catalog, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		// The embedded catalog is checked at build time; a parse
		// failure here is a programming error.
		panic(fmt.Sprintf("embedded provider catalog is invalid: %v", err))
	}
	return catalog
}

// ParseCatalog decodes a YAML provider catalog
func ParseCatalog(data []byte) ([]models.Provider, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse provider catalog: %w", err)
	}

	providers := make([]models.Provider, 0, len(file.Providers))
	for _, entry := range file.Providers {
		providers = append(providers, models.Provider{
			ID:          entry.ID,
			DisplayName: entry.DisplayName,
			Family:      models.Family(entry.Family),
			Endpoint:    entry.Endpoint,
			Credential:  entry.Credential,
			MaxTokens:   entry.MaxTokens,
			Temperature: entry.Temperature,
			Priority:    entry.Priority,
			Enabled:     entry.Enabled,
			IsDefault:   entry.IsDefault,
		})
	}
	return providers, nil
}
