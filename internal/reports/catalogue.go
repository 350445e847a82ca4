package reports

import (
	_ "embed"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalogue.yaml
var catalogueYAML []byte

// CatalogueEntry is one reference placeholder parameter.
type CatalogueEntry struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
	Unit  string `yaml:"unit"`
	Range string `yaml:"range"`
}

// Catalogue holds the fixed keyword list and backfill entries.
type Catalogue struct {
	Keywords      []string         `yaml:"keywords"`
	MinParameters int              `yaml:"min_parameters"`
	Parameters    []CatalogueEntry `yaml:"parameters"`
}

var (
	catalogueOnce sync.Once
	catalogue     Catalogue
)

// DefaultCatalogue returns the embedded catalogue. It panics if the embedded
// file is malformed, which only a broken build can cause.
func DefaultCatalogue() Catalogue {
	catalogueOnce.Do(func() {
		c, err := ParseCatalogue(catalogueYAML)
		if err != nil {
			panic(err)
		}
		catalogue = c
	})
	return catalogue
}

// ParseCatalogue decodes a catalogue document.
func ParseCatalogue(data []byte) (Catalogue, error) {
	var c Catalogue
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalogue{}, err
	}
	if c.MinParameters <= 0 {
		c.MinParameters = 10
	}
	return c, nil
}
