package taxonomy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/plenumlab/speechqa/internal/core/domain"
)

// SeedFile is the YAML bootstrap format: the concept graph plus the optional
// required-detail lexicon used by coverage verification.
type SeedFile struct {
	Topics          []domain.TaxonomyTopic     `yaml:"topics"`
	Dimensions      []domain.TaxonomyDimension `yaml:"dimensions"`
	RequiredDetails []string                   `yaml:"required_details"`
}

// LoadSeed reads the YAML seed used when the taxonomy repository is empty.
func LoadSeed(path string) (*SeedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy seed: %w", err)
	}

	var seed SeedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("parse taxonomy seed: %w", err)
	}
	if len(seed.Topics) == 0 && len(seed.Dimensions) == 0 {
		return nil, fmt.Errorf("taxonomy seed %s contains no graph", path)
	}
	return &seed, nil
}

func (s *SeedFile) Graph() *domain.TaxonomyGraph {
	return &domain.TaxonomyGraph{
		Topics:     s.Topics,
		Dimensions: s.Dimensions,
	}
}
