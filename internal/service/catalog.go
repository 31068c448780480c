package service

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"character-quiz/internal/domain"
)

//go:embed data/scenarios.json
var defaultCatalogJSON []byte

// CatalogFormat selects the decoder for catalog bytes.
type CatalogFormat string

const (
	CatalogFormatJSON CatalogFormat = "json"
	CatalogFormatYAML CatalogFormat = "yaml"
)

// ScenarioCatalog is the immutable scenario pool, in load order.
type ScenarioCatalog struct {
	scenarios []domain.Scenario
	byID      map[string]int
}

// NewScenarioCatalog validates every entry and fails on the first malformed one.
func NewScenarioCatalog(registry *domain.TraitRegistry, scenarios []domain.Scenario) (*ScenarioCatalog, error) {
	if len(scenarios) == 0 {
		return nil, fmt.Errorf("%w: scenario catalog is empty", domain.ErrDataIntegrity)
	}
	c := &ScenarioCatalog{
		scenarios: make([]domain.Scenario, 0, len(scenarios)),
		byID:      make(map[string]int, len(scenarios)),
	}
	for i, sc := range scenarios {
		if err := sc.Validate(registry); err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i, err)
		}
		id := strings.TrimSpace(sc.ID)
		if _, dup := c.byID[id]; dup {
			return nil, fmt.Errorf("catalog entry %d: %w: duplicate scenario id %s", i, domain.ErrDataIntegrity, id)
		}
		clean := sc.Clone()
		clean.ID = id
		c.byID[id] = len(c.scenarios)
		c.scenarios = append(c.scenarios, clean)
	}
	return c, nil
}

func (c *ScenarioCatalog) Len() int {
	return len(c.scenarios)
}

// ParseCatalog decodes a JSON or YAML list of scenarios and validates it.
func ParseCatalog(data []byte, format CatalogFormat, registry *domain.TraitRegistry) (*ScenarioCatalog, error) {
	var scenarios []domain.Scenario
	switch format {
	case CatalogFormatJSON:
		if err := json.Unmarshal(data, &scenarios); err != nil {
			return nil, fmt.Errorf("%w: decode json catalog: %v", domain.ErrDataIntegrity, err)
		}
	case CatalogFormatYAML:
		if err := yaml.Unmarshal(data, &scenarios); err != nil {
			return nil, fmt.Errorf("%w: decode yaml catalog: %v", domain.ErrDataIntegrity, err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", format)
	}
	return NewScenarioCatalog(registry, scenarios)
}

// LoadCatalogFile picks the decoder from the file extension (.json, .yaml, .yml).
func LoadCatalogFile(path string, registry *domain.TraitRegistry) (*ScenarioCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	format := CatalogFormatJSON
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = CatalogFormatYAML
	}
	catalog, err := ParseCatalog(data, format, registry)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return catalog, nil
}

// DefaultCatalog loads the scenarios bundled with the binary.
func DefaultCatalog(registry *domain.TraitRegistry) (*ScenarioCatalog, error) {
	return ParseCatalog(defaultCatalogJSON, CatalogFormatJSON, registry)
}

// ScenarioSource lists scenarios from an external store, e.g. the Postgres repository.
type ScenarioSource interface {
	ListAll(ctx context.Context) ([]domain.Scenario, error)
}

// LoadCatalogFromSource reads every scenario once and validates the result.
func LoadCatalogFromSource(ctx context.Context, src ScenarioSource, registry *domain.TraitRegistry) (*ScenarioCatalog, error) {
	scenarios, err := src.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	return NewScenarioCatalog(registry, scenarios)
}
