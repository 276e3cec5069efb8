// Package config loads the per-dealership rule documents.
//
// Each dealership is described by one YAML file in the dealers directory.
// The documents are read-only inputs: the core never creates or migrates
// them. Malformed documents fail at load time, not at decision time.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lotsign/vinflow/internal/common"
	"github.com/lotsign/vinflow/internal/model"
)

// validConditions enumerates the recognized excluded-condition values so a
// typo in a document is caught on load.
var validConditions = map[model.Condition]struct{}{
	model.ConditionNew:       {},
	model.ConditionUsed:      {},
	model.ConditionCertified: {},
	model.ConditionOnLot:     {},
	model.ConditionOffLot:    {},
}

// LoadDealer reads and validates a single dealership document.
func LoadDealer(path string) (*model.DealershipConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dealer config %s: %w", path, err)
	}

	var cfg model.DealershipConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrInvalidConfig, path, err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &cfg, nil
}

// LoadDealers reads every *.yaml document in dir, keyed by dealership name.
func LoadDealers(dir string) (map[string]*model.DealershipConfig, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list dealer configs: %w", err)
	}
	sort.Strings(paths)

	dealers := make(map[string]*model.DealershipConfig, len(paths))
	for _, path := range paths {
		cfg, err := LoadDealer(path)
		if err != nil {
			return nil, err
		}
		if _, dup := dealers[cfg.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate dealership %q in %s", common.ErrInvalidConfig, cfg.Name, path)
		}
		dealers[cfg.Name] = cfg
	}

	return dealers, nil
}

// FindDealer loads the document for one dealership from dir, or
// common.ErrConfigNotFound if no document carries that name.
func FindDealer(dir, name string) (*model.DealershipConfig, error) {
	dealers, err := LoadDealers(dir)
	if err != nil {
		return nil, err
	}

	cfg, ok := dealers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrConfigNotFound, name)
	}
	return cfg, nil
}

// Validate checks a dealership document against the recognized option set.
func Validate(cfg *model.DealershipConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("%w: missing dealership name", common.ErrInvalidConfig)
	}
	for _, cond := range cfg.ExcludedConditions {
		if _, ok := validConditions[cond]; !ok {
			return fmt.Errorf("%w: unknown excluded condition %q", common.ErrInvalidConfig, cond)
		}
	}
	if cfg.MinPrice < 0 {
		return fmt.Errorf("%w: min_price cannot be negative", common.ErrInvalidConfig)
	}
	if cfg.MinYear < 0 {
		return fmt.Errorf("%w: min_year cannot be negative", common.ErrInvalidConfig)
	}
	return nil
}
