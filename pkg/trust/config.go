package trust

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/traceguard/backend/pkg/common"
)

// DefaultScenario is the model name used when a caller does not select one.
const DefaultScenario = "default"

// DefaultModel returns the built-in trust model parameters used when no
// config row is active and no parameter file overrides them.
func DefaultModel() common.TrustModelConfig {
	return common.TrustModelConfig{
		ModelName:       DefaultScenario,
		Version:         "v1",
		DepthLimit:      4,
		DecayFactor:     1.0,
		SanctionBoost:   4.0,
		RelationWeights: common.DefaultRelationWeights(),
		Active:          true,
	}
}

type modelFile struct {
	ModelName       string             `yaml:"model_name"`
	Version         string             `yaml:"version"`
	DepthLimit      int                `yaml:"depth_limit"`
	DecayFactor     float64            `yaml:"decay_factor"`
	SanctionBoost   float64            `yaml:"sanction_boost"`
	RelationWeights map[string]float64 `yaml:"relation_weights"`
}

// LoadDefaults reads trust model parameters from a YAML file, falling back to
// DefaultModel for any field the file omits. A missing file is not an error;
// the built-in defaults are returned.
func LoadDefaults(path string) (common.TrustModelConfig, error) {
	cfg := DefaultModel()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read trust model file: %w", err)
	}

	var f modelFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return cfg, fmt.Errorf("failed to parse trust model file: %w", err)
	}

	if f.ModelName != "" {
		cfg.ModelName = f.ModelName
	}
	if f.Version != "" {
		cfg.Version = f.Version
	}
	if f.DepthLimit > 0 {
		cfg.DepthLimit = f.DepthLimit
	}
	if f.DecayFactor > 0 {
		cfg.DecayFactor = f.DecayFactor
	}
	if f.SanctionBoost > 0 {
		cfg.SanctionBoost = f.SanctionBoost
	}
	if len(f.RelationWeights) > 0 {
		for k, v := range f.RelationWeights {
			cfg.RelationWeights[k] = v
		}
	}

	return cfg, nil
}
