package arbor

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/jward/arbor/internal/matchers"
)

// FileConfig is the on-disk configuration. Zero fields keep the Engine
// defaults.
type FileConfig struct {
	Strategy          string            `yaml:"strategy"`
	MinHeight         int               `yaml:"min_height"`
	SimThreshold      *float64          `yaml:"sim_threshold"`
	SizeThreshold     *int              `yaml:"size_threshold"`
	LabelThreshold    *float64          `yaml:"label_threshold"`
	Similarity        string            `yaml:"similarity"`
	EmitReorderMoves  *bool             `yaml:"emit_reorder_moves"`
	AdaptiveThreshold *bool             `yaml:"adaptive_threshold"`
	OptimalSize       *int              `yaml:"optimal_size"`
	Languages         map[string]string `yaml:"languages"`
	Parallelism       int               `yaml:"parallelism"`
}

// LoadConfig reads a YAML config file, then applies ARBOR_STRATEGY and
// ARBOR_PARALLELISM from the environment. An empty path or a missing file
// yields the defaults.
func LoadConfig(path string) (*FileConfig, error) {
	fc := &FileConfig{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("arbor: load config: %w", err)
		default:
			if err := yaml.Unmarshal(data, fc); err != nil {
				return nil, fmt.Errorf("arbor: parse config %s: %w", path, err)
			}
		}
	}
	if err := loadConfigFromEnv(fc); err != nil {
		return nil, err
	}
	if _, err := fc.Config(); err != nil {
		return nil, err
	}
	return fc, nil
}

func loadConfigFromEnv(fc *FileConfig) error {
	if v := os.Getenv("ARBOR_STRATEGY"); v != "" {
		fc.Strategy = v
	}
	if v := os.Getenv("ARBOR_PARALLELISM"); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil || i < 1 {
			return fmt.Errorf("arbor: config: ARBOR_PARALLELISM %q is not a positive integer", v)
		}
		fc.Parallelism = i
	}
	return nil
}

// Config resolves the file settings over DefaultConfig and validates them.
func (fc *FileConfig) Config() (Config, error) {
	cfg := DefaultConfig()
	if fc.Strategy != "" {
		s, err := ParseStrategy(fc.Strategy)
		if err != nil {
			return cfg, fmt.Errorf("arbor: config: %w", err)
		}
		cfg = cfg.WithStrategy(s)
	}
	if fc.MinHeight != 0 {
		cfg.MinHeight = fc.MinHeight
	}
	if fc.SimThreshold != nil {
		cfg.SimThreshold = *fc.SimThreshold
	}
	if fc.SizeThreshold != nil {
		cfg.SizeThreshold = *fc.SizeThreshold
	}
	if fc.LabelThreshold != nil {
		cfg.LabelThreshold = *fc.LabelThreshold
	}
	if fc.Similarity != "" {
		sim, err := matchers.ParseSimilarity(fc.Similarity)
		if err != nil {
			return cfg, fmt.Errorf("arbor: config: %w", err)
		}
		cfg.Similarity = sim
	}
	if fc.EmitReorderMoves != nil {
		cfg.EmitReorderMoves = *fc.EmitReorderMoves
	}
	if fc.AdaptiveThreshold != nil {
		cfg.AdaptiveThreshold = *fc.AdaptiveThreshold
	}
	if fc.OptimalSize != nil {
		cfg.OptimalSize = *fc.OptimalSize
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("arbor: config: %w", err)
	}
	return cfg, nil
}

// Options turns the file settings into Engine options.
func (fc *FileConfig) Options() ([]Option, error) {
	cfg, err := fc.Config()
	if err != nil {
		return nil, err
	}
	opts := []Option{WithConfig(cfg)}
	if len(fc.Languages) > 0 {
		opts = append(opts, WithLanguages(fc.Languages))
	}
	if fc.Parallelism > 0 {
		opts = append(opts, WithParallelism(fc.Parallelism))
	}
	return opts, nil
}
