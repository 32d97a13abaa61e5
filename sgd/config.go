package sgd

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when a hyperparameter is outside its
// declared range.
var ErrInvalidConfig = errors.New("invalid sgd config")

// Config holds the updater hyperparameters. The zero value is not usable;
// start from DefaultConfig and set VDim, which has no default.
type Config struct {
	// L1 is the l1 regularizer on w. Range [0, 1e10].
	L1 float32 `yaml:"l1"`
	// L2 is the l2 regularizer on w. Range [0, 1e10].
	L2 float32 `yaml:"l2"`
	// VL2 is the l2 regularizer on the embedding V. Range [0, 1e10].
	VL2 float32 `yaml:"v_l2"`

	// Lr is the FTRL learning rate for w. Range (0, 10].
	Lr float32 `yaml:"lr"`
	// LrBeta is the FTRL learning-rate offset, the stabilizer that keeps
	// the first steps finite without special-casing a zero accumulator.
	// Range [0, 1e10].
	LrBeta float32 `yaml:"lr_beta"`
	// VLr is the adagrad learning rate for V. Range [0, 1e10].
	VLr float32 `yaml:"v_lr"`
	// VLrBeta is the adagrad learning-rate offset for V. Range (0, 10].
	VLrBeta float32 `yaml:"v_lr_beta"`

	// VInitScale bounds the uniform init of embedding coordinates:
	// each draw lands in [-VInitScale, +VInitScale]. Range (0, 10].
	VInitScale float32 `yaml:"v_init_scale"`
	// VDim is the embedding dimension. Required; 0 disables embeddings
	// entirely (pure linear model).
	VDim int `yaml:"v_dim"`
	// VThreshold is the minimal feature count before V is allocated.
	VThreshold int `yaml:"v_threshold"`

	// Seed seeds the per-updater random generator used for embedding init.
	Seed uint64 `yaml:"seed"`
}

// DefaultConfig returns the documented defaults. VDim is set to -1 and must
// be assigned by the caller before use.
func DefaultConfig() Config {
	return Config{
		L1:         1,
		L2:         0,
		VL2:        0.01,
		Lr:         0.01,
		LrBeta:     1,
		VLr:        0.01,
		VLrBeta:    1,
		VInitScale: 0.01,
		VDim:       -1,
		VThreshold: 10,
		Seed:       0,
	}
}

// Validate checks every hyperparameter against its declared range.
func (c Config) Validate() error {
	const cap10 = 1e10
	check := func(name string, v float32, lo, hi float32, loOpen bool) error {
		if v < lo || v > hi || (loOpen && v == lo) {
			left := "["
			if loOpen {
				left = "("
			}
			return fmt.Errorf("%w: %s=%v outside %s%v, %v]", ErrInvalidConfig, name, v, left, lo, hi)
		}
		return nil
	}
	if err := check("l1", c.L1, 0, cap10, false); err != nil {
		return err
	}
	if err := check("l2", c.L2, 0, cap10, false); err != nil {
		return err
	}
	if err := check("v_l2", c.VL2, 0, cap10, false); err != nil {
		return err
	}
	if err := check("lr", c.Lr, 0, 10, true); err != nil {
		return err
	}
	if err := check("lr_beta", c.LrBeta, 0, cap10, false); err != nil {
		return err
	}
	if err := check("v_lr", c.VLr, 0, cap10, false); err != nil {
		return err
	}
	if err := check("v_lr_beta", c.VLrBeta, 0, 10, true); err != nil {
		return err
	}
	if err := check("v_init_scale", c.VInitScale, 0, 10, true); err != nil {
		return err
	}
	if c.VDim < 0 {
		return fmt.Errorf("%w: v_dim is required and must be >= 0, got %d", ErrInvalidConfig, c.VDim)
	}
	if c.VThreshold < 0 {
		return fmt.Errorf("%w: v_threshold must be >= 0, got %d", ErrInvalidConfig, c.VThreshold)
	}
	return nil
}

// LoadConfig reads a yaml config file on top of the defaults and validates
// the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
